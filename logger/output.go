package logger

// Output categories decide what extra the CLI prints at a verbosity level,
// independent of log severity. Results and errors are always printed.
//
//	1 (-v)  - load timing
//	2 (-vv) - + resolved configuration
type OutputCategory int

const (
	OutputTiming OutputCategory = iota
	OutputConfig
)

var categoryLevels = map[OutputCategory]int{
	OutputTiming: VerbosityInfo,
	OutputConfig: VerbosityDebug,
}

// ShouldOutput reports whether category is shown at verbosity. Unknown
// categories are never shown.
func ShouldOutput(verbosity int, category OutputCategory) bool {
	minLevel, ok := categoryLevels[category]
	return ok && verbosity >= minLevel
}

var categoryNames = map[OutputCategory]string{
	OutputTiming: "timing",
	OutputConfig: "config",
}

// CategoryName returns the human-readable name for an output category
func CategoryName(category OutputCategory) string {
	if name, ok := categoryNames[category]; ok {
		return name
	}
	return "unknown"
}

// VerbosityDescription returns what is shown at a verbosity level.
func VerbosityDescription(verbosity int) string {
	switch {
	case verbosity <= VerbosityUser:
		return "results and errors only"
	case verbosity == VerbosityInfo:
		return "info logs and load timing"
	default:
		return "debug logs, every command and response, resolved config"
	}
}
