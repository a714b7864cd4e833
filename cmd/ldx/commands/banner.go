package commands

import (
	"cmp"
	"fmt"
	"io"
	"strings"

	"github.com/pterm/pterm"

	"github.com/teranos/ldx/logger"
	"github.com/teranos/ldx/version"
)

type bannerInfo struct {
	Port      int
	Strategy  string
	Watch     string
	Metrics   bool
	NATS      bool
	Verbosity int
}

// printStartupBanner prints the user-facing startup summary
func printStartupBanner(w io.Writer, b bannerInfo) {
	v := version.Get()

	lines := []string{
		fmt.Sprintf("Version:   %s (commit %s)", v.Version, v.Short()),
		fmt.Sprintf("Listening: ws://localhost:%d/ws", b.Port),
		fmt.Sprintf("Strategy:  %s", cmp.Or(b.Strategy, "inprocess")),
		fmt.Sprintf("Verbosity: %s, %s", logger.LevelName(b.Verbosity), logger.VerbosityDescription(b.Verbosity)),
	}
	if b.Watch != "" {
		lines = append(lines, fmt.Sprintf("Watching:  %s", b.Watch))
	}
	if b.Metrics {
		lines = append(lines, fmt.Sprintf("Metrics:   http://localhost:%d/metrics", b.Port))
	}
	if b.NATS {
		lines = append(lines, "NATS:      hosting a processor on nats.subject_prefix")
	}

	pterm.DefaultBox.WithWriter(w).WithTitle("ldx").Println(strings.Join(lines, "\n"))
	pterm.Info.WithWriter(w).Println("Press Ctrl+C to stop")
}
