package graph

const (
	// Link weight constants
	defaultLinkWeight   = 1.0 // Initial weight for new links
	linkWeightIncrement = 0.5 // Weight increase for duplicate relationships

	untypedType         = "untyped"
	defaultUntypedColor = "rgba(149, 165, 166, 0.3)" // Transparent gray
	defaultUntypedLabel = "Untyped"
)

// typePalette colors typed nodes in Meta.NodeTypes order, wrapping around.
var typePalette = []string{
	"#3498db", "#e74c3c", "#2ecc71", "#f39c12", "#9b59b6",
	"#1abc9c", "#e67e22", "#34495e", "#16a085", "#c0392b",
}
