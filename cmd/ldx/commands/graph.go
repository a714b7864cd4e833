package commands

import (
	"github.com/spf13/cobra"

	"github.com/teranos/ldx/display"
	"github.com/teranos/ldx/graph"
)

// GraphCmd prints the node/link projection of a document's index
var GraphCmd = &cobra.Command{
	Use:   "graph <file|url>",
	Short: "Print a JSON-LD document's index as a node/link graph",
	Long: `Load a JSON-LD document and print its resources as graph JSON: one node
per resource, links for references between indexed resources, and type
statistics in meta.

Examples:
  ldx graph library.jsonld > graph.json`,
	Args: cobra.ExactArgs(1),
	RunE: runGraph,
}

func runGraph(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext(cmd.Context())
	defer cancel()

	s, err := openSession(ctx, cmd, args[0])
	if err != nil {
		return err
	}
	defer s.Close()

	all, err := s.svc.Query(ctx)
	if err != nil {
		return err
	}
	return display.OutputJSON(cmd.OutOrStdout(), graph.Build(all.Resources))
}
