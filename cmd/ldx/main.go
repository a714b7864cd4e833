package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/teranos/ldx/am"
	"github.com/teranos/ldx/cmd/ldx/commands"
	"github.com/teranos/ldx/errors"
	"github.com/teranos/ldx/logger"
)

var rootCmd = &cobra.Command{
	Use:   "ldx",
	Short: "ldx - JSON-LD resource index",
	Long: `ldx - index JSON-LD documents and query them by id or type.

A processor ingests a document on INIT and answers FETCH commands from its
resource index. The CLI runs one processor per invocation; ldx serve hosts
one for websocket and NATS clients.

Available commands:
  load     - Load a document and summarize its index
  fetch    - Fetch resources or types from a document
  graph    - Print a document's index as graph JSON
  serve    - Serve a processor over websockets
  am       - Manage ldx configuration ("I am")
  version  - Show version information

Examples:
  ldx load library.jsonld
  ldx fetch library.jsonld types
  ldx serve --watch library.jsonld -v`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		verbosity, _ := cmd.Flags().GetCount("verbose")
		jsonLogs := false
		if cfg, err := am.Load(); err == nil {
			jsonLogs = cfg.Log.JSON
		}
		if err := logger.InitializeWithVerbosity(jsonLogs, verbosity); err != nil {
			return errors.Wrap(err, "failed to initialize logger")
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		logger.Cleanup()
	},
}

func init() {
	rootCmd.PersistentFlags().CountP("verbose", "v", "Increase output verbosity (repeat for more detail: -v, -vv, -vvv)")
	rootCmd.PersistentFlags().Bool("json", false, "Output JSON where a command supports it")

	rootCmd.AddCommand(commands.LoadCmd)
	rootCmd.AddCommand(commands.FetchCmd)
	rootCmd.AddCommand(commands.GraphCmd)
	rootCmd.AddCommand(commands.ServeCmd)
	rootCmd.AddCommand(commands.AmCmd)
	rootCmd.AddCommand(commands.VersionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		for _, hint := range errors.GetAllHints(err) {
			fmt.Fprintf(os.Stderr, "hint: %s\n", hint)
		}
		os.Exit(1)
	}
}
