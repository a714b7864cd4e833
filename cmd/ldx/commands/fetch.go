package commands

import (
	"strconv"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/teranos/ldx/display"
	"github.com/teranos/ldx/errors"
	"github.com/teranos/ldx/ld"
)

// FetchCmd loads a document and runs one FETCH against it
var FetchCmd = &cobra.Command{
	Use:   "fetch <file|url> [selector] [type]",
	Short: "Load a JSON-LD document and fetch from its index",
	Long: `Load a JSON-LD document and run a FETCH against the resulting index.

Selectors:
  all            every resource in insertion order (default)
  types          the distinct resource types
  type <IRI>     resources of one type
  <IRI>          one resource by id

Examples:
  ldx fetch library.jsonld
  ldx fetch library.jsonld types
  ldx fetch library.jsonld type http://example.org/vocab#Thing --table
  ldx fetch library.jsonld http://example.org/foo`,
	Args: cobra.RangeArgs(1, 3),
	RunE: runFetch,
}

func init() {
	FetchCmd.Flags().Bool("table", false, "Render the result as a table instead of JSON")
}

func runFetch(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext(cmd.Context())
	defer cancel()

	s, err := openSession(ctx, cmd, args[0])
	if err != nil {
		return err
	}
	defer s.Close()

	result, err := s.svc.Query(ctx, args[1:]...)
	if err != nil {
		if errors.Is(err, errors.ErrNotFound) {
			return errors.WithHint(err, "list ids with: ldx fetch "+args[0]+" --table")
		}
		return err
	}

	if asTable, _ := cmd.Flags().GetBool("table"); asTable {
		return renderResult(cmd, result)
	}
	return display.OutputJSON(cmd.OutOrStdout(), result)
}

func renderResult(cmd *cobra.Command, result *ld.Result) error {
	var data pterm.TableData
	switch result.Kind {
	case ld.ResultTypes:
		data = pterm.TableData{{"Type"}}
		for _, t := range result.Types {
			data = append(data, []string{t})
		}
	case ld.ResultResource:
		data = pterm.TableData{{"Key", "Label", "Value", "Kind"}}
		for _, a := range result.Resource.Attributes {
			data = append(data, []string{a.Key, a.Label, a.Value, string(a.Type)})
		}
	default:
		data = pterm.TableData{{"ID", "Type", "Title", "Attributes"}}
		for _, r := range result.Resources {
			data = append(data, []string{r.ID, r.Type, r.Title, strconv.Itoa(len(r.Attributes))})
		}
	}
	if err := pterm.DefaultTable.WithHasHeader().WithWriter(cmd.OutOrStdout()).WithData(data).Render(); err != nil {
		return errors.Wrap(err, "render result")
	}
	return nil
}
