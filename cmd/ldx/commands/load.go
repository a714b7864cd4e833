package commands

import (
	"cmp"
	"slices"
	"strconv"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/teranos/ldx/display"
	"github.com/teranos/ldx/errors"
	"github.com/teranos/ldx/index"
	"github.com/teranos/ldx/ingest/jsonld"
	"github.com/teranos/ldx/ld"
)

// LoadCmd loads a document and summarizes the index it produced
var LoadCmd = &cobra.Command{
	Use:   "load <file|url>",
	Short: "Load a JSON-LD document and summarize the index",
	Long: `Load a JSON-LD document into a processor and print how many resources
were indexed, which types they carry and which prefixes the document declares.

Use - to read the document from standard input. http(s) URLs are fetched
unless they resolve to loopback or private addresses; set
source.allow_private_networks to lift that.

Examples:
  ldx load library.jsonld
  cat library.jsonld | ldx load -
  ldx load https://example.org/library.jsonld
  ldx load library.jsonld --json`,
	Args: cobra.ExactArgs(1),
	RunE: runLoad,
}

// Summary describes a loaded index.
type Summary struct {
	Source    string        `json:"source"`
	Resources int           `json:"resources"`
	Types     []TypeCount   `json:"types"`
	Prefixes  []ld.Coercion `json:"prefixes"`
}

// TypeCount is the number of resources carrying one type.
type TypeCount struct {
	Type  string `json:"type"`
	Count int    `json:"count"`
}

func runLoad(cmd *cobra.Command, args []string) error {
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
	prefixes, err := jsonld.Prefixes([]byte(s.doc))
	if err != nil {
		return errors.Wrap(err, "read @context")
	}
	summary := summarize(args[0], all.Resources, registered(prefixes))

	if display.ShouldOutputJSON(cmd) {
		return display.OutputJSON(cmd.OutOrStdout(), summary)
	}
	return renderSummary(cmd, summary)
}

// registered keeps the prefixes the index accepts, in declaration order.
func registered(prefixes []ld.Coercion) []ld.Coercion {
	reg := index.NewRegistry()
	for _, c := range prefixes {
		reg.Register(c.Prefix, c.Namespace)
	}
	return reg.Coercions()
}

func summarize(name string, resources []ld.Resource, prefixes []ld.Coercion) Summary {
	counts := map[string]int{}
	for _, r := range resources {
		if r.Type != "" {
			counts[r.Type]++
		}
	}
	types := make([]TypeCount, 0, len(counts))
	for t, n := range counts {
		types = append(types, TypeCount{Type: t, Count: n})
	}
	slices.SortFunc(types, func(a, b TypeCount) int {
		return cmp.Or(cmp.Compare(b.Count, a.Count), cmp.Compare(a.Type, b.Type))
	})
	if prefixes == nil {
		prefixes = []ld.Coercion{}
	}
	return Summary{Source: name, Resources: len(resources), Types: types, Prefixes: prefixes}
}

func renderSummary(cmd *cobra.Command, s Summary) error {
	out := cmd.OutOrStdout()
	pterm.Success.WithWriter(out).Printfln("Loaded %d resources from %s", s.Resources, s.Source)

	if len(s.Types) > 0 {
		data := pterm.TableData{{"Type", "Resources"}}
		for _, t := range s.Types {
			data = append(data, []string{t.Type, strconv.Itoa(t.Count)})
		}
		if err := pterm.DefaultTable.WithHasHeader().WithWriter(out).WithData(data).Render(); err != nil {
			return errors.Wrap(err, "render types")
		}
	}

	if len(s.Prefixes) > 0 {
		data := pterm.TableData{{"Prefix", "Namespace"}}
		for _, p := range s.Prefixes {
			data = append(data, []string{p.Prefix, p.Namespace})
		}
		if err := pterm.DefaultTable.WithHasHeader().WithWriter(out).WithData(data).Render(); err != nil {
			return errors.Wrap(err, "render prefixes")
		}
	}
	return nil
}
