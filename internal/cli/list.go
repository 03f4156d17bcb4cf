package cli

import (
	"context"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/crates/internal/index"
	"github.com/mesh-intelligence/crates/pkg/types"
)

// openIndex loads the crate manifest into a query index. The caller must
// Close it.
func (e *env) openIndex(ctx context.Context) (*index.Index, error) {
	p, err := e.cratePath()
	if err != nil {
		return nil, err
	}
	store, err := e.store()
	if err != nil {
		return nil, err
	}
	g, err := store.Load(p)
	if err != nil {
		return nil, err
	}
	return index.Build(ctx, g)
}

func newListCmd(e *env) *cobra.Command {
	var kind, keyword, text string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List the entities in the crate",
		Example: `  crate list --kind dataset
  crate list --keyword "heart rate"
  crate list --text cleaning`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			filter := index.Filter{Keyword: keyword, Text: text}
			if kind != "" {
				k, err := types.ParseKind(kind)
				if err != nil {
					return err
				}
				filter.Kind = k
			}

			ix, err := e.openIndex(cmd.Context())
			if err != nil {
				return err
			}
			defer ix.Close()

			rows, err := ix.List(cmd.Context(), filter)
			if err != nil {
				return err
			}
			if e.flags.jsonMode {
				if rows == nil {
					rows = []index.Row{}
				}
				return printJSON(cmd.OutOrStdout(), rows)
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tKIND\tNAME\tCONTENT URL")
			for _, r := range rows {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", r.ID, r.Kind, r.Name, r.ContentURL)
			}
			return tw.Flush()
		},
	}
	cmd.Flags().StringVar(&kind, "kind", "", "entity kind: rocrate, dataset, software, computation, schema")
	cmd.Flags().StringVar(&keyword, "keyword", "", "only entities with this keyword (case-insensitive)")
	cmd.Flags().StringVar(&text, "text", "", "only entities whose name or description contains text")
	return cmd
}
