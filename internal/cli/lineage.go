package cli

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/crates/internal/index"
)

func newLineageCmd(e *env) *cobra.Command {
	var direction string
	cmd := &cobra.Command{
		Use:   "lineage <id>",
		Short: "Trace where an entity came from or what was made from it",
		Long: `Lineage follows provenance edges from an entity. Upstream lists the datasets,
software and computations it was produced from; downstream lists everything
produced from it. Each entity is shown once, at its shortest distance.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var dir index.Direction
			switch strings.ToLower(direction) {
			case "up", "upstream":
				dir = index.Upstream
			case "down", "downstream":
				dir = index.Downstream
			default:
				return usageErrorf("direction %q (want upstream or downstream)", direction)
			}

			ix, err := e.openIndex(cmd.Context())
			if err != nil {
				return err
			}
			defer ix.Close()

			steps, err := ix.Lineage(cmd.Context(), args[0], dir)
			if err != nil {
				return err
			}
			if e.flags.jsonMode {
				if steps == nil {
					steps = []index.Step{}
				}
				return printJSON(cmd.OutOrStdout(), steps)
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "DEPTH\tID\tKIND\tNAME")
			for _, s := range steps {
				fmt.Fprintf(tw, "%d\t%s\t%s\t%s\n", s.Depth, s.ID, s.Kind, s.Name)
			}
			return tw.Flush()
		},
	}
	cmd.Flags().StringVar(&direction, "direction", "upstream", "upstream or downstream")
	return cmd
}
