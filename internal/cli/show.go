package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/crates/internal/index"
)

func newShowCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Display an entity with its relationships",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ix, err := e.openIndex(cmd.Context())
			if err != nil {
				return err
			}
			defer ix.Close()

			d, err := ix.Show(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if e.flags.jsonMode {
				return printJSON(cmd.OutOrStdout(), d)
			}
			printDetail(cmd.OutOrStdout(), d)
			return nil
		},
	}
}

func printDetail(w io.Writer, d *index.Detail) {
	fmt.Fprintf(w, "ID:          %s\n", d.ID)
	fmt.Fprintf(w, "Kind:        %s\n", d.Kind)
	fmt.Fprintf(w, "Name:        %s\n", d.Name)
	if d.ContentURL != "" {
		fmt.Fprintf(w, "Content URL: %s\n", d.ContentURL)
	}
	if d.Description != "" {
		fmt.Fprintf(w, "Description: %s\n", d.Description)
	}

	if len(d.Outgoing) > 0 {
		fmt.Fprintln(w, "\nLinks to:")
		for _, edge := range d.Outgoing {
			fmt.Fprintf(w, "  %s -> %s%s\n", edge.Relation, edge.To, quotedName(edge.Name))
		}
	}
	if len(d.Incoming) > 0 {
		fmt.Fprintln(w, "\nLinked from:")
		for _, edge := range d.Incoming {
			fmt.Fprintf(w, "  %s <- %s%s\n", edge.Relation, edge.From, quotedName(edge.Name))
		}
	}
}

func quotedName(name string) string {
	if name == "" {
		return ""
	}
	return fmt.Sprintf(" (%s)", name)
}
