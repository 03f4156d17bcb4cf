package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/crates/internal/validate"
)

func newValidateCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Check the manifest for duplicate ids, dangling edges and bad paths",
		Long: `Validate reads the manifest and reports every problem found. It never
modifies the crate. The exit code is 1 when the crate has problems.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := e.cratePath()
			if err != nil {
				return err
			}
			store, err := e.store()
			if err != nil {
				return err
			}
			g, err := store.Load(p)
			if err != nil {
				return err
			}

			if err := validate.Validate(g); err != nil {
				return err
			}
			if e.flags.jsonMode {
				return printJSON(cmd.OutOrStdout(), map[string]any{"valid": true, "entities": g.Len()})
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Crate is valid (%d entities)\n", g.Len())
			return nil
		},
	}
}
