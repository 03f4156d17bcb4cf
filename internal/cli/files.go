package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/crates/internal/walk"
	"github.com/mesh-intelligence/crates/pkg/types"
)

func newFilesCmd(e *env) *cobra.Command {
	var unregistered bool
	cmd := &cobra.Command{
		Use:   "files",
		Short: "List the files in the crate and whether they are registered",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := e.cratePath()
			if err != nil {
				return err
			}
			store, err := e.store()
			if err != nil {
				return err
			}

			var registered []string
			g, err := store.Load(p)
			switch {
			case err == nil:
				registered = g.RegisteredFiles()
			case errors.Is(err, types.ErrNotInitialized):
				e.logger.Warn().Str("crate", p).Msg("crate is not initialized; run crate init")
			default:
				return err
			}

			files, err := walk.Walk(p, walk.DefaultExclude)
			if err != nil {
				return fmt.Errorf("list crate files: %w", err)
			}

			statuses := walk.Mark(files, registered)
			if unregistered {
				kept := statuses[:0]
				for _, s := range statuses {
					if !s.Registered {
						kept = append(kept, s)
					}
				}
				statuses = kept
			}

			if e.flags.jsonMode {
				return printJSON(cmd.OutOrStdout(), statuses)
			}
			for _, s := range statuses {
				mark := " "
				if s.Registered {
					mark = "x"
				}
				fmt.Fprintf(cmd.OutOrStdout(), "[%s] %s\n", mark, s.Path)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&unregistered, "unregistered", false, "only list files no entity describes")
	return cmd
}
