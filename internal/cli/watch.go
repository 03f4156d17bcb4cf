package cli

import (
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/crates/internal/manifest"
	"github.com/mesh-intelligence/crates/internal/validate"
	"github.com/mesh-intelligence/crates/internal/watch"
)

func newWatchCmd(e *env) *cobra.Command {
	var debounce time.Duration
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Revalidate the manifest whenever it changes",
		Long: `Watch validates the manifest, then again after every change until interrupted.
Changes made by other tools are picked up as well.`,
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

			w, err := watch.New(watch.Config{CratePath: p, Debounce: debounce, Logger: e.logger})
			if err != nil {
				return err
			}
			defer w.Stop()

			ctx := cmd.Context()
			changes, err := w.Start(ctx)
			if err != nil {
				return err
			}
			e.logger.Info().Str("crate", p).Msg("watching manifest")

			out := cmd.OutOrStdout()
			printValidity(out, store, p)
			for {
				select {
				case <-ctx.Done():
					return nil
				case <-changes:
					printValidity(out, store, p)
				}
			}
		},
	}
	cmd.Flags().DurationVar(&debounce, "debounce", watch.DefaultDebounce, "quiet period before revalidating")
	return cmd
}

// printValidity prints one validation line, followed by the issues if any.
func printValidity(w io.Writer, store *manifest.Store, cratePath string) {
	stamp := time.Now().Format(time.TimeOnly)
	g, err := store.Load(cratePath)
	if err == nil {
		err = validate.Validate(g)
	}
	if err != nil {
		fmt.Fprintf(w, "%s invalid: %v\n", stamp, err)
		return
	}
	fmt.Fprintf(w, "%s valid (%d entities)\n", stamp, g.Len())
}
