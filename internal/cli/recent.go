package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newRecentCmd(e *env) *cobra.Command {
	var forget string
	cmd := &cobra.Command{
		Use:   "recent",
		Short: "List the crates opened most recently",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			l, err := e.recentList()
			if err != nil {
				return err
			}
			if forget != "" {
				l.Remove(forget)
				if err := l.Save(); err != nil {
					return err
				}
			}

			items := l.Items()
			if e.flags.jsonMode {
				if items == nil {
					items = []string{}
				}
				return printJSON(cmd.OutOrStdout(), items)
			}
			for _, item := range items {
				fmt.Fprintln(cmd.OutOrStdout(), item)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&forget, "forget", "", "remove a crate from the list")
	return cmd
}
