package cli

import (
	"github.com/spf13/cobra"
)

func newAddCmd(e *env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Copy a file into the crate and register it",
		Long: `Add copies --source to --destination inside the crate, then registers the copy.
The original file is left in place. Nothing is copied when the registration
would fail.`,
	}
	cmd.AddCommand(newAddDatasetCmd(e))
	cmd.AddCommand(newAddSoftwareCmd(e))
	return cmd
}

func newAddDatasetCmd(e *env) *cobra.Command {
	var (
		f                   datasetFlags
		source, destination string
	)
	cmd := &cobra.Command{
		Use:   "dataset",
		Short: "Copy and register a dataset",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			reg, err := e.openRegistry()
			if err != nil {
				return err
			}

			attrs := f.attrs()
			if err := f.bindSchema(reg, e, source, &attrs); err != nil {
				return err
			}

			id, err := reg.AddDataset(source, destination, attrs)
			if err != nil {
				return err
			}
			return e.printID(cmd.OutOrStdout(), id)
		},
	}
	f.bind(cmd.Flags(), false)
	cmd.Flags().StringVar(&source, "source", "", "file to copy into the crate")
	cmd.Flags().StringVar(&destination, "destination", "", "crate-relative destination path")
	return cmd
}

func newAddSoftwareCmd(e *env) *cobra.Command {
	var (
		f                   softwareFlags
		source, destination string
	)
	cmd := &cobra.Command{
		Use:   "software",
		Short: "Copy and register a software file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			reg, err := e.openRegistry()
			if err != nil {
				return err
			}
			id, err := reg.AddSoftware(source, destination, f.attrs())
			if err != nil {
				return err
			}
			return e.printID(cmd.OutOrStdout(), id)
		},
	}
	f.bind(cmd.Flags(), false)
	cmd.Flags().StringVar(&source, "source", "", "file to copy into the crate")
	cmd.Flags().StringVar(&destination, "destination", "", "crate-relative destination path")
	return cmd
}
