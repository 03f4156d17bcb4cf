package cli

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/mesh-intelligence/crates/pkg/types"
)

// crateFlags are the root entity fields shared by init and create.
type crateFlags struct {
	name         string
	organization string
	project      string
	description  string
	keywords     string
	guid         string
	packageType  string
}

func (f *crateFlags) bind(fs *pflag.FlagSet) {
	fs.StringVar(&f.name, "name", "", "crate name")
	fs.StringVar(&f.organization, "organization", "", "organization that owns the crate")
	fs.StringVar(&f.project, "project", "", "project the crate belongs to")
	fs.StringVar(&f.description, "description", "", "crate description")
	fs.StringVar(&f.keywords, "keywords", "", "comma-separated keywords")
	fs.StringVar(&f.guid, "guid", "", "root entity id (default: minted)")
	fs.StringVar(&f.packageType, "package-type", "", `"dataset" or empty for a general crate`)
}

func (f *crateFlags) attrs() types.CrateAttrs {
	return types.CrateAttrs{
		Name:         f.name,
		Organization: f.organization,
		Project:      f.project,
		Description:  f.description,
		Keywords:     types.SplitList(f.keywords),
		GUID:         f.guid,
		PackageType:  f.packageType,
	}
}

func newInitCmd(e *env) *cobra.Command {
	var f crateFlags
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create the manifest of an existing directory",
		Long: `Init writes ro-crate-metadata.json with a single root entity into the crate
directory, which must already exist. It fails if the crate is already initialized.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := e.cratePath()
			if err != nil {
				return err
			}
			return e.initCrate(cmd, p, f.attrs(), false)
		},
	}
	f.bind(cmd.Flags())
	return cmd
}

func newCreateCmd(e *env) *cobra.Command {
	var f crateFlags
	cmd := &cobra.Command{
		Use:   "create <path>",
		Short: "Create a crate directory and its manifest",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := filepath.Abs(args[0])
			if err != nil {
				return fmt.Errorf("resolve crate path: %w", err)
			}
			return e.initCrate(cmd, p, f.attrs(), true)
		},
	}
	f.bind(cmd.Flags())
	return cmd
}

func (e *env) initCrate(cmd *cobra.Command, cratePath string, attrs types.CrateAttrs, mkdir bool) error {
	store, err := e.store()
	if err != nil {
		return err
	}

	var g *types.Graph
	if mkdir {
		g, err = store.Create(cratePath, attrs)
	} else {
		g, err = store.Init(cratePath, attrs)
	}
	if err != nil {
		return err
	}

	root := g.Root()
	e.remember(cratePath)

	if e.flags.jsonMode {
		return printJSON(cmd.OutOrStdout(), map[string]string{"crate": cratePath, "id": root.ID})
	}
	fmt.Fprintln(cmd.OutOrStdout(), "Crate initialized successfully")
	fmt.Fprintln(cmd.OutOrStdout(), "  path:", cratePath)
	fmt.Fprintln(cmd.OutOrStdout(), "  root:", root.ID)
	return nil
}
