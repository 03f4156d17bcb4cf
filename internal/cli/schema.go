package cli

import (
	"fmt"
	"path/filepath"
	"slices"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/crates/internal/schema"
	"github.com/mesh-intelligence/crates/pkg/types"
)

func newSchemaCmd(e *env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "schema",
		Short: "List, create, derive and upload dataset schemas",
	}
	cmd.AddCommand(newSchemaListCmd(e))
	cmd.AddCommand(newSchemaCreateCmd(e))
	cmd.AddCommand(newSchemaDeriveCmd(e))
	cmd.AddCommand(newSchemaUploadCmd(e))
	return cmd
}

func newSchemaListCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List the schemas in the crate",
		Long:  "List the schemas in the crate. The numbers are accepted by --schema.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			reg, err := e.openRegistry()
			if err != nil {
				return err
			}
			choices := schema.NewBinder(reg).List()
			if e.flags.jsonMode {
				if choices == nil {
					choices = []schema.Choice{}
				}
				return printJSON(cmd.OutOrStdout(), choices)
			}
			if len(choices) == 0 {
				return &types.NoSchemaFoundError{Path: reg.Path()}
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			for i, c := range choices {
				fmt.Fprintf(tw, "%d\t%s\t%s\n", i+1, c.ID, c.Name)
			}
			return tw.Flush()
		},
	}
}

func newSchemaCreateCmd(e *env) *cobra.Command {
	var (
		datasetName string
		properties  []string
		required    string
	)
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Register a schema from property definitions",
		Example: `  crate schema create --dataset-name "Heart Rate" \
    --property "subject:string:Subject id" --property "bpm:integer:Beats per minute" \
    --required subject`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			props, err := parseProperties(properties, types.SplitList(required))
			if err != nil {
				return err
			}
			reg, err := e.openRegistry()
			if err != nil {
				return err
			}
			id, err := schema.NewBinder(reg, schema.WithLogger(e.logger)).CreateNew(datasetName, props)
			if err != nil {
				return err
			}
			return e.printID(cmd.OutOrStdout(), id)
		},
	}
	cmd.Flags().StringVar(&datasetName, "dataset-name", "", "name of the dataset the schema describes")
	cmd.Flags().StringArrayVar(&properties, "property", nil, "property as name:type[:description] (repeatable)")
	cmd.Flags().StringVar(&required, "required", "", "comma-separated names of required properties")
	return cmd
}

func newSchemaDeriveCmd(e *env) *cobra.Command {
	var (
		datasetName string
		dryRun      bool
	)
	cmd := &cobra.Command{
		Use:   "derive <file>",
		Short: "Derive a schema from a CSV, TSV, JSON or JSON Lines file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			file := args[0]
			if datasetName == "" {
				datasetName = strings.TrimSuffix(filepath.Base(file), filepath.Ext(file))
			}

			if dryRun {
				props, err := schema.Derive(file)
				if err != nil {
					return err
				}
				attrs, err := schema.Attrs(datasetName, props)
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), attrs.Properties)
			}

			reg, err := e.openRegistry()
			if err != nil {
				return err
			}
			id, err := schema.NewBinder(reg, schema.WithLogger(e.logger)).CreateFromContainer(datasetName, file)
			if err != nil {
				return err
			}
			return e.printID(cmd.OutOrStdout(), id)
		},
	}
	cmd.Flags().StringVar(&datasetName, "dataset-name", "", "name of the dataset (default: file name without extension)")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "print the derived properties without registering")
	return cmd
}

func newSchemaUploadCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "upload <file>",
		Short: "Register a JSON or YAML schema document",
		Long: `Register the properties mapping of a JSON or YAML schema document. JSON Schema
forms are accepted: a type list such as ["string", "null"] keeps its first
non-null type, and enum values of any scalar type are stored as text.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			reg, err := e.openRegistry()
			if err != nil {
				return err
			}
			id, err := schema.NewBinder(reg, schema.WithLogger(e.logger)).UploadExisting(args[0])
			if err != nil {
				return err
			}
			return e.printID(cmd.OutOrStdout(), id)
		},
	}
}

// parseProperties parses name:type[:description] definitions. The type
// defaults to string.
func parseProperties(specs, required []string) ([]schema.Property, error) {
	props := make([]schema.Property, 0, len(specs))
	for _, spec := range specs {
		parts := strings.SplitN(spec, ":", 3)
		p := schema.Property{Name: strings.TrimSpace(parts[0])}
		p.Type = types.ValueTypeString
		if len(parts) > 1 && strings.TrimSpace(parts[1]) != "" {
			p.Type = strings.ToLower(strings.TrimSpace(parts[1]))
		}
		if len(parts) > 2 {
			p.Description = strings.TrimSpace(parts[2])
		}
		props = append(props, p)
	}

	for _, name := range required {
		i := slices.IndexFunc(props, func(p schema.Property) bool { return p.Name == name })
		if i < 0 {
			return nil, usageErrorf("required property %q is not defined", name)
		}
		props[i].Required = true
	}
	return props, nil
}
