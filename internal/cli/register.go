package cli

import (
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/mesh-intelligence/crates/internal/linker"
	"github.com/mesh-intelligence/crates/internal/registry"
	"github.com/mesh-intelligence/crates/internal/schema"
	"github.com/mesh-intelligence/crates/pkg/types"
)

// datasetFlags holds every dataset field plus the schema binding choice.
type datasetFlags struct {
	name                    string
	author                  string
	version                 string
	datePublished           string
	description             string
	keywords                string
	dataFormat              string
	source                  string
	guid                    string
	url                     string
	usedBy                  string
	derivedFrom             string
	associatedPublication   string
	additionalDocumentation string

	// At most one of these selects the schema edge.
	schema       string
	schemaFile   string
	deriveSchema bool
}

func (f *datasetFlags) bind(fs *pflag.FlagSet, withSource bool) {
	fs.StringVar(&f.name, "name", "", "dataset name")
	fs.StringVar(&f.author, "author", "", "dataset author")
	fs.StringVar(&f.version, "version", "", "dataset version")
	fs.StringVar(&f.datePublished, "date-published", "", "publication date (YYYY-MM-DD)")
	fs.StringVar(&f.description, "description", "", "dataset description")
	fs.StringVar(&f.keywords, "keywords", "", "comma-separated keywords")
	fs.StringVar(&f.dataFormat, "data-format", "", "data format, e.g. CSV")
	if withSource {
		fs.StringVar(&f.source, "source", "", "crate-relative path of the dataset file")
	}
	fs.StringVar(&f.guid, "guid", "", "entity id (default: minted)")
	fs.StringVar(&f.url, "url", "", "landing page URL")
	fs.StringVar(&f.usedBy, "used-by", "", "comma-separated ids of computations that use the dataset")
	fs.StringVar(&f.derivedFrom, "derived-from", "", "comma-separated ids of source datasets")
	fs.StringVar(&f.associatedPublication, "associated-publication", "", "associated publication")
	fs.StringVar(&f.additionalDocumentation, "additional-documentation", "", "additional documentation")

	fs.StringVar(&f.schema, "schema", "", "existing schema, by id or by its number in 'schema list'")
	fs.StringVar(&f.schemaFile, "schema-file", "", "upload a JSON or YAML schema document and bind it")
	fs.BoolVar(&f.deriveSchema, "derive-schema", false, "derive a schema from the dataset file and bind it")
}

func (f *datasetFlags) attrs() types.DatasetAttrs {
	return types.DatasetAttrs{
		Name:                    f.name,
		Author:                  f.author,
		Version:                 f.version,
		DatePublished:           f.datePublished,
		Description:             f.description,
		Keywords:                types.SplitList(f.keywords),
		DataFormat:              f.dataFormat,
		SourceFilepath:          f.source,
		GUID:                    f.guid,
		URL:                     f.url,
		UsedBy:                  linker.ParseRefList(f.usedBy),
		DerivedFrom:             linker.ParseRefList(f.derivedFrom),
		AssociatedPublication:   f.associatedPublication,
		AdditionalDocumentation: f.additionalDocumentation,
	}
}

// bindSchema settles the schema edge of attrs before the dataset is
// registered. An uploaded or derived schema is not saved here: it rides in
// attrs.NewSchema and lands in the same commit as the dataset. dataFile is
// the file a derived schema is read from.
func (f *datasetFlags) bindSchema(reg *registry.Registry, e *env, dataFile string, attrs *types.DatasetAttrs) error {
	set := 0
	for _, chosen := range []bool{f.schema != "", f.schemaFile != "", f.deriveSchema} {
		if chosen {
			set++
		}
	}
	if set > 1 {
		return usageErrorf("--schema, --schema-file and --derive-schema are mutually exclusive")
	}

	switch {
	case f.schemaFile != "":
		s, err := schema.ReadDocument(f.schemaFile)
		if err != nil {
			return err
		}
		attrs.NewSchema = &s
	case f.deriveSchema:
		if dataFile == "" {
			return &types.MissingFieldError{Kind: types.KindDataset, Field: "sourceFilepath"}
		}
		if strings.TrimSpace(f.name) == "" {
			return &types.MissingFieldError{Kind: types.KindDataset, Field: "name"}
		}
		s, err := schema.DeriveAttrs(f.name, dataFile)
		if err != nil {
			return err
		}
		attrs.NewSchema = &s
	case f.schema != "":
		id, err := schema.NewBinder(reg, schema.WithLogger(e.logger)).SelectExisting(schema.ChooseByRef(f.schema))
		if err != nil {
			return err
		}
		attrs.Schema = id
	}
	return nil
}

type softwareFlags struct {
	name                    string
	author                  string
	version                 string
	description             string
	keywords                string
	fileFormat              string
	source                  string
	guid                    string
	url                     string
	dateModified            string
	usedByComputation       string
	associatedPublication   string
	additionalDocumentation string
}

func (f *softwareFlags) bind(fs *pflag.FlagSet, withSource bool) {
	fs.StringVar(&f.name, "name", "", "software name")
	fs.StringVar(&f.author, "author", "", "software author")
	fs.StringVar(&f.version, "version", "", "software version")
	fs.StringVar(&f.description, "description", "", "software description")
	fs.StringVar(&f.keywords, "keywords", "", "comma-separated keywords")
	fs.StringVar(&f.fileFormat, "file-format", "", "file format, e.g. .py")
	if withSource {
		fs.StringVar(&f.source, "source", "", "crate-relative path of the software file")
	}
	fs.StringVar(&f.guid, "guid", "", "entity id (default: minted)")
	fs.StringVar(&f.url, "url", "", "repository or landing page URL")
	fs.StringVar(&f.dateModified, "date-modified", "", "last modification date")
	fs.StringVar(&f.usedByComputation, "used-by-computation", "", "comma-separated ids of computations that use the software")
	fs.StringVar(&f.associatedPublication, "associated-publication", "", "associated publication")
	fs.StringVar(&f.additionalDocumentation, "additional-documentation", "", "additional documentation")
}

func (f *softwareFlags) attrs() types.SoftwareAttrs {
	return types.SoftwareAttrs{
		Name:                    f.name,
		Author:                  f.author,
		Version:                 f.version,
		Description:             f.description,
		Keywords:                types.SplitList(f.keywords),
		FileFormat:              f.fileFormat,
		GUID:                    f.guid,
		URL:                     f.url,
		DateModified:            f.dateModified,
		SourceFilepath:          f.source,
		UsedByComputation:       linker.ParseRefList(f.usedByComputation),
		AssociatedPublication:   f.associatedPublication,
		AdditionalDocumentation: f.additionalDocumentation,
	}
}

func newRegisterCmd(e *env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "register",
		Short: "Register an entity whose file is already in the crate",
	}
	cmd.AddCommand(newRegisterDatasetCmd(e))
	cmd.AddCommand(newRegisterSoftwareCmd(e))
	cmd.AddCommand(newRegisterComputationCmd(e))
	cmd.AddCommand(newRegisterDOICmd(e))
	return cmd
}

func newRegisterDatasetCmd(e *env) *cobra.Command {
	var f datasetFlags
	cmd := &cobra.Command{
		Use:   "dataset",
		Short: "Register a dataset",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			reg, err := e.openRegistry()
			if err != nil {
				return err
			}

			attrs := f.attrs()
			dataFile := ""
			if f.source != "" {
				dataFile = cratePathOf(reg, f.source)
			}
			if err := f.bindSchema(reg, e, dataFile, &attrs); err != nil {
				return err
			}

			id, err := reg.RegisterDataset(attrs)
			if err != nil {
				return err
			}
			return e.printID(cmd.OutOrStdout(), id)
		},
	}
	f.bind(cmd.Flags(), true)
	return cmd
}

func newRegisterSoftwareCmd(e *env) *cobra.Command {
	var f softwareFlags
	cmd := &cobra.Command{
		Use:   "software",
		Short: "Register a software entity",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			reg, err := e.openRegistry()
			if err != nil {
				return err
			}
			id, err := reg.RegisterSoftware(f.attrs())
			if err != nil {
				return err
			}
			return e.printID(cmd.OutOrStdout(), id)
		},
	}
	f.bind(cmd.Flags(), true)
	return cmd
}

func newRegisterComputationCmd(e *env) *cobra.Command {
	var (
		name, runBy, dateCreated, description, keywords, guid, command string
		usedSoftware, usedDataset, generated                           string
	)
	cmd := &cobra.Command{
		Use:   "computation",
		Short: "Register a computation linking its inputs and outputs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			reg, err := e.openRegistry()
			if err != nil {
				return err
			}
			id, err := reg.RegisterComputation(types.ComputationAttrs{
				Name:         name,
				RunBy:        runBy,
				DateCreated:  dateCreated,
				Description:  description,
				Keywords:     types.SplitList(keywords),
				GUID:         guid,
				Command:      command,
				UsedSoftware: linker.ParseRefList(usedSoftware),
				UsedDataset:  linker.ParseRefList(usedDataset),
				Generated:    linker.ParseRefList(generated),
			})
			if err != nil {
				return err
			}
			return e.printID(cmd.OutOrStdout(), id)
		},
	}
	fs := cmd.Flags()
	fs.StringVar(&name, "name", "", "computation name")
	fs.StringVar(&runBy, "run-by", "", "who ran the computation")
	fs.StringVar(&dateCreated, "date-created", "", "date the computation ran")
	fs.StringVar(&description, "description", "", "computation description")
	fs.StringVar(&keywords, "keywords", "", "comma-separated keywords")
	fs.StringVar(&guid, "guid", "", "entity id (default: minted)")
	fs.StringVar(&command, "command", "", "command line that was run")
	fs.StringVar(&usedSoftware, "used-software", "", "comma-separated ids of software used")
	fs.StringVar(&usedDataset, "used-dataset", "", "comma-separated ids of datasets read")
	fs.StringVar(&generated, "generated", "", "comma-separated ids of datasets produced")
	return cmd
}

func newRegisterDOICmd(e *env) *cobra.Command {
	var f datasetFlags
	cmd := &cobra.Command{
		Use:   "doi <doi>",
		Short: "Register a dataset described by DOI metadata",
		Long: `Fetch metadata for the DOI from CrossRef, falling back to DataCite, and register
it as a dataset. Flags override the fetched fields; no local file is required.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			reg, err := e.openRegistry()
			if err != nil {
				return err
			}

			attrs := f.attrs()
			if err := f.bindSchema(reg, e, "", &attrs); err != nil {
				return err
			}

			id, err := reg.RegisterDatasetFromDOI(cmd.Context(), e.doiClient(), args[0], attrs)
			if err != nil {
				return err
			}
			return e.printID(cmd.OutOrStdout(), id)
		},
	}
	f.bind(cmd.Flags(), false)
	return cmd
}

// cratePathOf maps a crate-relative source path to a file system path.
func cratePathOf(reg *registry.Registry, source string) string {
	if filepath.IsAbs(source) {
		return source
	}
	return filepath.Join(reg.Path(), filepath.FromSlash(types.NormalizePath(source)))
}
