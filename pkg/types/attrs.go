package types

import (
	"fmt"
	"strings"
)

// CrateAttrs describes the root entity written by init and create.
type CrateAttrs struct {
	Name         string
	Organization string
	Project      string
	Description  string
	Keywords     []string
	GUID         string
	PackageType  string // "" or PackageTypeDataset
}

// Validate checks the required fields and the package type.
func (a CrateAttrs) Validate() error {
	if err := requireFields(KindRoot, []field{
		{"name", a.Name},
		{"organization", a.Organization},
		{"project", a.Project},
		{"description", a.Description},
	}); err != nil {
		return err
	}
	if a.PackageType != "" && a.PackageType != PackageTypeDataset {
		return fmt.Errorf("%w: packageType %q (want %q or empty)", ErrInvalidValue, a.PackageType, PackageTypeDataset)
	}
	return nil
}

// DatasetAttrs holds every field of a dataset registration.
type DatasetAttrs struct {
	Name                    string
	Author                  string
	Version                 string
	DatePublished           string
	Description             string
	Keywords                []string
	DataFormat              string
	SourceFilepath          string
	GUID                    string
	URL                     string
	UsedBy                  []string // usedByComputation edges
	DerivedFrom             []string
	Schema                  string
	AssociatedPublication   string
	AdditionalDocumentation string

	// DOI marks a dataset synthesized from DOI metadata. Such datasets carry
	// no local file, so SourceFilepath is optional.
	DOI string

	// NewSchema is a schema registered in the same commit as the dataset and
	// bound as its schema edge. It excludes Schema.
	NewSchema *SchemaAttrs
}

// Validate checks the required fields and the new schema, if any.
func (a DatasetAttrs) Validate() error {
	fields := []field{
		{"name", a.Name},
		{"author", a.Author},
		{"version", a.Version},
		{"datePublished", a.DatePublished},
		{"description", a.Description},
		{"keywords", strings.Join(a.Keywords, "")},
		{"dataFormat", a.DataFormat},
	}
	if a.DOI == "" {
		fields = append(fields, field{"sourceFilepath", a.SourceFilepath})
	}
	if err := requireFields(KindDataset, fields); err != nil {
		return err
	}
	if a.NewSchema != nil {
		if a.Schema != "" {
			return fmt.Errorf("%w: both an existing schema %q and a new schema given", ErrInvalidValue, a.Schema)
		}
		return a.NewSchema.Validate()
	}
	return nil
}

// Refs returns the relationship references of the dataset.
func (a DatasetAttrs) Refs() Refs {
	refs := Refs{
		RelUsedByComputation: a.UsedBy,
		RelDerivedFrom:       a.DerivedFrom,
	}
	if a.Schema != "" {
		refs[RelSchema] = []string{a.Schema}
	}
	return refs
}

// SoftwareAttrs holds every field of a software registration.
type SoftwareAttrs struct {
	Name                    string
	Author                  string
	Version                 string
	Description             string
	Keywords                []string
	FileFormat              string
	GUID                    string
	URL                     string
	DateModified            string
	SourceFilepath          string
	UsedByComputation       []string
	AssociatedPublication   string
	AdditionalDocumentation string
}

// Validate checks the required fields.
func (a SoftwareAttrs) Validate() error {
	return requireFields(KindSoftware, []field{
		{"name", a.Name},
		{"author", a.Author},
		{"version", a.Version},
		{"description", a.Description},
		{"keywords", strings.Join(a.Keywords, "")},
		{"fileFormat", a.FileFormat},
		{"sourceFilepath", a.SourceFilepath},
	})
}

// Refs returns the relationship references of the software.
func (a SoftwareAttrs) Refs() Refs {
	return Refs{RelUsedByComputation: a.UsedByComputation}
}

// ComputationAttrs holds every field of a computation registration.
type ComputationAttrs struct {
	Name         string
	RunBy        string
	DateCreated  string
	Description  string
	Keywords     []string
	GUID         string
	Command      string
	UsedSoftware []string
	UsedDataset  []string
	Generated    []string
}

// Validate checks the required fields.
func (a ComputationAttrs) Validate() error {
	return requireFields(KindComputation, []field{
		{"name", a.Name},
		{"runBy", a.RunBy},
		{"dateCreated", a.DateCreated},
		{"description", a.Description},
		{"command", a.Command},
	})
}

// Refs returns the relationship references of the computation.
func (a ComputationAttrs) Refs() Refs {
	return Refs{
		RelUsedSoftware: a.UsedSoftware,
		RelUsedDataset:  a.UsedDataset,
		RelGenerated:    a.Generated,
	}
}

// SchemaAttrs holds a schema registration.
type SchemaAttrs struct {
	Name        string
	Description string
	Keywords    []string
	GUID        string
	Properties  map[string]PropertyDefinition
	Required    []string
}

// Validate checks the required fields, each property definition, and that
// every required name is a defined property.
func (a SchemaAttrs) Validate() error {
	if err := requireFields(KindSchema, []field{
		{"name", a.Name},
		{"description", a.Description},
	}); err != nil {
		return err
	}
	if len(a.Properties) == 0 {
		return &MissingFieldError{Kind: KindSchema, Field: PropProperties}
	}
	for name, p := range a.Properties {
		if strings.TrimSpace(name) == "" {
			return fmt.Errorf("%w: empty property name", ErrInvalidValue)
		}
		if err := p.Validate(); err != nil {
			return fmt.Errorf("property %q: %w", name, err)
		}
	}
	for _, name := range a.Required {
		if _, ok := a.Properties[name]; !ok {
			return fmt.Errorf("%w: required property %q is not defined", ErrInvalidValue, name)
		}
	}
	return nil
}

type field struct {
	name  string
	value string
}

func requireFields(kind Kind, fields []field) error {
	for _, f := range fields {
		if strings.TrimSpace(f.value) == "" {
			return &MissingFieldError{Kind: kind, Field: f.name}
		}
	}
	return nil
}

// SplitList splits a comma-separated list, trimming entries and dropping
// empty ones. "genetics, heart rate," yields ["genetics", "heart rate"].
func SplitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
