// Package schema produces the Schema entity a dataset points at. A schema
// can be picked from those already in the crate, defined by hand, derived
// from a data file, or read from an existing schema document.
package schema

import (
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/rs/zerolog"

	"github.com/mesh-intelligence/crates/pkg/types"
)

// Registrar registers schema entities. *registry.Registry implements it.
type Registrar interface {
	RegisterSchema(attrs types.SchemaAttrs) (string, error)
	Graph() *types.Graph
	Path() string
}

// Property is a named property definition. Properties are kept in column
// order; Index is filled from that order when unset.
type Property struct {
	Name string
	types.PropertyDefinition
	Required bool
}

// Choice describes one existing schema offered to a Chooser.
type Choice struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

// Chooser picks one of the offered schemas and returns its id. An empty id
// means no schema is bound.
type Chooser func(choices []Choice) (string, error)

// Binder creates and selects schemas in one crate.
type Binder struct {
	reg    Registrar
	logger zerolog.Logger
}

// Option configures a Binder.
type Option func(*Binder)

// WithLogger sets the logger.
func WithLogger(l zerolog.Logger) Option {
	return func(b *Binder) {
		b.logger = l
	}
}

// NewBinder returns a Binder registering through reg.
func NewBinder(reg Registrar, options ...Option) *Binder {
	b := &Binder{reg: reg, logger: zerolog.Nop()}
	for _, option := range options {
		option(b)
	}
	return b
}

// List returns the schemas in the crate in graph order.
func (b *Binder) List() []Choice {
	var choices []Choice
	for _, e := range b.reg.Graph().ByKind(types.KindSchema) {
		choices = append(choices, Choice{
			ID:          e.ID,
			Name:        e.Name,
			Description: e.String(types.PropDescription),
		})
	}
	return choices
}

// SelectExisting offers the crate's schemas to choose. It fails with a
// NoSchemaFoundError when there are none, and with ErrInvalidValue when
// choose returns an id that was not offered.
func (b *Binder) SelectExisting(choose Chooser) (string, error) {
	choices := b.List()
	if len(choices) == 0 {
		return "", &types.NoSchemaFoundError{Path: b.reg.Path()}
	}

	id, err := choose(choices)
	if err != nil {
		return "", err
	}
	id = strings.TrimSpace(id)
	if id == "" {
		return "", nil
	}
	if !slices.ContainsFunc(choices, func(c Choice) bool { return c.ID == id }) {
		return "", fmt.Errorf("%w: %q is not a schema in this crate", types.ErrInvalidValue, id)
	}
	return id, nil
}

// ChooseByRef returns a Chooser that accepts a schema id or a 1-based
// position in the offered list.
func ChooseByRef(ref string) Chooser {
	return func(choices []Choice) (string, error) {
		ref = strings.TrimSpace(ref)
		if n, err := strconv.Atoi(ref); err == nil {
			if n < 1 || n > len(choices) {
				return "", fmt.Errorf("%w: schema %d of %d", types.ErrInvalidValue, n, len(choices))
			}
			return choices[n-1].ID, nil
		}
		return ref, nil
	}
}

// CreateNew registers a schema named "<datasetName> Schema" with props.
func (b *Binder) CreateNew(datasetName string, props []Property) (string, error) {
	attrs, err := Attrs(datasetName, props)
	if err != nil {
		return "", err
	}
	id, err := b.reg.RegisterSchema(attrs)
	if err != nil {
		return "", err
	}
	b.logger.Info().Str("id", id).Int("properties", len(props)).Msg("schema created")
	return id, nil
}

// CreateFromContainer derives the properties of the data file at path and
// registers them as a schema for datasetName.
func (b *Binder) CreateFromContainer(datasetName, path string) (string, error) {
	attrs, err := DeriveAttrs(datasetName, path)
	if err != nil {
		return "", err
	}
	id, err := b.reg.RegisterSchema(attrs)
	if err != nil {
		return "", err
	}
	b.logger.Info().Str("id", id).Int("properties", len(attrs.Properties)).Msg("schema derived")
	return id, nil
}

// DeriveAttrs builds, without registering it, the schema for datasetName
// derived from the data file at path. Registries commit it together with
// the dataset through DatasetAttrs.NewSchema.
func DeriveAttrs(datasetName, path string) (types.SchemaAttrs, error) {
	props, err := Derive(path)
	if err != nil {
		return types.SchemaAttrs{}, err
	}
	return Attrs(datasetName, props)
}

// UploadExisting reads a JSON or YAML schema document and registers it.
func (b *Binder) UploadExisting(path string) (string, error) {
	attrs, err := ReadDocument(path)
	if err != nil {
		return "", err
	}
	id, err := b.reg.RegisterSchema(attrs)
	if err != nil {
		return "", err
	}
	b.logger.Info().Str("id", id).Str("document", path).Msg("schema uploaded")
	return id, nil
}

// Attrs builds the schema registration for datasetName from props.
func Attrs(datasetName string, props []Property) (types.SchemaAttrs, error) {
	if strings.TrimSpace(datasetName) == "" {
		return types.SchemaAttrs{}, &types.MissingFieldError{Kind: types.KindSchema, Field: "datasetName"}
	}
	attrs := types.SchemaAttrs{
		Name:        strings.TrimSpace(datasetName) + " Schema",
		Description: "Schema for " + strings.TrimSpace(datasetName),
		Properties:  make(map[string]types.PropertyDefinition, len(props)),
	}
	for i, p := range props {
		name := strings.TrimSpace(p.Name)
		if name == "" {
			return types.SchemaAttrs{}, fmt.Errorf("%w: property %d has no name", types.ErrInvalidValue, i+1)
		}
		if _, dup := attrs.Properties[name]; dup {
			return types.SchemaAttrs{}, fmt.Errorf("%w: property %q defined twice", types.ErrInvalidValue, name)
		}
		def := p.PropertyDefinition
		if def.Index == nil {
			idx := i
			def.Index = &idx
		}
		attrs.Properties[name] = def
		if p.Required {
			attrs.Required = append(attrs.Required, name)
		}
	}
	return attrs, nil
}
