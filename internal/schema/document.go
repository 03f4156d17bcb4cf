package schema

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/mesh-intelligence/crates/pkg/types"
)

// document is the on-disk schema format. Title is read as a fallback for
// name so JSON Schema files upload without edits.
type document struct {
	Name        string                      `json:"name" yaml:"name"`
	Title       string                      `json:"title" yaml:"title"`
	Description string                      `json:"description" yaml:"description"`
	Keywords    []string                    `json:"keywords" yaml:"keywords"`
	Properties  map[string]documentProperty `json:"properties" yaml:"properties"`
	Required    []string                    `json:"required" yaml:"required"`
}

// documentProperty is a property definition as JSON Schema writes it: type
// may be a list of types and enum may hold any scalar.
type documentProperty struct {
	Type        any      `json:"type" yaml:"type"`
	Description string   `json:"description" yaml:"description"`
	Index       *int     `json:"index" yaml:"index"`
	Pattern     string   `json:"pattern" yaml:"pattern"`
	Minimum     *float64 `json:"minimum" yaml:"minimum"`
	Maximum     *float64 `json:"maximum" yaml:"maximum"`
	Enum        []any    `json:"enum" yaml:"enum"`
	ValueURL    string   `json:"value-url" yaml:"value-url"`
}

// definition normalizes p. A missing type is a string; a type list such as
// ["string", "null"] takes its first non-null member. Enum values are kept
// in their text form.
func (p documentProperty) definition() (types.PropertyDefinition, error) {
	def := types.PropertyDefinition{
		Description: p.Description,
		Index:       p.Index,
		Pattern:     p.Pattern,
		Minimum:     p.Minimum,
		Maximum:     p.Maximum,
		ValueURL:    p.ValueURL,
	}

	switch t := p.Type.(type) {
	case nil:
		def.Type = types.ValueTypeString
	case string:
		def.Type = t
	case []any:
		def.Type = types.ValueTypeString
		for _, item := range t {
			s, ok := item.(string)
			if !ok {
				return def, fmt.Errorf("type list entry %v is not a string", item)
			}
			def.Type = s
			if s != types.ValueTypeNull {
				break
			}
		}
	default:
		return def, fmt.Errorf("type %v is neither a string nor a list", t)
	}

	for _, v := range p.Enum {
		switch v := v.(type) {
		case nil:
			def.Enum = append(def.Enum, types.ValueTypeNull)
		case string:
			def.Enum = append(def.Enum, v)
		case bool, int, int64, float64, uint64:
			def.Enum = append(def.Enum, fmt.Sprint(v))
		default:
			return def, fmt.Errorf("enum value %v is not a scalar", v)
		}
	}
	return def, nil
}

// ReadDocument parses a schema document. Files ending in .json are read as
// JSON, .yaml and .yml as YAML; anything else is tried as JSON then YAML.
// A document without a properties mapping is an InvalidSchemaDocumentError.
// Properties without a type are taken as strings; see documentProperty
// for the JSON Schema forms accepted.
func ReadDocument(path string) (types.SchemaAttrs, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return types.SchemaAttrs{}, &types.FileNotFoundError{Path: path}
		}
		return types.SchemaAttrs{}, fmt.Errorf("reading schema document: %w", err)
	}

	var doc document
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		err = json.Unmarshal(data, &doc)
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &doc)
	default:
		if err = json.Unmarshal(data, &doc); err != nil {
			doc = document{}
			err = yaml.Unmarshal(data, &doc)
		}
	}
	if err != nil {
		return types.SchemaAttrs{}, &types.InvalidSchemaDocumentError{Path: path, Reason: err.Error()}
	}
	if len(doc.Properties) == 0 {
		return types.SchemaAttrs{}, &types.InvalidSchemaDocumentError{Path: path, Reason: "no properties mapping"}
	}

	stem := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	attrs := types.SchemaAttrs{
		Name:        firstNonEmpty(doc.Name, doc.Title, stem+" Schema"),
		Description: firstNonEmpty(doc.Description, "Schema uploaded from "+filepath.Base(path)),
		Keywords:    doc.Keywords,
		Properties:  make(map[string]types.PropertyDefinition, len(doc.Properties)),
		Required:    doc.Required,
	}
	for name, p := range doc.Properties {
		def, err := p.definition()
		if err != nil {
			return types.SchemaAttrs{}, &types.InvalidSchemaDocumentError{Path: path, Reason: fmt.Sprintf("property %q: %v", name, err)}
		}
		attrs.Properties[name] = def
	}

	if err := attrs.Validate(); err != nil {
		return types.SchemaAttrs{}, &types.InvalidSchemaDocumentError{Path: path, Reason: err.Error()}
	}
	return attrs, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
