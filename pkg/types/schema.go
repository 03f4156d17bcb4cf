package types

import (
	"fmt"
	"slices"
)

// Property value types accepted in a schema property definition.
const (
	ValueTypeString  = "string"
	ValueTypeInteger = "integer"
	ValueTypeNumber  = "number"
	ValueTypeBoolean = "boolean"
	ValueTypeArray   = "array"
	ValueTypeObject  = "object"
	ValueTypeNull    = "null"
)

var validValueTypes = []string{
	ValueTypeString,
	ValueTypeInteger,
	ValueTypeNumber,
	ValueTypeBoolean,
	ValueTypeArray,
	ValueTypeObject,
	ValueTypeNull,
}

// PropertyDefinition describes one property of a Schema entity. Pattern,
// Minimum, Maximum and Enum are the optional value constraints.
type PropertyDefinition struct {
	Type        string   `json:"type" yaml:"type"`
	Description string   `json:"description" yaml:"description"`
	Index       *int     `json:"index,omitempty" yaml:"index,omitempty"`
	Pattern     string   `json:"pattern,omitempty" yaml:"pattern,omitempty"`
	Minimum     *float64 `json:"minimum,omitempty" yaml:"minimum,omitempty"`
	Maximum     *float64 `json:"maximum,omitempty" yaml:"maximum,omitempty"`
	Enum        []string `json:"enum,omitempty" yaml:"enum,omitempty"`
	ValueURL    string   `json:"value-url,omitempty" yaml:"value-url,omitempty"`
}

// Validate checks the type and that Minimum does not exceed Maximum.
func (p PropertyDefinition) Validate() error {
	if !slices.Contains(validValueTypes, p.Type) {
		return fmt.Errorf("%w: type %q (want one of %v)", ErrInvalidValue, p.Type, validValueTypes)
	}
	if p.Minimum != nil && p.Maximum != nil && *p.Minimum > *p.Maximum {
		return fmt.Errorf("%w: minimum %v > maximum %v", ErrInvalidValue, *p.Minimum, *p.Maximum)
	}
	return nil
}
