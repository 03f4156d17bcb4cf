package types

import (
	"bytes"
	"encoding/json"
	"fmt"
	"maps"
	"slices"
)

// Reserved keys lifted out of the property map.
const (
	keyID   = "@id"
	keyType = "@type"
	keyName = "name"
)

// Common property keys written by the engine.
const (
	PropDescription             = "description"
	PropKeywords                = "keywords"
	PropAuthor                  = "author"
	PropVersion                 = "version"
	PropDatePublished           = "datePublished"
	PropDateModified            = "dateModified"
	PropDateCreated             = "dateCreated"
	PropFormat                  = "format"
	PropContentURL              = "contentUrl"
	PropURL                     = "url"
	PropIdentifier              = "identifier"
	PropRunBy                   = "runBy"
	PropCommand                 = "command"
	PropAssociatedPublication   = "associatedPublication"
	PropAdditionalDocumentation = "additionalDocumentation"
	PropSourceOrganization      = "sourceOrganization"
	PropIsPartOf                = "isPartOf"
	PropProperties              = "properties"
	PropRequired                = "required"
)

// Entity is one node of the @graph. ID, Types and Name are lifted out of the
// JSON object; every other property, including edges, stays in Props as
// decoded JSON (string, json.Number, bool, []any, map[string]any).
type Entity struct {
	ID    string
	Types []string
	Name  string
	Props map[string]any

	// typeList records that @type was a JSON array so a single-element list
	// is written back as a list.
	typeList bool
}

// NewEntity returns an entity with an empty property map.
func NewEntity(id, name string, types ...string) *Entity {
	return &Entity{
		ID:       id,
		Types:    types,
		Name:     name,
		Props:    map[string]any{},
		typeList: len(types) > 1,
	}
}

// Kind derives the entity kind from its @type.
func (e *Entity) Kind() Kind {
	return KindOf(e.Types)
}

// Get returns the raw value of a property.
func (e *Entity) Get(key string) (any, bool) {
	v, ok := e.Props[key]
	return v, ok
}

// Set stores a property. A nil value or an empty string removes it.
func (e *Entity) Set(key string, v any) {
	if key == keyName {
		s, _ := v.(string)
		e.Name = s
		return
	}
	if e.Props == nil {
		e.Props = map[string]any{}
	}
	if s, ok := v.(string); v == nil || (ok && s == "") {
		delete(e.Props, key)
		return
	}
	e.Props[key] = v
}

// String returns a string property, or "" when absent or not a string.
func (e *Entity) String(key string) string {
	s, _ := e.Props[key].(string)
	return s
}

// Strings returns a list-of-strings property. A single string is returned
// as a one-element list.
func (e *Entity) Strings(key string) []string {
	switch t := e.Props[key].(type) {
	case string:
		return []string{t}
	case []string:
		return slices.Clone(t)
	case []any:
		out := make([]string, 0, len(t))
		for _, item := range t {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}

// ContentURL returns the contentUrl property.
func (e *Entity) ContentURL() string {
	return e.String(PropContentURL)
}

// Targets returns the ids the entity points at through rel.
func (e *Entity) Targets(rel Relation) []string {
	return RefIDs(e.Props[string(rel)])
}

// SetTargets replaces the edge stored under rel. An empty id list removes it.
func (e *Entity) SetTargets(rel Relation, ids []string) {
	if len(ids) == 0 {
		e.Set(string(rel), nil)
		return
	}
	e.Set(string(rel), RefValue(ids, rel.Single()))
}

// Clone returns a deep copy of the entity.
func (e *Entity) Clone() *Entity {
	c := &Entity{
		ID:       e.ID,
		Types:    slices.Clone(e.Types),
		Name:     e.Name,
		Props:    make(map[string]any, len(e.Props)),
		typeList: e.typeList,
	}
	for k, v := range e.Props {
		c.Props[k] = cloneValue(v)
	}
	return c
}

func cloneValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		m := make(map[string]any, len(t))
		for k, item := range t {
			m[k] = cloneValue(item)
		}
		return m
	case []any:
		l := make([]any, len(t))
		for i, item := range t {
			l[i] = cloneValue(item)
		}
		return l
	case []string:
		return slices.Clone(t)
	case map[string]string:
		return maps.Clone(t)
	}
	return v
}

// MarshalJSON writes the entity as a flat JSON-LD node object.
func (e Entity) MarshalJSON() ([]byte, error) {
	contents := make(map[string]any, len(e.Props)+3)
	for k, v := range e.Props {
		contents[k] = v
	}

	contents[keyID] = e.ID
	if len(e.Types) == 1 && !e.typeList {
		contents[keyType] = e.Types[0]
	} else if len(e.Types) > 0 {
		contents[keyType] = e.Types
	}
	if e.Name != "" {
		contents[keyName] = e.Name
	}

	return json.Marshal(contents)
}

// UnmarshalJSON reads a JSON-LD node object. Numbers are kept as
// json.Number so they are written back unchanged.
func (e *Entity) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var contents map[string]any
	if err := dec.Decode(&contents); err != nil {
		return fmt.Errorf("failed to unmarshal entity: %w", err)
	}
	if contents == nil {
		return fmt.Errorf("failed to unmarshal entity: not an object")
	}

	e.ID, _ = contents[keyID].(string)
	delete(contents, keyID)

	e.Types = nil
	e.typeList = false
	switch t := contents[keyType].(type) {
	case nil:
	case string:
		e.Types = []string{t}
	case []any:
		e.typeList = true
		for _, item := range t {
			s, ok := item.(string)
			if !ok {
				return fmt.Errorf("entity %q: @type entries must be strings", e.ID)
			}
			e.Types = append(e.Types, s)
		}
	default:
		return fmt.Errorf("entity %q: unsupported @type %v", e.ID, t)
	}
	delete(contents, keyType)

	// A non-string name is kept as an ordinary property.
	e.Name = ""
	if name, ok := contents[keyName].(string); ok {
		e.Name = name
		delete(contents, keyName)
	}

	e.Props = contents
	return nil
}
