package types

import (
	"encoding/json"
	"errors"
	"fmt"
	"maps"
	"slices"
)

// Top-level manifest keys.
const (
	keyContext     = "@context"
	keyGraph       = "@graph"
	keyPackageType = "packageType"
)

// Graph decoding errors. The manifest store wraps them in CorruptManifestError.
var (
	ErrGraphMissing  = errors.New("manifest has no @graph")
	ErrGraphNotArray = errors.New("manifest @graph is not an array")
)

// Graph is the decoded manifest document: the @context, the ordered @graph
// entities, the optional packageType, and any other top-level keys, which
// are preserved verbatim.
type Graph struct {
	Context     json.RawMessage
	Entities    []*Entity
	PackageType string

	extra map[string]json.RawMessage
}

// NewGraph returns an empty graph with the default @context.
func NewGraph() *Graph {
	return &Graph{Context: DefaultContext()}
}

// Len returns the number of entities.
func (g *Graph) Len() int {
	return len(g.Entities)
}

// Find returns the entity with the given id, or nil.
func (g *Graph) Find(id string) *Entity {
	if i := g.Index(id); i >= 0 {
		return g.Entities[i]
	}
	return nil
}

// Index returns the position of the entity with the given id, or -1.
func (g *Graph) Index(id string) int {
	return slices.IndexFunc(g.Entities, func(e *Entity) bool { return e.ID == id })
}

// Has reports whether an entity with the given id exists.
func (g *Graph) Has(id string) bool {
	return g.Index(id) >= 0
}

// IndexByContentURL returns the position of the first entity whose
// normalized contentUrl equals contentURL, or -1.
func (g *Graph) IndexByContentURL(contentURL string) int {
	want := NormalizePath(contentURL)
	if want == "" {
		return -1
	}
	return slices.IndexFunc(g.Entities, func(e *Entity) bool {
		return e.ContentURL() != "" && NormalizePath(e.ContentURL()) == want
	})
}

// IDs returns every entity id in graph order.
func (g *Graph) IDs() []string {
	ids := make([]string, 0, len(g.Entities))
	for _, e := range g.Entities {
		ids = append(ids, e.ID)
	}
	return ids
}

// ByKind returns the entities of kind k in graph order.
func (g *Graph) ByKind(k Kind) []*Entity {
	var out []*Entity
	for _, e := range g.Entities {
		if e.Kind() == k {
			out = append(out, e)
		}
	}
	return out
}

// Root returns the root entity: the first entity typed as an RO-Crate, or
// the first entity when none is.
func (g *Graph) Root() *Entity {
	if roots := g.ByKind(KindRoot); len(roots) > 0 {
		return roots[0]
	}
	if len(g.Entities) > 0 {
		return g.Entities[0]
	}
	return nil
}

// RegisteredFiles returns the normalized contentUrl of every entity that
// carries one, in graph order.
func (g *Graph) RegisteredFiles() []string {
	var files []string
	for _, e := range g.Entities {
		if u := NormalizePath(e.ContentURL()); u != "" {
			files = append(files, u)
		}
	}
	return files
}

// Append adds an entity at the end of the graph.
func (g *Graph) Append(e *Entity) {
	g.Entities = append(g.Entities, e)
}

// Clone returns a deep copy of the graph.
func (g *Graph) Clone() *Graph {
	c := &Graph{
		Context:     slices.Clone(g.Context),
		Entities:    make([]*Entity, len(g.Entities)),
		PackageType: g.PackageType,
		extra:       make(map[string]json.RawMessage, len(g.extra)),
	}
	for i, e := range g.Entities {
		c.Entities[i] = e.Clone()
	}
	for k, v := range g.extra {
		c.extra[k] = slices.Clone(v)
	}
	return c
}

// MarshalJSON writes the manifest document.
func (g Graph) MarshalJSON() ([]byte, error) {
	contents := make(map[string]any, len(g.extra)+3)
	for k, v := range g.extra {
		contents[k] = v
	}

	ctx := g.Context
	if len(ctx) == 0 {
		ctx = DefaultContext()
	}
	contents[keyContext] = ctx

	entities := g.Entities
	if entities == nil {
		entities = []*Entity{}
	}
	contents[keyGraph] = entities

	if g.PackageType != "" {
		contents[keyPackageType] = g.PackageType
	}

	return json.Marshal(contents)
}

// UnmarshalJSON reads a manifest document. It returns ErrGraphMissing or
// ErrGraphNotArray when the @graph key is absent or malformed.
func (g *Graph) UnmarshalJSON(data []byte) error {
	var contents map[string]json.RawMessage
	if err := json.Unmarshal(data, &contents); err != nil {
		return err
	}

	rawGraph, ok := contents[keyGraph]
	if !ok {
		return ErrGraphMissing
	}
	var items []json.RawMessage
	if err := json.Unmarshal(rawGraph, &items); err != nil || items == nil {
		return ErrGraphNotArray
	}

	entities := make([]*Entity, 0, len(items))
	for i, item := range items {
		e := &Entity{}
		if err := json.Unmarshal(item, e); err != nil {
			return fmt.Errorf("@graph[%d]: %w", i, err)
		}
		entities = append(entities, e)
	}

	g.PackageType = ""
	if raw, ok := contents[keyPackageType]; ok && string(raw) != "null" {
		if err := json.Unmarshal(raw, &g.PackageType); err != nil {
			return fmt.Errorf("packageType: %w", err)
		}
	}

	g.Context = contents[keyContext]
	g.Entities = entities

	delete(contents, keyContext)
	delete(contents, keyGraph)
	delete(contents, keyPackageType)
	g.extra = maps.Clone(contents)
	return nil
}
