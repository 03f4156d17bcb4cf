// Package linker resolves raw relationship references against a crate
// graph and records them as edges on a source entity. Edge direction is
// fixed per relation type; a target missing from the graph is a
// DanglingReferenceError, never silently dropped.
package linker

import (
	"fmt"
	"slices"
	"strings"

	"github.com/mesh-intelligence/crates/pkg/types"
)

// Edges are resolved relationship targets keyed by relation.
type Edges map[types.Relation][]string

// Resolve checks every reference in refs against graph for a source entity
// of kind source. Empty references are dropped. It fails with
// ErrInvalidRelation when the relation is not allowed from source or a
// target has the wrong kind, and with a DanglingReferenceError for the
// first target missing from graph.
func Resolve(source types.Kind, refs types.Refs, graph *types.Graph) (Edges, error) {
	normalized := refs.Normalized()
	edges := make(Edges, len(normalized))

	// Iterate in relation order so the reported error is deterministic.
	for _, rel := range types.Relations() {
		ids, ok := normalized[rel]
		if !ok {
			continue
		}
		if !rel.AllowedFrom(source) {
			return nil, fmt.Errorf("%w: %s on %s", types.ErrInvalidRelation, rel, source)
		}
		if rel.Single() && len(ids) > 1 {
			return nil, fmt.Errorf("%w: %s takes one target, got %d", types.ErrInvalidValue, rel, len(ids))
		}
		for _, id := range ids {
			target := graph.Find(id)
			if target == nil {
				return nil, &types.DanglingReferenceError{Relation: rel, MissingID: id}
			}
			// Entities of a kind the engine does not model are accepted as targets.
			if k := target.Kind(); k != types.KindUnknown && !slices.Contains(rel.Targets(), k) {
				return nil, fmt.Errorf("%w: %s cannot point at %s %q", types.ErrInvalidRelation, rel, k, id)
			}
		}
		edges[rel] = ids
	}

	for rel := range normalized {
		if !rel.Known() {
			return nil, fmt.Errorf("%w: unknown relation %q", types.ErrInvalidRelation, rel)
		}
	}
	return edges, nil
}

// Apply writes the edges onto e. Single-valued relations (schema) replace
// any edge already present; list relations are replaced by the resolved list.
func (edges Edges) Apply(e *types.Entity) {
	for _, rel := range types.Relations() {
		if ids, ok := edges[rel]; ok {
			e.SetTargets(rel, ids)
		}
	}
}

// Incoming returns, for each entity in graph, the relations that point at
// id, keyed by source entity id.
func Incoming(graph *types.Graph, id string) map[string][]types.Relation {
	in := make(map[string][]types.Relation)
	for _, e := range graph.Entities {
		for _, rel := range types.Relations() {
			for _, target := range e.Targets(rel) {
				if target == id {
					in[e.ID] = append(in[e.ID], rel)
				}
			}
		}
	}
	return in
}

// ParseRefList splits a comma-separated id list as given on the command
// line. Blank entries are dropped.
func ParseRefList(s string) []string {
	var ids []string
	for _, part := range strings.Split(s, ",") {
		if id := strings.TrimSpace(part); id != "" {
			ids = append(ids, id)
		}
	}
	return ids
}
