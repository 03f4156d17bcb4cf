package types

import (
	"slices"
	"strings"
)

// Relation names a directed edge type. The value is also the JSON key the
// edge is stored under on the source entity.
type Relation string

// Relation types (see Relations for source and target kinds).
const (
	RelUsedByComputation Relation = "usedByComputation" // dataset/software -> computation
	RelDerivedFrom       Relation = "derivedFrom"       // dataset -> dataset
	RelUsedSoftware      Relation = "usedSoftware"      // computation -> software
	RelUsedDataset       Relation = "usedDataset"       // computation -> dataset
	RelGenerated         Relation = "generated"         // computation -> dataset/software
	RelSchema            Relation = "schema"            // dataset -> schema
)

// relationSpec fixes the direction of a relation.
type relationSpec struct {
	sources []Kind
	targets []Kind
}

var relationSpecs = map[Relation]relationSpec{
	RelUsedByComputation: {sources: []Kind{KindDataset, KindSoftware}, targets: []Kind{KindComputation}},
	RelDerivedFrom:       {sources: []Kind{KindDataset}, targets: []Kind{KindDataset}},
	RelUsedSoftware:      {sources: []Kind{KindComputation}, targets: []Kind{KindSoftware}},
	RelUsedDataset:       {sources: []Kind{KindComputation}, targets: []Kind{KindDataset}},
	RelGenerated:         {sources: []Kind{KindComputation}, targets: []Kind{KindDataset, KindSoftware}},
	RelSchema:            {sources: []Kind{KindDataset}, targets: []Kind{KindSchema}},
}

// Relations returns every relation type in a stable order.
func Relations() []Relation {
	return []Relation{
		RelUsedByComputation,
		RelDerivedFrom,
		RelUsedSoftware,
		RelUsedDataset,
		RelGenerated,
		RelSchema,
	}
}

// Known reports whether r is one of the engine's relation types.
func (r Relation) Known() bool {
	_, ok := relationSpecs[r]
	return ok
}

// Single reports whether the relation holds at most one target.
func (r Relation) Single() bool {
	return r == RelSchema
}

// AllowedFrom reports whether an entity of kind k may carry this edge.
func (r Relation) AllowedFrom(k Kind) bool {
	return slices.Contains(relationSpecs[r].sources, k)
}

// Targets returns the kinds this relation may point at.
func (r Relation) Targets() []Kind {
	return slices.Clone(relationSpecs[r].targets)
}

// Refs carries raw relationship references for one registration, keyed by
// relation. A missing key, an empty list and a list of empty strings all
// mean "no edge of this type".
type Refs map[Relation][]string

// Normalized returns a copy with ids trimmed, empties dropped and
// duplicates removed, preserving first-seen order. Relations left with no
// ids are omitted.
func (r Refs) Normalized() Refs {
	out := make(Refs, len(r))
	for rel, ids := range r {
		var kept []string
		for _, id := range ids {
			id = strings.TrimSpace(id)
			if id == "" || slices.Contains(kept, id) {
				continue
			}
			kept = append(kept, id)
		}
		if len(kept) > 0 {
			out[rel] = kept
		}
	}
	return out
}

// RefIDs extracts target ids from a stored edge value. It accepts the forms
// found in manifests: a bare id string, an {"@id": ...} object, or a list
// of either.
func RefIDs(v any) []string {
	switch t := v.(type) {
	case nil:
		return nil
	case string:
		if t == "" {
			return nil
		}
		return []string{t}
	case map[string]any:
		if id, ok := t["@id"].(string); ok && id != "" {
			return []string{id}
		}
		return nil
	case []string:
		var ids []string
		for _, s := range t {
			if s != "" {
				ids = append(ids, s)
			}
		}
		return ids
	case []any:
		var ids []string
		for _, item := range t {
			ids = append(ids, RefIDs(item)...)
		}
		return ids
	}
	return nil
}

// RefValue builds the stored form of an edge: a single {"@id"} object for
// single-valued relations, a list of them otherwise.
func RefValue(ids []string, single bool) any {
	if single {
		if len(ids) == 0 {
			return nil
		}
		return map[string]any{"@id": ids[0]}
	}
	list := make([]any, 0, len(ids))
	for _, id := range ids {
		list = append(list, map[string]any{"@id": id})
	}
	return list
}
