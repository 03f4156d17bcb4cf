package types

import (
	"fmt"
	"strings"
)

// Kind discriminates the entity variants the engine understands.
type Kind string

// Entity kinds. KindUnknown covers entities authored by other tools with a
// @type the engine does not interpret; they are preserved but never linked.
const (
	KindUnknown     Kind = ""
	KindRoot        Kind = "rocrate"
	KindDataset     Kind = "dataset"
	KindSoftware    Kind = "software"
	KindComputation Kind = "computation"
	KindSchema      Kind = "schema"
)

// kindTerms maps the local name of each EVI type to its kind.
var kindTerms = map[string]Kind{
	"Dataset":     KindDataset,
	"Software":    KindSoftware,
	"Computation": KindComputation,
	"Schema":      KindSchema,
	"ROCrate":     KindRoot,
}

// ParseKind converts a user-supplied kind name ("dataset", "Software", ...) to a Kind.
func ParseKind(s string) (Kind, error) {
	switch k := Kind(strings.ToLower(strings.TrimSpace(s))); k {
	case KindRoot, KindDataset, KindSoftware, KindComputation, KindSchema:
		return k, nil
	}
	return KindUnknown, fmt.Errorf("%w: %q", ErrUnknownKind, s)
}

// TypeTerm returns the compact @type the engine writes for k.
func (k Kind) TypeTerm() string {
	switch k {
	case KindDataset:
		return TypeDataset
	case KindSoftware:
		return TypeSoftware
	case KindComputation:
		return TypeComputation
	case KindSchema:
		return TypeSchema
	case KindRoot:
		return TypeROCrate
	}
	return ""
}

// String returns the kind name.
func (k Kind) String() string {
	if k == KindUnknown {
		return "unknown"
	}
	return string(k)
}

// KindOf derives the kind from an entity's @type values. A type list that
// names ROCrate marks the root regardless of its other members. Plain
// "Dataset" only counts when no EVI type is present.
func KindOf(types []string) Kind {
	found := KindUnknown
	for _, t := range types {
		k, ok := kindTerms[localTerm(t)]
		if !ok {
			continue
		}
		if k == KindRoot {
			return KindRoot
		}
		if found == KindUnknown || isEVITerm(t) {
			found = k
		}
	}
	return found
}

// localTerm strips the EVI or schema.org prefix from a type term.
func localTerm(t string) string {
	for _, p := range []string{EVIPrefix + ":", EVINamespace, SchemaOrgNamespace} {
		if strings.HasPrefix(t, p) {
			return strings.TrimPrefix(t, p)
		}
	}
	return t
}

func isEVITerm(t string) bool {
	return strings.HasPrefix(t, EVIPrefix+":") || strings.HasPrefix(t, EVINamespace)
}
