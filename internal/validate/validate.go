// Package validate checks the structural and referential invariants of a
// crate graph: ids are present and unique, every relationship edge points
// at an entity in the graph, and every contentUrl is a clean crate-relative
// forward-slash path. It never mutates the graph.
package validate

import (
	"fmt"
	"strings"

	"github.com/mesh-intelligence/crates/pkg/types"
)

// ErrInvalidContentURL marks a contentUrl that is not normalized.
var ErrInvalidContentURL = fmt.Errorf("%w: contentUrl is not a normalized crate-relative path", types.ErrInvalidPath)

// ErrMissingID marks an entity without an @id.
var ErrMissingID = fmt.Errorf("%w: entity has no @id", types.ErrMissingField)

// Issue is one violation found in a graph. Err is one of the typed errors
// from pkg/types or a sentinel from this package.
type Issue struct {
	Index int    // position in @graph
	ID    string // entity id, may be empty
	Field string // offending property, may be empty
	Err   error
}

func (i Issue) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "@graph[%d]", i.Index)
	if i.ID != "" {
		fmt.Fprintf(&b, " %q", i.ID)
	}
	if i.Field != "" {
		fmt.Fprintf(&b, " %s", i.Field)
	}
	fmt.Fprintf(&b, ": %v", i.Err)
	return b.String()
}

func (i Issue) Unwrap() error { return i.Err }

// Report collects every issue found by Validate. It matches each issue's
// error under errors.Is and errors.As.
type Report []Issue

func (r Report) Error() string {
	if len(r) == 1 {
		return r[0].Error()
	}
	lines := make([]string, 0, len(r)+1)
	lines = append(lines, fmt.Sprintf("%d validation issues:", len(r)))
	for _, issue := range r {
		lines = append(lines, "  "+issue.Error())
	}
	return strings.Join(lines, "\n")
}

func (r Report) Unwrap() []error {
	errs := make([]error, len(r))
	for i, issue := range r {
		errs[i] = issue
	}
	return errs
}

// Validate checks g and returns nil or a Report.
func Validate(g *types.Graph) error {
	var report Report

	seen := make(map[string]int, g.Len())
	for i, e := range g.Entities {
		if e.ID == "" {
			report = append(report, Issue{Index: i, Field: "@id", Err: ErrMissingID})
			continue
		}
		if _, dup := seen[e.ID]; dup {
			report = append(report, Issue{Index: i, ID: e.ID, Field: "@id", Err: &types.DuplicateIDError{ID: e.ID}})
			continue
		}
		seen[e.ID] = i
	}

	for i, e := range g.Entities {
		for _, rel := range types.Relations() {
			for _, target := range e.Targets(rel) {
				if _, ok := seen[target]; !ok {
					report = append(report, Issue{
						Index: i,
						ID:    e.ID,
						Field: string(rel),
						Err:   &types.DanglingReferenceError{Relation: rel, MissingID: target},
					})
				}
			}
		}

		if raw, ok := e.Get(types.PropContentURL); ok {
			u, isString := raw.(string)
			if !isString || !types.IsNormalizedPath(u) {
				report = append(report, Issue{
					Index: i,
					ID:    e.ID,
					Field: types.PropContentURL,
					Err:   fmt.Errorf("%w: %v", ErrInvalidContentURL, raw),
				})
			}
		}
	}

	if len(report) == 0 {
		return nil
	}
	return report
}
