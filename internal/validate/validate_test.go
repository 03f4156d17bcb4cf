package validate

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/crates/pkg/types"
)

func graphOf(entities ...*types.Entity) *types.Graph {
	g := types.NewGraph()
	for _, e := range entities {
		g.Append(e)
	}
	return g
}

func dataset(id, contentURL string) *types.Entity {
	e := types.NewEntity(id, id, types.TypeDataset)
	e.Set(types.PropContentURL, contentURL)
	return e
}

func TestValidateClean(t *testing.T) {
	run := types.NewEntity("run", "Run", types.TypeComputation)
	ds := dataset("hr", "data/hr.csv")
	ds.SetTargets(types.RelUsedByComputation, []string{"run"})
	run.SetTargets(types.RelUsedDataset, []string{"hr"})

	assert.NoError(t, Validate(graphOf(types.NewEntity("root", "Root", types.RootTypes...), ds, run)))
}

func TestValidateEmptyGraph(t *testing.T) {
	assert.NoError(t, Validate(types.NewGraph()))
}

func TestValidateDuplicateID(t *testing.T) {
	err := Validate(graphOf(dataset("a", "a.csv"), dataset("a", "b.csv")))
	require.Error(t, err)

	var dup *types.DuplicateIDError
	require.True(t, errors.As(err, &dup))
	assert.Equal(t, "a", dup.ID)
	assert.ErrorIs(t, err, types.ErrDuplicateID)
}

func TestValidateMissingID(t *testing.T) {
	err := Validate(graphOf(types.NewEntity("", "anon", types.TypeDataset)))
	assert.ErrorIs(t, err, ErrMissingID)
}

func TestValidateDanglingReference(t *testing.T) {
	run := types.NewEntity("run", "Run", types.TypeComputation)
	run.SetTargets(types.RelUsedSoftware, []string{"ghost"})

	err := Validate(graphOf(run))
	require.Error(t, err)

	var dangling *types.DanglingReferenceError
	require.True(t, errors.As(err, &dangling))
	assert.Equal(t, types.RelUsedSoftware, dangling.Relation)
	assert.Equal(t, "ghost", dangling.MissingID)
}

func TestValidateReadsForeignEdgeForms(t *testing.T) {
	// Manifests from other tools may store edges as bare strings.
	ds := dataset("hr", "hr.csv")
	ds.Set(string(types.RelDerivedFrom), []any{"raw", map[string]any{"@id": "missing"}})
	ds.Set(string(types.RelSchema), "schema-1")

	err := Validate(graphOf(ds, dataset("raw", "raw.csv"), types.NewEntity("schema-1", "S", types.TypeSchema)))
	require.Error(t, err)

	report, ok := err.(Report)
	require.True(t, ok)
	require.Len(t, report, 1)
	assert.Equal(t, string(types.RelDerivedFrom), report[0].Field)
}

func TestValidateContentURL(t *testing.T) {
	tests := []struct {
		name  string
		value any
		ok    bool
	}{
		{"relative", "hr.csv", true},
		{"nested", "data/sub/file.csv", true},
		{"backslashes", `data\sub\file.csv`, false},
		{"absolute", "/data/file.csv", false},
		{"file scheme", "file:///data/file.csv", false},
		{"parent", "../file.csv", false},
		{"unclean", "data/./file.csv", false},
		{"trailing slash", "data/", false},
		{"not a string", []any{"a.csv"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := types.NewEntity("x", "x", types.TypeDataset)
			e.Set(types.PropContentURL, tt.value)

			err := Validate(graphOf(e))
			if tt.ok {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, ErrInvalidContentURL)
		})
	}
}

func TestReportCollectsAllIssues(t *testing.T) {
	run := types.NewEntity("run", "Run", types.TypeComputation)
	run.SetTargets(types.RelGenerated, []string{"out-1", "out-2"})

	err := Validate(graphOf(run, dataset("run", `bad\path`)))
	require.Error(t, err)

	report := err.(Report)
	assert.Len(t, report, 4)
	assert.Contains(t, err.Error(), "4 validation issues")
}
