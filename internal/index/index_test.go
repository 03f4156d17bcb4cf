package index

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/crates/pkg/types"
)

// provenanceGraph:
//
//	raw --usedDataset--> run --generated--> clean --derivedFrom--> raw
//	tool --usedSoftware--> run
//	clean --schema--> schema
func provenanceGraph() *types.Graph {
	g := types.NewGraph()
	g.Append(types.NewEntity("root", "Project", types.RootTypes...))

	raw := types.NewEntity("raw", "Raw readings", types.TypeDataset)
	raw.Set(types.PropContentURL, "data/raw.csv")
	raw.Set(types.PropKeywords, []any{"Heart Rate", "raw"})
	raw.Set(types.PropDescription, "Sensor dump, 100% unfiltered")

	tool := types.NewEntity("tool", "Cleaner", types.TypeSoftware)
	tool.Set(types.PropContentURL, "bin/clean.py")

	run := types.NewEntity("run", "Cleaning run", types.TypeComputation)
	run.SetTargets(types.RelUsedDataset, []string{"raw"})
	run.SetTargets(types.RelUsedSoftware, []string{"tool"})
	run.SetTargets(types.RelGenerated, []string{"clean"})

	clean := types.NewEntity("clean", "Clean readings", types.TypeDataset)
	clean.Set(types.PropContentURL, "data/clean.csv")
	clean.Set(types.PropKeywords, []any{"heart rate"})
	clean.SetTargets(types.RelDerivedFrom, []string{"raw"})
	clean.SetTargets(types.RelSchema, []string{"schema"})

	g.Append(raw)
	g.Append(tool)
	g.Append(run)
	g.Append(clean)
	g.Append(types.NewEntity("schema", "Clean Schema", types.TypeSchema))
	return g
}

func buildIndex(t *testing.T, g *types.Graph) *Index {
	t.Helper()
	ix, err := Build(context.Background(), g)
	require.NoError(t, err)
	t.Cleanup(func() { ix.Close() })
	return ix
}

func ids(rows []Row) []string {
	out := make([]string, len(rows))
	for i, r := range rows {
		out[i] = r.ID
	}
	return out
}

func TestList(t *testing.T) {
	ix := buildIndex(t, provenanceGraph())
	ctx := context.Background()

	tests := []struct {
		name   string
		filter Filter
		want   []string
	}{
		{"all in graph order", Filter{}, []string{"root", "raw", "tool", "run", "clean", "schema"}},
		{"by kind", Filter{Kind: types.KindDataset}, []string{"raw", "clean"}},
		{"root kind", Filter{Kind: types.KindRoot}, []string{"root"}},
		{"by keyword, case folded", Filter{Keyword: "HEART RATE"}, []string{"raw", "clean"}},
		{"kind and keyword", Filter{Kind: types.KindDataset, Keyword: "raw"}, []string{"raw"}},
		{"text in name", Filter{Text: "clean"}, []string{"tool", "run", "clean", "schema"}},
		{"text with like metacharacter", Filter{Text: "100%"}, []string{"raw"}},
		{"no match", Filter{Text: "nothing"}, []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rows, err := ix.List(ctx, tt.filter)
			require.NoError(t, err)
			assert.Equal(t, tt.want, ids(rows))
		})
	}
}

func TestListRowFields(t *testing.T) {
	rows, err := buildIndex(t, provenanceGraph()).List(context.Background(), Filter{Kind: types.KindSoftware})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, Row{ID: "tool", Kind: "software", Name: "Cleaner", ContentURL: "bin/clean.py"}, rows[0])
}

func TestShow(t *testing.T) {
	ix := buildIndex(t, provenanceGraph())

	d, err := ix.Show(context.Background(), "clean")
	require.NoError(t, err)
	assert.Equal(t, "Clean readings", d.Name)
	assert.Equal(t, []Edge{
		{Relation: "derivedFrom", From: "clean", To: "raw", Name: "Raw readings"},
		{Relation: "schema", From: "clean", To: "schema", Name: "Clean Schema"},
	}, d.Outgoing)
	assert.Equal(t, []Edge{
		{Relation: "generated", From: "run", To: "clean", Name: "Cleaning run"},
	}, d.Incoming)

	var body map[string]any
	require.NoError(t, json.Unmarshal(d.Body, &body))
	assert.Equal(t, "clean", body["@id"])
	assert.Equal(t, "data/clean.csv", body["contentUrl"])
}

func TestShowUnknown(t *testing.T) {
	_, err := buildIndex(t, provenanceGraph()).Show(context.Background(), "ghost")
	assert.ErrorIs(t, err, types.ErrEntityNotFound)
}

func TestLineage(t *testing.T) {
	ix := buildIndex(t, provenanceGraph())
	ctx := context.Background()

	up, err := ix.Lineage(ctx, "clean", Upstream)
	require.NoError(t, err)
	got := map[string]int{}
	for _, s := range up {
		got[s.ID] = s.Depth
	}
	assert.Equal(t, map[string]int{"raw": 1, "run": 1, "tool": 2}, got)
	assert.Equal(t, 1, up[0].Depth, "nearest first")

	down, err := ix.Lineage(ctx, "raw", Downstream)
	require.NoError(t, err)
	assert.Equal(t, []string{"clean", "run"}, func() []string {
		var out []string
		for _, s := range down {
			out = append(out, s.ID)
		}
		return out
	}())

	none, err := ix.Lineage(ctx, "schema", Upstream)
	require.NoError(t, err)
	assert.Empty(t, none)

	_, err = ix.Lineage(ctx, "ghost", Downstream)
	assert.ErrorIs(t, err, types.ErrEntityNotFound)
}

func TestLineageCycleTerminates(t *testing.T) {
	g := types.NewGraph()
	a := types.NewEntity("a", "A", types.TypeDataset)
	a.SetTargets(types.RelDerivedFrom, []string{"b"})
	b := types.NewEntity("b", "B", types.TypeDataset)
	b.SetTargets(types.RelDerivedFrom, []string{"a"})
	g.Append(a)
	g.Append(b)

	steps, err := buildIndex(t, g).Lineage(context.Background(), "a", Upstream)
	require.NoError(t, err)
	require.Len(t, steps, 1)
	assert.Equal(t, "b", steps[0].ID)
	assert.Equal(t, 1, steps[0].Depth)
}

func TestBuildToleratesForeignGraphs(t *testing.T) {
	g := types.NewGraph()
	g.Append(types.NewEntity("", "anonymous", types.TypeDataset))
	g.Append(types.NewEntity("dup", "first", types.TypeDataset))
	g.Append(types.NewEntity("dup", "second", types.TypeDataset))
	dangling := types.NewEntity("run", "Run", types.TypeComputation)
	dangling.SetTargets(types.RelUsedDataset, []string{"missing"})
	g.Append(dangling)

	ix := buildIndex(t, g)
	rows, err := ix.List(context.Background(), Filter{})
	require.NoError(t, err)
	assert.Equal(t, []string{"dup", "run"}, ids(rows))

	d, err := ix.Show(context.Background(), "run")
	require.NoError(t, err)
	assert.Equal(t, []Edge{{Relation: "usedDataset", From: "run", To: "missing"}}, d.Outgoing)
}
