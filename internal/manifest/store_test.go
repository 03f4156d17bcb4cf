package manifest

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/crates/internal/guid"
	"github.com/mesh-intelligence/crates/pkg/types"
)

func testStore(t *testing.T) *Store {
	t.Helper()
	m, err := guid.New(guid.WithClock(func() time.Time {
		return time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)
	}))
	require.NoError(t, err)
	return New(WithMinter(m))
}

func crateAttrs() types.CrateAttrs {
	return types.CrateAttrs{
		Name:         "Proj",
		Organization: "Org",
		Project:      "Proj1",
		Description:  "desc",
		Keywords:     types.SplitList("a,b"),
	}
}

func writeManifest(t *testing.T, dir, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(Path(dir), []byte(content), 0o644))
}

// decodeGeneric decodes a manifest into plain JSON values with @graph sorted
// by @id, so two documents compare equal when they hold the same entities.
func decodeGeneric(t *testing.T, data []byte) map[string]any {
	t.Helper()
	var doc map[string]any
	require.NoError(t, json.Unmarshal(data, &doc))
	if entries, ok := doc["@graph"].([]any); ok {
		sort.Slice(entries, func(i, j int) bool {
			return entries[i].(map[string]any)["@id"].(string) < entries[j].(map[string]any)["@id"].(string)
		})
	}
	return doc
}

func TestLoadNotInitialized(t *testing.T) {
	dir := t.TempDir()

	_, err := testStore(t).Load(dir)
	require.Error(t, err)

	var notInit *types.NotInitializedError
	require.True(t, errors.As(err, &notInit))
	assert.Equal(t, dir, notInit.Path)
	assert.ErrorIs(t, err, types.ErrNotInitialized)
}

func TestLoadCorrupt(t *testing.T) {
	tests := []struct {
		name    string
		content string
		cause   error
	}{
		{name: "not json", content: "{not json"},
		{name: "missing graph", content: `{"@context": {}}`, cause: types.ErrGraphMissing},
		{name: "graph is object", content: `{"@graph": {"@id": "x"}}`, cause: types.ErrGraphNotArray},
		{name: "graph is null", content: `{"@graph": null}`, cause: types.ErrGraphNotArray},
		{name: "entity not object", content: `{"@graph": ["x"]}`},
		{name: "bad type", content: `{"@graph": [{"@id": "x", "@type": 3}]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			writeManifest(t, dir, tt.content)

			_, err := testStore(t).Load(dir)
			require.Error(t, err)
			assert.ErrorIs(t, err, types.ErrCorruptManifest)

			var corrupt *types.CorruptManifestError
			require.True(t, errors.As(err, &corrupt))
			assert.Equal(t, Path(dir), corrupt.Path)
			if tt.cause != nil {
				assert.ErrorIs(t, err, tt.cause)
			}
		})
	}
}

func TestRoundTrip(t *testing.T) {
	dir := t.TempDir()
	original := `{
  "@context": {"@vocab": "https://schema.org/", "EVI": "https://w3id.org/EVI#"},
  "packageType": "dataset",
  "conformsTo": {"@id": "https://w3id.org/ro/crate/1.1"},
  "@graph": [
    {"@id": "ark:59852/rocrate-proj", "@type": ["Dataset", "https://w3id.org/EVI#ROCrate"], "name": "Proj", "keywords": ["a", "b"]},
    {"@id": "ark:59852/dataset-hr", "@type": "EVI:Dataset", "name": "HR", "contentUrl": "hr.csv",
     "contentSize": 12345678901234567890, "usedByComputation": [{"@id": "ark:59852/computation-run"}]},
    {"@id": "ark:59852/computation-run", "@type": ["EVI:Computation"], "name": "Run", "custom": {"nested": [1, 2.5, true, null]}}
  ]
}`
	writeManifest(t, dir, original)

	s := testStore(t)
	g, err := s.Load(dir)
	require.NoError(t, err)
	assert.Equal(t, 3, g.Len())
	assert.Equal(t, types.PackageTypeDataset, g.PackageType)

	require.NoError(t, s.Save(dir, g))

	saved, err := os.ReadFile(Path(dir))
	require.NoError(t, err)
	assert.Equal(t, decodeGeneric(t, []byte(original)), decodeGeneric(t, saved))
	assert.Contains(t, string(saved), "12345678901234567890")

	reloaded, err := s.Load(dir)
	require.NoError(t, err)
	assert.Equal(t, g.IDs(), reloaded.IDs())
	assert.Equal(t, []string{"ark:59852/computation-run"}, reloaded.Find("ark:59852/dataset-hr").Targets(types.RelUsedByComputation))
}

func TestSaveLeavesNoTempFiles(t *testing.T) {
	dir := t.TempDir()
	s := testStore(t)
	_, err := s.Init(dir, crateAttrs())
	require.NoError(t, err)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, types.ManifestFileName, entries[0].Name())
}

func TestSaveFailureKeepsPreviousManifest(t *testing.T) {
	dir := t.TempDir()
	s := testStore(t)
	_, err := s.Init(dir, crateAttrs())
	require.NoError(t, err)

	before, err := os.ReadFile(Path(dir))
	require.NoError(t, err)

	// A graph holding a value encoding/json cannot marshal fails before any write.
	g, err := s.Load(dir)
	require.NoError(t, err)
	g.Root().Set("bad", func() {})

	require.Error(t, s.Save(dir, g))

	after, err := os.ReadFile(Path(dir))
	require.NoError(t, err)
	assert.Equal(t, before, after)
}

func TestSaveToMissingDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "missing")
	err := testStore(t).Save(dir, types.NewGraph())
	require.Error(t, err)
	assert.False(t, types.IsUserError(err))
}

func TestInit(t *testing.T) {
	dir := t.TempDir()
	g, err := testStore(t).Init(dir, crateAttrs())
	require.NoError(t, err)

	require.Equal(t, 1, g.Len())
	root := g.Root()
	assert.Equal(t, "ark:59852/rocrate-proj-20230101000000", root.ID)
	assert.Equal(t, types.KindRoot, root.Kind())
	assert.Equal(t, "Proj", root.Name)
	assert.Equal(t, "Org", root.String(types.PropSourceOrganization))
	assert.Equal(t, "Proj1", root.String(types.PropIsPartOf))
	assert.Equal(t, []string{"a", "b"}, root.Strings(types.PropKeywords))

	data, err := os.ReadFile(Path(dir))
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(string(data), "\n"))
	assert.Contains(t, string(data), `"@vocab": "https://schema.org/"`)
	assert.Contains(t, string(data), `"EVI": "https://w3id.org/EVI#"`)
}

func TestInitTwiceFails(t *testing.T) {
	dir := t.TempDir()
	s := testStore(t)
	_, err := s.Init(dir, crateAttrs())
	require.NoError(t, err)

	first, err := os.ReadFile(Path(dir))
	require.NoError(t, err)

	second := crateAttrs()
	second.Name = "Other"
	_, err = s.Init(dir, second)
	require.Error(t, err)

	var already *types.AlreadyInitializedError
	require.True(t, errors.As(err, &already))
	assert.ErrorIs(t, err, types.ErrAlreadyInitialized)

	after, err := os.ReadFile(Path(dir))
	require.NoError(t, err)
	assert.Equal(t, first, after)
}

func TestInitSuppliedGUIDAndPackageType(t *testing.T) {
	dir := t.TempDir()
	attrs := crateAttrs()
	attrs.GUID = "ark:59852/my-crate"
	attrs.PackageType = types.PackageTypeDataset

	_, err := testStore(t).Init(dir, attrs)
	require.NoError(t, err)

	g, err := testStore(t).Load(dir)
	require.NoError(t, err)
	assert.Equal(t, "ark:59852/my-crate", g.Root().ID)
	assert.Equal(t, types.PackageTypeDataset, g.PackageType)
}

func TestInitValidation(t *testing.T) {
	t.Run("missing field", func(t *testing.T) {
		attrs := crateAttrs()
		attrs.Organization = ""
		_, err := testStore(t).Init(t.TempDir(), attrs)

		var missing *types.MissingFieldError
		require.True(t, errors.As(err, &missing))
		assert.Equal(t, "organization", missing.Field)
	})

	t.Run("bad package type", func(t *testing.T) {
		attrs := crateAttrs()
		attrs.PackageType = "archive"
		_, err := testStore(t).Init(t.TempDir(), attrs)
		assert.ErrorIs(t, err, types.ErrInvalidValue)
	})

	t.Run("directory must exist", func(t *testing.T) {
		_, err := testStore(t).Init(filepath.Join(t.TempDir(), "nope"), crateAttrs())
		require.Error(t, err)
		assert.ErrorIs(t, err, os.ErrNotExist)
	})
}

func TestCreateMakesDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "a", "b", "crate")
	g, err := testStore(t).Create(dir, crateAttrs())
	require.NoError(t, err)
	assert.Equal(t, 1, g.Len())
	assert.True(t, Exists(dir))

	_, err = testStore(t).Create(dir, crateAttrs())
	assert.ErrorIs(t, err, types.ErrAlreadyInitialized)
}
