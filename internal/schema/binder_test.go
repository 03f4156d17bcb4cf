package schema

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/crates/internal/guid"
	"github.com/mesh-intelligence/crates/internal/manifest"
	"github.com/mesh-intelligence/crates/internal/registry"
	"github.com/mesh-intelligence/crates/pkg/types"
)

func testRegistry(t *testing.T) *registry.Registry {
	t.Helper()
	dir := t.TempDir()
	m, err := guid.New(guid.WithStrategy(guid.StrategyUUID))
	require.NoError(t, err)

	_, err = manifest.New(manifest.WithMinter(m)).Init(dir, types.CrateAttrs{
		Name: "Proj", Organization: "Org", Project: "P", Description: "d",
	})
	require.NoError(t, err)

	r, err := registry.Open(dir, registry.WithMinter(m))
	require.NoError(t, err)
	return r
}

func writeTemp(t *testing.T, name, content string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
	return p
}

func TestSelectExistingNoSchemas(t *testing.T) {
	r := testRegistry(t)
	b := NewBinder(r)

	_, err := b.SelectExisting(func([]Choice) (string, error) {
		t.Fatal("chooser called with no schemas")
		return "", nil
	})

	var none *types.NoSchemaFoundError
	require.True(t, errors.As(err, &none))
	assert.Equal(t, r.Path(), none.Path)
}

func TestSelectExisting(t *testing.T) {
	b := NewBinder(testRegistry(t))

	first, err := b.CreateNew("Heart Rate", []Property{{Name: "bpm", PropertyDefinition: types.PropertyDefinition{Type: types.ValueTypeInteger}}})
	require.NoError(t, err)
	second, err := b.CreateNew("Weather", []Property{{Name: "temp", PropertyDefinition: types.PropertyDefinition{Type: types.ValueTypeNumber}}})
	require.NoError(t, err)

	choices := b.List()
	require.Len(t, choices, 2)
	assert.Equal(t, "Heart Rate Schema", choices[0].Name)

	id, err := b.SelectExisting(ChooseByRef("2"))
	require.NoError(t, err)
	assert.Equal(t, second, id)

	id, err = b.SelectExisting(ChooseByRef(first))
	require.NoError(t, err)
	assert.Equal(t, first, id)

	id, err = b.SelectExisting(ChooseByRef(""))
	require.NoError(t, err)
	assert.Empty(t, id, "empty choice skips binding")

	_, err = b.SelectExisting(ChooseByRef("3"))
	assert.ErrorIs(t, err, types.ErrInvalidValue)

	_, err = b.SelectExisting(ChooseByRef("ark:59852/schema-unknown"))
	assert.ErrorIs(t, err, types.ErrInvalidValue)
}

func TestCreateNew(t *testing.T) {
	r := testRegistry(t)
	b := NewBinder(r)

	id, err := b.CreateNew("Heart Rate", []Property{
		{Name: "bpm", PropertyDefinition: types.PropertyDefinition{Type: types.ValueTypeInteger, Description: "beats"}, Required: true},
		{Name: "note", PropertyDefinition: types.PropertyDefinition{Type: types.ValueTypeString}},
	})
	require.NoError(t, err)

	e := r.Graph().Find(id)
	require.NotNil(t, e)
	assert.Equal(t, "Heart Rate Schema", e.Name)
	assert.Equal(t, []string{"bpm"}, e.Strings(types.PropRequired))

	props := e.Props[types.PropProperties].(map[string]any)
	note := props["note"].(map[string]any)
	assert.Equal(t, "string", note["type"])
	assert.Equal(t, json.Number("1"), note["index"])
}

func TestCreateNewRejectsBadProperties(t *testing.T) {
	b := NewBinder(testRegistry(t))

	tests := []struct {
		name    string
		props   []Property
		wantErr error
	}{
		{"no properties", nil, types.ErrMissingField},
		{"unnamed", []Property{{PropertyDefinition: types.PropertyDefinition{Type: "string"}}}, types.ErrInvalidValue},
		{"duplicate", []Property{
			{Name: "a", PropertyDefinition: types.PropertyDefinition{Type: "string"}},
			{Name: "a", PropertyDefinition: types.PropertyDefinition{Type: "string"}},
		}, types.ErrInvalidValue},
		{"bad type", []Property{{Name: "a", PropertyDefinition: types.PropertyDefinition{Type: "date"}}}, types.ErrInvalidValue},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := b.CreateNew("DS", tt.props)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}

	_, err := b.CreateNew("  ", []Property{{Name: "a", PropertyDefinition: types.PropertyDefinition{Type: "string"}}})
	assert.ErrorIs(t, err, types.ErrMissingField)
}

func TestCreateFromContainer(t *testing.T) {
	r := testRegistry(t)
	b := NewBinder(r)
	path := writeTemp(t, "hr.csv", "subject,bpm,resting\ns1,60,true\ns2,72,false\n")

	id, err := b.CreateFromContainer("Heart Rate", path)
	require.NoError(t, err)

	props := r.Graph().Find(id).Props[types.PropProperties].(map[string]any)
	assert.Len(t, props, 3)
	assert.Equal(t, "integer", props["bpm"].(map[string]any)["type"])
	assert.Equal(t, "boolean", props["resting"].(map[string]any)["type"])
}

func TestUploadExisting(t *testing.T) {
	r := testRegistry(t)
	b := NewBinder(r)
	path := writeTemp(t, "hr.yaml", `
name: Heart Rate Schema
description: Uploaded
properties:
  bpm:
    type: integer
    description: beats per minute
    minimum: 20
    maximum: 250
required: [bpm]
`)

	id, err := b.UploadExisting(path)
	require.NoError(t, err)

	e := r.Graph().Find(id)
	assert.Equal(t, "Heart Rate Schema", e.Name)
	assert.Equal(t, types.KindSchema, e.Kind())
}

func TestUploadExistingInvalid(t *testing.T) {
	b := NewBinder(testRegistry(t))
	path := writeTemp(t, "bad.json", `{"name": "x"}`)

	_, err := b.UploadExisting(path)
	var invalid *types.InvalidSchemaDocumentError
	require.True(t, errors.As(err, &invalid))
	assert.Equal(t, path, invalid.Path)
	assert.Len(t, b.List(), 0)
}
