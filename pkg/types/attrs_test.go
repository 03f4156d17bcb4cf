package types

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func heartRate() DatasetAttrs {
	return DatasetAttrs{
		Name:           "Heart Rate",
		Author:         "A. Smith",
		Version:        "1.0",
		DatePublished:  "2023-01-01",
		Description:    "desc",
		Keywords:       SplitList("genetics,heart rate"),
		DataFormat:     "CSV",
		SourceFilepath: "hr.csv",
	}
}

func TestDatasetAttrsValidate(t *testing.T) {
	require.NoError(t, heartRate().Validate())

	a := heartRate()
	a.Version = " "
	var mf *MissingFieldError
	require.True(t, errors.As(a.Validate(), &mf))
	assert.Equal(t, "version", mf.Field)
	assert.Equal(t, KindDataset, mf.Kind)

	a = heartRate()
	a.SourceFilepath = ""
	assert.ErrorIs(t, a.Validate(), ErrMissingField)
	a.DOI = "10.1234/abc"
	assert.NoError(t, a.Validate(), "DOI datasets need no file")
}

func TestDatasetAttrsNewSchema(t *testing.T) {
	a := heartRate()
	a.NewSchema = &SchemaAttrs{Name: "HR Schema", Description: "d"}
	assert.ErrorIs(t, a.Validate(), ErrMissingField, "the new schema is validated with the dataset")

	a.NewSchema.Properties = map[string]PropertyDefinition{"bpm": {Type: ValueTypeInteger}}
	require.NoError(t, a.Validate())

	a.Schema = "s1"
	assert.ErrorIs(t, a.Validate(), ErrInvalidValue)
}

func TestDatasetAttrsRefs(t *testing.T) {
	a := heartRate()
	a.DerivedFrom = []string{"raw"}
	a.Schema = "s1"
	refs := a.Refs()
	assert.Equal(t, []string{"raw"}, refs[RelDerivedFrom])
	assert.Equal(t, []string{"s1"}, refs[RelSchema])

	a.Schema = ""
	_, ok := a.Refs()[RelSchema]
	assert.False(t, ok)
}

func TestCrateAttrsValidate(t *testing.T) {
	a := CrateAttrs{Name: "Proj", Organization: "Org", Project: "Proj1", Description: "desc"}
	require.NoError(t, a.Validate())

	a.PackageType = "zip"
	assert.ErrorIs(t, a.Validate(), ErrInvalidValue)

	a.PackageType = PackageTypeDataset
	a.Organization = ""
	assert.ErrorIs(t, a.Validate(), ErrMissingField)
}

func TestComputationAndSoftwareValidate(t *testing.T) {
	c := ComputationAttrs{Name: "Run", RunBy: "A", DateCreated: "2023-01-01", Description: "d"}
	var mf *MissingFieldError
	require.True(t, errors.As(c.Validate(), &mf))
	assert.Equal(t, "command", mf.Field)

	s := SoftwareAttrs{Name: "Tool", Author: "A", Version: "1", Description: "d", Keywords: []string{"k"}, FileFormat: ".py"}
	require.True(t, errors.As(s.Validate(), &mf))
	assert.Equal(t, "sourceFilepath", mf.Field)
}

func TestSchemaAttrsValidate(t *testing.T) {
	lo, hi := 5.0, 1.0
	tests := []struct {
		name  string
		attrs SchemaAttrs
		want  error
	}{
		{"no properties", SchemaAttrs{Name: "S", Description: "d"}, ErrMissingField},
		{"bad type", SchemaAttrs{Name: "S", Description: "d", Properties: map[string]PropertyDefinition{"a": {Type: "date"}}}, ErrInvalidValue},
		{"min above max", SchemaAttrs{Name: "S", Description: "d", Properties: map[string]PropertyDefinition{"a": {Type: ValueTypeNumber, Minimum: &lo, Maximum: &hi}}}, ErrInvalidValue},
		{"undefined required", SchemaAttrs{Name: "S", Description: "d", Properties: map[string]PropertyDefinition{"a": {Type: ValueTypeString}}, Required: []string{"b"}}, ErrInvalidValue},
		{"valid", SchemaAttrs{Name: "S", Description: "d", Properties: map[string]PropertyDefinition{"a": {Type: ValueTypeString}}, Required: []string{"a"}}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.attrs.Validate()
			if tt.want == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestSplitList(t *testing.T) {
	assert.Equal(t, []string{"genetics", "heart rate"}, SplitList("genetics, heart rate,"))
	assert.Nil(t, SplitList(" , "))
}
