package registry

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/mesh-intelligence/crates/pkg/types"
)

func datasetEntity(a types.DatasetAttrs, contentURL string) *types.Entity {
	e := types.NewEntity("", a.Name, types.TypeDataset)
	e.Set(types.PropAuthor, a.Author)
	e.Set(types.PropVersion, a.Version)
	e.Set(types.PropDatePublished, a.DatePublished)
	e.Set(types.PropDescription, a.Description)
	setKeywords(e, a.Keywords)
	e.Set(types.PropFormat, a.DataFormat)
	e.Set(types.PropContentURL, contentURL)
	e.Set(types.PropURL, a.URL)
	e.Set(types.PropIdentifier, a.DOI)
	e.Set(types.PropAssociatedPublication, a.AssociatedPublication)
	e.Set(types.PropAdditionalDocumentation, a.AdditionalDocumentation)
	return e
}

func softwareEntity(a types.SoftwareAttrs, contentURL string) *types.Entity {
	e := types.NewEntity("", a.Name, types.TypeSoftware)
	e.Set(types.PropAuthor, a.Author)
	e.Set(types.PropVersion, a.Version)
	e.Set(types.PropDescription, a.Description)
	setKeywords(e, a.Keywords)
	e.Set(types.PropFormat, a.FileFormat)
	e.Set(types.PropContentURL, contentURL)
	e.Set(types.PropURL, a.URL)
	e.Set(types.PropDateModified, a.DateModified)
	e.Set(types.PropAssociatedPublication, a.AssociatedPublication)
	e.Set(types.PropAdditionalDocumentation, a.AdditionalDocumentation)
	return e
}

func computationEntity(a types.ComputationAttrs) *types.Entity {
	e := types.NewEntity("", a.Name, types.TypeComputation)
	e.Set(types.PropRunBy, a.RunBy)
	e.Set(types.PropDateCreated, a.DateCreated)
	e.Set(types.PropDescription, a.Description)
	setKeywords(e, a.Keywords)
	e.Set(types.PropCommand, a.Command)
	return e
}

func schemaEntity(a types.SchemaAttrs) (*types.Entity, error) {
	e := types.NewEntity("", a.Name, types.TypeSchema)
	e.Set(types.PropDescription, a.Description)
	setKeywords(e, a.Keywords)

	props, err := jsonValue(a.Properties)
	if err != nil {
		return nil, fmt.Errorf("encoding schema properties: %w", err)
	}
	e.Set(types.PropProperties, props)
	if len(a.Required) > 0 {
		e.Set(types.PropRequired, stringList(a.Required))
	}
	return e, nil
}

func setKeywords(e *types.Entity, keywords []string) {
	if len(keywords) > 0 {
		e.Set(types.PropKeywords, stringList(keywords))
	}
}

func stringList(items []string) []any {
	list := make([]any, len(items))
	for i, item := range items {
		list[i] = item
	}
	return list
}

// jsonValue converts v to the decoded-JSON form entities hold in Props, so a
// freshly registered entity looks the same as one read back from disk.
func jsonValue(v any) (any, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var out any
	if err := dec.Decode(&out); err != nil {
		return nil, err
	}
	return out, nil
}
