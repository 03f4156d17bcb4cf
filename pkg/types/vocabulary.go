package types

import "encoding/json"

// ManifestFileName is the name of the manifest document at the crate root.
const ManifestFileName = "ro-crate-metadata.json"

// Vocabulary namespaces used by the manifest @context.
const (
	SchemaOrgNamespace = "https://schema.org/"
	EVINamespace       = "https://w3id.org/EVI#"
	EVIPrefix          = "EVI"
)

// Entity type terms. The compact form is what the engine writes; the
// expanded and bare forms are accepted when reading manifests authored by
// other tools.
const (
	TypeDataset     = EVIPrefix + ":Dataset"
	TypeSoftware    = EVIPrefix + ":Software"
	TypeComputation = EVIPrefix + ":Computation"
	TypeSchema      = EVIPrefix + ":Schema"
	TypeROCrate     = EVIPrefix + ":ROCrate"

	// TypeSchemaDataset is the plain schema.org type listed first on the root.
	TypeSchemaDataset = "Dataset"
)

// RootTypes is the @type written on the root entity of new crates.
var RootTypes = []string{TypeSchemaDataset, EVINamespace + "ROCrate"}

// PackageTypeDataset marks a crate that holds a single dataset package.
const PackageTypeDataset = "dataset"

// DefaultContext returns the @context written to new manifests.
func DefaultContext() json.RawMessage {
	return json.RawMessage(`{"@vocab":"` + SchemaOrgNamespace + `","` + EVIPrefix + `":"` + EVINamespace + `"}`)
}
