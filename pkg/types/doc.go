// Package types defines the RO-Crate data model: entities, the @graph that
// holds them, relationship kinds, registration attributes, and the error
// taxonomy shared by the engine packages and the crate CLI.
//
// The manifest document is the single source of truth. Types here are plain
// values; loading, persisting and mutating a crate lives in internal/manifest
// and internal/registry.
package types
