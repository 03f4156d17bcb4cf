package types

import (
	"errors"
	"fmt"
)

// Registration errors. The typed errors below unwrap to these sentinels so
// callers can match with errors.Is and read details with errors.As.
var (
	ErrMissingField      = errors.New("missing required field")
	ErrDuplicateID       = errors.New("duplicate entity id")
	ErrCollision         = errors.New("minted id collides with an existing entity")
	ErrFileNotFound      = errors.New("file not found")
	ErrDanglingReference = errors.New("dangling reference")
	ErrInvalidRelation   = errors.New("relation not allowed for entity kind")
	ErrInvalidPath       = errors.New("path is outside the crate")
	ErrDestinationExists = errors.New("destination file already exists")
	ErrUnknownKind       = errors.New("unknown entity kind")
	ErrInvalidValue      = errors.New("invalid field value")
	ErrEntityNotFound    = errors.New("entity not found")
)

// Manifest lifecycle errors.
var (
	ErrNotInitialized     = errors.New("crate is not initialized")
	ErrAlreadyInitialized = errors.New("crate is already initialized")
	ErrCorruptManifest    = errors.New("manifest is corrupt")
)

// Schema binding errors.
var (
	ErrInvalidSchemaDocument = errors.New("invalid schema document")
	ErrNoSchemaFound         = errors.New("no schema found")
)

// ErrMetadataNotFound is returned by the DOI resolver when no provider
// has metadata for the DOI.
var ErrMetadataNotFound = errors.New("metadata not found")

// MissingFieldError names the required attribute that was empty.
type MissingFieldError struct {
	Kind  Kind
	Field string
}

func (e *MissingFieldError) Error() string {
	return fmt.Sprintf("%s: %s requires %q", ErrMissingField, e.Kind, e.Field)
}

func (e *MissingFieldError) Unwrap() error { return ErrMissingField }

// DuplicateIDError is returned when a supplied guid is already in the graph.
type DuplicateIDError struct {
	ID string
}

func (e *DuplicateIDError) Error() string {
	return fmt.Sprintf("%s: %q", ErrDuplicateID, e.ID)
}

func (e *DuplicateIDError) Unwrap() error { return ErrDuplicateID }

// CollisionError is returned when a minted id already exists. Callers retry
// after the timestamp advances or supply an explicit guid.
type CollisionError struct {
	ID string
}

func (e *CollisionError) Error() string {
	return fmt.Sprintf("%s: %q", ErrCollision, e.ID)
}

func (e *CollisionError) Unwrap() error { return ErrCollision }

// FileNotFoundError carries the crate-relative path that does not exist.
type FileNotFoundError struct {
	Path string
}

func (e *FileNotFoundError) Error() string {
	return fmt.Sprintf("%s: %q", ErrFileNotFound, e.Path)
}

func (e *FileNotFoundError) Unwrap() error { return ErrFileNotFound }

// DanglingReferenceError names the edge type and the id missing from the graph.
type DanglingReferenceError struct {
	Relation  Relation
	MissingID string
}

func (e *DanglingReferenceError) Error() string {
	return fmt.Sprintf("%s: %s -> %q", ErrDanglingReference, e.Relation, e.MissingID)
}

func (e *DanglingReferenceError) Unwrap() error { return ErrDanglingReference }

// NotInitializedError signals that the crate has no manifest; run init.
type NotInitializedError struct {
	Path string
}

func (e *NotInitializedError) Error() string {
	return fmt.Sprintf("%s: no %s in %s", ErrNotInitialized, ManifestFileName, e.Path)
}

func (e *NotInitializedError) Unwrap() error { return ErrNotInitialized }

// AlreadyInitializedError is returned by init when a manifest exists.
type AlreadyInitializedError struct {
	Path string
}

func (e *AlreadyInitializedError) Error() string {
	return fmt.Sprintf("%s: %s exists in %s", ErrAlreadyInitialized, ManifestFileName, e.Path)
}

func (e *AlreadyInitializedError) Unwrap() error { return ErrAlreadyInitialized }

// CorruptManifestError wraps the parse failure of a present manifest.
type CorruptManifestError struct {
	Path string
	Err  error
}

func (e *CorruptManifestError) Error() string {
	return fmt.Sprintf("%s: %s: %v", ErrCorruptManifest, e.Path, e.Err)
}

// Unwrap exposes both the sentinel and the underlying parse error.
func (e *CorruptManifestError) Unwrap() []error { return []error{ErrCorruptManifest, e.Err} }

// InvalidSchemaDocumentError is returned when an uploaded schema has no
// property mapping or an unreadable one.
type InvalidSchemaDocumentError struct {
	Path   string
	Reason string
}

func (e *InvalidSchemaDocumentError) Error() string {
	return fmt.Sprintf("%s: %s: %s", ErrInvalidSchemaDocument, e.Path, e.Reason)
}

func (e *InvalidSchemaDocumentError) Unwrap() error { return ErrInvalidSchemaDocument }

// NoSchemaFoundError is returned when a crate holds no Schema entities.
type NoSchemaFoundError struct {
	Path string
}

func (e *NoSchemaFoundError) Error() string {
	return fmt.Sprintf("%s in %s", ErrNoSchemaFound, e.Path)
}

func (e *NoSchemaFoundError) Unwrap() error { return ErrNoSchemaFound }

// MetadataNotFoundError is returned when neither DOI provider resolved the DOI.
type MetadataNotFoundError struct {
	DOI string
	Err error
}

func (e *MetadataNotFoundError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s for DOI %q: %v", ErrMetadataNotFound, e.DOI, e.Err)
	}
	return fmt.Sprintf("%s for DOI %q", ErrMetadataNotFound, e.DOI)
}

func (e *MetadataNotFoundError) Unwrap() error { return ErrMetadataNotFound }

// IsUserError reports whether err belongs to the engine's error taxonomy,
// meaning the caller can fix the input and retry. Other errors (disk,
// permissions) are system errors.
func IsUserError(err error) bool {
	for _, target := range []error{
		ErrMissingField, ErrDuplicateID, ErrCollision, ErrFileNotFound,
		ErrDanglingReference, ErrInvalidRelation, ErrInvalidPath,
		ErrDestinationExists, ErrUnknownKind, ErrInvalidValue, ErrEntityNotFound,
		ErrNotInitialized, ErrAlreadyInitialized, ErrCorruptManifest,
		ErrInvalidSchemaDocument, ErrNoSchemaFound, ErrMetadataNotFound,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
