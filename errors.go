package atlas

import "errors"

var (
	// ErrPublicationNotFound is returned when a publication uid does not exist.
	ErrPublicationNotFound = errors.New("atlas: publication not found")

	// ErrUnsupportedFormat is returned for unrecognized file formats.
	ErrUnsupportedFormat = errors.New("atlas: unsupported document format")

	// ErrLoadingFailed is returned when document text extraction fails.
	ErrLoadingFailed = errors.New("atlas: document loading failed")

	// ErrEmptyDocument is returned when a document yields no usable text.
	ErrEmptyDocument = errors.New("atlas: document has no text")

	// ErrNoPublications is returned when graph building finds nothing to process.
	ErrNoPublications = errors.New("atlas: no publications ingested")

	// ErrNoGraph is returned when exporting before any graph has been built.
	ErrNoGraph = errors.New("atlas: no graph built yet")

	// ErrStoreClosed is returned when operating on a closed store.
	ErrStoreClosed = errors.New("atlas: store is closed")

	// ErrInvalidConfig is returned for invalid configuration values.
	ErrInvalidConfig = errors.New("atlas: invalid configuration")
)
