package ingest

import "errors"

var (
	// ErrInvalidInput reports missing or unresolvable request data.
	ErrInvalidInput = errors.New("invalid input")
	// ErrStorage reports a failed write to the object store.
	ErrStorage = errors.New("storage failure")
	// ErrPersistence reports a failed repository write or lookup.
	ErrPersistence = errors.New("persistence failure")
	// ErrNoDocumentAvailable is returned when there is no text to answer from.
	ErrNoDocumentAvailable = errors.New("no document available")
	// ErrQueryUnsupported is returned when no extractor can answer document queries.
	ErrQueryUnsupported = errors.New("document queries not supported")
)
