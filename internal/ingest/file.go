package ingest

import (
	"io"

	"docflow-backend/internal/enrich"
)

// UploadedFile is one file handed to the pipeline. Size is -1 when unknown.
type UploadedFile struct {
	Name        string
	Size        int64
	ContentType string
	Content     io.Reader
}

// StoredObject names a file that already sits in the object store,
// typically uploaded through a presigned URL.
type StoredObject struct {
	Key         string
	FileName    string
	ContentType string
	Size        int64
}

// Options parameterizes one pipeline run.
type Options struct {
	Summarize      bool
	SuggestQueries bool
	// FileByCategory copies the stored object to "<Category>/<key>" after enrichment.
	FileByCategory bool
}

// FullOptions is the upload route: every enrichment field, no filing.
func FullOptions() Options {
	return Options{Summarize: true, SuggestQueries: true}
}

// CategorizeOptions is the batch route: category only, filed by category.
func CategorizeOptions() Options {
	return Options{FileByCategory: true}
}

func (o Options) enrichOptions() enrich.Options {
	return enrich.Options{Summarize: o.Summarize, SuggestQueries: o.SuggestQueries}
}

// ExtractResult is the outcome of the store-and-extract route.
type ExtractResult struct {
	StorageKey    string
	FileName      string
	FileSize      int64
	FileType      string
	ExtractedText string
}

// QueryResult is the outcome of the store-and-query route. Found is false
// when the fallback answer was used.
type QueryResult struct {
	StorageKey string
	FileName   string
	Question   string
	Answer     string
	Found      bool
}
