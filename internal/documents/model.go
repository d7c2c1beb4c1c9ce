package documents

import (
	"errors"
	"time"
)

var (
	ErrNotFound     = errors.New("document not found")
	ErrInvalidInput = errors.New("invalid input")
)

// Document is one ingested file with its extracted text and enrichment.
// Records are immutable once saved.
type Document struct {
	ID               string
	UserID           string
	FileName         string
	FileSize         int64
	FileType         string
	StorageProvider  string
	StorageKey       string
	ExtractedText    string
	Category         string
	SubCategory      string
	Summary          string
	SuggestedQueries []string
	CreatedAt        time.Time
}

// Projection selects which columns FindAll loads.
type Projection int

const (
	// ProjectionFull loads every field.
	ProjectionFull Projection = iota
	// ProjectionListing leaves ExtractedText, Summary and SuggestedQueries empty.
	ProjectionListing
)

func (p Projection) apply(doc Document) Document {
	if p == ProjectionListing {
		doc.ExtractedText = ""
		doc.Summary = ""
		doc.SuggestedQueries = nil
	}
	return doc
}

func cloneDocument(doc Document) Document {
	if doc.SuggestedQueries != nil {
		doc.SuggestedQueries = append([]string(nil), doc.SuggestedQueries...)
	}
	return doc
}
