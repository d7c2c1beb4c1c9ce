package similarity

import (
	"context"
	"errors"
)

// ErrNotIndexed is returned when a document has no stored embedding.
var ErrNotIndexed = errors.New("document not indexed")

// Match is one neighbour of a document.
type Match struct {
	DocumentID string
	Score      float64
}

// Index stores one embedding per document and answers nearest-neighbour
// queries scoped to a single owner.
type Index interface {
	Upsert(ctx context.Context, documentID, userID, model string, vec []float32) error
	Nearest(ctx context.Context, userID, documentID string, k int) ([]Match, error)
}
