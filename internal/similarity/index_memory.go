package similarity

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"
)

type entry struct {
	userID string
	model  string
	vec    []float32
}

// MemoryIndex is an in-process Index for local runs and tests.
type MemoryIndex struct {
	mu      sync.RWMutex
	entries map[string]entry
}

// NewMemoryIndex constructs an empty MemoryIndex.
func NewMemoryIndex() *MemoryIndex {
	return &MemoryIndex{entries: make(map[string]entry)}
}

// Upsert stores or replaces the embedding of a document.
func (i *MemoryIndex) Upsert(ctx context.Context, documentID, userID, model string, vec []float32) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if len(vec) == 0 {
		return fmt.Errorf("empty embedding for %s", documentID)
	}
	i.mu.Lock()
	defer i.mu.Unlock()
	i.entries[documentID] = entry{userID: userID, model: model, vec: append([]float32(nil), vec...)}
	return nil
}

// Nearest returns up to k documents of userID closest to documentID by cosine similarity.
func (i *MemoryIndex) Nearest(ctx context.Context, userID, documentID string, k int) ([]Match, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	i.mu.RLock()
	defer i.mu.RUnlock()

	source, ok := i.entries[documentID]
	if !ok || source.userID != userID {
		return nil, ErrNotIndexed
	}
	var out []Match
	for id, e := range i.entries {
		if id == documentID || e.userID != userID || len(e.vec) != len(source.vec) {
			continue
		}
		out = append(out, Match{DocumentID: id, Score: cosine(source.vec, e.vec)})
	}
	sort.Slice(out, func(a, b int) bool {
		if out[a].Score == out[b].Score {
			return out[a].DocumentID < out[b].DocumentID
		}
		return out[a].Score > out[b].Score
	})
	if k >= 0 && len(out) > k {
		out = out[:k]
	}
	return out, nil
}

func cosine(a, b []float32) float64 {
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

var _ Index = (*MemoryIndex)(nil)
