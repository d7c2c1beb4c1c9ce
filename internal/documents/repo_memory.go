package documents

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryRepo is an in-memory implementation of DocumentsRepo.
type MemoryRepo struct {
	mu   sync.RWMutex
	docs []Document // insertion order
	now  func() time.Time
}

var _ DocumentsRepo = (*MemoryRepo)(nil)

// NewMemoryRepo constructs a MemoryRepo.
func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{now: func() time.Time { return time.Now().UTC() }}
}

// Save appends doc. CreatedAt is clamped so it never goes backwards.
func (r *MemoryRepo) Save(ctx context.Context, doc Document) (Document, error) {
	if err := ctx.Err(); err != nil {
		return Document{}, err
	}
	if doc.ID == "" {
		doc.ID = uuid.NewString()
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if doc.CreatedAt.IsZero() {
		doc.CreatedAt = r.now()
	}
	if n := len(r.docs); n > 0 && doc.CreatedAt.Before(r.docs[n-1].CreatedAt) {
		doc.CreatedAt = r.docs[n-1].CreatedAt
	}
	for i := range r.docs {
		if r.docs[i].ID == doc.ID {
			return Document{}, ErrInvalidInput
		}
	}
	doc = cloneDocument(doc)
	r.docs = append(r.docs, doc)
	return cloneDocument(doc), nil
}

func (r *MemoryRepo) FindMostRecent(ctx context.Context) (Document, error) {
	if err := ctx.Err(); err != nil {
		return Document{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	if len(r.docs) == 0 {
		return Document{}, ErrNotFound
	}
	return cloneDocument(r.docs[len(r.docs)-1]), nil
}

func (r *MemoryRepo) FindAll(ctx context.Context, projection Projection) ([]Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Document, 0, len(r.docs))
	for i := len(r.docs) - 1; i >= 0; i-- {
		out = append(out, projection.apply(cloneDocument(r.docs[i])))
	}
	return out, nil
}

// GetByID returns a document by ID for a user.
func (r *MemoryRepo) GetByID(ctx context.Context, userID, documentID string) (Document, error) {
	if err := ctx.Err(); err != nil {
		return Document{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	for i := range r.docs {
		if r.docs[i].ID == documentID && r.docs[i].UserID == userID {
			return cloneDocument(r.docs[i]), nil
		}
	}
	return Document{}, ErrNotFound
}

// ListByUser returns documents for a user, newest first, honoring limit/offset.
func (r *MemoryRepo) ListByUser(ctx context.Context, userID string, limit, offset int) ([]Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if offset < 0 {
		offset = 0
	}
	if limit < 0 {
		limit = 0
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	var owned []Document
	for i := len(r.docs) - 1; i >= 0; i-- {
		if r.docs[i].UserID == userID {
			owned = append(owned, r.docs[i])
		}
	}
	if offset >= len(owned) {
		return []Document{}, nil
	}
	end := len(owned)
	if limit > 0 && offset+limit < end {
		end = offset + limit
	}
	out := make([]Document, 0, end-offset)
	for _, doc := range owned[offset:end] {
		out = append(out, cloneDocument(doc))
	}
	return out, nil
}
