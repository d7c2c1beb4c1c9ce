package documents

import (
	"context"
	"fmt"
	"strings"
	"time"

	"docflow-backend/internal/users"
)

// OwnerLookup resolves user ids to their public projection.
type OwnerLookup interface {
	Owners(ctx context.Context, ids []string) (map[string]users.Owner, error)
}

// Service serves read access to stored documents.
type Service struct {
	Repo   DocumentsRepo
	Owners OwnerLookup
	cache  *cache
}

// NewService constructs a Service with a read cache of cacheSize entries.
func NewService(repo DocumentsRepo, owners OwnerLookup, cacheSize int, cacheTTL time.Duration) *Service {
	return &Service{Repo: repo, Owners: owners, cache: newCache(cacheSize, cacheTTL)}
}

// Listing is one entry of the all-documents view.
type Listing struct {
	Document
	Owner *users.Owner
}

// Get returns a document owned by userID.
func (s *Service) Get(ctx context.Context, userID, documentID string) (Document, error) {
	if strings.TrimSpace(userID) == "" || strings.TrimSpace(documentID) == "" {
		return Document{}, fmt.Errorf("%w: user id and document id are required", ErrInvalidInput)
	}
	if doc, ok := s.cache.get(documentID); ok {
		if doc.UserID != userID {
			return Document{}, ErrNotFound
		}
		return doc, nil
	}
	doc, err := s.Repo.GetByID(ctx, userID, documentID)
	if err != nil {
		return Document{}, err
	}
	s.cache.add(doc)
	return doc, nil
}

// Remember primes the read cache with a freshly saved document.
func (s *Service) Remember(doc Document) {
	if s == nil || doc.ID == "" {
		return
	}
	s.cache.add(doc)
}

// List returns the caller's documents, newest first.
func (s *Service) List(ctx context.Context, userID string, limit, offset int) ([]Document, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, fmt.Errorf("%w: user id is required", ErrInvalidInput)
	}
	return s.Repo.ListByUser(ctx, userID, limit, offset)
}

// All returns every document without text, summary or queries, each with
// its owner attached when the owner can be found.
func (s *Service) All(ctx context.Context) ([]Listing, error) {
	docs, err := s.Repo.FindAll(ctx, ProjectionListing)
	if err != nil {
		return nil, err
	}
	owners := map[string]users.Owner{}
	if s.Owners != nil && len(docs) > 0 {
		ids := make([]string, 0, len(docs))
		for _, doc := range docs {
			ids = append(ids, doc.UserID)
		}
		owners, err = s.Owners.Owners(ctx, ids)
		if err != nil {
			return nil, fmt.Errorf("load owners: %w", err)
		}
	}
	out := make([]Listing, 0, len(docs))
	for _, doc := range docs {
		item := Listing{Document: doc}
		if owner, ok := owners[doc.UserID]; ok {
			owner := owner
			item.Owner = &owner
		}
		out = append(out, item)
	}
	return out, nil
}
