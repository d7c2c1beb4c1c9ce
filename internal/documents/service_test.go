package documents

import (
	"context"
	"errors"
	"testing"
	"time"

	"docflow-backend/internal/users"
)

type countingRepo struct {
	*MemoryRepo
	gets int
}

func (r *countingRepo) GetByID(ctx context.Context, userID, documentID string) (Document, error) {
	r.gets++
	return r.MemoryRepo.GetByID(ctx, userID, documentID)
}

func TestServiceGetUsesCacheAndKeepsOwnerScope(t *testing.T) {
	repo := &countingRepo{MemoryRepo: NewMemoryRepo()}
	svc := NewService(repo, nil, 8, time.Minute)
	ctx := context.Background()
	saved, _ := repo.Save(ctx, Document{UserID: "u1", FileName: "a.pdf"})

	for i := 0; i < 3; i++ {
		if _, err := svc.Get(ctx, "u1", saved.ID); err != nil {
			t.Fatalf("Get: %v", err)
		}
	}
	if repo.gets != 1 {
		t.Fatalf("expected one repo lookup, got %d", repo.gets)
	}
	if _, err := svc.Get(ctx, "u2", saved.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for foreign owner, got %v", err)
	}
}

func TestServiceWithoutCache(t *testing.T) {
	repo := &countingRepo{MemoryRepo: NewMemoryRepo()}
	svc := NewService(repo, nil, 0, 0)
	ctx := context.Background()
	saved, _ := repo.Save(ctx, Document{UserID: "u1"})
	svc.Remember(saved)
	_, _ = svc.Get(ctx, "u1", saved.ID)
	_, _ = svc.Get(ctx, "u1", saved.ID)
	if repo.gets != 2 {
		t.Fatalf("expected every lookup to hit the repo, got %d", repo.gets)
	}
}

func TestServiceAllAttachesOwners(t *testing.T) {
	repo := NewMemoryRepo()
	userRepo := users.NewMemoryRepo()
	ctx := context.Background()
	_ = userRepo.Upsert(ctx, users.User{ID: "u1", Email: "one@example.com", FullName: "One"})
	_, _ = repo.Save(ctx, Document{UserID: "u1", FileName: "a.pdf", Summary: "secret"})
	_, _ = repo.Save(ctx, Document{UserID: "ghost", FileName: "b.pdf"})

	svc := NewService(repo, users.NewService(userRepo), 0, 0)
	items, err := svc.All(ctx)
	if err != nil {
		t.Fatalf("All: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("expected 2 items, got %d", len(items))
	}
	if items[0].Owner != nil {
		t.Fatalf("expected no owner for unknown user")
	}
	if items[1].Owner == nil || items[1].Owner.FullName != "One" {
		t.Fatalf("expected owner One, got %+v", items[1].Owner)
	}
	if items[1].Summary != "" {
		t.Fatalf("listing leaked summary")
	}
}

func TestServiceListRequiresUser(t *testing.T) {
	svc := NewService(NewMemoryRepo(), nil, 0, 0)
	if _, err := svc.List(context.Background(), "", 10, 0); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}
