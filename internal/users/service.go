package users

import (
	"context"
	"errors"
	"strings"

	"docflow-backend/internal/shared/telemetry"
)

// GuestPrefix marks user ids minted from the X-Guest-Id header.
const GuestPrefix = "guest:"

var errNotConfigured = errors.New("users service not configured")

type Service struct {
	Repo Repo
}

func NewService(repo Repo) *Service {
	return &Service{Repo: repo}
}

// UpsertFromAuth persists the user identity from OAuth so documents have a stable owner.
func (s *Service) UpsertFromAuth(ctx context.Context, user User) error {
	if s == nil || s.Repo == nil {
		return errNotConfigured
	}
	if strings.TrimSpace(user.ID) == "" || strings.TrimSpace(user.Email) == "" {
		return errors.New("user id and email are required")
	}
	user.IsGuest = false
	return s.Repo.Upsert(ctx, user)
}

func (s *Service) GetByID(ctx context.Context, userID string) (User, error) {
	if s == nil || s.Repo == nil {
		return User{}, errNotConfigured
	}
	if strings.TrimSpace(userID) == "" {
		return User{}, errors.New("user id is required")
	}
	return s.Repo.GetByID(ctx, userID)
}

// Exists reports whether userID names a stored user.
func (s *Service) Exists(ctx context.Context, userID string) (bool, error) {
	if strings.TrimSpace(userID) == "" {
		return false, nil
	}
	_, err := s.GetByID(ctx, userID)
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// Resolve loads the caller's user record. Unknown guest ids are provisioned
// on first use when allowGuest is set; the auth middleware only admits guests
// in dev-like environments.
func (s *Service) Resolve(ctx context.Context, userID string, allowGuest bool) (User, error) {
	user, err := s.GetByID(ctx, userID)
	if err == nil || !errors.Is(err, ErrNotFound) {
		return user, err
	}
	if !allowGuest || !strings.HasPrefix(userID, GuestPrefix) {
		return User{}, err
	}
	guest := User{ID: userID, IsGuest: true}
	if err := s.Repo.Upsert(ctx, guest); err != nil {
		return User{}, err
	}
	telemetry.Info("users.guest_provisioned", map[string]any{"user_id": userID})
	return s.Repo.GetByID(ctx, userID)
}

// Owners returns owner projections for the given ids; missing users are omitted.
func (s *Service) Owners(ctx context.Context, ids []string) (map[string]Owner, error) {
	if s == nil || s.Repo == nil {
		return nil, errNotConfigured
	}
	seen := make(map[string]struct{}, len(ids))
	unique := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok || id == "" {
			continue
		}
		seen[id] = struct{}{}
		unique = append(unique, id)
	}
	found, err := s.Repo.GetMany(ctx, unique)
	if err != nil {
		return nil, err
	}
	out := make(map[string]Owner, len(found))
	for id, user := range found {
		out[id] = user.Owner()
	}
	return out, nil
}
