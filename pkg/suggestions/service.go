package suggestions

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/opsfloor/sophub/pkg/access"
	"github.com/opsfloor/sophub/pkg/auth"
	"github.com/opsfloor/sophub/pkg/sops"
)

// Service manages improvement suggestions. Team visibility is enforced at
// creation and in listing; status review is gated by role alone, so a
// reviewer can settle suggestions on SOPs they cannot see.
type Service struct {
	store    *Store
	sopStore *sops.Store
	engine   *access.Engine
}

// NewService creates a suggestion service
func NewService(db *sql.DB, engine *access.Engine) *Service {
	return &Service{
		store:    NewStore(db),
		sopStore: sops.NewStore(db),
		engine:   engine,
	}
}

// Store exposes the underlying store
func (s *Service) Store() *Store {
	return s.store
}

// Create files a queued suggestion against the SOP with the given key
func (s *Service) Create(ctx context.Context, identity auth.Identity, sopKey, rawText string) (*Suggestion, error) {
	sop, err := s.sopStore.GetByKey(ctx, sopKey)
	if err != nil {
		return nil, err
	}
	if err := s.engine.AssertCanView(ctx, identity, sop.ID); err != nil {
		return nil, err
	}
	return s.store.Create(ctx, sop.ID, identity.UserID, rawText)
}

// List returns the suggestions visible to the identity, newest first
func (s *Service) List(ctx context.Context, identity auth.Identity) ([]*Suggestion, error) {
	ids, err := s.engine.VisibleSuggestions(ctx, identity)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve visible suggestions: %w", err)
	}
	return s.store.ListByIDs(ctx, ids)
}

// UpdateStatus moves a suggestion to a reviewer-set status. Role checks
// happen at the route level; there is deliberately no visibility check here.
func (s *Service) UpdateStatus(ctx context.Context, id int64, status string) (*Suggestion, error) {
	if err := s.store.UpdateStatus(ctx, id, status); err != nil {
		return nil, err
	}
	return s.store.Get(ctx, id)
}
