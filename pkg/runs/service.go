package runs

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/opsfloor/sophub/pkg/access"
	"github.com/opsfloor/sophub/pkg/auth"
	"github.com/opsfloor/sophub/pkg/sops"
)

// Service manages SOP runs. Starting, checking, and completing a run all
// require visibility of the parent SOP; reading a run is additionally allowed
// to its owner even after their team access is revoked.
type Service struct {
	store    *Store
	sopStore *sops.Store
	engine   *access.Engine
}

// NewService creates a run service
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

// Start begins a run of the SOP with the given key
func (s *Service) Start(ctx context.Context, identity auth.Identity, sopKey string) (*Run, error) {
	sop, err := s.sopStore.GetByKey(ctx, sopKey)
	if err != nil {
		return nil, err
	}
	if err := s.engine.AssertCanView(ctx, identity, sop.ID); err != nil {
		return nil, err
	}
	return s.store.Create(ctx, sop.ID, identity.UserID)
}

// Get retrieves a run. The owner may always read their own run; anyone else
// needs visibility of the parent SOP.
func (s *Service) Get(ctx context.Context, identity auth.Identity, id int64) (*Run, error) {
	run, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if run.UserID == identity.UserID {
		return run, nil
	}
	if err := s.engine.AssertCanView(ctx, identity, run.SopID); err != nil {
		return nil, err
	}
	return run, nil
}

// List returns the runs visible to the identity, newest first
func (s *Service) List(ctx context.Context, identity auth.Identity) ([]*Run, error) {
	ids, err := s.engine.VisibleRuns(ctx, identity)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve visible runs: %w", err)
	}
	return s.store.ListByIDs(ctx, ids)
}

// CheckStep records a checklist step check on an open run
func (s *Service) CheckStep(ctx context.Context, identity auth.Identity, runID int64, stepNo int) (*RunStep, error) {
	run, err := s.store.Get(ctx, runID)
	if err != nil {
		return nil, err
	}
	if err := s.engine.AssertCanView(ctx, identity, run.SopID); err != nil {
		return nil, err
	}
	if run.Completed() {
		return nil, ErrRunCompleted
	}
	return s.store.CheckStep(ctx, runID, stepNo)
}

// Complete closes out an open run with an outcome
func (s *Service) Complete(ctx context.Context, identity auth.Identity, runID int64, passed bool, exceptionNote string) (*Run, error) {
	run, err := s.store.Get(ctx, runID)
	if err != nil {
		return nil, err
	}
	if err := s.engine.AssertCanView(ctx, identity, run.SopID); err != nil {
		return nil, err
	}
	if err := s.store.Complete(ctx, runID, passed, exceptionNote); err != nil {
		return nil, err
	}
	return s.store.Get(ctx, runID)
}
