package sops

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/opsfloor/sophub/pkg/access"
	"github.com/opsfloor/sophub/pkg/auth"
)

// Service layers team visibility on top of the SOP store. Point reads check
// existence before access, so a missing key reads as not-found while a
// restricted one reads as forbidden. That tells an unauthorized caller the
// key exists; the trade-off is accepted to keep the two failures
// distinguishable.
type Service struct {
	store  *Store
	engine *access.Engine
}

// NewService creates a SOP service
func NewService(db *sql.DB, engine *access.Engine) *Service {
	return &Service{
		store:  NewStore(db),
		engine: engine,
	}
}

// Store exposes the underlying store
func (s *Service) Store() *Store {
	return s.store
}

// CreateInput carries the fields for a new SOP
type CreateInput struct {
	SopKey      string          `json:"sop_key"`
	Title       string          `json:"title"`
	Department  string          `json:"department"`
	ContentMD   string          `json:"content_md"`
	ContentJSON json.RawMessage `json:"content_json,omitempty"`
}

// UpdateInput carries the fields for a content update
type UpdateInput struct {
	Title       string          `json:"title"`
	Department  string          `json:"department"`
	ContentMD   string          `json:"content_md"`
	ContentJSON json.RawMessage `json:"content_json,omitempty"`
}

// Create inserts a new draft SOP. Role checks happen at the route level.
func (s *Service) Create(ctx context.Context, input CreateInput) (*Sop, error) {
	sop := &Sop{
		SopKey:      input.SopKey,
		Title:       input.Title,
		Department:  input.Department,
		ContentMD:   input.ContentMD,
		ContentJSON: input.ContentJSON,
	}
	if err := s.store.Create(ctx, sop); err != nil {
		return nil, err
	}
	return sop, nil
}

// Get retrieves a SOP by key for the given identity
func (s *Service) Get(ctx context.Context, identity auth.Identity, key string) (*Sop, error) {
	sop, err := s.store.GetByKey(ctx, key)
	if err != nil {
		return nil, err
	}
	if err := s.engine.AssertCanView(ctx, identity, sop.ID); err != nil {
		return nil, err
	}
	return sop, nil
}

// List returns the SOPs visible to the identity, ordered by key
func (s *Service) List(ctx context.Context, identity auth.Identity) ([]*Sop, error) {
	ids, err := s.engine.VisibleSops(ctx, identity)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve visible SOPs: %w", err)
	}
	return s.store.ListByIDs(ctx, ids)
}

// Update replaces a SOP's content and bumps its version
func (s *Service) Update(ctx context.Context, identity auth.Identity, key string, input UpdateInput) (*Sop, error) {
	sop, err := s.Get(ctx, identity, key)
	if err != nil {
		return nil, err
	}

	sop.Title = input.Title
	sop.Department = input.Department
	sop.ContentMD = input.ContentMD
	sop.ContentJSON = input.ContentJSON

	if err := s.store.UpdateContent(ctx, sop); err != nil {
		return nil, err
	}
	return sop, nil
}

// Publish marks a SOP published and bumps its version
func (s *Service) Publish(ctx context.Context, identity auth.Identity, key string) (*Sop, error) {
	sop, err := s.Get(ctx, identity, key)
	if err != nil {
		return nil, err
	}
	if err := s.store.Publish(ctx, sop); err != nil {
		return nil, err
	}
	return sop, nil
}

// Delete removes a SOP
func (s *Service) Delete(ctx context.Context, identity auth.Identity, key string) error {
	sop, err := s.Get(ctx, identity, key)
	if err != nil {
		return err
	}
	return s.store.Delete(ctx, sop.ID)
}
