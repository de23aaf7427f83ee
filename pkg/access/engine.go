package access

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/opsfloor/sophub/pkg/auth"
	"github.com/opsfloor/sophub/pkg/observability"
)

// ErrForbidden is returned by AssertCanView when the identity may not see the
// SOP. Its message is what the HTTP layer surfaces with a 403.
var ErrForbidden = errors.New("SOP not assigned to your teams")

// Engine decides visibility for (identity, resource) pairs. It holds no
// entity state; every decision is recomputed from the edge sets per call.
type Engine struct {
	db      *sql.DB
	store   *Store
	metrics *observability.Metrics
}

// NewEngine creates a new access decision engine
func NewEngine(db *sql.DB) *Engine {
	return &Engine{db: db, store: NewStore(db)}
}

// WithMetrics attaches decision metrics to the engine
func (e *Engine) WithMetrics(m *observability.Metrics) *Engine {
	e.metrics = m
	return e
}

// Store exposes the engine's edge store for assignment operations
func (e *Engine) Store() *Store {
	return e.store
}

// CanView reports whether the identity may view the SOP. Store errors
// propagate; a backend failure is never folded into a false.
func (e *Engine) CanView(ctx context.Context, identity auth.Identity, sopID int64) (bool, error) {
	start := time.Now()
	allowed, err := e.canView(ctx, identity, sopID)
	e.observe("sop", allowed, err, start)
	return allowed, err
}

func (e *Engine) canView(ctx context.Context, identity auth.Identity, sopID int64) (bool, error) {
	if identity.IsAdmin() {
		return true, nil
	}

	tx, err := e.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("failed to begin access read: %w", err)
	}
	defer tx.Rollback()

	userTeams, err := teamsOf(ctx, tx, identity.UserID)
	if err != nil {
		return false, err
	}
	allowed, err := teamsAllowedFor(ctx, tx, sopID)
	if err != nil {
		return false, err
	}

	// No restriction edges at all means the SOP is open to every
	// authenticated user. This holds even for a user with no team
	// memberships, so the single-item and bulk paths agree.
	if len(allowed) == 0 {
		return true, nil
	}
	for teamID := range userTeams {
		if allowed[teamID] {
			return true, nil
		}
	}
	return false, nil
}

// AssertCanView is the enforcement wrapper used by point reads and mutations.
// It returns ErrForbidden on a denial and passes store errors through.
func (e *Engine) AssertCanView(ctx context.Context, identity auth.Identity, sopID int64) error {
	allowed, err := e.CanView(ctx, identity, sopID)
	if err != nil {
		return err
	}
	if !allowed {
		return ErrForbidden
	}
	return nil
}

// VisibleSops returns the IDs of all SOPs the identity may view, ascending.
func (e *Engine) VisibleSops(ctx context.Context, identity auth.Identity) ([]int64, error) {
	tx, err := e.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin access read: %w", err)
	}
	defer tx.Rollback()

	return e.visibleSops(ctx, tx, identity)
}

func (e *Engine) visibleSops(ctx context.Context, tx *sql.Tx, identity auth.Identity) ([]int64, error) {
	all, err := allSopIDs(ctx, tx)
	if err != nil {
		return nil, err
	}
	if identity.IsAdmin() {
		return all, nil
	}

	userTeams, err := teamsOf(ctx, tx, identity.UserID)
	if err != nil {
		return nil, err
	}
	edges, err := restrictionEdges(ctx, tx)
	if err != nil {
		return nil, err
	}

	restricted := make(map[int64]bool)
	granted := make(map[int64]bool)
	for _, edge := range edges {
		restricted[edge.SopID] = true
		if userTeams[edge.TeamID] {
			granted[edge.SopID] = true
		}
	}

	// Explicitly granted SOPs plus every SOP with no restriction at all.
	// The unrestricted set is always unioned in, matching CanView.
	visible := make([]int64, 0, len(all))
	for _, id := range all {
		if granted[id] || !restricted[id] {
			visible = append(visible, id)
		}
	}
	return visible, nil
}

// VisibleRuns returns the IDs of all runs the identity may view, ascending.
// A run's owner always sees it, independent of team visibility on the SOP.
func (e *Engine) VisibleRuns(ctx context.Context, identity auth.Identity) ([]int64, error) {
	tx, err := e.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin access read: %w", err)
	}
	defer tx.Rollback()

	sops, err := e.visibleSops(ctx, tx, identity)
	if err != nil {
		return nil, err
	}
	sopSet := toSet(sops)

	refs, err := runRefs(ctx, tx)
	if err != nil {
		return nil, err
	}

	visible := make([]int64, 0, len(refs))
	for _, ref := range refs {
		if sopSet[ref.SopID] || ref.OwnerID == identity.UserID {
			visible = append(visible, ref.ID)
		}
	}
	return visible, nil
}

// VisibleSuggestions returns the IDs of all suggestions the identity may
// view, ascending. There is no owner override for suggestions.
func (e *Engine) VisibleSuggestions(ctx context.Context, identity auth.Identity) ([]int64, error) {
	tx, err := e.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin access read: %w", err)
	}
	defer tx.Rollback()

	sops, err := e.visibleSops(ctx, tx, identity)
	if err != nil {
		return nil, err
	}
	sopSet := toSet(sops)

	refs, err := suggestionRefs(ctx, tx)
	if err != nil {
		return nil, err
	}

	visible := make([]int64, 0, len(refs))
	for _, ref := range refs {
		if sopSet[ref.SopID] {
			visible = append(visible, ref.ID)
		}
	}
	return visible, nil
}

func (e *Engine) observe(kind string, allowed bool, err error, start time.Time) {
	if e.metrics == nil {
		return
	}
	if err != nil {
		e.metrics.AccessCheckErrors.Inc()
		return
	}
	outcome := "deny"
	if allowed {
		outcome = "allow"
	}
	e.metrics.AccessChecksTotal.WithLabelValues(kind, outcome).Inc()
	e.metrics.AccessCheckDuration.WithLabelValues(kind).Observe(time.Since(start).Seconds())
}

func toSet(ids []int64) map[int64]bool {
	set := make(map[int64]bool, len(ids))
	for _, id := range ids {
		set[id] = true
	}
	return set
}
