package access

import (
	"context"
	"database/sql"
	"fmt"
)

// RestrictionEdge is a (SOP, team) grant record
type RestrictionEdge struct {
	SopID  int64
	TeamID int64
}

// RunRef carries the fields of a run that visibility depends on
type RunRef struct {
	ID      int64
	SopID   int64
	OwnerID int64
}

// SuggestionRef carries the fields of a suggestion that visibility depends on
type SuggestionRef struct {
	ID    int64
	SopID int64
}

// querier is satisfied by *sql.DB and *sql.Tx, so the engine can run all
// reads of one decision inside a single transaction.
type querier interface {
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
}

// Store reads and writes the membership and restriction edge sets
type Store struct {
	db *sql.DB
}

// NewStore creates a new edge store
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// TeamsOf returns the set of team IDs the user belongs to. An empty set is a
// valid result, not an error.
func (s *Store) TeamsOf(ctx context.Context, userID int64) (map[int64]bool, error) {
	return teamsOf(ctx, s.db, userID)
}

// TeamsAllowedFor returns the set of team IDs explicitly granted on the SOP.
// An empty set means the SOP is unrestricted.
func (s *Store) TeamsAllowedFor(ctx context.Context, sopID int64) (map[int64]bool, error) {
	return teamsAllowedFor(ctx, s.db, sopID)
}

// RestrictionEdges returns the full restriction edge set in one read. The
// collection filter uses this instead of one TeamsAllowedFor query per SOP.
func (s *Store) RestrictionEdges(ctx context.Context) ([]RestrictionEdge, error) {
	return restrictionEdges(ctx, s.db)
}

// AddMembership records a (user, team) edge. Assigning an existing edge is a
// no-op success.
func (s *Store) AddMembership(ctx context.Context, userID, teamID int64) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO user_teams (user_id, team_id)
		VALUES ($1, $2)
		ON CONFLICT (user_id, team_id) DO NOTHING
	`, userID, teamID)
	if err != nil {
		return fmt.Errorf("failed to add membership: %w", err)
	}
	return nil
}

// AddRestriction records a (sop, team) edge. Assigning an existing edge is a
// no-op success.
func (s *Store) AddRestriction(ctx context.Context, sopID, teamID int64) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO sop_allowed_teams (sop_id, team_id)
		VALUES ($1, $2)
		ON CONFLICT (sop_id, team_id) DO NOTHING
	`, sopID, teamID)
	if err != nil {
		return fmt.Errorf("failed to add restriction: %w", err)
	}
	return nil
}

func teamsOf(ctx context.Context, q querier, userID int64) (map[int64]bool, error) {
	rows, err := q.QueryContext(ctx, `SELECT team_id FROM user_teams WHERE user_id = $1`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to read memberships: %w", err)
	}
	defer rows.Close()

	teams := make(map[int64]bool)
	for rows.Next() {
		var teamID int64
		if err := rows.Scan(&teamID); err != nil {
			return nil, fmt.Errorf("failed to scan membership: %w", err)
		}
		teams[teamID] = true
	}
	return teams, rows.Err()
}

func teamsAllowedFor(ctx context.Context, q querier, sopID int64) (map[int64]bool, error) {
	rows, err := q.QueryContext(ctx, `SELECT team_id FROM sop_allowed_teams WHERE sop_id = $1`, sopID)
	if err != nil {
		return nil, fmt.Errorf("failed to read restrictions: %w", err)
	}
	defer rows.Close()

	teams := make(map[int64]bool)
	for rows.Next() {
		var teamID int64
		if err := rows.Scan(&teamID); err != nil {
			return nil, fmt.Errorf("failed to scan restriction: %w", err)
		}
		teams[teamID] = true
	}
	return teams, rows.Err()
}

func restrictionEdges(ctx context.Context, q querier) ([]RestrictionEdge, error) {
	rows, err := q.QueryContext(ctx, `SELECT sop_id, team_id FROM sop_allowed_teams`)
	if err != nil {
		return nil, fmt.Errorf("failed to read restriction edges: %w", err)
	}
	defer rows.Close()

	var edges []RestrictionEdge
	for rows.Next() {
		var edge RestrictionEdge
		if err := rows.Scan(&edge.SopID, &edge.TeamID); err != nil {
			return nil, fmt.Errorf("failed to scan restriction edge: %w", err)
		}
		edges = append(edges, edge)
	}
	return edges, rows.Err()
}

func allSopIDs(ctx context.Context, q querier) ([]int64, error) {
	rows, err := q.QueryContext(ctx, `SELECT id FROM sops ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to read sop ids: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan sop id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func runRefs(ctx context.Context, q querier) ([]RunRef, error) {
	rows, err := q.QueryContext(ctx, `SELECT id, sop_id, user_id FROM runs ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to read run refs: %w", err)
	}
	defer rows.Close()

	var refs []RunRef
	for rows.Next() {
		var ref RunRef
		if err := rows.Scan(&ref.ID, &ref.SopID, &ref.OwnerID); err != nil {
			return nil, fmt.Errorf("failed to scan run ref: %w", err)
		}
		refs = append(refs, ref)
	}
	return refs, rows.Err()
}

func suggestionRefs(ctx context.Context, q querier) ([]SuggestionRef, error) {
	rows, err := q.QueryContext(ctx, `SELECT id, sop_id FROM suggestions ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to read suggestion refs: %w", err)
	}
	defer rows.Close()

	var refs []SuggestionRef
	for rows.Next() {
		var ref SuggestionRef
		if err := rows.Scan(&ref.ID, &ref.SopID); err != nil {
			return nil, fmt.Errorf("failed to scan suggestion ref: %w", err)
		}
		refs = append(refs, ref)
	}
	return refs, rows.Err()
}
