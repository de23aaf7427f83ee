package teams

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

var (
	// ErrTeamNotFound is returned when a team does not exist
	ErrTeamNotFound = errors.New("team not found")
	// ErrTeamExists is returned when creating a team with a taken name
	ErrTeamExists = errors.New("team name already exists")
)

// Store provides team persistence
type Store struct {
	db *sql.DB
}

// NewStore creates a team store
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// CreateTeam inserts a new team. Team names are unique.
func (s *Store) CreateTeam(ctx context.Context, name, department string) (*Team, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM teams WHERE name = $1)`, name).Scan(&exists)
	if err != nil {
		return nil, fmt.Errorf("failed to check team name: %w", err)
	}
	if exists {
		return nil, ErrTeamExists
	}

	team := &Team{
		Name:       name,
		Department: department,
		CreatedAt:  time.Now().UTC(),
	}

	err = s.db.QueryRowContext(ctx, `
		INSERT INTO teams (name, department, created_at)
		VALUES ($1, $2, $3)
		RETURNING id
	`, team.Name, team.Department, team.CreatedAt).Scan(&team.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to create team: %w", err)
	}

	return team, nil
}

// GetTeam retrieves a team by ID
func (s *Store) GetTeam(ctx context.Context, id int64) (*Team, error) {
	team := &Team{}
	err := s.db.QueryRowContext(ctx, `
		SELECT id, name, department, created_at
		FROM teams
		WHERE id = $1
	`, id).Scan(&team.ID, &team.Name, &team.Department, &team.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrTeamNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get team: %w", err)
	}
	return team, nil
}

// ListTeams returns all teams ordered by name
func (s *Store) ListTeams(ctx context.Context) ([]*Team, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, department, created_at
		FROM teams
		ORDER BY name ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list teams: %w", err)
	}
	defer rows.Close()

	var result []*Team
	for rows.Next() {
		team := &Team{}
		if err := rows.Scan(&team.ID, &team.Name, &team.Department, &team.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan team: %w", err)
		}
		result = append(result, team)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate teams: %w", err)
	}
	return result, nil
}
