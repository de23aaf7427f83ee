package sops

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

var (
	// ErrSopNotFound is returned when a SOP does not exist
	ErrSopNotFound = errors.New("SOP not found")
	// ErrSopKeyExists is returned when creating a SOP with a taken key
	ErrSopKeyExists = errors.New("SOP key already exists")
)

const sopColumns = "id, sop_key, title, department, status, version, content_md, content_json, created_at, updated_at"

// Store provides SOP persistence
type Store struct {
	db *sql.DB
}

// NewStore creates a SOP store
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

func scanSop(row interface{ Scan(...interface{}) error }) (*Sop, error) {
	sop := &Sop{}
	var contentMD sql.NullString
	var contentJSON []byte
	err := row.Scan(&sop.ID, &sop.SopKey, &sop.Title, &sop.Department, &sop.Status,
		&sop.Version, &contentMD, &contentJSON, &sop.CreatedAt, &sop.UpdatedAt)
	if err != nil {
		return nil, err
	}
	sop.ContentMD = contentMD.String
	if len(contentJSON) > 0 {
		sop.ContentJSON = json.RawMessage(contentJSON)
	}
	return sop, nil
}

// Create inserts a new draft SOP
func (s *Store) Create(ctx context.Context, sop *Sop) error {
	var exists bool
	err := s.db.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM sops WHERE sop_key = $1)`, sop.SopKey).Scan(&exists)
	if err != nil {
		return fmt.Errorf("failed to check SOP key: %w", err)
	}
	if exists {
		return ErrSopKeyExists
	}

	now := time.Now().UTC()
	sop.Status = StatusDraft
	sop.Version = 1
	sop.CreatedAt = now
	sop.UpdatedAt = now

	err = s.db.QueryRowContext(ctx, `
		INSERT INTO sops (sop_key, title, department, status, version, content_md, content_json, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id
	`, sop.SopKey, sop.Title, sop.Department, sop.Status, sop.Version,
		sop.ContentMD, nullableJSON(sop.ContentJSON), sop.CreatedAt, sop.UpdatedAt).Scan(&sop.ID)
	if err != nil {
		return fmt.Errorf("failed to create SOP: %w", err)
	}
	return nil
}

// GetByKey retrieves a SOP by its business key
func (s *Store) GetByKey(ctx context.Context, key string) (*Sop, error) {
	sop, err := scanSop(s.db.QueryRowContext(ctx,
		`SELECT `+sopColumns+` FROM sops WHERE sop_key = $1`, key))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrSopNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get SOP: %w", err)
	}
	return sop, nil
}

// GetByID retrieves a SOP by internal ID
func (s *Store) GetByID(ctx context.Context, id int64) (*Sop, error) {
	sop, err := scanSop(s.db.QueryRowContext(ctx,
		`SELECT `+sopColumns+` FROM sops WHERE id = $1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrSopNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get SOP: %w", err)
	}
	return sop, nil
}

// ListByIDs retrieves SOPs for the given IDs, ordered by sop_key. A nil or
// empty ID list yields an empty result.
func (s *Store) ListByIDs(ctx context.Context, ids []int64) ([]*Sop, error) {
	if len(ids) == 0 {
		return []*Sop{}, nil
	}

	// database/sql has no array bind portable across drivers; build the
	// placeholder list.
	placeholders := ""
	args := make([]interface{}, len(ids))
	for i, id := range ids {
		if i > 0 {
			placeholders += ", "
		}
		placeholders += fmt.Sprintf("$%d", i+1)
		args[i] = id
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT `+sopColumns+` FROM sops WHERE id IN (`+placeholders+`) ORDER BY sop_key ASC`, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list SOPs: %w", err)
	}
	defer rows.Close()

	var result []*Sop
	for rows.Next() {
		sop, err := scanSop(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan SOP: %w", err)
		}
		result = append(result, sop)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate SOPs: %w", err)
	}
	return result, nil
}

// UpdateContent replaces a SOP's title and content and bumps the version
func (s *Store) UpdateContent(ctx context.Context, sop *Sop) error {
	sop.Version++
	sop.UpdatedAt = time.Now().UTC()

	result, err := s.db.ExecContext(ctx, `
		UPDATE sops
		SET title = $1, department = $2, content_md = $3, content_json = $4, version = $5, updated_at = $6
		WHERE id = $7
	`, sop.Title, sop.Department, sop.ContentMD, nullableJSON(sop.ContentJSON),
		sop.Version, sop.UpdatedAt, sop.ID)
	if err != nil {
		return fmt.Errorf("failed to update SOP: %w", err)
	}
	return requireRow(result)
}

// Publish marks a SOP published and bumps the version
func (s *Store) Publish(ctx context.Context, sop *Sop) error {
	sop.Status = StatusPublished
	sop.Version++
	sop.UpdatedAt = time.Now().UTC()

	result, err := s.db.ExecContext(ctx, `
		UPDATE sops
		SET status = $1, version = $2, updated_at = $3
		WHERE id = $4
	`, sop.Status, sop.Version, sop.UpdatedAt, sop.ID)
	if err != nil {
		return fmt.Errorf("failed to publish SOP: %w", err)
	}
	return requireRow(result)
}

// Delete removes a SOP and, via cascade, its edges, runs, and suggestions
func (s *Store) Delete(ctx context.Context, id int64) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM sops WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete SOP: %w", err)
	}
	return requireRow(result)
}

// Count returns the number of SOPs, used for the sops_total gauge
func (s *Store) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM sops`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count SOPs: %w", err)
	}
	return n, nil
}

func requireRow(result sql.Result) error {
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rows affected: %w", err)
	}
	if affected == 0 {
		return ErrSopNotFound
	}
	return nil
}

func nullableJSON(raw json.RawMessage) interface{} {
	if len(raw) == 0 {
		return nil
	}
	return []byte(raw)
}
