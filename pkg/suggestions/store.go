package suggestions

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

var (
	// ErrSuggestionNotFound is returned when a suggestion does not exist
	ErrSuggestionNotFound = errors.New("suggestion not found")
	// ErrInvalidStatus is returned for an unknown status value
	ErrInvalidStatus = errors.New("invalid suggestion status")
	// ErrSuggestionSettled is returned when a summary write finds the
	// suggestion already moved out of the queue by a reviewer
	ErrSuggestionSettled = errors.New("suggestion already settled")
)

const suggestionColumns = "id, sop_id, user_id, raw_text, ai_summary, ai_changeset_json, status, created_at"

// Store provides suggestion persistence
type Store struct {
	db *sql.DB
}

// NewStore creates a suggestion store
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

func scanSuggestion(row interface{ Scan(...interface{}) error }) (*Suggestion, error) {
	s := &Suggestion{}
	var summary sql.NullString
	var changeset []byte
	err := row.Scan(&s.ID, &s.SopID, &s.UserID, &s.RawText, &summary, &changeset,
		&s.Status, &s.CreatedAt)
	if err != nil {
		return nil, err
	}
	s.AISummary = summary.String
	if len(changeset) > 0 {
		s.AIChangesetJSON = json.RawMessage(changeset)
	}
	return s, nil
}

// Create inserts a new queued suggestion
func (s *Store) Create(ctx context.Context, sopID, userID int64, rawText string) (*Suggestion, error) {
	suggestion := &Suggestion{
		SopID:     sopID,
		UserID:    userID,
		RawText:   rawText,
		Status:    StatusQueued,
		CreatedAt: time.Now().UTC(),
	}
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO suggestions (sop_id, user_id, raw_text, status, created_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`, suggestion.SopID, suggestion.UserID, suggestion.RawText,
		suggestion.Status, suggestion.CreatedAt).Scan(&suggestion.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to create suggestion: %w", err)
	}
	return suggestion, nil
}

// Get retrieves a suggestion by ID
func (s *Store) Get(ctx context.Context, id int64) (*Suggestion, error) {
	suggestion, err := scanSuggestion(s.db.QueryRowContext(ctx,
		`SELECT `+suggestionColumns+` FROM suggestions WHERE id = $1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrSuggestionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get suggestion: %w", err)
	}
	return suggestion, nil
}

// ListByIDs retrieves suggestions for the given IDs, newest first
func (s *Store) ListByIDs(ctx context.Context, ids []int64) ([]*Suggestion, error) {
	if len(ids) == 0 {
		return []*Suggestion{}, nil
	}

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
		`SELECT `+suggestionColumns+` FROM suggestions WHERE id IN (`+placeholders+`) ORDER BY created_at DESC, id DESC`,
		args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list suggestions: %w", err)
	}
	defer rows.Close()

	var result []*Suggestion
	for rows.Next() {
		suggestion, err := scanSuggestion(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan suggestion: %w", err)
		}
		result = append(result, suggestion)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate suggestions: %w", err)
	}
	return result, nil
}

// ListQueued returns suggestions still waiting for summarization, oldest first
func (s *Store) ListQueued(ctx context.Context, limit int) ([]*Suggestion, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+suggestionColumns+` FROM suggestions WHERE status = $1 ORDER BY created_at ASC LIMIT $2`,
		StatusQueued, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list queued suggestions: %w", err)
	}
	defer rows.Close()

	var result []*Suggestion
	for rows.Next() {
		suggestion, err := scanSuggestion(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan suggestion: %w", err)
		}
		result = append(result, suggestion)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate suggestions: %w", err)
	}
	return result, nil
}

// UpdateStatus moves a suggestion to a new status
func (s *Store) UpdateStatus(ctx context.Context, id int64, status string) error {
	if !ValidStatus(status) {
		return ErrInvalidStatus
	}
	result, err := s.db.ExecContext(ctx,
		`UPDATE suggestions SET status = $1 WHERE id = $2`, status, id)
	if err != nil {
		return fmt.Errorf("failed to update suggestion status: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rows affected: %w", err)
	}
	if affected == 0 {
		return ErrSuggestionNotFound
	}
	return nil
}

// SetSummary records the worker's summary and moves the suggestion out of the
// queue. Only a still-queued suggestion is updated, so a reviewer decision
// is never overwritten by a late worker; that case reports
// ErrSuggestionSettled, distinct from the row not existing at all.
func (s *Store) SetSummary(ctx context.Context, id int64, summary string, status string) error {
	if !ValidStatus(status) {
		return ErrInvalidStatus
	}
	result, err := s.db.ExecContext(ctx, `
		UPDATE suggestions
		SET ai_summary = $1, status = $2
		WHERE id = $3 AND status = $4
	`, summary, status, id, StatusQueued)
	if err != nil {
		return fmt.Errorf("failed to set suggestion summary: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rows affected: %w", err)
	}
	if affected == 0 {
		var exists bool
		err := s.db.QueryRowContext(ctx,
			"SELECT EXISTS(SELECT 1 FROM suggestions WHERE id = $1)", id).Scan(&exists)
		if err != nil {
			return fmt.Errorf("failed to check suggestion existence: %w", err)
		}
		if exists {
			return ErrSuggestionSettled
		}
		return ErrSuggestionNotFound
	}
	return nil
}
