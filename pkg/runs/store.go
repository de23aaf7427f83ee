package runs

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

var (
	// ErrRunNotFound is returned when a run does not exist
	ErrRunNotFound = errors.New("run not found")
	// ErrRunCompleted is returned when mutating an already-completed run
	ErrRunCompleted = errors.New("run already completed")
)

const runColumns = "id, sop_id, user_id, started_at, completed_at, passed, exception_note"

// Store provides run persistence
type Store struct {
	db *sql.DB
}

// NewStore creates a run store
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

func scanRun(row interface{ Scan(...interface{}) error }) (*Run, error) {
	run := &Run{}
	var completedAt sql.NullTime
	var passed sql.NullBool
	var note sql.NullString
	err := row.Scan(&run.ID, &run.SopID, &run.UserID, &run.StartedAt,
		&completedAt, &passed, &note)
	if err != nil {
		return nil, err
	}
	if completedAt.Valid {
		t := completedAt.Time
		run.CompletedAt = &t
	}
	if passed.Valid {
		p := passed.Bool
		run.Passed = &p
	}
	run.ExceptionNote = note.String
	return run, nil
}

// Create starts a new run of a SOP
func (s *Store) Create(ctx context.Context, sopID, userID int64) (*Run, error) {
	run := &Run{
		SopID:     sopID,
		UserID:    userID,
		StartedAt: time.Now().UTC(),
	}
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO runs (sop_id, user_id, started_at)
		VALUES ($1, $2, $3)
		RETURNING id
	`, run.SopID, run.UserID, run.StartedAt).Scan(&run.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to create run: %w", err)
	}
	return run, nil
}

// Get retrieves a run with its steps
func (s *Store) Get(ctx context.Context, id int64) (*Run, error) {
	run, err := scanRun(s.db.QueryRowContext(ctx,
		`SELECT `+runColumns+` FROM runs WHERE id = $1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrRunNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get run: %w", err)
	}

	steps, err := s.Steps(ctx, id)
	if err != nil {
		return nil, err
	}
	run.Steps = steps
	return run, nil
}

// Steps returns the checked steps of a run in step order
func (s *Store) Steps(ctx context.Context, runID int64) ([]*RunStep, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, run_id, step_no, checked_at
		FROM run_steps
		WHERE run_id = $1
		ORDER BY step_no ASC
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to list run steps: %w", err)
	}
	defer rows.Close()

	var steps []*RunStep
	for rows.Next() {
		step := &RunStep{}
		if err := rows.Scan(&step.ID, &step.RunID, &step.StepNo, &step.CheckedAt); err != nil {
			return nil, fmt.Errorf("failed to scan run step: %w", err)
		}
		steps = append(steps, step)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate run steps: %w", err)
	}
	return steps, nil
}

// CheckStep records that a step was checked. The step row is created on the
// first check; a re-check refreshes its timestamp.
func (s *Store) CheckStep(ctx context.Context, runID int64, stepNo int) (*RunStep, error) {
	now := time.Now().UTC()

	result, err := s.db.ExecContext(ctx, `
		UPDATE run_steps SET checked_at = $1 WHERE run_id = $2 AND step_no = $3
	`, now, runID, stepNo)
	if err != nil {
		return nil, fmt.Errorf("failed to update run step: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("failed to check rows affected: %w", err)
	}

	step := &RunStep{RunID: runID, StepNo: stepNo, CheckedAt: now}
	if affected > 0 {
		err = s.db.QueryRowContext(ctx,
			`SELECT id FROM run_steps WHERE run_id = $1 AND step_no = $2`,
			runID, stepNo).Scan(&step.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to load run step: %w", err)
		}
		return step, nil
	}

	err = s.db.QueryRowContext(ctx, `
		INSERT INTO run_steps (run_id, step_no, checked_at)
		VALUES ($1, $2, $3)
		RETURNING id
	`, runID, stepNo, now).Scan(&step.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to insert run step: %w", err)
	}
	return step, nil
}

// Complete closes out a run
func (s *Store) Complete(ctx context.Context, runID int64, passed bool, exceptionNote string) error {
	now := time.Now().UTC()
	result, err := s.db.ExecContext(ctx, `
		UPDATE runs
		SET completed_at = $1, passed = $2, exception_note = $3
		WHERE id = $4 AND completed_at IS NULL
	`, now, passed, exceptionNote, runID)
	if err != nil {
		return fmt.Errorf("failed to complete run: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rows affected: %w", err)
	}
	if affected == 0 {
		// Either missing or already completed; look to tell apart.
		var exists bool
		if err := s.db.QueryRowContext(ctx,
			`SELECT EXISTS(SELECT 1 FROM runs WHERE id = $1)`, runID).Scan(&exists); err != nil {
			return fmt.Errorf("failed to check run: %w", err)
		}
		if exists {
			return ErrRunCompleted
		}
		return ErrRunNotFound
	}
	return nil
}

// ListByIDs retrieves runs for the given IDs, newest first
func (s *Store) ListByIDs(ctx context.Context, ids []int64) ([]*Run, error) {
	if len(ids) == 0 {
		return []*Run{}, nil
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
		`SELECT `+runColumns+` FROM runs WHERE id IN (`+placeholders+`) ORDER BY started_at DESC, id DESC`,
		args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	var result []*Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		result = append(result, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate runs: %w", err)
	}
	return result, nil
}

// CountActive returns the number of uncompleted runs, for the active-runs gauge
func (s *Store) CountActive(ctx context.Context) (int64, error) {
	var n int64
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM runs WHERE completed_at IS NULL`).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count active runs: %w", err)
	}
	return n, nil
}
