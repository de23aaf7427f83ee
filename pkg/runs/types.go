package runs

import "time"

// Run is one user's execution of a SOP checklist.
type Run struct {
	ID            int64      `json:"id"`
	SopID         int64      `json:"sop_id"`
	UserID        int64      `json:"user_id"`
	StartedAt     time.Time  `json:"started_at"`
	CompletedAt   *time.Time `json:"completed_at,omitempty"`
	Passed        *bool      `json:"passed,omitempty"`
	ExceptionNote string     `json:"exception_note,omitempty"`
	Steps         []*RunStep `json:"steps,omitempty"`
}

// RunStep records when a checklist step was last checked. Steps are created
// lazily on first check and never deleted; re-checking updates the timestamp.
type RunStep struct {
	ID        int64     `json:"id"`
	RunID     int64     `json:"run_id"`
	StepNo    int       `json:"step_no"`
	CheckedAt time.Time `json:"checked_at"`
}

// Completed reports whether the run has been closed out
func (r *Run) Completed() bool {
	return r.CompletedAt != nil
}
