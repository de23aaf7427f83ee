package suggestions

import (
	"encoding/json"
	"time"
)

// Suggestion statuses. A suggestion starts queued; the summarization worker
// moves it to summarized or failed, and reviewers settle it as accepted or
// rejected.
const (
	StatusQueued     = "queued"
	StatusSummarized = "summarized"
	StatusFailed     = "failed"
	StatusAccepted   = "accepted"
	StatusRejected   = "rejected"
)

// ValidStatus reports whether s is a known suggestion status
func ValidStatus(s string) bool {
	switch s {
	case StatusQueued, StatusSummarized, StatusFailed, StatusAccepted, StatusRejected:
		return true
	}
	return false
}

// Suggestion is a free-text improvement proposal against a SOP. Visibility
// follows the parent SOP with no owner override.
type Suggestion struct {
	ID              int64           `json:"id"`
	SopID           int64           `json:"sop_id"`
	UserID          int64           `json:"user_id"`
	RawText         string          `json:"raw_text"`
	AISummary       string          `json:"ai_summary,omitempty"`
	AIChangesetJSON json.RawMessage `json:"ai_changeset_json,omitempty"`
	Status          string          `json:"status"`
	CreatedAt       time.Time       `json:"created_at"`
}
