package sops

import (
	"encoding/json"
	"time"
)

// Sop statuses
const (
	StatusDraft     = "draft"
	StatusPublished = "published"
)

// Sop is a standard operating procedure document. SopKey is the stable
// business key used in URLs; the numeric ID is internal.
type Sop struct {
	ID          int64           `json:"id"`
	SopKey      string          `json:"sop_key"`
	Title       string          `json:"title"`
	Department  string          `json:"department"`
	Status      string          `json:"status"`
	Version     int             `json:"version"`
	ContentMD   string          `json:"content_md"`
	ContentJSON json.RawMessage `json:"content_json,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}
