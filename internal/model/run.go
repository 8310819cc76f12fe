package model

import (
	"encoding/json"
	"time"
)

// MergeRun is a committed merge: its configuration, output, and conflicts,
// as persisted by the store.
type MergeRun struct {
	ID         string          `json:"id"`
	Preset     string          `json:"preset"`
	Strategy   string          `json:"strategy"`
	Statistics MergeStatistics `json:"statistics"`
	Events     []MergedEvent   `json:"events,omitempty"`
	Conflicts  json.RawMessage `json:"conflicts,omitempty"`
	CreatedAt  time.Time       `json:"created_at"`
}
