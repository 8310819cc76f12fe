// Package dedup discovers duplicate groups in a catalogue and validates them
// for physical plausibility, recording disagreements in a conflict log.
package dedup

import (
	"encoding/json"
	"sync"

	"github.com/rotisserie/eris"
)

// ConflictType discriminates conflict records. Values are stable and safe to
// key on in exports.
type ConflictType string

const (
	ConflictMagnitudeRange ConflictType = "magnitude_range"
	ConflictDepthRange     ConflictType = "depth_range"
	ConflictGroupSize      ConflictType = "group_size"
)

// Severity grades a conflict.
type Severity string

const (
	SeverityWarning Severity = "warning"
	SeverityError   Severity = "error"
)

// Conflict is one structured validation finding. It carries enough context
// to be surfaced to an end user without re-deriving state.
type Conflict struct {
	Type       ConflictType `json:"type"`
	Severity   Severity     `json:"severity"`
	Message    string       `json:"message"`
	GroupIndex int          `json:"group_index"`
	GroupRef   string       `json:"group_ref"` // ID of the group's selected event
}

// Summary holds conflict counts by type.
type Summary struct {
	Total  int                  `json:"total"`
	ByType map[ConflictType]int `json:"by_type"`
}

// ConflictLog accumulates conflicts for one merge run. It is an explicit
// object passed by reference into validation and merging, never process-wide
// state, so concurrent runs cannot cross-contaminate. It is append-only
// until cleared and safe to inspect mid-run.
type ConflictLog struct {
	mu        sync.Mutex
	conflicts []Conflict
}

// NewConflictLog returns an empty log.
func NewConflictLog() *ConflictLog {
	return &ConflictLog{}
}

// Log appends a conflict.
func (l *ConflictLog) Log(c Conflict) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.conflicts = append(l.conflicts, c)
}

// Conflicts returns a copy of the accumulated conflicts.
func (l *ConflictLog) Conflicts() []Conflict {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]Conflict, len(l.conflicts))
	copy(out, l.conflicts)
	return out
}

// Summary returns the total count and a per-type breakdown.
func (l *ConflictLog) Summary() Summary {
	l.mu.Lock()
	defer l.mu.Unlock()
	s := Summary{Total: len(l.conflicts), ByType: make(map[ConflictType]int)}
	for _, c := range l.conflicts {
		s.ByType[c.Type]++
	}
	return s
}

// Clear resets the log for reuse between runs.
func (l *ConflictLog) Clear() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.conflicts = nil
}

// ToJSON serializes the conflicts together with their summary.
func (l *ConflictLog) ToJSON() ([]byte, error) {
	l.mu.Lock()
	conflicts := make([]Conflict, len(l.conflicts))
	copy(conflicts, l.conflicts)
	l.mu.Unlock()

	summary := Summary{Total: len(conflicts), ByType: make(map[ConflictType]int)}
	for _, c := range conflicts {
		summary.ByType[c.Type]++
	}

	payload := struct {
		Conflicts []Conflict `json:"conflicts"`
		Summary   Summary    `json:"summary"`
	}{Conflicts: conflicts, Summary: summary}

	data, err := json.Marshal(payload)
	if err != nil {
		return nil, eris.Wrap(err, "dedup: marshal conflict log")
	}
	return data, nil
}
