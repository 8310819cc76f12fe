package model

// DuplicateGroup is a set of events believed to describe one physical
// earthquake. SelectedEventIndex points at the member that supplies any field
// the merge engine does not explicitly resolve.
type DuplicateGroup struct {
	Events             []Event  `json:"events"`
	SelectedEventIndex int      `json:"selected_event_index"`
	Suspicious         bool     `json:"suspicious"`
	Warnings           []string `json:"warnings,omitempty"`
}

// Size returns the number of member events.
func (g *DuplicateGroup) Size() int { return len(g.Events) }

// Selected returns the selected member. Callers must not hold the pointer
// across mutations of the group.
func (g *DuplicateGroup) Selected() *Event {
	return &g.Events[g.SelectedEventIndex]
}

// MergedEvent is the conflict-resolved record produced from a duplicate group,
// plus provenance for audit.
type MergedEvent struct {
	Event          Event            `json:"event"`
	SourceEventIDs []string         `json:"source_event_ids"`
	AllMechanisms  []FocalMechanism `json:"all_mechanisms,omitempty"`
}

// MergeStatistics summarizes a merge run.
type MergeStatistics struct {
	TotalEventsBefore     int `json:"total_events_before"`
	TotalEventsAfter      int `json:"total_events_after"`
	DuplicateGroupsCount  int `json:"duplicate_groups_count"`
	DuplicatesRemoved     int `json:"duplicates_removed"`
	SuspiciousGroupsCount int `json:"suspicious_groups_count"`
}
