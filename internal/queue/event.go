// Package queue defines message payloads exchanged over the message
// broker and the background consumer for them.
package queue

// SeatingChangedEvent is published after a seating mutation commits.
// It carries enough context for downstream consumers (activity feed,
// check-in kiosks, analytics) to react without querying the database.
type SeatingChangedEvent struct {
	EventUID      string   `json:"event_uid"` // unique message ID
	Action        string   `json:"action"`    // ASSIGN, UNASSIGN or AUTO_ASSIGN
	EventID       uint64   `json:"event_id"`
	EventName     string   `json:"event_name"`
	GuestIDs      []string `json:"guest_ids"`
	TableNumber   *int     `json:"table_number,omitempty"` // absent for UNASSIGN and AUTO_ASSIGN
	AssignedCount int      `json:"assigned_count"`
	OccurredAt    string   `json:"occurred_at"`
}
