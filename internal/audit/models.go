// Package audit records authorization decisions for later review. Events
// flow through a channel into a worker that persists them, so emitting
// never blocks a decision.
package audit

import "time"

// Event is one recorded authorization decision.
type Event struct {
	Timestamp time.Time `json:"timestamp"`
	Check     string    `json:"check"`
	Inviter   string    `json:"inviter,omitempty"`
	Invitee   string    `json:"invitee,omitempty"`
	RoomID    string    `json:"room_id,omitempty"`
	Outcome   string    `json:"outcome"`
	Reason    string    `json:"reason,omitempty"`
}
