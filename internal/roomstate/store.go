// Package roomstate exposes the narrow read-only slice of the host's room
// and event storage that the authorizer and the lifecycle scanner consult.
package roomstate

import (
	"context"
	"time"
)

// RoomInfo is the minimal room descriptor the scanner iterates over.
type RoomInfo struct {
	RoomID    string
	CreatedAt time.Time
}

// Leave is a membership-leave event: the user who left and when.
type Leave struct {
	UserID string
	At     time.Time
}

// Store is the room/event lookup surface. All methods are reads; the host
// owns the data.
type Store interface {
	// ListRooms enumerates all known rooms.
	ListRooms(ctx context.Context) ([]RoomInfo, error)

	// RoomHosts returns the distinct domains currently joined to the room.
	RoomHosts(ctx context.Context, roomID string) ([]string, error)

	// MembershipLeaves returns all membership-leave events of the room,
	// most recent first.
	MembershipLeaves(ctx context.Context, roomID string) ([]Leave, error)

	// LastMessageAt returns the timestamp of the most recent message or
	// encrypted-message event, or the zero time if none was ever sent.
	LastMessageAt(ctx context.Context, roomID string) (time.Time, error)

	// JoinRule returns the room's current join rule ("invite", "public", ...),
	// or "" if no join-rule state exists.
	JoinRule(ctx context.Context, roomID string) (string, error)

	// DirectMessagePartner returns the user the room is recorded as a
	// direct-message room with, from the given user's perspective, or ""
	// if the room is not one of their DMs.
	DirectMessagePartner(ctx context.Context, userID, roomID string) (string, error)
}
