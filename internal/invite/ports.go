package invite

import (
	"context"

	"timgate/internal/localization"
)

// AuthorizationPort is the surface the host server calls for each invite,
// room-creation, and room-upgrade attempt. Authorizer implements it.
type AuthorizationPort interface {
	CheckInvite(ctx context.Context, inviter, invitee, roomID string) (Verdict, error)
	CheckRoomCreate(ctx context.Context, req RoomCreateRequest) (Verdict, error)
	CheckRoomUpgrade(ctx context.Context, requester, roomVersion string) (Verdict, error)
}

// DomainClassifier answers the two federation-list membership questions.
type DomainClassifier interface {
	IsAllowed(ctx context.Context, domain string) (bool, error)
	IsInsurance(ctx context.Context, domain string) (bool, error)
}

// ContactPolicy evaluates the local user's permission configuration against
// a remote party.
type ContactPolicy interface {
	IsAllowedToContact(ctx context.Context, localUserID, remoteMXID string) (bool, error)
}

// Directory resolves an identifier's directory classification.
type Directory interface {
	Resolve(ctx context.Context, mxid string) (localization.Kind, error)
}

// RoomState is the slice of room storage the authorizer consults.
type RoomState interface {
	JoinRule(ctx context.Context, roomID string) (string, error)
	DirectMessagePartner(ctx context.Context, userID, roomID string) (string, error)
}

// AdminChecker reports whether a user is a server administrator.
type AdminChecker interface {
	IsAdmin(ctx context.Context, userID string) (bool, error)
}
