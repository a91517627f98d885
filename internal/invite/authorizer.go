// Package invite implements the admit/deny decision logic for invites,
// room creation, and room upgrades. Each check walks a fixed sequence of
// gates over the federation list, the user's contact permissions, and the
// external directory.
package invite

import (
	"context"
	"fmt"
	"log/slog"

	"timgate/internal/audit"
	"timgate/pkg/mxid"
)

// Mode is the deployment's operating mode.
type Mode string

const (
	// ModePro serves healthcare practitioners and organizations.
	ModePro Mode = "pro"
	// ModeEPA serves insured persons; it forbids local-to-local invites
	// and public room creation.
	ModeEPA Mode = "epa"
)

// StateEvent is one initial-state event of a room-creation request.
type StateEvent struct {
	Type    string         `json:"type"`
	Content map[string]any `json:"content"`
}

// RoomCreateRequest carries the parts of a room-creation attempt the
// authorizer inspects.
type RoomCreateRequest struct {
	Creator      string
	Invitees     []string
	RoomVersion  string
	Visibility   string
	InitialState []StateEvent
}

// Authorizer implements AuthorizationPort.
type Authorizer struct {
	serverName string
	mode       Mode
	roomVers   map[string]struct{}
	defaultVer string
	classifier DomainClassifier
	policy     ContactPolicy
	directory  Directory
	rooms      RoomState
	admins     AdminChecker
	logger     *slog.Logger
	metrics    *Metrics
	auditInbox chan<- audit.Event
}

// Option configures an Authorizer.
type Option func(*Authorizer)

// WithLogger attaches a structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(a *Authorizer) { a.logger = logger }
}

// WithMetrics attaches decision metrics.
func WithMetrics(m *Metrics) Option {
	return func(a *Authorizer) { a.metrics = m }
}

// WithAudit attaches the audit inbox. Events are dropped rather than block
// a decision when the inbox is full.
func WithAudit(inbox chan<- audit.Event) Option {
	return func(a *Authorizer) { a.auditInbox = inbox }
}

// NewAuthorizer constructs an Authorizer for the given server.
func NewAuthorizer(
	serverName string,
	mode Mode,
	allowedRoomVersions []string,
	defaultRoomVersion string,
	classifier DomainClassifier,
	policy ContactPolicy,
	directory Directory,
	rooms RoomState,
	admins AdminChecker,
	opts ...Option,
) (*Authorizer, error) {
	if serverName == "" {
		return nil, fmt.Errorf("server name is required")
	}
	if mode != ModePro && mode != ModeEPA {
		return nil, fmt.Errorf("unknown operating mode %q", mode)
	}
	if len(allowedRoomVersions) == 0 {
		return nil, fmt.Errorf("allowed room versions must not be empty")
	}
	if classifier == nil || policy == nil || directory == nil || rooms == nil || admins == nil {
		return nil, fmt.Errorf("all collaborators are required")
	}

	vers := make(map[string]struct{}, len(allowedRoomVersions))
	for _, v := range allowedRoomVersions {
		vers[v] = struct{}{}
	}
	a := &Authorizer{
		serverName: serverName,
		mode:       mode,
		roomVers:   vers,
		defaultVer: defaultRoomVersion,
		classifier: classifier,
		policy:     policy,
		directory:  directory,
		rooms:      rooms,
		admins:     admins,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a, nil
}

// CheckInvite decides one invite attempt. An empty roomID means the room
// does not exist yet (invites listed at creation time).
func (a *Authorizer) CheckInvite(ctx context.Context, inviter, invitee, roomID string) (Verdict, error) {
	v, err := a.checkInvite(ctx, inviter, invitee, roomID)
	if err != nil {
		a.metrics.ObserveCheck("invite", "error")
		return Verdict{}, err
	}
	a.metrics.ObserveCheck("invite", v.Outcome())
	a.record(audit.Event{
		Check:   "invite",
		Inviter: inviter,
		Invitee: invitee,
		RoomID:  roomID,
		Outcome: v.Outcome(),
		Reason:  v.Reason,
	})
	if a.logger != nil && !v.Allowed {
		a.logger.InfoContext(ctx, "invite denied",
			"inviter", inviter,
			"invitee", invitee,
			"room_id", roomID,
			"reason", v.Reason,
		)
	}
	return v, nil
}

func (a *Authorizer) record(event audit.Event) {
	if a.auditInbox == nil {
		return
	}
	select {
	case a.auditInbox <- event:
	default:
	}
}

func (a *Authorizer) checkInvite(ctx context.Context, inviter, invitee, roomID string) (Verdict, error) {
	inviterDomain := mxid.DomainOf(inviter)
	inviteeDomain := mxid.DomainOf(invitee)
	if inviterDomain == "" || inviteeDomain == "" {
		return deny("malformed user identifier"), nil
	}
	inviterLocal := inviterDomain == a.serverName
	inviteeLocal := inviteeDomain == a.serverName

	// Local fast path. Insured-mode servers forbid all local-to-local
	// invites; otherwise an existing direct-message room only ever admits
	// its recorded partner.
	if inviterLocal && inviteeLocal && a.mode == ModeEPA {
		return deny("local invites are forbidden in insured mode"), nil
	}
	if roomID != "" {
		partner, err := a.rooms.DirectMessagePartner(ctx, inviter, roomID)
		if err != nil {
			return Verdict{}, fmt.Errorf("direct message lookup: %w", err)
		}
		if partner != "" && partner != invitee {
			return deny("room is a direct message with another user"), nil
		}
	}
	if inviterLocal && inviteeLocal {
		return admit("local invite"), nil
	}

	localUser, remoteUser := invitee, inviter
	localDomain, remoteDomain := inviteeDomain, inviterDomain
	if inviterLocal {
		localUser, remoteUser = inviter, invitee
		localDomain, remoteDomain = inviterDomain, inviteeDomain
	}

	for _, domain := range []string{remoteDomain, localDomain} {
		allowed, err := a.classifier.IsAllowed(ctx, domain)
		if err != nil {
			return Verdict{}, fmt.Errorf("federation check for %s: %w", domain, err)
		}
		if !allowed {
			return deny("domain is not on the federation list"), nil
		}
	}

	localInsurance, err := a.classifier.IsInsurance(ctx, localDomain)
	if err != nil {
		return Verdict{}, fmt.Errorf("insurance check for %s: %w", localDomain, err)
	}
	remoteInsurance, err := a.classifier.IsInsurance(ctx, remoteDomain)
	if err != nil {
		return Verdict{}, fmt.Errorf("insurance check for %s: %w", remoteDomain, err)
	}
	if localInsurance && remoteInsurance {
		return deny("both domains serve insured persons"), nil
	}

	if roomID != "" {
		rule, err := a.rooms.JoinRule(ctx, roomID)
		if err != nil {
			return Verdict{}, fmt.Errorf("join rule lookup: %w", err)
		}
		if rule == "public" {
			return deny("room is public"), nil
		}
	}

	allowed, err := a.policy.IsAllowedToContact(ctx, localUser, remoteUser)
	if err != nil {
		return Verdict{}, fmt.Errorf("contact permission check: %w", err)
	}
	if allowed {
		return admit("permitted by contact settings"), nil
	}

	inviteeKind, err := a.directory.Resolve(ctx, invitee)
	if err != nil {
		return Verdict{}, fmt.Errorf("directory lookup for invitee: %w", err)
	}
	if inviteeKind.IsOrganization() {
		return admit("invitee is a directory-listed organization"), nil
	}
	if inviteeKind.IsPractitioner() {
		inviterKind, err := a.directory.Resolve(ctx, inviter)
		if err != nil {
			return Verdict{}, fmt.Errorf("directory lookup for inviter: %w", err)
		}
		if inviterKind.IsPractitioner() {
			return admit("both parties are directory-listed practitioners"), nil
		}
	}

	return deny("no rule admits this invite"), nil
}

// CheckRoomCreate decides a room-creation attempt.
func (a *Authorizer) CheckRoomCreate(ctx context.Context, req RoomCreateRequest) (Verdict, error) {
	v, err := a.checkRoomCreate(ctx, req)
	if err != nil {
		a.metrics.ObserveCheck("room_create", "error")
		return Verdict{}, err
	}
	a.metrics.ObserveCheck("room_create", v.Outcome())
	a.record(audit.Event{
		Check:   "room_create",
		Inviter: req.Creator,
		Outcome: v.Outcome(),
		Reason:  v.Reason,
	})
	if a.logger != nil && !v.Allowed {
		a.logger.InfoContext(ctx, "room creation denied",
			"creator", req.Creator,
			"reason", v.Reason,
		)
	}
	return v, nil
}

func (a *Authorizer) checkRoomCreate(ctx context.Context, req RoomCreateRequest) (Verdict, error) {
	if len(req.Invitees) > 1 {
		return deny("at most one invite is permitted at creation time"), nil
	}

	version := req.RoomVersion
	if version == "" {
		version = a.defaultVer
	}
	if v, err := a.checkRoomVersion(ctx, req.Creator, version); err != nil || !v.Allowed {
		return v, err
	}

	if a.mode == ModeEPA {
		if req.Visibility == "public" {
			return deny("public rooms are forbidden in insured mode"), nil
		}
		for _, ev := range req.InitialState {
			if ev.Type != "m.room.join_rules" {
				continue
			}
			if rule, _ := ev.Content["join_rule"].(string); rule == "public" {
				return deny("public join rule is forbidden in insured mode"), nil
			}
		}
	}

	for _, invitee := range req.Invitees {
		v, err := a.checkInvite(ctx, req.Creator, invitee, "")
		if err != nil || !v.Allowed {
			return v, err
		}
	}
	return admit("room creation permitted"), nil
}

// CheckRoomUpgrade decides a room-upgrade attempt. Only the target room
// version is checked.
func (a *Authorizer) CheckRoomUpgrade(ctx context.Context, requester, roomVersion string) (Verdict, error) {
	v, err := a.checkRoomVersion(ctx, requester, roomVersion)
	if err != nil {
		a.metrics.ObserveCheck("room_upgrade", "error")
		return Verdict{}, err
	}
	a.metrics.ObserveCheck("room_upgrade", v.Outcome())
	a.record(audit.Event{
		Check:   "room_upgrade",
		Inviter: requester,
		Outcome: v.Outcome(),
		Reason:  v.Reason,
	})
	return v, nil
}

func (a *Authorizer) checkRoomVersion(ctx context.Context, requester, version string) (Verdict, error) {
	if _, ok := a.roomVers[version]; ok {
		return admit("room version permitted"), nil
	}
	isAdmin, err := a.admins.IsAdmin(ctx, requester)
	if err != nil {
		return Verdict{}, fmt.Errorf("admin check: %w", err)
	}
	if isAdmin {
		return admit("room version permitted for administrator"), nil
	}
	return deny("room version is not permitted"), nil
}
