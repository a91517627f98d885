package httpapi

import (
	"encoding/json"
	"net/http"

	"timgate/internal/invite"
)

type inviteRequest struct {
	Inviter string `json:"inviter"`
	Invitee string `json:"invitee"`
	RoomID  string `json:"room_id,omitempty"`
}

type roomCreateRequest struct {
	Creator      string              `json:"creator"`
	Invitees     []string            `json:"invitees,omitempty"`
	RoomVersion  string              `json:"room_version,omitempty"`
	Visibility   string              `json:"visibility,omitempty"`
	InitialState []invite.StateEvent `json:"initial_state,omitempty"`
}

type roomUpgradeRequest struct {
	Requester   string `json:"requester"`
	RoomVersion string `json:"room_version"`
}

// handleAuthorizeInvite answers the host's invite callback. Denials are a
// bare forbidden; decision failures are an internal error, never a forced
// allow or deny.
func (h *Handler) handleAuthorizeInvite(w http.ResponseWriter, r *http.Request) {
	var req inviteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid request body")
		return
	}
	if req.Inviter == "" || req.Invitee == "" {
		writeBadRequest(w, "inviter and invitee are required")
		return
	}

	verdict, err := h.authorizer.CheckInvite(r.Context(), req.Inviter, req.Invitee, req.RoomID)
	if err != nil {
		h.writeInternal(w, r, "invite check failed", err)
		return
	}
	h.writeVerdict(w, verdict)
}

func (h *Handler) handleAuthorizeRoomCreate(w http.ResponseWriter, r *http.Request) {
	var req roomCreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid request body")
		return
	}
	if req.Creator == "" {
		writeBadRequest(w, "creator is required")
		return
	}

	verdict, err := h.authorizer.CheckRoomCreate(r.Context(), invite.RoomCreateRequest{
		Creator:      req.Creator,
		Invitees:     req.Invitees,
		RoomVersion:  req.RoomVersion,
		Visibility:   req.Visibility,
		InitialState: req.InitialState,
	})
	if err != nil {
		h.writeInternal(w, r, "room creation check failed", err)
		return
	}
	h.writeVerdict(w, verdict)
}

func (h *Handler) handleAuthorizeRoomUpgrade(w http.ResponseWriter, r *http.Request) {
	var req roomUpgradeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid request body")
		return
	}
	if req.Requester == "" || req.RoomVersion == "" {
		writeBadRequest(w, "requester and room_version are required")
		return
	}

	verdict, err := h.authorizer.CheckRoomUpgrade(r.Context(), req.Requester, req.RoomVersion)
	if err != nil {
		h.writeInternal(w, r, "room upgrade check failed", err)
		return
	}
	h.writeVerdict(w, verdict)
}

func (h *Handler) writeVerdict(w http.ResponseWriter, v invite.Verdict) {
	if !v.Allowed {
		writeForbidden(w)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"allowed": true})
}
