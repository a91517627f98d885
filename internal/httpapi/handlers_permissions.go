package httpapi

import (
	"encoding/json"
	"io"
	"net/http"

	"timgate/internal/permissions"
	"timgate/internal/platform/middleware"
)

func (h *Handler) handleGetPermissions(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	cfg, err := h.permissions.Get(r.Context(), userID)
	if err != nil {
		h.writeInternal(w, r, "permission read failed", err)
		return
	}
	raw, err := cfg.Marshal()
	if err != nil {
		h.writeInternal(w, r, "permission encode failed", err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(raw)
}

func (h *Handler) handlePutPermissions(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	body, err := io.ReadAll(r.Body)
	if err != nil {
		writeBadRequest(w, "unreadable body")
		return
	}
	cfg, err := permissions.ParseConfig(body)
	if err != nil {
		writeBadRequest(w, "invalid permission document")
		return
	}
	if err := h.permissions.Update(r.Context(), userID, cfg); err != nil {
		h.writeInternal(w, r, "permission update failed", err)
		return
	}
	writeJSON(w, http.StatusOK, json.RawMessage(body))
}
