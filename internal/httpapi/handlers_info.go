package httpapi

import "net/http"

// Versions of the published discovery documents.
const (
	messengerInfoVersion     = "1.0.0"
	contactManagementVersion = "1.0.2"
)

// infoDocument is the discovery object served at the API roots.
type infoDocument struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Contact     string `json:"contact"`
	Version     string `json:"version"`
}

func (h *Handler) handleMessengerInfo(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, infoDocument{
		Title:       "TI-Messenger information",
		Description: "Invite authorization and room lifecycle gateway for " + h.serverName,
		Contact:     "admin@" + h.serverName,
		Version:     messengerInfoVersion,
	})
}

func (h *Handler) handleContactManagementInfo(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, infoDocument{
		Title:       "Contact management",
		Description: "Contact invite settings for " + h.serverName,
		Contact:     "admin@" + h.serverName,
		Version:     contactManagementVersion,
	})
}

func (h *Handler) handleIsInsurance(w http.ResponseWriter, r *http.Request) {
	serverName := r.URL.Query().Get("serverName")
	if serverName == "" {
		writeBadRequest(w, "serverName is required")
		return
	}
	insured, err := h.classifier.IsInsurance(r.Context(), serverName)
	if err != nil {
		h.writeInternal(w, r, "insurance lookup failed", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"isInsurance": insured})
}
