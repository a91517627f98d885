package httpapi

import (
	"encoding/json"
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"

	"timgate/internal/contacts"
	"timgate/internal/platform/middleware"
)

func (h *Handler) handleListContacts(w http.ResponseWriter, r *http.Request) {
	owner := middleware.GetUserID(r.Context())
	list, err := h.contacts.List(r.Context(), owner)
	if err != nil {
		h.writeInternal(w, r, "list contacts failed", err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (h *Handler) handleCreateContact(w http.ResponseWriter, r *http.Request) {
	h.upsertContact(w, r, false)
}

func (h *Handler) handleUpdateContact(w http.ResponseWriter, r *http.Request) {
	h.upsertContact(w, r, true)
}

func (h *Handler) upsertContact(w http.ResponseWriter, r *http.Request, mustExist bool) {
	owner := middleware.GetUserID(r.Context())

	var contact contacts.Contact
	if err := json.NewDecoder(r.Body).Decode(&contact); err != nil {
		writeBadRequest(w, "invalid contact document")
		return
	}
	if err := contact.Validate(); err != nil {
		writeBadRequest(w, err.Error())
		return
	}

	if mustExist {
		existing, err := h.contacts.Get(r.Context(), owner, contact.MXID)
		if err != nil {
			h.writeInternal(w, r, "contact lookup failed", err)
			return
		}
		if existing == nil {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "not_found"})
			return
		}
	}

	if err := h.contacts.Upsert(r.Context(), owner, contact); err != nil {
		h.writeInternal(w, r, "contact upsert failed", err)
		return
	}
	status := http.StatusOK
	if !mustExist {
		status = http.StatusCreated
	}
	writeJSON(w, status, contact)
}

func (h *Handler) handleGetContact(w http.ResponseWriter, r *http.Request) {
	owner := middleware.GetUserID(r.Context())
	mxid, err := url.PathUnescape(chi.URLParam(r, "mxid"))
	if err != nil {
		writeBadRequest(w, "invalid mxid")
		return
	}

	contact, err := h.contacts.Get(r.Context(), owner, mxid)
	if err != nil {
		h.writeInternal(w, r, "contact lookup failed", err)
		return
	}
	if contact == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "not_found"})
		return
	}
	writeJSON(w, http.StatusOK, contact)
}

func (h *Handler) handleDeleteContact(w http.ResponseWriter, r *http.Request) {
	owner := middleware.GetUserID(r.Context())
	mxid, err := url.PathUnescape(chi.URLParam(r, "mxid"))
	if err != nil {
		writeBadRequest(w, "invalid mxid")
		return
	}

	existing, err := h.contacts.Get(r.Context(), owner, mxid)
	if err != nil {
		h.writeInternal(w, r, "contact lookup failed", err)
		return
	}
	if existing == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "not_found"})
		return
	}

	if err := h.contacts.Delete(r.Context(), owner, mxid); err != nil {
		h.writeInternal(w, r, "contact delete failed", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
