// Package httpapi is the HTTP surface: health and metrics, the public
// tim-information endpoints, and the authenticated contact-management,
// permission, and authorization endpoints.
package httpapi

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"timgate/internal/contacts"
	"timgate/internal/invite"
	"timgate/internal/permissions"
	"timgate/internal/platform/middleware"
)

// Handler is the thin HTTP layer. It delegates to the domain services and
// keeps transport concerns isolated.
type Handler struct {
	logger      *slog.Logger
	contacts    contacts.Store
	permissions *permissions.Engine
	classifier  invite.DomainClassifier
	authorizer  invite.AuthorizationPort
	serverName  string
	version     string
}

// NewHandler constructs the HTTP layer.
func NewHandler(
	logger *slog.Logger,
	contactStore contacts.Store,
	engine *permissions.Engine,
	classifier invite.DomainClassifier,
	authorizer invite.AuthorizationPort,
	serverName, version string,
) *Handler {
	return &Handler{
		logger:      logger,
		contacts:    contactStore,
		permissions: engine,
		classifier:  classifier,
		authorizer:  authorizer,
		serverName:  serverName,
		version:     version,
	}
}

// NewRouter wires all endpoints. Routes under prefix require a bearer token.
func NewRouter(h *Handler, prefix string, validator middleware.JWTValidator, registry *prometheus.Registry) http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.Recoverer)

	r.Get("/healthz", h.handleHealth)
	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))

	r.Route("/tim-information", func(r chi.Router) {
		r.Use(middleware.RequireAuth(validator, h.logger))

		r.Get("/", h.handleMessengerInfo)
		r.Get("/v1/server/isInsurance", h.handleIsInsurance)
	})

	r.Route(prefix, func(r chi.Router) {
		r.Use(middleware.RequireAuth(validator, h.logger))

		r.Get("/", h.handleContactManagementInfo)
		r.Get("/contacts", h.handleListContacts)
		r.Post("/contacts", h.handleCreateContact)
		r.Put("/contacts", h.handleUpdateContact)
		r.Get("/contacts/{mxid}", h.handleGetContact)
		r.Delete("/contacts/{mxid}", h.handleDeleteContact)

		r.Get("/permissions", h.handleGetPermissions)
		r.Put("/permissions", h.handlePutPermissions)

		r.Post("/authorize/invite", h.handleAuthorizeInvite)
		r.Post("/authorize/room-create", h.handleAuthorizeRoomCreate)
		r.Post("/authorize/room-upgrade", h.handleAuthorizeRoomUpgrade)
	})

	return r
}

func (h *Handler) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "version": h.version})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// writeForbidden surfaces every denial identically, without policy detail.
func writeForbidden(w http.ResponseWriter) {
	writeJSON(w, http.StatusForbidden, map[string]string{"error": "forbidden"})
}

func writeBadRequest(w http.ResponseWriter, description string) {
	writeJSON(w, http.StatusBadRequest, map[string]string{
		"error":             "bad_request",
		"error_description": description,
	})
}

func (h *Handler) writeInternal(w http.ResponseWriter, r *http.Request, msg string, err error) {
	h.logger.ErrorContext(r.Context(), msg,
		"error", err,
		"request_id", chimw.GetReqID(r.Context()),
	)
	writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal"})
}
