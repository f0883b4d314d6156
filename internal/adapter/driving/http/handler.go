// Package httphandler is the HTTP driving adapter: the sync trigger surface
// and a few registry reads for the dashboard.
package httphandler

import (
	"crypto/subtle"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/ewhitley/sitepulse/internal/application"
	"github.com/ewhitley/sitepulse/internal/domain/model"
	"github.com/ewhitley/sitepulse/internal/domain/port/driven"
)

// Handler serves the REST API.
type Handler struct {
	syncSvc     *application.SyncService
	connections driven.ConnectionStore
	creds       driven.CredentialStore
	syncSecret  string
	logger      *slog.Logger
}

// NewHandler creates a Handler with all required dependencies. syncSecret
// guards the sync triggers; an empty secret disables them entirely rather
// than leaving them open.
func NewHandler(
	syncSvc *application.SyncService,
	connections driven.ConnectionStore,
	creds driven.CredentialStore,
	syncSecret string,
	logger *slog.Logger,
) *Handler {
	return &Handler{
		syncSvc:     syncSvc,
		connections: connections,
		creds:       creds,
		syncSecret:  syncSecret,
		logger:      logger,
	}
}

// NewServeMux creates an http.Handler with all routes registered and wrapped
// with logging and recovery middleware.
func NewServeMux(h *Handler, logger *slog.Logger) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /api/v1/sync", h.SyncAll)
	mux.HandleFunc("POST /api/v1/tenants/{tenant}/sync", h.SyncTenant)
	mux.HandleFunc("GET /api/v1/tenants/{tenant}/connections", h.ListConnections)
	mux.HandleFunc("GET /api/v1/tenants/{tenant}/credential", h.CredentialStatus)
	mux.HandleFunc("GET /api/v1/health", h.Health)

	// Recovery innermost so panics are caught before logging.
	wrapped := recoveryMiddleware(logger, mux)
	wrapped = loggingMiddleware(logger, wrapped)

	return wrapped
}

// Health responds 200 when the service is up.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// SyncAll runs a full synchronization across every tenant with a stored
// credential. It is invoked by the external scheduler and requires the
// scheduler secret as a bearer token.
func (h *Handler) SyncAll(w http.ResponseWriter, r *http.Request) {
	if !h.authorized(r) {
		writeError(w, http.StatusUnauthorized, "invalid or missing sync secret")
		return
	}

	report, err := h.syncSvc.TriggerSync(r.Context(), "")
	if err != nil {
		h.logger.Error("sync trigger failed", "error", err)
		writeError(w, http.StatusInternalServerError, "sync failed to start")
		return
	}

	writeJSON(w, http.StatusOK, report)
}

// SyncTenant runs a synchronization scoped to one tenant ("sync now").
func (h *Handler) SyncTenant(w http.ResponseWriter, r *http.Request) {
	if !h.authorized(r) {
		writeError(w, http.StatusUnauthorized, "invalid or missing sync secret")
		return
	}

	tenantID := r.PathValue("tenant")
	if tenantID == "" {
		writeError(w, http.StatusBadRequest, "tenant is required")
		return
	}

	report, err := h.syncSvc.TriggerSync(r.Context(), tenantID)
	if err != nil {
		h.logger.Error("tenant sync trigger failed", "tenant", tenantID, "error", err)
		writeError(w, http.StatusInternalServerError, "sync failed to start")
		return
	}

	writeJSON(w, http.StatusOK, report)
}

// ListConnections returns a tenant's registered connections across all
// provider families.
func (h *Handler) ListConnections(w http.ResponseWriter, r *http.Request) {
	tenantID := r.PathValue("tenant")

	out := []ConnectionResponse{}
	for _, provider := range model.AllProviders {
		conns, err := h.connections.ListByTenant(r.Context(), tenantID, provider)
		if err != nil {
			h.logger.Error("list connections failed", "tenant", tenantID, "provider", provider, "error", err)
			writeError(w, http.StatusInternalServerError, "failed to list connections")
			return
		}
		for _, conn := range conns {
			out = append(out, ConnectionResponse{
				Provider:   string(conn.Provider),
				ResourceID: conn.ResourceID,
				Label:      conn.Label,
			})
		}
	}

	writeJSON(w, http.StatusOK, out)
}

// CredentialStatus reports whether a tenant has a credential on file, so the
// dashboard can distinguish "never connected" from "connected but failing"
// without ever seeing token material.
func (h *Handler) CredentialStatus(w http.ResponseWriter, r *http.Request) {
	tenantID := r.PathValue("tenant")

	cred, err := h.creds.Get(r.Context(), tenantID)
	if errors.Is(err, driven.ErrNoCredential) {
		writeJSON(w, http.StatusOK, CredentialStatusResponse{Connected: false})
		return
	}
	if err != nil {
		h.logger.Error("credential lookup failed", "tenant", tenantID, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to look up credential")
		return
	}

	writeJSON(w, http.StatusOK, CredentialStatusResponse{
		Connected: true,
		ExpiresAt: cred.ExpiresAt.UTC().Format(timeFormat),
		UpdatedAt: cred.UpdatedAt.UTC().Format(timeFormat),
	})
}

// authorized checks the sync-secret bearer token in constant time.
func (h *Handler) authorized(r *http.Request) bool {
	if h.syncSecret == "" {
		return false
	}
	token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
	if !ok {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(token), []byte(h.syncSecret)) == 1
}
