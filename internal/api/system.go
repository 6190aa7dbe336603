package api

import (
	"context"
	"net/http"
	"time"

	"github.com/rs/zerolog"
)

const readyTimeout = 2 * time.Second

// Pinger reports whether the database primary is reachable
type Pinger interface {
	Ping(ctx context.Context) error
}

// TenantLister returns the allow-listed tenant databases
type TenantLister interface {
	Tenants() []string
}

// ReadyResponse is the body of the readiness probe
type ReadyResponse struct {
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

// TenantsResponse lists the tenant databases this deployment serves
type TenantsResponse struct {
	Tenants []string `json:"tenants"`
}

// SystemHandler serves operational endpoints
type SystemHandler struct {
	db      Pinger
	tenants TenantLister
	logger  zerolog.Logger
}

// NewSystemHandler creates a new SystemHandler
func NewSystemHandler(db Pinger, tenants TenantLister, logger zerolog.Logger) *SystemHandler {
	return &SystemHandler{
		db:      db,
		tenants: tenants,
		logger:  logger.With().Str("component", "system_api").Logger(),
	}
}

// Ready handles GET /ready. It fails while the database is unreachable.
func (h *SystemHandler) Ready(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), readyTimeout)
	defer cancel()

	if err := h.db.Ping(ctx); err != nil {
		h.logger.Warn().Err(err).Msg("readiness check failed")
		writeJSON(w, http.StatusServiceUnavailable, ReadyResponse{Status: "unavailable", Error: "database unreachable"})
		return
	}
	writeJSON(w, http.StatusOK, ReadyResponse{Status: "ready"})
}

// ListTenants handles GET /api/admin/tenants
func (h *SystemHandler) ListTenants(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, TenantsResponse{Tenants: h.tenants.Tenants()})
}
