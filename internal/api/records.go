package api

import (
	"context"
	"net/http"
	"strings"

	"github.com/dennisdiepolder/callscope/internal/storage"
	"github.com/dennisdiepolder/callscope/internal/types"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
)

// RecordStore serves the tenant-scoped documents
type RecordStore interface {
	ListAgents(ctx context.Context, tenant string, q storage.ListQuery) (types.Page[types.AgentRecord], error)
	GetAgent(ctx context.Context, tenant, username string) (types.AgentRecord, error)
	ListProjects(ctx context.Context, tenant string, q storage.ListQuery) (types.Page[types.ProjectRecord], error)
	UpdateProject(ctx context.Context, tenant, id string, patch types.ProjectPatch) (types.ProjectRecord, error)
	ListCalls(ctx context.Context, tenant, username string, q storage.ListQuery) (types.Page[types.CallSummary], error)
	GetCall(ctx context.Context, tenant, id string) (types.CallRecord, error)
	DeleteCall(ctx context.Context, tenant, id string) error
}

// RecordsHandler serves agents, projects and calls
type RecordsHandler struct {
	store  RecordStore
	logger zerolog.Logger
}

// NewRecordsHandler creates a new RecordsHandler
func NewRecordsHandler(store RecordStore, logger zerolog.Logger) *RecordsHandler {
	return &RecordsHandler{
		store:  store,
		logger: logger.With().Str("component", "records_api").Logger(),
	}
}

// ListAgents handles GET /api/agents
func (h *RecordsHandler) ListAgents(w http.ResponseWriter, r *http.Request) {
	id, err := tenantFrom(r)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	q, err := parseListQuery(r)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	page, err := h.store.ListAgents(r.Context(), id, q)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

// GetAgent handles GET /api/agents/{username}
func (h *RecordsHandler) GetAgent(w http.ResponseWriter, r *http.Request) {
	id, err := tenantFrom(r)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	agent, err := h.store.GetAgent(r.Context(), id, chi.URLParam(r, "username"))
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, agent)
}

// ListProjects handles GET /api/projects
func (h *RecordsHandler) ListProjects(w http.ResponseWriter, r *http.Request) {
	id, err := tenantFrom(r)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	q, err := parseListQuery(r)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	page, err := h.store.ListProjects(r.Context(), id, q)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

// UpdateProject handles PATCH /api/projects/{id}
func (h *RecordsHandler) UpdateProject(w http.ResponseWriter, r *http.Request) {
	id, err := tenantFrom(r)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	var patch types.ProjectPatch
	if err := decodeJSON(w, r, &patch); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	if patch.ProjectName != nil && strings.TrimSpace(*patch.ProjectName) == "" {
		writeError(w, r, h.logger, badRequest("project_name must not be blank"))
		return
	}

	project, err := h.store.UpdateProject(r.Context(), id, chi.URLParam(r, "id"), patch)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, project)
}

// ListCalls handles GET /api/calls, optionally filtered by username
func (h *RecordsHandler) ListCalls(w http.ResponseWriter, r *http.Request) {
	id, err := tenantFrom(r)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	q, err := parseListQuery(r)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	username := strings.TrimSpace(r.URL.Query().Get("username"))
	page, err := h.store.ListCalls(r.Context(), id, username, q)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

// GetCall handles GET /api/calls/{id}
func (h *RecordsHandler) GetCall(w http.ResponseWriter, r *http.Request) {
	id, err := tenantFrom(r)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	call, err := h.store.GetCall(r.Context(), id, chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, call)
}

// DeleteCall handles DELETE /api/calls/{id}
func (h *RecordsHandler) DeleteCall(w http.ResponseWriter, r *http.Request) {
	id, err := tenantFrom(r)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	callID := chi.URLParam(r, "id")
	if err := h.store.DeleteCall(r.Context(), id, callID); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"id": callID, "deleted": true})
}
