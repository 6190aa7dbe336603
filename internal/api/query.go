package api

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/dennisdiepolder/callscope/internal/analytics"
	"github.com/dennisdiepolder/callscope/internal/auth"
	"github.com/dennisdiepolder/callscope/internal/storage"
	"github.com/dennisdiepolder/callscope/internal/tenant"
)

// tenantFrom returns the tenant validated by auth.RequireTenant
func tenantFrom(r *http.Request) (string, error) {
	id, ok := auth.TenantFromContext(r.Context())
	if !ok {
		return "", tenant.ErrMissingTenant
	}
	return id, nil
}

func parseInt64(r *http.Request, name string) (int64, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(name))
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, badRequest("%s must be an integer", name)
	}
	return n, nil
}

// parseListQuery reads page, limit and search. Absent values take defaults.
func parseListQuery(r *http.Request) (storage.ListQuery, error) {
	page, err := parseInt64(r, "page")
	if err != nil {
		return storage.ListQuery{}, err
	}
	limit, err := parseInt64(r, "limit")
	if err != nil {
		return storage.ListQuery{}, err
	}
	if r.URL.Query().Has("page") && page == 0 || r.URL.Query().Has("limit") && limit == 0 {
		return storage.ListQuery{}, badRequest("page and limit must be >= 1")
	}
	q := storage.ListQuery{Page: page, Limit: limit, Search: r.URL.Query().Get("search")}
	return q.Normalize()
}

// parseFilter reads the tenant, optional username and optional date range
func parseFilter(r *http.Request) (analytics.Filter, error) {
	id, err := tenantFrom(r)
	if err != nil {
		return analytics.Filter{}, err
	}
	q := r.URL.Query()
	window, err := analytics.ParseRange(strings.TrimSpace(q.Get("startDate")), strings.TrimSpace(q.Get("endDate")))
	if err != nil {
		return analytics.Filter{}, err
	}
	return analytics.Filter{
		Tenant:   id,
		Username: strings.TrimSpace(q.Get("username")),
		Window:   window,
	}, nil
}
