package api

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/dennisdiepolder/callscope/internal/auth"
	"github.com/dennisdiepolder/callscope/internal/types"
	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"
)

const testTenant = "acme"

// withTenant stands in for auth.RequireTenant
func withTenant(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := context.WithValue(r.Context(), auth.TenantContextKey, testTenant)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func withUser(user *types.UserProfile) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := context.WithValue(r.Context(), auth.UserContextKey, user)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func do(t *testing.T, h http.Handler, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func tenantRouter() chi.Router {
	r := chi.NewRouter()
	r.Use(withTenant)
	return r
}

func newRequest(method, target string, body io.Reader) (*http.Request, *httptest.ResponseRecorder) {
	return httptest.NewRequest(method, target, body), httptest.NewRecorder()
}
