package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestCORS(t *testing.T) {
	allowedOrigins := []string{"http://localhost:5173", "http://example.com"}

	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	corsHandler := CORS(allowedOrigins)(handler)

	tests := []struct {
		name           string
		origin         string
		method         string
		expectCORS     bool
		expectedOrigin string
	}{
		{
			name:           "allowed origin",
			origin:         "http://localhost:5173",
			method:         http.MethodGet,
			expectCORS:     true,
			expectedOrigin: "http://localhost:5173",
		},
		{
			name:           "another allowed origin",
			origin:         "http://example.com",
			method:         http.MethodGet,
			expectCORS:     true,
			expectedOrigin: "http://example.com",
		},
		{
			name:       "disallowed origin",
			origin:     "http://evil.com",
			method:     http.MethodGet,
			expectCORS: false,
		},
		{
			name:           "preflight request",
			origin:         "http://localhost:5173",
			method:         http.MethodOptions,
			expectCORS:     true,
			expectedOrigin: "http://localhost:5173",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, "/test", nil)
			if tt.origin != "" {
				req.Header.Set("Origin", tt.origin)
			}

			rec := httptest.NewRecorder()
			corsHandler.ServeHTTP(rec, req)

			if tt.expectCORS {
				acao := rec.Header().Get("Access-Control-Allow-Origin")
				if acao != tt.expectedOrigin {
					t.Errorf("expected Access-Control-Allow-Origin %s, got %s", tt.expectedOrigin, acao)
				}
			} else {
				acao := rec.Header().Get("Access-Control-Allow-Origin")
				if acao != "" {
					t.Errorf("expected no Access-Control-Allow-Origin header, got %s", acao)
				}
			}
		})
	}
}

func TestCORSPreflightMethods(t *testing.T) {
	corsHandler := CORS([]string{"http://localhost:5173"})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("preflight must not reach the handler")
	}))

	tests := []struct {
		method  string
		allowed bool
	}{
		{http.MethodPatch, true},
		{http.MethodDelete, true},
		{"TRACE", false},
	}

	for _, tt := range tests {
		t.Run(tt.method, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodOptions, "/api/projects/1", nil)
			req.Header.Set("Origin", "http://localhost:5173")
			req.Header.Set("Access-Control-Request-Method", tt.method)
			req.Header.Set("Access-Control-Request-Headers", "Authorization, X-Request-ID")

			rec := httptest.NewRecorder()
			corsHandler.ServeHTTP(rec, req)

			methods := rec.Header().Get("Access-Control-Allow-Methods")
			if tt.allowed && !strings.Contains(methods, tt.method) {
				t.Errorf("expected %s in Access-Control-Allow-Methods, got %q", tt.method, methods)
			}
			if !tt.allowed && methods != "" {
				t.Errorf("expected no Access-Control-Allow-Methods, got %q", methods)
			}
			if tt.allowed {
				headers := strings.ToLower(rec.Header().Get("Access-Control-Allow-Headers"))
				if !strings.Contains(headers, "x-request-id") || !strings.Contains(headers, "authorization") {
					t.Errorf("expected request headers to be allowed, got %q", headers)
				}
			}
		})
	}
}

func TestCORSExposesRequestID(t *testing.T) {
	handler := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	corsHandler := CORS([]string{"http://localhost:5173"})(handler)

	req := httptest.NewRequest(http.MethodGet, "/api/agents", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	rec := httptest.NewRecorder()
	corsHandler.ServeHTTP(rec, req)

	exposed := strings.ToLower(rec.Header().Get("Access-Control-Expose-Headers"))
	if !strings.Contains(exposed, "x-request-id") {
		t.Errorf("expected X-Request-ID to be exposed, got %q", exposed)
	}
	if rec.Header().Get("X-Request-ID") == "" {
		t.Error("expected an X-Request-ID response header")
	}
}
