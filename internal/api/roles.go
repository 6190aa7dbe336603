package api

import (
	"net/http"

	"github.com/dennisdiepolder/callscope/internal/auth"
	"github.com/dennisdiepolder/callscope/internal/types"
)

// requireRole allows the request through when the user holds one of roles
func requireRole(msg string, roles ...types.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, ok := auth.GetUserFromContext(r.Context())
			if ok {
				for _, role := range roles {
					if auth.HasRole(user, role) {
						next.ServeHTTP(w, r)
						return
					}
				}
			}
			writeJSON(w, http.StatusForbidden, ErrorResponse{Error: msg})
		})
	}
}

// RequireAdmin middleware, only the admin role is allowed
var RequireAdmin = requireRole("admin role required", types.RoleAdmin)

// RequireSupervisor middleware, supervisor or admin role allowed
var RequireSupervisor = requireRole("supervisor or admin role required", types.RoleAdmin, types.RoleSupervisor)
