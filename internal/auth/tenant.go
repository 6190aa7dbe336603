package auth

import (
	"context"
	"errors"
	"net/http"

	"github.com/dennisdiepolder/callscope/internal/tenant"
)

// TenantParam is the query parameter naming the tenant database
const TenantParam = "database"

// TenantValidator checks a tenant id against the allow-list
type TenantValidator interface {
	Validate(id string) error
}

// RequireTenant validates the database query parameter and checks the
// caller may read it. The tenant id is stored in the request context.
func RequireTenant(tenants TenantValidator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := r.URL.Query().Get(TenantParam)
			if err := tenants.Validate(id); err != nil {
				status := http.StatusBadRequest
				if errors.Is(err, tenant.ErrUnknownTenant) {
					status = http.StatusForbidden
				}
				writeError(w, status, err.Error())
				return
			}

			user, ok := GetUserFromContext(r.Context())
			if !ok {
				writeError(w, http.StatusUnauthorized, "Unauthorized: "+ErrMissingToken.Error())
				return
			}
			if !user.CanAccess(id) {
				writeError(w, http.StatusForbidden, tenant.ErrUnknownTenant.Error())
				return
			}

			ctx := context.WithValue(r.Context(), TenantContextKey, id)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// TenantFromContext returns the tenant validated by RequireTenant
func TenantFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(TenantContextKey).(string)
	return id, ok && id != ""
}
