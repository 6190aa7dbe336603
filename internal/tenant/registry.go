// Package tenant maps tenant ids from the API boundary to allow-listed
// databases. Storage code never receives a free-form database name.
package tenant

import (
	"errors"
	"fmt"
	"regexp"
	"sort"

	"go.mongodb.org/mongo-driver/mongo"
)

var (
	ErrMissingTenant = errors.New("database parameter is required")
	ErrInvalidTenant = errors.New("invalid database name")
	ErrUnknownTenant = errors.New("database is not available")
)

var namePattern = regexp.MustCompile(`^[a-zA-Z0-9_-]{1,63}$`)

// Registry resolves tenant ids against a fixed allow-list
type Registry struct {
	client  *mongo.Client
	allowed map[string]struct{}
}

// NewRegistry builds a registry for the given tenants. The system database
// may not be listed as a tenant.
func NewRegistry(client *mongo.Client, tenants []string, systemDB string) (*Registry, error) {
	allowed := make(map[string]struct{}, len(tenants))
	for _, t := range tenants {
		if !namePattern.MatchString(t) {
			return nil, fmt.Errorf("%w: %q", ErrInvalidTenant, t)
		}
		if t == systemDB || t == "admin" || t == "local" || t == "config" {
			return nil, fmt.Errorf("%w: %q is reserved", ErrInvalidTenant, t)
		}
		allowed[t] = struct{}{}
	}
	return &Registry{client: client, allowed: allowed}, nil
}

// Validate checks id without touching the database
func (r *Registry) Validate(id string) error {
	if id == "" {
		return ErrMissingTenant
	}
	if !namePattern.MatchString(id) {
		return fmt.Errorf("%w: %q", ErrInvalidTenant, id)
	}
	if _, ok := r.allowed[id]; !ok {
		return fmt.Errorf("%w: %q", ErrUnknownTenant, id)
	}
	return nil
}

// Resolve returns the database handle of an allow-listed tenant
func (r *Registry) Resolve(id string) (*mongo.Database, error) {
	if err := r.Validate(id); err != nil {
		return nil, err
	}
	return r.client.Database(id), nil
}

// Tenants returns the allow-list in sorted order
func (r *Registry) Tenants() []string {
	out := make([]string, 0, len(r.allowed))
	for t := range r.allowed {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}
