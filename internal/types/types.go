package types

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Role is the authorization role of a dashboard user
type Role string

const (
	RoleAdmin      Role = "admin"
	RoleSupervisor Role = "supervisor"
	RoleViewer     Role = "viewer"
)

// UserProfile is the user document linked to an identity.
// Databases lists the tenants the user may read.
type UserProfile struct {
	ID           primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	Email        string             `json:"email" bson:"email"`
	FirstName    string             `json:"first_name" bson:"first_name"`
	LastName     string             `json:"last_name" bson:"last_name"`
	PasswordHash string             `json:"-" bson:"password_hash"`
	Role         Role               `json:"role" bson:"role"`
	Databases    []string           `json:"databases" bson:"databases"`
	Verified     bool               `json:"verified" bson:"verified"`
	Locale       string             `json:"locale,omitempty" bson:"locale,omitempty"`
	CreatedAt    time.Time          `json:"created_at" bson:"created_at"`
	UpdatedAt    time.Time          `json:"updated_at" bson:"updated_at"`
}

// CanAccess reports whether the profile may read the given tenant
func (u *UserProfile) CanAccess(tenant string) bool {
	if u.Role == RoleAdmin {
		return true
	}
	for _, db := range u.Databases {
		if db == tenant {
			return true
		}
	}
	return false
}

// Page is one page of a paginated listing
type Page[T any] struct {
	Items      []T   `json:"items"`
	TotalItems int64 `json:"totalItems"`
}
