package types

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// AgentRecord is a tenant-scoped agent document
type AgentRecord struct {
	ID        primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	Username  string             `json:"username" bson:"username"`
	FirstName string             `json:"first_name" bson:"first_name"`
	LastName  string             `json:"last_name" bson:"last_name"`
	Email     string             `json:"email,omitempty" bson:"email,omitempty"`
	Project   string             `json:"project" bson:"project"`
	CreatedAt time.Time          `json:"created_at" bson:"created_at"`
}

// ProjectStatus is the lifecycle label of a project
type ProjectStatus string

const (
	ProjectActive   ProjectStatus = "active"
	ProjectPaused   ProjectStatus = "paused"
	ProjectArchived ProjectStatus = "archived"
)

// ProjectRecord is a tenant-scoped project document.
// AgentsCount is computed on read and never stored.
type ProjectRecord struct {
	ID                primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	ProjectName       string             `json:"project_name" bson:"project_name"`
	CompanyName       string             `json:"company_name" bson:"company_name"`
	ClientCompanyName string             `json:"client_company_name" bson:"client_company_name"`
	Description       string             `json:"description,omitempty" bson:"description,omitempty"`
	Status            ProjectStatus      `json:"status" bson:"status"`
	CreatedAt         time.Time          `json:"created_at" bson:"created_at"`
	AgentsCount       int64              `json:"agentsCount" bson:"-"`
}

// ProjectPatch lists the project fields a client may update.
// Nil fields are left untouched.
type ProjectPatch struct {
	ProjectName       *string        `json:"project_name,omitempty" validate:"omitempty,min=1,max=120"`
	CompanyName       *string        `json:"company_name,omitempty" validate:"omitempty,max=120"`
	ClientCompanyName *string        `json:"client_company_name,omitempty" validate:"omitempty,max=120"`
	Description       *string        `json:"description,omitempty" validate:"omitempty,max=2000"`
	Status            *ProjectStatus `json:"status,omitempty" validate:"omitempty,oneof=active paused archived"`
}

// Empty reports whether the patch sets no field
func (p ProjectPatch) Empty() bool {
	return p.ProjectName == nil && p.CompanyName == nil && p.ClientCompanyName == nil &&
		p.Description == nil && p.Status == nil
}
