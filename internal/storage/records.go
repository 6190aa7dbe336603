package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/dennisdiepolder/callscope/internal/types"
	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"golang.org/x/sync/errgroup"
)

// projectCountConcurrency bounds the per-project agent count queries
const projectCountConcurrency = 4

var (
	agentSearchFields   = []string{"username", "first_name", "last_name", "project"}
	projectSearchFields = []string{"project_name", "company_name", "client_company_name"}
	callSearchFields    = []string{
		"agent_info.username", "agent_info.first_name", "agent_info.last_name",
		"agent_info.project_name", "status",
	}

	agentProjection = bson.M{
		"username": 1, "first_name": 1, "last_name": 1, "email": 1, "project": 1, "created_at": 1,
	}
	projectProjection = bson.M{
		"project_name": 1, "company_name": 1, "client_company_name": 1,
		"description": 1, "status": 1, "created_at": 1,
	}
	callProjection = bson.M{
		"agent_info": 1, "day_processed": 1, "score": 1, "average_sentiment": 1,
		"file_info": 1, "status": 1,
	}
)

// Resolver maps a tenant id to its allow-listed database
type Resolver interface {
	Resolve(tenant string) (*mongo.Database, error)
}

// Records serves the tenant-scoped agent, project and call documents
type Records struct {
	tenants Resolver
	logger  zerolog.Logger
}

// NewRecords creates a new Records store
func NewRecords(tenants Resolver, logger zerolog.Logger) *Records {
	return &Records{
		tenants: tenants,
		logger:  logger.With().Str("component", "records").Logger(),
	}
}

func (s *Records) collection(tenant, name string) (*mongo.Collection, error) {
	db, err := s.tenants.Resolve(tenant)
	if err != nil {
		return nil, err
	}
	return db.Collection(name), nil
}

// ListAgents returns one page of agents matching the search
func (s *Records) ListAgents(ctx context.Context, tenant string, q ListQuery) (types.Page[types.AgentRecord], error) {
	q, err := q.Normalize()
	if err != nil {
		return types.Page[types.AgentRecord]{}, err
	}
	coll, err := s.collection(tenant, AgentsCollection)
	if err != nil {
		return types.Page[types.AgentRecord]{}, err
	}
	return listPage[types.AgentRecord](ctx, coll, SearchFilter(q.Search, agentSearchFields...), agentProjection, q)
}

// GetAgent returns the agent with the given username
func (s *Records) GetAgent(ctx context.Context, tenant, username string) (types.AgentRecord, error) {
	var agent types.AgentRecord
	coll, err := s.collection(tenant, AgentsCollection)
	if err != nil {
		return agent, err
	}

	err = coll.FindOne(ctx, bson.M{"username": username}, options.FindOne().SetProjection(agentProjection)).Decode(&agent)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return agent, ErrNotFound
	}
	if err != nil {
		return agent, fmt.Errorf("failed to get agent: %w", err)
	}
	return agent, nil
}

// ListProjects returns one page of projects, each with a live count of the
// agents assigned to it
func (s *Records) ListProjects(ctx context.Context, tenant string, q ListQuery) (types.Page[types.ProjectRecord], error) {
	q, err := q.Normalize()
	if err != nil {
		return types.Page[types.ProjectRecord]{}, err
	}
	db, err := s.tenants.Resolve(tenant)
	if err != nil {
		return types.Page[types.ProjectRecord]{}, err
	}

	page, err := listPage[types.ProjectRecord](ctx, db.Collection(ProjectsCollection),
		SearchFilter(q.Search, projectSearchFields...), projectProjection, q)
	if err != nil {
		return page, err
	}

	agents := db.Collection(AgentsCollection)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(projectCountConcurrency)
	for i := range page.Items {
		item := &page.Items[i]
		g.Go(func() error {
			n, err := agents.CountDocuments(gctx, bson.M{"project": item.ProjectName})
			if err != nil {
				return fmt.Errorf("failed to count agents of project %q: %w", item.ProjectName, err)
			}
			item.AgentsCount = n
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return types.Page[types.ProjectRecord]{}, err
	}
	return page, nil
}

// UpdateProject applies patch to the project and returns the updated document
func (s *Records) UpdateProject(ctx context.Context, tenant, id string, patch types.ProjectPatch) (types.ProjectRecord, error) {
	var project types.ProjectRecord
	if patch.Empty() {
		return project, ErrEmptyPatch
	}
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return project, ErrNotFound
	}
	coll, err := s.collection(tenant, ProjectsCollection)
	if err != nil {
		return project, err
	}

	set := bson.M{}
	if patch.ProjectName != nil {
		set["project_name"] = *patch.ProjectName
	}
	if patch.CompanyName != nil {
		set["company_name"] = *patch.CompanyName
	}
	if patch.ClientCompanyName != nil {
		set["client_company_name"] = *patch.ClientCompanyName
	}
	if patch.Description != nil {
		set["description"] = *patch.Description
	}
	if patch.Status != nil {
		set["status"] = *patch.Status
	}

	opts := options.FindOneAndUpdate().
		SetReturnDocument(options.After).
		SetProjection(projectProjection)
	err = coll.FindOneAndUpdate(ctx, bson.M{"_id": oid}, bson.M{"$set": set}, opts).Decode(&project)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return project, ErrNotFound
	}
	if err != nil {
		return project, fmt.Errorf("failed to update project: %w", err)
	}

	s.logger.Info().
		Str("tenant", tenant).
		Str("project_id", id).
		Int("fields", len(set)).
		Msg("project updated")
	return project, nil
}

// ListCalls returns one page of calls, optionally restricted to one agent
func (s *Records) ListCalls(ctx context.Context, tenant, username string, q ListQuery) (types.Page[types.CallSummary], error) {
	q, err := q.Normalize()
	if err != nil {
		return types.Page[types.CallSummary]{}, err
	}
	coll, err := s.collection(tenant, CallsCollection)
	if err != nil {
		return types.Page[types.CallSummary]{}, err
	}

	var agentFilter bson.M
	if username != "" {
		agentFilter = bson.M{"agent_info.username": username}
	}
	filter := and(agentFilter, SearchFilter(q.Search, callSearchFields...))
	return listPage[types.CallSummary](ctx, coll, filter, callProjection, q)
}

// GetCall returns the full call document including its transcript
func (s *Records) GetCall(ctx context.Context, tenant, id string) (types.CallRecord, error) {
	var call types.CallRecord
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return call, ErrNotFound
	}
	coll, err := s.collection(tenant, CallsCollection)
	if err != nil {
		return call, err
	}

	err = coll.FindOne(ctx, bson.M{"_id": oid}).Decode(&call)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return call, ErrNotFound
	}
	if err != nil {
		return call, fmt.Errorf("failed to get call: %w", err)
	}
	return call, nil
}

// DeleteCall removes a single call
func (s *Records) DeleteCall(ctx context.Context, tenant, id string) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return ErrNotFound
	}
	coll, err := s.collection(tenant, CallsCollection)
	if err != nil {
		return err
	}

	res, err := coll.DeleteOne(ctx, bson.M{"_id": oid})
	if err != nil {
		return fmt.Errorf("failed to delete call: %w", err)
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}

	s.logger.Info().Str("tenant", tenant).Str("call_id", id).Msg("call deleted")
	return nil
}
