package storage

import (
	"context"
	"fmt"
	"math"
	"regexp"
	"strings"

	"github.com/dennisdiepolder/callscope/internal/types"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	DefaultPage  = 1
	DefaultLimit = 10
	MaxLimit     = 100
)

// ListQuery selects one page of a listing. Zero Page and Limit take defaults.
type ListQuery struct {
	Page   int64
	Limit  int64
	Search string
}

// Normalize applies defaults and rejects unsupported values
func (q ListQuery) Normalize() (ListQuery, error) {
	if q.Page == 0 {
		q.Page = DefaultPage
	}
	if q.Limit == 0 {
		q.Limit = DefaultLimit
	}
	if q.Page < 1 {
		return q, fmt.Errorf("%w: page must be >= 1", ErrInvalidPagination)
	}
	if q.Limit < 1 || q.Limit > MaxLimit {
		return q, fmt.Errorf("%w: limit must be between 1 and %d", ErrInvalidPagination, MaxLimit)
	}
	// Skip must fit in an int64
	if q.Page-1 > math.MaxInt64/q.Limit {
		return q, fmt.Errorf("%w: page is out of range", ErrInvalidPagination)
	}
	q.Search = strings.TrimSpace(q.Search)
	return q, nil
}

// Skip returns the number of documents before the page
func (q ListQuery) Skip() int64 {
	return (q.Page - 1) * q.Limit
}

// SearchFilter matches search as a case-insensitive substring of any field.
// An empty search matches everything.
func SearchFilter(search string, fields ...string) bson.M {
	if search == "" || len(fields) == 0 {
		return bson.M{}
	}
	pattern := primitive.Regex{Pattern: regexp.QuoteMeta(search), Options: "i"}
	or := make(bson.A, 0, len(fields))
	for _, f := range fields {
		or = append(or, bson.M{f: pattern})
	}
	return bson.M{"$or": or}
}

// and merges filters, skipping empty ones
func and(filters ...bson.M) bson.M {
	parts := make(bson.A, 0, len(filters))
	for _, f := range filters {
		if len(f) > 0 {
			parts = append(parts, f)
		}
	}
	switch len(parts) {
	case 0:
		return bson.M{}
	case 1:
		return parts[0].(bson.M)
	default:
		return bson.M{"$and": parts}
	}
}

// listPage counts all matches and fetches one page sorted by _id so that
// consecutive pages never overlap
func listPage[T any](ctx context.Context, coll *mongo.Collection, filter, projection bson.M, q ListQuery) (types.Page[T], error) {
	total, err := coll.CountDocuments(ctx, filter)
	if err != nil {
		return types.Page[T]{}, fmt.Errorf("failed to count %s: %w", coll.Name(), err)
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "_id", Value: 1}}).
		SetSkip(q.Skip()).
		SetLimit(q.Limit)
	if projection != nil {
		opts.SetProjection(projection)
	}

	cursor, err := coll.Find(ctx, filter, opts)
	if err != nil {
		return types.Page[T]{}, fmt.Errorf("failed to list %s: %w", coll.Name(), err)
	}

	items := make([]T, 0, q.Limit)
	if err := cursor.All(ctx, &items); err != nil {
		return types.Page[T]{}, fmt.Errorf("failed to decode %s: %w", coll.Name(), err)
	}

	return types.Page[T]{Items: items, TotalItems: total}, nil
}
