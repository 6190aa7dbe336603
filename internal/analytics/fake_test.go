package analytics

import (
	"context"
	"sync"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

// fakeAggregator returns canned documents per label and records every
// pipeline it was given
type fakeAggregator struct {
	mu        sync.Mutex
	docs      map[string][]bson.M
	err       error
	pipelines map[string][]mongo.Pipeline
	tenants   []string
}

func newFakeAggregator() *fakeAggregator {
	return &fakeAggregator{
		docs:      make(map[string][]bson.M),
		pipelines: make(map[string][]mongo.Pipeline),
	}
}

func (f *fakeAggregator) Aggregate(_ context.Context, tenant, label string, pipeline mongo.Pipeline, results interface{}) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.tenants = append(f.tenants, tenant)
	f.pipelines[label] = append(f.pipelines[label], pipeline)
	if f.err != nil {
		return f.err
	}

	docs := f.docs[label]
	if docs == nil {
		docs = []bson.M{}
	}
	raw, err := bson.Marshal(bson.M{"items": docs})
	if err != nil {
		return err
	}
	var wrapper struct {
		Items bson.RawValue `bson:"items"`
	}
	if err := bson.Unmarshal(raw, &wrapper); err != nil {
		return err
	}
	return wrapper.Items.Unmarshal(results)
}
