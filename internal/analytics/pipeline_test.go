package analytics

import (
	"testing"

	"github.com/dennisdiepolder/callscope/internal/types"
	"github.com/google/go-cmp/cmp"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

func TestScalarPipeline(t *testing.T) {
	tests := []struct {
		name   string
		metric Metric
		filter Filter
		want   mongo.Pipeline
	}{
		{
			name:   "all time average",
			metric: Score,
			filter: Filter{Tenant: "acme"},
			want: mongo.Pipeline{
				{{Key: "$match", Value: bson.D{}}},
				{{Key: "$group", Value: bson.D{
					{Key: "_id", Value: nil},
					{Key: "value", Value: bson.D{{Key: "$avg", Value: "$score"}}},
				}}},
			},
		},
		{
			name:   "agent count in window",
			metric: Calls,
			filter: Filter{Tenant: "acme", Username: "jdoe", Window: Window{From: "2024-03-01", To: "2024-04-01"}},
			want: mongo.Pipeline{
				{{Key: "$match", Value: bson.D{
					{Key: "agent_info.username", Value: "jdoe"},
					{Key: "day_processed", Value: bson.D{
						{Key: "$gte", Value: "2024-03-01"},
						{Key: "$lt", Value: "2024-04-01"},
					}},
				}}},
				{{Key: "$group", Value: bson.D{
					{Key: "_id", Value: nil},
					{Key: "value", Value: bson.D{{Key: "$sum", Value: 1}}},
				}}},
			},
		},
		{
			name:   "sum of agent talk time from open start",
			metric: TotalTalkAgent,
			filter: Filter{Tenant: "acme", Window: Window{To: "2024-01-01"}},
			want: mongo.Pipeline{
				{{Key: "$match", Value: bson.D{
					{Key: "day_processed", Value: bson.D{{Key: "$lt", Value: "2024-01-01"}}},
				}}},
				{{Key: "$group", Value: bson.D{
					{Key: "_id", Value: nil},
					{Key: "value", Value: bson.D{{Key: "$sum", Value: "$total_talk_duration.SPEAKER_00"}}},
				}}},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ScalarPipeline(tt.metric, tt.filter)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("pipeline mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestSeriesPipeline(t *testing.T) {
	got := SeriesPipeline(Sentiment, Filter{Tenant: "acme"}, ByMonth)
	want := mongo.Pipeline{
		{{Key: "$match", Value: bson.D{
			{Key: "day_processed", Value: bson.D{{Key: "$type", Value: "string"}}},
		}}},
		{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: bson.D{{Key: "$substrBytes", Value: bson.A{"$day_processed", 0, 7}}}},
			{Key: "value", Value: bson.D{{Key: "$avg", Value: "$average_sentiment"}}},
		}}},
		{{Key: "$sort", Value: bson.D{{Key: "_id", Value: 1}}}},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("pipeline mismatch (-want +got):\n%s", diff)
	}

	daily := SeriesPipeline(Sentiment, Filter{Tenant: "acme"}, ByDay)
	group := daily[1][0].Value.(bson.D)
	id := group[0].Value.(bson.D)
	if diff := cmp.Diff(bson.A{"$day_processed", 0, 10}, id[0].Value); diff != "" {
		t.Errorf("day key mismatch (-want +got):\n%s", diff)
	}
}

func TestHistogramPipeline(t *testing.T) {
	got := HistogramPipeline(Filter{Tenant: "acme", Username: "jdoe"}, types.SpeakerClient)
	bucket := got[1][0]
	if bucket.Key != "$bucket" {
		t.Fatalf("expected $bucket stage, got %s", bucket.Key)
	}
	spec := bucket.Value.(bson.D)
	if spec[0].Value != "$total_talk_duration.SPEAKER_01" {
		t.Errorf("expected client talk field, got %v", spec[0].Value)
	}
	if spec[2].Value != otherBucket {
		t.Errorf("expected default bucket %q, got %v", otherBucket, spec[2].Value)
	}
}

func TestRankingPipeline(t *testing.T) {
	got := RankingPipeline(Score, Filter{Tenant: "acme"}, 5)
	if len(got) != 4 {
		t.Fatalf("expected 4 stages, got %d", len(got))
	}
	if diff := cmp.Diff(bson.D{{Key: "$limit", Value: int64(5)}}, got[3]); diff != "" {
		t.Errorf("limit stage mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(bson.D{{Key: "value", Value: -1}, {Key: "_id", Value: 1}}, got[2][0].Value); diff != "" {
		t.Errorf("sort stage mismatch (-want +got):\n%s", diff)
	}
}
