package analytics

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/dennisdiepolder/callscope/internal/types"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
)

func newTestService(agg Aggregator) *Service {
	clock := func() time.Time { return time.Date(2024, 3, 15, 10, 0, 0, 0, time.UTC) }
	return NewService(agg, zerolog.Nop(), WithClock(clock))
}

func TestScalar(t *testing.T) {
	tests := []struct {
		name   string
		metric Metric
		docs   []bson.M
		want   float64
	}{
		{name: "rounded to two places", metric: Score, docs: []bson.M{{"_id": nil, "value": 3.14159}}, want: 3.14},
		{name: "negative sentiment", metric: Sentiment, docs: []bson.M{{"_id": nil, "value": -0.456}}, want: -0.46},
		{name: "empty set", metric: Score, docs: nil, want: 0},
		{name: "null average", metric: Score, docs: []bson.M{{"_id": nil, "value": nil}}, want: 0},
		{name: "count", metric: Calls, docs: []bson.M{{"_id": nil, "value": int32(42)}}, want: 42},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			agg := newFakeAggregator()
			agg.docs[tt.metric.Name] = tt.docs

			got, err := newTestService(agg).Scalar(context.Background(), tt.metric, Filter{Tenant: "acme"})
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestScalarError(t *testing.T) {
	agg := newFakeAggregator()
	agg.err = errors.New("connection refused")

	_, err := newTestService(agg).Scalar(context.Background(), Score, Filter{Tenant: "acme"})
	assert.EqualError(t, err, "connection refused")
}

func TestCompare(t *testing.T) {
	agg := newFakeAggregator()
	agg.docs[Score.Name] = []bson.M{{"_id": nil, "value": 80.0}}

	got, err := newTestService(agg).Compare(context.Background(), Score, Filter{Tenant: "acme", Username: "jdoe"})
	require.NoError(t, err)

	assert.Equal(t, Window{From: "2024-03-01", To: "2024-04-01"}, got.Current)
	assert.Equal(t, Window{From: "2024-02-01", To: "2024-03-01"}, got.Last)
	assert.Equal(t, 80.0, got.Value)
	assert.Equal(t, 80.0, got.Previous)
	assert.Equal(t, 0.0, got.ChangePct)

	// both month windows were queried
	require.Len(t, agg.pipelines[Score.Name], 2)
	var froms []string
	for _, p := range agg.pipelines[Score.Name] {
		match := p[0][0].Value.(bson.D)
		day := match[1].Value.(bson.D)
		froms = append(froms, day[0].Value.(string))
	}
	assert.ElementsMatch(t, []string{"2024-03-01", "2024-02-01"}, froms)
}

func TestChangePct(t *testing.T) {
	assert.Equal(t, 25.0, ChangePct(100, 80))
	assert.Equal(t, -50.0, ChangePct(1, 2))
	assert.Equal(t, 0.0, ChangePct(5, 0))
	assert.Equal(t, 33.33, ChangePct(4, 3))
}

func TestSeries(t *testing.T) {
	agg := newFakeAggregator()
	agg.docs["score_series"] = []bson.M{
		{"_id": "2024-03-01", "value": 70.126},
		{"_id": "2024-03-02", "value": nil},
		{"_id": nil, "value": 50.0},
	}

	got, err := newTestService(agg).Series(context.Background(), Score, Filter{Tenant: "acme"}, ByDay)
	require.NoError(t, err)
	assert.Equal(t, []Point{
		{BucketKey: "2024-03-01", Value: 70.13},
		{BucketKey: "2024-03-02", Value: 0},
	}, got)
}

func TestSeriesEmptyIsNotNil(t *testing.T) {
	got, err := newTestService(newFakeAggregator()).Series(context.Background(), Score, Filter{Tenant: "acme"}, ByMonth)
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestSeriesInvalidGranularity(t *testing.T) {
	_, err := newTestService(newFakeAggregator()).Series(context.Background(), Score, Filter{Tenant: "acme"}, "week")
	assert.ErrorIs(t, err, ErrInvalidGranularity)
}

func TestHistogram(t *testing.T) {
	agg := newFakeAggregator()
	agg.docs["duration_histogram"] = []bson.M{
		{"_id": 60.0, "count": int64(3)},
		{"_id": int32(0), "count": int64(1)},
		{"_id": "other", "count": int64(7)},
	}

	got, err := newTestService(agg).Histogram(context.Background(), Filter{Tenant: "acme"}, "")
	require.NoError(t, err)
	require.Len(t, got, 9)

	counts := map[string]int64{}
	for _, b := range got {
		counts[b.Label] = b.Count
	}
	assert.Equal(t, int64(3), counts["1 - 3 min"])
	assert.Equal(t, int64(0), counts["30 - 60 sec"])
	assert.Equal(t, int64(1), counts["< 10 sec"])

	// default channel is the agent
	spec := agg.pipelines["duration_histogram"][0][1][0].Value.(bson.D)
	assert.Equal(t, "$total_talk_duration.SPEAKER_00", spec[0].Value)
}

func TestHistogramEmpty(t *testing.T) {
	got, err := newTestService(newFakeAggregator()).Histogram(context.Background(), Filter{Tenant: "acme"}, types.SpeakerClient)
	require.NoError(t, err)
	require.Len(t, got, 9)
	for _, b := range got {
		assert.Zero(t, b.Count, b.Label)
	}
}

func TestHistogramInvalidChannel(t *testing.T) {
	_, err := newTestService(newFakeAggregator()).Histogram(context.Background(), Filter{Tenant: "acme"}, "SPEAKER_09")
	assert.ErrorIs(t, err, ErrInvalidChannel)
}

func TestRanking(t *testing.T) {
	agg := newFakeAggregator()
	agg.docs["score_ranking"] = []bson.M{
		{"_id": "ana", "value": 91.456, "calls": int64(12), "first_name": "Ana", "last_name": "Lopez"},
		{"_id": "ben", "value": 77.0, "calls": int64(4)},
		{"_id": nil, "value": 10.0, "calls": int64(1)},
	}

	got, err := newTestService(agg).Ranking(context.Background(), Score, Filter{Tenant: "acme"}, 0)
	require.NoError(t, err)
	assert.Equal(t, []AgentValue{
		{Username: "ana", FirstName: "Ana", LastName: "Lopez", Value: 91.46, Calls: 12},
		{Username: "ben", Value: 77, Calls: 4},
	}, got)

	_, err = newTestService(agg).Ranking(context.Background(), Score, Filter{Tenant: "acme"}, 500)
	assert.ErrorIs(t, err, ErrInvalidLimit)
}

func TestAgentSummary(t *testing.T) {
	agg := newFakeAggregator()
	agg.docs[Calls.Name] = []bson.M{{"_id": nil, "value": int64(8)}}
	agg.docs[Score.Name] = []bson.M{{"_id": nil, "value": 66.666}}

	got, err := newTestService(agg).AgentSummary(context.Background(), Filter{Tenant: "acme", Username: "ana"})
	require.NoError(t, err)
	assert.Equal(t, "ana", got.Username)
	assert.Len(t, got.Values, len(summaryMetrics))
	assert.Equal(t, 8.0, got.Values["calls"])
	assert.Equal(t, 66.67, got.Values["score"])
	assert.Equal(t, 0.0, got.Values["sentiment"])
}
