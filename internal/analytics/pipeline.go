package analytics

import (
	"github.com/dennisdiepolder/callscope/internal/types"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

const (
	dayField      = "day_processed"
	usernameField = "agent_info.username"

	// otherBucket collects missing or non-numeric durations
	otherBucket = "other"
)

// Granularity selects the time-series bucket width
type Granularity string

const (
	ByDay   Granularity = "day"
	ByMonth Granularity = "month"
)

// keyLength is the length of the day_processed prefix used as bucket key
func (g Granularity) keyLength() int {
	if g == ByMonth {
		return 7 // YYYY-MM
	}
	return 10 // YYYY-MM-DD
}

// Valid reports whether g is a known granularity
func (g Granularity) Valid() bool {
	return g == ByDay || g == ByMonth
}

// Filter scopes an aggregation to one tenant, optionally one agent, and a window
type Filter struct {
	Tenant   string
	Username string
	Window   Window
}

// match builds the $match stage. When requireDay is set, records without a
// string day_processed are excluded.
func (f Filter) match(requireDay bool) bson.D {
	m := bson.D{}
	if f.Username != "" {
		m = append(m, bson.E{Key: usernameField, Value: f.Username})
	}

	day := bson.D{}
	if requireDay {
		day = append(day, bson.E{Key: "$type", Value: "string"})
	}
	if f.Window.From != "" {
		day = append(day, bson.E{Key: "$gte", Value: f.Window.From})
	}
	if f.Window.To != "" {
		day = append(day, bson.E{Key: "$lt", Value: f.Window.To})
	}
	if len(day) > 0 {
		m = append(m, bson.E{Key: dayField, Value: day})
	}
	return bson.D{{Key: "$match", Value: m}}
}

// accumulator returns the $group accumulator for the metric
func (m Metric) accumulator() bson.D {
	switch m.Op {
	case OpCount:
		return bson.D{{Key: "$sum", Value: 1}}
	case OpSum:
		return bson.D{{Key: "$sum", Value: "$" + m.Field}}
	default:
		return bson.D{{Key: "$avg", Value: "$" + m.Field}}
	}
}

// ScalarPipeline computes one value for the whole filtered set
func ScalarPipeline(m Metric, f Filter) mongo.Pipeline {
	return mongo.Pipeline{
		f.match(false),
		{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: nil},
			{Key: "value", Value: m.accumulator()},
		}}},
	}
}

// SeriesPipeline computes one value per day or month, ascending by key
func SeriesPipeline(m Metric, f Filter, g Granularity) mongo.Pipeline {
	return mongo.Pipeline{
		f.match(true),
		{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: bson.D{{Key: "$substrBytes", Value: bson.A{"$" + dayField, 0, g.keyLength()}}}},
			{Key: "value", Value: m.accumulator()},
		}}},
		{{Key: "$sort", Value: bson.D{{Key: "_id", Value: 1}}}},
	}
}

// HistogramPipeline counts calls per talk-duration bucket of one channel
func HistogramPipeline(f Filter, ch types.SpeakerChannel) mongo.Pipeline {
	return mongo.Pipeline{
		f.match(false),
		{{Key: "$bucket", Value: bson.D{
			{Key: "groupBy", Value: "$" + talkField(ch)},
			{Key: "boundaries", Value: boundaries()},
			{Key: "default", Value: otherBucket},
			{Key: "output", Value: bson.D{{Key: "count", Value: bson.D{{Key: "$sum", Value: 1}}}}},
		}}},
	}
}

// RankingPipeline computes the metric per agent, best first
func RankingPipeline(m Metric, f Filter, limit int64) mongo.Pipeline {
	return mongo.Pipeline{
		f.match(false),
		{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: "$" + usernameField},
			{Key: "value", Value: m.accumulator()},
			{Key: "calls", Value: bson.D{{Key: "$sum", Value: 1}}},
			{Key: "first_name", Value: bson.D{{Key: "$first", Value: "$agent_info.first_name"}}},
			{Key: "last_name", Value: bson.D{{Key: "$first", Value: "$agent_info.last_name"}}},
		}}},
		{{Key: "$sort", Value: bson.D{{Key: "value", Value: -1}, {Key: "_id", Value: 1}}}},
		{{Key: "$limit", Value: limit}},
	}
}
