// Package analytics computes call metrics for one tenant with a single
// parameterized aggregation builder. A metric names a field and an operator;
// a filter names the tenant, an optional agent and a time window.
package analytics

import (
	"sort"

	"github.com/dennisdiepolder/callscope/internal/types"
	"github.com/shopspring/decimal"
)

// Op is the aggregation operator applied to a metric field
type Op string

const (
	OpAvg   Op = "avg"
	OpSum   Op = "sum"
	OpCount Op = "count"
)

// Metric describes one aggregatable quantity of a call record
type Metric struct {
	Name      string `json:"name"`
	Field     string `json:"field,omitempty"` // dotted path, empty for count
	Op        Op     `json:"op"`
	Precision int32  `json:"precision"`
}

// Round rounds v to the metric precision
func (m Metric) Round(v float64) float64 {
	return Round(v, m.Precision)
}

// Round rounds half away from zero to the given number of decimal places
func Round(v float64, precision int32) float64 {
	return decimal.NewFromFloat(v).Round(precision).InexactFloat64()
}

func talkField(ch types.SpeakerChannel) string {
	return "total_talk_duration." + string(ch)
}

func deadAirField(ch types.SpeakerChannel) string {
	return "total_dead_air_duration." + string(ch)
}

var (
	Score          = Metric{Name: "score", Field: "score", Op: OpAvg, Precision: 2}
	Sentiment      = Metric{Name: "sentiment", Field: "average_sentiment", Op: OpAvg, Precision: 2}
	CallDuration   = Metric{Name: "call_duration", Field: "file_info.duration", Op: OpAvg, Precision: 2}
	ProcessingTime = Metric{Name: "processing_time", Field: "processing_time_seconds", Op: OpAvg, Precision: 2}
	Calls          = Metric{Name: "calls", Op: OpCount, Precision: 0}

	TalkDurationAgent  = Metric{Name: "talk_duration_agent", Field: talkField(types.SpeakerAgent), Op: OpAvg, Precision: 2}
	TalkDurationClient = Metric{Name: "talk_duration_client", Field: talkField(types.SpeakerClient), Op: OpAvg, Precision: 2}
	DeadAirAgent       = Metric{Name: "dead_air_agent", Field: deadAirField(types.SpeakerAgent), Op: OpAvg, Precision: 2}
	DeadAirClient      = Metric{Name: "dead_air_client", Field: deadAirField(types.SpeakerClient), Op: OpAvg, Precision: 2}
	TotalTalkAgent     = Metric{Name: "total_talk_agent", Field: talkField(types.SpeakerAgent), Op: OpSum, Precision: 2}
	TotalDeadAirAgent  = Metric{Name: "total_dead_air_agent", Field: deadAirField(types.SpeakerAgent), Op: OpSum, Precision: 2}
)

var builtin = map[string]Metric{}

func init() {
	for _, m := range []Metric{
		Score, Sentiment, CallDuration, ProcessingTime, Calls,
		TalkDurationAgent, TalkDurationClient, DeadAirAgent, DeadAirClient,
		TotalTalkAgent, TotalDeadAirAgent,
	} {
		builtin[m.Name] = m
	}
}

// Lookup returns the built-in metric with the given name
func Lookup(name string) (Metric, bool) {
	m, ok := builtin[name]
	return m, ok
}

// Metrics returns all built-in metrics sorted by name
func Metrics() []Metric {
	out := make([]Metric, 0, len(builtin))
	for _, m := range builtin {
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}
