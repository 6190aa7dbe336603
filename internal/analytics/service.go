package analytics

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dennisdiepolder/callscope/internal/storage"
	"github.com/dennisdiepolder/callscope/internal/types"
	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/mongo"
	"golang.org/x/sync/errgroup"
)

const (
	DefaultRankingLimit = 10
	MaxRankingLimit     = 100
)

var (
	ErrUnknownMetric      = errors.New("unknown metric")
	ErrInvalidGranularity = errors.New("granularity must be day or month")
	ErrInvalidChannel     = errors.New("channel must be SPEAKER_00 or SPEAKER_01")
	ErrInvalidLimit       = fmt.Errorf("limit must be between 1 and %d", MaxRankingLimit)
)

// Aggregator runs a pipeline on the calls collection of one tenant and
// decodes every result document into results
type Aggregator interface {
	Aggregate(ctx context.Context, tenant, label string, pipeline mongo.Pipeline, results interface{}) error
}

// QueryObserver records the duration and outcome of aggregation queries
type QueryObserver interface {
	ObserveQuery(label string, d time.Duration, err error)
}

// MongoAggregator runs pipelines against allow-listed tenant databases
type MongoAggregator struct {
	tenants  storage.Resolver
	observer QueryObserver
}

// NewMongoAggregator creates an aggregator. observer may be nil.
func NewMongoAggregator(tenants storage.Resolver, observer QueryObserver) *MongoAggregator {
	return &MongoAggregator{tenants: tenants, observer: observer}
}

// Aggregate implements Aggregator
func (a *MongoAggregator) Aggregate(ctx context.Context, tenant, label string, pipeline mongo.Pipeline, results interface{}) (err error) {
	db, err := a.tenants.Resolve(tenant)
	if err != nil {
		return err
	}

	start := time.Now()
	defer func() {
		if a.observer != nil {
			a.observer.ObserveQuery(label, time.Since(start), err)
		}
	}()

	cursor, err := db.Collection(storage.CallsCollection).Aggregate(ctx, pipeline)
	if err != nil {
		return fmt.Errorf("aggregation %s failed: %w", label, err)
	}
	if err := cursor.All(ctx, results); err != nil {
		return fmt.Errorf("failed to decode %s aggregation: %w", label, err)
	}
	return nil
}

// Comparison is a metric for the current month joined with the month before
type Comparison struct {
	Value     float64 `json:"value"`
	Previous  float64 `json:"previous"`
	ChangePct float64 `json:"changePct"`
	Current   Window  `json:"currentWindow"`
	Last      Window  `json:"previousWindow"`
}

// Point is one bucket of a time series
type Point struct {
	BucketKey string  `json:"bucketKey"`
	Value     float64 `json:"value"`
}

// AgentValue is one leaderboard row
type AgentValue struct {
	Username  string  `json:"username"`
	FirstName string  `json:"firstName,omitempty"`
	LastName  string  `json:"lastName,omitempty"`
	Value     float64 `json:"value"`
	Calls     int64   `json:"calls"`
}

// Summary bundles the scalar metrics of one filter, keyed by metric name
type Summary struct {
	Username string             `json:"username,omitempty"`
	Window   Window             `json:"window"`
	Values   map[string]float64 `json:"values"`
}

// summaryMetrics are the metrics reported by AgentSummary
var summaryMetrics = []Metric{
	Calls, Score, Sentiment, CallDuration,
	TalkDurationAgent, TalkDurationClient, DeadAirAgent, DeadAirClient,
}

type valueDoc struct {
	ID    interface{} `bson:"_id"`
	Value *float64    `bson:"value"`
}

type bucketDoc struct {
	ID    interface{} `bson:"_id"`
	Count int64       `bson:"count"`
}

type rankingDoc struct {
	ID        *string  `bson:"_id"`
	Value     *float64 `bson:"value"`
	Calls     int64    `bson:"calls"`
	FirstName string   `bson:"first_name"`
	LastName  string   `bson:"last_name"`
}

// Option configures a Service
type Option func(*Service)

// WithClock replaces the wall clock used for month windows
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

// Service computes metrics through one parameterized pipeline builder
type Service struct {
	agg    Aggregator
	now    func() time.Time
	logger zerolog.Logger
}

// NewService creates a new analytics service
func NewService(agg Aggregator, logger zerolog.Logger, opts ...Option) *Service {
	s := &Service{
		agg:    agg,
		now:    time.Now,
		logger: logger.With().Str("component", "analytics").Logger(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Scalar computes one rounded value for the filter. An empty set yields 0.
func (s *Service) Scalar(ctx context.Context, m Metric, f Filter) (float64, error) {
	var docs []valueDoc
	if err := s.agg.Aggregate(ctx, f.Tenant, m.Name, ScalarPipeline(m, f), &docs); err != nil {
		return 0, err
	}
	if len(docs) == 0 || docs[0].Value == nil {
		return 0, nil
	}
	return m.Round(*docs[0].Value), nil
}

// Compare computes the metric for the current and the previous calendar
// month concurrently. Any window on f is replaced.
func (s *Service) Compare(ctx context.Context, m Metric, f Filter) (Comparison, error) {
	current, previous := MonthWindows(s.now())
	out := Comparison{Current: current, Last: previous}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		cf := f
		cf.Window = current
		v, err := s.Scalar(gctx, m, cf)
		out.Value = v
		return err
	})
	g.Go(func() error {
		pf := f
		pf.Window = previous
		v, err := s.Scalar(gctx, m, pf)
		out.Previous = v
		return err
	})
	if err := g.Wait(); err != nil {
		return Comparison{}, err
	}

	out.ChangePct = ChangePct(out.Value, out.Previous)
	return out, nil
}

// ChangePct returns the relative change from previous to current in percent,
// rounded to two places. It is 0 when previous is 0.
func ChangePct(current, previous float64) float64 {
	if previous == 0 {
		return 0
	}
	return Round((current-previous)/previous*100, 2)
}

// Series computes one value per day or month present in the filtered set
func (s *Service) Series(ctx context.Context, m Metric, f Filter, g Granularity) ([]Point, error) {
	if !g.Valid() {
		return nil, ErrInvalidGranularity
	}

	var docs []valueDoc
	if err := s.agg.Aggregate(ctx, f.Tenant, m.Name+"_series", SeriesPipeline(m, f, g), &docs); err != nil {
		return nil, err
	}

	points := make([]Point, 0, len(docs))
	for _, d := range docs {
		key, ok := d.ID.(string)
		if !ok || key == "" {
			continue
		}
		var v float64
		if d.Value != nil {
			v = m.Round(*d.Value)
		}
		points = append(points, Point{BucketKey: key, Value: v})
	}
	return points, nil
}

// Histogram counts calls per talk-duration bucket of the channel. All
// buckets are returned, in order, including empty ones.
func (s *Service) Histogram(ctx context.Context, f Filter, ch types.SpeakerChannel) ([]Bucket, error) {
	if ch == "" {
		ch = types.SpeakerAgent
	}
	if !ch.Valid() {
		return nil, ErrInvalidChannel
	}

	var docs []bucketDoc
	if err := s.agg.Aggregate(ctx, f.Tenant, "duration_histogram", HistogramPipeline(f, ch), &docs); err != nil {
		return nil, err
	}

	out := emptyHistogram()
	for _, d := range docs {
		min, ok := toFloat(d.ID)
		if !ok {
			continue // default bucket
		}
		if idx := bucketByMin(min); idx >= 0 {
			out[idx].Count += d.Count
		}
	}
	return out, nil
}

// Ranking computes the metric per agent, highest first
func (s *Service) Ranking(ctx context.Context, m Metric, f Filter, limit int64) ([]AgentValue, error) {
	if limit == 0 {
		limit = DefaultRankingLimit
	}
	if limit < 1 || limit > MaxRankingLimit {
		return nil, ErrInvalidLimit
	}

	var docs []rankingDoc
	if err := s.agg.Aggregate(ctx, f.Tenant, m.Name+"_ranking", RankingPipeline(m, f, limit), &docs); err != nil {
		return nil, err
	}

	out := make([]AgentValue, 0, len(docs))
	for _, d := range docs {
		if d.ID == nil {
			continue
		}
		row := AgentValue{
			Username:  *d.ID,
			FirstName: d.FirstName,
			LastName:  d.LastName,
			Calls:     d.Calls,
		}
		if d.Value != nil {
			row.Value = m.Round(*d.Value)
		}
		out = append(out, row)
	}
	return out, nil
}

// AgentSummary computes every summary metric for the filter concurrently
func (s *Service) AgentSummary(ctx context.Context, f Filter) (Summary, error) {
	values := make([]float64, len(summaryMetrics))

	g, gctx := errgroup.WithContext(ctx)
	for i, m := range summaryMetrics {
		g.Go(func() error {
			v, err := s.Scalar(gctx, m, f)
			values[i] = v
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return Summary{}, err
	}

	out := Summary{Username: f.Username, Window: f.Window, Values: make(map[string]float64, len(values))}
	for i, m := range summaryMetrics {
		out.Values[m.Name] = values[i]
	}

	s.logger.Debug().
		Str("tenant", f.Tenant).
		Str("username", f.Username).
		Msg("agent summary computed")
	return out, nil
}

func toFloat(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	default:
		return 0, false
	}
}
