package api

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/dennisdiepolder/callscope/internal/analytics"
	"github.com/dennisdiepolder/callscope/internal/types"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
)

// Analytics computes metrics for the HTTP layer
type Analytics interface {
	Scalar(ctx context.Context, m analytics.Metric, f analytics.Filter) (float64, error)
	Compare(ctx context.Context, m analytics.Metric, f analytics.Filter) (analytics.Comparison, error)
	Series(ctx context.Context, m analytics.Metric, f analytics.Filter, g analytics.Granularity) ([]analytics.Point, error)
	Histogram(ctx context.Context, f analytics.Filter, ch types.SpeakerChannel) ([]analytics.Bucket, error)
	Ranking(ctx context.Context, m analytics.Metric, f analytics.Filter, limit int64) ([]analytics.AgentValue, error)
}

// ScalarResponse is a single metric value for a filter
type ScalarResponse struct {
	Metric   string           `json:"metric"`
	Value    float64          `json:"value"`
	Username string           `json:"username,omitempty"`
	Window   analytics.Window `json:"window"`
}

// ComparisonResponse is a metric for this month and last month
type ComparisonResponse struct {
	Metric   string `json:"metric"`
	Username string `json:"username,omitempty"`
	analytics.Comparison
}

// MetricsHandler serves the analytics endpoints
type MetricsHandler struct {
	analytics Analytics
	logger    zerolog.Logger
}

// NewMetricsHandler creates a new MetricsHandler
func NewMetricsHandler(svc Analytics, logger zerolog.Logger) *MetricsHandler {
	return &MetricsHandler{
		analytics: svc,
		logger:    logger.With().Str("component", "metrics_api").Logger(),
	}
}

func lookupMetric(r *http.Request) (analytics.Metric, error) {
	name := chi.URLParam(r, "metric")
	m, ok := analytics.Lookup(name)
	if !ok {
		return m, fmt.Errorf("%w: %q", analytics.ErrUnknownMetric, name)
	}
	return m, nil
}

// ListMetrics handles GET /api/metrics
func (h *MetricsHandler) ListMetrics(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, analytics.Metrics())
}

// GetMetric handles GET /api/metrics/{metric}. With compare=month the value
// of the current calendar month is joined with the previous month.
func (h *MetricsHandler) GetMetric(w http.ResponseWriter, r *http.Request) {
	m, err := lookupMetric(r)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	f, err := parseFilter(r)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	switch compare := strings.TrimSpace(r.URL.Query().Get("compare")); compare {
	case "":
		v, err := h.analytics.Scalar(r.Context(), m, f)
		if err != nil {
			writeError(w, r, h.logger, err)
			return
		}
		writeJSON(w, http.StatusOK, ScalarResponse{Metric: m.Name, Value: v, Username: f.Username, Window: f.Window})
	case "month":
		if !f.Window.IsZero() {
			writeError(w, r, h.logger, badRequest("compare=month cannot be combined with startDate or endDate"))
			return
		}
		c, err := h.analytics.Compare(r.Context(), m, f)
		if err != nil {
			writeError(w, r, h.logger, err)
			return
		}
		writeJSON(w, http.StatusOK, ComparisonResponse{Metric: m.Name, Username: f.Username, Comparison: c})
	default:
		writeError(w, r, h.logger, badRequest("compare must be month, got %q", compare))
	}
}

// GetSeries handles GET /api/metrics/{metric}/series
func (h *MetricsHandler) GetSeries(w http.ResponseWriter, r *http.Request) {
	m, err := lookupMetric(r)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	f, err := parseFilter(r)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	g := analytics.Granularity(r.URL.Query().Get("granularity"))
	if g == "" {
		g = analytics.ByDay
	}

	points, err := h.analytics.Series(r.Context(), m, f, g)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, points)
}

// GetHistogram handles GET /api/metrics/duration-histogram
func (h *MetricsHandler) GetHistogram(w http.ResponseWriter, r *http.Request) {
	f, err := parseFilter(r)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	ch := types.SpeakerChannel(r.URL.Query().Get("channel"))

	buckets, err := h.analytics.Histogram(r.Context(), f, ch)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, buckets)
}

// GetRanking handles GET /api/metrics/{metric}/ranking
func (h *MetricsHandler) GetRanking(w http.ResponseWriter, r *http.Request) {
	m, err := lookupMetric(r)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	f, err := parseFilter(r)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	limit, err := parseInt64(r, "limit")
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	rows, err := h.analytics.Ranking(r.Context(), m, f, limit)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, rows)
}
