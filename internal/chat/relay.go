// Package chat relays conversations to a generative model with a
// locale-specific preamble and few-shot examples.
package chat

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/dennisdiepolder/callscope/internal/analytics"
	"github.com/dennisdiepolder/callscope/internal/locale"
	"github.com/rs/zerolog"
)

var (
	ErrEmptyMessage           = errors.New("message is required")
	ErrInvalidRole            = errors.New("history role must be user or model")
	ErrAssistantMisconfigured = errors.New("chat assistant is not configured")
)

// UpstreamError carries the model provider's failure message verbatim
type UpstreamError struct {
	Status  int
	Message string
}

func (e *UpstreamError) Error() string {
	return e.Message
}

// Turn is one prior message of the conversation
type Turn struct {
	Role string `json:"role"`
	Text string `json:"text"`
}

// Request is one chat turn from the client
type Request struct {
	Message string `json:"message"`
	History []Turn `json:"history"`
	Locale  string `json:"locale"`
}

// Summarizer computes the metric bundle of one agent
type Summarizer interface {
	AgentSummary(ctx context.Context, f analytics.Filter) (analytics.Summary, error)
}

// Observer records upstream call outcomes
type Observer interface {
	ObserveChat(d time.Duration, err error)
}

// Relay builds prompts and forwards them to the completer
type Relay struct {
	completer Completer
	catalog   *locale.Catalog
	summaries Summarizer
	observer  Observer
	logger    zerolog.Logger
}

// NewRelay creates a new relay. observer may be nil.
func NewRelay(completer Completer, catalog *locale.Catalog, summaries Summarizer, observer Observer, logger zerolog.Logger) *Relay {
	return &Relay{
		completer: completer,
		catalog:   catalog,
		summaries: summaries,
		observer:  observer,
		logger:    logger.With().Str("component", "chat").Logger(),
	}
}

// Reply returns the model completion for the message. An empty message is
// rejected before anything is sent upstream.
func (r *Relay) Reply(ctx context.Context, req Request) (string, error) {
	msg := strings.TrimSpace(req.Message)
	if msg == "" {
		return "", ErrEmptyMessage
	}

	table := r.catalog.Match(req.Locale)
	messages := make([]Message, 0, len(table.Examples)+len(req.History)+1)
	for _, ex := range table.Examples {
		messages = append(messages, Message{Role: ex.Role, Text: ex.Text})
	}
	examples := len(messages)
	for _, h := range req.History {
		role, err := normalizeRole(h.Role)
		if err != nil {
			return "", err
		}
		messages = appendTurn(messages, examples, role, h.Text)
	}
	messages = appendTurn(messages, examples, "user", msg)

	return r.complete(ctx, table, messages)
}

// appendTurn adds a conversation turn. Blank turns are dropped and a turn
// following one of the same role is merged into it, so roles alternate.
// Messages before from are never merged into.
func appendTurn(messages []Message, from int, role, text string) []Message {
	if strings.TrimSpace(text) == "" {
		return messages
	}
	if n := len(messages); n > from && messages[n-1].Role == role {
		messages[n-1].Text += "\n\n" + text
		return messages
	}
	return append(messages, Message{Role: role, Text: text})
}

// SummarizeAgent asks the model to summarize one agent's metrics
func (r *Relay) SummarizeAgent(ctx context.Context, f analytics.Filter, loc string) (string, error) {
	summary, err := r.summaries.AgentSummary(ctx, f)
	if err != nil {
		return "", err
	}

	table := r.catalog.Match(loc)
	period := table.AllTime
	if !f.Window.IsZero() {
		period = fmt.Sprintf("%s to %s", orOpen(f.Window.From), orOpen(f.Window.To))
	}

	metrics := make([]locale.SummaryMetric, 0, len(summary.Values))
	for _, m := range analytics.Metrics() {
		v, ok := summary.Values[m.Name]
		if !ok {
			continue
		}
		metrics = append(metrics, locale.SummaryMetric{
			Name:  m.Name,
			Value: strconv.FormatFloat(v, 'f', -1, 64),
		})
	}

	prompt, err := table.RenderSummary(locale.SummaryData{
		Username: f.Username,
		Period:   period,
		Metrics:  metrics,
	})
	if err != nil {
		return "", err
	}

	return r.complete(ctx, table, []Message{{Role: "user", Text: prompt}})
}

func (r *Relay) complete(ctx context.Context, table *locale.Table, messages []Message) (string, error) {
	start := time.Now()
	reply, err := r.completer.Complete(ctx, table.Preamble, messages)
	if r.observer != nil {
		r.observer.ObserveChat(time.Since(start), err)
	}
	if err != nil {
		r.logger.Error().
			Err(err).
			Str("locale", table.Tag).
			Int("turns", len(messages)).
			Msg("chat completion failed")
		return "", err
	}

	r.logger.Debug().
		Str("locale", table.Tag).
		Int("turns", len(messages)).
		Dur("duration", time.Since(start)).
		Msg("chat completion")
	return reply, nil
}

func normalizeRole(role string) (string, error) {
	switch strings.ToLower(role) {
	case "user":
		return "user", nil
	case "model", "assistant", "bot":
		return "model", nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidRole, role)
	}
}

func orOpen(s string) string {
	if s == "" {
		return "…"
	}
	return s
}
