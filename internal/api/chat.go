package api

import (
	"context"
	"net/http"
	"strings"

	"github.com/dennisdiepolder/callscope/internal/analytics"
	"github.com/dennisdiepolder/callscope/internal/chat"
	"github.com/rs/zerolog"
)

// Assistant answers chat messages
type Assistant interface {
	Reply(ctx context.Context, req chat.Request) (string, error)
	SummarizeAgent(ctx context.Context, f analytics.Filter, locale string) (string, error)
}

// ChatResponse carries the model's completion verbatim
type ChatResponse struct {
	Reply string `json:"reply"`
}

type summaryRequest struct {
	Locale string `json:"locale" validate:"omitempty,max=35"`
}

// ChatHandler serves the chat assistant
type ChatHandler struct {
	assistant     Assistant
	defaultLocale string
	logger        zerolog.Logger
}

// NewChatHandler creates a new ChatHandler
func NewChatHandler(assistant Assistant, defaultLocale string, logger zerolog.Logger) *ChatHandler {
	return &ChatHandler{
		assistant:     assistant,
		defaultLocale: defaultLocale,
		logger:        logger.With().Str("component", "chat_api").Logger(),
	}
}

// locale picks the body locale, then Accept-Language, then the default
func (h *ChatHandler) locale(r *http.Request, requested string) string {
	if requested = strings.TrimSpace(requested); requested != "" {
		return requested
	}
	if accept := r.Header.Get("Accept-Language"); accept != "" {
		return accept
	}
	return h.defaultLocale
}

// Chat handles POST /api/chat
func (h *ChatHandler) Chat(w http.ResponseWriter, r *http.Request) {
	var req chat.Request
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	req.Locale = h.locale(r, req.Locale)

	reply, err := h.assistant.Reply(r.Context(), req)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, ChatResponse{Reply: reply})
}

// AgentSummary handles POST /api/chat/agent-summary
func (h *ChatHandler) AgentSummary(w http.ResponseWriter, r *http.Request) {
	f, err := parseFilter(r)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	if f.Username == "" {
		writeError(w, r, h.logger, badRequest("username is required"))
		return
	}

	var req summaryRequest
	if r.ContentLength != 0 {
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, r, h.logger, err)
			return
		}
	}

	reply, err := h.assistant.SummarizeAgent(r.Context(), f, h.locale(r, req.Locale))
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, ChatResponse{Reply: reply})
}
