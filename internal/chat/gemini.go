package chat

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/dennisdiepolder/callscope/internal/config"
	"github.com/tidwall/gjson"
)

// Message is one turn sent to the model
type Message struct {
	Role string // user or model
	Text string
}

// Completer produces a completion for a conversation
type Completer interface {
	Complete(ctx context.Context, system string, messages []Message) (string, error)
}

// GeminiClient calls the Gemini generateContent REST API
type GeminiClient struct {
	cfg        config.GeminiConfig
	httpClient *http.Client
}

// NewGeminiClient creates a client. The HTTP timeout comes from cfg.
func NewGeminiClient(cfg config.GeminiConfig) *GeminiClient {
	return &GeminiClient{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
	}
}

type geminiRequest struct {
	SystemInstruction *geminiContent         `json:"systemInstruction,omitempty"`
	Contents          []geminiContent        `json:"contents"`
	GenerationConfig  geminiGenerationConfig `json:"generationConfig"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

type geminiPart struct {
	Text string `json:"text"`
}

type geminiGenerationConfig struct {
	Temperature     float64 `json:"temperature"`
	TopP            float64 `json:"topP,omitempty"`
	TopK            int     `json:"topK,omitempty"`
	MaxOutputTokens int     `json:"maxOutputTokens,omitempty"`
}

// Complete implements Completer
func (c *GeminiClient) Complete(ctx context.Context, system string, messages []Message) (string, error) {
	if c.cfg.APIKey == "" || c.cfg.Model == "" {
		return "", ErrAssistantMisconfigured
	}

	req := geminiRequest{
		Contents: make([]geminiContent, 0, len(messages)),
		GenerationConfig: geminiGenerationConfig{
			Temperature:     c.cfg.Temperature,
			TopP:            c.cfg.TopP,
			TopK:            c.cfg.TopK,
			MaxOutputTokens: c.cfg.MaxOutputTokens,
		},
	}
	if system != "" {
		req.SystemInstruction = &geminiContent{Parts: []geminiPart{{Text: system}}}
	}
	for _, m := range messages {
		req.Contents = append(req.Contents, geminiContent{Role: m.Role, Parts: []geminiPart{{Text: m.Text}}})
	}

	body, err := json.Marshal(req)
	if err != nil {
		return "", fmt.Errorf("marshal gemini request: %w", err)
	}

	url := fmt.Sprintf("%s/models/%s:generateContent", strings.TrimSuffix(c.cfg.BaseURL, "/"), c.cfg.Model)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create gemini request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-goog-api-key", c.cfg.APIKey)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", &UpstreamError{Message: err.Error()}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", &UpstreamError{Status: resp.StatusCode, Message: err.Error()}
	}

	if resp.StatusCode != http.StatusOK {
		msg := gjson.GetBytes(respBody, "error.message").String()
		if msg == "" {
			msg = strings.TrimSpace(string(respBody))
		}
		if msg == "" {
			msg = http.StatusText(resp.StatusCode)
		}
		return "", &UpstreamError{Status: resp.StatusCode, Message: msg}
	}

	return parseCompletion(respBody)
}

// parseCompletion joins the text parts of the first candidate
func parseCompletion(body []byte) (string, error) {
	if !gjson.ValidBytes(body) {
		return "", &UpstreamError{Status: http.StatusOK, Message: "invalid JSON in model response"}
	}

	parts := gjson.GetBytes(body, "candidates.0.content.parts.#.text")
	var sb strings.Builder
	for _, p := range parts.Array() {
		sb.WriteString(p.String())
	}
	if sb.Len() == 0 {
		reason := gjson.GetBytes(body, "promptFeedback.blockReason").String()
		if reason == "" {
			reason = gjson.GetBytes(body, "candidates.0.finishReason").String()
		}
		if reason == "" {
			reason = "no candidates"
		}
		return "", &UpstreamError{Status: http.StatusOK, Message: "model returned no text: " + reason}
	}
	return sb.String(), nil
}
