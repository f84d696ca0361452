// Package openai implements the primary notification formatter on the OpenAI
// chat completions API. The governor treats every failure here as a signal to
// fall back to deterministic rendering, so this client prefers returning an
// error over returning dubious text.
package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/couchcryptid/rain-alert-service/internal/domain"
)

const systemPrompt = "You write concise bilingual rain notifications for Telangana, India. " +
	"Given a JSON payload describing rain conditions for one area, respond with a JSON object " +
	`{"en": "...", "te": "..."} containing one English line and one Telugu line. ` +
	"State the area name, the expected intensity, amounts with units, and the time window. " +
	"No hashtags, no emojis, each line under 110 characters."

// Client calls the chat completions endpoint to render payloads.
// It implements governor.Formatter.
type Client struct {
	apiKey     string
	model      string
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewClient creates a formatter client. The timeout bounds each request; the
// governor additionally enforces its own formatter deadline.
func NewClient(apiKey, model, baseURL string, timeout time.Duration, logger *slog.Logger) *Client {
	return &Client{
		apiKey:  apiKey,
		model:   model,
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: timeout,
		},
		logger: logger,
	}
}

// Format renders a payload into bilingual lines. Hashtags always come from
// the deterministic composer, never from the model.
func (c *Client) Format(ctx context.Context, p domain.NotifyPayload) (domain.BilingualText, error) {
	payload, err := json.Marshal(p)
	if err != nil {
		return domain.BilingualText{}, fmt.Errorf("marshal payload: %w", err)
	}

	body, err := json.Marshal(chatRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: string(payload)},
		},
		ResponseFormat: &responseFormat{Type: "json_object"},
		Temperature:    0.4,
	})
	if err != nil {
		return domain.BilingualText{}, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return domain.BilingualText{}, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return domain.BilingualText{}, fmt.Errorf("format request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		return domain.BilingualText{}, fmt.Errorf("openai API error: status %d: %s", resp.StatusCode, b)
	}

	var cr chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&cr); err != nil {
		return domain.BilingualText{}, fmt.Errorf("decode response: %w", err)
	}
	if len(cr.Choices) == 0 {
		return domain.BilingualText{}, fmt.Errorf("openai response has no choices")
	}

	var lines struct {
		En string `json:"en"`
		Te string `json:"te"`
	}
	if err := json.Unmarshal([]byte(cr.Choices[0].Message.Content), &lines); err != nil {
		return domain.BilingualText{}, fmt.Errorf("decode formatted lines: %w", err)
	}
	if strings.TrimSpace(lines.En) == "" || strings.TrimSpace(lines.Te) == "" {
		return domain.BilingualText{}, fmt.Errorf("formatter returned empty lines")
	}

	hashtags := []string{"#TelanganaWeather"}
	if p.Metro {
		hashtags = append(hashtags, "#HyderabadRains")
	}
	return domain.BilingualText{
		En:       strings.TrimSpace(lines.En),
		Te:       strings.TrimSpace(lines.Te),
		Hashtags: hashtags,
	}, nil
}

// Chat completions API request/response types.

type chatRequest struct {
	Model          string          `json:"model"`
	Messages       []chatMessage   `json:"messages"`
	ResponseFormat *responseFormat `json:"response_format,omitempty"`
	Temperature    float64         `json:"temperature"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type responseFormat struct {
	Type string `json:"type"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}
