package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/nativeai/nativechat/internal/pkg/config"
	"github.com/nativeai/nativechat/internal/pkg/entitlements"
	"github.com/nativeai/nativechat/internal/pkg/prompt"
)

const defaultTemperature = 0.4

// Client talks to an OpenAI-compatible chat-completion and transcription API
// (Mistral by default).
type Client struct {
	apiKey  string
	baseURL string

	chatModel       string
	transcribeModel string
	translateModel  string

	httpClient *http.Client
}

// CompletionResult is the provider's answer plus its token accounting.
// Usage is the provider-reported total when Reported is true, otherwise the
// character-based estimate.
type CompletionResult struct {
	Text     string
	Usage    int64
	Reported bool
}

func NewClientFromConfig(cfg *config.Config) *Client {
	timeout := cfg.TranscribeTimeout
	if cfg.ChatTimeout > timeout {
		timeout = cfg.ChatTimeout
	}
	if timeout <= 0 {
		timeout = 90 * time.Second
	}
	return &Client{
		apiKey:          strings.TrimSpace(cfg.CompletionAPIKey),
		baseURL:         strings.TrimRight(cfg.CompletionBaseURL, "/"),
		chatModel:       cfg.ChatModel,
		transcribeModel: cfg.TranscribeModel,
		translateModel:  cfg.TranslateModel,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// IsConfigured reports whether an API key is present.
func (c *Client) IsConfigured() bool {
	return c.apiKey != ""
}

type chatRequest struct {
	Model       string           `json:"model"`
	Messages    []prompt.Message `json:"messages"`
	Temperature float64          `json:"temperature"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Usage *struct {
		PromptTokens     int64 `json:"prompt_tokens"`
		CompletionTokens int64 `json:"completion_tokens"`
		TotalTokens      int64 `json:"total_tokens"`
	} `json:"usage"`
}

type providerErrorBody struct {
	Message string `json:"message"`
	Error   struct {
		Message string `json:"message"`
	} `json:"error"`
}

// ChatCompletion sends a bounded message sequence to the chat model and
// returns the assistant reply. Failures are always *ProviderError or
// ErrNotConfigured.
func (c *Client) ChatCompletion(ctx context.Context, messages []prompt.Message) (*CompletionResult, error) {
	return c.chat(ctx, c.chatModel, messages)
}

func (c *Client) chat(ctx context.Context, model string, messages []prompt.Message) (*CompletionResult, error) {
	if !c.IsConfigured() {
		return nil, ErrNotConfigured
	}

	payload, err := json.Marshal(chatRequest{
		Model:       model,
		Messages:    messages,
		Temperature: defaultTemperature,
	})
	if err != nil {
		return nil, transportError(err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint("/chat/completions"), bytes.NewReader(payload))
	if err != nil {
		return nil, transportError(err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, transportError(err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 8<<20))
	if err != nil {
		return nil, transportError(err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &ProviderError{Status: resp.StatusCode, Detail: errorDetail(body)}
	}

	var parsed chatResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, shapeError(err.Error())
	}
	if len(parsed.Choices) == 0 {
		return nil, shapeError("no choices in completion response")
	}

	text := parsed.Choices[0].Message.Content
	result := &CompletionResult{Text: text}
	if parsed.Usage != nil && parsed.Usage.TotalTokens > 0 {
		result.Usage = parsed.Usage.TotalTokens
		result.Reported = true
	} else {
		result.Usage = entitlements.EstimateTokens(len(text))
	}
	return result, nil
}

func errorDetail(body []byte) string {
	var e providerErrorBody
	if err := json.Unmarshal(body, &e); err == nil {
		if e.Error.Message != "" {
			return e.Error.Message
		}
		if e.Message != "" {
			return e.Message
		}
	}
	detail := strings.TrimSpace(string(body))
	if len(detail) > 500 {
		detail = detail[:500]
	}
	if detail == "" {
		detail = "upstream request failed"
	}
	return detail
}

func (c *Client) endpoint(path string) string {
	return fmt.Sprintf("%s%s", c.baseURL, path)
}
