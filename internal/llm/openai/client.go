package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"jobdocs-backend/internal/llm"
	"jobdocs-backend/internal/shared/config"
)

const maxErrorBody = 512

// Client implements llm.Gateway against OpenAI-compatible chat-completions
// endpoints. One HTTP client is kept per provider so each has its own timeout.
type Client struct {
	providers map[string]provider
}

type provider struct {
	spec       config.ProviderSpec
	httpClient *http.Client
}

// NewClient constructs a gateway for the given provider specs.
func NewClient(specs []config.ProviderSpec) (*Client, error) {
	if len(specs) == 0 {
		return nil, fmt.Errorf("at least one provider is required")
	}
	providers := make(map[string]provider, len(specs))
	for _, spec := range specs {
		if strings.TrimSpace(spec.ID) == "" {
			return nil, fmt.Errorf("provider id is required")
		}
		if strings.TrimSpace(spec.Model) == "" {
			return nil, fmt.Errorf("provider %s: model is required", spec.ID)
		}
		timeout := spec.Timeout
		if timeout <= 0 {
			timeout = 30 * time.Second
		}
		providers[spec.ID] = provider{
			spec:       spec,
			httpClient: &http.Client{Timeout: timeout},
		}
	}
	return &Client{providers: providers}, nil
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
	Temperature float64       `json:"temperature"`
	TopP        float64       `json:"top_p,omitempty"`
}

type chatResponse struct {
	ID      string `json:"id"`
	Model   string `json:"model"`
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
	Usage *struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage,omitempty"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error,omitempty"`
}

// Call sends one chat-completion request. It never retries.
func (c *Client) Call(ctx context.Context, providerID string, req llm.Request) (llm.Completion, error) {
	p, ok := c.providers[providerID]
	if !ok {
		return llm.Completion{}, llm.NewError(llm.KindNotConfigured, providerID, "unknown provider")
	}
	if strings.TrimSpace(p.spec.APIKey) == "" {
		return llm.Completion{}, llm.NewError(llm.KindNotConfigured, providerID, "api key not configured")
	}

	systemPrompt := req.SystemPrompt
	if strings.TrimSpace(systemPrompt) == "" {
		systemPrompt = fmt.Sprintf(llm.DefaultSystemPrompt, "document")
	}
	maxTokens := p.spec.MaxTokens
	if req.MaxTokens > 0 {
		maxTokens = req.MaxTokens
	}
	body := chatRequest{
		Model: p.spec.Model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: req.Prompt},
		},
		MaxTokens:   maxTokens,
		Temperature: p.spec.Temperature,
		TopP:        p.spec.TopP,
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return llm.Completion{}, &llm.Error{Kind: llm.KindProvider, Provider: providerID, Message: "encode request", Err: err}
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.spec.BaseURL+"/chat/completions", bytes.NewReader(payload))
	if err != nil {
		return llm.Completion{}, &llm.Error{Kind: llm.KindProvider, Provider: providerID, Message: "build request", Err: err}
	}
	httpReq.Header.Set("Authorization", "Bearer "+p.spec.APIKey)
	httpReq.Header.Set("Content-Type", "application/json")
	for k, v := range p.spec.Headers {
		httpReq.Header.Set(k, v)
	}

	resp, err := p.httpClient.Do(httpReq)
	if err != nil {
		if isTimeout(err) {
			return llm.Completion{}, &llm.Error{Kind: llm.KindTimeout, Provider: providerID, Message: "request timeout", Err: err}
		}
		return llm.Completion{}, &llm.Error{Kind: llm.KindProvider, Provider: providerID, Message: "request failed", Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		kind := llm.KindMalformed
		if isTimeout(err) {
			kind = llm.KindTimeout
		}
		return llm.Completion{}, &llm.Error{Kind: kind, Provider: providerID, StatusCode: resp.StatusCode, Message: "read response", Err: err}
	}

	if resp.StatusCode != http.StatusOK {
		return llm.Completion{}, &llm.Error{
			Kind:       kindForStatus(resp.StatusCode),
			Provider:   providerID,
			StatusCode: resp.StatusCode,
			Message:    truncate(strings.TrimSpace(string(raw)), maxErrorBody),
		}
	}

	var parsed chatResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return llm.Completion{}, &llm.Error{Kind: llm.KindMalformed, Provider: providerID, StatusCode: resp.StatusCode, Message: "decode response", Err: err}
	}
	if parsed.Error != nil {
		return llm.Completion{}, &llm.Error{
			Kind:       llm.KindProvider,
			Provider:   providerID,
			StatusCode: resp.StatusCode,
			Message:    fmt.Sprintf("%s (%s)", parsed.Error.Message, parsed.Error.Type),
		}
	}
	if len(parsed.Choices) == 0 {
		return llm.Completion{}, &llm.Error{Kind: llm.KindMalformed, Provider: providerID, StatusCode: resp.StatusCode, Message: "response missing choices"}
	}
	content := strings.TrimSpace(parsed.Choices[0].Message.Content)
	if content == "" {
		return llm.Completion{}, &llm.Error{Kind: llm.KindMalformed, Provider: providerID, StatusCode: resp.StatusCode, Message: "response empty content"}
	}

	tokens := 0
	if parsed.Usage != nil {
		tokens = parsed.Usage.TotalTokens
	}
	model := parsed.Model
	if model == "" {
		model = p.spec.Model
	}
	log.Printf("llm response provider=%s model=%s total_tokens=%d", providerID, model, tokens)

	return llm.Completion{Content: content, TokensUsed: tokens, Model: model}, nil
}

// Model returns the configured model for a provider.
func (c *Client) Model(providerID string) string {
	return c.providers[providerID].spec.Model
}

func kindForStatus(status int) llm.ErrorKind {
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return llm.KindAuth
	case status == http.StatusTooManyRequests:
		return llm.KindRateLimited
	case status == http.StatusRequestTimeout || status == http.StatusGatewayTimeout:
		return llm.KindTimeout
	default:
		return llm.KindProvider
	}
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

// truncate cuts s to at most n bytes without splitting a rune.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}

var _ llm.Gateway = (*Client)(nil)
