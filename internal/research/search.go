package research

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"jobdocs-backend/internal/shared/config"
)

// Searcher runs one web search query.
type Searcher interface {
	Search(ctx context.Context, query string) ([]SearchResult, error)
}

// SerperClient queries a Serper-compatible search API.
type SerperClient struct {
	URL        string
	APIKey     string
	Country    string
	Language   string
	Keep       int
	httpClient *http.Client
}

// NewSerperClient returns nil when no API key is configured.
func NewSerperClient(cfg config.Research) *SerperClient {
	if strings.TrimSpace(cfg.SearchAPIKey) == "" {
		return nil
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	keep := cfg.ResultsPerQry
	if keep <= 0 {
		keep = 3
	}
	return &SerperClient{
		URL:        cfg.SearchURL,
		APIKey:     cfg.SearchAPIKey,
		Country:    cfg.Country,
		Language:   cfg.Language,
		Keep:       keep,
		httpClient: &http.Client{Timeout: timeout},
	}
}

type serperRequest struct {
	Q   string `json:"q"`
	GL  string `json:"gl,omitempty"`
	HL  string `json:"hl,omitempty"`
	Num int    `json:"num"`
}

type serperResponse struct {
	Organic []SearchResult `json:"organic"`
}

// Search returns the top organic results for query.
func (c *SerperClient) Search(ctx context.Context, query string) ([]SearchResult, error) {
	payload, err := json.Marshal(serperRequest{Q: query, GL: c.Country, HL: c.Language, Num: 10})
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.URL, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("X-API-KEY", c.APIKey)
	req.Header.Set("Content-Type", "application/json")

	client := c.httpClient
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("search request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("search status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	var parsed serperResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("decode search response: %w", err)
	}
	results := parsed.Organic
	if c.Keep > 0 && len(results) > c.Keep {
		results = results[:c.Keep]
	}
	return results, nil
}

var _ Searcher = (*SerperClient)(nil)
