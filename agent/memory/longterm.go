package memory

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	contractx "github.com/showeasy/concierge/agent/contract"
)

type LongTermConfig struct {
	APIKey  string        `envconfig:"API_KEY" required:"true"`
	BaseURL string        `envconfig:"BASE_URL" default:"https://api.mem0.ai"`
	Timeout time.Duration `envconfig:"TIMEOUT" default:"5s"`
}

// Mem0Client stores and recalls per-user facts through the mem0 HTTP
// API.
type Mem0Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

var _ contractx.SemanticMemory = (*Mem0Client)(nil)

func NewMem0Client(cfg LongTermConfig, opts ...Mem0Option) *Mem0Client {
	c := &Mem0Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:     cfg.APIKey,
		httpClient: &http.Client{Timeout: cfg.Timeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type Mem0Option func(*Mem0Client)

func WithMem0HTTPClient(client *http.Client) Mem0Option {
	return func(c *Mem0Client) { c.httpClient = client }
}

// Query searches the user's memories relevant to the given text.
func (c *Mem0Client) Query(ctx context.Context, userID, text string, limit int) ([]contractx.MemoryFact, error) {
	if limit <= 0 {
		limit = 5
	}
	payload := map[string]any{
		"query":   text,
		"user_id": userID,
		"limit":   limit,
	}
	raw, err := c.post(ctx, "/v1/memories/search/", payload)
	if err != nil {
		return nil, fmt.Errorf("search memories: %w", err)
	}

	type memoryItem struct {
		Memory string  `json:"memory"`
		Score  float64 `json:"score"`
	}
	// The API returns either a bare array or a results envelope
	// depending on version.
	var items []memoryItem
	if err := json.Unmarshal(raw, &items); err != nil {
		var envelope struct {
			Results []memoryItem `json:"results"`
		}
		if err := json.Unmarshal(raw, &envelope); err != nil {
			return nil, fmt.Errorf("decode memories: %w", err)
		}
		items = envelope.Results
	}

	facts := make([]contractx.MemoryFact, 0, len(items))
	for _, item := range items {
		if strings.TrimSpace(item.Memory) == "" {
			continue
		}
		facts = append(facts, contractx.MemoryFact{UserID: userID, Text: item.Memory})
	}
	return facts, nil
}

// Record submits a finished exchange for fact extraction.
func (c *Mem0Client) Record(ctx context.Context, userID string, turns []contractx.ConversationTurn) error {
	if len(turns) == 0 {
		return nil
	}
	messages := make([]map[string]string, 0, len(turns))
	for _, turn := range turns {
		messages = append(messages, map[string]string{
			"role":    string(turn.Role),
			"content": turn.Content,
		})
	}
	payload := map[string]any{
		"messages": messages,
		"user_id":  userID,
	}
	if _, err := c.post(ctx, "/v1/memories/", payload); err != nil {
		return fmt.Errorf("record memories: %w", err)
	}
	return nil
}

func (c *Mem0Client) post(ctx context.Context, path string, payload any) (json.RawMessage, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode payload: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Authorization", "Token "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var raw json.RawMessage
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("status %d: %s", resp.StatusCode, truncate(string(raw), 200))
	}
	return raw, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
