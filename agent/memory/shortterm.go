// Package memory provides the two conversation memories behind the
// agent: a Redis-backed rolling turn window per session and a hosted
// semantic store per user, plus the fan-in that merges them into one
// context bundle.
package memory

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	contractx "github.com/showeasy/concierge/agent/contract"
)

type ShortTermConfig struct {
	URL   string `envconfig:"URL" required:"true"`
	Token string `envconfig:"TOKEN" required:"true"`
}

// RedisHistory keeps per-session turn lists in Redis through the
// Upstash REST interface, one JSON-encoded turn per list element.
type RedisHistory struct {
	url        string
	token      string
	keyPrefix  string
	ttl        time.Duration
	httpClient *http.Client
}

var _ contractx.TurnHistory = (*RedisHistory)(nil)

type Option func(*RedisHistory)

func WithKeyPrefix(prefix string) Option {
	return func(h *RedisHistory) { h.keyPrefix = prefix }
}

// WithTTL sets the session expiry, refreshed on every append. Zero
// disables expiry.
func WithTTL(ttl time.Duration) Option {
	return func(h *RedisHistory) { h.ttl = ttl }
}

func WithHTTPClient(client *http.Client) Option {
	return func(h *RedisHistory) { h.httpClient = client }
}

func NewRedisHistory(cfg ShortTermConfig, opts ...Option) *RedisHistory {
	h := &RedisHistory{
		url:        cfg.URL,
		token:      cfg.Token,
		keyPrefix:  "concierge:session:",
		ttl:        24 * time.Hour,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

func (h *RedisHistory) key(sessionID string) string {
	return h.keyPrefix + sessionID
}

// Append pushes turns onto the session list and refreshes its expiry.
func (h *RedisHistory) Append(ctx context.Context, sessionID string, turns ...contractx.ConversationTurn) error {
	if len(turns) == 0 {
		return nil
	}
	cmd := []any{"RPUSH", h.key(sessionID)}
	for _, turn := range turns {
		encoded, err := json.Marshal(turn)
		if err != nil {
			return fmt.Errorf("encode turn: %w", err)
		}
		cmd = append(cmd, string(encoded))
	}
	if _, err := h.command(ctx, cmd); err != nil {
		return fmt.Errorf("append session %s: %w", sessionID, err)
	}
	if h.ttl > 0 {
		if _, err := h.command(ctx, []any{"EXPIRE", h.key(sessionID), int64(h.ttl.Seconds())}); err != nil {
			return fmt.Errorf("expire session %s: %w", sessionID, err)
		}
	}
	return nil
}

// Recent returns the last `rounds` user/assistant exchanges, oldest
// first.
func (h *RedisHistory) Recent(ctx context.Context, sessionID string, rounds int) (contractx.TurnWindow, error) {
	if rounds <= 0 {
		return nil, nil
	}
	raw, err := h.command(ctx, []any{"LRANGE", h.key(sessionID), -2 * rounds, -1})
	if err != nil {
		return nil, fmt.Errorf("load session %s: %w", sessionID, err)
	}

	var elements []string
	if err := json.Unmarshal(raw, &elements); err != nil {
		return nil, fmt.Errorf("decode session %s: %w", sessionID, err)
	}
	window := make(contractx.TurnWindow, 0, len(elements))
	for _, element := range elements {
		var turn contractx.ConversationTurn
		if err := json.Unmarshal([]byte(element), &turn); err != nil {
			return nil, fmt.Errorf("decode turn in session %s: %w", sessionID, err)
		}
		window = append(window, turn)
	}
	return window, nil
}

// command posts one Redis command to the REST endpoint and returns the
// raw result payload.
func (h *RedisHistory) command(ctx context.Context, cmd []any) (json.RawMessage, error) {
	body, err := json.Marshal(cmd)
	if err != nil {
		return nil, fmt.Errorf("encode command: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, h.url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+h.token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := h.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("redis rest: %w", err)
	}
	defer resp.Body.Close()

	var envelope struct {
		Result json.RawMessage `json:"result"`
		Error  string          `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if envelope.Error != "" {
		return nil, fmt.Errorf("redis rest: %s", envelope.Error)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("redis rest: status %d", resp.StatusCode)
	}
	return envelope.Result, nil
}
