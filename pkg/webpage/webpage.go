// Package webpage turns the page a user is looking at into plain text
// the pipeline can use as context.
package webpage

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"
)

type Config struct {
	Enabled  bool          `envconfig:"ENABLED" split_words:"true" default:"true"`
	Timeout  time.Duration `envconfig:"TIMEOUT" split_words:"true" default:"3s"`
	MaxChars int           `envconfig:"MAX_CHARS" split_words:"true" default:"4000"`
}

var (
	scriptPattern = regexp.MustCompile(`(?is)<(script|style|noscript)[^>]*>.*?</(script|style|noscript)>`)
	tagPattern    = regexp.MustCompile(`(?s)<[^>]+>`)
	spacePattern  = regexp.MustCompile(`\s+`)
)

// Fetcher downloads a page and reduces it to whitespace-normalized
// text, capped so it cannot crowd out the conversation in the prompt.
type Fetcher struct {
	cfg        Config
	httpClient *http.Client
}

func NewFetcher(cfg Config) *Fetcher {
	if cfg.MaxChars <= 0 {
		cfg.MaxChars = 4000
	}
	return &Fetcher{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
	}
}

func (f *Fetcher) Fetch(ctx context.Context, url string) (string, error) {
	if !f.cfg.Enabled {
		return "", nil
	}
	if !strings.HasPrefix(url, "http://") && !strings.HasPrefix(url, "https://") {
		return "", fmt.Errorf("unsupported url scheme: %s", url)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", "ShowEasyConcierge/1.0")

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetch page: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("fetch page: status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("read page: %w", err)
	}
	return f.extract(string(body)), nil
}

func (f *Fetcher) extract(html string) string {
	text := scriptPattern.ReplaceAllString(html, " ")
	text = tagPattern.ReplaceAllString(text, " ")
	text = spacePattern.ReplaceAllString(text, " ")
	text = strings.TrimSpace(text)
	if len(text) > f.cfg.MaxChars {
		cut := f.cfg.MaxChars
		// back up so the cap never splits a multi-byte rune
		for cut > 0 && !utf8.RuneStart(text[cut]) {
			cut--
		}
		text = text[:cut]
	}
	return text
}
