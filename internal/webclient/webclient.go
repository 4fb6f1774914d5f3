// Package webclient abstracts page fetching behind a small interface with
// pluggable backends: a plain net/http client and a chromedp-driven browser
// for pages that only render under JavaScript.
package webclient

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"gopkg.in/yaml.v3"
)

// Backend names accepted by the factory.
const (
	BackendNetHTTP  = "nethttp"
	BackendChromedp = "chromedp"
)

// Config selects and tunes the fetch backend.
type Config struct {
	Backend string `yaml:"backend"`

	// Timeout is the per-request ceiling when the caller's context carries
	// no deadline of its own.
	Timeout Durationish `yaml:"timeout"`

	// MaxBodyBytes truncates response bodies; 0 means no limit.
	MaxBodyBytes int64 `yaml:"max_body_bytes"`

	UserAgent string `yaml:"user_agent"`
}

// Durationish mirrors config.Duration without importing it (config imports
// this package).
type Durationish time.Duration

// UnmarshalYAML parses values like "20s".
func (d *Durationish) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("parsing duration %q: %w", s, err)
	}
	*d = Durationish(parsed)
	return nil
}

// Std returns the underlying time.Duration.
func (d Durationish) Std() time.Duration { return time.Duration(d) }

// DefaultConfig returns the production fetch settings.
func DefaultConfig() Config {
	return Config{
		Backend:      BackendNetHTTP,
		Timeout:      Durationish(20 * time.Second),
		MaxBodyBytes: 1 << 20,
		UserAgent:    "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0 Safari/537.36",
	}
}

// Request describes one fetch.
type Request struct {
	Method  string
	URL     string
	Headers http.Header
	Body    []byte
}

// Response is a fetched page.
type Response struct {
	Request    *Request
	Headers    http.Header
	Body       []byte
	StatusCode int
	FinalURL   string
	FetchedAt  time.Time
}

// WebClient executes fetches. Implementations must honor ctx cancellation
// and must not leak connections when cancelled mid-flight.
type WebClient interface {
	Do(ctx context.Context, req *Request) (*Response, error)

	// Get is a convenience for simple GET fetches.
	Get(ctx context.Context, url string) (*Response, error)

	Close() error
}
