// Package fetch retrieves catalog documents and thumbnail images over HTTP
// or from the local filesystem.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/edumarques81/stellar-videohub/internal/version"
)

const (
	// DefaultTimeout for HTTP requests
	DefaultTimeout = 30 * time.Second

	// DefaultMaxBytes caps a single response body (10MB)
	DefaultMaxBytes = 10 * 1024 * 1024
)

// ErrTooLarge is returned when a body exceeds the configured limit.
var ErrTooLarge = errors.New("response exceeds size limit")

// StatusError reports a non-2xx HTTP response.
type StatusError struct {
	URL        string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("GET %s: unexpected status %d %s", e.URL, e.StatusCode, http.StatusText(e.StatusCode))
}

// Client fetches bytes for a reference. http(s) URLs go over the network;
// file:// URLs and bare paths are read from disk.
type Client struct {
	userAgent  string
	httpClient *http.Client
	maxBytes   int64
	limiter    *rateLimiter
}

// Option is a functional option for configuring the client
type Option func(*Client)

// WithUserAgent sets a custom User-Agent header
func WithUserAgent(ua string) Option {
	return func(c *Client) {
		c.userAgent = ua
	}
}

// WithHTTPClient sets a custom HTTP client
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		c.httpClient = client
	}
}

// WithTimeout sets the overall request timeout of the default HTTP client
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.httpClient = &http.Client{Timeout: d}
		}
	}
}

// WithMaxBytes sets the maximum body size. Non-positive values keep the default.
func WithMaxBytes(n int64) Option {
	return func(c *Client) {
		if n > 0 {
			c.maxBytes = n
		}
	}
}

// WithRateLimit sets the rate limit in requests per second (0 disables it)
func WithRateLimit(rps float64) Option {
	return func(c *Client) {
		if rps > 0 {
			c.limiter = newRateLimiter(rps)
		} else {
			c.limiter = nil
		}
	}
}

// NewClient creates a new fetch client
func NewClient(opts ...Option) *Client {
	c := &Client{
		userAgent: fmt.Sprintf("%s/%s", strings.ReplaceAll(version.Name, " ", ""), version.Version),
		httpClient: &http.Client{
			Timeout: DefaultTimeout,
		},
		maxBytes: DefaultMaxBytes,
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// Get returns the bytes at ref.
func (c *Client) Get(ctx context.Context, ref string) ([]byte, error) {
	if ref == "" {
		return nil, errors.New("empty reference")
	}

	u, err := url.Parse(ref)
	if err == nil {
		switch strings.ToLower(u.Scheme) {
		case "http", "https":
			return c.getHTTP(ctx, ref)
		case "file":
			return c.readFile(ctx, u.Path)
		}
	}
	return c.readFile(ctx, ref)
}

func (c *Client) getHTTP(ctx context.Context, ref string) ([]byte, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limiter: %w", err)
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ref, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		log.Debug().Str("url", ref).Int("status", resp.StatusCode).Msg("Fetch returned non-success status")
		return nil, &StatusError{URL: ref, StatusCode: resp.StatusCode}
	}

	data, err := c.readLimited(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	log.Debug().
		Str("url", ref).
		Int("size", len(data)).
		Str("type", resp.Header.Get("Content-Type")).
		Dur("took", time.Since(start)).
		Msg("Fetched")

	return data, nil
}

func (c *Client) readFile(ctx context.Context, path string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	data, err := c.readLimited(f)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return data, nil
}

// readLimited reads at most maxBytes and fails if the source has more.
func (c *Client) readLimited(r io.Reader) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(r, c.maxBytes+1))
	if err != nil {
		return nil, err
	}
	if int64(len(data)) > c.maxBytes {
		return nil, ErrTooLarge
	}
	return data, nil
}

// rateLimiter spaces requests at a fixed interval
type rateLimiter struct {
	mu          sync.Mutex
	interval    time.Duration
	lastRequest time.Time
}

func newRateLimiter(requestsPerSecond float64) *rateLimiter {
	return &rateLimiter{
		interval: time.Duration(float64(time.Second) / requestsPerSecond),
	}
}

// Wait blocks until a request can be made
func (r *rateLimiter) Wait(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	nextAllowed := r.lastRequest.Add(r.interval)
	if now := time.Now(); now.Before(nextAllowed) {
		select {
		case <-time.After(nextAllowed.Sub(now)):
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	r.lastRequest = time.Now()
	return nil
}
