// Package chesscom is a client for the public chess.com player API.
package chesscom

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// DefaultBaseURL is the root of the public API.
const DefaultBaseURL = "https://api.chess.com/pub"

// DefaultResponseHeaderTimeout is the default timeout for receiving response headers.
const DefaultResponseHeaderTimeout = 30 * time.Second

// DefaultRequestsPerSecond paces requests so serial archive walks stay
// under the API's abuse threshold.
const DefaultRequestsPerSecond = 4

// DefaultUserAgent identifies the client, as the API asks callers to do.
const DefaultUserAgent = "gameweek/1.0 (+https://github.com/discochess/gameweek)"

var (
	// ErrPlayerNotFound is returned when the API has no such username.
	ErrPlayerNotFound = errors.New("chesscom: player not found")

	// ErrRateLimited is returned when the API answers 429.
	ErrRateLimited = errors.New("chesscom: rate limited")
)

// StatusError is returned for any other non-200 response.
type StatusError struct {
	URL    string
	Status int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("chesscom: GET %s: unexpected status %d", e.URL, e.Status)
}

// Client fetches player archives, games and stats.
type Client struct {
	baseURL   string
	userAgent string
	http      *http.Client
	limiter   *rate.Limiter
	logger    *zap.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURL points the client at a different API root.
func WithBaseURL(base string) Option {
	return func(c *Client) {
		c.baseURL = strings.TrimRight(base, "/")
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		c.http = client
	}
}

// WithTimeout sets an overall timeout per request.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		c.http.Timeout = timeout
	}
}

// WithRateLimit sets the sustained request rate. A non-positive rate
// disables pacing.
func WithRateLimit(perSecond float64) Option {
	return func(c *Client) {
		if perSecond <= 0 {
			c.limiter = rate.NewLimiter(rate.Inf, 0)
			return
		}
		c.limiter = rate.NewLimiter(rate.Limit(perSecond), 1)
	}
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(c *Client) {
		c.userAgent = ua
	}
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(c *Client) {
		c.logger = l
	}
}

// NewClient creates a Client with sensible defaults.
func NewClient(opts ...Option) *Client {
	c := &Client{
		baseURL:   DefaultBaseURL,
		userAgent: DefaultUserAgent,
		http: &http.Client{
			Transport: &http.Transport{
				Proxy:                 http.ProxyFromEnvironment,
				ResponseHeaderTimeout: DefaultResponseHeaderTimeout,
				IdleConnTimeout:       90 * time.Second,
				TLSHandshakeTimeout:   10 * time.Second,
				ExpectContinueTimeout: 1 * time.Second,
			},
		},
		limiter: rate.NewLimiter(rate.Limit(DefaultRequestsPerSecond), 1),
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = c.logger.Named("chesscom")
	return c
}

// Archives returns the monthly archive URLs of username, oldest first.
func (c *Client) Archives(ctx context.Context, username string) ([]string, error) {
	var resp struct {
		Archives []string `json:"archives"`
	}
	if err := c.get(ctx, c.playerURL(username, "games/archives"), &resp); err != nil {
		return nil, err
	}
	return resp.Archives, nil
}

// Games returns the games of one monthly archive.
func (c *Client) Games(ctx context.Context, archiveURL string) ([]Game, error) {
	var resp struct {
		Games []Game `json:"games"`
	}
	if err := c.get(ctx, archiveURL, &resp); err != nil {
		return nil, err
	}
	return resp.Games, nil
}

// Stats returns the rating summary of username.
func (c *Client) Stats(ctx context.Context, username string) (Stats, error) {
	var s Stats
	if err := c.get(ctx, c.playerURL(username, "stats"), &s); err != nil {
		return nil, err
	}
	return s, nil
}

func (c *Client) playerURL(username, suffix string) string {
	return c.baseURL + "/player/" + url.PathEscape(strings.ToLower(username)) + "/" + suffix
}

func (c *Client) get(ctx context.Context, target string, v any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("waiting for rate limiter: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("GET %s: %w", target, err)
	}
	defer resp.Body.Close()

	c.logger.Debug("fetched",
		zap.String("url", target),
		zap.Int("status", resp.StatusCode),
		zap.Duration("elapsed", time.Since(start)),
	)

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound, http.StatusGone:
		return fmt.Errorf("GET %s: %w", target, ErrPlayerNotFound)
	case http.StatusTooManyRequests:
		return fmt.Errorf("GET %s: %w", target, ErrRateLimited)
	default:
		return &StatusError{URL: target, Status: resp.StatusCode}
	}

	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("decoding %s: %w", target, err)
	}
	return nil
}
