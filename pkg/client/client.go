// Package client provides the core Zendesk HTTP client with Basic-Auth
// credentials, rate limiting, retry, and error handling.
package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/supportdata/zendesk-export/pkg/ratelimit"
)

// Prometheus metrics for Zendesk client operations.
var (
	zdRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "zendesk_requests_total",
		Help: "Total Zendesk requests by endpoint and status",
	}, []string{"endpoint", "status"})

	zdRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "zendesk_request_duration_seconds",
		Help:    "Zendesk request duration in seconds by endpoint",
		Buckets: []float64{0.1, 0.5, 1, 2, 5, 10},
	}, []string{"endpoint"})

	zdErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "zendesk_errors_total",
		Help: "Total Zendesk errors by class",
	}, []string{"class"})
)

// ErrorClass represents a classification of HTTP errors.
type ErrorClass string

const (
	// ErrorClassClient represents 4xx client errors (other than 429).
	ErrorClassClient ErrorClass = "client"

	// ErrorClassServer represents 5xx server errors.
	ErrorClassServer ErrorClass = "server"

	// ErrorClassRateLimit represents 429 rate limit errors.
	ErrorClassRateLimit ErrorClass = "rate_limit"

	// ErrorClassNetwork represents network/timeout errors.
	ErrorClassNetwork ErrorClass = "network"
)

// Credentials identify a Zendesk account for Basic-Auth API token access.
// The Basic-Auth username is the account email suffixed with "/token" and
// the password is the API token.
type Credentials struct {
	// Email is the account email address.
	Email string

	// Token is the Zendesk API token.
	Token string

	// Subdomain is the organization subdomain ({subdomain}.zendesk.com).
	Subdomain string
}

// Validate checks that all credential fields are present.
func (c Credentials) Validate() error {
	if c.Email == "" {
		return fmt.Errorf("email is required")
	}
	if c.Token == "" {
		return fmt.Errorf("api token is required")
	}
	if c.Subdomain == "" {
		return fmt.Errorf("subdomain is required")
	}
	return nil
}

// BaseURL returns the API base URL for the credential's subdomain.
func (c Credentials) BaseURL() string {
	return fmt.Sprintf("https://%s.zendesk.com", c.Subdomain)
}

// Config holds the client configuration.
type Config struct {
	// Credentials for Basic-Auth token access (required).
	Credentials Credentials

	// BaseURL overrides the subdomain-derived base URL. Used by tests.
	BaseURL string

	// User-Agent header sent with every request.
	UserAgent string

	// RequestsPerSecond is the proactive client-side request rate.
	RequestsPerSecond float64

	// HTTPTimeout is the per-request timeout of the underlying HTTP client.
	HTTPTimeout time.Duration

	// Retry configures the per-request retry policy.
	Retry RetryConfig
}

// DefaultConfig returns a safe default configuration.
func DefaultConfig(creds Credentials) Config {
	return Config{
		Credentials:       creds,
		UserAgent:         "zendesk-export/1.0",
		RequestsPerSecond: 5,
		HTTPTimeout:       30 * time.Second,
		Retry:             DefaultRetryConfig(),
	}
}

// Client is the authenticated Zendesk HTTP client.
type Client struct {
	httpClient *http.Client
	baseURL    string
	rateLimits *ratelimit.Tracker
	config     Config
	logger     zerolog.Logger
}

// New creates a new Zendesk client.
func New(cfg Config) (*Client, error) {
	if err := cfg.Credentials.Validate(); err != nil {
		return nil, fmt.Errorf("credentials: %w", err)
	}

	if cfg.UserAgent == "" {
		return nil, fmt.Errorf("user-agent is required")
	}

	if cfg.Retry.MaxAttempts < 1 {
		return nil, fmt.Errorf("retry max_attempts must be >= 1 (got %d)", cfg.Retry.MaxAttempts)
	}

	if cfg.HTTPTimeout <= 0 {
		cfg.HTTPTimeout = 30 * time.Second
	}

	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = cfg.Credentials.BaseURL()
	}

	logger := log.With().
		Str("component", "zendesk-client").
		Str("subdomain", cfg.Credentials.Subdomain).
		Logger()

	return &Client{
		httpClient: &http.Client{
			Timeout: cfg.HTTPTimeout,
		},
		baseURL:    baseURL,
		rateLimits: ratelimit.NewTracker(cfg.RequestsPerSecond, logger),
		config:     cfg,
		logger:     logger,
	}, nil
}

// Get performs a GET request against an API path with the configured retry
// policy and returns the response body.
func (c *Client) Get(ctx context.Context, path string) ([]byte, error) {
	var body []byte

	err := retryWithBackoff(ctx, c.config.Retry, func() error {
		var reqErr error
		body, reqErr = c.do(ctx, path)
		return reqErr
	}, c.classifyError)
	if err != nil {
		return nil, err
	}

	return body, nil
}

// GetOnce performs a single GET attempt without the retry policy. The
// incremental export acquisition phase polls with it: a failed poll is
// repeated by the poll loop itself, not by backoff.
func (c *Client) GetOnce(ctx context.Context, path string) ([]byte, error) {
	return c.do(ctx, path)
}

// GetJSON performs a retried GET and decodes the response body into v.
func (c *Client) GetJSON(ctx context.Context, path string, v any) error {
	body, err := c.Get(ctx, path)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, v); err != nil {
		return fmt.Errorf("decode %s response: %w", path, err)
	}
	return nil
}

// GetJSONOnce performs a single GET attempt and decodes the body into v.
func (c *Client) GetJSONOnce(ctx context.Context, path string, v any) error {
	body, err := c.GetOnce(ctx, path)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, v); err != nil {
		return fmt.Errorf("decode %s response: %w", path, err)
	}
	return nil
}

// do executes one authenticated GET attempt and returns the response body.
// Non-2xx statuses are returned as *APIError.
func (c *Client) do(ctx context.Context, path string) ([]byte, error) {
	endpoint := endpointLabel(path)

	startTime := time.Now()
	defer func() {
		zdRequestDuration.WithLabelValues(endpoint).Observe(time.Since(startTime).Seconds())
	}()

	// Proactive pacing before the request leaves the client.
	if err := c.rateLimits.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter wait: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.SetBasicAuth(c.config.Credentials.Email+"/token", c.config.Credentials.Token)
	req.Header.Set("User-Agent", c.config.UserAgent)
	req.Header.Set("Accept", "application/json")

	c.logger.Debug().
		Str("endpoint", endpoint).
		Msg("Executing Zendesk request")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error().Err(err).Str("endpoint", endpoint).Msg("HTTP request failed")
		zdErrorsTotal.WithLabelValues(string(ErrorClassNetwork)).Inc()
		zdRequestsTotal.WithLabelValues(endpoint, "network_error").Inc()
		return nil, err
	}
	defer resp.Body.Close()

	if err := c.rateLimits.UpdateFromHeaders(resp.Header); err != nil {
		c.logger.Warn().Err(err).Msg("Failed to update rate limit from headers")
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		zdErrorsTotal.WithLabelValues(string(ErrorClassNetwork)).Inc()
		return nil, fmt.Errorf("read response body: %w", err)
	}

	zdRequestsTotal.WithLabelValues(endpoint, strconv.Itoa(resp.StatusCode)).Inc()

	if resp.StatusCode >= 400 {
		errClass := classifyStatus(resp.StatusCode)
		zdErrorsTotal.WithLabelValues(string(errClass)).Inc()

		c.logger.Warn().
			Str("endpoint", endpoint).
			Int("status", resp.StatusCode).
			Str("error_class", string(errClass)).
			Msg("Zendesk request error")

		return nil, &APIError{
			StatusCode: resp.StatusCode,
			ErrorClass: errClass,
			Message:    resp.Status,
			RetryAfter: parseRetryAfter(resp.Header.Get("Retry-After")),
		}
	}

	return body, nil
}

// classifyError categorizes an error for observability and backoff pacing.
func (c *Client) classifyError(err error) ErrorClass {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.ErrorClass
	}
	return ErrorClassNetwork
}

// classifyStatus maps an HTTP status code to an error class.
func classifyStatus(status int) ErrorClass {
	switch {
	case status == http.StatusTooManyRequests:
		return ErrorClassRateLimit
	case status >= 400 && status < 500:
		return ErrorClassClient
	case status >= 500:
		return ErrorClassServer
	default:
		return ""
	}
}

// parseRetryAfter parses the Retry-After header value as seconds.
// Returns zero if the header is empty or unparseable.
func parseRetryAfter(header string) time.Duration {
	if header == "" {
		return 0
	}
	seconds, err := strconv.Atoi(header)
	if err != nil {
		return 0
	}
	return time.Duration(seconds) * time.Second
}

// endpointLabel strips the query string from a path for metric labels,
// keeping label cardinality bounded (page numbers and cursors vary).
func endpointLabel(path string) string {
	for i := 0; i < len(path); i++ {
		if path[i] == '?' {
			return path[:i]
		}
	}
	return path
}

// SetHTTPClient sets a custom HTTP client (for testing).
func (c *Client) SetHTTPClient(client *http.Client) {
	c.httpClient = client
}

// RateLimits returns the rate limit tracker (for testing and observability).
func (c *Client) RateLimits() *ratelimit.Tracker {
	return c.rateLimits
}
