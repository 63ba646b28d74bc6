package klaviyo

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/sony/gobreaker/v2"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"klaviyo-sync/core/logger"
	"klaviyo-sync/core/metrics"
	"klaviyo-sync/core/storage"
)

const (
	// MaxRateLimitRetries is how many times a request is replayed after 429.
	MaxRateLimitRetries = 1
	// DefaultRateLimitReset is used when a 429 carries no reset header.
	DefaultRateLimitReset = time.Second
)

// Response is a successful API response. Accepted is set for HTTP 202,
// which carries no body worth decoding.
type Response struct {
	StatusCode int
	Accepted   bool
	Body       []byte
}

// Decode unmarshals the response body into v.
func (r *Response) Decode(v any) error {
	if r == nil || len(r.Body) == 0 {
		return ErrNoContent
	}
	if err := json.Unmarshal(r.Body, v); err != nil {
		return fmt.Errorf("klaviyo: decode response: %w", err)
	}
	return nil
}

// Client issues authenticated Klaviyo API requests with 429 handling.
type Client struct {
	baseURL    string
	revision   string
	auth       Authenticator
	httpClient *http.Client
	limiter    *rate.Limiter
	breaker    *gobreaker.CircuitBreaker[*Response]
	logger     *zap.Logger
	sleep      func(ctx context.Context, d time.Duration) error
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithHTTPClient overrides the HTTP client.
func WithHTTPClient(c *http.Client) ClientOption {
	return func(cl *Client) { cl.httpClient = c }
}

// WithSleeper overrides how the client waits out a rate limit.
func WithSleeper(f func(ctx context.Context, d time.Duration) error) ClientOption {
	return func(cl *Client) { cl.sleep = f }
}

// NewClient creates an API client.
func NewClient(cfg Config, auth Authenticator, log *zap.Logger, opts ...ClientOption) *Client {
	log = logger.OrNop(log)

	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	revision := cfg.Revision
	if revision == "" {
		revision = DefaultRevision
	}

	limit := rate.Inf
	if cfg.RequestsPerSecond > 0 {
		limit = rate.Limit(cfg.RequestsPerSecond)
	}
	burst := cfg.Burst
	if burst <= 0 {
		burst = 1
	}

	c := &Client{
		baseURL:  strings.TrimRight(baseURL, "/"),
		revision: revision,
		auth:     auth,
		httpClient: &http.Client{
			Timeout:   time.Duration(cfg.TimeoutSeconds) * time.Second,
			Transport: storage.NewTransport(cfg.TimeoutSeconds),
		},
		limiter: rate.NewLimiter(limit, burst),
		logger:  log,
		sleep:   sleepContext,
	}
	c.breaker = newBreaker(cfg.BreakerFailures, log)

	for _, opt := range opts {
		opt(c)
	}
	return c
}

func newBreaker(failures uint32, log *zap.Logger) *gobreaker.CircuitBreaker[*Response] {
	return gobreaker.NewCircuitBreaker[*Response](gobreaker.Settings{
		Name:        "klaviyo-api",
		MaxRequests: 1,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return failures > 0 && counts.ConsecutiveFailures >= failures
		},
		IsSuccessful: func(err error) bool {
			if err == nil {
				return true
			}
			var transportErr *TransportError
			if errors.As(err, &transportErr) {
				return false
			}
			var upstreamErr *UpstreamError
			if errors.As(err, &upstreamErr) {
				return upstreamErr.StatusCode < 500
			}
			return true
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			metrics.CircuitBreakerState.WithLabelValues(name).Set(float64(to))
			log.Warn("Circuit breaker state changed",
				zap.String("name", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
	})
}

// Request sends method path with an optional JSON body and query. A 429 is
// retried once after the advertised reset delay; a second 429 returns
// *RateLimitError.
func (c *Client) Request(ctx context.Context, method, path string, body any, query url.Values) (*Response, error) {
	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("klaviyo: encode request body: %w", err)
		}
	}

	for attempt := 0; ; attempt++ {
		resp, err := c.do(ctx, method, path, payload, query)

		var rateErr *RateLimitError
		if !errors.As(err, &rateErr) {
			return resp, err
		}
		rateErr.Attempts = attempt + 1
		if attempt >= MaxRateLimitRetries {
			return nil, rateErr
		}

		metrics.RateLimitRetries.Inc()
		c.logger.Warn("Rate limited, waiting for reset",
			zap.String("method", method),
			zap.String("path", path),
			zap.Duration("reset", rateErr.Reset),
		)
		if err := c.sleep(ctx, rateErr.Reset); err != nil {
			return nil, err
		}
	}
}

func (c *Client) do(ctx context.Context, method, path string, payload []byte, query url.Values) (*Response, error) {
	headers, err := c.auth.Headers(ctx)
	if err != nil {
		return nil, err
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	endpoint := endpointLabel(path)
	return c.breaker.Execute(func() (*Response, error) {
		req, err := c.newRequest(ctx, method, path, payload, query, headers)
		if err != nil {
			return nil, err
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			metrics.APITransportErrors.WithLabelValues(method, endpoint).Inc()
			return nil, &TransportError{Method: method, URL: req.URL.String(), Err: err}
		}
		defer resp.Body.Close()

		data, err := io.ReadAll(resp.Body)
		if err != nil {
			metrics.APITransportErrors.WithLabelValues(method, endpoint).Inc()
			return nil, &TransportError{Method: method, URL: req.URL.String(), Err: err}
		}
		metrics.APIRequests.WithLabelValues(method, endpoint, strconv.Itoa(resp.StatusCode)).Inc()

		c.logger.Debug("Klaviyo API response",
			zap.String("method", method),
			zap.String("path", path),
			zap.Int("status", resp.StatusCode),
		)

		switch {
		case resp.StatusCode == http.StatusTooManyRequests:
			return nil, &RateLimitError{Method: method, Path: path, Reset: resetDelay(resp.Header)}
		case resp.StatusCode == http.StatusAccepted:
			return &Response{StatusCode: resp.StatusCode, Accepted: true}, nil
		case resp.StatusCode >= 200 && resp.StatusCode <= 299:
			return &Response{StatusCode: resp.StatusCode, Body: data}, nil
		default:
			return nil, &UpstreamError{Method: method, Path: path, StatusCode: resp.StatusCode, Body: string(data)}
		}
	})
}

func (c *Client) newRequest(ctx context.Context, method, path string, payload []byte, query url.Values, headers http.Header) (*http.Request, error) {
	target := c.baseURL + "/" + strings.TrimLeft(path, "/")
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return nil, fmt.Errorf("klaviyo: build request: %w", err)
	}

	for k, vs := range headers {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Revision", c.revision)
	req.Header.Set("Content-Type", "application/json")
	return req, nil
}

// resetDelay reads the wait from RateLimit-Reset, then Retry-After, both in
// seconds.
func resetDelay(h http.Header) time.Duration {
	for _, key := range []string{"RateLimit-Reset", "Retry-After"} {
		v := strings.TrimSpace(h.Get(key))
		if v == "" {
			continue
		}
		if secs, err := strconv.ParseFloat(v, 64); err == nil && secs >= 0 {
			return time.Duration(secs * float64(time.Second))
		}
	}
	return DefaultRateLimitReset
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

var profileIDSegment = regexp.MustCompile(`^/?profiles/[^/]+`)

// endpointLabel collapses resource ids so metric cardinality stays bounded.
func endpointLabel(path string) string {
	p := strings.SplitN(path, "?", 2)[0]
	if profileIDSegment.MatchString(p) && strings.Trim(p, "/") != "profiles" {
		return "/profiles/{id}"
	}
	return "/" + strings.Trim(p, "/")
}
