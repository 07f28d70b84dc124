package relay

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"relay-swap/pkg/metrics"
)

const (
	DefaultBaseURL = "https://api.relay.link"

	defaultTimeout        = 30 * time.Second
	defaultRequestsPerSec = 10
	maxStatusRetries      = 3

	quoteEndpoint  = "/quote/v2"
	statusEndpoint = "/intents/status/v3"
)

// Config represents Relay client configuration
type Config struct {
	BaseURL        string
	APIKey         string
	Timeout        time.Duration
	RequestsPerSec float64
}

// Client is a Relay API client
type Client struct {
	config         Config
	httpClient     *http.Client
	circuitBreaker *gobreaker.CircuitBreaker
	rateLimiter    *rate.Limiter
	logger         *zap.Logger
}

// NewClient creates a new Relay API client
func NewClient(config Config, logger *zap.Logger) *Client {
	if config.BaseURL == "" {
		config.BaseURL = DefaultBaseURL
	}
	config.BaseURL = strings.TrimSuffix(config.BaseURL, "/")
	if config.Timeout == 0 {
		config.Timeout = defaultTimeout
	}
	if config.RequestsPerSec <= 0 {
		config.RequestsPerSec = defaultRequestsPerSec
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	cbSettings := gobreaker.Settings{
		Name:        "RelayAPI",
		MaxRequests: 5,
		Interval:    10 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures > 5
		},
		// 4xx responses are answers, not outages
		IsSuccessful: func(err error) bool {
			var apiErr *APIError
			if errors.As(err, &apiErr) {
				return !apiErr.IsServerError()
			}
			return err == nil
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.Info("Relay circuit breaker state changed",
				zap.String("name", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()))
		},
	}

	return &Client{
		config:         config,
		httpClient:     &http.Client{Timeout: config.Timeout},
		circuitBreaker: gobreaker.NewCircuitBreaker(cbSettings),
		rateLimiter:    rate.NewLimiter(rate.Limit(config.RequestsPerSec), 1),
		logger:         logger,
	}
}

// BaseURL returns the API base URL without a trailing slash
func (c *Client) BaseURL() string {
	return c.config.BaseURL
}

// StatusURL returns the public status URL of a request
func (c *Client) StatusURL(requestID string) string {
	return StatusURL(c.config.BaseURL, requestID)
}

// StatusURL returns the status URL of a request on the API at baseURL
func StatusURL(baseURL, requestID string) string {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return strings.TrimSuffix(baseURL, "/") + statusEndpoint + "?requestId=" + url.QueryEscape(requestID)
}

// GetQuote requests an executable quote. Quote requests are not retried.
func (c *Client) GetQuote(ctx context.Context, req *QuoteRequest) (*QuoteResponse, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal quote request: %w", err)
	}

	var resp QuoteResponse
	if err := c.do(ctx, "quote", http.MethodPost, quoteEndpoint, body, 0, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// GetStatus fetches the status of an intent. Server errors are retried with
// exponential backoff.
func (c *Client) GetStatus(ctx context.Context, requestID string) (*StatusResponse, error) {
	endpoint := statusEndpoint + "?requestId=" + url.QueryEscape(requestID)

	var resp StatusResponse
	if err := c.do(ctx, "status", http.MethodGet, endpoint, nil, maxStatusRetries, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) do(ctx context.Context, op, method, endpoint string, body []byte, retries int, response interface{}) error {
	if err := c.rateLimiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limiter: %w", err)
	}

	_, err := c.circuitBreaker.Execute(func() (interface{}, error) {
		return nil, c.doWithRetry(ctx, op, method, endpoint, body, retries, response)
	})
	status := "ok"
	if err != nil {
		status = "error"
		var apiErr *APIError
		if errors.As(err, &apiErr) {
			status = strconv.Itoa(apiErr.StatusCode)
		}
	}
	metrics.ProviderRequests.WithLabelValues("relay", op, status).Inc()
	return err
}

func (c *Client) doWithRetry(ctx context.Context, op, method, endpoint string, body []byte, retries int, response interface{}) error {
	var lastErr error
	for attempt := 0; attempt <= retries; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(1<<(attempt-1)) * time.Second
			c.logger.Debug("retrying Relay request",
				zap.String("endpoint", endpoint),
				zap.Int("attempt", attempt),
				zap.Duration("backoff", backoff),
				zap.Error(lastErr))
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(backoff):
			}
		}

		lastErr = c.doOnce(ctx, op, method, endpoint, body, response)
		if lastErr == nil {
			return nil
		}

		var apiErr *APIError
		if errors.As(lastErr, &apiErr) && !apiErr.IsServerError() {
			return lastErr
		}
		if ctx.Err() != nil {
			return lastErr
		}
	}
	return lastErr
}

func (c *Client) doOnce(ctx context.Context, op, method, endpoint string, body []byte, response interface{}) error {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.config.BaseURL+endpoint, reader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if c.config.APIKey != "" {
		req.Header.Set("x-api-key", c.config.APIKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("Relay %s request failed: %w", op, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read Relay %s response: %w", op, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &APIError{Operation: op, StatusCode: resp.StatusCode, Body: string(respBody)}
	}

	if err := json.Unmarshal(respBody, response); err != nil {
		return fmt.Errorf("decode Relay %s response: %w", op, err)
	}
	return nil
}
