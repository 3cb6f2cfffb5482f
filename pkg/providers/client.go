package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/craftpanel/pluginhub/pkg/observability"
)

// maxLoggedBody bounds how much of an upstream error body is written to the
// logs. Upstream error bodies are logged for diagnosability but never
// surfaced to the end user.
const maxLoggedBody = 2048

// DefaultTimeout applies when no per-call timeout is configured.
const DefaultTimeout = 10 * time.Second

// upstreamClient is the shared HTTP plumbing used by every adapter: base
// URL handling, the fixed User-Agent, JSON decoding, bad-response logging,
// and per-call metrics.
type upstreamClient struct {
	provider   Provider
	baseURL    string
	userAgent  string
	headers    map[string]string
	httpClient *http.Client
	logger     *logrus.Logger
	metrics    *observability.Metrics
}

func newUpstreamClient(provider Provider, baseURL string, opts Options) *upstreamClient {
	if opts.BaseURL != "" {
		baseURL = opts.BaseURL
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	logger := opts.Logger
	if logger == nil {
		logger = logrus.New()
	}
	return &upstreamClient{
		provider:   provider,
		baseURL:    baseURL,
		userAgent:  opts.UserAgent,
		headers:    map[string]string{},
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
		metrics:    opts.Metrics,
	}
}

// Options carries the settings shared by every adapter constructor.
type Options struct {
	// BaseURL overrides the adapter's default upstream base URL. Used by
	// the providers config file and by tests. Must end with a slash.
	BaseURL string
	// UserAgent identifies the host application on every outbound call,
	// formatted "{name}/{version} ({base url})".
	UserAgent string
	// Timeout bounds each outbound call. Zero means DefaultTimeout.
	Timeout time.Duration
	// Logger receives upstream failure details. A default logger is used
	// when nil.
	Logger *logrus.Logger
	// Metrics records upstream call counts and latencies when non-nil.
	Metrics *observability.Metrics
}

// getJSON issues a GET and decodes a 2xx JSON body into target.
func (c *upstreamClient) getJSON(ctx context.Context, operation, path string, query url.Values, target interface{}) error {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return &UpstreamError{Provider: c.provider, Operation: operation, Err: err}
	}
	return c.do(req, operation, target)
}

// postJSON issues a POST with a JSON body and decodes a 2xx JSON response
// into target.
func (c *upstreamClient) postJSON(ctx context.Context, operation, path string, body, target interface{}) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return &UpstreamError{Provider: c.provider, Operation: operation, Err: err}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return &UpstreamError{Provider: c.provider, Operation: operation, Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, operation, target)
}

func (c *upstreamClient) do(req *http.Request, operation string, target interface{}) error {
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")
	for k, v := range c.headers {
		req.Header.Set(k, v)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.observe(operation, "transport_error", time.Since(start))
		c.logger.WithFields(logrus.Fields{
			"provider":  c.provider,
			"operation": operation,
			"error":     err.Error(),
		}).Error("Upstream request failed")
		return &UpstreamError{Provider: c.provider, Operation: operation, Err: err}
	}
	defer resp.Body.Close()

	c.observe(operation, fmt.Sprintf("%d", resp.StatusCode), time.Since(start))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxLoggedBody))
		c.logger.WithFields(logrus.Fields{
			"provider":  c.provider,
			"operation": operation,
			"status":    resp.StatusCode,
			"response":  string(body),
		}).Error("Received bad response from upstream")
		upstreamErr := &UpstreamError{Provider: c.provider, Operation: operation, StatusCode: resp.StatusCode}
		if resp.StatusCode == http.StatusNotFound {
			upstreamErr.Err = ErrNotFound
		}
		return upstreamErr
	}

	if target != nil {
		if err := json.NewDecoder(resp.Body).Decode(target); err != nil {
			c.logger.WithFields(logrus.Fields{
				"provider":  c.provider,
				"operation": operation,
				"error":     err.Error(),
			}).Error("Failed to decode upstream response")
			return &UpstreamError{Provider: c.provider, Operation: operation, Err: fmt.Errorf("decode response: %w", err)}
		}
	}
	return nil
}

func (c *upstreamClient) observe(operation, status string, elapsed time.Duration) {
	if c.metrics == nil {
		return
	}
	c.metrics.UpstreamRequestsTotal.WithLabelValues(string(c.provider), operation, status).Inc()
	c.metrics.UpstreamRequestDuration.WithLabelValues(string(c.provider), operation).Observe(elapsed.Seconds())
}
