// Package space is a Go client for the SPACE pricing-driven adaptation
// platform: contract management, feature evaluation, pricing tokens and
// real-time pricing change notifications, with an optional caching layer
// (in-process or Redis) in front of read-heavy operations.
package space

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/pricingops/space-go/internal/cache"
	"github.com/pricingops/space-go/internal/logging"
	"github.com/pricingops/space-go/internal/metrics"
	"github.com/pricingops/space-go/internal/observability"
)

const apiPrefix = "/api/v1"

// Client talks to one SPACE platform instance. It owns exactly one cache
// coordinator; both are released by Close.
type Client struct {
	cfg    Config
	http   *http.Client
	cache  *cache.Coordinator
	events *eventStream
}

// New validates cfg and constructs a client. Configuration errors —
// including an invalid cache configuration — are fatal here: the client
// never silently runs with a broken cache setup.
func New(cfg Config) (*Client, error) {
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.LogFormat != "" || cfg.LogLevel != "" {
		logging.Init(cfg.LogFormat, cfg.LogLevel)
	}
	if err := observability.Init(context.Background(), cfg.Telemetry); err != nil {
		return nil, fmt.Errorf("init telemetry: %w", err)
	}

	coordinator, err := cache.NewCoordinator(cfg.Cache)
	if err != nil {
		return nil, err
	}

	c := &Client{
		cfg:   cfg,
		http:  &http.Client{Timeout: cfg.Timeout},
		cache: coordinator,
	}
	c.events = newEventStream(c)
	logging.Op().Debug("space client created",
		"url", cfg.URL, "cache_enabled", coordinator.Enabled())
	return c, nil
}

// Cache exposes the coordinator for advanced callers (manual invalidation,
// stats). The backend itself is never reachable from here.
func (c *Client) Cache() *cache.Coordinator { return c.cache }

// Ping probes the platform's health endpoint.
func (c *Client) Ping(ctx context.Context) error {
	_, err := c.get(ctx, "/health")
	return err
}

// Close stops the event stream and releases the cache backend. Idempotent.
func (c *Client) Close() error {
	c.events.close()
	err := c.cache.Close()
	if shErr := observability.Shutdown(context.Background()); err == nil {
		err = shErr
	}
	return err
}

// do performs one platform call. Remote errors come back as *APIError and
// propagate to the caller unchanged.
func (c *Client) do(ctx context.Context, method, path string, body any) (json.RawMessage, error) {
	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshal request: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	requestID := uuid.NewString()
	ctx, span := observability.StartSpan(ctx, "space.api",
		observability.AttrMethod.String(method),
		observability.AttrPath.String(path),
		observability.AttrRequestID.String(requestID),
	)
	defer span.End()

	url := c.cfg.URL + apiPrefix + path
	req, err := http.NewRequestWithContext(ctx, method, url, reqBody)
	if err != nil {
		observability.SetSpanError(span, err)
		return nil, fmt.Errorf("create request: %w", err)
	}
	if reqBody != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.cfg.APIKey != "" {
		req.Header.Set("x-api-key", c.cfg.APIKey)
	}
	req.Header.Set("X-Request-ID", requestID)

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		metrics.ObserveRemoteCall(method, "error", time.Since(start))
		observability.SetSpanError(span, err)
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		observability.SetSpanError(span, err)
		return nil, fmt.Errorf("read response: %w", err)
	}

	metrics.ObserveRemoteCall(method, strconv.Itoa(resp.StatusCode), time.Since(start))
	span.SetAttributes(observability.AttrStatus.Int(resp.StatusCode))

	if resp.StatusCode >= 400 {
		apiErr := &APIError{
			Status: resp.StatusCode,
			Method: method,
			Path:   path,
			Body:   string(respBody),
		}
		observability.SetSpanError(span, apiErr)
		return nil, apiErr
	}

	if len(respBody) == 0 {
		return json.RawMessage(`{}`), nil
	}
	return json.RawMessage(respBody), nil
}

func (c *Client) get(ctx context.Context, path string) (json.RawMessage, error) {
	return c.do(ctx, http.MethodGet, path, nil)
}

func (c *Client) post(ctx context.Context, path string, body any) (json.RawMessage, error) {
	return c.do(ctx, http.MethodPost, path, body)
}

func (c *Client) put(ctx context.Context, path string, body any) (json.RawMessage, error) {
	return c.do(ctx, http.MethodPut, path, body)
}
