package space

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"github.com/pricingops/space-go/internal/metrics"
	"github.com/pricingops/space-go/internal/observability"
)

// Service is one service registered on the platform together with its
// available pricing versions.
type Service struct {
	Name            string   `json:"name"`
	ActivePricing   string   `json:"activePricing"`
	PricingVersions []string `json:"pricingVersions,omitempty"`
}

// ListServices returns the services registered on the platform.
func (c *Client) ListServices(ctx context.Context) ([]Service, error) {
	raw, err := c.get(ctx, "/services")
	if err != nil {
		return nil, err
	}
	var services []Service
	if err := json.Unmarshal(raw, &services); err != nil {
		return nil, fmt.Errorf("decode services: %w", err)
	}
	return services, nil
}

// GetPricing returns the raw pricing definition for a service.
func (c *Client) GetPricing(ctx context.Context, serviceName string) (json.RawMessage, error) {
	if serviceName == "" {
		return nil, fmt.Errorf("space: serviceName must not be empty")
	}
	return c.get(ctx, "/services/"+url.PathEscape(serviceName)+"/pricing")
}

// AddPricingFromURL registers a pricing definition the platform fetches
// itself from the given URL.
func (c *Client) AddPricingFromURL(ctx context.Context, pricingURL string) error {
	if pricingURL == "" {
		return fmt.Errorf("space: pricing URL must not be empty")
	}
	_, err := c.post(ctx, "/services", map[string]string{"pricing": pricingURL})
	return err
}

// AddPricingFromFile uploads a local pricing definition file (YAML) as a
// multipart form.
func (c *Client) AddPricingFromFile(ctx context.Context, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open pricing file: %w", err)
	}
	defer f.Close()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("pricing", filepath.Base(path))
	if err != nil {
		return fmt.Errorf("build multipart form: %w", err)
	}
	if _, err := io.Copy(part, f); err != nil {
		return fmt.Errorf("read pricing file: %w", err)
	}
	if err := mw.Close(); err != nil {
		return fmt.Errorf("finish multipart form: %w", err)
	}

	ctx, span := observability.StartSpan(ctx, "space.api",
		observability.AttrMethod.String(http.MethodPost),
		observability.AttrPath.String("/services"),
	)
	defer span.End()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.URL+apiPrefix+"/services", &buf)
	if err != nil {
		observability.SetSpanError(span, err)
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	if c.cfg.APIKey != "" {
		req.Header.Set("x-api-key", c.cfg.APIKey)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		metrics.ObserveRemoteCall(http.MethodPost, "error", time.Since(start))
		observability.SetSpanError(span, err)
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	metrics.ObserveRemoteCall(http.MethodPost, fmt.Sprintf("%d", resp.StatusCode), time.Since(start))
	if resp.StatusCode >= 400 {
		apiErr := &APIError{
			Status: resp.StatusCode,
			Method: http.MethodPost,
			Path:   "/services",
			Body:   string(body),
		}
		observability.SetSpanError(span, apiErr)
		return apiErr
	}
	return nil
}
