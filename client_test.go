package space

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/pricingops/space-go/internal/cache"
)

// newTestClient builds a client with an enabled in-process cache pointed at
// the given handler.
func newTestClient(t *testing.T, handler http.Handler) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	cfg := DefaultConfig()
	cfg.URL = srv.URL
	cfg.Cache = cache.Config{Enabled: true, Type: cache.TypeMemory, TTL: 300}
	client, err := New(cfg)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	t.Cleanup(func() { client.Close() })
	return client, srv
}

func TestNew_RejectsInvalidConfig(t *testing.T) {
	cfg := DefaultConfig()
	cfg.URL = ""
	if _, err := New(cfg); err == nil {
		t.Fatal("expected error for empty URL")
	}

	cfg = DefaultConfig()
	cfg.Cache = cache.Config{Enabled: true, Type: "bogus"}
	_, err := New(cfg)
	if err == nil {
		t.Fatal("expected error for invalid cache config")
	}
	var cfgErr *ConfigError
	if !errors.As(err, &cfgErr) {
		t.Fatalf("expected *ConfigError, got %T: %v", err, err)
	}
}

func TestNew_CacheDisabledByDefault(t *testing.T) {
	client, _ := newTestClient(t, http.NotFoundHandler())
	if !client.Cache().Enabled() {
		t.Fatal("test client should have cache enabled")
	}

	cfg := DefaultConfig()
	cfg.URL = "http://localhost:5403"
	plain, err := New(cfg)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	defer plain.Close()
	if plain.Cache().Enabled() {
		t.Fatal("default config should leave caching off")
	}
}

func TestClient_Ping(t *testing.T) {
	var path string
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		w.WriteHeader(http.StatusOK)
	}))

	if err := client.Ping(context.Background()); err != nil {
		t.Fatalf("Ping failed: %v", err)
	}
	if path != "/api/v1/health" {
		t.Fatalf("expected health endpoint, got %q", path)
	}
}

func TestClient_APIErrorPropagation(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"no such user"}`, http.StatusNotFound)
	}))

	_, err := client.GetContract(context.Background(), "ghost")
	if err == nil {
		t.Fatal("expected an error")
	}
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected *APIError, got %T: %v", err, err)
	}
	if apiErr.Status != http.StatusNotFound {
		t.Fatalf("expected status 404, got %d", apiErr.Status)
	}
}

func TestClient_SendsAuthAndRequestID(t *testing.T) {
	var apiKey, requestID string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		apiKey = r.Header.Get("x-api-key")
		requestID = r.Header.Get("X-Request-ID")
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	cfg := DefaultConfig()
	cfg.URL = srv.URL
	cfg.APIKey = "secret"
	client, err := New(cfg)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	defer client.Close()

	if err := client.Ping(context.Background()); err != nil {
		t.Fatalf("Ping failed: %v", err)
	}
	if apiKey != "secret" {
		t.Fatalf("expected api key header, got %q", apiKey)
	}
	if requestID == "" {
		t.Fatal("expected a request id header")
	}
}

func TestClient_CloseIdempotent(t *testing.T) {
	client, _ := newTestClient(t, http.NotFoundHandler())
	if err := client.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if err := client.Close(); err != nil {
		t.Fatalf("second Close failed: %v", err)
	}
	if client.Cache().Enabled() {
		t.Fatal("cache should be disabled after Close")
	}
}
