package space

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"testing"
	"time"
)

func TestEvents_HandlerOverwrite(t *testing.T) {
	client, _ := newTestClient(t, http.NotFoundHandler())

	var firstCalled, secondCalled bool
	client.On(EventPricingChanged, func(json.RawMessage) { firstCalled = true })
	client.On(EventPricingChanged, func(json.RawMessage) { secondCalled = true })

	client.events.dispatch(EventPricingChanged, json.RawMessage(`{}`))

	if firstCalled {
		t.Fatal("overwritten handler must not run")
	}
	if !secondCalled {
		t.Fatal("latest handler should run")
	}
}

func TestEvents_Off(t *testing.T) {
	client, _ := newTestClient(t, http.NotFoundHandler())

	called := false
	client.On(EventPricingArchived, func(json.RawMessage) { called = true })
	client.Off(EventPricingArchived)

	client.events.dispatch(EventPricingArchived, json.RawMessage(`{}`))
	if called {
		t.Fatal("removed handler must not run")
	}
}

func TestEvents_ConsumeStream(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v1/events" {
			http.NotFound(w, r)
			return
		}
		if r.Header.Get("Accept") != "text/event-stream" {
			t.Errorf("expected event-stream accept header, got %q", r.Header.Get("Accept"))
		}
		w.Header().Set("Content-Type", "text/event-stream")
		flusher := w.(http.Flusher)
		fmt.Fprintf(w, "event: %s\ndata: {\"serviceName\":\"tomatometer\"}\n\n", EventPricingChanged)
		flusher.Flush()
		fmt.Fprintf(w, "event: %s\ndata: {\"serviceName\":\"other\"}\n\n", EventPricingCreated)
		flusher.Flush()
	}))

	changed := make(chan json.RawMessage, 1)
	created := make(chan json.RawMessage, 1)
	// Register directly so the background consumer loop stays out of the
	// way; consume is driven by hand below.
	client.events.mu.Lock()
	client.events.handlers[EventPricingChanged] = func(p json.RawMessage) { changed <- p }
	client.events.handlers[EventPricingCreated] = func(p json.RawMessage) { created <- p }
	client.events.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.events.consume(ctx); err != nil {
		t.Fatalf("consume failed: %v", err)
	}

	select {
	case payload := <-changed:
		var body struct {
			ServiceName string `json:"serviceName"`
		}
		if err := json.Unmarshal(payload, &body); err != nil || body.ServiceName != "tomatometer" {
			t.Fatalf("unexpected payload %s (%v)", payload, err)
		}
	default:
		t.Fatal("pricing-changed handler not called")
	}
	select {
	case <-created:
	default:
		t.Fatal("pricing-created handler not called")
	}
}

func TestEvents_CloseStopsRegistration(t *testing.T) {
	client, _ := newTestClient(t, http.NotFoundHandler())
	client.events.close()

	called := false
	client.On(EventPricingChanged, func(json.RawMessage) { called = true })
	client.events.dispatch(EventPricingChanged, json.RawMessage(`{}`))
	if called {
		t.Fatal("registration after close must be ignored")
	}
}
