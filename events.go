package space

import (
	"bufio"
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/pricingops/space-go/internal/logging"
)

// Event names delivered by the platform's notification channel.
const (
	EventPricingCreated  = "pricing-created"
	EventPricingChanged  = "pricing-changed"
	EventPricingArchived = "pricing-archived"
)

// EventHandler receives the raw payload of one platform notification.
type EventHandler func(payload json.RawMessage)

// On registers a handler for an event name. The subscription table holds at
// most one handler per event: registering again overwrites the previous
// handler. The stream consumer starts on the first registration.
func (c *Client) On(event string, handler EventHandler) {
	c.events.on(event, handler)
}

// Off removes the handler for an event name, if any.
func (c *Client) Off(event string) {
	c.events.off(event)
}

// eventStream consumes the platform's server-sent event feed and
// dispatches notifications to registered handlers. One consumer goroutine
// per client; stopped by Client.Close.
type eventStream struct {
	client *Client

	mu       sync.Mutex
	handlers map[string]EventHandler
	cancel   context.CancelFunc
	running  bool
	closed   bool
}

func newEventStream(client *Client) *eventStream {
	return &eventStream{
		client:   client,
		handlers: make(map[string]EventHandler),
	}
}

func (s *eventStream) on(event string, handler EventHandler) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || handler == nil {
		return
	}
	s.handlers[event] = handler
	if !s.running {
		ctx, cancel := context.WithCancel(context.Background())
		s.cancel = cancel
		s.running = true
		go s.run(ctx)
	}
}

func (s *eventStream) off(event string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.handlers, event)
}

func (s *eventStream) dispatch(event string, payload json.RawMessage) {
	s.mu.Lock()
	handler := s.handlers[event]
	s.mu.Unlock()
	if handler == nil {
		return
	}
	handler(payload)
}

func (s *eventStream) close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	if s.cancel != nil {
		s.cancel()
	}
}

// run connects to the event feed and re-connects with growing backoff
// until the stream is closed.
func (s *eventStream) run(ctx context.Context) {
	backoff := time.Second
	for {
		if err := s.consume(ctx); err != nil && ctx.Err() == nil {
			logging.Op().Warn("event stream disconnected", "error", err)
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(backoff):
		}
		if backoff *= 2; backoff > 30*time.Second {
			backoff = 30 * time.Second
		}
	}
}

func (s *eventStream) consume(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		s.client.cfg.URL+apiPrefix+"/events", nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "text/event-stream")
	if s.client.cfg.APIKey != "" {
		req.Header.Set("x-api-key", s.client.cfg.APIKey)
	}

	// The stream is long-lived; the client's per-call timeout must not
	// apply here.
	stream := &http.Client{}
	resp, err := stream.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		return &APIError{Status: resp.StatusCode, Method: http.MethodGet, Path: "/events"}
	}

	var event string
	var data strings.Builder
	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		switch {
		case line == "":
			if event != "" && data.Len() > 0 {
				s.dispatch(event, json.RawMessage(data.String()))
			}
			event = ""
			data.Reset()
		case strings.HasPrefix(line, "event:"):
			event = strings.TrimSpace(strings.TrimPrefix(line, "event:"))
		case strings.HasPrefix(line, "data:"):
			data.WriteString(strings.TrimSpace(strings.TrimPrefix(line, "data:")))
		}
	}
	return scanner.Err()
}
