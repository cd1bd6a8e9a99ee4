// Package notifiers delivers simulation step events over HTTP webhooks and
// WebSocket connections.
package notifiers

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/daniacca/tissuesim/internal/sim"
)

// WebhookNotifier POSTs every step event as JSON to a fixed URL.
type WebhookNotifier struct {
	id      string
	url     string
	client  *http.Client
	headers map[string]string
}

// NewWebhookNotifier creates a webhook notifier. An empty id gets a random one.
func NewWebhookNotifier(id, url string) *WebhookNotifier {
	if id == "" {
		id = "webhook-" + uuid.NewString()
	}
	return &WebhookNotifier{
		id:      id,
		url:     url,
		client:  &http.Client{Timeout: 5 * time.Second},
		headers: make(map[string]string),
	}
}

// SetHeader adds a header to every request.
func (wn *WebhookNotifier) SetHeader(key, value string) {
	wn.headers[key] = value
}

func (wn *WebhookNotifier) ID() string   { return wn.id }
func (wn *WebhookNotifier) Type() string { return "webhook" }
func (wn *WebhookNotifier) URL() string  { return wn.url }

// Step headers let receivers drop duplicates when a retried delivery had in
// fact arrived.
const (
	HeaderSimulation = "X-Tissuesim-Simulation"
	HeaderStep       = "X-Tissuesim-Step"
)

// Notify posts the event. Non-2xx responses are errors so the manager retries.
func (wn *WebhookNotifier) Notify(ctx context.Context, event sim.StepEvent) error {
	body, err := event.JSON()
	if err != nil {
		return fmt.Errorf("webhook %s: encode step %d: %w", wn.id, event.Snapshot.Step, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, wn.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("webhook %s: %w", wn.id, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(HeaderSimulation, event.SimulationID)
	req.Header.Set(HeaderStep, strconv.FormatInt(event.Snapshot.Step, 10))
	for k, v := range wn.headers {
		req.Header.Set(k, v)
	}

	resp, err := wn.client.Do(req)
	if err != nil {
		return fmt.Errorf("webhook %s: post step %d: %w", wn.id, event.Snapshot.Step, err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("webhook %s: step %d rejected with status %d", wn.id, event.Snapshot.Step, resp.StatusCode)
	}
	return nil
}

func (wn *WebhookNotifier) Close() error {
	wn.client.CloseIdleConnections()
	return nil
}
