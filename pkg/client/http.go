package client

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/gorilla/websocket"

	"github.com/daniacca/tissuesim/internal/sim"
)

// Client reads from a tissuesim HTTP endpoint (tissuesim -listen).
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient targets baseURL, e.g. "http://localhost:8080".
func NewClient(baseURL string) *Client {
	return &Client{baseURL: strings.TrimRight(baseURL, "/"), http: &http.Client{}}
}

func (c *Client) get(ctx context.Context, path string) ([]byte, error) {
	u, err := url.JoinPath(c.baseURL, path)
	if err != nil {
		return nil, fmt.Errorf("failed to build URL: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("server returned status %d: %s", resp.StatusCode, string(body))
	}
	return body, nil
}

// Health checks that the server is up.
func (c *Client) Health(ctx context.Context) error {
	_, err := c.get(ctx, "healthz")
	return err
}

// Snapshot fetches the current simulation state.
func (c *Client) Snapshot(ctx context.Context) (sim.Snapshot, error) {
	var snap sim.Snapshot
	body, err := c.get(ctx, "snapshot")
	if err != nil {
		return snap, err
	}
	if err := json.Unmarshal(body, &snap); err != nil {
		return snap, fmt.Errorf("failed to decode snapshot: %w", err)
	}
	return snap, nil
}

// Subscribe streams step events into handle until ctx is done, the server
// closes the stream or handle returns an error.
func (c *Client) Subscribe(ctx context.Context, handle func(sim.StepEvent) error) error {
	u := "ws" + strings.TrimPrefix(c.baseURL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, u, nil)
	if err != nil {
		return fmt.Errorf("failed to connect to %s: %w", u, err)
	}
	defer conn.Close()

	stop := context.AfterFunc(ctx, func() { conn.Close() })
	defer stop()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return err
		}
		var event sim.StepEvent
		if err := json.Unmarshal(data, &event); err != nil {
			return fmt.Errorf("failed to decode event: %w", err)
		}
		if err := handle(event); err != nil {
			return err
		}
	}
}
