package client

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/daniacca/tissuesim/internal/sim"
	"github.com/daniacca/tissuesim/internal/sim/notifiers"
)

func newTestServer(t *testing.T) (*httptest.Server, *notifiers.WebSocketNotifier) {
	t.Helper()
	ws := notifiers.NewWebSocketNotifier("ws", nil)
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("ok"))
	})
	mux.HandleFunc("/snapshot", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(sim.Snapshot{Step: 5, Medium: map[string]float64{"x": 2}})
	})
	mux.Handle("/ws", ws)
	srv := httptest.NewServer(mux)
	t.Cleanup(func() {
		srv.Close()
		ws.Close()
	})
	return srv, ws
}

func TestClient_HealthAndSnapshot(t *testing.T) {
	srv, _ := newTestServer(t)
	c := NewClient(srv.URL + "/")
	ctx := context.Background()

	require.NoError(t, c.Health(ctx))
	snap, err := c.Snapshot(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(5), snap.Step)
	assert.Equal(t, 2.0, snap.Medium["x"])
}

func TestClient_ErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()
	c := NewClient(srv.URL)

	err := c.Health(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "404")
	_, err = c.Snapshot(context.Background())
	assert.Error(t, err)
}

func TestClient_Subscribe(t *testing.T) {
	srv, ws := newTestServer(t)
	c := NewClient(srv.URL)
	errStop := errors.New("stop")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	got := make(chan int64, 1)
	done := make(chan error, 1)
	go func() {
		done <- c.Subscribe(ctx, func(e sim.StepEvent) error {
			got <- e.Snapshot.Step
			return errStop
		})
	}()

	require.Eventually(t, func() bool { return ws.ClientCount() == 1 }, 2*time.Second, 10*time.Millisecond)
	require.NoError(t, ws.Notify(ctx, sim.StepEvent{SimulationID: "s", Snapshot: sim.Snapshot{Step: 11}}))

	assert.Equal(t, int64(11), <-got)
	assert.ErrorIs(t, <-done, errStop)
}

func TestClient_SubscribeCancelled(t *testing.T) {
	srv, ws := newTestServer(t)
	c := NewClient(srv.URL)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- c.Subscribe(ctx, func(sim.StepEvent) error { return nil })
	}()
	require.Eventually(t, func() bool { return ws.ClientCount() == 1 }, 2*time.Second, 10*time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("subscribe did not stop")
	}
}
