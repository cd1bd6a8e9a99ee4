package sim

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/daniacca/tissuesim/internal/logging"
)

// StepEvent is published every few steps with a summary of the simulation
// state.
type StepEvent struct {
	SimulationID string   `json:"simulation_id"`
	Timestamp    int64    `json:"timestamp"`
	Snapshot     Snapshot `json:"snapshot"`
}

// JSON returns the event as JSON bytes.
func (e StepEvent) JSON() ([]byte, error) {
	return json.Marshal(e)
}

// Notifier delivers step events to one outside consumer.
type Notifier interface {
	ID() string
	// Type names the channel, e.g. "webhook" or "websocket".
	Type() string
	// Notify delivers one event; ctx carries the delivery deadline.
	Notify(ctx context.Context, event StepEvent) error
	Close() error
}

// DeliveryStats counts event deliveries since the manager was created. A
// delivery is one event to one notifier.
type DeliveryStats struct {
	Delivered int64
	Failed    int64
	// Superseded counts queued events discarded in favor of newer steps.
	Superseded int64
}

type delivery struct {
	event     StepEvent
	notifiers []string
}

// NotificationManager fans step events out to notifiers from a background
// worker. Failed deliveries are retried with exponential backoff. The queue
// favors fresh state: when it is full the oldest pending step is discarded.
type NotificationManager struct {
	mu        sync.RWMutex
	notifiers map[string]Notifier
	queue     chan delivery
	closed    bool
	done      sync.WaitGroup

	delivered, failed, superseded atomic.Int64

	logger     logging.Logger
	maxRetries int
	backoff    time.Duration
	timeout    time.Duration
}

// NewNotificationManager creates a manager with a no-op logger.
func NewNotificationManager() *NotificationManager {
	return NewNotificationManagerWithLogger(nil)
}

// NewNotificationManagerWithLogger creates a manager and starts its delivery
// worker. Failed deliveries are reported to logger.
func NewNotificationManagerWithLogger(logger logging.Logger) *NotificationManager {
	nm := &NotificationManager{
		notifiers:  make(map[string]Notifier),
		queue:      make(chan delivery, 256),
		logger:     logging.OrNoOp(logger),
		maxRetries: 3,
		backoff:    100 * time.Millisecond,
		timeout:    30 * time.Second,
	}
	nm.done.Add(1)
	go nm.drain()
	return nm
}

// RegisterNotifier adds n under its ID, which must be non-empty and unused.
func (nm *NotificationManager) RegisterNotifier(n Notifier) error {
	if n == nil {
		return fmt.Errorf("register notifier: nil notifier")
	}
	id := n.ID()
	if id == "" {
		return fmt.Errorf("register %s notifier: empty id", n.Type())
	}

	nm.mu.Lock()
	defer nm.mu.Unlock()
	if _, dup := nm.notifiers[id]; dup {
		return fmt.Errorf("register notifier: id %s already in use", id)
	}
	nm.notifiers[id] = n
	nm.logger.Debugf("registered %s notifier %s", n.Type(), id)
	return nil
}

// UnregisterNotifier removes the notifier and closes it.
func (nm *NotificationManager) UnregisterNotifier(id string) error {
	nm.mu.Lock()
	n, ok := nm.notifiers[id]
	delete(nm.notifiers, id)
	nm.mu.Unlock()

	if !ok {
		return fmt.Errorf("unregister notifier: %s not found", id)
	}
	if err := n.Close(); err != nil {
		return fmt.Errorf("close notifier %s: %w", id, err)
	}
	return nil
}

// GetNotifier returns the notifier registered under id.
func (nm *NotificationManager) GetNotifier(id string) (Notifier, bool) {
	nm.mu.RLock()
	defer nm.mu.RUnlock()
	n, ok := nm.notifiers[id]
	return n, ok
}

// ListNotifiers returns the registered ids in sorted order.
func (nm *NotificationManager) ListNotifiers() []string {
	nm.mu.RLock()
	defer nm.mu.RUnlock()
	ids := make([]string, 0, len(nm.notifiers))
	for id := range nm.notifiers {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Stats returns the delivery counters.
func (nm *NotificationManager) Stats() DeliveryStats {
	return DeliveryStats{
		Delivered:  nm.delivered.Load(),
		Failed:     nm.failed.Load(),
		Superseded: nm.superseded.Load(),
	}
}

// Enqueue schedules event for asynchronous delivery and never blocks the
// stepping goroutine. It is a no-op after Close.
func (nm *NotificationManager) Enqueue(event StepEvent, notifierIDs []string) {
	if len(notifierIDs) == 0 {
		return
	}
	d := delivery{event: event, notifiers: notifierIDs}

	nm.mu.Lock()
	defer nm.mu.Unlock()
	if nm.closed {
		return
	}
	for {
		select {
		case nm.queue <- d:
			return
		default:
		}
		select {
		case old := <-nm.queue:
			nm.superseded.Add(int64(len(old.notifiers)))
			nm.logger.Debugf("step %d event superseded by step %d", old.event.Snapshot.Step, event.Snapshot.Step)
		default:
		}
	}
}

func (nm *NotificationManager) drain() {
	defer nm.done.Done()
	for d := range nm.queue {
		ctx, cancel := context.WithTimeout(context.Background(), nm.timeout)
		for _, id := range d.notifiers {
			nm.deliver(ctx, id, d.event)
		}
		cancel()
	}
}

func (nm *NotificationManager) deliver(ctx context.Context, id string, event StepEvent) {
	n, ok := nm.GetNotifier(id)
	if !ok {
		nm.failed.Add(1)
		nm.logger.Errorf("step %d: notifier %s not registered", event.Snapshot.Step, id)
		return
	}

	wait := nm.backoff
	for attempt := 1; ; attempt++ {
		err := n.Notify(ctx, event)
		if err == nil {
			nm.delivered.Add(1)
			return
		}
		if attempt > nm.maxRetries {
			nm.failed.Add(1)
			nm.logger.Errorf("step %d: %s notifier %s gave up after %d attempts: %v",
				event.Snapshot.Step, n.Type(), id, attempt, err)
			return
		}
		nm.logger.Warnf("step %d: %s notifier %s attempt %d: %v", event.Snapshot.Step, n.Type(), id, attempt, err)

		select {
		case <-ctx.Done():
			nm.failed.Add(1)
			return
		case <-time.After(wait):
			wait *= 2
		}
	}
}

// Notify delivers event to the given notifiers on the calling goroutine,
// without retries. Every failure is reported.
func (nm *NotificationManager) Notify(ctx context.Context, event StepEvent, notifierIDs []string) error {
	var errs []error
	for _, id := range notifierIDs {
		n, ok := nm.GetNotifier(id)
		if !ok {
			errs = append(errs, fmt.Errorf("notifier %s not found", id))
			continue
		}
		if err := n.Notify(ctx, event); err != nil {
			nm.failed.Add(1)
			errs = append(errs, fmt.Errorf("notifier %s: %w", id, err))
			continue
		}
		nm.delivered.Add(1)
	}
	return errors.Join(errs...)
}

// Close delivers whatever is still queued, stops the worker and closes every
// notifier. Calling it again is a no-op.
func (nm *NotificationManager) Close() error {
	nm.mu.Lock()
	if nm.closed {
		nm.mu.Unlock()
		return nil
	}
	nm.closed = true
	close(nm.queue)
	nm.mu.Unlock()

	nm.done.Wait()

	nm.mu.Lock()
	defer nm.mu.Unlock()
	var errs []error
	for id, n := range nm.notifiers {
		if err := n.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close notifier %s: %w", id, err))
		}
	}
	nm.notifiers = make(map[string]Notifier)
	return errors.Join(errs...)
}
