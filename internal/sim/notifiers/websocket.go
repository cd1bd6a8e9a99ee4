package notifiers

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/daniacca/tissuesim/internal/logging"
	"github.com/daniacca/tissuesim/internal/sim"
)

const writeTimeout = 10 * time.Second

// WebSocketNotifier broadcasts step events to every connected client. A
// single goroutine owns the writes; Notify only queues.
type WebSocketNotifier struct {
	id       string
	upgrader websocket.Upgrader
	logger   logging.Logger

	mu      sync.Mutex
	clients map[*websocket.Conn]struct{}

	broadcast chan sim.StepEvent
	done      chan struct{}
	closeOnce sync.Once
	wg        sync.WaitGroup
}

// NewWebSocketNotifier starts the broadcaster. An empty id gets a random one.
func NewWebSocketNotifier(id string, logger logging.Logger) *WebSocketNotifier {
	if id == "" {
		id = "websocket-" + uuid.NewString()
	}
	wsn := &WebSocketNotifier{
		id: id,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
		logger:    logging.OrNoOp(logger),
		clients:   make(map[*websocket.Conn]struct{}),
		broadcast: make(chan sim.StepEvent, 256),
		done:      make(chan struct{}),
	}
	wsn.wg.Add(1)
	go wsn.run()
	return wsn
}

func (wsn *WebSocketNotifier) ID() string   { return wsn.id }
func (wsn *WebSocketNotifier) Type() string { return "websocket" }

// ClientCount returns the number of connected clients.
func (wsn *WebSocketNotifier) ClientCount() int {
	wsn.mu.Lock()
	defer wsn.mu.Unlock()
	return len(wsn.clients)
}

// ServeHTTP upgrades the request and subscribes the connection until the
// client goes away.
func (wsn *WebSocketNotifier) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := wsn.upgrader.Upgrade(w, r, nil)
	if err != nil {
		wsn.logger.Warnf("websocket upgrade failed: %v", err)
		return
	}
	if !wsn.addClient(conn) {
		conn.Close()
		return
	}
	wsn.logger.Debugf("websocket client %s connected", conn.RemoteAddr())

	// Clients only listen; reading detects the disconnect.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}
	wsn.removeClient(conn)
}

func (wsn *WebSocketNotifier) addClient(conn *websocket.Conn) bool {
	wsn.mu.Lock()
	defer wsn.mu.Unlock()
	select {
	case <-wsn.done:
		return false
	default:
	}
	wsn.clients[conn] = struct{}{}
	return true
}

func (wsn *WebSocketNotifier) removeClient(conn *websocket.Conn) {
	wsn.mu.Lock()
	defer wsn.mu.Unlock()
	if _, ok := wsn.clients[conn]; ok {
		delete(wsn.clients, conn)
		conn.Close()
	}
}

// Notify queues the event for broadcast.
func (wsn *WebSocketNotifier) Notify(ctx context.Context, event sim.StepEvent) error {
	select {
	case <-wsn.done:
		return fmt.Errorf("notifier %s is closed", wsn.id)
	default:
	}
	select {
	case wsn.broadcast <- event:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(time.Second):
		return fmt.Errorf("notification queue full")
	}
}

func (wsn *WebSocketNotifier) run() {
	defer wsn.wg.Done()
	for {
		select {
		case <-wsn.done:
			return
		case event := <-wsn.broadcast:
			data, err := event.JSON()
			if err != nil {
				wsn.logger.Errorf("websocket: encode step %d: %v", event.Snapshot.Step, err)
				continue
			}
			wsn.send(data)
		}
	}
}

func (wsn *WebSocketNotifier) send(data []byte) {
	wsn.mu.Lock()
	conns := make([]*websocket.Conn, 0, len(wsn.clients))
	for conn := range wsn.clients {
		conns = append(conns, conn)
	}
	wsn.mu.Unlock()

	for _, conn := range conns {
		conn.SetWriteDeadline(time.Now().Add(writeTimeout))
		if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
			wsn.logger.Debugf("websocket client %s dropped: %v", conn.RemoteAddr(), err)
			wsn.removeClient(conn)
		}
	}
}

// Close disconnects every client and stops the broadcaster. It is safe to
// call more than once.
func (wsn *WebSocketNotifier) Close() error {
	wsn.closeOnce.Do(func() {
		wsn.mu.Lock()
		close(wsn.done)
		for conn := range wsn.clients {
			conn.Close()
			delete(wsn.clients, conn)
		}
		wsn.mu.Unlock()
		wsn.wg.Wait()
	})
	return nil
}
