// Package wshub pushes dataset change events to browsers over WebSocket so
// open dashboards can refetch without polling.
package wshub

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/couchcryptid/health-risk-dashboard/internal/domain"
	"github.com/couchcryptid/health-risk-dashboard/internal/observability"
	"github.com/gorilla/websocket"
)

const (
	messageType     = "dataset_updated"
	defaultBuffer   = 16
	writeWait       = 5 * time.Second
	pingPeriod      = 30 * time.Second
	maxInboundBytes = 512
)

// ErrClosed is returned by Publish after Close.
var ErrClosed = errors.New("hub closed")

// Message is the frame written to subscribers.
type Message struct {
	Type string              `json:"type"`
	Data domain.DatasetEvent `json:"data"`
}

type subscriber struct {
	send chan []byte
	done chan struct{}
}

// Hub tracks connected subscribers and broadcasts events to them.
// A subscriber whose buffer is full is disconnected rather than blocking
// the publisher.
type Hub struct {
	mu       sync.Mutex
	subs     map[*subscriber]struct{}
	closed   bool
	handlers sync.WaitGroup

	buffer   int
	upgrader websocket.Upgrader
	logger   *slog.Logger
	metrics  *observability.Metrics
}

// Option configures a Hub.
type Option func(*Hub)

// WithBuffer sets how many undelivered messages a subscriber may queue.
func WithBuffer(n int) Option {
	return func(h *Hub) {
		if n > 0 {
			h.buffer = n
		}
	}
}

// New creates an empty Hub.
func New(logger *slog.Logger, metrics *observability.Metrics, opts ...Option) *Hub {
	h := &Hub{
		subs:   make(map[*subscriber]struct{}),
		buffer: defaultBuffer,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(*http.Request) bool { return true },
		},
		logger:  logger,
		metrics: metrics,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Len returns the number of connected subscribers.
func (h *Hub) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}

// Publish broadcasts event to every subscriber without blocking.
func (h *Hub) Publish(_ context.Context, event domain.DatasetEvent) error {
	payload, err := json.Marshal(Message{Type: messageType, Data: event})
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return ErrClosed
	}
	for sub := range h.subs {
		select {
		case sub.send <- payload:
		default:
			h.logger.Warn("dropping slow websocket subscriber", "event_id", event.ID)
			h.removeLocked(sub)
		}
	}
	return nil
}

// ServeHTTP upgrades the request and streams events until the client goes
// away or the hub is closed.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	sub, ok := h.add()
	if !ok {
		http.Error(w, "shutting down", http.StatusServiceUnavailable)
		return
	}
	defer h.handlers.Done()

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.remove(sub)
		h.logger.Warn("websocket upgrade failed", "error", err)
		return
	}
	defer h.remove(sub)

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	// Clients never send data; reading only detects disconnects.
	readDone := make(chan struct{})
	go func() {
		defer close(readDone)
		defer cancel()
		conn.SetReadLimit(maxInboundBytes)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	h.writeLoop(ctx, conn, sub)
	conn.Close() //nolint:errcheck,gosec // unblocks the reader
	<-readDone
}

func (h *Hub) writeLoop(ctx context.Context, conn *websocket.Conn, sub *subscriber) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-sub.done:
			msg := websocket.FormatCloseMessage(websocket.CloseGoingAway, "")
			_ = conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(writeWait))
			return
		case payload := <-sub.send:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				h.logger.Debug("websocket write failed", "error", err)
				return
			}
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				return
			}
		}
	}
}

// Close disconnects every subscriber and waits for their handlers to return.
// Later connections are refused.
func (h *Hub) Close() {
	h.mu.Lock()
	h.closed = true
	for sub := range h.subs {
		h.removeLocked(sub)
	}
	h.mu.Unlock()

	h.handlers.Wait()
}

func (h *Hub) add() (*subscriber, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return nil, false
	}
	sub := &subscriber{
		send: make(chan []byte, h.buffer),
		done: make(chan struct{}),
	}
	h.subs[sub] = struct{}{}
	h.handlers.Add(1)
	h.metrics.Subscribers.Inc()
	return sub, true
}

func (h *Hub) remove(sub *subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.removeLocked(sub)
}

func (h *Hub) removeLocked(sub *subscriber) {
	if _, ok := h.subs[sub]; !ok {
		return
	}
	delete(h.subs, sub)
	close(sub.done)
	h.metrics.Subscribers.Dec()
}
