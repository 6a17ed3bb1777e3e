// Package hub tracks live WebSocket connections per user and fans
// workflow stream messages out to them. A user may hold several
// connections at once (phone plus web); every one of them receives
// every message addressed to the user.
package hub

import (
	"context"
	"log/slog"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/agromitra/agromitra/workflow"
)

var (
	connectionsActive = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "agromitra_hub_connections_active",
		Help: "Live WebSocket connections registered with the hub.",
	})

	messagesSent = promauto.NewCounter(prometheus.CounterOpts{
		Name: "agromitra_hub_messages_sent_total",
		Help: "Messages delivered to a connection.",
	})

	messagesFailed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "agromitra_hub_messages_failed_total",
		Help: "Message deliveries that failed on a connection.",
	})
)

// Sender writes one JSON-encodable payload to a live connection.
// Implementations must be safe for concurrent use; the hub serializes
// nothing.
type Sender interface {
	Send(ctx context.Context, payload any) error
}

// Hub is the connection registry. The zero value is not usable; call
// New.
type Hub struct {
	mu     sync.RWMutex
	conns  map[string]map[*Handle]struct{}
	logger *slog.Logger
}

// Handle identifies one registered connection for later removal.
type Handle struct {
	userID string
	sender Sender
}

// New creates an empty hub.
func New(logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{
		conns:  make(map[string]map[*Handle]struct{}),
		logger: logger,
	}
}

// Register adds a connection for the user and returns its handle.
func (h *Hub) Register(userID string, sender Sender) *Handle {
	handle := &Handle{userID: userID, sender: sender}

	h.mu.Lock()
	set, ok := h.conns[userID]
	if !ok {
		set = make(map[*Handle]struct{})
		h.conns[userID] = set
	}
	set[handle] = struct{}{}
	h.mu.Unlock()

	connectionsActive.Inc()
	h.logger.Debug("Connection registered", "user_id", userID)
	return handle
}

// Unregister removes a connection. Unregistering twice is harmless.
func (h *Hub) Unregister(handle *Handle) {
	if handle == nil {
		return
	}

	h.mu.Lock()
	set, ok := h.conns[handle.userID]
	if ok {
		if _, present := set[handle]; present {
			delete(set, handle)
			if len(set) == 0 {
				delete(h.conns, handle.userID)
			}
			connectionsActive.Dec()
		} else {
			ok = false
		}
	}
	h.mu.Unlock()

	if ok {
		h.logger.Debug("Connection unregistered", "user_id", handle.userID)
	}
}

// ConnectionCount returns the number of live connections for a user.
func (h *Hub) ConnectionCount(userID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.conns[userID])
}

// Broadcast delivers payload to every live connection of the user. The
// connection set is snapshotted first so a slow send never holds the
// registry lock. Per-connection failures are logged and counted, not
// returned; Broadcast only reports when the user has no connections at
// all.
func (h *Hub) Broadcast(ctx context.Context, userID string, payload any) error {
	h.mu.RLock()
	set := h.conns[userID]
	snapshot := make([]*Handle, 0, len(set))
	for handle := range set {
		snapshot = append(snapshot, handle)
	}
	h.mu.RUnlock()

	if len(snapshot) == 0 {
		return ErrNoConnections
	}

	for _, handle := range snapshot {
		if err := handle.sender.Send(ctx, payload); err != nil {
			messagesFailed.Inc()
			h.logger.Debug("Send to connection failed",
				"user_id", userID,
				"error", err)
			continue
		}
		messagesSent.Inc()
	}
	return nil
}

// Emitter returns a workflow emitter that broadcasts every stream
// message to the user's connections.
func (h *Hub) Emitter(userID string) workflow.Emitter {
	return workflow.EmitterFunc(func(ctx context.Context, msg workflow.Message) error {
		return h.Broadcast(ctx, userID, msg)
	})
}
