// Package notify fans transient action notifications out to websocket clients.
package notify

import (
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/samber/lo"
	"github.com/upb/fraudshield/services/actionstate"
	"go.uber.org/zap"
)

const (
	subscriberBuffer = 64
	writeWait        = 5 * time.Second
	pingInterval     = 20 * time.Second
)

type subscriber struct {
	session string
	ch      chan actionstate.Notification
}

// Hub delivers notifications to the subscribers of the matching session.
// Slow subscribers lose notifications rather than block the sender.
type Hub struct {
	mu          sync.RWMutex
	subscribers map[string]*subscriber

	upgrader websocket.Upgrader
	logger   *zap.Logger
}

// NewHub creates a new Hub. Browser origins outside allowedOrigins are
// refused on upgrade; "*" allows any origin.
func NewHub(logger *zap.Logger, allowedOrigins []string) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	h := &Hub{
		subscribers: make(map[string]*subscriber),
		logger:      logger,
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			if origin == "" {
				return true
			}
			return lo.Contains(allowedOrigins, "*") || lo.Contains(allowedOrigins, origin)
		},
	}
	return h
}

// Notify implements actionstate.Notifier
func (h *Hub) Notify(n actionstate.Notification) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for id, sub := range h.subscribers {
		if sub.session != n.Session {
			continue
		}
		select {
		case sub.ch <- n:
		default:
			h.logger.Warn("notification subscriber blocked, dropping notification",
				zap.String("subscriber_id", id),
				zap.String("session", n.Session),
				zap.String("action", string(n.Key)))
		}
	}
}

// Subscribe registers a subscriber for session
func (h *Hub) Subscribe(session string) (string, <-chan actionstate.Notification) {
	h.mu.Lock()
	defer h.mu.Unlock()

	id := uuid.NewString()
	ch := make(chan actionstate.Notification, subscriberBuffer)
	h.subscribers[id] = &subscriber{session: session, ch: ch}
	return id, ch
}

// Unsubscribe removes a subscriber and closes its channel
func (h *Hub) Unsubscribe(id string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if sub, ok := h.subscribers[id]; ok {
		close(sub.ch)
		delete(h.subscribers, id)
	}
}

// Subscribers returns the number of live subscribers
func (h *Hub) Subscribers() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subscribers)
}

// ServeWS upgrades the request and streams the notifications of session as
// JSON text frames until the client goes away.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request, session string) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	id, ch := h.Subscribe(session)
	defer h.Unsubscribe(id)

	h.logger.Debug("notification subscriber connected",
		zap.String("subscriber_id", id),
		zap.String("session", session))

	// The client never sends data; reading surfaces close frames and resets.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
					h.logger.Debug("notification subscriber read error", zap.Error(err))
				}
				return
			}
		}
	}()

	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case <-r.Context().Done():
			return
		case n := <-ch:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(n); err != nil {
				h.logger.Debug("notification write failed", zap.Error(err))
				return
			}
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				return
			}
		}
	}
}
