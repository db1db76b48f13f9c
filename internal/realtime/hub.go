// Package realtime owns the live-connection registry. No other component
// reads or writes the registry directly; everything goes through Hub's
// methods. The registry is process-local and rebuilt empty on restart, so
// clients must re-join after a reconnect.
package realtime

import (
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/task-service/internal/domain"
)

// Conn is the minimal surface the hub needs from a websocket connection.
type Conn interface {
	WriteJSON(v interface{}) error
	Close() error
}

// Session tracks one connection through its lifecycle:
// connected (unauthenticated) -> joined (bound to a user) -> gone.
type Session struct {
	conn    Conn
	userID  string
	writeMu sync.Mutex
}

// writeJSON serializes all hub-side writes to the connection. The underlying
// websocket conn permits only a single writer at a time; concurrent sends and
// the joined ack on the read-loop goroutine all funnel through here.
func (s *Session) writeJSON(v interface{}) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	return s.conn.WriteJSON(v)
}

// Envelope frames every outbound message.
type Envelope struct {
	Event string      `json:"event"`
	Data  interface{} `json:"data"`
}

type joinedAck struct {
	Message string `json:"message"`
	UserID  string `json:"userId"`
}

// Hub maps user ids to their live sessions and delivers notifications.
// A user may hold several simultaneous connections; sends reach all of
// them. Missing recipients are dropped silently, never queued.
type Hub struct {
	mu       sync.RWMutex
	logger   *zap.Logger
	sessions map[*Session]struct{}
	users    map[string]map[*Session]struct{}
}

// NewHub creates an empty hub.
func NewHub(logger *zap.Logger) *Hub {
	return &Hub{
		logger:   logger,
		sessions: make(map[*Session]struct{}),
		users:    make(map[string]map[*Session]struct{}),
	}
}

// Register admits a new connection with no user binding yet.
func (h *Hub) Register(conn Conn) *Session {
	sess := &Session{conn: conn}
	h.mu.Lock()
	h.sessions[sess] = struct{}{}
	h.mu.Unlock()
	h.logger.Debug("client connected", zap.Int("sessions", h.sessionCount()))
	return sess
}

// Unregister removes the connection entirely. Other sessions of the same
// user keep that user online.
func (h *Hub) Unregister(sess *Session) {
	h.mu.Lock()
	delete(h.sessions, sess)
	h.dropUserBinding(sess)
	h.mu.Unlock()
	h.logger.Debug("client disconnected")
}

// Join binds the session to a user id and acknowledges with a joined event.
func (h *Hub) Join(sess *Session, userID string) {
	if userID == "" {
		return
	}
	h.mu.Lock()
	if _, tracked := h.sessions[sess]; !tracked {
		h.mu.Unlock()
		return
	}
	h.dropUserBinding(sess)
	sess.userID = userID
	if h.users[userID] == nil {
		h.users[userID] = make(map[*Session]struct{})
	}
	h.users[userID][sess] = struct{}{}
	h.mu.Unlock()

	h.logger.Info("user joined notifications", zap.String("user_id", userID))
	if err := sess.writeJSON(Envelope{
		Event: "joined",
		Data:  joinedAck{Message: "Successfully joined notifications", UserID: userID},
	}); err != nil {
		h.logger.Warn("joined ack failed", zap.String("user_id", userID), zap.Error(err))
	}
}

// Leave unbinds the session from its user without closing the connection.
func (h *Hub) Leave(sess *Session) {
	h.mu.Lock()
	userID := sess.userID
	h.dropUserBinding(sess)
	h.mu.Unlock()
	if userID != "" {
		h.logger.Info("user left notifications", zap.String("user_id", userID))
	}
}

// SendToUser delivers to every session joined under userID. A user with no
// sessions is a silent no-op. A write failure on one session does not stop
// delivery to the others.
func (h *Hub) SendToUser(userID string, notification domain.Notification) {
	if notification.Timestamp.IsZero() {
		notification.Timestamp = time.Now()
	}
	h.mu.RLock()
	targets := make([]*Session, 0, len(h.users[userID]))
	for sess := range h.users[userID] {
		targets = append(targets, sess)
	}
	h.mu.RUnlock()

	if len(targets) == 0 {
		h.logger.Debug("recipient offline, notification dropped",
			zap.String("user_id", userID),
			zap.String("type", string(notification.Type)))
		return
	}

	envelope := Envelope{Event: "taskNotification", Data: notification}
	for _, sess := range targets {
		if err := sess.writeJSON(envelope); err != nil {
			h.logger.Warn("notification delivery failed",
				zap.String("user_id", userID), zap.Error(err))
		}
	}
	h.logger.Debug("notification sent",
		zap.String("user_id", userID),
		zap.String("type", string(notification.Type)))
}

// SendToUsers applies SendToUser per id.
func (h *Hub) SendToUsers(userIDs []string, notification domain.Notification) {
	for _, id := range userIDs {
		h.SendToUser(id, notification)
	}
}

// Broadcast delivers to every connected session regardless of join state.
func (h *Hub) Broadcast(notification domain.Notification) {
	if notification.Timestamp.IsZero() {
		notification.Timestamp = time.Now()
	}
	h.mu.RLock()
	targets := make([]*Session, 0, len(h.sessions))
	for sess := range h.sessions {
		targets = append(targets, sess)
	}
	h.mu.RUnlock()

	envelope := Envelope{Event: "taskNotification", Data: notification}
	for _, sess := range targets {
		if err := sess.writeJSON(envelope); err != nil {
			h.logger.Warn("broadcast delivery failed", zap.Error(err))
		}
	}
}

// IsOnline reports whether the user has at least one joined session.
func (h *Hub) IsOnline(userID string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.users[userID]) > 0
}

// ConnectedCount returns the number of distinct joined users.
func (h *Hub) ConnectedCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.users)
}

// dropUserBinding removes the session from the user index. Caller holds mu.
func (h *Hub) dropUserBinding(sess *Session) {
	if sess.userID == "" {
		return
	}
	if set, ok := h.users[sess.userID]; ok {
		delete(set, sess)
		if len(set) == 0 {
			delete(h.users, sess.userID)
		}
	}
	sess.userID = ""
}

func (h *Hub) sessionCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.sessions)
}
