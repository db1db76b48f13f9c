package realtime

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/task-service/internal/domain"
)

// fakeConn mimics the single-writer contract of a real websocket connection:
// it deliberately holds no lock of its own and flags any two WriteJSON calls
// that overlap in time, the situation under which the real conn panics.
type fakeConn struct {
	writes     []Envelope
	failNext   bool
	closed     bool
	active     int32
	overlapped int32
}

func (c *fakeConn) WriteJSON(v interface{}) error {
	if atomic.AddInt32(&c.active, 1) > 1 {
		atomic.StoreInt32(&c.overlapped, 1)
	}
	defer atomic.AddInt32(&c.active, -1)
	time.Sleep(100 * time.Microsecond)

	if c.failNext {
		return errors.New("write failed")
	}
	c.writes = append(c.writes, v.(Envelope))
	return nil
}

func (c *fakeConn) Close() error {
	c.closed = true
	return nil
}

func (c *fakeConn) sawOverlap() bool {
	return atomic.LoadInt32(&c.overlapped) != 0
}

func (c *fakeConn) received() []Envelope {
	return append([]Envelope{}, c.writes...)
}

func notificationsOf(conn *fakeConn) []domain.Notification {
	var out []domain.Notification
	for _, env := range conn.received() {
		if env.Event == "taskNotification" {
			out = append(out, env.Data.(domain.Notification))
		}
	}
	return out
}

func joinUser(hub *Hub, userID string) (*Session, *fakeConn) {
	conn := &fakeConn{}
	sess := hub.Register(conn)
	hub.Join(sess, userID)
	return sess, conn
}

func TestJoin_AcknowledgesAndTracks(t *testing.T) {
	hub := NewHub(zap.NewNop())
	_, conn := joinUser(hub, "u1")

	got := conn.received()
	if len(got) != 1 || got[0].Event != "joined" {
		t.Fatalf("writes = %+v, want one joined ack", got)
	}
	ack := got[0].Data.(joinedAck)
	if ack.UserID != "u1" {
		t.Errorf("ack userId = %s, want u1", ack.UserID)
	}
	if !hub.IsOnline("u1") {
		t.Error("user should be online after join")
	}
	if hub.ConnectedCount() != 1 {
		t.Errorf("ConnectedCount = %d, want 1", hub.ConnectedCount())
	}
}

func TestJoin_EmptyUserIgnored(t *testing.T) {
	hub := NewHub(zap.NewNop())
	conn := &fakeConn{}
	sess := hub.Register(conn)

	hub.Join(sess, "")
	if len(conn.received()) != 0 {
		t.Error("empty join should not acknowledge")
	}
	if hub.ConnectedCount() != 0 {
		t.Error("empty join should not bind a user")
	}
}

func TestSendToUser_ReachesAllSessions(t *testing.T) {
	hub := NewHub(zap.NewNop())
	_, first := joinUser(hub, "u1")
	_, second := joinUser(hub, "u1")
	_, other := joinUser(hub, "u2")

	hub.SendToUser("u1", domain.Notification{Type: domain.NotificationTaskAssigned, TaskID: "t1"})

	for i, conn := range []*fakeConn{first, second} {
		got := notificationsOf(conn)
		if len(got) != 1 || got[0].TaskID != "t1" {
			t.Errorf("session %d notifications = %+v, want one for t1", i, got)
		}
		if got[0].Timestamp.IsZero() {
			t.Errorf("session %d notification missing timestamp", i)
		}
	}
	if len(notificationsOf(other)) != 0 {
		t.Error("other user must not receive the notification")
	}
}

func TestSendToUser_OfflineIsSilentDrop(t *testing.T) {
	hub := NewHub(zap.NewNop())
	// No sessions at all; must not panic or block.
	hub.SendToUser("ghost", domain.Notification{Type: domain.NotificationTaskUpdated})
}

func TestSendToUser_FailingConnDoesNotBlockOthers(t *testing.T) {
	hub := NewHub(zap.NewNop())
	_, broken := joinUser(hub, "u1")
	_, healthy := joinUser(hub, "u1")
	broken.failNext = true

	hub.SendToUser("u1", domain.Notification{Type: domain.NotificationTaskDeleted, TaskID: "t9"})

	if got := notificationsOf(healthy); len(got) != 1 {
		t.Fatalf("healthy session notifications = %d, want 1", len(got))
	}
}

func TestLeave_StopsDeliveryButKeepsConnection(t *testing.T) {
	hub := NewHub(zap.NewNop())
	sess, conn := joinUser(hub, "u1")

	hub.Leave(sess)
	if hub.IsOnline("u1") {
		t.Error("user should be offline after leave")
	}
	hub.SendToUser("u1", domain.Notification{Type: domain.NotificationTaskUpdated})
	if len(notificationsOf(conn)) != 0 {
		t.Error("left session must not receive notifications")
	}
	if conn.closed {
		t.Error("leave must not close the connection")
	}
}

func TestUnregister_LastSessionTakesUserOffline(t *testing.T) {
	hub := NewHub(zap.NewNop())
	first, _ := joinUser(hub, "u1")
	second, _ := joinUser(hub, "u1")

	hub.Unregister(first)
	if !hub.IsOnline("u1") {
		t.Fatal("remaining session should keep user online")
	}
	hub.Unregister(second)
	if hub.IsOnline("u1") {
		t.Error("user should be offline after last session unregisters")
	}
}

func TestRejoin_MovesBinding(t *testing.T) {
	hub := NewHub(zap.NewNop())
	sess, conn := joinUser(hub, "u1")

	// Joining again under a different id moves the session.
	hub.Join(sess, "u2")
	if hub.IsOnline("u1") {
		t.Error("previous binding should be removed on rejoin")
	}
	if !hub.IsOnline("u2") {
		t.Error("session should be bound to the new user")
	}

	hub.SendToUser("u2", domain.Notification{Type: domain.NotificationTaskAssigned})
	if len(notificationsOf(conn)) != 1 {
		t.Error("rebound session should receive notifications for the new user")
	}
}

func TestBroadcast_ReachesUnjoinedSessions(t *testing.T) {
	hub := NewHub(zap.NewNop())
	pending := &fakeConn{}
	hub.Register(pending)
	_, joined := joinUser(hub, "u1")

	hub.Broadcast(domain.Notification{Type: domain.NotificationTaskUpdated, TaskID: "t1"})

	if len(notificationsOf(pending)) != 1 {
		t.Error("unjoined session should receive broadcasts")
	}
	if len(notificationsOf(joined)) != 1 {
		t.Error("joined session should receive broadcasts")
	}
}

func TestConcurrentSendsSerializedPerConnection(t *testing.T) {
	hub := NewHub(zap.NewNop())
	_, conn := joinUser(hub, "u1")

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			hub.SendToUser("u1", domain.Notification{Type: domain.NotificationTaskUpdated})
			hub.Broadcast(domain.Notification{Type: domain.NotificationTaskAssigned})
		}()
	}
	wg.Wait()

	if conn.sawOverlap() {
		t.Fatal("writes to a single connection overlapped")
	}
	if got := len(notificationsOf(conn)); got != 16 {
		t.Errorf("notifications = %d, want 16", got)
	}
}

func TestConcurrentJoinSendLeave(t *testing.T) {
	hub := NewHub(zap.NewNop())
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			sess, _ := joinUser(hub, "u1")
			hub.SendToUser("u1", domain.Notification{Type: domain.NotificationTaskUpdated})
			hub.Unregister(sess)
		}()
	}
	wg.Wait()
	if hub.IsOnline("u1") {
		t.Error("all sessions unregistered; user should be offline")
	}
}
