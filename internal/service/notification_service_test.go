package service

import (
	"context"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/task-service/internal/domain"
	"github.com/spec-kit/task-service/internal/events"
)

type delivery struct {
	userID       string
	notification domain.Notification
}

type fakePusher struct {
	deliveries []delivery
}

func (p *fakePusher) SendToUser(userID string, notification domain.Notification) {
	p.deliveries = append(p.deliveries, delivery{userID: userID, notification: notification})
}

func (p *fakePusher) SendToUsers(userIDs []string, notification domain.Notification) {
	for _, id := range userIDs {
		p.SendToUser(id, notification)
	}
}

func (p *fakePusher) to(userID string) []domain.Notification {
	var out []domain.Notification
	for _, d := range p.deliveries {
		if d.userID == userID {
			out = append(out, d.notification)
		}
	}
	return out
}

func newNotificationFixture() (events.Dispatcher, *fakePusher) {
	dispatcher := events.NewInMemoryDispatcher()
	pusher := &fakePusher{}
	NewNotificationService(dispatcher, pusher, zap.NewNop()).RegisterHandlers()
	return dispatcher, pusher
}

func publish(t *testing.T, dispatcher events.Dispatcher, event events.Event) {
	t.Helper()
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	if err := dispatcher.Publish(context.Background(), event); err != nil {
		t.Fatalf("Publish failed: %v", err)
	}
}

func TestNotifyAssigned_TargetsAssignee(t *testing.T) {
	dispatcher, pusher := newNotificationFixture()

	publish(t, dispatcher, events.Event{
		Type:      events.EventTaskAssigned,
		TaskID:    "t1",
		TaskTitle: "Ship release",
		Actor:     events.Actor{ID: "m1", Name: "Mira"},
		Payload:   events.TaskAssignedPayload{AssigneeID: "u1"},
	})

	got := pusher.to("u1")
	if len(got) != 1 {
		t.Fatalf("deliveries to u1 = %d, want 1", len(got))
	}
	n := got[0]
	if n.Type != domain.NotificationTaskAssigned {
		t.Errorf("Type = %s, want TASK_ASSIGNED", n.Type)
	}
	if want := `You have been assigned a new task: "Ship release" by Mira`; n.Message != want {
		t.Errorf("Message = %q, want %q", n.Message, want)
	}
	if n.AssignedBy != "m1" || n.AssignedTo != "u1" {
		t.Errorf("assignment fields = %s/%s, want m1/u1", n.AssignedBy, n.AssignedTo)
	}
	if len(pusher.to("m1")) != 0 {
		t.Error("actor must not be notified")
	}
}

func TestNotifyReassigned_PreviousAssigneeInformed(t *testing.T) {
	dispatcher, pusher := newNotificationFixture()

	publish(t, dispatcher, events.Event{
		Type:      events.EventTaskAssigned,
		TaskID:    "t1",
		TaskTitle: "Handover",
		Actor:     events.Actor{ID: "m1", Name: "Mira"},
		Payload: events.TaskAssignedPayload{
			AssigneeID:         "u2",
			PreviousAssigneeID: "u1",
			Reassignment:       true,
		},
	})

	newSide := pusher.to("u2")
	if len(newSide) != 1 || newSide[0].Type != domain.NotificationTaskAssigned {
		t.Fatalf("new assignee deliveries = %+v, want one TASK_ASSIGNED", newSide)
	}
	if want := `You have been assigned task: "Handover" by Mira`; newSide[0].Message != want {
		t.Errorf("Message = %q, want %q", newSide[0].Message, want)
	}

	oldSide := pusher.to("u1")
	if len(oldSide) != 1 || oldSide[0].Type != domain.NotificationTaskUpdated {
		t.Fatalf("previous assignee deliveries = %+v, want one TASK_UPDATED", oldSide)
	}
	if !strings.Contains(oldSide[0].Message, "reassigned to another user by Mira") {
		t.Errorf("Message = %q, want reassigned-away notice", oldSide[0].Message)
	}
}

func TestNotifyUpdated_ActorExcludedAndDeduplicated(t *testing.T) {
	dispatcher, pusher := newNotificationFixture()

	publish(t, dispatcher, events.Event{
		Type:      events.EventTaskUpdated,
		TaskID:    "t1",
		TaskTitle: "Ship release",
		Actor:     events.Actor{ID: "u1", Name: "Alice"},
		Payload: events.TaskUpdatedPayload{
			AssignedTo: "u1",
			CreatedBy:  "m1",
			Changes:    []string{"status", "priority"},
		},
	})

	if len(pusher.to("u1")) != 0 {
		t.Error("updating user must not be notified")
	}
	got := pusher.to("m1")
	if len(got) != 1 {
		t.Fatalf("deliveries to creator = %d, want 1", len(got))
	}
	if want := `Task "Ship release" has been updated by Alice. Changes: status, priority`; got[0].Message != want {
		t.Errorf("Message = %q, want %q", got[0].Message, want)
	}

	// Same user on both sides of the task: one delivery, not two.
	pusher.deliveries = nil
	publish(t, dispatcher, events.Event{
		Type:      events.EventTaskUpdated,
		TaskID:    "t2",
		TaskTitle: "Solo",
		Actor:     events.Actor{ID: "m1", Name: "Mira"},
		Payload:   events.TaskUpdatedPayload{AssignedTo: "u1", CreatedBy: "u1", Changes: []string{"title"}},
	})
	if len(pusher.to("u1")) != 1 {
		t.Errorf("deliveries = %d, want 1 after dedupe", len(pusher.to("u1")))
	}
}

func TestNotifyCompleted_SkipsSelfCompletion(t *testing.T) {
	dispatcher, pusher := newNotificationFixture()

	publish(t, dispatcher, events.Event{
		Type:      events.EventTaskCompleted,
		TaskID:    "t1",
		TaskTitle: "Done by creator",
		Actor:     events.Actor{ID: "m1", Name: "Mira"},
		Payload:   events.TaskCompletedPayload{CreatedBy: "m1"},
	})
	if len(pusher.deliveries) != 0 {
		t.Fatal("creator completing own task should notify nobody")
	}

	publish(t, dispatcher, events.Event{
		Type:      events.EventTaskCompleted,
		TaskID:    "t2",
		TaskTitle: "Done by assignee",
		Actor:     events.Actor{ID: "u1", Name: "Alice"},
		Payload:   events.TaskCompletedPayload{CreatedBy: "m1"},
	})
	got := pusher.to("m1")
	if len(got) != 1 {
		t.Fatalf("deliveries to creator = %d, want 1", len(got))
	}
	if want := `Task "Done by assignee" has been completed by Alice`; got[0].Message != want {
		t.Errorf("Message = %q, want %q", got[0].Message, want)
	}
}

func TestNotifyDeleted_AffectedMinusRemover(t *testing.T) {
	dispatcher, pusher := newNotificationFixture()

	publish(t, dispatcher, events.Event{
		Type:      events.EventTaskDeleted,
		TaskID:    "t1",
		TaskTitle: "Gone",
		Actor:     events.Actor{ID: "m1", Name: "Mira"},
		Payload:   events.TaskDeletedPayload{AssignedTo: "u1", CreatedBy: "m1"},
	})

	if len(pusher.to("m1")) != 0 {
		t.Error("remover must not be notified")
	}
	got := pusher.to("u1")
	if len(got) != 1 || got[0].Type != domain.NotificationTaskDeleted {
		t.Fatalf("deliveries to assignee = %+v, want one TASK_DELETED", got)
	}
	if want := `Task "Gone" has been deleted by Mira`; got[0].Message != want {
		t.Errorf("Message = %q, want %q", got[0].Message, want)
	}
}

func TestRecipientsExcluding(t *testing.T) {
	got := recipientsExcluding([]string{"u1", "u1", "", "m1", "u2"}, "m1")
	if len(got) != 2 || got[0] != "u1" || got[1] != "u2" {
		t.Errorf("recipients = %v, want [u1 u2]", got)
	}
}
