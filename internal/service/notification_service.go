package service

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/spec-kit/task-service/internal/domain"
	"github.com/spec-kit/task-service/internal/events"
)

// Pusher is the outbound side of the notification pipeline, implemented by
// the realtime hub. Deliveries are best-effort and never return errors.
type Pusher interface {
	SendToUser(userID string, notification domain.Notification)
	SendToUsers(userIDs []string, notification domain.Notification)
}

// NotificationService translates task events into notifications and decides
// who receives them. The actor behind a mutation is never notified about it.
type NotificationService struct {
	dispatcher events.Dispatcher
	pusher     Pusher
	logger     *zap.Logger
}

// NewNotificationService creates the service.
func NewNotificationService(dispatcher events.Dispatcher, pusher Pusher, logger *zap.Logger) *NotificationService {
	return &NotificationService{
		dispatcher: dispatcher,
		pusher:     pusher,
		logger:     logger,
	}
}

// RegisterHandlers subscribes to task events.
func (n *NotificationService) RegisterHandlers() {
	if n.dispatcher == nil {
		return
	}
	n.dispatcher.Subscribe(events.EventTaskAssigned, n.handleTaskAssigned)
	n.dispatcher.Subscribe(events.EventTaskUpdated, n.handleTaskUpdated)
	n.dispatcher.Subscribe(events.EventTaskCompleted, n.handleTaskCompleted)
	n.dispatcher.Subscribe(events.EventTaskDeleted, n.handleTaskDeleted)
}

func (n *NotificationService) handleTaskAssigned(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.TaskAssignedPayload)
	if !ok {
		return nil
	}

	message := fmt.Sprintf("You have been assigned a new task: %q by %s", event.TaskTitle, event.Actor.Name)
	if payload.Reassignment {
		message = fmt.Sprintf("You have been assigned task: %q by %s", event.TaskTitle, event.Actor.Name)
	}
	n.pusher.SendToUser(payload.AssigneeID, domain.Notification{
		Type:       domain.NotificationTaskAssigned,
		TaskID:     event.TaskID,
		TaskTitle:  event.TaskTitle,
		Message:    message,
		AssignedTo: payload.AssigneeID,
		AssignedBy: event.Actor.ID,
		Timestamp:  event.Timestamp,
	})
	n.logger.Info("task assignment notification sent",
		zap.String("task_id", event.TaskID),
		zap.String("assignee_id", payload.AssigneeID))

	if payload.PreviousAssigneeID != "" && payload.PreviousAssigneeID != payload.AssigneeID {
		n.pusher.SendToUser(payload.PreviousAssigneeID, domain.Notification{
			Type:      domain.NotificationTaskUpdated,
			TaskID:    event.TaskID,
			TaskTitle: event.TaskTitle,
			Message:   fmt.Sprintf("Task %q has been reassigned to another user by %s", event.TaskTitle, event.Actor.Name),
			Timestamp: event.Timestamp,
		})
	}
	return nil
}

func (n *NotificationService) handleTaskUpdated(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.TaskUpdatedPayload)
	if !ok {
		return nil
	}

	recipients := recipientsExcluding([]string{payload.AssignedTo, payload.CreatedBy}, event.Actor.ID)
	if len(recipients) == 0 {
		return nil
	}
	n.pusher.SendToUsers(recipients, domain.Notification{
		Type:      domain.NotificationTaskUpdated,
		TaskID:    event.TaskID,
		TaskTitle: event.TaskTitle,
		Message: fmt.Sprintf("Task %q has been updated by %s. Changes: %s",
			event.TaskTitle, event.Actor.Name, strings.Join(payload.Changes, ", ")),
		Timestamp: event.Timestamp,
	})
	n.logger.Info("task update notification sent",
		zap.String("task_id", event.TaskID),
		zap.Int("recipients", len(recipients)))
	return nil
}

func (n *NotificationService) handleTaskCompleted(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.TaskCompletedPayload)
	if !ok {
		return nil
	}
	if payload.CreatedBy == "" || payload.CreatedBy == event.Actor.ID {
		return nil
	}
	n.pusher.SendToUser(payload.CreatedBy, domain.Notification{
		Type:      domain.NotificationTaskCompleted,
		TaskID:    event.TaskID,
		TaskTitle: event.TaskTitle,
		Message:   fmt.Sprintf("Task %q has been completed by %s", event.TaskTitle, event.Actor.Name),
		Timestamp: event.Timestamp,
	})
	n.logger.Info("task completion notification sent", zap.String("task_id", event.TaskID))
	return nil
}

func (n *NotificationService) handleTaskDeleted(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.TaskDeletedPayload)
	if !ok {
		return nil
	}
	recipients := recipientsExcluding([]string{payload.AssignedTo, payload.CreatedBy}, event.Actor.ID)
	if len(recipients) == 0 {
		return nil
	}
	n.pusher.SendToUsers(recipients, domain.Notification{
		Type:      domain.NotificationTaskDeleted,
		TaskID:    event.TaskID,
		TaskTitle: event.TaskTitle,
		Message:   fmt.Sprintf("Task %q has been deleted by %s", event.TaskTitle, event.Actor.Name),
		Timestamp: event.Timestamp,
	})
	n.logger.Info("task deletion notification sent",
		zap.String("task_id", event.TaskID),
		zap.Int("recipients", len(recipients)))
	return nil
}

// recipientsExcluding deduplicates candidate ids and removes the actor.
func recipientsExcluding(candidates []string, actorID string) []string {
	seen := make(map[string]struct{}, len(candidates))
	var result []string
	for _, id := range candidates {
		if id == "" || id == actorID {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		result = append(result, id)
	}
	return result
}
