package domain

import "time"

// NotificationType enumerates real-time notification kinds.
type NotificationType string

const (
	NotificationTaskAssigned  NotificationType = "TASK_ASSIGNED"
	NotificationTaskUpdated   NotificationType = "TASK_UPDATED"
	NotificationTaskCompleted NotificationType = "TASK_COMPLETED"
	NotificationTaskDeleted   NotificationType = "TASK_DELETED"
)

// Notification is the ephemeral payload pushed to connected clients. It is
// built at mutation time, handed to the dispatcher, and discarded after the
// delivery attempt; nothing is persisted or retried.
type Notification struct {
	Type       NotificationType `json:"type"`
	TaskID     string           `json:"taskId"`
	TaskTitle  string           `json:"taskTitle"`
	Message    string           `json:"message"`
	AssignedTo string           `json:"assignedTo,omitempty"`
	AssignedBy string           `json:"assignedBy,omitempty"`
	Timestamp  time.Time        `json:"timestamp"`
}
