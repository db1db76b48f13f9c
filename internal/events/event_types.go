package events

import "time"

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventTaskAssigned  EventType = "task_assigned"
	EventTaskUpdated   EventType = "task_updated"
	EventTaskCompleted EventType = "task_completed"
	EventTaskDeleted   EventType = "task_deleted"
)

// Actor identifies who triggered the event. The name rides along so
// notification messages can be rendered without another directory lookup.
type Actor struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Event represents a domain event emitted by services after the primary
// mutation has been persisted. Handlers run best-effort; their failures
// never surface to the publisher.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	TaskID    string      `json:"task_id"`
	TaskTitle string      `json:"task_title"`
	Actor     Actor       `json:"actor"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// TaskAssignedPayload payload. PreviousAssigneeID is empty on first
// assignment at creation time.
type TaskAssignedPayload struct {
	AssigneeID         string `json:"assignee_id"`
	PreviousAssigneeID string `json:"previous_assignee_id,omitempty"`
	Reassignment       bool   `json:"reassignment"`
}

// TaskUpdatedPayload payload. Changes holds human-readable field tags.
type TaskUpdatedPayload struct {
	AssignedTo string   `json:"assigned_to"`
	CreatedBy  string   `json:"created_by"`
	Changes    []string `json:"changes"`
}

// TaskCompletedPayload payload.
type TaskCompletedPayload struct {
	CreatedBy string `json:"created_by"`
}

// TaskDeletedPayload payload.
type TaskDeletedPayload struct {
	AssignedTo string `json:"assigned_to"`
	CreatedBy  string `json:"created_by"`
}
