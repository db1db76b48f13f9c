package domain

import "time"

// TaskStatus enumerates lifecycle states for tasks.
type TaskStatus string

const (
	TaskStatusPending    TaskStatus = "PENDING"
	TaskStatusInProgress TaskStatus = "IN_PROGRESS"
	TaskStatusCompleted  TaskStatus = "COMPLETED"
)

// TaskPriority enumerates urgency levels.
type TaskPriority string

const (
	TaskPriorityLow    TaskPriority = "LOW"
	TaskPriorityMedium TaskPriority = "MEDIUM"
	TaskPriorityHigh   TaskPriority = "HIGH"
)

// ValidStatus reports whether s is a known status value.
func ValidStatus(s TaskStatus) bool {
	switch s {
	case TaskStatusPending, TaskStatusInProgress, TaskStatusCompleted:
		return true
	}
	return false
}

// ValidPriority reports whether p is a known priority value.
func ValidPriority(p TaskPriority) bool {
	switch p {
	case TaskPriorityLow, TaskPriorityMedium, TaskPriorityHigh:
		return true
	}
	return false
}

// Task is the aggregate for work items. AssignedTo and CreatedBy always
// hold plain user identifiers; expanded user records are a display-only
// projection and never appear on this type.
type Task struct {
	ID          string
	Title       string
	Description string
	DueDate     time.Time
	Priority    TaskPriority
	Status      TaskStatus
	AssignedTo  string
	CreatedBy   string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// TaskPatch carries a partial update. Nil fields are left untouched.
type TaskPatch struct {
	Title       *string
	Description *string
	DueDate     *time.Time
	Priority    *TaskPriority
	Status      *TaskStatus
}

// IsZero reports whether the patch would touch nothing.
func (p TaskPatch) IsZero() bool {
	return p.Title == nil && p.Description == nil && p.DueDate == nil &&
		p.Priority == nil && p.Status == nil
}

// TaskStats summarizes task counts over a scoped query.
type TaskStats struct {
	Total    int64                `json:"total"`
	ByStatus map[TaskStatus]int64 `json:"byStatus"`
}
