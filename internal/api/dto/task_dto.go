package dto

import (
	"time"

	"github.com/spec-kit/task-service/internal/domain"
)

// CreateTaskRequest payload.
type CreateTaskRequest struct {
	Title       string              `json:"title"`
	Description string              `json:"description"`
	DueDate     *time.Time          `json:"dueDate"`
	Priority    domain.TaskPriority `json:"priority"`
	Status      domain.TaskStatus   `json:"status"`
	AssignedTo  string              `json:"assignedTo"`
}

// UpdateTaskRequest payload; absent fields are left untouched.
type UpdateTaskRequest struct {
	Title       *string              `json:"title"`
	Description *string              `json:"description"`
	DueDate     *time.Time           `json:"dueDate"`
	Priority    *domain.TaskPriority `json:"priority"`
	Status      *domain.TaskStatus   `json:"status"`
}

// AssignTaskRequest payload.
type AssignTaskRequest struct {
	AssignedTo string `json:"assignedTo"`
}

// UserRef is the display-only projection of a referenced user. It is built
// from the directory for responses and never flows back into permission
// checks.
type UserRef struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// TaskResponse is the wire form of a task. AssignedTo and CreatedBy carry
// plain identifiers; Assignee and Creator are optional expansions.
type TaskResponse struct {
	ID          string              `json:"id"`
	Title       string              `json:"title"`
	Description string              `json:"description"`
	DueDate     time.Time           `json:"dueDate"`
	Priority    domain.TaskPriority `json:"priority"`
	Status      domain.TaskStatus   `json:"status"`
	AssignedTo  string              `json:"assignedTo"`
	CreatedBy   string              `json:"createdBy"`
	Assignee    *UserRef            `json:"assignee,omitempty"`
	Creator     *UserRef            `json:"creator,omitempty"`
	CreatedAt   time.Time           `json:"createdAt"`
	UpdatedAt   time.Time           `json:"updatedAt"`
}

// BulkDeleteResponse reports how many tasks were removed.
type BulkDeleteResponse struct {
	Message      string `json:"message"`
	DeletedCount int64  `json:"deletedCount"`
}

// UserTasksResponse groups a user's assigned tasks.
type UserTasksResponse struct {
	UserID string         `json:"userId"`
	Tasks  []TaskResponse `json:"tasks"`
}
