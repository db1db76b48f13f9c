package handlers

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/task-service/internal/api/dto"
	"github.com/spec-kit/task-service/internal/auth"
	"github.com/spec-kit/task-service/internal/domain"
	"github.com/spec-kit/task-service/internal/repository"
	"github.com/spec-kit/task-service/internal/service"
	apperrors "github.com/spec-kit/task-service/pkg/util"
)

// TasksHandler manages task endpoints.
type TasksHandler struct {
	service *service.TaskService
	users   repository.UserRepository
}

// NewTasksHandler constructs handler.
func NewTasksHandler(taskService *service.TaskService, users repository.UserRepository) *TasksHandler {
	return &TasksHandler{service: taskService, users: users}
}

// Create POST /tasks.
func (h *TasksHandler) Create(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	var req dto.CreateTaskRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if strings.TrimSpace(req.Title) == "" || strings.TrimSpace(req.Description) == "" {
		return apperrors.NewValidationError("title and description required", nil)
	}
	if req.DueDate == nil {
		return apperrors.NewValidationError("dueDate required", nil)
	}

	input := service.TaskCreateInput{
		Title:       req.Title,
		Description: req.Description,
		DueDate:     *req.DueDate,
		Priority:    req.Priority,
		Status:      req.Status,
		AssignedTo:  req.AssignedTo,
	}
	task, err := h.service.Create(c.Context(), input, principal)
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": taskResponse(task)})
}

// List GET /tasks.
func (h *TasksHandler) List(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	tasks, err := h.service.List(c.Context(), parseTaskQuery(c), principal)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": taskResponses(tasks)})
}

// Stats GET /tasks/stats.
func (h *TasksHandler) Stats(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	stats, err := h.service.Stats(c.Context(), principal)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": stats})
}

// MyTasks GET /tasks/my-tasks.
func (h *TasksHandler) MyTasks(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	tasks, err := h.service.ListMine(c.Context(), principal)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": taskResponses(tasks)})
}

// UsersWithTasks GET /tasks/user.
func (h *TasksHandler) UsersWithTasks(c *fiber.Ctx) error {
	groups, err := h.service.UsersWithTasks(c.Context())
	if err != nil {
		return err
	}
	items := make([]dto.UserTasksResponse, 0, len(groups))
	for _, group := range groups {
		items = append(items, dto.UserTasksResponse{
			UserID: group.UserID,
			Tasks:  taskResponses(group.Tasks),
		})
	}
	return c.JSON(fiber.Map{"data": items})
}

// TasksByUser GET /tasks/user/:userId.
func (h *TasksHandler) TasksByUser(c *fiber.Ctx) error {
	tasks, err := h.service.ListByUser(c.Context(), c.Params("userId"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": taskResponses(tasks)})
}

// Get GET /tasks/:id.
func (h *TasksHandler) Get(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	task, err := h.service.GetByID(c.Context(), c.Params("id"), principal)
	if err != nil {
		return err
	}
	resp := taskResponse(task)
	h.expandUserRefs(c, &resp)
	return c.JSON(fiber.Map{"data": resp})
}

// Update PATCH /tasks/:id.
func (h *TasksHandler) Update(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	var req dto.UpdateTaskRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	patch := domain.TaskPatch{
		Title:       req.Title,
		Description: req.Description,
		DueDate:     req.DueDate,
		Priority:    req.Priority,
		Status:      req.Status,
	}
	task, err := h.service.Update(c.Context(), c.Params("id"), patch, principal)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": taskResponse(task)})
}

// Assign PATCH /tasks/:id/assign.
func (h *TasksHandler) Assign(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	var req dto.AssignTaskRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if req.AssignedTo == "" {
		return apperrors.NewValidationError("assignedTo required", nil)
	}
	task, err := h.service.Assign(c.Context(), c.Params("id"), req.AssignedTo, principal)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": taskResponse(task)})
}

// Delete DELETE /tasks/:id.
func (h *TasksHandler) Delete(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	if err := h.service.Remove(c.Context(), c.Params("id"), principal); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": fiber.Map{"message": "Task deleted successfully"}})
}

// BulkDelete DELETE /tasks/bulk/:ids with comma-separated ids.
func (h *TasksHandler) BulkDelete(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	var ids []string
	for _, part := range strings.Split(c.Params("ids"), ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			ids = append(ids, trimmed)
		}
	}
	count, err := h.service.BulkRemove(c.Context(), ids, principal)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.BulkDeleteResponse{
		Message:      fmt.Sprintf("%d tasks deleted successfully", count),
		DeletedCount: count,
	}})
}

// expandUserRefs decorates a detail response with assignee/creator records.
// Lookup failures leave the plain ids in place.
func (h *TasksHandler) expandUserRefs(c *fiber.Ctx, resp *dto.TaskResponse) {
	if user, err := h.users.GetByID(c.Context(), resp.AssignedTo); err == nil {
		resp.Assignee = &dto.UserRef{ID: user.ID, Name: user.Name, Email: user.Email}
	}
	if resp.CreatedBy == resp.AssignedTo && resp.Assignee != nil {
		resp.Creator = resp.Assignee
		return
	}
	if user, err := h.users.GetByID(c.Context(), resp.CreatedBy); err == nil {
		resp.Creator = &dto.UserRef{ID: user.ID, Name: user.Name, Email: user.Email}
	}
}

func parseTaskQuery(c *fiber.Ctx) service.TaskListFilter {
	filter := service.TaskListFilter{}
	if statusStr := c.Query("status"); statusStr != "" {
		status := domain.TaskStatus(strings.TrimSpace(statusStr))
		filter.Status = &status
	}
	if priorityStr := c.Query("priority"); priorityStr != "" {
		priority := domain.TaskPriority(strings.TrimSpace(priorityStr))
		filter.Priority = &priority
	}
	if createdBy := c.Query("createdBy"); createdBy != "" {
		filter.CreatedBy = &createdBy
	}
	if assignedTo := c.Query("assignedTo"); assignedTo != "" {
		filter.AssignedTo = &assignedTo
	}
	return filter
}

func taskResponse(task *domain.Task) dto.TaskResponse {
	return dto.TaskResponse{
		ID:          task.ID,
		Title:       task.Title,
		Description: task.Description,
		DueDate:     task.DueDate,
		Priority:    task.Priority,
		Status:      task.Status,
		AssignedTo:  task.AssignedTo,
		CreatedBy:   task.CreatedBy,
		CreatedAt:   task.CreatedAt,
		UpdatedAt:   task.UpdatedAt,
	}
}

func taskResponses(tasks []domain.Task) []dto.TaskResponse {
	items := make([]dto.TaskResponse, 0, len(tasks))
	for i := range tasks {
		items = append(items, taskResponse(&tasks[i]))
	}
	return items
}
