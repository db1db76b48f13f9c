package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/task-service/internal/domain"
	"github.com/spec-kit/task-service/internal/events"
	"github.com/spec-kit/task-service/internal/policy"
	"github.com/spec-kit/task-service/internal/repository"
	apperrors "github.com/spec-kit/task-service/pkg/util"
)

// TaskService coordinates task workflows: policy enforcement, persistence,
// and post-commit event publication. Events are fire-and-forget; a mutation
// succeeds regardless of what happens to its notifications.
type TaskService struct {
	tasks      repository.TaskRepository
	users      repository.UserRepository
	dispatcher events.Dispatcher
	statsCache *StatsCache
}

// TaskDependencies bundles collaborators for the task service.
type TaskDependencies struct {
	TaskRepo   repository.TaskRepository
	UserRepo   repository.UserRepository
	Dispatcher events.Dispatcher
	StatsCache *StatsCache
}

// TaskCreateInput describes task creation payload.
type TaskCreateInput struct {
	Title       string
	Description string
	DueDate     time.Time
	Priority    domain.TaskPriority
	Status      domain.TaskStatus
	AssignedTo  string
}

// TaskListFilter describes optional listing filters, AND-composed with the
// requester's role scope.
type TaskListFilter struct {
	Status     *domain.TaskStatus
	Priority   *domain.TaskPriority
	CreatedBy  *string
	AssignedTo *string
}

// UserTasks groups a user's assigned tasks for the directory view.
type UserTasks struct {
	UserID string        `json:"userId"`
	Tasks  []domain.Task `json:"tasks"`
}

// NewTaskService constructs the service.
func NewTaskService(deps TaskDependencies) *TaskService {
	return &TaskService{
		tasks:      deps.TaskRepo,
		users:      deps.UserRepo,
		dispatcher: deps.Dispatcher,
		statsCache: deps.StatsCache,
	}
}

// Create persists a new task owned by creator. An assignee other than the
// creator gets a TASK_ASSIGNED notification.
func (s *TaskService) Create(ctx context.Context, input TaskCreateInput, creator *domain.User) (*domain.Task, error) {
	if !policy.CanCreate(creator) {
		return nil, apperrors.NewForbidden("insufficient role to create tasks")
	}

	task := &domain.Task{
		Title:       strings.TrimSpace(input.Title),
		Description: strings.TrimSpace(input.Description),
		DueDate:     input.DueDate,
		Priority:    input.Priority,
		Status:      input.Status,
		AssignedTo:  input.AssignedTo,
		CreatedBy:   creator.ID,
	}
	if task.Title == "" {
		return nil, apperrors.NewValidationError("title required", nil)
	}
	if task.Priority == "" {
		task.Priority = domain.TaskPriorityMedium
	}
	if task.Status == "" {
		task.Status = domain.TaskStatusPending
	}
	if !domain.ValidPriority(task.Priority) {
		return nil, apperrors.NewValidationError("invalid priority", map[string]any{"priority": task.Priority})
	}
	if !domain.ValidStatus(task.Status) {
		return nil, apperrors.NewValidationError("invalid status", map[string]any{"status": task.Status})
	}
	if task.AssignedTo == "" {
		task.AssignedTo = creator.ID
	}
	if task.AssignedTo != creator.ID {
		if _, err := s.users.GetByID(ctx, task.AssignedTo); err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return nil, apperrors.NewNotFound("user", map[string]any{"user_id": task.AssignedTo})
			}
			return nil, apperrors.MapError(err)
		}
	}

	if err := s.tasks.Create(ctx, task); err != nil {
		return nil, apperrors.MapError(err)
	}
	s.statsCache.Invalidate(ctx)

	if task.AssignedTo != creator.ID {
		s.publishEvent(ctx, events.Event{
			Type:      events.EventTaskAssigned,
			TaskID:    task.ID,
			TaskTitle: task.Title,
			Actor:     actorFor(creator),
			Payload: events.TaskAssignedPayload{
				AssigneeID: task.AssignedTo,
			},
		})
	}
	return task, nil
}

// List returns tasks visible to requester, AND-composing explicit filters
// with the role scope, sorted by due date ascending.
func (s *TaskService) List(ctx context.Context, filter TaskListFilter, requester *domain.User) ([]domain.Task, error) {
	repoFilter := repository.TaskFilter{
		Status:         filter.Status,
		Priority:       filter.Priority,
		CreatedBy:      filter.CreatedBy,
		AssignedTo:     filter.AssignedTo,
		InvolvedUserID: policy.Scope(requester),
	}
	tasks, err := s.tasks.ListWithFilter(ctx, repoFilter)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return tasks, nil
}

// ListMine returns tasks the requester is assigned to or created.
func (s *TaskService) ListMine(ctx context.Context, requester *domain.User) ([]domain.Task, error) {
	tasks, err := s.tasks.ListWithFilter(ctx, repository.TaskFilter{InvolvedUserID: &requester.ID})
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return tasks, nil
}

// ListByUser returns tasks a given user is involved in. Callers gate this
// to MANAGER/ADMIN.
func (s *TaskService) ListByUser(ctx context.Context, userID string) ([]domain.Task, error) {
	tasks, err := s.tasks.ListWithFilter(ctx, repository.TaskFilter{InvolvedUserID: &userID})
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return tasks, nil
}

// UsersWithTasks groups every user with the tasks assigned to them.
func (s *TaskService) UsersWithTasks(ctx context.Context) ([]UserTasks, error) {
	users, err := s.users.List(ctx)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	tasks, err := s.tasks.ListWithFilter(ctx, repository.TaskFilter{})
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	byAssignee := make(map[string][]domain.Task, len(users))
	for _, task := range tasks {
		byAssignee[task.AssignedTo] = append(byAssignee[task.AssignedTo], task)
	}
	result := make([]UserTasks, 0, len(users))
	for _, user := range users {
		result = append(result, UserTasks{UserID: user.ID, Tasks: byAssignee[user.ID]})
	}
	return result, nil
}

// GetByID fetches a task. Both a missing task and a task the requester may
// not read come back as NotFound.
func (s *TaskService) GetByID(ctx context.Context, id string, requester *domain.User) (*domain.Task, error) {
	task, err := s.loadTask(ctx, id)
	if err != nil {
		return nil, err
	}
	if !policy.CanRead(requester, task) {
		return nil, apperrors.NewNotFound("task", map[string]any{"task_id": id})
	}
	return task, nil
}

// Update applies a field-filtered patch and emits notifications for the
// semantic diff against the prior state. A patch producing no actual field
// change emits nothing.
func (s *TaskService) Update(ctx context.Context, id string, patch domain.TaskPatch, updater *domain.User) (*domain.Task, error) {
	prior, err := s.loadTask(ctx, id)
	if err != nil {
		return nil, err
	}
	if !policy.CanUpdate(updater, prior) {
		return nil, apperrors.NewNotFound("task", map[string]any{"task_id": id})
	}

	filtered := policy.FilterPatch(updater, patch)
	if filtered.Status != nil && !domain.ValidStatus(*filtered.Status) {
		return nil, apperrors.NewValidationError("invalid status", map[string]any{"status": *filtered.Status})
	}
	if filtered.Priority != nil && !domain.ValidPriority(*filtered.Priority) {
		return nil, apperrors.NewValidationError("invalid priority", map[string]any{"priority": *filtered.Priority})
	}
	if filtered.IsZero() {
		return prior, nil
	}

	updated := *prior
	applyPatch(&updated, filtered)
	changes := diffTasks(prior, &updated)
	if len(changes) == 0 {
		return prior, nil
	}

	if err := s.tasks.Update(ctx, &updated); err != nil {
		return nil, apperrors.MapError(err)
	}
	s.statsCache.Invalidate(ctx)

	s.publishEvent(ctx, events.Event{
		Type:      events.EventTaskUpdated,
		TaskID:    updated.ID,
		TaskTitle: updated.Title,
		Actor:     actorFor(updater),
		Payload: events.TaskUpdatedPayload{
			AssignedTo: updated.AssignedTo,
			CreatedBy:  updated.CreatedBy,
			Changes:    changes,
		},
	})
	if prior.Status != domain.TaskStatusCompleted && updated.Status == domain.TaskStatusCompleted {
		s.publishEvent(ctx, events.Event{
			Type:      events.EventTaskCompleted,
			TaskID:    updated.ID,
			TaskTitle: updated.Title,
			Actor:     actorFor(updater),
			Payload: events.TaskCompletedPayload{
				CreatedBy: updated.CreatedBy,
			},
		})
	}
	return &updated, nil
}

// Assign moves the task to a new assignee. The new assignee is notified;
// a displaced previous assignee gets a reassigned-away notice.
func (s *TaskService) Assign(ctx context.Context, id, assigneeID string, assigner *domain.User) (*domain.Task, error) {
	if !policy.CanReassign(assigner) {
		return nil, apperrors.NewForbidden("insufficient role to assign tasks")
	}
	if assigneeID == "" {
		return nil, apperrors.NewValidationError("assignedTo required", nil)
	}
	if _, err := s.users.GetByID(ctx, assigneeID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("user", map[string]any{"user_id": assigneeID})
		}
		return nil, apperrors.MapError(err)
	}

	task, err := s.loadTask(ctx, id)
	if err != nil {
		return nil, err
	}
	previous := task.AssignedTo
	task.AssignedTo = assigneeID
	if err := s.tasks.Update(ctx, task); err != nil {
		return nil, apperrors.MapError(err)
	}
	s.statsCache.Invalidate(ctx)

	payload := events.TaskAssignedPayload{
		AssigneeID:   assigneeID,
		Reassignment: true,
	}
	if previous != "" && previous != assigneeID {
		payload.PreviousAssigneeID = previous
	}
	s.publishEvent(ctx, events.Event{
		Type:      events.EventTaskAssigned,
		TaskID:    task.ID,
		TaskTitle: task.Title,
		Actor:     actorFor(assigner),
		Payload:   payload,
	})
	return task, nil
}

// Remove deletes a single task after the delete policy check. A USER who is
// merely assigned cannot delete; like unauthorized reads, the refusal is
// indistinguishable from a missing task.
func (s *TaskService) Remove(ctx context.Context, id string, remover *domain.User) error {
	task, err := s.loadTask(ctx, id)
	if err != nil {
		return err
	}
	if !policy.CanDelete(remover, task) {
		return apperrors.NewNotFound("task", map[string]any{"task_id": id})
	}
	if err := s.tasks.DeleteByID(ctx, id); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperrors.NewNotFound("task", map[string]any{"task_id": id})
		}
		return apperrors.MapError(err)
	}
	s.statsCache.Invalidate(ctx)

	s.publishEvent(ctx, events.Event{
		Type:      events.EventTaskDeleted,
		TaskID:    task.ID,
		TaskTitle: task.Title,
		Actor:     actorFor(remover),
		Payload: events.TaskDeletedPayload{
			AssignedTo: task.AssignedTo,
			CreatedBy:  task.CreatedBy,
		},
	})
	return nil
}

// BulkRemove deletes every task in ids that exists and reports how many
// were actually deleted. The operation is not atomic across the set.
func (s *TaskService) BulkRemove(ctx context.Context, ids []string, remover *domain.User) (int64, error) {
	if !policy.CanBulkDelete(remover) {
		return 0, apperrors.NewForbidden("insufficient role to bulk delete tasks")
	}
	if len(ids) == 0 {
		return 0, apperrors.NewValidationError("at least one task id required", nil)
	}
	count, err := s.tasks.DeleteByIDs(ctx, ids)
	if err != nil {
		return 0, apperrors.MapError(err)
	}
	if count > 0 {
		s.statsCache.Invalidate(ctx)
	}
	return count, nil
}

// Stats computes totals and per-status counts over the requester's scope.
func (s *TaskService) Stats(ctx context.Context, requester *domain.User) (domain.TaskStats, error) {
	scope := policy.Scope(requester)
	scopeKey := "all"
	if scope != nil {
		scopeKey = "user:" + *scope
	}
	if cached, ok := s.statsCache.Get(ctx, scopeKey); ok {
		return *cached, nil
	}

	stats, err := s.tasks.CountByStatus(ctx, repository.TaskFilter{InvolvedUserID: scope})
	if err != nil {
		return domain.TaskStats{}, apperrors.MapError(err)
	}
	s.statsCache.Set(ctx, scopeKey, stats)
	return stats, nil
}

func (s *TaskService) loadTask(ctx context.Context, id string) (*domain.Task, error) {
	task, err := s.tasks.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("task", map[string]any{"task_id": id})
		}
		return nil, apperrors.MapError(err)
	}
	return task, nil
}

func applyPatch(task *domain.Task, patch domain.TaskPatch) {
	if patch.Title != nil {
		task.Title = strings.TrimSpace(*patch.Title)
	}
	if patch.Description != nil {
		task.Description = strings.TrimSpace(*patch.Description)
	}
	if patch.DueDate != nil {
		task.DueDate = *patch.DueDate
	}
	if patch.Priority != nil {
		task.Priority = *patch.Priority
	}
	if patch.Status != nil {
		task.Status = *patch.Status
	}
}

// diffTasks lists human-readable tags for every meaningful field change.
func diffTasks(prior, updated *domain.Task) []string {
	var changes []string
	if prior.Status != updated.Status {
		changes = append(changes, "status")
	}
	if prior.Priority != updated.Priority {
		changes = append(changes, "priority")
	}
	if prior.Title != updated.Title {
		changes = append(changes, "title")
	}
	if prior.Description != updated.Description {
		changes = append(changes, "description")
	}
	if !prior.DueDate.Equal(updated.DueDate) {
		changes = append(changes, "due date")
	}
	return changes
}

func (s *TaskService) publishEvent(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	_ = s.dispatcher.Publish(ctx, event)
}

func actorFor(user *domain.User) events.Actor {
	return events.Actor{ID: user.ID, Name: user.Name}
}
