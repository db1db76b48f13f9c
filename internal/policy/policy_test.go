package policy

import (
	"testing"

	"github.com/spec-kit/task-service/internal/domain"
)

func userWith(id string, role domain.Role) *domain.User {
	return &domain.User{ID: id, Name: "u-" + id, Role: role}
}

func taskOwned(assignedTo, createdBy string) *domain.Task {
	return &domain.Task{ID: "t1", AssignedTo: assignedTo, CreatedBy: createdBy}
}

func TestCanRead(t *testing.T) {
	tests := []struct {
		name string
		user *domain.User
		task *domain.Task
		want bool
	}{
		{"manager reads anything", userWith("m1", domain.RoleManager), taskOwned("u9", "u8"), true},
		{"admin reads anything", userWith("a1", domain.RoleAdmin), taskOwned("u9", "u8"), true},
		{"user reads own assignment", userWith("u1", domain.RoleUser), taskOwned("u1", "m1"), true},
		{"user reads own creation", userWith("u1", domain.RoleUser), taskOwned("u2", "u1"), true},
		{"user denied unrelated task", userWith("u1", domain.RoleUser), taskOwned("u2", "u3"), false},
		{"unknown role denied", userWith("x1", domain.Role("GUEST")), taskOwned("x1", "x1"), false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := CanRead(tc.user, tc.task); got != tc.want {
				t.Errorf("CanRead = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestCanUpdate_FollowsRead(t *testing.T) {
	user := userWith("u1", domain.RoleUser)

	if !CanUpdate(user, taskOwned("u1", "m1")) {
		t.Error("assignee should be able to update")
	}
	if !CanUpdate(user, taskOwned("u2", "u1")) {
		t.Error("creator should be able to update")
	}
	if CanUpdate(user, taskOwned("u2", "u3")) {
		t.Error("unrelated user should not be able to update")
	}
}

func TestCanDelete_UserNeedsOwnership(t *testing.T) {
	user := userWith("u1", domain.RoleUser)

	// Being assigned is not enough; only the creator may delete.
	if CanDelete(user, taskOwned("u1", "m1")) {
		t.Error("assignee alone must not be able to delete")
	}
	if !CanDelete(user, taskOwned("u2", "u1")) {
		t.Error("creator should be able to delete")
	}
	if !CanDelete(userWith("m1", domain.RoleManager), taskOwned("u1", "u2")) {
		t.Error("manager should delete any task")
	}
}

func TestPrivilegedActions_RoleGated(t *testing.T) {
	for _, role := range []domain.Role{domain.RoleManager, domain.RoleAdmin} {
		u := userWith("p1", role)
		if !CanCreate(u) || !CanReassign(u) || !CanBulkDelete(u) {
			t.Errorf("role %s should hold all privileged grants", role)
		}
	}
	u := userWith("u1", domain.RoleUser)
	if CanCreate(u) || CanReassign(u) || CanBulkDelete(u) {
		t.Error("USER must hold no privileged grants")
	}
}

func TestFilterPatch(t *testing.T) {
	title := "new title"
	status := domain.TaskStatusCompleted
	priority := domain.TaskPriorityHigh
	full := domain.TaskPatch{Title: &title, Status: &status, Priority: &priority}

	got := FilterPatch(userWith("u1", domain.RoleUser), full)
	if got.Title != nil || got.Priority != nil {
		t.Error("USER patch should drop everything but status")
	}
	if got.Status == nil || *got.Status != status {
		t.Error("USER patch should keep status")
	}

	got = FilterPatch(userWith("m1", domain.RoleManager), full)
	if got.Title == nil || got.Priority == nil || got.Status == nil {
		t.Error("MANAGER patch should pass through unchanged")
	}
}

func TestScope(t *testing.T) {
	if Scope(userWith("m1", domain.RoleManager)) != nil {
		t.Error("manager scope should be unrestricted")
	}
	if Scope(userWith("a1", domain.RoleAdmin)) != nil {
		t.Error("admin scope should be unrestricted")
	}
	scope := Scope(userWith("u1", domain.RoleUser))
	if scope == nil || *scope != "u1" {
		t.Errorf("user scope = %v, want u1", scope)
	}
}
