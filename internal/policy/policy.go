// Package policy holds the pure access decisions over (user, task) pairs.
// Every function here is side-effect free; callers translate a false result
// into NotFound for reads and Forbidden for privileged actions.
package policy

import (
	"github.com/spec-kit/task-service/internal/domain"
)

// CanRead reports whether user may see the task. Managers and admins see
// everything; a USER only sees tasks they are assigned to or created.
func CanRead(user *domain.User, task *domain.Task) bool {
	switch user.Role {
	case domain.RoleManager, domain.RoleAdmin:
		return true
	case domain.RoleUser:
		return task.AssignedTo == user.ID || task.CreatedBy == user.ID
	default:
		return false
	}
}

// CanCreate reports whether user may create tasks.
func CanCreate(user *domain.User) bool {
	switch user.Role {
	case domain.RoleManager, domain.RoleAdmin:
		return true
	default:
		return false
	}
}

// CanUpdate reports whether user may update the task at all. For a USER the
// permitted fields are further narrowed by FilterPatch.
func CanUpdate(user *domain.User, task *domain.Task) bool {
	switch user.Role {
	case domain.RoleManager, domain.RoleAdmin:
		return true
	case domain.RoleUser:
		return CanRead(user, task)
	default:
		return false
	}
}

// CanDelete reports whether user may delete the task. A USER may delete only
// tasks they created; being assigned is not enough. The asymmetry against
// CanUpdate is intentional.
func CanDelete(user *domain.User, task *domain.Task) bool {
	switch user.Role {
	case domain.RoleManager, domain.RoleAdmin:
		return true
	case domain.RoleUser:
		return task.CreatedBy == user.ID
	default:
		return false
	}
}

// CanReassign reports whether user may change a task's assignee.
func CanReassign(user *domain.User) bool {
	switch user.Role {
	case domain.RoleManager, domain.RoleAdmin:
		return true
	default:
		return false
	}
}

// CanBulkDelete reports whether user may bulk-delete tasks.
func CanBulkDelete(user *domain.User) bool {
	switch user.Role {
	case domain.RoleManager, domain.RoleAdmin:
		return true
	default:
		return false
	}
}

// FilterPatch narrows a requested update to the fields user may set. For a
// USER everything except status is silently dropped, not rejected.
func FilterPatch(user *domain.User, patch domain.TaskPatch) domain.TaskPatch {
	switch user.Role {
	case domain.RoleManager, domain.RoleAdmin:
		return patch
	case domain.RoleUser:
		return domain.TaskPatch{Status: patch.Status}
	default:
		return domain.TaskPatch{}
	}
}

// Scope returns the user id that list and stats queries must be restricted
// to (assignedTo == id OR createdBy == id), or nil for roles that see the
// unfiltered set.
func Scope(user *domain.User) *string {
	switch user.Role {
	case domain.RoleManager, domain.RoleAdmin:
		return nil
	default:
		id := user.ID
		return &id
	}
}
