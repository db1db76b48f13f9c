package repository

import (
	"strings"
	"testing"

	"github.com/spec-kit/task-service/internal/domain"
)

func TestBuildTaskClauses_Empty(t *testing.T) {
	clauses, args := buildTaskClauses(TaskFilter{})
	if len(clauses) != 1 || clauses[0] != "1=1" {
		t.Errorf("clauses = %v, want neutral clause only", clauses)
	}
	if len(args) != 0 {
		t.Errorf("args = %v, want none", args)
	}
}

func TestBuildTaskClauses_AllFilters(t *testing.T) {
	status := domain.TaskStatusPending
	priority := domain.TaskPriorityHigh
	createdBy := "m1"
	assignedTo := "u1"
	scope := "u2"

	clauses, args := buildTaskClauses(TaskFilter{
		Status:         &status,
		Priority:       &priority,
		CreatedBy:      &createdBy,
		AssignedTo:     &assignedTo,
		InvolvedUserID: &scope,
	})

	where := strings.Join(clauses, " AND ")
	for _, want := range []string{
		"status=$1", "priority=$2", "created_by=$3", "assigned_to=$4",
		"(assigned_to=$5 OR created_by=$5)",
	} {
		if !strings.Contains(where, want) {
			t.Errorf("where %q missing %q", where, want)
		}
	}
	if len(args) != 5 {
		t.Fatalf("args = %d, want 5", len(args))
	}
	if args[4] != scope {
		t.Errorf("scope arg = %v, want %s", args[4], scope)
	}
}

func TestBuildTaskClauses_ScopeSharesPlaceholder(t *testing.T) {
	scope := "u1"
	clauses, args := buildTaskClauses(TaskFilter{InvolvedUserID: &scope})
	if len(args) != 1 {
		t.Fatalf("args = %d, want 1 (OR clause reuses the placeholder)", len(args))
	}
	if clauses[len(clauses)-1] != "(assigned_to=$1 OR created_by=$1)" {
		t.Errorf("scope clause = %q", clauses[len(clauses)-1])
	}
}
