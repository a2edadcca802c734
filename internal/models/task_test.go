package models

import "testing"

func TestTaskStatus_CanTransitionTo(t *testing.T) {
	tests := []struct {
		name     string
		from     TaskStatus
		to       TaskStatus
		expected bool
	}{
		{"pending to completed", TaskStatusPending, TaskStatusCompleted, true},
		{"pending to failed", TaskStatusPending, TaskStatusFailed, true},
		{"pending to pending", TaskStatusPending, TaskStatusPending, false},
		{"completed is terminal", TaskStatusCompleted, TaskStatusFailed, false},
		{"completed cannot reopen", TaskStatusCompleted, TaskStatusPending, false},
		{"failed is terminal", TaskStatusFailed, TaskStatusCompleted, false},
		{"failed cannot reopen", TaskStatusFailed, TaskStatusPending, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.from.CanTransitionTo(tt.to); got != tt.expected {
				t.Errorf("CanTransitionTo(%s -> %s) = %v, want %v", tt.from, tt.to, got, tt.expected)
			}
		})
	}
}

func TestTaskStatus_Terminal(t *testing.T) {
	if TaskStatusPending.Terminal() {
		t.Error("pending must not be terminal")
	}
	if !TaskStatusCompleted.Terminal() {
		t.Error("completed must be terminal")
	}
	if !TaskStatusFailed.Terminal() {
		t.Error("failed must be terminal")
	}
}

func TestTaskFilter_Matches(t *testing.T) {
	task := &Task{ID: "t1", WorkflowID: "w1", PlatformID: "p1", Status: TaskStatusPending}

	tests := []struct {
		name     string
		filter   TaskFilter
		expected bool
	}{
		{"empty filter matches", TaskFilter{}, true},
		{"workflow match", TaskFilter{WorkflowID: "w1"}, true},
		{"workflow mismatch", TaskFilter{WorkflowID: "w2"}, false},
		{"all fields match", TaskFilter{WorkflowID: "w1", PlatformID: "p1", Status: TaskStatusPending}, true},
		{"status mismatch", TaskFilter{WorkflowID: "w1", Status: TaskStatusFailed}, false},
		{"platform mismatch", TaskFilter{PlatformID: "p2"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.filter.Matches(task); got != tt.expected {
				t.Errorf("Matches() = %v, want %v", got, tt.expected)
			}
		})
	}
}
