package models

import "testing"

func TestWorkflow_SuccessRate(t *testing.T) {
	tests := []struct {
		name     string
		stats    WorkflowStats
		expected float64
	}{
		{"no runs", WorkflowStats{}, 0},
		{"all successes", WorkflowStats{Runs: 4, Successes: 4}, 100},
		{"half successes", WorkflowStats{Runs: 10, Successes: 5, Failures: 5}, 50},
		{"runs without outcomes yet", WorkflowStats{Runs: 8, Successes: 2, Failures: 2}, 25},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := &Workflow{Stats: tt.stats}
			if got := w.SuccessRate(); got != tt.expected {
				t.Errorf("SuccessRate() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestWorkflow_StatsConsistent(t *testing.T) {
	ok := &Workflow{Stats: WorkflowStats{Runs: 5, Successes: 3, Failures: 2}}
	if !ok.StatsConsistent() {
		t.Error("expected consistent stats")
	}

	bad := &Workflow{Stats: WorkflowStats{Runs: 2, Successes: 2, Failures: 1}}
	if bad.StatsConsistent() {
		t.Error("expected inconsistent stats to be flagged")
	}
}
