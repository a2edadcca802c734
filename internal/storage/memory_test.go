package storage

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/wolfauto/marketer/internal/models"
)

func newTestStore(t *testing.T) *MemoryStore {
	t.Helper()
	return NewMemoryStore()
}

func mustCreatePlatform(t *testing.T, s *MemoryStore, name string) *models.Platform {
	t.Helper()
	p, err := s.CreatePlatform(context.Background(), models.Platform{
		Name:   name,
		Type:   models.PlatformTypeAffiliate,
		Status: models.PlatformStatusConnected,
	})
	if err != nil {
		t.Fatalf("create platform: %v", err)
	}
	return p
}

func TestPlatformCRUD(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	p := mustCreatePlatform(t, s, "Clickbank")
	if p.ID == "" {
		t.Fatal("expected assigned id")
	}

	t.Run("duplicate name is case-insensitive", func(t *testing.T) {
		_, err := s.CreatePlatform(ctx, models.Platform{Name: "CLICKBANK", Type: models.PlatformTypeAffiliate})
		if err != ErrDuplicateName {
			t.Errorf("expected ErrDuplicateName, got %v", err)
		}
	})

	t.Run("get miss returns nil,nil", func(t *testing.T) {
		got, err := s.GetPlatform(ctx, "no-such-id")
		if err != nil || got != nil {
			t.Errorf("expected nil,nil; got %v,%v", got, err)
		}
	})

	t.Run("lookup by name ignores case", func(t *testing.T) {
		got, err := s.GetPlatformByName(ctx, "clickbank")
		if err != nil {
			t.Fatalf("get by name: %v", err)
		}
		if got == nil || got.ID != p.ID {
			t.Errorf("expected platform %s, got %+v", p.ID, got)
		}
	})

	t.Run("partial update leaves other fields", func(t *testing.T) {
		status := models.PlatformStatusError
		updated, err := s.UpdatePlatform(ctx, p.ID, models.PlatformUpdate{Status: &status})
		if err != nil {
			t.Fatalf("update: %v", err)
		}
		if updated.Status != models.PlatformStatusError {
			t.Errorf("status not applied: %s", updated.Status)
		}
		if updated.Name != "Clickbank" {
			t.Errorf("name clobbered: %s", updated.Name)
		}
	})

	t.Run("delete missing id reports not found", func(t *testing.T) {
		deleted, err := s.DeletePlatform(ctx, "no-such-id")
		if err != nil {
			t.Fatalf("delete: %v", err)
		}
		if deleted {
			t.Error("expected false for missing id")
		}
	})

	t.Run("delete existing", func(t *testing.T) {
		deleted, err := s.DeletePlatform(ctx, p.ID)
		if err != nil || !deleted {
			t.Errorf("expected delete to succeed, got %v,%v", deleted, err)
		}
	})
}

func TestWorkflowCreate(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	base := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	s.SetClock(func() time.Time { return base })

	p := mustCreatePlatform(t, s, "Etsy")

	t.Run("rejects missing platform", func(t *testing.T) {
		_, err := s.CreateWorkflow(ctx, models.Workflow{Name: "orphan", PlatformID: "no-such"})
		if err != ErrPlatformMissing {
			t.Errorf("expected ErrPlatformMissing, got %v", err)
		}
	})

	steps := []models.WorkflowStep{
		{Type: models.StepTypeTrigger, Config: map[string]interface{}{"event": "new_listing"}},
		{Type: models.StepTypeFilter, Config: map[string]interface{}{"min_price": 25}},
		{Type: models.StepTypeAction, Config: map[string]interface{}{"kind": "promote"}},
	}
	w, err := s.CreateWorkflow(ctx, models.Workflow{Name: "Listing Watch", PlatformID: p.ID, Steps: steps})
	if err != nil {
		t.Fatalf("create workflow: %v", err)
	}

	t.Run("next run scheduled fifteen minutes out", func(t *testing.T) {
		if w.NextRun == nil {
			t.Fatal("expected nextRun to be set")
		}
		if got, want := *w.NextRun, base.Add(models.InitialRunDelay); !got.Equal(want) {
			t.Errorf("nextRun = %v, want %v", got, want)
		}
	})

	t.Run("steps round-trip in order", func(t *testing.T) {
		fetched, err := s.GetWorkflow(ctx, w.ID)
		if err != nil {
			t.Fatalf("get workflow: %v", err)
		}
		if len(fetched.Steps) != 3 {
			t.Fatalf("expected 3 steps, got %d", len(fetched.Steps))
		}
		order := []models.StepType{models.StepTypeTrigger, models.StepTypeFilter, models.StepTypeAction}
		for i, want := range order {
			if fetched.Steps[i].Type != want {
				t.Errorf("step %d = %s, want %s", i, fetched.Steps[i].Type, want)
			}
		}
	})

	t.Run("rollups start clean", func(t *testing.T) {
		if w.Stats.Runs != 0 || w.Revenue != 0 || w.LastRun != nil {
			t.Errorf("expected zeroed rollups, got %+v revenue=%d", w.Stats, w.Revenue)
		}
	})
}

func TestApplyRunResult(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	p := mustCreatePlatform(t, s, "Amazon Associates")
	w, err := s.CreateWorkflow(ctx, models.Workflow{Name: "Link Refresher", PlatformID: p.ID})
	if err != nil {
		t.Fatalf("create workflow: %v", err)
	}

	runAt := time.Now()
	if _, err := s.ApplyRunResult(ctx, w.ID, true, 1250, runAt, nil); err != nil {
		t.Fatalf("apply success: %v", err)
	}
	updated, err := s.ApplyRunResult(ctx, w.ID, false, 0, runAt.Add(time.Minute), nil)
	if err != nil {
		t.Fatalf("apply failure: %v", err)
	}

	if updated.Stats.Runs != 2 || updated.Stats.Successes != 1 || updated.Stats.Failures != 1 {
		t.Errorf("stats = %+v, want runs=2 successes=1 failures=1", updated.Stats)
	}
	if !updated.StatsConsistent() {
		t.Error("stats invariant violated")
	}
	if updated.Revenue != 1250 {
		t.Errorf("revenue = %d, want 1250", updated.Revenue)
	}
	if updated.SuccessRate() != 50 {
		t.Errorf("success rate = %v, want 50", updated.SuccessRate())
	}

	t.Run("concurrent completions all land", func(t *testing.T) {
		var wg sync.WaitGroup
		for i := 0; i < 50; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				if _, err := s.ApplyRunResult(ctx, w.ID, true, 100, time.Now(), nil); err != nil {
					t.Errorf("apply: %v", err)
				}
			}()
		}
		wg.Wait()

		final, err := s.GetWorkflow(ctx, w.ID)
		if err != nil {
			t.Fatalf("get workflow: %v", err)
		}
		if final.Stats.Runs != 52 {
			t.Errorf("runs = %d, want 52", final.Stats.Runs)
		}
		if final.Stats.Successes != 51 {
			t.Errorf("successes = %d, want 51", final.Stats.Successes)
		}
		if final.Revenue != 1250+50*100 {
			t.Errorf("revenue = %d, want %d", final.Revenue, 1250+50*100)
		}
	})
}

func TestClaimDueWorkflows(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	p := mustCreatePlatform(t, s, "Freelancer")

	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	due := now.Add(-time.Minute)
	later := now.Add(time.Hour)

	mkWorkflow := func(name string, status models.WorkflowStatus, next time.Time) string {
		w, err := s.CreateWorkflow(ctx, models.Workflow{Name: name, PlatformID: p.ID, Status: status, NextRun: &next})
		if err != nil {
			t.Fatalf("create %s: %v", name, err)
		}
		return w.ID
	}

	dueID := mkWorkflow("due", models.WorkflowStatusActive, due)
	mkWorkflow("not yet", models.WorkflowStatusActive, later)
	mkWorkflow("inactive", models.WorkflowStatusInactive, due)

	claimed, err := s.ClaimDueWorkflows(ctx, now, 15*time.Minute)
	if err != nil {
		t.Fatalf("claim: %v", err)
	}
	if len(claimed) != 1 || claimed[0].ID != dueID {
		t.Fatalf("expected to claim only the due active workflow, got %d", len(claimed))
	}
	if got, want := *claimed[0].NextRun, now.Add(15*time.Minute); !got.Equal(want) {
		t.Errorf("rescheduled nextRun = %v, want %v", got, want)
	}

	// A second pass finds nothing; the claim pushed nextRun forward.
	again, err := s.ClaimDueWorkflows(ctx, now, 15*time.Minute)
	if err != nil {
		t.Fatalf("second claim: %v", err)
	}
	if len(again) != 0 {
		t.Errorf("expected no workflows on second claim, got %d", len(again))
	}
}

func TestTaskLifecycle(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	p := mustCreatePlatform(t, s, "Etsy")
	w, _ := s.CreateWorkflow(ctx, models.Workflow{Name: "wf", PlatformID: p.ID})

	task, err := s.CreateTask(ctx, models.Task{WorkflowID: w.ID, PlatformID: p.ID})
	if err != nil {
		t.Fatalf("create task: %v", err)
	}
	if task.Status != models.TaskStatusPending {
		t.Fatalf("new task status = %s, want pending", task.Status)
	}

	created := task.UpdatedAt
	done, err := s.UpdateTaskStatus(ctx, task.ID, models.TaskStatusCompleted, "bid placed")
	if err != nil {
		t.Fatalf("complete task: %v", err)
	}
	if done.Status != models.TaskStatusCompleted {
		t.Errorf("status = %s, want completed", done.Status)
	}
	if done.UpdatedAt.Before(created) {
		t.Error("updatedAt not refreshed")
	}

	t.Run("terminal state is final", func(t *testing.T) {
		if _, err := s.UpdateTaskStatus(ctx, task.ID, models.TaskStatusFailed, ""); err != ErrTerminalTask {
			t.Errorf("expected ErrTerminalTask, got %v", err)
		}
		if _, err := s.UpdateTaskStatus(ctx, task.ID, models.TaskStatusPending, ""); err != ErrTerminalTask {
			t.Errorf("expected ErrTerminalTask on reopen, got %v", err)
		}
	})

	t.Run("filters AND-combine", func(t *testing.T) {
		other, _ := s.CreateTask(ctx, models.Task{WorkflowID: w.ID, PlatformID: p.ID})
		_ = other

		all, err := s.ListTasks(ctx, models.TaskFilter{WorkflowID: w.ID})
		if err != nil {
			t.Fatalf("list: %v", err)
		}
		if len(all) != 2 {
			t.Errorf("expected 2 tasks for workflow, got %d", len(all))
		}

		pendingOnly, err := s.ListTasks(ctx, models.TaskFilter{WorkflowID: w.ID, Status: models.TaskStatusPending})
		if err != nil {
			t.Fatalf("list: %v", err)
		}
		if len(pendingOnly) != 1 {
			t.Errorf("expected 1 pending task, got %d", len(pendingOnly))
		}
	})

	t.Run("delete by id", func(t *testing.T) {
		deleted, err := s.DeleteTask(ctx, task.ID)
		if err != nil || !deleted {
			t.Errorf("expected delete, got %v,%v", deleted, err)
		}
		deleted, err = s.DeleteTask(ctx, task.ID)
		if err != nil || deleted {
			t.Errorf("expected not found on second delete, got %v,%v", deleted, err)
		}
	})
}

func TestActivityLogOrderingAndLimit(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	base := time.Date(2026, 3, 10, 8, 0, 0, 0, time.UTC)
	tick := 0
	s.SetClock(func() time.Time {
		tick++
		return base.Add(time.Duration(tick) * time.Second)
	})

	for i := 0; i < 8; i++ {
		typ := models.ActivityTypeSystem
		if i%2 == 0 {
			typ = models.ActivityTypeSuccess
		}
		if _, err := s.LogActivity(ctx, models.Activity{Type: typ, Title: "entry"}); err != nil {
			t.Fatalf("log: %v", err)
		}
	}

	t.Run("limit respected, newest first", func(t *testing.T) {
		got, err := s.ListActivities(ctx, 5, "", "")
		if err != nil {
			t.Fatalf("list: %v", err)
		}
		if len(got) != 5 {
			t.Fatalf("expected 5 entries, got %d", len(got))
		}
		for i := 1; i < len(got); i++ {
			if got[i].Timestamp.After(got[i-1].Timestamp) {
				t.Errorf("entries not non-increasing by timestamp at %d", i)
			}
		}
	})

	t.Run("caller timestamps ignored", func(t *testing.T) {
		fake := base.Add(-24 * time.Hour)
		a, err := s.LogActivity(ctx, models.Activity{Type: models.ActivityTypeSystem, Title: "x", Timestamp: fake})
		if err != nil {
			t.Fatalf("log: %v", err)
		}
		if a.Timestamp.Equal(fake) {
			t.Error("store must stamp its own timestamp")
		}
	})

	t.Run("type filter", func(t *testing.T) {
		got, err := s.ListActivities(ctx, 100, models.ActivityTypeSuccess, "")
		if err != nil {
			t.Fatalf("list: %v", err)
		}
		for _, a := range got {
			if a.Type != models.ActivityTypeSuccess {
				t.Errorf("unexpected type %s", a.Type)
			}
		}
	})
}

func TestSeedIsExplicit(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	platforms, err := s.ListPlatforms(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(platforms) != 0 {
		t.Fatalf("store must start empty, found %d platforms", len(platforms))
	}

	if err := Seed(ctx, s); err != nil {
		t.Fatalf("seed: %v", err)
	}
	platforms, _ = s.ListPlatforms(ctx)
	if len(platforms) == 0 {
		t.Fatal("seed added nothing")
	}
	workflows, _ := s.ListWorkflows(ctx)
	if len(workflows) != len(platforms) {
		t.Errorf("expected one workflow per seeded platform, got %d/%d", len(workflows), len(platforms))
	}
}
