package engine

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/wolfauto/marketer/internal/models"
	"github.com/wolfauto/marketer/internal/platforms"
	"github.com/wolfauto/marketer/internal/storage"
)

// stubClient is an in-memory platforms.Client for engine tests.
type stubClient struct {
	name    string
	results []models.Opportunity
	err     error
}

func (s *stubClient) Name() string              { return s.name }
func (s *stubClient) Type() models.PlatformType { return models.PlatformTypeFreelance }
func (s *stubClient) TestConnection(ctx context.Context) error {
	return s.err
}
func (s *stubClient) Search(ctx context.Context, query string, limit int) ([]models.Opportunity, error) {
	return s.results, s.err
}
func (s *stubClient) Details(ctx context.Context, id string) (*models.Opportunity, error) {
	return nil, s.err
}

func setup(t *testing.T, client *stubClient) (*Engine, *storage.MemoryStore, *models.Platform, *models.Workflow) {
	t.Helper()
	ctx := context.Background()
	store := storage.NewMemoryStore()

	platform, err := store.CreatePlatform(ctx, models.Platform{
		Name:   client.name,
		Type:   models.PlatformTypeFreelance,
		Status: models.PlatformStatusConnected,
	})
	if err != nil {
		t.Fatalf("create platform: %v", err)
	}

	workflow, err := store.CreateWorkflow(ctx, models.Workflow{
		Name:       "Lead scanner",
		PlatformID: platform.ID,
		Steps: []models.WorkflowStep{
			{Type: models.StepTypeTrigger, Config: map[string]interface{}{"query": "golang", "limit": 10}},
			{Type: models.StepTypeFilter, Config: map[string]interface{}{"min_budget": float64(10000)}},
			{Type: models.StepTypeAction, Config: map[string]interface{}{"kind": "record_revenue", "amount_cents": float64(250)}},
		},
	})
	if err != nil {
		t.Fatalf("create workflow: %v", err)
	}

	eng := New(store, platforms.NewRegistry(client), slog.Default())
	return eng, store, platform, workflow
}

func TestRunSuccess(t *testing.T) {
	ctx := context.Background()
	client := &stubClient{
		name: "Freelancer",
		results: []models.Opportunity{
			{ID: "1", Title: "Golang bot", Budget: 50000},
			{ID: "2", Title: "Cheap gig", Budget: 500}, // filtered out
			{ID: "3", Title: "Scraper", Budget: 20000},
		},
	}
	eng, store, platform, workflow := setup(t, client)

	result, err := eng.Run(ctx, workflow.ID)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if !result.Success {
		t.Fatalf("run failed: %s", result.Detail)
	}
	if result.Matched != 2 {
		t.Errorf("matched = %d, want 2 (budget filter)", result.Matched)
	}
	if result.Revenue != 500 {
		t.Errorf("revenue = %d, want 500 (250 per match)", result.Revenue)
	}

	t.Run("task reaches completed", func(t *testing.T) {
		task, err := store.GetTask(ctx, result.TaskID)
		if err != nil || task == nil {
			t.Fatalf("get task: %v, %v", task, err)
		}
		if task.Status != models.TaskStatusCompleted {
			t.Errorf("status = %s, want completed", task.Status)
		}
	})

	t.Run("rollup applied once", func(t *testing.T) {
		updated, _ := store.GetWorkflow(ctx, workflow.ID)
		if updated.Stats.Runs != 1 || updated.Stats.Successes != 1 || updated.Stats.Failures != 0 {
			t.Errorf("stats = %+v", updated.Stats)
		}
		if updated.Revenue != 500 {
			t.Errorf("revenue = %d, want 500", updated.Revenue)
		}
		if updated.LastRun == nil || updated.NextRun == nil {
			t.Fatal("lastRun/nextRun must be stamped")
		}
		if !updated.NextRun.After(*updated.LastRun) {
			t.Errorf("nextRun %v not after lastRun %v", updated.NextRun, updated.LastRun)
		}
	})

	t.Run("earning booked to the ledger", func(t *testing.T) {
		earnings, _ := store.ListEarnings(ctx, platform.ID, time.Time{}, time.Now().Add(time.Hour))
		if len(earnings) != 1 || earnings[0].Amount != 500 {
			t.Errorf("earnings = %+v", earnings)
		}
	})

	t.Run("success and revenue activities appended", func(t *testing.T) {
		activities, _ := store.ListActivities(ctx, 10, "", "")
		var haveSuccess, haveRevenue bool
		for _, a := range activities {
			switch a.Type {
			case models.ActivityTypeSuccess:
				haveSuccess = true
			case models.ActivityTypeRevenue:
				haveRevenue = true
			}
			if a.TaskID != result.TaskID {
				t.Errorf("activity %q not linked to task", a.Title)
			}
		}
		if !haveSuccess || !haveRevenue {
			t.Errorf("activities = success:%v revenue:%v", haveSuccess, haveRevenue)
		}
	})
}

func TestRunTriggerFailure(t *testing.T) {
	ctx := context.Background()
	client := &stubClient{name: "Freelancer", err: errors.New("rate limited")}
	eng, store, _, workflow := setup(t, client)

	result, err := eng.Run(ctx, workflow.ID)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if result.Success {
		t.Fatal("expected failed run")
	}

	task, _ := store.GetTask(ctx, result.TaskID)
	if task.Status != models.TaskStatusFailed {
		t.Errorf("task status = %s, want failed", task.Status)
	}
	if task.Detail == "" {
		t.Error("failed task must carry a detail")
	}

	updated, _ := store.GetWorkflow(ctx, workflow.ID)
	if updated.Stats.Runs != 1 || updated.Stats.Failures != 1 {
		t.Errorf("stats = %+v", updated.Stats)
	}
	if updated.Revenue != 0 {
		t.Errorf("revenue = %d, want 0", updated.Revenue)
	}
}

func TestRunRefusesDisconnectedPlatform(t *testing.T) {
	ctx := context.Background()
	client := &stubClient{name: "Freelancer"}
	eng, store, platform, workflow := setup(t, client)

	status := models.PlatformStatusDisconnected
	if _, err := store.UpdatePlatform(ctx, platform.ID, models.PlatformUpdate{Status: &status}); err != nil {
		t.Fatalf("disconnect: %v", err)
	}

	if _, err := eng.Run(ctx, workflow.ID); err != ErrPlatformNotConnected {
		t.Fatalf("expected ErrPlatformNotConnected, got %v", err)
	}

	// A refused run must not leave a task behind.
	tasks, _ := store.ListTasks(ctx, models.TaskFilter{WorkflowID: workflow.ID})
	if len(tasks) != 0 {
		t.Errorf("expected no tasks, got %d", len(tasks))
	}
}

func TestRunRefusesInactiveWorkflow(t *testing.T) {
	ctx := context.Background()
	client := &stubClient{name: "Freelancer"}
	eng, store, _, workflow := setup(t, client)

	inactive := models.WorkflowStatusInactive
	if _, err := store.UpdateWorkflow(ctx, workflow.ID, models.WorkflowUpdate{Status: &inactive}); err != nil {
		t.Fatalf("deactivate: %v", err)
	}

	if _, err := eng.Run(ctx, workflow.ID); err != ErrWorkflowInactive {
		t.Fatalf("expected ErrWorkflowInactive, got %v", err)
	}
}

func TestRunUnknownWorkflow(t *testing.T) {
	client := &stubClient{name: "Freelancer"}
	eng, _, _, _ := setup(t, client)

	if _, err := eng.Run(context.Background(), "no-such-id"); err != ErrWorkflowNotFound {
		t.Fatalf("expected ErrWorkflowNotFound, got %v", err)
	}
}

func TestApplyFilterKeywords(t *testing.T) {
	step := models.WorkflowStep{
		Type:   models.StepTypeFilter,
		Config: map[string]interface{}{"keywords": []interface{}{"scraper"}},
	}
	candidates := []models.Opportunity{
		{ID: "a", Title: "Web Scraper needed"},
		{ID: "b", Title: "Logo design"},
		{ID: "c", Description: "build a scraper in go"},
	}

	out := applyFilter(step, candidates)
	if len(out) != 2 {
		t.Fatalf("expected 2 survivors, got %d", len(out))
	}
	if out[0].ID != "a" || out[1].ID != "c" {
		t.Errorf("survivors = %v, %v", out[0].ID, out[1].ID)
	}
}
