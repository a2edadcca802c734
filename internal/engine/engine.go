// Package engine executes workflows: it walks a workflow's trigger, filter
// and action steps against the platform's client, records the outcome as a
// task, folds the result into the workflow's rollup counters and appends the
// audit-trail activities.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/wolfauto/marketer/internal/models"
	"github.com/wolfauto/marketer/internal/platforms"
	"github.com/wolfauto/marketer/internal/storage"
)

var (
	// ErrWorkflowNotFound means the workflow id does not exist.
	ErrWorkflowNotFound = errors.New("workflow not found")

	// ErrWorkflowInactive means the workflow exists but is not active.
	ErrWorkflowInactive = errors.New("workflow is not active")

	// ErrPlatformNotConnected refuses a run whose platform cannot be
	// called out to. Handlers map this to a client error, not a 500.
	ErrPlatformNotConnected = errors.New("platform is not connected")
)

// DefaultRunInterval schedules the next run when no step overrides it.
const DefaultRunInterval = time.Hour

// Engine runs workflows against their platforms.
type Engine struct {
	store    storage.Store
	registry *platforms.Registry
	logger   *slog.Logger
	now      func() time.Time
}

// New creates an engine.
func New(store storage.Store, registry *platforms.Registry, logger *slog.Logger) *Engine {
	return &Engine{store: store, registry: registry, logger: logger, now: time.Now}
}

// SetClock overrides the engine clock. Test use only.
func (e *Engine) SetClock(now func() time.Time) {
	e.now = now
}

// RunResult summarizes one workflow execution.
type RunResult struct {
	TaskID     string        `json:"task_id"`
	Success    bool          `json:"success"`
	Detail     string        `json:"detail,omitempty"`
	Matched    int           `json:"matched"`
	Revenue    models.Cents  `json:"revenue_cents"`
	Duration   time.Duration `json:"-"`
	WorkflowID string        `json:"workflow_id"`
}

// Run executes one workflow end to end. The returned error covers
// precondition failures only; a run that starts but fails mid-way comes
// back as a RunResult with Success=false and a failed task.
func (e *Engine) Run(ctx context.Context, workflowID string) (*RunResult, error) {
	workflow, err := e.store.GetWorkflow(ctx, workflowID)
	if err != nil {
		return nil, fmt.Errorf("get workflow: %w", err)
	}
	if workflow == nil {
		return nil, ErrWorkflowNotFound
	}
	if workflow.Status != models.WorkflowStatusActive {
		return nil, ErrWorkflowInactive
	}

	platform, err := e.store.GetPlatform(ctx, workflow.PlatformID)
	if err != nil {
		return nil, fmt.Errorf("get platform: %w", err)
	}
	if platform == nil || !platform.IsConnected() {
		return nil, ErrPlatformNotConnected
	}

	task, err := e.store.CreateTask(ctx, models.Task{
		WorkflowID: workflow.ID,
		PlatformID: platform.ID,
	})
	if err != nil {
		return nil, fmt.Errorf("create task: %w", err)
	}

	start := e.now()
	matched, revenue, runErr := e.executeSteps(ctx, workflow, platform)

	result := &RunResult{
		TaskID:     task.ID,
		WorkflowID: workflow.ID,
		Matched:    matched,
		Revenue:    revenue,
		Duration:   e.now().Sub(start),
		Success:    runErr == nil,
	}

	if runErr == nil {
		result.Detail = fmt.Sprintf("matched %d opportunities", matched)
		if _, err := e.store.UpdateTaskStatus(ctx, task.ID, models.TaskStatusCompleted, result.Detail); err != nil {
			return nil, fmt.Errorf("complete task: %w", err)
		}
	} else {
		result.Detail = runErr.Error()
		if _, err := e.store.UpdateTaskStatus(ctx, task.ID, models.TaskStatusFailed, result.Detail); err != nil {
			return nil, fmt.Errorf("fail task: %w", err)
		}
	}

	if revenue > 0 {
		if _, err := e.store.AddEarning(ctx, models.PlatformEarning{
			PlatformID:  platform.ID,
			Date:        e.now(),
			Amount:      revenue,
			Commissions: 0,
		}); err != nil {
			return nil, fmt.Errorf("record earning: %w", err)
		}
	}

	next := e.now().Add(DefaultRunInterval)
	if _, err := e.store.ApplyRunResult(ctx, workflow.ID, result.Success, revenue, e.now(), &next); err != nil {
		return nil, fmt.Errorf("apply run result: %w", err)
	}

	e.logActivities(ctx, workflow, platform, task, result)
	e.logger.Info("workflow run finished",
		"workflow", workflow.Name,
		"success", result.Success,
		"matched", matched,
		"revenue", revenue.String())
	return result, nil
}

// executeSteps walks the workflow's steps in stored order. Trigger steps
// fetch candidates, filter steps narrow them and action steps act on the
// survivors.
func (e *Engine) executeSteps(ctx context.Context, workflow *models.Workflow, platform *models.Platform) (matched int, revenue models.Cents, err error) {
	client := e.registry.ForPlatform(platform.Name)
	if client == nil {
		return 0, 0, fmt.Errorf("no client registered for platform %s", platform.Name)
	}

	var candidates []models.Opportunity
	for i, step := range workflow.Steps {
		switch step.Type {
		case models.StepTypeTrigger:
			candidates, err = e.runTrigger(ctx, client, step)
			if err != nil {
				return 0, 0, fmt.Errorf("step %d (trigger): %w", i, err)
			}
		case models.StepTypeFilter:
			candidates = applyFilter(step, candidates)
		case models.StepTypeAction:
			rev, actErr := runAction(step, candidates)
			if actErr != nil {
				return 0, 0, fmt.Errorf("step %d (action): %w", i, actErr)
			}
			revenue += rev
		default:
			return 0, 0, fmt.Errorf("step %d has unknown type %q", i, step.Type)
		}
	}
	return len(candidates), revenue, nil
}

func (e *Engine) runTrigger(ctx context.Context, client platforms.Client, step models.WorkflowStep) ([]models.Opportunity, error) {
	query := configString(step.Config, "query")
	limit := configInt(step.Config, "limit", 25)
	return client.Search(ctx, query, limit)
}

// applyFilter narrows candidates by the step config: min_budget in cents
// and keywords matched against title, description and tags.
func applyFilter(step models.WorkflowStep, candidates []models.Opportunity) []models.Opportunity {
	minBudget := models.Cents(configInt(step.Config, "min_budget", 0))
	keywords := configStrings(step.Config, "keywords")

	out := candidates[:0]
	for _, c := range candidates {
		if c.Budget < minBudget {
			continue
		}
		if len(keywords) > 0 && !matchesAny(c, keywords) {
			continue
		}
		out = append(out, c)
	}
	return out
}

// runAction applies the action to every surviving candidate. The only
// revenue-bearing action is record_revenue, which books a fixed amount per
// match; other kinds (promote, bid, notify) have no ledger effect here.
func runAction(step models.WorkflowStep, candidates []models.Opportunity) (models.Cents, error) {
	kind := configString(step.Config, "kind")
	switch kind {
	case "record_revenue":
		per := models.Cents(configInt(step.Config, "amount_cents", 0))
		if per < 0 {
			return 0, fmt.Errorf("negative amount_cents %d", per)
		}
		return per * models.Cents(len(candidates)), nil
	case "", "promote", "bid", "notify":
		return 0, nil
	default:
		return 0, fmt.Errorf("unknown action kind %q", kind)
	}
}

func matchesAny(c models.Opportunity, keywords []string) bool {
	haystack := strings.ToLower(c.Title + " " + c.Description + " " + strings.Join(c.Tags, " "))
	for _, kw := range keywords {
		if strings.Contains(haystack, strings.ToLower(kw)) {
			return true
		}
	}
	return false
}

// logActivities appends the audit trail for a finished run. Activity writes
// are best-effort; a failed append never fails the run.
func (e *Engine) logActivities(ctx context.Context, workflow *models.Workflow, platform *models.Platform, task *models.Task, result *RunResult) {
	activityType := models.ActivityTypeSuccess
	title := fmt.Sprintf("Workflow %q completed", workflow.Name)
	if !result.Success {
		activityType = models.ActivityTypeError
		title = fmt.Sprintf("Workflow %q failed", workflow.Name)
	}

	e.logActivity(ctx, models.Activity{
		Type:        activityType,
		Title:       title,
		Description: result.Detail,
		WorkflowID:  workflow.ID,
		PlatformID:  platform.ID,
		TaskID:      task.ID,
		Data:        map[string]interface{}{"matched": result.Matched},
	})

	if result.Revenue > 0 {
		e.logActivity(ctx, models.Activity{
			Type:       models.ActivityTypeRevenue,
			Title:      fmt.Sprintf("Earned $%s on %s", result.Revenue.String(), platform.Name),
			WorkflowID: workflow.ID,
			PlatformID: platform.ID,
			TaskID:     task.ID,
			Data:       map[string]interface{}{"amount_cents": int64(result.Revenue)},
		})
	}
}

func (e *Engine) logActivity(ctx context.Context, a models.Activity) {
	if _, err := e.store.LogActivity(ctx, a); err != nil {
		e.logger.Error("failed to log activity", "title", a.Title, "error", err)
	}
}

func configString(config map[string]interface{}, key string) string {
	if s, ok := config[key].(string); ok {
		return s
	}
	return ""
}

// configInt reads an int from step config, tolerating the float64 that
// JSON decoding produces.
func configInt(config map[string]interface{}, key string, fallback int) int {
	switch v := config[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	default:
		return fallback
	}
}

func configStrings(config map[string]interface{}, key string) []string {
	switch v := config[key].(type) {
	case []string:
		return v
	case []interface{}:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	default:
		return nil
	}
}
