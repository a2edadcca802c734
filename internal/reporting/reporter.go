// Package reporting derives dashboard metrics from persisted tasks,
// activities and earnings. It is strictly read-side: nothing here mutates
// state, and all money arithmetic happens in integer cents.
package reporting

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/wolfauto/marketer/internal/models"
	"github.com/wolfauto/marketer/internal/storage"
)

// ErrPlatformNotFound aborts a report whose root platform lookup missed.
// Aggregations never return partial data.
var ErrPlatformNotFound = errors.New("platform not found")

// Reporter computes aggregations over the store.
type Reporter struct {
	store storage.Store
	now   func() time.Time
}

// New creates a Reporter. The clock is swappable for tests.
func New(store storage.Store) *Reporter {
	return &Reporter{store: store, now: time.Now}
}

// SetClock overrides the reporter's notion of "now". Test use only.
func (r *Reporter) SetClock(now func() time.Time) {
	r.now = now
}

// PlatformReport is the per-platform earnings/task rollup.
type PlatformReport struct {
	PlatformID   string              `json:"platform_id"`
	PlatformName string              `json:"platform_name"`
	Type         models.PlatformType `json:"type"`
	TotalTasks   int                 `json:"total_tasks"`
	Completed    int                 `json:"completed_tasks"`
	Failed       int                 `json:"failed_tasks"`
	Pending      int                 `json:"pending_tasks"`
	SuccessRate  float64             `json:"success_rate"`
	Earnings     string              `json:"earnings"`
	Commissions  string              `json:"commissions"`

	earningsCents models.Cents
}

// PlatformEarnings computes the rollup for every platform within the named
// period, sorted by summed earnings descending.
func (r *Reporter) PlatformEarnings(ctx context.Context, period string) ([]PlatformReport, error) {
	now := r.now()
	start, end := RangeForPeriod(period, now)

	platforms, err := r.store.ListPlatforms(ctx)
	if err != nil {
		return nil, fmt.Errorf("list platforms: %w", err)
	}

	reports := make([]PlatformReport, 0, len(platforms))
	for _, p := range platforms {
		report := PlatformReport{PlatformID: p.ID, PlatformName: p.Name, Type: p.Type}

		tasks, err := r.store.ListTasks(ctx, models.TaskFilter{PlatformID: p.ID})
		if err != nil {
			return nil, fmt.Errorf("list tasks for %s: %w", p.Name, err)
		}
		for _, t := range tasks {
			if t.CreatedAt.Before(start) || t.CreatedAt.After(end) {
				continue
			}
			report.TotalTasks++
			switch t.Status {
			case models.TaskStatusCompleted:
				report.Completed++
			case models.TaskStatusFailed:
				report.Failed++
			case models.TaskStatusPending:
				report.Pending++
			}
		}
		report.SuccessRate = successRate(report.Completed, report.TotalTasks)

		earnings, err := r.store.ListEarnings(ctx, p.ID, start, end)
		if err != nil {
			return nil, fmt.Errorf("list earnings for %s: %w", p.Name, err)
		}
		var amount, commissions models.Cents
		for _, e := range earnings {
			amount += e.Amount
			commissions += e.Commissions
		}
		report.earningsCents = amount
		report.Earnings = amount.String()
		report.Commissions = commissions.String()

		reports = append(reports, report)
	}

	sort.SliceStable(reports, func(i, j int) bool {
		return reports[i].earningsCents > reports[j].earningsCents
	})
	return reports, nil
}

// PeriodEarnings is one bucket of the earnings-over-time series.
type PeriodEarnings struct {
	Label       string    `json:"label"`
	Start       time.Time `json:"start"`
	End         time.Time `json:"end"`
	Earnings    string    `json:"earnings"`
	Commissions string    `json:"commissions"`
}

// EarningsByPeriod buckets all earnings into periodCount windows counting
// back from now, returned oldest first.
func (r *Reporter) EarningsByPeriod(ctx context.Context, g Granularity, periodCount int) ([]PeriodEarnings, error) {
	now := r.now()
	buckets := BucketsFor(g, periodCount, now)

	// One ledger read covering every bucket.
	from := buckets[0].Start
	to := buckets[len(buckets)-1].End
	earnings, err := r.store.ListEarnings(ctx, "", from, to)
	if err != nil {
		return nil, fmt.Errorf("list earnings: %w", err)
	}

	out := make([]PeriodEarnings, 0, len(buckets))
	for _, b := range buckets {
		var amount, commissions models.Cents
		for _, e := range earnings {
			if b.Contains(e.Date) {
				amount += e.Amount
				commissions += e.Commissions
			}
		}
		out = append(out, PeriodEarnings{
			Label:       b.Label,
			Start:       b.Start,
			End:         b.End,
			Earnings:    amount.String(),
			Commissions: commissions.String(),
		})
	}
	return out, nil
}

// WorkflowReport describes one workflow's performance within a period.
type WorkflowReport struct {
	WorkflowID   string  `json:"workflow_id"`
	WorkflowName string  `json:"workflow_name"`
	PlatformName string  `json:"platform_name"`
	TotalTasks   int     `json:"total_tasks"`
	Completed    int     `json:"completed_tasks"`
	Failed       int     `json:"failed_tasks"`
	Pending      int     `json:"pending_tasks"`
	SuccessRate  float64 `json:"success_rate"`
	Revenue      string  `json:"revenue"`
}

// WorkflowPerformance classifies each workflow's tasks within the period,
// sorted by success rate descending.
func (r *Reporter) WorkflowPerformance(ctx context.Context, period string) ([]WorkflowReport, error) {
	now := r.now()
	start, end := RangeForPeriod(period, now)

	workflows, err := r.store.ListWorkflows(ctx)
	if err != nil {
		return nil, fmt.Errorf("list workflows: %w", err)
	}

	platformNames := map[string]string{}
	platforms, err := r.store.ListPlatforms(ctx)
	if err != nil {
		return nil, fmt.Errorf("list platforms: %w", err)
	}
	for _, p := range platforms {
		platformNames[p.ID] = p.Name
	}

	reports := make([]WorkflowReport, 0, len(workflows))
	for _, w := range workflows {
		report := WorkflowReport{
			WorkflowID:   w.ID,
			WorkflowName: w.Name,
			PlatformName: platformNames[w.PlatformID],
			Revenue:      w.Revenue.String(),
		}

		tasks, err := r.store.ListTasks(ctx, models.TaskFilter{WorkflowID: w.ID})
		if err != nil {
			return nil, fmt.Errorf("list tasks for %s: %w", w.Name, err)
		}
		for _, t := range tasks {
			if t.CreatedAt.Before(start) || t.CreatedAt.After(end) {
				continue
			}
			report.TotalTasks++
			switch t.Status {
			case models.TaskStatusCompleted:
				report.Completed++
			case models.TaskStatusFailed:
				report.Failed++
			case models.TaskStatusPending:
				report.Pending++
			}
		}
		report.SuccessRate = successRate(report.Completed, report.TotalTasks)
		reports = append(reports, report)
	}

	sort.SliceStable(reports, func(i, j int) bool {
		return reports[i].SuccessRate > reports[j].SuccessRate
	})
	return reports, nil
}

// PlatformAnalytics is the single-platform snapshot.
type PlatformAnalytics struct {
	PlatformID    string                `json:"platform_id"`
	PlatformName  string                `json:"platform_name"`
	Status        models.PlatformStatus `json:"status"`
	HealthStatus  models.HealthStatus   `json:"health_status"`
	WorkflowCount int                   `json:"workflow_count"`
	TotalTasks    int                   `json:"total_tasks"`
	Completed     int                   `json:"completed_tasks"`
	Failed        int                   `json:"failed_tasks"`
	Pending       int                   `json:"pending_tasks"`
	SuccessRate   float64               `json:"success_rate"`
	Revenue       string                `json:"revenue"`
}

// PlatformAnalyticsFor builds the snapshot for one platform. A missing
// platform aborts the whole report.
func (r *Reporter) PlatformAnalyticsFor(ctx context.Context, platformID, period string) (*PlatformAnalytics, error) {
	platform, err := r.store.GetPlatform(ctx, platformID)
	if err != nil {
		return nil, fmt.Errorf("get platform: %w", err)
	}
	if platform == nil {
		return nil, ErrPlatformNotFound
	}

	now := r.now()
	start, end := RangeForPeriod(period, now)

	analytics := &PlatformAnalytics{
		PlatformID:   platform.ID,
		PlatformName: platform.Name,
		Status:       platform.Status,
		HealthStatus: platform.HealthStatus,
	}

	workflows, err := r.store.ListWorkflowsByPlatform(ctx, platformID)
	if err != nil {
		return nil, fmt.Errorf("list workflows: %w", err)
	}
	analytics.WorkflowCount = len(workflows)
	var revenue models.Cents
	for _, w := range workflows {
		revenue += w.Revenue
	}
	analytics.Revenue = revenue.String()

	tasks, err := r.store.ListTasks(ctx, models.TaskFilter{PlatformID: platformID})
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	for _, t := range tasks {
		if t.CreatedAt.Before(start) || t.CreatedAt.After(end) {
			continue
		}
		analytics.TotalTasks++
		switch t.Status {
		case models.TaskStatusCompleted:
			analytics.Completed++
		case models.TaskStatusFailed:
			analytics.Failed++
		case models.TaskStatusPending:
			analytics.Pending++
		}
	}
	analytics.SuccessRate = successRate(analytics.Completed, analytics.TotalTasks)

	return analytics, nil
}

// SystemReport is the global dashboard snapshot.
type SystemReport struct {
	PlatformsByHealth map[models.HealthStatus]int `json:"platforms_by_health"`
	ActiveWorkflows   int                         `json:"active_workflows"`
	InactiveWorkflows int                         `json:"inactive_workflows"`
	TasksByStatus     map[models.TaskStatus]int   `json:"tasks_by_status"`
	ActivitiesByType  map[models.ActivityType]int `json:"activities_by_type"`
}

// SystemPerformance aggregates global counts within the period.
func (r *Reporter) SystemPerformance(ctx context.Context, period string) (*SystemReport, error) {
	now := r.now()
	start, end := RangeForPeriod(period, now)

	report := &SystemReport{
		PlatformsByHealth: map[models.HealthStatus]int{},
		TasksByStatus:     map[models.TaskStatus]int{},
		ActivitiesByType:  map[models.ActivityType]int{},
	}

	platforms, err := r.store.ListPlatforms(ctx)
	if err != nil {
		return nil, fmt.Errorf("list platforms: %w", err)
	}
	for _, p := range platforms {
		report.PlatformsByHealth[p.HealthStatus]++
	}

	workflows, err := r.store.ListWorkflows(ctx)
	if err != nil {
		return nil, fmt.Errorf("list workflows: %w", err)
	}
	for _, w := range workflows {
		if w.Status == models.WorkflowStatusActive {
			report.ActiveWorkflows++
		} else {
			report.InactiveWorkflows++
		}
	}

	tasks, err := r.store.ListTasks(ctx, models.TaskFilter{})
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	for _, t := range tasks {
		if t.CreatedAt.Before(start) || t.CreatedAt.After(end) {
			continue
		}
		report.TasksByStatus[t.Status]++
	}

	activities, err := r.store.ListActivities(ctx, 1000, "", "")
	if err != nil {
		return nil, fmt.Errorf("list activities: %w", err)
	}
	for _, a := range activities {
		if a.Timestamp.Before(start) || a.Timestamp.After(end) {
			continue
		}
		report.ActivitiesByType[a.Type]++
	}

	return report, nil
}

// successRate avoids dividing by zero: no tasks means 0, never NaN.
func successRate(completed, total int) float64 {
	if total == 0 {
		return 0
	}
	return float64(completed) / float64(total) * 100
}
