// Package scheduler drives automatic workflow execution: a ticker loop that
// atomically claims due workflows and hands them to the engine.
package scheduler

import (
	"context"
	"log/slog"
	"time"

	"github.com/wolfauto/marketer/internal/engine"
	"github.com/wolfauto/marketer/internal/storage"
)

// WorkflowScheduler manages automatic execution of due workflows.
type WorkflowScheduler struct {
	store         storage.Store
	engine        *engine.Engine
	logger        *slog.Logger
	stopChan      chan struct{}
	checkInterval time.Duration
	reschedule    time.Duration

	activityRetention time.Duration
	lastPrune         time.Time
}

// NewWorkflowScheduler creates a workflow scheduler. Claimed workflows get
// their nextRun pushed forward by reschedule so a crashed run is retried
// instead of lost.
func NewWorkflowScheduler(store storage.Store, eng *engine.Engine, logger *slog.Logger) *WorkflowScheduler {
	return &WorkflowScheduler{
		store:         store,
		engine:        eng,
		logger:        logger,
		stopChan:      make(chan struct{}),
		checkInterval: 1 * time.Minute,
		reschedule:    15 * time.Minute,

		activityRetention: 90 * 24 * time.Hour,
	}
}

// Start begins the scheduler loop. It blocks until Stop is called or the
// context is cancelled.
func (s *WorkflowScheduler) Start(ctx context.Context) {
	s.logger.Info("workflow scheduler starting", "check_interval", s.checkInterval)
	ticker := time.NewTicker(s.checkInterval)
	defer ticker.Stop()

	// Run once immediately on start.
	s.checkAndRun(ctx)

	for {
		select {
		case <-ticker.C:
			s.checkAndRun(ctx)
		case <-s.stopChan:
			s.logger.Info("workflow scheduler stopped")
			return
		case <-ctx.Done():
			s.logger.Info("workflow scheduler stopping, context cancelled")
			return
		}
	}
}

// Stop stops the scheduler.
func (s *WorkflowScheduler) Stop() {
	close(s.stopChan)
}

// checkAndRun claims every due workflow and executes each one. The claim
// reschedules nextRun, so two scheduler instances never run the same
// workflow twice.
func (s *WorkflowScheduler) checkAndRun(ctx context.Context) {
	s.pruneActivities(ctx)

	claimed, err := s.store.ClaimDueWorkflows(ctx, time.Now(), s.reschedule)
	if err != nil {
		s.logger.Error("failed to claim due workflows", "error", err)
		return
	}
	if len(claimed) == 0 {
		return
	}

	s.logger.Info("claimed due workflows", "count", len(claimed))
	for _, workflow := range claimed {
		result, err := s.engine.Run(ctx, workflow.ID)
		if err != nil {
			// Precondition errors (platform disconnected, workflow turned
			// inactive since the claim) are expected; log and move on.
			s.logger.Warn("scheduled run refused",
				"workflow_id", workflow.ID,
				"name", workflow.Name,
				"error", err)
			continue
		}
		s.logger.Info("scheduled run finished",
			"workflow_id", workflow.ID,
			"name", workflow.Name,
			"success", result.Success,
			"matched", result.Matched)
	}
}

// pruneActivities trims the audit trail to the retention window, at most
// once a day.
func (s *WorkflowScheduler) pruneActivities(ctx context.Context) {
	if time.Since(s.lastPrune) < 24*time.Hour {
		return
	}
	s.lastPrune = time.Now()

	removed, err := s.store.DeleteActivitiesOlderThan(ctx, s.activityRetention)
	if err != nil {
		s.logger.Error("failed to prune old activities", "error", err)
		return
	}
	if removed > 0 {
		s.logger.Info("pruned old activities", "removed", removed)
	}
}
