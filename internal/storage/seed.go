package storage

import (
	"context"
	"fmt"

	"github.com/wolfauto/marketer/internal/models"
)

// Seed loads a small set of sample platforms and workflows into the store.
// It is called explicitly by test setup or a dev bootstrap flag, never
// implicitly at construction.
func Seed(ctx context.Context, s Store) error {
	samples := []struct {
		platform models.Platform
		workflow models.Workflow
	}{
		{
			platform: models.Platform{
				Name:   "Clickbank",
				Type:   models.PlatformTypeAffiliate,
				Status: models.PlatformStatusConnected,
			},
			workflow: models.Workflow{
				Name:        "CB Scanner",
				Description: "Scan marketplace for high-gravity offers",
				Steps: []models.WorkflowStep{
					{Type: models.StepTypeTrigger, Config: map[string]interface{}{"event": "new_offer"}},
					{Type: models.StepTypeFilter, Config: map[string]interface{}{"min_commission": 40}},
					{Type: models.StepTypeAction, Config: map[string]interface{}{"kind": "promote"}},
				},
			},
		},
		{
			platform: models.Platform{
				Name:   "Freelancer",
				Type:   models.PlatformTypeFreelance,
				Status: models.PlatformStatusConnected,
			},
			workflow: models.Workflow{
				Name:        "Gig Bidder",
				Description: "Bid on matching writing gigs",
				Steps: []models.WorkflowStep{
					{Type: models.StepTypeTrigger, Config: map[string]interface{}{"event": "new_project"}},
					{Type: models.StepTypeFilter, Config: map[string]interface{}{"keywords": "copywriting"}},
					{Type: models.StepTypeAction, Config: map[string]interface{}{"kind": "bid"}},
				},
			},
		},
	}

	for _, sample := range samples {
		p, err := s.CreatePlatform(ctx, sample.platform)
		if err != nil {
			return fmt.Errorf("seed platform %q: %w", sample.platform.Name, err)
		}
		w := sample.workflow
		w.PlatformID = p.ID
		if _, err := s.CreateWorkflow(ctx, w); err != nil {
			return fmt.Errorf("seed workflow %q: %w", sample.workflow.Name, err)
		}
	}
	return nil
}
