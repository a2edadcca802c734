// Package matcher ranks platform opportunities against the seller profile.
// Two implementations exist: an OpenAI-backed ranker and a rule-based one
// used in tests and when no API key is configured.
package matcher

import (
	"context"

	"github.com/wolfauto/marketer/internal/models"
)

// Matcher orders candidate opportunities by fit, best first. Candidates the
// implementation cannot judge are kept with a zero score rather than
// dropped; the caller decides any cutoff.
type Matcher interface {
	Rank(ctx context.Context, profile models.SellerProfile, candidates []models.Opportunity) ([]models.RankedOpportunity, error)
}
