package matcher

import (
	"context"
	"sort"
	"strings"

	"github.com/wolfauto/marketer/internal/models"
)

// RuleMatcher scores opportunities without any API calls: tag and keyword
// overlap plus a budget threshold. It backs tests and deployments with no
// OpenAI key.
type RuleMatcher struct{}

// NewRuleMatcher creates a rule-based matcher.
func NewRuleMatcher() *RuleMatcher {
	return &RuleMatcher{}
}

// Rank scores each candidate by profile overlap, best first. Ties keep the
// candidate order stable.
func (m *RuleMatcher) Rank(ctx context.Context, profile models.SellerProfile, candidates []models.Opportunity) ([]models.RankedOpportunity, error) {
	ranked := make([]models.RankedOpportunity, 0, len(candidates))
	for _, c := range candidates {
		score, reason := m.score(profile, c)
		ranked = append(ranked, models.RankedOpportunity{Opportunity: c, Score: score, Reason: reason})
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Score > ranked[j].Score
	})
	return ranked, nil
}

func (m *RuleMatcher) score(profile models.SellerProfile, c models.Opportunity) (float64, string) {
	haystack := strings.ToLower(c.Title + " " + c.Description + " " + strings.Join(c.Tags, " "))

	var hits int
	for _, skill := range profile.Skills {
		if strings.Contains(haystack, strings.ToLower(skill)) {
			hits += 2
		}
	}
	for _, kw := range profile.Keywords {
		if strings.Contains(haystack, strings.ToLower(kw)) {
			hits++
		}
	}

	score := float64(hits) * 10
	if score > 90 {
		score = 90
	}
	switch {
	case profile.MinBudget > 0 && c.Budget < profile.MinBudget:
		score /= 2
		return score, "budget below profile minimum"
	case hits == 0:
		return 0, "no skill or keyword overlap"
	default:
		return score, "matched profile terms"
	}
}
