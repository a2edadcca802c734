package matcher

import (
	"context"
	"testing"

	"github.com/wolfauto/marketer/internal/models"
)

func TestRuleMatcherRanksByOverlap(t *testing.T) {
	profile := models.SellerProfile{
		Skills:    []string{"Golang", "scraping"},
		Keywords:  []string{"automation"},
		MinBudget: 10000, // $100
	}

	candidates := []models.Opportunity{
		{ID: "a", Title: "WordPress theme tweak", Budget: 50000},
		{ID: "b", Title: "Golang scraping automation bot", Budget: 50000},
		{ID: "c", Title: "Golang microservice", Budget: 5000}, // under budget
	}

	ranked, err := NewRuleMatcher().Rank(context.Background(), profile, candidates)
	if err != nil {
		t.Fatalf("rank: %v", err)
	}
	if len(ranked) != 3 {
		t.Fatalf("expected 3 ranked, got %d", len(ranked))
	}

	if ranked[0].Opportunity.ID != "b" {
		t.Errorf("best match = %s, want b", ranked[0].Opportunity.ID)
	}
	if ranked[0].Score <= 0 {
		t.Errorf("best score = %v, want > 0", ranked[0].Score)
	}

	for _, r := range ranked {
		if r.Opportunity.ID == "a" {
			if r.Score != 0 {
				t.Errorf("no-overlap score = %v, want 0", r.Score)
			}
		}
		if r.Opportunity.ID == "c" {
			if r.Reason != "budget below profile minimum" {
				t.Errorf("under-budget reason = %q", r.Reason)
			}
		}
	}
}

func TestParseRanking(t *testing.T) {
	candidates := []models.Opportunity{{ID: "x"}, {ID: "y"}}

	tests := []struct {
		name    string
		content string
		wantErr bool
		first   string
	}{
		{
			name:    "plain array",
			content: `[{"index":1,"score":90,"reason":"fit"},{"index":0,"score":10,"reason":"weak"}]`,
			first:   "y",
		},
		{
			name:    "fenced array",
			content: "```json\n[{\"index\":0,\"score\":50,\"reason\":\"ok\"}]\n```",
			first:   "x",
		},
		{
			name:    "index out of range",
			content: `[{"index":7,"score":90,"reason":""}]`,
			wantErr: true,
		},
		{
			name:    "not json",
			content: "I think the first one is best.",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ranked, err := parseRanking(tt.content, candidates)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("parse: %v", err)
			}
			// Dropped candidates must survive with zero scores.
			if len(ranked) != len(candidates) {
				t.Fatalf("ranked %d of %d candidates", len(ranked), len(candidates))
			}
			if ranked[0].Opportunity.ID != tt.first {
				t.Errorf("first = %s, want %s", ranked[0].Opportunity.ID, tt.first)
			}
		})
	}
}
