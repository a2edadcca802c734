package models

// Opportunity is a single money-making lead pulled from a platform: a
// freelance project, an affiliate product, a storefront listing. The
// matcher ranks these against the seller profile.
type Opportunity struct {
	ID          string   `json:"id"`
	PlatformID  string   `json:"platform_id,omitempty"`
	Title       string   `json:"title"`
	Description string   `json:"description,omitempty"`
	URL         string   `json:"url,omitempty"`
	Budget      Cents    `json:"budget"`
	Tags        []string `json:"tags,omitempty"`
}

// SellerProfile describes what the operator can deliver. It drives
// opportunity ranking.
type SellerProfile struct {
	Skills    []string `json:"skills"`
	Keywords  []string `json:"keywords,omitempty"`
	MinBudget Cents    `json:"min_budget"`
}

// RankedOpportunity is an opportunity with the matcher's verdict attached.
type RankedOpportunity struct {
	Opportunity Opportunity `json:"opportunity"`
	Score       float64     `json:"score"`
	Reason      string      `json:"reason,omitempty"`
}
