package models

import "time"

// InferenceLog records a single call to the external text-generation model
// used for opportunity ranking.
type InferenceLog struct {
	ID           string    `json:"id"`
	Provider     string    `json:"provider"`
	Model        string    `json:"model"`
	Operation    string    `json:"operation"`
	TokensUsed   int       `json:"tokens_used"`
	LatencyMs    *int      `json:"latency_ms,omitempty"`
	Status       string    `json:"status"`
	ErrorMessage *string   `json:"error_message,omitempty"`
	Metadata     string    `json:"metadata,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}
