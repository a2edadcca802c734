package matcher

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/wolfauto/marketer/internal/inference"
	"github.com/wolfauto/marketer/internal/models"
)

// OpenAIConfig holds configuration for the OpenAI ranking calls.
type OpenAIConfig struct {
	APIKey      string
	Model       string
	Temperature float32
	MaxTokens   int
}

// DefaultOpenAIConfig returns sensible defaults for ranking.
func DefaultOpenAIConfig() OpenAIConfig {
	return OpenAIConfig{
		Model:       openai.GPT4oMini,
		Temperature: 0.2, // Ranking should be close to deterministic
		MaxTokens:   1500,
	}
}

// ConfigFromEnv creates config from environment variables with defaults.
func ConfigFromEnv() OpenAIConfig {
	cfg := DefaultOpenAIConfig()
	cfg.APIKey = os.Getenv("OPENAI_API_KEY")
	if model := os.Getenv("OPENAI_MODEL"); model != "" {
		cfg.Model = model
	}
	if tempStr := os.Getenv("OPENAI_TEMPERATURE"); tempStr != "" {
		if temp, err := strconv.ParseFloat(tempStr, 32); err == nil {
			cfg.Temperature = float32(temp)
		}
	}
	return cfg
}

// OpenAIMatcher ranks opportunities with a chat-completion call.
type OpenAIMatcher struct {
	client          *openai.Client
	config          OpenAIConfig
	logger          *slog.Logger
	inferenceLogger *inference.Logger
}

// NewOpenAIMatcher creates an OpenAI-backed matcher.
func NewOpenAIMatcher(cfg OpenAIConfig, logger *slog.Logger, inferenceLogger *inference.Logger) *OpenAIMatcher {
	return &OpenAIMatcher{
		client:          openai.NewClient(cfg.APIKey),
		config:          cfg,
		logger:          logger,
		inferenceLogger: inferenceLogger,
	}
}

const rankingSystemPrompt = `You rank money-making opportunities for an online seller.
Given the seller profile and a numbered list of opportunities, return a JSON array of
objects {"index": <number>, "score": <0-100>, "reason": "<one sentence>"} covering every
opportunity, best fit first. Return only the JSON array.`

type rankedItem struct {
	Index  int     `json:"index"`
	Score  float64 `json:"score"`
	Reason string  `json:"reason"`
}

// Rank asks the model to score every candidate against the profile. Any
// upstream or parse failure is returned to the caller; there is no silent
// fallback to rules here.
func (m *OpenAIMatcher) Rank(ctx context.Context, profile models.SellerProfile, candidates []models.Opportunity) ([]models.RankedOpportunity, error) {
	if len(candidates) == 0 {
		return nil, nil
	}

	start := time.Now()
	resp, err := m.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       m.config.Model,
		Temperature: m.config.Temperature,
		MaxTokens:   m.config.MaxTokens,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: rankingSystemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: buildRankingPrompt(profile, candidates)},
		},
	})

	tokens := 0
	if err == nil {
		tokens = resp.Usage.TotalTokens
	}
	if m.inferenceLogger != nil {
		m.inferenceLogger.LogCall(ctx, inference.CallParams{
			Provider:   "openai",
			Model:      m.config.Model,
			Operation:  "rank_opportunities",
			TokensUsed: tokens,
			Latency:    time.Since(start),
			Err:        err,
			Metadata:   map[string]interface{}{"candidates": len(candidates)},
		})
	}
	if err != nil {
		return nil, fmt.Errorf("openai ranking call: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("openai ranking call returned no choices")
	}

	ranked, err := parseRanking(resp.Choices[0].Message.Content, candidates)
	if err != nil {
		return nil, err
	}

	m.logger.Debug("ranked opportunities",
		"candidates", len(candidates),
		"tokens", tokens,
		"latency_ms", time.Since(start).Milliseconds())
	return ranked, nil
}

func buildRankingPrompt(profile models.SellerProfile, candidates []models.Opportunity) string {
	var b strings.Builder
	b.WriteString("Seller profile:\n")
	b.WriteString("- skills: " + strings.Join(profile.Skills, ", ") + "\n")
	if len(profile.Keywords) > 0 {
		b.WriteString("- keywords: " + strings.Join(profile.Keywords, ", ") + "\n")
	}
	if profile.MinBudget > 0 {
		b.WriteString("- minimum budget: $" + profile.MinBudget.String() + "\n")
	}
	b.WriteString("\nOpportunities:\n")
	for i, c := range candidates {
		fmt.Fprintf(&b, "%d. %s ($%s) [%s] %s\n",
			i, c.Title, c.Budget.String(), strings.Join(c.Tags, ", "), c.Description)
	}
	return b.String()
}

// parseRanking decodes the model's JSON array, tolerating a markdown code
// fence around it. Out-of-range indexes fail the whole response.
func parseRanking(content string, candidates []models.Opportunity) ([]models.RankedOpportunity, error) {
	content = strings.TrimSpace(content)
	content = strings.TrimPrefix(content, "```json")
	content = strings.TrimPrefix(content, "```")
	content = strings.TrimSuffix(content, "```")

	var items []rankedItem
	if err := json.Unmarshal([]byte(strings.TrimSpace(content)), &items); err != nil {
		return nil, fmt.Errorf("parse ranking response: %w", err)
	}

	ranked := make([]models.RankedOpportunity, 0, len(items))
	seen := make(map[int]bool, len(items))
	for _, item := range items {
		if item.Index < 0 || item.Index >= len(candidates) {
			return nil, fmt.Errorf("ranking response references index %d outside %d candidates", item.Index, len(candidates))
		}
		if seen[item.Index] {
			continue
		}
		seen[item.Index] = true
		ranked = append(ranked, models.RankedOpportunity{
			Opportunity: candidates[item.Index],
			Score:       item.Score,
			Reason:      item.Reason,
		})
	}

	// The model occasionally drops candidates; keep them with zero scores.
	for i, c := range candidates {
		if !seen[i] {
			ranked = append(ranked, models.RankedOpportunity{Opportunity: c})
		}
	}
	return ranked, nil
}
