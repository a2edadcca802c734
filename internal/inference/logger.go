// Package inference records calls to external text-generation APIs so model
// spend stays auditable from the dashboard.
package inference

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/wolfauto/marketer/internal/models"
	"github.com/wolfauto/marketer/internal/storage"
)

// Logger persists inference calls through the store.
type Logger struct {
	store  storage.InferenceLogStore
	logger *slog.Logger
}

// NewLogger creates a new inference logger.
func NewLogger(store storage.InferenceLogStore, logger *slog.Logger) *Logger {
	return &Logger{store: store, logger: logger}
}

// CallParams describes one inference API call.
type CallParams struct {
	Provider   string
	Model      string
	Operation  string
	TokensUsed int
	Latency    time.Duration
	Err        error
	Metadata   map[string]interface{}
}

// LogCall records the call. Persistence happens asynchronously so a slow
// database never blocks the ranking path; failures are logged and dropped.
func (l *Logger) LogCall(ctx context.Context, params CallParams) {
	var metadataJSON string
	if params.Metadata != nil {
		if b, err := json.Marshal(params.Metadata); err == nil {
			metadataJSON = string(b)
		}
	}

	entry := models.InferenceLog{
		Provider:   params.Provider,
		Model:      params.Model,
		Operation:  params.Operation,
		TokensUsed: params.TokensUsed,
		Status:     "success",
		Metadata:   metadataJSON,
	}
	latencyMs := int(params.Latency.Milliseconds())
	entry.LatencyMs = &latencyMs
	if params.Err != nil {
		entry.Status = "error"
		msg := params.Err.Error()
		entry.ErrorMessage = &msg
	}

	go func() {
		if err := l.store.CreateInferenceLog(context.Background(), entry); err != nil {
			l.logger.Error("failed to log inference call", "error", err)
		}
	}()
}
