package api

import (
	"net/http"

	"log/slog"

	"github.com/wolfauto/marketer/internal/auth"
	"github.com/wolfauto/marketer/internal/engine"
	"github.com/wolfauto/marketer/internal/matcher"
	"github.com/wolfauto/marketer/internal/payments"
	"github.com/wolfauto/marketer/internal/platforms"
	"github.com/wolfauto/marketer/internal/reporting"
	"github.com/wolfauto/marketer/internal/storage"
)

// Dependencies carries everything the router wires into handlers.
type Dependencies struct {
	Store      storage.Store
	Registry   *platforms.Registry
	Engine     *engine.Engine
	Reporter   *reporting.Reporter
	Wallet     *payments.Service
	Matcher    matcher.Matcher
	AuthConfig auth.Config
	Logger     *slog.Logger
}

// SetupRoutes configures all API routes. Reads are public; every mutation
// sits behind the admin JWT middleware.
func SetupRoutes(mux *http.ServeMux, deps Dependencies) {
	logger := deps.Logger

	platformHandler := NewPlatformHandler(deps.Store, deps.Registry, logger)
	workflowHandler := NewWorkflowHandler(deps.Store, deps.Engine, logger)
	taskHandler := NewTaskHandler(deps.Store, logger)
	activityHandler := NewActivityHandler(deps.Store, logger)
	reportHandler := NewReportHandler(deps.Reporter, logger)
	walletHandler := NewWalletHandler(deps.Store, deps.Wallet, logger)
	matchHandler := NewMatchHandler(deps.Store, deps.Registry, deps.Matcher, logger)
	inferenceLogHandler := NewInferenceLogHandler(deps.Store, logger)
	authHandler := NewAuthHandler(deps.AuthConfig, logger)

	authMiddleware := auth.AuthMiddleware(deps.AuthConfig)

	// adminWrites leaves GET and OPTIONS public and pushes every other
	// method through the JWT middleware.
	adminWrites := func(h http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			if r.Method == http.MethodGet || r.Method == http.MethodOptions {
				h(w, r)
				return
			}
			authMiddleware(h).ServeHTTP(w, r)
		}
	}

	// Authentication
	mux.HandleFunc("/api/auth/login", authHandler.Login)
	mux.HandleFunc("/api/auth/validate", func(w http.ResponseWriter, r *http.Request) {
		authMiddleware(http.HandlerFunc(authHandler.ValidateToken)).ServeHTTP(w, r)
	})

	// Platforms
	mux.HandleFunc("/api/platforms", adminWrites(platformHandler.HandleCollection))
	mux.HandleFunc("/api/platforms/", adminWrites(platformHandler.HandleItem))

	// Workflows
	mux.HandleFunc("/api/workflows", adminWrites(workflowHandler.HandleCollection))
	mux.HandleFunc("/api/workflows/", adminWrites(workflowHandler.HandleItem))

	// Tasks
	mux.HandleFunc("/api/tasks", adminWrites(taskHandler.HandleCollection))
	mux.HandleFunc("/api/tasks/", adminWrites(taskHandler.HandleItem))

	// Activity trail
	mux.HandleFunc("/api/activities", adminWrites(activityHandler.HandleCollection))

	// Reports (read-only, public)
	mux.HandleFunc("/api/reports/earnings", reportHandler.HandleEarnings)
	mux.HandleFunc("/api/reports/earnings/series", reportHandler.HandleEarningsSeries)
	mux.HandleFunc("/api/reports/workflows", reportHandler.HandleWorkflows)
	mux.HandleFunc("/api/reports/platforms/", reportHandler.HandlePlatform)
	mux.HandleFunc("/api/reports/system", reportHandler.HandleSystem)

	// Wallet
	mux.HandleFunc("/api/wallet", walletHandler.HandleWallet)
	mux.HandleFunc("/api/wallet/withdraw", adminWrites(walletHandler.HandleWithdraw))

	// Opportunity matching
	mux.HandleFunc("/api/match", adminWrites(matchHandler.HandleMatch))

	// Model call audit log
	mux.HandleFunc("/api/inference-logs", inferenceLogHandler.HandleList)
}
