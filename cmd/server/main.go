package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	_ "github.com/lib/pq"
	"log/slog"

	"github.com/wolfauto/marketer/internal/api"
	"github.com/wolfauto/marketer/internal/auth"
	"github.com/wolfauto/marketer/internal/cloudsql"
	"github.com/wolfauto/marketer/internal/config"
	"github.com/wolfauto/marketer/internal/database"
	"github.com/wolfauto/marketer/internal/engine"
	"github.com/wolfauto/marketer/internal/inference"
	"github.com/wolfauto/marketer/internal/logging"
	"github.com/wolfauto/marketer/internal/matcher"
	"github.com/wolfauto/marketer/internal/metrics"
	"github.com/wolfauto/marketer/internal/payments"
	"github.com/wolfauto/marketer/internal/platforms"
	"github.com/wolfauto/marketer/internal/reporting"
	"github.com/wolfauto/marketer/internal/scheduler"
	"github.com/wolfauto/marketer/internal/server"
	"github.com/wolfauto/marketer/internal/storage"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.New(slog.NewJSONHandler(os.Stdout, nil)).Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger, err := logging.New(cfg.Logging)
	if err != nil {
		slog.New(slog.NewJSONHandler(os.Stdout, nil)).Error("failed to init logger", "error", err)
		os.Exit(1)
	}

	logger.Info("starting wolfauto marketer")

	store, closeStore, err := openStore(cfg.Database, logger)
	if err != nil {
		logger.Error("failed to open store", "error", err)
		os.Exit(1)
	}
	defer closeStore()

	if os.Getenv("SEED_DATA") == "true" {
		if err := storage.Seed(context.Background(), store); err != nil {
			logger.Warn("failed to seed sample data", "error", err)
		} else {
			logger.Info("seeded sample data")
		}
	}

	// Platform clients, built from whatever credentials are present. A
	// platform without a client still exists; it just cannot sync or run.
	registry := platforms.NewRegistry()
	if token := os.Getenv("FREELANCER_OAUTH_TOKEN"); token != "" {
		registry.Register(platforms.NewFreelancerClient(token, logger))
	}
	if key := os.Getenv("ETSY_API_KEY"); key != "" {
		registry.Register(platforms.NewEtsyClient(key, logger))
	}
	if dev := os.Getenv("CLICKBANK_DEV_KEY"); dev != "" {
		registry.Register(platforms.NewClickBankClient(dev, os.Getenv("CLICKBANK_CLERK_KEY"), logger))
	}
	if access := os.Getenv("AMAZON_ACCESS_KEY"); access != "" {
		registry.Register(platforms.NewAmazonClient(access,
			os.Getenv("AMAZON_SECRET_KEY"), os.Getenv("AMAZON_PARTNER_TAG"), logger))
	}
	logger.Info("platform clients registered", "platforms", registry.Names())

	// Opportunity matcher: OpenAI when a key is configured, rules otherwise.
	inferenceLogger := inference.NewLogger(store, logger)
	var oppMatcher matcher.Matcher
	if matcherCfg := matcher.ConfigFromEnv(); matcherCfg.APIKey != "" {
		logger.Info("using openai matcher", "model", matcherCfg.Model)
		oppMatcher = matcher.NewOpenAIMatcher(matcherCfg, logger, inferenceLogger)
	} else {
		logger.Info("OPENAI_API_KEY not set, using rule-based matcher")
		oppMatcher = matcher.NewRuleMatcher()
	}

	eng := engine.New(store, registry, logger)
	reporter := reporting.New(store)
	wallet := payments.NewService(store, payments.NoopGateway{}, logger)

	authConfig := auth.LoadConfigFromEnv()
	logger.Info("auth configured", "jwt_secret_set", authConfig.JWTSecret != "change-this-secret")

	mux := http.NewServeMux()

	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	mux.HandleFunc("/api/info", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"service":"wolfauto-marketer","status":"ready","version":"0.1.0"}`))
	})

	collector, err := metrics.NewHTTPCollector()
	if err != nil {
		logger.Error("failed to init metrics", "error", err)
		os.Exit(1)
	}
	mux.Handle("/metrics", collector.Handler())

	api.SetupRoutes(mux, api.Dependencies{
		Store:      store,
		Registry:   registry,
		Engine:     eng,
		Reporter:   reporter,
		Wallet:     wallet,
		Matcher:    oppMatcher,
		AuthConfig: authConfig,
		Logger:     logger,
	})

	var workflowScheduler *scheduler.WorkflowScheduler
	if cfg.Scheduler.Enabled {
		workflowScheduler = scheduler.NewWorkflowScheduler(store, eng, logger)
		go workflowScheduler.Start(context.Background())
	} else {
		logger.Info("workflow scheduler disabled")
	}

	// Wrap with SPA middleware to serve the dashboard for non-API routes.
	handler := server.SPAMiddleware(collector.InstrumentHandler(mux), "./web/dist", "./web/dist/index.html")

	srv := server.New(cfg.Server, logger, handler)
	go func() {
		if err := srv.Start(); err != nil {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	logger.Info("wolfauto marketer started")
	logger.Info("API available", "url", fmt.Sprintf("http://localhost:%s", cfg.Server.Port))

	waitForSignal(logger)

	logger.Info("shutting down")
	if workflowScheduler != nil {
		workflowScheduler.Stop()
	}
	if err := srv.Shutdown(context.Background()); err != nil {
		logger.Error("shutdown error", "error", err)
	}
	logger.Info("shutdown complete")
}

// openStore connects to Postgres when a database is configured and falls
// back to the in-memory store otherwise, so the dashboard runs with zero
// infrastructure in development.
func openStore(dbCfg config.DatabaseConfig, logger *slog.Logger) (storage.Store, func(), error) {
	if dbCfg.URL == "" && os.Getenv("INSTANCE_CONNECTION_NAME") == "" {
		logger.Info("no database configured, using in-memory store")
		return storage.NewMemoryStore(), func() {}, nil
	}

	dbURL := dbCfg.URL
	if dbURL == "" {
		built, err := cloudsql.BuildDatabaseURL()
		if err != nil {
			return nil, nil, fmt.Errorf("build database url: %w", err)
		}
		dbURL = built
		logger.Info("database configuration", "config", cloudsql.GetConnectionConfig())
	}

	connCfg := database.DefaultConfig()
	connCfg.URL = dbURL
	db, err := database.Connect(context.Background(), connCfg)
	if err != nil {
		return nil, nil, fmt.Errorf("connect database: %w", err)
	}
	logger.Info("database connected")

	if err := database.RunMigrations(db, "./migrations", logger); err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("run migrations: %w", err)
	}

	return database.NewStore(db), func() { db.Close() }, nil
}

func waitForSignal(logger *slog.Logger) {
	c := make(chan os.Signal, 1)
	signal.Notify(c, syscall.SIGINT, syscall.SIGTERM)
	sig := <-c
	logger.Info("received signal", "signal", sig.String())
	signal.Stop(c)
	close(c)
}
