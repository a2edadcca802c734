package api

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/wolfauto/marketer/internal/auth"
	"github.com/wolfauto/marketer/internal/engine"
	"github.com/wolfauto/marketer/internal/matcher"
	"github.com/wolfauto/marketer/internal/models"
	"github.com/wolfauto/marketer/internal/payments"
	"github.com/wolfauto/marketer/internal/platforms"
	"github.com/wolfauto/marketer/internal/reporting"
	"github.com/wolfauto/marketer/internal/storage"
)

// stubClient backs the registry in handler tests.
type stubClient struct {
	name    string
	results []models.Opportunity
}

func (s *stubClient) Name() string                             { return s.name }
func (s *stubClient) Type() models.PlatformType                { return models.PlatformTypeFreelance }
func (s *stubClient) TestConnection(ctx context.Context) error { return nil }
func (s *stubClient) Search(ctx context.Context, query string, limit int) ([]models.Opportunity, error) {
	return s.results, nil
}
func (s *stubClient) Details(ctx context.Context, id string) (*models.Opportunity, error) {
	return nil, nil
}

type testEnv struct {
	mux   *http.ServeMux
	store *storage.MemoryStore
	token string
}

func setupAPI(t *testing.T) *testEnv {
	t.Helper()
	logger := slog.Default()
	store := storage.NewMemoryStore()
	registry := platforms.NewRegistry(&stubClient{
		name:    "Freelancer",
		results: []models.Opportunity{{ID: "1", Title: "Golang scraper", Budget: 50000}},
	})

	authConfig := auth.Config{
		JWTSecret:     "test-secret",
		AdminPassword: "test-password",
		TokenDuration: time.Hour,
	}
	token, err := auth.GenerateToken("admin", authConfig.JWTSecret, authConfig.TokenDuration)
	if err != nil {
		t.Fatalf("generate token: %v", err)
	}

	mux := http.NewServeMux()
	SetupRoutes(mux, Dependencies{
		Store:      store,
		Registry:   registry,
		Engine:     engine.New(store, registry, logger),
		Reporter:   reporting.New(store),
		Wallet:     payments.NewService(store, payments.NoopGateway{}, logger),
		Matcher:    matcher.NewRuleMatcher(),
		AuthConfig: authConfig,
		Logger:     logger,
	})
	return &testEnv{mux: mux, store: store, token: token}
}

func (e *testEnv) do(t *testing.T, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Authorization", "Bearer "+e.token)
	rec := httptest.NewRecorder()
	e.mux.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	if err := json.NewDecoder(rec.Body).Decode(v); err != nil {
		t.Fatalf("decode response: %v", err)
	}
}

func TestPlatformCRUD(t *testing.T) {
	env := setupAPI(t)

	var created models.Platform
	t.Run("create returns 201", func(t *testing.T) {
		rec := env.do(t, http.MethodPost, "/api/platforms", models.Platform{
			Name:   "Freelancer",
			Type:   models.PlatformTypeFreelance,
			Status: models.PlatformStatusConnected,
		})
		if rec.Code != http.StatusCreated {
			t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
		}
		decode(t, rec, &created)
		if created.ID == "" {
			t.Fatal("created platform has no id")
		}
	})

	t.Run("duplicate name is a 400", func(t *testing.T) {
		rec := env.do(t, http.MethodPost, "/api/platforms", models.Platform{
			Name: "FREELANCER",
			Type: models.PlatformTypeFreelance,
		})
		if rec.Code != http.StatusBadRequest {
			t.Errorf("status = %d, want 400", rec.Code)
		}
	})

	t.Run("missing type is a 400", func(t *testing.T) {
		rec := env.do(t, http.MethodPost, "/api/platforms", models.Platform{Name: "Etsy"})
		if rec.Code != http.StatusBadRequest {
			t.Errorf("status = %d, want 400", rec.Code)
		}
	})

	t.Run("get unknown id is a 404", func(t *testing.T) {
		rec := env.do(t, http.MethodGet, "/api/platforms/nope", nil)
		if rec.Code != http.StatusNotFound {
			t.Errorf("status = %d, want 404", rec.Code)
		}
	})

	t.Run("delete returns 204 then 404", func(t *testing.T) {
		rec := env.do(t, http.MethodDelete, "/api/platforms/"+created.ID, nil)
		if rec.Code != http.StatusNoContent {
			t.Fatalf("status = %d, want 204", rec.Code)
		}
		rec = env.do(t, http.MethodDelete, "/api/platforms/"+created.ID, nil)
		if rec.Code != http.StatusNotFound {
			t.Errorf("second delete status = %d, want 404", rec.Code)
		}
	})
}

func TestMutationsRequireAuth(t *testing.T) {
	env := setupAPI(t)

	req := httptest.NewRequest(http.MethodPost, "/api/platforms", bytes.NewBufferString(`{}`))
	rec := httptest.NewRecorder()
	env.mux.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("unauthenticated POST status = %d, want 401", rec.Code)
	}

	// Reads stay public.
	req = httptest.NewRequest(http.MethodGet, "/api/platforms", nil)
	rec = httptest.NewRecorder()
	env.mux.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Errorf("unauthenticated GET status = %d, want 200", rec.Code)
	}
}

func TestWorkflowCreateLogsActivity(t *testing.T) {
	env := setupAPI(t)
	ctx := context.Background()

	platform, _ := env.store.CreatePlatform(ctx, models.Platform{
		Name: "Clickbank", Type: models.PlatformTypeAffiliate, Status: models.PlatformStatusConnected,
	})

	rec := env.do(t, http.MethodPost, "/api/workflows", models.Workflow{
		Name:       "CB Scanner",
		PlatformID: platform.ID,
		Steps: []models.WorkflowStep{
			{Type: models.StepTypeTrigger, Config: map[string]interface{}{"query": "cb"}},
		},
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}

	var created models.Workflow
	decode(t, rec, &created)
	if created.NextRun == nil {
		t.Fatal("created workflow has no next run")
	}
	if until := time.Until(*created.NextRun); until < 14*time.Minute || until > 16*time.Minute {
		t.Errorf("next run in %v, want about 15 minutes", until)
	}

	activities, err := env.store.ListActivities(ctx, 10, models.ActivityTypeSystem, "")
	if err != nil {
		t.Fatalf("list activities: %v", err)
	}
	found := false
	for _, a := range activities {
		if strings.Contains(a.Title, "Workflow created") {
			found = true
			if a.WorkflowID != created.ID {
				t.Errorf("activity workflow id = %q, want %q", a.WorkflowID, created.ID)
			}
		}
	}
	if !found {
		t.Errorf("no system activity titled with %q, got %+v", "Workflow created", activities)
	}
}

func TestWorkflowRunEndpoint(t *testing.T) {
	env := setupAPI(t)
	ctx := context.Background()

	platform, _ := env.store.CreatePlatform(ctx, models.Platform{
		Name: "Freelancer", Type: models.PlatformTypeFreelance, Status: models.PlatformStatusConnected,
	})
	workflow, _ := env.store.CreateWorkflow(ctx, models.Workflow{
		Name:       "Scanner",
		PlatformID: platform.ID,
		Steps: []models.WorkflowStep{
			{Type: models.StepTypeTrigger, Config: map[string]interface{}{"query": "golang"}},
		},
	})

	t.Run("run succeeds", func(t *testing.T) {
		rec := env.do(t, http.MethodPost, "/api/workflows/"+workflow.ID+"/run", nil)
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
		}
		var result engine.RunResult
		decode(t, rec, &result)
		if !result.Success || result.Matched != 1 {
			t.Errorf("result = %+v", result)
		}
	})

	t.Run("disconnected platform is a 400", func(t *testing.T) {
		status := models.PlatformStatusDisconnected
		env.store.UpdatePlatform(ctx, platform.ID, models.PlatformUpdate{Status: &status})

		rec := env.do(t, http.MethodPost, "/api/workflows/"+workflow.ID+"/run", nil)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("status = %d, want 400", rec.Code)
		}
	})

	t.Run("unknown workflow is a 404", func(t *testing.T) {
		rec := env.do(t, http.MethodPost, "/api/workflows/nope/run", nil)
		if rec.Code != http.StatusNotFound {
			t.Errorf("status = %d, want 404", rec.Code)
		}
	})
}

func TestTaskStatusEndpoint(t *testing.T) {
	env := setupAPI(t)
	ctx := context.Background()

	platform, _ := env.store.CreatePlatform(ctx, models.Platform{
		Name: "Etsy", Type: models.PlatformTypeAffiliate, Status: models.PlatformStatusConnected,
	})
	task, _ := env.store.CreateTask(ctx, models.Task{PlatformID: platform.ID})

	t.Run("pending to completed", func(t *testing.T) {
		rec := env.do(t, http.MethodPut, "/api/tasks/"+task.ID+"/status",
			map[string]string{"status": "completed"})
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
		}
	})

	t.Run("terminal task conflicts", func(t *testing.T) {
		rec := env.do(t, http.MethodPut, "/api/tasks/"+task.ID+"/status",
			map[string]string{"status": "failed"})
		if rec.Code != http.StatusConflict {
			t.Errorf("status = %d, want 409", rec.Code)
		}
	})

	t.Run("pending is not a valid target", func(t *testing.T) {
		other, _ := env.store.CreateTask(ctx, models.Task{PlatformID: platform.ID})
		rec := env.do(t, http.MethodPut, "/api/tasks/"+other.ID+"/status",
			map[string]string{"status": "pending"})
		if rec.Code != http.StatusBadRequest {
			t.Errorf("status = %d, want 400", rec.Code)
		}
	})
}

func TestWalletWithdrawEndpoint(t *testing.T) {
	env := setupAPI(t)
	env.store.AdjustBalance(context.Background(), 200000) // $2000

	t.Run("withdraw within limit", func(t *testing.T) {
		rec := env.do(t, http.MethodPost, "/api/wallet/withdraw",
			map[string]interface{}{"amount_cents": 30000, "method": "paypal"})
		if rec.Code != http.StatusCreated {
			t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
		}
	})

	t.Run("over daily limit surfaces remainder", func(t *testing.T) {
		rec := env.do(t, http.MethodPost, "/api/wallet/withdraw",
			map[string]interface{}{"amount_cents": 30000, "method": "paypal"})
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("status = %d, want 400", rec.Code)
		}
		var body map[string]interface{}
		decode(t, rec, &body)
		if body["remaining_today"] != "200.00" {
			t.Errorf("remaining_today = %v, want 200.00", body["remaining_today"])
		}
	})

	t.Run("wallet reflects the one successful withdrawal", func(t *testing.T) {
		rec := env.do(t, http.MethodGet, "/api/wallet", nil)
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d", rec.Code)
		}
		var body map[string]interface{}
		decode(t, rec, &body)
		if body["balance"] != "1700.00" {
			t.Errorf("balance = %v, want 1700.00", body["balance"])
		}
	})
}

func TestMatchEndpoint(t *testing.T) {
	env := setupAPI(t)
	ctx := context.Background()

	platform, _ := env.store.CreatePlatform(ctx, models.Platform{
		Name: "Freelancer", Type: models.PlatformTypeFreelance, Status: models.PlatformStatusConnected,
	})

	rec := env.do(t, http.MethodPost, "/api/match", matchRequest{
		PlatformID: platform.ID,
		Query:      "golang",
		Profile:    models.SellerProfile{Skills: []string{"golang"}},
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}

	var body struct {
		Candidates int                        `json:"candidates"`
		Matches    []models.RankedOpportunity `json:"matches"`
	}
	decode(t, rec, &body)
	if body.Candidates != 1 || len(body.Matches) != 1 {
		t.Fatalf("body = %+v", body)
	}
	if body.Matches[0].Score <= 0 {
		t.Errorf("score = %v, want > 0", body.Matches[0].Score)
	}
}
