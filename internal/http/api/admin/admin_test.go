package admin

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/router-for-me/AnswerGateway/internal/answers"
	"github.com/router-for-me/AnswerGateway/internal/catalog"
	"github.com/router-for-me/AnswerGateway/internal/db"
	"github.com/router-for-me/AnswerGateway/internal/entitlement"
	"github.com/router-for-me/AnswerGateway/internal/metrics"
	"github.com/router-for-me/AnswerGateway/internal/models"
	"github.com/router-for-me/AnswerGateway/internal/usage"
	"golang.org/x/crypto/bcrypt"
)

const testAdminKey = "operator-key"

type adminEnv struct {
	engine   *gin.Engine
	store    *answers.Store
	tracker  *entitlement.Tracker
	recorder *usage.GormRecorder
}

func newAdminEnv(t *testing.T) *adminEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)
	conn, err := db.Open(filepath.Join(t.TempDir(), "admin.db"))
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if errMigrate := db.Migrate(conn); errMigrate != nil {
		t.Fatalf("migrate: %v", errMigrate)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(testAdminKey), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}

	store := answers.NewStore(conn, nil)
	tracker := entitlement.NewTracker(conn, entitlement.DefaultLimits(), nil)
	recorder := usage.NewGormRecorder(conn, nil)
	engine := gin.New()
	RegisterAdminRoutes(engine, Deps{
		DB:           conn,
		Tracker:      tracker,
		Catalog:      catalog.NewService(store),
		Usage:        recorder,
		AdminKeyHash: string(hash),
	})
	return &adminEnv{engine: engine, store: store, tracker: tracker, recorder: recorder}
}

func (e *adminEnv) do(t *testing.T, method, path, key string, body any) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	var payload bytes.Buffer
	if body != nil {
		if errEncode := json.NewEncoder(&payload).Encode(body); errEncode != nil {
			t.Fatalf("encode: %v", errEncode)
		}
	}
	req := httptest.NewRequest(method, path, &payload)
	req.Header.Set("Content-Type", "application/json")
	if key != "" {
		req.Header.Set("X-Admin-Key", key)
	}
	rec := httptest.NewRecorder()
	e.engine.ServeHTTP(rec, req)
	out := map[string]any{}
	_ = json.Unmarshal(rec.Body.Bytes(), &out)
	return rec, out
}

func TestHealthz(t *testing.T) {
	env := newAdminEnv(t)
	rec, body := env.do(t, http.MethodGet, "/healthz", "", nil)
	if rec.Code != http.StatusOK || body["status"] != "ok" {
		t.Fatalf("expected healthy, got %d %v", rec.Code, body)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	env := newAdminEnv(t)
	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	env.engine.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

func TestPublishAndRevise(t *testing.T) {
	env := newAdminEnv(t)
	answer, err := env.store.InsertNew(context.Background(), "mozaik:generic:how-do-i-calibrate-the-cam", answers.NewAnswer{
		Question: "How do I calibrate the CAM?",
		Text:     "Open the **CAM** settings.",
	})
	if err != nil {
		t.Fatalf("insert: %v", err)
	}
	path := "/v0/admin/answers/" + strconv.FormatUint(answer.ID, 10)

	rec, _ := env.do(t, http.MethodPost, path+"/publish", "", nil)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without key, got %d", rec.Code)
	}

	rec, body := env.do(t, http.MethodPost, path+"/publish", testAdminKey, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %v", rec.Code, body)
	}
	published, _ := body["answer"].(map[string]any)
	if published["published"] != true || published["publishedUrl"] != "mozaik/generic/how-do-i-calibrate-the-cam" {
		t.Fatalf("unexpected published answer %v", published)
	}

	rec, body = env.do(t, http.MethodPut, path, testAdminKey, gin.H{"answer": "Use the calibration wizard."})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %v", rec.Code, body)
	}
	revised, _ := body["answer"].(map[string]any)
	if revised["published"] != false || revised["answer"] != "Use the calibration wizard." {
		t.Fatalf("expected revised answer withdrawn, got %v", revised)
	}

	rec, _ = env.do(t, http.MethodPost, "/v0/admin/answers/404/publish", testAdminKey, nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestChangePlan(t *testing.T) {
	env := newAdminEnv(t)
	user, err := env.tracker.FindOrCreate(context.Background(), "sub-1", "a@example.com")
	if err != nil {
		t.Fatalf("find or create: %v", err)
	}
	path := "/v0/admin/users/" + strconv.FormatUint(user.ID, 10) + "/plan"

	rec, body := env.do(t, http.MethodPut, path, testAdminKey, gin.H{"plan": "pro"})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %v", rec.Code, body)
	}
	updated, _ := body["user"].(map[string]any)
	if updated["plan"] != string(models.PlanProfessional) {
		t.Fatalf("expected professional plan, got %v", updated["plan"])
	}

	rec, _ = env.do(t, http.MethodPut, path, testAdminKey, gin.H{"plan": "platinum"})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for unknown plan, got %d", rec.Code)
	}
	rec, _ = env.do(t, http.MethodPut, "/v0/admin/users/9999/plan", testAdminKey, gin.H{"plan": "free"})
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown user, got %d", rec.Code)
	}
}

func TestAdminErrorsCarryKind(t *testing.T) {
	env := newAdminEnv(t)
	cases := []struct {
		method string
		path   string
		key    string
		body   any
		status int
		kind   string
	}{
		{http.MethodPut, "/v0/admin/answers/1", testAdminKey, "not an object", http.StatusBadRequest, "invalid_argument"},
		{http.MethodPut, "/v0/admin/users/1/plan", testAdminKey, "not an object", http.StatusBadRequest, "invalid_argument"},
		{http.MethodPut, "/v0/admin/users/1/plan", "", gin.H{"plan": "free"}, http.StatusUnauthorized, "unauthorized"},
		{http.MethodPut, "/v0/admin/users/1/plan", "wrong-key", gin.H{"plan": "free"}, http.StatusUnauthorized, "unauthorized"},
	}
	for _, tc := range cases {
		rec, body := env.do(t, tc.method, tc.path, tc.key, tc.body)
		if rec.Code != tc.status || body["kind"] != tc.kind {
			t.Fatalf("%s %s: expected %d %s, got %d %v", tc.method, tc.path, tc.status, tc.kind, rec.Code, body)
		}
	}
}

func TestUsageSummary(t *testing.T) {
	env := newAdminEnv(t)
	env.recorder.Record(context.Background(), usage.Record{UserID: 1, Plan: models.PlanFree, Model: "small", Outcome: metrics.OutcomeMiss, CompletionTokens: 5})

	rec, body := env.do(t, http.MethodGet, "/v0/admin/usage/summary?days=3", testAdminKey, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %v", rec.Code, body)
	}
	days, _ := body["days"].([]any)
	if len(days) != 3 {
		t.Fatalf("expected 3 days, got %v", body["days"])
	}
	today, _ := days[2].(map[string]any)
	if today["misses"] != float64(1) || today["completionTokens"] != float64(5) {
		t.Fatalf("unexpected today %v", today)
	}

	rec, _ = env.do(t, http.MethodGet, "/v0/admin/usage/summary?days=abc", testAdminKey, nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}
