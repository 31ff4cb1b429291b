package httpapi_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/xuri/excelize/v2"

	"github.com/p-n-ai/pai-adaptive/internal/adaptive"
	"github.com/p-n-ai/pai-adaptive/internal/curriculum"
	"github.com/p-n-ai/pai-adaptive/internal/httpapi"
)

type checkFunc func(ctx context.Context) error

func (f checkFunc) HealthCheck(ctx context.Context) error { return f(ctx) }

func newServer(t *testing.T, checks map[string]httpapi.Checker) http.Handler {
	t.Helper()
	cat, err := curriculum.Default()
	if err != nil {
		t.Fatalf("Default() error = %v", err)
	}
	engine, err := adaptive.NewEngine(adaptive.EngineConfig{Catalog: cat})
	if err != nil {
		t.Fatalf("NewEngine() error = %v", err)
	}
	srv, err := httpapi.New(httpapi.Options{Engine: engine, Checks: checks})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return srv.Handler()
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), v); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
}

func register(t *testing.T, h http.Handler, id string) {
	t.Helper()
	rec := do(t, h, http.MethodPost, "/api/register", `{"user_id":"`+id+`","profile":{"name":"Alice","pace":"slow"}}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("register status = %d, body = %s", rec.Code, rec.Body.String())
	}
}

func TestNew_RequiresEngine(t *testing.T) {
	if _, err := httpapi.New(httpapi.Options{}); err == nil {
		t.Fatal("New() should require an engine")
	}
}

func TestHealthEndpoints(t *testing.T) {
	healthy := map[string]httpapi.Checker{
		"database": checkFunc(func(context.Context) error { return nil }),
	}
	broken := map[string]httpapi.Checker{
		"database": checkFunc(func(context.Context) error { return nil }),
		"cache":    checkFunc(func(context.Context) error { return errors.New("connection refused") }),
	}

	tests := []struct {
		name       string
		checks     map[string]httpapi.Checker
		path       string
		wantStatus int
		wantBody   string
	}{
		{"healthz returns 200", nil, "/healthz", http.StatusOK, `{"status":"ok"}`},
		{"readyz without checks", nil, "/readyz", http.StatusOK, `"status":"ready"`},
		{"readyz with healthy deps", healthy, "/readyz", http.StatusOK, `"status":"ready"`},
		{"readyz with failing dep", broken, "/readyz", http.StatusServiceUnavailable, `"cache":"connection refused"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, newServer(t, tt.checks), http.MethodGet, tt.path, "")

			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			if !strings.Contains(rec.Body.String(), tt.wantBody) {
				t.Errorf("body = %q, want it to contain %q", rec.Body.String(), tt.wantBody)
			}
		})
	}
}

func TestLearnerFlow(t *testing.T) {
	h := newServer(t, nil)
	register(t, h, "alice")

	rec := do(t, h, http.MethodGet, "/api/content?user_id=alice", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("content status = %d, body = %s", rec.Code, rec.Body.String())
	}
	var content struct {
		Available bool   `json:"available"`
		ContentID string `json:"content_id"`
		Content   struct {
			Questions []struct {
				CorrectIndex int `json:"correct_index"`
			} `json:"questions"`
		} `json:"content"`
		Reason string `json:"recommendation_reason"`
	}
	decodeBody(t, rec, &content)
	if !content.Available || content.ContentID != "stats_basics" {
		t.Fatalf("content = %+v, want stats_basics", content)
	}
	if content.Reason == "" {
		t.Error("recommendation_reason should be set")
	}

	correct := content.Content.Questions[0].CorrectIndex
	body, _ := json.Marshal(map[string]any{
		"user_id":         "alice",
		"content_id":      "stats_basics",
		"question_idx":    0,
		"selected_option": correct,
	})
	rec = do(t, h, http.MethodPost, "/api/answer", string(body))
	if rec.Code != http.StatusOK {
		t.Fatalf("answer status = %d, body = %s", rec.Code, rec.Body.String())
	}
	var grade struct {
		Correct     bool `json:"is_correct"`
		Performance struct {
			Attempts int `json:"attempts"`
		} `json:"performance_summary"`
	}
	decodeBody(t, rec, &grade)
	if !grade.Correct || grade.Performance.Attempts != 1 {
		t.Errorf("grade = %+v", grade)
	}

	rec = do(t, h, http.MethodGet, "/api/analytics?user_id=alice", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("analytics status = %d", rec.Code)
	}
	var analytics struct {
		Overall struct {
			TotalAttempts int `json:"total_attempts"`
		} `json:"overall_performance"`
		State string `json:"learning_state"`
	}
	decodeBody(t, rec, &analytics)
	if analytics.Overall.TotalAttempts != 1 || analytics.State != "excelling" {
		t.Errorf("analytics = %+v", analytics)
	}

	rec = do(t, h, http.MethodGet, "/api/stats", "")
	var stats struct {
		TotalLearners     int `json:"total_learners"`
		TotalInteractions int `json:"total_interactions"`
	}
	decodeBody(t, rec, &stats)
	if stats.TotalLearners != 1 || stats.TotalInteractions != 1 {
		t.Errorf("stats = %+v", stats)
	}
}

func TestErrorMapping(t *testing.T) {
	h := newServer(t, nil)
	register(t, h, "alice")

	tests := []struct {
		name       string
		method     string
		path       string
		body       string
		wantStatus int
	}{
		{"content unknown learner", http.MethodGet, "/api/content?user_id=ghost", "", http.StatusNotFound},
		{"content missing user", http.MethodGet, "/api/content", "", http.StatusBadRequest},
		{"analytics unknown learner", http.MethodGet, "/api/analytics?user_id=ghost", "", http.StatusNotFound},
		{"register bad json", http.MethodPost, "/api/register", `{`, http.StatusBadRequest},
		{"register empty id", http.MethodPost, "/api/register", `{"user_id":" "}`, http.StatusBadRequest},
		{"register bad pace", http.MethodPost, "/api/register", `{"user_id":"bob","profile":{"pace":"warp"}}`, http.StatusBadRequest},
		{"answer missing fields", http.MethodPost, "/api/answer", `{"user_id":"alice","content_id":"stats_basics"}`, http.StatusBadRequest},
		{
			"answer unknown content", http.MethodPost, "/api/answer",
			`{"user_id":"alice","content_id":"nope","question_idx":0,"selected_option":0}`, http.StatusNotFound,
		},
		{
			"answer question out of range", http.MethodPost, "/api/answer",
			`{"user_id":"alice","content_id":"stats_basics","question_idx":3,"selected_option":0}`, http.StatusBadRequest,
		},
		{
			"answer option out of range", http.MethodPost, "/api/answer",
			`{"user_id":"alice","content_id":"stats_basics","question_idx":0,"selected_option":9}`, http.StatusBadRequest,
		},
		{"wrong method", http.MethodGet, "/api/answer", "", http.StatusMethodNotAllowed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, h, tt.method, tt.path, tt.body)
			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d (body %s)", rec.Code, tt.wantStatus, rec.Body.String())
			}
			if tt.wantStatus != http.StatusMethodNotAllowed && !strings.Contains(rec.Body.String(), `"error"`) {
				t.Errorf("body = %q, want an error field", rec.Body.String())
			}
		})
	}
}

func TestStats_NoLearners(t *testing.T) {
	rec := do(t, newServer(t, nil), http.MethodGet, "/api/stats", "")
	var stats struct {
		HasLearners        bool `json:"has_learners"`
		ContentLibrarySize int  `json:"content_library_size"`
	}
	decodeBody(t, rec, &stats)
	if stats.HasLearners || stats.ContentLibrarySize != 7 {
		t.Errorf("stats = %+v", stats)
	}
}

func TestCatalog(t *testing.T) {
	rec := do(t, newServer(t, nil), http.MethodGet, "/api/catalog", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var body struct {
		Levels []struct {
			Level       string `json:"level"`
			DisplayName string `json:"display_name"`
			Items       []struct {
				ID string `json:"id"`
			} `json:"items"`
		} `json:"levels"`
		Size int `json:"size"`
	}
	decodeBody(t, rec, &body)
	if len(body.Levels) != 4 || body.Size != 7 {
		t.Fatalf("catalog = %+v", body)
	}
	if body.Levels[0].Level != "foundation" || body.Levels[0].DisplayName != "Foundation" {
		t.Errorf("first level = %+v", body.Levels[0])
	}
	if strings.Contains(rec.Body.String(), "correct_index") {
		t.Error("catalog listing should not reveal answers")
	}
}

func TestAnalyticsExport(t *testing.T) {
	h := newServer(t, nil)
	register(t, h, "alice")
	do(t, h, http.MethodPost, "/api/answer", `{"user_id":"alice","content_id":"stats_basics","question_idx":0,"selected_option":0}`)

	rec := do(t, h, http.MethodGet, "/api/analytics/export?user_id=alice", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	if got := rec.Header().Get("Content-Disposition"); !strings.Contains(got, "analytics-alice.xlsx") {
		t.Errorf("Content-Disposition = %q", got)
	}

	f, err := excelize.OpenReader(rec.Body)
	if err != nil {
		t.Fatalf("OpenReader() error = %v", err)
	}
	defer f.Close()
	rows, err := f.GetRows("Attempts")
	if err != nil {
		t.Fatalf("GetRows() error = %v", err)
	}
	if len(rows) != 2 {
		t.Errorf("attempt rows = %d, want header + 1", len(rows))
	}

	rec = do(t, h, http.MethodGet, "/api/analytics/export?user_id=ghost", "")
	if rec.Code != http.StatusNotFound {
		t.Errorf("unknown learner export status = %d, want 404", rec.Code)
	}
}
