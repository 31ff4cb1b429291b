// Package httpapi exposes the adaptive engine over JSON HTTP.
package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"mime"
	"net/http"
	"strings"
	"time"

	"github.com/p-n-ai/pai-adaptive/internal/adaptive"
	"github.com/p-n-ai/pai-adaptive/internal/curriculum"
	"github.com/p-n-ai/pai-adaptive/internal/learner"
	"github.com/p-n-ai/pai-adaptive/internal/report"
)

const (
	maxBodyBytes = 1 << 20
	checkTimeout = 2 * time.Second

	xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

// Checker is a dependency that can report whether it is reachable.
type Checker interface {
	HealthCheck(ctx context.Context) error
}

// Options configures a Server.
type Options struct {
	Engine *adaptive.Engine
	// Feed serves GET /api/feed when set.
	Feed http.Handler
	// Checks are consulted by GET /readyz, keyed by name.
	Checks map[string]Checker
}

// Server routes HTTP requests to the engine.
type Server struct {
	engine *adaptive.Engine
	feed   http.Handler
	checks map[string]Checker
}

// New creates a Server. Engine is required.
func New(opts Options) (*Server, error) {
	if opts.Engine == nil {
		return nil, errors.New("engine is required")
	}
	return &Server{
		engine: opts.Engine,
		feed:   opts.Feed,
		checks: opts.Checks,
	}, nil
}

// Handler returns the router.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", handleHealthz)
	mux.HandleFunc("GET /readyz", s.handleReadyz)

	mux.Handle("POST /api/register", logRequests(s.handleRegister))
	mux.Handle("GET /api/content", logRequests(s.handleContent))
	mux.Handle("POST /api/answer", logRequests(s.handleAnswer))
	mux.Handle("GET /api/analytics", logRequests(s.handleAnalytics))
	mux.Handle("GET /api/analytics/export", logRequests(s.handleExport))
	mux.Handle("GET /api/stats", logRequests(s.handleStats))
	mux.Handle("GET /api/catalog", logRequests(s.handleCatalog))

	// The websocket upgrade needs the raw ResponseWriter, so the feed is not
	// wrapped by the request logger.
	if s.feed != nil {
		mux.Handle("GET /api/feed", s.feed)
	}
	return mux
}

func handleHealthz(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"ok"}`))
}

func (s *Server) handleReadyz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), checkTimeout)
	defer cancel()

	failed := map[string]string{}
	for name, c := range s.checks {
		if err := c.HealthCheck(ctx); err != nil {
			slog.Warn("readiness check failed", "check", name, "error", err)
			failed[name] = err.Error()
		}
	}

	if len(failed) > 0 {
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{
			"status": "not ready",
			"checks": failed,
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

type registerRequest struct {
	UserID  string          `json:"user_id"`
	Profile learner.Profile `json:"profile"`
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if !decode(w, r, &req) {
		return
	}

	res, err := s.engine.Register(req.UserID, req.Profile)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleContent(w http.ResponseWriter, r *http.Request) {
	id, ok := userID(w, r)
	if !ok {
		return
	}

	rec, err := s.engine.Recommend(id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

type answerRequest struct {
	UserID         string `json:"user_id"`
	ContentID      string `json:"content_id"`
	QuestionIndex  *int   `json:"question_idx"`
	SelectedOption *int   `json:"selected_option"`
}

func (s *Server) handleAnswer(w http.ResponseWriter, r *http.Request) {
	var req answerRequest
	if !decode(w, r, &req) {
		return
	}
	if req.UserID == "" || req.ContentID == "" || req.QuestionIndex == nil || req.SelectedOption == nil {
		writeErrorMessage(w, http.StatusBadRequest, "user_id, content_id, question_idx and selected_option are required")
		return
	}

	res, err := s.engine.SubmitAnswer(req.UserID, req.ContentID, *req.QuestionIndex, *req.SelectedOption)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleAnalytics(w http.ResponseWriter, r *http.Request) {
	id, ok := userID(w, r)
	if !ok {
		return
	}

	rep, err := s.engine.Analytics(id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rep)
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	id, ok := userID(w, r)
	if !ok {
		return
	}

	rep, err := s.engine.Analytics(id)
	if err != nil {
		writeError(w, err)
		return
	}
	attempts, err := s.engine.History(id)
	if err != nil {
		writeError(w, err)
		return
	}

	var buf bytes.Buffer
	err = report.WriteWorkbook(&buf, report.Input{
		Analytics: rep,
		Attempts:  attempts,
		Catalog:   s.engine.Catalog(),
	})
	if err != nil {
		writeError(w, fmt.Errorf("building workbook: %w", err))
		return
	}

	w.Header().Set("Content-Type", xlsxContentType)
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{
		"filename": "analytics-" + rep.LearnerID + ".xlsx",
	}))
	w.WriteHeader(http.StatusOK)
	w.Write(buf.Bytes())
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.engine.SystemStats()
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

type catalogLevel struct {
	Level       string        `json:"level"`
	DisplayName string        `json:"display_name"`
	Items       []catalogItem `json:"items"`
}

type catalogItem struct {
	ID            string   `json:"id"`
	Title         string   `json:"title"`
	Category      string   `json:"category"`
	Difficulty    int      `json:"difficulty"`
	Prerequisites []string `json:"prerequisites"`
	Questions     int      `json:"questions"`
}

func (s *Server) handleCatalog(w http.ResponseWriter, r *http.Request) {
	cat := s.engine.Catalog()
	levels := make([]catalogLevel, 0, len(cat.Levels()))
	for _, level := range cat.Levels() {
		out := catalogLevel{Level: level, DisplayName: curriculum.DisplayName(level)}
		for _, it := range cat.LevelItems(level) {
			out.Items = append(out.Items, catalogItem{
				ID:            it.ID,
				Title:         it.Title,
				Category:      it.Category,
				Difficulty:    it.Difficulty,
				Prerequisites: it.Prerequisites,
				Questions:     len(it.Questions),
			})
		}
		levels = append(levels, out)
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"levels": levels,
		"size":   cat.Size(),
	})
}

func userID(w http.ResponseWriter, r *http.Request) (string, bool) {
	id := strings.TrimSpace(r.URL.Query().Get("user_id"))
	if id == "" {
		writeErrorMessage(w, http.StatusBadRequest, "user_id is required")
		return "", false
	}
	return id, true
}

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeErrorMessage(w, http.StatusBadRequest, "invalid JSON body")
		return false
	}
	return true
}

// statusFor maps engine errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, adaptive.ErrUnknownLearner),
		errors.Is(err, adaptive.ErrUnknownContent):
		return http.StatusNotFound
	case errors.Is(err, adaptive.ErrQuestionIndexOutOfRange),
		errors.Is(err, adaptive.ErrOptionIndexOutOfRange),
		errors.Is(err, adaptive.ErrInvalidLearnerID),
		errors.Is(err, adaptive.ErrInvalidProfile):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func writeError(w http.ResponseWriter, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		slog.Error("request failed", "error", err)
		writeErrorMessage(w, status, "internal error")
		return
	}
	writeErrorMessage(w, status, err.Error())
}

func writeErrorMessage(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Warn("failed to write response", "error", err)
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func logRequests(next http.HandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next(rec, r)
		slog.Info("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"duration_ms", time.Since(start).Milliseconds(),
		)
	})
}
