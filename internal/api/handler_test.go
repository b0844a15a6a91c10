package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"engagement_tracker/internal/domain"
	"engagement_tracker/internal/scheduler"
)

type stubTrigger struct {
	summary *domain.RunSummary
	err     error
}

func (s stubTrigger) TriggerNow(context.Context) (*domain.RunSummary, error) {
	return s.summary, s.err
}

type stubRunLog struct {
	run *domain.ScrapeRun
	err error
}

func (s stubRunLog) Latest(context.Context) (*domain.ScrapeRun, error) {
	return s.run, s.err
}

func newRouter(trigger Trigger, runs RunLog) *gin.Engine {
	gin.SetMode(gin.TestMode)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return SetupRouter(NewRunHandler(trigger, runs, logger), logger)
}

func serve(r http.Handler, method, path string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(method, path, nil)
	r.ServeHTTP(w, req)
	return w
}

func TestHealthz(t *testing.T) {
	w := serve(newRouter(stubTrigger{}, stubRunLog{}), http.MethodGet, "/healthz")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
	assert.NotEmpty(t, w.Header().Get(requestIDHeader))
}

func TestRunNow_ReturnsSummary(t *testing.T) {
	summary := &domain.RunSummary{
		RunID:      "run-1",
		Status:     domain.RunCompleted,
		TotalDue:   2,
		Successful: 1,
		Failed:     1,
		DurationMs: 1234,
		Outcomes: []domain.PostOutcome{
			{PostID: 1, Status: domain.OutcomeSuccess},
			{PostID: 2, Status: domain.OutcomeFailed, FailureKind: domain.FailureNotFound},
		},
	}
	w := serve(newRouter(stubTrigger{summary: summary}, stubRunLog{}), http.MethodPost, "/api/v1/runs")

	require.Equal(t, http.StatusOK, w.Code)

	var got domain.RunSummary
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Equal(t, "run-1", got.RunID)
	assert.Equal(t, 2, got.TotalDue)
	assert.Equal(t, int64(1234), got.DurationMs)
	require.Len(t, got.Outcomes, 2)
	assert.Equal(t, domain.FailureNotFound, got.Outcomes[1].FailureKind)
}

func TestRunNow_Conflict(t *testing.T) {
	w := serve(newRouter(stubTrigger{err: scheduler.ErrRunInProgress}, stubRunLog{}), http.MethodPost, "/api/v1/runs")

	assert.Equal(t, http.StatusConflict, w.Code)
	assert.JSONEq(t, `{"error":"run already in progress"}`, w.Body.String())
}

func TestRunNow_ScanFailure(t *testing.T) {
	w := serve(newRouter(stubTrigger{err: errors.New("select due posts: connection refused")}, stubRunLog{}), http.MethodPost, "/api/v1/runs")

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), "connection refused")
}

func TestLatest(t *testing.T) {
	run := &domain.ScrapeRun{ID: 3, RunID: "run-3", Status: domain.RunCancelled, Cancelled: 4}
	w := serve(newRouter(stubTrigger{}, stubRunLog{run: run}), http.MethodGet, "/api/v1/runs/latest")

	require.Equal(t, http.StatusOK, w.Code)

	var got domain.ScrapeRun
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Equal(t, "run-3", got.RunID)
	assert.Equal(t, domain.RunCancelled, got.Status)
	assert.Equal(t, 4, got.Cancelled)
	assert.Nil(t, got.ErrorMessage)
}

func TestLatest_NoRuns(t *testing.T) {
	w := serve(newRouter(stubTrigger{}, stubRunLog{}), http.MethodGet, "/api/v1/runs/latest")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestLatest_StoreError(t *testing.T) {
	w := serve(newRouter(stubTrigger{}, stubRunLog{err: errors.New("db down")}), http.MethodGet, "/api/v1/runs/latest")
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.NotContains(t, w.Body.String(), "db down")
}
