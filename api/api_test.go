package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/nrtkbb/fsrecon/db"
	"github.com/nrtkbb/fsrecon/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"go.opentelemetry.io/otel"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
)

type APITestSuite struct {
	suite.Suite
	e *echo.Echo
	h *Handler
}

func TestAPISuite(t *testing.T) {
	suite.Run(t, new(APITestSuite))
}

func (s *APITestSuite) SetupTest() {
	database, err := db.SetupDatabase(filepath.Join(s.T().TempDir(), "history.db"))
	s.Require().NoError(err)
	s.T().Cleanup(func() { database.Close() })

	started := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	report := &models.Report{
		RunID:      "run-1",
		Canonical:  "/c",
		Incoming:   "/i",
		StartedAt:  started,
		FinishedAt: started.Add(time.Second),
		Present:    1,
		New:        2,
		Deletions: []models.FileOutcome{
			{Path: "/i/c.txt", Destination: "/c/a.txt", Signature: "x", Outcome: models.OutcomeDeleted},
		},
		Migrations: []models.FileOutcome{
			{Path: "/i/d.txt", Destination: "/c/d.txt", Signature: "z", Outcome: models.OutcomeMovedNew},
			{Path: "/i/e.txt", Destination: "/c/e.txt", Signature: "w", Outcome: models.OutcomeFailed, Err: "permission denied"},
		},
		ReadFailures: []models.ReadFailure{{Path: "/i/locked", Err: "permission denied"}},
	}
	s.Require().NoError(db.SaveReport(context.Background(), database, report))

	s.h = NewHandler(database)
	s.e = echo.New()
	s.h.RegisterRoutes(s.e)
}

func (s *APITestSuite) get(target string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, target, nil)
	rec := httptest.NewRecorder()
	s.e.ServeHTTP(rec, req)
	return rec
}

func (s *APITestSuite) TestListRuns() {
	rec := s.get("/api/runs")
	s.Require().Equal(http.StatusOK, rec.Code)

	var resp struct {
		Data    []models.RunSummary `json:"data"`
		Page    int                 `json:"page"`
		Total   int                 `json:"total"`
		HasNext bool                `json:"has_next"`
	}
	s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &resp))
	s.Equal(1, resp.Total)
	s.Equal(1, resp.Page)
	s.False(resp.HasNext)
	s.Require().Len(resp.Data, 1)
	s.Equal("run-1", resp.Data[0].RunID)
	s.Equal(1, resp.Data[0].Counts[models.OutcomeFailed])
}

func (s *APITestSuite) TestListRunsBadPage() {
	s.Equal(http.StatusBadRequest, s.get("/api/runs?page=0").Code)
	s.Equal(http.StatusBadRequest, s.get("/api/runs?page=abc").Code)
	s.Equal(http.StatusBadRequest, s.get("/api/runs?page=5").Code)
}

func (s *APITestSuite) TestGetRun() {
	rec := s.get("/api/runs/run-1")
	s.Require().Equal(http.StatusOK, rec.Code)

	var detail RunDetail
	s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &detail))
	s.Equal("/c", detail.Canonical)
	s.Equal(1, detail.ReadFailures)
	s.Require().Len(detail.FailedPaths, 1)
	s.Equal("/i/locked", detail.FailedPaths[0].Path)

	s.Equal(http.StatusNotFound, s.get("/api/runs/nope").Code)
}

func (s *APITestSuite) TestListOutcomes() {
	rec := s.get("/api/runs/run-1/outcomes")
	s.Require().Equal(http.StatusOK, rec.Code)

	var resp struct {
		Data  []models.StoredOutcome `json:"data"`
		Total int                    `json:"total"`
	}
	s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &resp))
	s.Equal(3, resp.Total)
	s.Equal(models.PhaseDelete, resp.Data[0].Phase)

	rec = s.get("/api/runs/run-1/outcomes?outcome=failed")
	s.Require().Equal(http.StatusOK, rec.Code)
	s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &resp))
	s.Require().Len(resp.Data, 1)
	s.Equal("permission denied", resp.Data[0].Err)

	s.Equal(http.StatusBadRequest, s.get("/api/runs/run-1/outcomes?outcome=bogus").Code)
	s.Equal(http.StatusNotFound, s.get("/api/runs/nope/outcomes").Code)
}

func (s *APITestSuite) TestGetStats() {
	rec := s.get("/api/stats")
	s.Require().Equal(http.StatusOK, rec.Code)

	var stats Stats
	s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &stats))
	s.Equal(1, stats.Runs)
	s.Equal(1, stats.Outcomes[models.OutcomeDeleted])
	s.Equal(1, stats.Outcomes[models.OutcomeMovedNew])
}

func TestMetricsEndpoint(t *testing.T) {
	database, err := db.SetupDatabase(filepath.Join(t.TempDir(), "history.db"))
	require.NoError(t, err)
	defer database.Close()

	report := &models.Report{
		RunID:      "run-1",
		StartedAt:  time.Now(),
		FinishedAt: time.Now(),
		Migrations: []models.FileOutcome{{Path: "/i/a", Outcome: models.OutcomeMovedNew}},
	}
	require.NoError(t, db.SaveReport(context.Background(), database, report))

	e := echo.New()
	NewHandler(database).RegisterRoutes(e)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "fsrecon_runs_total 1")
	assert.Contains(t, body, `fsrecon_outcomes_total{outcome="moved-new"} 1`)
	assert.True(t, strings.Contains(body, "fsrecon_history_up 1"))
}

func (s *APITestSuite) TestHandlersPropagateSpanContext() {
	prev := otel.GetTracerProvider()
	tp := sdktrace.NewTracerProvider()
	otel.SetTracerProvider(tp)
	s.T().Cleanup(func() {
		otel.SetTracerProvider(prev)
		_ = tp.Shutdown(context.Background())
	})

	tests := []struct {
		name    string
		target  string
		params  []string
		handler echo.HandlerFunc
	}{
		{"list_runs", "/api/runs", nil, s.h.ListRuns},
		{"get_run", "/api/runs/run-1", []string{"run-1"}, s.h.GetRun},
		{"list_outcomes", "/api/runs/run-1/outcomes", []string{"run-1"}, s.h.ListOutcomes},
		{"stats", "/api/stats", nil, s.h.GetStats},
	}
	for _, tt := range tests {
		s.Run(tt.name, func() {
			req := httptest.NewRequest(http.MethodGet, tt.target, nil)
			rec := httptest.NewRecorder()
			c := s.e.NewContext(req, rec)
			if tt.params != nil {
				c.SetParamNames("id")
				c.SetParamValues(tt.params...)
			}

			s.Require().NoError(tt.handler(c))
			s.Equal(http.StatusOK, rec.Code)
			s.True(trace.SpanFromContext(c.Request().Context()).SpanContext().IsValid())
		})
	}
}
