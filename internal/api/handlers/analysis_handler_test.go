package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/enviducate/backend/internal/analytics"
	"github.com/enviducate/backend/internal/cache"
	"github.com/enviducate/backend/internal/inference"
	"github.com/enviducate/backend/internal/pipeline"
	"github.com/enviducate/backend/internal/resources"
	"github.com/enviducate/backend/internal/summary"
	"github.com/enviducate/backend/internal/tasks"
)

type staticInferencer struct{ result inference.Result }

func (s staticInferencer) Infer(_ context.Context, _ string) inference.Result { return s.result }

type staticAnalyzer struct{ stats analytics.RegionStats }

func (s staticAnalyzer) Analyze(_ context.Context, _ []analytics.Indicator) analytics.RegionStats {
	return s.stats
}

type staticRenderer struct{}

func (staticRenderer) Render(_ context.Context, _, _ string, _ analytics.RegionStats) string {
	return "/static/images/michigan_map_00000000.png"
}

type staticSummarizer struct{}

func (staticSummarizer) Summarize(_ context.Context, _ string, _ analytics.RegionStats, _ []string) summary.Summary {
	return summary.Summary{Text: "Michigan analysis summary."}
}

type staticRecommender struct{}

func (staticRecommender) Recommend(_ context.Context, _ string, _ analytics.RegionStats) resources.Resources {
	return resources.Resources{Charities: []resources.Charity{}, ShareableURL: "https://enviducate.com/share/00000000"}
}

func newTestApp(t *testing.T) *fiber.App {
	t.Helper()

	engine := pipeline.NewEngine(pipeline.EngineOptions{
		Inferencer:  staticInferencer{result: inference.Result{Indicators: []analytics.Indicator{analytics.IndicatorWetlands}}},
		Analyzer:    staticAnalyzer{stats: analytics.RegionStats{"area_affected": 250493.0}},
		Renderer:    staticRenderer{},
		Summarizer:  staticSummarizer{},
		Recommender: staticRecommender{},
		Cache:       cache.NewMemoryStore(24 * time.Hour),
		Tasks:       tasks.NewStore(),
	})

	app := fiber.New()
	h := NewAnalysisHandler(engine, 1000)
	q := NewQueryHandler(engine, 1000)

	api := app.Group("/api/v1")
	api.Post("/query", q.HandleQuery)
	api.Post("/analyze", h.HandleAnalyze)
	api.Post("/analyze/async", h.HandleAnalyzeAsync)
	api.Get("/analyze/status/:task_id", h.HandleAnalysisStatus)

	return app
}

func postJSON(t *testing.T, app *fiber.App, path string, body any) *http.Response {
	t.Helper()

	data, err := json.Marshal(body)
	require.NoError(t, err)

	req, err := http.NewRequest(http.MethodPost, path, bytes.NewReader(data))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req, 5000)
	require.NoError(t, err)
	return resp
}

func TestAnalyzeReturnsEnvelope(t *testing.T) {
	app := newTestApp(t)

	resp := postJSON(t, app, "/api/v1/analyze", fiber.Map{"query": "wetland health"})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var envelope pipeline.AnalysisResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&envelope))

	assert.Equal(t, "Michigan analysis summary.", envelope.Summary.Text)
	assert.Equal(t, "map", envelope.Visualization.Type, "visualization type defaults to map")
	assert.Equal(t, "Low Impact", envelope.Visualization.Legend["blue"])
	assert.NotEmpty(t, envelope.RequestID)
}

func TestAnalyzeCachedResponseIsIdentical(t *testing.T) {
	app := newTestApp(t)

	first := postJSON(t, app, "/api/v1/analyze", fiber.Map{"query": "wetland health"})
	firstBody, err := io.ReadAll(first.Body)
	require.NoError(t, err)

	second := postJSON(t, app, "/api/v1/analyze", fiber.Map{"query": "wetland health"})
	secondBody, err := io.ReadAll(second.Body)
	require.NoError(t, err)

	assert.Equal(t, firstBody, secondBody, "cache hit returns the stored payload verbatim")
	assert.Equal(t, "HIT", second.Header.Get("X-Cache"))
}

func TestAnalyzeRejectsEmptyQuery(t *testing.T) {
	app := newTestApp(t)

	resp := postJSON(t, app, "/api/v1/analyze", fiber.Map{"query": ""})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)

	var body map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Contains(t, body["error"], "empty")
}

func TestAnalyzeRejectsWhitespaceOnlyQuery(t *testing.T) {
	app := newTestApp(t)

	resp := postJSON(t, app, "/api/v1/analyze", fiber.Map{"query": "   \t\n"})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)

	var body map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Contains(t, body["error"], "empty")
}

func TestAnalyzeRejectsOversizedQuery(t *testing.T) {
	app := newTestApp(t)

	long := make([]byte, 1001)
	for i := range long {
		long[i] = 'a'
	}

	resp := postJSON(t, app, "/api/v1/analyze", fiber.Map{"query": string(long)})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestAnalyzeAsyncLifecycle(t *testing.T) {
	app := newTestApp(t)

	resp := postJSON(t, app, "/api/v1/analyze/async", fiber.Map{"query": "wildfire risk"})
	require.Equal(t, http.StatusAccepted, resp.StatusCode)

	var started struct {
		TaskID string `json:"task_id"`
		Status string `json:"status"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&started))
	require.NotEmpty(t, started.TaskID)
	assert.Equal(t, "started", started.Status)

	assert.Eventually(t, func() bool {
		req, _ := http.NewRequest(http.MethodGet, "/api/v1/analyze/status/"+started.TaskID, nil)
		statusResp, err := app.Test(req, 5000)
		if err != nil {
			return false
		}
		var task tasks.Task
		if err := json.NewDecoder(statusResp.Body).Decode(&task); err != nil {
			return false
		}
		return task.Status == tasks.StatusCompleted
	}, 2*time.Second, 25*time.Millisecond)
}

func TestAnalysisStatusUnknownTask(t *testing.T) {
	app := newTestApp(t)

	req, err := http.NewRequest(http.MethodGet, "/api/v1/analyze/status/not-a-task", nil)
	require.NoError(t, err)

	resp, err := app.Test(req, 5000)
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestQueryReturnsSummaryOnly(t *testing.T) {
	app := newTestApp(t)

	resp := postJSON(t, app, "/api/v1/query", fiber.Map{"query": "wetland health"})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body map[string]json.RawMessage
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))

	assert.Contains(t, body, "summary")
	assert.Contains(t, body, "request_id")
	assert.Contains(t, body, "timestamp")
	assert.NotContains(t, body, "visualization")
	assert.NotContains(t, body, "resources")
}

func TestQueryRejectsEmpty(t *testing.T) {
	app := newTestApp(t)

	resp := postJSON(t, app, "/api/v1/query", fiber.Map{})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)

	var body map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Contains(t, body["error"], "empty")
}

func TestQueryRejectsWhitespaceOnly(t *testing.T) {
	app := newTestApp(t)

	resp := postJSON(t, app, "/api/v1/query", fiber.Map{"query": "   "})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)

	var body map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Contains(t, body["error"], "empty")
}
