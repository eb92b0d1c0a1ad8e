// Package pipeline orchestrates a query through inference, geospatial
// analysis, map rendering, summary synthesis and resource
// recommendation, with a read-through result cache in front.
package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/enviducate/backend/internal/analytics"
	"github.com/enviducate/backend/internal/cache"
	"github.com/enviducate/backend/internal/inference"
	"github.com/enviducate/backend/internal/metrics"
	"github.com/enviducate/backend/internal/resources"
	"github.com/enviducate/backend/internal/storage/models"
	"github.com/enviducate/backend/internal/summary"
	"github.com/enviducate/backend/internal/tasks"
	"github.com/enviducate/backend/internal/viz"
	"github.com/enviducate/backend/pkg/logger"
	"github.com/enviducate/backend/pkg/utils"
)

const backgroundTaskTimeout = 5 * time.Minute

// defaultIndicators is applied when the model answered but did not
// address indicators at all.
var defaultIndicators = []analytics.Indicator{
	analytics.IndicatorDeforestation,
	analytics.IndicatorBiodiversity,
	analytics.IndicatorWildfire,
}

var responseLegend = map[string]string{
	"blue":   "Low Impact",
	"yellow": "Medium Impact",
	"red":    "High Impact",
}

type Inferencer interface {
	Infer(ctx context.Context, query string) inference.Result
}

type Analyzer interface {
	Analyze(ctx context.Context, indicators []analytics.Indicator) analytics.RegionStats
}

type Renderer interface {
	Render(ctx context.Context, query, vizType string, stats analytics.RegionStats) string
}

type Summarizer interface {
	Summarize(ctx context.Context, query string, stats analytics.RegionStats, sources []string) summary.Summary
}

type Recommender interface {
	Recommend(ctx context.Context, query string, stats analytics.RegionStats) resources.Resources
}

// HistoryStore persists processed queries. Writes are best-effort.
type HistoryStore interface {
	InsertQueryRecord(record *models.QueryRecord) error
	GetQueryHistory(limit int) ([]models.QueryRecord, error)
}

type Visualization struct {
	URL    string            `json:"url"`
	Type   string            `json:"type"`
	Legend map[string]string `json:"legend"`
}

// AnalysisResponse is the full envelope cached and returned for
// analysis queries.
type AnalysisResponse struct {
	Summary       summary.Summary     `json:"summary"`
	Visualization Visualization       `json:"visualization"`
	Resources     resources.Resources `json:"resources"`
	RequestID     string              `json:"request_id"`
	Timestamp     string              `json:"timestamp"`
}

// SimpleResponse carries only the narrative block.
type SimpleResponse struct {
	Summary   summary.Summary `json:"summary"`
	RequestID string          `json:"request_id"`
	Timestamp string          `json:"timestamp"`
}

type Engine struct {
	inferencer  Inferencer
	analyzer    Analyzer
	renderer    Renderer
	summarizer  Summarizer
	recommender Recommender
	cache       cache.Store
	tasks       *tasks.Store
	history     HistoryStore
}

type EngineOptions struct {
	Inferencer  Inferencer
	Analyzer    Analyzer
	Renderer    Renderer
	Summarizer  Summarizer
	Recommender Recommender
	Cache       cache.Store
	Tasks       *tasks.Store
	History     HistoryStore
}

func NewEngine(opts EngineOptions) *Engine {
	return &Engine{
		inferencer:  opts.Inferencer,
		analyzer:    opts.Analyzer,
		renderer:    opts.Renderer,
		summarizer:  opts.Summarizer,
		recommender: opts.Recommender,
		cache:       opts.Cache,
		tasks:       opts.Tasks,
		history:     opts.History,
	}
}

// Process runs the full analysis pipeline for a query. The marshaled
// envelope is cached under md5(query + "_" + vizType) and returned
// verbatim on later hits, so repeated queries carry the original
// request id and timestamp.
func (e *Engine) Process(ctx context.Context, query, vizType string) ([]byte, bool, error) {
	start := time.Now()
	key := utils.CacheKey(query, vizType)

	if payload, ok := e.cache.Get(ctx, key); ok {
		metrics.CacheHits.WithLabelValues("result").Inc()
		logger.Info("Returning cached analysis", zap.String("query", query))
		e.recordHistory(query, vizType, true, false, nil, time.Since(start))
		return payload, true, nil
	}
	metrics.CacheMisses.WithLabelValues("result").Inc()

	inf := e.inferencer.Infer(ctx, query)
	indicators := resolveIndicators(inf)
	for _, ind := range indicators {
		metrics.IndicatorAnalyses.WithLabelValues(string(ind)).Inc()
	}

	stats := e.analyzer.Analyze(ctx, indicators)

	vizURL := e.renderer.Render(ctx, query, vizType, stats)
	if vizURL == viz.PlaceholderPath {
		metrics.MapsRendered.WithLabelValues("placeholder").Inc()
	} else {
		metrics.MapsRendered.WithLabelValues("rendered").Inc()
	}

	sum := e.summarizer.Summarize(ctx, query, stats, inf.Sources)
	resc := e.recommender.Recommend(ctx, query, stats)

	degraded := inf.Degraded || sum.Degraded || resc.Degraded
	countDegraded(inf, sum, resc)

	response := AnalysisResponse{
		Summary: sum,
		Visualization: Visualization{
			URL:    vizURL,
			Type:   vizType,
			Legend: responseLegend,
		},
		Resources: resc,
		RequestID: uuid.New().String(),
		Timestamp: isoTimestamp(),
	}

	payload, err := json.Marshal(response)
	if err != nil {
		metrics.QueryTotal.WithLabelValues("error").Inc()
		return nil, false, fmt.Errorf("failed to encode analysis response: %w", err)
	}

	e.cache.Set(ctx, key, payload)
	metrics.QueryTotal.WithLabelValues("success").Inc()
	metrics.QueryDuration.WithLabelValues("analysis").Observe(time.Since(start).Seconds())
	e.recordHistory(query, vizType, false, degraded, indicators, time.Since(start))

	return payload, false, nil
}

// ProcessSimple runs inference, analysis and summary only. No caching.
func (e *Engine) ProcessSimple(ctx context.Context, query string) (*SimpleResponse, error) {
	start := time.Now()

	inf := e.inferencer.Infer(ctx, query)
	indicators := resolveIndicators(inf)

	stats := e.analyzer.Analyze(ctx, indicators)
	sum := e.summarizer.Summarize(ctx, query, stats, inf.Sources)

	metrics.QueryTotal.WithLabelValues("success").Inc()
	metrics.QueryDuration.WithLabelValues("simple").Observe(time.Since(start).Seconds())
	e.recordHistory(query, "", false, inf.Degraded || sum.Degraded, indicators, time.Since(start))

	return &SimpleResponse{
		Summary:   sum,
		RequestID: uuid.New().String(),
		Timestamp: isoTimestamp(),
	}, nil
}

// StartAnalysis runs Process in the background and returns the task id
// clients poll for the result.
func (e *Engine) StartAnalysis(query, vizType string) string {
	id := e.tasks.Create(query)

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), backgroundTaskTimeout)
		defer cancel()

		payload, _, err := e.Process(ctx, query, vizType)
		if err != nil {
			logger.Error("Background analysis failed",
				zap.String("task_id", id),
				zap.String("query", query),
				zap.Error(err),
			)
			e.tasks.Fail(id, err.Error())
			metrics.BackgroundTasks.WithLabelValues(string(tasks.StatusFailed)).Inc()
			return
		}

		e.tasks.Complete(id, payload)
		metrics.BackgroundTasks.WithLabelValues(string(tasks.StatusCompleted)).Inc()
	}()

	return id
}

func (e *Engine) Task(id string) (tasks.Task, bool) {
	return e.tasks.Get(id)
}

func (e *Engine) History(limit int) ([]models.QueryRecord, error) {
	if e.history == nil {
		return nil, nil
	}
	return e.history.GetQueryHistory(limit)
}

// resolveIndicators applies the default indicator set only when the
// model answered but left indicators unaddressed. A degraded inference
// or an explicit empty array stays empty.
func resolveIndicators(inf inference.Result) []analytics.Indicator {
	if inf.Indicators == nil && !inf.Degraded {
		return defaultIndicators
	}
	return inf.Indicators
}

func countDegraded(inf inference.Result, sum summary.Summary, resc resources.Resources) {
	if inf.Degraded {
		metrics.DegradedResponses.WithLabelValues("inference").Inc()
	}
	if sum.Degraded {
		metrics.DegradedResponses.WithLabelValues("summary").Inc()
	}
	if resc.Degraded {
		metrics.DegradedResponses.WithLabelValues("resources").Inc()
	}
}

func (e *Engine) recordHistory(query, vizType string, cacheHit, degraded bool, indicators []analytics.Indicator, latency time.Duration) {
	if e.history == nil {
		return
	}

	names := make([]string, 0, len(indicators))
	for _, ind := range indicators {
		names = append(names, string(ind))
	}

	record := &models.QueryRecord{
		ID:                uuid.New().String(),
		QueryText:         query,
		VisualizationType: vizType,
		CacheHit:          cacheHit,
		Degraded:          degraded,
		Indicators:        names,
		LatencyMS:         latency.Milliseconds(),
		CreatedAt:         time.Now().UTC(),
	}

	if err := e.history.InsertQueryRecord(record); err != nil {
		logger.Warn("Failed to record query history", zap.Error(err))
	}
}

func isoTimestamp() string {
	return time.Now().UTC().Format("2006-01-02T15:04:05.000000") + "Z"
}
