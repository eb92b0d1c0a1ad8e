// Package inference maps a natural language query onto the environmental
// indicators the analytics layer understands, grounded by fresh web
// search context.
package inference

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"github.com/enviducate/backend/internal/analytics"
	"github.com/enviducate/backend/internal/catalog"
	"github.com/enviducate/backend/internal/llm"
	"github.com/enviducate/backend/internal/search/web"
	"github.com/enviducate/backend/pkg/logger"
)

const (
	catalogPromptEntries = 50
	pageExcerptChars     = 2000
)

// Searcher supplies recent Michigan environmental search results used to
// ground the model's analysis, plus the visible text of a result page.
type Searcher interface {
	Search(ctx context.Context, query string) ([]web.Result, error)
	ScrapePage(ctx context.Context, pageURL string) (string, error)
}

// Result is the model's reading of the query.
type Result struct {
	// Indicators stays nil when the model omitted the field entirely,
	// letting callers distinguish "none apply" from "not answered".
	Indicators      []analytics.Indicator
	Context         string
	Sources         []string
	KeyMetrics      []string
	RelevantMetrics []catalog.RelevantMetric
	Flags           []string

	// Degraded marks the fallback produced when the model call or its
	// JSON output failed.
	Degraded bool
}

type modelResult struct {
	Indicators      []string                 `json:"indicators"`
	Context         string                   `json:"context"`
	Sources         []string                 `json:"sources"`
	KeyMetrics      []string                 `json:"key_metrics"`
	RelevantMetrics []catalog.RelevantMetric `json:"relevant_metrics"`
	Flags           json.RawMessage          `json:"flags"`
}

type Inferencer struct {
	client   llm.Client
	searcher Searcher
}

func NewInferencer(client llm.Client, searcher Searcher) *Inferencer {
	return &Inferencer{client: client, searcher: searcher}
}

// Infer analyzes the query with one model attempt; failures degrade to
// the empty-indicator fallback rather than erroring.
func (i *Inferencer) Infer(ctx context.Context, query string) Result {
	if i.client == nil {
		return fallbackResult(query)
	}

	var searchResults []web.Result
	var pageContent string
	if i.searcher != nil {
		var err error
		searchResults, err = i.searcher.Search(ctx, query)
		if err != nil {
			logger.Warn("Search failed, inferring without web context",
				zap.String("query", query),
				zap.Error(err),
			)
			searchResults = nil
		}

		// Snippets are thin; the top result's page text carries the data
		// the model actually cites.
		if len(searchResults) > 0 {
			pageContent, err = i.searcher.ScrapePage(ctx, searchResults[0].Link)
			if err != nil {
				logger.Warn("Failed to scrape top search result",
					zap.String("url", searchResults[0].Link),
					zap.Error(err),
				)
				pageContent = ""
			}
		}
	}

	resp, err := i.client.Complete(ctx, llm.CompletionRequest{
		SystemPrompt:  analystSystemPrompt,
		UserPrompt:    buildInferencePrompt(query, searchResults, pageContent),
		Temperature:   0.2,
		MaxTokens:     2048,
		SingleAttempt: true,
	})
	if err != nil {
		logger.Error("Query inference failed", zap.String("query", query), zap.Error(err))
		return fallbackResult(query)
	}

	var parsed modelResult
	if err := llm.DecodeJSON(resp.Content, &parsed); err != nil {
		logger.Error("Inference response was not valid JSON",
			zap.String("query", query),
			zap.Error(err),
		)
		return fallbackResult(query)
	}

	out := Result{
		Context:         parsed.Context,
		Sources:         parsed.Sources,
		KeyMetrics:      parsed.KeyMetrics,
		RelevantMetrics: parsed.RelevantMetrics,
		Flags:           parseFlags(parsed.Flags),
	}

	if parsed.Indicators != nil {
		out.Indicators = make([]analytics.Indicator, 0, len(parsed.Indicators))
		for _, raw := range parsed.Indicators {
			ind, ok := analytics.ParseIndicator(raw)
			if !ok {
				logger.Warn("Model returned unknown indicator", zap.String("indicator", raw))
				continue
			}
			out.Indicators = append(out.Indicators, ind)
		}
	}

	if out.Sources == nil {
		out.Sources = []string{}
	}
	for _, sr := range searchResults {
		if sr.Source != "" {
			out.Sources = append(out.Sources, sr.Source)
		}
	}

	return out
}

func fallbackResult(query string) Result {
	return Result{
		Indicators:      []analytics.Indicator{},
		Context:         fmt.Sprintf("Unable to process environmental analysis for %s - AI services unavailable.", query),
		Sources:         []string{},
		KeyMetrics:      []string{},
		RelevantMetrics: []catalog.RelevantMetric{},
		Degraded:        true,
	}
}

// parseFlags tolerates both the requested array form and the object form
// models sometimes produce.
func parseFlags(raw json.RawMessage) []string {
	if len(raw) == 0 {
		return nil
	}

	var list []string
	if err := json.Unmarshal(raw, &list); err == nil {
		return list
	}

	var obj map[string]bool
	if err := json.Unmarshal(raw, &obj); err == nil {
		flags := make([]string, 0, len(obj))
		for _, name := range []string{"not_michigan", "not_relevant"} {
			if obj[name] {
				flags = append(flags, name)
			}
		}
		return flags
	}

	return nil
}

const analystSystemPrompt = "You are an environmental data analyst focused on Michigan. Respond with JSON only."

func buildInferencePrompt(query string, searchResults []web.Result, pageContent string) string {
	resultsJSON, _ := json.MarshalIndent(searchResults, "", "  ")

	if len(pageContent) > pageExcerptChars {
		pageContent = pageContent[:pageExcerptChars]
	}
	pageSection := ""
	if pageContent != "" {
		pageSection = fmt.Sprintf("\nTop Result Page Content:\n%s\n", pageContent)
	}

	return fmt.Sprintf(`Analyze the following natural language query and the associated search results.

Query: %q
Search Results: %s
%s
Available Google Earth Engine Metrics:
%s

Return a JSON object with the following fields:

1. indicators: Array of relevant environmental indicators from ["deforestation", "biodiversity", "wildfire", "wetlands", "water_quality", "air_quality"]

2. context: A single, cohesive paragraph (3-5 sentences) that synthesizes the query and search results into a human-readable summary. Use scientific terminology, focus on Michigan, highlight key trends, risks, and metrics, and make it educational.

3. sources: Array of credible sources used (Michigan DNR, NGOs, academic publications).

4. key_metrics: Array of specific metric IDs that are most relevant to this query. Select from the available metrics list above. Choose 3-8 most relevant metrics.

5. relevant_metrics: Array of objects with detailed metric information for the selected key_metrics. Each object should have id, name, description, category, and relevance_score (0-1).

6. flags: Include "not_michigan" if the query is unrelated to Michigan, "not_relevant" if it is outside the scope of analyzable environmental indicators.

Requirements:
- Use Michigan-specific data wherever possible.
- Provide at least 2 sources if available.
- Keep JSON strictly valid and parsable.
- If indicators cannot be determined, return an empty array.`,
		query, resultsJSON, pageSection, catalog.Excerpt(catalogPromptEntries))
}
