package inference

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/enviducate/backend/internal/analytics"
	"github.com/enviducate/backend/internal/llm"
	"github.com/enviducate/backend/internal/search/web"
)

type fakeClient struct {
	content string
	err     error
	lastReq llm.CompletionRequest
}

func (f *fakeClient) Complete(_ context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
	f.lastReq = req
	if f.err != nil {
		return nil, f.err
	}
	return &llm.CompletionResponse{Content: f.content}, nil
}

type fakeSearcher struct {
	results    []web.Result
	err        error
	pageText   string
	pageErr    error
	scrapedURL string
}

func (f *fakeSearcher) Search(_ context.Context, _ string) ([]web.Result, error) {
	return f.results, f.err
}

func (f *fakeSearcher) ScrapePage(_ context.Context, pageURL string) (string, error) {
	f.scrapedURL = pageURL
	return f.pageText, f.pageErr
}

func TestInferParsesModelResponse(t *testing.T) {
	client := &fakeClient{content: `{
		"indicators": ["wetlands", "water_quality"],
		"context": "Michigan's Great Lakes wetlands support over 200 species.",
		"sources": ["Michigan DNR 2025"],
		"key_metrics": ["ndwi", "wetland_area_km2"],
		"flags": []
	}`}
	searcher := &fakeSearcher{
		results: []web.Result{
			{Title: "Wetland report", Link: "https://www.michigan.gov/egle", Source: "Michigan DNR"},
		},
		pageText: "Saginaw Bay wetland acreage increased 4% since 2020.",
	}
	i := NewInferencer(client, searcher)

	out := i.Infer(context.Background(), "how are Michigan's wetlands doing?")

	assert.False(t, out.Degraded)
	assert.Equal(t, []analytics.Indicator{analytics.IndicatorWetlands, analytics.IndicatorWaterQuality}, out.Indicators)
	assert.Equal(t, "Michigan's Great Lakes wetlands support over 200 species.", out.Context)
	assert.Equal(t, []string{"Michigan DNR 2025", "Michigan DNR"}, out.Sources)
	assert.Equal(t, []string{"ndwi", "wetland_area_km2"}, out.KeyMetrics)

	assert.True(t, client.lastReq.SingleAttempt, "inference gets one model attempt per call")
	assert.Equal(t, "https://www.michigan.gov/egle", searcher.scrapedURL, "top result page is scraped for context")
	assert.Contains(t, client.lastReq.UserPrompt, "Saginaw Bay wetland acreage increased 4% since 2020.")
}

func TestInferContinuesWhenScrapeFails(t *testing.T) {
	client := &fakeClient{content: `{"indicators": ["wetlands"]}`}
	searcher := &fakeSearcher{
		results: []web.Result{
			{Title: "Wetland report", Link: "https://www.michigan.gov/egle", Source: "Michigan DNR"},
		},
		pageErr: errors.New("connection reset"),
	}
	i := NewInferencer(client, searcher)

	out := i.Infer(context.Background(), "wetlands")

	assert.False(t, out.Degraded)
	assert.Equal(t, []analytics.Indicator{analytics.IndicatorWetlands}, out.Indicators)
	assert.NotContains(t, client.lastReq.UserPrompt, "Top Result Page Content")
}

func TestInferTruncatesPageExcerpt(t *testing.T) {
	client := &fakeClient{content: `{"indicators": []}`}
	searcher := &fakeSearcher{
		results:  []web.Result{{Link: "https://www.epa.gov/greatlakes"}},
		pageText: strings.Repeat("x", pageExcerptChars+500),
	}
	i := NewInferencer(client, searcher)

	i.Infer(context.Background(), "air quality")

	assert.Contains(t, client.lastReq.UserPrompt, strings.Repeat("x", pageExcerptChars))
	assert.NotContains(t, client.lastReq.UserPrompt, strings.Repeat("x", pageExcerptChars+1))
}

func TestInferNilIndicatorsWhenFieldOmitted(t *testing.T) {
	client := &fakeClient{content: `{"context": "some context"}`}
	i := NewInferencer(client, nil)

	out := i.Infer(context.Background(), "query")

	assert.False(t, out.Degraded)
	assert.Nil(t, out.Indicators, "omitted field should stay nil so callers can apply defaults")
}

func TestInferEmptyIndicatorsStayEmpty(t *testing.T) {
	client := &fakeClient{content: `{"indicators": [], "context": "not an environmental topic"}`}
	i := NewInferencer(client, nil)

	out := i.Infer(context.Background(), "query")

	assert.False(t, out.Degraded)
	require.NotNil(t, out.Indicators)
	assert.Empty(t, out.Indicators)
}

func TestInferDropsUnknownIndicators(t *testing.T) {
	client := &fakeClient{content: `{"indicators": ["wildfire", "volcanoes"]}`}
	i := NewInferencer(client, nil)

	out := i.Infer(context.Background(), "query")

	assert.Equal(t, []analytics.Indicator{analytics.IndicatorWildfire}, out.Indicators)
}

func TestInferFallbackOnModelError(t *testing.T) {
	client := &fakeClient{err: errors.New("model unavailable")}
	i := NewInferencer(client, nil)

	out := i.Infer(context.Background(), "deforestation trends")

	assert.True(t, out.Degraded)
	require.NotNil(t, out.Indicators)
	assert.Empty(t, out.Indicators)
	assert.Equal(t, "Unable to process environmental analysis for deforestation trends - AI services unavailable.", out.Context)
	assert.Empty(t, out.Sources)
}

func TestInferFallbackOnMalformedJSON(t *testing.T) {
	client := &fakeClient{content: "sorry, no JSON"}
	i := NewInferencer(client, nil)

	out := i.Infer(context.Background(), "air quality")

	assert.True(t, out.Degraded)
	assert.Contains(t, out.Context, "Unable to process environmental analysis for air quality")
}

func TestInferContinuesWhenSearchFails(t *testing.T) {
	client := &fakeClient{content: `{"indicators": ["biodiversity"]}`}
	searcher := &fakeSearcher{err: errors.New("search quota exceeded")}
	i := NewInferencer(client, searcher)

	out := i.Infer(context.Background(), "biodiversity")

	assert.False(t, out.Degraded)
	assert.Equal(t, []analytics.Indicator{analytics.IndicatorBiodiversity}, out.Indicators)
}

func TestInferStripsCodeFence(t *testing.T) {
	client := &fakeClient{content: "```json\n{\"indicators\": [\"deforestation\"]}\n```"}
	i := NewInferencer(client, nil)

	out := i.Infer(context.Background(), "query")

	assert.False(t, out.Degraded)
	assert.Equal(t, []analytics.Indicator{analytics.IndicatorDeforestation}, out.Indicators)
}

func TestParseFlags(t *testing.T) {
	assert.Equal(t, []string{"not_michigan"}, parseFlags(json.RawMessage(`["not_michigan"]`)))
	assert.Equal(t, []string{"not_relevant"}, parseFlags(json.RawMessage(`{"not_michigan": false, "not_relevant": true}`)))
	assert.Empty(t, parseFlags(json.RawMessage(`[]`)))
	assert.Nil(t, parseFlags(nil))
}
