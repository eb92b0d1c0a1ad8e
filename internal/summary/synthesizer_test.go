package summary

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/enviducate/backend/internal/analytics"
	"github.com/enviducate/backend/internal/llm"
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

func TestSummarizeParsesModelResponse(t *testing.T) {
	client := &fakeClient{content: `{
		"text": "Michigan's forests are doing well.",
		"key_metrics": ["ndvi", "forest_loss"],
		"sources": [{"name": "Michigan DNR", "url": "https://www.michigan.gov/dnr"}, "EPA"],
		"flags": {"not_michigan": false, "not_relevant": false}
	}`}
	s := NewSynthesizer(client)

	stats := analytics.RegionStats{
		"area_affected":      250493.0,
		"deforestation_rate": 2.5,
		"risk_level":         "Low",
		"species_count":      60,
	}

	out := s.Summarize(context.Background(), "deforestation in Michigan", stats, []string{"fallback source"})

	assert.False(t, out.Degraded)
	assert.Equal(t, "Michigan's forests are doing well.", out.Text)
	assert.Equal(t, []string{"Michigan DNR", "EPA"}, out.Sources)

	require.NotNil(t, out.Stats.AreaAffected)
	assert.Equal(t, 250493.0, *out.Stats.AreaAffected)
	require.NotNil(t, out.Stats.DeforestationRate)
	assert.Equal(t, 2.5, *out.Stats.DeforestationRate)
	require.NotNil(t, out.Stats.RiskLevel)
	assert.Equal(t, "Low", *out.Stats.RiskLevel)
	require.NotNil(t, out.Stats.SpeciesCount)
	assert.Equal(t, 60, *out.Stats.SpeciesCount)
	assert.Nil(t, out.Stats.BiodiversityIndex)
	assert.Nil(t, out.Stats.WildfireCount)
}

func TestSummarizeBackfillsRelevantMetrics(t *testing.T) {
	client := &fakeClient{content: `{
		"text": "summary",
		"key_metrics": ["ndvi", "not_a_real_metric", "forest_loss"]
	}`}
	s := NewSynthesizer(client)

	out := s.Summarize(context.Background(), "forests", analytics.RegionStats{}, nil)

	require.Len(t, out.RelevantMetrics, 2)
	assert.Equal(t, "ndvi", out.RelevantMetrics[0].ID)
	assert.Equal(t, "forest_loss", out.RelevantMetrics[1].ID)
	for _, m := range out.RelevantMetrics {
		assert.Equal(t, 0.8, m.RelevanceScore)
	}
}

func TestSummarizeFallbackOnModelError(t *testing.T) {
	client := &fakeClient{err: errors.New("model unavailable")}
	s := NewSynthesizer(client)

	stats := analytics.RegionStats{"area_affected": 250493.0, "risk_level": "High"}
	out := s.Summarize(context.Background(), "wildfires in Michigan", stats, []string{"EPA"})

	assert.True(t, out.Degraded)
	assert.Equal(t, "Unable to generate environmental analysis for wildfires in Michigan - AI services unavailable.", out.Text)
	assert.Empty(t, out.Sources)
	assert.Empty(t, out.KeyMetrics)
	assert.Empty(t, out.RelevantMetrics)

	require.NotNil(t, out.Stats.AreaAffected)
	assert.Equal(t, 250493.0, *out.Stats.AreaAffected)
	assert.Nil(t, out.Stats.RiskLevel, "only area_affected carries into the fallback")
}

func TestSummarizeFallbackOnMalformedJSON(t *testing.T) {
	client := &fakeClient{content: "I could not produce JSON today."}
	s := NewSynthesizer(client)

	out := s.Summarize(context.Background(), "wetlands", analytics.RegionStats{}, nil)

	assert.True(t, out.Degraded)
	assert.Contains(t, out.Text, "Unable to generate environmental analysis for wetlands")
}

func TestSummarizeKeepsComputedSourcesWhenModelOmitsThem(t *testing.T) {
	client := &fakeClient{content: `{"text": "summary"}`}
	s := NewSynthesizer(client)

	out := s.Summarize(context.Background(), "query", analytics.RegionStats{}, []string{"Michigan DNR", "USGS"})

	assert.Equal(t, []string{"Michigan DNR", "USGS"}, out.Sources)
}

func TestSummarizeStripsCodeFence(t *testing.T) {
	client := &fakeClient{content: "```json\n{\"text\": \"fenced summary\"}\n```"}
	s := NewSynthesizer(client)

	out := s.Summarize(context.Background(), "query", analytics.RegionStats{}, nil)

	assert.False(t, out.Degraded)
	assert.Equal(t, "fenced summary", out.Text)
}

func TestFallbackStatsSerializeNulls(t *testing.T) {
	out := fallbackSummary("query", analytics.RegionStats{"area_affected": 250493.0})

	data, err := json.Marshal(out.Stats)
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"area_affected": 250493.0,
		"species_count": null,
		"risk_level": null,
		"deforestation_rate": null,
		"biodiversity_index": null,
		"wildfire_count": null
	}`, string(data))
}

func TestNormalizeSources(t *testing.T) {
	raw := []json.RawMessage{
		json.RawMessage(`"EPA"`),
		json.RawMessage(`{"name": "Michigan DNR", "url": "https://www.michigan.gov/dnr"}`),
	}

	assert.Equal(t, []string{"EPA", "Michigan DNR"}, normalizeSources(raw))
}
