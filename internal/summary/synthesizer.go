// Package summary turns computed regional statistics into the
// reader-facing narrative block of an analysis response.
package summary

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"github.com/enviducate/backend/internal/analytics"
	"github.com/enviducate/backend/internal/catalog"
	"github.com/enviducate/backend/internal/llm"
	"github.com/enviducate/backend/pkg/logger"
)

const backfillRelevance = 0.8
const backfillLimit = 5

// Stats is the fixed subset of regional statistics exposed in the
// summary block. Pointers keep absent values serialized as null.
type Stats struct {
	AreaAffected      *float64 `json:"area_affected"`
	SpeciesCount      *int     `json:"species_count"`
	RiskLevel         *string  `json:"risk_level"`
	DeforestationRate *float64 `json:"deforestation_rate"`
	BiodiversityIndex *float64 `json:"biodiversity_index"`
	WildfireCount     *int     `json:"wildfire_count"`
}

type Flags struct {
	NotMichigan bool `json:"not_michigan"`
	NotRelevant bool `json:"not_relevant"`
}

type Summary struct {
	Text            string                   `json:"text"`
	Stats           Stats                    `json:"stats"`
	Sources         []string                 `json:"sources"`
	KeyMetrics      []string                 `json:"key_metrics"`
	RelevantMetrics []catalog.RelevantMetric `json:"relevant_metrics"`
	Flags           Flags                    `json:"flags"`

	// Degraded marks a fallback produced because the model call or its
	// JSON output failed.
	Degraded bool `json:"-"`
}

// modelSummary is the shape the model is asked to return. Sources may
// arrive as plain strings or {name, url} objects.
type modelSummary struct {
	Text            string                   `json:"text"`
	Sources         []json.RawMessage        `json:"sources"`
	KeyMetrics      []string                 `json:"key_metrics"`
	RelevantMetrics []catalog.RelevantMetric `json:"relevant_metrics"`
	Flags           Flags                    `json:"flags"`
}

type Synthesizer struct {
	client llm.Client
}

func NewSynthesizer(client llm.Client) *Synthesizer {
	return &Synthesizer{client: client}
}

// Summarize asks the model for an educator-voice summary grounded in the
// computed stats. It never returns an error: any failure yields the
// degraded fallback summary.
func (s *Synthesizer) Summarize(ctx context.Context, query string, stats analytics.RegionStats, sources []string) Summary {
	if s.client == nil {
		return fallbackSummary(query, stats)
	}

	resp, err := s.client.Complete(ctx, llm.CompletionRequest{
		SystemPrompt: summarySystemPrompt,
		UserPrompt:   buildSummaryPrompt(query, stats, sources),
		Temperature:  0.4,
		MaxTokens:    1024,
	})
	if err != nil {
		logger.Error("Summary generation failed", zap.String("query", query), zap.Error(err))
		return fallbackSummary(query, stats)
	}

	var parsed modelSummary
	if err := llm.DecodeJSON(resp.Content, &parsed); err != nil {
		logger.Error("Summary response was not valid JSON",
			zap.String("query", query),
			zap.Error(err),
		)
		return fallbackSummary(query, stats)
	}

	out := Summary{
		Text:            parsed.Text,
		Stats:           statsSubset(stats),
		KeyMetrics:      parsed.KeyMetrics,
		RelevantMetrics: parsed.RelevantMetrics,
		Flags:           parsed.Flags,
	}

	if out.Text == "" {
		out.Text = fmt.Sprintf("Environmental analysis of %s in Michigan using real satellite data.", query)
	}
	if out.KeyMetrics == nil {
		out.KeyMetrics = []string{}
	}

	if parsed.Sources != nil {
		out.Sources = normalizeSources(parsed.Sources)
	} else {
		out.Sources = sources
	}
	if out.Sources == nil {
		out.Sources = []string{}
	}

	// The model often names key metrics without the detailed descriptors;
	// resolve them from the catalog.
	if len(out.RelevantMetrics) == 0 && len(out.KeyMetrics) > 0 {
		out.RelevantMetrics = catalog.Relevant(out.KeyMetrics, backfillRelevance, backfillLimit)
	}
	if out.RelevantMetrics == nil {
		out.RelevantMetrics = []catalog.RelevantMetric{}
	}

	return out
}

func fallbackSummary(query string, stats analytics.RegionStats) Summary {
	out := Summary{
		Text:            fmt.Sprintf("Unable to generate environmental analysis for %s - AI services unavailable.", query),
		Sources:         []string{},
		KeyMetrics:      []string{},
		RelevantMetrics: []catalog.RelevantMetric{},
		Degraded:        true,
	}
	if v, ok := stats.Float("area_affected"); ok {
		out.Stats.AreaAffected = &v
	}
	return out
}

// statsSubset projects the flat analytics map onto the fixed response
// schema, leaving missing values null.
func statsSubset(stats analytics.RegionStats) Stats {
	var out Stats
	if v, ok := stats.Float("area_affected"); ok {
		out.AreaAffected = &v
	}
	if v, ok := stats.Float("species_count"); ok {
		n := int(v)
		out.SpeciesCount = &n
	}
	if v, ok := stats.String("risk_level"); ok {
		out.RiskLevel = &v
	}
	if v, ok := stats.Float("deforestation_rate"); ok {
		out.DeforestationRate = &v
	}
	if v, ok := stats.Float("biodiversity_index"); ok {
		out.BiodiversityIndex = &v
	}
	if v, ok := stats.Float("wildfire_count"); ok {
		n := int(v)
		out.WildfireCount = &n
	}
	return out
}

// normalizeSources flattens model-provided source entries, which may be
// strings or {name, url} objects, into plain names.
func normalizeSources(raw []json.RawMessage) []string {
	out := make([]string, 0, len(raw))
	for _, entry := range raw {
		var s string
		if err := json.Unmarshal(entry, &s); err == nil {
			out = append(out, s)
			continue
		}

		var obj struct {
			Name string `json:"name"`
		}
		if err := json.Unmarshal(entry, &obj); err == nil && obj.Name != "" {
			out = append(out, obj.Name)
			continue
		}

		out = append(out, string(entry))
	}
	return out
}

const summarySystemPrompt = "You are a friendly environmental educator helping people understand Michigan's environment. Respond with JSON only."

func buildSummaryPrompt(query string, stats analytics.RegionStats, sources []string) string {
	statsJSON, _ := json.MarshalIndent(stats, "", "  ")
	sourcesJSON, _ := json.MarshalIndent(sources, "", "  ")

	return fmt.Sprintf(`Write a clear, easy-to-understand summary about environmental issues in Michigan.

Input:
- Query: %q
- Real Data: %s
- Sources: %s
- Bounding Box: [-90, 41, -82, 48] (Michigan)

Instructions:
1. Write like you're talking to a friend about Michigan's environment
2. ONLY mention data that has real values (not null, None, or N/A)
3. If we don't have specific data, talk about what we know about Michigan's nature in general
4. Be honest but positive - don't mention missing data or technical problems
5. Focus on why this matters to people and wildlife in Michigan
6. Keep it to 3-4 sentences that feel like a friendly conversation

Output JSON structure:
{
    "text": "A friendly, easy-to-understand summary about the environmental topic in Michigan.",
    "key_metrics": ["metric_id", "..."],
    "sources": [
        {"name": "Michigan DNR", "url": "https://www.michigan.gov/dnr"}
    ],
    "flags": {
        "not_michigan": false,
        "not_relevant": false
    }
}`, query, statsJSON, sourcesJSON)
}
