// Package resources recommends Michigan environmental organizations a
// reader can act through after seeing an analysis.
package resources

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/enviducate/backend/internal/analytics"
	"github.com/enviducate/backend/internal/llm"
	"github.com/enviducate/backend/pkg/logger"
)

const shareBaseURL = "https://enviducate.com/share/"

type Charity struct {
	Name        string `json:"name"`
	URL         string `json:"url"`
	Description string `json:"description"`
}

type Resources struct {
	Charities    []Charity `json:"charities"`
	ShareableURL string    `json:"shareableUrl"`

	// Degraded marks the empty fallback produced when the model call or
	// its JSON output failed.
	Degraded bool `json:"-"`
}

// defaultCharities covers the common case of a model response that names
// no organizations.
var defaultCharities = []Charity{
	{
		Name:        "Michigan Nature Association",
		URL:         "https://www.michigannature.org",
		Description: "Protects Michigan's rare and endangered species through nature sanctuaries",
	},
	{
		Name:        "Huron River Watershed Council",
		URL:         "https://www.hrwc.org",
		Description: "Protects the Huron River and its watershed through science and advocacy",
	},
	{
		Name:        "Michigan United Conservation Clubs",
		URL:         "https://www.mucc.org",
		Description: "Conserves Michigan's natural resources and outdoor heritage",
	},
}

type Recommender struct {
	client llm.Client
	newID  func() string
}

func NewRecommender(client llm.Client) *Recommender {
	return &Recommender{
		client: client,
		newID: func() string {
			return uuid.New().String()[:8]
		},
	}
}

// Recommend asks the model for Michigan organizations relevant to the
// query. Failures yield the empty fallback, never an error.
func (r *Recommender) Recommend(ctx context.Context, query string, stats analytics.RegionStats) Resources {
	if r.client == nil {
		return fallbackResources()
	}

	resp, err := r.client.Complete(ctx, llm.CompletionRequest{
		SystemPrompt: "You recommend Michigan environmental organizations. Respond with JSON only.",
		UserPrompt:   buildResourcesPrompt(query, stats),
		Temperature:  0.4,
		MaxTokens:    768,
	})
	if err != nil {
		logger.Error("Resource generation failed", zap.String("query", query), zap.Error(err))
		return fallbackResources()
	}

	var parsed struct {
		Charities []Charity `json:"charities"`
	}
	if err := llm.DecodeJSON(resp.Content, &parsed); err != nil {
		logger.Error("Resource response was not valid JSON",
			zap.String("query", query),
			zap.Error(err),
		)
		return fallbackResources()
	}

	charities := parsed.Charities
	if charities == nil {
		charities = defaultCharities
	}

	return Resources{
		Charities:    charities,
		ShareableURL: shareBaseURL + r.newID(),
	}
}

func fallbackResources() Resources {
	return Resources{
		Charities:    []Charity{},
		ShareableURL: "",
		Degraded:     true,
	}
}

func buildResourcesPrompt(query string, stats analytics.RegionStats) string {
	statsJSON, _ := json.MarshalIndent(stats, "", "  ")

	return fmt.Sprintf(`Find relevant Michigan environmental organizations and resources for this query:

Query: %q
Environmental Data: %s

Return JSON with:
1. charities: Array of Michigan environmental organizations with name, url, description

Focus on Michigan-specific organizations and resources.`, query, statsJSON)
}
