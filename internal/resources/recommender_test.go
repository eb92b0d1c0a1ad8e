package resources

import (
	"context"
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
}

func (f *fakeClient) Complete(_ context.Context, _ llm.CompletionRequest) (*llm.CompletionResponse, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &llm.CompletionResponse{Content: f.content}, nil
}

func TestRecommendParsesCharities(t *testing.T) {
	client := &fakeClient{content: `{
		"charities": [
			{"name": "Sierra Club Michigan", "url": "https://www.sierraclub.org/michigan", "description": "State chapter"}
		]
	}`}
	r := NewRecommender(client)
	r.newID = func() string { return "abcd1234" }

	out := r.Recommend(context.Background(), "deforestation", analytics.RegionStats{})

	assert.False(t, out.Degraded)
	require.Len(t, out.Charities, 1)
	assert.Equal(t, "Sierra Club Michigan", out.Charities[0].Name)
	assert.Equal(t, "https://enviducate.com/share/abcd1234", out.ShareableURL)
}

func TestRecommendDefaultsWhenCharitiesMissing(t *testing.T) {
	client := &fakeClient{content: `{"notes": "no charities key"}`}
	r := NewRecommender(client)

	out := r.Recommend(context.Background(), "wetlands", analytics.RegionStats{})

	assert.False(t, out.Degraded)
	assert.Equal(t, defaultCharities, out.Charities)
	assert.Contains(t, out.ShareableURL, "https://enviducate.com/share/")
}

func TestRecommendFallbackOnModelError(t *testing.T) {
	client := &fakeClient{err: errors.New("model unavailable")}
	r := NewRecommender(client)

	out := r.Recommend(context.Background(), "air quality", analytics.RegionStats{})

	assert.True(t, out.Degraded)
	assert.Empty(t, out.Charities)
	assert.Equal(t, "", out.ShareableURL)
}

func TestRecommendFallbackOnMalformedJSON(t *testing.T) {
	client := &fakeClient{content: "no json here"}
	r := NewRecommender(client)

	out := r.Recommend(context.Background(), "water quality", analytics.RegionStats{})

	assert.True(t, out.Degraded)
	assert.Empty(t, out.Charities)
}

func TestRecommendStripsCodeFence(t *testing.T) {
	client := &fakeClient{content: "```json\n{\"charities\": []}\n```"}
	r := NewRecommender(client)

	out := r.Recommend(context.Background(), "query", analytics.RegionStats{})

	assert.False(t, out.Degraded)
	assert.Empty(t, out.Charities)
	assert.NotEmpty(t, out.ShareableURL)
}
