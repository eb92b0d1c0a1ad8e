package analytics

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/enviducate/backend/internal/gee"
)

type fakeSampler struct {
	available bool
	values    map[string][]float64
	err       error
	requests  []gee.SampleRequest
}

func (f *fakeSampler) Available() bool { return f.available }

func (f *fakeSampler) SampleRegions(_ context.Context, req gee.SampleRequest) ([]float64, error) {
	f.requests = append(f.requests, req)
	if f.err != nil {
		return nil, f.err
	}

	key := req.Band
	if key == "" {
		key = req.Expression
	}
	return f.values[key], nil
}

func TestAnalyzeStubWhenUnavailable(t *testing.T) {
	adapter := NewAdapter(&fakeSampler{available: false}, "2022-01-01", "2024-01-01")

	stats := adapter.Analyze(context.Background(), []Indicator{IndicatorDeforestation, IndicatorWildfire})

	assert.Equal(t, "GEE not available", stats["data_source"])
	assert.Equal(t, MichiganAreaKm2, stats["area_affected"])
	assert.Equal(t, "Michigan", stats["region"])
	assert.Equal(t, MichiganBBox, stats["bbox"])

	_, hasRate := stats["deforestation_rate"]
	assert.False(t, hasRate, "indicator keys should be absent in stub stats")
	_, hasRisk := stats["risk_level"]
	assert.False(t, hasRisk)
}

func TestAnalyzeDeforestation(t *testing.T) {
	sampler := &fakeSampler{
		available: true,
		values: map[string][]float64{
			"loss": {0.0, 0.1, 0.2, 0.3},
			"NDVI": {0.5, 0.6, 0.7, 0.8},
		},
	}
	adapter := NewAdapter(sampler, "2022-01-01", "2024-01-01")

	stats := adapter.Analyze(context.Background(), []Indicator{IndicatorDeforestation})

	assert.Equal(t, 15.0, stats["deforestation_rate"])
	assert.Equal(t, 0.65, stats["ndvi_mean"])
	assert.Equal(t, "Google Earth Engine", stats["data_source"])
	assert.Equal(t, MichiganAreaKm2, stats["area_affected"])
}

func TestAnalyzeWildfireRiskBands(t *testing.T) {
	tests := []struct {
		name   string
		values []float64
		count  int
		risk   string
	}{
		{"high above twenty", []float64{15, 10}, 25, "High"},
		{"medium above ten", []float64{8, 7}, 15, "Medium"},
		{"low at boundary", []float64{5, 5}, 10, "Low"},
		{"low when empty", nil, 0, "Low"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sampler := &fakeSampler{
				available: true,
				values:    map[string][]float64{"FireMask": tt.values},
			}
			adapter := NewAdapter(sampler, "2022-01-01", "2024-01-01")

			stats := adapter.Analyze(context.Background(), []Indicator{IndicatorWildfire})

			assert.Equal(t, tt.count, stats["wildfire_count"])
			assert.Equal(t, tt.risk, stats["risk_level"])
		})
	}
}

func TestRiskLevel(t *testing.T) {
	assert.Equal(t, "Low", RiskLevel(0))
	assert.Equal(t, "Low", RiskLevel(10))
	assert.Equal(t, "Medium", RiskLevel(11))
	assert.Equal(t, "Medium", RiskLevel(20))
	assert.Equal(t, "High", RiskLevel(21))
}

func TestBiodiversityIndexClamped(t *testing.T) {
	assert.Equal(t, 0.0, BiodiversityIndex(-0.5))
	assert.Equal(t, 0.4, BiodiversityIndex(0.2))
	assert.Equal(t, 1.0, BiodiversityIndex(0.9))
}

func TestAnalyzeBiodiversity(t *testing.T) {
	sampler := &fakeSampler{
		available: true,
		values:    map[string][]float64{"EVI": {0.3, 0.3}},
	}
	adapter := NewAdapter(sampler, "2022-01-01", "2024-01-01")

	stats := adapter.Analyze(context.Background(), []Indicator{IndicatorBiodiversity})

	assert.Equal(t, 0.6, stats["biodiversity_index"])
	assert.Equal(t, 60, stats["species_count"])
}

func TestAnalyzeWetlands(t *testing.T) {
	sampler := &fakeSampler{
		available: true,
		values: map[string][]float64{
			"nd(sur_refl_b02,sur_refl_b07)": {0.5, 0.4, 0.1, -0.2},
		},
	}
	adapter := NewAdapter(sampler, "2022-01-01", "2024-01-01")

	stats := adapter.Analyze(context.Background(), []Indicator{IndicatorWetlands})

	assert.Equal(t, 125246.5, stats["wetland_area_km2"])
	assert.Equal(t, 0.5, stats["water_quality_index"])
}

func TestWaterQualityIndexClamped(t *testing.T) {
	assert.Equal(t, 0.0, WaterQualityIndex(-1.5))
	assert.Equal(t, 0.5, WaterQualityIndex(0))
	assert.Equal(t, 1.0, WaterQualityIndex(1.2))
}

func TestTurbidityLevel(t *testing.T) {
	assert.Equal(t, "Low", TurbidityLevel(0.8))
	assert.Equal(t, "Medium", TurbidityLevel(0.5))
	assert.Equal(t, "High", TurbidityLevel(0.4))
	assert.Equal(t, "High", TurbidityLevel(0.1))
}

func TestAnalyzeAirQualityDefaultsAerosol(t *testing.T) {
	sampler := &fakeSampler{
		available: true,
		values:    map[string][]float64{"Optical_Depth_Land_And_Ocean": nil},
	}
	adapter := NewAdapter(sampler, "2022-01-01", "2024-01-01")

	stats := adapter.Analyze(context.Background(), []Indicator{IndicatorAirQuality})

	assert.Equal(t, 0.2, stats["aerosol_optical_depth"])
	assert.Equal(t, 0.8, stats["air_quality_index"])
}

func TestAnalyzeIsolatesFailedIndicator(t *testing.T) {
	sampler := &failOnceSampler{
		fakeSampler: fakeSampler{
			available: true,
			values: map[string][]float64{
				"FireMask": {25},
			},
		},
		failBand: "loss",
	}
	adapter := NewAdapter(sampler, "2022-01-01", "2024-01-01")

	stats := adapter.Analyze(context.Background(), []Indicator{IndicatorDeforestation, IndicatorWildfire})

	_, hasRate := stats["deforestation_rate"]
	assert.False(t, hasRate, "failed indicator keys should be absent")
	assert.Equal(t, 25, stats["wildfire_count"])
	assert.Equal(t, "High", stats["risk_level"])
	assert.Equal(t, "Google Earth Engine", stats["data_source"])
}

type failOnceSampler struct {
	fakeSampler
	failBand string
}

func (f *failOnceSampler) SampleRegions(ctx context.Context, req gee.SampleRequest) ([]float64, error) {
	if req.Band == f.failBand {
		return nil, errors.New("sample failed")
	}
	return f.fakeSampler.SampleRegions(ctx, req)
}

func TestSamplePointsDeterministic(t *testing.T) {
	first := samplePoints(samplePointCount)
	second := samplePoints(samplePointCount)

	require.Len(t, first, samplePointCount)
	assert.Equal(t, first, second)

	for _, p := range first {
		assert.GreaterOrEqual(t, p.Lon, MichiganBBox[0])
		assert.LessOrEqual(t, p.Lon, MichiganBBox[2])
		assert.GreaterOrEqual(t, p.Lat, MichiganBBox[1])
		assert.LessOrEqual(t, p.Lat, MichiganBBox[3])
	}
}
