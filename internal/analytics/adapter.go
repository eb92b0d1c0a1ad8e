// Package analytics derives Michigan-wide environmental statistics from
// sample-based raster reductions performed by the remote analytics
// backend.
package analytics

import (
	"context"
	"math"

	"go.uber.org/zap"

	"github.com/enviducate/backend/internal/gee"
	"github.com/enviducate/backend/pkg/logger"
)

// Sampler is the slice of the analytics backend the adapter needs.
type Sampler interface {
	Available() bool
	SampleRegions(ctx context.Context, req gee.SampleRequest) ([]float64, error)
}

type routine func(ctx context.Context, points []gee.Point) (RegionStats, error)

type Adapter struct {
	sampler   Sampler
	startDate string
	endDate   string
	routines  map[Indicator]routine
}

func NewAdapter(sampler Sampler, startDate, endDate string) *Adapter {
	a := &Adapter{
		sampler:   sampler,
		startDate: startDate,
		endDate:   endDate,
	}

	a.routines = map[Indicator]routine{
		IndicatorDeforestation: a.analyzeDeforestation,
		IndicatorBiodiversity:  a.analyzeBiodiversity,
		IndicatorWildfire:      a.analyzeWildfire,
		IndicatorWetlands:      a.analyzeWetlands,
		IndicatorWaterQuality:  a.analyzeWaterQuality,
		IndicatorAirQuality:    a.analyzeAirQuality,
	}

	return a
}

// Analyze runs one routine per requested indicator. A failed routine is
// logged and its keys left absent; the remaining indicators still run.
// When the backend is unavailable the fixed stub result is returned.
func (a *Adapter) Analyze(ctx context.Context, indicators []Indicator) RegionStats {
	if !a.sampler.Available() {
		logger.Warn("Analytics backend not available, returning stub stats",
			zap.Int("indicators", len(indicators)),
		)
		return StubStats()
	}

	points := samplePoints(samplePointCount)
	stats := RegionStats{}

	for _, indicator := range indicators {
		run, ok := a.routines[indicator]
		if !ok {
			logger.Warn("Unknown indicator requested", zap.String("indicator", string(indicator)))
			continue
		}

		partial, err := run(ctx, points)
		if err != nil {
			logger.Error("Indicator analysis failed",
				zap.String("indicator", string(indicator)),
				zap.Error(err),
			)
			continue
		}

		for k, v := range partial {
			stats[k] = v
		}
	}

	stats["area_affected"] = MichiganAreaKm2
	stats["data_source"] = "Google Earth Engine"
	stats["region"] = "Michigan"
	stats["bbox"] = MichiganBBox

	return stats
}

// StubStats is the fixed result used when the analytics backend cannot
// be reached; indicator-specific keys stay absent.
func StubStats() RegionStats {
	return RegionStats{
		"area_affected": MichiganAreaKm2,
		"data_source":   "GEE not available",
		"region":        "Michigan",
		"bbox":          MichiganBBox,
	}
}

func (a *Adapter) analyzeDeforestation(ctx context.Context, points []gee.Point) (RegionStats, error) {
	lossValues, err := a.sampler.SampleRegions(ctx, gee.SampleRequest{
		Dataset: "UMD/hansen/global_forest_change_2023_v1_11",
		Band:    "loss",
		Reducer: "mean",
		Scale:   sampleScale,
		Points:  points,
	})
	if err != nil {
		return nil, err
	}

	ndviValues, err := a.sampler.SampleRegions(ctx, gee.SampleRequest{
		Dataset:   "MODIS/061/MOD13Q1",
		Band:      "NDVI",
		Reducer:   "mean",
		StartDate: a.startDate,
		EndDate:   a.endDate,
		Scale:     sampleScale,
		Points:    points,
	})
	if err != nil {
		return nil, err
	}

	return RegionStats{
		"deforestation_rate": round(mean(lossValues)*100, 2),
		"ndvi_mean":          round(mean(ndviValues), 3),
	}, nil
}

func (a *Adapter) analyzeBiodiversity(ctx context.Context, points []gee.Point) (RegionStats, error) {
	eviValues, err := a.sampler.SampleRegions(ctx, gee.SampleRequest{
		Dataset:   "MODIS/061/MOD13Q1",
		Band:      "EVI",
		Reducer:   "mean",
		StartDate: a.startDate,
		EndDate:   a.endDate,
		Scale:     sampleScale,
		Points:    points,
	})
	if err != nil {
		return nil, err
	}

	index := BiodiversityIndex(mean(eviValues))

	return RegionStats{
		"biodiversity_index": round(index, 3),
		"species_count":      int(index * 100),
	}, nil
}

func (a *Adapter) analyzeWildfire(ctx context.Context, points []gee.Point) (RegionStats, error) {
	fireValues, err := a.sampler.SampleRegions(ctx, gee.SampleRequest{
		Dataset:   "MODIS/061/MOD14A1",
		Band:      "FireMask",
		Reducer:   "sum",
		StartDate: a.startDate,
		EndDate:   a.endDate,
		Scale:     sampleScale,
		Points:    points,
	})
	if err != nil {
		return nil, err
	}

	count := int(sum(fireValues))

	return RegionStats{
		"wildfire_count": count,
		"risk_level":     RiskLevel(count),
	}, nil
}

func (a *Adapter) analyzeWetlands(ctx context.Context, points []gee.Point) (RegionStats, error) {
	ndwiValues, err := a.sampler.SampleRegions(ctx, gee.SampleRequest{
		Dataset:    "MODIS/061/MOD13Q1",
		Expression: "nd(sur_refl_b02,sur_refl_b07)",
		Reducer:    "mean",
		StartDate:  a.startDate,
		EndDate:    a.endDate,
		Scale:      sampleScale,
		Points:     points,
	})
	if err != nil {
		return nil, err
	}

	ratio := waterPixelRatio(ndwiValues)

	return RegionStats{
		"wetland_area_km2":    round(ratio*MichiganAreaKm2, 2),
		"water_quality_index": math.Min(1.0, ratio),
	}, nil
}

func (a *Adapter) analyzeWaterQuality(ctx context.Context, points []gee.Point) (RegionStats, error) {
	ndwiValues, err := a.sampler.SampleRegions(ctx, gee.SampleRequest{
		Dataset:    "MODIS/061/MOD13Q1",
		Expression: "nd(sur_refl_b02,sur_refl_b07)",
		Reducer:    "mean",
		StartDate:  a.startDate,
		EndDate:    a.endDate,
		Scale:      sampleScale,
		Points:     points,
	})
	if err != nil {
		return nil, err
	}

	index := WaterQualityIndex(mean(ndwiValues))

	return RegionStats{
		"water_quality_index": round(index, 3),
		"turbidity_level":     TurbidityLevel(index),
	}, nil
}

func (a *Adapter) analyzeAirQuality(ctx context.Context, points []gee.Point) (RegionStats, error) {
	aerosolValues, err := a.sampler.SampleRegions(ctx, gee.SampleRequest{
		Dataset:   "MODIS/006/MOD04_L2",
		Band:      "Optical_Depth_Land_And_Ocean",
		Reducer:   "mean",
		StartDate: a.startDate,
		EndDate:   a.endDate,
		Scale:     sampleScale,
		Points:    points,
	})
	if err != nil {
		return nil, err
	}

	aod := 0.2
	if len(aerosolValues) > 0 {
		aod = mean(aerosolValues)
	}

	return RegionStats{
		"air_quality_index":     round(clamp01(1-aod), 3),
		"aerosol_optical_depth": round(aod, 3),
	}, nil
}

// BiodiversityIndex scales a mean enhanced-vegetation-index value into a
// [0, 1] biodiversity proxy.
func BiodiversityIndex(eviMean float64) float64 {
	return clamp01(eviMean * 2)
}

// RiskLevel classifies a summed fire-detection count.
func RiskLevel(wildfireCount int) string {
	switch {
	case wildfireCount > 20:
		return "High"
	case wildfireCount > 10:
		return "Medium"
	default:
		return "Low"
	}
}

// WaterQualityIndex rescales a mean NDWI value from [-1, 1] to [0, 1].
func WaterQualityIndex(ndwiMean float64) float64 {
	return clamp01((ndwiMean + 1) / 2)
}

// TurbidityLevel classifies a water quality index.
func TurbidityLevel(index float64) string {
	switch {
	case index > 0.7:
		return "Low"
	case index > 0.4:
		return "Medium"
	default:
		return "High"
	}
}

func waterPixelRatio(ndwiValues []float64) float64 {
	if len(ndwiValues) == 0 {
		return 0
	}

	water := 0
	for _, v := range ndwiValues {
		if v > 0.3 {
			water++
		}
	}

	return float64(water) / float64(len(ndwiValues))
}

func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	return sum(values) / float64(len(values))
}

func sum(values []float64) float64 {
	total := 0.0
	for _, v := range values {
		total += v
	}
	return total
}

func clamp01(v float64) float64 {
	return math.Min(1.0, math.Max(0.0, v))
}

func round(v float64, decimals int) float64 {
	factor := math.Pow(10, float64(decimals))
	return math.Round(v*factor) / factor
}
