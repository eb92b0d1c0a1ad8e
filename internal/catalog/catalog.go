// Package catalog holds the static registry of geospatial metrics the
// analytics backend can compute over Michigan. Indicator inference picks
// from this list, and summaries backfill metric details from it.
package catalog

import (
	"fmt"
	"strings"
)

type Category string

const (
	CategoryVegetation   Category = "vegetation"
	CategoryClimate      Category = "climate"
	CategoryWater        Category = "water"
	CategoryLandCover    Category = "land_cover"
	CategoryAtmosphere   Category = "atmosphere"
	CategoryFire         Category = "fire"
	CategorySoil         Category = "soil"
	CategoryUrban        Category = "urban"
	CategoryBiodiversity Category = "biodiversity"
	CategoryHydrology    Category = "hydrology"
	CategoryTopography   Category = "topography"
	CategoryAgriculture  Category = "agriculture"
)

type Metric struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Category    Category `json:"category"`
	Range       string   `json:"range,omitempty"`
	Datasets    []string `json:"datasets,omitempty"`
}

// RelevantMetric is a catalog metric scored against a specific query.
type RelevantMetric struct {
	ID             string   `json:"id"`
	Name           string   `json:"name"`
	Description    string   `json:"description"`
	Category       Category `json:"category"`
	RelevanceScore float64  `json:"relevance_score"`
	Range          string   `json:"range,omitempty"`
	Datasets       []string `json:"datasets,omitempty"`
}

var metrics = []Metric{
	{
		ID:          "ndvi",
		Name:        "Normalized Difference Vegetation Index",
		Description: "Vegetation health and density indicator",
		Category:    CategoryVegetation,
		Range:       "[-1, 1]",
		Datasets:    []string{"MODIS/061/MOD13Q1", "LANDSAT/LC08/C02/T1_L2"},
	},
	{
		ID:          "evi",
		Name:        "Enhanced Vegetation Index",
		Description: "Vegetation index with reduced atmospheric and canopy noise",
		Category:    CategoryVegetation,
		Range:       "[-1, 1]",
		Datasets:    []string{"MODIS/061/MOD13Q1"},
	},
	{
		ID:          "ndwi",
		Name:        "Normalized Difference Water Index",
		Description: "Water body detection and water content in vegetation",
		Category:    CategoryWater,
		Range:       "[-1, 1]",
		Datasets:    []string{"MODIS/061/MOD13Q1"},
	},
	{
		ID:          "forest_loss",
		Name:        "Forest Loss",
		Description: "Annual forest cover loss from the Hansen Global Forest Change dataset",
		Category:    CategoryLandCover,
		Range:       "[0, 1]",
		Datasets:    []string{"UMD/hansen/global_forest_change_2023_v1_11"},
	},
	{
		ID:          "deforestation_rate",
		Name:        "Deforestation Rate",
		Description: "Percentage of sampled area showing forest loss",
		Category:    CategoryLandCover,
		Range:       "[0, 100]",
	},
	{
		ID:          "fire_mask",
		Name:        "Active Fire Mask",
		Description: "Daily active fire detections",
		Category:    CategoryFire,
		Datasets:    []string{"MODIS/061/MOD14A1"},
	},
	{
		ID:          "wildfire_risk",
		Name:        "Wildfire Risk Level",
		Description: "Qualitative fire risk band derived from detection counts",
		Category:    CategoryFire,
	},
	{
		ID:          "habitat_diversity",
		Name:        "Habitat Diversity Index",
		Description: "Shannon diversity index of habitat types",
		Category:    CategoryBiodiversity,
		Range:       "[0, 1]",
	},
	{
		ID:          "species_richness",
		Name:        "Species Richness",
		Description: "Estimated count of species supported by sampled habitat",
		Category:    CategoryBiodiversity,
	},
	{
		ID:          "biodiversity_index",
		Name:        "Biodiversity Index",
		Description: "Vegetation-derived proxy for ecosystem biodiversity",
		Category:    CategoryBiodiversity,
		Range:       "[0, 1]",
	},
	{
		ID:          "wetland_area_km2",
		Name:        "Wetland Area",
		Description: "Estimated wetland coverage in square kilometers",
		Category:    CategoryHydrology,
	},
	{
		ID:          "water_quality_index",
		Name:        "Water Quality Index",
		Description: "Composite surface water quality indicator",
		Category:    CategoryWater,
		Range:       "[0, 1]",
	},
	{
		ID:          "turbidity",
		Name:        "Turbidity Level",
		Description: "Qualitative suspended-sediment level in surface water",
		Category:    CategoryWater,
	},
	{
		ID:          "aerosol_optical_depth",
		Name:        "Aerosol Optical Depth",
		Description: "Column aerosol loading over land and ocean",
		Category:    CategoryAtmosphere,
		Datasets:    []string{"MODIS/006/MOD04_L2"},
	},
	{
		ID:          "air_quality_index",
		Name:        "Air Quality Index",
		Description: "Aerosol-derived air quality indicator",
		Category:    CategoryAtmosphere,
		Range:       "[0, 1]",
	},
	{
		ID:          "land_surface_temp",
		Name:        "Land Surface Temperature",
		Description: "Daytime land surface temperature",
		Category:    CategoryClimate,
		Datasets:    []string{"MODIS/061/MOD11A1"},
	},
	{
		ID:          "precipitation",
		Name:        "Precipitation",
		Description: "Accumulated rainfall estimates",
		Category:    CategoryClimate,
		Datasets:    []string{"UCSB-CHG/CHIRPS/DAILY"},
	},
	{
		ID:          "soil_moisture",
		Name:        "Soil Moisture",
		Description: "Surface soil moisture content",
		Category:    CategorySoil,
		Datasets:    []string{"NASA/SMAP/SPL4SMGP/007"},
	},
	{
		ID:          "impervious_surface",
		Name:        "Impervious Surface",
		Description: "Urban built-up and paved area fraction",
		Category:    CategoryUrban,
		Datasets:    []string{"USGS/NLCD_RELEASES/2021_REL/NLCD"},
	},
	{
		ID:          "elevation",
		Name:        "Elevation",
		Description: "Terrain elevation above sea level",
		Category:    CategoryTopography,
		Datasets:    []string{"USGS/SRTMGL1_003"},
	},
	{
		ID:          "cropland_extent",
		Name:        "Cropland Extent",
		Description: "Agricultural land coverage",
		Category:    CategoryAgriculture,
		Datasets:    []string{"USDA/NASS/CDL"},
	},
}

var byID = func() map[string]Metric {
	m := make(map[string]Metric, len(metrics))
	for _, metric := range metrics {
		m[metric.ID] = metric
	}
	return m
}()

func All() []Metric {
	return metrics
}

func Lookup(id string) (Metric, bool) {
	m, ok := byID[id]
	return m, ok
}

// Excerpt renders up to n catalog entries as prompt lines.
func Excerpt(n int) string {
	all := All()
	if n > len(all) {
		n = len(all)
	}

	lines := make([]string, 0, n)
	for _, m := range all[:n] {
		lines = append(lines, fmt.Sprintf("- %s: %s (%s)", m.ID, m.Name, m.Description))
	}

	return strings.Join(lines, "\n")
}

// Relevant resolves metric ids into scored descriptors, skipping ids the
// catalog does not know. Used to backfill detail when the model returns
// only key_metrics.
func Relevant(ids []string, score float64, limit int) []RelevantMetric {
	out := make([]RelevantMetric, 0, len(ids))
	for _, id := range ids {
		if limit > 0 && len(out) >= limit {
			break
		}
		m, ok := Lookup(id)
		if !ok {
			continue
		}
		out = append(out, RelevantMetric{
			ID:             m.ID,
			Name:           m.Name,
			Description:    m.Description,
			Category:       m.Category,
			RelevanceScore: score,
			Range:          m.Range,
			Datasets:       m.Datasets,
		})
	}
	return out
}
