package analytics

// Indicator is a named environmental phenomenon category the adapter can
// analyze over the fixed Michigan region.
type Indicator string

const (
	IndicatorDeforestation Indicator = "deforestation"
	IndicatorBiodiversity  Indicator = "biodiversity"
	IndicatorWildfire      Indicator = "wildfire"
	IndicatorWetlands      Indicator = "wetlands"
	IndicatorWaterQuality  Indicator = "water_quality"
	IndicatorAirQuality    Indicator = "air_quality"
)

// Indicators lists every supported tag, in canonical order.
func Indicators() []Indicator {
	return []Indicator{
		IndicatorDeforestation,
		IndicatorBiodiversity,
		IndicatorWildfire,
		IndicatorWetlands,
		IndicatorWaterQuality,
		IndicatorAirQuality,
	}
}

// ParseIndicator validates a raw tag from model output.
func ParseIndicator(s string) (Indicator, bool) {
	for _, ind := range Indicators() {
		if string(ind) == s {
			return ind, true
		}
	}
	return "", false
}

// RegionStats is the flat metric map produced per query. Keys are
// populated only by the indicator routines that ran; absent keys mean
// the indicator was not requested or its routine failed.
type RegionStats map[string]any

// Float returns a numeric stat, tolerating the number types that survive
// a JSON round trip.
func (s RegionStats) Float(key string) (float64, bool) {
	switch v := s[key].(type) {
	case float64:
		return v, true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	default:
		return 0, false
	}
}

func (s RegionStats) String(key string) (string, bool) {
	v, ok := s[key].(string)
	return v, ok
}

// Michigan is the fixed analysis region.
var (
	// MichiganBBox is [west, south, east, north].
	MichiganBBox = [4]float64{-90, 41, -82, 48}

	// MichiganAreaKm2 is the total state area reported as area_affected.
	MichiganAreaKm2 = 250493.0
)
