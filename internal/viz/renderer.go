// Package viz builds Michigan map visualizations by delegating
// rasterization to an external static-map render service.
package viz

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/enviducate/backend/internal/analytics"
	"github.com/enviducate/backend/pkg/logger"
)

// PlaceholderPath is returned whenever a map cannot be produced.
const PlaceholderPath = "/static/images/michigan_placeholder.png"

var michiganCenter = [2]float64{44.3148, -85.6024}

// monitoringPoints are fixed Michigan reference locations rendered as
// circle markers on every map.
var monitoringPoints = []MonitoringPoint{
	{Name: "Detroit Metro", Lat: 42.3314, Lon: -83.0458, Kind: "urban"},
	{Name: "Saginaw Bay", Lat: 43.5, Lon: -83.5, Kind: "wetland"},
	{Name: "Grand Rapids", Lat: 42.9634, Lon: -85.6681, Kind: "urban"},
	{Name: "Upper Peninsula", Lat: 46.4, Lon: -87.4, Kind: "forest"},
	{Name: "Mackinac Bridge", Lat: 45.8174, Lon: -84.7278, Kind: "water"},
	{Name: "Traverse City", Lat: 44.7631, Lon: -85.6206, Kind: "coastal"},
	{Name: "Lansing", Lat: 42.7325, Lon: -84.5555, Kind: "urban"},
	{Name: "Marquette", Lat: 46.5436, Lon: -87.3953, Kind: "forest"},
}

type MonitoringPoint struct {
	Name string  `json:"name"`
	Lat  float64 `json:"lat"`
	Lon  float64 `json:"lon"`
	Kind string  `json:"kind"`
}

type marker struct {
	MonitoringPoint
	Color string `json:"color"`
}

// renderRequest is the payload sent to the render service.
type renderRequest struct {
	Center  [2]float64 `json:"center"`
	Zoom    int        `json:"zoom"`
	Basemap string     `json:"basemap"`
	BBox    [4]float64 `json:"bbox"`
	Markers []marker   `json:"markers"`
	Legend  []string   `json:"legend"`
	Width   int        `json:"width"`
	Height  int        `json:"height"`
}

type Renderer struct {
	renderURL  string
	staticDir  string
	httpClient *http.Client
	newID      func() string
}

func NewRenderer(renderURL, staticDir string, timeout time.Duration) *Renderer {
	if err := os.MkdirAll(staticDir, 0o755); err != nil {
		logger.Warn("Failed to create static image directory",
			zap.String("dir", staticDir),
			zap.Error(err),
		)
	}

	return &Renderer{
		renderURL:  renderURL,
		staticDir:  staticDir,
		httpClient: &http.Client{Timeout: timeout},
		newID: func() string {
			return uuid.New().String()[:8]
		},
	}
}

// Render produces a Michigan map PNG for the query and returns the path
// clients can fetch it from. Rendering never fails the request: any
// error falls back to the placeholder path.
func (r *Renderer) Render(ctx context.Context, query, vizType string, stats analytics.RegionStats) string {
	req := renderRequest{
		Center:  michiganCenter,
		Zoom:    6,
		Basemap: "satellite",
		BBox:    analytics.MichiganBBox,
		Markers: buildMarkers(query, stats),
		Legend:  buildLegendLines(query, vizType, stats),
		Width:   1200,
		Height:  800,
	}

	png, err := r.renderPNG(ctx, req)
	if err != nil {
		logger.Warn("Map rendering failed, using placeholder",
			zap.String("query", query),
			zap.Error(err),
		)
		return PlaceholderPath
	}

	filename := fmt.Sprintf("michigan_map_%s.png", r.newID())
	if err := os.WriteFile(filepath.Join(r.staticDir, filename), png, 0o644); err != nil {
		logger.Warn("Failed to write map image", zap.String("file", filename), zap.Error(err))
		return PlaceholderPath
	}

	return "/static/images/" + filename
}

func (r *Renderer) renderPNG(ctx context.Context, req renderRequest) ([]byte, error) {
	if r.renderURL == "" {
		return nil, fmt.Errorf("render service not configured")
	}

	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to encode render request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, r.renderURL+"/v1/render", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create render request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := r.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("render service request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("render service returned status %d", resp.StatusCode)
	}

	png, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read render response: %w", err)
	}
	if len(png) == 0 {
		return nil, fmt.Errorf("render service returned empty image")
	}

	return png, nil
}

// buildMarkers colors every monitoring point by the indicator the query
// asks about and the computed stats for it.
func buildMarkers(query string, stats analytics.RegionStats) []marker {
	color := markerColor(query, stats)

	markers := make([]marker, 0, len(monitoringPoints))
	for _, p := range monitoringPoints {
		markers = append(markers, marker{MonitoringPoint: p, Color: color})
	}
	return markers
}

func markerColor(query string, stats analytics.RegionStats) string {
	q := strings.ToLower(query)

	switch {
	case strings.Contains(q, "deforestation"):
		if v, _ := stats.Float("deforestation_rate"); v > 5 {
			return "red"
		}
		return "green"
	case strings.Contains(q, "biodiversity"):
		if v, _ := stats.Float("biodiversity_index"); v > 0.7 {
			return "green"
		}
		return "orange"
	case strings.Contains(q, "wildfire"):
		if v, _ := stats.Float("wildfire_count"); v > 10 {
			return "red"
		}
		return "green"
	case strings.Contains(q, "water"):
		if v, _ := stats.Float("water_quality_index"); v > 0.6 {
			return "blue"
		}
		return "red"
	default:
		return "blue"
	}
}

func buildLegendLines(query, vizType string, stats analytics.RegionStats) []string {
	lines := []string{
		"Michigan Environmental Analysis",
		"Query: " + query,
		"Type: " + vizType,
	}

	for _, key := range []string{
		"area_affected", "species_count", "risk_level",
		"deforestation_rate", "biodiversity_index", "wildfire_count",
	} {
		if v, ok := stats[key]; ok {
			lines = append(lines, fmt.Sprintf("%s: %v", key, v))
		}
	}

	return lines
}
