// Package gee is the HTTP client for the remote geospatial analytics
// backend. The backend owns all raster computation; this client only
// submits sample-reduction requests and returns per-point scalars.
package gee

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/enviducate/backend/pkg/circuitbreaker"
	"github.com/enviducate/backend/pkg/logger"
	"github.com/enviducate/backend/pkg/retry"
)

type Point struct {
	Lon float64 `json:"lon"`
	Lat float64 `json:"lat"`
}

// SampleRequest asks the backend to reduce one raster band (or band
// expression) at each sample point over a date window.
type SampleRequest struct {
	Dataset string `json:"dataset"`
	Band    string `json:"band,omitempty"`
	// Expression names a derived band, e.g. a normalized difference of
	// two reflectance bands, computed server-side.
	Expression string  `json:"expression,omitempty"`
	Reducer    string  `json:"reducer"`
	StartDate  string  `json:"start_date,omitempty"`
	EndDate    string  `json:"end_date,omitempty"`
	Scale      int     `json:"scale"`
	Points     []Point `json:"points"`
}

type sampleResponse struct {
	Values []float64 `json:"values"`
	Error  string    `json:"error,omitempty"`
}

type Client struct {
	endpoint    string
	apiKey      string
	httpClient  *http.Client
	available   bool
	cb          *circuitbreaker.CircuitBreaker
	retryConfig retry.Config
}

// NewClient probes the backend once at startup. A failed probe marks the
// client unavailable instead of failing the process; the analytics
// adapter degrades to stub results in that case.
func NewClient(endpoint, apiKey string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 60 * time.Second
	}

	c := &Client{
		endpoint:   endpoint,
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: timeout},
		cb: circuitbreaker.New("gee", circuitbreaker.Config{
			Timeout:          time.Minute,
			FailureThreshold: 5,
			SuccessThreshold: 2,
			Logger:           logger.GetLogger(),
		}),
		retryConfig: retry.Config{
			MaxAttempts:    3,
			InitialDelay:   500 * time.Millisecond,
			MaxDelay:       5 * time.Second,
			Multiplier:     2.0,
			JitterFraction: 0.1,
			Logger:         logger.GetLogger(),
		},
	}

	if err := c.ping(); err != nil {
		logger.Warn("Geospatial analytics backend unavailable", zap.Error(err))
		c.available = false
	} else {
		logger.Info("Geospatial analytics client initialized", zap.String("endpoint", endpoint))
		c.available = true
	}

	return c
}

func (c *Client) ping() error {
	req, err := http.NewRequest(http.MethodGet, c.endpoint+"/v1/health", nil)
	if err != nil {
		return err
	}
	c.authorize(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to reach analytics backend: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return fmt.Errorf("analytics backend authentication failed: status %d", resp.StatusCode)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("analytics backend returned status %d", resp.StatusCode)
	}

	return nil
}

func (c *Client) Available() bool {
	return c.available
}

// SampleRegions submits one reduction request and returns the per-point
// values.
func (c *Client) SampleRegions(ctx context.Context, req SampleRequest) ([]float64, error) {
	if !c.available {
		return nil, fmt.Errorf("analytics backend not available")
	}

	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal sample request: %w", err)
	}

	var values []float64

	err = c.cb.Execute(ctx, func() error {
		return retry.Do(ctx, c.retryConfig, func() error {
			httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost,
				c.endpoint+"/v1/sample", bytes.NewReader(body))
			if err != nil {
				return fmt.Errorf("failed to create request: %w", err)
			}
			httpReq.Header.Set("Content-Type", "application/json")
			c.authorize(httpReq)

			resp, err := c.httpClient.Do(httpReq)
			if err != nil {
				return fmt.Errorf("sample request failed: %w", err)
			}
			defer resp.Body.Close()

			respBody, err := io.ReadAll(resp.Body)
			if err != nil {
				return fmt.Errorf("failed to read sample response: %w", err)
			}

			if resp.StatusCode != http.StatusOK {
				return fmt.Errorf("sample request returned status %d: %s", resp.StatusCode, respBody)
			}

			var parsed sampleResponse
			if err := json.Unmarshal(respBody, &parsed); err != nil {
				return fmt.Errorf("failed to parse sample response: %w", err)
			}
			if parsed.Error != "" {
				return fmt.Errorf("sample request rejected: %s", parsed.Error)
			}

			values = parsed.Values
			return nil
		})
	})

	if err != nil {
		return nil, err
	}

	logger.Debug("Sample reduction completed",
		zap.String("dataset", req.Dataset),
		zap.Int("values", len(values)),
	)

	return values, nil
}

func (c *Client) authorize(req *http.Request) {
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
}
