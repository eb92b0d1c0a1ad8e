package models

import "time"

// QueryRecord is one processed analysis query kept for history.
type QueryRecord struct {
	ID                string    `json:"id"`
	QueryText         string    `json:"query_text"`
	VisualizationType string    `json:"visualization_type"`
	CacheHit          bool      `json:"cache_hit"`
	Degraded          bool      `json:"degraded"`
	Indicators        []string  `json:"indicators"`
	LatencyMS         int64     `json:"latency_ms"`
	CreatedAt         time.Time `json:"created_at"`
}
