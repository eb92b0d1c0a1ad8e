package sqlite

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"

	"github.com/enviducate/backend/internal/storage/models"
	"github.com/enviducate/backend/pkg/logger"
)

type Client struct {
	db *sql.DB
}

func NewClient(dbPath string) (*Client, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	_, err = db.Exec("PRAGMA journal_mode = WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	logger.Info("SQLite client initialized", zap.String("path", dbPath))

	return &Client{db: db}, nil
}

func (c *Client) Close() error {
	return c.db.Close()
}

func (c *Client) InitSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS query_history (
		id TEXT PRIMARY KEY,
		query_text TEXT NOT NULL,
		visualization_type TEXT,
		cache_hit INTEGER DEFAULT 0,
		degraded INTEGER DEFAULT 0,
		indicators TEXT,
		latency_ms INTEGER,
		created_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_query_created ON query_history(created_at);
	`

	_, err := c.db.Exec(schema)
	if err != nil {
		return fmt.Errorf("failed to initialize schema: %w", err)
	}

	logger.Info("Database schema initialized")
	return nil
}

func (c *Client) InsertQueryRecord(record *models.QueryRecord) error {
	query := `
		INSERT INTO query_history (id, query_text, visualization_type, cache_hit, degraded, indicators, latency_ms, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`

	cacheHit := 0
	if record.CacheHit {
		cacheHit = 1
	}
	degraded := 0
	if record.Degraded {
		degraded = 1
	}

	_, err := c.db.Exec(
		query,
		record.ID,
		record.QueryText,
		record.VisualizationType,
		cacheHit,
		degraded,
		strings.Join(record.Indicators, ","),
		record.LatencyMS,
		record.CreatedAt.Unix(),
	)

	if err != nil {
		return fmt.Errorf("failed to insert query record: %w", err)
	}

	logger.Info("Query recorded",
		zap.String("query_id", record.ID),
		zap.String("query", record.QueryText),
		zap.Bool("cache_hit", record.CacheHit),
	)

	return nil
}

func (c *Client) GetQueryHistory(limit int) ([]models.QueryRecord, error) {
	query := `
		SELECT id, query_text, visualization_type, cache_hit, degraded, indicators, latency_ms, created_at
		FROM query_history
		ORDER BY created_at DESC
		LIMIT ?
	`

	rows, err := c.db.Query(query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get query history: %w", err)
	}
	defer rows.Close()

	var records []models.QueryRecord
	for rows.Next() {
		var r models.QueryRecord
		var cacheHit, degraded int
		var indicators string
		var createdAt int64

		err := rows.Scan(&r.ID, &r.QueryText, &r.VisualizationType, &cacheHit, &degraded, &indicators, &r.LatencyMS, &createdAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}

		r.CacheHit = cacheHit == 1
		r.Degraded = degraded == 1
		if indicators != "" {
			r.Indicators = strings.Split(indicators, ",")
		}
		r.CreatedAt = time.Unix(createdAt, 0)
		records = append(records, r)
	}

	return records, rows.Err()
}
