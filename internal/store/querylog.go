// Package store persists query history to PostgreSQL for offline
// analysis of traffic and intent distribution.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/lib/pq"
)

// QueryRecord is one handled query.
type QueryRecord struct {
	ID           string
	QueryText    string
	Intents      []string
	LocationName string
	SectionCount int
	Provenances  []string
	ElapsedMS    int64
	CreatedAt    time.Time
}

// QueryLogRepository reads and writes query history.
type QueryLogRepository struct {
	db *sql.DB
}

func NewQueryLogRepository(db *sql.DB) *QueryLogRepository {
	return &QueryLogRepository{db: db}
}

// EnsureSchema creates the query_logs table when it does not exist.
func (r *QueryLogRepository) EnsureSchema(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS query_logs (
			id TEXT PRIMARY KEY,
			query_text TEXT NOT NULL,
			intents TEXT[] NOT NULL,
			location_name TEXT,
			section_count INTEGER NOT NULL,
			provenances TEXT[] NOT NULL,
			elapsed_ms BIGINT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL
		)`)
	if err != nil {
		return fmt.Errorf("failed to ensure query_logs schema: %w", err)
	}
	return nil
}

// Record inserts one handled query.
func (r *QueryLogRepository) Record(ctx context.Context, rec QueryRecord) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO query_logs
			(id, query_text, intents, location_name, section_count, provenances, elapsed_ms, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		rec.ID,
		rec.QueryText,
		pq.Array(rec.Intents),
		rec.LocationName,
		rec.SectionCount,
		pq.Array(rec.Provenances),
		rec.ElapsedMS,
		rec.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to record query: %w", err)
	}
	return nil
}

// Recent returns the latest handled queries, newest first.
func (r *QueryLogRepository) Recent(ctx context.Context, limit int) ([]QueryRecord, error) {
	if limit <= 0 {
		limit = 20
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT id, query_text, intents, location_name, section_count, provenances, elapsed_ms, created_at
		FROM query_logs
		ORDER BY created_at DESC
		LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query recent logs: %w", err)
	}
	defer rows.Close()

	var records []QueryRecord
	for rows.Next() {
		var rec QueryRecord
		if err := rows.Scan(
			&rec.ID,
			&rec.QueryText,
			pq.Array(&rec.Intents),
			&rec.LocationName,
			&rec.SectionCount,
			pq.Array(&rec.Provenances),
			&rec.ElapsedMS,
			&rec.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan query log row: %w", err)
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// IntentCounts returns how many queries carried each primary intent
// since the given time.
func (r *QueryLogRepository) IntentCounts(ctx context.Context, since time.Time) (map[string]int64, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT intents[1], COUNT(*)
		FROM query_logs
		WHERE created_at >= $1
		GROUP BY intents[1]`, since)
	if err != nil {
		return nil, fmt.Errorf("failed to query intent counts: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int64)
	for rows.Next() {
		var intent string
		var count int64
		if err := rows.Scan(&intent, &count); err != nil {
			return nil, fmt.Errorf("failed to scan intent count row: %w", err)
		}
		counts[intent] = count
	}
	return counts, rows.Err()
}
