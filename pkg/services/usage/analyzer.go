// Package usage reads warehouse query history from the workspace system
// tables over the Databricks SQL driver. Query counts back the idle-warehouse
// classification: zero completed queries in the lookback window is observed
// idleness, while an unreachable history table stays unknown.
package usage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/databricks/databricks-sql-go"
)

type Analyzer struct {
	db *sql.DB
}

// Open connects to the workspace SQL endpoint described by cfg.
func Open(cfg *Config) (*sql.DB, error) {
	dsn := fmt.Sprintf("token:%s@%s%s", cfg.Token, cfg.Host, cfg.HTTPPath)
	db, err := sql.Open("databricks", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to Databricks: %w", err)
	}
	return db, nil
}

func NewAnalyzer(db *sql.DB) (*Analyzer, error) {
	if db == nil {
		return nil, fmt.Errorf("database connection is nil")
	}
	return &Analyzer{db: db}, nil
}

// QueryCounts returns completed query counts per warehouse since the given
// time. Warehouses absent from the result ran zero queries in the window.
func (a *Analyzer) QueryCounts(ctx context.Context, since time.Time) (map[string]int, error) {
	query := `
		SELECT warehouse_id, COUNT(*) AS query_count
		FROM system.query.history
		WHERE start_time >= ?
		GROUP BY warehouse_id`

	rows, err := a.db.QueryContext(ctx, query, since)
	if err != nil {
		return nil, fmt.Errorf("failed to query warehouse history: %w", err)
	}
	defer func() { _ = rows.Close() }()

	counts := make(map[string]int)
	for rows.Next() {
		var warehouseID string
		var count int
		if err := rows.Scan(&warehouseID, &count); err != nil {
			return nil, fmt.Errorf("failed to scan history row: %w", err)
		}
		counts[warehouseID] = count
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read history rows: %w", err)
	}
	return counts, nil
}
