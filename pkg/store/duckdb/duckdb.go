// Package duckdb owns the local audit database: persisted runs, report rows
// and the change history consulted before remediation.
package duckdb

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"fmt"

	"github.com/marcboeker/go-duckdb/v2"
)

const RunsSchema = `
	CREATE TABLE IF NOT EXISTS runs (
		id VARCHAR NOT NULL PRIMARY KEY,
		started_at TIMESTAMP NOT NULL,
		finished_at TIMESTAMP NOT NULL,
		scopes VARCHAR,
		entry_count INTEGER NOT NULL,
		finding_count INTEGER NOT NULL
	);
`

const EntriesSchema = `
	CREATE TABLE IF NOT EXISTS entries (
		run_id VARCHAR NOT NULL,
		resource_id VARCHAR NOT NULL,
		resource_name VARCHAR,
		resource_kind VARCHAR,
		scope VARCHAR,
		resource_group VARCHAR,
		finding_id VARCHAR,
		category VARCHAR,
		severity VARCHAR,
		reason VARCHAR,
		recommendation VARCHAR,
		action_outcome VARCHAR,
		action_error VARCHAR,
		PRIMARY KEY (run_id, resource_id)
	);
`

const ChangesSchema = `
	CREATE TABLE IF NOT EXISTS change_history (
		resource_id VARCHAR NOT NULL,
		action VARCHAR NOT NULL,
		applied_at TIMESTAMP NOT NULL
	);
`

var bootQueries = []string{
	RunsSchema,
	EntriesSchema,
	ChangesSchema,
}

type Settings struct {
	DbPath string
}

func NewDB(settings Settings) (*sql.DB, error) {
	c, err := duckdb.NewConnector(fmt.Sprintf("%s?threads=4", settings.DbPath), func(exec driver.ExecerContext) error {
		for _, query := range bootQueries {
			_, err := exec.ExecContext(context.Background(), query, nil)
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return sql.OpenDB(c), nil
}
