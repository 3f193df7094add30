package history

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/pyxhealth/cloudaudit/pkg/models/domain"
	"github.com/pyxhealth/cloudaudit/pkg/models/store"
)

// Store persists audit runs and remediation history.
type Store interface {
	SaveRun(ctx context.Context, report *domain.RunReport) error
	ListRuns(ctx context.Context) ([]store.Run, error)
	GetEntries(ctx context.Context, runID string) ([]store.EntryRecord, error)
	RecordChange(ctx context.Context, change store.ChangeRecord) error
	ChangedSince(ctx context.Context, resourceID string, since time.Time) (bool, error)
}

type historyStore struct {
	db *sql.DB
}

func NewStore(db *sql.DB) (Store, error) {
	if db == nil {
		return nil, fmt.Errorf("database connection is nil")
	}
	return &historyStore{db: db}, nil
}

func (s *historyStore) SaveRun(ctx context.Context, report *domain.RunReport) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	scopes := make([]string, 0, len(report.Scopes))
	for _, sc := range report.Scopes {
		scopes = append(scopes, sc.String())
	}
	findings := 0
	for _, e := range report.Entries {
		if e.Finding != nil {
			findings++
		}
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO runs (id, started_at, finished_at, scopes, entry_count, finding_count)
		VALUES (?, ?, ?, ?, ?, ?)`,
		report.RunID, report.StartedAt, report.FinishedAt,
		strings.Join(scopes, ","), len(report.Entries), findings)
	if err != nil {
		return fmt.Errorf("failed to insert run: %w", err)
	}

	for _, e := range report.Entries {
		rec := entryRecord(report.RunID, e)
		_, err = tx.ExecContext(ctx, `
			INSERT INTO entries (run_id, resource_id, resource_name, resource_kind, scope,
				resource_group, finding_id, category, severity, reason, recommendation, action_outcome, action_error)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			rec.RunID, rec.ResourceID, rec.ResourceName, rec.ResourceKind, rec.Scope,
			rec.Group, rec.FindingID, rec.Category, rec.Severity, rec.Reason, rec.Recommendation,
			rec.ActionOutcome, rec.ActionError)
		if err != nil {
			return fmt.Errorf("failed to insert entry for %s: %w", rec.ResourceID, err)
		}
	}

	return tx.Commit()
}

func entryRecord(runID string, e domain.Entry) store.EntryRecord {
	rec := store.EntryRecord{
		RunID:        runID,
		ResourceID:   e.Resource.ID,
		ResourceName: e.Resource.Name,
		ResourceKind: string(e.Resource.Kind),
		Scope:        e.Resource.Scope.String(),
		Group:        e.Resource.Group,
	}
	if e.Finding != nil {
		rec.FindingID = e.Finding.ID
		rec.Category = string(e.Finding.Category)
		rec.Severity = e.Finding.Severity.String()
		rec.Reason = e.Finding.Reason
		rec.Recommendation = e.Finding.Recommendation
	}
	if e.Action != nil {
		rec.ActionOutcome = string(e.Action.Outcome)
		rec.ActionError = e.Action.Error
	}
	return rec
}

func (s *historyStore) ListRuns(ctx context.Context) ([]store.Run, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, started_at, finished_at, scopes, entry_count, finding_count
		FROM runs ORDER BY started_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var runs []store.Run
	for rows.Next() {
		var run store.Run
		var scopes string
		if err := rows.Scan(&run.ID, &run.StartedAt, &run.FinishedAt, &scopes,
			&run.Entries, &run.Findings); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		if scopes != "" {
			run.Scopes = strings.Split(scopes, ",")
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

func (s *historyStore) GetEntries(ctx context.Context, runID string) ([]store.EntryRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT run_id, resource_id, resource_name, resource_kind, scope, resource_group,
			finding_id, category, severity, reason, recommendation, action_outcome, action_error
		FROM entries WHERE run_id = ?`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query entries: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var entries []store.EntryRecord
	for rows.Next() {
		var rec store.EntryRecord
		if err := rows.Scan(&rec.RunID, &rec.ResourceID, &rec.ResourceName, &rec.ResourceKind,
			&rec.Scope, &rec.Group, &rec.FindingID, &rec.Category, &rec.Severity, &rec.Reason,
			&rec.Recommendation, &rec.ActionOutcome, &rec.ActionError); err != nil {
			return nil, fmt.Errorf("failed to scan entry: %w", err)
		}
		entries = append(entries, rec)
	}
	return entries, rows.Err()
}

func (s *historyStore) RecordChange(ctx context.Context, change store.ChangeRecord) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO change_history (resource_id, action, applied_at) VALUES (?, ?, ?)`,
		change.ResourceID, change.Action, change.AppliedAt)
	if err != nil {
		return fmt.Errorf("failed to record change: %w", err)
	}
	return nil
}

func (s *historyStore) ChangedSince(ctx context.Context, resourceID string, since time.Time) (bool, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM change_history WHERE resource_id = ? AND applied_at >= ?`,
		resourceID, since).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("failed to query change history: %w", err)
	}
	return count > 0, nil
}
