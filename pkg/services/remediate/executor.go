// Package remediate applies one-shot fixes for flagged resources. Nothing
// mutates without operator confirmation; destructive actions are preceded by
// a best-effort backup and guarded against re-touching recently changed
// resources.
package remediate

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/pyxhealth/cloudaudit/pkg/models/domain"
	"github.com/pyxhealth/cloudaudit/pkg/models/store"
)

// Action applies one mutating call for one finding category.
type Action interface {
	Name() string
	Destructive() bool
	Apply(ctx context.Context, finding domain.Finding) error
}

// ChangeGuard is the slice of the history store the executor needs.
type ChangeGuard interface {
	RecordChange(ctx context.Context, change store.ChangeRecord) error
	ChangedSince(ctx context.Context, resourceID string, since time.Time) (bool, error)
}

type Mode int

const (
	// ModeInteractive confirms each finding individually.
	ModeInteractive Mode = iota
	// ModeBatch confirms the whole batch once; destructive batches require
	// the typed bulk phrase.
	ModeBatch
)

const guardWindow = 24 * time.Hour

type Executor struct {
	actions map[domain.FindingCategory]Action
	confirm Confirmer
	backup  BackupWriter
	guard   ChangeGuard
}

func NewExecutor(actions map[domain.FindingCategory]Action, confirm Confirmer, backup BackupWriter, guard ChangeGuard) *Executor {
	return &Executor{actions: actions, confirm: confirm, backup: backup, guard: guard}
}

// Apply walks the flagged findings and returns one ActionResult per finding
// that has a registered action. Findings without an action are left out.
func (e *Executor) Apply(ctx context.Context, findings []domain.Finding, mode Mode) ([]domain.ActionResult, error) {
	applicable := make([]domain.Finding, 0, len(findings))
	destructive := false
	for _, f := range findings {
		action, ok := e.actions[f.Category]
		if !ok {
			continue
		}
		applicable = append(applicable, f)
		if action.Destructive() {
			destructive = true
		}
	}
	if len(applicable) == 0 {
		return nil, nil
	}

	if mode == ModeBatch {
		prompt := Prompt{
			Message:  fmt.Sprintf("Apply remediation to %d flagged resource(s)?", len(applicable)),
			Strength: StrengthYesNo,
		}
		if destructive {
			prompt.Strength = StrengthTypedPhrase
			prompt.Phrase = BulkPhrase
		}
		ok, err := e.confirm.Confirm(ctx, prompt)
		if err != nil {
			return nil, fmt.Errorf("confirmation failed: %w", err)
		}
		if !ok {
			return skippedAll(applicable), nil
		}
	}

	results := make([]domain.ActionResult, 0, len(applicable))
	for _, f := range applicable {
		results = append(results, e.applyOne(ctx, f, mode))
	}
	return results, nil
}

func (e *Executor) applyOne(ctx context.Context, f domain.Finding, mode Mode) domain.ActionResult {
	logger := zerolog.Ctx(ctx)
	action := e.actions[f.Category]
	result := domain.ActionResult{FindingID: f.ID}

	if mode == ModeInteractive {
		ok, err := e.confirm.Confirm(ctx, Prompt{
			Message:  fmt.Sprintf("%s %s (%s)?", action.Name(), f.Resource.Name, f.Reason),
			Strength: StrengthYesNo,
		})
		if err != nil || !ok {
			result.Outcome = domain.ActionSkipped
			return result
		}
	}

	if e.guard != nil {
		changed, err := e.guard.ChangedSince(ctx, f.Resource.ID, time.Now().Add(-guardWindow))
		if err != nil {
			logger.Warn().Err(err).Str("resource", f.Resource.ID).Msg("change history unavailable")
		} else if changed {
			logger.Info().Str("resource", f.Resource.Name).Msg("skipping recently changed resource")
			result.Outcome = domain.ActionSkippedRecent
			return result
		}
	}

	backupFailed := false
	if action.Destructive() {
		// The backup attempt always precedes the destructive call, and its
		// outcome is recorded even when it fails.
		path, err := e.backup.Write(ctx, f)
		if err != nil {
			logger.Warn().Err(err).Str("resource", f.Resource.Name).Msg("backup failed, continuing")
			backupFailed = true
		}
		result.BackupPath = path
	}

	if err := action.Apply(ctx, f); err != nil {
		logger.Error().Err(err).
			Str("resource", f.Resource.Name).
			Str("action", action.Name()).
			Msg("remediation failed")
		result.Outcome = domain.ActionFailed
		result.Error = err.Error()
		return result
	}

	result.Outcome = domain.ActionApplied
	if backupFailed {
		result.Outcome = domain.ActionBackupOnlyFailure
	}
	result.AppliedAt = time.Now().UTC()

	if e.guard != nil {
		if err := e.guard.RecordChange(ctx, store.ChangeRecord{
			ResourceID: f.Resource.ID,
			Action:     action.Name(),
			AppliedAt:  result.AppliedAt,
		}); err != nil {
			logger.Warn().Err(err).Str("resource", f.Resource.ID).Msg("failed to record change")
		}
	}
	return result
}

func skippedAll(findings []domain.Finding) []domain.ActionResult {
	results := make([]domain.ActionResult, 0, len(findings))
	for _, f := range findings {
		results = append(results, domain.ActionResult{
			FindingID: f.ID,
			Outcome:   domain.ActionSkipped,
		})
	}
	return results
}
