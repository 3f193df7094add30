// Package audit wires the pipeline together: enumerate scopes, walk every
// resource kind in each, classify what came back, optionally remediate, and
// hand over a complete run report.
package audit

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/pyxhealth/cloudaudit/pkg/models/domain"
	"github.com/pyxhealth/cloudaudit/pkg/services/remediate"
	"github.com/pyxhealth/cloudaudit/pkg/services/walker"
)

// Classifier evaluates a single resource against the configured rules.
type Classifier interface {
	Classify(res domain.Resource) *domain.Finding
}

// WalkerSource yields the walkers applicable to a scope. Subscription scopes
// and workspace scopes carry different kinds, so the set depends on the
// scope itself.
type WalkerSource interface {
	WalkersFor(ctx context.Context, scope domain.Scope) ([]walker.Walker, error)
}

// Remediator applies registered actions to findings. Satisfied by
// remediate.Executor.
type Remediator interface {
	Apply(ctx context.Context, findings []domain.Finding, mode remediate.Mode) ([]domain.ActionResult, error)
}

type Runner struct {
	source     WalkerSource
	classifier Classifier
	remediator Remediator
	mode       remediate.Mode
	now        func() time.Time
}

// Option mutates a Runner during construction.
type Option func(*Runner)

// WithRemediator enables the apply phase. Without it the runner is
// audit-only and never mutates anything.
func WithRemediator(r Remediator, mode remediate.Mode) Option {
	return func(run *Runner) {
		run.remediator = r
		run.mode = mode
	}
}

func NewRunner(source WalkerSource, classifier Classifier, opts ...Option) *Runner {
	r := &Runner{
		source:     source,
		classifier: classifier,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run executes the pipeline over the given scopes. Walk failures are carried
// in the report, never swallowed, and a failure in one (scope, kind) pair
// does not stop the rest of the run.
func (r *Runner) Run(ctx context.Context, scopes []domain.Scope) (*domain.RunReport, error) {
	report := &domain.RunReport{
		RunID:     uuid.NewString(),
		StartedAt: r.now().UTC(),
		Scopes:    scopes,
	}
	logger := zerolog.Ctx(ctx).With().Str("run_id", report.RunID).Logger()
	ctx = logger.WithContext(ctx)

	for _, scope := range scopes {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		walkers, err := r.source.WalkersFor(ctx, scope)
		if err != nil {
			// whole scope unreachable, one failure row without a kind
			logger.Error().Err(err).Stringer("scope", scope).Msg("scope is unreachable")
			report.Failures = append(report.Failures,
				domain.WalkFailed(scope, "", err))
			continue
		}

		for _, w := range walkers {
			result := w.Walk(ctx, scope)
			switch result.Status {
			case domain.WalkNotApplicable:
				continue
			case domain.WalkError:
				logger.Warn().
					Stringer("scope", scope).
					Str("kind", string(result.Kind)).
					Str("error", result.Err).
					Msg("enumeration failed")
				report.Failures = append(report.Failures, result)
				continue
			}

			for _, res := range result.Resources {
				entry := domain.Entry{Resource: res}
				if f := r.classifier.Classify(res); f != nil {
					entry.Finding = f
				}
				report.Entries = append(report.Entries, entry)
			}
		}
	}

	if r.remediator != nil {
		r.applyActions(ctx, report)
	}

	report.FinishedAt = r.now().UTC()
	logger.Info().
		Int("resources", len(report.Entries)).
		Int("failures", len(report.Failures)).
		Msg("audit run finished")
	return report, nil
}

func (r *Runner) applyActions(ctx context.Context, report *domain.RunReport) {
	logger := zerolog.Ctx(ctx)

	var findings []domain.Finding
	for _, e := range report.Entries {
		if e.Finding != nil {
			findings = append(findings, *e.Finding)
		}
	}
	if len(findings) == 0 {
		return
	}

	results, err := r.remediator.Apply(ctx, findings, r.mode)
	if err != nil {
		logger.Error().Err(err).Msg("remediation phase failed")
		return
	}

	byFinding := make(map[string]domain.ActionResult, len(results))
	for _, res := range results {
		byFinding[res.FindingID] = res
	}
	for i := range report.Entries {
		if report.Entries[i].Finding == nil {
			continue
		}
		if res, ok := byFinding[report.Entries[i].Finding.ID]; ok {
			result := res
			report.Entries[i].Action = &result
		}
	}
}
