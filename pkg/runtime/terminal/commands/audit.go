package commands

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/pyxhealth/cloudaudit/pkg/export"
	"github.com/pyxhealth/cloudaudit/pkg/models/domain"
	"github.com/pyxhealth/cloudaudit/pkg/services/alert"
	"github.com/pyxhealth/cloudaudit/pkg/services/audit"
	"github.com/pyxhealth/cloudaudit/pkg/services/classify"
	"github.com/pyxhealth/cloudaudit/pkg/services/cost"
	"github.com/pyxhealth/cloudaudit/pkg/services/usage"
	"github.com/pyxhealth/cloudaudit/pkg/store/duckdb"
	"github.com/pyxhealth/cloudaudit/pkg/store/duckdb/history"
)

type AuditCmd struct {
	common commonFlags
	scopes scopeFlags

	outDir       string
	dbPath       string
	usageConfig  string
	withCost     bool
	notify       bool
	skipArtifact bool

	output io.Writer
}

func NewAuditCmd(output io.Writer) *cobra.Command {
	ac := &AuditCmd{output: output}
	cmd := &cobra.Command{
		Use:   "audit",
		Short: "Walk the estate, classify resources and emit a report",
		RunE:  ac.run,
	}

	ac.common.register(cmd)
	ac.scopes.register(cmd)
	cmd.Flags().StringVar(&ac.outDir, "out", "reports", "directory for the CSV and HTML artifacts")
	cmd.Flags().StringVar(&ac.dbPath, "db", "cloudaudit.db", "path to the run history database")
	cmd.Flags().StringVar(&ac.usageConfig, "usage-config", "",
		"warehouse usage profile enabling query history checks")
	cmd.Flags().BoolVar(&ac.withCost, "cost", false, "annotate findings with recent spend")
	cmd.Flags().BoolVar(&ac.notify, "notify", false,
		"page on-call for high severity findings (needs PAGERDUTY_ROUTING_KEY)")
	cmd.Flags().BoolVar(&ac.skipArtifact, "no-files", false, "skip writing CSV and HTML files")

	return cmd
}

func (ac *AuditCmd) run(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	est, err := buildEstate(ctx, ac.common)
	if err != nil {
		return err
	}

	scopes, err := est.resolveScopes(ctx, ac.scopes)
	if err != nil {
		return err
	}

	source := audit.NewEstateSource(est.session.Credential, est.registry, est.rules)
	if ac.usageConfig != "" {
		reader, closeFn, err := openUsageReader(ac.usageConfig)
		if err != nil {
			return err
		}
		defer closeFn()
		source.WithUsageReader(reader)
	}

	runner := audit.NewRunner(source, classify.New(est.rules))
	report, err := runner.Run(ctx, scopes)
	if err != nil {
		return err
	}

	if ac.withCost {
		ac.annotateSpend(ctx, est, report, scopes)
	}

	db, err := duckdb.NewDB(duckdb.Settings{DbPath: ac.dbPath})
	if err != nil {
		return fmt.Errorf("failed to open history database: %w", err)
	}
	defer func() { _ = db.Close() }()

	store, err := history.NewStore(db)
	if err != nil {
		return err
	}

	return emitRun(ctx, ac.output, report, store, emitOptions{
		outDir:       ac.outDir,
		notify:       ac.notify,
		skipArtifact: ac.skipArtifact,
	})
}

type emitOptions struct {
	outDir       string
	notify       bool
	skipArtifact bool
}

// emitRun persists the run, writes the artifacts and prints the summary.
// Shared with the remediate command.
func emitRun(ctx context.Context, output io.Writer, report *domain.RunReport, store history.Store, opts emitOptions) error {
	logger := zerolog.Ctx(ctx)

	if err := store.SaveRun(ctx, report); err != nil {
		logger.Warn().Err(err).Msg("failed to persist run history")
	}

	if !opts.skipArtifact {
		csvPath, htmlPath, err := export.WriteFiles(opts.outDir, report, time.Now())
		if err != nil {
			return err
		}
		logger.Info().Str("csv", csvPath).Str("html", htmlPath).Msg("artifacts written")
	}

	if opts.notify {
		if notifier := alert.NotifierFromEnv(); notifier != nil {
			sent := notifier.NotifyFindings(ctx, report)
			logger.Info().Int("sent", sent).Msg("pagerduty events delivered")
		} else {
			logger.Warn().Msg("PAGERDUTY_ROUTING_KEY not set, skipping notifications")
		}
	}

	return export.NewTerminalReporter(output).Handle(report)
}

func (ac *AuditCmd) annotateSpend(ctx context.Context, est *estate, report *domain.RunReport, scopes []domain.Scope) {
	logger := zerolog.Ctx(ctx)

	analyzer, err := cost.NewAnalyzer(est.session.Credential)
	if err != nil {
		logger.Warn().Err(err).Msg("cost analyzer unavailable")
		return
	}

	days := est.rules.MetricLookbackDays
	spend := map[string]cost.ResourceCost{}
	for _, s := range scopes {
		if s.Kind != domain.ScopeKindSubscription {
			continue
		}
		part, err := analyzer.CollectSpend(ctx, s.ID, days)
		if err != nil {
			logger.Warn().Err(err).Stringer("scope", s).Msg("failed to collect spend")
			continue
		}
		for k, v := range part {
			spend[k] = v
		}
	}
	cost.Annotate(ctx, report, spend, days)
}

func openUsageReader(configPath string) (*usage.Analyzer, func(), error) {
	cfg, err := usage.LoadConfig(configPath)
	if err != nil {
		return nil, nil, err
	}
	db, err := usage.Open(cfg)
	if err != nil {
		return nil, nil, err
	}
	analyzer, err := usage.NewAnalyzer(db)
	if err != nil {
		_ = db.Close()
		return nil, nil, err
	}
	return analyzer, func() { _ = db.Close() }, nil
}
