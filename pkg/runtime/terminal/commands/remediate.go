package commands

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/pyxhealth/cloudaudit/pkg/models/domain"
	"github.com/pyxhealth/cloudaudit/pkg/services/audit"
	"github.com/pyxhealth/cloudaudit/pkg/services/classify"
	"github.com/pyxhealth/cloudaudit/pkg/services/remediate"
	"github.com/pyxhealth/cloudaudit/pkg/services/session"
	"github.com/pyxhealth/cloudaudit/pkg/store/duckdb"
	"github.com/pyxhealth/cloudaudit/pkg/store/duckdb/history"
)

type RemediateCmd struct {
	common commonFlags
	scopes scopeFlags

	outDir      string
	dbPath      string
	usageConfig string
	backupDir   string
	batch       bool
	notify      bool

	deleteRules bool
	lockPublic  bool
	retier      bool
	setAutoStop bool
	removeUsers bool

	grantPrincipal string
	grantRole      string
	grantScope     string

	input  io.Reader
	output io.Writer
}

func NewRemediateCmd(input io.Reader, output io.Writer) *cobra.Command {
	rc := &RemediateCmd{input: input, output: output}
	cmd := &cobra.Command{
		Use:   "remediate",
		Short: "Audit the estate and apply the enabled fixes",
		Long: "Runs a full audit and applies the explicitly enabled actions to " +
			"flagged resources. Nothing mutates without confirmation, and " +
			"resources changed within the last day are left alone.",
		RunE: rc.run,
	}

	rc.common.register(cmd)
	rc.scopes.register(cmd)
	cmd.Flags().StringVar(&rc.outDir, "out", "reports", "directory for the CSV and HTML artifacts")
	cmd.Flags().StringVar(&rc.dbPath, "db", "cloudaudit.db", "path to the run history database")
	cmd.Flags().StringVar(&rc.usageConfig, "usage-config", "",
		"warehouse usage profile enabling query history checks")
	cmd.Flags().StringVar(&rc.backupDir, "backup-dir", "backups",
		"directory for pre-change resource snapshots")
	cmd.Flags().BoolVar(&rc.batch, "batch", false,
		"confirm the whole batch once instead of per resource")
	cmd.Flags().BoolVar(&rc.notify, "notify", false,
		"page on-call for high severity findings (needs PAGERDUTY_ROUTING_KEY)")

	cmd.Flags().BoolVar(&rc.deleteRules, "delete-rules", false,
		"delete NSG rules exposing dangerous ports")
	cmd.Flags().BoolVar(&rc.lockPublic, "lock-public", false,
		"disable public access on flagged storage")
	cmd.Flags().BoolVar(&rc.retier, "retier", false,
		"move underutilized SQL databases to the downscale target tier")
	cmd.Flags().BoolVar(&rc.setAutoStop, "set-auto-stop", false,
		"enforce auto-termination on clusters and warehouses")
	cmd.Flags().BoolVar(&rc.removeUsers, "remove-users", false,
		"remove deactivated workspace users")

	cmd.Flags().StringVar(&rc.grantPrincipal, "grant-principal", "",
		"principal object id to grant a role to")
	cmd.Flags().StringVar(&rc.grantRole, "grant-role", "",
		"role definition id for --grant-principal")
	cmd.Flags().StringVar(&rc.grantScope, "grant-scope", "",
		"ARM scope for --grant-principal")

	return cmd
}

func (rc *RemediateCmd) run(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	logger := zerolog.Ctx(ctx)

	est, err := buildEstate(ctx, rc.common)
	if err != nil {
		return err
	}

	if rc.grantPrincipal != "" {
		return rc.grant(ctx, est)
	}

	scopes, err := est.resolveScopes(ctx, rc.scopes)
	if err != nil {
		return err
	}

	actions, err := rc.buildActions(ctx, est)
	if err != nil {
		return err
	}
	if len(actions) == 0 {
		return fmt.Errorf("no actions enabled; pass at least one of --delete-rules, " +
			"--lock-public, --retier, --set-auto-stop or --remove-users")
	}

	db, err := duckdb.NewDB(duckdb.Settings{DbPath: rc.dbPath})
	if err != nil {
		return fmt.Errorf("failed to open history database: %w", err)
	}
	defer func() { _ = db.Close() }()

	store, err := history.NewStore(db)
	if err != nil {
		return err
	}

	executor := remediate.NewExecutor(actions,
		remediate.NewTerminalConfirmer(rc.input, rc.output),
		remediate.NewFileBackup(rc.backupDir),
		store)

	mode := remediate.ModeInteractive
	if rc.batch {
		mode = remediate.ModeBatch
	}

	source := audit.NewEstateSource(est.session.Credential, est.registry, est.rules)
	if rc.usageConfig != "" {
		reader, closeFn, err := openUsageReader(rc.usageConfig)
		if err != nil {
			return err
		}
		defer closeFn()
		source.WithUsageReader(reader)
	}

	runner := audit.NewRunner(source, classify.New(est.rules),
		audit.WithRemediator(executor, mode))
	report, err := runner.Run(ctx, scopes)
	if err != nil {
		return err
	}

	logger.Info().Int("findings", len(report.Entries)).Msg("remediation run finished")
	return emitRun(ctx, rc.output, report, store, emitOptions{
		outDir: rc.outDir,
		notify: rc.notify,
	})
}

func (rc *RemediateCmd) buildActions(ctx context.Context, est *estate) (map[domain.FindingCategory]remediate.Action, error) {
	actions := map[domain.FindingCategory]remediate.Action{}

	if rc.deleteRules {
		actions[domain.CategoryDangerousPort] = &remediate.DeleteNSGRule{Cred: est.session.Credential}
	}
	if rc.lockPublic {
		actions[domain.CategoryPublicAccess] = &remediate.DisablePublicAccess{Cred: est.session.Credential}
	}
	if rc.retier {
		actions[domain.CategoryDownscale] = &remediate.ChangeSQLTier{
			Cred:      est.session.Credential,
			TargetSKU: est.rules.DownscaleTargetSKU,
		}
	}

	if rc.setAutoStop || rc.removeUsers {
		if rc.scopes.workspace == "" {
			return nil, fmt.Errorf("--set-auto-stop and --remove-users need an explicit --workspace")
		}
		cfg, err := est.registry.WorkspaceConfig(ctx, rc.scopes.workspace)
		if err != nil {
			return nil, err
		}
		client, err := session.NewWorkspaceClient(ctx, cfg)
		if err != nil {
			return nil, err
		}
		if rc.setAutoStop {
			actions[domain.CategoryNoAutoTerminate] = &remediate.SetAutoTermination{
				Client:  client,
				Minutes: est.rules.MaxAutoStopMinutes,
			}
		}
		if rc.removeUsers {
			actions[domain.CategoryInactiveIdentity] = remediate.NewRemoveWorkspaceUser(client)
		}
	}

	return actions, nil
}

// grant assigns one role to one principal and exits without walking the
// estate.
func (rc *RemediateCmd) grant(ctx context.Context, est *estate) error {
	if rc.grantRole == "" || rc.grantScope == "" {
		return fmt.Errorf("--grant-principal needs both --grant-role and --grant-scope")
	}
	subscriptionID := subscriptionFromScope(rc.grantScope)
	if subscriptionID == "" {
		return fmt.Errorf("cannot derive a subscription from scope %q", rc.grantScope)
	}

	assigner := &remediate.RoleAssigner{Cred: est.session.Credential}
	if err := assigner.Assign(ctx, subscriptionID, rc.grantScope, rc.grantPrincipal, rc.grantRole); err != nil {
		return err
	}
	fmt.Fprintf(rc.output, "granted %s to %s on %s\n", rc.grantRole, rc.grantPrincipal, rc.grantScope)
	return nil
}

func subscriptionFromScope(scope string) string {
	parts := strings.Split(strings.Trim(scope, "/"), "/")
	for i := 0; i+1 < len(parts); i++ {
		if strings.EqualFold(parts[i], "subscriptions") {
			return parts[i+1]
		}
	}
	return ""
}
