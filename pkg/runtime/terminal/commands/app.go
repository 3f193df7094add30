// Package commands implements the cloudaudit subcommands.
package commands

import (
	"context"
	"fmt"
	"os/user"
	"path/filepath"

	"github.com/Azure/azure-sdk-for-go/sdk/resourcemanager/resources/armsubscriptions"
	"github.com/spf13/cobra"

	"github.com/pyxhealth/cloudaudit/pkg/models/domain"
	"github.com/pyxhealth/cloudaudit/pkg/services/config"
	"github.com/pyxhealth/cloudaudit/pkg/services/scope"
	"github.com/pyxhealth/cloudaudit/pkg/services/session"
)

// commonFlags carry the configuration every subcommand needs to reach the
// estate.
type commonFlags struct {
	azureConfig      string
	databricksConfig string
	rulesPath        string
	tenant           string
}

func (f *commonFlags) register(cmd *cobra.Command) {
	var home string
	if usr, err := user.Current(); err == nil {
		home = usr.HomeDir
	}

	cmd.Flags().StringVar(&f.azureConfig, "azure-config",
		filepath.Join(home, ".azure", "config"), "path to the Azure profile file")
	cmd.Flags().StringVar(&f.databricksConfig, "databricks-config",
		filepath.Join(home, ".databrickscfg"), "path to the .databrickscfg file")
	cmd.Flags().StringVar(&f.rulesPath, "rules", "",
		"path to a rules file overriding the built-in thresholds")
	cmd.Flags().StringVar(&f.tenant, "tenant", "", "Azure tenant id override")
}

// scopeFlags narrow a run to explicit targets. Empty filters mean every
// scope of that platform.
type scopeFlags struct {
	platform     string
	subscription string
	workspace    string
}

func (f *scopeFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.platform, "platform", "all",
		"platforms to walk: azure, databricks or all")
	cmd.Flags().StringVar(&f.subscription, "subscription", "",
		"limit to one subscription by id or display name")
	cmd.Flags().StringVar(&f.workspace, "workspace", "",
		"limit to one workspace profile")
}

// estate is the wired-up access layer shared by the subcommands.
type estate struct {
	rules    config.RuleSet
	registry config.Registry
	session  *session.AzureSession
	enum     *scope.Enumerator
}

func buildEstate(ctx context.Context, flags commonFlags) (*estate, error) {
	rules := config.DefaultRuleSet()
	if flags.rulesPath != "" {
		loaded, err := config.LoadRuleSet(flags.rulesPath)
		if err != nil {
			return nil, err
		}
		rules = loaded
	}

	registry, err := config.NewRegistry(flags.azureConfig, flags.databricksConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to open profile registry: %w", err)
	}

	sess, err := session.NewAzureSession(ctx, flags.tenant)
	if err != nil {
		return nil, err
	}

	subscriptions, err := armsubscriptions.NewClient(sess.Credential, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create subscriptions client: %w", err)
	}

	return &estate{
		rules:    rules,
		registry: registry,
		session:  sess,
		enum:     scope.NewEnumerator(subscriptions, registry),
	}, nil
}

func (e *estate) resolveScopes(ctx context.Context, flags scopeFlags) ([]domain.Scope, error) {
	var scopes []domain.Scope

	if flags.platform == "all" || flags.platform == "azure" {
		subs, err := e.enum.Subscriptions(ctx, flags.subscription)
		if err != nil {
			return nil, err
		}
		scopes = append(scopes, subs...)
	}

	if flags.platform == "all" || flags.platform == "databricks" {
		workspaces, err := e.enum.Workspaces(ctx, flags.workspace)
		if err != nil {
			return nil, err
		}
		scopes = append(scopes, workspaces...)
	}

	if len(scopes) == 0 {
		return nil, fmt.Errorf("no scopes matched platform %q", flags.platform)
	}
	return scopes, nil
}
