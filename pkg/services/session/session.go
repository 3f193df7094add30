// Package session establishes authenticated cloud sessions. Authentication
// failure is fatal to a run: nothing downstream executes without a session.
package session

import (
	"context"
	"errors"
	"fmt"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/policy"
	"github.com/Azure/azure-sdk-for-go/sdk/azidentity"
	"github.com/databricks/databricks-sdk-go"
	dbxconfig "github.com/databricks/databricks-sdk-go/config"
	"github.com/rs/zerolog"
)

// ErrAuthentication wraps any credential or token acquisition failure.
var ErrAuthentication = errors.New("authentication failed")

// AzureSession is an authenticated handle to one Azure tenant. The credential
// is shared by every ARM client created during the run.
type AzureSession struct {
	Credential azcore.TokenCredential
	TenantID   string
}

// NewAzureSession builds a credential chain preferring an existing az CLI
// login, falling back to the SDK default chain (environment, managed
// identity, interactive browser). The token is validated with one probe
// request before the session is handed out.
func NewAzureSession(ctx context.Context, tenantID string) (*AzureSession, error) {
	logger := zerolog.Ctx(ctx)

	cli, cliErr := azidentity.NewAzureCLICredential(&azidentity.AzureCLICredentialOptions{
		TenantID: tenantID,
	})
	def, defErr := azidentity.NewDefaultAzureCredential(&azidentity.DefaultAzureCredentialOptions{
		TenantID: tenantID,
	})

	var sources []azcore.TokenCredential
	if cliErr == nil {
		sources = append(sources, cli)
	}
	if defErr == nil {
		sources = append(sources, def)
	}
	if len(sources) == 0 {
		return nil, fmt.Errorf("%w: no usable credential source: %v", ErrAuthentication, defErr)
	}

	chain, err := azidentity.NewChainedTokenCredential(sources, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrAuthentication, err)
	}

	// Probe once so a dead login fails the run here rather than mid-walk.
	_, err = chain.GetToken(ctx, policy.TokenRequestOptions{
		Scopes: []string{"https://management.azure.com/.default"},
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrAuthentication, err)
	}

	logger.Info().Str("tenant", tenantID).Msg("azure session established")
	return &AzureSession{Credential: chain, TenantID: tenantID}, nil
}

// NewWorkspaceClient authenticates against one Databricks workspace and
// validates the token with a cheap identity read.
func NewWorkspaceClient(ctx context.Context, cfg *dbxconfig.Config) (*databricks.WorkspaceClient, error) {
	client, err := databricks.NewWorkspaceClient(&databricks.Config{
		Host:  cfg.Host,
		Token: cfg.Token,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrAuthentication, err)
	}

	if _, err := client.CurrentUser.Me(ctx); err != nil {
		return nil, fmt.Errorf("%w: workspace token rejected: %v", ErrAuthentication, err)
	}
	return client, nil
}
