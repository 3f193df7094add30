package audit

import (
	"context"
	"fmt"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"

	"github.com/pyxhealth/cloudaudit/pkg/models/domain"
	"github.com/pyxhealth/cloudaudit/pkg/services/config"
	"github.com/pyxhealth/cloudaudit/pkg/services/session"
	"github.com/pyxhealth/cloudaudit/pkg/services/usage"
	"github.com/pyxhealth/cloudaudit/pkg/services/walker"
	azurewalker "github.com/pyxhealth/cloudaudit/pkg/services/walker/azure"
	dbxwalker "github.com/pyxhealth/cloudaudit/pkg/services/walker/databricks"
)

// EstateSource resolves walkers per scope kind: the Azure credential serves
// every subscription, while each workspace gets its own client built from
// the profile registry.
type EstateSource struct {
	cred         azcore.TokenCredential
	registry     config.Registry
	usageReader  dbxwalker.UsageReader
	lookbackDays int
}

func NewEstateSource(cred azcore.TokenCredential, registry config.Registry, rules config.RuleSet) *EstateSource {
	return &EstateSource{
		cred:         cred,
		registry:     registry,
		lookbackDays: rules.MetricLookbackDays,
	}
}

// WithUsageReader attaches a warehouse query history source. Without one,
// warehouse activity stays unknown rather than idle.
func (s *EstateSource) WithUsageReader(reader dbxwalker.UsageReader) *EstateSource {
	s.usageReader = reader
	return s
}

func (s *EstateSource) WalkersFor(ctx context.Context, scope domain.Scope) ([]walker.Walker, error) {
	switch scope.Kind {
	case domain.ScopeKindSubscription:
		return azurewalker.NewExplorer(s.cred, s.lookbackDays).Walkers(), nil
	case domain.ScopeKindWorkspace:
		cfg, err := s.registry.WorkspaceConfig(ctx, scope.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve workspace profile %s: %w", scope.ID, err)
		}
		client, err := session.NewWorkspaceClient(ctx, cfg)
		if err != nil {
			return nil, err
		}
		return dbxwalker.NewExplorer(client, s.usageReader, s.lookbackDays).Walkers(), nil
	default:
		return nil, fmt.Errorf("unsupported scope kind: %s", scope.Kind)
	}
}

var _ dbxwalker.UsageReader = (*usage.Analyzer)(nil)
