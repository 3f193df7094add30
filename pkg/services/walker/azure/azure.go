// Package azure walks ARM resource kinds inside one subscription scope.
package azure

import (
	"context"
	"strings"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/resourcemanager/resources/armresources"
	"github.com/rs/zerolog"

	"github.com/pyxhealth/cloudaudit/pkg/models/domain"
	"github.com/pyxhealth/cloudaudit/pkg/services/walker"
)

// Explorer owns the tenant credential and hands out one walker per supported
// ARM resource kind. Clients are created per walk so each scope gets its own
// subscription-bound client instead of an ambient "current subscription".
type Explorer struct {
	cred         azcore.TokenCredential
	lookbackDays int
}

func NewExplorer(cred azcore.TokenCredential, lookbackDays int) *Explorer {
	if lookbackDays <= 0 {
		lookbackDays = 14
	}
	return &Explorer{cred: cred, lookbackDays: lookbackDays}
}

func (e *Explorer) Walkers() []walker.Walker {
	return []walker.Walker{
		&resourceGroupWalker{cred: e.cred},
		&nsgRuleWalker{cred: e.cred},
		&storageAccountWalker{cred: e.cred},
		&containerWalker{cred: e.cred},
		&sqlDatabaseWalker{cred: e.cred, lookbackDays: e.lookbackDays},
	}
}

// groupEnvironments maps resource group names (lowercased) to their
// environment tag so walkers can stamp contained resources with the group's
// expected environment. An unreadable group list downgrades to a logged skip;
// the naming rule then falls back to the scope's own environment.
func groupEnvironments(ctx context.Context, cred azcore.TokenCredential, subscriptionID string) map[string]string {
	logger := zerolog.Ctx(ctx)

	client, err := armresources.NewResourceGroupsClient(subscriptionID, cred, nil)
	if err != nil {
		logger.Warn().Err(err).Msg("failed to build resource group client for environment tags")
		return nil
	}

	envs := map[string]string{}
	pager := client.NewListPager(nil)
	for pager.More() {
		page, err := pager.NextPage(ctx)
		if err != nil {
			logger.Warn().Err(err).Msg("failed to list resource groups for environment tags")
			return envs
		}
		for _, rg := range page.Value {
			if env, ok := tagMap(rg.Tags)["environment"]; ok {
				envs[strings.ToLower(deref(rg.Name))] = env
			}
		}
	}
	return envs
}

// stampEnvironment records the containing group's environment tag on the
// resource, keyed by group name.
func stampEnvironment(res *domain.Resource, envs map[string]string) {
	env, ok := envs[strings.ToLower(res.Group)]
	if !ok {
		return
	}
	if res.Props == nil {
		res.Props = map[string]string{}
	}
	res.Props["environment"] = env
}

// resourceGroupFromID extracts the resource group segment of an ARM ID.
func resourceGroupFromID(id string) string {
	parts := strings.Split(id, "/")
	for i := 0; i < len(parts)-1; i++ {
		if strings.EqualFold(parts[i], "resourceGroups") {
			return parts[i+1]
		}
	}
	return ""
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func tagMap(tags map[string]*string) map[string]string {
	if len(tags) == 0 {
		return nil
	}
	out := make(map[string]string, len(tags))
	for k, v := range tags {
		if v != nil {
			out[k] = *v
		}
	}
	return out
}
