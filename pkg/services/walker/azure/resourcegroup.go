package azure

import (
	"context"
	"fmt"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/resourcemanager/resources/armresources"

	"github.com/pyxhealth/cloudaudit/pkg/models/domain"
)

// resourceGroupWalker lists resource groups with their tags. The environment
// tag feeds the naming-convention rule for resources inside the group.
type resourceGroupWalker struct {
	cred azcore.TokenCredential
}

func (w *resourceGroupWalker) Kind() domain.ResourceKind { return domain.ResourceKindResourceGroup }

func (w *resourceGroupWalker) Walk(ctx context.Context, scope domain.Scope) domain.KindResult {
	client, err := armresources.NewResourceGroupsClient(scope.ID, w.cred, nil)
	if err != nil {
		return domain.WalkFailed(scope, w.Kind(), err)
	}

	var resources []domain.Resource
	pager := client.NewListPager(nil)
	for pager.More() {
		page, err := pager.NextPage(ctx)
		if err != nil {
			return domain.WalkFailed(scope, w.Kind(), fmt.Errorf("failed to list resource groups: %w", err))
		}
		for _, rg := range page.Value {
			tags := tagMap(rg.Tags)
			bag := map[string]string{}
			if env, ok := tags["environment"]; ok {
				bag["environment"] = env
			}
			resources = append(resources, domain.Resource{
				ID:       deref(rg.ID),
				Name:     deref(rg.Name),
				Kind:     domain.ResourceKindResourceGroup,
				Scope:    scope,
				Group:    deref(rg.Name),
				Location: deref(rg.Location),
				Tags:     tags,
				Props:    bag,
			})
		}
	}
	return domain.Found(scope, w.Kind(), resources)
}
