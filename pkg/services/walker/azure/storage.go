package azure

import (
	"context"
	"fmt"
	"strconv"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/resourcemanager/storage/armstorage"
	"github.com/rs/zerolog"

	"github.com/pyxhealth/cloudaudit/pkg/models/domain"
)

type storageAccountWalker struct {
	cred azcore.TokenCredential
}

func (w *storageAccountWalker) Kind() domain.ResourceKind { return domain.ResourceKindStorageAcct }

func (w *storageAccountWalker) Walk(ctx context.Context, scope domain.Scope) domain.KindResult {
	client, err := armstorage.NewAccountsClient(scope.ID, w.cred, nil)
	if err != nil {
		return domain.WalkFailed(scope, w.Kind(), err)
	}

	envs := groupEnvironments(ctx, w.cred, scope.ID)

	var resources []domain.Resource
	pager := client.NewListPager(nil)
	for pager.More() {
		page, err := pager.NextPage(ctx)
		if err != nil {
			return domain.WalkFailed(scope, w.Kind(), fmt.Errorf("failed to list storage accounts: %w", err))
		}
		for _, acct := range page.Value {
			res := accountResource(scope, acct)
			stampEnvironment(&res, envs)
			resources = append(resources, res)
		}
	}
	return domain.Found(scope, w.Kind(), resources)
}

func accountResource(scope domain.Scope, acct *armstorage.Account) domain.Resource {
	bag := map[string]string{}
	if acct.SKU != nil && acct.SKU.Name != nil {
		bag["sku"] = string(*acct.SKU.Name)
	}
	if p := acct.Properties; p != nil {
		if p.AllowBlobPublicAccess != nil {
			bag["allow_blob_public_access"] = strconv.FormatBool(*p.AllowBlobPublicAccess)
		}
		if p.EnableHTTPSTrafficOnly != nil {
			bag["https_only"] = strconv.FormatBool(*p.EnableHTTPSTrafficOnly)
		}
		if p.MinimumTLSVersion != nil {
			bag["minimum_tls_version"] = string(*p.MinimumTLSVersion)
		}
	}
	return domain.Resource{
		ID:       deref(acct.ID),
		Name:     deref(acct.Name),
		Kind:     domain.ResourceKindStorageAcct,
		Scope:    scope,
		Group:    resourceGroupFromID(deref(acct.ID)),
		Location: deref(acct.Location),
		Tags:     tagMap(acct.Tags),
		Props:    bag,
	}
}

// containerWalker lists blob containers. The container API is account-scoped,
// so the account list call happens inline; one unreadable account downgrades
// to a logged skip rather than failing the whole kind.
type containerWalker struct {
	cred azcore.TokenCredential
}

func (w *containerWalker) Kind() domain.ResourceKind { return domain.ResourceKindContainer }

func (w *containerWalker) Walk(ctx context.Context, scope domain.Scope) domain.KindResult {
	logger := zerolog.Ctx(ctx)

	accounts, err := armstorage.NewAccountsClient(scope.ID, w.cred, nil)
	if err != nil {
		return domain.WalkFailed(scope, w.Kind(), err)
	}
	containers, err := armstorage.NewBlobContainersClient(scope.ID, w.cred, nil)
	if err != nil {
		return domain.WalkFailed(scope, w.Kind(), err)
	}

	envs := groupEnvironments(ctx, w.cred, scope.ID)

	var resources []domain.Resource
	pager := accounts.NewListPager(nil)
	for pager.More() {
		page, err := pager.NextPage(ctx)
		if err != nil {
			return domain.WalkFailed(scope, w.Kind(), fmt.Errorf("failed to list storage accounts: %w", err))
		}
		for _, acct := range page.Value {
			group := resourceGroupFromID(deref(acct.ID))
			cpager := containers.NewListPager(group, deref(acct.Name), nil)
			for cpager.More() {
				cpage, err := cpager.NextPage(ctx)
				if err != nil {
					logger.Warn().
						Err(err).
						Str("account", deref(acct.Name)).
						Msg("failed to list containers for account")
					break
				}
				for _, item := range cpage.Value {
					res := containerResource(scope, group, deref(acct.Name), item)
					stampEnvironment(&res, envs)
					resources = append(resources, res)
				}
			}
		}
	}
	return domain.Found(scope, w.Kind(), resources)
}

func containerResource(scope domain.Scope, group, account string, item *armstorage.ListContainerItem) domain.Resource {
	access := string(armstorage.PublicAccessNone)
	if item.Properties != nil && item.Properties.PublicAccess != nil {
		access = string(*item.Properties.PublicAccess)
	}
	return domain.Resource{
		ID:    deref(item.ID),
		Name:  fmt.Sprintf("%s/%s", account, deref(item.Name)),
		Kind:  domain.ResourceKindContainer,
		Scope: scope,
		Group: group,
		Props: map[string]string{
			"account":       account,
			"public_access": access,
		},
	}
}
