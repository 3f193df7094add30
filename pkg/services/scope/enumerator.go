// Package scope enumerates the audit boundaries a run will walk: enabled
// Azure subscriptions plus configured Databricks workspaces.
package scope

import (
	"context"
	"fmt"
	"strings"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore/runtime"
	"github.com/Azure/azure-sdk-for-go/sdk/resourcemanager/resources/armsubscriptions"
	"github.com/rs/zerolog"

	"github.com/pyxhealth/cloudaudit/pkg/models/domain"
	"github.com/pyxhealth/cloudaudit/pkg/services/config"
)

// NotFoundError reports an explicit scope filter that matched nothing. It
// carries the valid alternatives so the operator can correct the invocation.
type NotFoundError struct {
	Requested string
	Valid     []string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("scope %q not found; valid scopes: %s",
		e.Requested, strings.Join(e.Valid, ", "))
}

// SubscriptionLister is the slice of the ARM subscriptions API the enumerator
// needs; satisfied by *armsubscriptions.Client.
type SubscriptionLister interface {
	NewListPager(options *armsubscriptions.ClientListOptions) *runtime.Pager[armsubscriptions.ClientListResponse]
}

type Enumerator struct {
	subscriptions SubscriptionLister
	registry      config.Registry
}

func NewEnumerator(subscriptions SubscriptionLister, registry config.Registry) *Enumerator {
	return &Enumerator{subscriptions: subscriptions, registry: registry}
}

// Subscriptions lists enabled subscriptions, optionally narrowed to a single
// explicit id or display name. An unmatched filter fails with NotFoundError.
func (e *Enumerator) Subscriptions(ctx context.Context, filter string) ([]domain.Scope, error) {
	logger := zerolog.Ctx(ctx)

	var all []domain.Scope
	pager := e.subscriptions.NewListPager(nil)
	for pager.More() {
		page, err := pager.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list subscriptions: %w", err)
		}
		for _, sub := range page.Value {
			if sub.SubscriptionID == nil {
				continue
			}
			if sub.State != nil && *sub.State != armsubscriptions.SubscriptionStateEnabled {
				logger.Debug().
					Str("subscription", *sub.SubscriptionID).
					Str("state", string(*sub.State)).
					Msg("skipping non-enabled subscription")
				continue
			}
			scope := domain.Scope{
				ID:   *sub.SubscriptionID,
				Kind: domain.ScopeKindSubscription,
			}
			if sub.DisplayName != nil {
				scope.DisplayName = *sub.DisplayName
				scope.Environment = environmentToken(*sub.DisplayName)
			}
			if sub.TenantID != nil {
				scope.TenantID = *sub.TenantID
			}
			all = append(all, scope)
		}
	}

	if filter == "" {
		return all, nil
	}
	for _, s := range all {
		if strings.EqualFold(s.ID, filter) || strings.EqualFold(s.DisplayName, filter) {
			return []domain.Scope{s}, nil
		}
	}
	valid := make([]string, 0, len(all))
	for _, s := range all {
		valid = append(valid, s.DisplayName)
	}
	return nil, &NotFoundError{Requested: filter, Valid: valid}
}

// Workspaces lists Databricks workspace scopes from the profile registry.
func (e *Enumerator) Workspaces(ctx context.Context, filter string) ([]domain.Scope, error) {
	profiles, err := e.registry.WorkspaceProfiles(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list workspace profiles: %w", err)
	}

	var all []domain.Scope
	for _, p := range profiles {
		all = append(all, domain.Scope{
			ID:          p,
			DisplayName: p,
			Kind:        domain.ScopeKindWorkspace,
			Environment: environmentToken(p),
		})
	}

	if filter == "" {
		return all, nil
	}
	for _, s := range all {
		if strings.EqualFold(s.ID, filter) {
			return []domain.Scope{s}, nil
		}
	}
	valid := make([]string, 0, len(all))
	for _, s := range all {
		valid = append(valid, s.ID)
	}
	return nil, &NotFoundError{Requested: filter, Valid: valid}
}

// environmentToken extracts the environment fragment from a scope name,
// longest token first so "preprod" is not shadowed by "prod".
func environmentToken(name string) string {
	lower := strings.ToLower(name)
	for _, token := range []string{"preprod", "staging", "prod", "dev", "qa"} {
		if strings.Contains(lower, token) {
			return token
		}
	}
	return ""
}
