package remediate

import (
	"context"
	"fmt"
	"strings"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/to"
	"github.com/Azure/azure-sdk-for-go/sdk/resourcemanager/authorization/armauthorization/v2"
	"github.com/Azure/azure-sdk-for-go/sdk/resourcemanager/network/armnetwork"
	"github.com/Azure/azure-sdk-for-go/sdk/resourcemanager/sql/armsql"
	"github.com/Azure/azure-sdk-for-go/sdk/resourcemanager/storage/armstorage"
	"github.com/google/uuid"

	"github.com/pyxhealth/cloudaudit/pkg/models/domain"
)

// armID decomposes the segments the executors need out of a full ARM ID.
type armID struct {
	subscription string
	group        string
	names        []string // provider resource names, outermost first
}

func parseARMID(id string) (armID, error) {
	parts := strings.Split(strings.Trim(id, "/"), "/")
	out := armID{}
	for i := 0; i < len(parts)-1; i++ {
		switch strings.ToLower(parts[i]) {
		case "subscriptions":
			out.subscription = parts[i+1]
		case "resourcegroups":
			out.group = parts[i+1]
		case "providers":
			// everything after the provider namespace alternates type/name
			for j := i + 2; j+1 < len(parts); j += 2 {
				out.names = append(out.names, parts[j+1])
			}
			if out.subscription == "" || out.group == "" {
				return armID{}, fmt.Errorf("malformed ARM id %q", id)
			}
			return out, nil
		}
	}
	return armID{}, fmt.Errorf("malformed ARM id %q", id)
}

// DeleteNSGRule removes the flagged security rule from its group.
type DeleteNSGRule struct {
	Cred azcore.TokenCredential
}

func (a *DeleteNSGRule) Name() string      { return "delete-nsg-rule" }
func (a *DeleteNSGRule) Destructive() bool { return true }

func (a *DeleteNSGRule) Apply(ctx context.Context, f domain.Finding) error {
	id, err := parseARMID(f.Resource.ID)
	if err != nil {
		return err
	}
	if len(id.names) < 2 {
		return fmt.Errorf("security rule id %q missing nsg/rule segments", f.Resource.ID)
	}

	client, err := armnetwork.NewSecurityRulesClient(id.subscription, a.Cred, nil)
	if err != nil {
		return err
	}
	poller, err := client.BeginDelete(ctx, id.group, id.names[0], id.names[1], nil)
	if err != nil {
		return fmt.Errorf("failed to delete rule %s: %w", f.Resource.Name, err)
	}
	if _, err := poller.PollUntilDone(ctx, nil); err != nil {
		return fmt.Errorf("rule delete did not complete: %w", err)
	}
	return nil
}

// DisablePublicAccess shuts off anonymous blob access, at the account or the
// container level depending on the flagged resource kind.
type DisablePublicAccess struct {
	Cred azcore.TokenCredential
}

func (a *DisablePublicAccess) Name() string      { return "disable-public-access" }
func (a *DisablePublicAccess) Destructive() bool { return true }

func (a *DisablePublicAccess) Apply(ctx context.Context, f domain.Finding) error {
	id, err := parseARMID(f.Resource.ID)
	if err != nil {
		return err
	}

	switch f.Resource.Kind {
	case domain.ResourceKindStorageAcct:
		client, err := armstorage.NewAccountsClient(id.subscription, a.Cred, nil)
		if err != nil {
			return err
		}
		_, err = client.Update(ctx, id.group, f.Resource.Name, armstorage.AccountUpdateParameters{
			Properties: &armstorage.AccountPropertiesUpdateParameters{
				AllowBlobPublicAccess: to.Ptr(false),
			},
		}, nil)
		if err != nil {
			return fmt.Errorf("failed to disable public access on account %s: %w", f.Resource.Name, err)
		}
		return nil

	case domain.ResourceKindContainer:
		if len(id.names) < 3 {
			return fmt.Errorf("container id %q missing account/container segments", f.Resource.ID)
		}
		client, err := armstorage.NewBlobContainersClient(id.subscription, a.Cred, nil)
		if err != nil {
			return err
		}
		account, container := id.names[0], id.names[len(id.names)-1]
		_, err = client.Update(ctx, id.group, account, container, armstorage.BlobContainer{
			ContainerProperties: &armstorage.ContainerProperties{
				PublicAccess: to.Ptr(armstorage.PublicAccessNone),
			},
		}, nil)
		if err != nil {
			return fmt.Errorf("failed to make container %s private: %w", f.Resource.Name, err)
		}
		return nil

	default:
		return fmt.Errorf("unsupported resource kind %s", f.Resource.Kind)
	}
}

// ChangeSQLTier moves a database to the target service objective.
type ChangeSQLTier struct {
	Cred      azcore.TokenCredential
	TargetSKU string
}

func (a *ChangeSQLTier) Name() string      { return "change-sql-tier" }
func (a *ChangeSQLTier) Destructive() bool { return false }

func (a *ChangeSQLTier) Apply(ctx context.Context, f domain.Finding) error {
	id, err := parseARMID(f.Resource.ID)
	if err != nil {
		return err
	}
	if len(id.names) < 2 {
		return fmt.Errorf("database id %q missing server/database segments", f.Resource.ID)
	}

	client, err := armsql.NewDatabasesClient(id.subscription, a.Cred, nil)
	if err != nil {
		return err
	}
	poller, err := client.BeginUpdate(ctx, id.group, id.names[0], id.names[1], armsql.DatabaseUpdate{
		SKU: &armsql.SKU{Name: to.Ptr(a.TargetSKU)},
	}, nil)
	if err != nil {
		return fmt.Errorf("failed to update tier for %s: %w", f.Resource.Name, err)
	}
	if _, err := poller.PollUntilDone(ctx, nil); err != nil {
		return fmt.Errorf("tier change did not complete: %w", err)
	}
	return nil
}

// RoleAssigner grants one RBAC role to one principal at one scope. It is
// driven by explicit operator flags rather than findings, so it lives beside
// the category actions instead of in the registry.
type RoleAssigner struct {
	Cred azcore.TokenCredential
}

func (r *RoleAssigner) Assign(ctx context.Context, subscriptionID, scope, principalID, roleDefinitionID string) error {
	client, err := armauthorization.NewRoleAssignmentsClient(subscriptionID, r.Cred, nil)
	if err != nil {
		return err
	}
	_, err = client.Create(ctx, scope, uuid.NewString(), armauthorization.RoleAssignmentCreateParameters{
		Properties: &armauthorization.RoleAssignmentProperties{
			PrincipalID:      to.Ptr(principalID),
			RoleDefinitionID: to.Ptr(roleDefinitionID),
		},
	}, nil)
	if err != nil {
		return fmt.Errorf("failed to create role assignment: %w", err)
	}
	return nil
}
