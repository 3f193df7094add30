package remediate

import (
	"context"
	"fmt"
	"strconv"

	"github.com/databricks/databricks-sdk-go"
	"github.com/databricks/databricks-sdk-go/service/compute"
	"github.com/databricks/databricks-sdk-go/service/iam"
	"github.com/databricks/databricks-sdk-go/service/sql"

	"github.com/pyxhealth/cloudaudit/pkg/models/domain"
)

// SetAutoTermination enforces the auto-stop limit on clusters and SQL
// warehouses.
type SetAutoTermination struct {
	Client  *databricks.WorkspaceClient
	Minutes int
}

func (a *SetAutoTermination) Name() string      { return "set-auto-termination" }
func (a *SetAutoTermination) Destructive() bool { return false }

func (a *SetAutoTermination) Apply(ctx context.Context, f domain.Finding) error {
	switch f.Resource.Kind {
	case domain.ResourceKindCluster:
		details, err := a.Client.Clusters.Get(ctx, compute.GetClusterRequest{ClusterId: f.Resource.ID})
		if err != nil {
			return fmt.Errorf("failed to read cluster %s: %w", f.Resource.Name, err)
		}
		edit := compute.EditCluster{
			ClusterId:              details.ClusterId,
			ClusterName:            details.ClusterName,
			SparkVersion:           details.SparkVersion,
			NodeTypeId:             details.NodeTypeId,
			NumWorkers:             details.NumWorkers,
			Autoscale:              details.Autoscale,
			AutoterminationMinutes: a.Minutes,
		}
		if _, err := a.Client.Clusters.Edit(ctx, edit); err != nil {
			return fmt.Errorf("failed to edit cluster %s: %w", f.Resource.Name, err)
		}
		return nil

	case domain.ResourceKindWarehouse:
		if _, err := a.Client.Warehouses.Edit(ctx, sql.EditWarehouseRequest{
			Id:           f.Resource.ID,
			AutoStopMins: a.Minutes,
		}); err != nil {
			return fmt.Errorf("failed to edit warehouse %s: %w", f.Resource.Name, err)
		}
		return nil

	default:
		return fmt.Errorf("unsupported resource kind %s", f.Resource.Kind)
	}
}

type userDirectory interface {
	GetById(ctx context.Context, id string) (*iam.User, error)
	DeleteById(ctx context.Context, id string) error
}

type groupDirectory interface {
	Patch(ctx context.Context, request iam.PartialUpdate) error
}

// RemoveWorkspaceUser removes a deactivated account from the workspace via
// the SCIM API. Group memberships are detached first with a SCIM partial
// update per group so rosters do not keep dangling member entries, then the
// user record itself is deleted.
type RemoveWorkspaceUser struct {
	Users  userDirectory
	Groups groupDirectory
}

func NewRemoveWorkspaceUser(client *databricks.WorkspaceClient) *RemoveWorkspaceUser {
	return &RemoveWorkspaceUser{Users: client.Users, Groups: client.Groups}
}

func (a *RemoveWorkspaceUser) Name() string      { return "remove-workspace-user" }
func (a *RemoveWorkspaceUser) Destructive() bool { return true }

func (a *RemoveWorkspaceUser) Apply(ctx context.Context, f domain.Finding) error {
	// Refuse to remove accounts that are still active; the finding snapshot
	// may be stale.
	if active, err := strconv.ParseBool(f.Resource.Props["active"]); err == nil && active {
		return fmt.Errorf("user %s is active, refusing removal", f.Resource.Name)
	}

	user, err := a.Users.GetById(ctx, f.Resource.ID)
	if err != nil {
		return fmt.Errorf("failed to read user %s: %w", f.Resource.Name, err)
	}
	for _, group := range user.Groups {
		update := iam.PartialUpdate{
			Id: group.Value,
			Operations: []iam.Patch{{
				Op:   iam.PatchOpRemove,
				Path: fmt.Sprintf("members[value eq %q]", user.Id),
			}},
			Schemas: []iam.PatchSchema{iam.PatchSchemaUrnIetfParamsScimApiMessages20PatchOp},
		}
		if err := a.Groups.Patch(ctx, update); err != nil {
			return fmt.Errorf("failed to detach user %s from group %s: %w",
				f.Resource.Name, group.Display, err)
		}
	}

	if err := a.Users.DeleteById(ctx, f.Resource.ID); err != nil {
		return fmt.Errorf("failed to remove user %s: %w", f.Resource.Name, err)
	}
	return nil
}
