// Package databricks walks one workspace scope: clusters, SQL warehouses and
// SCIM users.
package databricks

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/databricks/databricks-sdk-go"
	"github.com/databricks/databricks-sdk-go/service/compute"
	"github.com/databricks/databricks-sdk-go/service/iam"
	"github.com/databricks/databricks-sdk-go/service/sql"
	"github.com/rs/zerolog"

	"github.com/pyxhealth/cloudaudit/pkg/models/domain"
	"github.com/pyxhealth/cloudaudit/pkg/services/walker"
)

// UsageReader supplies per-warehouse query counts for a lookback window.
// Satisfied by *usage.Analyzer; nil when no SQL endpoint is configured, in
// which case warehouse activity stays unknown.
type UsageReader interface {
	QueryCounts(ctx context.Context, since time.Time) (map[string]int, error)
}

type Explorer struct {
	client       *databricks.WorkspaceClient
	usage        UsageReader
	lookbackDays int
}

func NewExplorer(client *databricks.WorkspaceClient, usage UsageReader, lookbackDays int) *Explorer {
	if lookbackDays <= 0 {
		lookbackDays = 14
	}
	return &Explorer{client: client, usage: usage, lookbackDays: lookbackDays}
}

func (e *Explorer) Walkers() []walker.Walker {
	return []walker.Walker{
		&clusterWalker{client: e.client},
		&warehouseWalker{client: e.client, usage: e.usage, lookbackDays: e.lookbackDays},
		&userWalker{client: e.client},
	}
}

type clusterWalker struct {
	client *databricks.WorkspaceClient
}

func (w *clusterWalker) Kind() domain.ResourceKind { return domain.ResourceKindCluster }

func (w *clusterWalker) Walk(ctx context.Context, scope domain.Scope) domain.KindResult {
	clusters, err := w.client.Clusters.ListAll(ctx, compute.ListClustersRequest{})
	if err != nil {
		return domain.WalkFailed(scope, w.Kind(), fmt.Errorf("failed to list clusters: %w", err))
	}

	var resources []domain.Resource
	for _, c := range clusters {
		// Job-spawned clusters terminate themselves; only interactive
		// clusters are subject to the auto-termination rule.
		if c.ClusterSource == compute.ClusterSourceJob {
			continue
		}
		resources = append(resources, domain.Resource{
			ID:    c.ClusterId,
			Name:  c.ClusterName,
			Kind:  domain.ResourceKindCluster,
			Scope: scope,
			Props: map[string]string{
				"state":                   string(c.State),
				"spark_version":           c.SparkVersion,
				"num_workers":             strconv.Itoa(c.NumWorkers),
				"autotermination_minutes": strconv.Itoa(c.AutoterminationMinutes),
				"node_type_id":            c.NodeTypeId,
			},
		})
	}
	return domain.Found(scope, w.Kind(), resources)
}

type warehouseWalker struct {
	client       *databricks.WorkspaceClient
	usage        UsageReader
	lookbackDays int
}

func (w *warehouseWalker) Kind() domain.ResourceKind { return domain.ResourceKindWarehouse }

func (w *warehouseWalker) Walk(ctx context.Context, scope domain.Scope) domain.KindResult {
	logger := zerolog.Ctx(ctx)

	warehouses, err := w.client.Warehouses.ListAll(ctx, sql.ListWarehousesRequest{})
	if err != nil {
		return domain.WalkFailed(scope, w.Kind(), fmt.Errorf("failed to list warehouses: %w", err))
	}

	var counts map[string]int
	if w.usage != nil {
		since := time.Now().UTC().AddDate(0, 0, -w.lookbackDays)
		counts, err = w.usage.QueryCounts(ctx, since)
		if err != nil {
			logger.Warn().Err(err).Msg("query history unavailable, warehouse activity unknown")
			counts = nil
		}
	}

	var resources []domain.Resource
	for _, wh := range warehouses {
		bag := map[string]string{
			"state":          string(wh.State),
			"type":           string(wh.WarehouseType),
			"auto_stop_mins": strconv.Itoa(wh.AutoStopMins),
			"min_clusters":   strconv.Itoa(wh.MinNumClusters),
			"max_clusters":   strconv.Itoa(wh.MaxNumClusters),
			"serverless":     strconv.FormatBool(wh.EnableServerlessCompute),
		}
		// query_count is only present when history was readable; its absence
		// means unknown, not zero.
		if counts != nil {
			bag["query_count"] = strconv.Itoa(counts[wh.Id])
			bag["lookback_days"] = strconv.Itoa(w.lookbackDays)
		}
		resources = append(resources, domain.Resource{
			ID:    wh.Id,
			Name:  wh.Name,
			Kind:  domain.ResourceKindWarehouse,
			Scope: scope,
			Props: bag,
		})
	}
	return domain.Found(scope, w.Kind(), resources)
}

type userWalker struct {
	client *databricks.WorkspaceClient
}

func (w *userWalker) Kind() domain.ResourceKind { return domain.ResourceKindUser }

func (w *userWalker) Walk(ctx context.Context, scope domain.Scope) domain.KindResult {
	users, err := w.client.Users.ListAll(ctx, iam.ListUsersRequest{})
	if err != nil {
		return domain.WalkFailed(scope, w.Kind(), fmt.Errorf("failed to list users: %w", err))
	}

	var resources []domain.Resource
	for _, u := range users {
		resources = append(resources, domain.Resource{
			ID:    u.Id,
			Name:  u.UserName,
			Kind:  domain.ResourceKindUser,
			Scope: scope,
			Props: map[string]string{
				"display_name": u.DisplayName,
				"active":       strconv.FormatBool(u.Active),
			},
		})
	}
	return domain.Found(scope, w.Kind(), resources)
}
