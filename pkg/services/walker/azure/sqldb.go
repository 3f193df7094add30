package azure

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/to"
	"github.com/Azure/azure-sdk-for-go/sdk/resourcemanager/monitor/armmonitor"
	"github.com/Azure/azure-sdk-for-go/sdk/resourcemanager/sql/armsql"
	"github.com/rs/zerolog"

	"github.com/pyxhealth/cloudaudit/pkg/models/domain"
)

// sqlDatabaseWalker lists every database on every SQL server in the
// subscription and attaches DTU consumption metrics over the lookback window.
// A metric query with no data points yields a nil-sample Utilization so the
// classifier sees Unknown rather than a false idle.
type sqlDatabaseWalker struct {
	cred         azcore.TokenCredential
	lookbackDays int
}

func (w *sqlDatabaseWalker) Kind() domain.ResourceKind { return domain.ResourceKindSQLDatabase }

func (w *sqlDatabaseWalker) Walk(ctx context.Context, scope domain.Scope) domain.KindResult {
	logger := zerolog.Ctx(ctx)

	servers, err := armsql.NewServersClient(scope.ID, w.cred, nil)
	if err != nil {
		return domain.WalkFailed(scope, w.Kind(), err)
	}
	databases, err := armsql.NewDatabasesClient(scope.ID, w.cred, nil)
	if err != nil {
		return domain.WalkFailed(scope, w.Kind(), err)
	}
	metrics, err := armmonitor.NewMetricsClient(w.cred, nil)
	if err != nil {
		return domain.WalkFailed(scope, w.Kind(), err)
	}

	envs := groupEnvironments(ctx, w.cred, scope.ID)

	var resources []domain.Resource
	spager := servers.NewListPager(nil)
	for spager.More() {
		spage, err := spager.NextPage(ctx)
		if err != nil {
			return domain.WalkFailed(scope, w.Kind(), fmt.Errorf("failed to list SQL servers: %w", err))
		}
		for _, server := range spage.Value {
			group := resourceGroupFromID(deref(server.ID))
			dpager := databases.NewListByServerPager(group, deref(server.Name), nil)
			for dpager.More() {
				dpage, err := dpager.NextPage(ctx)
				if err != nil {
					logger.Warn().
						Err(err).
						Str("server", deref(server.Name)).
						Msg("failed to list databases for server")
					break
				}
				for _, db := range dpage.Value {
					if deref(db.Name) == "master" {
						continue
					}
					res := databaseResource(scope, group, deref(server.Name), db)
					res.Utilization = w.queryDTUConsumption(ctx, metrics, deref(db.ID))
					stampEnvironment(&res, envs)
					resources = append(resources, res)
				}
			}
		}
	}
	return domain.Found(scope, w.Kind(), resources)
}

func databaseResource(scope domain.Scope, group, server string, db *armsql.Database) domain.Resource {
	bag := map[string]string{"server": server}
	if db.SKU != nil {
		bag["sku"] = deref(db.SKU.Name)
		bag["tier"] = deref(db.SKU.Tier)
		if db.SKU.Capacity != nil {
			bag["capacity"] = strconv.Itoa(int(*db.SKU.Capacity))
		}
	}
	if db.Properties != nil && db.Properties.Status != nil {
		bag["status"] = string(*db.Properties.Status)
	}
	return domain.Resource{
		ID:       deref(db.ID),
		Name:     fmt.Sprintf("%s/%s", server, deref(db.Name)),
		Kind:     domain.ResourceKindSQLDatabase,
		Scope:    scope,
		Group:    group,
		Location: deref(db.Location),
		Tags:     tagMap(db.Tags),
		Props:    bag,
	}
}

// queryDTUConsumption fetches average and maximum dtu_consumption_percent for
// the database resource. Failures and empty series both come back as an
// unknown (zero-sample) utilization, never as zero usage.
func (w *sqlDatabaseWalker) queryDTUConsumption(
	ctx context.Context,
	metrics *armmonitor.MetricsClient,
	resourceURI string,
) *domain.Utilization {
	logger := zerolog.Ctx(ctx)

	end := time.Now().UTC()
	start := end.AddDate(0, 0, -w.lookbackDays)
	timespan := fmt.Sprintf("%s/%s", start.Format(time.RFC3339), end.Format(time.RFC3339))

	resp, err := metrics.List(ctx, resourceURI, &armmonitor.MetricsClientListOptions{
		Timespan:    to.Ptr(timespan),
		Interval:    to.Ptr("PT1H"),
		Metricnames: to.Ptr("dtu_consumption_percent"),
		Aggregation: to.Ptr("Average,Maximum"),
	})
	if err != nil {
		logger.Warn().Err(err).Str("resource", resourceURI).Msg("DTU metric query failed")
		return &domain.Utilization{LookbackDays: w.lookbackDays}
	}

	util := &domain.Utilization{LookbackDays: w.lookbackDays}
	var sum float64
	for _, metric := range resp.Value {
		for _, series := range metric.Timeseries {
			for _, point := range series.Data {
				if point.Average == nil && point.Maximum == nil {
					continue
				}
				util.SampleCount++
				if point.Average != nil {
					sum += *point.Average
				}
				if point.Maximum != nil && *point.Maximum > util.MaximumPercent {
					util.MaximumPercent = *point.Maximum
				}
			}
		}
	}
	if util.SampleCount > 0 {
		util.AveragePercent = sum / float64(util.SampleCount)
	}
	return util
}
