// Package cost enriches audit findings with recent Azure spend, so a
// downscale or idle recommendation arrives with the dollar figure it would
// affect.
package cost

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/to"
	"github.com/Azure/azure-sdk-for-go/sdk/resourcemanager/costmanagement/armcostmanagement"
	"github.com/rs/zerolog"

	"github.com/pyxhealth/cloudaudit/pkg/models/domain"
)

// ResourceCost is the accumulated spend for one resource over the query
// window.
type ResourceCost struct {
	ResourceID string
	Amount     float64
	Currency   string
}

// Analyzer queries Cost Management for per-resource spend in a subscription.
type Analyzer struct {
	factory *armcostmanagement.ClientFactory
}

func NewAnalyzer(cred azcore.TokenCredential) (*Analyzer, error) {
	factory, err := armcostmanagement.NewClientFactory(cred, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create cost management client: %w", err)
	}
	return &Analyzer{factory: factory}, nil
}

// CollectSpend returns actual daily cost per resource for the past days,
// keyed by lowercased resource ID.
func (a *Analyzer) CollectSpend(ctx context.Context, subscriptionID string, days int) (map[string]ResourceCost, error) {
	client := a.factory.NewQueryClient()

	timeTo := time.Now()
	timeFrom := timeTo.AddDate(0, 0, -days)

	exportType := armcostmanagement.ExportTypeActualCost
	granularity := armcostmanagement.GranularityTypeDaily
	timeframe := armcostmanagement.TimeframeTypeCustom
	dimension := armcostmanagement.QueryColumnTypeDimension
	function := armcostmanagement.FunctionTypeSum

	params := armcostmanagement.QueryDefinition{
		Type:      &exportType,
		Timeframe: &timeframe,
		TimePeriod: &armcostmanagement.QueryTimePeriod{
			From: &timeFrom,
			To:   &timeTo,
		},
		Dataset: &armcostmanagement.QueryDataset{
			Granularity: &granularity,
			Aggregation: map[string]*armcostmanagement.QueryAggregation{
				"totalCost": {
					Name:     to.Ptr("Cost"),
					Function: &function,
				},
			},
			Grouping: []*armcostmanagement.QueryGrouping{
				{
					Name: to.Ptr("ResourceId"),
					Type: &dimension,
				},
			},
		},
	}

	scope := fmt.Sprintf("/subscriptions/%s", subscriptionID)
	result, err := client.Usage(ctx, scope, params, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to query costs for %s: %w", subscriptionID, err)
	}

	spend := make(map[string]ResourceCost)
	for _, row := range result.Properties.Rows {
		// rows come back as [cost, date, resourceId, currency]
		if len(row) < 4 {
			continue
		}
		amount, ok := row[0].(float64)
		if !ok {
			continue
		}
		resourceID := strings.ToLower(fmt.Sprintf("%v", row[2]))
		currency := fmt.Sprintf("%v", row[3])

		entry := spend[resourceID]
		entry.ResourceID = resourceID
		entry.Amount += amount
		entry.Currency = currency
		spend[resourceID] = entry
	}

	return spend, nil
}

// Annotate folds spend figures into finding recommendations for the
// categories where money is the point. Missing data leaves the finding
// untouched.
func Annotate(ctx context.Context, report *domain.RunReport, spend map[string]ResourceCost, days int) {
	logger := zerolog.Ctx(ctx)

	annotated := 0
	for i := range report.Entries {
		f := report.Entries[i].Finding
		if f == nil || !spendRelevant(f.Category) {
			continue
		}
		entry, ok := spend[strings.ToLower(f.Resource.ID)]
		if !ok {
			continue
		}
		f.Recommendation = fmt.Sprintf("%s Spend over the last %d days: %.2f %s.",
			f.Recommendation, days, entry.Amount, entry.Currency)
		annotated++
	}
	logger.Debug().Int("annotated", annotated).Msg("cost context folded into findings")
}

func spendRelevant(c domain.FindingCategory) bool {
	switch c {
	case domain.CategoryDownscale, domain.CategoryUpscale, domain.CategoryIdle, domain.CategorySKUMigration:
		return true
	default:
		return false
	}
}
