package classify

import (
	"fmt"
	"strconv"

	"github.com/pyxhealth/cloudaudit/pkg/models/domain"
)

func (c *Classifier) classifyCluster(res domain.Resource) *domain.Finding {
	mins, err := strconv.Atoi(res.Props["autotermination_minutes"])
	if err != nil {
		return nil
	}
	if mins == 0 {
		return newFinding(
			domain.CategoryNoAutoTerminate,
			domain.SeverityMedium,
			res,
			"interactive cluster has auto-termination disabled",
			fmt.Sprintf("Set auto-termination to at most %d minutes.", c.rules.MaxAutoStopMinutes),
		)
	}
	if mins > c.rules.MaxAutoStopMinutes {
		return newFinding(
			domain.CategoryNoAutoTerminate,
			domain.SeverityLow,
			res,
			fmt.Sprintf("auto-termination of %d minutes exceeds the %d minute limit", mins, c.rules.MaxAutoStopMinutes),
			fmt.Sprintf("Reduce auto-termination to at most %d minutes.", c.rules.MaxAutoStopMinutes),
		)
	}
	return nil
}

// classifyWarehouse flags idle and overprovisioned SQL warehouses. A missing
// query_count means the history table was unreadable: activity is unknown
// and the idle rule does not fire.
func (c *Classifier) classifyWarehouse(res domain.Resource) *domain.Finding {
	if countStr, ok := res.Props["query_count"]; ok {
		count, err := strconv.Atoi(countStr)
		if err == nil && count == 0 {
			return newFinding(
				domain.CategoryIdle,
				domain.SeverityMedium,
				res,
				fmt.Sprintf("zero queries executed in the last %s days", res.Props["lookback_days"]),
				"Stop or delete the warehouse, or move intermittent workloads to serverless.",
			)
		}
	}

	if minClusters, err := strconv.Atoi(res.Props["min_clusters"]); err == nil &&
		minClusters >= c.rules.MinWarehouseClustersFlag {
		return newFinding(
			domain.CategoryDownscale,
			domain.SeverityLow,
			res,
			fmt.Sprintf("minimum cluster count is provisioned at %d", minClusters),
			"Lower the minimum cluster count and let auto-scaling absorb the load.",
		)
	}

	if mins, err := strconv.Atoi(res.Props["auto_stop_mins"]); err == nil && mins == 0 {
		return newFinding(
			domain.CategoryNoAutoTerminate,
			domain.SeverityMedium,
			res,
			"warehouse auto-stop is disabled",
			fmt.Sprintf("Set auto-stop to at most %d minutes.", c.rules.MaxAutoStopMinutes),
		)
	}
	return nil
}

func (c *Classifier) classifyUser(res domain.Resource) *domain.Finding {
	if res.Props["active"] == "false" {
		return newFinding(
			domain.CategoryInactiveIdentity,
			domain.SeverityLow,
			res,
			"workspace user account is deactivated but still provisioned",
			"Remove the account from the workspace via SCIM.",
		)
	}
	return nil
}
