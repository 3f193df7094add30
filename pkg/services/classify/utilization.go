package classify

import (
	"fmt"

	"github.com/pyxhealth/cloudaudit/pkg/models/domain"
)

// classifyUtilization bands a database by its DTU consumption over the
// lookback window. Boundaries: downscale requires avg strictly below the
// average threshold AND max strictly below the maximum threshold; upscale
// triggers at or above the upscale threshold. No samples means unknown and
// never produces a sizing finding.
func (c *Classifier) classifyUtilization(res domain.Resource) *domain.Finding {
	util := res.Utilization
	if util == nil || util.State() == domain.UtilizationUnknown {
		return nil
	}

	if util.State() == domain.UtilizationIdle {
		return newFinding(
			domain.CategoryIdle,
			domain.SeverityMedium,
			res,
			fmt.Sprintf("no DTU consumption observed across %d samples in the last %d days",
				util.SampleCount, util.LookbackDays),
			fmt.Sprintf("Confirm the database is still needed; otherwise downscale to %s or delete it.",
				c.rules.DownscaleTargetTier),
		)
	}

	if util.AveragePercent >= c.rules.UpscaleAvgPercent {
		return newFinding(
			domain.CategoryUpscale,
			domain.SeverityMedium,
			res,
			fmt.Sprintf("average DTU consumption %.1f%% (max %.1f%%) is at or above %.0f%%",
				util.AveragePercent, util.MaximumPercent, c.rules.UpscaleAvgPercent),
			"Move to the next DTU tier or a vCore size with more headroom.",
		)
	}

	if util.AveragePercent < c.rules.DownscaleAvgPercent && util.MaximumPercent < c.rules.DownscaleMaxPercent {
		return newFinding(
			domain.CategoryDownscale,
			domain.SeverityLow,
			res,
			fmt.Sprintf("average DTU consumption %.1f%% with max %.1f%% over %d days",
				util.AveragePercent, util.MaximumPercent, util.LookbackDays),
			fmt.Sprintf("Downscale to the %s band.", c.rules.DownscaleTargetTier),
		)
	}
	return nil
}
