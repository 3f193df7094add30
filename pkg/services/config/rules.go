package config

import (
	"fmt"

	"github.com/spf13/viper"
)

// RuleSet is the single declarative home for every threshold and constant the
// classifier consumes. Values ship with compiled-in defaults and may be
// overridden from a config file so rules stay testable without any cloud API.
type RuleSet struct {
	// DangerousPorts are TCP ports flagged when an inbound allow rule exposes
	// them to an unrestricted source.
	DangerousPorts []int `mapstructure:"dangerous_ports"`
	// OpenSources are source prefixes treated as "the whole internet".
	OpenSources []string `mapstructure:"open_sources"`
	// DeprecatedSKUTokens mark tiers that must be migrated urgently.
	DeprecatedSKUTokens []string `mapstructure:"deprecated_sku_tokens"`
	// CurrentSKUTokens mark tiers that are already on a supported offering.
	CurrentSKUTokens []string `mapstructure:"current_sku_tokens"`

	// Downscale triggers when avg < DownscaleAvgPercent AND max <
	// DownscaleMaxPercent (strict). Upscale triggers when avg >=
	// UpscaleAvgPercent.
	DownscaleAvgPercent float64 `mapstructure:"downscale_avg_percent"`
	DownscaleMaxPercent float64 `mapstructure:"downscale_max_percent"`
	UpscaleAvgPercent   float64 `mapstructure:"upscale_avg_percent"`
	// DownscaleTargetTier is the band named in downscale finding text.
	DownscaleTargetTier string `mapstructure:"downscale_target_tier"`
	// DownscaleTargetSKU is the concrete service objective the retier
	// executor submits, so it must be a valid SKU name, not a band label.
	DownscaleTargetSKU string `mapstructure:"downscale_target_sku"`

	// MetricLookbackDays is the utilization window for metric queries.
	MetricLookbackDays int `mapstructure:"metric_lookback_days"`

	// EnvironmentTokens are recognized environment name fragments, matched
	// longest-first so "preprod" wins over "prod".
	EnvironmentTokens []string `mapstructure:"environment_tokens"`

	// MaxAutoStopMinutes flags warehouses with overly long auto-stop windows;
	// zero auto-termination on clusters is always flagged.
	MaxAutoStopMinutes int `mapstructure:"max_auto_stop_minutes"`
	// MinWarehouseClustersFlag flags warehouses whose minimum cluster count
	// is provisioned at or above this value.
	MinWarehouseClustersFlag int `mapstructure:"min_warehouse_clusters_flag"`
}

// DefaultRuleSet returns the thresholds the audits ran with historically.
func DefaultRuleSet() RuleSet {
	return RuleSet{
		DangerousPorts:           []int{22, 23, 3389, 1433, 3306, 5432, 27017, 6379, 9200, 5985, 5986},
		OpenSources:              []string{"*", "0.0.0.0/0", "Internet", "any"},
		DeprecatedSKUTokens:      []string{"Classic"},
		CurrentSKUTokens:         []string{"Standard", "Premium", "GeneralPurpose", "BusinessCritical"},
		DownscaleAvgPercent:      10.0,
		DownscaleMaxPercent:      25.0,
		UpscaleAvgPercent:        80.0,
		DownscaleTargetTier:      "Basic/S0",
		DownscaleTargetSKU:       "S0",
		MetricLookbackDays:       14,
		EnvironmentTokens:        []string{"preprod", "prod", "staging", "dev", "qa"},
		MaxAutoStopMinutes:       120,
		MinWarehouseClustersFlag: 2,
	}
}

// LoadRuleSet reads rule overrides from the given file. An empty path returns
// the defaults unchanged.
func LoadRuleSet(path string) (RuleSet, error) {
	rules := DefaultRuleSet()
	if path == "" {
		return rules, nil
	}

	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return RuleSet{}, fmt.Errorf("failed to read rules file: %w", err)
	}
	if err := v.Unmarshal(&rules); err != nil {
		return RuleSet{}, fmt.Errorf("failed to parse rules file: %w", err)
	}
	return rules, nil
}
