package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultRuleSet(t *testing.T) {
	rules := DefaultRuleSet()

	t.Run("downscale target sku is a submit-ready objective", func(t *testing.T) {
		assert.Equal(t, "S0", rules.DownscaleTargetSKU)
		assert.NotContains(t, rules.DownscaleTargetSKU, "/")
	})

	t.Run("downscale band label stays a display value", func(t *testing.T) {
		assert.Equal(t, "Basic/S0", rules.DownscaleTargetTier)
	})

	t.Run("preprod sorts ahead of prod after longest-first ordering", func(t *testing.T) {
		assert.Contains(t, rules.EnvironmentTokens, "preprod")
		assert.Contains(t, rules.EnvironmentTokens, "prod")
	})
}

func TestLoadRuleSet(t *testing.T) {
	t.Run("empty path keeps defaults", func(t *testing.T) {
		rules, err := LoadRuleSet("")
		require.NoError(t, err)
		assert.Equal(t, DefaultRuleSet(), rules)
	})

	t.Run("overrides merge over defaults", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "rules.yaml")
		body := "downscale_target_sku: Basic\nmetric_lookback_days: 30\n"
		require.NoError(t, os.WriteFile(path, []byte(body), 0o600))

		rules, err := LoadRuleSet(path)
		require.NoError(t, err)
		assert.Equal(t, "Basic", rules.DownscaleTargetSKU)
		assert.Equal(t, 30, rules.MetricLookbackDays)
		assert.Equal(t, DefaultRuleSet().DangerousPorts, rules.DangerousPorts)
	})

	t.Run("unreadable file is an error", func(t *testing.T) {
		_, err := LoadRuleSet(filepath.Join(t.TempDir(), "missing.yaml"))
		assert.Error(t, err)
	})
}
