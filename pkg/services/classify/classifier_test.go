package classify

import (
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pyxhealth/cloudaudit/pkg/models/domain"
	"github.com/pyxhealth/cloudaudit/pkg/services/config"
)

func nsgRule(source, ports string) domain.Resource {
	return domain.Resource{
		ID:   "/subscriptions/s/resourceGroups/rg/providers/Microsoft.Network/networkSecurityGroups/nsg/securityRules/r",
		Name: "nsg/r",
		Kind: domain.ResourceKindNSGRule,
		Props: map[string]string{
			"direction":  "Inbound",
			"access":     "Allow",
			"sources":    source,
			"dest_ports": ports,
		},
	}
}

func TestClassifyNSGRule(t *testing.T) {
	c := New(config.DefaultRuleSet())

	t.Run("open source with ssh port is critical", func(t *testing.T) {
		finding := c.Classify(nsgRule("*", "22"))
		require.NotNil(t, finding)
		assert.Equal(t, domain.CategoryDangerousPort, finding.Category)
		assert.Equal(t, domain.SeverityCritical, finding.Severity)
		assert.Contains(t, finding.Reason, "22")
	})

	t.Run("restricted cidr never matches regardless of port", func(t *testing.T) {
		assert.Nil(t, c.Classify(nsgRule("10.0.0.0/24", "22")))
		assert.Nil(t, c.Classify(nsgRule("10.0.0.0/24", "*")))
	})

	t.Run("wildcard port exposes the whole dangerous set", func(t *testing.T) {
		finding := c.Classify(nsgRule("0.0.0.0/0", "*"))
		require.NotNil(t, finding)
		for _, port := range config.DefaultRuleSet().DangerousPorts {
			assert.Contains(t, finding.Reason, strconv.Itoa(port))
		}
	})

	t.Run("port range intersects dangerous set", func(t *testing.T) {
		finding := c.Classify(nsgRule("Internet", "3000-4000"))
		require.NotNil(t, finding)
		assert.Contains(t, finding.Reason, "3306")
		assert.Contains(t, finding.Reason, "3389")
		assert.NotContains(t, finding.Reason, "22,")
	})

	t.Run("outbound and deny rules are ignored", func(t *testing.T) {
		res := nsgRule("*", "22")
		res.Props["direction"] = "Outbound"
		assert.Nil(t, c.Classify(res))

		res = nsgRule("*", "22")
		res.Props["access"] = "Deny"
		assert.Nil(t, c.Classify(res))
	})

	t.Run("classification is idempotent", func(t *testing.T) {
		first := c.Classify(nsgRule("*", "22"))
		second := c.Classify(nsgRule("*", "22"))
		require.NotNil(t, first)
		require.NotNil(t, second)
		assert.Equal(t, first.ID, second.ID)
		assert.Equal(t, first.Reason, second.Reason)
	})
}

func sqlDatabase(tier string, util *domain.Utilization) domain.Resource {
	return domain.Resource{
		ID:          "/subscriptions/s/resourceGroups/rg/providers/Microsoft.Sql/servers/srv/databases/db",
		Name:        "srv/db",
		Kind:        domain.ResourceKindSQLDatabase,
		Props:       map[string]string{"tier": tier, "sku": "S3"},
		Utilization: util,
	}
}

func TestClassifyUtilization(t *testing.T) {
	c := New(config.DefaultRuleSet())

	t.Run("low usage recommends downscale to basic band", func(t *testing.T) {
		finding := c.Classify(sqlDatabase("Standard", &domain.Utilization{
			AveragePercent: 5, MaximumPercent: 18, SampleCount: 300, LookbackDays: 14,
		}))
		require.NotNil(t, finding)
		assert.Equal(t, domain.CategoryDownscale, finding.Category)
		assert.Contains(t, finding.Recommendation, "Basic/S0")
	})

	t.Run("high usage recommends upscale", func(t *testing.T) {
		finding := c.Classify(sqlDatabase("Standard", &domain.Utilization{
			AveragePercent: 85, MaximumPercent: 95, SampleCount: 300, LookbackDays: 14,
		}))
		require.NotNil(t, finding)
		assert.Equal(t, domain.CategoryUpscale, finding.Category)
	})

	t.Run("boundary values fall outside the downscale band", func(t *testing.T) {
		// avg exactly 10 fails the strict < comparison
		assert.Nil(t, c.Classify(sqlDatabase("Standard", &domain.Utilization{
			AveragePercent: 10, MaximumPercent: 18, SampleCount: 300,
		})))
		// max exactly 25 fails the strict < comparison
		assert.Nil(t, c.Classify(sqlDatabase("Standard", &domain.Utilization{
			AveragePercent: 5, MaximumPercent: 25, SampleCount: 300,
		})))
	})

	t.Run("boundary value triggers upscale inclusively", func(t *testing.T) {
		finding := c.Classify(sqlDatabase("Standard", &domain.Utilization{
			AveragePercent: 80, MaximumPercent: 90, SampleCount: 300,
		}))
		require.NotNil(t, finding)
		assert.Equal(t, domain.CategoryUpscale, finding.Category)
	})

	t.Run("no samples is unknown, not idle", func(t *testing.T) {
		assert.Nil(t, c.Classify(sqlDatabase("Standard", &domain.Utilization{
			SampleCount: 0, LookbackDays: 14,
		})))
		assert.Nil(t, c.Classify(sqlDatabase("Standard", nil)))
	})

	t.Run("observed zero usage is idle", func(t *testing.T) {
		finding := c.Classify(sqlDatabase("Standard", &domain.Utilization{
			AveragePercent: 0, MaximumPercent: 0, SampleCount: 300, LookbackDays: 14,
		}))
		require.NotNil(t, finding)
		assert.Equal(t, domain.CategoryIdle, finding.Category)
	})
}

func TestClassifySKU(t *testing.T) {
	c := New(config.DefaultRuleSet())

	t.Run("classic tier is urgent migration", func(t *testing.T) {
		finding := c.Classify(sqlDatabase("Classic", nil))
		require.NotNil(t, finding)
		assert.Equal(t, domain.CategorySKUMigration, finding.Category)
		assert.Equal(t, domain.SeverityHigh, finding.Severity)
		assert.Contains(t, finding.Reason, "URGENT")
	})

	t.Run("current tiers produce no migration finding", func(t *testing.T) {
		assert.Nil(t, c.Classify(sqlDatabase("Standard", nil)))
		assert.Nil(t, c.Classify(sqlDatabase("Premium", nil)))
	})

	t.Run("sku rule wins over utilization for deprecated tiers", func(t *testing.T) {
		finding := c.Classify(sqlDatabase("Classic", &domain.Utilization{
			AveragePercent: 5, MaximumPercent: 10, SampleCount: 10,
		}))
		require.NotNil(t, finding)
		assert.Equal(t, domain.CategorySKUMigration, finding.Category)
	})
}

func TestClassifyStorage(t *testing.T) {
	c := New(config.DefaultRuleSet())

	t.Run("public container is critical", func(t *testing.T) {
		finding := c.Classify(domain.Resource{
			ID:    "c1",
			Kind:  domain.ResourceKindContainer,
			Props: map[string]string{"public_access": "Container"},
		})
		require.NotNil(t, finding)
		assert.Equal(t, domain.CategoryPublicAccess, finding.Category)
		assert.Equal(t, domain.SeverityCritical, finding.Severity)
	})

	t.Run("private container is clean", func(t *testing.T) {
		assert.Nil(t, c.Classify(domain.Resource{
			ID:    "c2",
			Kind:  domain.ResourceKindContainer,
			Props: map[string]string{"public_access": "None"},
		}))
	})

	t.Run("account level public access", func(t *testing.T) {
		finding := c.Classify(domain.Resource{
			ID:    "a1",
			Kind:  domain.ResourceKindStorageAcct,
			Props: map[string]string{"allow_blob_public_access": "true"},
		})
		require.NotNil(t, finding)
		assert.Equal(t, domain.CategoryPublicAccess, finding.Category)
	})

	t.Run("old tls version", func(t *testing.T) {
		finding := c.Classify(domain.Resource{
			ID:   "a2",
			Kind: domain.ResourceKindStorageAcct,
			Props: map[string]string{
				"allow_blob_public_access": "false",
				"https_only":               "true",
				"minimum_tls_version":      "TLS1_0",
			},
		})
		require.NotNil(t, finding)
		assert.Equal(t, domain.CategoryWeakTransport, finding.Category)
	})
}

func TestClassifyNaming(t *testing.T) {
	c := New(config.DefaultRuleSet())

	t.Run("prod name in preprod group is flagged", func(t *testing.T) {
		finding := c.Classify(domain.Resource{
			ID:    "rg1",
			Name:  "app-prod-rg",
			Kind:  domain.ResourceKindResourceGroup,
			Props: map[string]string{"environment": "preprod"},
		})
		require.NotNil(t, finding)
		assert.Equal(t, domain.CategoryNamingViolation, finding.Category)
	})

	t.Run("preprod is not shadowed by its prod substring", func(t *testing.T) {
		assert.Nil(t, c.Classify(domain.Resource{
			ID:    "rg2",
			Name:  "app-preprod-rg",
			Kind:  domain.ResourceKindResourceGroup,
			Props: map[string]string{"environment": "preprod"},
		}))
	})

	t.Run("no expected token means no verdict", func(t *testing.T) {
		assert.Nil(t, c.Classify(domain.Resource{
			ID:    "rg3",
			Name:  "app-prod-rg",
			Kind:  domain.ResourceKindResourceGroup,
			Props: map[string]string{},
		}))
	})

	t.Run("clean storage account named against its scope environment", func(t *testing.T) {
		finding := c.Classify(domain.Resource{
			ID:    "sa1",
			Name:  "pyxapp-prod-sa",
			Kind:  domain.ResourceKindStorageAcct,
			Scope: domain.Scope{ID: "s1", Environment: "preprod"},
			Props: map[string]string{"allow_blob_public_access": "false", "https_only": "true"},
		})
		require.NotNil(t, finding)
		assert.Equal(t, domain.CategoryNamingViolation, finding.Category)
	})

	t.Run("group environment tag beats the scope environment", func(t *testing.T) {
		finding := c.Classify(domain.Resource{
			ID:    "sa2",
			Name:  "pyxapp-prod-sa",
			Kind:  domain.ResourceKindStorageAcct,
			Scope: domain.Scope{ID: "s1", Environment: "prod"},
			Props: map[string]string{
				"allow_blob_public_access": "false",
				"https_only":               "true",
				"environment":              "preprod",
			},
		})
		require.NotNil(t, finding)
		assert.Equal(t, domain.CategoryNamingViolation, finding.Category)
	})

	t.Run("storage access rule wins over naming", func(t *testing.T) {
		finding := c.Classify(domain.Resource{
			ID:    "sa3",
			Name:  "pyxapp-prod-sa",
			Kind:  domain.ResourceKindStorageAcct,
			Props: map[string]string{"allow_blob_public_access": "true", "environment": "preprod"},
		})
		require.NotNil(t, finding)
		assert.Equal(t, domain.CategoryPublicAccess, finding.Category)
	})

	t.Run("misnamed sql database is flagged when utilization is healthy", func(t *testing.T) {
		finding := c.Classify(domain.Resource{
			ID:    "db1",
			Name:  "orders-prod-db",
			Kind:  domain.ResourceKindSQLDatabase,
			Props: map[string]string{"tier": "Standard", "environment": "preprod"},
			Utilization: &domain.Utilization{
				AveragePercent: 45, MaximumPercent: 60, SampleCount: 10,
			},
		})
		require.NotNil(t, finding)
		assert.Equal(t, domain.CategoryNamingViolation, finding.Category)
	})
}

func TestClassifyDatabricks(t *testing.T) {
	c := New(config.DefaultRuleSet())

	t.Run("cluster without auto termination", func(t *testing.T) {
		finding := c.Classify(domain.Resource{
			ID:    "cl1",
			Kind:  domain.ResourceKindCluster,
			Props: map[string]string{"autotermination_minutes": "0"},
		})
		require.NotNil(t, finding)
		assert.Equal(t, domain.CategoryNoAutoTerminate, finding.Category)
		assert.Equal(t, domain.SeverityMedium, finding.Severity)
	})

	t.Run("warehouse with zero queries is idle", func(t *testing.T) {
		finding := c.Classify(domain.Resource{
			ID:   "wh1",
			Kind: domain.ResourceKindWarehouse,
			Props: map[string]string{
				"query_count":    "0",
				"lookback_days":  "14",
				"min_clusters":   "1",
				"auto_stop_mins": "30",
			},
		})
		require.NotNil(t, finding)
		assert.Equal(t, domain.CategoryIdle, finding.Category)
	})

	t.Run("warehouse without history stays unknown", func(t *testing.T) {
		assert.Nil(t, c.Classify(domain.Resource{
			ID:   "wh2",
			Kind: domain.ResourceKindWarehouse,
			Props: map[string]string{
				"min_clusters":   "1",
				"auto_stop_mins": "30",
			},
		}))
	})

	t.Run("inactive user is flagged", func(t *testing.T) {
		finding := c.Classify(domain.Resource{
			ID:    "u1",
			Kind:  domain.ResourceKindUser,
			Props: map[string]string{"active": "false"},
		})
		require.NotNil(t, finding)
		assert.Equal(t, domain.CategoryInactiveIdentity, finding.Category)
	})
}

