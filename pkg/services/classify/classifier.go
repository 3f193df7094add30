// Package classify applies static predicate rules to walked resources. Rules
// are pure functions over a resource snapshot and the loaded rule set: no
// I/O, no ordering dependencies, and at most one finding per resource.
package classify

import (
	"github.com/pyxhealth/cloudaudit/pkg/models/domain"
	"github.com/pyxhealth/cloudaudit/pkg/services/config"
)

type Classifier struct {
	rules config.RuleSet
}

func New(rules config.RuleSet) *Classifier {
	return &Classifier{rules: rules}
}

// Classify returns the finding for one resource, or nil. Re-running over the
// same snapshot and rule set always produces the same verdict.
func (c *Classifier) Classify(res domain.Resource) *domain.Finding {
	switch res.Kind {
	case domain.ResourceKindNSGRule:
		return c.classifyNSGRule(res)
	case domain.ResourceKindStorageAcct:
		if f := c.classifyStorageAccount(res); f != nil {
			return f
		}
		return c.classifyNaming(res)
	case domain.ResourceKindContainer:
		if f := c.classifyContainer(res); f != nil {
			return f
		}
		return c.classifyNaming(res)
	case domain.ResourceKindSQLDatabase:
		if f := c.classifySKU(res); f != nil {
			return f
		}
		if f := c.classifyUtilization(res); f != nil {
			return f
		}
		return c.classifyNaming(res)
	case domain.ResourceKindCluster:
		return c.classifyCluster(res)
	case domain.ResourceKindWarehouse:
		return c.classifyWarehouse(res)
	case domain.ResourceKindUser:
		return c.classifyUser(res)
	case domain.ResourceKindResourceGroup:
		return c.classifyNaming(res)
	default:
		return nil
	}
}

func newFinding(category domain.FindingCategory, severity domain.Severity, res domain.Resource, reason, recommendation string) *domain.Finding {
	return &domain.Finding{
		ID:             domain.FindingID(category, res.ID),
		Category:       category,
		Severity:       severity,
		Resource:       res,
		Reason:         reason,
		Recommendation: recommendation,
	}
}
