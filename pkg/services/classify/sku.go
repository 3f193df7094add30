package classify

import (
	"fmt"
	"strings"

	"github.com/pyxhealth/cloudaudit/pkg/models/domain"
)

// classifySKU flags databases still on a deprecated offering. Tiers matching
// a current token are already migrated and produce no finding.
func (c *Classifier) classifySKU(res domain.Resource) *domain.Finding {
	tier := res.Props["tier"]
	if tier == "" {
		tier = res.Props["sku"]
	}
	if tier == "" {
		return nil
	}

	for _, token := range c.rules.DeprecatedSKUTokens {
		if strings.Contains(strings.ToLower(tier), strings.ToLower(token)) {
			return newFinding(
				domain.CategorySKUMigration,
				domain.SeverityHigh,
				res,
				fmt.Sprintf("tier %q matches deprecated offering %q - migration is URGENT", tier, token),
				"Migrate to a vCore or current DTU tier before the retirement date.",
			)
		}
	}
	return nil
}
