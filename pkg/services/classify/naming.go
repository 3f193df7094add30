package classify

import (
	"fmt"
	"sort"
	"strings"

	"github.com/pyxhealth/cloudaudit/pkg/models/domain"
)

// classifyNaming checks a resource's name against its expected environment:
// the containing group's environment tag when the walker captured one,
// otherwise the scope's. A resource expected in "preprod" whose name carries
// "prod" but not "preprod" is a convention violation; tokens are matched
// longest-first so "preprod" is not shadowed by its "prod" substring.
func (c *Classifier) classifyNaming(res domain.Resource) *domain.Finding {
	expected := res.Props["environment"]
	if expected == "" {
		expected = res.Scope.Environment
	}
	if expected == "" {
		return nil
	}

	actual := c.nameEnvironmentToken(res.Name)
	if actual == "" || strings.EqualFold(actual, expected) {
		return nil
	}
	return newFinding(
		domain.CategoryNamingViolation,
		domain.SeverityLow,
		res,
		fmt.Sprintf("name carries environment token %q but the scope expects %q", actual, expected),
		fmt.Sprintf("Rename the resource to include %q or move it to the matching scope.", expected),
	)
}

func (c *Classifier) nameEnvironmentToken(name string) string {
	lower := strings.ToLower(name)
	tokens := append([]string{}, c.rules.EnvironmentTokens...)
	sort.Slice(tokens, func(i, j int) bool { return len(tokens[i]) > len(tokens[j]) })
	for _, token := range tokens {
		if strings.Contains(lower, strings.ToLower(token)) {
			return token
		}
	}
	return ""
}
