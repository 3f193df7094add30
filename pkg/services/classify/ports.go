package classify

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/pyxhealth/cloudaudit/pkg/models/domain"
)

// classifyNSGRule flags inbound allow rules that expose a dangerous port to
// an unrestricted source. Rules restricted to a concrete CIDR never match,
// whatever the port.
func (c *Classifier) classifyNSGRule(res domain.Resource) *domain.Finding {
	if !strings.EqualFold(res.Props["direction"], "Inbound") {
		return nil
	}
	if !strings.EqualFold(res.Props["access"], "Allow") {
		return nil
	}
	if !c.hasOpenSource(strings.Split(res.Props["sources"], ",")) {
		return nil
	}

	exposed := c.exposedPorts(strings.Split(res.Props["dest_ports"], ","))
	if len(exposed) == 0 {
		return nil
	}

	ports := make([]string, 0, len(exposed))
	for _, p := range exposed {
		ports = append(ports, strconv.Itoa(p))
	}
	return newFinding(
		domain.CategoryDangerousPort,
		domain.SeverityCritical,
		res,
		fmt.Sprintf("inbound allow rule reachable from the internet exposes port(s) %s", strings.Join(ports, ", ")),
		"Restrict the source to known CIDR ranges or remove the rule.",
	)
}

func (c *Classifier) hasOpenSource(sources []string) bool {
	for _, src := range sources {
		src = strings.TrimSpace(src)
		for _, open := range c.rules.OpenSources {
			if strings.EqualFold(src, open) {
				return true
			}
		}
	}
	return false
}

// exposedPorts intersects the rule's destination port spec ("22", "*",
// "1000-2000", comma lists) with the dangerous port set, sorted ascending.
func (c *Classifier) exposedPorts(specs []string) []int {
	hit := map[int]bool{}
	for _, spec := range specs {
		spec = strings.TrimSpace(spec)
		if spec == "" {
			continue
		}
		if spec == "*" {
			for _, p := range c.rules.DangerousPorts {
				hit[p] = true
			}
			continue
		}
		if lo, hi, ok := parseRange(spec); ok {
			for _, p := range c.rules.DangerousPorts {
				if p >= lo && p <= hi {
					hit[p] = true
				}
			}
			continue
		}
		if port, err := strconv.Atoi(spec); err == nil {
			for _, p := range c.rules.DangerousPorts {
				if p == port {
					hit[p] = true
				}
			}
		}
	}

	out := make([]int, 0, len(hit))
	for p := range hit {
		out = append(out, p)
	}
	sort.Ints(out)
	return out
}

func parseRange(spec string) (lo, hi int, ok bool) {
	parts := strings.SplitN(spec, "-", 2)
	if len(parts) != 2 {
		return 0, 0, false
	}
	lo, err1 := strconv.Atoi(strings.TrimSpace(parts[0]))
	hi, err2 := strconv.Atoi(strings.TrimSpace(parts[1]))
	if err1 != nil || err2 != nil || lo > hi {
		return 0, 0, false
	}
	return lo, hi, true
}
