package azure

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/resourcemanager/network/armnetwork"

	"github.com/pyxhealth/cloudaudit/pkg/models/domain"
)

// nsgRuleWalker flattens every security rule of every network security group
// in the subscription into one resource per rule.
type nsgRuleWalker struct {
	cred azcore.TokenCredential
}

func (w *nsgRuleWalker) Kind() domain.ResourceKind { return domain.ResourceKindNSGRule }

func (w *nsgRuleWalker) Walk(ctx context.Context, scope domain.Scope) domain.KindResult {
	client, err := armnetwork.NewSecurityGroupsClient(scope.ID, w.cred, nil)
	if err != nil {
		return domain.WalkFailed(scope, w.Kind(), err)
	}

	var resources []domain.Resource
	pager := client.NewListAllPager(nil)
	for pager.More() {
		page, err := pager.NextPage(ctx)
		if err != nil {
			return domain.WalkFailed(scope, w.Kind(), fmt.Errorf("failed to list network security groups: %w", err))
		}
		for _, nsg := range page.Value {
			if nsg.Properties == nil {
				continue
			}
			for _, rule := range nsg.Properties.SecurityRules {
				if rule.Properties == nil {
					continue
				}
				resources = append(resources, ruleResource(scope, nsg, rule))
			}
		}
	}
	return domain.Found(scope, w.Kind(), resources)
}

func ruleResource(scope domain.Scope, nsg *armnetwork.SecurityGroup, rule *armnetwork.SecurityRule) domain.Resource {
	props := rule.Properties

	sources := []string{deref(props.SourceAddressPrefix)}
	for _, p := range props.SourceAddressPrefixes {
		sources = append(sources, deref(p))
	}
	ports := []string{deref(props.DestinationPortRange)}
	for _, p := range props.DestinationPortRanges {
		ports = append(ports, deref(p))
	}

	bag := map[string]string{
		"nsg":        deref(nsg.Name),
		"direction":  string(derefDirection(props.Direction)),
		"access":     string(derefAccess(props.Access)),
		"protocol":   string(derefProtocol(props.Protocol)),
		"sources":    strings.Join(compact(sources), ","),
		"dest_ports": strings.Join(compact(ports), ","),
	}
	if props.Priority != nil {
		bag["priority"] = strconv.Itoa(int(*props.Priority))
	}

	return domain.Resource{
		ID:       deref(rule.ID),
		Name:     fmt.Sprintf("%s/%s", deref(nsg.Name), deref(rule.Name)),
		Kind:     domain.ResourceKindNSGRule,
		Scope:    scope,
		Group:    resourceGroupFromID(deref(nsg.ID)),
		Location: deref(nsg.Location),
		Props:    bag,
	}
}

func derefDirection(d *armnetwork.SecurityRuleDirection) armnetwork.SecurityRuleDirection {
	if d == nil {
		return ""
	}
	return *d
}

func derefAccess(a *armnetwork.SecurityRuleAccess) armnetwork.SecurityRuleAccess {
	if a == nil {
		return ""
	}
	return *a
}

func derefProtocol(p *armnetwork.SecurityRuleProtocol) armnetwork.SecurityRuleProtocol {
	if p == nil {
		return ""
	}
	return *p
}

func compact(in []string) []string {
	var out []string
	for _, s := range in {
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}
