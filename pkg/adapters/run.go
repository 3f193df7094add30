// Package adapters maps between the storage, domain and API model layers.
package adapters

import (
	"strings"

	"github.com/pyxhealth/cloudaudit/pkg/models/api"
	"github.com/pyxhealth/cloudaudit/pkg/models/domain"
	"github.com/pyxhealth/cloudaudit/pkg/models/store"
)

// parseScope reverses Scope.String, which renders as "kind:name".
func parseScope(s string) domain.Scope {
	kind, name, found := strings.Cut(s, ":")
	if !found {
		return domain.Scope{DisplayName: s}
	}
	return domain.Scope{Kind: domain.ScopeKind(kind), DisplayName: name}
}

func MapRunStoreToApi(r store.Run) api.Run {
	return api.Run{
		Id:         r.ID,
		StartedAt:  r.StartedAt,
		FinishedAt: r.FinishedAt,
		Scopes:     r.Scopes,
		Resources:  r.Entries,
		Findings:   r.Findings,
	}
}

func MapEntryStoreToApi(e store.EntryRecord) api.Finding {
	return api.Finding{
		Id: e.FindingID,
		Resource: api.Resource{
			Id:    e.ResourceID,
			Name:  e.ResourceName,
			Kind:  e.ResourceKind,
			Scope: e.Scope,
			Group: e.Group,
		},
		Category:       e.Category,
		Severity:       e.Severity,
		Reason:         e.Reason,
		Recommendation: e.Recommendation,
		ActionOutcome:  e.ActionOutcome,
		ActionError:    e.ActionError,
	}
}

// MapEntryStoreToDomain rebuilds a report entry from its persisted row so a
// stored run can be rendered again.
func MapEntryStoreToDomain(e store.EntryRecord) domain.Entry {
	res := domain.Resource{
		ID:    e.ResourceID,
		Name:  e.ResourceName,
		Kind:  domain.ResourceKind(e.ResourceKind),
		Group: e.Group,
		Scope: parseScope(e.Scope),
	}
	entry := domain.Entry{Resource: res}

	if e.Category != "" {
		// Rows written before the finding id column existed recompute the
		// id from the same derivation the classifier uses.
		id := e.FindingID
		if id == "" {
			id = domain.FindingID(domain.FindingCategory(e.Category), e.ResourceID)
		}
		entry.Finding = &domain.Finding{
			ID:             id,
			Category:       domain.FindingCategory(e.Category),
			Severity:       domain.ParseSeverity(e.Severity),
			Resource:       res,
			Reason:         e.Reason,
			Recommendation: e.Recommendation,
		}
	}
	if e.ActionOutcome != "" {
		entry.Action = &domain.ActionResult{
			Outcome: domain.ActionOutcome(e.ActionOutcome),
			Error:   e.ActionError,
		}
	}
	return entry
}

func MapRunStoreToDomainReport(r store.Run, entries []store.EntryRecord) *domain.RunReport {
	report := &domain.RunReport{
		RunID:      r.ID,
		StartedAt:  r.StartedAt,
		FinishedAt: r.FinishedAt,
	}
	for _, name := range r.Scopes {
		report.Scopes = append(report.Scopes, parseScope(name))
	}
	for _, e := range entries {
		report.Entries = append(report.Entries, MapEntryStoreToDomain(e))
	}
	return report
}
