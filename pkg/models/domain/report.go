package domain

import "time"

// Entry is one row of the final report: a walked resource, its finding (if
// any), and the remediation outcome (if one was attempted). Every walked
// resource becomes exactly one entry.
type Entry struct {
	Resource Resource
	Finding  *Finding
	Action   *ActionResult
}

// RunReport is the full result of one audit run.
type RunReport struct {
	RunID      string
	StartedAt  time.Time
	FinishedAt time.Time
	Scopes     []Scope
	Entries    []Entry
	// Failures carries per-(scope, kind) enumeration errors so the report can
	// render them distinctly from empty results.
	Failures []KindResult
}

// CountBySeverity aggregates finding counts for the report summary.
func (r *RunReport) CountBySeverity() map[string]int {
	out := map[string]int{}
	for _, e := range r.Entries {
		if e.Finding != nil {
			out[e.Finding.Severity.String()]++
		}
	}
	return out
}

// CountByCategory aggregates finding counts per category.
func (r *RunReport) CountByCategory() map[FindingCategory]int {
	out := map[FindingCategory]int{}
	for _, e := range r.Entries {
		if e.Finding != nil {
			out[e.Finding.Category]++
		}
	}
	return out
}

// AllClear reports whether the run produced no findings and no walk errors.
func (r *RunReport) AllClear() bool {
	for _, e := range r.Entries {
		if e.Finding != nil {
			return false
		}
	}
	return len(r.Failures) == 0
}
