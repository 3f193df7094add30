package store

import "time"

// Run is one persisted audit run.
type Run struct {
	ID         string
	StartedAt  time.Time
	FinishedAt time.Time
	Scopes     []string
	Entries    int
	Findings   int
}

// EntryRecord is one persisted report row.
type EntryRecord struct {
	RunID          string
	ResourceID     string
	ResourceName   string
	ResourceKind   string
	Scope          string
	Group          string
	FindingID      string
	Category       string
	Severity       string
	Reason         string
	Recommendation string
	ActionOutcome  string
	ActionError    string
}

// ChangeRecord marks one applied mutation against a resource. It backs the
// recent-change guard: a resource mutated inside the guard window is not
// touched again by a later run.
type ChangeRecord struct {
	ResourceID string
	Action     string
	AppliedAt  time.Time
}
