package domain

import "time"

type ActionOutcome string

const (
	ActionApplied           ActionOutcome = "applied"
	ActionFailed            ActionOutcome = "failed"
	ActionSkipped           ActionOutcome = "skipped"
	ActionSkippedRecent     ActionOutcome = "skipped-recent-change"
	ActionBackupOnlyFailure ActionOutcome = "applied-backup-failed"
)

// ActionResult is the outcome of one remediation call against one finding.
type ActionResult struct {
	FindingID  string
	Outcome    ActionOutcome
	Error      string
	BackupPath string
	AppliedAt  time.Time
}
