// Package export renders a completed run as CSV, HTML and terminal output.
// Every walked resource appears exactly once in each artifact, findings or
// not, and enumeration failures render as explicit rows rather than silent
// zeros.
package export

import (
	"encoding/csv"
	"fmt"
	"io"

	"github.com/pyxhealth/cloudaudit/pkg/models/domain"
)

var csvHeader = []string{
	"run_id", "scope", "resource_kind", "resource_group", "resource_name",
	"resource_id", "category", "severity", "reason", "recommendation",
	"action_outcome", "action_error",
}

// WriteCSV emits one row per report entry plus one row per walk failure.
func WriteCSV(w io.Writer, report *domain.RunReport) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return fmt.Errorf("failed to write csv header: %w", err)
	}

	for _, e := range report.Entries {
		row := []string{
			report.RunID,
			e.Resource.Scope.String(),
			string(e.Resource.Kind),
			e.Resource.Group,
			e.Resource.Name,
			e.Resource.ID,
			"", "", "", "", "", "",
		}
		if e.Finding != nil {
			row[6] = string(e.Finding.Category)
			row[7] = e.Finding.Severity.String()
			row[8] = e.Finding.Reason
			row[9] = e.Finding.Recommendation
		}
		if e.Action != nil {
			row[10] = string(e.Action.Outcome)
			row[11] = e.Action.Error
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("failed to write csv row: %w", err)
		}
	}

	for _, f := range report.Failures {
		row := []string{
			report.RunID,
			f.Scope.String(),
			string(f.Kind),
			"", "", "",
			"enumeration-error", "", f.Err,
			"Re-run with sufficient permissions or exclude the scope.",
			"", "",
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("failed to write csv failure row: %w", err)
		}
	}

	cw.Flush()
	return cw.Error()
}
