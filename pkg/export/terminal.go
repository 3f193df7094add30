package export

import (
	"fmt"
	"io"
	"os"
	"text/template"

	"github.com/pyxhealth/cloudaudit/pkg/models/domain"
)

// TerminalReporter prints a run summary to the console in a formatted text
// form.
type TerminalReporter struct {
	writer io.Writer
}

func NewTerminalReporter(writer io.Writer) *TerminalReporter {
	if writer == nil {
		writer = os.Stdout
	}
	return &TerminalReporter{writer: writer}
}

func (c *TerminalReporter) Handle(report *domain.RunReport) error {
	tmpl := `
Audit run {{.Report.RunID}}
Window: {{.Report.StartedAt.Format "2006-01-02 15:04:05"}} to {{.Report.FinishedAt.Format "15:04:05"}} UTC
Scopes: {{len .Report.Scopes}}  Resources: {{len .Report.Entries}}
{{if .AllClear}}
All clear: no findings, no enumeration failures.
{{else}}
Findings by severity:
{{range $sev, $count := .BySeverity}}  {{$sev}}: {{$count}}
{{end}}
{{range .Flagged}}- [{{.Finding.Severity}}] {{.Resource.Kind}} {{.Resource.Name}}
  {{.Finding.Reason}}
  -> {{.Finding.Recommendation}}
{{end}}{{end}}{{range .Report.Failures}}
! could not enumerate {{.Kind}} in {{.Scope}}: {{.Err}}
{{end}}
`
	t, err := template.New("summary").Parse(tmpl)
	if err != nil {
		return fmt.Errorf("failed to parse template: %w", err)
	}

	var flagged []domain.Entry
	for _, e := range report.Entries {
		if e.Finding != nil {
			flagged = append(flagged, e)
		}
	}

	return t.Execute(c.writer, struct {
		Report     *domain.RunReport
		BySeverity map[string]int
		Flagged    []domain.Entry
		AllClear   bool
	}{
		Report:     report,
		BySeverity: report.CountBySeverity(),
		Flagged:    flagged,
		AllClear:   report.AllClear(),
	})
}
