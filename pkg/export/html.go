package export

import (
	"embed"
	"fmt"
	"html/template"
	"io"
	"sort"

	"github.com/pyxhealth/cloudaudit/pkg/models/domain"
)

//go:embed templates/*
var templateFS embed.FS

type htmlData struct {
	Report     *domain.RunReport
	BySeverity map[string]int
	ByCategory map[domain.FindingCategory]int
	Kinds      []kindSection
	AllClear   bool
}

type kindSection struct {
	Kind    domain.ResourceKind
	Entries []domain.Entry
}

// WriteHTML renders the self-contained report document: summary counters,
// one table per resource kind, a failures panel, and an explicit all-clear
// state when nothing was flagged.
func WriteHTML(w io.Writer, report *domain.RunReport) error {
	tmpl, err := template.New("report").Funcs(template.FuncMap{
		"severityClass": severityClass,
	}).ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return fmt.Errorf("failed to parse report templates: %w", err)
	}

	data := htmlData{
		Report:     report,
		BySeverity: report.CountBySeverity(),
		ByCategory: report.CountByCategory(),
		Kinds:      groupByKind(report.Entries),
		AllClear:   report.AllClear(),
	}
	if err := tmpl.ExecuteTemplate(w, "report.html", data); err != nil {
		return fmt.Errorf("failed to render report: %w", err)
	}
	return nil
}

func groupByKind(entries []domain.Entry) []kindSection {
	byKind := map[domain.ResourceKind][]domain.Entry{}
	for _, e := range entries {
		byKind[e.Resource.Kind] = append(byKind[e.Resource.Kind], e)
	}

	kinds := make([]domain.ResourceKind, 0, len(byKind))
	for k := range byKind {
		kinds = append(kinds, k)
	}
	sort.Slice(kinds, func(i, j int) bool { return kinds[i] < kinds[j] })

	sections := make([]kindSection, 0, len(kinds))
	for _, k := range kinds {
		sections = append(sections, kindSection{Kind: k, Entries: byKind[k]})
	}
	return sections
}

func severityClass(f *domain.Finding) string {
	if f == nil {
		return "clean"
	}
	return f.Severity.String()
}
