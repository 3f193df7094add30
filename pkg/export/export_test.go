package export

import (
	"bytes"
	"encoding/csv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pyxhealth/cloudaudit/pkg/models/domain"
)

func sampleReport() *domain.RunReport {
	scope := domain.Scope{ID: "sub-1", DisplayName: "pyx-prod", Kind: domain.ScopeKindSubscription}
	flagged := domain.Resource{
		ID:    "rule-1",
		Name:  "nsg/allow-ssh",
		Kind:  domain.ResourceKindNSGRule,
		Scope: scope,
		Group: "rg-net",
	}
	clean := domain.Resource{
		ID:    "db-1",
		Name:  "srv/appdb",
		Kind:  domain.ResourceKindSQLDatabase,
		Scope: scope,
		Group: "rg-data",
	}
	return &domain.RunReport{
		RunID:      "run-42",
		StartedAt:  time.Date(2025, 8, 1, 9, 0, 0, 0, time.UTC),
		FinishedAt: time.Date(2025, 8, 1, 9, 4, 0, 0, time.UTC),
		Scopes:     []domain.Scope{scope},
		Entries: []domain.Entry{
			{
				Resource: flagged,
				Finding: &domain.Finding{
					ID:             "f1",
					Category:       domain.CategoryDangerousPort,
					Severity:       domain.SeverityCritical,
					Resource:       flagged,
					Reason:         "port 22 exposed to the internet",
					Recommendation: "Restrict the source.",
				},
			},
			{Resource: clean},
		},
		Failures: []domain.KindResult{
			{
				Scope:  scope,
				Kind:   domain.ResourceKindStorageAcct,
				Status: domain.WalkError,
				Err:    "authorization failed",
			},
		},
	}
}

func TestWriteCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, sampleReport()))

	rows, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)

	// header + two entries + one failure row
	require.Len(t, rows, 4)
	assert.Equal(t, csvHeader, rows[0])

	t.Run("every walked resource has exactly one row", func(t *testing.T) {
		names := map[string]int{}
		for _, row := range rows[1:3] {
			names[row[4]]++
		}
		assert.Equal(t, 1, names["nsg/allow-ssh"])
		assert.Equal(t, 1, names["srv/appdb"])
	})

	t.Run("clean resources keep empty finding columns", func(t *testing.T) {
		for _, row := range rows[1:3] {
			if row[4] == "srv/appdb" {
				assert.Empty(t, row[6])
				assert.Empty(t, row[7])
			}
		}
	})

	t.Run("walk failures are explicit rows", func(t *testing.T) {
		failure := rows[3]
		assert.Equal(t, "enumeration-error", failure[6])
		assert.Equal(t, "authorization failed", failure[8])
	})
}

func TestWriteHTML(t *testing.T) {
	t.Run("renders findings and failures", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, WriteHTML(&buf, sampleReport()))
		html := buf.String()

		assert.Contains(t, html, "run-42")
		assert.Contains(t, html, "nsg/allow-ssh")
		assert.Contains(t, html, "port 22 exposed to the internet")
		assert.Contains(t, html, "srv/appdb")
		assert.Contains(t, html, "authorization failed")
		assert.NotContains(t, html, "All clear")
	})

	t.Run("empty run renders the all clear panel", func(t *testing.T) {
		var buf bytes.Buffer
		report := &domain.RunReport{
			RunID:      "run-empty",
			StartedAt:  time.Now().UTC(),
			FinishedAt: time.Now().UTC(),
		}
		require.NoError(t, WriteHTML(&buf, report))
		assert.Contains(t, buf.String(), "All clear")
	})

	t.Run("reason text is escaped", func(t *testing.T) {
		report := sampleReport()
		report.Entries[0].Finding.Reason = `<script>alert("x")</script>`
		var buf bytes.Buffer
		require.NoError(t, WriteHTML(&buf, report))
		assert.NotContains(t, buf.String(), `<script>alert`)
	})
}

func TestTerminalReporter(t *testing.T) {
	var buf bytes.Buffer
	reporter := NewTerminalReporter(&buf)
	require.NoError(t, reporter.Handle(sampleReport()))

	out := buf.String()
	assert.Contains(t, out, "run-42")
	assert.Contains(t, out, "critical: 1")
	assert.Contains(t, out, "could not enumerate")
}

func TestWriteFiles(t *testing.T) {
	dir := t.TempDir()
	at := time.Date(2025, 8, 1, 9, 4, 0, 0, time.UTC)

	csvPath, htmlPath, err := WriteFiles(dir, sampleReport(), at)
	require.NoError(t, err)

	assert.True(t, strings.HasSuffix(csvPath, "audit_20250801_090400.csv"))
	assert.True(t, strings.HasSuffix(htmlPath, "audit_20250801_090400.html"))
}
