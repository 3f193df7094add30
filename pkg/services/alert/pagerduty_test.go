package alert

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pyxhealth/cloudaudit/pkg/models/domain"
)

func testNotifier(t *testing.T, handler http.HandlerFunc) *Notifier {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	n := NewNotifier("rk-test")
	n.endpoint = server.URL
	return n
}

func reportWith(severities ...domain.Severity) *domain.RunReport {
	report := &domain.RunReport{RunID: "run-1"}
	for i, sev := range severities {
		res := domain.Resource{
			ID:   "res-" + string(rune('a'+i)),
			Name: "movitauto",
			Kind: domain.ResourceKindNSGRule,
		}
		report.Entries = append(report.Entries, domain.Entry{
			Resource: res,
			Finding: &domain.Finding{
				ID:       "f-" + string(rune('a'+i)),
				Category: domain.CategoryDangerousPort,
				Severity: sev,
				Resource: res,
				Reason:   "port 22 exposed",
			},
		})
	}
	return report
}

func TestNotifyFindings(t *testing.T) {
	t.Run("triggers events for findings at or above the threshold", func(t *testing.T) {
		var received []Event
		n := testNotifier(t, func(w http.ResponseWriter, r *http.Request) {
			var ev Event
			require.NoError(t, json.NewDecoder(r.Body).Decode(&ev))
			received = append(received, ev)
			w.WriteHeader(http.StatusAccepted)
		})

		sent := n.NotifyFindings(context.Background(),
			reportWith(domain.SeverityCritical, domain.SeverityHigh, domain.SeverityLow))

		assert.Equal(t, 2, sent)
		require.Len(t, received, 2)
		assert.Equal(t, "rk-test", received[0].RoutingKey)
		assert.Equal(t, "trigger", received[0].EventAction)
		assert.Equal(t, "MOVITAUTO: port 22 exposed", received[0].Payload.Summary)
		assert.Equal(t, "error", received[0].Payload.Severity)
		assert.Equal(t, "dangerous-port", received[0].Payload.CustomDetails["category"])
	})

	t.Run("rejection is counted as not sent", func(t *testing.T) {
		n := testNotifier(t, func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "invalid routing key", http.StatusBadRequest)
		})

		sent := n.NotifyFindings(context.Background(), reportWith(domain.SeverityCritical))
		assert.Equal(t, 0, sent)
	})

	t.Run("target host filter skips non-matching resources", func(t *testing.T) {
		var received int
		n := testNotifier(t, func(w http.ResponseWriter, r *http.Request) {
			received++
			w.WriteHeader(http.StatusAccepted)
		})
		n.TargetHosts = []string{"PYXSFTP"}

		sent := n.NotifyFindings(context.Background(), reportWith(domain.SeverityCritical))
		assert.Equal(t, 0, sent)
		assert.Equal(t, 0, received)

		n.TargetHosts = []string{"MOVITAUTO"}
		sent = n.NotifyFindings(context.Background(), reportWith(domain.SeverityCritical))
		assert.Equal(t, 1, sent)
	})

	t.Run("nil notifier is a no-op", func(t *testing.T) {
		var n *Notifier
		assert.Equal(t, 0, n.NotifyFindings(context.Background(), reportWith(domain.SeverityCritical)))
	})
}

func TestPagerdutySeverity(t *testing.T) {
	assert.Equal(t, "error", pagerdutySeverity(domain.SeverityCritical))
	assert.Equal(t, "error", pagerdutySeverity(domain.SeverityHigh))
	assert.Equal(t, "warning", pagerdutySeverity(domain.SeverityMedium))
	assert.Equal(t, "info", pagerdutySeverity(domain.SeverityInfo))
}
