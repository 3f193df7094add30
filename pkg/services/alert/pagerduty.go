// Package alert pushes high-impact findings to PagerDuty so on-call
// engineers hear about exposed ports and public storage without waiting for
// someone to open the report.
package alert

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/pyxhealth/cloudaudit/pkg/models/domain"
)

const eventsURL = "https://events.pagerduty.com/v2/enqueue"

// Event is a PagerDuty Events API v2 trigger.
type Event struct {
	RoutingKey  string       `json:"routing_key"`
	EventAction string       `json:"event_action"`
	Payload     EventPayload `json:"payload"`
}

type EventPayload struct {
	Summary       string         `json:"summary"`
	Source        string         `json:"source"`
	Severity      string         `json:"severity"`
	Timestamp     string         `json:"timestamp"`
	CustomDetails map[string]any `json:"custom_details,omitempty"`
}

// Notifier delivers finding alerts to the PagerDuty Events endpoint.
type Notifier struct {
	routingKey string
	endpoint   string
	client     *http.Client
	// MinSeverity gates which findings page. Below it nothing is sent.
	MinSeverity domain.Severity
	// TargetHosts, when set, restricts paging to resources whose name
	// contains one of the tokens. Empty means every resource qualifies.
	TargetHosts []string
}

func NewNotifier(routingKey string) *Notifier {
	return &Notifier{
		routingKey:  routingKey,
		endpoint:    eventsURL,
		client:      &http.Client{Timeout: 10 * time.Second},
		MinSeverity: domain.SeverityHigh,
	}
}

// NotifierFromEnv builds a Notifier from PAGERDUTY_ROUTING_KEY, or returns
// nil when the variable is unset. A nil Notifier is a valid no-op receiver.
// PAGERDUTY_TARGET_HOSTS narrows paging to a comma-separated host list.
func NotifierFromEnv() *Notifier {
	key := os.Getenv("PAGERDUTY_ROUTING_KEY")
	if key == "" {
		return nil
	}
	n := NewNotifier(key)
	if hosts := os.Getenv("PAGERDUTY_TARGET_HOSTS"); hosts != "" {
		for _, h := range strings.Split(hosts, ",") {
			if h = strings.TrimSpace(h); h != "" {
				n.TargetHosts = append(n.TargetHosts, h)
			}
		}
	}
	return n
}

// NotifyFindings triggers one event per finding at or above MinSeverity.
// Delivery failures are logged and counted, never fatal: an unreachable
// pager must not abort a run that already holds its results.
func (n *Notifier) NotifyFindings(ctx context.Context, report *domain.RunReport) int {
	if n == nil {
		return 0
	}
	logger := zerolog.Ctx(ctx)

	sent := 0
	for _, e := range report.Entries {
		if e.Finding == nil || e.Finding.Severity < n.MinSeverity {
			continue
		}
		if !n.targeted(e.Resource.Name) {
			continue
		}
		if err := n.Trigger(ctx, eventForFinding(n.routingKey, report.RunID, e.Finding)); err != nil {
			logger.Warn().Err(err).
				Str("resource", e.Resource.Name).
				Str("category", string(e.Finding.Category)).
				Msg("failed to deliver pagerduty event")
			continue
		}
		sent++
	}
	return sent
}

// Trigger posts a single event and treats anything other than 202 Accepted
// as a delivery failure.
func (n *Notifier) Trigger(ctx context.Context, event Event) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to encode pagerduty event: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build pagerduty request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to reach pagerduty: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusAccepted {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("pagerduty rejected event: %s: %s", resp.Status, strings.TrimSpace(string(detail)))
	}
	return nil
}

func (n *Notifier) targeted(name string) bool {
	if len(n.TargetHosts) == 0 {
		return true
	}
	upper := strings.ToUpper(name)
	for _, host := range n.TargetHosts {
		if strings.Contains(upper, strings.ToUpper(host)) {
			return true
		}
	}
	return false
}

func eventForFinding(routingKey, runID string, f *domain.Finding) Event {
	return Event{
		RoutingKey:  routingKey,
		EventAction: "trigger",
		Payload: EventPayload{
			Summary:   fmt.Sprintf("%s: %s", strings.ToUpper(f.Resource.Name), f.Reason),
			Source:    f.Resource.Scope.String(),
			Severity:  pagerdutySeverity(f.Severity),
			Timestamp: time.Now().UTC().Format(time.RFC3339),
			CustomDetails: map[string]any{
				"run_id":         runID,
				"finding_id":     f.ID,
				"category":       string(f.Category),
				"resource_id":    f.Resource.ID,
				"resource_kind":  string(f.Resource.Kind),
				"recommendation": f.Recommendation,
			},
		},
	}
}

// pagerdutySeverity maps internal severities onto the fixed set the Events
// API accepts.
func pagerdutySeverity(s domain.Severity) string {
	switch s {
	case domain.SeverityCritical, domain.SeverityHigh:
		return "error"
	case domain.SeverityMedium, domain.SeverityLow:
		return "warning"
	default:
		return "info"
	}
}
