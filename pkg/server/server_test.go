package server

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/pyxhealth/cloudaudit/pkg/models/api"
	"github.com/pyxhealth/cloudaudit/pkg/models/domain"
	"github.com/pyxhealth/cloudaudit/pkg/models/store"
)

type mockStore struct {
	mock.Mock
}

func (m *mockStore) SaveRun(ctx context.Context, report *domain.RunReport) error {
	args := m.Called(ctx, report)
	return args.Error(0)
}

func (m *mockStore) ListRuns(ctx context.Context) ([]store.Run, error) {
	args := m.Called(ctx)
	return args.Get(0).([]store.Run), args.Error(1)
}

func (m *mockStore) GetEntries(ctx context.Context, runID string) ([]store.EntryRecord, error) {
	args := m.Called(ctx, runID)
	return args.Get(0).([]store.EntryRecord), args.Error(1)
}

func (m *mockStore) RecordChange(ctx context.Context, change store.ChangeRecord) error {
	args := m.Called(ctx, change)
	return args.Error(0)
}

func (m *mockStore) ChangedSince(ctx context.Context, resourceID string, since time.Time) (bool, error) {
	args := m.Called(ctx, resourceID, since)
	return args.Bool(0), args.Error(1)
}

func TestWebAPI_Endpoints(t *testing.T) {
	logger := zerolog.New(zerolog.NewTestWriter(t))

	startedAt, _ := time.Parse("2006-01-02", "2025-08-01")
	finishedAt := startedAt.Add(4 * time.Minute)

	flagged := store.EntryRecord{
		RunID:          "run-1",
		ResourceID:     "rule-1",
		ResourceName:   "nsg/allow-ssh",
		ResourceKind:   "nsg_rule",
		Scope:          "subscription:pyx-prod",
		Group:          "rg-net",
		FindingID:      "ab12cd34ef56ab78",
		Category:       "dangerous-port",
		Severity:       "critical",
		Reason:         "port 22 exposed to the internet",
		Recommendation: "Restrict the source.",
	}
	clean := store.EntryRecord{
		RunID:        "run-1",
		ResourceID:   "db-1",
		ResourceName: "srv/appdb",
		ResourceKind: "sql_database",
		Scope:        "subscription:pyx-prod",
	}

	mockHistory := new(mockStore)
	config := Config{
		Addr:            ":8080",
		ShutdownTimeout: 10 * time.Second,
		Dependencies: Dependencies{
			History: mockHistory,
			Logger:  logger,
		},
	}
	router := ConfigureRouter(config)
	testServer := httptest.NewServer(router)
	defer testServer.Close()

	tests := []struct {
		name           string
		path           string
		setupMocks     func()
		expectedStatus int
		check          func(t *testing.T, body []byte)
	}{
		{
			name: "ListRuns",
			path: "/api/v1/runs",
			setupMocks: func() {
				mockHistory.On("ListRuns", mock.Anything).
					Return([]store.Run{{
						ID:         "run-1",
						StartedAt:  startedAt,
						FinishedAt: finishedAt,
						Scopes:     []string{"subscription:pyx-prod"},
						Entries:    2,
						Findings:   1,
					}}, nil)
			},
			expectedStatus: http.StatusOK,
			check: func(t *testing.T, body []byte) {
				var runs []api.Run
				require.NoError(t, json.Unmarshal(body, &runs))
				require.Len(t, runs, 1)
				assert.Equal(t, "run-1", runs[0].Id)
				assert.Equal(t, 2, runs[0].Resources)
				assert.Equal(t, 1, runs[0].Findings)
			},
		},
		{
			name: "ListFindings_SkipsCleanResources",
			path: "/api/v1/runs/run-1/findings",
			setupMocks: func() {
				mockHistory.On("GetEntries", mock.Anything, "run-1").
					Return([]store.EntryRecord{flagged, clean}, nil)
			},
			expectedStatus: http.StatusOK,
			check: func(t *testing.T, body []byte) {
				var findings []api.Finding
				require.NoError(t, json.Unmarshal(body, &findings))
				require.Len(t, findings, 1)
				assert.Equal(t, "dangerous-port", findings[0].Category)
				assert.Equal(t, "nsg/allow-ssh", findings[0].Resource.Name)
			},
		},
		{
			name: "ListFindings_SeverityFilter",
			path: "/api/v1/runs/run-1/findings?severity=low",
			setupMocks: func() {
				mockHistory.On("GetEntries", mock.Anything, "run-1").
					Return([]store.EntryRecord{flagged, clean}, nil)
			},
			expectedStatus: http.StatusOK,
			check: func(t *testing.T, body []byte) {
				var findings []api.Finding
				require.NoError(t, json.Unmarshal(body, &findings))
				assert.Empty(t, findings)
			},
		},
		{
			name: "GetReport",
			path: "/api/v1/runs/run-1/report",
			setupMocks: func() {
				mockHistory.On("ListRuns", mock.Anything).
					Return([]store.Run{{ID: "run-1", StartedAt: startedAt, FinishedAt: finishedAt}}, nil)
				mockHistory.On("GetEntries", mock.Anything, "run-1").
					Return([]store.EntryRecord{flagged, clean}, nil)
			},
			expectedStatus: http.StatusOK,
			check: func(t *testing.T, body []byte) {
				html := string(body)
				assert.Contains(t, html, "nsg/allow-ssh")
				assert.Contains(t, html, "port 22 exposed to the internet")
			},
		},
		{
			name: "GetReport_UnknownRun",
			path: "/api/v1/runs/nope/report",
			setupMocks: func() {
				mockHistory.On("ListRuns", mock.Anything).
					Return([]store.Run{{ID: "run-1"}}, nil)
			},
			expectedStatus: http.StatusNotFound,
			check: func(t *testing.T, body []byte) {
				assert.True(t, strings.Contains(string(body), "not found"))
			},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			mockHistory.ExpectedCalls = nil
			tc.setupMocks()

			resp, err := http.Get(testServer.URL + tc.path)
			require.NoError(t, err, "Failed to send request")
			defer resp.Body.Close()

			assert.Equal(t, tc.expectedStatus, resp.StatusCode, "Status code mismatch")

			body, err := io.ReadAll(resp.Body)
			require.NoError(t, err, "Failed to read response body")
			tc.check(t, body)
		})
	}
}
