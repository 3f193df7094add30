// Package report serves persisted audit runs over HTTP: run listings and
// findings as JSON, plus the rendered HTML report for any stored run.
package report

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/pyxhealth/cloudaudit/pkg/adapters"
	"github.com/pyxhealth/cloudaudit/pkg/export"
	"github.com/pyxhealth/cloudaudit/pkg/models/api"
	"github.com/pyxhealth/cloudaudit/pkg/models/store"
	"github.com/pyxhealth/cloudaudit/pkg/store/duckdb/history"
)

type Handler struct {
	store history.Store
}

func NewHandler(store history.Store) *Handler {
	return &Handler{store: store}
}

func (h *Handler) ListRuns(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := zerolog.Ctx(ctx)

	runs, err := h.store.ListRuns(ctx)
	if err != nil {
		logger.Error().Err(err).Msg("failed to list runs")
		http.Error(w, "failed to list runs", http.StatusInternalServerError)
		return
	}

	response := make([]api.Run, 0, len(runs))
	for _, run := range runs {
		response = append(response, adapters.MapRunStoreToApi(run))
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(response); err != nil {
		logger.Error().Err(err).Msg("failed to encode runs")
	}
}

func (h *Handler) ListFindings(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := zerolog.Ctx(ctx)
	runID := chi.URLParam(r, "run")

	entries, err := h.store.GetEntries(ctx, runID)
	if err != nil {
		logger.Error().Err(err).Str("run_id", runID).Msg("failed to load entries")
		http.Error(w, "failed to load run entries", http.StatusInternalServerError)
		return
	}

	severity := r.URL.Query().Get("severity")
	response := make([]api.Finding, 0, len(entries))
	for _, e := range entries {
		if e.Category == "" {
			continue
		}
		if severity != "" && e.Severity != severity {
			continue
		}
		response = append(response, adapters.MapEntryStoreToApi(e))
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(response); err != nil {
		logger.Error().Err(err).Str("run_id", runID).Msg("failed to encode findings")
	}
}

func (h *Handler) GetReport(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := zerolog.Ctx(ctx)
	runID := chi.URLParam(r, "run")

	run, err := h.findRun(r, runID)
	if err != nil {
		if errors.Is(err, errRunNotFound) {
			http.Error(w, "run not found", http.StatusNotFound)
			return
		}
		logger.Error().Err(err).Str("run_id", runID).Msg("failed to load run")
		http.Error(w, "failed to load run", http.StatusInternalServerError)
		return
	}

	entries, err := h.store.GetEntries(ctx, runID)
	if err != nil {
		logger.Error().Err(err).Str("run_id", runID).Msg("failed to load entries")
		http.Error(w, "failed to load run entries", http.StatusInternalServerError)
		return
	}

	report := adapters.MapRunStoreToDomainReport(run, entries)
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := export.WriteHTML(w, report); err != nil {
		logger.Error().Err(err).Str("run_id", runID).Msg("failed to render report")
	}
}

var errRunNotFound = errors.New("run not found")

func (h *Handler) findRun(r *http.Request, runID string) (store.Run, error) {
	runs, err := h.store.ListRuns(r.Context())
	if err != nil {
		return store.Run{}, err
	}
	for _, run := range runs {
		if run.ID == runID {
			return run, nil
		}
	}
	return store.Run{}, errRunNotFound
}
