package server

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	reporthandler "github.com/pyxhealth/cloudaudit/pkg/handlers/report"
	cloudauditmiddleware "github.com/pyxhealth/cloudaudit/pkg/server/middleware"
	"github.com/pyxhealth/cloudaudit/pkg/store/duckdb/history"
)

type WebAPI struct {
	router *chi.Mux
	logger *zerolog.Logger
	server *http.Server

	shutdownTimeout time.Duration
}

type Dependencies struct {
	History history.Store
	Logger  zerolog.Logger
}

type Config struct {
	Addr            string
	ShutdownTimeout time.Duration
	Dependencies    Dependencies
}

func ConfigureRouter(config Config) *chi.Mux {
	handler := reporthandler.NewHandler(config.Dependencies.History)

	router := chi.NewRouter()
	router.Use(cloudauditmiddleware.Logger(&config.Dependencies.Logger))
	router.Use(middleware.Recoverer)

	router.Route("/api/v1", func(r chi.Router) {
		r.Get("/runs", handler.ListRuns)
		r.Get("/runs/{run}/findings", handler.ListFindings)
		r.Get("/runs/{run}/report", handler.GetReport)
	})

	return router
}

func NewWebAPI(config Config) *WebAPI {
	router := ConfigureRouter(config)
	timeout := config.ShutdownTimeout
	if timeout == 0 {
		timeout = 10 * time.Second
	}

	return &WebAPI{
		router: router,
		logger: &config.Dependencies.Logger,
		server: &http.Server{
			Addr:    config.Addr,
			Handler: router,
		},
		shutdownTimeout: timeout,
	}
}

func (w *WebAPI) Start() error {
	serverErrors := make(chan error, 1)
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	go func() {
		w.logger.Info().Str("addr", w.server.Addr).Msg("starting server")
		serverErrors <- w.server.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		return err
	case <-shutdown:
		w.logger.Info().Msg("shutdown initiated")

		// Give outstanding requests a deadline for completion.
		ctx, cancel := context.WithTimeout(context.Background(), w.shutdownTimeout)
		defer cancel()

		err := w.server.Shutdown(ctx)
		if err != nil {
			w.logger.Error().Err(err).Msg("graceful shutdown failed")
			err = w.server.Close()
		}

		if err != nil {
			return err
		}
	}

	return nil
}
