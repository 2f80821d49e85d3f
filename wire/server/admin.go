package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/VictoriaMetrics/metrics"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/androidarduino/vrdb/lib/engine"
)

// serveAdmin runs the admin HTTP surface until ctx is cancelled. It
// exposes Prometheus metrics, an engine stats snapshot, the table list
// and a manual merge trigger.
func (s *Server) serveAdmin(ctx context.Context) {
	r := chi.NewRouter()

	r.Get("/metrics", func(w http.ResponseWriter, _ *http.Request) {
		metrics.WritePrometheus(w, true)
	})

	r.Get("/stats", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(s.engine.Stats()); err != nil {
			s.logger.Error("failed to encode stats", zap.Error(err))
		}
	})

	r.Get("/tables", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(s.engine.Stats().Tables); err != nil {
			s.logger.Error("failed to encode table list", zap.Error(err))
		}
	})

	r.Post("/merge", func(w http.ResponseWriter, _ *http.Request) {
		switch err := s.engine.Merge(); {
		case errors.Is(err, engine.ErrMergeInProgress):
			http.Error(w, err.Error(), http.StatusConflict)
		case err != nil:
			http.Error(w, err.Error(), http.StatusInternalServerError)
		default:
			w.WriteHeader(http.StatusNoContent)
		}
	})

	srv := &http.Server{
		Addr:    s.config.AdminEndpoint,
		Handler: r,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	s.logger.Info("admin surface listening", zap.String("endpoint", s.config.AdminEndpoint))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		s.logger.Error("admin surface failed", zap.Error(err))
	}
}
