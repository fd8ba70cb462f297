package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/voyant-travel/itinerary-cli/internal/model"
	"github.com/voyant-travel/itinerary-cli/internal/pipeline"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the itinerary resolution HTTP API",
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

// planner is the part of the orchestrator the HTTP handlers need.
type planner interface {
	Run(ctx context.Context, doc pipeline.Document) (*model.PlanResult, error)
}

func runServe(cmd *cobra.Command, args []string) error {
	if err := cfg.Validate("serve"); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	environ, err := buildEnv(ctx, cfg)
	if err != nil {
		return eris.Wrap(err, "serve: build environment")
	}
	defer environ.Close()

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           newRouter(environ.Orchestrator, environ.RouteTTL.Len),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		zap.L().Info("serve: listening", zap.Int("port", cfg.Server.Port))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return eris.Wrap(err, "serve: listen")
	case <-ctx.Done():
	}

	zap.L().Info("serve: shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return eris.Wrap(err, "serve: shutdown")
	}
	return nil
}

func newRouter(p planner, cacheLen func() int) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type"},
	}))

	r.Get("/health", handleHealth(cacheLen))
	r.Post("/plan", handlePlan(p))

	return r
}

func handleHealth(cacheLen func() int) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{
			"status":              "ok",
			"route_cache_entries": cacheLen(),
		})
	}
}

// planRequest is the /plan request body. Image bytes come in base64; the
// standard decoder handles that for []byte fields.
type planRequest struct {
	Text           string `json:"text,omitempty"`
	Image          []byte `json:"image,omitempty"`
	ImageMediaType string `json:"image_media_type,omitempty"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func handlePlan(p planner) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req planRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid JSON body"})
			return
		}

		doc := pipeline.Document{
			Text:           req.Text,
			Image:          req.Image,
			ImageMediaType: req.ImageMediaType,
		}

		result, err := p.Run(r.Context(), doc)
		if err != nil {
			switch {
			case errors.Is(err, pipeline.ErrNoContent):
				writeJSON(w, http.StatusBadRequest, errorResponse{Error: "provide exactly one of text or image"})
			case errors.Is(err, pipeline.ErrExtractionFailed):
				writeJSON(w, http.StatusUnprocessableEntity, errorResponse{Error: "no itinerary content found in document"})
			default:
				zap.L().Error("serve: plan failed", zap.Error(err))
				writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal error"})
			}
			return
		}

		writeJSON(w, http.StatusOK, result)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zap.L().Error("serve: write response", zap.Error(err))
	}
}
