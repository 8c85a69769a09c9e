// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package server exposes report runs over HTTP. Starting a run streams
// progress as server-sent events; finished runs are listed and their
// documents downloaded from the archive.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"mime"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/pdiddy/account-research/internal/archive"
	"github.com/pdiddy/account-research/internal/docx"
	"github.com/pdiddy/account-research/internal/pipeline"
	"github.com/pdiddy/account-research/pkg/types"
)

const (
	defaultAddr           = "127.0.0.1:8080"
	defaultMaxUploadBytes = 32 << 20
	shutdownTimeout       = 10 * time.Second

	docxContentType = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
)

// RunRequest carries the per-request inputs of a report run. Zero values
// select the runner's configured defaults.
type RunRequest struct {
	Target      string
	GroundTruth string
	Mode        types.ScheduleMode
	Audit       *bool
}

// Runner executes one report run, reporting progress to sink.
type Runner interface {
	Run(ctx context.Context, req RunRequest, sink pipeline.Sink) (*pipeline.Outcome, error)
}

// Extractor turns an uploaded document into ground-truth text.
type Extractor interface {
	ExtractText(ctx context.Context, path string) (string, error)
}

// Archive stores finished runs and serves them back.
type Archive interface {
	Save(ctx context.Context, out *pipeline.Outcome) error
	List(ctx context.Context, limit int) ([]archive.Summary, error)
	Document(ctx context.Context, id string) ([]byte, string, error)
}

// Server is the HTTP surface. Create it with New.
type Server struct {
	runner    Runner
	extractor Extractor
	archive   Archive
	cfg       types.ServerConfig
	logger    *zap.Logger
	router    chi.Router
}

// New builds a server. A nil archive disables listing and downloads; a
// nil extractor rejects document uploads.
func New(runner Runner, extractor Extractor, store Archive, cfg types.ServerConfig, logger *zap.Logger) *Server {
	if cfg.Addr == "" {
		cfg.Addr = defaultAddr
	}
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = defaultMaxUploadBytes
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	s := &Server{
		runner:    runner,
		extractor: extractor,
		archive:   store,
		cfg:       cfg,
		logger:    logger,
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Get("/health", s.handleHealth)
	r.Route("/v1/runs", func(r chi.Router) {
		r.Post("/", s.handleCreateRun)
		r.Get("/", s.handleListRuns)
		r.Get("/{id}/document", s.handleDocument)
	})
	s.router = r
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// ListenAndServe serves on the configured address until ctx is cancelled,
// then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	httpServer := &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       time.Minute,
		BaseContext:       func(_ net.Listener) context.Context { return ctx },
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("server starting", zap.String("addr", s.cfg.Addr))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return fmt.Errorf("server stopped: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	s.logger.Info("shutdown signal received")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}
	return <-errCh
}

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleListRuns(w http.ResponseWriter, r *http.Request) {
	if s.archive == nil {
		writeJSON(w, http.StatusServiceUnavailable, errorResponse{Error: "archive disabled"})
		return
	}
	limit := clampInt(r.URL.Query().Get("limit"), 20, 500)
	runs, err := s.archive.List(r.Context(), limit)
	if err != nil {
		s.logger.Error("listing runs", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: err.Error()})
		return
	}
	if runs == nil {
		runs = []archive.Summary{}
	}
	writeJSON(w, http.StatusOK, runs)
}

func (s *Server) handleDocument(w http.ResponseWriter, r *http.Request) {
	if s.archive == nil {
		writeJSON(w, http.StatusServiceUnavailable, errorResponse{Error: "archive disabled"})
		return
	}
	id := chi.URLParam(r, "id")
	doc, target, err := s.archive.Document(r.Context(), id)
	switch {
	case errors.Is(err, archive.ErrNotFound):
		writeJSON(w, http.StatusNotFound, errorResponse{Error: err.Error()})
		return
	case errors.Is(err, archive.ErrAmbiguous):
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	case err != nil:
		s.logger.Error("reading document", zap.String("run_id", id), zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: err.Error()})
		return
	}

	w.Header().Set("Content-Type", docxContentType)
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{
		"filename": docx.FileName(target, ".docx"),
	}))
	w.Header().Set("Content-Length", strconv.Itoa(len(doc)))
	w.WriteHeader(http.StatusOK)
	w.Write(doc)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(payload)
}

func clampInt(raw string, fallback, max int) int {
	v, err := strconv.Atoi(raw)
	if err != nil || v <= 0 {
		return fallback
	}
	if v > max {
		return max
	}
	return v
}
