// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/pdiddy/account-research/pkg/types"
)

// handleCreateRun accepts a multipart form (target, optional document
// file, mode, audit), runs the report, and streams progress events as
// text/event-stream. Input problems are reported as JSON errors before
// the stream starts.
func (s *Server) handleCreateRun(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes)
	if err := r.ParseMultipartForm(s.cfg.MaxUploadBytes); err != nil && !errors.Is(err, http.ErrNotMultipart) {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: fmt.Sprintf("parsing form: %v", err)})
		return
	}
	if r.MultipartForm != nil {
		defer r.MultipartForm.RemoveAll()
	}

	req, err := s.parseRunRequest(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}

	groundTruth, status, err := s.groundTruth(r)
	if err != nil {
		writeJSON(w, status, errorResponse{Error: err.Error()})
		return
	}
	req.GroundTruth = groundTruth

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "streaming unsupported"})
		return
	}
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	stream := &eventStream{w: w, flusher: flusher}
	logger := s.logger.With(zap.String("target", req.Target))

	out, err := s.runner.Run(r.Context(), req, stream.send)
	if err != nil {
		logger.Warn("run failed", zap.Error(err))
		if !stream.terminated() {
			stream.write(types.ProgressEvent{
				Stage:   types.StageRunFailed,
				Payload: types.RunFailedPayload{Error: err.Error()},
			})
		}
		return
	}

	finished := stream.held()
	if s.archive != nil {
		if err := s.archive.Save(r.Context(), out); err != nil {
			logger.Error("archiving run", zap.String("run_id", out.RunID), zap.Error(err))
		} else if p, ok := finished.Payload.(types.RunFinishedPayload); ok {
			p.DocumentPath = "/v1/runs/" + out.RunID + "/document"
			finished.Payload = p
		}
	}
	if finished.Stage == "" {
		finished = types.ProgressEvent{
			Stage: types.StageRunFinished,
			Payload: types.RunFinishedPayload{
				RunID:         out.RunID,
				Sections:      len(out.Results),
				URLs:          len(out.URLs),
				Unsourced:     len(out.Unsourced),
				DocumentBytes: len(out.Document),
			},
		}
	}
	stream.write(finished)
}

func (s *Server) parseRunRequest(r *http.Request) (RunRequest, error) {
	req := RunRequest{Target: strings.TrimSpace(r.FormValue("target"))}
	if req.Target == "" {
		return req, errors.New("target is required")
	}

	switch mode := types.ScheduleMode(strings.TrimSpace(r.FormValue("mode"))); mode {
	case "", types.ModeSequential, types.ModeParallel:
		req.Mode = mode
	default:
		return req, fmt.Errorf("unknown mode %q", mode)
	}

	if raw := strings.TrimSpace(r.FormValue("audit")); raw != "" {
		audit, err := strconv.ParseBool(raw)
		if err != nil {
			return req, fmt.Errorf("invalid audit value %q", raw)
		}
		req.Audit = &audit
	}
	return req, nil
}

// groundTruth extracts text from the optional uploaded document. The
// returned status is the HTTP code to use when err is non-nil.
func (s *Server) groundTruth(r *http.Request) (string, int, error) {
	file, header, err := r.FormFile("document")
	if errors.Is(err, http.ErrMissingFile) || errors.Is(err, http.ErrNotMultipart) {
		return "", 0, nil
	}
	if err != nil {
		return "", http.StatusBadRequest, fmt.Errorf("reading document: %w", err)
	}
	defer file.Close()

	if s.extractor == nil {
		return "", http.StatusUnprocessableEntity, errors.New("document extraction is not available")
	}

	dir, err := os.MkdirTemp("", "account-research-upload-*")
	if err != nil {
		return "", http.StatusInternalServerError, fmt.Errorf("creating upload directory: %w", err)
	}
	defer os.RemoveAll(dir)

	path := filepath.Join(dir, "document"+strings.ToLower(filepath.Ext(filepath.Base(header.Filename))))
	dst, err := os.Create(path)
	if err != nil {
		return "", http.StatusInternalServerError, fmt.Errorf("saving upload: %w", err)
	}
	_, copyErr := io.Copy(dst, file)
	closeErr := dst.Close()
	if copyErr != nil || closeErr != nil {
		return "", http.StatusInternalServerError, fmt.Errorf("saving upload: %w", errors.Join(copyErr, closeErr))
	}

	text, err := s.extractor.ExtractText(r.Context(), path)
	if err != nil {
		return "", http.StatusUnprocessableEntity, fmt.Errorf("extracting %s: %w", header.Filename, err)
	}
	return text, 0, nil
}

// eventStream writes progress events in server-sent event framing. The
// run_finished event is held back until the run has been archived.
type eventStream struct {
	mu       sync.Mutex
	w        io.Writer
	flusher  http.Flusher
	finished types.ProgressEvent
	done     bool
}

func (e *eventStream) send(ev types.ProgressEvent) {
	if ev.Stage == types.StageRunFinished {
		e.mu.Lock()
		e.finished = ev
		e.mu.Unlock()
		return
	}
	e.write(ev)
}

func (e *eventStream) write(ev types.ProgressEvent) {
	data, err := json.Marshal(ev)
	if err != nil {
		return
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if ev.Stage == types.StageRunFinished || ev.Stage == types.StageRunFailed {
		e.done = true
	}
	fmt.Fprintf(e.w, "event: %s\ndata: %s\n\n", ev.Stage, data)
	e.flusher.Flush()
}

func (e *eventStream) held() types.ProgressEvent {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.finished
}

func (e *eventStream) terminated() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.done
}
