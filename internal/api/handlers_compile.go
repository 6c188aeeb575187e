package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"

	"github.com/dgallion1/texpad/internal/assemble"
	"github.com/dgallion1/texpad/internal/parser"
	"github.com/dgallion1/texpad/internal/pipeline"
	"github.com/dgallion1/texpad/internal/project"
	"github.com/dgallion1/texpad/internal/render"
	"github.com/go-chi/chi/v5"
)

// handleCompile queues a compile of the file's current content.
func (s *Server) handleCompile(w http.ResponseWriter, r *http.Request) {
	projectID := chi.URLParam(r, "projectID")
	f, err := s.projects.GetFile(projectID, chi.URLParam(r, "fileID"))
	if err != nil {
		s.fail(w, err)
		return
	}
	if err := parser.CheckCompilable(f.Name); err != nil {
		s.fail(w, err)
		return
	}

	job, err := s.orchestrator.Compile(projectID, f.ID, f.Name, f.Content, r.URL.Query().Get("format"))
	if err != nil {
		s.fail(w, err)
		return
	}

	if r.URL.Query().Get("wait") == "true" {
		if err := job.Wait(r.Context()); err != nil {
			jsonError(w, "compile wait: "+err.Error(), http.StatusServiceUnavailable)
			return
		}
		snap := job.Snapshot()
		code := http.StatusOK
		if snap.Status == pipeline.StatusFailed {
			code = http.StatusBadGateway
		}
		writeJSON(w, code, snap)
		return
	}

	writeJSON(w, http.StatusAccepted, map[string]any{
		"job_id":   job.ID,
		"file_id":  job.FileID,
		"format":   job.Format,
		"seq":      job.Seq,
		"status":   job.Snapshot().Status,
		"poll_url": fmt.Sprintf("/api/compile/%s/status", job.ID),
	})
}

func (s *Server) handleCompileStatus(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "jobID")
	job := s.orchestrator.GetJob(jobID)
	if job == nil {
		jsonError(w, "job not found", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, job.Snapshot())
}

// handleOutput serves the latest compiled buffer, inline for preview or as
// an attachment for download.
func (s *Server) handleOutput(w http.ResponseWriter, r *http.Request) {
	f, err := s.projects.GetFile(chi.URLParam(r, "projectID"), chi.URLParam(r, "fileID"))
	if err != nil {
		s.fail(w, err)
		return
	}
	res, err := s.orchestrator.Latest(f.ID, r.URL.Query().Get("format"))
	if err != nil {
		s.fail(w, err)
		return
	}

	disposition := "inline"
	if r.URL.Query().Get("download") == "true" {
		disposition = "attachment"
	}
	writeDocument(w, r, disposition, res.Filename, res.ContentType, res.ETag, res.Data)
}

// handleSummary parses the file's current content synchronously.
func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	f, err := s.projects.GetFile(chi.URLParam(r, "projectID"), chi.URLParam(r, "fileID"))
	if err != nil {
		s.fail(w, err)
		return
	}
	extractor, err := s.extractorFor(r)
	if err != nil {
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}
	writeJSON(w, http.StatusOK, extractor.Extract(f.Content))
}

// handleParse extracts a summary from a raw source body.
func (s *Server) handleParse(w http.ResponseWriter, r *http.Request) {
	src, ok := s.readSource(w, r)
	if !ok {
		return
	}
	extractor, err := s.extractorFor(r)
	if err != nil {
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}
	writeJSON(w, http.StatusOK, extractor.Extract(src))
}

// handleRender compiles a raw source body synchronously.
func (s *Server) handleRender(w http.ResponseWriter, r *http.Request) {
	src, ok := s.readSource(w, r)
	if !ok {
		return
	}
	renderer, err := s.orchestrator.Renderers().Get(r.URL.Query().Get("format"))
	if err != nil {
		s.fail(w, err)
		return
	}

	ctx := r.Context()
	if s.cfg.RenderTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.RenderTimeout)
		defer cancel()
	}
	data, err := assemble.New(renderer).Assemble(ctx, s.orchestrator.Extractor().Extract(src))
	if err != nil {
		s.fail(w, err)
		return
	}
	name := pipeline.OutputName(r.URL.Query().Get("name"), renderer.Ext())
	writeDocument(w, r, "inline", name, renderer.ContentType(), pipeline.ContentHashHex(data), data)
}

func (s *Server) extractorFor(r *http.Request) (*parser.Extractor, error) {
	mode := r.URL.Query().Get("mode")
	if mode == "" {
		return s.orchestrator.Extractor(), nil
	}
	m, err := parser.ParseSectionMode(mode)
	if err != nil {
		return nil, err
	}
	return parser.New(parser.Options{SectionMode: m}), nil
}

// readSource reads a raw LaTeX body, rejecting oversized input.
func (s *Server) readSource(w http.ResponseWriter, r *http.Request) (string, bool) {
	data, err := io.ReadAll(io.LimitReader(r.Body, s.cfg.MaxSourceBytes+1))
	if err != nil {
		jsonError(w, "failed to read body", http.StatusBadRequest)
		return "", false
	}
	if int64(len(data)) > s.cfg.MaxSourceBytes {
		jsonError(w, fmt.Sprintf("source exceeds max size (%d bytes)", s.cfg.MaxSourceBytes), http.StatusRequestEntityTooLarge)
		return "", false
	}
	return string(data), true
}

func writeDocument(w http.ResponseWriter, r *http.Request, disposition, filename, contentType, etag string, data []byte) {
	tag := `"` + etag + `"`
	w.Header().Set("ETag", tag)
	w.Header().Set("Cache-Control", "no-cache")
	if match := r.Header.Get("If-None-Match"); match != "" && strings.Contains(match, tag) {
		w.WriteHeader(http.StatusNotModified)
		return
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", mime.FormatMediaType(disposition, map[string]string{"filename": filename}))
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

// fail maps domain errors to HTTP status codes.
func (s *Server) fail(w http.ResponseWriter, err error) {
	code := http.StatusInternalServerError
	switch {
	case errors.Is(err, project.ErrNotFound):
		code = http.StatusNotFound
	case errors.Is(err, project.ErrInvalidName), errors.Is(err, render.ErrUnknownFormat):
		code = http.StatusBadRequest
	case errors.Is(err, pipeline.ErrNotCompiled):
		code = http.StatusConflict
	case errors.Is(err, parser.ErrNotCompilable):
		code = http.StatusUnprocessableEntity
	case errors.Is(err, assemble.ErrGenerationFailed):
		code = http.StatusBadGateway
	case errors.Is(err, pipeline.ErrQueueFull):
		code = http.StatusServiceUnavailable
	}
	if code == http.StatusInternalServerError || code == http.StatusBadGateway {
		s.log.Error("request failed", "error", err, "status", code)
	}
	jsonError(w, err.Error(), code)
}

func jsonError(w http.ResponseWriter, msg string, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
