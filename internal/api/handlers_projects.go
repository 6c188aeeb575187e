package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
)

func (s *Server) handleListProjects(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"projects": s.projects.List()})
}

func (s *Server) handleCreateProject(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name string `json:"name"`
	}
	if err := s.decodeJSON(w, r, &req); err != nil {
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}
	p := s.projects.Create(req.Name)
	s.log.Info("project created", "project_id", p.ID, "name", p.Name)
	writeJSON(w, http.StatusCreated, p)
}

func (s *Server) handleGetProject(w http.ResponseWriter, r *http.Request) {
	p, err := s.projects.Get(chi.URLParam(r, "projectID"))
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// handleDeleteProject deletes a project and drops its compiled outputs.
func (s *Server) handleDeleteProject(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "projectID")
	p, err := s.projects.Get(id)
	if err != nil {
		s.fail(w, err)
		return
	}
	if err := s.projects.Delete(id); err != nil {
		s.fail(w, err)
		return
	}
	for _, f := range p.Files {
		s.orchestrator.Forget(f.ID)
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleSetActive(w http.ResponseWriter, r *http.Request) {
	var req struct {
		FileID string `json:"file_id"`
	}
	if err := s.decodeJSON(w, r, &req); err != nil {
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}
	id := chi.URLParam(r, "projectID")
	if err := s.projects.SetActive(id, req.FileID); err != nil {
		s.fail(w, err)
		return
	}
	p, err := s.projects.Get(id)
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (s *Server) handleAddFile(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name string `json:"name"`
	}
	if err := s.decodeJSON(w, r, &req); err != nil {
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}
	f, err := s.projects.AddFile(chi.URLParam(r, "projectID"), req.Name)
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, f)
}

func (s *Server) handleGetFile(w http.ResponseWriter, r *http.Request) {
	f, err := s.projects.GetFile(chi.URLParam(r, "projectID"), chi.URLParam(r, "fileID"))
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, f)
}

func (s *Server) handleUpdateFile(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Content *string `json:"content"`
	}
	if err := s.decodeJSON(w, r, &req); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			jsonError(w, fmt.Sprintf("content exceeds max size (%d bytes)", s.cfg.MaxSourceBytes), http.StatusRequestEntityTooLarge)
			return
		}
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}
	if req.Content == nil {
		jsonError(w, "content is required", http.StatusBadRequest)
		return
	}
	f, err := s.projects.UpdateContent(chi.URLParam(r, "projectID"), chi.URLParam(r, "fileID"), *req.Content)
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, f)
}

func (s *Server) handleDeleteFile(w http.ResponseWriter, r *http.Request) {
	fileID := chi.URLParam(r, "fileID")
	if err := s.projects.DeleteFile(chi.URLParam(r, "projectID"), fileID); err != nil {
		s.fail(w, err)
		return
	}
	s.orchestrator.Forget(fileID)
	w.WriteHeader(http.StatusNoContent)
}

// decodeJSON reads a size-limited JSON body into v.
func (s *Server) decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	// Extra 4KB for JSON framing around the source text.
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxSourceBytes+4096)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return err
		}
		return fmt.Errorf("invalid json body: %w", err)
	}
	return nil
}

// writeJSON writes v as a JSON response.
func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}
