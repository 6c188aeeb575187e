package api

import (
	"log/slog"
	"net/http"

	"github.com/dgallion1/texpad/internal/config"
	"github.com/dgallion1/texpad/internal/pipeline"
	"github.com/dgallion1/texpad/internal/project"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// Server is the HTTP API server for texpad.
type Server struct {
	router       chi.Router
	orchestrator *pipeline.Orchestrator
	projects     *project.Store
	log          *slog.Logger
	cfg          config.Config
}

// NewServer creates and configures the HTTP server.
func NewServer(orch *pipeline.Orchestrator, projects *project.Store, log *slog.Logger, cfg config.Config) *Server {
	s := &Server{
		orchestrator: orch,
		projects:     projects,
		log:          log,
		cfg:          cfg,
	}
	s.setupRoutes()
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) setupRoutes() {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(RequestLogger(s.log))

	// Public endpoints.
	r.Get("/health", s.handleHealth)

	// Authenticated endpoints.
	r.Group(func(r chi.Router) {
		r.Use(AuthMiddleware(s.cfg.APIKey, s.log))

		r.Get("/api/stats", s.handleStats)

		r.Post("/api/parse", s.handleParse)
		r.Post("/api/render", s.handleRender)
		r.Get("/api/compile/{jobID}/status", s.handleCompileStatus)

		r.Route("/api/projects", func(r chi.Router) {
			r.Get("/", s.handleListProjects)
			r.Post("/", s.handleCreateProject)

			r.Route("/{projectID}", func(r chi.Router) {
				r.Get("/", s.handleGetProject)
				r.Delete("/", s.handleDeleteProject)
				r.Put("/active", s.handleSetActive)

				r.Post("/files", s.handleAddFile)
				r.Route("/files/{fileID}", func(r chi.Router) {
					r.Get("/", s.handleGetFile)
					r.Put("/", s.handleUpdateFile)
					r.Delete("/", s.handleDeleteFile)
					r.Get("/summary", s.handleSummary)
					r.Post("/compile", s.handleCompile)
					r.Get("/output", s.handleOutput)
				})
			})
		})
	})

	s.router = r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
}
