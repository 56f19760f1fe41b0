// Package server implements the HTTP surface of PaperLens: the browser UI,
// the JSON endpoints behind it, and the admin panel.
package server

import (
	"html/template"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/paperlens-ai/paperlens/internal/analyze"
	"github.com/paperlens-ai/paperlens/internal/auth"
	"github.com/paperlens-ai/paperlens/internal/config"
	"github.com/paperlens-ai/paperlens/internal/observability"
	"github.com/paperlens-ai/paperlens/internal/storage"
	"github.com/paperlens-ai/paperlens/web"
)

// Server holds the wired application services behind the HTTP handlers.
type Server struct {
	cfg      *config.Config
	logger   *observability.Logger
	users    *storage.UserRepository
	analyses *storage.AnalysisRepository
	sessions *auth.Manager
	analyzer *analyze.Service
	tmpls    map[string]*template.Template
}

// New creates the server and parses the embedded templates.
func New(
	cfg *config.Config,
	logger *observability.Logger,
	users *storage.UserRepository,
	analyses *storage.AnalysisRepository,
	sessions *auth.Manager,
	analyzer *analyze.Service,
) (*Server, error) {
	tmpls, err := web.ParseTemplates()
	if err != nil {
		return nil, err
	}

	return &Server{
		cfg:      cfg,
		logger:   logger.WithComponent("http"),
		users:    users,
		analyses: analyses,
		sessions: sessions,
		analyzer: analyzer,
		tmpls:    tmpls,
	}, nil
}

// Handler builds the route tree.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{cfgReferer(s.cfg)},
		AllowedMethods:   []string{"GET", "POST"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "X-Requested-With"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/health", s.handleHealth)
	r.Get("/ready", s.handleReady)
	r.Handle("/static/*", web.StaticHandler())

	r.Get("/login", s.handleLoginPage)
	r.Post("/login", s.handleLogin)
	r.Post("/logout", s.handleLogout)

	// Authenticated browser pages and the endpoints behind them.
	r.Group(func(r chi.Router) {
		r.Use(s.requireUser)

		r.Get("/analyzer", s.handleAnalyzerPage)
		r.Post("/analyzer/analyze", s.handleAnalyze)
		r.Get("/generator", s.handleGeneratorPage)

		r.Get("/history", s.handleHistoryPage)
		r.Get("/history/{id}", s.handleHistoryDetail)
		r.Post("/history/{id}/delete", s.handleHistoryDelete)
		r.Get("/history/{id}/export.pptx", s.handleExportPPTX)

		r.Get("/api/history", s.handleAPIHistory)
	})

	r.Group(func(r chi.Router) {
		r.Use(s.requireUser, s.requireAdmin)

		r.Get("/admin", s.handleAdminPage)
		r.Get("/admin/users", s.handleAdminUsers)
		r.Post("/admin/users", s.handleAdminCreateUser)
		r.Get("/admin/analyses", s.handleAdminAnalyses)
		r.Post("/admin/analyses/{id}/delete", s.handleAdminDeleteAnalysis)
	})

	// Unknown paths land on the analyzer, matching the app's single entry
	// point. API callers get a regular 404.
	r.NotFound(func(w http.ResponseWriter, req *http.Request) {
		if wantsJSON(req) {
			s.writeJSONError(w, http.StatusNotFound, "not found")
			return
		}
		http.Redirect(w, req, "/analyzer", http.StatusFound)
	})

	return r
}

// cfgReferer derives the allowed browser origin from the configured referer.
func cfgReferer(cfg *config.Config) string {
	if cfg.LLM.Referer != "" {
		return cfg.LLM.Referer
	}
	return "http://localhost:8000"
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleReady(w http.ResponseWriter, req *http.Request) {
	// Readiness is backed by the database: a failing lookup means the
	// service cannot serve logins or history.
	if _, err := s.users.List(req.Context()); err != nil {
		s.writeJSONError(w, http.StatusServiceUnavailable, "database unavailable")
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}
