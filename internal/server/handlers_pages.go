package server

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/paperlens-ai/paperlens/internal/export"
	"github.com/paperlens-ai/paperlens/internal/storage"
)

func (s *Server) handleAnalyzerPage(w http.ResponseWriter, req *http.Request) {
	s.renderPage(w, req, "analyzer", http.StatusOK, nil)
}

func (s *Server) handleHistoryPage(w http.ResponseWriter, req *http.Request) {
	user := currentUser(req.Context())

	analyses, err := s.analyses.ListByUser(req.Context(), user.ID)
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to list analyses")
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	s.renderPage(w, req, "history", http.StatusOK, &pageData{Analyses: analyses})
}

// handleGeneratorPage lists the user's analyses with slide-deck export links.
func (s *Server) handleGeneratorPage(w http.ResponseWriter, req *http.Request) {
	user := currentUser(req.Context())

	analyses, err := s.analyses.ListByUser(req.Context(), user.ID)
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to list analyses")
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	s.renderPage(w, req, "generator", http.StatusOK, &pageData{Analyses: analyses})
}

func (s *Server) handleHistoryDetail(w http.ResponseWriter, req *http.Request) {
	analysis, ok := s.ownedAnalysis(w, req)
	if !ok {
		return
	}

	s.renderPage(w, req, "detail", http.StatusOK, &pageData{
		Analysis: analysis,
		Sections: analysis.Summary.Sections(),
	})
}

func (s *Server) handleHistoryDelete(w http.ResponseWriter, req *http.Request) {
	user := currentUser(req.Context())

	id, err := uuid.Parse(chi.URLParam(req, "id"))
	if err != nil {
		http.Redirect(w, req, "/history", http.StatusFound)
		return
	}

	if err := s.analyses.Delete(req.Context(), user.ID, id); err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			s.logger.Error().Err(err).Str("analysis_id", id.String()).Msg("Failed to delete analysis")
		}
	}

	if wantsJSON(req) {
		s.writeJSON(w, http.StatusOK, map[string]interface{}{"success": true})
		return
	}
	http.Redirect(w, req, "/history", http.StatusFound)
}

// handleExportPPTX streams the analysis as a PowerPoint download.
func (s *Server) handleExportPPTX(w http.ResponseWriter, req *http.Request) {
	analysis, ok := s.ownedAnalysis(w, req)
	if !ok {
		return
	}

	deck, err := export.PPTX(analysis)
	if err != nil {
		s.logger.Error().Err(err).Str("analysis_id", analysis.ID.String()).Msg("PPTX export failed")
		http.Error(w, "export failed", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type",
		"application/vnd.openxmlformats-officedocument.presentationml.presentation")
	w.Header().Set("Content-Disposition",
		fmt.Sprintf(`attachment; filename="%s.pptx"`, exportFilename(analysis)))
	w.Header().Set("Content-Length", fmt.Sprintf("%d", len(deck)))
	_, _ = w.Write(deck)
}

func exportFilename(a *storage.PaperAnalysis) string {
	name := a.DisplayTitle()
	if len(name) > 60 {
		name = name[:60]
	}
	// Quotes would break the Content-Disposition header.
	safe := make([]rune, 0, len(name))
	for _, r := range name {
		if r == '"' || r == '\\' || r == '\n' || r == '\r' {
			continue
		}
		safe = append(safe, r)
	}
	return string(safe)
}

// ownedAnalysis loads the {id} analysis scoped to the requesting user,
// writing the error response itself when the lookup fails.
func (s *Server) ownedAnalysis(w http.ResponseWriter, req *http.Request) (*storage.PaperAnalysis, bool) {
	user := currentUser(req.Context())

	id, err := uuid.Parse(chi.URLParam(req, "id"))
	if err != nil {
		http.Redirect(w, req, "/history", http.StatusFound)
		return nil, false
	}

	analysis, err := s.analyses.GetByID(req.Context(), user.ID, id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			http.Redirect(w, req, "/history", http.StatusFound)
			return nil, false
		}
		s.logger.Error().Err(err).Str("analysis_id", id.String()).Msg("Failed to load analysis")
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return nil, false
	}

	return analysis, true
}
