package server

import (
	"bytes"
	"encoding/json"
	"net/http"

	"github.com/paperlens-ai/paperlens/internal/storage"
)

// pageData is the payload every template receives. Handlers fill the fields
// their page needs.
type pageData struct {
	User        *storage.User
	Flash       string
	FlashKind   string
	Next        string
	MaxUploadMB int64

	Analyses []*storage.PaperAnalysis
	Analysis *storage.PaperAnalysis
	Sections interface{}
	Users    []*storage.User
}

// renderPage executes a page template into a buffer first so a template error
// produces a clean 500 instead of a half-written page.
func (s *Server) renderPage(w http.ResponseWriter, req *http.Request, name string, status int, data *pageData) {
	if data == nil {
		data = &pageData{}
	}
	if data.User == nil {
		data.User = currentUser(req.Context())
	}
	data.MaxUploadMB = s.cfg.Upload.MaxSizeBytes / (1024 * 1024)

	tmpl, ok := s.tmpls[name]
	if !ok {
		s.logger.Error().Str("template", name).Msg("Unknown template")
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, "base.html", data); err != nil {
		s.logger.Error().Err(err).Str("template", name).Msg("Template execution failed")
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Error().Err(err).Msg("Failed to encode JSON response")
	}
}

func (s *Server) writeJSONError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, map[string]interface{}{
		"success": false,
		"error":   message,
	})
}
