package server

import (
	"errors"
	"io"
	"net/http"

	"github.com/paperlens-ai/paperlens/internal/domain"
	"github.com/paperlens-ai/paperlens/internal/storage"
)

// handleAnalyze accepts a multipart PDF upload under the pdf_file field, runs
// the analysis pipeline and returns the structured summary as JSON.
func (s *Server) handleAnalyze(w http.ResponseWriter, req *http.Request) {
	user := currentUser(req.Context())

	// A little headroom over the PDF limit for the multipart framing.
	req.Body = http.MaxBytesReader(w, req.Body, s.cfg.Upload.MaxSizeBytes+1024*1024)

	if err := req.ParseMultipartForm(s.cfg.Upload.MaxSizeBytes); err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			s.writeJSONError(w, http.StatusRequestEntityTooLarge,
				"File size exceeds the upload limit.")
			return
		}
		s.writeJSONError(w, http.StatusBadRequest, "Invalid upload request.")
		return
	}

	file, header, err := req.FormFile("pdf_file")
	if err != nil {
		s.writeJSONError(w, http.StatusBadRequest, "No PDF file uploaded. Please select a file.")
		return
	}
	defer file.Close()

	content, err := io.ReadAll(file)
	if err != nil {
		s.writeJSONError(w, http.StatusBadRequest, "Failed to read the uploaded file.")
		return
	}

	record, err := s.analyzer.Analyze(req.Context(), user.ID, header.Filename, content)
	if err != nil {
		s.writeAnalyzeError(w, user.Username, header.Filename, err)
		return
	}

	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"success":  true,
		"id":       record.ID.String(),
		"analysis": analysisPayload(record),
	})
}

// writeAnalyzeError maps pipeline failures onto HTTP statuses. Validation and
// extraction failures are the user's problem; API failures are upstream's.
func (s *Server) writeAnalyzeError(w http.ResponseWriter, username, filename string, err error) {
	status := http.StatusInternalServerError
	message := "Analysis failed. Please try again."

	var domainErr *domain.DomainError
	if errors.As(err, &domainErr) {
		switch domainErr.Type {
		case domain.ErrorTypeValidation, domain.ErrorTypeExtraction:
			status = http.StatusBadRequest
			message = domainErr.Message
		case domain.ErrorTypeAPI:
			status = http.StatusBadGateway
			message = "The analysis service is temporarily unavailable. Please try again."
		}
	}

	s.logger.WithUser(username).Error().
		Err(err).
		Str("filename", filename).
		Int("status", status).
		Msg("Analysis request failed")

	s.writeJSONError(w, status, message)
}

// analysisPayload shapes one record for JSON responses.
func analysisPayload(a *storage.PaperAnalysis) map[string]interface{} {
	var sections []map[string]string
	for _, sec := range a.Summary.Sections() {
		sections = append(sections, map[string]string{
			"key":   sec.Key,
			"title": sec.Title,
			"body":  sec.Body,
		})
	}

	return map[string]interface{}{
		"id":                a.ID.String(),
		"title":             a.DisplayTitle(),
		"original_filename": a.OriginalFilename,
		"file_size_mb":      a.FileSizeMB(),
		"created_at":        a.CreatedAt,
		"sections":          sections,
	}
}

// handleAPIHistory returns the caller's analyses as JSON, newest first.
func (s *Server) handleAPIHistory(w http.ResponseWriter, req *http.Request) {
	user := currentUser(req.Context())

	analyses, err := s.analyses.ListByUser(req.Context(), user.ID)
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to list analyses")
		s.writeJSONError(w, http.StatusInternalServerError, "Failed to load history.")
		return
	}

	payload := make([]map[string]interface{}, 0, len(analyses))
	for _, a := range analyses {
		payload = append(payload, analysisPayload(a))
	}

	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"success":  true,
		"analyses": payload,
	})
}
