package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/paperlens-ai/paperlens/internal/auth"
	"github.com/paperlens-ai/paperlens/internal/storage"
)

func (s *Server) handleAdminPage(w http.ResponseWriter, req *http.Request) {
	users, err := s.users.List(req.Context())
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to list users")
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	analyses, err := s.analyses.ListAll(req.Context())
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to list analyses")
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	s.renderPage(w, req, "admin", http.StatusOK, &pageData{
		Users:    users,
		Analyses: analyses,
	})
}

func (s *Server) handleAdminUsers(w http.ResponseWriter, req *http.Request) {
	users, err := s.users.List(req.Context())
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to list users")
		s.writeJSONError(w, http.StatusInternalServerError, "Failed to load users.")
		return
	}

	payload := make([]map[string]interface{}, 0, len(users))
	for _, u := range users {
		payload = append(payload, map[string]interface{}{
			"id":            u.ID.String(),
			"username":      u.Username,
			"email":         u.Email,
			"is_admin":      u.IsAdmin,
			"last_login_ip": u.LastLoginIP,
			"created_at":    u.CreatedAt,
		})
	}

	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"users":   payload,
	})
}

// handleAdminCreateUser registers an account from the admin panel. Accepts
// form or JSON bodies.
func (s *Server) handleAdminCreateUser(w http.ResponseWriter, req *http.Request) {
	var in struct {
		Username string `json:"username"`
		Email    string `json:"email"`
		Password string `json:"password"`
		IsAdmin  bool   `json:"is_admin"`
	}

	if strings.HasPrefix(req.Header.Get("Content-Type"), "application/json") {
		if err := json.NewDecoder(req.Body).Decode(&in); err != nil {
			s.writeJSONError(w, http.StatusBadRequest, "Invalid JSON body.")
			return
		}
	} else {
		if err := req.ParseForm(); err != nil {
			s.writeJSONError(w, http.StatusBadRequest, "Invalid form submission.")
			return
		}
		in.Username = req.PostFormValue("username")
		in.Email = req.PostFormValue("email")
		in.Password = req.PostFormValue("password")
		in.IsAdmin = req.PostFormValue("is_admin") == "true"
	}

	in.Username = strings.TrimSpace(in.Username)
	if in.Username == "" || len(in.Password) < 8 {
		s.writeJSONError(w, http.StatusBadRequest,
			"Username and a password of at least 8 characters are required.")
		return
	}

	hash, err := auth.HashPassword(in.Password)
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to hash password")
		s.writeJSONError(w, http.StatusInternalServerError, "Failed to create user.")
		return
	}

	user := &storage.User{
		Username:     in.Username,
		Email:        in.Email,
		PasswordHash: hash,
		IsAdmin:      in.IsAdmin,
	}
	if err := s.users.Create(req.Context(), user); err != nil {
		s.logger.Error().Err(err).Str("username", in.Username).Msg("Failed to create user")
		s.writeJSONError(w, http.StatusConflict, "Failed to create user. Username may be taken.")
		return
	}

	admin := currentUser(req.Context())
	s.logger.WithUser(admin.Username).Info().
		Str("username", user.Username).
		Bool("is_admin", user.IsAdmin).
		Msg("User created by admin")

	s.writeJSON(w, http.StatusCreated, map[string]interface{}{
		"success":  true,
		"id":       user.ID.String(),
		"username": user.Username,
	})
}

func (s *Server) handleAdminAnalyses(w http.ResponseWriter, req *http.Request) {
	analyses, err := s.analyses.ListAll(req.Context())
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to list analyses")
		s.writeJSONError(w, http.StatusInternalServerError, "Failed to load analyses.")
		return
	}

	payload := make([]map[string]interface{}, 0, len(analyses))
	for _, a := range analyses {
		entry := analysisPayload(a)
		entry["user_id"] = a.UserID.String()
		payload = append(payload, entry)
	}

	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"success":  true,
		"analyses": payload,
	})
}

func (s *Server) handleAdminDeleteAnalysis(w http.ResponseWriter, req *http.Request) {
	id, err := uuid.Parse(chi.URLParam(req, "id"))
	if err != nil {
		s.writeJSONError(w, http.StatusBadRequest, "Invalid analysis ID.")
		return
	}

	if err := s.analyses.DeleteAny(req.Context(), id); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			if wantsJSON(req) {
				s.writeJSONError(w, http.StatusNotFound, "Analysis not found.")
				return
			}
			http.Redirect(w, req, "/admin", http.StatusFound)
			return
		}
		s.logger.Error().Err(err).Str("analysis_id", id.String()).Msg("Failed to delete analysis")
		s.writeJSONError(w, http.StatusInternalServerError, "Failed to delete analysis.")
		return
	}

	admin := currentUser(req.Context())
	s.logger.WithUser(admin.Username).Info().
		Str("analysis_id", id.String()).
		Msg("Analysis deleted by admin")

	if wantsJSON(req) {
		s.writeJSON(w, http.StatusOK, map[string]interface{}{"success": true})
		return
	}
	http.Redirect(w, req, "/admin", http.StatusFound)
}
