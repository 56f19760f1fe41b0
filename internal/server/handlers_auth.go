package server

import (
	"errors"
	"net"
	"net/http"
	"strings"

	"github.com/paperlens-ai/paperlens/internal/auth"
	"github.com/paperlens-ai/paperlens/internal/storage"
)

func (s *Server) handleLoginPage(w http.ResponseWriter, req *http.Request) {
	if s.sessionUser(req) != nil {
		http.Redirect(w, req, "/analyzer", http.StatusFound)
		return
	}
	s.renderPage(w, req, "login", http.StatusOK, &pageData{
		Next: safeNextPath(req.URL.Query().Get("next")),
	})
}

func (s *Server) handleLogin(w http.ResponseWriter, req *http.Request) {
	if err := req.ParseForm(); err != nil {
		s.loginFailed(w, req, "Invalid form submission.")
		return
	}

	username := strings.TrimSpace(req.PostFormValue("username"))
	password := req.PostFormValue("password")
	if username == "" || password == "" {
		s.loginFailed(w, req, "Username and password are required.")
		return
	}

	user, sessionID, err := s.sessions.Login(req.Context(), username, password, remoteIP(req))
	if err != nil {
		switch {
		case errors.Is(err, auth.ErrAccountLocked):
			s.loginFailed(w, req, "Account temporarily locked. Please try again later.")
		case errors.Is(err, auth.ErrInvalidCredentials):
			s.loginFailed(w, req, "Invalid username or password.")
		default:
			s.logger.Error().Err(err).Str("username", username).Msg("Login failed")
			s.loginFailed(w, req, "Login failed. Please try again.")
		}
		return
	}

	s.setSessionCookie(w, sessionID)
	s.logger.Info().Str("username", user.Username).Str("remote_ip", remoteIP(req)).Msg("User logged in")

	if wantsJSON(req) {
		s.writeJSON(w, http.StatusOK, map[string]interface{}{
			"success":  true,
			"username": user.Username,
			"redirect": safeNextPath(req.PostFormValue("next")),
		})
		return
	}

	http.Redirect(w, req, safeNextPath(req.PostFormValue("next")), http.StatusFound)
}

func (s *Server) handleLogout(w http.ResponseWriter, req *http.Request) {
	if cookie, err := req.Cookie(s.cfg.Auth.CookieName); err == nil {
		if err := s.sessions.Logout(req.Context(), cookie.Value); err != nil {
			s.logger.Warn().Err(err).Msg("Failed to clear session")
		}
	}
	s.clearSessionCookie(w)

	if wantsJSON(req) {
		s.writeJSON(w, http.StatusOK, map[string]interface{}{"success": true})
		return
	}
	http.Redirect(w, req, "/login", http.StatusFound)
}

func (s *Server) loginFailed(w http.ResponseWriter, req *http.Request, message string) {
	if wantsJSON(req) {
		s.writeJSONError(w, http.StatusUnauthorized, message)
		return
	}
	s.renderPage(w, req, "login", http.StatusUnauthorized, &pageData{
		Flash:     message,
		FlashKind: "error",
		Next:      safeNextPath(req.PostFormValue("next")),
	})
}

// sessionUser resolves the cookie outside the auth middleware, used by the
// login page to skip the form for already signed-in users.
func (s *Server) sessionUser(req *http.Request) *storage.User {
	cookie, err := req.Cookie(s.cfg.Auth.CookieName)
	if err != nil || cookie.Value == "" {
		return nil
	}
	user, err := s.sessions.Validate(req.Context(), cookie.Value)
	if err != nil {
		return nil
	}
	return user
}

// safeNextPath restricts post-login redirects to local paths.
func safeNextPath(next string) string {
	if next == "" || !strings.HasPrefix(next, "/") || strings.HasPrefix(next, "//") {
		return "/analyzer"
	}
	return next
}

func remoteIP(req *http.Request) string {
	host, _, err := net.SplitHostPort(req.RemoteAddr)
	if err != nil {
		return req.RemoteAddr
	}
	return host
}
