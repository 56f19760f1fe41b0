package server

import (
	"context"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/paperlens-ai/paperlens/internal/storage"
)

type contextKey string

const userContextKey contextKey = "user"

// currentUser returns the authenticated user from the request context, or nil.
func currentUser(ctx context.Context) *storage.User {
	user, _ := ctx.Value(userContextKey).(*storage.User)
	return user
}

// wantsJSON reports whether the client expects a JSON response rather than an
// HTML page.
func wantsJSON(req *http.Request) bool {
	if strings.HasPrefix(req.URL.Path, "/api/") {
		return true
	}
	if req.Header.Get("X-Requested-With") == "XMLHttpRequest" {
		return true
	}
	accept := req.Header.Get("Accept")
	return strings.Contains(accept, "application/json") && !strings.Contains(accept, "text/html")
}

// requestLogger logs each request with latency and status.
func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, req.ProtoMajor)

		next.ServeHTTP(ww, req)

		s.logger.Info().
			Str("request_id", middleware.GetReqID(req.Context())).
			Str("method", req.Method).
			Str("path", req.URL.Path).
			Str("remote_ip", req.RemoteAddr).
			Int("status", ww.Status()).
			Int("bytes", ww.BytesWritten()).
			Dur("latency", time.Since(start)).
			Msg("Request handled")
	})
}

// requireUser resolves the session cookie to a user. Browser requests without
// a valid session are redirected to the login page with the original path
// preserved; JSON requests get a 401.
func (s *Server) requireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		cookie, err := req.Cookie(s.cfg.Auth.CookieName)
		if err == nil && cookie.Value != "" {
			user, err := s.sessions.Validate(req.Context(), cookie.Value)
			if err == nil {
				s.refreshSessionCookie(w, cookie.Value)
				ctx := context.WithValue(req.Context(), userContextKey, user)
				next.ServeHTTP(w, req.WithContext(ctx))
				return
			}
		}

		if wantsJSON(req) {
			s.writeJSONError(w, http.StatusUnauthorized, "authentication required")
			return
		}

		nextURL := url.QueryEscape(req.URL.RequestURI())
		http.Redirect(w, req, "/login?next="+nextURL, http.StatusFound)
	})
}

// requireAdmin rejects non-admin users. It must run after requireUser.
func (s *Server) requireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		user := currentUser(req.Context())
		if user == nil || !user.IsAdmin {
			if wantsJSON(req) {
				s.writeJSONError(w, http.StatusForbidden, "admin access required")
				return
			}
			http.Redirect(w, req, "/analyzer", http.StatusFound)
			return
		}
		next.ServeHTTP(w, req)
	})
}

// setSessionCookie writes the session cookie after a successful login.
func (s *Server) setSessionCookie(w http.ResponseWriter, sessionID string) {
	http.SetCookie(w, &http.Cookie{
		Name:     s.cfg.Auth.CookieName,
		Value:    sessionID,
		Path:     "/",
		MaxAge:   int(s.sessions.SessionTTL().Seconds()),
		HttpOnly: true,
		Secure:   s.cfg.Auth.SecureCookies,
		SameSite: http.SameSiteLaxMode,
	})
}

// refreshSessionCookie mirrors the sliding session expiry on the cookie.
func (s *Server) refreshSessionCookie(w http.ResponseWriter, sessionID string) {
	s.setSessionCookie(w, sessionID)
}

// clearSessionCookie removes the session cookie on logout.
func (s *Server) clearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     s.cfg.Auth.CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   s.cfg.Auth.SecureCookies,
		SameSite: http.SameSiteLaxMode,
	})
}
