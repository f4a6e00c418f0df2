package server

import (
	"net/http"

	"github.com/jrsteele09/go-strava-proxy/sessions"
	"github.com/rs/zerolog/log"
)

// sessionCookieName is the name of the cookie that names the browser's server-side session
const sessionCookieName = "session"

// currentSession resolves the request's session cookie to a live session
func (s *Server) currentSession(r *http.Request) (*sessions.Session, bool) {
	cookie, err := r.Cookie(sessionCookieName)
	if err != nil || cookie.Value == "" {
		return nil, false
	}

	sessionID, err := s.cookies.Parse(cookie.Value, s.now())
	if err != nil {
		log.Debug().Err(err).Msg("Rejected session cookie")
		return nil, false
	}

	sess, err := s.sessions.Get(sessionID, s.now())
	if err != nil {
		return nil, false
	}
	return sess, true
}

func (s *Server) setSessionCookie(w http.ResponseWriter, r *http.Request, sessionID string) error {
	value, err := s.cookies.Sign(sessionID, s.now())
	if err != nil {
		return err
	}

	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    value,
		Path:     "/",
		HttpOnly: true,
		Secure:   getScheme(r) == "https",
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int(s.cookies.MaxAge().Seconds()),
	})
	return nil
}

func (s *Server) clearSessionCookie(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		Secure:   getScheme(r) == "https",
		SameSite: http.SameSiteLaxMode,
		MaxAge:   -1,
	})
}
