package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/google/uuid"
	"github.com/jrsteele09/go-strava-proxy/activities"
	"github.com/jrsteele09/go-strava-proxy/auth"
	apperrors "github.com/jrsteele09/go-strava-proxy/internal/errors"
	"github.com/jrsteele09/go-strava-proxy/server/authflowrepo"
	"github.com/jrsteele09/go-strava-proxy/sessions"
	"github.com/rs/zerolog/log"
)

const maxPageSize = 200

// IndexHandler starts a login: it makes sure the browser has a session, records a fresh
// state for it and sends the browser to the provider's consent screen.
func (s *Server) IndexHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, ok := s.currentSession(r)
		if !ok {
			var err error
			sess, err = s.sessions.Create(s.now())
			if err != nil {
				log.Error().Err(err).Msg("Failed to create session")
				http.Error(w, "Failed to create session", http.StatusInternalServerError)
				return
			}
		}

		state := uuid.NewString()
		if err := s.authState.Upsert(state, &authflowrepo.AuthFlowState{SessionID: sess.ID, CreatedAt: s.now()}); err != nil {
			log.Error().Err(err).Msg("Failed to store auth state")
			http.Error(w, "Failed to start login", http.StatusInternalServerError)
			return
		}

		if err := s.setSessionCookie(w, r, sess.ID); err != nil {
			log.Error().Err(err).Msg("Failed to sign session cookie")
			http.Error(w, "Failed to start login", http.StatusInternalServerError)
			return
		}
		http.Redirect(w, r, s.auth.AuthorizationURL(state), http.StatusFound)
	}
}

// CallbackHandler completes a login and always lands the browser on the frontend,
// with ?error= set when the login did not succeed.
func (s *Server) CallbackHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		query := r.URL.Query()
		if providerErr := query.Get("error"); providerErr != "" {
			log.Info().Str("error", providerErr).Msg("Authorization denied")
			s.redirectToFrontend(w, r, providerErr)
			return
		}

		code := query.Get("code")
		if code == "" {
			s.redirectToFrontend(w, r, callbackErrNoCode)
			return
		}

		state := query.Get("state")
		if err := auth.ValidateState(state); err != nil {
			s.redirectToFrontend(w, r, callbackErrInvalidState)
			return
		}
		authState, err := s.authState.Get(state)
		if err != nil {
			s.redirectToFrontend(w, r, callbackErrInvalidState)
			return
		}
		// state is single use
		if err := s.authState.Delete(state); err != nil {
			log.Error().Err(err).Msg("Failed to delete auth state")
			s.redirectToFrontend(w, r, callbackErrInternal)
			return
		}
		if s.now().Sub(authState.CreatedAt) > authStateTTL {
			s.redirectToFrontend(w, r, callbackErrInvalidState)
			return
		}

		sess, err := s.sessions.Get(authState.SessionID, s.now())
		if err != nil {
			s.redirectToFrontend(w, r, callbackErrInvalidState)
			return
		}

		if err := s.auth.CompleteLogin(r.Context(), sess, code); err != nil {
			log.Warn().Err(err).Str("session", sess.ID).Msg("Login failed")
			s.redirectToFrontend(w, r, callbackErrTokenExchange)
			return
		}

		if err := s.setSessionCookie(w, r, sess.ID); err != nil {
			log.Error().Err(err).Msg("Failed to sign session cookie")
			s.redirectToFrontend(w, r, callbackErrInternal)
			return
		}
		s.redirectToFrontend(w, r, "")
	}
}

// ActivitiesHandler returns the session's recent activities with detail.
// An optional per_page query parameter overrides the configured page size.
func (s *Server) ActivitiesHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, ok := s.currentSession(r)
		if !ok {
			writeJSONError(w, "Not authorized", http.StatusUnauthorized)
			return
		}

		pageSize := 0
		if raw := r.URL.Query().Get("per_page"); raw != "" {
			n, err := strconv.Atoi(raw)
			if err != nil || n < 1 || n > maxPageSize {
				writeJSONError(w, fmt.Sprintf("per_page must be between 1 and %d", maxPageSize), http.StatusBadRequest)
				return
			}
			pageSize = n
		}

		records, err := s.auth.Activities(r.Context(), sess, pageSize)
		if err != nil {
			s.writeActivitiesError(w, r, err)
			return
		}
		if records == nil {
			records = []activities.Record{}
		}
		writeJSON(w, http.StatusOK, records)
	}
}

func (s *Server) writeActivitiesError(w http.ResponseWriter, r *http.Request, err error) {
	if apperrors.Is(err, apperrors.ErrUnauthorized) {
		writeJSONError(w, "Not authorized", http.StatusUnauthorized)
		return
	}
	if status, ok := apperrors.UpstreamStatus(err); ok {
		writeJSONError(w, fmt.Sprintf("Strava API error: %d", status), status)
		return
	}
	if r.Context().Err() != nil {
		// client went away, nobody is reading
		return
	}
	log.Error().Err(err).Msg("Activities fetch failed")
	writeJSONError(w, "Internal server error", http.StatusInternalServerError)
}

// AuthStatusHandler reports whether the browser's session holds a usable credential
func (s *Server) AuthStatusHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		status := map[string]any{"authenticated": false, "state": "unauthenticated"}
		if sess, ok := s.currentSession(r); ok {
			state := s.auth.State(sess)
			status["state"] = state.String()
			status["authenticated"] = state != sessions.Unauthenticated
		}
		writeJSON(w, http.StatusOK, status)
	}
}

// LogoutHandler drops the session and its credential
func (s *Server) LogoutHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if sess, ok := s.currentSession(r); ok {
			s.auth.Logout(sess)
			if err := s.sessions.Delete(sess.ID); err != nil {
				log.Warn().Err(err).Str("session", sess.ID).Msg("Failed to delete session")
			}
		}
		s.clearSessionCookie(w, r)
		w.WriteHeader(http.StatusNoContent)
	}
}

func (s *Server) HealthHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte("ok"))
	}
}

// redirectToFrontend sends the browser to FRONTEND_URL, carrying errorCode if set
func (s *Server) redirectToFrontend(w http.ResponseWriter, r *http.Request, errorCode string) {
	target := s.config.GetFrontendURL()
	if errorCode != "" {
		u, err := url.Parse(target)
		if err != nil {
			target += "?error=" + url.QueryEscape(errorCode)
		} else {
			q := u.Query()
			q.Set("error", errorCode)
			u.RawQuery = q.Encode()
			target = u.String()
		}
	}
	http.Redirect(w, r, target, http.StatusFound)
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Warn().Err(err).Msg("Failed to write response")
	}
}

func writeJSONError(w http.ResponseWriter, message string, statusCode int) {
	writeJSON(w, statusCode, map[string]string{"error": message})
}
