// Package stravatest runs an in-process stand-in for the Strava token endpoint and
// activities API.
package stravatest

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

const (
	ClientID     = "12345"
	ClientSecret = "client-secret"
	ValidCode    = "valid-code"
	RedirectURI  = "http://localhost:5000/callback"
	APIPrefix    = "/api/v3"
)

type Server struct {
	*httptest.Server

	mu            sync.Mutex
	seq           int
	accessTokens  map[string]bool
	refreshTokens map[string]bool
	activities    []map[string]any
	failDetail    map[string]bool
	apiStatus     int
	revokeOnList  bool

	// ExpiresIn is the lifetime given to issued access tokens
	ExpiresIn time.Duration
	// Now stamps expires_at; set it before the first request
	Now func() time.Time

	Exchanges atomic.Int32
	Refreshes atomic.Int32
	APICalls  atomic.Int32
}

func New(t testing.TB) *Server {
	t.Helper()
	s := &Server{
		accessTokens:  make(map[string]bool),
		refreshTokens: make(map[string]bool),
		failDetail:    make(map[string]bool),
		ExpiresIn:     6 * time.Hour,
		Now:           time.Now,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /oauth/token", s.token)
	mux.HandleFunc("GET "+APIPrefix+"/athlete/activities", s.list)
	mux.HandleFunc("GET "+APIPrefix+"/activities/{id}", s.detail)
	s.Server = httptest.NewServer(mux)
	t.Cleanup(s.Close)
	return s
}

// AddActivity registers an activity returned by both the list and detail endpoints
func (s *Server) AddActivity(id int, name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.activities = append(s.activities, map[string]any{"id": id, "name": name})
}

// FailDetail makes the detail endpoint answer 500 for id
func (s *Server) FailDetail(id int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failDetail[fmt.Sprint(id)] = true
}

// SetAPIStatus forces every API call to answer status. Zero restores normal behaviour.
func (s *Server) SetAPIStatus(status int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.apiStatus = status
}

// RevokeAccess stops accepting every issued access token, as when the athlete
// deauthorises the app. Refresh tokens are revoked too.
func (s *Server) RevokeAccess() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.accessTokens = make(map[string]bool)
	s.refreshTokens = make(map[string]bool)
}

// RevokeAfterList revokes access once the next activity list has been served, so the
// detail calls that follow it are answered 401.
func (s *Server) RevokeAfterList() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.revokeOnList = true
}

func (s *Server) OAuthConfig() OAuthConfig {
	return OAuthConfig{
		AuthURL:  s.URL + "/oauth/authorize",
		TokenURL: s.URL + "/oauth/token",
	}
}

func (s *Server) FetchConfig() FetchConfig {
	return FetchConfig{APIBaseURL: s.URL + APIPrefix}
}

func (s *Server) token(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"message": err.Error()})
		return
	}
	if r.PostForm.Get("client_id") != ClientID || r.PostForm.Get("client_secret") != ClientSecret {
		writeJSON(w, http.StatusUnauthorized, map[string]any{"message": "Authorization Error"})
		return
	}

	switch r.PostForm.Get("grant_type") {
	case "authorization_code":
		s.Exchanges.Add(1)
		if r.PostForm.Get("code") != ValidCode {
			writeJSON(w, http.StatusBadRequest, map[string]any{"message": "Bad Request"})
			return
		}
	case "refresh_token":
		s.Refreshes.Add(1)
		s.mu.Lock()
		known := s.refreshTokens[r.PostForm.Get("refresh_token")]
		delete(s.refreshTokens, r.PostForm.Get("refresh_token"))
		s.mu.Unlock()
		if !known {
			writeJSON(w, http.StatusBadRequest, map[string]any{"message": "Bad Request"})
			return
		}
	default:
		writeJSON(w, http.StatusBadRequest, map[string]any{"message": "unsupported grant"})
		return
	}

	s.mu.Lock()
	s.seq++
	access := fmt.Sprintf("access-%d", s.seq)
	refresh := fmt.Sprintf("refresh-%d", s.seq)
	s.accessTokens[access] = true
	s.refreshTokens[refresh] = true
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, map[string]any{
		"token_type":    "Bearer",
		"access_token":  access,
		"refresh_token": refresh,
		"expires_at":    s.Now().Add(s.ExpiresIn).Unix(),
		"expires_in":    int(s.ExpiresIn.Seconds()),
	})
}

// authorize answers the request itself and returns false when the call must not proceed
func (s *Server) authorize(w http.ResponseWriter, r *http.Request) bool {
	s.APICalls.Add(1)
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.apiStatus != 0 {
		writeJSON(w, s.apiStatus, map[string]any{"message": http.StatusText(s.apiStatus)})
		return false
	}
	access := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
	if !s.accessTokens[access] {
		writeJSON(w, http.StatusUnauthorized, map[string]any{"message": "Authorization Error"})
		return false
	}
	return true
}

func (s *Server) list(w http.ResponseWriter, r *http.Request) {
	if !s.authorize(w, r) {
		return
	}
	s.mu.Lock()
	summaries := make([]map[string]any, 0, len(s.activities))
	for _, a := range s.activities {
		summaries = append(summaries, map[string]any{"id": a["id"], "name": a["name"], "resource_state": 2})
	}
	if s.revokeOnList {
		s.revokeOnList = false
		s.accessTokens = make(map[string]bool)
		s.refreshTokens = make(map[string]bool)
	}
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, summaries)
}

func (s *Server) detail(w http.ResponseWriter, r *http.Request) {
	if !s.authorize(w, r) {
		return
	}
	id := r.PathValue("id")

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failDetail[id] {
		writeJSON(w, http.StatusInternalServerError, map[string]any{"message": "Internal Error"})
		return
	}
	for _, a := range s.activities {
		if fmt.Sprint(a["id"]) == id {
			writeJSON(w, http.StatusOK, map[string]any{
				"id":              a["id"],
				"name":            a["name"],
				"resource_state":  3,
				"segment_efforts": []any{},
			})
			return
		}
	}
	writeJSON(w, http.StatusNotFound, map[string]any{"message": "Record Not Found"})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
