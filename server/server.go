package server

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/jrsteele09/go-strava-proxy/auth"
	"github.com/jrsteele09/go-strava-proxy/internal/config"
	"github.com/jrsteele09/go-strava-proxy/server/authflowrepo"
	"github.com/jrsteele09/go-strava-proxy/server/sessioncookie"
	"github.com/jrsteele09/go-strava-proxy/sessions"
	"github.com/rs/zerolog/log"
)

// authStateTTL bounds how long a user may sit on the provider's consent screen
const authStateTTL = 10 * time.Minute

type Server struct {
	env       string // Environment (e.g., "DEV", "PROD")
	mux       *http.ServeMux
	routes    []string
	config    config.Config
	auth      *auth.Service
	sessions  sessions.Repo
	authState authflowrepo.Repo
	cookies   *sessioncookie.Signer
	nowFunc   func() time.Time
}

type Option func(*Server)

func WithNowFunc(now func() time.Time) Option {
	return func(s *Server) {
		s.nowFunc = now
	}
}

func New(cfg config.Config, authService *auth.Service, sessionRepo sessions.Repo, authStateRepo authflowrepo.Repo, options ...Option) (*Server, error) {
	if authService == nil {
		return nil, errors.New("[Server New] auth service is required")
	}
	if sessionRepo == nil || authStateRepo == nil {
		return nil, errors.New("[Server New] session and auth state repos are required")
	}

	cookies, err := sessioncookie.NewSigner(cfg.GetSessionSecret(), cfg.GetMaxSessionAge())
	if err != nil {
		return nil, fmt.Errorf("[Server New] failed to create cookie signer: %w", err)
	}

	s := &Server{
		env:       cfg.GetEnv(),
		mux:       http.NewServeMux(),
		config:    cfg,
		auth:      authService,
		sessions:  sessionRepo,
		authState: authStateRepo,
		cookies:   cookies,
		nowFunc:   time.Now,
	}
	for _, opt := range options {
		opt(s)
	}

	s.initRoutes()
	s.logRoutes()

	return s, nil
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

func (s *Server) RegisterRouteHandler(pattern string, handler http.Handler) {
	s.routes = append(s.routes, pattern)
	s.mux.Handle(pattern, handler)
}

func (s *Server) RegisterRouteFunc(pattern string, handler func(http.ResponseWriter, *http.Request)) {
	s.routes = append(s.routes, pattern)
	s.mux.HandleFunc(pattern, handler)
}

func (s *Server) logRoutes() {
	if s.env != config.DevEnv {
		return // Skip logging in non-development environments
	}
	for _, route := range s.routes {
		method, path, found := strings.Cut(route, " ")
		if !found {
			method, path = "", route
		}
		log.Debug().Str("method", method).Str("path", path).Msg("Route")
	}
}

func (s *Server) now() time.Time {
	return s.nowFunc()
}

// Helper function to determine the scheme (http/https)
func getScheme(r *http.Request) string {
	if r.TLS != nil {
		return "https"
	}
	if scheme := r.Header.Get("X-Forwarded-Proto"); scheme != "" {
		return scheme
	}
	return "http"
}
