package sessions

import (
	"time"

	"github.com/jrsteele09/go-strava-proxy/token"
)

// State of a session's credential at a point in time
type State int

const (
	Unauthenticated State = iota
	AuthenticatedValid
	AuthenticatedExpired
)

func (s State) String() string {
	switch s {
	case AuthenticatedValid:
		return "authenticated_valid"
	case AuthenticatedExpired:
		return "authenticated_expired"
	default:
		return "unauthenticated"
	}
}

// Session is one browser's server-side state. Its Tokens store is the only place the
// provider credential lives; nothing about it is shared with other sessions.
type Session struct {
	ID        string
	CreatedAt time.Time
	LastSeen  time.Time
	Tokens    *token.Store
}

func New(id string, now time.Time) *Session {
	return &Session{
		ID:        id,
		CreatedAt: now,
		LastSeen:  now,
		Tokens:    token.NewStore(id),
	}
}

// State reports whether the session holds a credential and whether it is still valid at now.
// An expired credential may still be refreshable.
func (s *Session) State(now time.Time) State {
	if s.Tokens.Get() == nil {
		return Unauthenticated
	}
	if s.Tokens.IsExpired(now) {
		return AuthenticatedExpired
	}
	return AuthenticatedValid
}
