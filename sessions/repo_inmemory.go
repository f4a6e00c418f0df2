package sessions

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	apperrors "github.com/jrsteele09/go-strava-proxy/internal/errors"
)

var _ Repo = (*InMemoryRepo)(nil)

// InMemoryRepo is a thread-safe in-memory implementation of Repo
type InMemoryRepo struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	maxAge   time.Duration
}

// NewInMemoryRepo creates a repo whose sessions expire after maxAge of inactivity.
// A zero maxAge never expires sessions.
func NewInMemoryRepo(maxAge time.Duration) *InMemoryRepo {
	return &InMemoryRepo{
		sessions: make(map[string]*Session),
		maxAge:   maxAge,
	}
}

func (r *InMemoryRepo) Create(now time.Time) (*Session, error) {
	sess := New(uuid.NewString(), now)

	r.mu.Lock()
	defer r.mu.Unlock()

	r.sessions[sess.ID] = sess
	return sess, nil
}

func (r *InMemoryRepo) Get(id string, now time.Time) (*Session, error) {
	if id == "" {
		return nil, apperrors.Wrapf(apperrors.ErrSessionNotFound, "[sessions Get] id is required")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	sess, ok := r.sessions[id]
	if !ok {
		return nil, fmt.Errorf("[sessions Get] %w", apperrors.ErrSessionNotFound)
	}
	if r.expired(sess, now) {
		delete(r.sessions, id)
		return nil, fmt.Errorf("[sessions Get] %w", apperrors.ErrSessionExpired)
	}

	sess.LastSeen = now
	return sess, nil
}

func (r *InMemoryRepo) Delete(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	// Already doesn't exist, no error
	delete(r.sessions, id)
	return nil
}

func (r *InMemoryRepo) DeleteExpired(now time.Time) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	removed := 0
	for id, sess := range r.sessions {
		if r.expired(sess, now) {
			delete(r.sessions, id)
			removed++
		}
	}
	return removed, nil
}

// Len returns the number of stored sessions
func (r *InMemoryRepo) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

func (r *InMemoryRepo) expired(sess *Session, now time.Time) bool {
	return r.maxAge > 0 && now.Sub(sess.LastSeen) > r.maxAge
}
