package token

import (
	"sync"
	"time"
)

// Store holds the current Credential of one session.
// It is safe for concurrent use; Credentials go in and come out as copies.
type Store struct {
	key  string
	mu   sync.RWMutex
	cred *Credential
}

func NewStore(key string) *Store {
	return &Store{key: key}
}

// Key identifies the session the store belongs to
func (s *Store) Key() string {
	return s.key
}

// Get returns the current Credential, or nil when unauthenticated
func (s *Store) Get() *Credential {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.cred == nil {
		return nil
	}
	c := *s.cred
	return &c
}

// Set replaces the Credential wholesale
func (s *Store) Set(cred Credential) error {
	if err := cred.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cred = &cred
	return nil
}

func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cred = nil
}

// IsExpired is true when there is no Credential or now >= ExpiresAt
func (s *Store) IsExpired(now time.Time) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cred == nil || s.cred.IsExpired(now)
}

// CompareAndSwap replaces old with next only if the store still holds old.
// A nil old matches an empty store and a nil next clears it.
func (s *Store) CompareAndSwap(old, next *Credential) bool {
	if next != nil && next.Validate() != nil {
		return false
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	switch {
	case old == nil && s.cred != nil:
		return false
	case old != nil && (s.cred == nil || !s.cred.equal(*old)):
		return false
	}

	if next == nil {
		s.cred = nil
		return true
	}
	c := *next
	s.cred = &c
	return true
}
