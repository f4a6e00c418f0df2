package sessions

import "time"

// Repo defines session storage. Sessions idle for longer than the repo's max age are expired.
type Repo interface {
	// Create starts a new unauthenticated session
	Create(now time.Time) (*Session, error)

	// Get returns a live session and marks it as seen at now
	Get(id string, now time.Time) (*Session, error)

	// Delete removes a session by ID
	Delete(id string) error

	// DeleteExpired removes sessions not seen within the max age and returns how many went
	DeleteExpired(now time.Time) (int, error)
}
