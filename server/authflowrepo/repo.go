package authflowrepo

import "time"

// AuthFlowState ties an outstanding authorization request to the session that started it
type AuthFlowState struct {
	SessionID string
	CreatedAt time.Time
}

type Repo interface {
	Upsert(state string, authState *AuthFlowState) error
	Get(state string) (*AuthFlowState, error)
	Delete(state string) error
	// DeleteExpired removes states created before cutoff and returns how many went
	DeleteExpired(cutoff time.Time) int
}
