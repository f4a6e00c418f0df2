package server

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
)

// RunCleanup sweeps idle sessions and abandoned login states every interval until ctx is done
func (s *Server) RunCleanup(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.cleanup()
		}
	}
}

func (s *Server) cleanup() {
	now := s.now()
	sessionsRemoved, err := s.sessions.DeleteExpired(now)
	if err != nil {
		log.Warn().Err(err).Msg("Session cleanup failed")
	}
	statesRemoved := s.authState.DeleteExpired(now.Add(-authStateTTL))
	if sessionsRemoved > 0 || statesRemoved > 0 {
		log.Debug().Int("sessions", sessionsRemoved).Int("auth_states", statesRemoved).Msg("Cleanup")
	}
}
