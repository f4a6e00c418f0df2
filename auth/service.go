package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/jrsteele09/go-strava-proxy/activities"
	apperrors "github.com/jrsteele09/go-strava-proxy/internal/errors"
	"github.com/jrsteele09/go-strava-proxy/sessions"
	"github.com/jrsteele09/go-strava-proxy/token"
	"github.com/rs/zerolog/log"
)

// ActivityFetcher runs the activity pipeline for one credential
type ActivityFetcher interface {
	Run(ctx context.Context, cred *token.Credential, pageSize int) (*activities.Result, error)
}

// Service is the surface the HTTP layer talks to. It owns the session lifecycle:
// login, keeping the credential valid, tearing it down when the provider stops accepting it.
type Service struct {
	tokens   *token.Manager
	pipeline ActivityFetcher
}

func NewService(tokens *token.Manager, pipeline ActivityFetcher) (*Service, error) {
	if tokens == nil {
		return nil, errors.New("[auth NewService] token manager is required")
	}
	if pipeline == nil {
		return nil, errors.New("[auth NewService] activity pipeline is required")
	}
	return &Service{
		tokens:   tokens,
		pipeline: pipeline,
	}, nil
}

// AuthorizationURL returns the provider consent URL carrying state
func (s *Service) AuthorizationURL(state string) string {
	return s.tokens.AuthCodeURL(state)
}

// CompleteLogin exchanges code and stores the resulting credential on the session.
// A failed exchange leaves the session with no credential.
func (s *Service) CompleteLogin(ctx context.Context, sess *sessions.Session, code string) error {
	cred, err := s.tokens.ExchangeCode(ctx, code)
	if err != nil {
		sess.Tokens.Clear()
		return fmt.Errorf("[auth CompleteLogin] %w", err)
	}
	if err := sess.Tokens.Set(*cred); err != nil {
		sess.Tokens.Clear()
		return fmt.Errorf("[auth CompleteLogin] %w", apperrors.Mark(apperrors.ErrTokenExchangeFailed, err))
	}

	log.Info().Str("session", sess.ID).Time("expires_at", cred.ExpiresAt).Msg("Session authenticated")
	return nil
}

// Activities returns the session's most recent activities with details.
//
// The credential is made valid before anything is fetched. If the provider answers 401
// the credential used is dropped so the next call on this session fails without a request.
func (s *Service) Activities(ctx context.Context, sess *sessions.Session, pageSize int) ([]activities.Record, error) {
	cred, err := s.tokens.EnsureValid(ctx, sess.Tokens, s.tokens.Now())
	if err != nil {
		return nil, fmt.Errorf("[auth Activities] %w", err)
	}

	res, err := s.pipeline.Run(ctx, cred, pageSize)
	if err != nil {
		if errors.Is(err, apperrors.ErrUnauthorized) {
			s.dropCredential(sess, cred)
		}
		return nil, fmt.Errorf("[auth Activities] %w", err)
	}
	// details already fell back to summaries; the batch is still served
	if res.Unauthorized {
		s.dropCredential(sess, cred)
	}
	return res.Records, nil
}

func (s *Service) dropCredential(sess *sessions.Session, cred *token.Credential) {
	if sess.Tokens.CompareAndSwap(cred, nil) {
		log.Warn().Str("session", sess.ID).Msg("Provider rejected access token, session cleared")
	}
}

// Logout drops the session's credential. The provider grant itself is left alone.
func (s *Service) Logout(sess *sessions.Session) {
	sess.Tokens.Clear()
}

// State reports the session's credential state now
func (s *Service) State(sess *sessions.Session) sessions.State {
	return sess.State(s.tokens.Now())
}
