package token

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/jrsteele09/go-strava-proxy/internal/config"
	apperrors "github.com/jrsteele09/go-strava-proxy/internal/errors"
	"github.com/jrsteele09/go-strava-proxy/internal/metrics"
	"github.com/rs/zerolog/log"
	"golang.org/x/oauth2"
	"golang.org/x/sync/singleflight"
)

const defaultTimeout = 10 * time.Second

// Manager exchanges authorization codes and refresh tokens at the provider's token endpoint
// and keeps session credentials valid at the point of use.
type Manager struct {
	oauth      *oauth2.Config
	scopes     []string
	httpClient *http.Client
	timeout    time.Duration
	nowFunc    func() time.Time

	// one in-flight refresh per store key
	refreshes singleflight.Group
}

type ManagerOption func(*Manager)

func WithNowFunc(now func() time.Time) ManagerOption {
	return func(m *Manager) {
		m.nowFunc = now
	}
}

func WithHTTPClient(client *http.Client) ManagerOption {
	return func(m *Manager) {
		m.httpClient = client
	}
}

// WithTimeout bounds each exchange or refresh. A timed out call fails like a non-2xx response.
func WithTimeout(timeout time.Duration) ManagerOption {
	return func(m *Manager) {
		m.timeout = timeout
	}
}

func NewManager(cfg config.OAuthConfig, options ...ManagerOption) *Manager {
	m := &Manager{
		oauth: &oauth2.Config{
			ClientID:     cfg.GetClientID(),
			ClientSecret: cfg.GetClientSecret(),
			RedirectURL:  cfg.GetRedirectURI(),
			Endpoint: oauth2.Endpoint{
				AuthURL:   cfg.GetAuthURL(),
				TokenURL:  cfg.GetTokenURL(),
				AuthStyle: oauth2.AuthStyleInParams,
			},
		},
		scopes:  cfg.GetScopes(),
		timeout: cfg.GetTokenTimeout(),
	}

	for _, opt := range options {
		opt(m)
	}

	if m.timeout <= 0 {
		m.timeout = defaultTimeout
	}
	if m.httpClient == nil {
		m.httpClient = &http.Client{Timeout: m.timeout}
	}
	if m.nowFunc == nil {
		m.nowFunc = time.Now
	}
	return m
}

// Now returns the manager's clock reading
func (m *Manager) Now() time.Time {
	return m.nowFunc()
}

// AuthCodeURL builds the provider consent URL. Strava wants the scopes comma separated
// and approval_prompt=force so the user always sees the consent screen.
func (m *Manager) AuthCodeURL(state string) string {
	return m.oauth.AuthCodeURL(state,
		oauth2.SetAuthURLParam("approval_prompt", "force"),
		oauth2.SetAuthURLParam("scope", strings.Join(m.scopes, ",")),
	)
}

// ExchangeCode trades a single-use authorization code for a Credential.
// Every failure, including timeouts, is ErrTokenExchangeFailed and is never retried here.
func (m *Manager) ExchangeCode(ctx context.Context, code string) (*Credential, error) {
	if code == "" {
		metrics.RecordTokenExchange(metrics.OutcomeFailed)
		return nil, fmt.Errorf("[token ExchangeCode] %w", apperrors.Mark(apperrors.ErrTokenExchangeFailed, errors.New("empty authorization code")))
	}

	ctx, cancel := m.tokenContext(ctx)
	defer cancel()

	tok, err := m.oauth.Exchange(ctx, code)
	if err != nil {
		metrics.RecordTokenExchange(outcome(err))
		return nil, fmt.Errorf("[token ExchangeCode] %w", apperrors.Mark(apperrors.ErrTokenExchangeFailed, providerError(err)))
	}

	cred, err := credentialFromToken(tok)
	if err != nil {
		metrics.RecordTokenExchange(metrics.OutcomeFailed)
		return nil, fmt.Errorf("[token ExchangeCode] %w", apperrors.Mark(apperrors.ErrTokenExchangeFailed, err))
	}

	metrics.RecordTokenExchange(metrics.OutcomeSuccess)
	return cred, nil
}

// Refresh trades cred's refresh token for a new Credential. The returned Credential carries
// whatever refresh token the provider issued, so a rotated token is always adopted.
func (m *Manager) Refresh(ctx context.Context, cred *Credential) (*Credential, error) {
	if cred == nil || cred.RefreshToken == "" {
		metrics.RecordTokenRefresh(metrics.OutcomeFailed)
		return nil, fmt.Errorf("[token Refresh] %w", apperrors.Mark(apperrors.ErrRefreshFailed, errors.New("no refresh token")))
	}

	ctx, cancel := m.tokenContext(ctx)
	defer cancel()

	// An empty access token forces the source to go to the token endpoint.
	src := m.oauth.TokenSource(ctx, &oauth2.Token{RefreshToken: cred.RefreshToken})
	tok, err := src.Token()
	if err != nil {
		metrics.RecordTokenRefresh(outcome(err))
		return nil, fmt.Errorf("[token Refresh] %w", apperrors.Mark(apperrors.ErrRefreshFailed, providerError(err)))
	}

	fresh, err := credentialFromToken(tok)
	if err != nil {
		metrics.RecordTokenRefresh(metrics.OutcomeFailed)
		return nil, fmt.Errorf("[token Refresh] %w", apperrors.Mark(apperrors.ErrRefreshFailed, err))
	}

	metrics.RecordTokenRefresh(metrics.OutcomeSuccess)
	return fresh, nil
}

// EnsureValid returns a Credential that is valid at now.
//
// An empty store fails with ErrUnauthorized without touching the network and a valid
// Credential is returned as is. An expired one is refreshed exactly once; concurrent callers
// for the same store wait on that single refresh and share its result. If the refresh fails
// the store is cleared and the error is ErrUnauthorized wrapping ErrRefreshFailed.
func (m *Manager) EnsureValid(ctx context.Context, store *Store, now time.Time) (*Credential, error) {
	cred := store.Get()
	if cred == nil {
		return nil, fmt.Errorf("[token EnsureValid] %w", apperrors.ErrUnauthorized)
	}
	if !cred.IsExpired(now) {
		return cred, nil
	}

	// The shared refresh must outlive any one caller giving up; it is still bounded by m.timeout.
	flightCtx := context.WithoutCancel(ctx)
	results := m.refreshes.DoChan(store.Key(), func() (interface{}, error) {
		return m.refreshStore(flightCtx, store, now)
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-results:
		if res.Err != nil {
			return nil, res.Err
		}
		shared := *res.Val.(*Credential)
		return &shared, nil
	}
}

func (m *Manager) refreshStore(ctx context.Context, store *Store, now time.Time) (*Credential, error) {
	current := store.Get()
	if current == nil {
		return nil, fmt.Errorf("[token EnsureValid] %w", apperrors.ErrUnauthorized)
	}
	// a flight that finished just before this one may already have refreshed the store
	if !current.IsExpired(now) {
		return current, nil
	}

	fresh, err := m.Refresh(ctx, current)
	if err != nil {
		// only clear the credential that failed; a concurrent login may have replaced it
		store.CompareAndSwap(current, nil)
		log.Warn().Err(err).Str("session", store.Key()).Msg("Refresh failed, session cleared")
		return nil, fmt.Errorf("[token EnsureValid] %w", apperrors.Mark(apperrors.ErrUnauthorized, err))
	}

	if !store.CompareAndSwap(current, fresh) {
		if latest := store.Get(); latest != nil && !latest.IsExpired(now) {
			return latest, nil
		}
		return nil, fmt.Errorf("[token EnsureValid] session changed during refresh: %w", apperrors.ErrUnauthorized)
	}

	log.Debug().Str("session", store.Key()).Time("expires_at", fresh.ExpiresAt).Msg("Access token refreshed")
	return fresh, nil
}

func (m *Manager) tokenContext(ctx context.Context) (context.Context, context.CancelFunc) {
	ctx = context.WithValue(ctx, oauth2.HTTPClient, m.httpClient)
	return context.WithTimeout(ctx, m.timeout)
}

// credentialFromToken prefers the provider's absolute expires_at over the
// expires_in derived expiry computed by the oauth2 package.
func credentialFromToken(tok *oauth2.Token) (*Credential, error) {
	cred := &Credential{
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
		ExpiresAt:    tok.Expiry,
	}
	if expiresAt, ok := unixSeconds(tok.Extra("expires_at")); ok {
		cred.ExpiresAt = time.Unix(expiresAt, 0)
	}
	if err := cred.Validate(); err != nil {
		return nil, err
	}
	return cred, nil
}

func unixSeconds(v interface{}) (int64, bool) {
	switch n := v.(type) {
	case float64:
		return int64(n), n > 0
	case int64:
		return n, n > 0
	case int:
		return int64(n), n > 0
	case json.Number:
		i, err := n.Int64()
		return i, err == nil && i > 0
	case string:
		i, err := strconv.ParseInt(n, 10, 64)
		return i, err == nil && i > 0
	}
	return 0, false
}

func providerError(err error) error {
	var retrieveErr *oauth2.RetrieveError
	if errors.As(err, &retrieveErr) && retrieveErr.Response != nil {
		return &apperrors.ProviderError{
			Status: retrieveErr.Response.StatusCode,
			Body:   string(retrieveErr.Body),
		}
	}
	return err
}

func outcome(err error) string {
	if errors.Is(err, context.DeadlineExceeded) {
		return metrics.OutcomeTimeout
	}
	return metrics.OutcomeFailed
}
