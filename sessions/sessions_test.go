package sessions_test

import (
	"testing"
	"time"

	apperrors "github.com/jrsteele09/go-strava-proxy/internal/errors"
	"github.com/jrsteele09/go-strava-proxy/sessions"
	"github.com/jrsteele09/go-strava-proxy/token"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func TestSession_State(t *testing.T) {
	sess := sessions.New("abc", t0)
	assert.Equal(t, sessions.Unauthenticated, sess.State(t0))
	assert.Equal(t, "abc", sess.Tokens.Key())

	require.NoError(t, sess.Tokens.Set(token.Credential{
		AccessToken:  "access-1",
		RefreshToken: "refresh-1",
		ExpiresAt:    t0.Add(time.Hour),
	}))
	assert.Equal(t, sessions.AuthenticatedValid, sess.State(t0))
	assert.Equal(t, sessions.AuthenticatedExpired, sess.State(t0.Add(time.Hour)))
	assert.Equal(t, "authenticated_expired", sess.State(t0.Add(2*time.Hour)).String())

	sess.Tokens.Clear()
	assert.Equal(t, sessions.Unauthenticated, sess.State(t0))
}

func TestInMemoryRepo(t *testing.T) {
	t.Run("create and get", func(t *testing.T) {
		repo := sessions.NewInMemoryRepo(time.Hour)
		sess, err := repo.Create(t0)
		require.NoError(t, err)
		require.NotEmpty(t, sess.ID)

		got, err := repo.Get(sess.ID, t0.Add(30*time.Minute))
		require.NoError(t, err)
		assert.Same(t, sess, got)
		assert.Equal(t, t0.Add(30*time.Minute), got.LastSeen)
	})

	t.Run("sessions are independent", func(t *testing.T) {
		repo := sessions.NewInMemoryRepo(time.Hour)
		a, err := repo.Create(t0)
		require.NoError(t, err)
		b, err := repo.Create(t0)
		require.NoError(t, err)
		require.NotEqual(t, a.ID, b.ID)

		require.NoError(t, a.Tokens.Set(token.Credential{AccessToken: "a", RefreshToken: "r", ExpiresAt: t0.Add(time.Hour)}))
		assert.Nil(t, b.Tokens.Get())
	})

	t.Run("unknown id", func(t *testing.T) {
		repo := sessions.NewInMemoryRepo(time.Hour)
		_, err := repo.Get("missing", t0)
		assert.ErrorIs(t, err, apperrors.ErrSessionNotFound)
		_, err = repo.Get("", t0)
		assert.ErrorIs(t, err, apperrors.ErrSessionNotFound)
	})

	t.Run("idle session expires", func(t *testing.T) {
		repo := sessions.NewInMemoryRepo(time.Hour)
		sess, err := repo.Create(t0)
		require.NoError(t, err)

		_, err = repo.Get(sess.ID, t0.Add(2*time.Hour))
		assert.ErrorIs(t, err, apperrors.ErrSessionExpired)
		_, err = repo.Get(sess.ID, t0)
		assert.ErrorIs(t, err, apperrors.ErrSessionNotFound)
	})

	t.Run("activity extends the session", func(t *testing.T) {
		repo := sessions.NewInMemoryRepo(time.Hour)
		sess, err := repo.Create(t0)
		require.NoError(t, err)

		for i := 1; i <= 3; i++ {
			_, err = repo.Get(sess.ID, t0.Add(time.Duration(i)*50*time.Minute))
			require.NoError(t, err)
		}
	})

	t.Run("delete expired", func(t *testing.T) {
		repo := sessions.NewInMemoryRepo(time.Hour)
		old, err := repo.Create(t0)
		require.NoError(t, err)
		fresh, err := repo.Create(t0.Add(90 * time.Minute))
		require.NoError(t, err)

		removed, err := repo.DeleteExpired(t0.Add(2 * time.Hour))
		require.NoError(t, err)
		assert.Equal(t, 1, removed)
		assert.Equal(t, 1, repo.Len())

		_, err = repo.Get(old.ID, t0.Add(2*time.Hour))
		assert.Error(t, err)
		_, err = repo.Get(fresh.ID, t0.Add(2*time.Hour))
		assert.NoError(t, err)
	})

	t.Run("delete", func(t *testing.T) {
		repo := sessions.NewInMemoryRepo(0)
		sess, err := repo.Create(t0)
		require.NoError(t, err)
		require.NoError(t, repo.Delete(sess.ID))
		require.NoError(t, repo.Delete(sess.ID))
		_, err = repo.Get(sess.ID, t0.Add(24*365*time.Hour))
		assert.ErrorIs(t, err, apperrors.ErrSessionNotFound)
	})
}
