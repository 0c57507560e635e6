package impl

import (
	"context"
	"sync"
	"testing"
	"time"

	domainerrors "accounts/internal/domain/errors"
	"accounts/internal/usecase"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSessionService_ValidateRejects(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	registered := env.register(t, "a@x.com", "secret1")

	tests := []struct {
		name  string
		token string
	}{
		{name: "empty", token: ""},
		{name: "garbage", token: "not-a-token"},
		{name: "tampered", token: registered.Token + "x"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.sessions.Validate(ctx, tt.token)
			assert.ErrorIs(t, err, domainerrors.ErrInvalidToken)
		})
	}
}

func TestSessionService_ValidateRequiresStoredHash(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	registered := env.register(t, "a@x.com", "secret1")

	// Correctly signed for the account but never attached to it.
	issued, err := env.tokens.Issue(registered.Account.ID)
	require.NoError(t, err)

	_, err = env.sessions.Validate(ctx, issued.Token)
	assert.ErrorIs(t, err, domainerrors.ErrInvalidToken)

	// Signed for an account that does not exist.
	orphan, err := env.tokens.Issue(uuid.New())
	require.NoError(t, err)

	_, err = env.sessions.Validate(ctx, orphan.Token)
	assert.ErrorIs(t, err, domainerrors.ErrInvalidToken)
}

func TestSessionService_ValidateStoreUnavailable(t *testing.T) {
	env := newTestEnv(t)
	registered := env.register(t, "a@x.com", "secret1")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := env.sessions.Validate(ctx, registered.Token)
	require.Error(t, err)
	assert.NotErrorIs(t, err, domainerrors.ErrInvalidToken)
	assert.True(t, domainerrors.IsStoreUnavailable(err))
}

func TestSessionService_RevokeIsIdempotent(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	registered := env.register(t, "a@x.com", "secret1")
	id := registered.Account.ID

	require.NoError(t, env.sessions.Revoke(ctx, id, registered.Token))
	require.NoError(t, env.sessions.Revoke(ctx, id, registered.Token))
	require.NoError(t, env.sessions.Revoke(ctx, id, "never-issued"))
	require.NoError(t, env.sessions.RevokeAll(ctx, id))

	_, err := env.sessions.Issue(ctx, uuid.New())
	assert.ErrorIs(t, err, domainerrors.ErrAccountNotFound)
}

func TestSessionService_SessionLimit(t *testing.T) {
	env := newTestEnv(t, withMaxActiveSessions(2))
	ctx := context.Background()
	registered := env.register(t, "a@x.com", "secret1")

	_, err := env.accounts.Login(ctx, usecase.LoginInput{Email: "a@x.com", Password: "secret1"})
	require.NoError(t, err)

	_, err = env.accounts.Login(ctx, usecase.LoginInput{Email: "a@x.com", Password: "secret1"})
	assert.ErrorIs(t, err, domainerrors.ErrSessionLimitExceeded)

	require.NoError(t, env.accounts.Logout(ctx, registered.Account.ID, registered.Token))

	_, err = env.accounts.Login(ctx, usecase.LoginInput{Email: "a@x.com", Password: "secret1"})
	assert.NoError(t, err)
}

func TestSessionService_ConcurrentLoginsRespectLimit(t *testing.T) {
	const (
		limit    = 5
		attempts = 20
	)

	env := newTestEnv(t, withMaxActiveSessions(limit))
	ctx := context.Background()
	registered := env.register(t, "a@x.com", "secret1")

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		success  int
		rejected int
	)
	for range attempts {
		wg.Add(1)
		go func() {
			defer wg.Done()

			_, err := env.sessions.Issue(ctx, registered.Account.ID)

			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				success++
			case assert.ErrorIs(t, err, domainerrors.ErrSessionLimitExceeded):
				rejected++
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, limit-1, success)
	assert.Equal(t, attempts-limit+1, rejected)

	stored, err := env.repo.FindByID(ctx, registered.Account.ID)
	require.NoError(t, err)
	assert.Len(t, stored.Tokens, limit)
}

func TestSessionService_ConcurrentLoginAndLogoutLoseNothing(t *testing.T) {
	const sessions = 15

	env := newTestEnv(t)
	ctx := context.Background()
	registered := env.register(t, "a@x.com", "secret1")
	id := registered.Account.ID

	existing := make([]string, 0, sessions)
	for range sessions {
		token, err := env.sessions.Issue(ctx, id)
		require.NoError(t, err)
		existing = append(existing, token)
	}

	var (
		wg     sync.WaitGroup
		mu     sync.Mutex
		issued []string
	)
	for _, token := range existing {
		wg.Add(2)
		go func() {
			defer wg.Done()
			assert.NoError(t, env.sessions.Revoke(ctx, id, token))
		}()
		go func() {
			defer wg.Done()

			fresh, err := env.sessions.Issue(ctx, id)
			if assert.NoError(t, err) {
				mu.Lock()
				issued = append(issued, fresh)
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	stored, err := env.repo.FindByID(ctx, id)
	require.NoError(t, err)
	assert.Len(t, stored.Tokens, sessions+1)

	for _, token := range existing {
		_, err := env.sessions.Validate(ctx, token)
		assert.ErrorIs(t, err, domainerrors.ErrInvalidToken)
	}
	for _, token := range append(issued, registered.Token) {
		_, err := env.sessions.Validate(ctx, token)
		assert.NoError(t, err)
	}
}

func TestSessionService_ExpiredSessionsArePruned(t *testing.T) {
	env := newTestEnv(t, withSessionTTL(time.Hour))
	ctx := context.Background()
	registered := env.register(t, "a@x.com", "secret1")

	_, err := env.sessions.Issue(ctx, registered.Account.ID)
	require.NoError(t, err)

	srv, ok := env.sessions.(*sessionService)
	require.True(t, ok)
	srv.now = func() time.Time { return time.Now().Add(2 * time.Hour) }

	_, err = env.sessions.Issue(ctx, registered.Account.ID)
	require.NoError(t, err)

	stored, err := env.repo.FindByID(ctx, registered.Account.ID)
	require.NoError(t, err)
	require.Len(t, stored.Tokens, 1)
	require.NotNil(t, stored.Tokens[0].ExpiresAt)
}
