package impl

import (
	"context"
	"testing"

	"accounts/internal/domain/entity"
	domainerrors "accounts/internal/domain/errors"
	"accounts/internal/errors"
	"accounts/internal/usecase"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAccountService_SessionLifecycle(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	registered := env.register(t, "a@x.com", "secret1")
	require.NotEmpty(t, registered.Token)

	account, err := env.sessions.Validate(ctx, registered.Token)
	require.NoError(t, err)
	assert.Equal(t, registered.Account.ID, account.ID)

	loggedIn, err := env.accounts.Login(ctx, usecase.LoginInput{Email: "a@x.com", Password: "secret1"})
	require.NoError(t, err)
	assert.NotEqual(t, registered.Token, loggedIn.Token)

	_, err = env.sessions.Validate(ctx, registered.Token)
	require.NoError(t, err)
	_, err = env.sessions.Validate(ctx, loggedIn.Token)
	require.NoError(t, err)

	require.NoError(t, env.accounts.Logout(ctx, account.ID, registered.Token))

	_, err = env.sessions.Validate(ctx, registered.Token)
	assert.ErrorIs(t, err, domainerrors.ErrInvalidToken)
	_, err = env.sessions.Validate(ctx, loggedIn.Token)
	require.NoError(t, err)

	require.NoError(t, env.accounts.LogoutAll(ctx, account.ID))

	_, err = env.sessions.Validate(ctx, loggedIn.Token)
	assert.ErrorIs(t, err, domainerrors.ErrInvalidToken)

	stored, err := env.repo.FindByID(ctx, account.ID)
	require.NoError(t, err)
	assert.Empty(t, stored.Tokens)
}

func TestAccountService_Register(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	out, err := env.accounts.Register(ctx, usecase.RegisterInput{
		Email:             "  new@x.com ",
		Username:          "newbie",
		Password:          "secret1",
		ConfirmedPassword: "secret1",
		FirstName:         "New",
		LastName:          "Person",
	})
	require.NoError(t, err)

	assert.Equal(t, "new@x.com", out.Account.Email)
	assert.Equal(t, "newbie", out.Account.Username)
	assert.Empty(t, out.Account.PasswordHash)
	assert.Empty(t, out.Account.Tokens)
	assert.Equal(t, uuid.Version(7), out.Account.ID.Version())

	stored, err := env.repo.FindByEmail(ctx, "new@x.com")
	require.NoError(t, err)
	require.Len(t, stored.Tokens, 1)
	assert.Equal(t, env.tokens.HashToken(out.Token), stored.Tokens[0].TokenHash)

	assert.Equal(t, []notification{{kind: "welcome", email: "new@x.com", username: "newbie"}}, env.notifier.notifications())
}

func TestAccountService_RegisterValidation(t *testing.T) {
	tests := []struct {
		name  string
		input usecase.RegisterInput
		want  error
	}{
		{
			name:  "missing email",
			input: usecase.RegisterInput{Password: "secret1", ConfirmedPassword: "secret1"},
			want:  domainerrors.ErrValidationFailed,
		},
		{
			name:  "malformed email",
			input: usecase.RegisterInput{Email: "not-an-email", Password: "secret1", ConfirmedPassword: "secret1"},
			want:  domainerrors.ErrValidationFailed,
		},
		{
			name:  "short password",
			input: usecase.RegisterInput{Email: "a@x.com", Password: "abc", ConfirmedPassword: "abc"},
			want:  domainerrors.ErrPasswordPolicy,
		},
		{
			name:  "forbidden password",
			input: usecase.RegisterInput{Email: "a@x.com", Password: " PassWord ", ConfirmedPassword: " PassWord "},
			want:  domainerrors.ErrPasswordPolicy,
		},
		{
			name:  "confirmation mismatch",
			input: usecase.RegisterInput{Email: "a@x.com", Password: "secret1", ConfirmedPassword: "secret2"},
			want:  domainerrors.ErrPasswordMismatch,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)

			_, err := env.accounts.Register(context.Background(), tt.input)
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.want)
			assert.Empty(t, env.notifier.notifications())
		})
	}
}

func TestAccountService_RegisterDuplicateEmail(t *testing.T) {
	env := newTestEnv(t)
	env.register(t, "dup@x.com", "secret1")

	_, err := env.accounts.Register(context.Background(), usecase.RegisterInput{
		Email:             "dup@x.com",
		Password:          "secret2",
		ConfirmedPassword: "secret2",
	})
	assert.ErrorIs(t, err, domainerrors.ErrEmailAlreadyExists)
	assert.Len(t, env.notifier.notifications(), 1)
}

func TestAccountService_LoginFailuresAreIndistinguishable(t *testing.T) {
	env := newTestEnv(t)
	env.register(t, "a@x.com", "secret1")
	ctx := context.Background()

	_, unknownErr := env.accounts.Login(ctx, usecase.LoginInput{Email: "b@x.com", Password: "secret1"})
	_, wrongErr := env.accounts.Login(ctx, usecase.LoginInput{Email: "a@x.com", Password: "secret2"})

	require.Error(t, unknownErr)
	require.Error(t, wrongErr)
	assert.ErrorIs(t, unknownErr, domainerrors.ErrInvalidCredentials)
	assert.ErrorIs(t, wrongErr, domainerrors.ErrInvalidCredentials)

	unknownApp, ok := errors.AsType[domainerrors.AppError](unknownErr)
	require.True(t, ok)
	wrongApp, ok := errors.AsType[domainerrors.AppError](wrongErr)
	require.True(t, ok)
	assert.Equal(t, unknownApp.Message(), wrongApp.Message())
	assert.Equal(t, "unable to login", wrongApp.Message())
}

func TestAccountService_GetByID(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	alice := env.register(t, "alice@x.com", "secret1")
	bob := env.register(t, "bob@x.com", "secret1")

	own, err := env.accounts.GetByID(ctx, alice.Account.ID, alice.Account.ID)
	require.NoError(t, err)
	assert.Equal(t, "alice@x.com", own.Email)
	assert.Empty(t, own.PasswordHash)
	assert.Empty(t, own.Tokens)

	other, err := env.accounts.GetByID(ctx, alice.Account.ID, bob.Account.ID)
	require.NoError(t, err)
	assert.Empty(t, other.Email)
	assert.Equal(t, bob.Account.Username, other.Username)

	_, err = env.accounts.GetByID(ctx, alice.Account.ID, uuid.New())
	assert.ErrorIs(t, err, domainerrors.ErrAccountNotFound)
}

func TestAccountService_UpdateSelf(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	registered := env.register(t, "a@x.com", "secret1")
	id := registered.Account.ID

	updated, err := env.accounts.UpdateSelf(ctx, id, usecase.ProfileUpdate{
		usecase.FieldFirstName: "Ada",
		usecase.FieldLastName:  "Lovelace",
		usecase.FieldEmail:     "ada@x.com",
	})
	require.NoError(t, err)
	assert.Equal(t, "Ada", updated.FirstName)
	assert.Equal(t, "Lovelace", updated.LastName)
	assert.Equal(t, "ada@x.com", updated.Email)
	assert.False(t, updated.UpdatedAt.Before(registered.Account.UpdatedAt))

	_, err = env.repo.FindByEmail(ctx, "a@x.com")
	assert.ErrorIs(t, err, domainerrors.ErrAccountNotFound)

	_, err = env.accounts.UpdateSelf(ctx, id, usecase.ProfileUpdate{
		usecase.FieldPassword:          "another1",
		usecase.FieldConfirmedPassword: "another1",
	})
	require.NoError(t, err)

	_, err = env.accounts.Login(ctx, usecase.LoginInput{Email: "ada@x.com", Password: "another1"})
	require.NoError(t, err)

	// Existing sessions survive a password change.
	_, err = env.sessions.Validate(ctx, registered.Token)
	assert.NoError(t, err)
}

func TestAccountService_UpdateSelfRejectsWholeRequest(t *testing.T) {
	tests := []struct {
		name   string
		update usecase.ProfileUpdate
		want   error
	}{
		{name: "empty payload", update: usecase.ProfileUpdate{}, want: domainerrors.ErrValidationFailed},
		{name: "unknown field", update: usecase.ProfileUpdate{"firstName": "Ada", "role": "admin"}, want: domainerrors.ErrUnknownField},
		{name: "password hash field", update: usecase.ProfileUpdate{"passwordHash": "x"}, want: domainerrors.ErrUnknownField},
		{name: "empty email", update: usecase.ProfileUpdate{"firstName": "Ada", "email": ""}, want: domainerrors.ErrValidationFailed},
		{name: "invalid email", update: usecase.ProfileUpdate{"email": "nope"}, want: domainerrors.ErrValidationFailed},
		{name: "weak password", update: usecase.ProfileUpdate{"password": "abc", "confirmedPassword": "abc"}, want: domainerrors.ErrPasswordPolicy},
		{name: "mismatched password", update: usecase.ProfileUpdate{"password": "secret9", "confirmedPassword": "secret8"}, want: domainerrors.ErrPasswordMismatch},
		{name: "confirmation alone", update: usecase.ProfileUpdate{"confirmedPassword": "secret9"}, want: domainerrors.ErrValidationFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)
			ctx := context.Background()
			registered := env.register(t, "a@x.com", "secret1")
			before, err := env.repo.FindByID(ctx, registered.Account.ID)
			require.NoError(t, err)

			_, err = env.accounts.UpdateSelf(ctx, registered.Account.ID, tt.update)
			assert.ErrorIs(t, err, tt.want)

			stored, err := env.repo.FindByID(ctx, registered.Account.ID)
			require.NoError(t, err)
			assert.Empty(t, stored.FirstName)
			assert.Equal(t, "a@x.com", stored.Email)
			assert.Equal(t, before.PasswordHash, stored.PasswordHash)
		})
	}
}

func TestAccountService_UpdateSelfDuplicateEmail(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.register(t, "taken@x.com", "secret1")
	registered := env.register(t, "a@x.com", "secret1")

	_, err := env.accounts.UpdateSelf(ctx, registered.Account.ID, usecase.ProfileUpdate{
		usecase.FieldEmail:     "taken@x.com",
		usecase.FieldFirstName: "Ada",
	})
	assert.ErrorIs(t, err, domainerrors.ErrEmailAlreadyExists)

	stored, err := env.repo.FindByID(ctx, registered.Account.ID)
	require.NoError(t, err)
	assert.Empty(t, stored.FirstName)
}

func TestAccountService_ResetPassword(t *testing.T) {
	env := newTestEnv(t, withGenerator(fixedPasswordGenerator{password: "Generated#42abc"}))
	ctx := context.Background()
	registered := env.register(t, "a@x.com", "secret1")

	account, err := env.accounts.ResetPassword(ctx, "a@x.com")
	require.NoError(t, err)
	assert.Equal(t, registered.Account.ID, account.ID)

	_, err = env.accounts.Login(ctx, usecase.LoginInput{Email: "a@x.com", Password: "secret1"})
	assert.ErrorIs(t, err, domainerrors.ErrInvalidCredentials)

	_, err = env.accounts.Login(ctx, usecase.LoginInput{Email: "a@x.com", Password: "Generated#42abc"})
	require.NoError(t, err)

	sent := env.notifier.notifications()
	require.Len(t, sent, 2)
	assert.Equal(t, notification{
		kind:     "password_reset",
		email:    "a@x.com",
		username: registered.Account.Username,
		password: "Generated#42abc",
	}, sent[1])
}

func TestAccountService_ResetPasswordUnknownEmail(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.accounts.ResetPassword(context.Background(), "ghost@x.com")
	require.Error(t, err)
	assert.ErrorIs(t, err, domainerrors.ErrAccountNotFound)

	appErr, ok := errors.AsType[domainerrors.AppError](err)
	require.True(t, ok)
	assert.Equal(t, "unable to reset password", appErr.Message())
	assert.Empty(t, env.notifier.notifications())
}

func TestAccountService_ResetPasswordGeneratorFailure(t *testing.T) {
	env := newTestEnv(t, withGenerator(fixedPasswordGenerator{err: errors.New("entropy exhausted")}))
	env.register(t, "a@x.com", "secret1")

	_, err := env.accounts.ResetPassword(context.Background(), "a@x.com")
	assert.ErrorIs(t, err, domainerrors.ErrInternalError)
	assert.Len(t, env.notifier.notifications(), 1)
}

func TestAccountService_DeleteSelf(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	registered := env.register(t, "a@x.com", "secret1")

	deleted, err := env.accounts.DeleteSelf(ctx, registered.Account.ID)
	require.NoError(t, err)
	assert.Equal(t, "a@x.com", deleted.Email)

	_, err = env.accounts.GetSelf(ctx, registered.Account.ID)
	assert.ErrorIs(t, err, domainerrors.ErrAccountNotFound)

	_, err = env.sessions.Validate(ctx, registered.Token)
	assert.ErrorIs(t, err, domainerrors.ErrInvalidToken)

	sent := env.notifier.notifications()
	require.Len(t, sent, 2)
	assert.Equal(t, "cancelation", sent[1].kind)
	assert.Equal(t, "a@x.com", sent[1].email)

	_, err = env.accounts.DeleteSelf(ctx, registered.Account.ID)
	assert.ErrorIs(t, err, domainerrors.ErrAccountNotFound)
	assert.Len(t, env.notifier.notifications(), 2)
}

func TestAccountService_ReturnedAccountsCarryNoSecrets(t *testing.T) {
	env := newTestEnv(t, withGenerator(fixedPasswordGenerator{password: "Generated#42abc"}))
	ctx := context.Background()
	registered := env.register(t, "a@x.com", "secret1")
	other := env.register(t, "b@x.com", "secret1")
	id := registered.Account.ID

	stored, err := env.repo.FindByID(ctx, id)
	require.NoError(t, err)
	require.NotEmpty(t, stored.PasswordHash)
	require.NotEmpty(t, stored.Tokens)

	tests := []struct {
		name string
		call func() (*entity.Account, error)
	}{
		{name: "register", call: func() (*entity.Account, error) { return registered.Account, nil }},
		{name: "login", call: func() (*entity.Account, error) {
			out, err := env.accounts.Login(ctx, usecase.LoginInput{Email: "b@x.com", Password: "secret1"})
			if err != nil {
				return nil, err
			}

			return out.Account, nil
		}},
		{name: "get self", call: func() (*entity.Account, error) { return env.accounts.GetSelf(ctx, id) }},
		{name: "get by id", call: func() (*entity.Account, error) { return env.accounts.GetByID(ctx, other.Account.ID, id) }},
		{name: "update self", call: func() (*entity.Account, error) {
			return env.accounts.UpdateSelf(ctx, id, usecase.ProfileUpdate{usecase.FieldFirstName: "Ada"})
		}},
		{name: "reset password", call: func() (*entity.Account, error) { return env.accounts.ResetPassword(ctx, "a@x.com") }},
		{name: "delete self", call: func() (*entity.Account, error) { return env.accounts.DeleteSelf(ctx, id) }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			account, err := tt.call()
			require.NoError(t, err)
			require.NotNil(t, account)
			assert.Empty(t, account.PasswordHash)
			assert.Empty(t, account.Tokens)
		})
	}
}
