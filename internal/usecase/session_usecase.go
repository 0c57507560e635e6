package usecase

import (
	"context"

	"accounts/internal/domain/entity"

	"github.com/google/uuid"
)

// SessionUsecase issues, validates and revokes session tokens bound to an account.
type SessionUsecase interface {
	// AttachNew issues a token and appends it to an account that is not yet persisted.
	AttachNew(account *entity.Account) (string, error)
	// Issue opens a new session on a stored account.
	Issue(ctx context.Context, accountID uuid.UUID) (string, error)
	// Validate resolves a token to its account, failing with ErrInvalidToken.
	Validate(ctx context.Context, token string) (*entity.Account, error)
	// Revoke removes one session; unknown tokens are ignored.
	Revoke(ctx context.Context, accountID uuid.UUID, token string) error
	// RevokeAll removes every session of the account.
	RevokeAll(ctx context.Context, accountID uuid.UUID) error
}
