// Package usecase contains the application-specific business rules.
// It orchestrates the domain layer to perform tasks.
package usecase

import (
	"context"

	"accounts/internal/domain/entity"

	"github.com/google/uuid"
)

// --- Input DTOs ---

// RegisterInput defines the data required to create an account.
type RegisterInput struct {
	Email             string
	Username          string
	Password          string
	ConfirmedPassword string
	FirstName         string
	LastName          string
}

// LoginInput defines the credentials for a login.
type LoginInput struct {
	Email    string
	Password string
}

// Updatable profile fields accepted by UpdateSelf.
const (
	FieldFirstName         = "firstName"
	FieldLastName          = "lastName"
	FieldUsername          = "username"
	FieldEmail             = "email"
	FieldPassword          = "password"
	FieldConfirmedPassword = "confirmedPassword"
)

// ProfileUpdate maps field names to their new values. Only the Field* keys are accepted.
type ProfileUpdate map[string]string

// --- Output DTOs ---

// AuthOutput is returned by operations that open a session.
type AuthOutput struct {
	Account *entity.Account
	Token   string
}

// AccountUsecase defines the account operations the delivery layer depends on.
type AccountUsecase interface {
	Register(ctx context.Context, input RegisterInput) (*AuthOutput, error)
	Login(ctx context.Context, input LoginInput) (*AuthOutput, error)
	Logout(ctx context.Context, accountID uuid.UUID, token string) error
	LogoutAll(ctx context.Context, accountID uuid.UUID) error
	GetSelf(ctx context.Context, accountID uuid.UUID) (*entity.Account, error)
	// GetByID returns any account; the email is withheld unless requester and target match.
	GetByID(ctx context.Context, requesterID, targetID uuid.UUID) (*entity.Account, error)
	UpdateSelf(ctx context.Context, accountID uuid.UUID, update ProfileUpdate) (*entity.Account, error)
	ResetPassword(ctx context.Context, email string) (*entity.Account, error)
	DeleteSelf(ctx context.Context, accountID uuid.UUID) (*entity.Account, error)
}
