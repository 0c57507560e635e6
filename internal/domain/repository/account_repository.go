// Package repository defines the interfaces for the persistence layer.
// These interfaces act as a contract between the domain/application layers and the infrastructure layer.
package repository

import (
	"context"

	"accounts/internal/domain/entity"

	"github.com/google/uuid"
)

// AccountRepository defines the persistence operations for accounts and their session collections.
// Lookups that find nothing return domainerrors.ErrAccountNotFound; infrastructure failures
// return a domainerrors.DatabaseExecuteError.
type AccountRepository interface {
	// Insert persists a new account with its initial sessions.
	// Returns domainerrors.ErrEmailAlreadyExists when the email is taken.
	Insert(ctx context.Context, account *entity.Account) error

	// FindByID retrieves an account with its sessions.
	FindByID(ctx context.Context, id uuid.UUID) (*entity.Account, error)

	// FindByEmail retrieves an account with its sessions by exact email.
	FindByEmail(ctx context.Context, email string) (*entity.Account, error)

	// LockByID retrieves an account and holds an exclusive lock on it until the
	// surrounding transaction ends. Only meaningful inside TransactionManager.Execute.
	LockByID(ctx context.Context, id uuid.UUID) (*entity.Account, error)

	// Update replaces the stored profile fields, password hash and session collection.
	Update(ctx context.Context, account *entity.Account) error

	// Delete removes the account and, with it, every session.
	Delete(ctx context.Context, id uuid.UUID) error
}
