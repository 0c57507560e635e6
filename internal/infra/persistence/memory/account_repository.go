package memory

import (
	"context"
	"time"

	"accounts/internal/domain/entity"
	domainerrors "accounts/internal/domain/errors"

	"github.com/google/uuid"
)

type accountRepository struct {
	store   *Store
	journal *journal // nil outside a transaction
}

func checkContext(ctx context.Context, op string) error {
	if err := ctx.Err(); err != nil {
		return domainerrors.NewDatabaseExecuteError(err, op)
	}

	return nil
}

func (r *accountRepository) Insert(ctx context.Context, account *entity.Account) error {
	if err := checkContext(ctx, "failed to insert account"); err != nil {
		return err
	}

	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, taken := s.emails[account.Email]; taken {
		return domainerrors.ErrEmailAlreadyExists
	}
	if _, exists := s.accounts[account.ID]; exists {
		return domainerrors.ErrValidationFailed.WithDetails("account id already exists")
	}

	now := time.Now().UTC()
	if account.CreatedAt.IsZero() {
		account.CreatedAt = now
	}
	account.UpdatedAt = now

	r.journal.record(account.ID, nil)
	s.accounts[account.ID] = cloneAccount(account)
	s.emails[account.Email] = account.ID

	return nil
}

func (r *accountRepository) FindByID(ctx context.Context, id uuid.UUID) (*entity.Account, error) {
	if err := checkContext(ctx, "failed to find account"); err != nil {
		return nil, err
	}

	s := r.store
	s.mu.RLock()
	defer s.mu.RUnlock()

	account, ok := s.accounts[id]
	if !ok {
		return nil, domainerrors.ErrAccountNotFound
	}

	return cloneAccount(account), nil
}

func (r *accountRepository) FindByEmail(ctx context.Context, email string) (*entity.Account, error) {
	if err := checkContext(ctx, "failed to find account"); err != nil {
		return nil, err
	}

	s := r.store
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.emails[email]
	if !ok {
		return nil, domainerrors.ErrAccountNotFound
	}

	return cloneAccount(s.accounts[id]), nil
}

// LockByID is FindByID: the transaction mutex already excludes other writers.
func (r *accountRepository) LockByID(ctx context.Context, id uuid.UUID) (*entity.Account, error) {
	return r.FindByID(ctx, id)
}

func (r *accountRepository) Update(ctx context.Context, account *entity.Account) error {
	if err := checkContext(ctx, "failed to update account"); err != nil {
		return err
	}

	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.accounts[account.ID]
	if !ok {
		return domainerrors.ErrAccountNotFound
	}
	if owner, taken := s.emails[account.Email]; taken && owner != account.ID {
		return domainerrors.ErrEmailAlreadyExists
	}

	r.journal.record(account.ID, current)

	account.CreatedAt = current.CreatedAt
	account.UpdatedAt = time.Now().UTC()

	delete(s.emails, current.Email)
	s.accounts[account.ID] = cloneAccount(account)
	s.emails[account.Email] = account.ID

	return nil
}

func (r *accountRepository) Delete(ctx context.Context, id uuid.UUID) error {
	if err := checkContext(ctx, "failed to delete account"); err != nil {
		return err
	}

	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.accounts[id]
	if !ok {
		return domainerrors.ErrAccountNotFound
	}

	r.journal.record(id, current)
	delete(s.emails, current.Email)
	delete(s.accounts, id)

	return nil
}
