// Package memory is an in-process account store used for local development and tests.
// Transactions are serialized by a single mutex and rolled back from an undo journal.
package memory

import (
	"context"
	"sync"

	"accounts/internal/domain/entity"
	domainerrors "accounts/internal/domain/errors"
	"accounts/internal/domain/repository"

	"github.com/google/uuid"
)

// Store holds accounts keyed by id with a secondary email index.
type Store struct {
	mu       sync.RWMutex
	accounts map[uuid.UUID]*entity.Account
	emails   map[string]uuid.UUID

	txMu sync.Mutex
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{
		accounts: make(map[uuid.UUID]*entity.Account),
		emails:   make(map[string]uuid.UUID),
	}
}

// NewAccountRepository returns a repository that writes straight to the store.
func NewAccountRepository(store *Store) repository.AccountRepository {
	return &accountRepository{store: store}
}

// NewTransactionManager returns a TransactionManager over the store.
func NewTransactionManager(store *Store) repository.TransactionManager {
	return &transactionManager{store: store}
}

type transactionManager struct {
	store *Store
}

type repositoryFactory struct {
	repo *accountRepository
}

func (f *repositoryFactory) NewAccountRepository() repository.AccountRepository {
	return f.repo
}

// Execute runs fn while holding the store's transaction lock. Writes made
// through the factory are undone when fn fails or panics.
func (tm *transactionManager) Execute(ctx context.Context, fn func(repository.RepositoryFactory) error) error {
	if err := ctx.Err(); err != nil {
		return domainerrors.NewDatabaseExecuteError(err, "failed to begin transaction")
	}

	tm.store.txMu.Lock()
	defer tm.store.txMu.Unlock()

	j := &journal{}
	repo := &accountRepository{store: tm.store, journal: j}

	committed := false
	defer func() {
		if !committed {
			tm.store.rollback(j)
		}
	}()

	if err := fn(&repositoryFactory{repo: repo}); err != nil {
		return err
	}
	committed = true

	return nil
}

// journal remembers the state of each account before its first write in a transaction.
type journal struct {
	seen    map[uuid.UUID]struct{}
	entries []undoEntry
}

type undoEntry struct {
	id   uuid.UUID
	prev *entity.Account // nil when the account did not exist
}

func (j *journal) record(id uuid.UUID, prev *entity.Account) {
	if j == nil {
		return
	}
	if j.seen == nil {
		j.seen = make(map[uuid.UUID]struct{})
	}
	if _, ok := j.seen[id]; ok {
		return
	}
	j.seen[id] = struct{}{}
	j.entries = append(j.entries, undoEntry{id: id, prev: cloneAccount(prev)})
}

func (s *Store) rollback(j *journal) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := len(j.entries) - 1; i >= 0; i-- {
		entry := j.entries[i]
		if cur, ok := s.accounts[entry.id]; ok {
			delete(s.emails, cur.Email)
			delete(s.accounts, entry.id)
		}
		if entry.prev != nil {
			s.accounts[entry.id] = entry.prev
			s.emails[entry.prev.Email] = entry.id
		}
	}
}

func cloneAccount(account *entity.Account) *entity.Account {
	if account == nil {
		return nil
	}

	cloned := *account
	cloned.Tokens = append([]entity.SessionToken(nil), account.Tokens...)

	return &cloned
}
