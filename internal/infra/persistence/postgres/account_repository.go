// Package postgres contains the concrete implementation of the persistence layer using GORM and PostgreSQL.
package postgres

import (
	"context"
	"time"

	"accounts/internal/domain/entity"
	domainerrors "accounts/internal/domain/errors"
	"accounts/internal/domain/repository"
	"accounts/internal/errors"
	"accounts/internal/infra/persistence/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// accountRepository implements repository.AccountRepository using GORM.
type accountRepository struct {
	db *gorm.DB
}

// NewAccountRepository is the constructor for accountRepository.
// It returns the repository as a repository.AccountRepository interface, adhering to dependency inversion.
func NewAccountRepository(db *gorm.DB) repository.AccountRepository {
	return &accountRepository{db: db}
}

func preloadTokens(db *gorm.DB) *gorm.DB {
	return db.Order("issued_at ASC, id ASC")
}

// Insert persists a new account together with its initial sessions.
func (repo *accountRepository) Insert(ctx context.Context, account *entity.Account) error {
	accountM := fromAccountDomain(account)

	if err := repo.db.WithContext(ctx).Create(accountM).Error; err != nil {
		if isUniqueConstraintViolation(err) {
			return domainerrors.ErrEmailAlreadyExists.WrapMessage("failed to insert account")
		}
		if isNotNullConstraintViolation(err) || isCheckConstraintViolation(err) {
			return domainerrors.ErrValidationFailed.WithDetails("missing required account information")
		}

		return domainerrors.NewDatabaseExecuteError(err, "failed to insert account")
	}

	account.CreatedAt = accountM.CreatedAt
	account.UpdatedAt = accountM.UpdatedAt

	return nil
}

// FindByID retrieves a single account by its id, preloading its sessions.
func (repo *accountRepository) FindByID(ctx context.Context, id uuid.UUID) (*entity.Account, error) {
	return repo.first(repo.db.WithContext(ctx), "id = ?", id)
}

// FindByEmail retrieves a single account by exact email, preloading its sessions.
func (repo *accountRepository) FindByEmail(ctx context.Context, email string) (*entity.Account, error) {
	return repo.first(repo.db.WithContext(ctx), "email = ?", email)
}

// LockByID retrieves an account with SELECT ... FOR UPDATE.
func (repo *accountRepository) LockByID(ctx context.Context, id uuid.UUID) (*entity.Account, error) {
	return repo.first(repo.db.WithContext(ctx).Clauses(clause.Locking{Strength: clause.LockingStrengthUpdate}), "id = ?", id)
}

func (repo *accountRepository) first(db *gorm.DB, query string, arg any) (*entity.Account, error) {
	var accountM model.AccountModel

	err := db.Preload("Tokens", preloadTokens).Where(query, arg).First(&accountM).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domainerrors.ErrAccountNotFound
		}

		return nil, domainerrors.NewDatabaseExecuteError(err, "failed to find account")
	}

	return toAccountDomain(&accountM), nil
}

// Update writes the profile columns and replaces the stored session set.
// Both steps share one transaction; inside TransactionManager.Execute it becomes a savepoint.
func (repo *accountRepository) Update(ctx context.Context, account *entity.Account) error {
	now := time.Now().UTC()

	err := repo.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&model.AccountModel{}).
			Where("id = ?", account.ID).
			Updates(map[string]any{
				"email":         account.Email,
				"username":      account.Username,
				"first_name":    account.FirstName,
				"last_name":     account.LastName,
				"password_hash": account.PasswordHash,
				"updated_at":    now,
			})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return domainerrors.ErrAccountNotFound
		}

		if err := tx.Where("account_id = ?", account.ID).Delete(&model.AccountTokenModel{}).Error; err != nil {
			return err
		}

		tokens := fromTokensDomain(account.ID, account.Tokens)
		if len(tokens) == 0 {
			return nil
		}

		return tx.Create(&tokens).Error
	})
	if err != nil {
		if errors.Is(err, domainerrors.ErrAccountNotFound) {
			return domainerrors.ErrAccountNotFound
		}
		if isUniqueConstraintViolation(err) {
			return domainerrors.ErrEmailAlreadyExists.WrapMessage("failed to update account")
		}

		return domainerrors.NewDatabaseExecuteError(err, "failed to update account")
	}

	account.UpdatedAt = now

	return nil
}

// Delete removes the account row; its sessions go with it through ON DELETE CASCADE.
func (repo *accountRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result := repo.db.WithContext(ctx).Where("id = ?", id).Delete(&model.AccountModel{})
	if result.Error != nil {
		return domainerrors.NewDatabaseExecuteError(result.Error, "failed to delete account")
	}
	if result.RowsAffected == 0 {
		return domainerrors.ErrAccountNotFound
	}

	return nil
}

func toAccountDomain(m *model.AccountModel) *entity.Account {
	account := &entity.Account{
		ID:           m.ID,
		Email:        m.Email,
		Username:     m.Username,
		FirstName:    m.FirstName,
		LastName:     m.LastName,
		PasswordHash: m.PasswordHash,
		Tokens:       make([]entity.SessionToken, 0, len(m.Tokens)),
		CreatedAt:    m.CreatedAt,
		UpdatedAt:    m.UpdatedAt,
	}
	for _, t := range m.Tokens {
		account.Tokens = append(account.Tokens, entity.SessionToken{
			TokenHash: t.TokenHash,
			IssuedAt:  t.IssuedAt,
			ExpiresAt: t.ExpiresAt,
		})
	}

	return account
}

func fromAccountDomain(account *entity.Account) *model.AccountModel {
	return &model.AccountModel{
		ID:           account.ID,
		Email:        account.Email,
		Username:     account.Username,
		FirstName:    account.FirstName,
		LastName:     account.LastName,
		PasswordHash: account.PasswordHash,
		CreatedAt:    account.CreatedAt,
		UpdatedAt:    account.UpdatedAt,
		Tokens:       fromTokensDomain(account.ID, account.Tokens),
	}
}

func fromTokensDomain(accountID uuid.UUID, tokens []entity.SessionToken) []model.AccountTokenModel {
	models := make([]model.AccountTokenModel, 0, len(tokens))
	for _, t := range tokens {
		models = append(models, model.AccountTokenModel{
			ID:        uuid.New(),
			AccountID: accountID,
			TokenHash: t.TokenHash,
			IssuedAt:  t.IssuedAt,
			ExpiresAt: t.ExpiresAt,
		})
	}

	return models
}
