package postgres

import (
	"context"
	"database/sql"
	stderrors "errors"
	"regexp"
	"testing"
	"time"

	"accounts/internal/domain/entity"
	domainerrors "accounts/internal/domain/errors"
	"accounts/internal/domain/repository"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	gormpostgres "gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	t.Helper()

	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })

	db, err := gorm.Open(gormpostgres.New(gormpostgres.Config{Conn: sqlDB}), &gorm.Config{
		SkipDefaultTransaction: true,
		Logger:                 logger.Discard,
	})
	require.NoError(t, err)

	return db, mock
}

var accountColumns = []string{"id", "email", "username", "first_name", "last_name", "password_hash", "created_at", "updated_at"}

func TestAccountRepository_FindByID(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewAccountRepository(db)

	id := uuid.New()
	now := time.Now().UTC()
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "accounts" WHERE id = $1`)).
		WillReturnRows(sqlmock.NewRows(accountColumns).
			AddRow(id.String(), "a@x.com", "alice", "Alice", "Doe", "$2a$hash", now, now))
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "account_tokens" WHERE "account_tokens"."account_id" = $1`)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "account_id", "token_hash", "issued_at", "expires_at"}).
			AddRow(uuid.NewString(), id.String(), "hash-1", now, nil).
			AddRow(uuid.NewString(), id.String(), "hash-2", now, nil))

	account, err := repo.FindByID(context.Background(), id)
	require.NoError(t, err)

	assert.Equal(t, id, account.ID)
	assert.Equal(t, "a@x.com", account.Email)
	assert.Equal(t, "alice", account.Username)
	assert.Equal(t, "$2a$hash", account.PasswordHash)
	require.Len(t, account.Tokens, 2)
	assert.Equal(t, "hash-1", account.Tokens[0].TokenHash)
	assert.Equal(t, "hash-2", account.Tokens[1].TokenHash)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAccountRepository_FindByEmailNotFound(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewAccountRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "accounts" WHERE email = $1`)).
		WillReturnRows(sqlmock.NewRows(accountColumns))

	_, err := repo.FindByEmail(context.Background(), "missing@x.com")
	assert.ErrorIs(t, err, domainerrors.ErrAccountNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAccountRepository_FindByIDStoreUnavailable(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewAccountRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "accounts"`)).
		WillReturnError(sql.ErrConnDone)

	_, err := repo.FindByID(context.Background(), uuid.New())
	assert.True(t, domainerrors.IsStoreUnavailable(err))
	assert.ErrorIs(t, err, sql.ErrConnDone)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAccountRepository_LockByIDUsesRowLock(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewAccountRepository(db)

	mock.ExpectQuery(`SELECT \* FROM "accounts" WHERE id = \$1 .*FOR UPDATE`).
		WillReturnRows(sqlmock.NewRows(accountColumns))

	_, err := repo.LockByID(context.Background(), uuid.New())
	assert.ErrorIs(t, err, domainerrors.ErrAccountNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAccountRepository_Delete(t *testing.T) {
	t.Run("deleted", func(t *testing.T) {
		db, mock := newMockDB(t)
		repo := NewAccountRepository(db)

		mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM "accounts" WHERE id = $1`)).
			WillReturnResult(sqlmock.NewResult(0, 1))

		assert.NoError(t, repo.Delete(context.Background(), uuid.New()))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("not found", func(t *testing.T) {
		db, mock := newMockDB(t)
		repo := NewAccountRepository(db)

		mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM "accounts" WHERE id = $1`)).
			WillReturnResult(sqlmock.NewResult(0, 0))

		assert.ErrorIs(t, repo.Delete(context.Background(), uuid.New()), domainerrors.ErrAccountNotFound)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestAccountRepository_UpdateMissingAccount(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewAccountRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE "accounts" SET`)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	err := repo.Update(context.Background(), &entity.Account{ID: uuid.New(), Email: "a@x.com", PasswordHash: "h"})
	assert.ErrorIs(t, err, domainerrors.ErrAccountNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTransactionManager_Execute(t *testing.T) {
	t.Run("commit", func(t *testing.T) {
		db, mock := newMockDB(t)
		tm := NewTransactionManager(db)

		mock.ExpectBegin()
		mock.ExpectCommit()

		err := tm.Execute(context.Background(), func(f repository.RepositoryFactory) error {
			assert.NotNil(t, f.NewAccountRepository())

			return nil
		})
		assert.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("rollback on error", func(t *testing.T) {
		db, mock := newMockDB(t)
		tm := NewTransactionManager(db)
		boom := stderrors.New("boom")

		mock.ExpectBegin()
		mock.ExpectRollback()

		err := tm.Execute(context.Background(), func(repository.RepositoryFactory) error {
			return boom
		})
		assert.ErrorIs(t, err, boom)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("begin failure", func(t *testing.T) {
		db, mock := newMockDB(t)
		tm := NewTransactionManager(db)

		mock.ExpectBegin().WillReturnError(sql.ErrConnDone)

		err := tm.Execute(context.Background(), func(repository.RepositoryFactory) error {
			t.Fatal("callback must not run")

			return nil
		})
		assert.True(t, domainerrors.IsStoreUnavailable(err))
	})
}

func TestConstraintErrors(t *testing.T) {
	unique := &pgconn.PgError{Code: pgUniqueViolation}
	notNull := &pgconn.PgError{Code: pgNotNullViolation}
	check := &pgconn.PgError{Code: pgCheckViolation}

	assert.True(t, isUniqueConstraintViolation(unique))
	assert.True(t, isUniqueConstraintViolation(gorm.ErrDuplicatedKey))
	assert.False(t, isUniqueConstraintViolation(notNull))
	assert.True(t, isNotNullConstraintViolation(notNull))
	assert.True(t, isCheckConstraintViolation(check))
	assert.False(t, isCheckConstraintViolation(stderrors.New("other")))
}
