// Package impl contains the application-specific business rules implementations.
package impl

import (
	"context"
	"log/slog"
	"time"

	"accounts/config"
	deliverycontext "accounts/internal/delivery/context"
	"accounts/internal/domain/entity"
	domainerrors "accounts/internal/domain/errors"
	"accounts/internal/domain/repository"
	"accounts/internal/domain/service"
	"accounts/internal/errors"
	"accounts/internal/usecase"

	"github.com/google/uuid"
	"go.uber.org/fx"
)

// sessionService implements the SessionUsecase interface.
type sessionService struct {
	txManager         repository.TransactionManager
	accountRepo       repository.AccountRepository
	tokenService      service.TokenService
	maxActiveSessions int
	now               func() time.Time
	logger            *slog.Logger
}

// SessionServiceParams holds dependencies for SessionService, injected by Fx.
type SessionServiceParams struct {
	fx.In

	TxManager    repository.TransactionManager
	AccountRepo  repository.AccountRepository
	TokenService service.TokenService
	Config       *config.Config
	Logger       *slog.Logger
}

// NewSessionService is the constructor for sessionService.
func NewSessionService(params SessionServiceParams) usecase.SessionUsecase {
	maxActiveSessions := 0
	if params.Config != nil && params.Config.Auth != nil {
		maxActiveSessions = params.Config.Auth.MaxActiveSessions
	}

	return &sessionService{
		txManager:         params.TxManager,
		accountRepo:       params.AccountRepo,
		tokenService:      params.TokenService,
		maxActiveSessions: maxActiveSessions,
		now:               time.Now,
		logger:            params.Logger,
	}
}

// log returns a request-scoped logger if available, otherwise falls back to the service's logger.
func (srv *sessionService) log(ctx context.Context) *slog.Logger {
	return deliverycontext.GetLoggerOrDefault(ctx, srv.logger)
}

// AttachNew prunes expired sessions, enforces the session limit and appends a fresh token hash.
// The caller persists the account.
func (srv *sessionService) AttachNew(account *entity.Account) (string, error) {
	account.PruneExpired(srv.now())

	if srv.maxActiveSessions > 0 && len(account.Tokens) >= srv.maxActiveSessions {
		return "", errors.Wrap(domainerrors.ErrSessionLimitExceeded, "active session limit exceeded")
	}

	issued, err := srv.tokenService.Issue(account.ID)
	if err != nil {
		return "", errors.Join(domainerrors.ErrTokenIssueFailed, err)
	}

	account.Tokens = append(account.Tokens, entity.SessionToken{
		TokenHash: issued.TokenHash,
		IssuedAt:  issued.IssuedAt,
		ExpiresAt: issued.ExpiresAt,
	})

	return issued.Token, nil
}

// Issue opens a new session. The account row is locked so that concurrent
// logins and logouts on the same account never lose each other's writes.
func (srv *sessionService) Issue(ctx context.Context, accountID uuid.UUID) (string, error) {
	var token string

	err := srv.txManager.Execute(ctx, func(repoFactory repository.RepositoryFactory) error {
		accountRepo := repoFactory.NewAccountRepository()

		account, err := accountRepo.LockByID(ctx, accountID)
		if err != nil {
			return errors.Wrap(err, "failed to lock account")
		}

		token, err = srv.AttachNew(account)
		if err != nil {
			return err
		}

		if err := accountRepo.Update(ctx, account); err != nil {
			return errors.Wrap(err, "failed to store session token")
		}

		return nil
	})
	if err != nil {
		srv.log(ctx).Warn("Failed to issue session", slog.Any("accountID", accountID), slog.Any("error", err))

		return "", errors.Wrap(err, "failed to issue session")
	}

	srv.log(ctx).Debug("Session issued", slog.Any("accountID", accountID))

	return token, nil
}

// Validate resolves a presented token to the account holding it.
func (srv *sessionService) Validate(ctx context.Context, token string) (*entity.Account, error) {
	if token == "" {
		return nil, domainerrors.ErrInvalidToken
	}

	claims, err := srv.tokenService.Parse(token)
	if err != nil {
		srv.log(ctx).Debug("Rejected session token", slog.Any("error", err))

		return nil, domainerrors.ErrInvalidToken
	}

	accountID, err := claims.AccountID()
	if err != nil {
		return nil, domainerrors.ErrInvalidToken
	}

	account, err := srv.accountRepo.FindByID(ctx, accountID)
	if err != nil {
		if errors.Is(err, domainerrors.ErrAccountNotFound) {
			return nil, domainerrors.ErrInvalidToken
		}

		return nil, errors.Wrap(err, "failed to load session account")
	}

	hash := srv.tokenService.HashToken(token)
	if !account.HasToken(hash, srv.tokenService.EqualHash) {
		return nil, domainerrors.ErrInvalidToken
	}

	return account, nil
}

// Revoke removes the session matching token. A token that is not present is not an error.
func (srv *sessionService) Revoke(ctx context.Context, accountID uuid.UUID, token string) error {
	hash := srv.tokenService.HashToken(token)

	err := srv.txManager.Execute(ctx, func(repoFactory repository.RepositoryFactory) error {
		accountRepo := repoFactory.NewAccountRepository()

		account, err := accountRepo.LockByID(ctx, accountID)
		if err != nil {
			return errors.Wrap(err, "failed to lock account")
		}

		if !account.RemoveToken(hash) {
			return nil
		}

		return errors.Wrap(accountRepo.Update(ctx, account), "failed to remove session token")
	})
	if err != nil {
		srv.log(ctx).Error("Failed to revoke session", slog.Any("accountID", accountID), slog.Any("error", err))

		return errors.Wrap(err, "failed to revoke session")
	}

	srv.log(ctx).Info("Session revoked", slog.Any("accountID", accountID))

	return nil
}

// RevokeAll empties the account's token collection.
func (srv *sessionService) RevokeAll(ctx context.Context, accountID uuid.UUID) error {
	err := srv.txManager.Execute(ctx, func(repoFactory repository.RepositoryFactory) error {
		accountRepo := repoFactory.NewAccountRepository()

		account, err := accountRepo.LockByID(ctx, accountID)
		if err != nil {
			return errors.Wrap(err, "failed to lock account")
		}

		if len(account.Tokens) == 0 {
			return nil
		}
		account.Tokens = nil

		return errors.Wrap(accountRepo.Update(ctx, account), "failed to remove session tokens")
	})
	if err != nil {
		srv.log(ctx).Error("Failed to revoke all sessions", slog.Any("accountID", accountID), slog.Any("error", err))

		return errors.Wrap(err, "failed to revoke all sessions")
	}

	srv.log(ctx).Info("All sessions revoked", slog.Any("accountID", accountID))

	return nil
}
