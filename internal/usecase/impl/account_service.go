package impl

import (
	"context"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"time"

	deliverycontext "accounts/internal/delivery/context"
	"accounts/internal/domain/entity"
	domainerrors "accounts/internal/domain/errors"
	"accounts/internal/domain/repository"
	"accounts/internal/domain/service"
	"accounts/internal/errors"
	"accounts/internal/usecase"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/fx"
)

// updatableFields is the allow-list accepted by UpdateSelf.
var updatableFields = map[string]struct{}{
	usecase.FieldFirstName:         {},
	usecase.FieldLastName:          {},
	usecase.FieldUsername:          {},
	usecase.FieldEmail:             {},
	usecase.FieldPassword:          {},
	usecase.FieldConfirmedPassword: {},
}

// timingPassword is hashed once so that logins for unknown emails cost one bcrypt comparison.
const timingPassword = "account-login-timing-equalizer"

// accountService implements the AccountUsecase interface.
type accountService struct {
	txManager   repository.TransactionManager
	accountRepo repository.AccountRepository
	sessions    usecase.SessionUsecase
	hasher      service.PasswordHasher
	generator   service.PasswordGenerator
	notifier    service.Notifier
	validate    *validator.Validate
	timingHash  func() (string, error)
	now         func() time.Time
	logger      *slog.Logger
}

// AccountServiceParams holds dependencies for AccountService, injected by Fx.
type AccountServiceParams struct {
	fx.In

	TxManager   repository.TransactionManager
	AccountRepo repository.AccountRepository
	Sessions    usecase.SessionUsecase
	Hasher      service.PasswordHasher
	Generator   service.PasswordGenerator
	Notifier    service.Notifier
	Logger      *slog.Logger
}

// NewAccountService is the constructor for accountService.
func NewAccountService(params AccountServiceParams) usecase.AccountUsecase {
	srv := &accountService{
		txManager:   params.TxManager,
		accountRepo: params.AccountRepo,
		sessions:    params.Sessions,
		hasher:      params.Hasher,
		generator:   params.Generator,
		notifier:    params.Notifier,
		validate:    validator.New(validator.WithRequiredStructEnabled()),
		now:         time.Now,
		logger:      params.Logger,
	}
	srv.timingHash = sync.OnceValues(func() (string, error) {
		return srv.hasher.Hash(timingPassword)
	})

	return srv
}

// log returns a request-scoped logger if available, otherwise falls back to the service's logger.
func (srv *accountService) log(ctx context.Context) *slog.Logger {
	return deliverycontext.GetLoggerOrDefault(ctx, srv.logger)
}

// Register creates an account holding exactly one session and queues a welcome message.
func (srv *accountService) Register(ctx context.Context, input usecase.RegisterInput) (*usecase.AuthOutput, error) {
	email := normalizeEmail(input.Email)
	srv.log(ctx).Info("Starting registration", slog.String("email", email))

	if err := srv.validateEmail(email); err != nil {
		return nil, err
	}
	if err := srv.validateNewPassword(input.Password, input.ConfirmedPassword); err != nil {
		return nil, err
	}

	passwordHash, err := srv.hashPassword(input.Password)
	if err != nil {
		return nil, err
	}

	id, err := uuid.NewV7()
	if err != nil {
		return nil, errors.Join(domainerrors.ErrInternalError, err)
	}

	now := srv.now().UTC()
	account := &entity.Account{
		ID:           id,
		Email:        email,
		Username:     strings.TrimSpace(input.Username),
		FirstName:    strings.TrimSpace(input.FirstName),
		LastName:     strings.TrimSpace(input.LastName),
		PasswordHash: passwordHash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	token, err := srv.sessions.AttachNew(account)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open first session")
	}

	if err := srv.accountRepo.Insert(ctx, account); err != nil {
		srv.log(ctx).Warn("Registration failed", slog.String("email", email), slog.Any("error", err))

		return nil, errors.Wrap(err, "failed to create account")
	}

	srv.notifier.SendWelcome(ctx, account.Email, account.Username)
	srv.log(ctx).Info("Registration completed", slog.Any("accountID", account.ID))

	return &usecase.AuthOutput{Account: withoutSecrets(account), Token: token}, nil
}

// Login verifies credentials and opens a new session. Unknown email and wrong
// password fail identically.
func (srv *accountService) Login(ctx context.Context, input usecase.LoginInput) (*usecase.AuthOutput, error) {
	email := normalizeEmail(input.Email)
	srv.log(ctx).Debug("Starting login", slog.String("email", email))

	account, err := srv.accountRepo.FindByEmail(ctx, email)
	if err != nil {
		if !errors.Is(err, domainerrors.ErrAccountNotFound) {
			srv.log(ctx).Error("Login lookup failed", slog.String("email", email), slog.Any("error", err))

			return nil, errors.Wrap(err, "failed to find account")
		}

		if hash, hashErr := srv.timingHash(); hashErr == nil {
			srv.hasher.Check(input.Password, hash)
		}
		srv.log(ctx).Warn("Login failed", slog.String("email", email))

		return nil, errors.Wrap(domainerrors.ErrInvalidCredentials, "login failed")
	}

	// bcrypt is CPU-bound; check outside any transaction.
	if !srv.hasher.Check(input.Password, account.PasswordHash) {
		srv.log(ctx).Warn("Login failed", slog.String("email", email))

		return nil, errors.Wrap(domainerrors.ErrInvalidCredentials, "login failed")
	}

	token, err := srv.sessions.Issue(ctx, account.ID)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open session during login")
	}

	srv.log(ctx).Debug("Account logged in", slog.Any("accountID", account.ID))

	return &usecase.AuthOutput{Account: withoutSecrets(account), Token: token}, nil
}

// Logout revokes the session that authenticated the request.
func (srv *accountService) Logout(ctx context.Context, accountID uuid.UUID, token string) error {
	return srv.sessions.Revoke(ctx, accountID, token)
}

// LogoutAll revokes every session of the account, including the current one.
func (srv *accountService) LogoutAll(ctx context.Context, accountID uuid.UUID) error {
	return srv.sessions.RevokeAll(ctx, accountID)
}

// GetSelf returns the caller's own account.
func (srv *accountService) GetSelf(ctx context.Context, accountID uuid.UUID) (*entity.Account, error) {
	account, err := srv.accountRepo.FindByID(ctx, accountID)
	if err != nil {
		return nil, errors.Wrap(err, "failed to get account")
	}

	return withoutSecrets(account), nil
}

// GetByID returns the target account. Callers other than the owner receive it without the email.
func (srv *accountService) GetByID(ctx context.Context, requesterID, targetID uuid.UUID) (*entity.Account, error) {
	account, err := srv.accountRepo.FindByID(ctx, targetID)
	if err != nil {
		return nil, errors.Wrap(err, "failed to get account")
	}

	account = withoutSecrets(account)
	if requesterID != targetID {
		account.Email = ""
	}

	return account, nil
}

// UpdateSelf applies an all-or-nothing profile update restricted to the allow-list.
func (srv *accountService) UpdateSelf(ctx context.Context, accountID uuid.UUID, update usecase.ProfileUpdate) (*entity.Account, error) {
	if err := srv.validateUpdate(update); err != nil {
		srv.log(ctx).Warn("Rejected profile update", slog.Any("accountID", accountID), slog.Any("error", err))

		return nil, err
	}

	var passwordHash string
	if password, ok := update[usecase.FieldPassword]; ok {
		hash, err := srv.hashPassword(password)
		if err != nil {
			return nil, err
		}
		passwordHash = hash
	}

	var updated *entity.Account
	err := srv.txManager.Execute(ctx, func(repoFactory repository.RepositoryFactory) error {
		accountRepo := repoFactory.NewAccountRepository()

		account, err := accountRepo.LockByID(ctx, accountID)
		if err != nil {
			return errors.Wrap(err, "failed to lock account")
		}

		applyUpdate(account, update, passwordHash)
		account.UpdatedAt = srv.now().UTC()

		if err := accountRepo.Update(ctx, account); err != nil {
			return errors.Wrap(err, "failed to update account")
		}
		updated = account

		return nil
	})
	if err != nil {
		srv.log(ctx).Warn("Profile update failed", slog.Any("accountID", accountID), slog.Any("error", err))

		return nil, errors.Wrap(err, "failed to update profile")
	}

	srv.log(ctx).Info("Profile updated", slog.Any("accountID", accountID), slog.Any("fields", sortedKeys(update)))

	return withoutSecrets(updated), nil
}

// ResetPassword replaces the password of the account registered under email with a
// generated one and sends it to the owner. Existing sessions are kept.
func (srv *accountService) ResetPassword(ctx context.Context, email string) (*entity.Account, error) {
	email = normalizeEmail(email)
	srv.log(ctx).Info("Starting password reset", slog.String("email", email))

	account, err := srv.accountRepo.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, domainerrors.ErrAccountNotFound) {
			return nil, domainerrors.ErrResetTargetNotFound
		}

		return nil, errors.Wrap(err, "failed to find account")
	}

	password, err := srv.generator.Generate()
	if err != nil {
		return nil, errors.Join(domainerrors.ErrInternalError, err)
	}

	passwordHash, err := srv.hashPassword(password)
	if err != nil {
		return nil, err
	}

	var updated *entity.Account
	err = srv.txManager.Execute(ctx, func(repoFactory repository.RepositoryFactory) error {
		accountRepo := repoFactory.NewAccountRepository()

		locked, err := accountRepo.LockByID(ctx, account.ID)
		if err != nil {
			if errors.Is(err, domainerrors.ErrAccountNotFound) {
				return domainerrors.ErrResetTargetNotFound
			}

			return errors.Wrap(err, "failed to lock account")
		}

		locked.PasswordHash = passwordHash
		locked.UpdatedAt = srv.now().UTC()

		if err := accountRepo.Update(ctx, locked); err != nil {
			return errors.Wrap(err, "failed to store new password")
		}
		updated = locked

		return nil
	})
	if err != nil {
		srv.log(ctx).Error("Password reset failed", slog.Any("accountID", account.ID), slog.Any("error", err))

		return nil, errors.Wrap(err, "failed to reset password")
	}

	srv.notifier.SendPasswordReset(ctx, updated.Email, updated.Username, password)
	srv.log(ctx).Info("Password reset completed", slog.Any("accountID", updated.ID))

	return withoutSecrets(updated), nil
}

// DeleteSelf removes the account with its sessions and queues a cancelation message.
func (srv *accountService) DeleteSelf(ctx context.Context, accountID uuid.UUID) (*entity.Account, error) {
	var deleted *entity.Account

	err := srv.txManager.Execute(ctx, func(repoFactory repository.RepositoryFactory) error {
		accountRepo := repoFactory.NewAccountRepository()

		account, err := accountRepo.LockByID(ctx, accountID)
		if err != nil {
			return errors.Wrap(err, "failed to lock account")
		}

		if err := accountRepo.Delete(ctx, accountID); err != nil {
			return errors.Wrap(err, "failed to delete account")
		}
		deleted = account

		return nil
	})
	if err != nil {
		srv.log(ctx).Error("Account deletion failed", slog.Any("accountID", accountID), slog.Any("error", err))

		return nil, errors.Wrap(err, "failed to delete account")
	}

	srv.notifier.SendCancelation(ctx, deleted.Email, deleted.Username)
	srv.log(ctx).Info("Account deleted", slog.Any("accountID", accountID))

	return withoutSecrets(deleted), nil
}

// withoutSecrets returns a copy of the account with the password hash and session hashes cleared.
func withoutSecrets(account *entity.Account) *entity.Account {
	out := *account
	out.PasswordHash = ""
	out.Tokens = nil

	return &out
}

func (srv *accountService) validateEmail(email string) error {
	if email == "" {
		return domainerrors.ErrValidationFailed.WithDetails("email is required")
	}
	if err := srv.validate.Var(email, "email"); err != nil {
		return domainerrors.ErrValidationFailed.WithDetails("email is invalid")
	}

	return nil
}

func (srv *accountService) validateNewPassword(password, confirmed string) error {
	if err := srv.hasher.ValidatePasswordStrength(password); err != nil {
		return err
	}
	if password != confirmed {
		return domainerrors.ErrPasswordMismatch
	}

	return nil
}

func (srv *accountService) validateUpdate(update usecase.ProfileUpdate) error {
	if len(update) == 0 {
		return domainerrors.ErrValidationFailed.WithDetails("no fields to update")
	}

	var unknown []string
	for field := range update {
		if _, ok := updatableFields[field]; !ok {
			unknown = append(unknown, field)
		}
	}
	if len(unknown) > 0 {
		slices.Sort(unknown)

		return domainerrors.ErrUnknownField.WithDetails(strings.Join(unknown, ", "))
	}

	if email, ok := update[usecase.FieldEmail]; ok {
		if err := srv.validateEmail(normalizeEmail(email)); err != nil {
			return err
		}
	}

	password, hasPassword := update[usecase.FieldPassword]
	confirmed, hasConfirmed := update[usecase.FieldConfirmedPassword]
	switch {
	case hasPassword:
		return srv.validateNewPassword(password, confirmed)
	case hasConfirmed:
		return domainerrors.ErrValidationFailed.WithDetails("confirmedPassword requires password")
	}

	return nil
}

func (srv *accountService) hashPassword(password string) (string, error) {
	hash, err := srv.hasher.Hash(password)
	if err != nil {
		if _, ok := errors.AsType[domainerrors.AppError](err); ok {
			return "", err
		}

		return "", errors.Join(domainerrors.ErrPasswordHashFailed, err)
	}

	return hash, nil
}

func applyUpdate(account *entity.Account, update usecase.ProfileUpdate, passwordHash string) {
	for field, value := range update {
		switch field {
		case usecase.FieldFirstName:
			account.FirstName = strings.TrimSpace(value)
		case usecase.FieldLastName:
			account.LastName = strings.TrimSpace(value)
		case usecase.FieldUsername:
			account.Username = strings.TrimSpace(value)
		case usecase.FieldEmail:
			account.Email = normalizeEmail(value)
		case usecase.FieldPassword:
			account.PasswordHash = passwordHash
		}
	}
}

// normalizeEmail trims surrounding whitespace; emails compare case-sensitively as stored.
func normalizeEmail(email string) string {
	return strings.TrimSpace(email)
}

func sortedKeys(update usecase.ProfileUpdate) []string {
	keys := make([]string, 0, len(update))
	for key := range update {
		keys = append(keys, key)
	}
	slices.Sort(keys)

	return keys
}
