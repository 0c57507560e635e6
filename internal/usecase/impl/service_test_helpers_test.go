package impl

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"accounts/config"
	"accounts/internal/domain/repository"
	"accounts/internal/domain/service"
	"accounts/internal/infra/auth"
	"accounts/internal/infra/persistence/memory"
	"accounts/internal/usecase"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func newDiscardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestConfig(maxActiveSessions int) *config.Config {
	cfg := &config.Config{
		SecretKey: config.SecretKeyConfig{Session: "test-session-secret"},
		Auth: &config.AuthConfig{
			BcryptCost:        bcrypt.MinCost,
			MaxActiveSessions: maxActiveSessions,
		},
	}
	cfg.ApplyDefaults()

	return cfg
}

type notification struct {
	kind     string
	email    string
	username string
	password string
}

// recordingNotifier captures notifier calls in order.
type recordingNotifier struct {
	mu   sync.Mutex
	sent []notification
}

func (n *recordingNotifier) record(entry notification) {
	n.mu.Lock()
	defer n.mu.Unlock()

	n.sent = append(n.sent, entry)
}

func (n *recordingNotifier) SendWelcome(_ context.Context, email, username string) {
	n.record(notification{kind: "welcome", email: email, username: username})
}

func (n *recordingNotifier) SendCancelation(_ context.Context, email, username string) {
	n.record(notification{kind: "cancelation", email: email, username: username})
}

func (n *recordingNotifier) SendPasswordReset(_ context.Context, email, username, password string) {
	n.record(notification{kind: "password_reset", email: email, username: username, password: password})
}

func (n *recordingNotifier) notifications() []notification {
	n.mu.Lock()
	defer n.mu.Unlock()

	return append([]notification(nil), n.sent...)
}

type fixedPasswordGenerator struct {
	password string
	err      error
}

func (g fixedPasswordGenerator) Generate() (string, error) {
	return g.password, g.err
}

type testEnv struct {
	accounts usecase.AccountUsecase
	sessions usecase.SessionUsecase
	repo     repository.AccountRepository
	tokens   service.TokenService
	notifier *recordingNotifier
}

type testEnvOption func(*testEnvOptions)

type testEnvOptions struct {
	maxActiveSessions int
	sessionTTL        time.Duration
	generator         service.PasswordGenerator
}

func withMaxActiveSessions(n int) testEnvOption {
	return func(o *testEnvOptions) { o.maxActiveSessions = n }
}

func withSessionTTL(ttl time.Duration) testEnvOption {
	return func(o *testEnvOptions) { o.sessionTTL = ttl }
}

func withGenerator(g service.PasswordGenerator) testEnvOption {
	return func(o *testEnvOptions) { o.generator = g }
}

// newTestEnv wires the services against the in-memory store with real bcrypt and JWT.
func newTestEnv(t *testing.T, opts ...testEnvOption) *testEnv {
	t.Helper()

	options := &testEnvOptions{generator: auth.NewRandomPasswordGenerator()}
	for _, opt := range opts {
		opt(options)
	}

	cfg := newTestConfig(options.maxActiveSessions)
	cfg.Auth.SessionTTL = options.sessionTTL
	store := memory.NewStore()
	repo := memory.NewAccountRepository(store)
	txManager := memory.NewTransactionManager(store)

	tokens, err := auth.NewJWTService(cfg)
	require.NoError(t, err)

	notifier := &recordingNotifier{}
	logger := newDiscardLogger()

	sessions := NewSessionService(SessionServiceParams{
		TxManager:    txManager,
		AccountRepo:  repo,
		TokenService: tokens,
		Config:       cfg,
		Logger:       logger,
	})

	accounts := NewAccountService(AccountServiceParams{
		TxManager:   txManager,
		AccountRepo: repo,
		Sessions:    sessions,
		Hasher:      auth.NewBcryptHasher(cfg),
		Generator:   options.generator,
		Notifier:    notifier,
		Logger:      logger,
	})

	return &testEnv{
		accounts: accounts,
		sessions: sessions,
		repo:     repo,
		tokens:   tokens,
		notifier: notifier,
	}
}

func (env *testEnv) register(t *testing.T, email, password string) *usecase.AuthOutput {
	t.Helper()

	out, err := env.accounts.Register(context.Background(), usecase.RegisterInput{
		Email:             email,
		Username:          "user-" + email,
		Password:          password,
		ConfirmedPassword: password,
	})
	require.NoError(t, err)

	return out
}
