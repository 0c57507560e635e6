// Package notification delivers account notifications off the request path.
package notification

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"accounts/config"
	deliverycontext "accounts/internal/delivery/context"
	"accounts/internal/domain/entity"
	"accounts/internal/domain/service"
	"accounts/internal/errors"

	"github.com/google/uuid"
	"go.uber.org/fx"
)

type job struct {
	ctx   context.Context
	event *entity.AccountEvent
}

// Dispatcher is a service.Notifier backed by a bounded queue and a fixed worker pool.
// A full queue drops the event; publish failures are logged and never returned.
type Dispatcher struct {
	publisher service.EventPublisher
	logger    *slog.Logger
	timeout   time.Duration
	workers   int

	mu      sync.RWMutex
	jobs    chan job
	started bool
	closed  bool
	wg      sync.WaitGroup
}

// NewDispatcher creates a stopped dispatcher; call Start before sending.
func NewDispatcher(publisher service.EventPublisher, logger *slog.Logger, cfg *config.NotificationConfig) *Dispatcher {
	return &Dispatcher{
		publisher: publisher,
		logger:    logger,
		timeout:   cfg.Timeout,
		workers:   max(cfg.Workers, 1),
		jobs:      make(chan job, max(cfg.QueueSize, 1)),
	}
}

// Params defines the dependencies of the fx-managed notifier
type Params struct {
	fx.In
	fx.Lifecycle

	Config    *config.Config
	Logger    *slog.Logger
	Publisher service.EventPublisher
}

// New provides the application Notifier and ties the worker pool to the fx lifecycle.
func New(params Params) service.Notifier {
	dispatcher := NewDispatcher(params.Publisher, params.Logger, params.Config.Notification)

	params.Append(fx.Hook{
		OnStart: func(context.Context) error {
			dispatcher.Start()

			return nil
		},
		OnStop: func(ctx context.Context) error {
			params.Logger.Info("Draining account notifications")

			return dispatcher.Stop(ctx)
		},
	})

	return dispatcher
}

// Start launches the workers. Calling it more than once has no effect.
func (d *Dispatcher) Start() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.started || d.closed {
		return
	}
	d.started = true

	for range d.workers {
		d.wg.Add(1)
		go d.run()
	}
}

// Stop refuses new events and waits for queued ones until ctx expires.
func (d *Dispatcher) Stop(ctx context.Context) error {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()

		return nil
	}
	d.closed = true
	close(d.jobs)
	d.mu.Unlock()

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return errors.Wrap(ctx.Err(), "notification queue not drained")
	}
}

// SendWelcome queues a welcome message for a new account.
func (d *Dispatcher) SendWelcome(ctx context.Context, email, username string) {
	d.enqueue(ctx, entity.AccountEventWelcome, email, username, "")
}

// SendCancelation queues a goodbye message for a deleted account.
func (d *Dispatcher) SendCancelation(ctx context.Context, email, username string) {
	d.enqueue(ctx, entity.AccountEventCancelation, email, username, "")
}

// SendPasswordReset queues delivery of a freshly generated password.
func (d *Dispatcher) SendPasswordReset(ctx context.Context, email, username, password string) {
	d.enqueue(ctx, entity.AccountEventPasswordReset, email, username, password)
}

func (d *Dispatcher) enqueue(ctx context.Context, eventType entity.AccountEventType, email, username, password string) {
	event := &entity.AccountEvent{
		EventID:    uuid.New(),
		RequestID:  deliverycontext.GetRequestIDFromContext(ctx),
		Type:       eventType,
		Email:      email,
		Username:   username,
		Password:   password,
		OccurredAt: time.Now().UTC(),
	}
	logger := d.log(ctx).With(
		slog.String("event_id", event.EventID.String()),
		slog.String("type", string(eventType)),
	)

	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.closed {
		logger.Warn("Notifier stopped, dropping account notification")

		return
	}

	select {
	case d.jobs <- job{ctx: context.WithoutCancel(ctx), event: event}:
	default:
		logger.Warn("Notification queue full, dropping account notification")
	}
}

func (d *Dispatcher) run() {
	defer d.wg.Done()

	for j := range d.jobs {
		d.deliver(j)
	}
}

func (d *Dispatcher) deliver(j job) {
	ctx := j.ctx
	if d.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.timeout)
		defer cancel()
	}

	defer func() {
		if r := recover(); r != nil {
			d.log(ctx).Error("Account notification panicked",
				slog.String("event_id", j.event.EventID.String()),
				slog.Any("panic", r),
			)
		}
	}()

	if err := d.publisher.Publish(ctx, j.event); err != nil {
		d.log(ctx).Error("Account notification failed",
			slog.String("event_id", j.event.EventID.String()),
			slog.String("type", string(j.event.Type)),
			slog.Any("error", err),
		)
	}
}

func (d *Dispatcher) log(ctx context.Context) *slog.Logger {
	return deliverycontext.GetLoggerOrDefault(ctx, d.logger)
}
