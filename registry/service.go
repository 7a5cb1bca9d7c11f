package registry

import (
	"context"
	"sync"

	"github.com/oraclenet/registry/domain/oracle"
	"github.com/oraclenet/registry/pkg/logger"
	"github.com/oraclenet/registry/storage"
)

// Service is the oracle registry state machine. A single instance owns the
// voter ledger, query lifecycle, vote engine, and resolution dispatcher; the
// host serializes operations and messages into it one at a time, so the
// mutex here exists only to make that external guarantee safe to violate
// accidentally in a single process (e.g. an HTTP handler invoked
// concurrently), not to model real parallelism.
type Service struct {
	mu sync.Mutex

	store     storage.Store
	clock     Clock
	messenger Messenger
	events    EventSink
	log       *logger.Logger
}

// Option configures a Service at construction time.
type Option func(*Service)

// WithClock overrides the default SystemClock, primarily for tests.
func WithClock(c Clock) Option {
	return func(s *Service) { s.clock = c }
}

// WithMessenger overrides the default NoopMessenger.
func WithMessenger(m Messenger) Option {
	return func(s *Service) { s.messenger = m }
}

// WithEventSink overrides the default NoopEventSink.
func WithEventSink(e EventSink) Option {
	return func(s *Service) { s.events = e }
}

// New constructs a Service backed by store. Callers must have already
// persisted an initial oracle.Parameters value via store.PutParameters
// (see oracle.DefaultParameters for a starting point).
func New(store storage.Store, log *logger.Logger, opts ...Option) *Service {
	if log == nil {
		log = logger.NewDefault("registry")
	}
	svc := &Service{
		store:     store,
		clock:     SystemClock{},
		messenger: NoopMessenger{},
		events:    NoopEventSink{},
		log:       log,
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc
}

func (s *Service) params(ctx context.Context) (oracle.Parameters, error) {
	return s.store.GetParameters(ctx)
}

func (s *Service) emit(ctx context.Context, eventType oracle.EventType, data map[string]any) {
	if err := s.events.Publish(ctx, eventType, data); err != nil {
		s.log.WithField("event", string(eventType)).WithField("err", err).Warn("failed to publish event")
	}
}

// requireAdmin fails with Unauthorized unless sender matches the configured
// admin chain.
func requireAdmin(params oracle.Parameters, sender oracle.ChainID) error {
	if sender != params.AdminChain {
		return oracle.NewError(oracle.ErrUnauthorized, "sender %s is not admin", sender)
	}
	return nil
}

// requireNotPaused fails with Paused for non-exempt mutations. ClaimRewards,
// WithdrawStake, DeregisterVoter, and the admin operations never call it,
// except CreateQuery, which is admin-only but still gated by the pause.
func requireNotPaused(params oracle.Parameters) error {
	if params.Paused {
		return oracle.NewError(oracle.ErrPaused, "protocol is paused")
	}
	return nil
}
