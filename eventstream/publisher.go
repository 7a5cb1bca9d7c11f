// Package eventstream implements the registry's append-only oracle_events
// stream: a single tagged-union log any chain may subscribe to. Events are
// observational; imperative notifications (the resolution callback) travel
// as messages, never through this stream.
package eventstream

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/oraclenet/registry/domain/oracle"
	"github.com/oraclenet/registry/pkg/logger"
)

// Record is one published entry, carrying the stream-assigned monotonic
// Index alongside a host-unique ID for cross-backend deduplication.
type Record struct {
	ID    string
	Index uint64
	Event oracle.Event
}

// Backend delivers published records to out-of-process subscribers (e.g.
// Redis pub/sub). The in-process broadcast fan-out in Publisher always runs
// regardless of which Backend, if any, is configured.
type Backend interface {
	Publish(ctx context.Context, rec Record) error
}

// Publisher is the registry's EventSink (registry.EventSink): it assigns
// monotonic indices, fans out to local subscribers, and forwards to an
// optional Backend for distribution to other chains.
type Publisher struct {
	mu      sync.Mutex
	nextIdx uint64
	subs    map[string]chan Record
	backend Backend
	log     *logger.Logger
}

// New constructs a Publisher. backend may be nil, in which case only local
// subscribers (e.g. the websocket handler in cmd/registryd) receive events.
func New(log *logger.Logger, backend Backend) *Publisher {
	if log == nil {
		log = logger.NewDefault("eventstream")
	}
	return &Publisher{
		nextIdx: 1,
		subs:    make(map[string]chan Record),
		backend: backend,
		log:     log,
	}
}

// Publish implements registry.EventSink. It never blocks on a slow
// subscriber: each subscriber channel is buffered and a full channel simply
// drops the newest record for that subscriber, logged at Warn.
func (p *Publisher) Publish(ctx context.Context, eventType oracle.EventType, data map[string]any) error {
	p.mu.Lock()
	idx := p.nextIdx
	p.nextIdx++
	rec := Record{
		ID:    uuid.NewString(),
		Index: idx,
		Event: oracle.Event{Index: idx, Type: eventType, At: time.Now().UTC(), Data: data},
	}
	subs := make([]chan Record, 0, len(p.subs))
	for _, ch := range p.subs {
		subs = append(subs, ch)
	}
	p.mu.Unlock()

	for _, ch := range subs {
		select {
		case ch <- rec:
		default:
			p.log.WithField("event", string(eventType)).Warn("subscriber channel full, dropping event")
		}
	}

	if p.backend != nil {
		if err := p.backend.Publish(ctx, rec); err != nil {
			p.log.WithField("event", string(eventType)).WithField("err", err).Warn("backend publish failed")
			return err
		}
	}
	return nil
}

// Subscribe registers a new local subscriber and returns its channel plus an
// unsubscribe function. The channel is closed by Unsubscribe, never by
// Publish.
func (p *Publisher) Subscribe(bufferSize int) (<-chan Record, func()) {
	if bufferSize <= 0 {
		bufferSize = 64
	}
	id := uuid.NewString()
	ch := make(chan Record, bufferSize)

	p.mu.Lock()
	p.subs[id] = ch
	p.mu.Unlock()

	return ch, func() {
		p.mu.Lock()
		defer p.mu.Unlock()
		if existing, ok := p.subs[id]; ok {
			delete(p.subs, id)
			close(existing)
		}
	}
}
