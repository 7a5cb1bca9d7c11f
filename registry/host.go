// Package registry implements the oracle registry's deterministic state
// machine: the voter ledger, query lifecycle engine, commit-reveal vote
// engine, and resolution/callback dispatcher. A single Service type is wired
// with a Store, a logger, and host collaborators supplied at construction
// time via functional options.
package registry

import (
	"context"
	"time"

	"github.com/oraclenet/registry/domain/oracle"
)

// Clock supplies the host's monotonic timestamp. The registry never reads
// local wall-clock time directly, so every time-sensitive path goes through
// this seam, which also makes phase transitions reproducible in tests.
type Clock interface {
	Now() time.Time
}

// SystemClock is the production Clock, backed by time.Now.
type SystemClock struct{}

// Now returns the current UTC time.
func (SystemClock) Now() time.Time { return time.Now().UTC() }

// Messenger is the host's outbound cross-chain messaging primitive. Callback
// dispatch and token transfers are enqueued through it; the host guarantees
// at-least-once tracked delivery, so recipients must be idempotent on
// query_id.
type Messenger interface {
	// SendCallback delivers a QueryResolutionCallback to the destination
	// chain. Implementations must not block registry state mutation on
	// delivery confirmation: outbound messages are enqueued and dispatched
	// after the transaction commits.
	SendCallback(ctx context.Context, to oracle.ChainID, cb QueryResolutionCallback) error
	// SendTokenTransfer requests the bound token application move amount to
	// the given chain. Called for WithdrawStake and ClaimRewards when a
	// TokenApplication is configured.
	SendTokenTransfer(ctx context.Context, to oracle.ChainID, amount oracle.Amount) error
}

// QueryResolutionCallback is the outbound notification sent to a query's
// callback chain once the query resolves.
type QueryResolutionCallback struct {
	QueryID         uint64
	ResolvedOutcome string
	ResolvedAt      time.Time
	OpaqueData      []byte
}

// NoopMessenger discards every outbound message. Useful for accounting-only
// deployments and for tests that only assert on state, not on dispatch.
type NoopMessenger struct{}

func (NoopMessenger) SendCallback(context.Context, oracle.ChainID, QueryResolutionCallback) error {
	return nil
}

func (NoopMessenger) SendTokenTransfer(context.Context, oracle.ChainID, oracle.Amount) error {
	return nil
}

// RecordingMessenger captures every dispatched message in order, for tests
// that assert on exactly-once enqueueing.
type RecordingMessenger struct {
	Callbacks      []RecordedCallback
	TokenTransfers []RecordedTokenTransfer
}

// RecordedCallback is one captured SendCallback invocation.
type RecordedCallback struct {
	To       oracle.ChainID
	Callback QueryResolutionCallback
}

// RecordedTokenTransfer is one captured SendTokenTransfer invocation.
type RecordedTokenTransfer struct {
	To     oracle.ChainID
	Amount oracle.Amount
}

func (m *RecordingMessenger) SendCallback(_ context.Context, to oracle.ChainID, cb QueryResolutionCallback) error {
	m.Callbacks = append(m.Callbacks, RecordedCallback{To: to, Callback: cb})
	return nil
}

func (m *RecordingMessenger) SendTokenTransfer(_ context.Context, to oracle.ChainID, amount oracle.Amount) error {
	m.TokenTransfers = append(m.TokenTransfers, RecordedTokenTransfer{To: to, Amount: amount})
	return nil
}

// EventSink is the narrow interface the registry needs from an event stream
// publisher (see package eventstream). Kept local and minimal so registry
// does not import eventstream directly.
type EventSink interface {
	Publish(ctx context.Context, eventType oracle.EventType, data map[string]any) error
}

// NoopEventSink discards every event.
type NoopEventSink struct{}

func (NoopEventSink) Publish(context.Context, oracle.EventType, map[string]any) error { return nil }
