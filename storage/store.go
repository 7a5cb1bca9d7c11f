// Package storage defines the persistence contract the registry depends on
// and provides in-memory and PostgreSQL-backed implementations. The registry
// owns the contract; this layer supplies implementations.
package storage

import (
	"context"

	"github.com/oraclenet/registry/domain/oracle"
)

// Store is the registry's logical key-value persistence contract: voters,
// queries, commitments, reveals, pending rewards, parameters, and the scalar
// counters (next_query_id, voter_count, total_stake, reward_pool_total).
// Implementations must make List* calls return entries sorted by key so that
// aggregation and iteration are deterministic.
type Store interface {
	GetVoter(ctx context.Context, id oracle.ChainID) (oracle.VoterRecord, bool, error)
	PutVoter(ctx context.Context, v oracle.VoterRecord) error
	ListVoters(ctx context.Context) ([]oracle.VoterRecord, error)

	NextQueryID(ctx context.Context) (uint64, error)
	GetQuery(ctx context.Context, id uint64) (oracle.Query, bool, error)
	PutQuery(ctx context.Context, q oracle.Query) error
	ListQueries(ctx context.Context) ([]oracle.Query, error)

	GetCommitment(ctx context.Context, queryID uint64, voter oracle.ChainID) (oracle.Commitment, bool, error)
	PutCommitment(ctx context.Context, c oracle.Commitment) error
	ListCommitments(ctx context.Context, queryID uint64) ([]oracle.Commitment, error)

	GetReveal(ctx context.Context, queryID uint64, voter oracle.ChainID) (oracle.Reveal, bool, error)
	PutReveal(ctx context.Context, r oracle.Reveal) error
	ListReveals(ctx context.Context, queryID uint64) ([]oracle.Reveal, error)

	GetPendingReward(ctx context.Context, voter oracle.ChainID) (oracle.Amount, error)
	AddPendingReward(ctx context.Context, voter oracle.ChainID, delta oracle.Amount) error
	// ResetPendingReward returns the current amount and zeroes it atomically.
	ResetPendingReward(ctx context.Context, voter oracle.ChainID) (oracle.Amount, error)

	GetParameters(ctx context.Context) (oracle.Parameters, error)
	PutParameters(ctx context.Context, p oracle.Parameters) error

	VoterCount(ctx context.Context) (int64, error)
	AddVoterCount(ctx context.Context, delta int64) error
	TotalStake(ctx context.Context) (oracle.Amount, error)
	AddTotalStake(ctx context.Context, delta oracle.Amount) error
	RewardPoolTotal(ctx context.Context) (oracle.Amount, error)
	AddRewardPoolTotal(ctx context.Context, delta oracle.Amount) error

	// AddPendingReceipt records tokens the token application reports as
	// transferred to the registry on behalf of from, ahead of an UpdateStake
	// call.
	AddPendingReceipt(ctx context.Context, from oracle.ChainID, amount oracle.Amount) error
	// ConsumePendingReceipt reconciles amount against the recorded receipt
	// for from. It reports false, nil if the receipt is insufficient.
	ConsumePendingReceipt(ctx context.Context, from oracle.ChainID, amount oracle.Amount) (bool, error)
}

// ErrNotFound is a generic not-found error value. The Store implementations
// in this package do not return it: their lookups report absence through
// their bool result, and the registry layer translates absence into typed
// oracle.Error values, so storage itself stays error-kind agnostic.
var ErrNotFound = errNotFound{}

type errNotFound struct{}

func (errNotFound) Error() string { return "storage: not found" }
