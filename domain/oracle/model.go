// Package oracle defines the core data model of the decentralized oracle
// registry: voters, queries, commitments, reveals, and protocol parameters.
// These types are self-contained and carry no storage or transport concerns.
package oracle

import "time"

// ChainID is the host-assigned identifier of a participant chain. It is used
// as the voter primary key and as the requester/callback address.
type ChainID string

// Amount is an opaque non-negative fixed-precision scalar expressed in the
// smallest unit of whatever token application (if any) backs the registry's
// stake accounting. The registry never interprets its magnitude beyond
// comparison and arithmetic.
type Amount int64

// VoterRecord is the per-voter ledger entry. It is never deleted; history is
// preserved across deregistration and re-registration.
type VoterRecord struct {
	Voter              ChainID
	Stake              Amount
	LockedStake        Amount
	Reputation         int
	TotalVotes         int
	CorrectVotes       int
	RegisteredAt       time.Time
	IsActive           bool
	Name               string
	MetadataURL        string
	TotalRewardsEarned Amount
	TotalSlashed       Amount
}

// Phase is the query lifecycle state.
type Phase string

const (
	PhaseCreated   Phase = "created"
	PhaseCommit    Phase = "commit_phase"
	PhaseReveal    Phase = "reveal_phase"
	PhaseResolved  Phase = "resolved"
	PhaseExpired   Phase = "expired"
	PhaseCancelled Phase = "cancelled"
)

// Strategy is the closed set of decision strategies a query may use.
type Strategy string

const (
	StrategyMajority             Strategy = "majority"
	StrategyMedian               Strategy = "median"
	StrategyWeightedByStake      Strategy = "weighted_by_stake"
	StrategyWeightedByReputation Strategy = "weighted_by_reputation"
)

// ValidStrategy reports whether s is one of the four recognized strategies.
func ValidStrategy(s Strategy) bool {
	switch s {
	case StrategyMajority, StrategyMedian, StrategyWeightedByStake, StrategyWeightedByReputation:
		return true
	default:
		return false
	}
}

// CallbackBinding describes the outbound notification target recorded at
// query creation, if the creator supplied one.
type CallbackBinding struct {
	Chain       ChainID
	Application string
	OpaqueData  []byte
}

// Query is a single oracle question under evaluation.
type Query struct {
	ID              uint64
	Description     string
	Outcomes        []string
	Strategy        Strategy
	MinVotes        int
	RewardPool      Amount
	Phase           Phase
	CreatedAt       time.Time
	CommitDeadline  time.Time
	RevealDeadline  time.Time
	ResolvedOutcome *string
	ResolvedAt      *time.Time
	Creator         ChainID
	Callback        *CallbackBinding
	Commits         int
	Reveals         int
}

// OutcomeIndex returns the position of value in q.Outcomes, or -1.
func (q *Query) OutcomeIndex(value string) int {
	for i, o := range q.Outcomes {
		if o == value {
			return i
		}
	}
	return -1
}

// CommitHash is a fixed-width 32-byte commitment hash. Treat it as a value
// type, never as a string to be compared without canonicalization.
type CommitHash [32]byte

// Commitment is a per-(query,voter) commit-phase record. Never mutated after
// insert.
type Commitment struct {
	QueryID     uint64
	Voter       ChainID
	CommitHash  CommitHash
	CommittedAt time.Time
	StakeLocked Amount
}

// Reveal is a per-(query,voter) reveal-phase record. Only ever created once a
// matching Commitment exists and the hash check passes.
type Reveal struct {
	QueryID    uint64
	Voter      ChainID
	Value      string
	Salt       string
	Confidence *int
	RevealedAt time.Time
}

// Parameters is the protocol's singleton tunable configuration.
type Parameters struct {
	MinStake                 Amount
	MaxStake                 Amount
	DefaultQueryDuration     time.Duration
	CommitPhaseDuration      time.Duration
	RevealPhaseDuration      time.Duration
	StakeLockFraction        float64
	RewardPerCorrectVote     Amount
	SlashFractionIncorrect   float64
	SlashFractionNoReveal    float64
	ReputationDeltaCorrect   int
	ReputationDeltaIncorrect int
	ReputationDeltaNoReveal  int
	MinReputationToVote      int
	MinVotesDefault          int
	MaxOutcomes              int
	Paused                   bool
	AdminChain               ChainID
	// TokenApplication, if non-empty, names the chain identity of the
	// fungible-token application that custodies stake. When empty, all
	// stake deltas are pure accounting.
	TokenApplication ChainID
}

// DefaultParameters returns reasonable defaults for local/dev instantiation.
func DefaultParameters(admin ChainID) Parameters {
	return Parameters{
		MinStake:                 100,
		MaxStake:                 1_000_000,
		DefaultQueryDuration:     24 * time.Hour,
		CommitPhaseDuration:      time.Hour,
		RevealPhaseDuration:      time.Hour,
		StakeLockFraction:        0.1,
		RewardPerCorrectVote:     30,
		SlashFractionIncorrect:   0.1,
		SlashFractionNoReveal:    0.2,
		ReputationDeltaCorrect:   1,
		ReputationDeltaIncorrect: -5,
		ReputationDeltaNoReveal:  -10,
		MinReputationToVote:      0,
		MinVotesDefault:          1,
		MaxOutcomes:              10,
		Paused:                   false,
		AdminChain:               admin,
	}
}

// FloorMul computes floor(a * fraction), the rounding rule for stake locks
// and slashes.
func FloorMul(a Amount, fraction float64) Amount {
	if a <= 0 || fraction <= 0 {
		return 0
	}
	return Amount(float64(a) * fraction)
}

// ClampReputation clamps v into [0,100].
func ClampReputation(v int) int {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}
