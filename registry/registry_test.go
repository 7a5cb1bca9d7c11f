package registry

import (
	"context"
	"testing"
	"time"

	"github.com/oraclenet/registry/domain/oracle"
	"github.com/oraclenet/registry/pkg/logger"
	"github.com/oraclenet/registry/storage"
)

const admin oracle.ChainID = "admin-chain"

func newTestService(t *testing.T) (*Service, *manualClock, *storage.MemoryStore, *RecordingMessenger) {
	t.Helper()
	params := oracle.DefaultParameters(admin)
	params.MinStake = 100
	params.StakeLockFraction = 0.1
	params.RewardPerCorrectVote = 30
	params.MinReputationToVote = 0
	params.CommitPhaseDuration = time.Hour
	params.RevealPhaseDuration = time.Hour

	store := storage.NewMemoryStore(params)
	clock := newManualClock(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	messenger := &RecordingMessenger{}
	svc := New(store, logger.NewDefault("registry-test"), WithClock(clock), WithMessenger(messenger))
	return svc, clock, store, messenger
}

func registerVoter(t *testing.T, svc *Service, id oracle.ChainID, stake oracle.Amount) {
	t.Helper()
	if err := svc.RegisterVoter(context.Background(), id, stake, "", ""); err != nil {
		t.Fatalf("RegisterVoter(%s): %v", id, err)
	}
}

func createMajorityQuery(t *testing.T, svc *Service, strategy oracle.Strategy, minVotes int, rewardPool oracle.Amount) oracle.Query {
	t.Helper()
	q, err := svc.CreateQuery(context.Background(), admin, "will it happen", []string{"Yes", "No"}, strategy, minVotes, rewardPool, nil, nil)
	if err != nil {
		t.Fatalf("CreateQuery: %v", err)
	}
	return q
}

func commit(t *testing.T, svc *Service, voter oracle.ChainID, queryID uint64, value, salt string) {
	t.Helper()
	hash := oracle.ComputeCommitHash(value, salt)
	if err := svc.CommitVote(context.Background(), voter, queryID, hash.String()); err != nil {
		t.Fatalf("CommitVote(%s): %v", voter, err)
	}
}

func reveal(t *testing.T, svc *Service, voter oracle.ChainID, queryID uint64, value, salt string) error {
	t.Helper()
	return svc.RevealVote(context.Background(), voter, queryID, value, salt, nil)
}

// Three voters, one answer: everyone is rewarded and reputation rises.
func TestMajorityUnanimousResolution(t *testing.T) {
	svc, clock, store, _ := newTestService(t)
	ctx := context.Background()

	registerVoter(t, svc, "a", 1000)
	registerVoter(t, svc, "b", 1000)
	registerVoter(t, svc, "c", 1000)

	q := createMajorityQuery(t, svc, oracle.StrategyMajority, 3, 90)

	commit(t, svc, "a", q.ID, "Yes", "a")
	commit(t, svc, "b", q.ID, "Yes", "b")
	commit(t, svc, "c", q.ID, "Yes", "c")

	clock.Advance(time.Hour + time.Second)

	if err := reveal(t, svc, "a", q.ID, "Yes", "a"); err != nil {
		t.Fatalf("reveal a: %v", err)
	}
	if err := reveal(t, svc, "b", q.ID, "Yes", "b"); err != nil {
		t.Fatalf("reveal b: %v", err)
	}
	if err := reveal(t, svc, "c", q.ID, "Yes", "c"); err != nil {
		t.Fatalf("reveal c: %v", err)
	}

	clock.Advance(time.Hour + time.Second)

	resolved, err := svc.ResolveQuery(ctx, admin, q.ID)
	if err != nil {
		t.Fatalf("ResolveQuery: %v", err)
	}
	if resolved.ResolvedOutcome == nil || *resolved.ResolvedOutcome != "Yes" {
		t.Fatalf("expected Yes, got %+v", resolved.ResolvedOutcome)
	}

	for _, id := range []oracle.ChainID{"a", "b", "c"} {
		v, _, _ := store.GetVoter(ctx, id)
		if v.Reputation != 51 {
			t.Fatalf("voter %s: expected reputation 51, got %d", id, v.Reputation)
		}
		reward, _ := store.GetPendingReward(ctx, id)
		if reward != 30 {
			t.Fatalf("voter %s: expected pending reward 30, got %d", id, reward)
		}
		if v.LockedStake != 0 {
			t.Fatalf("voter %s: expected locked stake released, got %d", id, v.LockedStake)
		}
	}
}

// A 2-1 majority split: the minority voter is slashed, the majority
// rewarded.
func TestMajoritySplitSlashesMinority(t *testing.T) {
	svc, clock, store, _ := newTestService(t)
	ctx := context.Background()

	registerVoter(t, svc, "a", 1000)
	registerVoter(t, svc, "b", 1000)
	registerVoter(t, svc, "c", 1000)

	q := createMajorityQuery(t, svc, oracle.StrategyMajority, 3, 90)
	commit(t, svc, "a", q.ID, "Yes", "a")
	commit(t, svc, "b", q.ID, "No", "b")
	commit(t, svc, "c", q.ID, "No", "c")

	clock.Advance(time.Hour + time.Second)
	mustReveal := func(id oracle.ChainID, value, salt string) {
		if err := reveal(t, svc, id, q.ID, value, salt); err != nil {
			t.Fatalf("reveal %s: %v", id, err)
		}
	}
	mustReveal("a", "Yes", "a")
	mustReveal("b", "No", "b")
	mustReveal("c", "No", "c")

	clock.Advance(time.Hour + time.Second)
	resolved, err := svc.ResolveQuery(ctx, admin, q.ID)
	if err != nil {
		t.Fatalf("ResolveQuery: %v", err)
	}
	if *resolved.ResolvedOutcome != "No" {
		t.Fatalf("expected No, got %s", *resolved.ResolvedOutcome)
	}

	a, _, _ := store.GetVoter(ctx, "a")
	if a.Reputation != 45 {
		t.Fatalf("expected a's reputation to drop to 45, got %d", a.Reputation)
	}
	if a.TotalSlashed != 100 {
		t.Fatalf("expected a slashed 100 (floor(1000*0.1)), got %d", a.TotalSlashed)
	}
	b, _, _ := store.GetVoter(ctx, "b")
	if b.Reputation != 51 {
		t.Fatalf("expected b's reputation to rise to 51, got %d", b.Reputation)
	}
}

// A committed voter who never reveals is slashed harder and still has the
// lock released.
func TestMissingRevealSlashedAtResolution(t *testing.T) {
	svc, clock, store, _ := newTestService(t)
	ctx := context.Background()

	registerVoter(t, svc, "a", 1000)
	registerVoter(t, svc, "b", 1000)
	registerVoter(t, svc, "c", 1000)

	q := createMajorityQuery(t, svc, oracle.StrategyMajority, 2, 90)
	commit(t, svc, "a", q.ID, "Yes", "a")
	commit(t, svc, "b", q.ID, "Yes", "b")
	commit(t, svc, "c", q.ID, "Yes", "c")

	clock.Advance(time.Hour + time.Second)
	if err := reveal(t, svc, "a", q.ID, "Yes", "a"); err != nil {
		t.Fatalf("reveal a: %v", err)
	}
	if err := reveal(t, svc, "b", q.ID, "Yes", "b"); err != nil {
		t.Fatalf("reveal b: %v", err)
	}
	// c never reveals.

	clock.Advance(time.Hour + time.Second)
	resolved, err := svc.ResolveQuery(ctx, admin, q.ID)
	if err != nil {
		t.Fatalf("ResolveQuery: %v", err)
	}
	if *resolved.ResolvedOutcome != "Yes" {
		t.Fatalf("expected Yes, got %s", *resolved.ResolvedOutcome)
	}

	c, _, _ := store.GetVoter(ctx, "c")
	if c.TotalSlashed != 200 {
		t.Fatalf("expected c slashed floor(1000*0.2)=200, got %d", c.TotalSlashed)
	}
	if c.Reputation != 40 {
		t.Fatalf("expected c's reputation to drop to 40, got %d", c.Reputation)
	}
	if c.LockedStake != 0 {
		t.Fatalf("expected c's lock released even without reveal, got %d", c.LockedStake)
	}
}

// A reveal whose value does not hash to the commitment is rejected and
// leaves no reveal record behind.
func TestHashMismatchRejectsReveal(t *testing.T) {
	svc, clock, _, _ := newTestService(t)

	registerVoter(t, svc, "a", 1000)
	q := createMajorityQuery(t, svc, oracle.StrategyMajority, 1, 30)
	commit(t, svc, "a", q.ID, "Yes", "a")

	clock.Advance(time.Hour + time.Second)
	err := reveal(t, svc, "a", q.ID, "No", "a")
	if oracle.KindOf(err) != oracle.ErrHashMismatch {
		t.Fatalf("expected HashMismatch, got %v", err)
	}

	// commitment still stands; a second, correct reveal attempt against the
	// same commitment is rejected as AlreadyRevealed only if the first
	// reveal actually got recorded, which it must not have.
	if _, found, _ := svc.store.GetReveal(context.Background(), q.ID, "a"); found {
		t.Fatalf("expected no reveal recorded after hash mismatch")
	}
}

// One heavily staked voter outweighs two light ones under WeightedByStake.
func TestWeightedByStakeOverridesHeadcount(t *testing.T) {
	svc, clock, _, _ := newTestService(t)
	ctx := context.Background()

	registerVoter(t, svc, "a", 100)
	registerVoter(t, svc, "b", 100)
	registerVoter(t, svc, "c", 1000)

	q := createMajorityQuery(t, svc, oracle.StrategyWeightedByStake, 3, 90)
	commit(t, svc, "a", q.ID, "Yes", "a")
	commit(t, svc, "b", q.ID, "Yes", "b")
	commit(t, svc, "c", q.ID, "No", "c")

	clock.Advance(time.Hour + time.Second)
	for _, pair := range []struct{ id, value, salt string }{{"a", "Yes", "a"}, {"b", "Yes", "b"}, {"c", "No", "c"}} {
		if err := reveal(t, svc, oracle.ChainID(pair.id), q.ID, pair.value, pair.salt); err != nil {
			t.Fatalf("reveal %s: %v", pair.id, err)
		}
	}

	clock.Advance(time.Hour + time.Second)
	resolved, err := svc.ResolveQuery(ctx, admin, q.ID)
	if err != nil {
		t.Fatalf("ResolveQuery: %v", err)
	}
	if *resolved.ResolvedOutcome != "No" {
		t.Fatalf("expected No (weight 1000 > 200), got %s", *resolved.ResolvedOutcome)
	}
}

// Resolution of a requester-created query enqueues exactly one callback
// carrying the opaque data unchanged.
func TestCallbackDispatchPreservesOpaqueData(t *testing.T) {
	svc, clock, _, messenger := newTestService(t)
	ctx := context.Background()

	registerVoter(t, svc, "a", 1000)

	opaque := []byte{0x07, 0x00, 0x00, 0x00}
	q, err := svc.CreateQueryFromRequester(ctx, "requester-chain", "will it happen", []string{"Yes", "No"}, oracle.StrategyMajority, 1, 30, nil, "prediction-market", opaque)
	if err != nil {
		t.Fatalf("CreateQueryFromRequester: %v", err)
	}

	commit(t, svc, "a", q.ID, "Yes", "a")
	clock.Advance(time.Hour + time.Second)
	if err := reveal(t, svc, "a", q.ID, "Yes", "a"); err != nil {
		t.Fatalf("reveal: %v", err)
	}
	clock.Advance(time.Hour + time.Second)
	if _, err := svc.ResolveQuery(ctx, admin, q.ID); err != nil {
		t.Fatalf("ResolveQuery: %v", err)
	}

	if len(messenger.Callbacks) != 1 {
		t.Fatalf("expected exactly one callback, got %d", len(messenger.Callbacks))
	}
	cb := messenger.Callbacks[0]
	if cb.To != "requester-chain" {
		t.Fatalf("expected callback to requester-chain, got %s", cb.To)
	}
	if string(cb.Callback.OpaqueData) != string(opaque) {
		t.Fatalf("expected opaque data to survive unchanged, got %v", cb.Callback.OpaqueData)
	}
	if cb.Callback.ResolvedOutcome != "Yes" {
		t.Fatalf("expected resolved outcome Yes, got %s", cb.Callback.ResolvedOutcome)
	}
}

func TestResolutionIsIdempotent(t *testing.T) {
	svc, clock, _, messenger := newTestService(t)
	ctx := context.Background()

	registerVoter(t, svc, "a", 1000)
	q := createMajorityQuery(t, svc, oracle.StrategyMajority, 1, 30)
	commit(t, svc, "a", q.ID, "Yes", "a")
	clock.Advance(time.Hour + time.Second)
	if err := reveal(t, svc, "a", q.ID, "Yes", "a"); err != nil {
		t.Fatalf("reveal: %v", err)
	}
	clock.Advance(time.Hour + time.Second)

	if _, err := svc.ResolveQuery(ctx, admin, q.ID); err != nil {
		t.Fatalf("first ResolveQuery: %v", err)
	}
	if _, err := svc.ResolveQuery(ctx, admin, q.ID); oracle.KindOf(err) != oracle.ErrQueryAlreadyResolved {
		t.Fatalf("expected QueryAlreadyResolved on second call, got %v", err)
	}
	if len(messenger.Callbacks) != 0 {
		t.Fatalf("expected no callback (query has none bound), got %d", len(messenger.Callbacks))
	}
}

func TestExpiryOnInsufficientReveals(t *testing.T) {
	svc, clock, store, _ := newTestService(t)
	ctx := context.Background()

	registerVoter(t, svc, "a", 1000)
	q := createMajorityQuery(t, svc, oracle.StrategyMajority, 2, 30)
	commit(t, svc, "a", q.ID, "Yes", "a")

	clock.Advance(time.Hour + time.Second)
	if err := reveal(t, svc, "a", q.ID, "Yes", "a"); err != nil {
		t.Fatalf("reveal: %v", err)
	}
	clock.Advance(time.Hour + time.Second)

	got, found, err := store.GetQuery(ctx, q.ID)
	if err != nil || !found {
		t.Fatalf("GetQuery: found=%v err=%v", found, err)
	}
	if err := svc.refreshPhase(ctx, &got); err != nil {
		t.Fatalf("refreshPhase: %v", err)
	}
	if got.Phase != oracle.PhaseExpired {
		t.Fatalf("expected Expired (only 1 of 2 min_votes revealed), got %s", got.Phase)
	}

	a, _, _ := store.GetVoter(ctx, "a")
	if a.LockedStake != 0 {
		t.Fatalf("expected lock released on expiry, got %d", a.LockedStake)
	}
}

func TestInvalidOutcomeCounts(t *testing.T) {
	svc, _, _, _ := newTestService(t)
	ctx := context.Background()

	if _, err := svc.CreateQuery(ctx, admin, "too few", []string{"Yes"}, oracle.StrategyMajority, 1, 0, nil, nil); oracle.KindOf(err) != oracle.ErrInvalidOutcomes {
		t.Fatalf("expected InvalidOutcomes for 1 outcome, got %v", err)
	}

	eleven := make([]string, 11)
	for i := range eleven {
		eleven[i] = string(rune('A' + i))
	}
	if _, err := svc.CreateQuery(ctx, admin, "too many", eleven, oracle.StrategyMajority, 1, 0, nil, nil); oracle.KindOf(err) != oracle.ErrInvalidOutcomes {
		t.Fatalf("expected InvalidOutcomes for 11 outcomes, got %v", err)
	}

	ten := eleven[:10]
	if _, err := svc.CreateQuery(ctx, admin, "exactly ten", ten, oracle.StrategyMajority, 1, 0, nil, nil); err != nil {
		t.Fatalf("expected 10 outcomes to succeed, got %v", err)
	}
}

func TestStakeBoundary(t *testing.T) {
	svc, _, _, _ := newTestService(t)
	ctx := context.Background()

	if err := svc.RegisterVoter(ctx, "low", 99, "", ""); oracle.KindOf(err) != oracle.ErrInvalidStake {
		t.Fatalf("expected InvalidStake for 1 below min_stake, got %v", err)
	}
	if err := svc.RegisterVoter(ctx, "ok", 100, "", ""); err != nil {
		t.Fatalf("expected min_stake to succeed, got %v", err)
	}
}

func TestCommitDeadlineBoundary(t *testing.T) {
	svc, clock, _, _ := newTestService(t)
	ctx := context.Background()
	registerVoter(t, svc, "a", 1000)
	q := createMajorityQuery(t, svc, oracle.StrategyMajority, 1, 30)

	clock.Advance(time.Hour - time.Millisecond)
	if err := svc.CommitVote(ctx, "a", q.ID, oracle.ComputeCommitHash("Yes", "a").String()); err != nil {
		t.Fatalf("expected commit just before deadline to succeed, got %v", err)
	}

	registerVoter(t, svc, "b", 1000)
	clock.Advance(2 * time.Millisecond)
	if err := svc.CommitVote(ctx, "b", q.ID, oracle.ComputeCommitHash("Yes", "b").String()); oracle.KindOf(err) != oracle.ErrWrongPhase {
		t.Fatalf("expected WrongPhase at/after deadline, got %v", err)
	}
}

func TestCancelQueryRefundsAndReleasesLocks(t *testing.T) {
	svc, _, store, messenger := newTestService(t)
	ctx := context.Background()

	registerVoter(t, svc, "a", 1000)
	q := createMajorityQuery(t, svc, oracle.StrategyMajority, 1, 90)
	commit(t, svc, "a", q.ID, "Yes", "a")

	// Bind a token application so the refund path is exercised.
	params, _ := store.GetParameters(ctx)
	params.TokenApplication = "token-app"
	if err := store.PutParameters(ctx, params); err != nil {
		t.Fatalf("PutParameters: %v", err)
	}

	if err := svc.CancelQuery(ctx, admin, q.ID); err != nil {
		t.Fatalf("CancelQuery: %v", err)
	}

	got, _, _ := store.GetQuery(ctx, q.ID)
	if got.Phase != oracle.PhaseCancelled {
		t.Fatalf("expected Cancelled, got %s", got.Phase)
	}
	a, _, _ := store.GetVoter(ctx, "a")
	if a.LockedStake != 0 {
		t.Fatalf("expected lock released on cancel, got %d", a.LockedStake)
	}
	if len(messenger.TokenTransfers) != 1 || messenger.TokenTransfers[0].Amount != 90 {
		t.Fatalf("expected reward pool refund of 90, got %+v", messenger.TokenTransfers)
	}
}

func TestClaimRewardsZeroesPending(t *testing.T) {
	svc, _, store, _ := newTestService(t)
	ctx := context.Background()
	if err := store.AddPendingReward(ctx, "a", 42); err != nil {
		t.Fatalf("AddPendingReward: %v", err)
	}
	amount, err := svc.ClaimRewards(ctx, "a")
	if err != nil || amount != 42 {
		t.Fatalf("ClaimRewards: amount=%d err=%v", amount, err)
	}
	after, _ := store.GetPendingReward(ctx, "a")
	if after != 0 {
		t.Fatalf("expected pending reward zeroed, got %d", after)
	}
}

func TestPausedBlocksNonExemptMutations(t *testing.T) {
	svc, _, _, _ := newTestService(t)
	ctx := context.Background()

	registerVoter(t, svc, "a", 1000)
	q := createMajorityQuery(t, svc, oracle.StrategyMajority, 1, 0)

	if err := svc.SetProtocolStatus(ctx, admin, true); err != nil {
		t.Fatalf("SetProtocolStatus: %v", err)
	}
	if err := svc.RegisterVoter(ctx, "b", 1000, "", ""); oracle.KindOf(err) != oracle.ErrPaused {
		t.Fatalf("expected Paused, got %v", err)
	}
	if _, err := svc.CreateQuery(ctx, admin, "q", []string{"Yes", "No"}, oracle.StrategyMajority, 1, 0, nil, nil); oracle.KindOf(err) != oracle.ErrPaused {
		t.Fatalf("expected Paused, got %v", err)
	}
	hash := oracle.ComputeCommitHash("Yes", "a").String()
	if err := svc.CommitVote(ctx, "a", q.ID, hash); oracle.KindOf(err) != oracle.ErrPaused {
		t.Fatalf("expected Paused for CommitVote, got %v", err)
	}
	if err := svc.RevealVote(ctx, "a", q.ID, "Yes", "a", nil); oracle.KindOf(err) != oracle.ErrPaused {
		t.Fatalf("expected Paused for RevealVote, got %v", err)
	}
	if err := svc.SubmitVote(ctx, "a", q.ID, "Yes", nil); oracle.KindOf(err) != oracle.ErrPaused {
		t.Fatalf("expected Paused for SubmitVote, got %v", err)
	}
	// ClaimRewards, WithdrawStake, and DeregisterVoter remain exempt.
	if _, err := svc.ClaimRewards(ctx, "a"); err != nil {
		t.Fatalf("expected ClaimRewards to stay exempt from pause, got %v", err)
	}
	if err := svc.WithdrawStake(ctx, "a", 100); err != nil {
		t.Fatalf("expected WithdrawStake to stay exempt from pause, got %v", err)
	}
	// Admin-only registration is an admin operation, also exempt.
	if err := svc.RegisterVoterFor(ctx, admin, "c", 1000, ""); err != nil {
		t.Fatalf("expected RegisterVoterFor to stay exempt from pause, got %v", err)
	}
}

func TestUnauthorizedAdminOps(t *testing.T) {
	svc, _, _, _ := newTestService(t)
	ctx := context.Background()
	if err := svc.SetProtocolStatus(ctx, "not-admin", true); oracle.KindOf(err) != oracle.ErrUnauthorized {
		t.Fatalf("expected Unauthorized, got %v", err)
	}
}

func TestSubmitVoteCountsAtResolution(t *testing.T) {
	svc, _, store, _ := newTestService(t)
	ctx := context.Background()

	registerVoter(t, svc, "a", 1000)
	registerVoter(t, svc, "b", 1000)
	q := createMajorityQuery(t, svc, oracle.StrategyMajority, 2, 60)

	if err := svc.SubmitVote(ctx, "a", q.ID, "Yes", nil); err != nil {
		t.Fatalf("SubmitVote a: %v", err)
	}
	if err := svc.SubmitVote(ctx, "b", q.ID, "Yes", nil); err != nil {
		t.Fatalf("SubmitVote b: %v", err)
	}
	if err := svc.SubmitVote(ctx, "a", q.ID, "No", nil); oracle.KindOf(err) != oracle.ErrAlreadyRevealed {
		t.Fatalf("expected AlreadyRevealed on a second direct vote, got %v", err)
	}

	resolved, err := svc.ResolveQuery(ctx, admin, q.ID)
	if err != nil {
		t.Fatalf("ResolveQuery: %v", err)
	}
	if *resolved.ResolvedOutcome != "Yes" {
		t.Fatalf("expected Yes, got %s", *resolved.ResolvedOutcome)
	}
	a, _, _ := store.GetVoter(ctx, "a")
	if a.LockedStake != 0 {
		t.Fatalf("expected direct-vote lock released at resolution, got %d", a.LockedStake)
	}
	if reward, _ := store.GetPendingReward(ctx, "a"); reward != 30 {
		t.Fatalf("expected direct voter rewarded 30, got %d", reward)
	}
}

func TestSubmitVoteRejectedForMedian(t *testing.T) {
	svc, _, _, _ := newTestService(t)
	ctx := context.Background()

	registerVoter(t, svc, "a", 1000)
	q, err := svc.CreateQuery(ctx, admin, "how many", []string{"1", "2"}, oracle.StrategyMedian, 1, 0, nil, nil)
	if err != nil {
		t.Fatalf("CreateQuery: %v", err)
	}
	if err := svc.SubmitVote(ctx, "a", q.ID, "1", nil); oracle.KindOf(err) != oracle.ErrStrategyNotPermitted {
		t.Fatalf("expected StrategyNotPermitted, got %v", err)
	}
}

func TestSubmitVoteRequiresAvailableStake(t *testing.T) {
	svc, _, _, _ := newTestService(t)
	ctx := context.Background()

	registerVoter(t, svc, "a", 1000)
	q1 := createMajorityQuery(t, svc, oracle.StrategyMajority, 1, 0)
	q2 := createMajorityQuery(t, svc, oracle.StrategyMajority, 1, 0)

	// Draw the stake down to the point where everything unlocked is gone:
	// 1000 -> 150, commit locks floor(150*0.1)=15, then withdrawals leave
	// stake 15 with all 15 locked.
	if err := svc.WithdrawStake(ctx, "a", 850); err != nil {
		t.Fatalf("WithdrawStake(850): %v", err)
	}
	commit(t, svc, "a", q1.ID, "Yes", "a")
	for _, amount := range []oracle.Amount{130, 4, 1} {
		if err := svc.WithdrawStake(ctx, "a", amount); err != nil {
			t.Fatalf("WithdrawStake(%d): %v", amount, err)
		}
	}

	// floor(15*0.1)=1 needed, 0 available.
	if err := svc.SubmitVote(ctx, "a", q2.ID, "Yes", nil); oracle.KindOf(err) != oracle.ErrInsufficientAvailableStake {
		t.Fatalf("expected InsufficientAvailableStake, got %v", err)
	}
}

func TestDeregisterReturnsResidualAndPreservesHistory(t *testing.T) {
	svc, clock, store, messenger := newTestService(t)
	ctx := context.Background()

	// Token-backed so the residual return is observable as a dispatch.
	params, _ := store.GetParameters(ctx)
	params.TokenApplication = "token-app"
	if err := store.PutParameters(ctx, params); err != nil {
		t.Fatalf("PutParameters: %v", err)
	}

	registerVoter(t, svc, "a", 1000)

	// Earn a reputation point so revival has history to preserve.
	q := createMajorityQuery(t, svc, oracle.StrategyMajority, 1, 30)
	commit(t, svc, "a", q.ID, "Yes", "a")
	clock.Advance(time.Hour + time.Second)
	if err := reveal(t, svc, "a", q.ID, "Yes", "a"); err != nil {
		t.Fatalf("reveal: %v", err)
	}
	clock.Advance(time.Hour + time.Second)
	if _, err := svc.ResolveQuery(ctx, admin, q.ID); err != nil {
		t.Fatalf("ResolveQuery: %v", err)
	}

	before, _ := store.TotalStake(ctx)
	if err := svc.DeregisterVoter(ctx, "a"); err != nil {
		t.Fatalf("DeregisterVoter: %v", err)
	}
	a, _, _ := store.GetVoter(ctx, "a")
	if a.IsActive || a.Stake != 0 {
		t.Fatalf("expected inactive zero-stake record, got active=%v stake=%d", a.IsActive, a.Stake)
	}
	after, _ := store.TotalStake(ctx)
	if after != before-1000 {
		t.Fatalf("expected total_stake reduced by the residual 1000, got %d -> %d", before, after)
	}
	if len(messenger.TokenTransfers) == 0 {
		t.Fatalf("expected the residual stake returned via token transfer")
	}

	// Re-registration revives the record with the earned reputation intact.
	registerVoter(t, svc, "a", 500)
	revived, _, _ := store.GetVoter(ctx, "a")
	if revived.Reputation != 51 {
		t.Fatalf("expected preserved reputation 51 on revival, got %d", revived.Reputation)
	}
	if revived.TotalVotes != 1 || revived.CorrectVotes != 1 {
		t.Fatalf("expected vote history preserved, got %+v", revived)
	}
	finalTotal, _ := store.TotalStake(ctx)
	if finalTotal != after+500 {
		t.Fatalf("expected total_stake to track the revival stake exactly, got %d", finalTotal)
	}
}
