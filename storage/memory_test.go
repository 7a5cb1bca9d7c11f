package storage

import (
	"context"
	"testing"
	"time"

	"github.com/oraclenet/registry/domain/oracle"
)

func TestMemoryStoreVoterRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore(oracle.DefaultParameters("admin"))

	if _, ok, err := s.GetVoter(ctx, "alice"); ok || err != nil {
		t.Fatalf("expected absent voter, got ok=%v err=%v", ok, err)
	}

	v := oracle.VoterRecord{Voter: "alice", Stake: 500, RegisteredAt: time.Now(), IsActive: true}
	if err := s.PutVoter(ctx, v); err != nil {
		t.Fatalf("PutVoter: %v", err)
	}
	got, ok, err := s.GetVoter(ctx, "alice")
	if err != nil || !ok {
		t.Fatalf("GetVoter: ok=%v err=%v", ok, err)
	}
	if got.Stake != 500 {
		t.Fatalf("expected stake 500, got %d", got.Stake)
	}
}

func TestMemoryStoreListVotersSorted(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore(oracle.DefaultParameters("admin"))
	for _, id := range []oracle.ChainID{"charlie", "alice", "bob"} {
		if err := s.PutVoter(ctx, oracle.VoterRecord{Voter: id}); err != nil {
			t.Fatalf("PutVoter: %v", err)
		}
	}
	list, err := s.ListVoters(ctx)
	if err != nil {
		t.Fatalf("ListVoters: %v", err)
	}
	want := []oracle.ChainID{"alice", "bob", "charlie"}
	for i, id := range want {
		if list[i].Voter != id {
			t.Fatalf("expected sorted order, index %d: got %s want %s", i, list[i].Voter, id)
		}
	}
}

func TestMemoryStoreNextQueryIDMonotonic(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore(oracle.DefaultParameters("admin"))
	var ids []uint64
	for i := 0; i < 5; i++ {
		id, err := s.NextQueryID(ctx)
		if err != nil {
			t.Fatalf("NextQueryID: %v", err)
		}
		ids = append(ids, id)
	}
	for i := 1; i < len(ids); i++ {
		if ids[i] != ids[i-1]+1 {
			t.Fatalf("expected strictly increasing ids, got %v", ids)
		}
	}
}

func TestMemoryStoreCommitmentAndRevealIsolatedByQuery(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore(oracle.DefaultParameters("admin"))

	c := oracle.Commitment{QueryID: 1, Voter: "alice", StakeLocked: 10}
	if err := s.PutCommitment(ctx, c); err != nil {
		t.Fatalf("PutCommitment: %v", err)
	}
	if _, ok, _ := s.GetCommitment(ctx, 2, "alice"); ok {
		t.Fatalf("expected no commitment under a different query id")
	}
	got, ok, err := s.GetCommitment(ctx, 1, "alice")
	if err != nil || !ok || got.StakeLocked != 10 {
		t.Fatalf("expected commitment to round-trip, got %+v ok=%v err=%v", got, ok, err)
	}
}

func TestMemoryStorePendingRewardAddAndReset(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore(oracle.DefaultParameters("admin"))

	if err := s.AddPendingReward(ctx, "alice", 50); err != nil {
		t.Fatalf("AddPendingReward: %v", err)
	}
	if err := s.AddPendingReward(ctx, "alice", 25); err != nil {
		t.Fatalf("AddPendingReward: %v", err)
	}
	amt, err := s.GetPendingReward(ctx, "alice")
	if err != nil || amt != 75 {
		t.Fatalf("expected 75, got %d err=%v", amt, err)
	}
	reset, err := s.ResetPendingReward(ctx, "alice")
	if err != nil || reset != 75 {
		t.Fatalf("expected reset to return 75, got %d err=%v", reset, err)
	}
	after, _ := s.GetPendingReward(ctx, "alice")
	if after != 0 {
		t.Fatalf("expected 0 after reset, got %d", after)
	}
}

func TestMemoryStorePendingReceiptReconciliation(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore(oracle.DefaultParameters("admin"))

	if err := s.AddPendingReceipt(ctx, "alice", 100); err != nil {
		t.Fatalf("AddPendingReceipt: %v", err)
	}
	ok, err := s.ConsumePendingReceipt(ctx, "alice", 150)
	if err != nil || ok {
		t.Fatalf("expected insufficient receipt to fail, ok=%v err=%v", ok, err)
	}
	ok, err = s.ConsumePendingReceipt(ctx, "alice", 100)
	if err != nil || !ok {
		t.Fatalf("expected sufficient receipt to succeed, ok=%v err=%v", ok, err)
	}
	ok, _ = s.ConsumePendingReceipt(ctx, "alice", 1)
	if ok {
		t.Fatalf("expected receipt to be fully consumed")
	}
}

func TestMemoryStoreCounters(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore(oracle.DefaultParameters("admin"))

	if err := s.AddVoterCount(ctx, 3); err != nil {
		t.Fatalf("AddVoterCount: %v", err)
	}
	if n, _ := s.VoterCount(ctx); n != 3 {
		t.Fatalf("expected voter count 3, got %d", n)
	}
	if err := s.AddTotalStake(ctx, 1000); err != nil {
		t.Fatalf("AddTotalStake: %v", err)
	}
	if n, _ := s.TotalStake(ctx); n != 1000 {
		t.Fatalf("expected total stake 1000, got %d", n)
	}
	if err := s.AddRewardPoolTotal(ctx, 250); err != nil {
		t.Fatalf("AddRewardPoolTotal: %v", err)
	}
	if n, _ := s.RewardPoolTotal(ctx); n != 250 {
		t.Fatalf("expected reward pool total 250, got %d", n)
	}
}
