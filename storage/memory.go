package storage

import (
	"context"
	"sort"
	"sync"

	"github.com/oraclenet/registry/domain/oracle"
)

// MemoryStore is an in-memory Store implementation, safe for concurrent use:
// one mutex guarding a set of maps keyed the way the domain model is keyed.
// Intended for tests, local development, and embedding the registry inside a
// single host process.
type MemoryStore struct {
	mu sync.RWMutex

	voters      map[oracle.ChainID]oracle.VoterRecord
	queries     map[uint64]oracle.Query
	nextQueryID uint64

	commitments map[uint64]map[oracle.ChainID]oracle.Commitment
	reveals     map[uint64]map[oracle.ChainID]oracle.Reveal

	pendingRewards  map[oracle.ChainID]oracle.Amount
	pendingReceipts map[oracle.ChainID]oracle.Amount

	params oracle.Parameters

	voterCount      int64
	totalStake      oracle.Amount
	rewardPoolTotal oracle.Amount
}

// NewMemoryStore constructs an empty in-memory store seeded with params.
func NewMemoryStore(params oracle.Parameters) *MemoryStore {
	return &MemoryStore{
		voters:          make(map[oracle.ChainID]oracle.VoterRecord),
		queries:         make(map[uint64]oracle.Query),
		nextQueryID:     1,
		commitments:     make(map[uint64]map[oracle.ChainID]oracle.Commitment),
		reveals:         make(map[uint64]map[oracle.ChainID]oracle.Reveal),
		pendingRewards:  make(map[oracle.ChainID]oracle.Amount),
		pendingReceipts: make(map[oracle.ChainID]oracle.Amount),
		params:          params,
	}
}

func (s *MemoryStore) GetVoter(_ context.Context, id oracle.ChainID) (oracle.VoterRecord, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.voters[id]
	return v, ok, nil
}

func (s *MemoryStore) PutVoter(_ context.Context, v oracle.VoterRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.voters[v.Voter] = v
	return nil
}

func (s *MemoryStore) ListVoters(_ context.Context) ([]oracle.VoterRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]oracle.VoterRecord, 0, len(s.voters))
	for _, v := range s.voters {
		out = append(out, v)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Voter < out[j].Voter })
	return out, nil
}

func (s *MemoryStore) NextQueryID(_ context.Context) (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextQueryID
	s.nextQueryID++
	return id, nil
}

func (s *MemoryStore) GetQuery(_ context.Context, id uint64) (oracle.Query, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	q, ok := s.queries[id]
	return q, ok, nil
}

func (s *MemoryStore) PutQuery(_ context.Context, q oracle.Query) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.queries[q.ID] = q
	return nil
}

func (s *MemoryStore) ListQueries(_ context.Context) ([]oracle.Query, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]oracle.Query, 0, len(s.queries))
	for _, q := range s.queries {
		out = append(out, q)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *MemoryStore) GetCommitment(_ context.Context, queryID uint64, voter oracle.ChainID) (oracle.Commitment, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	byVoter, ok := s.commitments[queryID]
	if !ok {
		return oracle.Commitment{}, false, nil
	}
	c, ok := byVoter[voter]
	return c, ok, nil
}

func (s *MemoryStore) PutCommitment(_ context.Context, c oracle.Commitment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	byVoter, ok := s.commitments[c.QueryID]
	if !ok {
		byVoter = make(map[oracle.ChainID]oracle.Commitment)
		s.commitments[c.QueryID] = byVoter
	}
	byVoter[c.Voter] = c
	return nil
}

func (s *MemoryStore) ListCommitments(_ context.Context, queryID uint64) ([]oracle.Commitment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	byVoter := s.commitments[queryID]
	out := make([]oracle.Commitment, 0, len(byVoter))
	for _, c := range byVoter {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Voter < out[j].Voter })
	return out, nil
}

func (s *MemoryStore) GetReveal(_ context.Context, queryID uint64, voter oracle.ChainID) (oracle.Reveal, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	byVoter, ok := s.reveals[queryID]
	if !ok {
		return oracle.Reveal{}, false, nil
	}
	r, ok := byVoter[voter]
	return r, ok, nil
}

func (s *MemoryStore) PutReveal(_ context.Context, r oracle.Reveal) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	byVoter, ok := s.reveals[r.QueryID]
	if !ok {
		byVoter = make(map[oracle.ChainID]oracle.Reveal)
		s.reveals[r.QueryID] = byVoter
	}
	byVoter[r.Voter] = r
	return nil
}

func (s *MemoryStore) ListReveals(_ context.Context, queryID uint64) ([]oracle.Reveal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	byVoter := s.reveals[queryID]
	out := make([]oracle.Reveal, 0, len(byVoter))
	for _, r := range byVoter {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Voter < out[j].Voter })
	return out, nil
}

func (s *MemoryStore) GetPendingReward(_ context.Context, voter oracle.ChainID) (oracle.Amount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.pendingRewards[voter], nil
}

func (s *MemoryStore) AddPendingReward(_ context.Context, voter oracle.ChainID, delta oracle.Amount) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pendingRewards[voter] += delta
	return nil
}

func (s *MemoryStore) ResetPendingReward(_ context.Context, voter oracle.ChainID) (oracle.Amount, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	amt := s.pendingRewards[voter]
	s.pendingRewards[voter] = 0
	return amt, nil
}

func (s *MemoryStore) GetParameters(_ context.Context) (oracle.Parameters, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.params, nil
}

func (s *MemoryStore) PutParameters(_ context.Context, p oracle.Parameters) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.params = p
	return nil
}

func (s *MemoryStore) VoterCount(_ context.Context) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.voterCount, nil
}

func (s *MemoryStore) AddVoterCount(_ context.Context, delta int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.voterCount += delta
	return nil
}

func (s *MemoryStore) TotalStake(_ context.Context) (oracle.Amount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.totalStake, nil
}

func (s *MemoryStore) AddTotalStake(_ context.Context, delta oracle.Amount) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.totalStake += delta
	return nil
}

func (s *MemoryStore) RewardPoolTotal(_ context.Context) (oracle.Amount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.rewardPoolTotal, nil
}

func (s *MemoryStore) AddRewardPoolTotal(_ context.Context, delta oracle.Amount) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rewardPoolTotal += delta
	return nil
}

func (s *MemoryStore) AddPendingReceipt(_ context.Context, from oracle.ChainID, amount oracle.Amount) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pendingReceipts[from] += amount
	return nil
}

func (s *MemoryStore) ConsumePendingReceipt(_ context.Context, from oracle.ChainID, amount oracle.Amount) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	have := s.pendingReceipts[from]
	if have < amount {
		return false, nil
	}
	s.pendingReceipts[from] = have - amount
	return true, nil
}

var _ Store = (*MemoryStore)(nil)
