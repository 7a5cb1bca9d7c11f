package registry

import (
	"context"

	"github.com/oraclenet/registry/domain/oracle"
	"github.com/oraclenet/registry/pkg/metrics"
)

// resolveQuery runs the resolution steps atomically with respect to the
// single in-process call: determine the winning outcome, apply
// reputation/reward/slash per commitment, release locks, persist resolved
// state, dispatch the callback, and emit QueryResolved.
// Guarded by the caller having already confirmed the query is not yet
// resolved (refreshPhase only reaches here from RevealPhase; ResolveQuery
// checks explicitly).
func (s *Service) resolveQuery(ctx context.Context, q *oracle.Query) (oracle.Query, error) {
	commitments, err := s.store.ListCommitments(ctx, q.ID)
	if err != nil {
		return oracle.Query{}, oracle.NewError(oracle.ErrInternal, "%v", err)
	}
	reveals, err := s.store.ListReveals(ctx, q.ID)
	if err != nil {
		return oracle.Query{}, oracle.NewError(oracle.ErrInternal, "%v", err)
	}
	revealByVoter := make(map[oracle.ChainID]oracle.Reveal, len(reveals))
	for _, r := range reveals {
		revealByVoter[r.Voter] = r
	}

	// Resolution-time snapshot of stake/reputation, keyed by voter, taken
	// before any slashing or reputation change this resolution applies:
	// weighted strategies weigh at resolution time, not reveal time.
	voterByID := make(map[oracle.ChainID]oracle.VoterRecord, len(commitments))
	var inputs []oracle.RevealInput
	for _, c := range commitments {
		v, found, err := s.store.GetVoter(ctx, c.Voter)
		if err != nil {
			return oracle.Query{}, oracle.NewError(oracle.ErrInternal, "%v", err)
		}
		if !found {
			continue
		}
		voterByID[c.Voter] = v
		if r, ok := revealByVoter[c.Voter]; ok {
			inputs = append(inputs, oracle.RevealInput{Voter: c.Voter, Value: r.Value, Stake: v.Stake, Reputation: v.Reputation})
		}
	}
	if len(inputs) == 0 {
		return oracle.Query{}, oracle.NewError(oracle.ErrInternal, "resolveQuery called with no reveals")
	}

	winner, err := oracle.Aggregate(q.Strategy, q.Outcomes, inputs)
	if err != nil {
		return oracle.Query{}, err
	}

	correctRevealers := 0
	for _, r := range reveals {
		if r.Value == winner {
			correctRevealers++
		}
	}

	params, err := s.params(ctx)
	if err != nil {
		return oracle.Query{}, oracle.NewError(oracle.ErrInternal, "%v", err)
	}

	var rewardPerCorrect oracle.Amount
	if correctRevealers > 0 {
		rewardPerCorrect = params.RewardPerCorrectVote
		if ceiling := q.RewardPool / oracle.Amount(correctRevealers); ceiling < rewardPerCorrect {
			rewardPerCorrect = ceiling
		}
	}

	for _, c := range commitments {
		v, ok := voterByID[c.Voter]
		if !ok {
			continue
		}
		reveal, revealed := revealByVoter[c.Voter]

		switch {
		case revealed && reveal.Value == winner:
			v.Reputation = oracle.ClampReputation(v.Reputation + params.ReputationDeltaCorrect)
			v.CorrectVotes++
			if rewardPerCorrect > 0 {
				if err := s.store.AddPendingReward(ctx, c.Voter, rewardPerCorrect); err != nil {
					return oracle.Query{}, oracle.NewError(oracle.ErrInternal, "%v", err)
				}
				v.TotalRewardsEarned += rewardPerCorrect
			}
		case revealed && reveal.Value != winner:
			v.Reputation = oracle.ClampReputation(v.Reputation + params.ReputationDeltaIncorrect)
			slash := oracle.FloorMul(v.Stake, params.SlashFractionIncorrect)
			v.Stake -= slash
			v.TotalSlashed += slash
			metrics.RecordSlash("incorrect", slash)
			if slash > 0 {
				if err := s.store.AddTotalStake(ctx, -slash); err != nil {
					return oracle.Query{}, oracle.NewError(oracle.ErrInternal, "%v", err)
				}
			}
		default:
			v.Reputation = oracle.ClampReputation(v.Reputation + params.ReputationDeltaNoReveal)
			slash := oracle.FloorMul(v.Stake, params.SlashFractionNoReveal)
			v.Stake -= slash
			v.TotalSlashed += slash
			metrics.RecordSlash("no_reveal", slash)
			if slash > 0 {
				if err := s.store.AddTotalStake(ctx, -slash); err != nil {
					return oracle.Query{}, oracle.NewError(oracle.ErrInternal, "%v", err)
				}
			}
		}

		v.LockedStake -= c.StakeLocked
		if v.LockedStake < 0 {
			v.LockedStake = 0
		}
		v.TotalVotes++
		if err := s.store.PutVoter(ctx, v); err != nil {
			return oracle.Query{}, oracle.NewError(oracle.ErrInternal, "%v", err)
		}
	}

	distributed := rewardPerCorrect * oracle.Amount(correctRevealers)
	if distributed > 0 {
		if err := s.store.AddRewardPoolTotal(ctx, -distributed); err != nil {
			return oracle.Query{}, oracle.NewError(oracle.ErrInternal, "%v", err)
		}
	}

	now := s.clock.Now()
	outcome := winner
	q.ResolvedOutcome = &outcome
	q.ResolvedAt = &now
	q.Phase = oracle.PhaseResolved
	if err := s.store.PutQuery(ctx, *q); err != nil {
		return oracle.Query{}, oracle.NewError(oracle.ErrInternal, "%v", err)
	}

	if q.Callback != nil {
		cb := QueryResolutionCallback{
			QueryID: q.ID, ResolvedOutcome: winner, ResolvedAt: now, OpaqueData: q.Callback.OpaqueData,
		}
		if err := s.messenger.SendCallback(ctx, q.Callback.Chain, cb); err != nil {
			s.log.WithField("query_id", q.ID).WithField("err", err).Warn("callback dispatch failed")
		} else {
			metrics.RecordCallbackDispatch(q.Callback.Chain, now)
		}
	}
	metrics.RecordResolution(q.Strategy, oracle.PhaseResolved, now.Sub(q.CreatedAt))
	s.emit(ctx, oracle.EventQueryResolved, map[string]any{"query_id": q.ID, "resolved_outcome": winner})
	return *q, nil
}

// ResolveQuery is the admin override that forces resolution if reveals >= 1
// regardless of deadline. It is also the caller's recourse when no further
// voter traffic will ever touch the query.
func (s *Service) ResolveQuery(ctx context.Context, sender oracle.ChainID, queryID uint64) (oracle.Query, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	params, err := s.params(ctx)
	if err != nil {
		return oracle.Query{}, oracle.NewError(oracle.ErrInternal, "%v", err)
	}
	if err := requireAdmin(params, sender); err != nil {
		return oracle.Query{}, err
	}

	q, found, err := s.store.GetQuery(ctx, queryID)
	if err != nil {
		return oracle.Query{}, oracle.NewError(oracle.ErrInternal, "%v", err)
	}
	if !found {
		return oracle.Query{}, oracle.NewError(oracle.ErrQueryNotFound, "query %d not found", queryID)
	}
	if q.Phase == oracle.PhaseResolved {
		return oracle.Query{}, oracle.NewError(oracle.ErrQueryAlreadyResolved, "query %d already resolved", queryID)
	}
	if q.Phase != oracle.PhaseCommit && q.Phase != oracle.PhaseReveal {
		return oracle.Query{}, oracle.NewError(oracle.ErrWrongPhase, "query %d is %s", queryID, q.Phase)
	}
	if q.Phase == oracle.PhaseCommit {
		q.Phase = oracle.PhaseReveal
	}
	if q.Reveals < 1 {
		return oracle.Query{}, oracle.NewError(oracle.ErrWrongPhase, "query %d has no reveals to resolve", queryID)
	}
	return s.resolveQuery(ctx, &q)
}

// ClaimRewards pays out voter's accumulated PendingReward and zeroes it. In
// accounting-only mode this simply reports the amount; token-backed mode
// additionally enqueues a transfer.
func (s *Service) ClaimRewards(ctx context.Context, voter oracle.ChainID) (oracle.Amount, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	amount, err := s.store.ResetPendingReward(ctx, voter)
	if err != nil {
		return 0, oracle.NewError(oracle.ErrInternal, "%v", err)
	}
	if amount == 0 {
		s.emit(ctx, oracle.EventRewardsClaimed, map[string]any{"voter": string(voter), "amount": int64(0)})
		return 0, nil
	}

	params, err := s.params(ctx)
	if err != nil {
		return 0, oracle.NewError(oracle.ErrInternal, "%v", err)
	}
	if params.TokenApplication != "" {
		if err := s.messenger.SendTokenTransfer(ctx, voter, amount); err != nil {
			s.log.WithField("voter", string(voter)).WithField("err", err).Warn("reward transfer dispatch failed")
		}
	}
	s.emit(ctx, oracle.EventRewardsClaimed, map[string]any{"voter": string(voter), "amount": int64(amount)})
	return amount, nil
}
