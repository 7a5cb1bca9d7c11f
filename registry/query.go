package registry

import (
	"context"
	"time"

	"github.com/oraclenet/registry/domain/oracle"
	"github.com/oraclenet/registry/pkg/metrics"
)

func validateOutcomes(outcomes []string, maxOutcomes int) error {
	if len(outcomes) < 2 || len(outcomes) > maxOutcomes {
		return oracle.NewError(oracle.ErrInvalidOutcomes, "outcome count %d outside [2,%d]", len(outcomes), maxOutcomes)
	}
	seen := make(map[string]struct{}, len(outcomes))
	for _, o := range outcomes {
		if o == "" {
			return oracle.NewError(oracle.ErrInvalidOutcomes, "empty outcome string")
		}
		if _, dup := seen[o]; dup {
			return oracle.NewError(oracle.ErrInvalidOutcomes, "duplicate outcome %q", o)
		}
		seen[o] = struct{}{}
	}
	return nil
}

// createQueryParams bundles the fields common to CreateQuery and
// CreateQueryFromRequester.
type createQueryParams struct {
	Description      string
	Outcomes         []string
	Strategy         oracle.Strategy
	MinVotes         int
	RewardPool       oracle.Amount
	Creator          oracle.ChainID
	Callback         *oracle.CallbackBinding
	ExplicitDeadline *time.Time
}

func (s *Service) createQuery(ctx context.Context, p createQueryParams) (oracle.Query, error) {
	params, err := s.params(ctx)
	if err != nil {
		return oracle.Query{}, oracle.NewError(oracle.ErrInternal, "%v", err)
	}
	if err := requireNotPaused(params); err != nil {
		return oracle.Query{}, err
	}
	if err := validateOutcomes(p.Outcomes, params.MaxOutcomes); err != nil {
		return oracle.Query{}, err
	}
	if !oracle.ValidStrategy(p.Strategy) {
		return oracle.Query{}, oracle.NewError(oracle.ErrInvalidOutcomes, "unknown strategy %q", p.Strategy)
	}
	minVotes := p.MinVotes
	if minVotes == 0 {
		minVotes = params.MinVotesDefault
	}
	if minVotes < 1 {
		return oracle.Query{}, oracle.NewError(oracle.ErrInvalidOutcomes, "min_votes must be >= 1")
	}
	if p.RewardPool < 0 {
		return oracle.Query{}, oracle.NewError(oracle.ErrInvalidOutcomes, "reward_pool must be non-negative")
	}

	now := s.clock.Now()
	var commitDeadline, revealDeadline time.Time
	if p.ExplicitDeadline != nil {
		if !p.ExplicitDeadline.After(now) {
			return oracle.Query{}, oracle.NewError(oracle.ErrInvalidDeadline, "deadline must be strictly in the future")
		}
		revealDeadline = *p.ExplicitDeadline
		commitDeadline = revealDeadline.Add(-params.RevealPhaseDuration)
		if !commitDeadline.After(now) {
			commitDeadline = now.Add(time.Nanosecond)
		}
	} else {
		commitDeadline = now.Add(params.CommitPhaseDuration)
		revealDeadline = commitDeadline.Add(params.RevealPhaseDuration)
	}

	id, err := s.store.NextQueryID(ctx)
	if err != nil {
		return oracle.Query{}, oracle.NewError(oracle.ErrInternal, "%v", err)
	}
	q := oracle.Query{
		ID:             id,
		Description:    p.Description,
		Outcomes:       p.Outcomes,
		Strategy:       p.Strategy,
		MinVotes:       minVotes,
		RewardPool:     p.RewardPool,
		Phase:          oracle.PhaseCommit,
		CreatedAt:      now,
		CommitDeadline: commitDeadline,
		RevealDeadline: revealDeadline,
		Creator:        p.Creator,
		Callback:       p.Callback,
	}
	if err := s.store.PutQuery(ctx, q); err != nil {
		return oracle.Query{}, oracle.NewError(oracle.ErrInternal, "%v", err)
	}
	if err := s.store.AddRewardPoolTotal(ctx, p.RewardPool); err != nil {
		return oracle.Query{}, oracle.NewError(oracle.ErrInternal, "%v", err)
	}
	s.emit(ctx, oracle.EventQueryCreated, map[string]any{"query_id": id, "strategy": string(p.Strategy)})
	return q, nil
}

// CreateQuery is the synchronous operation issued by the registry's own
// chain; only the admin may open queries this way.
func (s *Service) CreateQuery(ctx context.Context, sender oracle.ChainID, description string, outcomes []string, strategy oracle.Strategy, minVotes int, rewardPool oracle.Amount, callback *oracle.CallbackBinding, explicitDeadline *time.Time) (oracle.Query, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	params, err := s.params(ctx)
	if err != nil {
		return oracle.Query{}, oracle.NewError(oracle.ErrInternal, "%v", err)
	}
	if err := requireAdmin(params, sender); err != nil {
		return oracle.Query{}, err
	}
	return s.createQuery(ctx, createQueryParams{
		Description: description, Outcomes: outcomes, Strategy: strategy, MinVotes: minVotes,
		RewardPool: rewardPool, Creator: sender, Callback: callback, ExplicitDeadline: explicitDeadline,
	})
}

// CreateQueryFromRequester is the inbound message an external application
// sends to request a query, binding a callback to itself.
func (s *Service) CreateQueryFromRequester(ctx context.Context, requester oracle.ChainID, question string, outcomes []string, strategy oracle.Strategy, minVotes int, rewardPool oracle.Amount, explicitDeadline *time.Time, callbackApplication string, opaqueData []byte) (oracle.Query, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.createQuery(ctx, createQueryParams{
		Description: question,
		Outcomes:    outcomes,
		Strategy:    strategy,
		MinVotes:    minVotes,
		RewardPool:  rewardPool,
		Creator:     requester,
		Callback: &oracle.CallbackBinding{
			Chain:       requester,
			Application: callbackApplication,
			OpaqueData:  opaqueData,
		},
		ExplicitDeadline: explicitDeadline,
	})
}

// refreshPhase is the lazy phase-advancement routine every query-touching
// operation calls before acting. There is no background timer; phase is
// simply reconciled against now whenever a query is inspected.
func (s *Service) refreshPhase(ctx context.Context, q *oracle.Query) error {
	if q.Phase != oracle.PhaseCommit && q.Phase != oracle.PhaseReveal {
		return nil
	}
	now := s.clock.Now()

	if q.Phase == oracle.PhaseCommit && !now.Before(q.CommitDeadline) {
		q.Phase = oracle.PhaseReveal
	}
	if q.Phase == oracle.PhaseReveal && !now.Before(q.RevealDeadline) {
		if q.Reveals >= q.MinVotes {
			resolved, err := s.resolveQuery(ctx, q)
			if err != nil {
				return err
			}
			*q = resolved
			return nil
		}
		if err := s.expireQuery(ctx, q); err != nil {
			return err
		}
		return nil
	}
	return s.store.PutQuery(ctx, *q)
}

func (s *Service) expireQuery(ctx context.Context, q *oracle.Query) error {
	if err := s.releaseAllLocks(ctx, q.ID); err != nil {
		return err
	}
	q.Phase = oracle.PhaseExpired
	if err := s.store.PutQuery(ctx, *q); err != nil {
		return oracle.NewError(oracle.ErrInternal, "%v", err)
	}
	metrics.RecordResolution(q.Strategy, oracle.PhaseExpired, s.clock.Now().Sub(q.CreatedAt))
	s.emit(ctx, oracle.EventQueryExpired, map[string]any{"query_id": q.ID})
	return nil
}

// releaseAllLocks zeroes locked_stake contributed by q's open commitments.
// Used by Expired and Cancelled transitions, which release locks without
// running reward/slash logic (unlike Resolved, which does both in resolve.go).
func (s *Service) releaseAllLocks(ctx context.Context, queryID uint64) error {
	commitments, err := s.store.ListCommitments(ctx, queryID)
	if err != nil {
		return oracle.NewError(oracle.ErrInternal, "%v", err)
	}
	for _, c := range commitments {
		v, found, err := s.store.GetVoter(ctx, c.Voter)
		if err != nil {
			return oracle.NewError(oracle.ErrInternal, "%v", err)
		}
		if !found {
			continue
		}
		v.LockedStake -= c.StakeLocked
		if v.LockedStake < 0 {
			v.LockedStake = 0
		}
		if err := s.store.PutVoter(ctx, v); err != nil {
			return oracle.NewError(oracle.ErrInternal, "%v", err)
		}
	}
	return nil
}

// CancelQuery is the admin override that moves a query straight to
// Cancelled, releasing locks and refunding the reward pool to the creator.
func (s *Service) CancelQuery(ctx context.Context, sender oracle.ChainID, queryID uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	params, err := s.params(ctx)
	if err != nil {
		return oracle.NewError(oracle.ErrInternal, "%v", err)
	}
	if err := requireAdmin(params, sender); err != nil {
		return err
	}

	q, found, err := s.store.GetQuery(ctx, queryID)
	if err != nil {
		return oracle.NewError(oracle.ErrInternal, "%v", err)
	}
	if !found {
		return oracle.NewError(oracle.ErrQueryNotFound, "query %d not found", queryID)
	}
	if q.Phase == oracle.PhaseResolved || q.Phase == oracle.PhaseCancelled || q.Phase == oracle.PhaseExpired {
		return oracle.NewError(oracle.ErrWrongPhase, "query %d is %s", queryID, q.Phase)
	}

	if err := s.releaseAllLocks(ctx, queryID); err != nil {
		return err
	}
	q.Phase = oracle.PhaseCancelled
	if err := s.store.PutQuery(ctx, q); err != nil {
		return oracle.NewError(oracle.ErrInternal, "%v", err)
	}

	if q.RewardPool > 0 {
		if err := s.store.AddRewardPoolTotal(ctx, -q.RewardPool); err != nil {
			return oracle.NewError(oracle.ErrInternal, "%v", err)
		}
		if err := s.messenger.SendTokenTransfer(ctx, q.Creator, q.RewardPool); err != nil {
			s.log.WithField("query_id", queryID).WithField("err", err).Warn("reward pool refund dispatch failed")
		}
	}
	s.emit(ctx, oracle.EventQueryCancelled, map[string]any{"query_id": queryID})
	return nil
}
