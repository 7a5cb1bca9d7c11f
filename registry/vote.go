package registry

import (
	"context"

	"github.com/oraclenet/registry/domain/oracle"
)

func (s *Service) getQueryRefreshed(ctx context.Context, queryID uint64) (oracle.Query, error) {
	q, found, err := s.store.GetQuery(ctx, queryID)
	if err != nil {
		return oracle.Query{}, oracle.NewError(oracle.ErrInternal, "%v", err)
	}
	if !found {
		return oracle.Query{}, oracle.NewError(oracle.ErrQueryNotFound, "query %d not found", queryID)
	}
	if err := s.refreshPhase(ctx, &q); err != nil {
		return oracle.Query{}, err
	}
	return q, nil
}

// TouchQuery re-evaluates queryID's phase against the current clock without
// requiring a vote, resolve, or cancel to carry the check. It exists for
// hosts (e.g. cmd/registryd's sweeper) that want quiescent queries to still
// cross their deadlines promptly; it runs the exact same lazy refreshPhase
// path any real operation already goes through, never a separate code path.
func (s *Service) TouchQuery(ctx context.Context, queryID uint64) (oracle.Query, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.getQueryRefreshed(ctx, queryID)
}

// eligibleVoter returns the voter's record, auto-registering it if unseen,
// and enforces the active + reputation gate shared by CommitVote and
// SubmitVote.
func (s *Service) eligibleVoter(ctx context.Context, id oracle.ChainID, minReputation int) (oracle.VoterRecord, error) {
	v, found, err := s.store.GetVoter(ctx, id)
	if err != nil {
		return oracle.VoterRecord{}, oracle.NewError(oracle.ErrInternal, "%v", err)
	}
	if !found {
		v, err = s.autoRegister(ctx, id)
		if err != nil {
			return oracle.VoterRecord{}, oracle.NewError(oracle.ErrInternal, "%v", err)
		}
	}
	if !v.IsActive {
		return oracle.VoterRecord{}, oracle.NewError(oracle.ErrVoterInactive, "voter %s is not active", id)
	}
	if v.Reputation < minReputation {
		return oracle.VoterRecord{}, oracle.NewError(oracle.ErrLowReputation, "voter %s reputation %d below %d", id, v.Reputation, minReputation)
	}
	return v, nil
}

// CommitVote records voter's commit-hash for queryID, locking a fraction of
// their stake. Precondition order is fixed: query existence and phase, voter
// eligibility, double-commit, hash shape, then available stake.
func (s *Service) CommitVote(ctx context.Context, voter oracle.ChainID, queryID uint64, commitHashHex string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	params, err := s.params(ctx)
	if err != nil {
		return oracle.NewError(oracle.ErrInternal, "%v", err)
	}
	if err := requireNotPaused(params); err != nil {
		return err
	}

	q, err := s.getQueryRefreshed(ctx, queryID)
	if err != nil {
		return err
	}
	if q.Phase != oracle.PhaseCommit {
		return oracle.NewError(oracle.ErrWrongPhase, "query %d is %s, not commit_phase", queryID, q.Phase)
	}

	v, err := s.eligibleVoter(ctx, voter, params.MinReputationToVote)
	if err != nil {
		return err
	}

	if _, found, err := s.store.GetCommitment(ctx, queryID, voter); err != nil {
		return oracle.NewError(oracle.ErrInternal, "%v", err)
	} else if found {
		return oracle.NewError(oracle.ErrAlreadyCommitted, "voter %s already committed to query %d", voter, queryID)
	}

	hash, ok := oracle.ParseCommitHash(commitHashHex)
	if !ok {
		return oracle.NewError(oracle.ErrInvalidCommitHash, "commit hash must be 64 lowercase hex characters")
	}

	stakeLocked := oracle.FloorMul(v.Stake, params.StakeLockFraction)
	if v.Stake-v.LockedStake < stakeLocked {
		return oracle.NewError(oracle.ErrInsufficientAvailableStake, "voter %s lacks %d available stake", voter, stakeLocked)
	}

	v.LockedStake += stakeLocked
	if err := s.store.PutVoter(ctx, v); err != nil {
		return oracle.NewError(oracle.ErrInternal, "%v", err)
	}
	if err := s.store.PutCommitment(ctx, oracle.Commitment{
		QueryID: queryID, Voter: voter, CommitHash: hash, CommittedAt: s.clock.Now(), StakeLocked: stakeLocked,
	}); err != nil {
		return oracle.NewError(oracle.ErrInternal, "%v", err)
	}
	q.Commits++
	if err := s.store.PutQuery(ctx, q); err != nil {
		return oracle.NewError(oracle.ErrInternal, "%v", err)
	}
	s.emit(ctx, oracle.EventVoteCommitted, map[string]any{"query_id": queryID, "voter": string(voter)})
	return nil
}

// RevealVote records voter's answer for queryID, validating it against their
// earlier commitment.
func (s *Service) RevealVote(ctx context.Context, voter oracle.ChainID, queryID uint64, value, salt string, confidence *int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	params, err := s.params(ctx)
	if err != nil {
		return oracle.NewError(oracle.ErrInternal, "%v", err)
	}
	if err := requireNotPaused(params); err != nil {
		return err
	}

	q, err := s.getQueryRefreshed(ctx, queryID)
	if err != nil {
		return err
	}
	if q.Phase != oracle.PhaseReveal {
		return oracle.NewError(oracle.ErrWrongPhase, "query %d is %s, not reveal_phase", queryID, q.Phase)
	}

	c, found, err := s.store.GetCommitment(ctx, queryID, voter)
	if err != nil {
		return oracle.NewError(oracle.ErrInternal, "%v", err)
	}
	if !found {
		return oracle.NewError(oracle.ErrNoCommitment, "voter %s has no commitment for query %d", voter, queryID)
	}
	if _, found, err := s.store.GetReveal(ctx, queryID, voter); err != nil {
		return oracle.NewError(oracle.ErrInternal, "%v", err)
	} else if found {
		return oracle.NewError(oracle.ErrAlreadyRevealed, "voter %s already revealed for query %d", voter, queryID)
	}
	if q.OutcomeIndex(value) < 0 {
		return oracle.NewError(oracle.ErrInvalidOutcome, "value %q is not one of query %d's outcomes", value, queryID)
	}
	if oracle.ComputeCommitHash(value, salt) != c.CommitHash {
		return oracle.NewError(oracle.ErrHashMismatch, "hash of value/salt does not match commitment")
	}
	if confidence != nil && (*confidence < 0 || *confidence > 100) {
		return oracle.NewError(oracle.ErrInvalidConfidence, "confidence %d outside [0,100]", *confidence)
	}
	if q.Strategy == oracle.StrategyMedian {
		if _, ok := oracle.ParseNumeric(value); !ok {
			return oracle.NewError(oracle.ErrInvalidOutcome, "value %q is not numeric, required by median strategy", value)
		}
	}

	if err := s.store.PutReveal(ctx, oracle.Reveal{
		QueryID: queryID, Voter: voter, Value: value, Salt: salt, Confidence: confidence, RevealedAt: s.clock.Now(),
	}); err != nil {
		return oracle.NewError(oracle.ErrInternal, "%v", err)
	}
	q.Reveals++
	if err := s.store.PutQuery(ctx, q); err != nil {
		return oracle.NewError(oracle.ErrInternal, "%v", err)
	}
	s.emit(ctx, oracle.EventVoteRevealed, map[string]any{"query_id": queryID, "voter": string(voter)})
	return nil
}

// SubmitVote is the direct single-phase alternative to commit+reveal,
// permitted only for Majority and WeightedByStake/WeightedByReputation
// queries; Median queries require commit-reveal so the numeric value gets
// reveal-time validation.
func (s *Service) SubmitVote(ctx context.Context, voter oracle.ChainID, queryID uint64, value string, confidence *int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	params, err := s.params(ctx)
	if err != nil {
		return oracle.NewError(oracle.ErrInternal, "%v", err)
	}
	if err := requireNotPaused(params); err != nil {
		return err
	}

	q, err := s.getQueryRefreshed(ctx, queryID)
	if err != nil {
		return err
	}
	if q.Phase != oracle.PhaseCommit && q.Phase != oracle.PhaseReveal {
		return oracle.NewError(oracle.ErrWrongPhase, "query %d is %s", queryID, q.Phase)
	}
	if q.Strategy == oracle.StrategyMedian {
		return oracle.NewError(oracle.ErrStrategyNotPermitted, "median queries require commit-reveal, not direct submission")
	}

	if _, err := s.eligibleVoter(ctx, voter, params.MinReputationToVote); err != nil {
		return err
	}
	if _, found, err := s.store.GetReveal(ctx, queryID, voter); err != nil {
		return oracle.NewError(oracle.ErrInternal, "%v", err)
	} else if found {
		return oracle.NewError(oracle.ErrAlreadyRevealed, "voter %s already voted on query %d", voter, queryID)
	}
	if q.OutcomeIndex(value) < 0 {
		return oracle.NewError(oracle.ErrInvalidOutcome, "value %q is not one of query %d's outcomes", value, queryID)
	}
	if confidence != nil && (*confidence < 0 || *confidence > 100) {
		return oracle.NewError(oracle.ErrInvalidConfidence, "confidence %d outside [0,100]", *confidence)
	}

	// A direct submission is recorded as both its own commitment (self-hash,
	// locking the same commit-phase stake fraction) and its reveal, so the
	// resolution pipeline in resolve.go can treat it identically to a
	// commit-reveal pair.
	salt := string(voter)
	hash := oracle.ComputeCommitHash(value, salt)
	if _, found, err := s.store.GetCommitment(ctx, queryID, voter); err != nil {
		return oracle.NewError(oracle.ErrInternal, "%v", err)
	} else if found {
		return oracle.NewError(oracle.ErrAlreadyCommitted, "voter %s already committed to query %d", voter, queryID)
	}
	v, _, err := s.store.GetVoter(ctx, voter)
	if err != nil {
		return oracle.NewError(oracle.ErrInternal, "%v", err)
	}
	stakeLocked := oracle.FloorMul(v.Stake, params.StakeLockFraction)
	if v.Stake-v.LockedStake < stakeLocked {
		return oracle.NewError(oracle.ErrInsufficientAvailableStake, "voter %s lacks %d available stake", voter, stakeLocked)
	}
	v.LockedStake += stakeLocked
	if err := s.store.PutVoter(ctx, v); err != nil {
		return oracle.NewError(oracle.ErrInternal, "%v", err)
	}
	if err := s.store.PutCommitment(ctx, oracle.Commitment{
		QueryID: queryID, Voter: voter, CommitHash: hash, CommittedAt: s.clock.Now(), StakeLocked: stakeLocked,
	}); err != nil {
		return oracle.NewError(oracle.ErrInternal, "%v", err)
	}
	q.Commits++

	if err := s.store.PutReveal(ctx, oracle.Reveal{
		QueryID: queryID, Voter: voter, Value: value, Salt: salt, Confidence: confidence, RevealedAt: s.clock.Now(),
	}); err != nil {
		return oracle.NewError(oracle.ErrInternal, "%v", err)
	}
	// The phase is left untouched: a direct vote during CommitPhase must not
	// end the commit window for commit-reveal voters. The recorded reveal is
	// picked up at resolution time either way.
	q.Reveals++
	if err := s.store.PutQuery(ctx, q); err != nil {
		return oracle.NewError(oracle.ErrInternal, "%v", err)
	}
	s.emit(ctx, oracle.EventVoteSubmitted, map[string]any{"query_id": queryID, "voter": string(voter)})
	return nil
}
