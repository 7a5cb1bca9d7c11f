package registry

import (
	"context"

	"github.com/oraclenet/registry/domain/oracle"
)

// autoRegister creates a zero-stake voter record with default reputation for
// a sender the ledger has never seen, so that UpdateStake/CommitVote can be
// the voter's first-ever interaction. Callers must still run their own
// post-creation checks.
func (s *Service) autoRegister(ctx context.Context, id oracle.ChainID) (oracle.VoterRecord, error) {
	v := oracle.VoterRecord{
		Voter:        id,
		Reputation:   50,
		IsActive:     true,
		RegisteredAt: s.clock.Now(),
	}
	if err := s.store.PutVoter(ctx, v); err != nil {
		return oracle.VoterRecord{}, err
	}
	if err := s.store.AddVoterCount(ctx, 1); err != nil {
		return oracle.VoterRecord{}, err
	}
	return v, nil
}

func (s *Service) registerVoter(ctx context.Context, id oracle.ChainID, stake oracle.Amount, name, metadataURL string) error {
	params, err := s.params(ctx)
	if err != nil {
		return oracle.NewError(oracle.ErrInternal, "%v", err)
	}
	if stake < params.MinStake || stake > params.MaxStake {
		return oracle.NewError(oracle.ErrInvalidStake, "stake %d outside [%d,%d]", stake, params.MinStake, params.MaxStake)
	}

	existing, found, err := s.store.GetVoter(ctx, id)
	if err != nil {
		return oracle.NewError(oracle.ErrInternal, "%v", err)
	}
	if found && existing.IsActive {
		return oracle.NewError(oracle.ErrAlreadyRegistered, "voter %s already registered", id)
	}

	reputation := 50
	if found {
		reputation = existing.Reputation
	}
	v := oracle.VoterRecord{
		Voter:              id,
		Stake:              stake,
		LockedStake:        0,
		Reputation:         reputation,
		TotalVotes:         existing.TotalVotes,
		CorrectVotes:       existing.CorrectVotes,
		RegisteredAt:       s.clock.Now(),
		IsActive:           true,
		Name:               name,
		MetadataURL:        metadataURL,
		TotalRewardsEarned: existing.TotalRewardsEarned,
		TotalSlashed:       existing.TotalSlashed,
	}
	if err := s.store.PutVoter(ctx, v); err != nil {
		return oracle.NewError(oracle.ErrInternal, "%v", err)
	}
	if !found {
		if err := s.store.AddVoterCount(ctx, 1); err != nil {
			return oracle.NewError(oracle.ErrInternal, "%v", err)
		}
	}
	if err := s.store.AddTotalStake(ctx, stake); err != nil {
		return oracle.NewError(oracle.ErrInternal, "%v", err)
	}
	s.emit(ctx, oracle.EventVoterRegistered, map[string]any{"voter": string(id), "stake": int64(stake)})
	return nil
}

// RegisterVoter is the inbound message a voter's own chain sends to join the
// registry.
func (s *Service) RegisterVoter(ctx context.Context, sender oracle.ChainID, stake oracle.Amount, name, metadataURL string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	params, err := s.params(ctx)
	if err != nil {
		return oracle.NewError(oracle.ErrInternal, "%v", err)
	}
	if err := requireNotPaused(params); err != nil {
		return err
	}
	return s.registerVoter(ctx, sender, stake, name, metadataURL)
}

// RegisterVoterFor is the admin-only on-behalf registration. As an admin
// operation it stays usable while the protocol is paused.
func (s *Service) RegisterVoterFor(ctx context.Context, admin oracle.ChainID, voterID oracle.ChainID, stake oracle.Amount, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	params, err := s.params(ctx)
	if err != nil {
		return oracle.NewError(oracle.ErrInternal, "%v", err)
	}
	if err := requireAdmin(params, admin); err != nil {
		return err
	}
	return s.registerVoter(ctx, voterID, stake, name, "")
}

// UpdateStake adds additional stake for sender, auto-registering it if
// unseen. When params.TokenApplication is set, additional must already be
// reconciled against a ReceiveTokens message from the same sender.
func (s *Service) UpdateStake(ctx context.Context, sender oracle.ChainID, additional oracle.Amount) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	params, err := s.params(ctx)
	if err != nil {
		return oracle.NewError(oracle.ErrInternal, "%v", err)
	}
	if err := requireNotPaused(params); err != nil {
		return err
	}

	v, found, err := s.store.GetVoter(ctx, sender)
	if err != nil {
		return oracle.NewError(oracle.ErrInternal, "%v", err)
	}
	if !found {
		v, err = s.autoRegister(ctx, sender)
		if err != nil {
			return oracle.NewError(oracle.ErrInternal, "%v", err)
		}
	}
	if !v.IsActive {
		return oracle.NewError(oracle.ErrVoterInactive, "voter %s is not active", sender)
	}

	if params.TokenApplication != "" {
		ok, err := s.store.ConsumePendingReceipt(ctx, sender, additional)
		if err != nil {
			return oracle.NewError(oracle.ErrInternal, "%v", err)
		}
		if !ok {
			return oracle.NewError(oracle.ErrInsufficientAvailableStake, "no reconciled receipt for %d from %s", additional, sender)
		}
	}

	v.Stake += additional
	if err := s.store.PutVoter(ctx, v); err != nil {
		return oracle.NewError(oracle.ErrInternal, "%v", err)
	}
	if err := s.store.AddTotalStake(ctx, additional); err != nil {
		return oracle.NewError(oracle.ErrInternal, "%v", err)
	}
	s.emit(ctx, oracle.EventStakeUpdated, map[string]any{"voter": string(sender), "delta": int64(additional)})
	return nil
}

// WithdrawStake releases amount of unlocked stake back to sender.
func (s *Service) WithdrawStake(ctx context.Context, sender oracle.ChainID, amount oracle.Amount) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	v, found, err := s.store.GetVoter(ctx, sender)
	if err != nil {
		return oracle.NewError(oracle.ErrInternal, "%v", err)
	}
	if !found {
		return oracle.NewError(oracle.ErrNotRegistered, "voter %s is not registered", sender)
	}
	if amount > v.Stake-v.LockedStake {
		return oracle.NewError(oracle.ErrInsufficientAvailableStake, "amount %d exceeds available stake %d", amount, v.Stake-v.LockedStake)
	}

	v.Stake -= amount
	if err := s.store.PutVoter(ctx, v); err != nil {
		return oracle.NewError(oracle.ErrInternal, "%v", err)
	}
	if err := s.store.AddTotalStake(ctx, -amount); err != nil {
		return oracle.NewError(oracle.ErrInternal, "%v", err)
	}

	params, err := s.params(ctx)
	if err != nil {
		return oracle.NewError(oracle.ErrInternal, "%v", err)
	}
	if params.TokenApplication != "" {
		if err := s.messenger.SendTokenTransfer(ctx, sender, amount); err != nil {
			s.log.WithField("voter", string(sender)).WithField("err", err).Warn("token transfer dispatch failed")
		}
	}
	s.emit(ctx, oracle.EventStakeUpdated, map[string]any{"voter": string(sender), "delta": -int64(amount)})
	return nil
}

// DeregisterVoter marks sender inactive. Requires no open locks.
func (s *Service) DeregisterVoter(ctx context.Context, sender oracle.ChainID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	v, found, err := s.store.GetVoter(ctx, sender)
	if err != nil {
		return oracle.NewError(oracle.ErrInternal, "%v", err)
	}
	if !found {
		return oracle.NewError(oracle.ErrNotRegistered, "voter %s is not registered", sender)
	}
	if v.LockedStake != 0 {
		return oracle.NewError(oracle.ErrInsufficientAvailableStake, "voter %s has %d locked", sender, v.LockedStake)
	}

	residual := v.Stake
	v.Stake = 0
	v.IsActive = false
	if err := s.store.PutVoter(ctx, v); err != nil {
		return oracle.NewError(oracle.ErrInternal, "%v", err)
	}
	if residual > 0 {
		if err := s.store.AddTotalStake(ctx, -residual); err != nil {
			return oracle.NewError(oracle.ErrInternal, "%v", err)
		}
	}

	params, err := s.params(ctx)
	if err != nil {
		return oracle.NewError(oracle.ErrInternal, "%v", err)
	}
	if params.TokenApplication != "" && residual > 0 {
		if err := s.messenger.SendTokenTransfer(ctx, sender, residual); err != nil {
			s.log.WithField("voter", string(sender)).WithField("err", err).Warn("token transfer dispatch failed")
		}
	}
	s.emit(ctx, oracle.EventVoterDeregistered, map[string]any{"voter": string(sender)})
	return nil
}

// Voter returns the ledger record for id, whether active or not.
func (s *Service) Voter(ctx context.Context, id oracle.ChainID) (oracle.VoterRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	v, found, err := s.store.GetVoter(ctx, id)
	if err != nil {
		return oracle.VoterRecord{}, oracle.NewError(oracle.ErrInternal, "%v", err)
	}
	if !found {
		return oracle.VoterRecord{}, oracle.NewError(oracle.ErrNotRegistered, "voter %s is not registered", id)
	}
	return v, nil
}

// ReceiveTokens records a token application's report that it moved amount of
// tokens to the registry on behalf of from, pending reconciliation by a
// subsequent UpdateStake call. It stays usable while paused: the tokens are
// already in the registry's custody and rejecting the report would desync
// the accounting view.
func (s *Service) ReceiveTokens(ctx context.Context, from oracle.ChainID, amount oracle.Amount) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.store.AddPendingReceipt(ctx, from, amount); err != nil {
		return oracle.NewError(oracle.ErrInternal, "%v", err)
	}
	return nil
}

// TokensReturned acknowledges a completed outbound token transfer. The
// registry has already debited its own accounting at WithdrawStake time, so
// this is bookkeeping for the host/audit trail only.
func (s *Service) TokensReturned(ctx context.Context, to oracle.ChainID, amount oracle.Amount) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.log.WithField("to", string(to)).WithField("amount", int64(amount)).Info("token return acknowledged")
	return nil
}
