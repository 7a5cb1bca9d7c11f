package registry

import (
	"context"

	"github.com/oraclenet/registry/domain/oracle"
)

// UpdateParameters replaces the protocol's Parameters wholesale. Admin-only;
// not gated by Paused (the admin must be able to unpause).
func (s *Service) UpdateParameters(ctx context.Context, sender oracle.ChainID, next oracle.Parameters) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, err := s.params(ctx)
	if err != nil {
		return oracle.NewError(oracle.ErrInternal, "%v", err)
	}
	if err := requireAdmin(current, sender); err != nil {
		return err
	}

	// admin_chain is set at instantiation and not reassignable through this
	// operation; carry the existing value forward regardless of what next
	// supplies.
	next.AdminChain = current.AdminChain
	if err := s.store.PutParameters(ctx, next); err != nil {
		return oracle.NewError(oracle.ErrInternal, "%v", err)
	}
	s.emit(ctx, oracle.EventParametersUpdated, map[string]any{"sender": string(sender)})
	return nil
}

// SetProtocolStatus toggles the pause flag. Admin-only.
func (s *Service) SetProtocolStatus(ctx context.Context, sender oracle.ChainID, paused bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, err := s.params(ctx)
	if err != nil {
		return oracle.NewError(oracle.ErrInternal, "%v", err)
	}
	if err := requireAdmin(current, sender); err != nil {
		return err
	}

	current.Paused = paused
	if err := s.store.PutParameters(ctx, current); err != nil {
		return oracle.NewError(oracle.ErrInternal, "%v", err)
	}
	s.emit(ctx, oracle.EventProtocolStatusChanged, map[string]any{"paused": paused})
	return nil
}
