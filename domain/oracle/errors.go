package oracle

import "fmt"

// ErrorKind is the closed enum of failure reasons the registry can return.
// Every failure is surfaced to the caller; nothing is recovered locally.
// Store writes a handler made before it failed are not rolled back (for
// example, a voter auto-registered by a CommitVote whose hash is then
// rejected stays registered).
type ErrorKind string

const (
	ErrPaused                     ErrorKind = "Paused"
	ErrUnauthorized               ErrorKind = "Unauthorized"
	ErrInvalidStake               ErrorKind = "InvalidStake"
	ErrInvalidOutcomes            ErrorKind = "InvalidOutcomes"
	ErrInvalidDeadline            ErrorKind = "InvalidDeadline"
	ErrAlreadyRegistered          ErrorKind = "AlreadyRegistered"
	ErrNotRegistered              ErrorKind = "NotRegistered"
	ErrVoterInactive              ErrorKind = "VoterInactive"
	ErrInsufficientAvailableStake ErrorKind = "InsufficientAvailableStake"
	ErrLowReputation              ErrorKind = "LowReputation"
	ErrQueryNotFound              ErrorKind = "QueryNotFound"
	ErrWrongPhase                 ErrorKind = "WrongPhase"
	ErrQueryAlreadyResolved       ErrorKind = "QueryAlreadyResolved"
	ErrAlreadyCommitted           ErrorKind = "AlreadyCommitted"
	ErrNoCommitment               ErrorKind = "NoCommitment"
	ErrAlreadyRevealed            ErrorKind = "AlreadyRevealed"
	ErrInvalidOutcome             ErrorKind = "InvalidOutcome"
	ErrHashMismatch               ErrorKind = "HashMismatch"
	ErrInvalidCommitHash          ErrorKind = "InvalidCommitHash"
	ErrInvalidConfidence          ErrorKind = "InvalidConfidence"
	ErrStrategyNotPermitted       ErrorKind = "StrategyNotPermitted"
	ErrInternal                   ErrorKind = "Internal"
)

// Error is the concrete error type carried across the operation/message
// boundary. Callers should use errors.As to recover the Kind.
type Error struct {
	Kind    ErrorKind
	Message string
}

func (e *Error) Error() string {
	if e.Message == "" {
		return string(e.Kind)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Is supports errors.Is(err, oracle.NewError(kind, "")) by matching Kind only.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

// NewError constructs an *Error for the given kind.
func NewError(kind ErrorKind, format string, args ...any) *Error {
	msg := format
	if len(args) > 0 {
		msg = fmt.Sprintf(format, args...)
	}
	return &Error{Kind: kind, Message: msg}
}

// KindOf extracts the ErrorKind from err, or ErrInternal if err is not an
// *Error.
func KindOf(err error) ErrorKind {
	if err == nil {
		return ""
	}
	if e, ok := err.(*Error); ok {
		return e.Kind
	}
	return ErrInternal
}
