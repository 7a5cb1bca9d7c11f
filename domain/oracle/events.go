package oracle

import "time"

// EventType names one of the tagged-union variants carried on the
// oracle_events append-only stream.
type EventType string

const (
	EventQueryCreated          EventType = "QueryCreated"
	EventQueryResolved         EventType = "QueryResolved"
	EventQueryExpired          EventType = "QueryExpired"
	EventQueryCancelled        EventType = "QueryCancelled"
	EventVoterRegistered       EventType = "VoterRegistered"
	EventVoterDeregistered     EventType = "VoterDeregistered"
	EventVoteCommitted         EventType = "VoteCommitted"
	EventVoteRevealed          EventType = "VoteRevealed"
	EventVoteSubmitted         EventType = "VoteSubmitted"
	EventRewardsClaimed        EventType = "RewardsClaimed"
	EventStakeUpdated          EventType = "StakeUpdated"
	EventParametersUpdated     EventType = "ParametersUpdated"
	EventProtocolStatusChanged EventType = "ProtocolStatusChanged"
)

// Event is one entry on the oracle_events stream. Index is monotonic and
// assigned by the stream, never by the emitter.
type Event struct {
	Index uint64
	Type  EventType
	At    time.Time
	Data  map[string]any
}
