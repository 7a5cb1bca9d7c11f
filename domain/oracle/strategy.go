package oracle

import (
	"sort"
	"strconv"
)

// RevealInput is the resolution-time view of one accepted reveal: the raw
// value plus the voter's stake/reputation snapshot at resolution time, not
// reveal time.
type RevealInput struct {
	Voter      ChainID
	Value      string
	Stake      Amount
	Reputation int
}

// Aggregator reduces a reveal set to a single winning outcome. Implementations
// must be deterministic: the same reveal set and the same voter snapshots
// must produce the same winner regardless of reveal arrival order, which is
// why every aggregator below sorts before folding.
type Aggregator func(outcomes []string, reveals []RevealInput) (string, error)

// aggregators is the closed dispatch table keyed by strategy tag.
var aggregators = map[Strategy]Aggregator{
	StrategyMajority:             aggregateMajority,
	StrategyMedian:               aggregateMedian,
	StrategyWeightedByStake:      aggregateWeightedByStake,
	StrategyWeightedByReputation: aggregateWeightedByReputation,
}

// Aggregate resolves a reveal set under the given strategy.
func Aggregate(strategy Strategy, outcomes []string, reveals []RevealInput) (string, error) {
	agg, ok := aggregators[strategy]
	if !ok {
		return "", NewError(ErrInternal, "unknown strategy %q", strategy)
	}
	if len(reveals) == 0 {
		return "", NewError(ErrInternal, "empty reveal set")
	}
	return agg(outcomes, sortedReveals(reveals))
}

// sortedReveals returns a copy of reveals sorted by voter identity, so that
// aggregation never depends on arrival order even when a caller accidentally
// passes an unordered slice.
func sortedReveals(reveals []RevealInput) []RevealInput {
	out := make([]RevealInput, len(reveals))
	copy(out, reveals)
	sort.Slice(out, func(i, j int) bool { return out[i].Voter < out[j].Voter })
	return out
}

// tieBreakLowestIndex picks, among outcomes whose score equals the maximum in
// scores, the one with the lowest index in outcomes. This is the shared tie
// rule for all four strategies.
func tieBreakLowestIndex(outcomes []string, scores map[string]float64) string {
	best := ""
	bestScore := 0.0
	bestIndex := -1
	for i, o := range outcomes {
		s, ok := scores[o]
		if !ok {
			continue
		}
		if bestIndex == -1 || s > bestScore {
			best = o
			bestScore = s
			bestIndex = i
		}
	}
	return best
}

func aggregateMajority(outcomes []string, reveals []RevealInput) (string, error) {
	counts := make(map[string]float64, len(outcomes))
	for _, r := range reveals {
		counts[r.Value]++
	}
	winner := tieBreakLowestIndex(outcomes, counts)
	if winner == "" {
		return "", NewError(ErrInternal, "no reveal matched a known outcome")
	}
	return winner, nil
}

func aggregateWeightedByStake(outcomes []string, reveals []RevealInput) (string, error) {
	weights := make(map[string]float64, len(outcomes))
	for _, r := range reveals {
		weights[r.Value] += float64(r.Stake)
	}
	winner := tieBreakLowestIndex(outcomes, weights)
	if winner == "" {
		return "", NewError(ErrInternal, "no reveal matched a known outcome")
	}
	return winner, nil
}

func aggregateWeightedByReputation(outcomes []string, reveals []RevealInput) (string, error) {
	weights := make(map[string]float64, len(outcomes))
	for _, r := range reveals {
		weights[r.Value] += float64(r.Reputation)
	}
	winner := tieBreakLowestIndex(outcomes, weights)
	if winner == "" {
		return "", NewError(ErrInternal, "no reveal matched a known outcome")
	}
	return winner, nil
}

// ParseNumeric reports whether value parses as a decimal number. Median is
// the only strategy that rejects non-numeric values, and it does so at
// reveal time; the other strategies stay string-typed throughout.
func ParseNumeric(value string) (float64, bool) {
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

func aggregateMedian(outcomes []string, reveals []RevealInput) (string, error) {
	type numbered struct {
		value float64
		raw   string
	}
	values := make([]numbered, 0, len(reveals))
	for _, r := range reveals {
		f, ok := ParseNumeric(r.Value)
		if !ok {
			continue
		}
		values = append(values, numbered{value: f, raw: r.Value})
	}
	if len(values) == 0 {
		return "", NewError(ErrInternal, "no numeric reveals to take a median of")
	}
	sort.Slice(values, func(i, j int) bool { return values[i].value < values[j].value })

	n := len(values)
	var median numbered
	if n%2 == 1 {
		median = values[n/2]
	} else {
		// Lower-middle element for even cardinality.
		median = values[n/2-1]
	}

	// If the chosen value's string form is present verbatim in outcomes, use
	// it directly; otherwise pick the nearest outcome by numeric distance,
	// lowest index on tie.
	if idx := indexOf(outcomes, median.raw); idx >= 0 {
		return outcomes[idx], nil
	}

	bestIdx := -1
	bestDist := 0.0
	for i, o := range outcomes {
		f, ok := ParseNumeric(o)
		if !ok {
			continue
		}
		dist := f - median.value
		if dist < 0 {
			dist = -dist
		}
		if bestIdx == -1 || dist < bestDist {
			bestIdx = i
			bestDist = dist
		}
	}
	if bestIdx == -1 {
		return "", NewError(ErrInternal, "median outcome has no numeric outcomes to compare against")
	}
	return outcomes[bestIdx], nil
}

func indexOf(outcomes []string, v string) int {
	for i, o := range outcomes {
		if o == v {
			return i
		}
	}
	return -1
}
