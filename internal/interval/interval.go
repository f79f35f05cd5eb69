package interval

import "time"

// Interval is a half-open-agnostic pair of instants. Callers guarantee
// Start is not after End.
type Interval struct {
	Start time.Time
	End   time.Time
}

// Relation describes how two intervals are positioned relative to each other
// when they share at least one instant.
type Relation string

const (
	// RelationOverlap indicates a partial overlap in either direction.
	RelationOverlap Relation = "overlap"
	// RelationContains indicates the first interval fully encloses the second.
	RelationContains Relation = "contains"
	// RelationContained indicates the second interval fully encloses the first.
	RelationContained Relation = "contained"
)

// FromStartDuration builds an interval from a start instant and a duration in
// whole minutes.
func FromStartDuration(start time.Time, durationMinutes int) Interval {
	return Interval{
		Start: start,
		End:   start.Add(time.Duration(durationMinutes) * time.Minute),
	}
}

// Duration returns the span of the interval.
func (i Interval) Duration() time.Duration {
	return i.End.Sub(i.Start)
}

// ExpandWithBuffer widens the interval by the buffer on both sides, producing
// the search window used for conflict candidate retrieval.
func ExpandWithBuffer(i Interval, buffer time.Duration) Interval {
	if buffer < 0 {
		buffer = 0
	}
	return Interval{
		Start: i.Start.Add(-buffer),
		End:   i.End.Add(buffer),
	}
}

// OverlapMinutes returns the length of the intersection of a and b in whole
// minutes. Zero means the intervals do not truly overlap; adjacency at a
// shared boundary counts as zero.
func OverlapMinutes(a, b Interval) int {
	start := a.Start
	if b.Start.After(start) {
		start = b.Start
	}
	end := a.End
	if b.End.Before(end) {
		end = b.End
	}
	if !end.After(start) {
		return 0
	}
	return int(end.Sub(start) / time.Minute)
}

// Classify labels the geometric relation between a and b. The label is
// diagnostic only; whether the pair conflicts is decided by OverlapMinutes.
// Exactly one relation is returned for any pair, and
// Classify(a, b) == RelationContains iff Classify(b, a) == RelationContained.
func Classify(a, b Interval) Relation {
	aInsideB := !a.Start.Before(b.Start) && !a.End.After(b.End)
	bInsideA := !b.Start.Before(a.Start) && !b.End.After(a.End)

	switch {
	case aInsideB && bInsideA:
		// Identical bounds: neither side strictly encloses the other.
		return RelationOverlap
	case aInsideB:
		return RelationContained
	case bInsideA:
		return RelationContains
	default:
		return RelationOverlap
	}
}
