package scheduling

import "time"

// SchedulingPolicy gathers the tunable constants of the engine. Deployments
// override individual fields through configuration; zero values fall back to
// the defaults so a partially filled policy stays usable.
type SchedulingPolicy struct {
	// BufferMinutes is the minimum gap expected between consecutive sessions
	// for the same person. Sessions closer than this are reported as
	// near-misses but never blocked.
	BufferMinutes int
	// EarliestHour is the first UTC hour (inclusive) a session may start.
	EarliestHour int
	// LatestHour is the UTC hour (exclusive) after which sessions may not start.
	LatestHour int
	// TargetAssignments is the default number of members auto-assignment picks.
	TargetAssignments int
	// MaxSessionsPerUser caps how many sessions a member may already hold
	// before auto-assignment skips them.
	MaxSessionsPerUser int
	// MinDurationMinutes and MaxDurationMinutes bound session length.
	MinDurationMinutes int
	MaxDurationMinutes int
}

// DefaultPolicy returns the stock policy values.
func DefaultPolicy() SchedulingPolicy {
	return SchedulingPolicy{
		BufferMinutes:      15,
		EarliestHour:       9,
		LatestHour:         21,
		TargetAssignments:  3,
		MaxSessionsPerUser: 3,
		MinDurationMinutes: 30,
		MaxDurationMinutes: 480,
	}
}

// Buffer returns the buffer as a duration.
func (p SchedulingPolicy) Buffer() time.Duration {
	return time.Duration(p.BufferMinutes) * time.Minute
}

// normalized fills zero fields with defaults.
func (p SchedulingPolicy) normalized() SchedulingPolicy {
	def := DefaultPolicy()
	if p.BufferMinutes <= 0 {
		p.BufferMinutes = def.BufferMinutes
	}
	if p.EarliestHour <= 0 {
		p.EarliestHour = def.EarliestHour
	}
	if p.LatestHour <= 0 {
		p.LatestHour = def.LatestHour
	}
	if p.TargetAssignments <= 0 {
		p.TargetAssignments = def.TargetAssignments
	}
	if p.MaxSessionsPerUser <= 0 {
		p.MaxSessionsPerUser = def.MaxSessionsPerUser
	}
	if p.MinDurationMinutes <= 0 {
		p.MinDurationMinutes = def.MinDurationMinutes
	}
	if p.MaxDurationMinutes <= 0 {
		p.MaxDurationMinutes = def.MaxDurationMinutes
	}
	return p
}
