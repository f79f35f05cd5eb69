package scheduling

import (
	"time"

	"github.com/example/studygroup-scheduler/internal/interval"
)

// Principal represents the authenticated user invoking an engine operation.
// Membership and group-admin rights are resolved against the group record;
// IsAdmin marks a deployment-wide administrator override.
type Principal struct {
	UserID  string
	IsAdmin bool
}

// ConflictDetail describes one session that collides with, or sits near, a
// proposed interval.
type ConflictDetail struct {
	SessionID      string
	Title          string
	OverlapMinutes int
	Classification interval.Relation
	// TimeUntilAvailable is how long after the proposed start the conflicting
	// session ends, i.e. the earliest the user is free again. Zero when the
	// session ends before the proposed start.
	TimeUntilAvailable time.Duration
}

// ConflictAnalysis is the transient result of a conflict query. Conflicts are
// true overlaps that block creation; NearMisses fall only inside the buffer
// zone and are informational.
type ConflictAnalysis struct {
	Proposed   interval.Interval
	Conflicts  []ConflictDetail
	NearMisses []ConflictDetail
}

// HasConflict reports whether any blocking conflict was found.
func (a ConflictAnalysis) HasConflict() bool {
	return len(a.Conflicts) > 0
}

// LoadBalanceResult is the transient outcome of one balancer run.
type LoadBalanceResult struct {
	SelectedUserIDs     []string
	PerUserSessionCount map[string]int
}

// CreateSessionParams wraps the data required to create a session.
type CreateSessionParams struct {
	Principal       Principal
	GroupID         string
	Title           string
	ScheduledStart  time.Time
	DurationMinutes int
	// InviteeIDs are explicitly invited group members; they receive an
	// invited marker alongside the default membership entries.
	InviteeIDs []string
	// AutoAssign requests balancer-selected additional attendees.
	AutoAssign bool
	// AutoAssignCount overrides the policy target when positive.
	AutoAssignCount int
}

// CreateGroupParams wraps the data required to provision a study group.
type CreateGroupParams struct {
	Principal      Principal
	Name           string
	MemberIDs      []string
	PreferWeekdays bool
}

// SessionPatch carries the mutable session fields for an update. Nil fields
// are left unchanged.
type SessionPatch struct {
	Title           *string
	ScheduledStart  *time.Time
	DurationMinutes *int
}

// UpdateSessionParams wraps the data required to update a session.
type UpdateSessionParams struct {
	Principal Principal
	SessionID string
	Patch     SessionPatch
}
