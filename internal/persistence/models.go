package persistence

import "time"

// SessionStatus tracks the lifecycle stage of a stored session.
type SessionStatus string

const (
	// StatusScheduled marks a session that has not started yet.
	StatusScheduled SessionStatus = "scheduled"
	// StatusOngoing marks a session currently in progress.
	StatusOngoing SessionStatus = "ongoing"
	// StatusCompleted marks a session that finished normally. Terminal.
	StatusCompleted SessionStatus = "completed"
	// StatusCancelled marks a session called off before completion. Terminal.
	StatusCancelled SessionStatus = "cancelled"
)

// RSVPStatus records an attendee's response to a session invitation.
type RSVPStatus string

const (
	// RSVPGoing indicates the attendee committed to the session.
	RSVPGoing RSVPStatus = "going"
	// RSVPMaybe indicates a tentative response.
	RSVPMaybe RSVPStatus = "maybe"
	// RSVPNotGoing indicates the attendee declined.
	RSVPNotGoing RSVPStatus = "not_going"
	// RSVPInvited marks an auto-assigned attendee who has not responded.
	RSVPInvited RSVPStatus = "invited"
)

// Attendee associates a user with a session.
type Attendee struct {
	UserID   string
	RSVP     RSVPStatus
	JoinedAt time.Time
}

// Session represents a scheduled study meeting stored in persistence.
type Session struct {
	ID              string
	GroupID         string
	Title           string
	ScheduledStart  time.Time
	DurationMinutes int
	Status          SessionStatus
	Attendees       []Attendee
	CreatedBy       string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// End returns the derived end instant of the session.
func (s Session) End() time.Time {
	return s.ScheduledStart.Add(time.Duration(s.DurationMinutes) * time.Minute)
}

// GroupPolicy captures per-group scheduling preferences.
type GroupPolicy struct {
	PreferWeekdays bool
}

// GroupMember associates a user with a group, optionally as an admin.
type GroupMember struct {
	UserID  string
	IsAdmin bool
}

// Group represents a study group owning sessions.
type Group struct {
	ID         string
	Name       string
	Members    []GroupMember
	Policy     GroupPolicy
	SessionIDs []string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// MemberIDs returns the user ids of all group members in order.
func (g Group) MemberIDs() []string {
	ids := make([]string, 0, len(g.Members))
	for _, member := range g.Members {
		ids = append(ids, member.UserID)
	}
	return ids
}

// HasMember reports whether the user belongs to the group.
func (g Group) HasMember(userID string) bool {
	for _, member := range g.Members {
		if member.UserID == userID {
			return true
		}
	}
	return false
}

// HasAdmin reports whether the user is an admin of the group.
func (g Group) HasAdmin(userID string) bool {
	for _, member := range g.Members {
		if member.UserID == userID && member.IsAdmin {
			return true
		}
	}
	return false
}
