package testfixtures

import (
	"time"

	"github.com/example/studygroup-scheduler/internal/persistence"
)

// ReferenceTime is the shared anchor instant for deterministic tests:
// Monday 2024-01-01 10:00 UTC, inside the preferred-hours window.
func ReferenceTime() time.Time {
	return time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)
}

// StudyGroup returns a group with the given members; the first member is the
// admin. Policy defaults to weekday-only scheduling disabled.
func StudyGroup(id string, memberIDs ...string) persistence.Group {
	members := make([]persistence.GroupMember, 0, len(memberIDs))
	for i, userID := range memberIDs {
		members = append(members, persistence.GroupMember{
			UserID:  userID,
			IsAdmin: i == 0,
		})
	}
	return persistence.Group{
		ID:        id,
		Name:      "Study Group " + id,
		Members:   members,
		CreatedAt: ReferenceTime(),
		UpdatedAt: ReferenceTime(),
	}
}

// ScheduledSession returns a scheduled session owned by the group, created by
// the first attendee, starting at the given instant.
func ScheduledSession(id, groupID string, start time.Time, durationMinutes int, attendeeIDs ...string) persistence.Session {
	attendees := make([]persistence.Attendee, 0, len(attendeeIDs))
	for i, userID := range attendeeIDs {
		rsvp := persistence.RSVPNotGoing
		if i == 0 {
			rsvp = persistence.RSVPGoing
		}
		attendees = append(attendees, persistence.Attendee{
			UserID:   userID,
			RSVP:     rsvp,
			JoinedAt: ReferenceTime(),
		})
	}

	createdBy := ""
	if len(attendeeIDs) > 0 {
		createdBy = attendeeIDs[0]
	}

	return persistence.Session{
		ID:              id,
		GroupID:         groupID,
		Title:           "Session " + id,
		ScheduledStart:  start.UTC(),
		DurationMinutes: durationMinutes,
		Status:          persistence.StatusScheduled,
		Attendees:       attendees,
		CreatedBy:       createdBy,
		CreatedAt:       ReferenceTime(),
		UpdatedAt:       ReferenceTime(),
	}
}
