package persistence

import (
	"context"
	"time"
)

// SessionWindowFilter narrows session queries to a buffered search window for
// one user. A session matches when the user attends it, its status is one of
// Statuses, and its interval intersects [WindowStart, WindowEnd): it starts
// inside the window, ends inside the window, or spans it entirely.
type SessionWindowFilter struct {
	UserID      string
	WindowStart time.Time
	WindowEnd   time.Time
	ExcludeID   string
	Statuses    []SessionStatus
}

// SessionRepository stores sessions and their attendees.
//
// CreateSession and DeleteSession must also maintain the owning group's
// session reference list within the same transaction, so a session and its
// group ref can never diverge.
type SessionRepository interface {
	CreateSession(ctx context.Context, session Session) error
	GetSession(ctx context.Context, id string) (Session, error)
	UpdateSession(ctx context.Context, session Session) error
	DeleteSession(ctx context.Context, id string) error
	FindByUserAndWindow(ctx context.Context, filter SessionWindowFilter) ([]Session, error)
	ListSessionsByGroup(ctx context.Context, groupID string) ([]Session, error)
}

// GroupRepository stores groups, their membership and scheduling policy.
type GroupRepository interface {
	CreateGroup(ctx context.Context, group Group) error
	GetGroup(ctx context.Context, id string) (Group, error)
	AppendSessionRef(ctx context.Context, groupID, sessionID string) error
	RemoveSessionRef(ctx context.Context, groupID, sessionID string) error
}

// SessionHistoryProvider reports how many sessions each user has attended
// within a group, counting every non-cancelled session the user appears on.
type SessionHistoryProvider interface {
	CountByUserInGroup(ctx context.Context, groupID string, userIDs []string) (map[string]int, error)
}
