package testfixtures

import (
	"context"
	"sort"
	"sync"

	"github.com/example/studygroup-scheduler/internal/persistence"
)

// MemoryStore is an in-memory implementation of the persistence interfaces,
// used by engine tests that do not need a real database. Create and delete
// keep the owning group's session reference list in step, mirroring the
// transactional guarantee of the SQLite layer.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]persistence.Session
	groups   map[string]persistence.Group

	// FailWith, when set, is returned by every subsequent call. Tests use it
	// to exercise storage-failure paths.
	FailWith error
}

// NewMemoryStore returns an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		sessions: make(map[string]persistence.Session),
		groups:   make(map[string]persistence.Group),
	}
}

// SeedGroup inserts a group directly, bypassing error injection.
func (m *MemoryStore) SeedGroup(group persistence.Group) {
	m.mu.Lock()
	m.groups[group.ID] = cloneGroup(group)
	m.mu.Unlock()
}

// SeedSession inserts a session directly and appends its group ref.
func (m *MemoryStore) SeedSession(session persistence.Session) {
	m.mu.Lock()
	m.sessions[session.ID] = cloneSession(session)
	if group, ok := m.groups[session.GroupID]; ok {
		group.SessionIDs = append(group.SessionIDs, session.ID)
		m.groups[session.GroupID] = group
	}
	m.mu.Unlock()
}

// CreateSession stores the session and appends its group reference.
func (m *MemoryStore) CreateSession(ctx context.Context, session persistence.Session) error {
	if m.FailWith != nil {
		return m.FailWith
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.sessions[session.ID]; ok {
		return persistence.ErrDuplicate
	}
	group, ok := m.groups[session.GroupID]
	if !ok {
		return persistence.ErrForeignKeyViolation
	}

	m.sessions[session.ID] = cloneSession(session)
	group.SessionIDs = append(group.SessionIDs, session.ID)
	m.groups[session.GroupID] = group
	return nil
}

// GetSession retrieves a session by ID.
func (m *MemoryStore) GetSession(ctx context.Context, id string) (persistence.Session, error) {
	if m.FailWith != nil {
		return persistence.Session{}, m.FailWith
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	session, ok := m.sessions[id]
	if !ok {
		return persistence.Session{}, persistence.ErrNotFound
	}
	return cloneSession(session), nil
}

// UpdateSession replaces a stored session.
func (m *MemoryStore) UpdateSession(ctx context.Context, session persistence.Session) error {
	if m.FailWith != nil {
		return m.FailWith
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	existing, ok := m.sessions[session.ID]
	if !ok {
		return persistence.ErrNotFound
	}
	session.GroupID = existing.GroupID
	session.CreatedBy = existing.CreatedBy
	session.CreatedAt = existing.CreatedAt
	m.sessions[session.ID] = cloneSession(session)
	return nil
}

// DeleteSession removes a session and its group reference.
func (m *MemoryStore) DeleteSession(ctx context.Context, id string) error {
	if m.FailWith != nil {
		return m.FailWith
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	session, ok := m.sessions[id]
	if !ok {
		return persistence.ErrNotFound
	}
	delete(m.sessions, id)

	if group, ok := m.groups[session.GroupID]; ok {
		refs := make([]string, 0, len(group.SessionIDs))
		for _, ref := range group.SessionIDs {
			if ref == id {
				continue
			}
			refs = append(refs, ref)
		}
		group.SessionIDs = refs
		m.groups[session.GroupID] = group
	}
	return nil
}

// FindByUserAndWindow filters sessions by attendee, status and window
// intersection: starts inside, ends inside, or spans the window.
func (m *MemoryStore) FindByUserAndWindow(ctx context.Context, filter persistence.SessionWindowFilter) ([]persistence.Session, error) {
	if m.FailWith != nil {
		return nil, m.FailWith
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	statusSet := make(map[persistence.SessionStatus]struct{}, len(filter.Statuses))
	for _, status := range filter.Statuses {
		statusSet[status] = struct{}{}
	}

	var matches []persistence.Session
	for _, session := range m.sessions {
		if filter.ExcludeID != "" && session.ID == filter.ExcludeID {
			continue
		}
		if len(statusSet) > 0 {
			if _, ok := statusSet[session.Status]; !ok {
				continue
			}
		}
		if !attends(session, filter.UserID) {
			continue
		}

		start := session.ScheduledStart
		end := session.End()
		startsInside := !start.Before(filter.WindowStart) && start.Before(filter.WindowEnd)
		endsInside := end.After(filter.WindowStart) && !end.After(filter.WindowEnd)
		spans := start.Before(filter.WindowStart) && end.After(filter.WindowEnd)
		if !startsInside && !endsInside && !spans {
			continue
		}

		matches = append(matches, cloneSession(session))
	}

	sort.Slice(matches, func(i, j int) bool {
		if matches[i].ScheduledStart.Equal(matches[j].ScheduledStart) {
			return matches[i].ID < matches[j].ID
		}
		return matches[i].ScheduledStart.Before(matches[j].ScheduledStart)
	})

	return matches, nil
}

// ListSessionsByGroup lists a group's sessions ordered by start time.
func (m *MemoryStore) ListSessionsByGroup(ctx context.Context, groupID string) ([]persistence.Session, error) {
	if m.FailWith != nil {
		return nil, m.FailWith
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	var sessions []persistence.Session
	for _, session := range m.sessions {
		if session.GroupID != groupID {
			continue
		}
		sessions = append(sessions, cloneSession(session))
	}

	sort.Slice(sessions, func(i, j int) bool {
		if sessions[i].ScheduledStart.Equal(sessions[j].ScheduledStart) {
			return sessions[i].ID < sessions[j].ID
		}
		return sessions[i].ScheduledStart.Before(sessions[j].ScheduledStart)
	})

	return sessions, nil
}

// CreateGroup stores a new group.
func (m *MemoryStore) CreateGroup(ctx context.Context, group persistence.Group) error {
	if m.FailWith != nil {
		return m.FailWith
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.groups[group.ID]; ok {
		return persistence.ErrDuplicate
	}
	m.groups[group.ID] = cloneGroup(group)
	return nil
}

// GetGroup retrieves a group by ID.
func (m *MemoryStore) GetGroup(ctx context.Context, id string) (persistence.Group, error) {
	if m.FailWith != nil {
		return persistence.Group{}, m.FailWith
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	group, ok := m.groups[id]
	if !ok {
		return persistence.Group{}, persistence.ErrNotFound
	}
	return cloneGroup(group), nil
}

// AppendSessionRef adds a session reference to a group.
func (m *MemoryStore) AppendSessionRef(ctx context.Context, groupID, sessionID string) error {
	if m.FailWith != nil {
		return m.FailWith
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	group, ok := m.groups[groupID]
	if !ok {
		return persistence.ErrNotFound
	}
	group.SessionIDs = append(group.SessionIDs, sessionID)
	m.groups[groupID] = group
	return nil
}

// RemoveSessionRef drops a session reference from a group.
func (m *MemoryStore) RemoveSessionRef(ctx context.Context, groupID, sessionID string) error {
	if m.FailWith != nil {
		return m.FailWith
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	group, ok := m.groups[groupID]
	if !ok {
		return persistence.ErrNotFound
	}
	refs := make([]string, 0, len(group.SessionIDs))
	for _, ref := range group.SessionIDs {
		if ref == sessionID {
			continue
		}
		refs = append(refs, ref)
	}
	group.SessionIDs = refs
	m.groups[groupID] = group
	return nil
}

// CountByUserInGroup counts non-cancelled sessions each user attends in the
// group. Absent users map to zero.
func (m *MemoryStore) CountByUserInGroup(ctx context.Context, groupID string, userIDs []string) (map[string]int, error) {
	if m.FailWith != nil {
		return nil, m.FailWith
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	counts := make(map[string]int, len(userIDs))
	for _, userID := range userIDs {
		counts[userID] = 0
	}

	for _, session := range m.sessions {
		if session.GroupID != groupID || session.Status == persistence.StatusCancelled {
			continue
		}
		for _, attendee := range session.Attendees {
			if _, tracked := counts[attendee.UserID]; tracked {
				counts[attendee.UserID]++
			}
		}
	}

	return counts, nil
}

func attends(session persistence.Session, userID string) bool {
	for _, attendee := range session.Attendees {
		if attendee.UserID == userID {
			return true
		}
	}
	return false
}

func cloneSession(session persistence.Session) persistence.Session {
	attendees := make([]persistence.Attendee, len(session.Attendees))
	copy(attendees, session.Attendees)
	session.Attendees = attendees
	return session
}

func cloneGroup(group persistence.Group) persistence.Group {
	members := make([]persistence.GroupMember, len(group.Members))
	copy(members, group.Members)
	group.Members = members

	refs := make([]string, len(group.SessionIDs))
	copy(refs, group.SessionIDs)
	group.SessionIDs = refs
	return group
}
