package scheduling

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/example/studygroup-scheduler/internal/persistence"
)

// SessionStore captures the persistence interactions the coordinator needs.
// CreateSession and DeleteSession keep the owning group's session reference
// list in step within the same transaction.
type SessionStore interface {
	CreateSession(ctx context.Context, session persistence.Session) error
	GetSession(ctx context.Context, id string) (persistence.Session, error)
	UpdateSession(ctx context.Context, session persistence.Session) error
	DeleteSession(ctx context.Context, id string) error
	FindByUserAndWindow(ctx context.Context, filter persistence.SessionWindowFilter) ([]persistence.Session, error)
	ListSessionsByGroup(ctx context.Context, groupID string) ([]persistence.Session, error)
}

// GroupStore exposes group persistence for provisioning, membership and
// policy checks.
type GroupStore interface {
	CreateGroup(ctx context.Context, group persistence.Group) error
	GetGroup(ctx context.Context, id string) (persistence.Group, error)
}

// SchedulingCoordinator orchestrates session creation and mutation: it runs
// the time validator and conflict detector, builds the attendee list, and
// persists the result.
type SchedulingCoordinator struct {
	sessions    SessionStore
	groups      GroupStore
	detector    *ConflictDetector
	validator   TimeValidator
	balancer    *AssignmentBalancer
	policy      SchedulingPolicy
	idGenerator func() string
	now         func() time.Time
	logger      *slog.Logger

	// userLocks serializes detect+persist per creator so two concurrent
	// requests for the same user cannot both pass conflict detection before
	// either write commits.
	userLocks keyedMutex
}

// NewSchedulingCoordinator wires dependencies for session operations.
func NewSchedulingCoordinator(sessions SessionStore, groups GroupStore, detector *ConflictDetector, validator TimeValidator, balancer *AssignmentBalancer, policy SchedulingPolicy, idGenerator func() string, now func() time.Time, logger *slog.Logger) *SchedulingCoordinator {
	if idGenerator == nil {
		idGenerator = func() string { return "" }
	}
	if now == nil {
		now = time.Now
	}
	return &SchedulingCoordinator{
		sessions:    sessions,
		groups:      groups,
		detector:    detector,
		validator:   validator,
		balancer:    balancer,
		policy:      policy.normalized(),
		idGenerator: idGenerator,
		now:         now,
		logger:      logger,
	}
}

// CreateSession validates, conflict-checks and persists a new session. The
// session record and the owning group's session reference are written as one
// transaction by the store.
func (c *SchedulingCoordinator) CreateSession(ctx context.Context, params CreateSessionParams) (persistence.Session, error) {
	if c == nil || c.sessions == nil {
		return persistence.Session{}, fmt.Errorf("scheduling coordinator not configured")
	}
	logger := serviceLogger(ctx, c.logger, "scheduling", "create_session", "group_id", params.GroupID)

	if err := c.validateCreateFields(params); err != nil {
		return persistence.Session{}, err
	}

	group, err := c.loadGroup(ctx, params.GroupID)
	if err != nil {
		return persistence.Session{}, err
	}

	creator := params.Principal.UserID
	if !group.HasMember(creator) && !params.Principal.IsAdmin {
		return persistence.Session{}, ErrNotAuthorized
	}

	unlock := c.userLocks.lock(creator)
	defer unlock()

	analysis, err := c.detector.Detect(ctx, creator, params.ScheduledStart, params.DurationMinutes, "")
	if err != nil {
		return persistence.Session{}, err
	}
	if analysis.HasConflict() {
		return persistence.Session{}, &ConflictError{Analysis: analysis}
	}

	if err := c.validator.Validate(params.ScheduledStart, group.Policy); err != nil {
		return persistence.Session{}, err
	}

	createdAt := c.now().UTC()
	session := persistence.Session{
		ID:              c.idGenerator(),
		GroupID:         params.GroupID,
		Title:           strings.TrimSpace(params.Title),
		ScheduledStart:  params.ScheduledStart.UTC(),
		DurationMinutes: params.DurationMinutes,
		Status:          persistence.StatusScheduled,
		CreatedBy:       creator,
		CreatedAt:       createdAt,
		UpdatedAt:       createdAt,
	}

	session.Attendees = c.buildAttendees(group, creator, params.InviteeIDs, createdAt)

	if params.AutoAssign && c.balancer != nil {
		assigned, err := c.autoAssign(ctx, group, creator, params.AutoAssignCount)
		if err != nil && !errors.Is(err, ErrNoEligibleCandidates) {
			return persistence.Session{}, err
		}
		for _, userID := range assigned {
			session.Attendees = upsertAttendee(session.Attendees, persistence.Attendee{
				UserID:   userID,
				RSVP:     persistence.RSVPInvited,
				JoinedAt: createdAt,
			})
		}
	}

	if err := c.sessions.CreateSession(ctx, session); err != nil {
		return persistence.Session{}, mapStoreError(err)
	}

	logger.InfoContext(ctx, "session created", "session_id", session.ID, "attendees", len(session.Attendees), "near_misses", len(analysis.NearMisses))
	return session, nil
}

// CreateGroup provisions a study group. The creator always joins as the
// group's admin; further member ids are deduplicated and added as plain
// members.
func (c *SchedulingCoordinator) CreateGroup(ctx context.Context, params CreateGroupParams) (persistence.Group, error) {
	if c == nil || c.groups == nil {
		return persistence.Group{}, fmt.Errorf("scheduling coordinator not configured")
	}
	logger := serviceLogger(ctx, c.logger, "scheduling", "create_group")

	vErr := &ValidationError{}
	if strings.TrimSpace(params.Name) == "" {
		vErr.add("name", "group name is required")
	}
	if params.Principal.UserID == "" {
		vErr.add("user_id", "acting user is required")
	}
	if vErr.HasErrors() {
		return persistence.Group{}, vErr
	}

	createdAt := c.now().UTC()
	group := persistence.Group{
		ID:        c.idGenerator(),
		Name:      strings.TrimSpace(params.Name),
		Policy:    persistence.GroupPolicy{PreferWeekdays: params.PreferWeekdays},
		CreatedAt: createdAt,
		UpdatedAt: createdAt,
	}

	group.Members = []persistence.GroupMember{{UserID: params.Principal.UserID, IsAdmin: true}}
	for _, memberID := range uniqueStrings(params.MemberIDs) {
		if memberID == params.Principal.UserID {
			continue
		}
		group.Members = append(group.Members, persistence.GroupMember{UserID: memberID})
	}

	if err := c.groups.CreateGroup(ctx, group); err != nil {
		return persistence.Group{}, mapStoreError(err)
	}

	logger.InfoContext(ctx, "group created", "group_id", group.ID, "members", len(group.Members))
	return group, nil
}

// GetGroup loads one group.
func (c *SchedulingCoordinator) GetGroup(ctx context.Context, groupID string) (persistence.Group, error) {
	return c.loadGroup(ctx, groupID)
}

// UpdateSession applies a patch to an existing session. Conflict detection
// and time validation re-run only when the time-affecting fields change, with
// the session's own id excluded so it does not conflict with itself.
func (c *SchedulingCoordinator) UpdateSession(ctx context.Context, params UpdateSessionParams) (persistence.Session, error) {
	if c == nil || c.sessions == nil {
		return persistence.Session{}, fmt.Errorf("scheduling coordinator not configured")
	}
	logger := serviceLogger(ctx, c.logger, "scheduling", "update_session", "session_id", params.SessionID)

	existing, err := c.sessions.GetSession(ctx, params.SessionID)
	if err != nil {
		return persistence.Session{}, mapStoreError(err)
	}

	if isTerminal(existing.Status) {
		return persistence.Session{}, ErrSessionImmutable
	}

	group, err := c.loadGroup(ctx, existing.GroupID)
	if err != nil {
		return persistence.Session{}, err
	}
	if err := c.authorizeEdit(existing, group, params.Principal); err != nil {
		return persistence.Session{}, err
	}

	updated := existing
	timeChanged := false
	if params.Patch.Title != nil {
		updated.Title = strings.TrimSpace(*params.Patch.Title)
	}
	if params.Patch.ScheduledStart != nil && !params.Patch.ScheduledStart.Equal(existing.ScheduledStart) {
		updated.ScheduledStart = params.Patch.ScheduledStart.UTC()
		timeChanged = true
	}
	if params.Patch.DurationMinutes != nil && *params.Patch.DurationMinutes != existing.DurationMinutes {
		updated.DurationMinutes = *params.Patch.DurationMinutes
		timeChanged = true
	}

	if timeChanged {
		if err := c.validateDuration(updated.DurationMinutes); err != nil {
			return persistence.Session{}, err
		}

		unlock := c.userLocks.lock(existing.CreatedBy)
		defer unlock()

		analysis, err := c.detector.Detect(ctx, existing.CreatedBy, updated.ScheduledStart, updated.DurationMinutes, existing.ID)
		if err != nil {
			return persistence.Session{}, err
		}
		if analysis.HasConflict() {
			return persistence.Session{}, &ConflictError{Analysis: analysis}
		}

		if err := c.validator.Validate(updated.ScheduledStart, group.Policy); err != nil {
			return persistence.Session{}, err
		}
	}

	updated.Attendees = dedupeAttendees(updated.Attendees)
	updated.UpdatedAt = c.now().UTC()

	if err := c.sessions.UpdateSession(ctx, updated); err != nil {
		return persistence.Session{}, mapStoreError(err)
	}

	logger.InfoContext(ctx, "session updated", "time_changed", timeChanged)
	return updated, nil
}

// CheckConflict exposes conflict analysis without mutating anything.
func (c *SchedulingCoordinator) CheckConflict(ctx context.Context, userID string, proposedStart time.Time, durationMinutes int, excludeID string) (ConflictAnalysis, error) {
	if c == nil || c.detector == nil {
		return ConflictAnalysis{}, fmt.Errorf("scheduling coordinator not configured")
	}
	return c.detector.Detect(ctx, userID, proposedStart, durationMinutes, excludeID)
}

// UpdateRSVP records the acting user's response on a session, adding them as
// an attendee when absent. Terminal sessions reject the change.
func (c *SchedulingCoordinator) UpdateRSVP(ctx context.Context, principal Principal, sessionID string, status persistence.RSVPStatus) (persistence.Session, error) {
	switch status {
	case persistence.RSVPGoing, persistence.RSVPMaybe, persistence.RSVPNotGoing:
	default:
		vErr := &ValidationError{}
		vErr.add("rsvp", "rsvp must be going, maybe or not_going")
		return persistence.Session{}, vErr
	}

	session, err := c.sessions.GetSession(ctx, sessionID)
	if err != nil {
		return persistence.Session{}, mapStoreError(err)
	}
	if isTerminal(session.Status) {
		return persistence.Session{}, ErrSessionImmutable
	}

	group, err := c.loadGroup(ctx, session.GroupID)
	if err != nil {
		return persistence.Session{}, err
	}
	if !group.HasMember(principal.UserID) && !principal.IsAdmin {
		return persistence.Session{}, ErrNotAuthorized
	}

	session.Attendees = upsertAttendee(session.Attendees, persistence.Attendee{
		UserID:   principal.UserID,
		RSVP:     status,
		JoinedAt: c.now().UTC(),
	})
	session.UpdatedAt = c.now().UTC()

	if err := c.sessions.UpdateSession(ctx, session); err != nil {
		return persistence.Session{}, mapStoreError(err)
	}
	return session, nil
}

// RemoveAttendee drops a user from the session's attendee list. Users may
// remove themselves; otherwise creator or group-admin rights are required.
// The creator's own entry cannot be removed.
func (c *SchedulingCoordinator) RemoveAttendee(ctx context.Context, principal Principal, sessionID, userID string) (persistence.Session, error) {
	session, err := c.sessions.GetSession(ctx, sessionID)
	if err != nil {
		return persistence.Session{}, mapStoreError(err)
	}
	if isTerminal(session.Status) {
		return persistence.Session{}, ErrSessionImmutable
	}

	group, err := c.loadGroup(ctx, session.GroupID)
	if err != nil {
		return persistence.Session{}, err
	}
	if principal.UserID != userID {
		if err := c.authorizeEdit(session, group, principal); err != nil {
			return persistence.Session{}, err
		}
	}
	if userID == session.CreatedBy {
		return persistence.Session{}, ErrNotAuthorized
	}

	filtered := make([]persistence.Attendee, 0, len(session.Attendees))
	for _, attendee := range session.Attendees {
		if attendee.UserID == userID {
			continue
		}
		filtered = append(filtered, attendee)
	}
	session.Attendees = filtered
	session.UpdatedAt = c.now().UTC()

	if err := c.sessions.UpdateSession(ctx, session); err != nil {
		return persistence.Session{}, mapStoreError(err)
	}
	return session, nil
}

// TransitionStatus advances a session through its one-way lifecycle:
// scheduled -> ongoing -> completed, with cancelled reachable from any
// non-terminal state. Terminal sessions reject all transitions.
func (c *SchedulingCoordinator) TransitionStatus(ctx context.Context, principal Principal, sessionID string, next persistence.SessionStatus) (persistence.Session, error) {
	session, err := c.sessions.GetSession(ctx, sessionID)
	if err != nil {
		return persistence.Session{}, mapStoreError(err)
	}
	if isTerminal(session.Status) {
		return persistence.Session{}, ErrSessionImmutable
	}

	group, err := c.loadGroup(ctx, session.GroupID)
	if err != nil {
		return persistence.Session{}, err
	}
	if err := c.authorizeEdit(session, group, principal); err != nil {
		return persistence.Session{}, err
	}

	if !validTransition(session.Status, next) {
		vErr := &ValidationError{}
		vErr.add("status", fmt.Sprintf("cannot transition from %s to %s", session.Status, next))
		return persistence.Session{}, vErr
	}

	session.Status = next
	session.UpdatedAt = c.now().UTC()

	if err := c.sessions.UpdateSession(ctx, session); err != nil {
		return persistence.Session{}, mapStoreError(err)
	}
	return session, nil
}

// DeleteSession removes the session and its group reference atomically.
func (c *SchedulingCoordinator) DeleteSession(ctx context.Context, principal Principal, sessionID string) error {
	session, err := c.sessions.GetSession(ctx, sessionID)
	if err != nil {
		return mapStoreError(err)
	}

	group, err := c.loadGroup(ctx, session.GroupID)
	if err != nil {
		return err
	}
	if err := c.authorizeEdit(session, group, principal); err != nil {
		return err
	}

	if err := c.sessions.DeleteSession(ctx, sessionID); err != nil {
		return mapStoreError(err)
	}
	return nil
}

// GetSession loads one session.
func (c *SchedulingCoordinator) GetSession(ctx context.Context, sessionID string) (persistence.Session, error) {
	session, err := c.sessions.GetSession(ctx, sessionID)
	if err != nil {
		return persistence.Session{}, mapStoreError(err)
	}
	return session, nil
}

// ListGroupSessions enumerates a group's sessions ordered by start time.
func (c *SchedulingCoordinator) ListGroupSessions(ctx context.Context, groupID string) ([]persistence.Session, error) {
	if _, err := c.loadGroup(ctx, groupID); err != nil {
		return nil, err
	}
	sessions, err := c.sessions.ListSessionsByGroup(ctx, groupID)
	if err != nil {
		return nil, mapStoreError(err)
	}
	return sessions, nil
}

func (c *SchedulingCoordinator) validateCreateFields(params CreateSessionParams) error {
	vErr := &ValidationError{}
	if params.GroupID == "" {
		vErr.add("group_id", "group id is required")
	}
	if params.Principal.UserID == "" {
		vErr.add("user_id", "acting user is required")
	}
	if params.ScheduledStart.IsZero() {
		vErr.add("scheduled_start", "start time is required")
	}
	if params.DurationMinutes == 0 {
		vErr.add("duration_minutes", "duration is required")
	} else if params.DurationMinutes < c.policy.MinDurationMinutes || params.DurationMinutes > c.policy.MaxDurationMinutes {
		vErr.add("duration_minutes", fmt.Sprintf("duration must be between %d and %d minutes", c.policy.MinDurationMinutes, c.policy.MaxDurationMinutes))
	}
	if vErr.HasErrors() {
		return vErr
	}
	return nil
}

func (c *SchedulingCoordinator) validateDuration(durationMinutes int) error {
	if durationMinutes < c.policy.MinDurationMinutes || durationMinutes > c.policy.MaxDurationMinutes {
		vErr := &ValidationError{}
		vErr.add("duration_minutes", fmt.Sprintf("duration must be between %d and %d minutes", c.policy.MinDurationMinutes, c.policy.MaxDurationMinutes))
		return vErr
	}
	return nil
}

func (c *SchedulingCoordinator) loadGroup(ctx context.Context, groupID string) (persistence.Group, error) {
	if c.groups == nil {
		return persistence.Group{}, ErrGroupNotFound
	}
	group, err := c.groups.GetGroup(ctx, groupID)
	if err != nil {
		if errors.Is(err, persistence.ErrNotFound) {
			return persistence.Group{}, ErrGroupNotFound
		}
		return persistence.Group{}, mapStoreError(err)
	}
	return group, nil
}

func (c *SchedulingCoordinator) authorizeEdit(session persistence.Session, group persistence.Group, principal Principal) error {
	if principal.IsAdmin {
		return nil
	}
	if session.CreatedBy == principal.UserID {
		return nil
	}
	if group.HasAdmin(principal.UserID) {
		return nil
	}
	return ErrNotAuthorized
}

// buildAttendees assembles the initial list: creator first with going, every
// other group member with not_going, explicit invitees flipped to invited.
// Duplicates resolve last-write-wins by user id.
func (c *SchedulingCoordinator) buildAttendees(group persistence.Group, creator string, inviteeIDs []string, joinedAt time.Time) []persistence.Attendee {
	attendees := []persistence.Attendee{{
		UserID:   creator,
		RSVP:     persistence.RSVPGoing,
		JoinedAt: joinedAt,
	}}

	for _, member := range group.Members {
		if member.UserID == creator {
			continue
		}
		attendees = append(attendees, persistence.Attendee{
			UserID:   member.UserID,
			RSVP:     persistence.RSVPNotGoing,
			JoinedAt: joinedAt,
		})
	}

	for _, invitee := range uniqueStrings(inviteeIDs) {
		if invitee == creator || !group.HasMember(invitee) {
			continue
		}
		attendees = upsertAttendee(attendees, persistence.Attendee{
			UserID:   invitee,
			RSVP:     persistence.RSVPInvited,
			JoinedAt: joinedAt,
		})
	}

	return attendees
}

func (c *SchedulingCoordinator) autoAssign(ctx context.Context, group persistence.Group, creator string, count int) ([]string, error) {
	candidates := make([]string, 0, len(group.Members))
	for _, member := range group.Members {
		if member.UserID == creator {
			continue
		}
		candidates = append(candidates, member.UserID)
	}
	if len(candidates) == 0 {
		return nil, ErrNoEligibleCandidates
	}

	result, err := c.balancer.Balance(ctx, group.ID, candidates, count)
	if err != nil {
		return nil, err
	}
	return result.SelectedUserIDs, nil
}

// upsertAttendee replaces an existing entry for the same user or appends a
// new one, preserving list order. At most one entry per user survives.
func upsertAttendee(attendees []persistence.Attendee, next persistence.Attendee) []persistence.Attendee {
	for i, attendee := range attendees {
		if attendee.UserID == next.UserID {
			// Keep the original join time; only the response changes.
			next.JoinedAt = attendee.JoinedAt
			attendees[i] = next
			return attendees
		}
	}
	return append(attendees, next)
}

// dedupeAttendees enforces the one-entry-per-user invariant, keeping the last
// occurrence of each user at the position of its first occurrence.
func dedupeAttendees(attendees []persistence.Attendee) []persistence.Attendee {
	result := make([]persistence.Attendee, 0, len(attendees))
	for _, attendee := range attendees {
		result = upsertAttendee(result, attendee)
	}
	return result
}

func isTerminal(status persistence.SessionStatus) bool {
	return status == persistence.StatusCompleted || status == persistence.StatusCancelled
}

func validTransition(from, to persistence.SessionStatus) bool {
	switch from {
	case persistence.StatusScheduled:
		return to == persistence.StatusOngoing || to == persistence.StatusCancelled
	case persistence.StatusOngoing:
		return to == persistence.StatusCompleted || to == persistence.StatusCancelled
	default:
		return false
	}
}

// keyedMutex provides per-key mutual exclusion. Entries are created on first
// use and retained; the user population is small enough that reclamation is
// not needed here.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func (k *keyedMutex) lock(key string) func() {
	k.mu.Lock()
	if k.locks == nil {
		k.locks = make(map[string]*sync.Mutex)
	}
	entry, ok := k.locks[key]
	if !ok {
		entry = &sync.Mutex{}
		k.locks[key] = entry
	}
	k.mu.Unlock()

	entry.Lock()
	return entry.Unlock
}
