package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/example/studygroup-scheduler/internal/persistence"
)

// SessionRepository implements persistence.SessionRepository using SQLite.
// Session writes that affect group ownership (create, delete) also maintain
// the group_session_refs table inside the same transaction.
type SessionRepository struct {
	pool   *ConnectionPool
	helper *QueryHelper
	mapper *ErrorMapper
}

// NewSessionRepository creates a new SQLite session repository.
func NewSessionRepository(pool *ConnectionPool) *SessionRepository {
	return &SessionRepository{
		pool:   pool,
		helper: NewQueryHelper(pool),
		mapper: NewErrorMapper(),
	}
}

// CreateSession inserts a session, its attendees and the owning group's
// session reference in one transaction.
func (r *SessionRepository) CreateSession(ctx context.Context, session persistence.Session) error {
	if session.ID == "" || session.GroupID == "" {
		return persistence.ErrConstraintViolation
	}

	return r.pool.WithTransaction(ctx, func(tx *sql.Tx) error {
		query := `
			INSERT INTO sessions (id, group_id, title, start_time, end_time, duration_minutes, status, created_by, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`
		_, err := r.helper.ExecTx(tx, query,
			session.ID,
			session.GroupID,
			session.Title,
			session.ScheduledStart.UTC().Format(time.RFC3339),
			session.End().UTC().Format(time.RFC3339),
			session.DurationMinutes,
			string(session.Status),
			session.CreatedBy,
			session.CreatedAt.UTC().Format(time.RFC3339),
			session.UpdatedAt.UTC().Format(time.RFC3339),
		)
		if err != nil {
			return r.mapper.MapError(err)
		}

		if err := r.insertAttendees(tx, session.ID, session.Attendees); err != nil {
			return err
		}

		var nextPosition int
		if err := r.helper.QueryRowTx(tx,
			"SELECT COALESCE(MAX(position), -1) + 1 FROM group_session_refs WHERE group_id = ?",
			session.GroupID).Scan(&nextPosition); err != nil {
			return r.mapper.MapError(err)
		}

		_, err = r.helper.ExecTx(tx,
			"INSERT INTO group_session_refs (group_id, session_id, position) VALUES (?, ?, ?)",
			session.GroupID, session.ID, nextPosition)
		if err != nil {
			return r.mapper.MapError(err)
		}

		return nil
	})
}

// UpdateSession rewrites the session row and replaces its attendee list.
// Group ownership, creator and creation timestamp are immutable.
func (r *SessionRepository) UpdateSession(ctx context.Context, session persistence.Session) error {
	if session.ID == "" {
		return persistence.ErrNotFound
	}

	return r.pool.WithTransaction(ctx, func(tx *sql.Tx) error {
		query := `
			UPDATE sessions
			SET title = ?, start_time = ?, end_time = ?, duration_minutes = ?, status = ?, updated_at = ?
			WHERE id = ?
		`
		result, err := r.helper.ExecTx(tx, query,
			session.Title,
			session.ScheduledStart.UTC().Format(time.RFC3339),
			session.End().UTC().Format(time.RFC3339),
			session.DurationMinutes,
			string(session.Status),
			session.UpdatedAt.UTC().Format(time.RFC3339),
			session.ID,
		)
		if err != nil {
			return r.mapper.MapError(err)
		}

		affected, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to get rows affected: %w", err)
		}
		if affected == 0 {
			return persistence.ErrNotFound
		}

		if _, err := r.helper.ExecTx(tx, "DELETE FROM session_attendees WHERE session_id = ?", session.ID); err != nil {
			return r.mapper.MapError(err)
		}

		return r.insertAttendees(tx, session.ID, session.Attendees)
	})
}

// GetSession retrieves a session by ID with its attendees.
func (r *SessionRepository) GetSession(ctx context.Context, id string) (persistence.Session, error) {
	if id == "" {
		return persistence.Session{}, persistence.ErrNotFound
	}

	query := `
		SELECT id, group_id, title, start_time, duration_minutes, status, created_by, created_at, updated_at
		FROM sessions
		WHERE id = ?
	`

	session, err := r.scanSession(r.helper.QueryRow(ctx, query, id))
	if err != nil {
		return persistence.Session{}, err
	}

	attendees, err := r.loadAttendees(ctx, id)
	if err != nil {
		return persistence.Session{}, err
	}
	session.Attendees = attendees

	return session, nil
}

// DeleteSession removes the session, its attendees and its group reference in
// one transaction.
func (r *SessionRepository) DeleteSession(ctx context.Context, id string) error {
	if id == "" {
		return persistence.ErrNotFound
	}

	return r.pool.WithTransaction(ctx, func(tx *sql.Tx) error {
		if _, err := r.helper.ExecTx(tx, "DELETE FROM session_attendees WHERE session_id = ?", id); err != nil {
			return r.mapper.MapError(err)
		}
		if _, err := r.helper.ExecTx(tx, "DELETE FROM group_session_refs WHERE session_id = ?", id); err != nil {
			return r.mapper.MapError(err)
		}

		result, err := r.helper.ExecTx(tx, "DELETE FROM sessions WHERE id = ?", id)
		if err != nil {
			return r.mapper.MapError(err)
		}

		affected, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to get rows affected: %w", err)
		}
		if affected == 0 {
			return persistence.ErrNotFound
		}

		return nil
	})
}

// FindByUserAndWindow returns sessions the user attends whose interval
// intersects the window: starting inside it, ending inside it, or spanning it
// entirely. Pure start-time filtering would miss sessions that wholly contain
// the window, hence the three sub-cases.
func (r *SessionRepository) FindByUserAndWindow(ctx context.Context, filter persistence.SessionWindowFilter) ([]persistence.Session, error) {
	if filter.UserID == "" {
		return nil, persistence.ErrConstraintViolation
	}

	windowStart := filter.WindowStart.UTC().Format(time.RFC3339)
	windowEnd := filter.WindowEnd.UTC().Format(time.RFC3339)

	var builder strings.Builder
	builder.WriteString(`
		SELECT DISTINCT s.id, s.group_id, s.title, s.start_time, s.duration_minutes, s.status, s.created_by, s.created_at, s.updated_at
		FROM sessions s
		JOIN session_attendees sa ON sa.session_id = s.id
		WHERE sa.user_id = ?
	`)
	args := []any{filter.UserID}

	if len(filter.Statuses) > 0 {
		placeholders := make([]string, len(filter.Statuses))
		for i, status := range filter.Statuses {
			placeholders[i] = "?"
			args = append(args, string(status))
		}
		builder.WriteString(" AND s.status IN (" + strings.Join(placeholders, ",") + ")")
	}

	builder.WriteString(`
		AND (
			(s.start_time >= ? AND s.start_time < ?)
			OR (s.end_time > ? AND s.end_time <= ?)
			OR (s.start_time < ? AND s.end_time > ?)
		)
	`)
	args = append(args, windowStart, windowEnd, windowStart, windowEnd, windowStart, windowEnd)

	if filter.ExcludeID != "" {
		builder.WriteString(" AND s.id <> ?")
		args = append(args, filter.ExcludeID)
	}

	builder.WriteString(" ORDER BY s.start_time ASC, s.id ASC")

	return r.querySessions(ctx, builder.String(), args...)
}

// ListSessionsByGroup lists a group's sessions ordered by start time.
func (r *SessionRepository) ListSessionsByGroup(ctx context.Context, groupID string) ([]persistence.Session, error) {
	query := `
		SELECT id, group_id, title, start_time, duration_minutes, status, created_by, created_at, updated_at
		FROM sessions
		WHERE group_id = ?
		ORDER BY start_time ASC, id ASC
	`
	return r.querySessions(ctx, query, groupID)
}

func (r *SessionRepository) querySessions(ctx context.Context, query string, args ...any) ([]persistence.Session, error) {
	rows, err := r.helper.Query(ctx, query, args...)
	if err != nil {
		return nil, r.mapper.MapError(err)
	}
	defer rows.Close()

	var sessions []persistence.Session
	for rows.Next() {
		session, err := r.scanSessionRow(rows)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, session)
	}
	if err := rows.Err(); err != nil {
		return nil, r.mapper.MapError(err)
	}

	for i := range sessions {
		attendees, err := r.loadAttendees(ctx, sessions[i].ID)
		if err != nil {
			return nil, err
		}
		sessions[i].Attendees = attendees
	}

	return sessions, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func (r *SessionRepository) scanSession(row *sql.Row) (persistence.Session, error) {
	session, err := r.scanSessionRow(row)
	if err != nil {
		if err == sql.ErrNoRows || err == persistence.ErrNotFound {
			return persistence.Session{}, persistence.ErrNotFound
		}
		return persistence.Session{}, err
	}
	return session, nil
}

func (r *SessionRepository) scanSessionRow(scanner rowScanner) (persistence.Session, error) {
	var session persistence.Session
	var startStr, createdStr, updatedStr, status string

	err := scanner.Scan(
		&session.ID,
		&session.GroupID,
		&session.Title,
		&startStr,
		&session.DurationMinutes,
		&status,
		&session.CreatedBy,
		&createdStr,
		&updatedStr,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return persistence.Session{}, persistence.ErrNotFound
		}
		return persistence.Session{}, r.mapper.MapError(err)
	}

	session.Status = persistence.SessionStatus(status)

	if session.ScheduledStart, err = time.Parse(time.RFC3339, startStr); err != nil {
		return persistence.Session{}, fmt.Errorf("failed to parse start_time: %w", err)
	}
	if session.CreatedAt, err = time.Parse(time.RFC3339, createdStr); err != nil {
		return persistence.Session{}, fmt.Errorf("failed to parse created_at: %w", err)
	}
	if session.UpdatedAt, err = time.Parse(time.RFC3339, updatedStr); err != nil {
		return persistence.Session{}, fmt.Errorf("failed to parse updated_at: %w", err)
	}

	return session, nil
}

// insertAttendees writes the attendee list within a transaction, preserving
// order and enforcing at most one entry per user (last write wins).
func (r *SessionRepository) insertAttendees(tx *sql.Tx, sessionID string, attendees []persistence.Attendee) error {
	position := 0
	seen := make(map[string]struct{}, len(attendees))

	for _, attendee := range attendees {
		userID := strings.TrimSpace(attendee.UserID)
		if userID == "" {
			continue
		}
		if _, ok := seen[userID]; ok {
			if _, err := r.helper.ExecTx(tx,
				"UPDATE session_attendees SET rsvp = ?, joined_at = ? WHERE session_id = ? AND user_id = ?",
				string(attendee.RSVP), attendee.JoinedAt.UTC().Format(time.RFC3339), sessionID, userID); err != nil {
				return r.mapper.MapError(err)
			}
			continue
		}
		seen[userID] = struct{}{}

		_, err := r.helper.ExecTx(tx,
			"INSERT INTO session_attendees (session_id, user_id, rsvp, joined_at, position) VALUES (?, ?, ?, ?, ?)",
			sessionID, userID, string(attendee.RSVP), attendee.JoinedAt.UTC().Format(time.RFC3339), position)
		if err != nil {
			return r.mapper.MapError(err)
		}
		position++
	}

	return nil
}

// loadAttendees loads a session's attendees in insertion order.
func (r *SessionRepository) loadAttendees(ctx context.Context, sessionID string) ([]persistence.Attendee, error) {
	query := `
		SELECT user_id, rsvp, joined_at
		FROM session_attendees
		WHERE session_id = ?
		ORDER BY position ASC
	`

	rows, err := r.helper.Query(ctx, query, sessionID)
	if err != nil {
		return nil, r.mapper.MapError(err)
	}
	defer rows.Close()

	var attendees []persistence.Attendee
	for rows.Next() {
		var attendee persistence.Attendee
		var rsvp, joinedStr string
		if err := rows.Scan(&attendee.UserID, &rsvp, &joinedStr); err != nil {
			return nil, r.mapper.MapError(err)
		}
		attendee.RSVP = persistence.RSVPStatus(rsvp)
		if attendee.JoinedAt, err = time.Parse(time.RFC3339, joinedStr); err != nil {
			return nil, fmt.Errorf("failed to parse joined_at: %w", err)
		}
		attendees = append(attendees, attendee)
	}
	if err := rows.Err(); err != nil {
		return nil, r.mapper.MapError(err)
	}

	return attendees, nil
}
