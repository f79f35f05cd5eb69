package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/example/studygroup-scheduler/internal/persistence"
)

// GroupRepository implements persistence.GroupRepository and
// persistence.SessionHistoryProvider using SQLite.
type GroupRepository struct {
	pool   *ConnectionPool
	helper *QueryHelper
	mapper *ErrorMapper
}

// NewGroupRepository creates a new SQLite group repository.
func NewGroupRepository(pool *ConnectionPool) *GroupRepository {
	return &GroupRepository{
		pool:   pool,
		helper: NewQueryHelper(pool),
		mapper: NewErrorMapper(),
	}
}

// CreateGroup inserts a group and its membership in one transaction.
func (r *GroupRepository) CreateGroup(ctx context.Context, group persistence.Group) error {
	if group.ID == "" {
		return persistence.ErrConstraintViolation
	}

	return r.pool.WithTransaction(ctx, func(tx *sql.Tx) error {
		_, err := r.helper.ExecTx(tx,
			"INSERT INTO groups (id, name, prefer_weekdays, created_at, updated_at) VALUES (?, ?, ?, ?, ?)",
			group.ID,
			group.Name,
			boolToInt(group.Policy.PreferWeekdays),
			group.CreatedAt.UTC().Format(time.RFC3339),
			group.UpdatedAt.UTC().Format(time.RFC3339),
		)
		if err != nil {
			return r.mapper.MapError(err)
		}

		seen := make(map[string]struct{}, len(group.Members))
		position := 0
		for _, member := range group.Members {
			userID := strings.TrimSpace(member.UserID)
			if userID == "" {
				continue
			}
			if _, ok := seen[userID]; ok {
				continue
			}
			seen[userID] = struct{}{}

			_, err := r.helper.ExecTx(tx,
				"INSERT INTO group_members (group_id, user_id, is_admin, position) VALUES (?, ?, ?, ?)",
				group.ID, userID, boolToInt(member.IsAdmin), position)
			if err != nil {
				return r.mapper.MapError(err)
			}
			position++
		}

		return nil
	})
}

// GetGroup loads a group with its members, policy and session references.
func (r *GroupRepository) GetGroup(ctx context.Context, id string) (persistence.Group, error) {
	if id == "" {
		return persistence.Group{}, persistence.ErrNotFound
	}

	var group persistence.Group
	var preferWeekdays int
	var createdStr, updatedStr string

	err := r.helper.QueryRow(ctx,
		"SELECT id, name, prefer_weekdays, created_at, updated_at FROM groups WHERE id = ?",
		id).Scan(&group.ID, &group.Name, &preferWeekdays, &createdStr, &updatedStr)
	if err != nil {
		if err == sql.ErrNoRows {
			return persistence.Group{}, persistence.ErrNotFound
		}
		return persistence.Group{}, r.mapper.MapError(err)
	}

	group.Policy = persistence.GroupPolicy{PreferWeekdays: preferWeekdays != 0}
	if group.CreatedAt, err = time.Parse(time.RFC3339, createdStr); err != nil {
		return persistence.Group{}, fmt.Errorf("failed to parse created_at: %w", err)
	}
	if group.UpdatedAt, err = time.Parse(time.RFC3339, updatedStr); err != nil {
		return persistence.Group{}, fmt.Errorf("failed to parse updated_at: %w", err)
	}

	if group.Members, err = r.loadMembers(ctx, id); err != nil {
		return persistence.Group{}, err
	}
	if group.SessionIDs, err = r.loadSessionRefs(ctx, id); err != nil {
		return persistence.Group{}, err
	}

	return group, nil
}

// AppendSessionRef adds a session to the group's ordered session list.
func (r *GroupRepository) AppendSessionRef(ctx context.Context, groupID, sessionID string) error {
	return r.pool.WithTransaction(ctx, func(tx *sql.Tx) error {
		var nextPosition int
		if err := r.helper.QueryRowTx(tx,
			"SELECT COALESCE(MAX(position), -1) + 1 FROM group_session_refs WHERE group_id = ?",
			groupID).Scan(&nextPosition); err != nil {
			return r.mapper.MapError(err)
		}

		_, err := r.helper.ExecTx(tx,
			"INSERT INTO group_session_refs (group_id, session_id, position) VALUES (?, ?, ?)",
			groupID, sessionID, nextPosition)
		if err != nil {
			return r.mapper.MapError(err)
		}
		return nil
	})
}

// RemoveSessionRef drops a session from the group's session list.
func (r *GroupRepository) RemoveSessionRef(ctx context.Context, groupID, sessionID string) error {
	result, err := r.helper.Exec(ctx,
		"DELETE FROM group_session_refs WHERE group_id = ? AND session_id = ?",
		groupID, sessionID)
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
}

// CountByUserInGroup returns the number of non-cancelled sessions each user
// attends within the group. Users with no sessions map to zero.
func (r *GroupRepository) CountByUserInGroup(ctx context.Context, groupID string, userIDs []string) (map[string]int, error) {
	counts := make(map[string]int, len(userIDs))
	for _, userID := range userIDs {
		counts[userID] = 0
	}
	if len(userIDs) == 0 {
		return counts, nil
	}

	placeholders := make([]string, len(userIDs))
	args := []any{groupID}
	for i, userID := range userIDs {
		placeholders[i] = "?"
		args = append(args, userID)
	}

	query := fmt.Sprintf(`
		SELECT sa.user_id, COUNT(*)
		FROM session_attendees sa
		JOIN sessions s ON s.id = sa.session_id
		WHERE s.group_id = ? AND s.status <> 'cancelled' AND sa.user_id IN (%s)
		GROUP BY sa.user_id
	`, strings.Join(placeholders, ","))

	rows, err := r.helper.Query(ctx, query, args...)
	if err != nil {
		return nil, r.mapper.MapError(err)
	}
	defer rows.Close()

	for rows.Next() {
		var userID string
		var count int
		if err := rows.Scan(&userID, &count); err != nil {
			return nil, r.mapper.MapError(err)
		}
		counts[userID] = count
	}
	if err := rows.Err(); err != nil {
		return nil, r.mapper.MapError(err)
	}

	return counts, nil
}

func (r *GroupRepository) loadMembers(ctx context.Context, groupID string) ([]persistence.GroupMember, error) {
	rows, err := r.helper.Query(ctx,
		"SELECT user_id, is_admin FROM group_members WHERE group_id = ? ORDER BY position ASC",
		groupID)
	if err != nil {
		return nil, r.mapper.MapError(err)
	}
	defer rows.Close()

	var members []persistence.GroupMember
	for rows.Next() {
		var member persistence.GroupMember
		var isAdmin int
		if err := rows.Scan(&member.UserID, &isAdmin); err != nil {
			return nil, r.mapper.MapError(err)
		}
		member.IsAdmin = isAdmin != 0
		members = append(members, member)
	}
	if err := rows.Err(); err != nil {
		return nil, r.mapper.MapError(err)
	}

	return members, nil
}

func (r *GroupRepository) loadSessionRefs(ctx context.Context, groupID string) ([]string, error) {
	rows, err := r.helper.Query(ctx,
		"SELECT session_id FROM group_session_refs WHERE group_id = ? ORDER BY position ASC",
		groupID)
	if err != nil {
		return nil, r.mapper.MapError(err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, r.mapper.MapError(err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, r.mapper.MapError(err)
	}

	return ids, nil
}

func boolToInt(value bool) int {
	if value {
		return 1
	}
	return 0
}
