package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/tallyup/tally/internal/models"
	"github.com/tallyup/tally/internal/storage"
)

// CreateGroup persists a new group and the owner's active member row in one
// transaction, so a group never exists without its first member.
func (s *SQLiteStore) CreateGroup(ctx context.Context, group *models.Group) error {
	if group.ID == "" {
		group.ID = models.NewID("grp")
	}
	if group.CreatedAt == 0 {
		group.CreatedAt = time.Now().Unix()
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO groups (id, name, description, owner_id, join_code, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		group.ID, group.Name, group.Description, group.OwnerID, group.JoinCode, group.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert group: %w", err)
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO group_members (group_id, user_id) VALUES (?, ?)`,
		group.ID, group.OwnerID,
	)
	if err != nil {
		return fmt.Errorf("failed to insert owner membership: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// GetGroup retrieves a group by ID.
func (s *SQLiteStore) GetGroup(ctx context.Context, id string) (*models.Group, error) {
	return getGroup(ctx, s.db, "id", id)
}

// GetGroupByJoinCode retrieves a group by its join code.
func (s *SQLiteStore) GetGroupByJoinCode(ctx context.Context, joinCode string) (*models.Group, error) {
	return getGroup(ctx, s.db, "join_code", joinCode)
}

func getGroup(ctx context.Context, q querier, column, value string) (*models.Group, error) {
	group := &models.Group{}
	err := q.QueryRowContext(ctx,
		`SELECT id, name, description, owner_id, join_code, created_at
		 FROM groups WHERE `+column+` = ?`,
		value,
	).Scan(&group.ID, &group.Name, &group.Description, &group.OwnerID, &group.JoinCode, &group.CreatedAt)

	if err == sql.ErrNoRows {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get group: %w", err)
	}
	return group, nil
}

// ListGroupsByUser returns all groups where the user is an active member,
// newest first.
func (s *SQLiteStore) ListGroupsByUser(ctx context.Context, userID string) ([]models.Group, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT g.id, g.name, g.description, g.owner_id, g.join_code, g.created_at
		 FROM groups g
		 JOIN group_members m ON m.group_id = g.id
		 WHERE m.user_id = ? AND m.active = 1
		 ORDER BY g.created_at DESC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list groups: %w", err)
	}
	defer rows.Close()

	groups := make([]models.Group, 0)
	for rows.Next() {
		var g models.Group
		if err := rows.Scan(&g.ID, &g.Name, &g.Description, &g.OwnerID, &g.JoinCode, &g.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan group: %w", err)
		}
		groups = append(groups, g)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate groups: %w", err)
	}
	return groups, nil
}

// AddMember adds the user to the group with a zero balance. If the user
// previously left the group, the frozen row (balance zero by the leave rule)
// is reactivated. An existing active membership returns storage.ErrDuplicate.
func (s *SQLiteStore) AddMember(ctx context.Context, groupID, userID string) error {
	member, err := s.GetMember(ctx, groupID, userID)
	if err != nil && err != storage.ErrNotFound {
		return err
	}
	if member != nil && member.Active {
		return storage.ErrDuplicate
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO group_members (group_id, user_id) VALUES (?, ?)
		 ON CONFLICT (group_id, user_id) DO UPDATE SET active = 1`,
		groupID, userID,
	)
	if err != nil {
		return fmt.Errorf("failed to add member: %w", err)
	}
	return nil
}

// GetMember retrieves one membership row, active or not.
func (s *SQLiteStore) GetMember(ctx context.Context, groupID, userID string) (*models.Member, error) {
	return getMember(ctx, s.db, groupID, userID)
}

// ListMembers returns every membership row of the group, including frozen
// rows of members who left.
func (s *SQLiteStore) ListMembers(ctx context.Context, groupID string) ([]models.Member, error) {
	return listMembers(ctx, s.db, groupID, false)
}

// ListActiveMembers returns only the group's active members.
func (s *SQLiteStore) ListActiveMembers(ctx context.Context, groupID string) ([]models.Member, error) {
	return listMembers(ctx, s.db, groupID, true)
}

func getMember(ctx context.Context, q querier, groupID, userID string) (*models.Member, error) {
	member := &models.Member{}
	err := q.QueryRowContext(ctx,
		`SELECT group_id, user_id, balance, active
		 FROM group_members WHERE group_id = ? AND user_id = ?`,
		groupID, userID,
	).Scan(&member.GroupID, &member.UserID, &member.Balance, &member.Active)

	if err == sql.ErrNoRows {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get member: %w", err)
	}
	return member, nil
}

func listMembers(ctx context.Context, q querier, groupID string, activeOnly bool) ([]models.Member, error) {
	query := `SELECT group_id, user_id, balance, active
		 FROM group_members WHERE group_id = ?`
	if activeOnly {
		query += ` AND active = 1`
	}
	query += ` ORDER BY user_id`

	rows, err := q.QueryContext(ctx, query, groupID)
	if err != nil {
		return nil, fmt.Errorf("failed to list members: %w", err)
	}
	defer rows.Close()

	members := make([]models.Member, 0)
	for rows.Next() {
		var m models.Member
		if err := rows.Scan(&m.GroupID, &m.UserID, &m.Balance, &m.Active); err != nil {
			return nil, fmt.Errorf("failed to scan member: %w", err)
		}
		members = append(members, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate members: %w", err)
	}
	return members, nil
}

func deactivateMember(ctx context.Context, q querier, groupID, userID string) error {
	res, err := q.ExecContext(ctx,
		`UPDATE group_members SET active = 0 WHERE group_id = ? AND user_id = ? AND active = 1`,
		groupID, userID,
	)
	if err != nil {
		return fmt.Errorf("failed to deactivate member: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read rows affected: %w", err)
	}
	if n == 0 {
		return storage.ErrNotFound
	}
	return nil
}
