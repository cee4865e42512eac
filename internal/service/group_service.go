package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/tallyup/tally/internal/models"
	"github.com/tallyup/tally/internal/storage"
)

// GroupService manages groups and memberships.
type GroupService struct {
	store storage.Store
}

// NewGroupService creates a new GroupService with the given storage backend.
func NewGroupService(store storage.Store) *GroupService {
	return &GroupService{store: store}
}

// CreateGroup creates a group owned by userID. The owner becomes the first
// active member with a zero balance.
func (s *GroupService) CreateGroup(ctx context.Context, userID, name, description string) (*models.Group, error) {
	if strings.TrimSpace(name) == "" {
		return nil, validationf("name is required")
	}

	group := &models.Group{
		Name:        strings.TrimSpace(name),
		Description: description,
		OwnerID:     userID,
		JoinCode:    newJoinCode(),
	}
	if err := s.store.CreateGroup(ctx, group); err != nil {
		slog.Error("CreateGroup failed", "user_id", userID, "error", err)
		return nil, err
	}

	slog.Info("Group created", "group_id", group.ID, "owner_id", userID)
	return group, nil
}

// JoinGroup adds userID to the group identified by joinCode. Rejoining a
// group the user once left reactivates their frozen membership.
func (s *GroupService) JoinGroup(ctx context.Context, userID, joinCode string) (*models.Group, error) {
	group, err := s.store.GetGroupByJoinCode(ctx, joinCode)
	if err != nil {
		return nil, mapStorageErr(err)
	}

	if err := s.store.AddMember(ctx, group.ID, userID); err != nil {
		if errors.Is(err, storage.ErrDuplicate) {
			return nil, ErrAlreadyMember
		}
		slog.Error("JoinGroup failed", "group_id", group.ID, "user_id", userID, "error", err)
		return nil, err
	}

	slog.Info("Member joined", "group_id", group.ID, "user_id", userID)
	return group, nil
}

// LeaveGroup removes userID from the group. A member may only leave with a
// settled balance; the row is deactivated, never deleted, so the group's
// history stays intact and rejoining later is possible.
func (s *GroupService) LeaveGroup(ctx context.Context, userID, groupID string) error {
	if _, err := s.store.GetGroup(ctx, groupID); err != nil {
		return mapStorageErr(err)
	}

	err := s.store.Ledger(ctx, func(tx storage.LedgerTx) error {
		member, err := tx.GetMember(ctx, groupID, userID)
		if err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				return ErrForbidden
			}
			return err
		}
		if !member.Active {
			return ErrForbidden
		}
		if member.Balance != 0 {
			return ErrUnsettledBalance
		}
		return tx.DeactivateMember(ctx, groupID, userID)
	})
	if err != nil {
		slog.Error("LeaveGroup failed", "group_id", groupID, "user_id", userID, "error", err)
		return err
	}

	slog.Info("Member left", "group_id", groupID, "user_id", userID)
	return nil
}

// GetGroup retrieves a group. Only members (active or former) may view it.
func (s *GroupService) GetGroup(ctx context.Context, userID, groupID string) (*models.Group, error) {
	group, err := s.store.GetGroup(ctx, groupID)
	if err != nil {
		return nil, mapStorageErr(err)
	}
	if _, err := s.store.GetMember(ctx, groupID, userID); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, ErrForbidden
		}
		return nil, err
	}
	return group, nil
}

// ListGroups retrieves the groups the user is an active member of.
func (s *GroupService) ListGroups(ctx context.Context, userID string) ([]models.Group, error) {
	groups, err := s.store.ListGroupsByUser(ctx, userID)
	if err != nil {
		slog.Error("ListGroups failed", "user_id", userID, "error", err)
		return nil, err
	}
	return groups, nil
}

// ListMembers returns every membership row of the group, frozen rows
// included. Only members may view the roster.
func (s *GroupService) ListMembers(ctx context.Context, userID, groupID string) ([]models.Member, error) {
	if _, err := s.store.GetGroup(ctx, groupID); err != nil {
		return nil, mapStorageErr(err)
	}
	if _, err := s.store.GetMember(ctx, groupID, userID); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, ErrForbidden
		}
		return nil, err
	}
	return s.store.ListMembers(ctx, groupID)
}

// GetBalances returns the balance of every active member of the group.
// The balances always sum to zero.
func (s *GroupService) GetBalances(ctx context.Context, userID, groupID string) ([]models.Member, error) {
	group, err := s.store.GetGroup(ctx, groupID)
	if err != nil {
		return nil, mapStorageErr(err)
	}
	if _, err := s.store.GetMember(ctx, groupID, userID); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, ErrForbidden
		}
		return nil, err
	}

	members, err := s.store.ListActiveMembers(ctx, groupID)
	if err != nil {
		slog.Error("GetBalances failed", "group_id", group.ID, "error", err)
		return nil, err
	}
	return members, nil
}

// newJoinCode returns an opaque group join code.
func newJoinCode() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:12]
}
