package ownership

import (
	"context"
	"log/slog"
)

type Service struct {
	repo   Repository
	logger *slog.Logger
}

func NewService(repo Repository, logger *slog.Logger) *Service {
	return &Service{repo: repo, logger: logger}
}

// IsSoleOwner reports whether the user holds the account's Owner role and
// no other current account member reaches it through any path. Absence of
// the owner role yields {false, false, true}.
func (s *Service) IsSoleOwner(ctx context.Context, userID, accountID int64) (Status, error) {
	noOwnership := Status{IsSoleOwner: false, UserHasOwnerRole: false, HasSingleOwnershipSource: true}

	ownerRoleID, err := s.repo.FindOwnerRoleID(ctx, accountID)
	if err != nil {
		return Status{}, err
	}
	if ownerRoleID == 0 {
		return noOwnership, nil
	}

	direct, err := s.repo.UserHasRoleDirect(ctx, userID, ownerRoleID)
	if err != nil {
		return Status{}, err
	}
	groups, err := s.repo.GroupsGrantingRole(ctx, userID, ownerRoleID)
	if err != nil {
		return Status{}, err
	}

	if !direct && len(groups) == 0 {
		return noOwnership, nil
	}

	otherOwner, err := s.repo.OtherAccountMemberHasRole(ctx, accountID, ownerRoleID, userID)
	if err != nil {
		return Status{}, err
	}

	return Status{
		IsSoleOwner:              !otherOwner,
		UserHasOwnerRole:         true,
		HasSingleOwnershipSource: !(direct && len(groups) > 0),
	}, nil
}

// HasOwnershipOutsideGroup reports whether the user reaches the Owner role
// directly or via any group other than excludeGroupID. Used when removing
// a user from one specific group.
func (s *Service) HasOwnershipOutsideGroup(ctx context.Context, userID, accountID, excludeGroupID int64) (bool, error) {
	ownerRoleID, err := s.repo.FindOwnerRoleID(ctx, accountID)
	if err != nil {
		return false, err
	}
	if ownerRoleID == 0 {
		return false, nil
	}

	direct, err := s.repo.UserHasRoleDirect(ctx, userID, ownerRoleID)
	if err != nil {
		return false, err
	}
	if direct {
		return true, nil
	}

	groups, err := s.repo.GroupsGrantingRole(ctx, userID, ownerRoleID)
	if err != nil {
		return false, err
	}
	for _, groupID := range groups {
		if groupID != excludeGroupID {
			return true, nil
		}
	}
	return false, nil
}

// AnyUserHasOwnershipOutsideGroup reports whether any user in the set
// retains ownership outside the excluded group. Gates deleting a group or
// bulk-removing its members.
func (s *Service) AnyUserHasOwnershipOutsideGroup(ctx context.Context, userIDs []int64, accountID, excludeGroupID int64) (bool, error) {
	for _, userID := range userIDs {
		ok, err := s.HasOwnershipOutsideGroup(ctx, userID, accountID, excludeGroupID)
		if err != nil {
			return false, err
		}
		if ok {
			return true, nil
		}
	}
	return false, nil
}
