package ownership

import "context"

// Status is the answer to a sole-ownership question. HasSingleOwnershipSource
// is false only when the user reaches the Owner role both directly and via a
// group at the same time, so callers removing one path can tell whether the
// other still protects the user.
type Status struct {
	IsSoleOwner              bool `json:"is_sole_owner"`
	UserHasOwnerRole         bool `json:"user_has_owner_role"`
	HasSingleOwnershipSource bool `json:"has_single_ownership_source"`
}

// ServiceAPI is consulted before any group or role mutation that could
// leave an account without an owner.
type ServiceAPI interface {
	IsSoleOwner(ctx context.Context, userID, accountID int64) (Status, error)
	HasOwnershipOutsideGroup(ctx context.Context, userID, accountID, excludeGroupID int64) (bool, error)
	AnyUserHasOwnershipOutsideGroup(ctx context.Context, userIDs []int64, accountID, excludeGroupID int64) (bool, error)
}

// Repository answers the ownership reachability queries. FindOwnerRoleID
// returns (0, nil) when the account has no Owner role at all.
type Repository interface {
	FindOwnerRoleID(ctx context.Context, accountID int64) (int64, error)
	UserHasRoleDirect(ctx context.Context, userID, roleID int64) (bool, error)
	GroupsGrantingRole(ctx context.Context, userID, roleID int64) ([]int64, error)
	OtherAccountMemberHasRole(ctx context.Context, accountID, roleID, excludeUserID int64) (bool, error)
}
