package group

import (
	"context"

	"github.com/aegis-identity/aegis/internal/core/assignment"
	groupdm "github.com/aegis-identity/aegis/internal/core/datamodel/group"
	"github.com/aegis-identity/aegis/internal/core/datamodel/role"
	"github.com/aegis-identity/aegis/internal/core/datamodel/user"
	"github.com/aegis-identity/aegis/internal/core/query"
)

// ServiceAPI is the group-management capability interface, implemented by
// the core service and its authorization/logging decorators.
type ServiceAPI interface {
	CreateGroup(ctx context.Context, dto CreateGroupDTO) (*groupdm.Group, error)
	UpdateGroup(ctx context.Context, groupID int64, dto UpdateGroupDTO) (assignment.Result, error)
	DeleteGroup(ctx context.Context, groupID int64) (assignment.Result, error)
	GetGroup(ctx context.Context, groupID int64) (*GroupDetail, error)
	ListGroups(ctx context.Context, accountID int64, spec query.Spec) ([]groupdm.Group, error)

	AddUsersToGroup(ctx context.Context, groupID int64, userIDs []int64) (assignment.Result, error)
	RemoveUsersFromGroup(ctx context.Context, groupID int64, userIDs []int64) (assignment.Result, error)
	AssignRolesToGroup(ctx context.Context, groupID int64, roleIDs []int64) (assignment.Result, error)
	RemoveRolesFromGroup(ctx context.Context, groupID int64, roleIDs []int64) (assignment.Result, error)
}

// RepositoryAPI is the store contract; lookups return (nil, nil) on absence.
type RepositoryAPI interface {
	Create(ctx context.Context, g *groupdm.Group) error
	Update(ctx context.Context, g *groupdm.Group) error
	Delete(ctx context.Context, groupID int64) error
	GetByID(ctx context.Context, groupID int64) (*groupdm.Group, error)
	GetByName(ctx context.Context, accountID int64, name string) (*groupdm.Group, error)
	List(ctx context.Context, accountID int64, spec query.Spec) ([]groupdm.Group, error)

	Members(ctx context.Context, groupID int64) ([]user.User, error)
	CandidateUserIDs(ctx context.Context, groupID, accountID int64, userIDs []int64) ([]int64, error)
	AttachUsers(ctx context.Context, groupID int64, userIDs []int64) error
	DetachUsers(ctx context.Context, groupID int64, userIDs []int64) error

	AssignedRoles(ctx context.Context, groupID int64) ([]role.Role, error)
	CandidateRoleIDs(ctx context.Context, groupID, accountID int64, roleIDs []int64) ([]int64, error)
	AttachRoles(ctx context.Context, groupID int64, roleIDs []int64) error
	DetachRoles(ctx context.Context, groupID int64, roleIDs []int64) error
}

// GroupDetail is the hydrated read model returned by GetGroup.
type GroupDetail struct {
	Group groupdm.Group `json:"group"`
	Users []user.User   `json:"users"`
	Roles []role.Role   `json:"roles"`
}
