package role

import (
	"context"

	"github.com/aegis-identity/aegis/internal/core/assignment"
	"github.com/aegis-identity/aegis/internal/core/datamodel/permission"
	"github.com/aegis-identity/aegis/internal/core/datamodel/role"
	"github.com/aegis-identity/aegis/internal/core/datamodel/user"
	"github.com/aegis-identity/aegis/internal/core/query"
)

// ServiceAPI is the role-management capability interface. The same
// interface is implemented by the core service and by the authorization
// and logging decorators composed around it at wiring time.
type ServiceAPI interface {
	CreateRole(ctx context.Context, dto CreateRoleDTO) (*role.Role, error)
	UpdateRole(ctx context.Context, roleID int64, dto UpdateRoleDTO) (assignment.Result, error)
	DeleteRole(ctx context.Context, roleID int64) (assignment.Result, error)
	GetRole(ctx context.Context, roleID int64) (*RoleWithPermissions, error)
	ListRoles(ctx context.Context, accountID int64, spec query.Spec) ([]role.Role, error)

	AssignPermissionsToRole(ctx context.Context, roleID int64, permissionIDs []int64) (assignment.Result, error)
	RemovePermissionsFromRole(ctx context.Context, roleID int64, permissionIDs []int64) (assignment.Result, error)
	AssignRolesToUser(ctx context.Context, accountID, userID int64, roleIDs []int64) (assignment.Result, error)
	RemoveRolesFromUser(ctx context.Context, accountID, userID int64, roleIDs []int64) (assignment.Result, error)
}

// RepositoryAPI is the store contract. Lookups return (nil, nil) when the
// entity is absent; absence is an expected outcome mapped to a result
// code, never an error.
type RepositoryAPI interface {
	Create(ctx context.Context, r *role.Role) error
	Update(ctx context.Context, r *role.Role) error
	Delete(ctx context.Context, roleID int64) error
	GetByID(ctx context.Context, roleID int64) (*role.Role, error)
	GetByName(ctx context.Context, accountID int64, name string) (*role.Role, error)
	List(ctx context.Context, accountID int64, spec query.Spec) ([]role.Role, error)

	AttachedPermissions(ctx context.Context, roleID int64) ([]permission.Permission, error)
	CandidatePermissionIDs(ctx context.Context, roleID, accountID int64, permissionIDs []int64) ([]int64, error)
	AttachPermissions(ctx context.Context, roleID int64, permissionIDs []int64) error
	DetachPermissions(ctx context.Context, roleID int64, permissionIDs []int64) error

	GetUserInAccount(ctx context.Context, accountID, userID int64) (*user.User, error)
	CandidateRoleIDsForUser(ctx context.Context, userID, accountID int64, roleIDs []int64) ([]int64, error)
	AssignedRoles(ctx context.Context, userID, accountID int64) ([]role.Role, error)
	AttachRolesToUser(ctx context.Context, userID int64, roleIDs []int64) error
	DetachRolesFromUser(ctx context.Context, userID int64, roleIDs []int64) error
}

// RoleWithPermissions is the hydrated read model returned by GetRole.
type RoleWithPermissions struct {
	Role        role.Role               `json:"role"`
	Permissions []permission.Permission `json:"permissions"`
}
