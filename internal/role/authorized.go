package role

import (
	"context"

	"github.com/aegis-identity/aegis/internal"
	"github.com/aegis-identity/aegis/internal/authz"
	"github.com/aegis-identity/aegis/internal/core/assignment"
	"github.com/aegis-identity/aegis/internal/core/datamodel/permission"
	"github.com/aegis-identity/aegis/internal/core/datamodel/role"
	"github.com/aegis-identity/aegis/internal/core/query"
)

// AuthorizedService is the authorization decorator. When the caller lacks
// the required permission the wrapped operation is never invoked: the
// check short-circuits with an UnauthorizedError result and zero side
// effects.
type AuthorizedService struct {
	next  ServiceAPI
	authz authz.ServiceAPI
}

func NewAuthorizedService(next ServiceAPI, authzSvc authz.ServiceAPI) *AuthorizedService {
	return &AuthorizedService{next: next, authz: authzSvc}
}

func (a *AuthorizedService) CreateRole(ctx context.Context, dto CreateRoleDTO) (*role.Role, error) {
	ok, err := a.authz.IsAuthorized(ctx, permission.ActionCreate, permission.ResourceTypeRole, nil)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, internal.ErrUnauthorizedAccess
	}
	return a.next.CreateRole(ctx, dto)
}

func (a *AuthorizedService) UpdateRole(ctx context.Context, roleID int64, dto UpdateRoleDTO) (assignment.Result, error) {
	ok, err := a.authz.IsAuthorized(ctx, permission.ActionUpdate, permission.ResourceTypeRole, &roleID)
	if err != nil {
		return assignment.Result{}, err
	}
	if !ok {
		return assignment.Unauthorized(), nil
	}
	return a.next.UpdateRole(ctx, roleID, dto)
}

func (a *AuthorizedService) DeleteRole(ctx context.Context, roleID int64) (assignment.Result, error) {
	ok, err := a.authz.IsAuthorized(ctx, permission.ActionDelete, permission.ResourceTypeRole, &roleID)
	if err != nil {
		return assignment.Result{}, err
	}
	if !ok {
		return assignment.Unauthorized(), nil
	}
	return a.next.DeleteRole(ctx, roleID)
}

func (a *AuthorizedService) GetRole(ctx context.Context, roleID int64) (*RoleWithPermissions, error) {
	ok, err := a.authz.IsAuthorized(ctx, permission.ActionRead, permission.ResourceTypeRole, &roleID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, internal.ErrUnauthorizedAccess
	}
	return a.next.GetRole(ctx, roleID)
}

func (a *AuthorizedService) ListRoles(ctx context.Context, accountID int64, spec query.Spec) ([]role.Role, error) {
	ok, err := a.authz.IsAuthorized(ctx, permission.ActionRead, permission.ResourceTypeRole, nil)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, internal.ErrUnauthorizedAccess
	}
	return a.next.ListRoles(ctx, accountID, spec)
}

// Permission attachment requires update on the role and read on every
// permission id in the batch; a wildcard permission grant covers the whole
// batch at once.
func (a *AuthorizedService) AssignPermissionsToRole(ctx context.Context, roleID int64, permissionIDs []int64) (assignment.Result, error) {
	ok, err := a.authz.IsAuthorized(ctx, permission.ActionUpdate, permission.ResourceTypeRole, &roleID)
	if err != nil {
		return assignment.Result{}, err
	}
	if ok {
		ok, err = a.authz.IsAuthorizedAll(ctx, permission.ActionRead, permission.ResourceTypePermission, permissionIDs)
		if err != nil {
			return assignment.Result{}, err
		}
	}
	if !ok {
		return assignment.Unauthorized(), nil
	}
	return a.next.AssignPermissionsToRole(ctx, roleID, permissionIDs)
}

func (a *AuthorizedService) RemovePermissionsFromRole(ctx context.Context, roleID int64, permissionIDs []int64) (assignment.Result, error) {
	ok, err := a.authz.IsAuthorized(ctx, permission.ActionUpdate, permission.ResourceTypeRole, &roleID)
	if err != nil {
		return assignment.Result{}, err
	}
	if !ok {
		return assignment.Unauthorized(), nil
	}
	return a.next.RemovePermissionsFromRole(ctx, roleID, permissionIDs)
}

func (a *AuthorizedService) AssignRolesToUser(ctx context.Context, accountID, userID int64, roleIDs []int64) (assignment.Result, error) {
	ok, err := a.authz.IsAuthorized(ctx, permission.ActionUpdate, permission.ResourceTypeUser, &userID)
	if err != nil {
		return assignment.Result{}, err
	}
	if ok {
		ok, err = a.authz.IsAuthorizedAll(ctx, permission.ActionRead, permission.ResourceTypeRole, roleIDs)
		if err != nil {
			return assignment.Result{}, err
		}
	}
	if !ok {
		return assignment.Unauthorized(), nil
	}
	return a.next.AssignRolesToUser(ctx, accountID, userID, roleIDs)
}

func (a *AuthorizedService) RemoveRolesFromUser(ctx context.Context, accountID, userID int64, roleIDs []int64) (assignment.Result, error) {
	ok, err := a.authz.IsAuthorized(ctx, permission.ActionUpdate, permission.ResourceTypeUser, &userID)
	if err != nil {
		return assignment.Result{}, err
	}
	if !ok {
		return assignment.Unauthorized(), nil
	}
	return a.next.RemoveRolesFromUser(ctx, accountID, userID, roleIDs)
}
