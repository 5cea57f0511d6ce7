package group

import (
	"context"

	"github.com/aegis-identity/aegis/internal"
	"github.com/aegis-identity/aegis/internal/authz"
	"github.com/aegis-identity/aegis/internal/core/assignment"
	groupdm "github.com/aegis-identity/aegis/internal/core/datamodel/group"
	"github.com/aegis-identity/aegis/internal/core/datamodel/permission"
	"github.com/aegis-identity/aegis/internal/core/query"
)

// AuthorizedService short-circuits unauthorized calls before the wrapped
// service runs; the inner operation is never invoked and no side effects
// occur.
type AuthorizedService struct {
	next  ServiceAPI
	authz authz.ServiceAPI
}

func NewAuthorizedService(next ServiceAPI, authzSvc authz.ServiceAPI) *AuthorizedService {
	return &AuthorizedService{next: next, authz: authzSvc}
}

func (a *AuthorizedService) CreateGroup(ctx context.Context, dto CreateGroupDTO) (*groupdm.Group, error) {
	ok, err := a.authz.IsAuthorized(ctx, permission.ActionCreate, permission.ResourceTypeGroup, nil)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, internal.ErrUnauthorizedAccess
	}
	return a.next.CreateGroup(ctx, dto)
}

func (a *AuthorizedService) UpdateGroup(ctx context.Context, groupID int64, dto UpdateGroupDTO) (assignment.Result, error) {
	return a.guarded(ctx, permission.ActionUpdate, groupID, func() (assignment.Result, error) {
		return a.next.UpdateGroup(ctx, groupID, dto)
	})
}

func (a *AuthorizedService) DeleteGroup(ctx context.Context, groupID int64) (assignment.Result, error) {
	return a.guarded(ctx, permission.ActionDelete, groupID, func() (assignment.Result, error) {
		return a.next.DeleteGroup(ctx, groupID)
	})
}

func (a *AuthorizedService) GetGroup(ctx context.Context, groupID int64) (*GroupDetail, error) {
	ok, err := a.authz.IsAuthorized(ctx, permission.ActionRead, permission.ResourceTypeGroup, &groupID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, internal.ErrUnauthorizedAccess
	}
	return a.next.GetGroup(ctx, groupID)
}

func (a *AuthorizedService) ListGroups(ctx context.Context, accountID int64, spec query.Spec) ([]groupdm.Group, error) {
	ok, err := a.authz.IsAuthorized(ctx, permission.ActionRead, permission.ResourceTypeGroup, nil)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, internal.ErrUnauthorizedAccess
	}
	return a.next.ListGroups(ctx, accountID, spec)
}

func (a *AuthorizedService) AddUsersToGroup(ctx context.Context, groupID int64, userIDs []int64) (assignment.Result, error) {
	return a.guarded(ctx, permission.ActionUpdate, groupID, func() (assignment.Result, error) {
		return a.next.AddUsersToGroup(ctx, groupID, userIDs)
	})
}

func (a *AuthorizedService) RemoveUsersFromGroup(ctx context.Context, groupID int64, userIDs []int64) (assignment.Result, error) {
	return a.guarded(ctx, permission.ActionUpdate, groupID, func() (assignment.Result, error) {
		return a.next.RemoveUsersFromGroup(ctx, groupID, userIDs)
	})
}

// Role attachment additionally requires read on every role id in the
// batch; a wildcard role permission covers the whole batch.
func (a *AuthorizedService) AssignRolesToGroup(ctx context.Context, groupID int64, roleIDs []int64) (assignment.Result, error) {
	ok, err := a.authz.IsAuthorized(ctx, permission.ActionUpdate, permission.ResourceTypeGroup, &groupID)
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
	return a.next.AssignRolesToGroup(ctx, groupID, roleIDs)
}

func (a *AuthorizedService) RemoveRolesFromGroup(ctx context.Context, groupID int64, roleIDs []int64) (assignment.Result, error) {
	return a.guarded(ctx, permission.ActionUpdate, groupID, func() (assignment.Result, error) {
		return a.next.RemoveRolesFromGroup(ctx, groupID, roleIDs)
	})
}

func (a *AuthorizedService) guarded(ctx context.Context, action permission.Action, groupID int64, next func() (assignment.Result, error)) (assignment.Result, error) {
	ok, err := a.authz.IsAuthorized(ctx, action, permission.ResourceTypeGroup, &groupID)
	if err != nil {
		return assignment.Result{}, err
	}
	if !ok {
		return assignment.Unauthorized(), nil
	}
	return next()
}
