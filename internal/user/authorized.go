package user

import (
	"context"

	"github.com/aegis-identity/aegis/internal"
	"github.com/aegis-identity/aegis/internal/authz"
	"github.com/aegis-identity/aegis/internal/core/datamodel/permission"
	userdm "github.com/aegis-identity/aegis/internal/core/datamodel/user"
	"github.com/aegis-identity/aegis/internal/core/query"
)

// AuthorizedService is the authorization decorator. Users may always read
// their own record; everything else requires a User-resource permission.
type AuthorizedService struct {
	next  ServiceAPI
	authz authz.ServiceAPI
}

func NewAuthorizedService(next ServiceAPI, authzSvc authz.ServiceAPI) *AuthorizedService {
	return &AuthorizedService{next: next, authz: authzSvc}
}

func (a *AuthorizedService) CreateUser(ctx context.Context, dto CreateUserDTO) (*userdm.User, error) {
	ok, err := a.authz.IsAuthorized(ctx, permission.ActionCreate, permission.ResourceTypeUser, nil)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, internal.ErrUnauthorizedAccess
	}
	return a.next.CreateUser(ctx, dto)
}

func (a *AuthorizedService) GetUser(ctx context.Context, accountID, userID int64, hydrate bool) (*UserDetail, error) {
	if !a.authz.IsAuthorizedForOwnUser(ctx, userID) {
		ok, err := a.authz.IsAuthorized(ctx, permission.ActionRead, permission.ResourceTypeUser, &userID)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, internal.ErrUnauthorizedAccess
		}
	}
	return a.next.GetUser(ctx, accountID, userID, hydrate)
}

func (a *AuthorizedService) ListUsers(ctx context.Context, accountID int64, spec query.Spec) ([]userdm.User, error) {
	ok, err := a.authz.IsAuthorized(ctx, permission.ActionRead, permission.ResourceTypeUser, nil)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, internal.ErrUnauthorizedAccess
	}
	return a.next.ListUsers(ctx, accountID, spec)
}
