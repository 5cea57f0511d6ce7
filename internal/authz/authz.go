package authz

import (
	"context"
	"sync"

	"github.com/aegis-identity/aegis/internal/core/datamodel/permission"
)

// ServiceAPI is the authorization contract consumed by the decorating
// wrappers around the assignment services.
type ServiceAPI interface {
	IsAuthorized(ctx context.Context, action permission.Action, resourceType string, resourceID *int64) (bool, error)
	IsAuthorizedAll(ctx context.Context, action permission.Action, resourceType string, resourceIDs []int64) (bool, error)
	IsAuthorizedForOwnUser(ctx context.Context, userID int64) bool
}

// PermissionStore loads the permissions reachable by a user inside an
// account: permissions on roles held directly plus permissions on roles
// reachable through the user's group memberships.
type PermissionStore interface {
	FindPermissionsForUser(ctx context.Context, accountID, userID int64) ([]permission.Permission, error)
}

// permissionCache memoizes the reachable permission set for the lifetime
// of one request context. It is installed by the auth middleware and never
// shared across requests.
type permissionCache struct {
	mu     sync.Mutex
	loaded bool
	perms  []permission.Permission
}

type cacheCtxKey struct{}

// WithCache installs a fresh permission cache on the context.
func WithCache(ctx context.Context) context.Context {
	return context.WithValue(ctx, cacheCtxKey{}, &permissionCache{})
}

func cacheFromContext(ctx context.Context) *permissionCache {
	c, _ := ctx.Value(cacheCtxKey{}).(*permissionCache)
	return c
}
