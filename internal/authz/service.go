package authz

import (
	"context"
	"log/slog"

	"github.com/aegis-identity/aegis/internal"
	"github.com/aegis-identity/aegis/internal/core/datamodel/permission"
)

// Service evaluates whether the caller identified by the request context
// may perform an action on a resource. Every check against an absent
// caller or account context returns false; that is the canonical
// "unauthenticated means unauthorized" outcome, not an error.
type Service struct {
	store  PermissionStore
	logger *slog.Logger
}

func NewService(store PermissionStore, logger *slog.Logger) *Service {
	return &Service{store: store, logger: logger}
}

// IsAuthorized reports whether any permission reachable by the caller
// grants the action on the resource type and optional resource id.
func (s *Service) IsAuthorized(ctx context.Context, action permission.Action, resourceType string, resourceID *int64) (bool, error) {
	caller, ok := internal.CallerFromContext(ctx)
	if !ok {
		return false, nil
	}
	accountID, ok := caller.Account()
	if !ok {
		return false, nil
	}

	perms, err := s.reachablePermissions(ctx, accountID, caller.UserID)
	if err != nil {
		return false, err
	}

	for i := range perms {
		if perms[i].Grants(accountID, action, resourceType, resourceID) {
			return true, nil
		}
	}

	s.logger.Debug("authorization denied",
		"user_id", caller.UserID,
		"account_id", accountID,
		"action", action,
		"resource_type", resourceType)
	return false, nil
}

// IsAuthorizedAll requires authorization for every id in the batch. A
// wildcard-scoped permission on the resource type satisfies all ids at
// once; an empty batch degenerates to the type-level check.
func (s *Service) IsAuthorizedAll(ctx context.Context, action permission.Action, resourceType string, resourceIDs []int64) (bool, error) {
	if len(resourceIDs) == 0 {
		return s.IsAuthorized(ctx, action, resourceType, nil)
	}
	for _, id := range resourceIDs {
		id := id
		ok, err := s.IsAuthorized(ctx, action, resourceType, &id)
		if err != nil || !ok {
			return false, err
		}
	}
	return true, nil
}

// IsAuthorizedForOwnUser is the own-resource shortcut: true iff the
// caller's identity equals userID, independent of any permission.
func (s *Service) IsAuthorizedForOwnUser(ctx context.Context, userID int64) bool {
	caller, ok := internal.CallerFromContext(ctx)
	if !ok {
		return false
	}
	return caller.UserID == userID
}

// reachablePermissions loads the caller's account-scoped permission set,
// memoized per request via the context cache so repeated checks within one
// request hit the store once.
func (s *Service) reachablePermissions(ctx context.Context, accountID, userID int64) ([]permission.Permission, error) {
	cache := cacheFromContext(ctx)
	if cache == nil {
		return s.store.FindPermissionsForUser(ctx, accountID, userID)
	}

	cache.mu.Lock()
	defer cache.mu.Unlock()
	if cache.loaded {
		return cache.perms, nil
	}
	perms, err := s.store.FindPermissionsForUser(ctx, accountID, userID)
	if err != nil {
		return nil, err
	}
	cache.perms = perms
	cache.loaded = true
	return perms, nil
}
