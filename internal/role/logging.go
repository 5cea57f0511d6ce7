package role

import (
	"context"
	"log/slog"
	"time"

	"github.com/aegis-identity/aegis/internal/core/assignment"
	"github.com/aegis-identity/aegis/internal/core/datamodel/role"
	"github.com/aegis-identity/aegis/internal/core/query"
)

// LoggingService delegates to the next service in the chain and observes
// the outcome.
type LoggingService struct {
	next   ServiceAPI
	logger *slog.Logger
}

func NewLoggingService(next ServiceAPI, logger *slog.Logger) *LoggingService {
	return &LoggingService{next: next, logger: logger}
}

func (l *LoggingService) observe(op string, start time.Time, err error, fields ...any) {
	fields = append(fields, "op", op, "duration_ms", time.Since(start).Milliseconds())
	if err != nil {
		fields = append(fields, "error", err)
		l.logger.Error("role operation failed", fields...)
		return
	}
	l.logger.Info("role operation completed", fields...)
}

func (l *LoggingService) CreateRole(ctx context.Context, dto CreateRoleDTO) (*role.Role, error) {
	start := time.Now()
	r, err := l.next.CreateRole(ctx, dto)
	l.observe("CreateRole", start, err, "account_id", dto.AccountID)
	return r, err
}

func (l *LoggingService) UpdateRole(ctx context.Context, roleID int64, dto UpdateRoleDTO) (assignment.Result, error) {
	start := time.Now()
	res, err := l.next.UpdateRole(ctx, roleID, dto)
	l.observe("UpdateRole", start, err, "role_id", roleID, "status", res.Status)
	return res, err
}

func (l *LoggingService) DeleteRole(ctx context.Context, roleID int64) (assignment.Result, error) {
	start := time.Now()
	res, err := l.next.DeleteRole(ctx, roleID)
	l.observe("DeleteRole", start, err, "role_id", roleID, "status", res.Status)
	return res, err
}

func (l *LoggingService) GetRole(ctx context.Context, roleID int64) (*RoleWithPermissions, error) {
	start := time.Now()
	r, err := l.next.GetRole(ctx, roleID)
	l.observe("GetRole", start, err, "role_id", roleID)
	return r, err
}

func (l *LoggingService) ListRoles(ctx context.Context, accountID int64, spec query.Spec) ([]role.Role, error) {
	start := time.Now()
	roles, err := l.next.ListRoles(ctx, accountID, spec)
	l.observe("ListRoles", start, err, "account_id", accountID, "count", len(roles))
	return roles, err
}

func (l *LoggingService) AssignPermissionsToRole(ctx context.Context, roleID int64, permissionIDs []int64) (assignment.Result, error) {
	start := time.Now()
	res, err := l.next.AssignPermissionsToRole(ctx, roleID, permissionIDs)
	l.observe("AssignPermissionsToRole", start, err,
		"role_id", roleID, "requested", len(permissionIDs), "status", res.Status, "modified", res.ModifiedCount)
	return res, err
}

func (l *LoggingService) RemovePermissionsFromRole(ctx context.Context, roleID int64, permissionIDs []int64) (assignment.Result, error) {
	start := time.Now()
	res, err := l.next.RemovePermissionsFromRole(ctx, roleID, permissionIDs)
	l.observe("RemovePermissionsFromRole", start, err,
		"role_id", roleID, "requested", len(permissionIDs), "status", res.Status, "modified", res.ModifiedCount)
	return res, err
}

func (l *LoggingService) AssignRolesToUser(ctx context.Context, accountID, userID int64, roleIDs []int64) (assignment.Result, error) {
	start := time.Now()
	res, err := l.next.AssignRolesToUser(ctx, accountID, userID, roleIDs)
	l.observe("AssignRolesToUser", start, err,
		"account_id", accountID, "user_id", userID, "requested", len(roleIDs), "status", res.Status)
	return res, err
}

func (l *LoggingService) RemoveRolesFromUser(ctx context.Context, accountID, userID int64, roleIDs []int64) (assignment.Result, error) {
	start := time.Now()
	res, err := l.next.RemoveRolesFromUser(ctx, accountID, userID, roleIDs)
	l.observe("RemoveRolesFromUser", start, err,
		"account_id", accountID, "user_id", userID, "requested", len(roleIDs), "status", res.Status)
	return res, err
}
