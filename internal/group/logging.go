package group

import (
	"context"
	"log/slog"
	"time"

	"github.com/aegis-identity/aegis/internal/core/assignment"
	groupdm "github.com/aegis-identity/aegis/internal/core/datamodel/group"
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
		l.logger.Error("group operation failed", fields...)
		return
	}
	l.logger.Info("group operation completed", fields...)
}

func (l *LoggingService) CreateGroup(ctx context.Context, dto CreateGroupDTO) (*groupdm.Group, error) {
	start := time.Now()
	g, err := l.next.CreateGroup(ctx, dto)
	l.observe("CreateGroup", start, err, "account_id", dto.AccountID)
	return g, err
}

func (l *LoggingService) UpdateGroup(ctx context.Context, groupID int64, dto UpdateGroupDTO) (assignment.Result, error) {
	start := time.Now()
	res, err := l.next.UpdateGroup(ctx, groupID, dto)
	l.observe("UpdateGroup", start, err, "group_id", groupID, "status", res.Status)
	return res, err
}

func (l *LoggingService) DeleteGroup(ctx context.Context, groupID int64) (assignment.Result, error) {
	start := time.Now()
	res, err := l.next.DeleteGroup(ctx, groupID)
	l.observe("DeleteGroup", start, err, "group_id", groupID, "status", res.Status)
	return res, err
}

func (l *LoggingService) GetGroup(ctx context.Context, groupID int64) (*GroupDetail, error) {
	start := time.Now()
	g, err := l.next.GetGroup(ctx, groupID)
	l.observe("GetGroup", start, err, "group_id", groupID)
	return g, err
}

func (l *LoggingService) ListGroups(ctx context.Context, accountID int64, spec query.Spec) ([]groupdm.Group, error) {
	start := time.Now()
	groups, err := l.next.ListGroups(ctx, accountID, spec)
	l.observe("ListGroups", start, err, "account_id", accountID, "count", len(groups))
	return groups, err
}

func (l *LoggingService) AddUsersToGroup(ctx context.Context, groupID int64, userIDs []int64) (assignment.Result, error) {
	start := time.Now()
	res, err := l.next.AddUsersToGroup(ctx, groupID, userIDs)
	l.observe("AddUsersToGroup", start, err,
		"group_id", groupID, "requested", len(userIDs), "status", res.Status, "modified", res.ModifiedCount)
	return res, err
}

func (l *LoggingService) RemoveUsersFromGroup(ctx context.Context, groupID int64, userIDs []int64) (assignment.Result, error) {
	start := time.Now()
	res, err := l.next.RemoveUsersFromGroup(ctx, groupID, userIDs)
	l.observe("RemoveUsersFromGroup", start, err,
		"group_id", groupID, "requested", len(userIDs), "status", res.Status, "modified", res.ModifiedCount)
	return res, err
}

func (l *LoggingService) AssignRolesToGroup(ctx context.Context, groupID int64, roleIDs []int64) (assignment.Result, error) {
	start := time.Now()
	res, err := l.next.AssignRolesToGroup(ctx, groupID, roleIDs)
	l.observe("AssignRolesToGroup", start, err,
		"group_id", groupID, "requested", len(roleIDs), "status", res.Status, "modified", res.ModifiedCount)
	return res, err
}

func (l *LoggingService) RemoveRolesFromGroup(ctx context.Context, groupID int64, roleIDs []int64) (assignment.Result, error) {
	start := time.Now()
	res, err := l.next.RemoveRolesFromGroup(ctx, groupID, roleIDs)
	l.observe("RemoveRolesFromGroup", start, err,
		"group_id", groupID, "requested", len(roleIDs), "status", res.Status, "modified", res.ModifiedCount)
	return res, err
}
