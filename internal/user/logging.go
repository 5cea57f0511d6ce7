package user

import (
	"context"
	"log/slog"
	"time"

	userdm "github.com/aegis-identity/aegis/internal/core/datamodel/user"
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
		l.logger.Error("user operation failed", fields...)
		return
	}
	l.logger.Info("user operation completed", fields...)
}

func (l *LoggingService) CreateUser(ctx context.Context, dto CreateUserDTO) (*userdm.User, error) {
	start := time.Now()
	u, err := l.next.CreateUser(ctx, dto)
	l.observe("CreateUser", start, err, "account_id", dto.AccountID, "username", dto.Username)
	return u, err
}

func (l *LoggingService) GetUser(ctx context.Context, accountID, userID int64, hydrate bool) (*UserDetail, error) {
	start := time.Now()
	detail, err := l.next.GetUser(ctx, accountID, userID, hydrate)
	l.observe("GetUser", start, err, "account_id", accountID, "user_id", userID, "hydrate", hydrate)
	return detail, err
}

func (l *LoggingService) ListUsers(ctx context.Context, accountID int64, spec query.Spec) ([]userdm.User, error) {
	start := time.Now()
	users, err := l.next.ListUsers(ctx, accountID, spec)
	l.observe("ListUsers", start, err, "account_id", accountID, "count", len(users))
	return users, err
}
