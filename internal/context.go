package internal

import (
	"context"
	"time"
)

type ctxKey string

const contextCallerKey ctxKey = "caller"

// Caller identifies the authenticated user behind a request. AccountID is
// the account the user is signed into; nil means no account context, which
// makes every authorization check fail closed.
type Caller struct {
	UserID    int64
	AccountID *int64
	DeviceID  string
}

// Account returns the signed-in account id and whether one is present.
func (c *Caller) Account() (int64, bool) {
	if c == nil || c.AccountID == nil {
		return 0, false
	}
	return *c.AccountID, true
}

func CallerFromContext(ctx context.Context) (*Caller, bool) {
	if ctx == nil {
		return nil, false
	}
	caller, ok := ctx.Value(contextCallerKey).(*Caller)
	return caller, ok && caller != nil
}

func ContextWithCaller(ctx context.Context, caller *Caller) context.Context {
	return context.WithValue(ctx, contextCallerKey, caller)
}

// WithTimeout returns a context with timeout, defaulting to 5 seconds if
// duration is zero or negative.
func WithTimeout(ctx context.Context, duration time.Duration) (context.Context, context.CancelFunc) {
	if duration <= 0 {
		duration = 5 * time.Second
	}
	return context.WithTimeout(ctx, duration)
}
