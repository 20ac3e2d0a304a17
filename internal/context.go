package internal

import (
	"context"
	"time"
)

type ctxKey string

const (
	ContextSessionKey        ctxKey = "sessionID"
	ContextSessionResumedKey ctxKey = "sessionResumed"
)

func SessionIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if sessionID, ok := ctx.Value(ContextSessionKey).(string); ok {
		return sessionID
	}
	return ""
}

func ContextWithSessionID(ctx context.Context, sessionID string) context.Context {
	return context.WithValue(ctx, ContextSessionKey, sessionID)
}

// ContextWithResumedSession marks the session id as one the client presented in a valid cookie.
func ContextWithResumedSession(ctx context.Context) context.Context {
	return context.WithValue(ctx, ContextSessionResumedKey, true)
}

// SessionResumed is false for ids minted on this request.
func SessionResumed(ctx context.Context) bool {
	if ctx == nil {
		return false
	}
	resumed, _ := ctx.Value(ContextSessionResumedKey).(bool)
	return resumed
}

// WithTimeout returns a context with timeout, defaulting to 5 seconds if duration is zero or negative.
func WithTimeout(ctx context.Context, duration time.Duration) (context.Context, context.CancelFunc) {
	if duration <= 0 {
		duration = 5 * time.Second
	}
	return context.WithTimeout(ctx, duration)
}
