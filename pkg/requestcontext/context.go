// Package requestcontext carries request-scoped values (caller, request id,
// clock) without tying services to net/http. Middleware writes them; the
// scheduler sets only the clock.
package requestcontext

import (
	"context"
	"log/slog"
	"time"

	id "pawhaven/pkg/domain"
)

type key int

const (
	userIDKey key = iota
	requestIDKey
	timeKey
)

// UserID returns the authenticated caller, or the nil id for anonymous and
// background work.
func UserID(ctx context.Context) id.UserID {
	v, _ := ctx.Value(userIDKey).(id.UserID)
	return v
}

func WithUserID(ctx context.Context, userID id.UserID) context.Context {
	return context.WithValue(ctx, userIDKey, userID)
}

func RequestID(ctx context.Context) string {
	v, _ := ctx.Value(requestIDKey).(string)
	return v
}

func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey, requestID)
}

// Now is the instant the request (or sweep tick) started. Without one the
// wall clock is used.
func Now(ctx context.Context) time.Time {
	if t, ok := HasTime(ctx); ok {
		return t
	}
	return time.Now()
}

// HasTime reports whether a clock was pinned on ctx.
func HasTime(ctx context.Context) (time.Time, bool) {
	t, ok := ctx.Value(timeKey).(time.Time)
	return t, ok
}

func WithTime(ctx context.Context, t time.Time) context.Context {
	return context.WithValue(ctx, timeKey, t)
}

// LogAttrs returns the request id and caller as slog attributes, omitting
// whichever is unset.
func LogAttrs(ctx context.Context) []any {
	var attrs []any
	if rid := RequestID(ctx); rid != "" {
		attrs = append(attrs, slog.String("request_id", rid))
	}
	if uid := UserID(ctx); !uid.IsNil() {
		attrs = append(attrs, slog.String("user_id", uid.String()))
	}
	return attrs
}
