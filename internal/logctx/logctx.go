// Package logctx enriches slog records with request-scoped session and
// operation attributes carried in the context, so call sites log plain
// messages and still get correlated output.
package logctx

import (
	"context"
	"log/slog"
)

// Handler wraps another slog.Handler and appends context-carried groups to
// every record.
type Handler struct {
	slog.Handler
}

func (h Handler) Handle(ctx context.Context, r slog.Record) error {
	if sd, ok := ctx.Value(sessionDataKey{}).(*SessionData); ok {
		attrs := []any{slog.String("id", sd.SessionID)}
		if sd.Language != "" {
			attrs = append(attrs, slog.String("language", sd.Language))
		}
		r.AddAttrs(slog.Group("sess", attrs...))
	}

	if op, ok := ctx.Value(operationKey{}).(string); ok {
		r.AddAttrs(slog.String("op", op))
	}

	return h.Handler.Handle(ctx, r)
}

type sessionDataKey struct{}

// SessionData identifies the session an operation is acting on.
type SessionData struct {
	SessionID string
	Language  string
}

// WithSessionData attaches session attributes to the context.
func WithSessionData(ctx context.Context, data *SessionData) context.Context {
	return context.WithValue(ctx, sessionDataKey{}, data)
}

type operationKey struct{}

// WithOperation attaches the logical operation name to the context.
func WithOperation(ctx context.Context, name string) context.Context {
	return context.WithValue(ctx, operationKey{}, name)
}
