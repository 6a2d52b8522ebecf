// Package actorctx carries the authenticated caller and request id on a context.Context
// so code below the HTTP layer (repositories, logging) can see who is acting.
package actorctx

import "context"

type ctxKey string

const (
	keyUserID    ctxKey = "user_id"
	keyRole      ctxKey = "role"
	keyRequestID ctxKey = "request_id"
)

func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, keyUserID, userID)
}

func UserIDFrom(ctx context.Context) (string, bool) {
	v, ok := ctx.Value(keyUserID).(string)

	return v, ok && v != ""
}

func WithRole(ctx context.Context, role string) context.Context {
	return context.WithValue(ctx, keyRole, role)
}

func RoleFrom(ctx context.Context) (string, bool) {
	v, ok := ctx.Value(keyRole).(string)

	return v, ok && v != ""
}

func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, keyRequestID, id)
}

func RequestIDFrom(ctx context.Context) (string, bool) {
	v, ok := ctx.Value(keyRequestID).(string)

	return v, ok && v != ""
}
