package types

import (
	"context"
)

// ContextKey is a type for the keys of values stored in the context
type ContextKey string

const (
	CtxRequestID     ContextKey = "ctx_request_id"
	CtxUserID        ContextKey = "ctx_user_id"
	CtxCorrelationID ContextKey = "ctx_correlation_id"

	// DefaultUserID is recorded as the actor for changes made by the service itself
	DefaultUserID = "00000000-0000-0000-0000-000000000000"
)

func GetUserID(ctx context.Context) string {
	if userID, ok := ctx.Value(CtxUserID).(string); ok {
		return userID
	}
	return ""
}

func GetRequestID(ctx context.Context) string {
	if requestID, ok := ctx.Value(CtxRequestID).(string); ok {
		return requestID
	}
	return ""
}

func GetCorrelationID(ctx context.Context) string {
	if id, ok := ctx.Value(CtxCorrelationID).(string); ok {
		return id
	}
	return ""
}

// SetCorrelationID carries the transport correlation id into handler code
func SetCorrelationID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, CtxCorrelationID, id)
}
