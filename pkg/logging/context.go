package logging

import (
	"context"
)

type contextKey string

const (
	RequestIDKey contextKey = "request_id"
	SessionIDKey contextKey = "session_id"
	EmailIDKey   contextKey = "email_id"
)

func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, RequestIDKey, requestID)
}

func WithSessionID(ctx context.Context, sessionID string) context.Context {
	return context.WithValue(ctx, SessionIDKey, sessionID)
}

func WithEmailID(ctx context.Context, emailID uint64) context.Context {
	return context.WithValue(ctx, EmailIDKey, emailID)
}

func GetRequestID(ctx context.Context) string {
	if requestID, ok := ctx.Value(RequestIDKey).(string); ok {
		return requestID
	}
	return ""
}

func GetSessionID(ctx context.Context) string {
	if sessionID, ok := ctx.Value(SessionIDKey).(string); ok {
		return sessionID
	}
	return ""
}

func GetEmailID(ctx context.Context) uint64 {
	if emailID, ok := ctx.Value(EmailIDKey).(uint64); ok {
		return emailID
	}
	return 0
}

// GetLogFields returns the correlation fields carried by ctx as zap
// key/value pairs.
func GetLogFields(ctx context.Context) []interface{} {
	fields := make([]interface{}, 0, 6)

	if requestID := GetRequestID(ctx); requestID != "" {
		fields = append(fields, string(RequestIDKey), requestID)
	}

	if sessionID := GetSessionID(ctx); sessionID != "" {
		fields = append(fields, string(SessionIDKey), sessionID)
	}

	if emailID := GetEmailID(ctx); emailID != 0 {
		fields = append(fields, string(EmailIDKey), emailID)
	}

	return fields
}
