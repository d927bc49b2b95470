// Package contextkeys centralizes the context.Context keys shared across
// the HTTP server, so every package that reads or writes request-scoped
// state (request id, structured logger) agrees on the same key type and
// spelling.
package contextkeys

import "context"

// Key is the type for context keys to prevent collisions with keys defined
// by other packages or the standard library.
type Key string

const (
	// RequestIDKey holds the request's id: the incoming X-Request-Id header
	// value, or a generated one when the client didn't supply it.
	// Set by: pkg/api request-id middleware. Used by: structured logging.
	// Type: string
	RequestIDKey Key = "request_id"

	// UserIDKey holds the authenticated principal's user id, once resolved.
	// Type: string
	UserIDKey Key = "user_id"

	// LoggerKey holds a *observability.Logger already carrying the
	// request's id (and user id, once known) via WithField, so handlers
	// log with request context without threading a logger through every
	// call signature.
	// Type: *observability.Logger
	LoggerKey Key = "logger"
)

// WithRequestID attaches the request id to ctx.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, RequestIDKey, requestID)
}

// WithUserID attaches the authenticated user id to ctx.
func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, UserIDKey, userID)
}

// WithLogger attaches a request-scoped logger to ctx.
func WithLogger(ctx context.Context, logger interface{}) context.Context {
	return context.WithValue(ctx, LoggerKey, logger)
}

// GetRequestID retrieves the request id from ctx, or "" if absent.
func GetRequestID(ctx context.Context) string {
	requestID, _ := ctx.Value(RequestIDKey).(string)
	return requestID
}

// GetUserID retrieves the authenticated user id from ctx, or "" if absent.
func GetUserID(ctx context.Context) string {
	userID, _ := ctx.Value(UserIDKey).(string)
	return userID
}
