package shared

import (
	"context"

	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
)

// Context keys for request-scoped data. Keep types unexported to avoid collisions.
type ctxKey string

const (
	ctxKeyRequestID ctxKey = "request-id"
)

// RequestIDHeader is read from incoming requests and echoed on responses
const RequestIDHeader = "X-Request-ID"

func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, ctxKeyRequestID, id)
}

// RequestID returns the id stored by WithRequestID, falling back to the one
// set by chi's RequestID middleware.
func RequestID(ctx context.Context) string {
	if v, _ := ctx.Value(ctxKeyRequestID).(string); v != "" {
		return v
	}
	return chimiddleware.GetReqID(ctx)
}

// NewRequestID generates a fresh request id
func NewRequestID() string {
	return uuid.NewString()
}
