package requestid

import (
	"context"
	"net/http"

	"github.com/google/uuid"
)

type contextKey string

const (
	RequestIDKey contextKey = "request_id"
	Header                  = "X-Request-Id"
)

func Generate() string {
	return uuid.New().String()
}

func ToContext(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, RequestIDKey, requestID)
}

// FromContext returns an empty string when the context carries no request id.
func FromContext(ctx context.Context) string {
	if requestID, ok := ctx.Value(RequestIDKey).(string); ok {
		return requestID
	}
	return ""
}

// FromContextPtr is FromContext for optional reply fields.
func FromContextPtr(ctx context.Context) *string {
	if requestID, ok := ctx.Value(RequestIDKey).(string); ok {
		return &requestID
	}
	return nil
}

func FromRequest(r *http.Request) string {
	return FromContext(r.Context())
}
