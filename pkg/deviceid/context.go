package deviceid

import (
	"context"
	"errors"
)

type contextKey struct{}

// ErrMissing is returned when a call carries no device id.
var ErrMissing = errors.New("device id missing from context")

// Source yields the device id that owns the current call.
type Source interface {
	DeviceID(ctx context.Context) (string, error)
}

// NewContext returns a copy of ctx carrying id.
func NewContext(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, contextKey{}, id)
}

// FromContext extracts the id set by NewContext.
func FromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(contextKey{}).(string)
	return id, ok && id != ""
}

// DeviceID prefers an id carried by ctx and falls back to the resolved installation id.
func (r *Resolver) DeviceID(ctx context.Context) (string, error) {
	if id, ok := FromContext(ctx); ok {
		return id, nil
	}
	return r.ID()
}

// ContextSource reads the id from the request context only, as set by the API's
// device authentication.
type ContextSource struct{}

// DeviceID implements Source.
func (ContextSource) DeviceID(ctx context.Context) (string, error) {
	if id, ok := FromContext(ctx); ok {
		return id, nil
	}
	return "", ErrMissing
}
