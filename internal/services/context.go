package services

import (
	"context"

	"github.com/google/uuid"
)

type contextKey string

const (
	channelIDKey  contextKey = "channel_id"
	technologyKey contextKey = "technology"
	requestIDKey  contextKey = "request_id"
)

// WithChannelID annotates context with the catalog channel identifier.
func WithChannelID(ctx context.Context, id int64) context.Context {
	return context.WithValue(ctx, channelIDKey, id)
}

// ChannelIDFromContext extracts the channel identifier if present.
func ChannelIDFromContext(ctx context.Context) (int64, bool) {
	v := ctx.Value(channelIDKey)
	if v == nil {
		return 0, false
	}
	switch val := v.(type) {
	case int64:
		return val, true
	case int:
		return int64(val), true
	default:
		return 0, false
	}
}

// WithTechnology annotates context with the delivery technology name.
func WithTechnology(ctx context.Context, technology string) context.Context {
	if technology == "" {
		return ctx
	}
	return context.WithValue(ctx, technologyKey, technology)
}

// TechnologyFromContext returns the technology name if present.
func TechnologyFromContext(ctx context.Context) (string, bool) {
	if str, ok := ctx.Value(technologyKey).(string); ok && str != "" {
		return str, true
	}
	return "", false
}

// WithRequestID annotates context with a correlation identifier.
func WithRequestID(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, requestIDKey, id)
}

// EnsureRequestID returns ctx unchanged when it already carries a correlation
// identifier, otherwise it stamps a fresh random one.
func EnsureRequestID(ctx context.Context) context.Context {
	if _, ok := RequestIDFromContext(ctx); ok {
		return ctx
	}
	return WithRequestID(ctx, uuid.NewString())
}

// RequestIDFromContext extracts the correlation identifier if present.
func RequestIDFromContext(ctx context.Context) (string, bool) {
	if v, ok := ctx.Value(requestIDKey).(string); ok && v != "" {
		return v, true
	}
	return "", false
}
