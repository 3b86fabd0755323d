package logging

import (
	"context"
	"log/slog"

	"tvcore/internal/services"
)

const (
	// FieldComponent is the standardized structured logging key for component names.
	FieldComponent = "component"
	// FieldEventType classifies a log line for filtering (e.g. "tune_failed").
	FieldEventType = "event_type"
	// FieldErrorHint carries the operator's next step for a warning or error.
	FieldErrorHint = "error_hint"
	// FieldImpact is the standardized key for user-facing consequence of a warning.
	FieldImpact = "impact"
	// FieldCorrelationID is the standardized structured logging key for request correlation identifiers.
	FieldCorrelationID = "correlation_id"
	// FieldChannelID is the catalog channel identifier.
	FieldChannelID = "channel_id"
	// FieldTechnology is the delivery technology (terrestrial, cable, satellite, ip_*).
	FieldTechnology = "technology"
	FieldRouteID    = "route_id"
	FieldFrequency  = "frequency"
)

// ContextFields extracts standardized slog attributes from the provided context.
func ContextFields(ctx context.Context) []slog.Attr {
	if ctx == nil {
		return nil
	}
	fields := make([]slog.Attr, 0, 3)
	if id, ok := services.ChannelIDFromContext(ctx); ok {
		fields = append(fields, slog.Int64(FieldChannelID, id))
	}
	if tech, ok := services.TechnologyFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldTechnology, tech))
	}
	if rid, ok := services.RequestIDFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldCorrelationID, rid))
	}
	return fields
}

// WithContext returns a logger augmented with structured fields derived from the supplied context.
func WithContext(ctx context.Context, logger *slog.Logger) *slog.Logger {
	if logger == nil {
		logger = NewNop()
	}
	fields := ContextFields(ctx)
	if len(fields) == 0 {
		return logger
	}
	return logger.With(Args(fields...)...)
}
