package logger

import "context"

type contextKey string

const logFieldsKey contextKey = "log_fields"

// LogFields contains structured fields automatically added to all logs within a context.
// A relay goroutine carries the report id and backend so every line it logs can be
// correlated with the identifier handed to the client.
type LogFields struct {
	ReportID   *string // Correlation identifier issued to the client
	Backend    *string // "airbrake" or "sentry"
	ProjectKey *string // Airbrake API key of the notice
	WorkerSlot *int    // Supervisor slot of the worker process
	Component  string  // Component name, e.g. "airbrake-proxy.forwarder.airbrake"
}

// WithLogFields enriches context with structured log fields.
// Multiple calls merge fields, with newer non-nil/non-empty values taking precedence.
func WithLogFields(ctx context.Context, fields LogFields) context.Context {
	existing := GetLogFields(ctx)
	merged := mergeFields(existing, fields)
	return context.WithValue(ctx, logFieldsKey, merged)
}

// GetLogFields retrieves log fields from context.
// Returns empty LogFields if none are set.
func GetLogFields(ctx context.Context) LogFields {
	if fields, ok := ctx.Value(logFieldsKey).(LogFields); ok {
		return fields
	}
	return LogFields{}
}

func mergeFields(existing, new LogFields) LogFields {
	result := existing

	if new.ReportID != nil {
		result.ReportID = new.ReportID
	}
	if new.Backend != nil {
		result.Backend = new.Backend
	}
	if new.ProjectKey != nil {
		result.ProjectKey = new.ProjectKey
	}
	if new.WorkerSlot != nil {
		result.WorkerSlot = new.WorkerSlot
	}
	if new.Component != "" {
		result.Component = new.Component
	}

	return result
}

// Ptr is a helper to create a pointer from a value.
func Ptr[T any](v T) *T {
	return &v
}

// Truncate truncates a string to maxLen characters, appending "..." if truncated.
// Used for logging backend response bodies.
func Truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
