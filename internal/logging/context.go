package logging

import (
	"context"
	"log/slog"

	"dualsub/internal/services"
)

const (
	// FieldComponent is the standardized structured logging key for component names.
	FieldComponent = "component"
	// FieldRunID identifies one pipeline invocation.
	FieldRunID = "run_id"
	// FieldStage is the standardized structured logging key for pipeline stage names.
	FieldStage = "stage"
	// FieldMedia is the media file a record refers to.
	FieldMedia = "media"
	// FieldEngine names the translation engine.
	FieldEngine = "engine"
	// FieldEventType classifies records for filtering (stage_start, stage_complete, ...).
	FieldEventType = "event_type"
	// FieldErrorHint suggests the next step after a warning or error.
	FieldErrorHint = "error_hint"
	// FieldImpact is the user-facing consequence of a warning.
	FieldImpact = "impact"
	// FieldDecisionType names the kind of decision in decision logs.
	FieldDecisionType = "decision_type"
)

// ContextFields extracts standardized slog attributes from the provided context.
func ContextFields(ctx context.Context) []slog.Attr {
	if ctx == nil {
		return nil
	}
	fields := make([]slog.Attr, 0, 4)
	if id, ok := services.RunIDFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldRunID, id))
	}
	if stage, ok := services.StageFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldStage, stage))
	}
	if media, ok := services.MediaFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldMedia, media))
	}
	if engine, ok := services.EngineFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldEngine, engine))
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
