package observability

import (
	"errors"

	contextutils "revisionaid/internal/utils"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// FinishSpan ends a span and records any error pointed to by errPtr.
// Use with a named error return: `defer observability.FinishSpan(span, &err)`
//
// AppErrors are tagged with their code and retryability. Client mistakes
// (warn severity, such as a failed validation) are recorded as events
// without marking the span as failed.
func FinishSpan(span trace.Span, errPtr *error) {
	if span == nil {
		return
	}
	defer span.End()

	if errPtr == nil || *errPtr == nil {
		return
	}
	err := *errPtr

	var appErr *contextutils.AppError
	if !errors.As(err, &appErr) {
		span.RecordError(err, trace.WithStackTrace(true))
		span.SetStatus(codes.Error, err.Error())
		return
	}

	span.SetAttributes(
		attribute.String("error.code", string(appErr.Code)),
		attribute.Bool("error.retryable", contextutils.IsRetryable(err)),
	)
	if appErr.Severity == contextutils.SeverityWarn {
		span.RecordError(err)
		return
	}
	span.RecordError(err, trace.WithStackTrace(true))
	span.SetStatus(codes.Error, err.Error())
}
