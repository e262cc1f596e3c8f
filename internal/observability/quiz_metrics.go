package observability

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// QuizMetrics holds the domain counters emitted by the quiz services.
// A zero QuizMetrics is not usable; build one with NewQuizMetrics.
type QuizMetrics struct {
	answersRecorded metric.Int64Counter
	selectionPaths  metric.Int64Counter
	partialFailures metric.Int64Counter
	deferredUpdates metric.Int64Counter
}

// NewQuizMetrics registers the quiz counters on the global meter provider.
func NewQuizMetrics() (*QuizMetrics, error) {
	return NewQuizMetricsWithMeter(otel.Meter(instrumentationName))
}

// NewQuizMetricsWithMeter registers the quiz counters on meter.
func NewQuizMetricsWithMeter(meter metric.Meter) (*QuizMetrics, error) {
	answers, err := meter.Int64Counter("quiz.answers.recorded",
		metric.WithDescription("Answers recorded, by classification"))
	if err != nil {
		return nil, err
	}
	paths, err := meter.Int64Counter("quiz.selection.path",
		metric.WithDescription("Question selections, by path taken through the selector"))
	if err != nil {
		return nil, err
	}
	partial, err := meter.Int64Counter("quiz.performance.partial_failures",
		metric.WithDescription("Answers where only one performance row was updated"))
	if err != nil {
		return nil, err
	}
	deferred, err := meter.Int64Counter("quiz.performance.deferred_updates",
		metric.WithDescription("Background retries of a failed performance row, by outcome"))
	if err != nil {
		return nil, err
	}
	return &QuizMetrics{
		answersRecorded: answers,
		selectionPaths:  paths,
		partialFailures: partial,
		deferredUpdates: deferred,
	}, nil
}

// AnswerRecorded counts one recorded answer.
func (m *QuizMetrics) AnswerRecorded(ctx context.Context, classification string) {
	if m == nil {
		return
	}
	m.answersRecorded.Add(ctx, 1, metric.WithAttributes(attribute.String("classification", classification)))
}

// SelectionMade counts one selector outcome.
func (m *QuizMetrics) SelectionMade(ctx context.Context, reason string) {
	if m == nil {
		return
	}
	m.selectionPaths.Add(ctx, 1, metric.WithAttributes(attribute.String("reason", reason)))
}

// PartialFailure counts one half-applied answer.
func (m *QuizMetrics) PartialFailure(ctx context.Context, failedRow string) {
	if m == nil {
		return
	}
	m.partialFailures.Add(ctx, 1, metric.WithAttributes(attribute.String("failed_row", failedRow)))
}

// DeferredUpdate counts one background retry of a failed row, by outcome
// ("applied" or "failed").
func (m *QuizMetrics) DeferredUpdate(ctx context.Context, row, outcome string) {
	if m == nil {
		return
	}
	m.deferredUpdates.Add(ctx, 1, metric.WithAttributes(
		attribute.String("row", row),
		attribute.String("outcome", outcome),
	))
}
