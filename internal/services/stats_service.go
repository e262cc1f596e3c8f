package services

import (
	"context"

	"revisionaid/internal/models"
	"revisionaid/internal/observability"
	"revisionaid/internal/store"
	contextutils "revisionaid/internal/utils"

	"go.opentelemetry.io/otel/attribute"
)

// StatsServiceInterface builds the stats page for a student.
type StatsServiceInterface interface {
	GetStats(ctx context.Context, studentEmail string) (*models.Stats, error)
}

// StatsService aggregates topic performance into totals and accuracies.
type StatsService struct {
	store  store.PerformanceStore
	logger *observability.Logger
}

var _ StatsServiceInterface = (*StatsService)(nil)

// NewStatsServiceWithLogger creates a StatsService
func NewStatsServiceWithLogger(s store.PerformanceStore, logger *observability.Logger) *StatsService {
	return &StatsService{store: s, logger: logger}
}

// GetStats returns outcome totals and per-topic accuracies ordered by topic ID.
func (s *StatsService) GetStats(ctx context.Context, studentEmail string) (result0 *models.Stats, err error) {
	ctx, span := observability.TraceStatsFunction(ctx, "GetStats",
		observability.AttributeUserEmail(studentEmail),
	)
	defer observability.FinishSpan(span, &err)

	totals, err := s.store.PerformanceTotals(ctx, studentEmail)
	if err != nil {
		return nil, contextutils.WrapError(err, "failed to total performance")
	}

	topics, err := s.store.TopicAccuracies(ctx, studentEmail)
	if err != nil {
		return nil, contextutils.WrapError(err, "failed to read topic accuracies")
	}
	if topics == nil {
		topics = []models.TopicAccuracy{}
	}

	span.SetAttributes(
		attribute.Int("stats.topics", len(topics)),
		attribute.Int("stats.answered", totals.Correct+totals.Wrong+totals.Unknown),
	)

	return &models.Stats{
		UserEmail: studentEmail,
		Totals:    totals,
		Topics:    topics,
	}, nil
}
