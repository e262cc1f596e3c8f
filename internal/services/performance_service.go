package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"revisionaid/internal/config"
	"revisionaid/internal/models"
	"revisionaid/internal/observability"
	"revisionaid/internal/store"
	contextutils "revisionaid/internal/utils"

	"github.com/cenkalti/backoff/v5"
	"golang.org/x/sync/errgroup"
)

// PerformanceServiceInterface records answers against a user's performance rows.
type PerformanceServiceInterface interface {
	RecordAnswer(ctx context.Context, userEmail string, questionID int, topicID string, classification models.AnswerClassification) error
}

// PerformanceService updates the question row and the topic row for each answer.
type PerformanceService struct {
	store           store.PerformanceStore
	logger          *observability.Logger
	metrics         *observability.QuizMetrics
	maxRetries      uint
	initialInterval time.Duration

	// pending tracks background retries of half-applied answers.
	pending sync.WaitGroup
}

var _ PerformanceServiceInterface = (*PerformanceService)(nil)

// NewPerformanceServiceWithLogger creates a PerformanceService
func NewPerformanceServiceWithLogger(s store.PerformanceStore, cfg *config.Config, logger *observability.Logger, metrics *observability.QuizMetrics) *PerformanceService {
	maxRetries := uint(config.DefaultUpdateMaxRetries)
	initialInterval := config.DefaultUpdateInitialInterval
	if cfg != nil {
		if cfg.Quiz.UpdateMaxRetries > 0 {
			maxRetries = cfg.Quiz.UpdateMaxRetries
		}
		if cfg.Quiz.UpdateInitialInterval > 0 {
			initialInterval = cfg.Quiz.UpdateInitialInterval
		}
	}
	return &PerformanceService{
		store:           s,
		logger:          logger,
		metrics:         metrics,
		maxRetries:      maxRetries,
		initialInterval: initialInterval,
	}
}

type rowUpdate struct {
	key    models.PerformanceKey
	label  string
	result models.Counters
	err    error
}

// RecordAnswer applies one answer to the question row and the topic row.
// The rows are updated independently and in parallel; each update is a single
// locked read-modify-write in the store.
//
// If exactly one row fails with a storage error the answer still counts: the
// failure is logged and the failed row is retried in the background, so a
// client never has to resend an answer that was half applied. A missing row,
// or a failure of both rows, is returned to the caller.
func (s *PerformanceService) RecordAnswer(ctx context.Context, userEmail string, questionID int, topicID string, classification models.AnswerClassification) (err error) {
	classification = classification.Normalize()
	ctx, span := observability.TracePerformanceFunction(ctx, "RecordAnswer",
		observability.AttributeUserEmail(userEmail),
		observability.AttributeQuestionID(questionID),
		observability.AttributeTopicID(topicID),
		observability.AttributeClassification(string(classification)),
	)
	defer observability.FinishSpan(span, &err)

	updates := []*rowUpdate{
		{key: models.QuestionKey(userEmail, questionID), label: fmt.Sprintf("question %d", questionID)},
		{key: models.TopicKey(userEmail, topicID), label: fmt.Sprintf("topic %s", topicID)},
	}

	// Plain group: a failed half must not cancel the other.
	var g errgroup.Group
	for _, u := range updates {
		g.Go(func() error {
			u.result, u.err = s.updateRow(ctx, u.key, classification)
			return u.err
		})
	}
	if g.Wait() == nil {
		s.metrics.AnswerRecorded(ctx, string(classification))
		s.logger.Debug(ctx, "Answer recorded", map[string]interface{}{
			"user_email":        userEmail,
			"question_id":       questionID,
			"topic_id":          topicID,
			"classification":    classification,
			"question_accuracy": updates[0].result.Accuracy,
			"topic_accuracy":    updates[1].result.Accuracy,
		})
		return nil
	}

	question, topic := updates[0], updates[1]
	switch {
	case question.err != nil && topic.err != nil:
		s.logger.Error(ctx, "Failed to record answer", question.err, map[string]interface{}{
			"user_email":  userEmail,
			"question_id": questionID,
			"topic_id":    topicID,
			"topic_error": topic.err.Error(),
		})
		return contextutils.WrapErrorf(question.err, "failed to record answer for question %d", questionID)
	case question.err != nil:
		return s.partialFailure(ctx, userEmail, classification, topic, question)
	default:
		return s.partialFailure(ctx, userEmail, classification, question, topic)
	}
}

func (s *PerformanceService) partialFailure(ctx context.Context, userEmail string, classification models.AnswerClassification, committed, failed *rowUpdate) error {
	fields := map[string]interface{}{
		"user_email":     userEmail,
		"classification": string(classification),
		"committed_row":  committed.label,
		"failed_row":     failed.label,
	}

	if contextutils.IsError(failed.err, contextutils.ErrPerformanceNotFound) {
		s.logger.Error(ctx, "Answer recorded against a missing performance row", failed.err, fields)
		return contextutils.WrapErrorf(failed.err, "%s has no performance row for %s", failed.label, userEmail)
	}

	s.metrics.PartialFailure(ctx, string(failed.key.Kind))
	s.metrics.AnswerRecorded(ctx, string(classification))
	s.logger.Error(ctx, "Answer only partially recorded", failed.err, fields)
	s.retryInBackground(ctx, committed, failed, classification, fields)
	return nil
}

// retryInBackground re-applies a failed row update after the request returns.
// The committed row is never touched again, so the answer is counted once.
func (s *PerformanceService) retryInBackground(ctx context.Context, committed, failed *rowUpdate, classification models.AnswerClassification, fields map[string]interface{}) {
	ctx = context.WithoutCancel(ctx)
	s.pending.Add(1)
	go func() {
		defer s.pending.Done()

		counters, err := s.updateRow(ctx, failed.key, classification)
		if err != nil {
			s.metrics.DeferredUpdate(ctx, string(failed.key.Kind), "failed")
			s.logger.Error(ctx, "Deferred performance update failed",
				contextutils.NewAppErrorWithCause(contextutils.ErrorCodePartialUpdate, contextutils.SeverityError,
					contextutils.ErrPartialUpdate.Message,
					fmt.Sprintf("%s row committed, %s row failed: %v", committed.label, failed.label, err), err),
				fields)
			return
		}
		s.metrics.DeferredUpdate(ctx, string(failed.key.Kind), "applied")
		s.logger.Info(ctx, "Deferred performance update applied", map[string]interface{}{
			"user_email":     failed.key.UserEmail,
			"failed_row":     failed.label,
			"times_answered": counters.TimesAnswered,
		})
	}()
}

// WaitForPending blocks until background row retries finish or ctx is done.
func (s *PerformanceService) WaitForPending(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		s.pending.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// updateRow runs one locked update, retrying transient storage errors.
func (s *PerformanceService) updateRow(ctx context.Context, key models.PerformanceKey, classification models.AnswerClassification) (models.Counters, error) {
	operation := func() (models.Counters, error) {
		counters, err := s.store.UpdatePerformance(ctx, key, func(current models.Counters) models.Counters {
			return ApplyAnswer(current, classification)
		})
		if err != nil && !contextutils.IsRetryable(err) {
			return counters, backoff.Permanent(err)
		}
		return counters, err
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = s.initialInterval

	return backoff.Retry(ctx, operation,
		backoff.WithBackOff(b),
		backoff.WithMaxTries(s.maxRetries),
		backoff.WithNotify(func(err error, next time.Duration) {
			s.logger.Warn(ctx, "Retrying performance update", map[string]interface{}{
				"user_email": key.UserEmail,
				"kind":       string(key.Kind),
				"error":      err.Error(),
				"retry_in":   next.String(),
			})
		}),
	)
}
