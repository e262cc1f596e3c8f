package services

import (
	"context"
	"math/rand/v2"
	"sync"

	"revisionaid/internal/observability"
	"revisionaid/internal/store"

	"go.opentelemetry.io/otel/attribute"
)

// RandomSource supplies uniform integers in [0, n).
type RandomSource interface {
	IntN(n int) int
}

// SelectionReason records which path the selector took.
type SelectionReason string

// Selection paths
const (
	// ReasonBand means a question was drawn from a topic in the chosen band.
	ReasonBand SelectionReason = "band"
	// ReasonBandEmpty means no topic was in the band so a global question was used.
	ReasonBandEmpty SelectionReason = "band_empty"
	// ReasonTopicEmpty means the chosen topic had no questions.
	ReasonTopicEmpty SelectionReason = "topic_empty"
	// ReasonExplore is the one-in-ten draw that always picks a global question.
	ReasonExplore SelectionReason = "explore"
)

// Default bands. A draw of 1-5 targets weak topics, 6-8 middling topics and 9
// strong topics; 10 explores.
var (
	WeakBand   = store.AccuracyBand{Lower: 0, Upper: 50}
	MediumBand = store.AccuracyBand{Lower: 50, Upper: 80}
	StrongBand = store.AccuracyBand{Lower: 80, Upper: 100, UpperInclusive: true}
)

// Selection is the outcome of one selector run. TopicID is set only when the
// question was drawn from that topic; EmptyTopicID names a chosen topic that
// had no questions.
type Selection struct {
	QuestionID   int
	TopicID      string
	EmptyTopicID string
	Reason       SelectionReason
	Draw         int
}

// SelectorServiceInterface picks the next question for a user.
type SelectorServiceInterface interface {
	NextQuestion(ctx context.Context, userEmail string) (int, error)
	Select(ctx context.Context, userEmail string) (*Selection, error)
}

// SelectorService biases question choice toward the user's weaker topics.
type SelectorService struct {
	performance store.PerformanceStore
	catalog     store.CatalogStore
	logger      *observability.Logger
	metrics     *observability.QuizMetrics

	mu  sync.Mutex
	rng RandomSource
}

var _ SelectorServiceInterface = (*SelectorService)(nil)

// NewSelectorServiceWithLogger creates a SelectorService. A nil rng uses the
// package-level math/rand/v2 source.
func NewSelectorServiceWithLogger(performance store.PerformanceStore, catalog store.CatalogStore, rng RandomSource, logger *observability.Logger, metrics *observability.QuizMetrics) *SelectorService {
	if rng == nil {
		rng = globalRand{}
	}
	return &SelectorService{
		performance: performance,
		catalog:     catalog,
		logger:      logger,
		metrics:     metrics,
		rng:         rng,
	}
}

type globalRand struct{}

func (globalRand) IntN(n int) int { return rand.IntN(n) }

func (s *SelectorService) intN(n int) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rng.IntN(n)
}

// bandForDraw maps a draw in [1,10] to a band; ok is false for the explore draw.
func bandForDraw(draw int) (band store.AccuracyBand, ok bool) {
	switch {
	case draw <= 5:
		return WeakBand, true
	case draw <= 8:
		return MediumBand, true
	case draw == 9:
		return StrongBand, true
	default:
		return store.AccuracyBand{}, false
	}
}

// NextQuestion returns the ID of the next question to show userEmail.
func (s *SelectorService) NextQuestion(ctx context.Context, userEmail string) (int, error) {
	sel, err := s.Select(ctx, userEmail)
	if err != nil {
		return 0, err
	}
	return sel.QuestionID, nil
}

// Select runs the selector and reports the path it took. Empty bands and
// empty topics fall back to a uniformly random question; only storage
// errors are returned.
func (s *SelectorService) Select(ctx context.Context, userEmail string) (result0 *Selection, err error) {
	ctx, span := observability.TraceSelectorFunction(ctx, "Select",
		observability.AttributeUserEmail(userEmail),
	)
	defer observability.FinishSpan(span, &err)

	draw := s.intN(10) + 1
	span.SetAttributes(attribute.Int("selector.draw", draw))

	sel, err := s.selectForDraw(ctx, userEmail, draw)
	if err != nil {
		return nil, err
	}

	span.SetAttributes(
		attribute.String("selector.reason", string(sel.Reason)),
		observability.AttributeQuestionID(sel.QuestionID),
	)
	fields := map[string]interface{}{
		"user_email":  userEmail,
		"draw":        draw,
		"reason":      string(sel.Reason),
		"question_id": sel.QuestionID,
	}
	if sel.TopicID != "" {
		span.SetAttributes(observability.AttributeTopicID(sel.TopicID))
		fields["topic_id"] = sel.TopicID
	}
	if sel.EmptyTopicID != "" {
		span.SetAttributes(attribute.String("selector.empty_topic_id", sel.EmptyTopicID))
		fields["empty_topic_id"] = sel.EmptyTopicID
	}
	s.metrics.SelectionMade(ctx, string(sel.Reason))
	s.logger.Debug(ctx, "Question selected", fields)
	return sel, nil
}

func (s *SelectorService) selectForDraw(ctx context.Context, userEmail string, draw int) (*Selection, error) {
	band, ok := bandForDraw(draw)
	if !ok {
		return s.global(ctx, draw, ReasonExplore)
	}

	topics, err := s.performance.TopicsInBand(ctx, userEmail, band)
	if err != nil {
		return nil, err
	}
	if len(topics) == 0 {
		return s.global(ctx, draw, ReasonBandEmpty)
	}

	topicID := topics[s.intN(len(topics))]
	questions, err := s.catalog.QuestionsForTopic(ctx, topicID)
	if err != nil {
		return nil, err
	}
	if len(questions) == 0 {
		sel, err := s.global(ctx, draw, ReasonTopicEmpty)
		if sel != nil {
			sel.EmptyTopicID = topicID
		}
		return sel, err
	}

	return &Selection{
		QuestionID: questions[s.intN(len(questions))],
		TopicID:    topicID,
		Reason:     ReasonBand,
		Draw:       draw,
	}, nil
}

func (s *SelectorService) global(ctx context.Context, draw int, reason SelectionReason) (*Selection, error) {
	id, err := s.catalog.RandomQuestion(ctx)
	if err != nil {
		return nil, err
	}
	return &Selection{QuestionID: id, Reason: reason, Draw: draw}, nil
}
