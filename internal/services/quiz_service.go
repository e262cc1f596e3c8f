package services

import (
	"context"

	"revisionaid/internal/models"
	"revisionaid/internal/observability"
	"revisionaid/internal/store"
	contextutils "revisionaid/internal/utils"

	"go.opentelemetry.io/otel/attribute"
)

// QuizServiceInterface serves questions and takes answers for a student.
type QuizServiceInterface interface {
	GetNextQuestion(ctx context.Context, userEmail string) (*models.QuestionView, error)
	SubmitAnswer(ctx context.Context, userEmail string, questionID int, answer string) (*models.AnswerResult, error)
}

// QuizService ties the selector and the performance updater to the catalogue.
type QuizService struct {
	store       store.Store
	selector    SelectorServiceInterface
	performance PerformanceServiceInterface
	logger      *observability.Logger
}

var _ QuizServiceInterface = (*QuizService)(nil)

// NewQuizServiceWithLogger creates a QuizService
func NewQuizServiceWithLogger(s store.Store, selector SelectorServiceInterface, performance PerformanceServiceInterface, logger *observability.Logger) *QuizService {
	return &QuizService{
		store:       s,
		selector:    selector,
		performance: performance,
		logger:      logger,
	}
}

// GetNextQuestion selects a question and returns it with the topic name and
// the user's record on that question. The correct answer is never included.
func (s *QuizService) GetNextQuestion(ctx context.Context, userEmail string) (result0 *models.QuestionView, err error) {
	ctx, span := observability.TraceQuizFunction(ctx, "GetNextQuestion",
		observability.AttributeUserEmail(userEmail),
	)
	defer observability.FinishSpan(span, &err)

	questionID, err := s.selector.NextQuestion(ctx, userEmail)
	if err != nil {
		return nil, contextutils.WrapError(err, "failed to select question")
	}

	question, err := s.store.GetQuestion(ctx, questionID)
	if err != nil {
		return nil, contextutils.WrapErrorf(err, "failed to load question %d", questionID)
	}

	topic, err := s.store.GetTopic(ctx, question.TopicID)
	if err != nil {
		return nil, contextutils.WrapErrorf(err, "failed to load topic %s", question.TopicID)
	}

	counters, err := s.store.ReadPerformance(ctx, models.QuestionKey(userEmail, questionID))
	if err != nil {
		return nil, contextutils.WrapErrorf(err, "failed to read performance for question %d", questionID)
	}

	span.SetAttributes(observability.AttributeQuestionID(questionID), observability.AttributeTopicID(topic.ID))

	return &models.QuestionView{
		QuestionID:    question.ID,
		Question:      question.Text,
		Answers:       question.Answers,
		TopicID:       topic.ID,
		TopicName:     topic.Name,
		Accuracy:      counters.Accuracy,
		TimesAnswered: counters.TimesAnswered,
	}, nil
}

// SubmitAnswer classifies answer against the stored question and records it.
func (s *QuizService) SubmitAnswer(ctx context.Context, userEmail string, questionID int, answer string) (result0 *models.AnswerResult, err error) {
	ctx, span := observability.TraceQuizFunction(ctx, "SubmitAnswer",
		observability.AttributeUserEmail(userEmail),
		observability.AttributeQuestionID(questionID),
	)
	defer observability.FinishSpan(span, &err)

	question, err := s.store.GetQuestion(ctx, questionID)
	if err != nil {
		return nil, err
	}

	classification := ClassifyAnswer(answer, question.CorrectAnswer)
	span.SetAttributes(
		observability.AttributeClassification(string(classification)),
		attribute.Bool("answer.listed", question.HasAnswer(answer)),
	)

	if err := s.performance.RecordAnswer(ctx, userEmail, question.ID, question.TopicID, classification); err != nil {
		return nil, err
	}

	s.logger.Info(ctx, "Answer submitted", map[string]interface{}{
		"user_email":     userEmail,
		"question_id":    questionID,
		"topic_id":       question.TopicID,
		"classification": string(classification),
	})

	return &models.AnswerResult{
		IsCorrect:     answer == question.CorrectAnswer,
		CorrectAnswer: question.CorrectAnswer,
	}, nil
}
