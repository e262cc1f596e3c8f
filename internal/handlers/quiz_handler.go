package handlers

import (
	"net/http"

	"revisionaid/internal/config"
	"revisionaid/internal/observability"
	"revisionaid/internal/services"
	contextutils "revisionaid/internal/utils"

	"github.com/gin-gonic/gin"
)

// QuizHandler serves quiz questions and takes answers
type QuizHandler struct {
	quizService services.QuizServiceInterface
	config      *config.Config
	logger      *observability.Logger
}

// NewQuizHandler creates a new QuizHandler instance
func NewQuizHandler(quizService services.QuizServiceInterface, cfg *config.Config, logger *observability.Logger) *QuizHandler {
	return &QuizHandler{
		quizService: quizService,
		config:      cfg,
		logger:      logger,
	}
}

// GetQuestion returns the next question for the signed-in student.
func (h *QuizHandler) GetQuestion(c *gin.Context) {
	ctx, span := observability.TraceHandlerFunction(c.Request.Context(), "get_question")
	defer observability.FinishSpan(span, nil)

	principal, ok := currentPrincipal(c)
	if !ok {
		return
	}
	span.SetAttributes(observability.AttributeUserEmail(principal.Email))

	view, err := h.quizService.GetNextQuestion(ctx, principal.Email)
	if err != nil {
		h.logger.Error(ctx, "Failed to get next question", err, map[string]interface{}{"user_email": principal.Email})
		HandleAppError(c, err)
		return
	}

	span.SetAttributes(observability.AttributeQuestionID(view.QuestionID))
	c.JSON(http.StatusOK, view)
}

// SubmitAnswer records an answer and reports whether it was right.
func (h *QuizHandler) SubmitAnswer(c *gin.Context) {
	ctx, span := observability.TraceHandlerFunction(c.Request.Context(), "submit_answer")
	defer observability.FinishSpan(span, nil)

	principal, ok := currentPrincipal(c)
	if !ok {
		return
	}

	var req AnswerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		HandleValidationError(c, err)
		return
	}
	span.SetAttributes(
		observability.AttributeUserEmail(principal.Email),
		observability.AttributeQuestionID(req.QuestionID),
	)

	result, err := h.quizService.SubmitAnswer(ctx, principal.Email, req.QuestionID, req.Answer)
	if err != nil {
		if contextutils.IsError(err, contextutils.ErrQuestionNotFound) {
			HandleAppError(c, contextutils.WrapErrorf(contextutils.ErrInvalidInput, "Question %d does not exist.", req.QuestionID))
			return
		}
		h.logger.Error(ctx, "Failed to record answer", err, map[string]interface{}{
			"user_email":  principal.Email,
			"question_id": req.QuestionID,
			"retryable":   contextutils.IsRetryable(err),
		})
		HandleAppError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}
