package handlers

import (
	"net/http"

	"revisionaid/internal/observability"
	"revisionaid/internal/services"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"
)

// StatsHandler serves the stats page for students and their parents
type StatsHandler struct {
	userService  services.UserServiceInterface
	statsService services.StatsServiceInterface
	logger       *observability.Logger
}

// NewStatsHandler creates a new StatsHandler instance
func NewStatsHandler(userService services.UserServiceInterface, statsService services.StatsServiceInterface, logger *observability.Logger) *StatsHandler {
	return &StatsHandler{
		userService:  userService,
		statsService: statsService,
		logger:       logger,
	}
}

// GetStats returns the signed-in student's stats, or the linked student's
// stats for a parent login.
func (h *StatsHandler) GetStats(c *gin.Context) {
	ctx, span := observability.TraceHandlerFunction(c.Request.Context(), "get_stats")
	defer observability.FinishSpan(span, nil)

	principal, ok := currentPrincipal(c)
	if !ok {
		return
	}
	span.SetAttributes(
		observability.AttributeUserEmail(principal.Email),
		attribute.Bool("auth.is_parent", principal.IsParent),
	)

	student, err := h.userService.ResolveStudent(ctx, *principal)
	if err != nil {
		HandleAppError(c, err)
		return
	}

	stats, err := h.statsService.GetStats(ctx, student.Email)
	if err != nil {
		h.logger.Error(ctx, "Failed to build stats", err, map[string]interface{}{"user_email": student.Email})
		HandleAppError(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}
