package handlers

import (
	"errors"
	"fmt"

	"revisionaid/internal/middleware"
	contextutils "revisionaid/internal/utils"

	"github.com/gin-gonic/gin"
)

// HandleAppError sends the structured error response for err. The error is
// also attached to the gin context so the tracing middleware can record it.
func HandleAppError(c *gin.Context, err error) {
	_ = c.Error(err)

	var appErr *contextutils.AppError
	if !errors.As(err, &appErr) {
		appErr = contextutils.NewAppErrorWithCause(
			contextutils.ErrorCodeInternalError,
			contextutils.SeverityError,
			"Internal server error",
			err.Error(),
			err,
		)
	}
	c.JSON(middleware.StatusForCode(appErr.Code), appErr.ToJSON())
}

// HandleValidationError handles request binding failures consistently
func HandleValidationError(c *gin.Context, err error) {
	HandleAppError(c, contextutils.NewAppErrorWithCause(
		contextutils.ErrorCodeInvalidInput,
		contextutils.SeverityWarn,
		"Invalid request body",
		fmt.Sprintf("%v", err),
		err,
	))
}
