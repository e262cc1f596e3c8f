package handlers

import (
	"revisionaid/internal/middleware"
	"revisionaid/internal/models"
	contextutils "revisionaid/internal/utils"

	"github.com/gin-gonic/gin"
)

// currentPrincipal returns the principal attached by RequireAuth, writing a
// 401 response when there is none.
func currentPrincipal(c *gin.Context) (*models.Principal, bool) {
	p, ok := middleware.GetPrincipal(c)
	if !ok {
		HandleAppError(c, contextutils.ErrUnauthorized)
		return nil, false
	}
	return p, true
}
