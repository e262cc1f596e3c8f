package handlers

import (
	"context"
	"net/http"
	"time"

	"revisionaid/internal/models"
	"revisionaid/internal/observability"
	"revisionaid/internal/version"

	"github.com/gin-gonic/gin"
)

// TopicLister lists the catalogue's topics.
type TopicLister interface {
	ListTopics(ctx context.Context) ([]models.Topic, error)
}

// Pinger reports whether the database is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

const healthCheckTimeout = 2 * time.Second

// SystemHandler serves the catalogue listing, version and health endpoints
type SystemHandler struct {
	topics      TopicLister
	db          Pinger
	serviceName string
	logger      *observability.Logger
}

// NewSystemHandler creates a new SystemHandler instance
func NewSystemHandler(topics TopicLister, db Pinger, serviceName string, logger *observability.Logger) *SystemHandler {
	return &SystemHandler{topics: topics, db: db, serviceName: serviceName, logger: logger}
}

// ListTopics returns every topic ordered by ID.
func (h *SystemHandler) ListTopics(c *gin.Context) {
	ctx, span := observability.TraceHandlerFunction(c.Request.Context(), "list_topics")
	defer observability.FinishSpan(span, nil)

	topics, err := h.topics.ListTopics(ctx)
	if err != nil {
		HandleAppError(c, err)
		return
	}
	if topics == nil {
		topics = []models.Topic{}
	}
	c.JSON(http.StatusOK, TopicsResponse{Topics: topics})
}

// Version returns build information.
func (h *SystemHandler) Version(c *gin.Context) {
	c.JSON(http.StatusOK, version.Get(h.serviceName))
}

// Health pings the database.
func (h *SystemHandler) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), healthCheckTimeout)
	defer cancel()

	if err := h.db.Ping(ctx); err != nil {
		h.logger.Warn(ctx, "Health check failed", map[string]interface{}{"error": err.Error()})
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "service": h.serviceName})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok", "service": h.serviceName})
}
