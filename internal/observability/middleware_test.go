package observability

import (
	"net/http"
	"net/http/httptest"
	"testing"

	contextutils "revisionaid/internal/utils"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func setupRecordingTracer(t *testing.T) *tracetest.SpanRecorder {
	t.Helper()
	recorder := tracetest.NewSpanRecorder()
	previous := otel.GetTracerProvider()
	otel.SetTracerProvider(sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder)))
	t.Cleanup(func() { otel.SetTracerProvider(previous) })
	return recorder
}

func newTracedRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(GinMiddleware("test-service"), ErrorSpanMiddleware())
	return router
}

func attributeMap(attrs []attribute.KeyValue) map[attribute.Key]attribute.Value {
	m := make(map[attribute.Key]attribute.Value, len(attrs))
	for _, kv := range attrs {
		m[kv.Key] = kv.Value
	}
	return m
}

func TestGinMiddleware_SuccessfulRequestIsNotMarkedAsError(t *testing.T) {
	recorder := setupRecordingTracer(t)
	router := newTracedRouter()
	router.GET("/v1/topics", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/v1/topics", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	spans := recorder.Ended()
	require.Len(t, spans, 1)
	assert.NotEqual(t, codes.Error, spans[0].Status().Code)
}

func TestErrorSpanMiddleware_RecordsAppError(t *testing.T) {
	recorder := setupRecordingTracer(t)
	router := newTracedRouter()
	router.POST("/v1/quiz/answer", func(c *gin.Context) {
		_ = c.Error(contextutils.ErrPartialUpdate)
		c.JSON(http.StatusInternalServerError, contextutils.ErrPartialUpdate.ToJSON())
	})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/v1/quiz/answer", nil))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	spans := recorder.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, codes.Error, spans[0].Status().Code)

	attrs := attributeMap(spans[0].Attributes())
	assert.Equal(t, "PARTIAL_UPDATE", attrs["error.code"].AsString())
	assert.True(t, attrs["error.retryable"].AsBool())
	assert.Equal(t, "error", attrs["error.severity"].AsString())
}

func TestErrorSpanMiddleware_ClientErrorWithoutAppError(t *testing.T) {
	recorder := setupRecordingTracer(t)
	router := newTracedRouter()
	router.GET("/v1/quiz/question", func(c *gin.Context) {
		c.Status(http.StatusForbidden)
	})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/v1/quiz/question", nil))

	spans := recorder.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, "client error", spans[0].Status().Description)
	assert.Equal(t, "warn", attributeMap(spans[0].Attributes())["error.severity"].AsString())
}
