package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"revisionaid/internal/config"
	"revisionaid/internal/observability"
	contextutils "revisionaid/internal/utils"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorRecoveryMiddleware_Panic(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(ErrorRecoveryMiddleware(observability.NewLogger(&config.OpenTelemetryConfig{EnableLogging: false})))
	router.GET("/boom", func(*gin.Context) { panic("boom") })
	router.GET("/ok", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/boom", nil))
	require.Equal(t, http.StatusInternalServerError, w.Code)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, string(contextutils.ErrorCodeInternalError), body["code"])
	assert.Equal(t, false, body["retryable"])

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ok", nil))
	assert.Equal(t, http.StatusNoContent, w.Code)
}

func TestStatusForError(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{contextutils.ErrValidationFailed, http.StatusBadRequest},
		{contextutils.ErrMissingRequired, http.StatusBadRequest},
		{contextutils.ErrInvalidCredentials, http.StatusUnauthorized},
		{contextutils.ErrForbidden, http.StatusForbidden},
		{contextutils.ErrQuestionNotFound, http.StatusNotFound},
		{contextutils.WrapError(contextutils.ErrRecordExists, "duplicate"), http.StatusConflict},
		{contextutils.ErrNoQuestionsAvailable, http.StatusServiceUnavailable},
		{contextutils.ErrDatabaseTransaction, http.StatusInternalServerError},
		{assert.AnError, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, StatusForError(tt.err), tt.err.Error())
	}
}
