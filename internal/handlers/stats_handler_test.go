package handlers

import (
	"net/http"
	"testing"

	"revisionaid/internal/models"
	contextutils "revisionaid/internal/utils"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func sampleStats() *models.Stats {
	return &models.Stats{
		UserEmail: "student@example.com",
		Totals:    models.OutcomeTotals{Correct: 3, Wrong: 1, Unknown: 1},
		Topics: []models.TopicAccuracy{
			{TopicID: "1.1.1", TopicName: "Architecture of the CPU", Accuracy: 75},
			{TopicID: "1.1.2", TopicName: "CPU performance", Accuracy: 0},
		},
	}
}

func TestGetStats_ParentSeesLinkedStudent(t *testing.T) {
	ts := newTestServer(t)
	parent := models.Principal{Email: "parent@example.com", IsParent: true}
	ts.users.On("ResolveStudent", mock.Anything, parent).
		Return(&models.User{Email: "student@example.com", ParentEmail: "parent@example.com"}, nil)
	ts.stats.On("GetStats", mock.Anything, "student@example.com").Return(sampleStats(), nil)

	w := ts.do(t, http.MethodGet, "/v1/stats", nil, authHeader(ts.bearer(t, parent)))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.JSONEq(t, `{
		"user_email": "student@example.com",
		"totals": {"correct": 3, "wrong": 1, "unknown": 1},
		"topics": [
			{"topic_id": "1.1.1", "topic_name": "Architecture of the CPU", "accuracy": 75},
			{"topic_id": "1.1.2", "topic_name": "CPU performance", "accuracy": 0}
		]
	}`, w.Body.String())
}

func TestGetStats_StoreFailure(t *testing.T) {
	ts := newTestServer(t)
	ts.users.On("ResolveStudent", mock.Anything, student).Return(&models.User{Email: "student@example.com"}, nil)
	ts.stats.On("GetStats", mock.Anything, "student@example.com").
		Return(nil, contextutils.WrapError(contextutils.ErrDatabaseQuery, "failed to total performance"))

	w := ts.do(t, http.MethodGet, "/v1/stats", nil, authHeader(ts.bearer(t, student)))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "DATABASE_QUERY_ERROR", decode(t, w)["code"])
}

func TestGetStats_UnknownAccount(t *testing.T) {
	ts := newTestServer(t)
	ts.users.On("ResolveStudent", mock.Anything, student).Return(nil, contextutils.ErrRecordNotFound)

	w := ts.do(t, http.MethodGet, "/v1/stats", nil, authHeader(ts.bearer(t, student)))
	assert.Equal(t, http.StatusNotFound, w.Code)
}
