package handlers

import (
	"net/http"
	"testing"

	"revisionaid/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestListTopics(t *testing.T) {
	ts := newTestServer(t)
	ts.catalog.topics = []models.Topic{{ID: "1.1.1", Name: "Architecture of the CPU"}}

	w := ts.do(t, http.MethodGet, "/v1/topics", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"topics":[{"topic_id":"1.1.1","topic_name":"Architecture of the CPU"}]}`, w.Body.String())
}

func TestListTopics_Empty(t *testing.T) {
	ts := newTestServer(t)
	w := ts.do(t, http.MethodGet, "/v1/topics", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"topics":[]}`, w.Body.String())
}

func TestHealth(t *testing.T) {
	ts := newTestServer(t)
	w := ts.do(t, http.MethodGet, "/health", nil, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	ts.catalog.pingErr = assert.AnError
	w = ts.do(t, http.MethodGet, "/health", nil, nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestVersion(t *testing.T) {
	ts := newTestServer(t)
	w := ts.do(t, http.MethodGet, "/v1/version", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "revision-aid", decode(t, w)["service"])
}

func TestNoRoute(t *testing.T) {
	ts := newTestServer(t)
	w := ts.do(t, http.MethodGet, "/v1/nothing-here", nil, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "Not found", decode(t, w)["error"])
}
