package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"revisionaid/internal/auth"
	"revisionaid/internal/config"
	"revisionaid/internal/models"
	"revisionaid/internal/observability"
	"revisionaid/internal/services"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockUserService struct {
	mock.Mock
}

func (m *MockUserService) Signup(ctx context.Context, req services.SignupRequest) (*models.User, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserService) Authenticate(ctx context.Context, email, password string, isParent bool) (*models.Principal, error) {
	args := m.Called(ctx, email, password, isParent)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Principal), args.Error(1)
}

func (m *MockUserService) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserService) ResolveStudent(ctx context.Context, principal models.Principal) (*models.User, error) {
	args := m.Called(ctx, principal)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

type MockQuizService struct {
	mock.Mock
}

func (m *MockQuizService) GetNextQuestion(ctx context.Context, userEmail string) (*models.QuestionView, error) {
	args := m.Called(ctx, userEmail)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.QuestionView), args.Error(1)
}

func (m *MockQuizService) SubmitAnswer(ctx context.Context, userEmail string, questionID int, answer string) (*models.AnswerResult, error) {
	args := m.Called(ctx, userEmail, questionID, answer)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.AnswerResult), args.Error(1)
}

type MockStatsService struct {
	mock.Mock
}

func (m *MockStatsService) GetStats(ctx context.Context, studentEmail string) (*models.Stats, error) {
	args := m.Called(ctx, studentEmail)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Stats), args.Error(1)
}

type stubCatalog struct {
	topics  []models.Topic
	err     error
	pingErr error
}

func (s *stubCatalog) ListTopics(context.Context) ([]models.Topic, error) { return s.topics, s.err }

func (s *stubCatalog) Ping(context.Context) error { return s.pingErr }

type testServer struct {
	router  *gin.Engine
	users   *MockUserService
	quiz    *MockQuizService
	stats   *MockStatsService
	catalog *stubCatalog
	tokens  *auth.TokenIssuer
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	tokens, err := auth.NewTokenIssuer("handler-test-jwt", time.Hour)
	require.NoError(t, err)

	cfg := &config.Config{
		IsTest: true,
		Server: config.ServerConfig{SessionSecret: "handler-test-session-secret"},
	}
	ts := &testServer{
		users:   &MockUserService{},
		quiz:    &MockQuizService{},
		stats:   &MockStatsService{},
		catalog: &stubCatalog{},
		tokens:  tokens,
	}
	ts.router = NewRouter(cfg, RouterDeps{
		UserService:  ts.users,
		QuizService:  ts.quiz,
		StatsService: ts.stats,
		Topics:       ts.catalog,
		DB:           ts.catalog,
		Tokens:       tokens,
	}, observability.NewLogger(&config.OpenTelemetryConfig{EnableLogging: false}))
	return ts
}

func (ts *testServer) bearer(t *testing.T, p models.Principal) string {
	t.Helper()
	token, err := ts.tokens.Issue(p)
	require.NoError(t, err)
	return "Bearer " + token
}

func (ts *testServer) do(t *testing.T, method, path string, body interface{}, header http.Header) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range header {
		req.Header[k] = v
	}
	w := httptest.NewRecorder()
	ts.router.ServeHTTP(w, req)
	return w
}

func authHeader(value string) http.Header {
	return http.Header{"Authorization": []string{value}}
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	return out
}
