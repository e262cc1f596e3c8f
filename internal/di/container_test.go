package di

import (
	"context"
	"path/filepath"
	"testing"

	"revisionaid/internal/config"
	"revisionaid/internal/observability"
	"revisionaid/internal/services"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig(t *testing.T) *config.Config {
	return &config.Config{
		IsTest: true,
		Server: config.ServerConfig{SessionSecret: "session", JWTSecret: "jwt"},
		Database: config.DatabaseConfig{
			Driver: config.DriverSQLite,
			URL:    filepath.Join(t.TempDir(), "revision.db"),
		},
		Quiz: config.QuizConfig{
			QuestionBankPath: filepath.Join("..", "..", config.DefaultQuestionBankPath),
			SeedOnStartup:    true,
		},
	}
}

func TestServiceContainer_InitializeSeedsAndServesQuiz(t *testing.T) {
	ctx := context.Background()
	sc := NewServiceContainer(testConfig(t), observability.NewLogger(&config.OpenTelemetryConfig{EnableLogging: false}))
	require.NoError(t, sc.Initialize(ctx))
	t.Cleanup(func() { _ = sc.Shutdown(ctx) })

	n, err := sc.GetStore().CountQuestions(ctx)
	require.NoError(t, err)
	assert.Equal(t, 16, n)

	users, err := sc.GetUserService()
	require.NoError(t, err)
	user, err := users.Signup(ctx, services.SignupRequest{
		UserEmail:      "student@example.com",
		UserName:       "Sam",
		UserPassword:   "Secret!1",
		ParentEmail:    "parent@example.com",
		ParentName:     "Pat",
		ParentPassword: "Parent!1",
	})
	require.NoError(t, err)

	quiz, err := sc.GetQuizService()
	require.NoError(t, err)
	view, err := quiz.GetNextQuestion(ctx, user.Email)
	require.NoError(t, err)
	assert.Len(t, view.Answers, 4)

	_, err = quiz.SubmitAnswer(ctx, user.Email, view.QuestionID, config.IDontKnowAnswer)
	require.NoError(t, err)

	stats, err := sc.GetStatsService()
	require.NoError(t, err)
	s, err := stats.GetStats(ctx, user.Email)
	require.NoError(t, err)
	assert.Equal(t, 1, s.Totals.Unknown)
	assert.Len(t, s.Topics, 8)

	deps, err := sc.RouterDeps()
	require.NoError(t, err)
	assert.NotNil(t, deps.Tokens)
}

func TestServiceContainer_MissingJWTSecret(t *testing.T) {
	cfg := testConfig(t)
	cfg.Server.JWTSecret = ""
	sc := NewServiceContainer(cfg, observability.NewLogger(&config.OpenTelemetryConfig{EnableLogging: false}))
	assert.Error(t, sc.Initialize(context.Background()))
}

func TestServiceContainer_UnknownService(t *testing.T) {
	sc := NewServiceContainer(testConfig(t), observability.NewLogger(&config.OpenTelemetryConfig{EnableLogging: false}))
	_, err := sc.GetService("nope")
	assert.Error(t, err)
}
