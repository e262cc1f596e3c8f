package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewConfig_LoadsFromYAML(t *testing.T) {
	tempFile := createTempConfigFile(t, `
server:
  port: "9090"
  session_secret: "test-secret"
  jwt_secret: "jwt-secret"
  token_ttl: "48h"
  debug: true
  log_level: "debug"
  cors_origins:
    - "http://test:3000"
    - "http://test:3001"

database:
  driver: "sqlite"
  url: "file:revision.db"
  max_open_conns: 1
  max_idle_conns: 1
  conn_max_lifetime: "10m"

quiz:
  question_bank_path: "bank.yaml"
  seed_on_startup: true
  update_max_retries: 5
  update_initial_interval: "20ms"

open_telemetry:
  endpoint: "test:4317"
  protocol: "http"
  service_name: "test-service"
  enable_tracing: false
  sampling_rate: 0.5

email:
  enabled: true
  notify_parent_on_signup: true
  smtp:
    host: "smtp.test.com"
    port: 465
    from_address: "revision@test.com"

system:
  auth:
    signups_disabled: true
`)
	t.Setenv("REVISION_CONFIG_FILE", tempFile)

	config, err := NewConfig()
	require.NoError(t, err)

	assert.Equal(t, "9090", config.Server.Port)
	assert.Equal(t, "jwt-secret", config.Server.JWTSecret)
	assert.Equal(t, 48*time.Hour, config.Server.TokenTTL)
	assert.True(t, config.Server.Debug)
	assert.Equal(t, []string{"http://test:3000", "http://test:3001"}, config.Server.CORSOrigins)

	assert.Equal(t, DriverSQLite, config.Database.Driver)
	assert.Equal(t, "file:revision.db", config.Database.URL)
	assert.Equal(t, 1, config.Database.MaxOpenConns)
	assert.Equal(t, 10*time.Minute, config.Database.ConnMaxLifetime)

	assert.Equal(t, "bank.yaml", config.Quiz.QuestionBankPath)
	assert.True(t, config.Quiz.SeedOnStartup)
	assert.Equal(t, uint(5), config.Quiz.UpdateMaxRetries)
	assert.Equal(t, 20*time.Millisecond, config.Quiz.UpdateInitialInterval)

	assert.Equal(t, "http", config.OpenTelemetry.Protocol)
	assert.Equal(t, 0.5, config.OpenTelemetry.SamplingRate)

	assert.True(t, config.Email.Enabled)
	assert.True(t, config.Email.NotifyParentOnSignup)
	assert.Equal(t, 465, config.Email.SMTP.Port)

	assert.True(t, config.IsSignupDisabled())
}

func TestNewConfig_DefaultsWhenFieldsMissing(t *testing.T) {
	t.Setenv("REVISION_CONFIG_FILE", createTempConfigFile(t, "server:\n  debug: false\n"))

	config, err := NewConfig()
	require.NoError(t, err)

	assert.Equal(t, DefaultPort, config.Server.Port)
	assert.Equal(t, AuthTokenTTL, config.Server.TokenTTL)
	assert.Equal(t, DriverPostgres, config.Database.Driver)
	assert.Equal(t, 25, config.Database.MaxOpenConns)
	assert.Equal(t, uint(DefaultUpdateMaxRetries), config.Quiz.UpdateMaxRetries)
	assert.Equal(t, DefaultUpdateInitialInterval, config.Quiz.UpdateInitialInterval)
	assert.Equal(t, DefaultServiceName, config.OpenTelemetry.ServiceName)
	assert.Equal(t, 1.0, config.OpenTelemetry.SamplingRate)
	assert.False(t, config.IsSignupDisabled())
}

func TestNewConfig_EnvironmentVariableOverrides(t *testing.T) {
	t.Setenv("REVISION_CONFIG_FILE", createTempConfigFile(t, `
server:
  port: "8080"
database:
  url: "postgres://from-file"
`))
	t.Setenv("SERVER_PORT", "9999")
	t.Setenv("SERVER_TOKEN_TTL", "90m")
	t.Setenv("SERVER_CORS_ORIGINS", "http://a,http://b")
	t.Setenv("DATABASE_URL", "postgres://from-env")
	t.Setenv("QUIZ_SEED_ON_STARTUP", "true")
	t.Setenv("QUIZ_UPDATE_MAX_RETRIES", "7")
	t.Setenv("OPEN_TELEMETRY_SAMPLING_RATE", "0.25")
	t.Setenv("EMAIL_SMTP_PORT", "2525")

	config, err := NewConfig()
	require.NoError(t, err)

	assert.Equal(t, "9999", config.Server.Port)
	assert.Equal(t, 90*time.Minute, config.Server.TokenTTL)
	assert.Equal(t, []string{"http://a", "http://b"}, config.Server.CORSOrigins)
	assert.Equal(t, "postgres://from-env", config.Database.URL)
	assert.True(t, config.Quiz.SeedOnStartup)
	assert.Equal(t, uint(7), config.Quiz.UpdateMaxRetries)
	assert.Equal(t, 0.25, config.OpenTelemetry.SamplingRate)
	assert.Equal(t, 2525, config.Email.SMTP.Port)
}

func TestNewConfig_InvalidEnvironmentValuesAreIgnored(t *testing.T) {
	t.Setenv("REVISION_CONFIG_FILE", createTempConfigFile(t, `
database:
  max_open_conns: 12
server:
  token_ttl: "1h"
`))
	t.Setenv("DATABASE_MAX_OPEN_CONNS", "many")
	t.Setenv("SERVER_TOKEN_TTL", "soon")

	config, err := NewConfig()
	require.NoError(t, err)

	assert.Equal(t, 12, config.Database.MaxOpenConns)
	assert.Equal(t, time.Hour, config.Server.TokenTTL)
}

func TestNewConfig_ConfigFileNotFound(t *testing.T) {
	t.Setenv("REVISION_CONFIG_FILE", filepath.Join(t.TempDir(), "missing.yaml"))

	_, err := NewConfig()
	assert.Error(t, err)
}

func TestNewConfig_SystemPointerOverride(t *testing.T) {
	t.Setenv("REVISION_CONFIG_FILE", createTempConfigFile(t, `
system:
  auth:
    signups_disabled: false
`))
	t.Setenv("SYSTEM_AUTH_SIGNUPS_DISABLED", "true")

	config, err := NewConfig()
	require.NoError(t, err)
	assert.True(t, config.IsSignupDisabled())
}

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(path, []byte("REVISION_DOTENV_MARKER=loaded\n"), 0o600))
	t.Setenv("REVISION_DOTENV_MARKER", "")
	require.NoError(t, os.Unsetenv("REVISION_DOTENV_MARKER"))

	require.NoError(t, loadDotEnv(path))
	assert.Equal(t, "loaded", os.Getenv("REVISION_DOTENV_MARKER"))

	assert.NoError(t, loadDotEnv(filepath.Join(dir, "absent.env")))
}

func TestConfig_Validate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			Server:   ServerConfig{SessionSecret: "s", JWTSecret: "j"},
			Database: DatabaseConfig{Driver: DriverSQLite, URL: "file:revision.db"},
		}
	}
	require.NoError(t, valid().Validate())

	c := valid()
	c.Server.SessionSecret = ""
	assert.Error(t, c.Validate())

	c = valid()
	c.Server.JWTSecret = ""
	assert.Error(t, c.Validate())

	c = valid()
	c.Database.Driver = "mysql"
	assert.Error(t, c.Validate())

	c = valid()
	c.Database.URL = ""
	assert.Error(t, c.Validate())
}

func createTempConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}
