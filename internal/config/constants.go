package config

import "time"

// Timeout constants
const (
	DefaultHTTPTimeout      = 30 * time.Second
	ServerShutdownTimeout   = 10 * time.Second
	DatabaseConnMaxLifetime = 5 * time.Minute
)

// Auth constants
const (
	// AuthTokenTTL is how long a login stays valid
	AuthTokenTTL = 5 * 24 * time.Hour
	BearerPrefix = "Bearer "
	TokenIssuer  = "revision-aid"
)

// Session configuration constants
const (
	SessionPath     = "/"
	SessionHTTPOnly = true
	SessionMaxAge   = AuthTokenTTL
	SessionName     = "revision-session"
)

// Quiz constants
const (
	// IDontKnowAnswer is the literal sent by the quiz page's "not sure" button
	IDontKnowAnswer = "I don't know"

	DefaultQuestionBankPath      = "data/question_bank.yaml"
	DefaultUpdateMaxRetries      = 3
	DefaultUpdateInitialInterval = 50 * time.Millisecond
)

// Defaults for server and telemetry identity
const (
	DefaultPort        = "3000"
	DefaultServiceName = "revision-aid"
)

// Security configuration constants
const (
	DefaultCSP = "default-src 'self'; style-src 'self' 'unsafe-inline'; script-src 'self'; img-src 'self' data:;"
)
