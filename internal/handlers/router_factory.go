package handlers

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/secure"
	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"

	"revisionaid/internal/config"
	"revisionaid/internal/middleware"
	"revisionaid/internal/observability"
	"revisionaid/internal/services"
)

// RouterDeps are the services the HTTP API is built on.
type RouterDeps struct {
	UserService  services.UserServiceInterface
	QuizService  services.QuizServiceInterface
	StatsService services.StatsServiceInterface
	Topics       TopicLister
	DB           Pinger
	Tokens       TokenIssuer
}

// NewRouter creates the gin engine with all middleware and routes
func NewRouter(cfg *config.Config, deps RouterDeps, logger *observability.Logger) *gin.Engine {
	if !cfg.IsTest {
		gin.SetMode(gin.ReleaseMode)
		if cfg.Server.Debug {
			gin.SetMode(gin.DebugMode)
		}
	}

	router := gin.New()
	router.Use(middleware.ErrorRecoveryMiddleware(logger))
	router.Use(requestLogger(logger))

	serviceName := cfg.OpenTelemetry.ServiceName
	if serviceName == "" {
		serviceName = config.DefaultServiceName
	}
	systemHandler := NewSystemHandler(deps.Topics, deps.DB, serviceName, logger)

	// Health check endpoint (defined before tracing so health checks stay out of traces)
	router.GET("/health", systemHandler.Health)

	router.Use(observability.GinMiddleware(serviceName))
	router.Use(observability.ErrorSpanMiddleware())

	// Disable automatic redirection for trailing slashes, which is better for APIs
	router.RedirectTrailingSlash = false

	if len(cfg.Server.CORSOrigins) > 0 {
		corsConfig := cors.DefaultConfig()
		corsConfig.AllowOrigins = cfg.Server.CORSOrigins
		corsConfig.AllowCredentials = true
		corsConfig.AllowHeaders = []string{"Origin", "Content-Length", "Content-Type", "Authorization", "X-Requested-With"}
		corsConfig.AllowMethods = []string{"GET", "POST", "OPTIONS"}
		router.Use(cors.New(corsConfig))
	}

	store := cookie.NewStore([]byte(cfg.Server.SessionSecret))
	sessionOpts := sessions.Options{
		Path:     config.SessionPath,
		MaxAge:   int(config.SessionMaxAge.Seconds()),
		HttpOnly: config.SessionHTTPOnly,
		Secure:   cfg.Server.SecureCookies,
		SameSite: http.SameSiteLaxMode,
	}
	store.Options(sessionOpts)
	router.Use(sessions.Sessions(config.SessionName, store))

	secureConfig := secure.DefaultConfig()
	secureConfig.SSLRedirect = false
	secureConfig.ContentSecurityPolicy = config.DefaultCSP
	router.Use(secure.New(secureConfig))

	authHandler := NewAuthHandler(deps.UserService, deps.Tokens, cfg, logger)
	quizHandler := NewQuizHandler(deps.QuizService, cfg, logger)
	statsHandler := NewStatsHandler(deps.UserService, deps.StatsService, logger)
	requireAuth := middleware.RequireAuth(deps.Tokens, logger)

	v1 := router.Group("/v1")
	{
		v1.GET("/version", systemHandler.Version)
		v1.GET("/topics", systemHandler.ListTopics)

		auth := v1.Group("/auth")
		{
			auth.POST("/signup", authHandler.Signup)
			auth.POST("/login", authHandler.Login)
			auth.POST("/logout", authHandler.Logout)
			auth.GET("/status", authHandler.Status)
		}

		quiz := v1.Group("/quiz")
		quiz.Use(requireAuth, middleware.RequireStudent())
		{
			quiz.GET("/question", quizHandler.GetQuestion)
			quiz.POST("/answer", quizHandler.SubmitAnswer)
		}

		v1.GET("/stats", requireAuth, statsHandler.GetStats)
	}

	router.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Not found", "code": "RECORD_NOT_FOUND"})
	})

	return router
}

// requestLogger logs every request through the observability logger at a
// level chosen by status code.
func requestLogger(logger *observability.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		statusCode := c.Writer.Status()
		fields := map[string]interface{}{
			"http.method":      c.Request.Method,
			"http.path":        c.Request.URL.Path,
			"http.status_code": statusCode,
			"http.latency_ms":  time.Since(start).Milliseconds(),
			"http.client_ip":   c.ClientIP(),
			"http.user_agent":  c.Request.UserAgent(),
		}
		if len(c.Errors) > 0 {
			fields["http.error"] = c.Errors.String()
		}

		switch {
		case statusCode >= 500:
			logger.Error(c.Request.Context(), "HTTP request failed", nil, fields)
		case statusCode >= 400:
			logger.Warn(c.Request.Context(), "HTTP request warning", fields)
		default:
			logger.Info(c.Request.Context(), "HTTP request", fields)
		}
	}
}
