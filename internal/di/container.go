// Package di provides dependency injection container for managing service lifecycle and dependencies.
package di

import (
	"context"
	"sync"

	"revisionaid/internal/auth"
	"revisionaid/internal/config"
	"revisionaid/internal/database"
	"revisionaid/internal/handlers"
	"revisionaid/internal/observability"
	"revisionaid/internal/services"
	"revisionaid/internal/store"
	contextutils "revisionaid/internal/utils"
)

// ServiceContainerInterface defines the interface for service containers
type ServiceContainerInterface interface {
	GetService(name string) (interface{}, error)
	GetUserService() (services.UserServiceInterface, error)
	GetQuizService() (services.QuizServiceInterface, error)
	GetStatsService() (services.StatsServiceInterface, error)
	GetQuestionBankService() (*services.QuestionBankService, error)
	GetTokenIssuer() (*auth.TokenIssuer, error)
	GetStore() store.Store
	GetConfig() *config.Config
	GetLogger() *observability.Logger
	RouterDeps() (handlers.RouterDeps, error)
	Initialize(ctx context.Context) error
	Shutdown(ctx context.Context) error
}

// ServiceContainer manages all service dependencies and lifecycle
type ServiceContainer struct {
	cfg           *config.Config
	logger        *observability.Logger
	dbManager     *database.Manager
	store         store.Store
	services      map[string]interface{}
	mu            sync.RWMutex
	shutdownFuncs []func(context.Context) error
}

var _ ServiceContainerInterface = (*ServiceContainer)(nil)

// NewServiceContainer creates a new dependency injection container
func NewServiceContainer(cfg *config.Config, logger *observability.Logger) *ServiceContainer {
	return &ServiceContainer{
		cfg:      cfg,
		logger:   logger,
		services: make(map[string]interface{}),
	}
}

// NewServiceContainerWithStore creates a container around an already open
// store. Initialize will not open a database and Shutdown will not close it.
func NewServiceContainerWithStore(cfg *config.Config, logger *observability.Logger, s store.Store) *ServiceContainer {
	sc := NewServiceContainer(cfg, logger)
	sc.store = s
	return sc
}

// Initialize sets up all services and their dependencies
func (sc *ServiceContainer) Initialize(ctx context.Context) error {
	sc.mu.Lock()
	defer sc.mu.Unlock()

	if sc.store == nil {
		sc.dbManager = database.NewManager(sc.logger)
		s, err := sc.dbManager.OpenStore(ctx, sc.cfg.Database)
		if err != nil {
			return contextutils.WrapErrorf(err, "failed to initialize database")
		}
		sc.store = s
		sc.shutdownFuncs = append(sc.shutdownFuncs, func(_ context.Context) error {
			return s.Close()
		})
	}

	if err := sc.initializeServices(); err != nil {
		_ = sc.cleanup(ctx)
		return contextutils.WrapErrorf(err, "failed to initialize services")
	}

	if err := sc.seedQuestionBank(ctx); err != nil {
		_ = sc.cleanup(ctx)
		return contextutils.WrapErrorf(err, "failed to seed question bank")
	}

	return nil
}

// initializeServices sets up all service dependencies
func (sc *ServiceContainer) initializeServices() error {
	metrics, err := observability.NewQuizMetrics()
	if err != nil {
		return contextutils.WrapError(err, "failed to register quiz metrics")
	}

	tokens, err := auth.NewTokenIssuer(sc.cfg.Server.JWTSecret, sc.cfg.Server.TokenTTL)
	if err != nil {
		return err
	}
	sc.services["tokens"] = tokens

	notificationService := services.NewNotificationService(sc.cfg, sc.logger)
	sc.services["notification"] = notificationService

	userService := services.NewUserServiceWithLogger(sc.store, sc.cfg, notificationService, sc.logger)
	sc.services["user"] = userService

	// The selector and performance updater are the two halves of the quiz service
	selectorService := services.NewSelectorServiceWithLogger(sc.store, sc.store, nil, sc.logger, metrics)
	sc.services["selector"] = selectorService

	performanceService := services.NewPerformanceServiceWithLogger(sc.store, sc.cfg, sc.logger, metrics)
	sc.services["performance"] = performanceService
	// Runs before the store closes: shutdown funcs run in reverse.
	sc.shutdownFuncs = append(sc.shutdownFuncs, performanceService.WaitForPending)

	quizService := services.NewQuizServiceWithLogger(sc.store, selectorService, performanceService, sc.logger)
	sc.services["quiz"] = quizService

	sc.services["stats"] = services.NewStatsServiceWithLogger(sc.store, sc.logger)
	sc.services["question_bank"] = services.NewQuestionBankServiceWithLogger(sc.store, sc.logger)

	return nil
}

func (sc *ServiceContainer) seedQuestionBank(ctx context.Context) error {
	if !sc.cfg.Quiz.SeedOnStartup {
		return nil
	}
	path := sc.cfg.Quiz.QuestionBankPath
	if path == "" {
		path = config.DefaultQuestionBankPath
	}

	bank := sc.services["question_bank"].(*services.QuestionBankService)
	seeded, err := bank.SeedIfEmpty(ctx, path)
	if err != nil {
		return err
	}
	sc.logger.Info(ctx, "Question bank startup check complete", map[string]interface{}{
		"path":   path,
		"seeded": seeded,
	})
	return nil
}

// GetService retrieves a service by name with type assertion
func (sc *ServiceContainer) GetService(name string) (interface{}, error) {
	sc.mu.RLock()
	defer sc.mu.RUnlock()

	service, exists := sc.services[name]
	if !exists {
		return nil, contextutils.ErrorWithContextf("service %s not found", name)
	}
	return service, nil
}

// GetServiceAs performs type-safe service retrieval
func GetServiceAs[T any](sc *ServiceContainer, name string) (T, error) {
	var zero T
	service, err := sc.GetService(name)
	if err != nil {
		return zero, err
	}

	typed, ok := service.(T)
	if !ok {
		return zero, contextutils.ErrorWithContextf("service %s is not of expected type %T", name, zero)
	}
	return typed, nil
}

// GetUserService returns the user service
func (sc *ServiceContainer) GetUserService() (services.UserServiceInterface, error) {
	return GetServiceAs[services.UserServiceInterface](sc, "user")
}

// GetQuizService returns the quiz service
func (sc *ServiceContainer) GetQuizService() (services.QuizServiceInterface, error) {
	return GetServiceAs[services.QuizServiceInterface](sc, "quiz")
}

// GetStatsService returns the stats service
func (sc *ServiceContainer) GetStatsService() (services.StatsServiceInterface, error) {
	return GetServiceAs[services.StatsServiceInterface](sc, "stats")
}

// GetQuestionBankService returns the question bank loader
func (sc *ServiceContainer) GetQuestionBankService() (*services.QuestionBankService, error) {
	return GetServiceAs[*services.QuestionBankService](sc, "question_bank")
}

// GetTokenIssuer returns the bearer token issuer
func (sc *ServiceContainer) GetTokenIssuer() (*auth.TokenIssuer, error) {
	return GetServiceAs[*auth.TokenIssuer](sc, "tokens")
}

// GetStore returns the store
func (sc *ServiceContainer) GetStore() store.Store {
	return sc.store
}

// GetConfig returns the configuration
func (sc *ServiceContainer) GetConfig() *config.Config {
	return sc.cfg
}

// GetLogger returns the logger
func (sc *ServiceContainer) GetLogger() *observability.Logger {
	return sc.logger
}

// RouterDeps collects what handlers.NewRouter needs.
func (sc *ServiceContainer) RouterDeps() (handlers.RouterDeps, error) {
	userService, err := sc.GetUserService()
	if err != nil {
		return handlers.RouterDeps{}, err
	}
	quizService, err := sc.GetQuizService()
	if err != nil {
		return handlers.RouterDeps{}, err
	}
	statsService, err := sc.GetStatsService()
	if err != nil {
		return handlers.RouterDeps{}, err
	}
	tokens, err := sc.GetTokenIssuer()
	if err != nil {
		return handlers.RouterDeps{}, err
	}
	return handlers.RouterDeps{
		UserService:  userService,
		QuizService:  quizService,
		StatsService: statsService,
		Topics:       sc.store,
		DB:           sc.store,
		Tokens:       tokens,
	}, nil
}

// Shutdown gracefully shuts down all services
func (sc *ServiceContainer) Shutdown(ctx context.Context) error {
	sc.mu.Lock()
	defer sc.mu.Unlock()

	return sc.cleanup(ctx)
}

// cleanup runs shutdown functions in reverse order of registration
func (sc *ServiceContainer) cleanup(ctx context.Context) error {
	var errs []error
	for i := len(sc.shutdownFuncs) - 1; i >= 0; i-- {
		if err := sc.shutdownFuncs[i](ctx); err != nil {
			sc.logger.Error(ctx, "Shutdown step failed", err)
			errs = append(errs, err)
		}
	}
	sc.shutdownFuncs = nil

	if len(errs) > 0 {
		return contextutils.ErrorWithContextf("shutdown errors: %v", errs)
	}
	return nil
}
