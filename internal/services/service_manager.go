package services

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/psikotes-platform/assessment-service/internal/events"
	"github.com/psikotes-platform/assessment-service/internal/repositories"
	"github.com/psikotes-platform/assessment-service/internal/validator"
	"github.com/psikotes-platform/assessment-service/internal/verification"
)

// ServiceManagerConfig holds configuration for the service manager
type ServiceManagerConfig struct {
	// PssStrictScoring enables server-side recomputation of PSS totals.
	PssStrictScoring bool
}

// serviceManager implements ServiceManager interface
type serviceManager struct {
	// Dependencies
	repo      repositories.Repository
	logger    *slog.Logger
	validator *validator.Validator
	publisher events.EventPublisher
	config    ServiceManagerConfig

	// Service instances
	examService       ExamService
	attemptService    AttemptService
	submissionService SubmissionService

	// Lifecycle management
	initialized bool
	mu          sync.RWMutex
}

// NewServiceManager creates a new service manager with all dependencies
func NewServiceManager(repo repositories.Repository, logger *slog.Logger, validator *validator.Validator, publisher events.EventPublisher, config ServiceManagerConfig) ServiceManager {
	return &serviceManager{
		repo:      repo,
		logger:    logger,
		validator: validator,
		publisher: publisher,
		config:    config,
	}
}

// Initialize sets up all services and their dependencies
func (sm *serviceManager) Initialize(ctx context.Context) error {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	if sm.initialized {
		return nil
	}

	sm.logger.Info("Initializing service manager")

	codes := verification.NewCodeStore(verification.DefaultTTL)

	sm.examService = NewExamService(sm.repo, sm.logger, sm.validator, sm.publisher, codes)
	sm.logger.Info("Exam service initialized")

	sm.attemptService = NewAttemptService(sm.repo, sm.logger, sm.validator, sm.publisher)
	sm.logger.Info("Attempt service initialized")

	sm.submissionService = NewSubmissionService(sm.repo, sm.logger, sm.validator, sm.publisher, sm.config.PssStrictScoring)
	sm.logger.Info("Submission service initialized")

	sm.initialized = true
	sm.logger.Info("Service manager initialized successfully")

	return nil
}

// Shutdown releases service resources
func (sm *serviceManager) Shutdown(ctx context.Context) error {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	if !sm.initialized {
		return nil
	}

	sm.logger.Info("Shutting down service manager")
	sm.initialized = false
	return nil
}

// HealthCheck verifies the repository backing all services
func (sm *serviceManager) HealthCheck(ctx context.Context) error {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	if !sm.initialized {
		return fmt.Errorf("service manager not initialized")
	}
	return sm.repo.Ping(ctx)
}

// Service getters

func (sm *serviceManager) Exam() ExamService {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	if !sm.initialized {
		panic("service manager not initialized")
	}
	return sm.examService
}

func (sm *serviceManager) Attempt() AttemptService {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	if !sm.initialized {
		panic("service manager not initialized")
	}
	return sm.attemptService
}

func (sm *serviceManager) Submission() SubmissionService {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	if !sm.initialized {
		panic("service manager not initialized")
	}
	return sm.submissionService
}
