package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/psikotes-platform/assessment-service/internal/config"
	"github.com/psikotes-platform/assessment-service/internal/models"
	"github.com/psikotes-platform/assessment-service/internal/repositories"
	"github.com/psikotes-platform/assessment-service/internal/services"
	"github.com/psikotes-platform/assessment-service/internal/utils"
)

type HandlerManager struct {
	examHandler    *ExamHandler
	attemptHandler *AttemptHandler
	userHandler    *UserHandler
	authMiddleware *CasdoorAuthMiddleware
}

func NewHandlerManager(
	serviceManager services.ServiceManager,
	logger utils.Logger,
	casdoorConfig config.CasdoorConfig,
	userRepo repositories.UserRepository,
) *HandlerManager {
	authMiddleware := NewCasdoorAuthMiddleware(casdoorConfig, userRepo)

	return &HandlerManager{
		examHandler:    NewExamHandler(serviceManager.Exam(), logger),
		attemptHandler: NewAttemptHandler(serviceManager.Attempt(), serviceManager.Submission(), logger),
		userHandler:    NewUserHandler(userRepo, logger),
		authMiddleware: authMiddleware,
	}
}

// SetupRoutes sets up all API routes
func (hm *HandlerManager) SetupRoutes(router *gin.Engine) {
	// API v1 routes with authentication
	v1 := router.Group("/api/v1")
	v1.Use(hm.authMiddleware.AuthMiddleware()) // Apply authentication to all API routes
	{
		// Exam routes
		exams := v1.Group("/exams")
		{
			// Authoring - Psychologists and Admins only
			exams.POST("", hm.authMiddleware.RequireRoleMiddleware(models.RolePsychologist, models.RoleAdmin), hm.examHandler.CreateExam)
			exams.PUT("/:id", hm.authMiddleware.RequireRoleMiddleware(models.RolePsychologist, models.RoleAdmin), hm.examHandler.UpdateExam)
			exams.PUT("/:id/status", hm.authMiddleware.RequireRoleMiddleware(models.RolePsychologist, models.RoleAdmin), hm.examHandler.UpdateExamStatus)

			// Two-step deletion - Psychologists and Admins only
			exams.POST("/:id/deletion-request", hm.authMiddleware.RequireRoleMiddleware(models.RolePsychologist, models.RoleAdmin), hm.examHandler.RequestExamDeletion)
			exams.POST("/:id/deletion-confirm", hm.authMiddleware.RequireRoleMiddleware(models.RolePsychologist, models.RoleAdmin), hm.examHandler.ConfirmExamDeletion)

			// View exams - All authenticated users (services scope by role)
			exams.GET("", hm.examHandler.ListExams)
			exams.GET("/:id", hm.examHandler.GetExam)
			exams.GET("/:id/details", hm.examHandler.GetExamWithQuestions)

			// Attempt lifecycle (nested under the exam being taken)
			exams.POST("/:id/attempts", hm.attemptHandler.StartAttempt)
			exams.PATCH("/:id/attempts/:attempt_id/answers", hm.attemptHandler.SaveAnswers)
			exams.POST("/:id/attempts/:attempt_id/submit-pss", hm.attemptHandler.SubmitPss)
			exams.POST("/:id/attempts/:attempt_id/submit-srq", hm.attemptHandler.SubmitSrq)
			exams.POST("/:id/attempts/:attempt_id/submit", hm.attemptHandler.SubmitGeneral)
		}

		// Attempt routes (reads and maintenance)
		attempts := v1.Group("/attempts")
		{
			attempts.GET("", hm.attemptHandler.ListAttempts)
			attempts.GET("/:id", hm.attemptHandler.GetAttempt)
			attempts.GET("/:id/details", hm.attemptHandler.GetAttemptWithDetails)
			attempts.GET("/:id/time-remaining", hm.attemptHandler.GetTimeRemaining)

			// Expiry sweep - Admins only
			attempts.POST("/sweep-expired", hm.authMiddleware.RequireRoleMiddleware(models.RoleAdmin), hm.attemptHandler.SweepExpiredAttempts)
		}

		// User routes - Psychologists and Admins only (candidates never list users)
		users := v1.Group("/users")
		users.Use(hm.authMiddleware.RequireRoleMiddleware(models.RolePsychologist, models.RoleAdmin))
		{
			users.GET("", hm.userHandler.ListUsers)
			users.GET("/:id", hm.userHandler.GetUser)
		}
	}

	// Health check endpoint
	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"status":  "healthy",
			"service": "assessment-service",
		})
	})
}
