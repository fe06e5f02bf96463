package services

import (
	"context"
	"time"

	"github.com/psikotes-platform/assessment-service/internal/models"
	"github.com/psikotes-platform/assessment-service/internal/repositories"
)

// ===== EXAM RELATED DTOs =====

type CreateExamRequest struct {
	Title           string                  `json:"title" validate:"required,min=1,max=200"`
	Description     *string                 `json:"description" validate:"omitempty,max=1000"`
	DurationMinutes int                     `json:"duration_minutes" validate:"required,exam_duration"`
	Kind            models.InstrumentKind   `json:"kind" validate:"required,instrument_kind"`
	Questions       []CreateQuestionRequest `json:"questions" validate:"omitempty,dive"`
}

type CreateQuestionRequest struct {
	Text    string                `json:"text" validate:"required,min=1,max=2000"`
	Order   int                   `json:"order" validate:"required,min=1"`
	Options []CreateOptionRequest `json:"options" validate:"required,min=2,dive"`
}

type CreateOptionRequest struct {
	Label     string `json:"label" validate:"omitempty,max=10"`
	Text      string `json:"text" validate:"required,max=1000"`
	IsCorrect bool   `json:"is_correct"`
}

type UpdateExamRequest struct {
	Title           *string `json:"title" validate:"omitempty,min=1,max=200"`
	Description     *string `json:"description" validate:"omitempty,max=1000"`
	DurationMinutes *int    `json:"duration_minutes" validate:"omitempty,exam_duration"`
}

type UpdateExamStatusRequest struct {
	Status models.ExamStatus `json:"status" validate:"required,exam_status"`
}

type ExamResponse struct {
	*models.Exam
	CanEdit   bool `json:"can_edit"`
	CanDelete bool `json:"can_delete"`
}

type ExamListResponse struct {
	Exams []*ExamResponse `json:"exams"`
	Total int64           `json:"total"`
	Page  int             `json:"page"`
	Size  int             `json:"size"`
}

type DeletionCodeResponse struct {
	ExamID    uint      `json:"exam_id"`
	Code      string    `json:"code"`
	ExpiresAt time.Time `json:"expires_at"`
}

// ===== ATTEMPT RELATED DTOs =====

type StartAttemptRequest struct {
	ExamID uint `json:"exam_id" validate:"required"`
}

type AttemptResponse struct {
	*models.ExamAttempt
	Deadline         time.Time `json:"deadline"`
	SecondsRemaining int       `json:"seconds_remaining"`
	Resumed          bool      `json:"resumed,omitempty"`
}

type AttemptListResponse struct {
	Attempts []*AttemptResponse `json:"attempts"`
	Total    int64              `json:"total"`
	Page     int                `json:"page"`
	Size     int                `json:"size"`
}

// SaveAnswersRequest carries one bulk batch of question/option selections.
type SaveAnswersRequest struct {
	Answers map[uint]uint `json:"answers" validate:"required,min=1"`
}

type SaveAnswersResponse struct {
	SavedCount int `json:"saved_count"`
}

// ===== SUBMISSION RELATED DTOs =====

// SubmitPssRequest carries the client-scored PSS submission. Answers map
// item order (1-10) to the raw 0-4 value as entered; the reversal of items
// 4, 5, 7 and 8 happens server-side when strict scoring recomputes the total.
type SubmitPssRequest struct {
	Answers  map[uint]int `json:"answers" validate:"required"`
	Score    int          `json:"score" validate:"min=0,max=40"`
	Category string       `json:"category" validate:"required,pss_category"`
}

// SrqResultRequest is the client-derived SRQ interpretation. The conclusion
// is a short code; the service resolves it to the long text.
type SrqResultRequest struct {
	Anxiety    bool   `json:"anxiety"`
	Substance  bool   `json:"substance"`
	Psychotic  bool   `json:"psychotic"`
	Ptsd       bool   `json:"ptsd"`
	Conclusion string `json:"conclusion" validate:"required,max=100"`
}

type SubmitSrqRequest struct {
	Answers map[uint]string  `json:"answers" validate:"required"`
	Result  SrqResultRequest `json:"result" validate:"required"`
}

// ===== SERVICE INTERFACES =====

type ExamService interface {
	// Authoring
	Create(ctx context.Context, req *CreateExamRequest, creatorID string) (*ExamResponse, error)
	Update(ctx context.Context, id uint, req *UpdateExamRequest, userID string) (*ExamResponse, error)
	UpdateStatus(ctx context.Context, id uint, req *UpdateExamStatusRequest, userID string) error

	// Reads
	GetByID(ctx context.Context, id uint, userID string) (*ExamResponse, error)
	GetByIDWithQuestions(ctx context.Context, id uint, userID string) (*ExamResponse, error)
	List(ctx context.Context, filters repositories.ExamFilters, userID string) (*ExamListResponse, error)

	// Two-step deletion: request issues a short-lived confirmation code,
	// confirm consumes it and soft-deletes the exam.
	RequestDeletion(ctx context.Context, id uint, userID string) (*DeletionCodeResponse, error)
	ConfirmDeletion(ctx context.Context, id uint, code string, userID string) error
}

type AttemptService interface {
	// Lifecycle
	Start(ctx context.Context, req *StartAttemptRequest, candidateID string) (*AttemptResponse, error)
	SaveAnswers(ctx context.Context, attemptID, examID uint, req *SaveAnswersRequest, candidateID string) (*SaveAnswersResponse, error)

	// Reads
	GetByID(ctx context.Context, id uint, userID string) (*AttemptResponse, error)
	GetByIDWithDetails(ctx context.Context, id uint, userID string) (*AttemptResponse, error)
	List(ctx context.Context, filters repositories.AttemptFilters, userID string) (*AttemptListResponse, error)

	// Time management
	GetTimeRemaining(ctx context.Context, attemptID uint, candidateID string) (int, error) // seconds

	// SweepExpiredAttempts force-completes every attempt whose window has
	// closed. Privileged; no per-attempt ownership check.
	SweepExpiredAttempts(ctx context.Context) ([]repositories.ExpiredAttempt, error)
}

type SubmissionService interface {
	SubmitPss(ctx context.Context, attemptID, examID uint, req *SubmitPssRequest, candidateID string) (*AttemptResponse, error)
	SubmitSrq(ctx context.Context, attemptID, examID uint, req *SubmitSrqRequest, candidateID string) (*AttemptResponse, error)

	// SubmitGeneral finishes a general-kind attempt, scoring by correct
	// option count.
	SubmitGeneral(ctx context.Context, attemptID, examID uint, candidateID string) (*AttemptResponse, error)
}

// ===== SERVICE MANAGER =====

type ServiceManager interface {
	Exam() ExamService
	Attempt() AttemptService
	Submission() SubmissionService

	// Lifecycle management
	Initialize(ctx context.Context) error
	Shutdown(ctx context.Context) error
	HealthCheck(ctx context.Context) error
}
