package repositories

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/psikotes-platform/assessment-service/internal/models"
)

// ExamFilters defines filters for exam queries
type ExamFilters struct {
	Status    *models.ExamStatus
	Kind      *models.InstrumentKind
	CreatedBy *string
	Search    string // Matches title

	// Pagination
	Limit  int
	Offset int

	// Sorting
	SortBy    string // created_at, updated_at, title, status
	SortOrder string // asc, desc
}

// AttemptFilters defines filters for attempt queries
type AttemptFilters struct {
	Status      *models.AttemptStatus
	CandidateID *string
	ExamID      *uint
	DateFrom    *time.Time
	DateTo      *time.Time

	// Pagination
	Limit  int
	Offset int

	// Sorting
	SortBy    string
	SortOrder string
}

// UserFilters defines filters for user queries
type UserFilters struct {
	Query  string // Search query for name or email
	Limit  int    // Page size
	Offset int    // Offset for pagination
}

// ExpiredAttempt is one row returned by the expiry sweep: enough to build
// the notification event without re-reading the attempt.
type ExpiredAttempt struct {
	AttemptID   uint
	ExamID      uint
	CandidateID string
	ExamTitle   string
	Score       int
}

// AnswerUpsert is one (question, option) selection in a bulk answer save.
type AnswerUpsert struct {
	QuestionID uint
	OptionID   uint
}

// ExamRepository interface for exam operations
type ExamRepository interface {
	Create(ctx context.Context, exam *models.Exam) error
	GetByID(ctx context.Context, id uint) (*models.Exam, error)
	GetByIDWithQuestions(ctx context.Context, id uint) (*models.Exam, error)
	Update(ctx context.Context, exam *models.Exam) error
	UpdateStatus(ctx context.Context, id uint, status models.ExamStatus) error
	Delete(ctx context.Context, id uint) error
	List(ctx context.Context, filters ExamFilters) ([]*models.Exam, int64, error)

	ExistsByID(ctx context.Context, id uint) (bool, error)
	CountAttempts(ctx context.Context, examID uint) (int64, error)
}

// AttemptRepository interface for attempt operations
type AttemptRepository interface {
	Create(ctx context.Context, attempt *models.ExamAttempt) error
	GetByID(ctx context.Context, id uint) (*models.ExamAttempt, error)
	GetByIDWithDetails(ctx context.Context, id uint) (*models.ExamAttempt, error)
	Update(ctx context.Context, attempt *models.ExamAttempt) error
	List(ctx context.Context, filters AttemptFilters) ([]*models.ExamAttempt, int64, error)

	// GetActiveAttempt returns the candidate's in-progress attempt for the
	// exam, or gorm.ErrRecordNotFound when none exists.
	GetActiveAttempt(ctx context.Context, examID uint, candidateID string) (*models.ExamAttempt, error)

	// CompleteIfInProgress marks the attempt completed only when it is still
	// in progress, so concurrent finalizers cannot overwrite a stored result.
	// Returns false when the attempt was already out of the running state.
	CompleteIfInProgress(ctx context.Context, id uint, endedAt time.Time, score int) (bool, error)

	// Finalize is the scored variant of CompleteIfInProgress: it also writes
	// the result blob and category/conclusion labels, under the same
	// conditional update.
	Finalize(ctx context.Context, attempt *models.ExamAttempt) (bool, error)

	// MarkDeletedByExam soft-deletes every attempt of an exam. Used when the
	// exam itself is removed; rows stay for audit.
	MarkDeletedByExam(ctx context.Context, examID uint) (int64, error)

	// SweepExpired completes every in-progress attempt whose nominal window
	// (started_at plus the exam duration) closed before the cutoff, scoring
	// general-kind attempts by correct-option count. It reports the attempts
	// it closed.
	SweepExpired(ctx context.Context, cutoff time.Time) ([]ExpiredAttempt, error)
}

// AnswerRepository interface for answer operations
type AnswerRepository interface {
	// UpsertBatch inserts or overwrites the selections for one attempt,
	// stamping each row with answeredAt. Returns the number of rows written.
	UpsertBatch(ctx context.Context, attemptID uint, answers []AnswerUpsert, answeredAt time.Time) (int, error)

	GetByAttempt(ctx context.Context, attemptID uint) ([]*models.Answer, error)
	CountByAttempt(ctx context.Context, attemptID uint) (int64, error)

	// CountCorrect counts the attempt's answers whose selected option is
	// flagged correct. Only meaningful for general-kind exams.
	CountCorrect(ctx context.Context, attemptID uint) (int64, error)
}

// UserRepository interface for user operations (identity lives in Casdoor,
// this service only reads)
type UserRepository interface {
	GetByID(ctx context.Context, id string) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	GetByIDs(ctx context.Context, ids []string) ([]*models.User, error)

	List(ctx context.Context, filters UserFilters) ([]*models.User, int64, error)

	ExistsByID(ctx context.Context, id string) (bool, error)
	HasRole(ctx context.Context, id string, role models.UserRole) (bool, error)
}

// IsNotFoundError reports whether err means the requested row does not exist.
func IsNotFoundError(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}
