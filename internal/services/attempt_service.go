package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/psikotes-platform/assessment-service/internal/events"
	"github.com/psikotes-platform/assessment-service/internal/models"
	"github.com/psikotes-platform/assessment-service/internal/repositories"
	"github.com/psikotes-platform/assessment-service/internal/validator"
)

// AnswerGracePeriod is added to the nominal attempt duration before a save
// is rejected as expired. It absorbs network and client latency only; the
// bulk sweep uses the nominal deadline.
const AnswerGracePeriod = time.Minute

type attemptService struct {
	repo      repositories.Repository
	logger    *slog.Logger
	validator *validator.Validator
	publisher events.EventPublisher

	now func() time.Time
}

func NewAttemptService(repo repositories.Repository, logger *slog.Logger, validator *validator.Validator, publisher events.EventPublisher) AttemptService {
	return &attemptService{
		repo:      repo,
		logger:    logger,
		validator: validator,
		publisher: publisher,
		now:       time.Now,
	}
}

// ===== CORE ATTEMPT OPERATIONS =====

func (s *attemptService) Start(ctx context.Context, req *StartAttemptRequest, candidateID string) (*AttemptResponse, error) {
	s.logger.Info("Starting exam attempt",
		"exam_id", req.ExamID,
		"candidate_id", candidateID)

	if err := s.validator.Validate(req); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	exam, err := s.repo.Exam().GetByID(ctx, req.ExamID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrExamNotFound
		}
		return nil, fmt.Errorf("failed to get exam: %w", err)
	}

	if exam.Status != models.ExamActive {
		return nil, ErrExamNotActive
	}

	// Resume an open attempt instead of opening a second one
	if active, err := s.repo.Attempt().GetActiveAttempt(ctx, req.ExamID, candidateID); err == nil {
		s.logger.Info("Resuming existing attempt", "attempt_id", active.ID)
		resp := s.buildAttemptResponse(active, exam.DurationMinutes)
		resp.Resumed = true
		return resp, nil
	} else if !repositories.IsNotFoundError(err) {
		return nil, fmt.Errorf("failed to check active attempt: %w", err)
	}

	attempt := &models.ExamAttempt{
		ExamID:      req.ExamID,
		CandidateID: candidateID,
		Status:      models.AttemptInProgress,
		StartedAt:   s.now(),
	}

	err = s.repo.WithTransaction(ctx, func(tx repositories.Repository) error {
		return tx.Attempt().Create(ctx, attempt)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create attempt: %w", err)
	}

	deadline := attempt.Deadline(exam.DurationMinutes)
	s.publishEvent(ctx, events.NewAttemptStartedEvent(
		attempt.ID, exam.ID, exam.Title, candidateID, attempt.StartedAt, deadline))

	s.logger.Info("Attempt started",
		"attempt_id", attempt.ID,
		"exam_id", exam.ID,
		"deadline", deadline)

	return s.buildAttemptResponse(attempt, exam.DurationMinutes), nil
}

func (s *attemptService) SaveAnswers(ctx context.Context, attemptID, examID uint, req *SaveAnswersRequest, candidateID string) (*SaveAnswersResponse, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	callTime := s.now()
	var saved int

	err := s.repo.WithTransaction(ctx, func(tx repositories.Repository) error {
		attempt, exam, err := getOwnedAttempt(ctx, tx, attemptID, examID, candidateID)
		if err != nil {
			return err
		}

		if attempt.Status != models.AttemptInProgress {
			return ErrAttemptNotActive
		}

		deadline := attempt.Deadline(exam.DurationMinutes)
		if callTime.After(deadline.Add(AnswerGracePeriod)) {
			return ErrAttemptTimeExpired
		}

		batch := make([]repositories.AnswerUpsert, 0, len(req.Answers))
		for questionID, optionID := range req.Answers {
			batch = append(batch, repositories.AnswerUpsert{
				QuestionID: questionID,
				OptionID:   optionID,
			})
		}

		saved, err = tx.Answer().UpsertBatch(ctx, attemptID, batch, callTime)
		return err
	})

	if errors.Is(err, ErrAttemptTimeExpired) {
		// Lazy auto-submit: the window closed, so this write completes the
		// attempt instead. Runs after the rollback on purpose.
		s.expireAttempt(ctx, attemptID, callTime)
		return nil, ErrAttemptTimeExpired
	}
	if err != nil {
		return nil, err
	}

	s.logger.Info("Answers saved",
		"attempt_id", attemptID,
		"saved_count", saved)

	return &SaveAnswersResponse{SavedCount: saved}, nil
}

// ===== GET OPERATIONS =====

func (s *attemptService) GetByID(ctx context.Context, id uint, userID string) (*AttemptResponse, error) {
	attempt, err := s.repo.Attempt().GetByID(ctx, id)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrAttemptNotFound
		}
		return nil, fmt.Errorf("failed to get attempt: %w", err)
	}

	if err := s.canAccessAttempt(ctx, attempt, userID); err != nil {
		return nil, err
	}

	exam, err := s.repo.Exam().GetByID(ctx, attempt.ExamID)
	if err != nil {
		return nil, fmt.Errorf("failed to get exam: %w", err)
	}

	return s.buildAttemptResponse(attempt, exam.DurationMinutes), nil
}

func (s *attemptService) GetByIDWithDetails(ctx context.Context, id uint, userID string) (*AttemptResponse, error) {
	attempt, err := s.repo.Attempt().GetByIDWithDetails(ctx, id)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrAttemptNotFound
		}
		return nil, fmt.Errorf("failed to get attempt: %w", err)
	}

	if err := s.canAccessAttempt(ctx, attempt, userID); err != nil {
		return nil, err
	}

	return s.buildAttemptResponse(attempt, attempt.Exam.DurationMinutes), nil
}

func (s *attemptService) List(ctx context.Context, filters repositories.AttemptFilters, userID string) (*AttemptListResponse, error) {
	// Candidates only ever see their own attempts
	manager, err := s.isManager(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !manager {
		filters.CandidateID = &userID
	}

	attempts, total, err := s.repo.Attempt().List(ctx, filters)
	if err != nil {
		return nil, fmt.Errorf("failed to list attempts: %w", err)
	}

	responses := make([]*AttemptResponse, len(attempts))
	for i, attempt := range attempts {
		responses[i] = s.buildAttemptResponse(attempt, attempt.Exam.DurationMinutes)
	}

	page := 1
	if filters.Limit > 0 {
		page = (filters.Offset / filters.Limit) + 1
	}

	return &AttemptListResponse{
		Attempts: responses,
		Total:    total,
		Page:     page,
		Size:     len(responses),
	}, nil
}

// ===== TIME MANAGEMENT =====

func (s *attemptService) GetTimeRemaining(ctx context.Context, attemptID uint, candidateID string) (int, error) {
	attempt, err := s.repo.Attempt().GetByID(ctx, attemptID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return 0, ErrAttemptNotFound
		}
		return 0, fmt.Errorf("failed to get attempt: %w", err)
	}

	if attempt.CandidateID != candidateID {
		return 0, ErrAttemptAccessDenied
	}

	if attempt.Status != models.AttemptInProgress {
		return 0, nil
	}

	exam, err := s.repo.Exam().GetByID(ctx, attempt.ExamID)
	if err != nil {
		return 0, fmt.Errorf("failed to get exam: %w", err)
	}

	remaining := attempt.Deadline(exam.DurationMinutes).Sub(s.now())
	if remaining < 0 {
		return 0, nil
	}
	return int(remaining.Seconds()), nil
}

// ===== EXPIRY SWEEP =====

func (s *attemptService) SweepExpiredAttempts(ctx context.Context) ([]repositories.ExpiredAttempt, error) {
	swept, err := s.repo.Attempt().SweepExpired(ctx, s.now())
	if err != nil {
		return nil, fmt.Errorf("failed to sweep expired attempts: %w", err)
	}

	for _, row := range swept {
		s.publishEvent(ctx, events.NewAttemptExpiredEvent(
			row.AttemptID, row.ExamID, row.ExamTitle, row.CandidateID, s.now(), row.Score))
	}

	if len(swept) > 0 {
		s.logger.Info("Expired attempts swept", "count", len(swept))
	}

	return swept, nil
}
