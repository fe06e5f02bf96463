package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/psikotes-platform/assessment-service/internal/events"
	"github.com/psikotes-platform/assessment-service/internal/models"
	"github.com/psikotes-platform/assessment-service/internal/repositories"
	"github.com/psikotes-platform/assessment-service/internal/validator"
	"github.com/psikotes-platform/assessment-service/internal/verification"
)

type examService struct {
	repo      repositories.Repository
	logger    *slog.Logger
	validator *validator.Validator
	publisher events.EventPublisher
	codes     *verification.CodeStore

	now func() time.Time
}

func NewExamService(repo repositories.Repository, logger *slog.Logger, validator *validator.Validator, publisher events.EventPublisher, codes *verification.CodeStore) ExamService {
	return &examService{
		repo:      repo,
		logger:    logger,
		validator: validator,
		publisher: publisher,
		codes:     codes,
		now:       time.Now,
	}
}

// ===== AUTHORING =====

func (s *examService) Create(ctx context.Context, req *CreateExamRequest, creatorID string) (*ExamResponse, error) {
	s.logger.Info("Creating exam",
		"title", req.Title,
		"kind", req.Kind,
		"creator_id", creatorID)

	if err := s.validator.Validate(req); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	if err := s.ensureManager(ctx, creatorID); err != nil {
		return nil, err
	}

	exam := &models.Exam{
		Title:           req.Title,
		Description:     req.Description,
		DurationMinutes: req.DurationMinutes,
		Kind:            req.Kind,
		Status:          models.ExamDraft,
		CreatedBy:       creatorID,
	}

	for _, q := range req.Questions {
		question := models.Question{
			Text:  q.Text,
			Order: q.Order,
		}
		for _, o := range q.Options {
			question.Options = append(question.Options, models.Option{
				Label:     o.Label,
				Text:      o.Text,
				IsCorrect: o.IsCorrect,
			})
		}
		exam.Questions = append(exam.Questions, question)
	}

	// Question sets are allowed to be incomplete on a draft; full instrument
	// checks run when the exam is published.
	if len(exam.Questions) > 0 {
		if errs := s.validator.Business().ValidateExamQuestions(req.Kind, exam.Questions); len(errs) > 0 {
			return nil, errs
		}
	}

	err := s.repo.WithTransaction(ctx, func(tx repositories.Repository) error {
		return tx.Exam().Create(ctx, exam)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create exam: %w", err)
	}

	s.logger.Info("Exam created", "exam_id", exam.ID)

	return s.buildExamResponse(exam, creatorID, true), nil
}

func (s *examService) Update(ctx context.Context, id uint, req *UpdateExamRequest, userID string) (*ExamResponse, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	exam, err := s.getManagedExam(ctx, id, userID)
	if err != nil {
		return nil, err
	}

	if exam.Status != models.ExamDraft {
		return nil, ErrExamNotEditable
	}

	if req.Title != nil {
		exam.Title = *req.Title
	}
	if req.Description != nil {
		exam.Description = req.Description
	}
	if req.DurationMinutes != nil {
		exam.DurationMinutes = *req.DurationMinutes
	}

	err = s.repo.WithTransaction(ctx, func(tx repositories.Repository) error {
		return tx.Exam().Update(ctx, exam)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to update exam: %w", err)
	}

	return s.buildExamResponse(exam, userID, true), nil
}

func (s *examService) UpdateStatus(ctx context.Context, id uint, req *UpdateExamStatusRequest, userID string) error {
	if err := s.validator.Validate(req); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	exam, err := s.getManagedExam(ctx, id, userID)
	if err != nil {
		return err
	}

	if exam.Status == req.Status {
		return nil
	}

	// Publishing requires a complete instrument-consistent question set
	if req.Status == models.ExamActive {
		full, err := s.repo.Exam().GetByIDWithQuestions(ctx, id)
		if err != nil {
			return fmt.Errorf("failed to load exam questions: %w", err)
		}
		if len(full.Questions) == 0 {
			return ErrExamNoQuestions
		}
		if errs := s.validator.Business().ValidateExamQuestions(exam.Kind, full.Questions); len(errs) > 0 {
			return errs
		}
	}

	if err := s.repo.Exam().UpdateStatus(ctx, id, req.Status); err != nil {
		return fmt.Errorf("failed to update exam status: %w", err)
	}

	s.logger.Info("Exam status updated",
		"exam_id", id,
		"from", exam.Status,
		"to", req.Status)

	if req.Status == models.ExamActive {
		s.publishEvent(ctx, events.NewExamPublishedEvent(
			exam.ID, exam.Title, exam.DurationMinutes, string(exam.Kind), exam.CreatedBy))
	}

	return nil
}

// ===== READS =====

func (s *examService) GetByID(ctx context.Context, id uint, userID string) (*ExamResponse, error) {
	exam, err := s.repo.Exam().GetByID(ctx, id)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrExamNotFound
		}
		return nil, fmt.Errorf("failed to get exam: %w", err)
	}

	manager, err := s.isManager(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !manager && exam.Status != models.ExamActive {
		return nil, ErrExamNotFound
	}

	return s.buildExamResponse(exam, userID, manager), nil
}

func (s *examService) GetByIDWithQuestions(ctx context.Context, id uint, userID string) (*ExamResponse, error) {
	exam, err := s.repo.Exam().GetByIDWithQuestions(ctx, id)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrExamNotFound
		}
		return nil, fmt.Errorf("failed to get exam: %w", err)
	}

	manager, err := s.isManager(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !manager {
		if exam.Status != models.ExamActive {
			return nil, ErrExamNotFound
		}
		// Never leak the answer key to candidates
		for i := range exam.Questions {
			for j := range exam.Questions[i].Options {
				exam.Questions[i].Options[j].IsCorrect = false
			}
		}
	}

	return s.buildExamResponse(exam, userID, manager), nil
}

func (s *examService) List(ctx context.Context, filters repositories.ExamFilters, userID string) (*ExamListResponse, error) {
	manager, err := s.isManager(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !manager {
		active := models.ExamActive
		filters.Status = &active
	}

	exams, total, err := s.repo.Exam().List(ctx, filters)
	if err != nil {
		return nil, fmt.Errorf("failed to list exams: %w", err)
	}

	responses := make([]*ExamResponse, len(exams))
	for i, exam := range exams {
		responses[i] = s.buildExamResponse(exam, userID, manager)
	}

	page := 1
	if filters.Limit > 0 {
		page = (filters.Offset / filters.Limit) + 1
	}

	return &ExamListResponse{
		Exams: responses,
		Total: total,
		Page:  page,
		Size:  len(responses),
	}, nil
}

// ===== DELETION =====

func (s *examService) RequestDeletion(ctx context.Context, id uint, userID string) (*DeletionCodeResponse, error) {
	exam, err := s.getManagedExam(ctx, id, userID)
	if err != nil {
		return nil, err
	}

	code, err := s.codes.Issue(exam.ID)
	if err != nil {
		return nil, err
	}

	s.logger.Info("Exam deletion requested",
		"exam_id", exam.ID,
		"user_id", userID)

	return &DeletionCodeResponse{
		ExamID:    exam.ID,
		Code:      code,
		ExpiresAt: s.now().Add(verification.DefaultTTL),
	}, nil
}

func (s *examService) ConfirmDeletion(ctx context.Context, id uint, code string, userID string) error {
	exam, err := s.getManagedExam(ctx, id, userID)
	if err != nil {
		return err
	}

	if !s.codes.Verify(exam.ID, code) {
		return ErrInvalidDeletionCode
	}

	err = s.repo.WithTransaction(ctx, func(tx repositories.Repository) error {
		if _, err := tx.Attempt().MarkDeletedByExam(ctx, exam.ID); err != nil {
			return fmt.Errorf("failed to delete attempts: %w", err)
		}
		return tx.Exam().Delete(ctx, exam.ID)
	})
	if err != nil {
		return err
	}

	s.logger.Info("Exam deleted",
		"exam_id", exam.ID,
		"deleted_by", userID)

	s.publishEvent(ctx, events.NewExamDeletedEvent(exam.ID, exam.Title, userID, s.now()))

	return nil
}

// ===== HELPERS =====

// getManagedExam loads the exam and checks the caller may administer it:
// the creator, or an admin role.
func (s *examService) getManagedExam(ctx context.Context, id uint, userID string) (*models.Exam, error) {
	exam, err := s.repo.Exam().GetByID(ctx, id)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrExamNotFound
		}
		return nil, fmt.Errorf("failed to get exam: %w", err)
	}

	if exam.CreatedBy == userID {
		return exam, nil
	}

	user, err := s.repo.User().GetByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	if user.Role != models.RoleAdmin && user.Role != models.RoleSuperAdmin {
		return nil, NewPermissionError(userID, id, "exam", "manage", "not the exam owner")
	}

	return exam, nil
}

func (s *examService) ensureManager(ctx context.Context, userID string) error {
	manager, err := s.isManager(ctx, userID)
	if err != nil {
		return err
	}
	if !manager {
		return ErrInsufficientPermissions
	}
	return nil
}

func (s *examService) isManager(ctx context.Context, userID string) (bool, error) {
	user, err := s.repo.User().GetByID(ctx, userID)
	if err != nil {
		return false, fmt.Errorf("failed to get user: %w", err)
	}
	return user.Role.CanManageExams(), nil
}

func (s *examService) buildExamResponse(exam *models.Exam, userID string, manager bool) *ExamResponse {
	return &ExamResponse{
		Exam:      exam,
		CanEdit:   manager && exam.Status == models.ExamDraft,
		CanDelete: manager,
	}
}

func (s *examService) publishEvent(ctx context.Context, event *events.NotificationEvent) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.PublishNotificationEvent(ctx, event); err != nil {
		s.logger.Error("Failed to publish event",
			"event_type", event.Type,
			"error", err)
	}
}
