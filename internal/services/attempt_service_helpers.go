package services

import (
	"context"
	"fmt"
	"time"

	"github.com/psikotes-platform/assessment-service/internal/events"
	"github.com/psikotes-platform/assessment-service/internal/models"
	"github.com/psikotes-platform/assessment-service/internal/repositories"
)

// getOwnedAttempt loads the attempt and its exam, verifying the exam
// reference and the caller's ownership. Every submission path shares this
// validation order: existence, exam match, ownership.
func getOwnedAttempt(ctx context.Context, repo repositories.Repository, attemptID, examID uint, candidateID string) (*models.ExamAttempt, *models.Exam, error) {
	attempt, err := repo.Attempt().GetByID(ctx, attemptID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, nil, ErrAttemptNotFound
		}
		return nil, nil, fmt.Errorf("failed to get attempt: %w", err)
	}

	if attempt.ExamID != examID {
		return nil, nil, ErrAttemptNotFound
	}

	if attempt.CandidateID != candidateID {
		return nil, nil, ErrAttemptAccessDenied
	}

	exam, err := repo.Exam().GetByID(ctx, attempt.ExamID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, nil, ErrExamNotFound
		}
		return nil, nil, fmt.Errorf("failed to get exam: %w", err)
	}

	return attempt, exam, nil
}

// expireAttempt performs the lazy auto-submit after a write landed outside
// the grace window. The conditional update keeps a concurrent submit or
// sweep from completing the attempt twice.
func (s *attemptService) expireAttempt(ctx context.Context, attemptID uint, endedAt time.Time) {
	attempt, err := s.repo.Attempt().GetByID(ctx, attemptID)
	if err != nil {
		s.logger.Error("Failed to load attempt for expiry", "attempt_id", attemptID, "error", err)
		return
	}

	exam, err := s.repo.Exam().GetByID(ctx, attempt.ExamID)
	if err != nil {
		s.logger.Error("Failed to load exam for expiry", "attempt_id", attemptID, "error", err)
		return
	}

	score := attempt.Score
	if exam.Kind == models.KindGeneral {
		correct, err := s.repo.Answer().CountCorrect(ctx, attemptID)
		if err != nil {
			s.logger.Error("Failed to count correct answers", "attempt_id", attemptID, "error", err)
			return
		}
		score = int(correct)
	}

	completed, err := s.repo.Attempt().CompleteIfInProgress(ctx, attemptID, endedAt, score)
	if err != nil {
		s.logger.Error("Failed to auto-complete expired attempt", "attempt_id", attemptID, "error", err)
		return
	}
	if !completed {
		// Someone else already finished it
		return
	}

	s.logger.Info("Attempt auto-completed after expiry",
		"attempt_id", attemptID,
		"exam_id", attempt.ExamID,
		"score", score)

	s.publishEvent(ctx, events.NewAttemptExpiredEvent(
		attemptID, attempt.ExamID, exam.Title, attempt.CandidateID, endedAt, score))
}

// canAccessAttempt allows the attempt's owner and exam-managing roles.
func (s *attemptService) canAccessAttempt(ctx context.Context, attempt *models.ExamAttempt, userID string) error {
	if attempt.CandidateID == userID {
		return nil
	}

	manager, err := s.isManager(ctx, userID)
	if err != nil {
		return err
	}
	if !manager {
		return ErrAttemptAccessDenied
	}
	return nil
}

func (s *attemptService) isManager(ctx context.Context, userID string) (bool, error) {
	user, err := s.repo.User().GetByID(ctx, userID)
	if err != nil {
		return false, fmt.Errorf("failed to get user: %w", err)
	}
	return user.Role.CanManageExams(), nil
}

func (s *attemptService) buildAttemptResponse(attempt *models.ExamAttempt, durationMinutes int) *AttemptResponse {
	deadline := attempt.Deadline(durationMinutes)

	remaining := 0
	if attempt.Status == models.AttemptInProgress {
		if d := deadline.Sub(s.now()); d > 0 {
			remaining = int(d.Seconds())
		}
	}

	return &AttemptResponse{
		ExamAttempt:      attempt,
		Deadline:         deadline,
		SecondsRemaining: remaining,
	}
}

func (s *attemptService) publishEvent(ctx context.Context, event *events.NotificationEvent) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.PublishNotificationEvent(ctx, event); err != nil {
		s.logger.Error("Failed to publish event",
			"event_type", event.Type,
			"error", err)
	}
}
