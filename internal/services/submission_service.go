package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"gorm.io/datatypes"

	"github.com/psikotes-platform/assessment-service/internal/events"
	"github.com/psikotes-platform/assessment-service/internal/instrument"
	"github.com/psikotes-platform/assessment-service/internal/models"
	"github.com/psikotes-platform/assessment-service/internal/repositories"
	"github.com/psikotes-platform/assessment-service/internal/validator"
)

type submissionService struct {
	repo      repositories.Repository
	logger    *slog.Logger
	validator *validator.Validator
	publisher events.EventPublisher

	// strictPss makes the server recompute the PSS total from the raw
	// answers instead of trusting the client-computed score.
	strictPss bool

	now func() time.Time
}

func NewSubmissionService(repo repositories.Repository, logger *slog.Logger, validator *validator.Validator, publisher events.EventPublisher, strictPss bool) SubmissionService {
	return &submissionService{
		repo:      repo,
		logger:    logger,
		validator: validator,
		publisher: publisher,
		strictPss: strictPss,
		now:       time.Now,
	}
}

// ===== PSS =====

func (s *submissionService) SubmitPss(ctx context.Context, attemptID, examID uint, req *SubmitPssRequest, candidateID string) (*AttemptResponse, error) {
	s.logger.Info("Submitting PSS attempt",
		"attempt_id", attemptID,
		"exam_id", examID,
		"candidate_id", candidateID)

	if err := s.validator.Validate(req); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	for item, value := range req.Answers {
		if value < instrument.PssMinValue || value > instrument.PssMaxValue {
			return nil, NewValidationError("answers",
				fmt.Sprintf("item %d value out of range", item), value)
		}
	}

	score := req.Score
	if s.strictPss {
		recomputed, err := s.recomputePssScore(req.Answers)
		if err != nil {
			return nil, err
		}
		if recomputed != req.Score {
			s.logger.Warn("PSS score mismatch",
				"attempt_id", attemptID,
				"submitted", req.Score,
				"recomputed", recomputed)
			return nil, ErrScoreRecomputeMismatch
		}
		score = recomputed
	}

	// The submitted category must sit in the band the score implies
	band, err := instrument.PssCategory(score)
	if err != nil {
		return nil, NewValidationError("score", "out of instrument range", score)
	}
	if band != req.Category {
		return nil, ErrScoreBandMismatch
	}

	var attempt *models.ExamAttempt
	var exam *models.Exam
	err = s.repo.WithTransaction(ctx, func(tx repositories.Repository) error {
		attempt, exam, err = getOwnedAttempt(ctx, tx, attemptID, examID, candidateID)
		if err != nil {
			return err
		}

		if exam.Kind != models.KindPss {
			return ErrExamWrongKind
		}

		if attempt.Status != models.AttemptInProgress {
			return ErrAttemptAlreadySubmitted
		}

		blob, err := json.Marshal(models.PssResult{
			Type:     models.ResultTypePss,
			Answers:  req.Answers,
			Score:    score,
			Category: req.Category,
		})
		if err != nil {
			return fmt.Errorf("failed to marshal result: %w", err)
		}

		endedAt := s.now()
		category := req.Category

		// Finalize on a copy: the loaded entity must stay untouched until
		// the conditional write confirms this caller won the transition.
		finalized := *attempt
		finalized.Status = models.AttemptCompleted
		finalized.EndedAt = &endedAt
		finalized.Score = score
		finalized.Result = datatypes.JSON(blob)
		finalized.Category = &category

		completed, err := tx.Attempt().Finalize(ctx, &finalized)
		if err != nil {
			return fmt.Errorf("failed to finalize attempt: %w", err)
		}
		if !completed {
			return ErrAttemptAlreadySubmitted
		}
		attempt = &finalized
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("PSS attempt completed",
		"attempt_id", attemptID,
		"score", score,
		"category", req.Category)

	s.publishCompleted(ctx, attempt, exam.Title)

	return s.buildResponse(attempt), nil
}

// recomputePssScore totals the raw answers through the instrument tables,
// reversing items 4, 5, 7 and 8. The batch must cover every item exactly
// once.
func (s *submissionService) recomputePssScore(answers map[uint]int) (int, error) {
	if len(answers) != instrument.PssItemCount {
		return 0, ErrIncompleteAnswers
	}

	values := make([]int, instrument.PssItemCount)
	for item := uint(1); item <= instrument.PssItemCount; item++ {
		value, ok := answers[item]
		if !ok {
			return 0, ErrIncompleteAnswers
		}
		values[item-1] = value
	}
	return instrument.PssScore(values)
}

// ===== SRQ-29 =====

func (s *submissionService) SubmitSrq(ctx context.Context, attemptID, examID uint, req *SubmitSrqRequest, candidateID string) (*AttemptResponse, error) {
	s.logger.Info("Submitting SRQ attempt",
		"attempt_id", attemptID,
		"exam_id", examID,
		"candidate_id", candidateID)

	if err := s.validator.Validate(req); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	for item, value := range req.Answers {
		if value != instrument.SrqYes && value != instrument.SrqNo {
			return nil, NewValidationError("answers",
				fmt.Sprintf("item %d must be %s or %s", item, instrument.SrqYes, instrument.SrqNo), value)
		}
	}

	// Score is always server-derived for SRQ
	score := instrument.SrqYesCount(req.Answers)

	outcome := models.SrqOutcome{
		SrqFlags: models.SrqFlags{
			Anxiety:   req.Result.Anxiety,
			Substance: req.Result.Substance,
			Psychotic: req.Result.Psychotic,
			Ptsd:      req.Result.Ptsd,
		},
		Conclusion: req.Result.Conclusion,
		ResultText: instrument.SrqConclusionText(req.Result.Conclusion),
	}

	var attempt *models.ExamAttempt
	var exam *models.Exam
	err := s.repo.WithTransaction(ctx, func(tx repositories.Repository) error {
		var err error
		attempt, exam, err = getOwnedAttempt(ctx, tx, attemptID, examID, candidateID)
		if err != nil {
			return err
		}

		if exam.Kind != models.KindSrq29 {
			return ErrExamWrongKind
		}

		if attempt.Status != models.AttemptInProgress {
			return ErrAttemptAlreadySubmitted
		}

		blob, err := json.Marshal(models.SrqResult{
			Type:    models.ResultTypeSrq,
			Answers: req.Answers,
			Result:  outcome,
		})
		if err != nil {
			return fmt.Errorf("failed to marshal result: %w", err)
		}

		endedAt := s.now()
		conclusion := req.Result.Conclusion

		finalized := *attempt
		finalized.Status = models.AttemptCompleted
		finalized.EndedAt = &endedAt
		finalized.Score = score
		finalized.Result = datatypes.JSON(blob)
		finalized.Conclusion = &conclusion

		completed, err := tx.Attempt().Finalize(ctx, &finalized)
		if err != nil {
			return fmt.Errorf("failed to finalize attempt: %w", err)
		}
		if !completed {
			return ErrAttemptAlreadySubmitted
		}
		attempt = &finalized
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("SRQ attempt completed",
		"attempt_id", attemptID,
		"score", score,
		"conclusion", req.Result.Conclusion)

	s.publishCompleted(ctx, attempt, exam.Title)

	return s.buildResponse(attempt), nil
}

// ===== GENERAL =====

func (s *submissionService) SubmitGeneral(ctx context.Context, attemptID, examID uint, candidateID string) (*AttemptResponse, error) {
	s.logger.Info("Submitting general attempt",
		"attempt_id", attemptID,
		"exam_id", examID,
		"candidate_id", candidateID)

	var attempt *models.ExamAttempt
	var exam *models.Exam
	err := s.repo.WithTransaction(ctx, func(tx repositories.Repository) error {
		var err error
		attempt, exam, err = getOwnedAttempt(ctx, tx, attemptID, examID, candidateID)
		if err != nil {
			return err
		}

		if exam.Kind != models.KindGeneral {
			return ErrExamWrongKind
		}

		if attempt.Status != models.AttemptInProgress {
			return ErrAttemptAlreadySubmitted
		}

		correct, err := tx.Answer().CountCorrect(ctx, attemptID)
		if err != nil {
			return fmt.Errorf("failed to count correct answers: %w", err)
		}

		endedAt := s.now()

		finalized := *attempt
		finalized.Status = models.AttemptCompleted
		finalized.EndedAt = &endedAt
		finalized.Score = int(correct)

		completed, err := tx.Attempt().Finalize(ctx, &finalized)
		if err != nil {
			return fmt.Errorf("failed to finalize attempt: %w", err)
		}
		if !completed {
			return ErrAttemptAlreadySubmitted
		}
		attempt = &finalized
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("General attempt completed",
		"attempt_id", attemptID,
		"score", attempt.Score)

	s.publishCompleted(ctx, attempt, exam.Title)

	return s.buildResponse(attempt), nil
}

// ===== HELPERS =====

func (s *submissionService) buildResponse(attempt *models.ExamAttempt) *AttemptResponse {
	deadline := time.Time{}
	if attempt.EndedAt != nil {
		deadline = *attempt.EndedAt
	}
	return &AttemptResponse{
		ExamAttempt:      attempt,
		Deadline:         deadline,
		SecondsRemaining: 0,
	}
}

// publishCompleted emits the attempt.completed notification. The exam title
// comes from the transaction's loaded exam; attempts are not fetched with
// their exam preloaded.
func (s *submissionService) publishCompleted(ctx context.Context, attempt *models.ExamAttempt, examTitle string) {
	if s.publisher == nil || attempt == nil {
		return
	}

	completedAt := s.now()
	if attempt.EndedAt != nil {
		completedAt = *attempt.EndedAt
	}

	event := events.NewAttemptCompletedEvent(
		attempt.ID, attempt.ExamID, examTitle, attempt.CandidateID,
		completedAt, attempt.Score, attempt.Category, attempt.Conclusion)

	if err := s.publisher.PublishNotificationEvent(ctx, event); err != nil {
		s.logger.Error("Failed to publish event",
			"event_type", event.Type,
			"error", err)
	}
}
