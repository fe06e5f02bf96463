package postgres

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/psikotes-platform/assessment-service/internal/cache"
	"github.com/psikotes-platform/assessment-service/internal/models"
	"github.com/psikotes-platform/assessment-service/internal/repositories"
)

type AttemptPostgreSQL struct {
	db           *gorm.DB
	helpers      *SharedHelpers
	cacheManager *cache.CacheManager
}

func NewAttemptPostgreSQL(db *gorm.DB, redisClient *redis.Client) repositories.AttemptRepository {
	return &AttemptPostgreSQL{
		db:           db,
		helpers:      NewSharedHelpers(db),
		cacheManager: cache.NewCacheManager(redisClient),
	}
}

func (a *AttemptPostgreSQL) Create(ctx context.Context, attempt *models.ExamAttempt) error {
	return a.db.WithContext(ctx).Create(attempt).Error
}

func (a *AttemptPostgreSQL) GetByID(ctx context.Context, id uint) (*models.ExamAttempt, error) {
	var attempt models.ExamAttempt
	if err := a.db.WithContext(ctx).First(&attempt, id).Error; err != nil {
		return nil, err
	}
	return &attempt, nil
}

func (a *AttemptPostgreSQL) GetByIDWithDetails(ctx context.Context, id uint) (*models.ExamAttempt, error) {
	var attempt models.ExamAttempt
	if err := a.db.WithContext(ctx).
		Preload("Exam").
		Preload("Answers").
		First(&attempt, id).Error; err != nil {
		return nil, err
	}
	return &attempt, nil
}

func (a *AttemptPostgreSQL) Update(ctx context.Context, attempt *models.ExamAttempt) error {
	return a.db.WithContext(ctx).Save(attempt).Error
}

func (a *AttemptPostgreSQL) List(ctx context.Context, filters repositories.AttemptFilters) ([]*models.ExamAttempt, int64, error) {
	var attempts []*models.ExamAttempt
	var total int64

	// apply filters first
	query := a.db.WithContext(ctx).Model(&models.ExamAttempt{})
	query = a.helpers.ApplyAttemptFilters(query, filters)

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	// then apply pagination and sorting
	query = a.helpers.ApplyPaginationAndSort(query, filters.SortBy, filters.SortOrder, filters.Limit, filters.Offset)

	if err := query.Preload("Exam").Find(&attempts).Error; err != nil {
		return nil, 0, err
	}

	return attempts, total, nil
}

func (a *AttemptPostgreSQL) GetActiveAttempt(ctx context.Context, examID uint, candidateID string) (*models.ExamAttempt, error) {
	var attempt models.ExamAttempt
	err := a.db.WithContext(ctx).
		Where("exam_id = ? AND candidate_id = ? AND status = ?",
			examID, candidateID, models.AttemptInProgress).
		Order("started_at DESC").
		First(&attempt).Error
	if err != nil {
		return nil, err
	}
	return &attempt, nil
}

func (a *AttemptPostgreSQL) CompleteIfInProgress(ctx context.Context, id uint, endedAt time.Time, score int) (bool, error) {
	result := a.db.WithContext(ctx).
		Model(&models.ExamAttempt{}).
		Where("id = ? AND status = ?", id, models.AttemptInProgress).
		Updates(map[string]interface{}{
			"status":   models.AttemptCompleted,
			"ended_at": endedAt,
			"score":    score,
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (a *AttemptPostgreSQL) MarkDeletedByExam(ctx context.Context, examID uint) (int64, error) {
	result := a.db.WithContext(ctx).
		Model(&models.ExamAttempt{}).
		Where("exam_id = ? AND status <> ?", examID, models.AttemptDeleted).
		Update("status", models.AttemptDeleted)
	return result.RowsAffected, result.Error
}

func (a *AttemptPostgreSQL) Finalize(ctx context.Context, attempt *models.ExamAttempt) (bool, error) {
	result := a.db.WithContext(ctx).
		Model(&models.ExamAttempt{}).
		Where("id = ? AND status = ?", attempt.ID, models.AttemptInProgress).
		Updates(map[string]interface{}{
			"status":     models.AttemptCompleted,
			"ended_at":   attempt.EndedAt,
			"score":      attempt.Score,
			"result":     attempt.Result,
			"category":   attempt.Category,
			"conclusion": attempt.Conclusion,
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// sweptAttemptRow mirrors the RETURNING clause of the sweep statement.
type sweptAttemptRow struct {
	ID          uint
	ExamID      uint
	CandidateID string
	Title       string
	Score       int
}

func (a *AttemptPostgreSQL) SweepExpired(ctx context.Context, cutoff time.Time) ([]repositories.ExpiredAttempt, error) {
	// Single statement so concurrent sweepers and submitters cannot close
	// the same attempt twice. The deadline is the nominal window end, not
	// the sweep time, so late sweeps record the same ended_at.
	const sweepSQL = `
		UPDATE exam_attempts AS a
		SET status     = ?,
		    ended_at   = a.started_at + make_interval(mins => e.duration_minutes),
		    score      = CASE WHEN e.kind = ? THEN (
		        SELECT COUNT(*)
		        FROM answers ans
		        JOIN options o ON o.id = ans.option_id
		        WHERE ans.attempt_id = a.id AND o.is_correct
		    ) ELSE a.score END,
		    updated_at = NOW()
		FROM exams AS e
		WHERE e.id = a.exam_id
		  AND a.status = ?
		  AND a.started_at + make_interval(mins => e.duration_minutes) < ?
		RETURNING a.id, a.exam_id, a.candidate_id, e.title, a.score`

	var rows []sweptAttemptRow
	err := a.db.WithContext(ctx).
		Raw(sweepSQL, models.AttemptCompleted, models.KindGeneral, models.AttemptInProgress, cutoff).
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	expired := make([]repositories.ExpiredAttempt, len(rows))
	for i, row := range rows {
		expired[i] = repositories.ExpiredAttempt{
			AttemptID:   row.ID,
			ExamID:      row.ExamID,
			CandidateID: row.CandidateID,
			ExamTitle:   row.Title,
			Score:       row.Score,
		}
	}
	return expired, nil
}
