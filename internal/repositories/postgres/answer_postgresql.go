package postgres

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/psikotes-platform/assessment-service/internal/models"
	"github.com/psikotes-platform/assessment-service/internal/repositories"
)

type AnswerPostgreSQL struct {
	db *gorm.DB
}

func NewAnswerPostgreSQL(db *gorm.DB) repositories.AnswerRepository {
	return &AnswerPostgreSQL{db: db}
}

func (r *AnswerPostgreSQL) UpsertBatch(ctx context.Context, attemptID uint, answers []repositories.AnswerUpsert, answeredAt time.Time) (int, error) {
	if len(answers) == 0 {
		return 0, nil
	}

	rows := make([]models.Answer, len(answers))
	for i, ans := range answers {
		rows[i] = models.Answer{
			AttemptID:  attemptID,
			QuestionID: ans.QuestionID,
			OptionID:   ans.OptionID,
			AnsweredAt: answeredAt,
		}
	}

	// Re-saving a question overwrites the previous selection.
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "attempt_id"}, {Name: "question_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"option_id", "answered_at"}),
		}).
		Create(&rows).Error
	if err != nil {
		return 0, err
	}

	return len(rows), nil
}

func (r *AnswerPostgreSQL) GetByAttempt(ctx context.Context, attemptID uint) ([]*models.Answer, error) {
	var answers []*models.Answer
	err := r.db.WithContext(ctx).
		Where("attempt_id = ?", attemptID).
		Order("question_id ASC").
		Find(&answers).Error
	return answers, err
}

func (r *AnswerPostgreSQL) CountByAttempt(ctx context.Context, attemptID uint) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Answer{}).
		Where("attempt_id = ?", attemptID).
		Count(&count).Error
	return count, err
}

func (r *AnswerPostgreSQL) CountCorrect(ctx context.Context, attemptID uint) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Answer{}).
		Joins("JOIN options ON options.id = answers.option_id").
		Where("answers.attempt_id = ? AND options.is_correct", attemptID).
		Count(&count).Error
	return count, err
}
