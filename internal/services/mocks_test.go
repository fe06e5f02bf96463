package services

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/psikotes-platform/assessment-service/internal/models"
	"github.com/psikotes-platform/assessment-service/internal/repositories"
)

// mockRepository is an in-memory Repository for service tests.
type mockRepository struct {
	exams    *mockExamRepository
	attempts *mockAttemptRepository
	answers  *mockAnswerRepository
	users    *mockUserRepository
}

func newMockRepository() *mockRepository {
	exams := &mockExamRepository{byID: make(map[uint]*models.Exam)}
	answers := &mockAnswerRepository{byAttempt: make(map[uint]map[uint]uint)}
	return &mockRepository{
		exams:    exams,
		attempts: &mockAttemptRepository{byID: make(map[uint]*models.ExamAttempt), exams: exams, answers: answers},
		answers:  answers,
		users:    &mockUserRepository{byID: make(map[string]*models.User)},
	}
}

func (m *mockRepository) Exam() repositories.ExamRepository       { return m.exams }
func (m *mockRepository) Attempt() repositories.AttemptRepository { return m.attempts }
func (m *mockRepository) Answer() repositories.AnswerRepository   { return m.answers }
func (m *mockRepository) User() repositories.UserRepository       { return m.users }

func (m *mockRepository) WithTransaction(ctx context.Context, fn func(repositories.Repository) error) error {
	return fn(m)
}
func (m *mockRepository) Ping(ctx context.Context) error { return nil }
func (m *mockRepository) Close() error                   { return nil }

// ===== EXAMS =====

type mockExamRepository struct {
	byID   map[uint]*models.Exam
	nextID uint
}

func (m *mockExamRepository) Create(ctx context.Context, exam *models.Exam) error {
	m.nextID++
	exam.ID = m.nextID
	m.byID[exam.ID] = exam
	return nil
}

func (m *mockExamRepository) GetByID(ctx context.Context, id uint) (*models.Exam, error) {
	exam, ok := m.byID[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return exam, nil
}

func (m *mockExamRepository) GetByIDWithQuestions(ctx context.Context, id uint) (*models.Exam, error) {
	return m.GetByID(ctx, id)
}

func (m *mockExamRepository) Update(ctx context.Context, exam *models.Exam) error {
	m.byID[exam.ID] = exam
	return nil
}

func (m *mockExamRepository) UpdateStatus(ctx context.Context, id uint, status models.ExamStatus) error {
	exam, ok := m.byID[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	exam.Status = status
	return nil
}

func (m *mockExamRepository) Delete(ctx context.Context, id uint) error {
	if _, ok := m.byID[id]; !ok {
		return gorm.ErrRecordNotFound
	}
	delete(m.byID, id)
	return nil
}

func (m *mockExamRepository) List(ctx context.Context, filters repositories.ExamFilters) ([]*models.Exam, int64, error) {
	var exams []*models.Exam
	for _, exam := range m.byID {
		if filters.Status != nil && exam.Status != *filters.Status {
			continue
		}
		if filters.Kind != nil && exam.Kind != *filters.Kind {
			continue
		}
		exams = append(exams, exam)
	}
	return exams, int64(len(exams)), nil
}

func (m *mockExamRepository) ExistsByID(ctx context.Context, id uint) (bool, error) {
	_, ok := m.byID[id]
	return ok, nil
}

func (m *mockExamRepository) CountAttempts(ctx context.Context, examID uint) (int64, error) {
	return 0, nil
}

// ===== ATTEMPTS =====

type mockAttemptRepository struct {
	byID   map[uint]*models.ExamAttempt
	nextID uint

	exams   *mockExamRepository
	answers *mockAnswerRepository

	sweepErr    error
	sweepCutoff time.Time
}

func (m *mockAttemptRepository) Create(ctx context.Context, attempt *models.ExamAttempt) error {
	m.nextID++
	attempt.ID = m.nextID
	m.byID[attempt.ID] = attempt
	return nil
}

func (m *mockAttemptRepository) GetByID(ctx context.Context, id uint) (*models.ExamAttempt, error) {
	attempt, ok := m.byID[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return attempt, nil
}

func (m *mockAttemptRepository) GetByIDWithDetails(ctx context.Context, id uint) (*models.ExamAttempt, error) {
	return m.GetByID(ctx, id)
}

func (m *mockAttemptRepository) Update(ctx context.Context, attempt *models.ExamAttempt) error {
	m.byID[attempt.ID] = attempt
	return nil
}

func (m *mockAttemptRepository) List(ctx context.Context, filters repositories.AttemptFilters) ([]*models.ExamAttempt, int64, error) {
	var attempts []*models.ExamAttempt
	for _, attempt := range m.byID {
		if filters.CandidateID != nil && attempt.CandidateID != *filters.CandidateID {
			continue
		}
		if filters.Status != nil && attempt.Status != *filters.Status {
			continue
		}
		attempts = append(attempts, attempt)
	}
	return attempts, int64(len(attempts)), nil
}

func (m *mockAttemptRepository) GetActiveAttempt(ctx context.Context, examID uint, candidateID string) (*models.ExamAttempt, error) {
	for _, attempt := range m.byID {
		if attempt.ExamID == examID && attempt.CandidateID == candidateID && attempt.Status == models.AttemptInProgress {
			return attempt, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockAttemptRepository) CompleteIfInProgress(ctx context.Context, id uint, endedAt time.Time, score int) (bool, error) {
	attempt, ok := m.byID[id]
	if !ok || attempt.Status != models.AttemptInProgress {
		return false, nil
	}
	attempt.Status = models.AttemptCompleted
	attempt.EndedAt = &endedAt
	attempt.Score = score
	return true, nil
}

func (m *mockAttemptRepository) Finalize(ctx context.Context, attempt *models.ExamAttempt) (bool, error) {
	stored, ok := m.byID[attempt.ID]
	if !ok || stored.Status != models.AttemptInProgress {
		return false, nil
	}
	m.byID[attempt.ID] = attempt
	return true, nil
}

func (m *mockAttemptRepository) MarkDeletedByExam(ctx context.Context, examID uint) (int64, error) {
	var n int64
	for _, attempt := range m.byID {
		if attempt.ExamID == examID && attempt.Status != models.AttemptDeleted {
			attempt.Status = models.AttemptDeleted
			n++
		}
	}
	return n, nil
}

// SweepExpired mirrors the production statement: only in-progress attempts
// strictly past their nominal deadline transition, ended_at records that
// deadline, and general-kind attempts get the correct-option count.
func (m *mockAttemptRepository) SweepExpired(ctx context.Context, cutoff time.Time) ([]repositories.ExpiredAttempt, error) {
	m.sweepCutoff = cutoff
	if m.sweepErr != nil {
		return nil, m.sweepErr
	}

	var swept []repositories.ExpiredAttempt
	for _, attempt := range m.byID {
		if attempt.Status != models.AttemptInProgress {
			continue
		}
		exam, ok := m.exams.byID[attempt.ExamID]
		if !ok {
			continue
		}
		deadline := attempt.StartedAt.Add(time.Duration(exam.DurationMinutes) * time.Minute)
		if !deadline.Before(cutoff) {
			continue
		}

		ended := deadline
		attempt.Status = models.AttemptCompleted
		attempt.EndedAt = &ended
		if exam.Kind == models.KindGeneral {
			attempt.Score = int(m.answers.correct[attempt.ID])
		}

		swept = append(swept, repositories.ExpiredAttempt{
			AttemptID:   attempt.ID,
			ExamID:      attempt.ExamID,
			CandidateID: attempt.CandidateID,
			ExamTitle:   exam.Title,
			Score:       attempt.Score,
		})
	}
	return swept, nil
}

// ===== ANSWERS =====

type mockAnswerRepository struct {
	byAttempt map[uint]map[uint]uint // attemptID -> questionID -> optionID
	correct   map[uint]int64         // attemptID -> correct count
}

func (m *mockAnswerRepository) UpsertBatch(ctx context.Context, attemptID uint, answers []repositories.AnswerUpsert, answeredAt time.Time) (int, error) {
	if m.byAttempt[attemptID] == nil {
		m.byAttempt[attemptID] = make(map[uint]uint)
	}
	for _, ans := range answers {
		m.byAttempt[attemptID][ans.QuestionID] = ans.OptionID
	}
	return len(answers), nil
}

func (m *mockAnswerRepository) GetByAttempt(ctx context.Context, attemptID uint) ([]*models.Answer, error) {
	var answers []*models.Answer
	for questionID, optionID := range m.byAttempt[attemptID] {
		answers = append(answers, &models.Answer{
			AttemptID:  attemptID,
			QuestionID: questionID,
			OptionID:   optionID,
		})
	}
	return answers, nil
}

func (m *mockAnswerRepository) CountByAttempt(ctx context.Context, attemptID uint) (int64, error) {
	return int64(len(m.byAttempt[attemptID])), nil
}

func (m *mockAnswerRepository) CountCorrect(ctx context.Context, attemptID uint) (int64, error) {
	return m.correct[attemptID], nil
}

// ===== USERS =====

type mockUserRepository struct {
	byID map[string]*models.User
}

func (m *mockUserRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	user, ok := m.byID[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return user, nil
}

func (m *mockUserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	for _, user := range m.byID {
		if user.Email == email {
			return user, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockUserRepository) GetByIDs(ctx context.Context, ids []string) ([]*models.User, error) {
	var users []*models.User
	for _, id := range ids {
		if user, ok := m.byID[id]; ok {
			users = append(users, user)
		}
	}
	return users, nil
}

func (m *mockUserRepository) List(ctx context.Context, filters repositories.UserFilters) ([]*models.User, int64, error) {
	var users []*models.User
	for _, user := range m.byID {
		users = append(users, user)
	}
	return users, int64(len(users)), nil
}

func (m *mockUserRepository) ExistsByID(ctx context.Context, id string) (bool, error) {
	_, ok := m.byID[id]
	return ok, nil
}

func (m *mockUserRepository) HasRole(ctx context.Context, id string, role models.UserRole) (bool, error) {
	user, ok := m.byID[id]
	if !ok {
		return false, gorm.ErrRecordNotFound
	}
	return user.Role == role, nil
}
