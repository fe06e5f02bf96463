package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/psikotes-platform/assessment-service/internal/events"
	"github.com/psikotes-platform/assessment-service/internal/instrument"
	"github.com/psikotes-platform/assessment-service/internal/models"
	"github.com/psikotes-platform/assessment-service/internal/repositories"
	"github.com/psikotes-platform/assessment-service/internal/validator"
	"github.com/psikotes-platform/assessment-service/internal/verification"
)

func newTestExamService(repo *mockRepository, now time.Time) (*examService, *events.MockEventPublisher) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	publisher := events.NewMockEventPublisher(logger)
	codes := verification.NewCodeStore(verification.DefaultTTL)

	svc := NewExamService(repo, logger, validator.New(), publisher, codes).(*examService)
	svc.now = func() time.Time { return now }
	return svc, publisher
}

func seedUsers(repo *mockRepository) {
	repo.users.byID["psych-1"] = &models.User{ID: "psych-1", Role: models.RolePsychologist}
	repo.users.byID["admin-1"] = &models.User{ID: "admin-1", Role: models.RoleAdmin}
	repo.users.byID["cand-1"] = &models.User{ID: "cand-1", Role: models.RoleCandidate}
}

func pssQuestions() []models.Question {
	questions := make([]models.Question, instrument.PssItemCount)
	for i := range questions {
		options := make([]models.Option, 5)
		for j := range options {
			options[j] = models.Option{Label: fmt.Sprint(j), Text: fmt.Sprintf("pilihan %d", j)}
		}
		questions[i] = models.Question{
			Text:    fmt.Sprintf("pernyataan %d", i+1),
			Order:   i + 1,
			Options: options,
		}
	}
	return questions
}

func TestCreateExam(t *testing.T) {
	ctx := context.Background()
	base := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)

	repo := newMockRepository()
	seedUsers(repo)
	svc, _ := newTestExamService(repo, base)

	resp, err := svc.Create(ctx, &CreateExamRequest{
		Title:           "Skala Stres",
		DurationMinutes: 30,
		Kind:            models.KindPss,
	}, "psych-1")
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	if resp.Status != models.ExamDraft {
		t.Errorf("new exam status = %s, want Draft", resp.Status)
	}
	if !resp.CanEdit || !resp.CanDelete {
		t.Errorf("creator permissions = edit:%v delete:%v, want both", resp.CanEdit, resp.CanDelete)
	}
	if resp.CreatedBy != "psych-1" {
		t.Errorf("CreatedBy = %s, want psych-1", resp.CreatedBy)
	}
}

func TestCreateExamRequiresManagerRole(t *testing.T) {
	ctx := context.Background()
	base := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)

	repo := newMockRepository()
	seedUsers(repo)
	svc, _ := newTestExamService(repo, base)

	_, err := svc.Create(ctx, &CreateExamRequest{
		Title:           "Skala Stres",
		DurationMinutes: 30,
		Kind:            models.KindPss,
	}, "cand-1")
	if !errors.Is(err, ErrInsufficientPermissions) {
		t.Errorf("Create() error = %v, want ErrInsufficientPermissions", err)
	}
}

func TestUpdateExamOnlyWhileDraft(t *testing.T) {
	ctx := context.Background()
	base := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)

	repo := newMockRepository()
	seedUsers(repo)
	exam := seedGeneralExam(repo, 30)
	svc, _ := newTestExamService(repo, base)

	title := "Judul Baru"
	_, err := svc.Update(ctx, exam.ID, &UpdateExamRequest{Title: &title}, "psych-1")
	if !errors.Is(err, ErrExamNotEditable) {
		t.Fatalf("Update() on active exam error = %v, want ErrExamNotEditable", err)
	}

	exam.Status = models.ExamDraft
	resp, err := svc.Update(ctx, exam.ID, &UpdateExamRequest{Title: &title}, "psych-1")
	if err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	if resp.Title != "Judul Baru" {
		t.Errorf("Title = %q, want %q", resp.Title, "Judul Baru")
	}
}

func TestUpdateStatusPublishValidation(t *testing.T) {
	ctx := context.Background()
	base := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)

	repo := newMockRepository()
	seedUsers(repo)
	svc, publisher := newTestExamService(repo, base)

	exam := &models.Exam{
		Title:           "Skala Stres",
		Kind:            models.KindPss,
		Status:          models.ExamDraft,
		DurationMinutes: 30,
		CreatedBy:       "psych-1",
	}
	repo.exams.Create(ctx, exam)

	// No questions at all
	err := svc.UpdateStatus(ctx, exam.ID, &UpdateExamStatusRequest{Status: models.ExamActive}, "psych-1")
	if !errors.Is(err, ErrExamNoQuestions) {
		t.Fatalf("publish empty exam error = %v, want ErrExamNoQuestions", err)
	}

	// Wrong item count for the instrument
	exam.Questions = pssQuestions()[:9]
	err = svc.UpdateStatus(ctx, exam.ID, &UpdateExamStatusRequest{Status: models.ExamActive}, "psych-1")
	if !IsValidation(err) {
		t.Fatalf("publish short pss exam error = %v, want validation error", err)
	}

	exam.Questions = pssQuestions()
	if err := svc.UpdateStatus(ctx, exam.ID, &UpdateExamStatusRequest{Status: models.ExamActive}, "psych-1"); err != nil {
		t.Fatalf("publish complete exam error = %v", err)
	}
	if exam.Status != models.ExamActive {
		t.Errorf("exam status = %s, want Active", exam.Status)
	}

	published := publisher.GetPublishedEvents()
	if len(published) != 1 || published[0].Type != events.EventExamPublished {
		t.Errorf("expected one %s event, got %v", events.EventExamPublished, published)
	}
}

func TestUpdateStatusAdminOverridesOwnership(t *testing.T) {
	ctx := context.Background()
	base := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)

	repo := newMockRepository()
	seedUsers(repo)
	exam := seedGeneralExam(repo, 30)
	svc, _ := newTestExamService(repo, base)

	if err := svc.UpdateStatus(ctx, exam.ID, &UpdateExamStatusRequest{Status: models.ExamArchived}, "admin-1"); err != nil {
		t.Fatalf("admin UpdateStatus() error = %v", err)
	}
	if exam.Status != models.ExamArchived {
		t.Errorf("exam status = %s, want Archived", exam.Status)
	}
}

func TestGetByIDHidesUnpublishedFromCandidates(t *testing.T) {
	ctx := context.Background()
	base := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)

	repo := newMockRepository()
	seedUsers(repo)
	exam := seedGeneralExam(repo, 30)
	exam.Status = models.ExamDraft
	svc, _ := newTestExamService(repo, base)

	if _, err := svc.GetByID(ctx, exam.ID, "cand-1"); !errors.Is(err, ErrExamNotFound) {
		t.Errorf("candidate GetByID() draft error = %v, want ErrExamNotFound", err)
	}

	resp, err := svc.GetByID(ctx, exam.ID, "psych-1")
	if err != nil {
		t.Fatalf("creator GetByID() error = %v", err)
	}
	if !resp.CanEdit {
		t.Error("creator should be able to edit a draft")
	}
}

func TestGetByIDWithQuestionsHidesAnswerKey(t *testing.T) {
	ctx := context.Background()
	base := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)

	repo := newMockRepository()
	seedUsers(repo)
	exam := seedGeneralExam(repo, 30)
	exam.Questions = []models.Question{
		{
			Text:  "ibukota Indonesia",
			Order: 1,
			Options: []models.Option{
				{Text: "Jakarta", IsCorrect: true},
				{Text: "Bandung"},
			},
		},
	}
	svc, _ := newTestExamService(repo, base)

	resp, err := svc.GetByIDWithQuestions(ctx, exam.ID, "cand-1")
	if err != nil {
		t.Fatalf("GetByIDWithQuestions() error = %v", err)
	}
	for _, q := range resp.Questions {
		for _, opt := range q.Options {
			if opt.IsCorrect {
				t.Errorf("option %q leaked IsCorrect to candidate", opt.Text)
			}
		}
	}
}

func TestListScopesCandidatesToActiveExams(t *testing.T) {
	ctx := context.Background()
	base := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)

	repo := newMockRepository()
	seedUsers(repo)
	seedGeneralExam(repo, 30)
	draft := seedGeneralExam(repo, 30)
	draft.Status = models.ExamDraft
	svc, _ := newTestExamService(repo, base)

	resp, err := svc.List(ctx, repositories.ExamFilters{}, "cand-1")
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if resp.Total != 1 {
		t.Errorf("candidate sees %d exams, want 1", resp.Total)
	}

	resp, err = svc.List(ctx, repositories.ExamFilters{}, "psych-1")
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if resp.Total != 2 {
		t.Errorf("psychologist sees %d exams, want 2", resp.Total)
	}
}

func TestExamDeletionFlow(t *testing.T) {
	ctx := context.Background()
	base := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)

	repo := newMockRepository()
	seedUsers(repo)
	exam := seedGeneralExam(repo, 30)
	attempt := seedAttempt(repo, exam.ID, "cand-1", base)
	svc, publisher := newTestExamService(repo, base)

	// Non-owners cannot even request a code
	if _, err := svc.RequestDeletion(ctx, exam.ID, "cand-1"); !IsUnauthorized(err) {
		t.Fatalf("candidate RequestDeletion() error = %v, want permission error", err)
	}

	code, err := svc.RequestDeletion(ctx, exam.ID, "psych-1")
	if err != nil {
		t.Fatalf("RequestDeletion() error = %v", err)
	}
	if code.ExamID != exam.ID || len(code.Code) != 6 {
		t.Fatalf("deletion code = %+v", code)
	}
	if !code.ExpiresAt.Equal(base.Add(verification.DefaultTTL)) {
		t.Errorf("ExpiresAt = %v, want %v", code.ExpiresAt, base.Add(verification.DefaultTTL))
	}

	wrong := "000000"
	if wrong == code.Code {
		wrong = "000001"
	}
	if err := svc.ConfirmDeletion(ctx, exam.ID, wrong, "psych-1"); !errors.Is(err, ErrInvalidDeletionCode) {
		t.Fatalf("wrong code error = %v, want ErrInvalidDeletionCode", err)
	}

	// The wrong guess consumed nothing; the issued code still works
	if err := svc.ConfirmDeletion(ctx, exam.ID, code.Code, "psych-1"); err != nil {
		t.Fatalf("ConfirmDeletion() error = %v", err)
	}

	if _, ok := repo.exams.byID[exam.ID]; ok {
		t.Error("exam still present after confirmed deletion")
	}
	if attempt.Status != models.AttemptDeleted {
		t.Errorf("attempt status = %s, want deleted", attempt.Status)
	}

	published := publisher.GetPublishedEvents()
	if len(published) != 1 || published[0].Type != events.EventExamDeleted {
		t.Errorf("expected one %s event, got %v", events.EventExamDeleted, published)
	}
}
