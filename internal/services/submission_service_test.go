package services

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/psikotes-platform/assessment-service/internal/events"
	"github.com/psikotes-platform/assessment-service/internal/instrument"
	"github.com/psikotes-platform/assessment-service/internal/models"
	"github.com/psikotes-platform/assessment-service/internal/validator"
)

func newTestSubmissionService(repo *mockRepository, now time.Time, strictPss bool) (*submissionService, *events.MockEventPublisher) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	publisher := events.NewMockEventPublisher(logger)

	svc := NewSubmissionService(repo, logger, validator.New(), publisher, strictPss).(*submissionService)
	svc.now = func() time.Time { return now }
	return svc, publisher
}

func seedInstrumentExam(repo *mockRepository, kind models.InstrumentKind) *models.Exam {
	exam := &models.Exam{
		Title:           "Skrining " + string(kind),
		Kind:            kind,
		Status:          models.ExamActive,
		DurationMinutes: 30,
		CreatedBy:       "psych-1",
	}
	repo.exams.Create(context.Background(), exam)
	return exam
}

func pssAnswers(value int) map[uint]int {
	answers := make(map[uint]int, instrument.PssItemCount)
	for item := uint(1); item <= instrument.PssItemCount; item++ {
		answers[item] = value
	}
	return answers
}

func srqAnswers(yesCount int) map[uint]string {
	answers := make(map[uint]string, instrument.SrqItemCount)
	for item := uint(1); item <= instrument.SrqItemCount; item++ {
		if int(item) <= yesCount {
			answers[item] = instrument.SrqYes
		} else {
			answers[item] = instrument.SrqNo
		}
	}
	return answers
}

func TestSubmitPss(t *testing.T) {
	ctx := context.Background()
	base := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)

	repo := newMockRepository()
	exam := seedInstrumentExam(repo, models.KindPss)
	attempt := seedAttempt(repo, exam.ID, "cand-1", base)
	svc, publisher := newTestSubmissionService(repo, base.Add(10*time.Minute), false)

	resp, err := svc.SubmitPss(ctx, attempt.ID, exam.ID, &SubmitPssRequest{
		Answers:  pssAnswers(2),
		Score:    20,
		Category: instrument.PssCategoryModerate,
	}, "cand-1")
	if err != nil {
		t.Fatalf("SubmitPss() error = %v", err)
	}

	if resp.Status != models.AttemptCompleted {
		t.Errorf("status = %s, want completed", resp.Status)
	}
	if resp.Score != 20 {
		t.Errorf("score = %d, want 20", resp.Score)
	}
	if resp.Category == nil || *resp.Category != instrument.PssCategoryModerate {
		t.Errorf("category = %v, want %s", resp.Category, instrument.PssCategoryModerate)
	}
	if resp.EndedAt == nil || !resp.EndedAt.Equal(base.Add(10*time.Minute)) {
		t.Errorf("EndedAt = %v, want submit time", resp.EndedAt)
	}

	var stored models.PssResult
	if err := json.Unmarshal(resp.Result, &stored); err != nil {
		t.Fatalf("failed to decode stored result: %v", err)
	}
	if stored.Type != models.ResultTypePss || stored.Score != 20 || len(stored.Answers) != instrument.PssItemCount {
		t.Errorf("stored result = %+v", stored)
	}

	published := publisher.GetPublishedEvents()
	if len(published) != 1 || published[0].Type != events.EventAttemptCompleted {
		t.Fatalf("expected one %s event, got %v", events.EventAttemptCompleted, published)
	}
	data, ok := published[0].Data.(events.AttemptCompletedEvent)
	if !ok {
		t.Fatalf("event data = %T, want AttemptCompletedEvent", published[0].Data)
	}
	if data.ExamTitle != exam.Title {
		t.Errorf("event exam title = %q, want %q", data.ExamTitle, exam.Title)
	}
	if data.AttemptID != attempt.ID || data.CandidateID != "cand-1" {
		t.Errorf("event identity = %+v, want attempt %d for cand-1", data, attempt.ID)
	}
}

func TestSubmitPssBandMismatch(t *testing.T) {
	ctx := context.Background()
	base := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)

	repo := newMockRepository()
	exam := seedInstrumentExam(repo, models.KindPss)
	attempt := seedAttempt(repo, exam.ID, "cand-1", base)
	svc, _ := newTestSubmissionService(repo, base.Add(10*time.Minute), false)

	// Score 20 sits in the moderate band, not severe.
	_, err := svc.SubmitPss(ctx, attempt.ID, exam.ID, &SubmitPssRequest{
		Answers:  pssAnswers(2),
		Score:    20,
		Category: instrument.PssCategorySevere,
	}, "cand-1")
	if !errors.Is(err, ErrScoreBandMismatch) {
		t.Fatalf("SubmitPss() error = %v, want ErrScoreBandMismatch", err)
	}
	if attempt.Status != models.AttemptInProgress {
		t.Errorf("attempt status = %s, rejected submit must not complete it", attempt.Status)
	}
}

func TestSubmitPssStrictRecompute(t *testing.T) {
	ctx := context.Background()
	base := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)

	repo := newMockRepository()
	exam := seedInstrumentExam(repo, models.KindPss)
	attempt := seedAttempt(repo, exam.ID, "cand-1", base)
	svc, _ := newTestSubmissionService(repo, base.Add(10*time.Minute), true)

	// Raw 0 on the positively-stated items (4, 5, 7, 8), raw 2 elsewhere.
	// Summed as entered that is 12; with items 4, 5, 7 and 8 reversed the
	// real total is 28, which sits in the severe band.
	answers := pssAnswers(2)
	for _, item := range []uint{4, 5, 7, 8} {
		answers[item] = 0
	}

	// The unreversed sum must not be accepted as the total.
	_, err := svc.SubmitPss(ctx, attempt.ID, exam.ID, &SubmitPssRequest{
		Answers:  answers,
		Score:    12,
		Category: instrument.PssCategoryMild,
	}, "cand-1")
	if !errors.Is(err, ErrScoreRecomputeMismatch) {
		t.Fatalf("raw-sum score error = %v, want ErrScoreRecomputeMismatch", err)
	}

	// Strict mode also rejects partial answer sets.
	partial := pssAnswers(2)
	delete(partial, 10)
	_, err = svc.SubmitPss(ctx, attempt.ID, exam.ID, &SubmitPssRequest{
		Answers:  partial,
		Score:    18,
		Category: instrument.PssCategoryModerate,
	}, "cand-1")
	if !errors.Is(err, ErrIncompleteAnswers) {
		t.Fatalf("partial answers error = %v, want ErrIncompleteAnswers", err)
	}

	// The correctly reversed total passes.
	resp, err := svc.SubmitPss(ctx, attempt.ID, exam.ID, &SubmitPssRequest{
		Answers:  answers,
		Score:    28,
		Category: instrument.PssCategorySevere,
	}, "cand-1")
	if err != nil {
		t.Fatalf("reversed-total SubmitPss() error = %v", err)
	}
	if resp.Score != 28 {
		t.Errorf("score = %d, want 28", resp.Score)
	}
	if resp.Category == nil || *resp.Category != instrument.PssCategorySevere {
		t.Errorf("category = %v, want %s", resp.Category, instrument.PssCategorySevere)
	}
}

func TestSubmitPssWrongKind(t *testing.T) {
	ctx := context.Background()
	base := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)

	repo := newMockRepository()
	exam := seedInstrumentExam(repo, models.KindSrq29)
	attempt := seedAttempt(repo, exam.ID, "cand-1", base)
	svc, _ := newTestSubmissionService(repo, base.Add(10*time.Minute), false)

	_, err := svc.SubmitPss(ctx, attempt.ID, exam.ID, &SubmitPssRequest{
		Answers:  pssAnswers(1),
		Score:    10,
		Category: instrument.PssCategoryMild,
	}, "cand-1")
	if !errors.Is(err, ErrExamWrongKind) {
		t.Errorf("SubmitPss() error = %v, want ErrExamWrongKind", err)
	}
}

func TestSubmitPssAlreadyCompleted(t *testing.T) {
	ctx := context.Background()
	base := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)

	repo := newMockRepository()
	exam := seedInstrumentExam(repo, models.KindPss)
	attempt := seedAttempt(repo, exam.ID, "cand-1", base)
	svc, _ := newTestSubmissionService(repo, base.Add(10*time.Minute), false)

	req := &SubmitPssRequest{
		Answers:  pssAnswers(2),
		Score:    20,
		Category: instrument.PssCategoryModerate,
	}

	if _, err := svc.SubmitPss(ctx, attempt.ID, exam.ID, req, "cand-1"); err != nil {
		t.Fatalf("first SubmitPss() error = %v", err)
	}
	firstEnd := *repo.attempts.byID[attempt.ID].EndedAt

	_, err := svc.SubmitPss(ctx, attempt.ID, exam.ID, &SubmitPssRequest{
		Answers:  pssAnswers(3),
		Score:    30,
		Category: instrument.PssCategorySevere,
	}, "cand-1")
	if !errors.Is(err, ErrAttemptAlreadySubmitted) {
		t.Fatalf("second SubmitPss() error = %v, want ErrAttemptAlreadySubmitted", err)
	}

	stored := repo.attempts.byID[attempt.ID]
	if stored.Score != 20 {
		t.Errorf("score changed to %d after rejected resubmit", stored.Score)
	}
	if !stored.EndedAt.Equal(firstEnd) {
		t.Errorf("EndedAt changed after rejected resubmit")
	}
}

func TestSubmitSrq(t *testing.T) {
	ctx := context.Background()
	base := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)

	repo := newMockRepository()
	exam := seedInstrumentExam(repo, models.KindSrq29)
	attempt := seedAttempt(repo, exam.ID, "cand-1", base)
	svc, publisher := newTestSubmissionService(repo, base.Add(10*time.Minute), false)

	resp, err := svc.SubmitSrq(ctx, attempt.ID, exam.ID, &SubmitSrqRequest{
		Answers: srqAnswers(5),
		Result: SrqResultRequest{
			Conclusion: instrument.SrqConclusionNormal,
		},
	}, "cand-1")
	if err != nil {
		t.Fatalf("SubmitSrq() error = %v", err)
	}

	// Score is the server-side Yes count, whatever the client sent.
	if resp.Score != 5 {
		t.Errorf("score = %d, want 5", resp.Score)
	}
	if resp.Conclusion == nil || *resp.Conclusion != instrument.SrqConclusionNormal {
		t.Errorf("conclusion = %v, want %s", resp.Conclusion, instrument.SrqConclusionNormal)
	}

	var stored models.SrqResult
	if err := json.Unmarshal(resp.Result, &stored); err != nil {
		t.Fatalf("failed to decode stored result: %v", err)
	}
	if stored.Type != models.ResultTypeSrq {
		t.Errorf("result type = %s, want %s", stored.Type, models.ResultTypeSrq)
	}
	if stored.Result.ResultText != instrument.SrqConclusionText(instrument.SrqConclusionNormal) {
		t.Errorf("result text = %q, want resolved conclusion text", stored.Result.ResultText)
	}
	if stored.Result.ResultText == instrument.SrqConclusionNormal {
		t.Error("known conclusion code must resolve to its long-form text")
	}

	published := publisher.GetPublishedEvents()
	if len(published) != 1 || published[0].Type != events.EventAttemptCompleted {
		t.Errorf("expected one %s event, got %v", events.EventAttemptCompleted, published)
	}
}

func TestSubmitSrqUnknownConclusionPassesThrough(t *testing.T) {
	ctx := context.Background()
	base := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)

	repo := newMockRepository()
	exam := seedInstrumentExam(repo, models.KindSrq29)
	attempt := seedAttempt(repo, exam.ID, "cand-1", base)
	svc, _ := newTestSubmissionService(repo, base.Add(10*time.Minute), false)

	resp, err := svc.SubmitSrq(ctx, attempt.ID, exam.ID, &SubmitSrqRequest{
		Answers: srqAnswers(12),
		Result: SrqResultRequest{
			Anxiety:    true,
			Conclusion: "Kategori Baru",
		},
	}, "cand-1")
	if err != nil {
		t.Fatalf("SubmitSrq() error = %v", err)
	}

	var stored models.SrqResult
	if err := json.Unmarshal(resp.Result, &stored); err != nil {
		t.Fatalf("failed to decode stored result: %v", err)
	}
	if stored.Result.ResultText != "Kategori Baru" {
		t.Errorf("unknown conclusion text = %q, want pass-through", stored.Result.ResultText)
	}
	if !stored.Result.Anxiety {
		t.Error("anxiety flag dropped")
	}
}

func TestSubmitSrqRejectsBadValues(t *testing.T) {
	ctx := context.Background()
	base := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)

	repo := newMockRepository()
	exam := seedInstrumentExam(repo, models.KindSrq29)
	attempt := seedAttempt(repo, exam.ID, "cand-1", base)
	svc, _ := newTestSubmissionService(repo, base.Add(10*time.Minute), false)

	answers := srqAnswers(3)
	answers[7] = "ya"

	_, err := svc.SubmitSrq(ctx, attempt.ID, exam.ID, &SubmitSrqRequest{
		Answers: answers,
		Result:  SrqResultRequest{Conclusion: instrument.SrqConclusionNormal},
	}, "cand-1")
	if !IsValidation(err) {
		t.Errorf("SubmitSrq() error = %v, want validation error", err)
	}
	if attempt.Status != models.AttemptInProgress {
		t.Errorf("attempt status = %s, rejected submit must not complete it", attempt.Status)
	}
}

func TestSubmitGeneral(t *testing.T) {
	ctx := context.Background()
	base := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)

	repo := newMockRepository()
	exam := seedGeneralExam(repo, 30)
	attempt := seedAttempt(repo, exam.ID, "cand-1", base)
	repo.answers.correct = map[uint]int64{attempt.ID: 14}

	svc, _ := newTestSubmissionService(repo, base.Add(20*time.Minute), false)

	resp, err := svc.SubmitGeneral(ctx, attempt.ID, exam.ID, "cand-1")
	if err != nil {
		t.Fatalf("SubmitGeneral() error = %v", err)
	}
	if resp.Score != 14 {
		t.Errorf("score = %d, want 14", resp.Score)
	}
	if resp.Status != models.AttemptCompleted {
		t.Errorf("status = %s, want completed", resp.Status)
	}

	if _, err := svc.SubmitGeneral(ctx, attempt.ID, exam.ID, "cand-1"); !errors.Is(err, ErrAttemptAlreadySubmitted) {
		t.Errorf("resubmit error = %v, want ErrAttemptAlreadySubmitted", err)
	}
}

func TestSubmitGeneralOwnership(t *testing.T) {
	ctx := context.Background()
	base := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)

	repo := newMockRepository()
	exam := seedGeneralExam(repo, 30)
	attempt := seedAttempt(repo, exam.ID, "cand-1", base)
	svc, _ := newTestSubmissionService(repo, base.Add(20*time.Minute), false)

	if _, err := svc.SubmitGeneral(ctx, attempt.ID, exam.ID, "cand-2"); !errors.Is(err, ErrAttemptAccessDenied) {
		t.Errorf("SubmitGeneral() error = %v, want ErrAttemptAccessDenied", err)
	}
}
