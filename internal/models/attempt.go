package models

import (
	"time"

	"gorm.io/datatypes"
)

type AttemptStatus string

const (
	AttemptInProgress AttemptStatus = "in_progress"
	AttemptCompleted  AttemptStatus = "completed"
	AttemptDeleted    AttemptStatus = "deleted"
)

// attemptTransitions is the full status machine. Completion is terminal
// except for the soft delete; nothing leaves "deleted".
var attemptTransitions = map[AttemptStatus][]AttemptStatus{
	AttemptInProgress: {AttemptCompleted, AttemptDeleted},
	AttemptCompleted:  {AttemptDeleted},
	AttemptDeleted:    {},
}

// CanTransition reports whether an attempt may move from one status to another.
func (s AttemptStatus) CanTransition(to AttemptStatus) bool {
	for _, next := range attemptTransitions[s] {
		if next == to {
			return true
		}
	}
	return false
}

// ExamAttempt is one candidate's timed run through one exam. Attempts are
// soft-deleted via status, never removed; once completed, score and result
// are immutable.
type ExamAttempt struct {
	ID          uint          `json:"id" gorm:"primaryKey"`
	ExamID      uint          `json:"exam_id" gorm:"not null;index"`
	CandidateID string        `json:"candidate_id" gorm:"not null;index;size:255"`
	Status      AttemptStatus `json:"status" gorm:"default:in_progress;index"`

	// Timing
	StartedAt time.Time  `json:"started_at" gorm:"not null"`
	EndedAt   *time.Time `json:"ended_at"`

	// Scoring. Score semantics depend on the exam's instrument kind:
	// correct-option count (general), total PSS score, or SRQ Yes-count.
	Score      int            `json:"score"`
	Result     datatypes.JSON `json:"result" gorm:"type:jsonb"`
	Category   *string        `json:"category" gorm:"size:50"`
	Conclusion *string        `json:"conclusion" gorm:"size:100"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Relations
	Exam      Exam     `json:"exam" gorm:"foreignKey:ExamID"`
	Candidate User     `json:"candidate" gorm:"foreignKey:CandidateID"`
	Answers   []Answer `json:"answers" gorm:"foreignKey:AttemptID"`
}

// Answer records the candidate's selected option for one question within
// one attempt. At most one row exists per (attempt, question); re-saving
// overwrites the selection and refreshes AnsweredAt.
type Answer struct {
	ID         uint      `json:"id" gorm:"primaryKey"`
	AttemptID  uint      `json:"attempt_id" gorm:"not null;uniqueIndex:idx_attempt_question"`
	QuestionID uint      `json:"question_id" gorm:"not null;uniqueIndex:idx_attempt_question"`
	OptionID   uint      `json:"option_id" gorm:"not null"`
	AnsweredAt time.Time `json:"answered_at" gorm:"not null"`

	Attempt  ExamAttempt `json:"-" gorm:"foreignKey:AttemptID"`
	Question Question    `json:"-" gorm:"foreignKey:QuestionID"`
	Option   Option      `json:"-" gorm:"foreignKey:OptionID"`
}

const (
	ResultTypePss = "pss"
	ResultTypeSrq = "srq29"
)

// PssResult is the stored result blob for a completed PSS attempt.
type PssResult struct {
	Type     string       `json:"type"`
	Answers  map[uint]int `json:"answers"`
	Score    int          `json:"score"`
	Category string       `json:"category"`
}

// SrqFlags are the four SRQ-29 symptom-cluster indicators.
type SrqFlags struct {
	Anxiety   bool `json:"anxiety"`
	Substance bool `json:"substance"`
	Psychotic bool `json:"psychotic"`
	Ptsd      bool `json:"ptsd"`
}

// SrqResult is the stored result blob for a completed SRQ-29 attempt.
type SrqResult struct {
	Type    string          `json:"type"`
	Answers map[uint]string `json:"answers"`
	Result  SrqOutcome      `json:"result"`
}

type SrqOutcome struct {
	SrqFlags
	Conclusion string `json:"conclusion"`
	ResultText string `json:"resultText"`
}

func (ExamAttempt) TableName() string {
	return "exam_attempts"
}

func (Answer) TableName() string {
	return "answers"
}

// Deadline is the nominal end of the attempt window, before any grace.
func (a *ExamAttempt) Deadline(durationMinutes int) time.Time {
	return a.StartedAt.Add(time.Duration(durationMinutes) * time.Minute)
}
