package models

import (
	"time"

	"gorm.io/gorm"
)

// InstrumentKind selects the scoring discipline applied to an exam.
type InstrumentKind string

const (
	// KindGeneral scores by counting selected options flagged correct.
	KindGeneral InstrumentKind = "general"
	// KindPss is the 10-item Perceived Stress Scale (0-4 Likert, three severity bands).
	KindPss InstrumentKind = "pss"
	// KindSrq29 is the 29-item Self-Reporting Questionnaire (Yes/No, symptom-cluster flags).
	KindSrq29 InstrumentKind = "srq29"
)

func (k InstrumentKind) Valid() bool {
	switch k {
	case KindGeneral, KindPss, KindSrq29:
		return true
	}
	return false
}

type ExamStatus string

const (
	ExamDraft    ExamStatus = "Draft"
	ExamActive   ExamStatus = "Active"
	ExamArchived ExamStatus = "Archived"
)

type Exam struct {
	ID              uint           `json:"id" gorm:"primaryKey"`
	Title           string         `json:"title" gorm:"not null;size:200;index" validate:"required,min=1,max=200"`
	Description     *string        `json:"description" gorm:"type:text" validate:"omitempty,max=1000"`
	DurationMinutes int            `json:"duration_minutes" gorm:"not null" validate:"required,exam_duration"`
	Kind            InstrumentKind `json:"kind" gorm:"not null;default:general;index" validate:"required,instrument_kind"`
	Status          ExamStatus     `json:"status" gorm:"default:Draft;index" validate:"omitempty,oneof=Draft Active Archived"`

	// Metadata
	CreatedBy string         `json:"created_by" gorm:"not null;index;size:255"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"-" gorm:"index"`

	// Relations
	Questions []Question    `json:"questions" gorm:"foreignKey:ExamID"`
	Attempts  []ExamAttempt `json:"-" gorm:"foreignKey:ExamID"`

	// Computed fields (not stored)
	QuestionsCount int `json:"questions_count" gorm:"-"`
	AttemptCount   int `json:"attempt_count" gorm:"-"`
}

// Question is one item of an exam, presented in Order. For fixed-form
// instruments (pss, srq29) the order is the published item number.
type Question struct {
	ID     uint   `json:"id" gorm:"primaryKey"`
	ExamID uint   `json:"exam_id" gorm:"not null;index"`
	Text   string `json:"text" gorm:"type:text;not null" validate:"required,max=2000"`
	Order  int    `json:"order" gorm:"not null;column:item_order" validate:"required,min=1"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Options []Option `json:"options" gorm:"foreignKey:QuestionID"`
}

// Option is one selectable choice for a Question. IsCorrect only matters
// for general-kind exams; it is never sent to candidates mid-attempt.
type Option struct {
	ID         uint   `json:"id" gorm:"primaryKey"`
	QuestionID uint   `json:"question_id" gorm:"not null;index"`
	Label      string `json:"label" gorm:"size:10"`
	Text       string `json:"text" gorm:"type:text;not null" validate:"required,max=1000"`
	IsCorrect  bool   `json:"is_correct,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}

func (Exam) TableName() string {
	return "exams"
}

func (Question) TableName() string {
	return "questions"
}

func (Option) TableName() string {
	return "options"
}
