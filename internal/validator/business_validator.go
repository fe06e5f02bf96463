package validator

import (
	"fmt"

	"github.com/go-playground/validator/v10"

	"github.com/psikotes-platform/assessment-service/internal/instrument"
	"github.com/psikotes-platform/assessment-service/internal/models"
)

// BusinessValidator handles business rule validation
type BusinessValidator struct {
	validate *validator.Validate
}

// NewBusinessValidator creates a new business validator
func NewBusinessValidator() *BusinessValidator {
	validate := validator.New()
	registerCustomValidators(validate)

	return &BusinessValidator{validate: validate}
}

// Validate validates business rules for any struct
func (bv *BusinessValidator) Validate(s interface{}) ValidationErrors {
	err := bv.validate.Struct(s)
	if err != nil {
		return ToValidationErrors(err)
	}
	return nil
}

// ValidateExamQuestions checks that an exam's question set is consistent
// with its instrument kind before it can be published.
func (bv *BusinessValidator) ValidateExamQuestions(kind models.InstrumentKind, questions []models.Question) ValidationErrors {
	var errors ValidationErrors

	switch kind {
	case models.KindPss:
		if len(questions) != instrument.PssItemCount {
			errors = append(errors, ValidationError{
				Field:   "questions",
				Message: fmt.Sprintf("pss exams must have exactly %d items", instrument.PssItemCount),
				Value:   len(questions),
			})
		}
	case models.KindSrq29:
		if len(questions) != instrument.SrqItemCount {
			errors = append(errors, ValidationError{
				Field:   "questions",
				Message: fmt.Sprintf("srq29 exams must have exactly %d items", instrument.SrqItemCount),
				Value:   len(questions),
			})
		}
	case models.KindGeneral:
		if len(questions) == 0 {
			errors = append(errors, ValidationError{
				Field:   "questions",
				Message: "general exams must have at least one question",
			})
		}
	}

	errors = append(errors, bv.validateQuestionOrders(questions)...)

	for i, q := range questions {
		errors = append(errors, bv.validateQuestionOptions(kind, i, q)...)
	}

	return errors
}

// validateQuestionOrders checks that item orders are unique and cover 1..N.
func (bv *BusinessValidator) validateQuestionOrders(questions []models.Question) ValidationErrors {
	var errors ValidationErrors

	seen := make(map[int]bool, len(questions))
	for _, q := range questions {
		if q.Order < 1 || q.Order > len(questions) {
			errors = append(errors, ValidationError{
				Field:   "questions",
				Message: fmt.Sprintf("item order %d is out of range", q.Order),
				Value:   q.Order,
			})
			continue
		}
		if seen[q.Order] {
			errors = append(errors, ValidationError{
				Field:   "questions",
				Message: fmt.Sprintf("duplicate item order %d", q.Order),
				Value:   q.Order,
			})
		}
		seen[q.Order] = true
	}

	return errors
}

func (bv *BusinessValidator) validateQuestionOptions(kind models.InstrumentKind, index int, question models.Question) ValidationErrors {
	var errors ValidationErrors
	field := fmt.Sprintf("questions[%d].options", index)

	switch kind {
	case models.KindPss:
		// One option per Likert point
		want := instrument.PssMaxValue - instrument.PssMinValue + 1
		if len(question.Options) != want {
			errors = append(errors, ValidationError{
				Field:   field,
				Message: fmt.Sprintf("pss items must have exactly %d options", want),
				Value:   len(question.Options),
			})
		}
	case models.KindSrq29:
		if len(question.Options) != 2 {
			errors = append(errors, ValidationError{
				Field:   field,
				Message: "srq29 items must have exactly 2 options (Y/N)",
				Value:   len(question.Options),
			})
		}
	case models.KindGeneral:
		if len(question.Options) < 2 {
			errors = append(errors, ValidationError{
				Field:   field,
				Message: "questions must have at least 2 options",
				Value:   len(question.Options),
			})
			break
		}
		correct := 0
		for _, opt := range question.Options {
			if opt.IsCorrect {
				correct++
			}
		}
		if correct != 1 {
			errors = append(errors, ValidationError{
				Field:   field,
				Message: "questions must have exactly one correct option",
				Value:   correct,
			})
		}
	}

	return errors
}
