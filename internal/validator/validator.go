package validator

import (
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/psikotes-platform/assessment-service/internal/instrument"
	"github.com/psikotes-platform/assessment-service/internal/models"
)

// Validator is the main validator instance that combines all validation types
type Validator struct {
	structValidator   *validator.Validate
	businessValidator *BusinessValidator
}

// New creates a new centralized validator instance
func New() *Validator {
	structValidator := validator.New()

	// Register all custom validators once
	registerCustomValidators(structValidator)

	return &Validator{
		structValidator:   structValidator,
		businessValidator: NewBusinessValidator(),
	}
}

// ValidateStruct validates struct tags only
func (v *Validator) ValidateStruct(s interface{}) error {
	return v.structValidator.Struct(s)
}

// ValidateBusiness validates business rules only
func (v *Validator) ValidateBusiness(s interface{}) ValidationErrors {
	return v.businessValidator.Validate(s)
}

// Validate performs complete validation (struct + business rules)
func (v *Validator) Validate(s interface{}) error {
	// First validate struct tags
	if err := v.ValidateStruct(s); err != nil {
		return ToValidationErrors(err)
	}

	// Then validate business rules
	if errors := v.ValidateBusiness(s); len(errors) > 0 {
		return errors
	}

	return nil
}

// Business returns the business validator
func (v *Validator) Business() *BusinessValidator {
	return v.businessValidator
}

// registerCustomValidators registers all custom validation functions
func registerCustomValidators(validate *validator.Validate) {
	validate.RegisterValidation("instrument_kind", validateInstrumentKind)
	validate.RegisterValidation("exam_status", validateExamStatus)
	validate.RegisterValidation("user_role", validateUserRole)
	validate.RegisterValidation("pss_category", validatePssCategory)
	validate.RegisterValidation("likert_value", validateLikertValue)
	validate.RegisterValidation("yes_no", validateYesNo)
	validate.RegisterValidation("exam_duration", validateExamDuration)

	// Custom tag name function for better error messages
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
}

// Custom validation functions
func validateInstrumentKind(fl validator.FieldLevel) bool {
	return models.InstrumentKind(fl.Field().String()).Valid()
}

func validateExamStatus(fl validator.FieldLevel) bool {
	validStatuses := []models.ExamStatus{
		models.ExamDraft,
		models.ExamActive,
		models.ExamArchived,
	}

	value := fl.Field().String()
	for _, validStatus := range validStatuses {
		if string(validStatus) == value {
			return true
		}
	}
	return false
}

func validateUserRole(fl validator.FieldLevel) bool {
	validRoles := []models.UserRole{
		models.RoleCandidate,
		models.RolePsychologist,
		models.RoleAdmin,
		models.RoleSuperAdmin,
	}

	value := fl.Field().String()
	for _, validRole := range validRoles {
		if string(validRole) == value {
			return true
		}
	}
	return false
}

func validatePssCategory(fl validator.FieldLevel) bool {
	switch fl.Field().String() {
	case instrument.PssCategoryMild, instrument.PssCategoryModerate, instrument.PssCategorySevere:
		return true
	}
	return false
}

func validateLikertValue(fl validator.FieldLevel) bool {
	value := fl.Field().Int()
	return value >= instrument.PssMinValue && value <= instrument.PssMaxValue
}

func validateYesNo(fl validator.FieldLevel) bool {
	switch fl.Field().String() {
	case instrument.SrqYes, instrument.SrqNo:
		return true
	}
	return false
}

func validateExamDuration(fl validator.FieldLevel) bool {
	minutes := fl.Field().Int()
	return minutes >= 5 && minutes <= 300
}
