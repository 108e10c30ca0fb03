package validation

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"medexam/intake-portal/internal/domain"

	"github.com/go-playground/validator/v10"
)

// FieldErrors maps form field names to user-facing messages. Validation
// errors stay local to the form layer and never trigger network calls.
type FieldErrors map[string]string

func (e FieldErrors) Error() string {
	if len(e) == 0 {
		return "validation failed"
	}
	fields := make([]string, 0, len(e))
	for field := range e {
		fields = append(fields, field)
	}
	sort.Strings(fields)
	return fmt.Sprintf("validation failed for: %s", strings.Join(fields, ", "))
}

// FormValidator is the form-validation collaborator boundary. Validate
// returns nil when the form passes both field-level and cross-field rules.
type FormValidator interface {
	Validate(variant domain.ExamVariant, form domain.ApplicationForm) FieldErrors
	ValidateEmail(email string) bool
}

// phonePattern accepts international-looking numbers: optional +, digits,
// spaces and dashes, 7 to 15 digits overall.
var phonePattern = regexp.MustCompile(`^\+?[0-9][0-9 \-]{5,18}[0-9]$`)

type formValidator struct {
	validate *validator.Validate
}

// New builds the default validator on go-playground tags plus the
// cross-field rules the static schema cannot express.
func New() FormValidator {
	return &formValidator{validate: validator.New()}
}

func (v *formValidator) Validate(variant domain.ExamVariant, form domain.ApplicationForm) FieldErrors {
	errs := FieldErrors{}

	if err := v.validate.Struct(form); err != nil {
		var invalid validator.ValidationErrors
		if ok := asValidationErrors(err, &invalid); ok {
			for _, fieldErr := range invalid {
				errs[fieldName(fieldErr.Field())] = messageFor(fieldErr)
			}
		} else {
			errs["form"] = "form could not be validated"
		}
	}

	// Variant-specific required fields.
	switch variant {
	case domain.VariantOSCE:
		if form.MedicalSchool == "" {
			errs["medicalSchool"] = "medical school is required"
		}
		if form.GraduationYear == 0 {
			errs["graduationYear"] = "graduation year is required"
		}
		if form.CentrePreference == "" {
			errs["centrePreference"] = "centre preference is required"
		}
	case domain.VariantAKT:
		if form.CandidateNumber == "" {
			errs["candidateNumber"] = "candidate number is required"
		}
		if form.TestCentre == "" {
			errs["testCentre"] = "test centre is required"
		}
	}

	// Cross-field check: phone must at least look like a phone number.
	if form.Phone != "" && !phonePattern.MatchString(form.Phone) {
		errs["phone"] = "phone number does not look valid"
	}

	if len(errs) == 0 {
		return nil
	}
	return errs
}

// ValidateEmail is the field-level email check used by the draft lifecycle
// trigger before any record creation is considered.
func (v *formValidator) ValidateEmail(email string) bool {
	return v.validate.Var(email, "required,email") == nil
}

func asValidationErrors(err error, target *validator.ValidationErrors) bool {
	ve, ok := err.(validator.ValidationErrors)
	if ok {
		*target = ve
	}
	return ok
}

// fieldName lowercases the struct field's first rune to match the JSON
// names the UI uses.
func fieldName(structField string) string {
	if structField == "" {
		return structField
	}
	return strings.ToLower(structField[:1]) + structField[1:]
}

func messageFor(fieldErr validator.FieldError) string {
	switch fieldErr.Tag() {
	case "required":
		return "this field is required"
	case "email":
		return "must be a valid email address"
	case "gte", "lte":
		return "value is out of range"
	default:
		return "invalid value"
	}
}
