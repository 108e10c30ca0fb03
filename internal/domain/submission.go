package domain

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// SubmissionState tracks one submit attempt through the coordinator.
type SubmissionState int

const (
	SubmissionIdle SubmissionState = iota
	SubmissionValidating
	SubmissionConfirmDialog
	SubmissionSubmitting
	SubmissionSubmitted
	SubmissionFailed
)

func (s SubmissionState) String() string {
	switch s {
	case SubmissionIdle:
		return "idle"
	case SubmissionValidating:
		return "validating"
	case SubmissionConfirmDialog:
		return "confirm_dialog"
	case SubmissionSubmitting:
		return "submitting"
	case SubmissionSubmitted:
		return "submitted"
	case SubmissionFailed:
		return "failed"
	default:
		return "idle"
	}
}

// ApplicationForm carries the full validated form contents at submit time.
// Field-level rules live on the binding tags; cross-field rules (phone
// shape) are checked by the validation collaborator.
type ApplicationForm struct {
	FullName    string `json:"fullName" validate:"required"`
	Email       string `json:"email" validate:"required,email"`
	Phone       string `json:"phone" validate:"required"`
	DateOfBirth string `json:"dateOfBirth" validate:"required"`

	// OSCE-only
	MedicalSchool    string `json:"medicalSchool" validate:"omitempty"`
	GraduationYear   int    `json:"graduationYear" validate:"omitempty,gte=1950,lte=2100"`
	CentrePreference string `json:"centrePreference" validate:"omitempty"`

	// AKT-only
	CandidateNumber string `json:"candidateNumber" validate:"omitempty"`
	TestCentre      string `json:"testCentre" validate:"omitempty"`
}

// SubmissionPayload is the variant-discriminated body of the final confirm
// call. Each variant carries a distinct, statically-known field set; a
// payload is constructed only from already-validated form data plus the
// backend record id.
type SubmissionPayload interface {
	Variant() ExamVariant
}

// OSCEPayload is the confirm body for practical-exam applications.
type OSCEPayload struct {
	FullName         string `json:"fullName"`
	Email            string `json:"email"`
	Phone            string `json:"phone"`
	DateOfBirth      string `json:"dateOfBirth"`
	MedicalSchool    string `json:"medicalSchool"`
	GraduationYear   int    `json:"graduationYear"`
	CentrePreference string `json:"centrePreference"`
	Note             string `json:"note,omitempty"`
	ShouldSubmit     bool   `json:"shouldSubmit"`
}

func (OSCEPayload) Variant() ExamVariant { return VariantOSCE }

// AKTPayload is the confirm body for knowledge-test applications.
type AKTPayload struct {
	FullName        string `json:"fullName"`
	Email           string `json:"email"`
	Phone           string `json:"phone"`
	DateOfBirth     string `json:"dateOfBirth"`
	CandidateNumber string `json:"candidateNumber"`
	TestCentre      string `json:"testCentre"`
	Note            string `json:"note,omitempty"`
	ShouldSubmit    bool   `json:"shouldSubmit"`
}

func (AKTPayload) Variant() ExamVariant { return VariantAKT }

// BuildPayload assembles the variant-specific confirm body from validated
// form data. The confirm flag is always set; the record id travels in the
// request path, not the body.
func BuildPayload(variant ExamVariant, form ApplicationForm, note string) SubmissionPayload {
	switch variant {
	case VariantAKT:
		return AKTPayload{
			FullName:        form.FullName,
			Email:           form.Email,
			Phone:           form.Phone,
			DateOfBirth:     form.DateOfBirth,
			CandidateNumber: form.CandidateNumber,
			TestCentre:      form.TestCentre,
			Note:            note,
			ShouldSubmit:    true,
		}
	default:
		return OSCEPayload{
			FullName:         form.FullName,
			Email:            form.Email,
			Phone:            form.Phone,
			DateOfBirth:      form.DateOfBirth,
			MedicalSchool:    form.MedicalSchool,
			GraduationYear:   form.GraduationYear,
			CentrePreference: form.CentrePreference,
			Note:             note,
			ShouldSubmit:     true,
		}
	}
}

// SubmissionRecord is the local bookkeeping row written after a confirmed
// submission. The authoritative record lives upstream; this exists so
// staff can list what went through this portal instance.
type SubmissionRecord struct {
	ID               primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	ExamOccurrenceID string             `bson:"examOccurrenceId" json:"examOccurrenceId"`
	RecordID         string             `bson:"recordId" json:"recordId"`
	Variant          ExamVariant        `bson:"variant" json:"variant"`
	FullName         string             `bson:"fullName" json:"fullName"`
	Email            string             `bson:"email" json:"email"`
	AttachmentCount  int                `bson:"attachmentCount" json:"attachmentCount"`
	SubmittedAt      time.Time          `bson:"submittedAt" json:"submittedAt"`
}
