package domain

import (
	"encoding/json"
	"fmt"
)

// ExamVariant distinguishes the two application forms the portal serves.
type ExamVariant string

const (
	VariantOSCE ExamVariant = "OSCE"
	VariantAKT  ExamVariant = "AKT"
)

// ParseExamVariant validates a variant string coming in from the UI.
func ParseExamVariant(s string) (ExamVariant, error) {
	switch ExamVariant(s) {
	case VariantOSCE, VariantAKT:
		return ExamVariant(s), nil
	default:
		return "", fmt.Errorf("unknown exam variant %q", s)
	}
}

// LifecycleState tracks whether a backend record exists for the draft yet.
type LifecycleState int

const (
	LifecycleNoRecord LifecycleState = iota
	LifecycleCreating
	LifecycleCreated
	LifecycleRecordConflict
)

func (s LifecycleState) String() string {
	switch s {
	case LifecycleNoRecord:
		return "no_record"
	case LifecycleCreating:
		return "creating"
	case LifecycleCreated:
		return "created"
	case LifecycleRecordConflict:
		return "record_conflict"
	default:
		return fmt.Sprintf("lifecycle(%d)", int(s))
	}
}

// ParseLifecycleState is the inverse of String. Unknown input maps to NoRecord.
func ParseLifecycleState(s string) LifecycleState {
	switch s {
	case "creating":
		return LifecycleCreating
	case "created":
		return LifecycleCreated
	case "record_conflict":
		return LifecycleRecordConflict
	default:
		return LifecycleNoRecord
	}
}

func (s LifecycleState) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

func (s *LifecycleState) UnmarshalJSON(data []byte) error {
	var str string
	if err := json.Unmarshal(data, &str); err != nil {
		return err
	}
	*s = ParseLifecycleState(str)
	return nil
}

// IdentifyingFields are the two fields that key the backend record.
// Both must be non-empty and the email must validate before a record
// may be created.
type IdentifyingFields struct {
	FullName string `json:"fullName"`
	Email    string `json:"email"`
}

// ApplicationDraft is the client-side representation of an application,
// before and after a backend record exists.
//
// RecordID is set exactly once per session: the first successful create
// wins and the id is never reassigned afterwards.
type ApplicationDraft struct {
	ExamOccurrenceID string
	Variant          ExamVariant
	Fields           IdentifyingFields
	RecordID         string // empty while LifecycleNoRecord / LifecycleCreating
	State            LifecycleState
}

// HasRecord reports whether a backend record id has been assigned.
func (d *ApplicationDraft) HasRecord() bool {
	return d.RecordID != ""
}
