package remote

import (
	"context"
	"errors"
	"fmt"
)

// ErrConflict is returned by CreateApplication when the upstream service
// already holds a record for this email and exam occurrence.
var ErrConflict = errors.New("application already exists for this exam occurrence")

// StatusError carries a non-2xx upstream response. Message is the body's
// message field and is shown to the user verbatim.
type StatusError struct {
	StatusCode int
	Message    string
}

func (e *StatusError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("remote service returned %d: %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("remote service returned %d", e.StatusCode)
}

// CreateRequest keys a new application record upstream.
type CreateRequest struct {
	ExamOccurrenceID string `json:"examOccurrenceId"`
	FullName         string `json:"fullName"`
	Email            string `json:"email"`
}

// UploadRequest is one multipart attachment upload.
type UploadRequest struct {
	ExamOccurrenceID string
	EntityType       string // always "application" for this portal
	EntityID         string // backend record id
	Category         string
	FileName         string
	ContentType      string
	Data             []byte
}

// RecordService is the capability boundary to the upstream application
// record API. The portal never talks to it except through this interface.
type RecordService interface {
	// CreateApplication creates the single backend record for a session
	// and returns its id. A duplicate returns ErrConflict.
	CreateApplication(ctx context.Context, req CreateRequest) (string, error)

	// ConfirmApplication marks the record as submitted (PATCH semantics).
	ConfirmApplication(ctx context.Context, recordID string, payload any) error

	// UploadAttachment stores one file against the record and returns the
	// remote file id.
	UploadAttachment(ctx context.Context, req UploadRequest) (string, error)

	// DeleteAttachment removes a previously uploaded file. Callers treat
	// failure as non-fatal.
	DeleteAttachment(ctx context.Context, fileID string) error
}
