package service

import (
	"context"
	"errors"

	"medexam/intake-portal/internal/logger"
	"medexam/intake-portal/internal/remote"
	"medexam/intake-portal/internal/session"
	"medexam/intake-portal/internal/validation"

	"github.com/rs/zerolog"
)

// ErrRecordConflict surfaces the upstream 409: a record already exists for
// this email and exam occurrence. Creation stays blocked until the email
// field changes.
var ErrRecordConflict = errors.New("an application already exists for this exam occurrence; change the email to continue")

// DraftService is the draft lifecycle controller. It owns the decision of
// when the single backend record gets created and publishes the record id
// to the attachment queue once it exists.
type DraftService struct {
	remote      remote.RecordService
	attachments *AttachmentService
	validator   validation.FormValidator
	log         zerolog.Logger
}

// NewDraftService creates the lifecycle controller.
func NewDraftService(rs remote.RecordService, attachments *AttachmentService, validator validation.FormValidator) *DraftService {
	return &DraftService{
		remote:      rs,
		attachments: attachments,
		validator:   validator,
		log:         logger.Get(),
	}
}

// UpdateIdentifyingFields stores the form's identifying fields on the
// draft. This never triggers a create by itself; changing the email clears
// a latched conflict.
func (s *DraftService) UpdateIdentifyingFields(sess *session.DraftSession, fullName, email string) {
	sess.SetIdentifyingFields(fullName, email)
}

// NotifyIdentifyingFieldBlurred is the explicit creation trigger, raised
// when the applicant leaves the full-name or email input. It creates the
// backend record when the trigger policy passes and is a no-op otherwise.
//
// Only a conflict is reported back; any other create failure is logged and
// the controller simply re-attempts on the next qualifying blur.
func (s *DraftService) NotifyIdentifyingFieldBlurred(ctx context.Context, sess *session.DraftSession) error {
	fields := sess.Draft().Fields
	if fields.FullName == "" || fields.Email == "" {
		return nil
	}
	if !s.validator.ValidateEmail(fields.Email) {
		return nil
	}

	draft, ok := sess.BeginCreate()
	if !ok {
		// Record exists, a create is in flight, or a conflict is latched.
		return nil
	}

	// The in-flight claim must be released on every exit path, including a
	// panic below, or the controller locks up for the rest of the session.
	finished := false
	defer func() {
		if !finished {
			sess.FinishCreateFailure()
		}
	}()

	recordID, err := s.remote.CreateApplication(ctx, remote.CreateRequest{
		ExamOccurrenceID: draft.ExamOccurrenceID,
		FullName:         draft.Fields.FullName,
		Email:            draft.Fields.Email,
	})
	switch {
	case errors.Is(err, remote.ErrConflict):
		finished = true
		sess.FinishCreateConflict()
		s.log.Warn().Str("session_id", sess.ID).Str("email", draft.Fields.Email).
			Msg("Record conflict on create; blocking until email changes")
		return ErrRecordConflict
	case err != nil:
		finished = true
		sess.FinishCreateFailure()
		s.log.Error().Err(err).Str("session_id", sess.ID).Msg("Failed to create application record")
		return nil
	}

	pending := sess.FinishCreateSuccess(recordID)
	finished = true
	s.log.Info().Str("session_id", sess.ID).Str("record_id", recordID).
		Int("pending_uploads", len(pending)).Msg("Application record created")

	// Publish the id: the one-time queue drain runs now, on the session
	// context so it does not outlive the session.
	if len(pending) > 0 {
		s.attachments.Drain(sess.Context(), sess, recordID, pending)
	}
	return nil
}
