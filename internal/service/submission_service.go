package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"medexam/intake-portal/internal/domain"
	"medexam/intake-portal/internal/logger"
	"medexam/intake-portal/internal/remote"
	"medexam/intake-portal/internal/repository"
	"medexam/intake-portal/internal/session"
	"medexam/intake-portal/internal/validation"

	"github.com/rs/zerolog"
)

// Confirmation retry policy: 2 attempts total, flat 1s delay, no backoff.
// Operations staff read these numbers out of logs; do not tune them here.
const (
	confirmAttempts  = 2
	confirmFlatDelay = 1 * time.Second

	// How long the UI gets to show the success notice before the session
	// is discarded (the server-side equivalent of the full page reload).
	discardAfterSubmit = 3 * time.Second
)

// ErrNoRecord rejects a submit before the backend record exists. The UI is
// expected to gate the submit button on the draft state, so hitting this
// means the identifying fields were never completed.
var ErrNoRecord = errors.New("application record has not been created yet")

// ErrDeclined reports that the applicant cancelled the confirmation step.
// No side effects occurred.
var ErrDeclined = errors.New("submission cancelled")

// ConfirmationError is the only fatal submit error: both confirm attempts
// failed and the attempt is over.
type ConfirmationError struct {
	Message string
}

func (e *ConfirmationError) Error() string {
	return fmt.Sprintf("submission could not be confirmed: %s", e.Message)
}

// ConfirmationPrompt is the confirmation-dialog collaborator: an async
// confirm/cancel question answered with an optional free-text note.
type ConfirmationPrompt interface {
	Confirm(ctx context.Context) (confirmed bool, note string, err error)
}

// ConfirmFunc adapts a function to ConfirmationPrompt.
type ConfirmFunc func(ctx context.Context) (bool, string, error)

func (f ConfirmFunc) Confirm(ctx context.Context) (bool, string, error) { return f(ctx) }

// SubmissionService coordinates the final submit: validation, the human
// confirmation step, payload assembly and the bounded-retry confirm call.
type SubmissionService struct {
	remote    remote.RecordService
	validator validation.FormValidator
	repo      repository.SubmissionRepository
	sessions  *session.Manager
	log       zerolog.Logger

	attempts   int
	retryDelay time.Duration
}

// NewSubmissionService creates the submission coordinator.
func NewSubmissionService(rs remote.RecordService, validator validation.FormValidator,
	repo repository.SubmissionRepository, sessions *session.Manager) *SubmissionService {
	return &SubmissionService{
		remote:     rs,
		validator:  validator,
		repo:       repo,
		sessions:   sessions,
		log:        logger.Get(),
		attempts:   confirmAttempts,
		retryDelay: confirmFlatDelay,
	}
}

// Submit runs the submit state machine:
// Idle → Validating → ConfirmDialog → Submitting → Submitted | Failed.
//
// Validation failures and a declined confirmation return to Idle with no
// network call made; only exhausting the confirm retries ends in Failed.
func (s *SubmissionService) Submit(ctx context.Context, sess *session.DraftSession,
	form domain.ApplicationForm, prompt ConfirmationPrompt) error {

	sess.SetSubmissionState(domain.SubmissionValidating)

	draft := sess.Draft()
	if !draft.HasRecord() {
		sess.SetSubmissionState(domain.SubmissionIdle)
		return ErrNoRecord
	}

	if errs := s.validator.Validate(draft.Variant, form); errs != nil {
		sess.SetSubmissionState(domain.SubmissionIdle)
		return errs
	}

	sess.SetSubmissionState(domain.SubmissionConfirmDialog)
	confirmed, note, err := prompt.Confirm(ctx)
	if err != nil {
		sess.SetSubmissionState(domain.SubmissionIdle)
		return err
	}
	if !confirmed {
		sess.SetSubmissionState(domain.SubmissionIdle)
		return ErrDeclined
	}

	sess.SetSubmissionState(domain.SubmissionSubmitting)
	payload := domain.BuildPayload(draft.Variant, form, note)

	if err := s.confirmWithRetry(ctx, draft.RecordID, payload); err != nil {
		sess.SetSubmissionState(domain.SubmissionFailed)
		return err
	}

	sess.SetSubmissionState(domain.SubmissionSubmitted)
	s.recordSubmission(sess, draft, form)

	// Give the UI a moment to show the success notice, then reset to a
	// clean state by discarding the session.
	sessionID := sess.ID
	time.AfterFunc(discardAfterSubmit, func() {
		s.sessions.Discard(sessionID)
	})

	s.log.Info().Str("session_id", sess.ID).Str("record_id", draft.RecordID).
		Str("variant", string(draft.Variant)).Msg("Submission confirmed")
	return nil
}

// confirmWithRetry PATCHes the record with the fixed retry policy. Each
// attempt's failure is logged; exhausting the attempts is fatal for this
// submit and surfaces the upstream message verbatim.
func (s *SubmissionService) confirmWithRetry(ctx context.Context, recordID string, payload domain.SubmissionPayload) error {
	var lastErr error
	for attempt := 1; attempt <= s.attempts; attempt++ {
		if attempt > 1 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(s.retryDelay):
			}
		}

		err := s.remote.ConfirmApplication(ctx, recordID, payload)
		if err == nil {
			return nil
		}
		lastErr = err
		s.log.Warn().Err(err).Int("attempt", attempt).Str("record_id", recordID).
			Msg("Confirm attempt failed")
	}

	message := "the application service is unavailable, please try again later"
	var statusErr *remote.StatusError
	if errors.As(lastErr, &statusErr) && statusErr.Message != "" {
		message = statusErr.Message
	}
	return &ConfirmationError{Message: message}
}

// recordSubmission writes the local bookkeeping row. The upstream record
// is already confirmed, so a bookkeeping failure is logged, not surfaced.
func (s *SubmissionService) recordSubmission(sess *session.DraftSession, draft domain.ApplicationDraft, form domain.ApplicationForm) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	_, err := s.repo.Create(ctx, &domain.SubmissionRecord{
		ExamOccurrenceID: draft.ExamOccurrenceID,
		RecordID:         draft.RecordID,
		Variant:          draft.Variant,
		FullName:         form.FullName,
		Email:            form.Email,
		AttachmentCount:  sess.UploadedCount(),
		SubmittedAt:      time.Now().UTC(),
	})
	if err != nil {
		s.log.Error().Err(err).Str("record_id", draft.RecordID).
			Msg("Failed to write submission bookkeeping record")
	}
}
