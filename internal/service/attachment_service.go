package service

import (
	"context"
	"fmt"
	"path"
	"strings"

	"medexam/intake-portal/internal/domain"
	"medexam/intake-portal/internal/logger"
	"medexam/intake-portal/internal/remote"
	"medexam/intake-portal/internal/session"
	"medexam/intake-portal/internal/storage"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// SlotError is a slot-scoped rejection (constraint violation). It never
// mutates the slot's upload state.
type SlotError struct {
	SlotID  string
	Message string
}

func (e *SlotError) Error() string {
	return fmt.Sprintf("slot %s: %s", e.SlotID, e.Message)
}

// SelectFileInput carries one file selection from the form.
type SelectFileInput struct {
	SlotID      string // empty for a new free-form attachment
	Title       string // free-form attachments only
	FileName    string
	ContentType string
	Data        []byte
}

// AttachmentService implements the slot registry operations: select,
// remove, replace-upload and the one-time queue drain.
type AttachmentService struct {
	remote   remote.RecordService
	previews storage.PreviewStorage
	log      zerolog.Logger
}

// NewAttachmentService creates the slot registry service.
func NewAttachmentService(rs remote.RecordService, previews storage.PreviewStorage) *AttachmentService {
	return &AttachmentService{
		remote:   rs,
		previews: previews,
		log:      logger.Get(),
	}
}

// SelectFile accepts a file for a slot. Before a record id exists the file
// is queued, which is not an error; afterwards it is
// replace-uploaded immediately. The local preview is created first in
// either case so the applicant always sees their selection.
func (s *AttachmentService) SelectFile(ctx context.Context, sess *session.DraftSession, in SelectFileInput) (domain.AttachmentSlot, error) {
	slotID := in.SlotID
	if slotID == "" {
		// New free-form attachment.
		slotID = uuid.NewString()
	}

	if msg := domain.ConstraintsForSlot(slotID).Check(in.ContentType, int64(len(in.Data))); msg != "" {
		sess.SetSlotError(slotID, msg)
		return domain.AttachmentSlot{}, &SlotError{SlotID: slotID, Message: msg}
	}

	variant := sess.Draft().Variant
	canonicalName := canonicalFileName(variant, slotID, in.Title, in.FileName)
	category := categoryForSlot(slotID)

	// Local preview first, independent of any network state. A preview
	// store failure is logged and the selection still goes through: the
	// queued bytes, not the preview, are the source of truth.
	previewKey := path.Join("previews", sess.ID, slotID, uuid.NewString()+extensionFor(in.ContentType, in.FileName))
	preview := domain.LocalPreview{}
	if url, err := s.previews.PutPreview(ctx, previewKey, in.ContentType, in.Data); err != nil {
		s.log.Warn().Err(err).Str("session_id", sess.ID).Str("slot_id", slotID).
			Msg("Preview store unavailable; continuing without preview")
	} else {
		preview = domain.LocalPreview{ObjectKey: previewKey, URL: url}
	}

	oldPreviewKey := sess.AcceptSelection(slotID, in.Title, category, preview)
	if oldPreviewKey != "" && oldPreviewKey != previewKey {
		if err := s.previews.DeletePreview(ctx, oldPreviewKey); err != nil {
			s.log.Warn().Err(err).Str("key", oldPreviewKey).Msg("Failed to revoke replaced preview")
		}
	}

	entry := domain.PendingUpload{
		SlotID:        slotID,
		FileName:      in.FileName,
		CanonicalName: canonicalName,
		ContentType:   in.ContentType,
		Category:      category,
		PreviewKey:    previewKey,
		Data:          in.Data,
	}

	// EnqueueUpload decides queue-vs-direct atomically against the record
	// id transition, so a selection can never fall between the two.
	if sess.EnqueueUpload(entry) {
		s.log.Info().Str("session_id", sess.ID).Str("slot_id", slotID).
			Msg("No record yet; upload deferred to queue")
		slot, _ := sess.Slot(slotID)
		return slot, nil
	}

	sess.LockUploads()
	defer sess.UnlockUploads()
	s.replaceUpload(ctx, sess, sess.RecordID(), entry)
	slot, _ := sess.Slot(slotID)
	return slot, nil
}

// RemoveSlot clears a slot: best-effort remote delete, preview revoked,
// any queued upload dropped. Remote delete failure is logged only.
func (s *AttachmentService) RemoveSlot(ctx context.Context, sess *session.DraftSession, slotID string) {
	remoteFileID, previewKey := sess.ClearSlot(slotID)

	if remoteFileID != "" {
		if err := s.remote.DeleteAttachment(ctx, remoteFileID); err != nil {
			s.log.Warn().Err(err).Str("remote_file_id", remoteFileID).
				Msg("Failed to delete remote attachment; leaving orphan")
		}
	}
	if previewKey != "" {
		if err := s.previews.DeletePreview(ctx, previewKey); err != nil {
			s.log.Warn().Err(err).Str("key", previewKey).Msg("Failed to revoke preview")
		}
	}
}

// Drain processes the pending uploads exactly once, strictly in FIFO
// order, each awaited before the next. Per-entry failures are logged and
// do not abort the remaining entries.
func (s *AttachmentService) Drain(ctx context.Context, sess *session.DraftSession, recordID string, pending []domain.PendingUpload) {
	sess.LockUploads()
	defer sess.UnlockUploads()

	for _, entry := range pending {
		if ctx.Err() != nil {
			s.log.Warn().Str("session_id", sess.ID).Msg("Session ended mid-drain; remaining uploads abandoned")
			return
		}
		s.replaceUpload(ctx, sess, recordID, entry)
	}
	s.log.Info().Str("session_id", sess.ID).Int("count", len(pending)).Msg("Pending upload queue drained")
}

// replaceUpload is the shared upload procedure: delete the slot's previous
// remote file if any (non-fatal), then upload the new one. Callers must
// hold the session upload lock.
func (s *AttachmentService) replaceUpload(ctx context.Context, sess *session.DraftSession, recordID string, entry domain.PendingUpload) {
	if old := sess.SlotRemoteFile(entry.SlotID); old != "" {
		if err := s.remote.DeleteAttachment(ctx, old); err != nil {
			// Accept a transient orphan rather than blocking the applicant.
			s.log.Warn().Err(err).Str("remote_file_id", old).Str("slot_id", entry.SlotID).
				Msg("Failed to delete previous remote file before replacement")
		}
	}

	sess.MarkUploading(entry.SlotID)

	draft := sess.Draft()
	fileID, err := s.remote.UploadAttachment(ctx, remote.UploadRequest{
		ExamOccurrenceID: draft.ExamOccurrenceID,
		EntityType:       "application",
		EntityID:         recordID,
		Category:         entry.Category,
		FileName:         entry.CanonicalName,
		ContentType:      entry.ContentType,
		Data:             entry.Data,
	})
	if err != nil {
		// Preview stays: the applicant keeps visual confirmation even
		// though the network copy failed.
		sess.MarkUploadFailed(entry.SlotID, "upload failed, please try again")
		s.log.Error().Err(err).Str("session_id", sess.ID).Str("slot_id", entry.SlotID).
			Msg("Attachment upload failed")
		return
	}
	sess.MarkUploaded(entry.SlotID, fileID)
	s.log.Info().Str("session_id", sess.ID).Str("slot_id", entry.SlotID).
		Str("remote_file_id", fileID).Msg("Attachment uploaded")
}

// canonicalFileName resolves the remote filename per the variant naming
// policy: fixed names for single-purpose slots, the applicant's own title
// for free-form attachments.
func canonicalFileName(variant domain.ExamVariant, slotID, title, original string) string {
	ext := extensionFor("", original)
	if domain.IsFixedSlot(slotID) {
		return fmt.Sprintf("%s_%s%s", strings.ToLower(string(variant)), slotID, ext)
	}
	if title != "" {
		return sanitizeFileName(title) + ext
	}
	return original
}

func categoryForSlot(slotID string) string {
	if domain.IsFixedSlot(slotID) {
		return slotID
	}
	return "additional"
}

func extensionFor(contentType, fileName string) string {
	switch contentType {
	case "image/jpeg":
		return ".jpg"
	case "image/png":
		return ".png"
	case "application/pdf":
		return ".pdf"
	}
	if ext := path.Ext(fileName); ext != "" {
		return ext
	}
	return ""
}

var fileNameReplacer = strings.NewReplacer(" ", "_", "/", "_", "\\", "_", ":", "_")

func sanitizeFileName(name string) string {
	return fileNameReplacer.Replace(strings.TrimSpace(name))
}
