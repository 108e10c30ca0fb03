package session

import (
	"context"
	"sync"
	"time"

	"medexam/intake-portal/internal/domain"
)

// DraftSession owns every piece of mutable state for one applicant's form
// session: the draft, the attachment slot registry, the pending-upload
// queue and the lifecycle flags. All access goes through narrow methods
// guarded by the session mutex, so the at-most-one-in-flight guarantees
// hold under concurrent HTTP dispatch.
type DraftSession struct {
	ID string

	mu            sync.Mutex
	draft         domain.ApplicationDraft
	slots         map[string]*domain.AttachmentSlot
	slotOrder     []string
	queue         []domain.PendingUpload
	creating      bool
	drained       bool
	conflictEmail string
	submission    domain.SubmissionState
	lastTouched   time.Time

	// uploadMu serializes uploads and deletes within the session so two
	// slots never upload concurrently against the same backend record.
	uploadMu sync.Mutex

	ctx    context.Context
	cancel context.CancelFunc
}

func newDraftSession(id, examOccurrenceID string, variant domain.ExamVariant) *DraftSession {
	ctx, cancel := context.WithCancel(context.Background())
	return &DraftSession{
		ID: id,
		draft: domain.ApplicationDraft{
			ExamOccurrenceID: examOccurrenceID,
			Variant:          variant,
			State:            domain.LifecycleNoRecord,
		},
		slots:       make(map[string]*domain.AttachmentSlot),
		submission:  domain.SubmissionIdle,
		lastTouched: time.Now(),
		ctx:         ctx,
		cancel:      cancel,
	}
}

// Context is cancelled when the session is discarded, aborting any
// in-flight uploads or retry delays that would otherwise outlive it.
func (s *DraftSession) Context() context.Context {
	return s.ctx
}

// LockUploads serializes network uploads/deletes for this session.
func (s *DraftSession) LockUploads()   { s.uploadMu.Lock() }
func (s *DraftSession) UnlockUploads() { s.uploadMu.Unlock() }

func (s *DraftSession) touch() {
	s.lastTouched = time.Now()
}

// Draft returns a snapshot of the draft state.
func (s *DraftSession) Draft() domain.ApplicationDraft {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.draft
}

// SetIdentifyingFields stores the form's identifying fields. Any change to
// the email clears a latched record conflict, per the conflict contract.
func (s *DraftSession) SetIdentifyingFields(fullName, email string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touch()

	if email != s.draft.Fields.Email && s.draft.State == domain.LifecycleRecordConflict {
		s.draft.State = domain.LifecycleNoRecord
		s.conflictEmail = ""
	}
	s.draft.Fields.FullName = fullName
	s.draft.Fields.Email = email
}

// BeginCreate atomically checks the creation trigger policy and, when it
// passes, claims the single in-flight creation. The caller must finish with
// exactly one of FinishCreateSuccess / FinishCreateConflict /
// FinishCreateFailure.
func (s *DraftSession) BeginCreate() (domain.ApplicationDraft, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touch()

	if s.draft.HasRecord() || s.creating {
		return domain.ApplicationDraft{}, false
	}
	if s.draft.State == domain.LifecycleRecordConflict {
		return domain.ApplicationDraft{}, false
	}
	if s.conflictEmail != "" && s.conflictEmail == s.draft.Fields.Email {
		return domain.ApplicationDraft{}, false
	}
	s.creating = true
	s.draft.State = domain.LifecycleCreating
	return s.draft, true
}

// FinishCreateSuccess stores the record id (exactly once per session) and
// hands back the pending uploads for the one-time queue drain.
func (s *DraftSession) FinishCreateSuccess(recordID string) []domain.PendingUpload {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.creating = false
	if s.draft.HasRecord() {
		// First success won already; never reassign.
		return nil
	}
	s.draft.RecordID = recordID
	s.draft.State = domain.LifecycleCreated

	if s.drained || len(s.queue) == 0 {
		s.drained = true
		return nil
	}
	s.drained = true
	pending := s.queue
	s.queue = nil
	return pending
}

// FinishCreateConflict latches the conflict against the email that caused
// it. No further creates run until the email changes.
func (s *DraftSession) FinishCreateConflict() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.creating = false
	s.draft.State = domain.LifecycleRecordConflict
	s.conflictEmail = s.draft.Fields.Email
}

// FinishCreateFailure releases the in-flight claim; the controller will
// re-attempt on the next qualifying trigger.
func (s *DraftSession) FinishCreateFailure() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.creating = false
	s.draft.State = domain.LifecycleNoRecord
}

// HasConflict reports whether a record conflict is currently latched.
func (s *DraftSession) HasConflict() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.draft.State == domain.LifecycleRecordConflict
}

// RecordID returns the backend record id, empty while none exists.
func (s *DraftSession) RecordID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.draft.RecordID
}

// Slot returns a copy of the named slot.
func (s *DraftSession) Slot(slotID string) (domain.AttachmentSlot, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	slot, ok := s.slots[slotID]
	if !ok {
		return domain.AttachmentSlot{}, false
	}
	return *slot, true
}

// Slots returns copies of all slots in creation order.
func (s *DraftSession) Slots() []domain.AttachmentSlot {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.AttachmentSlot, 0, len(s.slotOrder))
	for _, id := range s.slotOrder {
		if slot, ok := s.slots[id]; ok {
			out = append(out, *slot)
		}
	}
	return out
}

func (s *DraftSession) slot(slotID string) *domain.AttachmentSlot {
	slot, ok := s.slots[slotID]
	if !ok {
		slot = &domain.AttachmentSlot{SlotID: slotID, State: domain.UploadEmpty}
		s.slots[slotID] = slot
		s.slotOrder = append(s.slotOrder, slotID)
	}
	return slot
}

// SetSlotError records a slot-scoped validation error without touching the
// slot's upload state.
func (s *DraftSession) SetSlotError(slotID, message string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touch()
	s.slot(slotID).ErrorMessage = message
}

// AcceptSelection registers a freshly selected file on the slot: the new
// preview replaces the old one and any stale error clears. It returns the
// previous preview key so the caller can revoke it.
func (s *DraftSession) AcceptSelection(slotID, title, category string, preview domain.LocalPreview) (oldPreviewKey string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touch()

	slot := s.slot(slotID)
	oldPreviewKey = slot.Preview.ObjectKey
	slot.Title = title
	slot.Category = category
	slot.Preview = preview
	slot.ErrorMessage = ""
	return oldPreviewKey
}

// EnqueueUpload appends a pending upload and marks the slot queued. It
// refuses once the drain has run; by then the record id exists and callers
// must upload directly.
func (s *DraftSession) EnqueueUpload(entry domain.PendingUpload) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touch()

	if s.draft.HasRecord() || s.drained {
		return false
	}
	// Replacing a queued selection: the later pick supersedes the earlier
	// one so the drain uploads each slot at most once.
	kept := s.queue[:0]
	for _, e := range s.queue {
		if e.SlotID != entry.SlotID {
			kept = append(kept, e)
		}
	}
	s.queue = append(kept, entry)
	s.slot(entry.SlotID).State = domain.UploadQueued
	return true
}

// QueueLen reports the number of pending uploads.
func (s *DraftSession) QueueLen() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.queue)
}

// MarkUploading flips the slot into the uploading state.
func (s *DraftSession) MarkUploading(slotID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.slot(slotID).State = domain.UploadUploading
}

// MarkUploaded stores the remote file id. A slot holds at most one remote
// file: the previous id must already have been handed out for deletion via
// SlotRemoteFile.
func (s *DraftSession) MarkUploaded(slotID, remoteFileID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	slot := s.slot(slotID)
	slot.RemoteFileID = remoteFileID
	slot.State = domain.UploadUploaded
	slot.ErrorMessage = ""
}

// MarkUploadFailed records a slot-scoped upload failure. The preview stays
// so the applicant keeps visual confirmation of the selection.
func (s *DraftSession) MarkUploadFailed(slotID, message string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	slot := s.slot(slotID)
	slot.State = domain.UploadFailed
	slot.ErrorMessage = message
}

// SlotRemoteFile returns the currently uploaded remote id for a slot.
func (s *DraftSession) SlotRemoteFile(slotID string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if slot, ok := s.slots[slotID]; ok {
		return slot.RemoteFileID
	}
	return ""
}

// ClearSlot empties a slot and drops any pending upload for it, returning
// the references the caller must clean up remotely and locally.
func (s *DraftSession) ClearSlot(slotID string) (remoteFileID, previewKey string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touch()

	slot, ok := s.slots[slotID]
	if !ok {
		return "", ""
	}
	remoteFileID = slot.RemoteFileID
	previewKey = slot.Preview.ObjectKey

	kept := s.queue[:0]
	for _, e := range s.queue {
		if e.SlotID != slotID {
			kept = append(kept, e)
		}
	}
	s.queue = kept

	slot.RemoteFileID = ""
	slot.Preview = domain.LocalPreview{}
	slot.Title = ""
	slot.ErrorMessage = ""
	slot.State = domain.UploadEmpty
	return remoteFileID, previewKey
}

// SubmissionState returns the submit coordinator's current state.
func (s *DraftSession) SubmissionState() domain.SubmissionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.submission
}

// SetSubmissionState advances the submit state machine.
func (s *DraftSession) SetSubmissionState(state domain.SubmissionState) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touch()
	s.submission = state
}

// UploadedCount counts slots holding a confirmed remote file.
func (s *DraftSession) UploadedCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, slot := range s.slots {
		if slot.State == domain.UploadUploaded {
			n++
		}
	}
	return n
}

// PreviewKeys lists every live preview object, for cleanup on discard.
func (s *DraftSession) PreviewKeys() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	keys := make([]string, 0, len(s.slots))
	for _, slot := range s.slots {
		if slot.Preview.ObjectKey != "" {
			keys = append(keys, slot.Preview.ObjectKey)
		}
	}
	return keys
}

// LastTouched reports the most recent mutation, for the idle sweep.
func (s *DraftSession) LastTouched() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastTouched
}
