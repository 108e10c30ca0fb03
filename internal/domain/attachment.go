package domain

import (
	"fmt"
	"strings"
)

// UploadState tracks one attachment slot through its lifecycle.
type UploadState int

const (
	UploadEmpty UploadState = iota
	UploadQueued
	UploadUploading
	UploadUploaded
	UploadFailed
)

func (s UploadState) String() string {
	switch s {
	case UploadEmpty:
		return "empty"
	case UploadQueued:
		return "queued"
	case UploadUploading:
		return "uploading"
	case UploadUploaded:
		return "uploaded"
	case UploadFailed:
		return "failed"
	default:
		return fmt.Sprintf("upload(%d)", int(s))
	}
}

// Fixed single-valued OSCE slots. Free-form AKT slots get generated ids.
const (
	SlotPhoto         = "photo"
	SlotSignature     = "signature"
	SlotMedicalDegree = "medical_degree"
	SlotPassportPage  = "passport_page"
)

// FixedSlotIDs lists the single-purpose slots in form order.
var FixedSlotIDs = []string{SlotPhoto, SlotSignature, SlotMedicalDegree, SlotPassportPage}

// IsFixedSlot reports whether slotID names one of the single-purpose slots.
func IsFixedSlot(slotID string) bool {
	for _, id := range FixedSlotIDs {
		if id == slotID {
			return true
		}
	}
	return false
}

// LocalPreview is the revocable, locally-stored reference to the selected
// file's bytes. It exists independently of the upstream record service so
// the applicant always gets immediate visual feedback.
type LocalPreview struct {
	ObjectKey string `json:"-"`
	URL       string `json:"url"`
}

// AttachmentSlot is one named attachment position.
//
// A slot holds at most one remote file at a time. Replacing the file must
// delete the previous RemoteFileID when present; a failed delete is logged
// only and never blocks the replacement upload.
type AttachmentSlot struct {
	SlotID       string
	Title        string // user-supplied for free-form slots, empty otherwise
	Category     string
	Preview      LocalPreview
	RemoteFileID string
	State        UploadState
	ErrorMessage string
}

// PendingUpload is one entry in the pending-upload queue: a file selected
// before the backend record id was known. Entries are appended in selection
// order and consumed FIFO exactly once when the id first becomes available.
type PendingUpload struct {
	SlotID        string
	FileName      string
	CanonicalName string
	ContentType   string
	Category      string
	PreviewKey    string
	Data          []byte
}

// SlotConstraints restrict what a slot accepts. Only a small subset of
// slots carries constraints; the zero value accepts anything.
type SlotConstraints struct {
	AllowedContentTypes []string
	MaxSizeBytes        int64
}

// Check validates a candidate file against the constraints. It returns a
// user-facing message, empty when the file is acceptable.
func (c SlotConstraints) Check(contentType string, size int64) string {
	if len(c.AllowedContentTypes) > 0 {
		ok := false
		for _, allowed := range c.AllowedContentTypes {
			if strings.EqualFold(allowed, contentType) {
				ok = true
				break
			}
		}
		if !ok {
			return fmt.Sprintf("file type %s is not accepted; allowed: %s",
				contentType, strings.Join(c.AllowedContentTypes, ", "))
		}
	}
	if c.MaxSizeBytes > 0 && size > c.MaxSizeBytes {
		return fmt.Sprintf("file is too large (%d bytes, limit %d)", size, c.MaxSizeBytes)
	}
	return ""
}

// PhotoConstraints apply to the primary photo slot only.
var PhotoConstraints = SlotConstraints{
	AllowedContentTypes: []string{"image/jpeg", "image/png"},
	MaxSizeBytes:        5 << 20,
}

// ConstraintsForSlot returns the constraints applying to a slot, if any.
func ConstraintsForSlot(slotID string) SlotConstraints {
	if slotID == SlotPhoto {
		return PhotoConstraints
	}
	return SlotConstraints{}
}
