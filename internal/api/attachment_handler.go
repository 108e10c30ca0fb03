package api

import (
	"errors"
	"io"
	"net/http"

	"medexam/intake-portal/internal/service"

	"github.com/gin-gonic/gin"
)

// AttachmentHandler serves the slot registry operations.
type AttachmentHandler struct {
	attachments *service.AttachmentService
	maxSize     int64
}

func NewAttachmentHandler(attachments *service.AttachmentService, maxSize int64) *AttachmentHandler {
	if maxSize <= 0 {
		maxSize = 10 << 20
	}
	return &AttachmentHandler{attachments: attachments, maxSize: maxSize}
}

// SelectFile accepts a multipart file for a slot. "new" as slot id opens a
// fresh free-form attachment slot.
// POST /api/v1/session/attachments/:slotId
func (h *AttachmentHandler) SelectFile(c *gin.Context) {
	sess, err := sessionFromContext(c)
	if err != nil {
		abortWithError(c, http.StatusInternalServerError, err.Error())
		return
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		abortWithError(c, http.StatusBadRequest, "multipart field 'file' is required")
		return
	}
	if fileHeader.Size > h.maxSize {
		abortWithError(c, http.StatusRequestEntityTooLarge, "file exceeds the upload size limit")
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		abortWithError(c, http.StatusBadRequest, "could not read uploaded file")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, h.maxSize+1))
	if err != nil || int64(len(data)) > h.maxSize {
		abortWithError(c, http.StatusRequestEntityTooLarge, "file exceeds the upload size limit")
		return
	}

	slotID := c.Param("slotId")
	if slotID == "new" {
		slotID = ""
	}

	slot, err := h.attachments.SelectFile(c.Request.Context(), sess, service.SelectFileInput{
		SlotID:      slotID,
		Title:       c.PostForm("title"),
		FileName:    fileHeader.Filename,
		ContentType: fileHeader.Header.Get("Content-Type"),
		Data:        data,
	})

	var slotErr *service.SlotError
	if errors.As(err, &slotErr) {
		c.JSON(http.StatusUnprocessableEntity, gin.H{
			"slotId":       slotErr.SlotID,
			"errorMessage": slotErr.Message,
		})
		return
	}
	if err != nil {
		abortWithError(c, http.StatusInternalServerError, "failed to accept file")
		return
	}

	// Deferred-to-queue and uploaded both land here; the slot state tells
	// the UI which one happened.
	c.JSON(http.StatusOK, gin.H{
		"slotId":       slot.SlotID,
		"title":        slot.Title,
		"previewUrl":   slot.Preview.URL,
		"uploadState":  slot.State.String(),
		"errorMessage": slot.ErrorMessage,
	})
}

// RemoveSlot clears an attachment slot.
// DELETE /api/v1/session/attachments/:slotId
func (h *AttachmentHandler) RemoveSlot(c *gin.Context) {
	sess, err := sessionFromContext(c)
	if err != nil {
		abortWithError(c, http.StatusInternalServerError, err.Error())
		return
	}

	h.attachments.RemoveSlot(c.Request.Context(), sess, c.Param("slotId"))
	c.Status(http.StatusNoContent)
}
