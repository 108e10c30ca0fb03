package api

import (
	"errors"
	"net/http"

	"medexam/intake-portal/internal/config"
	"medexam/intake-portal/internal/domain"
	"medexam/intake-portal/internal/service"
	"medexam/intake-portal/internal/session"

	"github.com/gin-gonic/gin"
)

// DraftHandler serves session bootstrap and the draft lifecycle commands.
type DraftHandler struct {
	drafts   *service.DraftService
	sessions *session.Manager
	cfg      config.SessionConfig
}

func NewDraftHandler(drafts *service.DraftService, sessions *session.Manager, cfg config.SessionConfig) *DraftHandler {
	return &DraftHandler{drafts: drafts, sessions: sessions, cfg: cfg}
}

type startSessionRequest struct {
	ExamOccurrenceID string `json:"examOccurrenceId" binding:"required"`
	Variant          string `json:"variant" binding:"required"`
}

// StartSession opens a new draft session and returns its bearer token.
// POST /api/v1/sessions
func (h *DraftHandler) StartSession(c *gin.Context) {
	var req startSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, "examOccurrenceId and variant are required")
		return
	}
	variant, err := domain.ParseExamVariant(req.Variant)
	if err != nil {
		abortWithError(c, http.StatusBadRequest, err.Error())
		return
	}

	sess := h.sessions.Start(req.ExamOccurrenceID, variant)
	token, err := IssueSessionToken(h.cfg.JWTSecret, sess.ID, h.cfg.TokenTTL)
	if err != nil {
		h.sessions.Discard(sess.ID)
		abortWithError(c, http.StatusInternalServerError, "failed to issue session token")
		return
	}

	c.JSON(http.StatusCreated, gin.H{"token": token})
}

type identifyingFieldsRequest struct {
	FullName string `json:"fullName"`
	Email    string `json:"email"`
}

// UpdateFields stores the identifying fields. Never triggers a create.
// PUT /api/v1/session/fields
func (h *DraftHandler) UpdateFields(c *gin.Context) {
	sess, err := sessionFromContext(c)
	if err != nil {
		abortWithError(c, http.StatusInternalServerError, err.Error())
		return
	}
	var req identifyingFieldsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, "invalid request body")
		return
	}

	h.drafts.UpdateIdentifyingFields(sess, req.FullName, req.Email)
	c.JSON(http.StatusOK, draftView(sess))
}

// NotifyBlur is the explicit creation trigger, fired when the applicant
// leaves the email or full-name input.
// POST /api/v1/session/blur
func (h *DraftHandler) NotifyBlur(c *gin.Context) {
	sess, err := sessionFromContext(c)
	if err != nil {
		abortWithError(c, http.StatusInternalServerError, err.Error())
		return
	}

	err = h.drafts.NotifyIdentifyingFieldBlurred(c.Request.Context(), sess)
	if errors.Is(err, service.ErrRecordConflict) {
		c.JSON(http.StatusConflict, gin.H{
			"notice": err.Error(),
			"draft":  draftView(sess),
		})
		return
	}
	// Other create failures are logged server-side; the controller simply
	// re-attempts on the next qualifying blur.
	c.JSON(http.StatusOK, draftView(sess))
}

// GetState returns the draft and slot projection the UI renders from.
// GET /api/v1/session
func (h *DraftHandler) GetState(c *gin.Context) {
	sess, err := sessionFromContext(c)
	if err != nil {
		abortWithError(c, http.StatusInternalServerError, err.Error())
		return
	}
	view := draftView(sess)
	view["slots"] = slotViews(sess)
	c.JSON(http.StatusOK, view)
}

// draftView is the draft-level projection gating the submit button.
func draftView(sess *session.DraftSession) gin.H {
	draft := sess.Draft()
	return gin.H{
		"examOccurrenceId": draft.ExamOccurrenceID,
		"variant":          draft.Variant,
		"recordId":         draft.RecordID,
		"lifecycleState":   draft.State.String(),
		"conflict":         draft.State == domain.LifecycleRecordConflict,
		"submissionState":  sess.SubmissionState().String(),
	}
}

// slotViews is the slot-level projection: preview, state, error.
func slotViews(sess *session.DraftSession) []gin.H {
	slots := sess.Slots()
	views := make([]gin.H, 0, len(slots))
	for _, slot := range slots {
		views = append(views, gin.H{
			"slotId":       slot.SlotID,
			"title":        slot.Title,
			"previewUrl":   slot.Preview.URL,
			"uploadState":  slot.State.String(),
			"errorMessage": slot.ErrorMessage,
		})
	}
	return views
}
