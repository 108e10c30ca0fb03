package api

import (
	"context"
	"errors"
	"net/http"

	"medexam/intake-portal/internal/domain"
	"medexam/intake-portal/internal/service"
	"medexam/intake-portal/internal/validation"

	"github.com/gin-gonic/gin"
)

// SubmissionHandler serves the final submit.
type SubmissionHandler struct {
	submissions *service.SubmissionService
}

func NewSubmissionHandler(submissions *service.SubmissionService) *SubmissionHandler {
	return &SubmissionHandler{submissions: submissions}
}

type submitRequest struct {
	Form domain.ApplicationForm `json:"form"`

	// The confirmation dialog lives in the browser; its outcome arrives
	// with the request and satisfies the prompt collaborator.
	Confirmed bool   `json:"confirmed"`
	Note      string `json:"note"`
}

// Submit runs the submission coordinator for this session.
// POST /api/v1/session/submit
func (h *SubmissionHandler) Submit(c *gin.Context) {
	sess, err := sessionFromContext(c)
	if err != nil {
		abortWithError(c, http.StatusInternalServerError, err.Error())
		return
	}

	var req submitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, "invalid request body")
		return
	}

	prompt := service.ConfirmFunc(func(context.Context) (bool, string, error) {
		return req.Confirmed, req.Note, nil
	})

	err = h.submissions.Submit(c.Request.Context(), sess, req.Form, prompt)
	switch {
	case err == nil:
		// Session will be discarded shortly; tell the UI to reload.
		c.JSON(http.StatusOK, gin.H{"status": "submitted", "reload": true})
	case errors.Is(err, service.ErrNoRecord):
		abortWithError(c, http.StatusPreconditionFailed, err.Error())
	case errors.Is(err, service.ErrDeclined):
		c.JSON(http.StatusOK, gin.H{"status": "cancelled"})
	default:
		var fieldErrs validation.FieldErrors
		if errors.As(err, &fieldErrs) {
			c.JSON(http.StatusUnprocessableEntity, gin.H{"fieldErrors": fieldErrs})
			return
		}
		var confirmErr *service.ConfirmationError
		if errors.As(err, &confirmErr) {
			abortWithError(c, http.StatusBadGateway, confirmErr.Message)
			return
		}
		abortWithError(c, http.StatusInternalServerError, "submission failed")
	}
}
