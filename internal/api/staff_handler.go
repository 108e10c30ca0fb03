package api

import (
	"net/http"

	"medexam/intake-portal/internal/repository"

	"github.com/gin-gonic/gin"
)

// StaffHandler serves the read-only submissions feed for staff tooling.
type StaffHandler struct {
	submissions repository.SubmissionRepository
}

func NewStaffHandler(submissions repository.SubmissionRepository) *StaffHandler {
	return &StaffHandler{submissions: submissions}
}

// ListSubmissions lists confirmed submissions for one exam occurrence.
// GET /api/v1/staff/submissions?occurrence=...
func (h *StaffHandler) ListSubmissions(c *gin.Context) {
	occurrence := c.Query("occurrence")
	if occurrence == "" {
		abortWithError(c, http.StatusBadRequest, "query parameter 'occurrence' is required")
		return
	}

	records, err := h.submissions.GetByExamOccurrence(c.Request.Context(), occurrence)
	if err != nil {
		abortWithError(c, http.StatusInternalServerError, "failed to list submissions")
		return
	}
	c.JSON(http.StatusOK, gin.H{"submissions": records, "count": len(records)})
}
