package api

import (
	"net/http"

	"medexam/intake-portal/internal/config"
	"medexam/intake-portal/internal/repository"
	"medexam/intake-portal/internal/service"
	"medexam/intake-portal/internal/session"

	"github.com/gin-gonic/gin"
)

// SetupRoutes wires the portal's HTTP surface.
func SetupRoutes(
	router *gin.Engine,
	cfg config.Config,
	sessions *session.Manager,
	drafts *service.DraftService,
	attachments *service.AttachmentService,
	submissions *service.SubmissionService,
	submissionRepo repository.SubmissionRepository,
) {
	draftHandler := NewDraftHandler(drafts, sessions, cfg.Session)
	attachmentHandler := NewAttachmentHandler(attachments, cfg.Session.MaxUploadSize)
	submissionHandler := NewSubmissionHandler(submissions)
	staffHandler := NewStaffHandler(submissionRepo)

	router.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "pong"})
	})

	apiV1 := router.Group("/api/v1")
	{
		apiV1.POST("/sessions", draftHandler.StartSession)

		sessionGroup := apiV1.Group("/session")
		sessionGroup.Use(SessionMiddleware(cfg.Session.JWTSecret, sessions))
		{
			sessionGroup.GET("", draftHandler.GetState)
			sessionGroup.PUT("/fields", draftHandler.UpdateFields)
			sessionGroup.POST("/blur", draftHandler.NotifyBlur)
			sessionGroup.POST("/attachments/:slotId", attachmentHandler.SelectFile)
			sessionGroup.DELETE("/attachments/:slotId", attachmentHandler.RemoveSlot)
			sessionGroup.POST("/submit", submissionHandler.Submit)
		}

		staffGroup := apiV1.Group("/staff")
		staffGroup.Use(StaffAuthMiddleware(cfg.Staff))
		{
			staffGroup.GET("/submissions", staffHandler.ListSubmissions)
		}
	}
}
