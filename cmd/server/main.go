package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"medexam/intake-portal/internal/api"
	"medexam/intake-portal/internal/config"
	"medexam/intake-portal/internal/logger"
	"medexam/intake-portal/internal/remote"
	mongorepo "medexam/intake-portal/internal/repository/mongo"
	"medexam/intake-portal/internal/service"
	"medexam/intake-portal/internal/session"
	"medexam/intake-portal/internal/storage"
	"medexam/intake-portal/internal/validation"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

func main() {
	cfg, err := config.LoadConfig(".")
	if err != nil {
		log.Fatal().Err(err).Msg("Could not load config")
	}
	logger.Init(cfg.Logging.Level, cfg.Logging.Format)
	log.Info().Msg("Starting exam intake portal")

	// --- Database ---
	dbClient, err := mongorepo.ConnectDB(cfg.Database.URI)
	if err != nil {
		log.Fatal().Err(err).Msg("Could not connect to MongoDB")
	}
	defer func() {
		if err := mongorepo.DisconnectDB(dbClient); err != nil {
			log.Error().Err(err).Msg("Failed to disconnect MongoDB")
		}
	}()
	appDB := dbClient.Database(cfg.Database.Name)

	indexCtx, indexCancel := context.WithTimeout(context.Background(), time.Minute)
	if err := mongorepo.EnsureSubmissionIndexes(indexCtx, appDB.Collection("submissions")); err != nil {
		log.Warn().Err(err).Msg("Failed to ensure submission indexes")
	}
	indexCancel()

	// --- Preview storage ---
	previews, err := storage.NewS3Storage(cfg.S3)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize preview storage")
	}

	// --- Remote record service client ---
	recordService := remote.NewClient(cfg.Remote.BaseURL, cfg.Remote.Timeout)

	// --- Sessions and services ---
	sessions := session.NewManager(func(s *session.DraftSession) {
		// Revoke previews for discarded sessions so the bucket does not
		// accumulate abandoned drafts.
		cleanupCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		for _, key := range s.PreviewKeys() {
			if err := previews.DeletePreview(cleanupCtx, key); err != nil {
				log.Warn().Err(err).Str("key", key).Msg("Failed to clean up preview on discard")
			}
		}
	})

	validator := validation.New()
	attachmentService := service.NewAttachmentService(recordService, previews)
	draftService := service.NewDraftService(recordService, attachmentService, validator)
	submissionRepo := mongorepo.NewMongoSubmissionRepository(appDB)
	submissionService := service.NewSubmissionService(recordService, validator, submissionRepo, sessions)

	sweepCtx, sweepCancel := context.WithCancel(context.Background())
	defer sweepCancel()
	go sessions.RunSweeper(sweepCtx, 10*time.Minute, cfg.Session.TokenTTL)

	// --- HTTP server ---
	router := gin.Default()
	api.SetupRoutes(router, cfg, sessions, draftService, attachmentService, submissionService, submissionRepo)

	server := &http.Server{
		Addr:         cfg.Server.Address,
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		log.Info().Str("address", cfg.Server.Address).Msg("Server listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("ListenAndServe error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("Shutting down server")

	ctxShutdown, cancelShutdown := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelShutdown()
	if err := server.Shutdown(ctxShutdown); err != nil {
		log.Fatal().Err(err).Msg("Server forced to shutdown")
	}
	log.Info().Msg("Server exiting")
}
