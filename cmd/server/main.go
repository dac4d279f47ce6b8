package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"questionnaire-agent/internal/answerer"
	"questionnaire-agent/internal/config"
	"questionnaire-agent/internal/db"
	"questionnaire-agent/internal/jobs"
	"questionnaire-agent/internal/repository"
	"questionnaire-agent/internal/retrieval"
	"questionnaire-agent/internal/router"
	"questionnaire-agent/internal/services"
	"questionnaire-agent/internal/storage"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	database, err := db.NewSQLiteDB(cfg.DBFile)
	if err != nil {
		logger.Fatal("failed to open database", zap.Error(err))
	}
	defer database.Close()

	if err := db.RunMigrations(database); err != nil {
		logger.Fatal("failed to run migrations", zap.Error(err))
	}

	archive, err := storage.NewS3Storage(cfg)
	if err != nil {
		logger.Fatal("failed to initialize object storage", zap.Error(err))
	}

	jobRepo := repository.NewJobRepository(database)
	projectRepo := repository.NewProjectRepository(database)
	answerRepo := repository.NewAnswerRepository(database)
	documentRepo := repository.NewDocumentRepository(database)
	chunkRepo := repository.NewChunkRepository(database)
	evaluationRepo := repository.NewEvaluationRepository(database)

	ledger := jobs.NewLedger(jobRepo, logger)
	runner := jobs.NewRunner(jobRepo, cfg.JobTimeout, logger)

	// jobs left RUNNING by a previous crash can never finish; fail them now
	runner.Reconcile(context.Background(), 0)

	sched := cron.New()
	if _, err := sched.AddFunc(cfg.ReconcileSchedule, func() {
		runner.Reconcile(context.Background(), cfg.JobTimeout)
	}); err != nil {
		logger.Fatal("invalid reconcile schedule", zap.Error(err))
	}
	sched.Start()
	defer sched.Stop()

	embedder := retrieval.NewHTTPEmbedder(cfg.LLMBaseURL, cfg.LLMAPIKey, cfg.EmbeddingModel, logger)
	store := retrieval.NewStore(chunkRepo, embedder, logger)
	llm := answerer.NewChatAnswerer(cfg.LLMBaseURL, cfg.LLMAPIKey, cfg.LLMModel, logger)

	documentService := services.NewDocumentService(documentRepo, projectRepo, store, archive, ledger, runner, logger)
	projectService := services.NewProjectService(projectRepo, answerRepo, documentService, ledger, runner, logger)
	answerService := services.NewAnswerService(answerRepo, projectRepo, store, llm, ledger, runner, cfg.RetrievalTopK, logger)
	evaluationService := services.NewEvaluationService(evaluationRepo, answerRepo, projectRepo, embedder, logger)

	handler := router.New(router.Deps{
		Ledger:        ledger,
		Projects:      projectService,
		Documents:     documentService,
		Answers:       answerService,
		Evaluation:    evaluationService,
		MaxUploadSize: cfg.MaxUploadSize,
		Logger:        logger,
	})

	srv := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("starting server", zap.String("port", cfg.HTTPPort))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server failed to start", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Fatal("server forced to shutdown", zap.Error(err))
	}

	// let in-flight job bodies write their terminal state
	runner.Wait()

	logger.Info("server exited")
}
