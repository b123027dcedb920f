package main

import (
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gitmesh-labs/steward/internal/handlers"
	"github.com/gitmesh-labs/steward/internal/repositories"
	"github.com/gitmesh-labs/steward/internal/services"
	"github.com/gitmesh-labs/steward/internal/workers"
	"github.com/gitmesh-labs/steward/pkg/config"
	"github.com/gitmesh-labs/steward/pkg/database"
	"github.com/gitmesh-labs/steward/pkg/logger"
)

func main() {
	logger.Init()

	cfg, err := config.Load()
	if err != nil {
		logger.GetLogger().Fatalf("Failed to load config: %v", err)
	}

	gin.SetMode(cfg.Server.Mode)

	db, err := database.Init(cfg.Database.Path)
	if err != nil {
		logger.GetLogger().Fatalf("Failed to initialize database: %v", err)
	}
	defer db.Close()

	gov := cfg.Governance
	workDir := gov.WorkDir

	// Governance document stores
	registryRepo := repositories.NewRegistryRepository(filepath.Join(workDir, gov.RegistryPath))
	botRepo := repositories.NewBotRepository(filepath.Join(workDir, gov.BotRegistryPath))
	historyRepo := repositories.NewHistoryRepository(
		filepath.Join(workDir, gov.HistoryDir),
		filepath.Join(workDir, gov.BotHistoryDir),
	)
	ledgerRepo := repositories.NewLedgerRepository(
		filepath.Join(workDir, gov.LedgerPath),
		filepath.Join(workDir, gov.BotLedgerPath),
	)
	syncJobRepo := repositories.NewSyncJobRepository(db)

	// Services
	historyService := services.NewHistoryService(historyRepo, ledgerRepo)
	roleService := services.NewRoleService(gov.RoleHierarchy, gov.ProtectedRoles)
	classifierService := services.NewClassifierService(registryRepo, botRepo)
	codeownersService := services.NewCodeownersService(filepath.Join(workDir, gov.CodeownersPath), gov.RegistryPath)

	githubService, err := services.NewGitHubService(cfg.GitHub)
	if err != nil {
		logger.GetLogger().Fatalf("Failed to create GitHub client: %v", err)
	}
	owner, repo := splitIdentity(cfg.GitHub.Repository)
	commentService := services.NewCommentService(cfg.GitHub.Token, owner, repo)
	publishService := services.NewPublishService(workDir, cfg.GitHub.Token)

	syncService := services.NewSyncService(
		gov, cfg.GitHub, githubService,
		registryRepo, botRepo, historyRepo, ledgerRepo, historyService,
	)
	commandService := services.NewCommandService(
		gov, registryRepo, botRepo, historyRepo, historyService,
		roleService, classifierService, codeownersService, publishService, commentService,
	)
	exportService := services.NewExportService(registryRepo, botRepo)

	// Background workers and scheduler
	workerManager := workers.NewWorkerManager(syncJobRepo, syncService)
	if err := workerManager.StartAll(); err != nil {
		logger.GetLogger().Fatalf("Failed to start workers: %v", err)
	}
	defer workerManager.StopAll()

	schedulerService := services.NewSchedulerService(syncJobRepo)
	schedulerService.StartScheduler()

	// HTTP surface
	router := gin.Default()
	webhookHandler := handlers.NewWebhookHandler(commandService, githubService, commentService, syncJobRepo)
	apiHandler := handlers.NewAPIHandler(syncJobRepo, exportService)

	router.POST("/webhook/github", webhookHandler.Handle)
	router.POST("/api/sync", apiHandler.TriggerSync)
	router.GET("/api/jobs", apiHandler.ListJobs)
	router.GET("/api/export", apiHandler.ExportRoster)
	router.GET("/health", apiHandler.Health)

	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	go func() {
		logger.Infof("Server starting on :%s", cfg.Server.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.GetLogger().Fatalf("Server failed to start: %v", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Infof("Shutting down server...")
}

func splitIdentity(full string) (string, string) {
	for i := 0; i < len(full); i++ {
		if full[i] == '/' {
			return full[:i], full[i+1:]
		}
	}
	return full, ""
}
