package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gitmesh-labs/steward/internal/models"
	"github.com/gitmesh-labs/steward/internal/repositories"
	"github.com/gitmesh-labs/steward/internal/services"
	"github.com/gitmesh-labs/steward/pkg/logger"
)

type APIHandler struct {
	syncJobRepo   *repositories.SyncJobRepository
	exportService *services.ExportService
}

func NewAPIHandler(syncJobRepo *repositories.SyncJobRepository, exportService *services.ExportService) *APIHandler {
	return &APIHandler{
		syncJobRepo:   syncJobRepo,
		exportService: exportService,
	}
}

// TriggerSync enqueues a manual reconciliation run
func (h *APIHandler) TriggerSync(c *gin.Context) {
	active, err := h.syncJobRepo.HasActive()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to check job state"})
		return
	}
	if active {
		c.JSON(http.StatusConflict, gin.H{"error": "a sync is already pending or running"})
		return
	}

	job := models.NewSyncJob(models.SyncTriggerManual)
	if err := h.syncJobRepo.Create(job); err != nil {
		logger.WithError(err).Errorf("Failed to enqueue manual sync")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to enqueue sync"})
		return
	}

	c.JSON(http.StatusAccepted, gin.H{"job_id": job.ID})
}

// ListJobs returns the most recent sync runs
func (h *APIHandler) ListJobs(c *gin.Context) {
	jobs, err := h.syncJobRepo.GetRecent(50)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list jobs"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"jobs": jobs})
}

// ExportRoster serves the roster workbook
func (h *APIHandler) ExportRoster(c *gin.Context) {
	c.Header("Content-Disposition", `attachment; filename="governance-roster.xlsx"`)
	c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")

	if err := h.exportService.WriteRoster(c.Writer); err != nil {
		logger.WithError(err).Errorf("Failed to export roster")
		c.Status(http.StatusInternalServerError)
	}
}

// Health reports process liveness
func (h *APIHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
