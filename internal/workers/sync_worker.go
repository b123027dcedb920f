package workers

import (
	"context"
	"time"

	"github.com/gitmesh-labs/steward/internal/models"
	"github.com/gitmesh-labs/steward/internal/repositories"
	"github.com/gitmesh-labs/steward/internal/services"
	"github.com/gitmesh-labs/steward/pkg/logger"
)

// SyncWorker processes sync jobs one at a time. Exactly one instance
// runs; reconciliation passes must never overlap.
type SyncWorker struct {
	*BaseWorker
	syncJobRepo *repositories.SyncJobRepository
	syncService *services.SyncService
}

// NewSyncWorker creates a new sync worker
func NewSyncWorker(workerID string, syncJobRepo *repositories.SyncJobRepository, syncService *services.SyncService) *SyncWorker {
	return &SyncWorker{
		BaseWorker:  NewBaseWorker(workerID),
		syncJobRepo: syncJobRepo,
		syncService: syncService,
	}
}

// Start begins the sync worker loop
func (w *SyncWorker) Start(ctx context.Context) error {
	w.Running = true
	logger.Infof("Sync worker %s started", w.WorkerID)

	for {
		select {
		case <-ctx.Done():
			logger.Infof("Sync worker %s stopping due to context cancellation", w.WorkerID)
			return ctx.Err()
		case <-w.StopChan:
			logger.Infof("Sync worker %s stopping", w.WorkerID)
			return nil
		default:
			job, err := w.syncJobRepo.GetNextPending()
			if err != nil {
				logger.WithError(err).Errorf("Sync worker %s error getting job", w.WorkerID)
				time.Sleep(5 * time.Second)
				continue
			}

			if job == nil {
				time.Sleep(10 * time.Second)
				continue
			}

			w.processJob(ctx, job)
		}
	}
}

func (w *SyncWorker) processJob(ctx context.Context, job *models.SyncJob) {
	logger.WithField("job_id", job.ID).Infof("Sync worker %s processing job", w.WorkerID)

	job.MarkStarted()
	if err := w.syncJobRepo.Update(job); err != nil {
		logger.WithError(err).Errorf("Sync worker %s error updating job %s", w.WorkerID, job.ID)
		return
	}

	if err := w.syncService.Run(ctx); err != nil {
		logger.WithError(err).Errorf("Sync worker %s job %s failed", w.WorkerID, job.ID)
		job.SetError(err.Error())
		job.MarkFailed()
		if err := w.syncJobRepo.Update(job); err != nil {
			logger.WithError(err).Errorf("Sync worker %s error marking job %s as failed", w.WorkerID, job.ID)
		}
		return
	}

	job.MarkCompleted()
	if err := w.syncJobRepo.Update(job); err != nil {
		logger.WithError(err).Errorf("Sync worker %s error marking job %s as completed", w.WorkerID, job.ID)
		return
	}
	logger.WithField("job_id", job.ID).Infof("Sync worker %s completed job", w.WorkerID)
}
