package services

import (
	"time"

	"github.com/gitmesh-labs/steward/internal/models"
	"github.com/gitmesh-labs/steward/internal/repositories"
	"github.com/gitmesh-labs/steward/pkg/logger"
)

// SchedulerService enqueues a scheduled sync job once per hour,
// skipping the tick while a run is already pending or in flight.
type SchedulerService struct {
	syncJobRepo *repositories.SyncJobRepository
}

// NewSchedulerService creates a new SchedulerService
func NewSchedulerService(syncJobRepo *repositories.SyncJobRepository) *SchedulerService {
	return &SchedulerService{syncJobRepo: syncJobRepo}
}

// StartScheduler starts the hourly sync scheduler
func (s *SchedulerService) StartScheduler() {
	go func() {
		for {
			if err := s.enqueue(); err != nil {
				logger.WithError(err).Errorf("Failed to enqueue scheduled sync")
			}

			// Sleep until the top of the next hour
			now := time.Now()
			next := now.Add(time.Hour)
			next = time.Date(next.Year(), next.Month(), next.Day(), next.Hour(), 0, 0, 0, next.Location())
			time.Sleep(next.Sub(now))
		}
	}()
}

func (s *SchedulerService) enqueue() error {
	active, err := s.syncJobRepo.HasActive()
	if err != nil {
		return err
	}
	if active {
		logger.Debugf("Sync already pending or running, skipping scheduled tick")
		return nil
	}

	job := models.NewSyncJob(models.SyncTriggerScheduled)
	if err := s.syncJobRepo.Create(job); err != nil {
		return err
	}
	logger.WithField("job_id", job.ID).Infof("Scheduled sync job enqueued")
	return nil
}
