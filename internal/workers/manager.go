package workers

import (
	"context"
	"sync"

	"github.com/gitmesh-labs/steward/internal/repositories"
	"github.com/gitmesh-labs/steward/internal/services"
	"github.com/gitmesh-labs/steward/pkg/logger"
)

// WorkerManager owns the background workers. The sync worker is
// deliberately a singleton so reconciliation runs stay serialized.
type WorkerManager struct {
	workers     []Worker
	syncJobRepo *repositories.SyncJobRepository
	syncService *services.SyncService
	wg          sync.WaitGroup
	ctx         context.Context
	cancel      context.CancelFunc
}

// NewWorkerManager creates a new worker manager
func NewWorkerManager(syncJobRepo *repositories.SyncJobRepository, syncService *services.SyncService) *WorkerManager {
	ctx, cancel := context.WithCancel(context.Background())
	return &WorkerManager{
		workers:     make([]Worker, 0),
		syncJobRepo: syncJobRepo,
		syncService: syncService,
		ctx:         ctx,
		cancel:      cancel,
	}
}

// StartAll starts all workers
func (wm *WorkerManager) StartAll() error {
	worker := NewSyncWorker("sync-1", wm.syncJobRepo, wm.syncService)
	wm.workers = append(wm.workers, worker)
	wm.startWorker(worker)

	logger.Infof("Started %d total workers", len(wm.workers))
	return nil
}

// StopAll gracefully stops all workers
func (wm *WorkerManager) StopAll() error {
	logger.Infof("Stopping all workers...")
	wm.cancel()
	for _, worker := range wm.workers {
		if err := worker.Stop(); err != nil {
			logger.WithError(err).Errorf("Error stopping worker %s", worker.GetWorkerID())
		}
	}
	wm.wg.Wait()
	logger.Infof("All workers stopped")
	return nil
}

func (wm *WorkerManager) startWorker(worker Worker) {
	wm.wg.Add(1)
	go func() {
		defer wm.wg.Done()
		if err := worker.Start(wm.ctx); err != nil && err != context.Canceled {
			logger.WithError(err).Errorf("Worker %s exited with error", worker.GetWorkerID())
		}
	}()
}
