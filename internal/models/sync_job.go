package models

import (
	"time"

	"github.com/google/uuid"
)

// SyncTrigger represents what started a sync run
type SyncTrigger string

const (
	SyncTriggerScheduled SyncTrigger = "scheduled"
	SyncTriggerWebhook   SyncTrigger = "webhook"
	SyncTriggerManual    SyncTrigger = "manual"
)

// SyncJobStatus represents the status of a sync run
type SyncJobStatus string

const (
	SyncJobStatusPending    SyncJobStatus = "pending"
	SyncJobStatusInProgress SyncJobStatus = "in-progress"
	SyncJobStatusCompleted  SyncJobStatus = "completed"
	SyncJobStatusFailed     SyncJobStatus = "failed"
)

// SyncJob records one reconciliation run
type SyncJob struct {
	ID           string        `json:"id"`
	Trigger      SyncTrigger   `json:"trigger"`
	Status       SyncJobStatus `json:"status"`
	ErrorMessage *string       `json:"error_message"`
	StartedAt    *time.Time    `json:"started_at"`
	CompletedAt  *time.Time    `json:"completed_at"`
	CreatedAt    time.Time     `json:"created_at"`
	UpdatedAt    time.Time     `json:"updated_at"`
}

// NewSyncJob creates a new SyncJob with a generated UUID
func NewSyncJob(trigger SyncTrigger) *SyncJob {
	now := time.Now()
	return &SyncJob{
		ID:        uuid.New().String(),
		Trigger:   trigger,
		Status:    SyncJobStatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// MarkStarted marks the job as started
func (j *SyncJob) MarkStarted() {
	now := time.Now()
	j.Status = SyncJobStatusInProgress
	j.StartedAt = &now
	j.UpdatedAt = now
}

// MarkCompleted marks the job as completed
func (j *SyncJob) MarkCompleted() {
	now := time.Now()
	j.Status = SyncJobStatusCompleted
	j.CompletedAt = &now
	j.UpdatedAt = now
}

// MarkFailed marks the job as failed
func (j *SyncJob) MarkFailed() {
	now := time.Now()
	j.Status = SyncJobStatusFailed
	j.CompletedAt = &now
	j.UpdatedAt = now
}

// SetError sets the error message
func (j *SyncJob) SetError(msg string) {
	j.ErrorMessage = &msg
}
