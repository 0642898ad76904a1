package repository

import (
	"time"

	"github.com/hotelhub/channelsync/app/models"
	"gorm.io/gorm"
)

// syncJobRepository implements the SyncJobRepository interface
type syncJobRepository struct {
	db *gorm.DB
}

// NewSyncJobRepository creates a new sync job repository instance
func NewSyncJobRepository(db *gorm.DB) SyncJobRepository {
	return &syncJobRepository{db: db}
}

// CreateJob creates a new sync job row
func (r *syncJobRepository) CreateJob(job *models.SyncJob) error {
	return r.db.Create(job).Error
}

// UpdateJob persists job state transitions and counters
func (r *syncJobRepository) UpdateJob(job *models.SyncJob) error {
	return r.db.Save(job).Error
}

// GetJobByUUID retrieves a job by its public UUID
func (r *syncJobRepository) GetJobByUUID(uuid string) (*models.SyncJob, error) {
	var job models.SyncJob
	if err := r.db.Where("uuid = ?", uuid).First(&job).Error; err != nil {
		return nil, err
	}
	return &job, nil
}

// ListJobs retrieves jobs matching the filter, newest first, with the total count
func (r *syncJobRepository) ListJobs(filter JobFilter, offset, limit int) ([]models.SyncJob, int64, error) {
	query := r.db.Model(&models.SyncJob{})
	if filter.HotelID != 0 {
		query = query.Where("hotel_id = ?", filter.HotelID)
	}
	if filter.Provider != "" {
		query = query.Where("provider = ?", filter.Provider)
	}
	if filter.State != "" {
		query = query.Where("state = ?", filter.State)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var jobs []models.SyncJob
	err := query.Order("created_at DESC").Offset(offset).Limit(limit).Find(&jobs).Error
	return jobs, total, err
}

// AppendLog appends one ordered log entry under a job
func (r *syncJobRepository) AppendLog(entry *models.SyncLog) error {
	return r.db.Create(entry).Error
}

// ListLogs retrieves log entries for a job in insertion order
func (r *syncJobRepository) ListLogs(jobID uint, level string, offset, limit int) ([]models.SyncLog, int64, error) {
	query := r.db.Model(&models.SyncLog{}).Where("sync_job_id = ?", jobID)
	if level != "" {
		query = query.Where("level = ?", level)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var logs []models.SyncLog
	err := query.Order("id ASC").Offset(offset).Limit(limit).Find(&logs).Error
	return logs, total, err
}

// StaleRunning lists jobs stuck in RUNNING for longer than olderThan.
// Read-only: requeuing crashed jobs is an operator decision, not ours.
func (r *syncJobRepository) StaleRunning(olderThan time.Duration) ([]models.SyncJob, error) {
	cutoff := time.Now().Add(-olderThan)
	var jobs []models.SyncJob
	err := r.db.Where("state = ? AND started_at IS NOT NULL AND started_at < ?", models.SyncJobStateRunning, cutoff).
		Order("started_at ASC").Find(&jobs).Error
	return jobs, err
}
