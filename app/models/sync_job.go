package models

import "time"

// SyncJobType defines what work a job performs.
type SyncJobType string

const (
	SyncJobTypeImport           SyncJobType = "import"
	SyncJobTypeExport           SyncJobType = "export"
	SyncJobTypePushRates        SyncJobType = "push_rates"
	SyncJobTypePullReservations SyncJobType = "pull_reservations"
)

// IsValid reports whether t names a known job type.
func (t SyncJobType) IsValid() bool {
	switch t {
	case SyncJobTypeImport, SyncJobTypeExport, SyncJobTypePushRates, SyncJobTypePullReservations:
		return true
	}
	return false
}

// SyncJobState is the job state machine: PENDING → RUNNING → {SUCCESS, FAILED}.
// Terminal states are final; no transition leaves RUNNING except to one of them.
type SyncJobState string

const (
	SyncJobStatePending SyncJobState = "PENDING"
	SyncJobStateRunning SyncJobState = "RUNNING"
	SyncJobStateSuccess SyncJobState = "SUCCESS"
	SyncJobStateFailed  SyncJobState = "FAILED"
)

// IsTerminal reports whether the state is final.
func (s SyncJobState) IsTerminal() bool {
	return s == SyncJobStateSuccess || s == SyncJobStateFailed
}

// SyncCounters aggregates per-run outcomes. Embedded in SyncJob.
type SyncCounters struct {
	Processed int `gorm:"default:0" json:"processed"`
	Created   int `gorm:"default:0" json:"created"`
	Updated   int `gorm:"default:0" json:"updated"`
	Skipped   int `gorm:"default:0" json:"skipped"`
	Cancelled int `gorm:"default:0" json:"cancelled"`
	Errors    int `gorm:"default:0" json:"errors"`
}

// Add accumulates another counter set into this one.
func (c *SyncCounters) Add(other SyncCounters) {
	c.Processed += other.Processed
	c.Created += other.Created
	c.Updated += other.Updated
	c.Skipped += other.Skipped
	c.Cancelled += other.Cancelled
	c.Errors += other.Errors
}

// SyncJob records one synchronization attempt for a (hotel, provider) pair.
// Rows are append-only apart from the state transition and counters.
type SyncJob struct {
	ID         uint         `gorm:"primaryKey" json:"id"`
	UUID       string       `gorm:"type:char(36);uniqueIndex;not null" json:"uuid"`
	HotelID    uint         `gorm:"index;not null" json:"hotel_id"`
	Provider   Provider     `gorm:"type:varchar(32);index;not null" json:"provider"`
	MappingID  *uint        `gorm:"index;default:null" json:"mapping_id,omitempty"`
	Type       SyncJobType  `gorm:"type:varchar(32);not null" json:"type"`
	State      SyncJobState `gorm:"type:varchar(16);not null;default:'PENDING';index" json:"state"`
	Actor      string       `gorm:"type:varchar(191);not null;default:'system'" json:"actor"`
	Error      string       `gorm:"type:text" json:"error,omitempty"`
	SyncCounters
	StartedAt  *time.Time `gorm:"type:timestamp;default:null" json:"started_at,omitempty"`
	FinishedAt *time.Time `gorm:"type:timestamp;default:null" json:"finished_at,omitempty"`
	CreatedAt  time.Time  `gorm:"autoCreateTime;index" json:"created_at"`
	UpdatedAt  time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

// MarkRunning moves the job to RUNNING and stamps the start time.
func (j *SyncJob) MarkRunning() {
	now := time.Now()
	j.State = SyncJobStateRunning
	j.StartedAt = &now
}

// MarkSuccess moves the job to its SUCCESS terminal state.
func (j *SyncJob) MarkSuccess(counters SyncCounters) {
	now := time.Now()
	j.State = SyncJobStateSuccess
	j.SyncCounters = counters
	j.FinishedAt = &now
}

// MarkFailed moves the job to its FAILED terminal state.
func (j *SyncJob) MarkFailed(counters SyncCounters, errMsg string) {
	now := time.Now()
	j.State = SyncJobStateFailed
	j.SyncCounters = counters
	j.Error = errMsg
	j.FinishedAt = &now
}
