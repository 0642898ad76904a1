package sync

import (
	"encoding/json"

	"github.com/gofiber/fiber/v2/log"
	"github.com/google/uuid"
	"github.com/hotelhub/channelsync/app/models"
	"github.com/hotelhub/channelsync/app/repository"
)

// Ledger is the append-only audit trail around sync jobs and their logs.
type Ledger struct {
	repo repository.SyncJobRepository
}

// NewLedger creates a ledger over the job repository.
func NewLedger(repo repository.SyncJobRepository) *Ledger {
	return &Ledger{repo: repo}
}

// Begin creates a job and immediately moves it to RUNNING so the caller can
// hand out its UUID before any adapter work starts.
func (l *Ledger) Begin(hotelID uint, provider models.Provider, mappingID *uint, jobType models.SyncJobType, actor string) (*Run, error) {
	if actor == "" {
		actor = "system"
	}
	job := &models.SyncJob{
		UUID:      uuid.New().String(),
		HotelID:   hotelID,
		Provider:  provider,
		MappingID: mappingID,
		Type:      jobType,
		State:     models.SyncJobStatePending,
		Actor:     actor,
	}
	if err := l.repo.CreateJob(job); err != nil {
		return nil, err
	}

	job.MarkRunning()
	if err := l.repo.UpdateJob(job); err != nil {
		return nil, err
	}
	return &Run{job: job, repo: l.repo}, nil
}

// Run is the logging handle for one job. Log writes are best effort: a
// failed insert must never abort the sync work it documents.
type Run struct {
	job  *models.SyncJob
	repo repository.SyncJobRepository
}

// Job exposes the underlying job row (for UUID, ids).
func (r *Run) Job() *models.SyncJob {
	return r.job
}

// Info appends an info-level entry.
func (r *Run) Info(message string, context map[string]interface{}) {
	r.append(models.SyncLogLevelInfo, message, context)
}

// Warn appends a warning-level entry.
func (r *Run) Warn(message string, context map[string]interface{}) {
	r.append(models.SyncLogLevelWarning, message, context)
}

// Error appends an error-level entry.
func (r *Run) Error(message string, context map[string]interface{}) {
	r.append(models.SyncLogLevelError, message, context)
}

func (r *Run) append(level, message string, context map[string]interface{}) {
	entry := &models.SyncLog{
		SyncJobID: r.job.ID,
		Level:     level,
		Message:   message,
	}
	if len(context) > 0 {
		if raw, err := json.Marshal(context); err == nil {
			entry.Context = models.LogContext(raw)
		}
	}
	if err := r.repo.AppendLog(entry); err != nil {
		log.Errorf("[SyncLedger] Failed to append log for job %s: %v", r.job.UUID, err)
	}
}

// Close drives the job to its terminal state. The log is complete before
// this returns; afterwards the job row never changes again.
func (r *Run) Close(counters models.SyncCounters, runErr error) {
	if r.job.State.IsTerminal() {
		return
	}
	if runErr != nil {
		r.job.MarkFailed(counters, runErr.Error())
	} else {
		r.job.MarkSuccess(counters)
	}
	if err := r.repo.UpdateJob(r.job); err != nil {
		log.Errorf("[SyncLedger] Failed to close job %s: %v", r.job.UUID, err)
	}
}
