// Package scheduler owns the background sync machinery: a coalescing
// trigger front door, a Redis-marker debounce, a worker pool executing
// sync runs, and periodic sweeps for polling and subscription renewal.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	gosync "sync"
	"time"

	"github.com/gofiber/fiber/v2/log"
	"github.com/hotelhub/channelsync/app/models"
	"github.com/hotelhub/channelsync/app/repository"
	"github.com/hotelhub/channelsync/internal/pkg/cache"
	"github.com/hotelhub/channelsync/internal/pkg/channels"
	"github.com/hotelhub/channelsync/internal/pkg/env"
	"github.com/hotelhub/channelsync/internal/pkg/eventbus"
	syncer "github.com/hotelhub/channelsync/internal/pkg/sync"
	"gorm.io/gorm"
)

// ErrCoalesced reports that an equivalent sync is already in flight and
// the trigger was absorbed into it.
var ErrCoalesced = errors.New("sync already in flight, trigger coalesced")

// ErrNotRunning reports that the scheduler accepted no work because its
// workers are stopped.
var ErrNotRunning = errors.New("scheduler is not running")

const defaultWorkers = 4

// TriggerRequest asks for one sync pass. MappingID narrows the pass to a
// single mapping; zero means every active mapping of the hotel/provider.
type TriggerRequest struct {
	HotelID   uint
	Provider  models.Provider
	MappingID uint
	Type      models.SyncJobType
	Actor     string
}

type task struct {
	req TriggerRequest
	run *syncer.Run
}

// Scheduler coordinates sync execution. One instance per process.
type Scheduler struct {
	db       *gorm.DB
	registry *channels.Registry
	importer *syncer.Importer
	exporter *syncer.Exporter
	ledger   *syncer.Ledger

	tasks        chan task
	workers      int
	markerTTL    time.Duration
	retryBackoff time.Duration

	pollTicker  *time.Ticker
	renewTicker *time.Ticker
	stopCh      chan struct{}
	wg          gosync.WaitGroup
	mu          gosync.Mutex
	running     bool
}

// New wires a scheduler from the database handle, the adapter registry and
// the reconcilers. Call Start before triggering.
func New(db *gorm.DB, registry *channels.Registry, importer *syncer.Importer, exporter *syncer.Exporter) *Scheduler {
	workers := env.GetEnvInt("SYNC_WORKERS", defaultWorkers)
	if workers <= 0 {
		workers = defaultWorkers
	}
	return &Scheduler{
		db:           db,
		registry:     registry,
		importer:     importer,
		exporter:     exporter,
		ledger:       syncer.NewLedger(repository.NewRepositories(db).SyncJob),
		tasks:        make(chan task, workers*8),
		workers:      workers,
		markerTTL:    env.GetEnvDuration("SYNC_DEBOUNCE_TTL", 60*time.Second),
		retryBackoff: env.GetEnvDuration("SYNC_RETRY_BACKOFF", 5*time.Second),
		stopCh:       make(chan struct{}),
	}
}

// Start launches the worker pool and the periodic sweeps.
func (s *Scheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return
	}
	s.stopCh = make(chan struct{})
	s.running = true
	log.Infof("[Scheduler] Starting %d sync workers", s.workers)

	for i := 0; i < s.workers; i++ {
		s.wg.Add(1)
		go s.worker(i)
	}

	pollInterval := env.GetEnvDuration("SYNC_POLL_INTERVAL", 5*time.Minute)
	s.pollTicker = time.NewTicker(pollInterval)
	s.wg.Add(1)
	go s.pollWorker()

	renewInterval := env.GetEnvDuration("SUBSCRIPTION_RENEW_INTERVAL", 15*time.Minute)
	s.renewTicker = time.NewTicker(renewInterval)
	s.wg.Add(1)
	go s.renewWorker()

	log.Info("[Scheduler] Started successfully")
}

// Stop drains the workers. In-flight runs finish; queued tasks that never
// ran are closed as failed so no job is left RUNNING forever.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	log.Info("[Scheduler] Stopping sync workers...")
	if s.pollTicker != nil {
		s.pollTicker.Stop()
	}
	if s.renewTicker != nil {
		s.renewTicker.Stop()
	}
	close(s.stopCh)
	s.running = false
	s.mu.Unlock()

	s.wg.Wait()

	for {
		select {
		case t := <-s.tasks:
			t.run.Close(models.SyncCounters{}, errors.New("scheduler stopped before the job ran"))
			s.clearMarker(t.req)
		default:
			log.Info("[Scheduler] All sync workers stopped")
			return
		}
	}
}

// Trigger requests a sync pass. Duplicate triggers inside the debounce
// window return ErrCoalesced together with the marker-holding state; the
// caller gets the created job back otherwise.
func (s *Scheduler) Trigger(req TriggerRequest) (*models.SyncJob, error) {
	if !req.Type.IsValid() {
		return nil, fmt.Errorf("unknown sync job type %q", req.Type)
	}

	acquired, err := cache.SetIfAbsent(s.markerKey(req), time.Now().Format(time.RFC3339), s.markerTTL)
	if err != nil {
		return nil, fmt.Errorf("failed to reserve sync marker: %w", err)
	}
	if !acquired {
		return nil, ErrCoalesced
	}

	var mappingID *uint
	if req.MappingID != 0 {
		mappingID = &req.MappingID
	}
	run, err := s.ledger.Begin(req.HotelID, req.Provider, mappingID, req.Type, req.Actor)
	if err != nil {
		s.clearMarker(req)
		return nil, fmt.Errorf("failed to open sync job: %w", err)
	}

	select {
	case s.tasks <- task{req: req, run: run}:
		return run.Job(), nil
	default:
		run.Close(models.SyncCounters{}, ErrNotRunning)
		s.clearMarker(req)
		return nil, ErrNotRunning
	}
}

// TriggerAfterCommit runs fn inside a transaction and fires the trigger
// requests fn returns only once the commit succeeds. A rolled-back
// transaction fires nothing. Coalesced triggers are not an error.
func (s *Scheduler) TriggerAfterCommit(fn func(tx *gorm.DB) ([]TriggerRequest, error)) error {
	var queued []TriggerRequest
	err := s.db.Transaction(func(tx *gorm.DB) error {
		reqs, err := fn(tx)
		if err != nil {
			return err
		}
		queued = reqs
		return nil
	})
	if err != nil {
		return err
	}
	for _, req := range queued {
		if _, err := s.Trigger(req); err != nil && !errors.Is(err, ErrCoalesced) {
			log.Warnf("[Scheduler] Post-commit trigger for hotel %d failed: %v", req.HotelID, err)
		}
	}
	return nil
}

func (s *Scheduler) markerKey(req TriggerRequest) string {
	return fmt.Sprintf("sync:inflight:%d:%s:%s", req.HotelID, req.Provider, req.Type)
}

func (s *Scheduler) clearMarker(req TriggerRequest) {
	if err := cache.Delete(s.markerKey(req)); err != nil {
		log.Warnf("[Scheduler] Failed to clear sync marker for hotel %d: %v", req.HotelID, err)
	}
}

func (s *Scheduler) worker(id int) {
	defer s.wg.Done()
	log.Infof("[Scheduler] Worker %d started", id)

	for {
		select {
		case <-s.stopCh:
			log.Infof("[Scheduler] Worker %d stopping", id)
			return
		case t := <-s.tasks:
			s.execute(t)
		}
	}
}

// execute runs one task to its terminal state: a single retry after a
// fixed backoff on transient failure, then close, clear the debounce
// marker and broadcast the result.
func (s *Scheduler) execute(t task) {
	ctx := context.Background()

	counters, err := s.runWithRetry(ctx, t, func(ctx context.Context) (models.SyncCounters, error) {
		return s.runOnce(ctx, t)
	})

	t.run.Close(counters, err)
	s.clearMarker(t.req)

	job := t.run.Job()
	eventbus.Publish(ctx, eventbus.Notice{
		HotelID:  job.HotelID,
		Provider: string(job.Provider),
		JobID:    job.ID,
		JobType:  string(job.Type),
		State:    string(job.State),
		Changed:  counters.Created + counters.Updated + counters.Cancelled,
	})

	if err != nil {
		log.Errorf("[Scheduler] Job %s failed: %v", job.UUID, err)
	} else {
		log.Infof("[Scheduler] Job %s finished: %d processed, %d changed",
			job.UUID, counters.Processed, counters.Created+counters.Updated+counters.Cancelled)
	}
}

// runWithRetry runs pass once, and once more after the backoff when the
// failure is transient. Stop aborts the wait.
func (s *Scheduler) runWithRetry(ctx context.Context, t task, pass func(context.Context) (models.SyncCounters, error)) (models.SyncCounters, error) {
	counters, err := pass(ctx)
	if err != nil && channels.IsTransient(err) {
		t.run.Warn("transient failure, retrying once", map[string]interface{}{
			"error": err.Error(), "backoff": s.retryBackoff.String(),
		})
		select {
		case <-s.stopCh:
		case <-time.After(s.retryBackoff):
			counters, err = pass(ctx)
		}
	}
	return counters, err
}

// runOnce executes the task's reconcilers over every mapping it covers and
// aggregates the counters. The first transient error aborts the pass so
// the retry starts from a consistent point.
func (s *Scheduler) runOnce(ctx context.Context, t task) (models.SyncCounters, error) {
	var total models.SyncCounters

	mappings, err := s.resolveMappings(t.req)
	if err != nil {
		return total, err
	}
	if len(mappings) == 0 {
		t.run.Warn("no active mappings for this trigger", map[string]interface{}{
			"hotel_id": t.req.HotelID, "provider": string(t.req.Provider),
		})
		return total, nil
	}

	adapter := s.registry.Get(t.req.Provider)
	for i := range mappings {
		mapping := &mappings[i]
		var counters models.SyncCounters
		var runErr error

		switch t.req.Type {
		case models.SyncJobTypeImport, models.SyncJobTypePullReservations:
			counters, runErr = s.importer.Run(ctx, adapter, mapping, t.run)
		case models.SyncJobTypeExport:
			counters, runErr = s.exporter.Run(ctx, adapter, mapping, t.run)
		case models.SyncJobTypePushRates:
			counters, runErr = s.exporter.PushRates(ctx, adapter, mapping, t.run)
		default:
			runErr = fmt.Errorf("unknown sync job type %q", t.req.Type)
		}

		total.Add(counters)
		if runErr != nil {
			return total, runErr
		}
	}
	return total, nil
}

func (s *Scheduler) resolveMappings(req TriggerRequest) ([]models.ChannelMapping, error) {
	repos := repository.NewRepositories(s.db)
	if req.MappingID != 0 {
		mapping, err := repos.Mapping.GetByID(req.MappingID)
		if err != nil {
			return nil, fmt.Errorf("failed to load mapping %d: %w", req.MappingID, err)
		}
		if !mapping.IsActive() {
			return nil, nil
		}
		return []models.ChannelMapping{*mapping}, nil
	}
	mappings, err := repos.Mapping.ActiveByHotelProvider(req.HotelID, req.Provider)
	if err != nil {
		return nil, fmt.Errorf("failed to load mappings: %w", err)
	}
	return mappings, nil
}
