package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"

	"github.com/hotelhub/channelsync/app/models"
	"github.com/hotelhub/channelsync/app/repository"
	"github.com/hotelhub/channelsync/internal/pkg/channels"
	syncer "github.com/hotelhub/channelsync/internal/pkg/sync"
)

func TestMarkerKeyIsScopedPerHotelProviderType(t *testing.T) {
	s := &Scheduler{}

	key := s.markerKey(TriggerRequest{
		HotelID:  12,
		Provider: models.ProviderICal,
		Type:     models.SyncJobTypeImport,
	})
	assert.Equal(t, "sync:inflight:12:ical:import", key)

	// Different job types for the same pair must not coalesce each other.
	exportKey := s.markerKey(TriggerRequest{
		HotelID:  12,
		Provider: models.ProviderICal,
		Type:     models.SyncJobTypeExport,
	})
	assert.NotEqual(t, key, exportKey)

	otherHotel := s.markerKey(TriggerRequest{
		HotelID:  13,
		Provider: models.ProviderICal,
		Type:     models.SyncJobTypeImport,
	})
	assert.NotEqual(t, key, otherHotel)
}

func setupMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("Failed to open mock sql db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	dialector := mysql.New(mysql.Config{
		Conn:                      db,
		SkipInitializeWithVersion: true,
	})

	gormDB, err := gorm.Open(dialector, &gorm.Config{})
	if err != nil {
		t.Fatalf("Failed to open gorm db: %v", err)
	}

	return gormDB, mock
}

func expectWrite(mock sqlmock.Sqlmock, query string) {
	mock.ExpectBegin()
	mock.ExpectExec(query).WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()
}

func TestRunWithRetryRecoversFromTransientFailure(t *testing.T) {
	db, mock := setupMockDB(t)

	expectWrite(mock, "INSERT INTO .sync_jobs.")
	expectWrite(mock, "UPDATE .sync_jobs. SET")
	ledger := syncer.NewLedger(repository.NewSyncJobRepository(db))
	run, err := ledger.Begin(1, models.ProviderOTA, nil, models.SyncJobTypeExport, "api")
	require.NoError(t, err)

	s := &Scheduler{retryBackoff: time.Millisecond, stopCh: make(chan struct{})}
	tsk := task{req: TriggerRequest{HotelID: 1, Provider: models.ProviderOTA, Type: models.SyncJobTypeExport}, run: run}

	// The retry warning lands in the job log before the second attempt.
	expectWrite(mock, "INSERT INTO .sync_logs.")

	calls := 0
	counters, err := s.runWithRetry(context.Background(), tsk, func(ctx context.Context) (models.SyncCounters, error) {
		calls++
		if calls == 1 {
			return models.SyncCounters{}, channels.Transientf("provider returned status 503")
		}
		return models.SyncCounters{Processed: 4, Created: 2}, nil
	})

	require.NoError(t, err)
	assert.Equal(t, 2, calls)
	assert.Equal(t, 4, counters.Processed)

	expectWrite(mock, "UPDATE .sync_jobs. SET")
	run.Close(counters, err)
	assert.Equal(t, models.SyncJobStateSuccess, run.Job().State)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRunWithRetryDoesNotRetryPermanentFailure(t *testing.T) {
	db, mock := setupMockDB(t)

	expectWrite(mock, "INSERT INTO .sync_jobs.")
	expectWrite(mock, "UPDATE .sync_jobs. SET")
	ledger := syncer.NewLedger(repository.NewSyncJobRepository(db))
	run, err := ledger.Begin(1, models.ProviderOTA, nil, models.SyncJobTypeExport, "api")
	require.NoError(t, err)

	s := &Scheduler{retryBackoff: time.Millisecond, stopCh: make(chan struct{})}
	tsk := task{req: TriggerRequest{HotelID: 1, Provider: models.ProviderOTA, Type: models.SyncJobTypeExport}, run: run}

	calls := 0
	boom := errors.New("provider returned status 401")
	_, err = s.runWithRetry(context.Background(), tsk, func(ctx context.Context) (models.SyncCounters, error) {
		calls++
		return models.SyncCounters{}, boom
	})

	require.ErrorIs(t, err, boom)
	assert.Equal(t, 1, calls)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTriggerAfterCommitFiresNothingOnRollback(t *testing.T) {
	db, mock := setupMockDB(t)
	mock.ExpectBegin()
	mock.ExpectRollback()

	s := &Scheduler{db: db}

	boom := errors.New("mapping update failed")
	err := s.TriggerAfterCommit(func(tx *gorm.DB) ([]TriggerRequest, error) {
		return []TriggerRequest{{HotelID: 1, Provider: models.ProviderICal, Type: models.SyncJobTypeImport}}, boom
	})

	// The transaction error comes back and no trigger runs: a fired trigger
	// would hit Redis and the job ledger, which this scheduler has no
	// backends for.
	require.ErrorIs(t, err, boom)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTriggerRejectsUnknownJobType(t *testing.T) {
	s := &Scheduler{}

	_, err := s.Trigger(TriggerRequest{
		HotelID:  1,
		Provider: models.ProviderICal,
		Type:     models.SyncJobType("resync"),
	})
	assert.Error(t, err)
}
