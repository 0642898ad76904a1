package sync

import (
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"

	"github.com/hotelhub/channelsync/app/models"
	"github.com/hotelhub/channelsync/app/repository"
)

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

func expectJobWrite(mock sqlmock.Sqlmock, query string) {
	mock.ExpectBegin()
	mock.ExpectExec(query).WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()
}

func TestLedgerBeginCreatesRunningJob(t *testing.T) {
	db, mock := setupMockDB(t)
	ledger := NewLedger(repository.NewSyncJobRepository(db))

	expectJobWrite(mock, "INSERT INTO .sync_jobs.")
	expectJobWrite(mock, "UPDATE .sync_jobs. SET")

	run, err := ledger.Begin(1, models.ProviderICal, nil, models.SyncJobTypeImport, "api")
	require.NoError(t, err)

	job := run.Job()
	assert.NotEmpty(t, job.UUID)
	assert.Equal(t, models.SyncJobStateRunning, job.State)
	assert.Equal(t, "api", job.Actor)
	assert.NotNil(t, job.StartedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRunCloseDrivesTerminalState(t *testing.T) {
	db, mock := setupMockDB(t)
	ledger := NewLedger(repository.NewSyncJobRepository(db))

	expectJobWrite(mock, "INSERT INTO .sync_jobs.")
	expectJobWrite(mock, "UPDATE .sync_jobs. SET")

	run, err := ledger.Begin(1, models.ProviderOTA, nil, models.SyncJobTypeExport, "")
	require.NoError(t, err)
	assert.Equal(t, "system", run.Job().Actor)

	expectJobWrite(mock, "UPDATE .sync_jobs. SET")
	run.Close(models.SyncCounters{Processed: 2, Errors: 1}, errors.New("push failed"))

	job := run.Job()
	assert.Equal(t, models.SyncJobStateFailed, job.State)
	assert.Equal(t, "push failed", job.Error)
	assert.Equal(t, 2, job.Processed)
	assert.NotNil(t, job.FinishedAt)

	// Closing again must not touch the row: the state is terminal.
	run.Close(models.SyncCounters{}, nil)
	assert.Equal(t, models.SyncJobStateFailed, job.State)
	assert.NoError(t, mock.ExpectationsWereMet())
}
