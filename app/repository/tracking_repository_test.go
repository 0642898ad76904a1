package repository

import (
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/hotelhub/channelsync/app/models"
)

func TestUpsertTrackedUsesOnConflict(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewTrackingRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO .tracked_external_events. .* ON DUPLICATE KEY UPDATE").
		WillReturnResult(sqlmock.NewResult(5, 1))
	mock.ExpectCommit()

	event := &models.TrackedExternalEvent{
		HotelID:     1,
		RoomID:      7,
		Provider:    models.ProviderICal,
		ExternalUID: "stay-1@example.com",
		StartDate:   time.Date(2026, 1, 10, 0, 0, 0, 0, time.UTC),
		EndDate:     time.Date(2026, 1, 14, 0, 0, 0, 0, time.UTC),
		LastSeenAt:  time.Now(),
	}
	require.NoError(t, repo.UpsertTracked(event))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUnseenSinceFiltersByLastSeen(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewTrackingRepository(db)

	rows := sqlmock.NewRows([]string{"id", "room_id", "provider", "external_uid"}).
		AddRow(9, 7, "ical", "gone@example.com")
	mock.ExpectQuery("SELECT \\* FROM .tracked_external_events. WHERE room_id = \\? AND provider = \\? AND last_seen_at < \\?").
		WillReturnRows(rows)

	events, err := repo.UnseenSince(7, models.ProviderICal, time.Now())
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "gone@example.com", events[0].ExternalUID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestExportRecordNotFound(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewTrackingRepository(db)

	mock.ExpectQuery("SELECT \\* FROM .exported_booking_records.").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, err := repo.ExportRecord(models.ProviderOTA, models.ExportKindReservation, 12)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}
