package repository

import (
	"time"

	"github.com/hotelhub/channelsync/app/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// trackingRepository implements the TrackingRepository interface
type trackingRepository struct {
	db *gorm.DB
}

// NewTrackingRepository creates a new tracking repository instance
func NewTrackingRepository(db *gorm.DB) TrackingRepository {
	return &trackingRepository{db: db}
}

// UpsertTracked inserts or refreshes the idempotency record for an observed
// external event, keyed by (room, provider, external uid)
func (r *trackingRepository) UpsertTracked(event *models.TrackedExternalEvent) error {
	return r.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "room_id"}, {Name: "provider"}, {Name: "external_uid"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"summary", "start_date", "end_date", "last_seen_at", "updated_at",
		}),
	}).Create(event).Error
}

// TrackedByRoomProvider lists all tracked events for a (room, provider) scope
func (r *trackingRepository) TrackedByRoomProvider(roomID uint, provider models.Provider) ([]models.TrackedExternalEvent, error) {
	var events []models.TrackedExternalEvent
	err := r.db.Where("room_id = ? AND provider = ?", roomID, provider).
		Order("id ASC").Find(&events).Error
	return events, err
}

// UnseenSince lists tracked events that were not refreshed by the run that
// started at runStart. These are candidates for disappearance cancellation.
func (r *trackingRepository) UnseenSince(roomID uint, provider models.Provider, runStart time.Time) ([]models.TrackedExternalEvent, error) {
	var events []models.TrackedExternalEvent
	err := r.db.Where("room_id = ? AND provider = ? AND last_seen_at < ?", roomID, provider, runStart).
		Order("id ASC").Find(&events).Error
	return events, err
}

// DeleteTracked removes a tracking row after its event was cancelled
func (r *trackingRepository) DeleteTracked(id uint) error {
	return r.db.Delete(&models.TrackedExternalEvent{}, id).Error
}

// ExportRecord retrieves the export idempotency record for a local booking
func (r *trackingRepository) ExportRecord(provider models.Provider, kind string, localID uint) (*models.ExportedBookingRecord, error) {
	var rec models.ExportedBookingRecord
	err := r.db.Where("provider = ? AND kind = ? AND local_id = ?", provider, kind, localID).
		First(&rec).Error
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// SaveExportRecord persists an export idempotency record
func (r *trackingRepository) SaveExportRecord(rec *models.ExportedBookingRecord) error {
	return r.db.Save(rec).Error
}

// ActiveExportRecords lists active export records for a (room, provider) scope
func (r *trackingRepository) ActiveExportRecords(roomID uint, provider models.Provider) ([]models.ExportedBookingRecord, error) {
	var recs []models.ExportedBookingRecord
	err := r.db.Where("room_id = ? AND provider = ? AND active = ?", roomID, provider, true).
		Order("id ASC").Find(&recs).Error
	return recs, err
}
