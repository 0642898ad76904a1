package repository

import (
	"time"

	"github.com/hotelhub/channelsync/app/models"
	"gorm.io/gorm"
)

// HotelRepository defines hotel and room lookups used by feeds and sync runs
type HotelRepository interface {
	GetByID(id uint) (*models.Hotel, error)
	GetRoom(id uint) (*models.Room, error)
	GetRooms(hotelID uint) ([]models.Room, error)
}

// ReservationRepository defines reservation and block persistence.
// SaveVersioned implements the optimistic-concurrency contract: it only
// writes when the in-memory LockVersion still matches the row and returns
// ErrStaleReservation otherwise.
type ReservationRepository interface {
	Create(res *models.Reservation) error
	GetByID(id uint) (*models.Reservation, error)
	GetByExternalUID(hotelID uint, externalUID, channel string) (*models.Reservation, error)
	SaveVersioned(res *models.Reservation) error
	ActiveByRoom(roomID uint) ([]models.Reservation, error)
	ActiveDirectByRoom(roomID uint) ([]models.Reservation, error)
	ActiveByHotel(hotelID uint) ([]models.Reservation, error)
	ActiveExternalByRoomProvider(roomID uint, provider models.Provider) ([]models.Reservation, error)
	ActiveBlocksByRoom(roomID uint) ([]models.RoomBlock, error)
	GetBlock(id uint) (*models.RoomBlock, error)
}

// MappingRepository defines channel mapping lookups and sync-state updates
type MappingRepository interface {
	GetByID(id uint) (*models.ChannelMapping, error)
	AllActive() ([]models.ChannelMapping, error)
	ActiveByHotelProvider(hotelID uint, provider models.Provider) ([]models.ChannelMapping, error)
	ActiveByRoomProvider(roomID uint, provider models.Provider) (*models.ChannelMapping, error)
	ActiveProviders(hotelID uint) ([]models.Provider, error)
	GetBySubscription(subscriptionID, token, resourceID string) (*models.ChannelMapping, error)
	ExpiringSubscriptions(within time.Duration) ([]models.ChannelMapping, error)
	Save(mapping *models.ChannelMapping) error
	TouchSynced(mappingID uint, syncToken string) error
}

// TrackingRepository defines both idempotency-record tables: tracked
// external events (import direction) and exported booking records (export
// direction). Each is written only within its own (provider, room) scope.
type TrackingRepository interface {
	UpsertTracked(event *models.TrackedExternalEvent) error
	TrackedByRoomProvider(roomID uint, provider models.Provider) ([]models.TrackedExternalEvent, error)
	UnseenSince(roomID uint, provider models.Provider, runStart time.Time) ([]models.TrackedExternalEvent, error)
	DeleteTracked(id uint) error

	ExportRecord(provider models.Provider, kind string, localID uint) (*models.ExportedBookingRecord, error)
	SaveExportRecord(rec *models.ExportedBookingRecord) error
	ActiveExportRecords(roomID uint, provider models.Provider) ([]models.ExportedBookingRecord, error)
}

// JobFilter narrows job listings. Zero values mean "any".
type JobFilter struct {
	HotelID  uint
	Provider models.Provider
	State    models.SyncJobState
}

// SyncJobRepository defines the append-only job/log ledger persistence
type SyncJobRepository interface {
	CreateJob(job *models.SyncJob) error
	UpdateJob(job *models.SyncJob) error
	GetJobByUUID(uuid string) (*models.SyncJob, error)
	ListJobs(filter JobFilter, offset, limit int) ([]models.SyncJob, int64, error)
	AppendLog(entry *models.SyncLog) error
	ListLogs(jobID uint, level string, offset, limit int) ([]models.SyncLog, int64, error)
	StaleRunning(olderThan time.Duration) ([]models.SyncJob, error)
}

// RateRepository reads the pricing engine's daily schedule rows
type RateRepository interface {
	Schedule(roomID uint, from time.Time, days int) ([]models.RatePlan, error)
}

// Repositories struct holds all repository instances
type Repositories struct {
	Hotel       HotelRepository
	Reservation ReservationRepository
	Mapping     MappingRepository
	Tracking    TrackingRepository
	SyncJob     SyncJobRepository
	Rate        RateRepository
}

// NewRepositories creates a new instance of all repositories
func NewRepositories(db *gorm.DB) *Repositories {
	return &Repositories{
		Hotel:       NewHotelRepository(db),
		Reservation: NewReservationRepository(db),
		Mapping:     NewMappingRepository(db),
		Tracking:    NewTrackingRepository(db),
		SyncJob:     NewSyncJobRepository(db),
		Rate:        NewRateRepository(db),
	}
}

// WithTx returns a Repositories view bound to the given transaction handle
// so one reconciliation batch persists atomically.
func (r *Repositories) WithTx(tx *gorm.DB) *Repositories {
	return NewRepositories(tx)
}
