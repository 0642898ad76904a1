package repository

import (
	"errors"

	"github.com/hotelhub/channelsync/app/models"
	"gorm.io/gorm"
)

// ErrStaleReservation is returned by SaveVersioned when another writer
// changed the row between read and save. Callers treat their pass as a
// no-op instead of overwriting.
var ErrStaleReservation = errors.New("reservation was modified concurrently")

// reservationRepository implements the ReservationRepository interface
type reservationRepository struct {
	db *gorm.DB
}

// NewReservationRepository creates a new reservation repository instance
func NewReservationRepository(db *gorm.DB) ReservationRepository {
	return &reservationRepository{db: db}
}

// Create creates a new reservation in the database
func (r *reservationRepository) Create(res *models.Reservation) error {
	return r.db.Create(res).Error
}

// GetByID retrieves a reservation by its ID
func (r *reservationRepository) GetByID(id uint) (*models.Reservation, error) {
	var res models.Reservation
	if err := r.db.First(&res, id).Error; err != nil {
		return nil, err
	}
	return &res, nil
}

// GetByExternalUID resolves a reservation by its import identity
// (hotel, external uid, channel)
func (r *reservationRepository) GetByExternalUID(hotelID uint, externalUID, channel string) (*models.Reservation, error) {
	var res models.Reservation
	err := r.db.Where("hotel_id = ? AND external_uid = ? AND channel = ?", hotelID, externalUID, channel).
		First(&res).Error
	if err != nil {
		return nil, err
	}
	return &res, nil
}

// SaveVersioned writes the reservation guarded by its lock version. The row
// is only updated when no concurrent write landed since the caller's read.
func (r *reservationRepository) SaveVersioned(res *models.Reservation) error {
	if err := res.BeforeSave(r.db); err != nil {
		return err
	}
	currentVersion := res.LockVersion
	res.LockVersion = currentVersion + 1
	result := r.db.Model(&models.Reservation{}).
		Where("id = ? AND lock_version = ?", res.ID, currentVersion).
		Updates(map[string]interface{}{
			"room_id":      res.RoomID,
			"status":       res.Status,
			"check_in":     res.CheckIn,
			"check_out":    res.CheckOut,
			"guest_name":   res.GuestName,
			"notes":        res.Notes,
			"overbooked":   res.Overbooked,
			"paid_by":      res.PaidBy,
			"lock_version": res.LockVersion,
		})
	if result.Error != nil {
		res.LockVersion = currentVersion
		return result.Error
	}
	if result.RowsAffected == 0 {
		res.LockVersion = currentVersion
		return ErrStaleReservation
	}
	return nil
}

// ActiveByRoom retrieves all active reservations for a room
func (r *reservationRepository) ActiveByRoom(roomID uint) ([]models.Reservation, error) {
	var reservations []models.Reservation
	err := r.db.Where("room_id = ? AND status IN ?", roomID, activeStatuses()).
		Order("check_in ASC").Find(&reservations).Error
	return reservations, err
}

// ActiveDirectByRoom retrieves active direct (PMS-made) reservations for a room
func (r *reservationRepository) ActiveDirectByRoom(roomID uint) ([]models.Reservation, error) {
	var reservations []models.Reservation
	err := r.db.Where("room_id = ? AND channel = ? AND status IN ?", roomID, models.ChannelDirect, activeStatuses()).
		Order("check_in ASC").Find(&reservations).Error
	return reservations, err
}

// ActiveByHotel retrieves all active reservations for a hotel (feed export)
func (r *reservationRepository) ActiveByHotel(hotelID uint) ([]models.Reservation, error) {
	var reservations []models.Reservation
	err := r.db.Where("hotel_id = ? AND status IN ?", hotelID, activeStatuses()).
		Order("check_in ASC").Find(&reservations).Error
	return reservations, err
}

// ActiveExternalByRoomProvider retrieves active reservations a provider
// delivered for a room. Used by the defensive disappearance sweep.
func (r *reservationRepository) ActiveExternalByRoomProvider(roomID uint, provider models.Provider) ([]models.Reservation, error) {
	var reservations []models.Reservation
	err := r.db.Where("room_id = ? AND channel = ? AND status IN ?", roomID, string(provider), activeStatuses()).
		Order("check_in ASC").Find(&reservations).Error
	return reservations, err
}

// ActiveBlocksByRoom retrieves non-deleted room blocks for a room
func (r *reservationRepository) ActiveBlocksByRoom(roomID uint) ([]models.RoomBlock, error) {
	var blocks []models.RoomBlock
	err := r.db.Where("room_id = ? AND deleted_at IS NULL", roomID).
		Order("start_date ASC").Find(&blocks).Error
	return blocks, err
}

// GetBlock retrieves a room block by its ID (including deleted ones, so the
// exporter can push remote deletes for them)
func (r *reservationRepository) GetBlock(id uint) (*models.RoomBlock, error) {
	var block models.RoomBlock
	if err := r.db.First(&block, id).Error; err != nil {
		return nil, err
	}
	return &block, nil
}

func activeStatuses() []string {
	return []string{models.ReservationStatusPending, models.ReservationStatusConfirmed}
}
