package repository

import (
	"github.com/hotelhub/channelsync/app/models"
	"gorm.io/gorm"
)

// hotelRepository implements the HotelRepository interface
type hotelRepository struct {
	db *gorm.DB
}

// NewHotelRepository creates a new hotel repository instance
func NewHotelRepository(db *gorm.DB) HotelRepository {
	return &hotelRepository{db: db}
}

// GetByID retrieves a hotel by its ID
func (r *hotelRepository) GetByID(id uint) (*models.Hotel, error) {
	var hotel models.Hotel
	if err := r.db.First(&hotel, id).Error; err != nil {
		return nil, err
	}
	return &hotel, nil
}

// GetRoom retrieves a room by its ID
func (r *hotelRepository) GetRoom(id uint) (*models.Room, error) {
	var room models.Room
	if err := r.db.First(&room, id).Error; err != nil {
		return nil, err
	}
	return &room, nil
}

// GetRooms retrieves all rooms of a hotel
func (r *hotelRepository) GetRooms(hotelID uint) ([]models.Room, error) {
	var rooms []models.Room
	err := r.db.Where("hotel_id = ?", hotelID).Order("id ASC").Find(&rooms).Error
	return rooms, err
}
