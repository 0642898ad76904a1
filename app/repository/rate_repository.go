package repository

import (
	"time"

	"github.com/hotelhub/channelsync/app/models"
	"gorm.io/gorm"
)

// rateRepository implements the RateRepository interface
type rateRepository struct {
	db *gorm.DB
}

// NewRateRepository creates a new rate repository instance
func NewRateRepository(db *gorm.DB) RateRepository {
	return &rateRepository{db: db}
}

// Schedule reads the per-day rate rows for a room starting at from, for the
// given number of days, in date order
func (r *rateRepository) Schedule(roomID uint, from time.Time, days int) ([]models.RatePlan, error) {
	until := from.AddDate(0, 0, days)
	var rates []models.RatePlan
	err := r.db.Where("room_id = ? AND date >= ? AND date < ?", roomID, from, until).
		Order("date ASC").Find(&rates).Error
	return rates, err
}
