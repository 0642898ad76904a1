package repository

import (
	"time"

	"github.com/hotelhub/channelsync/app/models"
	"gorm.io/gorm"
)

// mappingRepository implements the MappingRepository interface
type mappingRepository struct {
	db *gorm.DB
}

// NewMappingRepository creates a new channel mapping repository instance
func NewMappingRepository(db *gorm.DB) MappingRepository {
	return &mappingRepository{db: db}
}

// GetByID retrieves a mapping by its ID
func (r *mappingRepository) GetByID(id uint) (*models.ChannelMapping, error) {
	var mapping models.ChannelMapping
	if err := r.db.First(&mapping, id).Error; err != nil {
		return nil, err
	}
	return &mapping, nil
}

// AllActive retrieves every active mapping across all hotels
func (r *mappingRepository) AllActive() ([]models.ChannelMapping, error) {
	var mappings []models.ChannelMapping
	err := r.db.Where("active = ?", true).Order("id ASC").Find(&mappings).Error
	return mappings, err
}

// ActiveByHotelProvider retrieves all active mappings for a (hotel, provider) pair
func (r *mappingRepository) ActiveByHotelProvider(hotelID uint, provider models.Provider) ([]models.ChannelMapping, error) {
	var mappings []models.ChannelMapping
	err := r.db.Where("hotel_id = ? AND provider = ? AND active = ?", hotelID, provider, true).
		Order("id ASC").Find(&mappings).Error
	return mappings, err
}

// ActiveByRoomProvider retrieves the single active mapping for a (room, provider) pair
func (r *mappingRepository) ActiveByRoomProvider(roomID uint, provider models.Provider) (*models.ChannelMapping, error) {
	var mapping models.ChannelMapping
	err := r.db.Where("room_id = ? AND provider = ? AND active = ?", roomID, provider, true).
		First(&mapping).Error
	if err != nil {
		return nil, err
	}
	return &mapping, nil
}

// ActiveProviders lists the distinct providers a hotel has active mappings for
func (r *mappingRepository) ActiveProviders(hotelID uint) ([]models.Provider, error) {
	var providers []models.Provider
	err := r.db.Model(&models.ChannelMapping{}).
		Where("hotel_id = ? AND active = ?", hotelID, true).
		Distinct("provider").Pluck("provider", &providers).Error
	return providers, err
}

// GetBySubscription validates a webhook (subscription id, token, resource id)
// triple against a known active mapping
func (r *mappingRepository) GetBySubscription(subscriptionID, token, resourceID string) (*models.ChannelMapping, error) {
	var mapping models.ChannelMapping
	err := r.db.Where(
		"subscription_id = ? AND subscription_token = ? AND webhook_resource_id = ? AND active = ?",
		subscriptionID, token, resourceID, true,
	).First(&mapping).Error
	if err != nil {
		return nil, err
	}
	return &mapping, nil
}

// ExpiringSubscriptions lists active webhook mappings whose subscription
// expires inside the given horizon
func (r *mappingRepository) ExpiringSubscriptions(within time.Duration) ([]models.ChannelMapping, error) {
	var mappings []models.ChannelMapping
	deadline := time.Now().Add(within)
	err := r.db.Where(
		"active = ? AND subscription_id <> '' AND subscription_expiry IS NOT NULL AND subscription_expiry < ?",
		true, deadline,
	).Find(&mappings).Error
	return mappings, err
}

// Save persists mapping mutations made by sync runs
func (r *mappingRepository) Save(mapping *models.ChannelMapping) error {
	return r.db.Save(mapping).Error
}

// TouchSynced stamps the last-synced time and the incremental sync token
func (r *mappingRepository) TouchSynced(mappingID uint, syncToken string) error {
	updates := map[string]interface{}{"last_synced_at": time.Now()}
	if syncToken != "" {
		updates["sync_token"] = syncToken
	}
	return r.db.Model(&models.ChannelMapping{}).Where("id = ?", mappingID).Updates(updates).Error
}
