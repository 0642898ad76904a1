package repository

import (
	"sync"

	"gorm.io/gorm"
)

// Factory manages repository instances and ensures they are singletons
type Factory struct {
	db    *gorm.DB
	repos *Repositories
	once  sync.Once
}

// NewFactory creates a new repository factory
func NewFactory(db *gorm.DB) *Factory {
	return &Factory{
		db: db,
	}
}

// GetRepositories returns a singleton instance of all repositories
func (f *Factory) GetRepositories() *Repositories {
	f.once.Do(func() {
		f.repos = NewRepositories(f.db)
	})
	return f.repos
}

// GetHotelRepository returns the hotel repository instance
func (f *Factory) GetHotelRepository() HotelRepository {
	return f.GetRepositories().Hotel
}

// GetReservationRepository returns the reservation repository instance
func (f *Factory) GetReservationRepository() ReservationRepository {
	return f.GetRepositories().Reservation
}

// GetMappingRepository returns the channel mapping repository instance
func (f *Factory) GetMappingRepository() MappingRepository {
	return f.GetRepositories().Mapping
}

// GetTrackingRepository returns the tracking repository instance
func (f *Factory) GetTrackingRepository() TrackingRepository {
	return f.GetRepositories().Tracking
}

// GetSyncJobRepository returns the sync job repository instance
func (f *Factory) GetSyncJobRepository() SyncJobRepository {
	return f.GetRepositories().SyncJob
}

// GetRateRepository returns the rate repository instance
func (f *Factory) GetRateRepository() RateRepository {
	return f.GetRepositories().Rate
}

// Global factory instance
var globalFactory *Factory
var factoryOnce sync.Once

// InitializeFactory initializes the global repository factory
func InitializeFactory(db *gorm.DB) {
	factoryOnce.Do(func() {
		globalFactory = NewFactory(db)
	})
}

// GetGlobalFactory returns the global repository factory instance
func GetGlobalFactory() *Factory {
	if globalFactory == nil {
		panic("Repository factory not initialized. Call InitializeFactory first.")
	}
	return globalFactory
}

// GetGlobalRepositories returns the global repositories instance
func GetGlobalRepositories() *Repositories {
	return GetGlobalFactory().GetRepositories()
}
