package models

import "time"

// Room is a bookable unit inside a hotel.
type Room struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	HotelID      uint      `gorm:"index;not null" json:"hotel_id"`
	Hotel        Hotel     `gorm:"foreignKey:HotelID" json:"hotel,omitempty"`
	Name         string    `gorm:"type:varchar(255);not null" json:"name"`
	ExternalCode string    `gorm:"type:varchar(100)" json:"external_code"`
	MaxGuests    int       `gorm:"type:int;default:2" json:"max_guests"`
	CreatedAt    time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt    time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}
