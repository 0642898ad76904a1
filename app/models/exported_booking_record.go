package models

import "time"

// Exported booking kinds.
const (
	ExportKindReservation = "reservation"
	ExportKindBlock       = "block"
)

// ExportedBookingRecord is the export-direction idempotency record: it maps
// a local reservation or block to the external booking it produced, plus a
// content checksum that decides whether the next pass is a no-op, an update
// or a create.
type ExportedBookingRecord struct {
	ID                uint      `gorm:"primaryKey" json:"id"`
	HotelID           uint      `gorm:"index;not null" json:"hotel_id"`
	RoomID            uint      `gorm:"index;not null" json:"room_id"`
	Provider          Provider  `gorm:"type:varchar(32);index:provider_kind_local,unique,priority:1;not null" json:"provider"`
	Kind              string    `gorm:"type:varchar(20);index:provider_kind_local,unique,priority:2;not null" json:"kind"`
	LocalID           uint      `gorm:"index:provider_kind_local,unique,priority:3;not null" json:"local_id"`
	ExternalBookingID string    `gorm:"type:varchar(255);index" json:"external_booking_id"`
	Checksum          string    `gorm:"type:char(64);not null" json:"checksum"`
	Active            bool      `gorm:"default:true;index" json:"active"`
	LastPushedAt      time.Time `gorm:"type:timestamp" json:"last_pushed_at"`
	CreatedAt         time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt         time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}
