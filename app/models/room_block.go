package models

import "time"

// RoomBlock reasons.
const (
	BlockReasonMaintenance = "maintenance"
	BlockReasonOwnerStay   = "owner_stay"
	BlockReasonOther       = "other"
)

// RoomBlock is an operator-created blocked date range (maintenance, owner
// stay). Blocks are exported to channels exactly like direct bookings.
type RoomBlock struct {
	ID        uint       `gorm:"primaryKey" json:"id"`
	HotelID   uint       `gorm:"index;not null" json:"hotel_id"`
	RoomID    uint       `gorm:"index;not null" json:"room_id"`
	Room      Room       `gorm:"foreignKey:RoomID" json:"room,omitempty"`
	StartDate time.Time  `gorm:"type:date;not null" json:"start_date"`
	EndDate   time.Time  `gorm:"type:date;not null" json:"end_date"`
	Reason    string     `gorm:"type:varchar(32);not null;default:'other'" json:"reason"`
	CreatedBy string     `gorm:"type:varchar(191)" json:"created_by"`
	DeletedAt *time.Time `gorm:"type:timestamp;default:null;index" json:"deleted_at,omitempty"`
	CreatedAt time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

// IsActive reports whether the block still occupies its room.
func (b *RoomBlock) IsActive() bool {
	return b.DeletedAt == nil
}
