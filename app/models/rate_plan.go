package models

import "time"

// RatePlan holds one day of pricing for a room. The pricing/tax engine owns
// these rows; the sync core only reads them when pushing rate schedules.
type RatePlan struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	RoomID     uint      `gorm:"index:room_date,unique;not null" json:"room_id"`
	Room       Room      `gorm:"foreignKey:RoomID" json:"room,omitempty"`
	Date       time.Time `gorm:"type:date;index:room_date,unique;not null" json:"date"`
	PriceCents int64     `gorm:"type:bigint;not null" json:"price_cents"`
	Currency   string    `gorm:"type:char(3);not null;default:'EUR'" json:"currency"`
	MinStay    int       `gorm:"type:int;not null;default:1" json:"min_stay"`
	CreatedAt  time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt  time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}
