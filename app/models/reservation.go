package models

import (
	"errors"
	"time"

	"gorm.io/gorm"
)

// Reservation status values. CANCELLED and NO_SHOW are terminal.
const (
	ReservationStatusPending   = "PENDING"
	ReservationStatusConfirmed = "CONFIRMED"
	ReservationStatusCancelled = "CANCELLED"
	ReservationStatusNoShow    = "NO_SHOW"
)

// Reservation channels. ChannelDirect means the booking was made in the PMS
// itself; every other value names the provider that delivered it.
const (
	ChannelDirect = "direct"
)

// ErrExternalIDChannel is raised by the BeforeSave hook when the
// external-uid/channel pairing invariant is violated.
var ErrExternalIDChannel = errors.New("reservation: external uid set requires a non-direct channel (and vice versa)")

// Reservation is shared with the booking domain. When ExternalUID is set the
// row is keyed by (hotel, external uid, channel) for idempotent imports.
// Direct bookings carry a NULL uid so the unique key never constrains them.
type Reservation struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	HotelID     uint      `gorm:"index:hotel_uid_channel,unique,priority:1;not null" json:"hotel_id"`
	Hotel       Hotel     `gorm:"foreignKey:HotelID" json:"hotel,omitempty"`
	RoomID      uint      `gorm:"index;not null" json:"room_id"`
	Room        Room      `gorm:"foreignKey:RoomID" json:"room,omitempty"`
	Status      string    `gorm:"type:varchar(20);not null;default:'PENDING';index" json:"status"`
	CheckIn     time.Time `gorm:"type:date;not null;index" json:"check_in"`
	CheckOut    time.Time `gorm:"type:date;not null;index" json:"check_out"`
	GuestName   string    `gorm:"type:varchar(255)" json:"guest_name"`
	Notes       string    `gorm:"type:text" json:"notes"`
	Channel     string    `gorm:"type:varchar(32);not null;default:'direct';index:hotel_uid_channel,unique,priority:3" json:"channel"`
	ExternalUID *string   `gorm:"type:varchar(255);index:hotel_uid_channel,unique,priority:2" json:"external_uid"`
	Overbooked  bool      `gorm:"default:false;index" json:"overbooked"`
	PaidBy      string    `gorm:"type:varchar(32);default:''" json:"paid_by"`

	// Optimistic concurrency: bumped on every versioned save; a stale writer
	// matches zero rows and backs off.
	LockVersion uint `gorm:"not null;default:0" json:"lock_version"`

	CreatedAt time.Time `gorm:"autoCreateTime;index" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// IsTerminal reports whether the reservation can no longer change state.
func (r *Reservation) IsTerminal() bool {
	return r.Status == ReservationStatusCancelled || r.Status == ReservationStatusNoShow
}

// IsActive reports whether the reservation still occupies its room.
func (r *Reservation) IsActive() bool {
	return r.Status == ReservationStatusPending || r.Status == ReservationStatusConfirmed
}

// IsExternal reports whether the reservation originated on a channel.
func (r *Reservation) IsExternal() bool {
	return r.Channel != ChannelDirect && r.Channel != ""
}

// Nights returns the stay length in nights.
func (r *Reservation) Nights() int {
	return int(r.CheckOut.Sub(r.CheckIn).Hours() / 24)
}

// ExternalRef returns the external uid, or "" for a direct booking.
func (r *Reservation) ExternalRef() string {
	if r.ExternalUID == nil {
		return ""
	}
	return *r.ExternalUID
}

// BeforeSave enforces the external-uid/channel invariant at the persistence
// boundary: a non-empty external uid requires a non-direct channel, and a
// direct booking must not carry an external uid. An empty uid is normalized
// to NULL so direct rows never join the unique key.
func (r *Reservation) BeforeSave(tx *gorm.DB) error {
	if r.ExternalUID != nil && *r.ExternalUID == "" {
		r.ExternalUID = nil
	}
	if r.ExternalUID != nil && !r.IsExternal() {
		return ErrExternalIDChannel
	}
	if r.ExternalUID == nil && r.IsExternal() {
		return ErrExternalIDChannel
	}
	return nil
}
