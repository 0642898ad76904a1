package models

import "time"

// TrackedExternalEvent is the import-direction idempotency record: one row
// per external event ever observed for a mapping. Refreshed on every
// successful import pass; a row whose LastSeenAt predates the current run
// marks an event that vanished from the feed.
type TrackedExternalEvent struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	HotelID     uint      `gorm:"index;not null" json:"hotel_id"`
	RoomID      uint      `gorm:"index:room_provider_uid,unique,priority:1;not null" json:"room_id"`
	Provider    Provider  `gorm:"type:varchar(32);index:room_provider_uid,unique,priority:2;not null" json:"provider"`
	ExternalUID string    `gorm:"type:varchar(255);index:room_provider_uid,unique,priority:3;not null" json:"external_uid"`
	Summary     string    `gorm:"type:varchar(255)" json:"summary"`
	StartDate   time.Time `gorm:"type:date;not null" json:"start_date"`
	EndDate     time.Time `gorm:"type:date;not null" json:"end_date"`
	LastSeenAt  time.Time `gorm:"type:timestamp(6);not null;index" json:"last_seen_at"`
	CreatedAt   time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// PastWindow reports whether the event's stay window has fully elapsed by
// now, with a grace period added so late feed glitches near checkout do not
// cancel a completed stay.
func (t *TrackedExternalEvent) PastWindow(now time.Time, grace time.Duration) bool {
	return now.After(t.EndDate.Add(grace))
}
