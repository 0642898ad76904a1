package models

import "time"

// Hotel is the owning entity for rooms, mappings and outbound feeds.
// Configuration screens live outside this service; rows are read-only here
// except for the feed token rotation done by operators.
type Hotel struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Name      string    `gorm:"type:varchar(255);not null" json:"name"`
	Timezone  string    `gorm:"type:varchar(64);not null;default:'UTC'" json:"timezone"`
	FeedToken string    `gorm:"type:varchar(64);not null;index" json:"-"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}
