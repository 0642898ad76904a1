package models

import "time"

// Provider identifies an external distribution channel protocol.
type Provider string

const (
	ProviderICal           Provider = "ical"
	ProviderCalDAV         Provider = "caldav"
	ProviderOTA            Provider = "ota"
	ProviderChannelManager Provider = "channel_manager"
)

// KnownProviders lists every provider the adapter registry can construct.
var KnownProviders = []Provider{ProviderICal, ProviderCalDAV, ProviderOTA, ProviderChannelManager}

// IsValid reports whether p names a known provider.
func (p Provider) IsValid() bool {
	switch p {
	case ProviderICal, ProviderCalDAV, ProviderOTA, ProviderChannelManager:
		return true
	}
	return false
}

// SyncDirection controls which reconcilers run for a mapping.
type SyncDirection string

const (
	SyncDirectionImport SyncDirection = "import"
	SyncDirectionExport SyncDirection = "export"
	SyncDirectionBoth   SyncDirection = "both"
)

// Imports reports whether the mapping pulls external events into the PMS.
func (d SyncDirection) Imports() bool {
	return d == SyncDirectionImport || d == SyncDirectionBoth
}

// Exports reports whether the mapping pushes local bookings out.
func (d SyncDirection) Exports() bool {
	return d == SyncDirectionExport || d == SyncDirectionBoth
}

// ChannelMapping links one room to one provider resource. Created by
// configuration, mutated by sync runs, deactivated by an operator.
// At most one active mapping may exist per (room, provider).
type ChannelMapping struct {
	ID                 uint          `gorm:"primaryKey" json:"id"`
	HotelID            uint          `gorm:"index;not null" json:"hotel_id"`
	Hotel              Hotel         `gorm:"foreignKey:HotelID" json:"hotel,omitempty"`
	RoomID             uint          `gorm:"index:room_provider_active,unique,priority:1;not null" json:"room_id"`
	Room               Room          `gorm:"foreignKey:RoomID" json:"room,omitempty"`
	Provider           Provider      `gorm:"type:varchar(32);index:room_provider_active,unique,priority:2;not null" json:"provider"`
	Direction          SyncDirection `gorm:"type:varchar(16);not null;default:'both'" json:"direction"`
	ExternalResourceID string        `gorm:"type:varchar(255)" json:"external_resource_id"`
	FeedURL            string        `gorm:"type:varchar(512)" json:"feed_url"`

	// Webhook provider state (caldav variant only).
	SubscriptionID     string     `gorm:"type:varchar(191);index" json:"subscription_id"`
	SubscriptionToken  string     `gorm:"type:varchar(191)" json:"-"`
	WebhookResourceID  string     `gorm:"type:varchar(191)" json:"webhook_resource_id"`
	SubscriptionExpiry *time.Time `gorm:"type:timestamp;default:null" json:"subscription_expiry,omitempty"`
	SyncToken          string     `gorm:"type:varchar(512)" json:"-"`

	LastSyncedAt *time.Time `gorm:"type:timestamp;default:null" json:"last_synced_at,omitempty"`
	Active       *bool      `gorm:"index:room_provider_active,unique,priority:3;default:true" json:"active"`
	CreatedAt    time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt    time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

// IsActive reports whether the mapping takes part in syncing. Deactivated
// mappings store NULL, so the room/provider unique key only ever binds the
// single active row and retired mappings can pile up freely.
func (m *ChannelMapping) IsActive() bool {
	return m.Active != nil && *m.Active
}

// Deactivate retires the mapping. The flag goes to NULL, not false: a
// false value would re-enter the unique key and block the next retirement.
func (m *ChannelMapping) Deactivate() {
	m.Active = nil
}

// SubscriptionExpiresWithin reports whether the webhook subscription needs
// renewal inside the given horizon.
func (m *ChannelMapping) SubscriptionExpiresWithin(horizon time.Duration) bool {
	if m.SubscriptionID == "" || m.SubscriptionExpiry == nil {
		return false
	}
	return time.Until(*m.SubscriptionExpiry) < horizon
}
