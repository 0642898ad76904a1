package channels

import (
	"context"
	"strings"
	"time"

	"github.com/hotelhub/channelsync/app/models"
)

// OriginMarker prefixes everything this system pushes to a channel. Imports
// recognize it and skip their own exports, which breaks the import/export
// ping-pong loop.
const OriginMarker = "channelsync:"

// ExternalEvent is a provider-neutral calendar event pulled from a channel.
type ExternalEvent struct {
	UID         string
	Summary     string
	Description string
	Start       time.Time
	End         time.Time
	Cancelled   bool
	Tentative   bool
}

// IsOwnExport reports whether the event was originally pushed by this
// system (round-trip loop guard).
func (e ExternalEvent) IsOwnExport() bool {
	return strings.HasPrefix(e.UID, OriginMarker) || strings.Contains(e.Description, OriginMarker)
}

// BookingBlock is the provider-neutral shape of a local booking or room
// block pushed outward.
type BookingBlock struct {
	LocalUID string
	Summary  string
	Start    time.Time
	End      time.Time
	Kind     string
}

// RateSpan is one contiguous run of identical (price, min-stay) days.
type RateSpan struct {
	Start      time.Time
	End        time.Time // inclusive last day
	PriceCents int64
	Currency   string
	MinStay    int
}

// Window bounds a fetch.
type Window struct {
	From time.Time
	To   time.Time
}

// Capabilities describes what a provider's protocol supports. Callers check
// before invoking; unsupported calls return ErrNotSupported either way.
type Capabilities struct {
	FetchEvents   bool
	CreateBooking bool
	UpdateBooking bool
	DeleteBooking bool
	PushRates     bool
}

// FetchResult carries pulled events plus the provider's next incremental
// sync token (empty for providers without incremental sync).
type FetchResult struct {
	Events        []ExternalEvent
	NextSyncToken string
}

// Adapter is the polymorphic per-provider protocol surface. Implementations
// never panic on misconfiguration; they degrade to logged errors.
type Adapter interface {
	Provider() models.Provider
	Capabilities() Capabilities
	FetchEvents(ctx context.Context, mapping *models.ChannelMapping, window Window) (*FetchResult, error)
	CreateBooking(ctx context.Context, mapping *models.ChannelMapping, block BookingBlock) (string, error)
	UpdateBooking(ctx context.Context, mapping *models.ChannelMapping, externalID string, block BookingBlock) error
	DeleteBooking(ctx context.Context, mapping *models.ChannelMapping, externalID string) error
	PushRatePlan(ctx context.Context, mapping *models.ChannelMapping, spans []RateSpan) error
}

// Subscriber is the optional webhook-subscription surface some adapters
// (caldav) implement on top of Adapter.
type Subscriber interface {
	Subscribe(ctx context.Context, mapping *models.ChannelMapping) (*Subscription, error)
	RenewSubscription(ctx context.Context, mapping *models.ChannelMapping) (*Subscription, error)
}

// Subscription is the webhook channel state a provider hands back.
type Subscription struct {
	ID         string
	Token      string
	ResourceID string
	Expiry     time.Time
}
