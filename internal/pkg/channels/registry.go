package channels

import (
	"context"

	"github.com/gofiber/fiber/v2/log"
	"github.com/hotelhub/channelsync/app/models"
)

// Registry resolves providers to adapters. It is built once at startup so
// misconfiguration surfaces as a logged "unavailable" adapter immediately
// instead of an error deep in a sync run.
type Registry struct {
	adapters map[models.Provider]Adapter
}

// NewRegistry constructs every known adapter from the environment. An
// adapter that cannot be configured is replaced by an unavailable fallback.
func NewRegistry() *Registry {
	r := &Registry{adapters: make(map[models.Provider]Adapter)}
	r.register(NewICalAdapter())
	r.register(NewCalDAVAdapterFromEnv())
	r.register(NewOTAAdapterFromEnv())
	r.register(NewChannelManagerAdapterFromEnv())
	return r
}

func (r *Registry) register(a Adapter) {
	r.adapters[a.Provider()] = a
}

// Get resolves an adapter; unknown providers resolve to an unavailable
// adapter rather than nil.
func (r *Registry) Get(provider models.Provider) Adapter {
	if a, ok := r.adapters[provider]; ok {
		return a
	}
	log.Warnf("[Channels] No adapter registered for provider %s, using unavailable fallback", provider)
	return newUnavailableAdapter(provider)
}

// unavailableAdapter is the fail-closed fallback: every call logs and
// returns ErrNotConfigured instead of raising.
type unavailableAdapter struct {
	provider models.Provider
}

func newUnavailableAdapter(provider models.Provider) Adapter {
	return &unavailableAdapter{provider: provider}
}

func (a *unavailableAdapter) Provider() models.Provider {
	return a.provider
}

func (a *unavailableAdapter) Capabilities() Capabilities {
	return Capabilities{}
}

func (a *unavailableAdapter) FetchEvents(ctx context.Context, mapping *models.ChannelMapping, window Window) (*FetchResult, error) {
	log.Warnf("[Channels] %s adapter unavailable, skipping fetch for mapping %d", a.provider, mapping.ID)
	return nil, ErrNotConfigured
}

func (a *unavailableAdapter) CreateBooking(ctx context.Context, mapping *models.ChannelMapping, block BookingBlock) (string, error) {
	log.Warnf("[Channels] %s adapter unavailable, skipping create for mapping %d", a.provider, mapping.ID)
	return "", ErrNotConfigured
}

func (a *unavailableAdapter) UpdateBooking(ctx context.Context, mapping *models.ChannelMapping, externalID string, block BookingBlock) error {
	log.Warnf("[Channels] %s adapter unavailable, skipping update for mapping %d", a.provider, mapping.ID)
	return ErrNotConfigured
}

func (a *unavailableAdapter) DeleteBooking(ctx context.Context, mapping *models.ChannelMapping, externalID string) error {
	log.Warnf("[Channels] %s adapter unavailable, skipping delete for mapping %d", a.provider, mapping.ID)
	return ErrNotConfigured
}

func (a *unavailableAdapter) PushRatePlan(ctx context.Context, mapping *models.ChannelMapping, spans []RateSpan) error {
	log.Warnf("[Channels] %s adapter unavailable, skipping rate push for mapping %d", a.provider, mapping.ID)
	return ErrNotConfigured
}
