package channels

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/hotelhub/channelsync/app/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Without OTA credentials the adapter runs in mock mode and answers every
// call with canned success, so the sync pipeline stays exercisable in
// development environments.
func TestOTAAdapterMockMode(t *testing.T) {
	t.Setenv("OTA_API_URL", "")
	t.Setenv("OTA_API_KEY", "")

	adapter := NewOTAAdapterFromEnv()
	assert.Equal(t, models.ProviderOTA, adapter.Provider())

	caps := adapter.Capabilities()
	assert.True(t, caps.FetchEvents)
	assert.True(t, caps.CreateBooking)
	assert.True(t, caps.PushRates)

	ctx := context.Background()
	mapping := &models.ChannelMapping{ID: 1, HotelID: 1, RoomID: 7, Provider: models.ProviderOTA}

	result, err := adapter.FetchEvents(ctx, mapping, Window{})
	require.NoError(t, err)
	assert.Empty(t, result.Events)

	block := BookingBlock{
		LocalUID: "res-5",
		Summary:  "Jane Doe",
		Start:    time.Date(2026, 1, 10, 0, 0, 0, 0, time.UTC),
		End:      time.Date(2026, 1, 14, 0, 0, 0, 0, time.UTC),
		Kind:     models.ExportKindReservation,
	}

	externalID, err := adapter.CreateBooking(ctx, mapping, block)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(externalID, "mock-"))

	assert.NoError(t, adapter.UpdateBooking(ctx, mapping, externalID, block))
	assert.NoError(t, adapter.DeleteBooking(ctx, mapping, externalID))
	assert.NoError(t, adapter.PushRatePlan(ctx, mapping, []RateSpan{{
		Start:      block.Start,
		End:        block.End,
		PriceCents: 12000,
		Currency:   "EUR",
		MinStay:    1,
	}}))
}
