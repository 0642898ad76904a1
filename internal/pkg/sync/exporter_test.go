package sync

import (
	"context"
	"errors"
	"testing"

	"github.com/hotelhub/channelsync/app/models"
	"github.com/hotelhub/channelsync/app/repository"
	"github.com/hotelhub/channelsync/internal/pkg/channels"
	"github.com/hotelhub/channelsync/internal/pkg/quote"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExportItemsShareTheChecksumContract(t *testing.T) {
	res := &models.Reservation{
		ID: 5, HotelID: 1, RoomID: 7,
		GuestName: "Jane Doe",
		CheckIn:   day(10), CheckOut: day(14),
	}
	block := &models.RoomBlock{
		ID: 9, HotelID: 1, RoomID: 7,
		StartDate: day(10), EndDate: day(14),
		Reason: models.BlockReasonMaintenance,
	}

	resItem := itemFromReservation(res)
	blockItem := itemFromBlock(block)

	assert.Equal(t, "res-5", resItem.localUID)
	assert.Equal(t, models.ExportKindReservation, resItem.kind)
	assert.Equal(t, "block-9", blockItem.localUID)
	assert.Equal(t, models.ExportKindBlock, blockItem.kind)

	// Same room and dates, different kind: the records must never collide.
	resSum := ExportChecksum(resItem.roomID, resItem.start, resItem.end, resItem.kind)
	blockSum := ExportChecksum(blockItem.roomID, blockItem.start, blockItem.end, blockItem.kind)
	assert.NotEqual(t, resSum, blockSum)
}

type fixedQuoter struct {
	quote *quote.Quote
	err   error
}

func (f *fixedQuoter) QuoteStay(ctx context.Context, stay quote.Stay) (*quote.Quote, error) {
	return f.quote, f.err
}

func TestDescribeAttachesQuoteWhenAvailable(t *testing.T) {
	item := itemFromReservation(&models.Reservation{
		ID: 5, RoomID: 7, GuestName: "Jane Doe",
		CheckIn: day(10), CheckOut: day(13),
	})

	t.Run("no quoter", func(t *testing.T) {
		ex := NewExporter(nil, nil)
		assert.Equal(t, "Jane Doe", ex.describe(context.Background(), item))
	})

	t.Run("quote available", func(t *testing.T) {
		ex := NewExporter(nil, &fixedQuoter{quote: &quote.Quote{TotalCents: 33000, Currency: "EUR", Nights: 3}})
		assert.Equal(t, "Jane Doe (EUR 330.00)", ex.describe(context.Background(), item))
	})

	t.Run("quote failure degrades to unpriced", func(t *testing.T) {
		ex := NewExporter(nil, &fixedQuoter{err: errors.New("pricing down")})
		assert.Equal(t, "Jane Doe", ex.describe(context.Background(), item))
	})

	t.Run("blocks are never priced", func(t *testing.T) {
		blockItem := itemFromBlock(&models.RoomBlock{
			ID: 9, RoomID: 7, StartDate: day(10), EndDate: day(13),
			Reason: models.BlockReasonOwnerStay,
		})
		ex := NewExporter(nil, &fixedQuoter{quote: &quote.Quote{TotalCents: 33000, Currency: "EUR"}})
		assert.Equal(t, "Blocked (owner_stay)", ex.describe(context.Background(), blockItem))
	})

	t.Run("empty guest name falls back", func(t *testing.T) {
		anon := itemFromReservation(&models.Reservation{ID: 6, RoomID: 7, CheckIn: day(10), CheckOut: day(11)})
		ex := NewExporter(nil, nil)
		assert.Equal(t, "Reserved", ex.describe(context.Background(), anon))
	})
}

type recordingAdapter struct {
	creates    int
	updates    int
	deletes    int
	externalID string
	pushErr    error
}

func (a *recordingAdapter) Provider() models.Provider { return models.ProviderOTA }

func (a *recordingAdapter) Capabilities() channels.Capabilities {
	return channels.Capabilities{CreateBooking: true, UpdateBooking: true, DeleteBooking: true, PushRates: true}
}

func (a *recordingAdapter) FetchEvents(ctx context.Context, mapping *models.ChannelMapping, window channels.Window) (*channels.FetchResult, error) {
	return &channels.FetchResult{}, nil
}

func (a *recordingAdapter) CreateBooking(ctx context.Context, mapping *models.ChannelMapping, block channels.BookingBlock) (string, error) {
	a.creates++
	return a.externalID, a.pushErr
}

func (a *recordingAdapter) UpdateBooking(ctx context.Context, mapping *models.ChannelMapping, externalID string, block channels.BookingBlock) error {
	a.updates++
	return a.pushErr
}

func (a *recordingAdapter) DeleteBooking(ctx context.Context, mapping *models.ChannelMapping, externalID string) error {
	a.deletes++
	return nil
}

func (a *recordingAdapter) PushRatePlan(ctx context.Context, mapping *models.ChannelMapping, spans []channels.RateSpan) error {
	return nil
}

func TestPushItemSkipsUnchangedBooking(t *testing.T) {
	trackRepo := newMemTrackingRepo()
	repos := &repository.Repositories{Tracking: trackRepo}
	adapter := &recordingAdapter{externalID: "ext-1"}
	mapping := &models.ChannelMapping{HotelID: 1, RoomID: 7, Provider: models.ProviderOTA}
	ex := NewExporter(nil, nil)

	item := itemFromReservation(&models.Reservation{
		ID: 5, HotelID: 1, RoomID: 7,
		GuestName: "Jane Doe",
		CheckIn:   day(10), CheckOut: day(14),
	})

	// First pass pushes and records the booking.
	outcome, err := ex.pushItem(context.Background(), adapter, mapping, repos, item, testRun())
	require.NoError(t, err)
	assert.Equal(t, eventCreated, outcome)
	assert.Equal(t, 1, adapter.creates)

	// Unchanged content on the next pass: no remote call at all.
	outcome, err = ex.pushItem(context.Background(), adapter, mapping, repos, item, testRun())
	require.NoError(t, err)
	assert.Equal(t, eventSkipped, outcome)
	assert.Equal(t, 1, adapter.creates)
	assert.Zero(t, adapter.updates)
}

func TestPushItemUpdatesOnContentChange(t *testing.T) {
	trackRepo := newMemTrackingRepo()
	repos := &repository.Repositories{Tracking: trackRepo}
	adapter := &recordingAdapter{externalID: "ext-1"}
	mapping := &models.ChannelMapping{HotelID: 1, RoomID: 7, Provider: models.ProviderOTA}
	ex := NewExporter(nil, nil)

	res := &models.Reservation{
		ID: 5, HotelID: 1, RoomID: 7,
		GuestName: "Jane Doe",
		CheckIn:   day(10), CheckOut: day(14),
	}
	_, err := ex.pushItem(context.Background(), adapter, mapping, repos, itemFromReservation(res), testRun())
	require.NoError(t, err)

	// The stay got longer: the stored checksum no longer matches and the
	// remote copy is rewritten under its existing external id.
	res.CheckOut = day(16)
	outcome, err := ex.pushItem(context.Background(), adapter, mapping, repos, itemFromReservation(res), testRun())
	require.NoError(t, err)
	assert.Equal(t, eventUpdated, outcome)
	assert.Equal(t, 1, adapter.creates)
	assert.Equal(t, 1, adapter.updates)

	rec, err := trackRepo.ExportRecord(models.ProviderOTA, models.ExportKindReservation, 5)
	require.NoError(t, err)
	assert.Equal(t, "ext-1", rec.ExternalBookingID)
	assert.Equal(t, ExportChecksum(7, day(10), day(16), models.ExportKindReservation), rec.Checksum)
}
