package sync

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/hotelhub/channelsync/app/models"
	"github.com/hotelhub/channelsync/app/repository"
	"github.com/hotelhub/channelsync/internal/pkg/channels"
	"github.com/hotelhub/channelsync/internal/pkg/env"
	"github.com/hotelhub/channelsync/internal/pkg/quote"
	"gorm.io/gorm"
)

// Exporter pushes local direct bookings and room blocks to a channel,
// idempotently via content checksums: an unchanged booking costs no
// network call on the second pass.
type Exporter struct {
	db     *gorm.DB
	quoter quote.Quoter
}

// NewExporter creates an exporter bound to the database handle.
func NewExporter(db *gorm.DB, quoter quote.Quoter) *Exporter {
	return &Exporter{db: db, quoter: quoter}
}

// Run executes one export pass for a mapping: push creates/updates for
// changed local bookings, then remote deletes for locally cancelled ones.
// Transient adapter failures abort the pass and bubble up so the scheduler
// can retry; the pass is safe to repeat.
func (ex *Exporter) Run(ctx context.Context, adapter channels.Adapter, mapping *models.ChannelMapping, run *Run) (models.SyncCounters, error) {
	var counters models.SyncCounters
	repos := repository.NewRepositories(ex.db)

	if !mapping.Direction.Exports() {
		run.Info("mapping is import-only, nothing to export", map[string]interface{}{"mapping_id": mapping.ID})
		return counters, nil
	}
	if !adapter.Capabilities().CreateBooking {
		run.Warn("provider cannot accept bookings, skipping export", map[string]interface{}{
			"mapping_id": mapping.ID, "provider": string(mapping.Provider),
		})
		return counters, nil
	}

	reservations, err := repos.Reservation.ActiveDirectByRoom(mapping.RoomID)
	if err != nil {
		return counters, fmt.Errorf("failed to load direct reservations: %w", err)
	}
	blocks, err := repos.Reservation.ActiveBlocksByRoom(mapping.RoomID)
	if err != nil {
		return counters, fmt.Errorf("failed to load room blocks: %w", err)
	}

	items := make([]exportItem, 0, len(reservations)+len(blocks))
	for i := range reservations {
		items = append(items, itemFromReservation(&reservations[i]))
	}
	for i := range blocks {
		items = append(items, itemFromBlock(&blocks[i]))
	}

	for _, item := range items {
		counters.Processed++
		outcome, perr := ex.pushItem(ctx, adapter, mapping, repos, item, run)
		if perr != nil {
			if channels.IsTransient(perr) {
				// Leave the rest for the retry; everything pushed so far has
				// its record and will be a no-op next time.
				run.Error("export push failed", map[string]interface{}{
					"uid": item.localUID, "error": perr.Error(),
				})
				counters.Errors++
				return counters, perr
			}
			counters.Errors++
			run.Error("export push failed", map[string]interface{}{
				"uid": item.localUID, "error": perr.Error(),
			})
			continue
		}
		switch outcome {
		case eventCreated:
			counters.Created++
		case eventUpdated:
			counters.Updated++
		case eventSkipped:
			counters.Skipped++
		}
	}

	removed, err := ex.retireCancelled(ctx, adapter, mapping, repos, run)
	counters.Cancelled += removed
	if err != nil {
		counters.Errors++
		return counters, err
	}

	run.Info("export pass finished", map[string]interface{}{
		"mapping_id": mapping.ID,
		"processed":  counters.Processed,
		"created":    counters.Created,
		"updated":    counters.Updated,
		"skipped":    counters.Skipped,
		"cancelled":  counters.Cancelled,
		"errors":     counters.Errors,
	})
	return counters, nil
}

type exportItem struct {
	kind     string
	localID  uint
	localUID string
	summary  string
	start    time.Time
	end      time.Time
	roomID   uint
	hotelID  uint
}

func itemFromReservation(res *models.Reservation) exportItem {
	return exportItem{
		kind:     models.ExportKindReservation,
		localID:  res.ID,
		localUID: fmt.Sprintf("res-%d", res.ID),
		summary:  res.GuestName,
		start:    res.CheckIn,
		end:      res.CheckOut,
		roomID:   res.RoomID,
		hotelID:  res.HotelID,
	}
}

func itemFromBlock(block *models.RoomBlock) exportItem {
	return exportItem{
		kind:     models.ExportKindBlock,
		localID:  block.ID,
		localUID: fmt.Sprintf("block-%d", block.ID),
		summary:  "Blocked (" + block.Reason + ")",
		start:    block.StartDate,
		end:      block.EndDate,
		roomID:   block.RoomID,
		hotelID:  block.HotelID,
	}
}

// pushItem reconciles one local booking against its export record.
func (ex *Exporter) pushItem(ctx context.Context, adapter channels.Adapter, mapping *models.ChannelMapping, repos *repository.Repositories, item exportItem, run *Run) (eventOutcome, error) {
	checksum := ExportChecksum(item.roomID, item.start, item.end, item.kind)

	rec, err := repos.Tracking.ExportRecord(mapping.Provider, item.kind, item.localID)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return eventNoop, err
	}

	if rec != nil && rec.Active && rec.Checksum == checksum && rec.ExternalBookingID != "" {
		// Unchanged content: the remote copy is already current.
		return eventSkipped, nil
	}

	block := channels.BookingBlock{
		LocalUID: item.localUID,
		Summary:  ex.describe(ctx, item),
		Start:    item.start,
		End:      item.end,
		Kind:     item.kind,
	}

	if rec != nil && rec.ExternalBookingID != "" {
		if uerr := adapter.UpdateBooking(ctx, mapping, rec.ExternalBookingID, block); uerr != nil {
			return eventNoop, uerr
		}
		rec.Checksum = checksum
		rec.Active = true
		rec.LastPushedAt = time.Now()
		if serr := repos.Tracking.SaveExportRecord(rec); serr != nil {
			return eventNoop, serr
		}
		run.Info("remote booking updated", map[string]interface{}{
			"uid": item.localUID, "external_id": rec.ExternalBookingID,
		})
		return eventUpdated, nil
	}

	externalID, cerr := adapter.CreateBooking(ctx, mapping, block)
	if cerr != nil {
		return eventNoop, cerr
	}
	if rec == nil {
		rec = &models.ExportedBookingRecord{
			HotelID:  item.hotelID,
			RoomID:   item.roomID,
			Provider: mapping.Provider,
			Kind:     item.kind,
			LocalID:  item.localID,
		}
	}
	rec.ExternalBookingID = externalID
	rec.Checksum = checksum
	rec.Active = true
	rec.LastPushedAt = time.Now()
	if serr := repos.Tracking.SaveExportRecord(rec); serr != nil {
		return eventNoop, serr
	}
	run.Info("remote booking created", map[string]interface{}{
		"uid": item.localUID, "external_id": externalID,
	})
	return eventCreated, nil
}

// retireCancelled deletes remote bookings whose local source is gone or
// terminal. Deleting an already-absent remote booking counts as success.
func (ex *Exporter) retireCancelled(ctx context.Context, adapter channels.Adapter, mapping *models.ChannelMapping, repos *repository.Repositories, run *Run) (int, error) {
	records, err := repos.Tracking.ActiveExportRecords(mapping.RoomID, mapping.Provider)
	if err != nil {
		return 0, fmt.Errorf("failed to load export records: %w", err)
	}

	removed := 0
	for i := range records {
		rec := &records[i]
		if ex.localStillActive(repos, rec) {
			continue
		}
		if rec.ExternalBookingID != "" {
			if derr := adapter.DeleteBooking(ctx, mapping, rec.ExternalBookingID); derr != nil {
				if channels.IsTransient(derr) {
					return removed, derr
				}
				run.Error("remote delete failed", map[string]interface{}{
					"external_id": rec.ExternalBookingID, "error": derr.Error(),
				})
				continue
			}
		}
		rec.Active = false
		if serr := repos.Tracking.SaveExportRecord(rec); serr != nil {
			return removed, serr
		}
		removed++
		run.Info("remote booking removed", map[string]interface{}{
			"external_id": rec.ExternalBookingID, "kind": rec.Kind, "local_id": rec.LocalID,
		})
	}
	return removed, nil
}

func (ex *Exporter) localStillActive(repos *repository.Repositories, rec *models.ExportedBookingRecord) bool {
	switch rec.Kind {
	case models.ExportKindReservation:
		res, err := repos.Reservation.GetByID(rec.LocalID)
		if err != nil {
			return false
		}
		return res.IsActive() && !res.IsExternal()
	case models.ExportKindBlock:
		block, err := repos.Reservation.GetBlock(rec.LocalID)
		if err != nil {
			return false
		}
		return block.IsActive()
	}
	return false
}

// describe builds the outbound summary line, consulting the pricing engine
// for a stay total when available. Quote failures degrade to an unpriced
// summary, never to an error.
func (ex *Exporter) describe(ctx context.Context, item exportItem) string {
	summary := item.summary
	if summary == "" {
		summary = "Reserved"
	}
	if ex.quoter == nil || item.kind != models.ExportKindReservation {
		return summary
	}
	q, err := ex.quoter.QuoteStay(ctx, quote.Stay{
		RoomID:   item.roomID,
		CheckIn:  item.start,
		CheckOut: item.end,
	})
	if err != nil {
		return summary
	}
	return fmt.Sprintf("%s (%s %.2f)", summary, q.Currency, float64(q.TotalCents)/100)
}

// PushRates compresses the room's daily schedule into contiguous spans and
// transmits them in one push, bounding request count independent of the
// horizon length.
func (ex *Exporter) PushRates(ctx context.Context, adapter channels.Adapter, mapping *models.ChannelMapping, run *Run) (models.SyncCounters, error) {
	var counters models.SyncCounters
	repos := repository.NewRepositories(ex.db)

	if !adapter.Capabilities().PushRates {
		run.Warn("provider cannot accept rates, skipping push", map[string]interface{}{
			"mapping_id": mapping.ID, "provider": string(mapping.Provider),
		})
		return counters, nil
	}

	horizon := env.GetEnvInt("RATE_PUSH_DAYS", 90)
	schedule, err := repos.Rate.Schedule(mapping.RoomID, truncateDate(time.Now()), horizon)
	if err != nil {
		return counters, fmt.Errorf("failed to load rate schedule: %w", err)
	}
	if len(schedule) == 0 {
		run.Info("no rates scheduled, nothing to push", map[string]interface{}{"mapping_id": mapping.ID})
		return counters, nil
	}

	spans := CompressRateSpans(schedule)
	counters.Processed = len(schedule)

	if err := adapter.PushRatePlan(ctx, mapping, spans); err != nil {
		if errors.Is(err, channels.ErrNotConfigured) || errors.Is(err, channels.ErrNotSupported) {
			run.Warn("provider unavailable, skipping rate push", map[string]interface{}{
				"mapping_id": mapping.ID, "reason": err.Error(),
			})
			return counters, nil
		}
		counters.Errors++
		run.Error("rate push failed", map[string]interface{}{"mapping_id": mapping.ID, "error": err.Error()})
		return counters, err
	}

	counters.Updated = len(spans)
	run.Info("rate schedule pushed", map[string]interface{}{
		"mapping_id": mapping.ID, "days": len(schedule), "spans": len(spans),
	})
	return counters, nil
}
