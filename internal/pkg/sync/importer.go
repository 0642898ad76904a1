package sync

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2/log"
	"github.com/hotelhub/channelsync/app/models"
	"github.com/hotelhub/channelsync/app/repository"
	"github.com/hotelhub/channelsync/internal/pkg/channels"
	"github.com/hotelhub/channelsync/internal/pkg/env"
	"gorm.io/gorm"
)

// Importer turns pulled external events into local reservation mutations,
// idempotently. A second pass over an unchanged feed is a no-op.
type Importer struct {
	db    *gorm.DB
	grace time.Duration
}

// NewImporter creates an importer bound to the database handle.
func NewImporter(db *gorm.DB) *Importer {
	return &Importer{
		db:    db,
		grace: env.GetEnvDuration("SYNC_DISAPPEAR_GRACE", 24*time.Hour),
	}
}

// Run executes one import pass for a mapping. Adapter I/O happens up front;
// reconciliation and persistence for the batch run inside a single
// transaction so partial writes are never observed.
func (im *Importer) Run(ctx context.Context, adapter channels.Adapter, mapping *models.ChannelMapping, run *Run) (models.SyncCounters, error) {
	var counters models.SyncCounters

	if !mapping.Direction.Imports() {
		run.Info("mapping is export-only, nothing to import", map[string]interface{}{"mapping_id": mapping.ID})
		return counters, nil
	}

	window := channels.Window{
		From: truncateDate(time.Now().AddDate(0, 0, -1)),
		To:   truncateDate(time.Now().AddDate(0, 0, env.GetEnvInt("SYNC_HORIZON_DAYS", 365))),
	}

	runStart := time.Now()
	result, err := adapter.FetchEvents(ctx, mapping, window)
	if err != nil {
		if errors.Is(err, channels.ErrNotConfigured) || errors.Is(err, channels.ErrNotSupported) {
			// Configuration problem: skipped with a logged reason, never
			// surfaced to a caller.
			run.Warn("provider unavailable, skipping import", map[string]interface{}{
				"mapping_id": mapping.ID, "reason": err.Error(),
			})
			return counters, nil
		}
		run.Error("fetch failed", map[string]interface{}{"mapping_id": mapping.ID, "error": err.Error()})
		return counters, err
	}

	txErr := im.db.Transaction(func(tx *gorm.DB) error {
		repos := repository.NewRepositories(tx)
		seen := make(map[string]struct{}, len(result.Events))
		var touched []uint

		for _, event := range result.Events {
			counters.Processed++
			outcome, resID, perr := im.applyEvent(repos, mapping, event, runStart)
			if perr != nil {
				// A single bad item never aborts the batch.
				counters.Errors++
				run.Error("event failed", map[string]interface{}{
					"mapping_id": mapping.ID, "uid": event.UID, "error": perr.Error(),
				})
				continue
			}
			seen[event.UID] = struct{}{}
			if resID != 0 {
				touched = append(touched, resID)
			}
			switch outcome {
			case eventCreated:
				counters.Created++
			case eventUpdated:
				counters.Updated++
			case eventCancelled:
				counters.Cancelled++
			case eventSkipped:
				counters.Skipped++
			}
		}

		cancelled, serr := im.sweepDisappeared(repos, mapping, seen, runStart, run)
		if serr != nil {
			return serr
		}
		counters.Cancelled += cancelled

		im.recomputeConflicts(repos, touched, run)

		if err := repos.Mapping.TouchSynced(mapping.ID, result.NextSyncToken); err != nil {
			return fmt.Errorf("failed to stamp mapping sync state: %w", err)
		}
		return nil
	})
	if txErr != nil {
		run.Error("import transaction failed", map[string]interface{}{"mapping_id": mapping.ID, "error": txErr.Error()})
		return counters, txErr
	}

	run.Info("import pass finished", map[string]interface{}{
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

type eventOutcome int

const (
	eventNoop eventOutcome = iota
	eventCreated
	eventUpdated
	eventCancelled
	eventSkipped
)

// applyEvent reconciles one external event against the local store and
// refreshes its tracking record. Returns the touched reservation id, if any.
func (im *Importer) applyEvent(repos *repository.Repositories, mapping *models.ChannelMapping, event channels.ExternalEvent, runStart time.Time) (eventOutcome, uint, error) {
	if event.IsOwnExport() {
		// Round-trip loop guard: never re-import our own export.
		return eventSkipped, 0, nil
	}

	start := truncateDate(event.Start)
	end := truncateDate(event.End)
	if !end.After(start) {
		return eventNoop, 0, fmt.Errorf("event %s has an empty or inverted date range", event.UID)
	}

	channel := string(mapping.Provider)
	outcome := eventNoop
	var resID uint

	existing, err := repos.Reservation.GetByExternalUID(mapping.HotelID, event.UID, channel)
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		if event.Cancelled {
			// Nothing local to cancel; remember the uid so the sweep stays quiet.
			outcome = eventSkipped
			break
		}
		status := models.ReservationStatusConfirmed
		if event.Tentative {
			status = models.ReservationStatusPending
		}
		uid := event.UID
		res := &models.Reservation{
			HotelID:     mapping.HotelID,
			RoomID:      mapping.RoomID,
			Status:      status,
			CheckIn:     start,
			CheckOut:    end,
			GuestName:   event.Summary,
			Notes:       event.Description,
			Channel:     channel,
			ExternalUID: &uid,
		}
		if cerr := repos.Reservation.Create(res); cerr != nil {
			return eventNoop, 0, cerr
		}
		resID = res.ID
		outcome = eventCreated

	case err != nil:
		return eventNoop, 0, err

	default:
		resID = existing.ID
		if event.Cancelled {
			if !existing.IsTerminal() {
				existing.Status = models.ReservationStatusCancelled
				if serr := repos.Reservation.SaveVersioned(existing); serr != nil {
					if errors.Is(serr, repository.ErrStaleReservation) {
						outcome = eventSkipped
						break
					}
					return eventNoop, 0, serr
				}
				outcome = eventCancelled
			}
			break
		}

		// Update in place only on an actual field difference so repeated
		// imports of an unchanged feed produce no audit noise.
		changed := !existing.CheckIn.Equal(start) ||
			!existing.CheckOut.Equal(end) ||
			existing.RoomID != mapping.RoomID ||
			existing.Notes != event.Description
		if changed {
			existing.CheckIn = start
			existing.CheckOut = end
			existing.RoomID = mapping.RoomID
			existing.Notes = event.Description
			if serr := repos.Reservation.SaveVersioned(existing); serr != nil {
				if errors.Is(serr, repository.ErrStaleReservation) {
					outcome = eventSkipped
					break
				}
				return eventNoop, 0, serr
			}
			outcome = eventUpdated
		}
	}

	tracked := &models.TrackedExternalEvent{
		HotelID:     mapping.HotelID,
		RoomID:      mapping.RoomID,
		Provider:    mapping.Provider,
		ExternalUID: event.UID,
		Summary:     event.Summary,
		StartDate:   start,
		EndDate:     end,
		LastSeenAt:  runStart,
	}
	if terr := repos.Tracking.UpsertTracked(tracked); terr != nil {
		return outcome, resID, fmt.Errorf("failed to track event %s: %w", event.UID, terr)
	}

	return outcome, resID, nil
}

// sweepDisappeared cancels reservations whose events vanished from the
// feed. The tracking table is authoritative; the reservation-table pass is
// defense-in-depth and only acts where the tracking table is also silent,
// so both converge on the same result.
func (im *Importer) sweepDisappeared(repos *repository.Repositories, mapping *models.ChannelMapping, seen map[string]struct{}, runStart time.Time, run *Run) (int, error) {
	cancelled := 0

	unseen, err := repos.Tracking.UnseenSince(mapping.RoomID, mapping.Provider, runStart)
	if err != nil {
		return 0, fmt.Errorf("failed to load unseen tracked events: %w", err)
	}

	now := time.Now()
	for i := range unseen {
		tracked := &unseen[i]
		if _, ok := seen[tracked.ExternalUID]; ok {
			// Upserted this pass. Second-precision timestamp columns can
			// round last_seen_at below runStart, which must not read as a
			// disappearance.
			continue
		}
		if tracked.PastWindow(now, im.grace) {
			// The stay is over; the provider legitimately dropped it.
			continue
		}
		if im.cancelByUID(repos, mapping, tracked.ExternalUID, run) {
			cancelled++
		}
		if derr := repos.Tracking.DeleteTracked(tracked.ID); derr != nil {
			return cancelled, fmt.Errorf("failed to delete tracking row %d: %w", tracked.ID, derr)
		}
	}

	// Fallback: active provider reservations with neither a feed event this
	// run nor a live tracking row.
	stillTracked := make(map[string]struct{})
	remaining, err := repos.Tracking.TrackedByRoomProvider(mapping.RoomID, mapping.Provider)
	if err != nil {
		return cancelled, err
	}
	for i := range remaining {
		stillTracked[remaining[i].ExternalUID] = struct{}{}
	}

	orphans, err := repos.Reservation.ActiveExternalByRoomProvider(mapping.RoomID, mapping.Provider)
	if err != nil {
		return cancelled, err
	}
	for i := range orphans {
		res := &orphans[i]
		uid := res.ExternalRef()
		if uid == "" {
			continue
		}
		if _, ok := seen[uid]; ok {
			continue
		}
		if _, ok := stillTracked[uid]; ok {
			continue
		}
		if now.After(res.CheckOut.Add(im.grace)) {
			continue
		}
		if im.cancelByUID(repos, mapping, uid, run) {
			cancelled++
		}
	}

	return cancelled, nil
}

func (im *Importer) cancelByUID(repos *repository.Repositories, mapping *models.ChannelMapping, uid string, run *Run) bool {
	res, err := repos.Reservation.GetByExternalUID(mapping.HotelID, uid, string(mapping.Provider))
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			run.Error("disappearance lookup failed", map[string]interface{}{"uid": uid, "error": err.Error()})
		}
		return false
	}
	if res.IsTerminal() {
		return false
	}
	res.Status = models.ReservationStatusCancelled
	if err := repos.Reservation.SaveVersioned(res); err != nil {
		if errors.Is(err, repository.ErrStaleReservation) {
			return false
		}
		run.Error("disappearance cancel failed", map[string]interface{}{"uid": uid, "error": err.Error()})
		return false
	}
	run.Warn("event disappeared from feed, reservation cancelled", map[string]interface{}{
		"uid": uid, "reservation_id": res.ID,
	})
	return true
}

// recomputeConflicts refreshes the overbooking flag for every touched
// reservation. Failures here are logged, never fatal: the bookings stay.
func (im *Importer) recomputeConflicts(repos *repository.Repositories, touched []uint, run *Run) {
	for _, id := range touched {
		res, err := repos.Reservation.GetByID(id)
		if err != nil {
			log.Warnf("[Sync] Conflict recompute: reservation %d unavailable: %v", id, err)
			continue
		}
		others, err := repos.Reservation.ActiveByRoom(res.RoomID)
		if err != nil {
			log.Warnf("[Sync] Conflict recompute: room %d load failed: %v", res.RoomID, err)
			continue
		}
		overbooked := IsOverbooked(res, others)
		if overbooked == res.Overbooked {
			continue
		}
		res.Overbooked = overbooked
		if err := repos.Reservation.SaveVersioned(res); err != nil && !errors.Is(err, repository.ErrStaleReservation) {
			log.Warnf("[Sync] Conflict recompute: save for reservation %d failed: %v", id, err)
			continue
		}
		if overbooked {
			run.Warn("overbooking detected", map[string]interface{}{
				"reservation_id": res.ID, "room_id": res.RoomID,
			})
		}
	}
}

func truncateDate(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
