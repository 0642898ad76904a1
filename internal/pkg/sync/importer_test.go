package sync

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/hotelhub/channelsync/app/models"
	"github.com/hotelhub/channelsync/app/repository"
	"github.com/hotelhub/channelsync/internal/pkg/channels"
)

type memReservationRepo struct {
	rows   map[uint]*models.Reservation
	nextID uint
	stale  bool
}

func newMemReservationRepo() *memReservationRepo {
	return &memReservationRepo{rows: make(map[uint]*models.Reservation), nextID: 1}
}

func (m *memReservationRepo) Create(res *models.Reservation) error {
	res.ID = m.nextID
	m.nextID++
	clone := *res
	m.rows[res.ID] = &clone
	return nil
}

func (m *memReservationRepo) GetByID(id uint) (*models.Reservation, error) {
	res, ok := m.rows[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	clone := *res
	return &clone, nil
}

func (m *memReservationRepo) GetByExternalUID(hotelID uint, externalUID, channel string) (*models.Reservation, error) {
	for _, res := range m.rows {
		if res.HotelID == hotelID && res.ExternalRef() == externalUID && res.Channel == channel {
			clone := *res
			return &clone, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *memReservationRepo) SaveVersioned(res *models.Reservation) error {
	if m.stale {
		return repository.ErrStaleReservation
	}
	current, ok := m.rows[res.ID]
	if !ok || current.LockVersion != res.LockVersion {
		return repository.ErrStaleReservation
	}
	res.LockVersion++
	clone := *res
	m.rows[res.ID] = &clone
	return nil
}

func (m *memReservationRepo) ActiveByRoom(roomID uint) ([]models.Reservation, error) {
	var out []models.Reservation
	for _, res := range m.rows {
		if res.RoomID == roomID && !res.IsTerminal() {
			out = append(out, *res)
		}
	}
	return out, nil
}

func (m *memReservationRepo) ActiveDirectByRoom(roomID uint) ([]models.Reservation, error) {
	return nil, nil
}

func (m *memReservationRepo) ActiveByHotel(hotelID uint) ([]models.Reservation, error) {
	return nil, nil
}

func (m *memReservationRepo) ActiveExternalByRoomProvider(roomID uint, provider models.Provider) ([]models.Reservation, error) {
	var out []models.Reservation
	for _, res := range m.rows {
		if res.RoomID == roomID && res.Channel == string(provider) && res.IsActive() {
			out = append(out, *res)
		}
	}
	return out, nil
}

func (m *memReservationRepo) ActiveBlocksByRoom(roomID uint) ([]models.RoomBlock, error) {
	return nil, nil
}

func (m *memReservationRepo) GetBlock(id uint) (*models.RoomBlock, error) {
	return nil, gorm.ErrRecordNotFound
}

type memTrackingRepo struct {
	tracked map[string]*models.TrackedExternalEvent
	exports map[string]*models.ExportedBookingRecord
	nextID  uint
}

func newMemTrackingRepo() *memTrackingRepo {
	return &memTrackingRepo{
		tracked: make(map[string]*models.TrackedExternalEvent),
		exports: make(map[string]*models.ExportedBookingRecord),
		nextID:  1,
	}
}

func (m *memTrackingRepo) UpsertTracked(event *models.TrackedExternalEvent) error {
	clone := *event
	if existing, ok := m.tracked[event.ExternalUID]; ok {
		clone.ID = existing.ID
	} else {
		clone.ID = m.nextID
		m.nextID++
	}
	m.tracked[event.ExternalUID] = &clone
	return nil
}

func (m *memTrackingRepo) TrackedByRoomProvider(roomID uint, provider models.Provider) ([]models.TrackedExternalEvent, error) {
	var out []models.TrackedExternalEvent
	for _, ev := range m.tracked {
		if ev.RoomID == roomID && ev.Provider == provider {
			out = append(out, *ev)
		}
	}
	return out, nil
}

func (m *memTrackingRepo) UnseenSince(roomID uint, provider models.Provider, runStart time.Time) ([]models.TrackedExternalEvent, error) {
	var out []models.TrackedExternalEvent
	for _, ev := range m.tracked {
		if ev.RoomID == roomID && ev.Provider == provider && ev.LastSeenAt.Before(runStart) {
			out = append(out, *ev)
		}
	}
	return out, nil
}

func (m *memTrackingRepo) DeleteTracked(id uint) error {
	for uid, ev := range m.tracked {
		if ev.ID == id {
			delete(m.tracked, uid)
		}
	}
	return nil
}

func exportKey(provider models.Provider, kind string, localID uint) string {
	return fmt.Sprintf("%s/%s/%d", provider, kind, localID)
}

func (m *memTrackingRepo) ExportRecord(provider models.Provider, kind string, localID uint) (*models.ExportedBookingRecord, error) {
	rec, ok := m.exports[exportKey(provider, kind, localID)]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	clone := *rec
	return &clone, nil
}

func (m *memTrackingRepo) SaveExportRecord(rec *models.ExportedBookingRecord) error {
	clone := *rec
	m.exports[exportKey(rec.Provider, rec.Kind, rec.LocalID)] = &clone
	return nil
}

func (m *memTrackingRepo) ActiveExportRecords(roomID uint, provider models.Provider) ([]models.ExportedBookingRecord, error) {
	var out []models.ExportedBookingRecord
	for _, rec := range m.exports {
		if rec.RoomID == roomID && rec.Provider == provider && rec.Active {
			out = append(out, *rec)
		}
	}
	return out, nil
}

type noopJobRepo struct{}

func (noopJobRepo) CreateJob(*models.SyncJob) error { return nil }
func (noopJobRepo) UpdateJob(*models.SyncJob) error { return nil }
func (noopJobRepo) GetJobByUUID(string) (*models.SyncJob, error) {
	return nil, gorm.ErrRecordNotFound
}
func (noopJobRepo) ListJobs(repository.JobFilter, int, int) ([]models.SyncJob, int64, error) {
	return nil, 0, nil
}
func (noopJobRepo) AppendLog(*models.SyncLog) error { return nil }
func (noopJobRepo) ListLogs(uint, string, int, int) ([]models.SyncLog, int64, error) {
	return nil, 0, nil
}
func (noopJobRepo) StaleRunning(time.Duration) ([]models.SyncJob, error) { return nil, nil }

func testRun() *Run {
	return &Run{job: &models.SyncJob{}, repo: noopJobRepo{}}
}

func importFixture() (*Importer, *repository.Repositories, *memReservationRepo, *memTrackingRepo, *models.ChannelMapping) {
	resRepo := newMemReservationRepo()
	trackRepo := newMemTrackingRepo()
	repos := &repository.Repositories{Reservation: resRepo, Tracking: trackRepo}
	mapping := &models.ChannelMapping{
		HotelID:  1,
		RoomID:   7,
		Provider: models.ProviderICal,
	}
	mapping.ID = 3
	return &Importer{grace: 24 * time.Hour}, repos, resRepo, trackRepo, mapping
}

func stayEvent(uid string) channels.ExternalEvent {
	return channels.ExternalEvent{
		UID:     uid,
		Summary: "Booked",
		Start:   time.Date(2026, 3, 10, 14, 0, 0, 0, time.UTC),
		End:     time.Date(2026, 3, 13, 11, 0, 0, 0, time.UTC),
	}
}

func TestApplyEventCreatesThenNoopsOnReimport(t *testing.T) {
	im, repos, resRepo, trackRepo, mapping := importFixture()
	runStart := time.Now()

	outcome, resID, err := im.applyEvent(repos, mapping, stayEvent("abc@ical"), runStart)
	require.NoError(t, err)
	assert.Equal(t, eventCreated, outcome)
	require.NotZero(t, resID)

	res, err := resRepo.GetByID(resID)
	require.NoError(t, err)
	assert.Equal(t, models.ReservationStatusConfirmed, res.Status)
	assert.Equal(t, "ical", res.Channel)
	// Time of day is normalized away: ranges are whole days.
	assert.Equal(t, time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC), res.CheckIn)
	assert.Equal(t, time.Date(2026, 3, 13, 0, 0, 0, 0, time.UTC), res.CheckOut)
	require.Contains(t, trackRepo.tracked, "abc@ical")

	// Same feed again: no mutation, only the tracking timestamp moves.
	outcome, resID2, err := im.applyEvent(repos, mapping, stayEvent("abc@ical"), runStart.Add(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, eventNoop, outcome)
	assert.Equal(t, resID, resID2)
	assert.Len(t, resRepo.rows, 1)
}

func TestApplyEventTentativeCreatesPending(t *testing.T) {
	im, repos, resRepo, _, mapping := importFixture()

	event := stayEvent("tentative@ical")
	event.Tentative = true
	_, resID, err := im.applyEvent(repos, mapping, event, time.Now())
	require.NoError(t, err)

	res, err := resRepo.GetByID(resID)
	require.NoError(t, err)
	assert.Equal(t, models.ReservationStatusPending, res.Status)
}

func TestApplyEventUpdatesOnDateChange(t *testing.T) {
	im, repos, resRepo, _, mapping := importFixture()

	_, resID, err := im.applyEvent(repos, mapping, stayEvent("move@ical"), time.Now())
	require.NoError(t, err)

	moved := stayEvent("move@ical")
	moved.End = moved.End.AddDate(0, 0, 2)
	outcome, _, err := im.applyEvent(repos, mapping, moved, time.Now())
	require.NoError(t, err)
	assert.Equal(t, eventUpdated, outcome)

	res, err := resRepo.GetByID(resID)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC), res.CheckOut)
}

func TestApplyEventCancellationIsTerminalOnce(t *testing.T) {
	im, repos, resRepo, _, mapping := importFixture()

	_, resID, err := im.applyEvent(repos, mapping, stayEvent("gone@ical"), time.Now())
	require.NoError(t, err)

	cancelled := stayEvent("gone@ical")
	cancelled.Cancelled = true
	outcome, _, err := im.applyEvent(repos, mapping, cancelled, time.Now())
	require.NoError(t, err)
	assert.Equal(t, eventCancelled, outcome)

	res, err := resRepo.GetByID(resID)
	require.NoError(t, err)
	assert.Equal(t, models.ReservationStatusCancelled, res.Status)

	// Cancelling an already-terminal reservation changes nothing.
	outcome, _, err = im.applyEvent(repos, mapping, cancelled, time.Now())
	require.NoError(t, err)
	assert.Equal(t, eventNoop, outcome)
}

func TestApplyEventCancellationOfUnknownEventIsSkipped(t *testing.T) {
	im, repos, resRepo, _, mapping := importFixture()

	event := stayEvent("never-seen@ical")
	event.Cancelled = true
	outcome, resID, err := im.applyEvent(repos, mapping, event, time.Now())
	require.NoError(t, err)
	assert.Equal(t, eventSkipped, outcome)
	assert.Zero(t, resID)
	assert.Empty(t, resRepo.rows)
}

func TestApplyEventSkipsOwnExports(t *testing.T) {
	im, repos, resRepo, trackRepo, mapping := importFixture()

	event := stayEvent(channels.OriginMarker + "res-42")
	outcome, resID, err := im.applyEvent(repos, mapping, event, time.Now())
	require.NoError(t, err)
	assert.Equal(t, eventSkipped, outcome)
	assert.Zero(t, resID)
	assert.Empty(t, resRepo.rows)
	assert.Empty(t, trackRepo.tracked)
}

func TestApplyEventRejectsInvertedRange(t *testing.T) {
	im, repos, _, _, mapping := importFixture()

	event := stayEvent("bad@ical")
	event.End = event.Start
	_, _, err := im.applyEvent(repos, mapping, event, time.Now())
	assert.Error(t, err)
}

func futureEvent(uid string) channels.ExternalEvent {
	return channels.ExternalEvent{
		UID:     uid,
		Summary: "Booked",
		Start:   time.Now().AddDate(0, 0, 30),
		End:     time.Now().AddDate(0, 0, 33),
	}
}

func TestSweepSparesEventsSeenThisRun(t *testing.T) {
	im, repos, resRepo, trackRepo, mapping := importFixture()

	// Sub-second run start, the way the scheduler produces it.
	runStart := time.Now().Truncate(time.Second).Add(500 * time.Millisecond)
	event := futureEvent("fresh@ical")

	outcome, resID, err := im.applyEvent(repos, mapping, event, runStart)
	require.NoError(t, err)
	require.Equal(t, eventCreated, outcome)

	// A second-precision timestamp column rounds the stored last_seen_at
	// below runStart. That must still not read as a disappearance.
	trackRepo.tracked[event.UID].LastSeenAt = runStart.Truncate(time.Second)

	seen := map[string]struct{}{event.UID: {}}
	cancelled, err := im.sweepDisappeared(repos, mapping, seen, runStart, testRun())
	require.NoError(t, err)
	assert.Zero(t, cancelled)
	assert.Contains(t, trackRepo.tracked, event.UID)

	res, err := resRepo.GetByID(resID)
	require.NoError(t, err)
	assert.Equal(t, models.ReservationStatusConfirmed, res.Status)
}

func TestSweepCancelsDisappearedEventExactlyOnce(t *testing.T) {
	im, repos, resRepo, trackRepo, mapping := importFixture()

	// Previous run imported the event; this run's feed no longer has it.
	previousRun := time.Now().Add(-time.Hour)
	event := futureEvent("vanished@ical")
	_, resID, err := im.applyEvent(repos, mapping, event, previousRun)
	require.NoError(t, err)

	runStart := time.Now()
	seen := map[string]struct{}{}

	cancelled, err := im.sweepDisappeared(repos, mapping, seen, runStart, testRun())
	require.NoError(t, err)
	assert.Equal(t, 1, cancelled)
	assert.NotContains(t, trackRepo.tracked, event.UID)

	res, err := resRepo.GetByID(resID)
	require.NoError(t, err)
	assert.Equal(t, models.ReservationStatusCancelled, res.Status)

	// The next empty feed finds nothing left to cancel.
	cancelled, err = im.sweepDisappeared(repos, mapping, seen, time.Now(), testRun())
	require.NoError(t, err)
	assert.Zero(t, cancelled)
}

func TestSweepLeavesPastStaysAlone(t *testing.T) {
	im, repos, resRepo, _, mapping := importFixture()

	past := futureEvent("departed@ical")
	past.Start = time.Now().AddDate(0, 0, -10)
	past.End = time.Now().AddDate(0, 0, -7)

	previousRun := time.Now().Add(-time.Hour)
	_, resID, err := im.applyEvent(repos, mapping, past, previousRun)
	require.NoError(t, err)

	// Providers drop finished stays from their feeds; that is not a
	// cancellation.
	cancelled, err := im.sweepDisappeared(repos, mapping, map[string]struct{}{}, time.Now(), testRun())
	require.NoError(t, err)
	assert.Zero(t, cancelled)

	res, err := resRepo.GetByID(resID)
	require.NoError(t, err)
	assert.Equal(t, models.ReservationStatusConfirmed, res.Status)
}

func TestApplyEventStaleSaveIsSkipNotError(t *testing.T) {
	im, repos, resRepo, _, mapping := importFixture()

	_, _, err := im.applyEvent(repos, mapping, stayEvent("race@ical"), time.Now())
	require.NoError(t, err)

	resRepo.stale = true
	moved := stayEvent("race@ical")
	moved.End = moved.End.AddDate(0, 0, 1)
	outcome, _, err := im.applyEvent(repos, mapping, moved, time.Now())
	require.NoError(t, err)
	assert.Equal(t, eventSkipped, outcome)
}
