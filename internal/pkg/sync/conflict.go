package sync

import (
	"time"

	"github.com/hotelhub/channelsync/app/models"
)

// RangesOverlap reports whether two half-open date ranges intersect. The
// checkout day is free: a stay ending Jan 12 does not conflict with one
// starting Jan 12.
func RangesOverlap(aStart, aEnd, bStart, bEnd time.Time) bool {
	return aStart.Before(bEnd) && bStart.Before(aEnd)
}

// IsOverbooked reports whether the reservation's date range overlaps any of
// the other active reservations for the same room. Pure predicate: it never
// blocks or rejects a write; overbooking is recorded for manual resolution.
func IsOverbooked(res *models.Reservation, others []models.Reservation) bool {
	if !res.IsActive() {
		return false
	}
	for i := range others {
		other := &others[i]
		if other.ID == res.ID {
			continue
		}
		if other.RoomID != res.RoomID || !other.IsActive() {
			continue
		}
		if RangesOverlap(res.CheckIn, res.CheckOut, other.CheckIn, other.CheckOut) {
			return true
		}
	}
	return false
}
