package sync

import (
	"github.com/hotelhub/channelsync/app/models"
	"github.com/hotelhub/channelsync/internal/pkg/channels"
)

// CompressRateSpans run-length encodes a per-day rate schedule into the
// minimal number of contiguous spans sharing one (price, min-stay) value.
// The input must be in date order; gaps in the schedule break a span. The
// resulting push count is bounded by the number of value changes, not the
// horizon length.
func CompressRateSpans(schedule []models.RatePlan) []channels.RateSpan {
	if len(schedule) == 0 {
		return nil
	}

	var spans []channels.RateSpan
	current := channels.RateSpan{
		Start:      schedule[0].Date,
		End:        schedule[0].Date,
		PriceCents: schedule[0].PriceCents,
		Currency:   schedule[0].Currency,
		MinStay:    schedule[0].MinStay,
	}

	for _, day := range schedule[1:] {
		contiguous := day.Date.Equal(current.End.AddDate(0, 0, 1))
		sameValue := day.PriceCents == current.PriceCents &&
			day.Currency == current.Currency &&
			day.MinStay == current.MinStay

		if contiguous && sameValue {
			current.End = day.Date
			continue
		}

		spans = append(spans, current)
		current = channels.RateSpan{
			Start:      day.Date,
			End:        day.Date,
			PriceCents: day.PriceCents,
			Currency:   day.Currency,
			MinStay:    day.MinStay,
		}
	}

	return append(spans, current)
}
