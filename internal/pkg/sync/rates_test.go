package sync

import (
	"testing"

	"github.com/hotelhub/channelsync/app/models"
	"github.com/stretchr/testify/assert"
)

func schedule(startDay, days int, price int64, minStay int) []models.RatePlan {
	plans := make([]models.RatePlan, 0, days)
	for i := 0; i < days; i++ {
		plans = append(plans, models.RatePlan{
			RoomID:     1,
			Date:       day(startDay).AddDate(0, 0, i),
			PriceCents: price,
			Currency:   "EUR",
			MinStay:    minStay,
		})
	}
	return plans
}

func TestCompressRateSpans(t *testing.T) {
	t.Run("empty schedule", func(t *testing.T) {
		assert.Nil(t, CompressRateSpans(nil))
	})

	t.Run("uniform quarter collapses to one span", func(t *testing.T) {
		spans := CompressRateSpans(schedule(1, 90, 12000, 2))
		if assert.Len(t, spans, 1) {
			assert.Equal(t, day(1), spans[0].Start)
			assert.Equal(t, day(1).AddDate(0, 0, 89), spans[0].End)
			assert.Equal(t, int64(12000), spans[0].PriceCents)
			assert.Equal(t, 2, spans[0].MinStay)
		}
	})

	t.Run("price change splits", func(t *testing.T) {
		plans := append(schedule(1, 5, 10000, 1), schedule(6, 5, 15000, 1)...)
		spans := CompressRateSpans(plans)
		if assert.Len(t, spans, 2) {
			assert.Equal(t, int64(10000), spans[0].PriceCents)
			assert.Equal(t, day(5), spans[0].End)
			assert.Equal(t, int64(15000), spans[1].PriceCents)
			assert.Equal(t, day(6), spans[1].Start)
		}
	})

	t.Run("min stay change splits", func(t *testing.T) {
		plans := append(schedule(1, 3, 10000, 1), schedule(4, 3, 10000, 3)...)
		spans := CompressRateSpans(plans)
		if assert.Len(t, spans, 2) {
			assert.Equal(t, 1, spans[0].MinStay)
			assert.Equal(t, 3, spans[1].MinStay)
		}
	})

	t.Run("gap splits even with same value", func(t *testing.T) {
		plans := append(schedule(1, 3, 10000, 1), schedule(10, 3, 10000, 1)...)
		spans := CompressRateSpans(plans)
		if assert.Len(t, spans, 2) {
			assert.Equal(t, day(3), spans[0].End)
			assert.Equal(t, day(10), spans[1].Start)
		}
	})

	t.Run("alternating values never merge", func(t *testing.T) {
		var plans []models.RatePlan
		for i := 0; i < 6; i++ {
			price := int64(10000)
			if i%2 == 1 {
				price = 20000
			}
			plans = append(plans, models.RatePlan{
				RoomID: 1, Date: day(1).AddDate(0, 0, i),
				PriceCents: price, Currency: "EUR", MinStay: 1,
			})
		}
		assert.Len(t, CompressRateSpans(plans), 6)
	})
}
