package quote

import (
	"context"
	"fmt"

	"github.com/hotelhub/channelsync/app/repository"
	"github.com/hotelhub/channelsync/internal/pkg/env"
)

// localQuoter prices stays from the rate plan table. It is the fallback
// when no external pricing service is configured.
type localQuoter struct {
	rates repository.RateRepository
}

// NewLocalQuoter creates a quoter backed by the local rate schedule.
func NewLocalQuoter(rates repository.RateRepository) Quoter {
	return &localQuoter{rates: rates}
}

func (q *localQuoter) QuoteStay(ctx context.Context, stay Stay) (*Quote, error) {
	if err := stay.Validate(); err != nil {
		return nil, err
	}

	nights := stay.Nights()
	plans, err := q.rates.Schedule(stay.RoomID, stay.CheckIn, nights)
	if err != nil {
		return nil, fmt.Errorf("failed to load rate schedule: %w", err)
	}
	if len(plans) < nights {
		return nil, fmt.Errorf("no rate for %d of %d nights of room %d", nights-len(plans), nights, stay.RoomID)
	}

	var total int64
	currency := env.GetEnv("QUOTE_CURRENCY", "EUR")
	for _, plan := range plans[:nights] {
		total += plan.PriceCents
	}
	return &Quote{TotalCents: total, Currency: currency, Nights: nights}, nil
}
