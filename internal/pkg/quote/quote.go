package quote

import (
	"context"
	"fmt"
	"time"
)

// Stay identifies a priced room occupancy. CheckOut is exclusive: a
// Mon-to-Wed stay is charged two nights, never three.
type Stay struct {
	RoomID   uint      `json:"room_id"`
	CheckIn  time.Time `json:"check_in"`
	CheckOut time.Time `json:"check_out"`
}

// Quote is the priced result for a stay.
type Quote struct {
	TotalCents int64  `json:"total_cents"`
	Currency   string `json:"currency"`
	Nights     int    `json:"nights"`
}

// Quoter prices a stay. Implementations must tolerate being called
// concurrently from sync workers.
type Quoter interface {
	QuoteStay(ctx context.Context, stay Stay) (*Quote, error)
}

// Nights returns the billable night count of the stay.
func (s Stay) Nights() int {
	return int(s.CheckOut.Sub(s.CheckIn).Hours() / 24)
}

// Validate rejects stays that cannot be priced.
func (s Stay) Validate() error {
	if s.RoomID == 0 {
		return fmt.Errorf("stay has no room")
	}
	if !s.CheckOut.After(s.CheckIn) {
		return fmt.Errorf("stay has an empty or inverted date range")
	}
	return nil
}
