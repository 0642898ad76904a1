// Package eventbus distributes reservations-updated notices over Redis
// pub/sub so interested consumers (SSE streams, dashboards) learn about
// sync results without polling. Delivery is best-effort: a notice sent
// while nobody listens is dropped, never queued.
package eventbus

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2/log"
	"github.com/hotelhub/channelsync/internal/pkg/cache"
)

// Notice describes one completed sync pass touching a hotel's inventory.
type Notice struct {
	HotelID    uint      `json:"hotel_id"`
	Provider   string    `json:"provider"`
	JobID      uint      `json:"job_id"`
	JobType    string    `json:"job_type"`
	State      string    `json:"state"`
	Changed    int       `json:"changed"`
	OccurredAt time.Time `json:"occurred_at"`
}

// Subscription is a live listener on one hotel's notice channel.
type Subscription struct {
	C      <-chan Notice
	cancel context.CancelFunc
}

// Close tears the subscription down. C is closed shortly after.
func (s *Subscription) Close() {
	s.cancel()
}

func channelName(hotelID uint) string {
	return fmt.Sprintf("events:reservations:%d", hotelID)
}

// Publish broadcasts a notice to the hotel's channel. Failures are logged
// and swallowed: the sync result is already durable in the job ledger.
func Publish(ctx context.Context, notice Notice) {
	if notice.OccurredAt.IsZero() {
		notice.OccurredAt = time.Now()
	}
	payload, err := json.Marshal(notice)
	if err != nil {
		log.Errorf("[EventBus] Failed to encode notice: %v", err)
		return
	}
	if err := cache.GetClient().Publish(ctx, channelName(notice.HotelID), payload).Err(); err != nil {
		log.Errorf("[EventBus] Failed to publish notice for hotel %d: %v", notice.HotelID, err)
	}
}

// Subscribe starts listening for notices about one hotel. The returned
// subscription lives until Close is called or the context ends.
func Subscribe(ctx context.Context, hotelID uint) *Subscription {
	ctx, cancel := context.WithCancel(ctx)
	pubsub := cache.GetClient().Subscribe(ctx, channelName(hotelID))
	out := make(chan Notice, 16)

	go func() {
		defer close(out)
		defer pubsub.Close()
		ch := pubsub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				var notice Notice
				if err := json.Unmarshal([]byte(msg.Payload), &notice); err != nil {
					log.Warnf("[EventBus] Dropping malformed notice: %v", err)
					continue
				}
				select {
				case out <- notice:
				default:
					// Slow consumer: drop rather than block the reader loop.
				}
			}
		}
	}()

	return &Subscription{C: out, cancel: cancel}
}
