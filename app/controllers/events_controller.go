package controllers

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
	"github.com/valyala/fasthttp"

	"github.com/hotelhub/channelsync/internal/pkg/eventbus"
)

const sseHeartbeatInterval = 25 * time.Second

// HandleSyncEventStream streams reservations-updated notices for one hotel
// as server-sent events. The stream carries heartbeat comments so proxies
// keep the connection open between syncs.
func HandleSyncEventStream(c *fiber.Ctx) error {
	hotelID, err := c.ParamsInt("hotelID")
	if err != nil || hotelID < 1 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid_payload", "message": "Invalid hotel id"})
	}

	c.Set(fiber.HeaderContentType, "text/event-stream")
	c.Set(fiber.HeaderCacheControl, "no-cache")
	c.Set(fiber.HeaderConnection, "keep-alive")
	c.Set("X-Accel-Buffering", "no")

	c.Context().SetBodyStreamWriter(fasthttp.StreamWriter(func(w *bufio.Writer) {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		sub := eventbus.Subscribe(ctx, uint(hotelID))
		defer sub.Close()

		heartbeat := time.NewTicker(sseHeartbeatInterval)
		defer heartbeat.Stop()

		fmt.Fprintf(w, ": connected hotel=%d\n\n", hotelID)
		if err := w.Flush(); err != nil {
			return
		}

		for {
			select {
			case notice, ok := <-sub.C:
				if !ok {
					return
				}
				payload, err := json.Marshal(notice)
				if err != nil {
					log.Warnf("[Events] Dropping unencodable notice: %v", err)
					continue
				}
				fmt.Fprintf(w, "event: sync\ndata: %s\n\n", payload)
				if err := w.Flush(); err != nil {
					// Client went away.
					return
				}
			case <-heartbeat.C:
				fmt.Fprint(w, ": heartbeat\n\n")
				if err := w.Flush(); err != nil {
					return
				}
			}
		}
	}))

	return nil
}
