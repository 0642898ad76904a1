package router

import (
	"github.com/hotelhub/channelsync/app/controllers"

	"github.com/gofiber/fiber/v2"
)

type HttpRouter struct {
}

// InstallRouter registers the endpoints external systems call directly:
// provider webhooks and the iCal occupancy feeds. Both carry their own
// credentials (subscription token, feed token) instead of the API key.
func (h HttpRouter) InstallRouter(app *fiber.App) {
	app.Post("/webhooks/calendar", controllers.HandleCalendarWebhook)
	app.Get("/feeds/hotel/:id/calendar.ics", controllers.HandleHotelCalendarFeed)
	app.Get("/feeds/room/:id/calendar.ics", controllers.HandleRoomCalendarFeed)

	app.Get("/healthz", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})
}

func NewHttpRouter() *HttpRouter {
	return &HttpRouter{}
}
