package router

import (
	"github.com/hotelhub/channelsync/app/controllers"
	"github.com/hotelhub/channelsync/internal/pkg/middleware"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"
)

type ApiRouter struct {
}

func (h ApiRouter) InstallRouter(app *fiber.App) {
	api := app.Group("/api", limiter.New())
	api.Get("/", func(ctx *fiber.Ctx) error {
		return ctx.Status(fiber.StatusOK).JSON(fiber.Map{
			"message": "channelsync api",
		})
	})

	// API v1 routes, shared-key guarded
	v1 := api.Group("/v1", middleware.APIKeyAuthMiddleware())

	v1.Post("/sync/trigger", controllers.HandleTriggerSync)
	v1.Get("/sync/jobs", controllers.HandleListSyncJobs)
	v1.Get("/sync/jobs/stale", controllers.HandleListStaleSyncJobs)
	v1.Get("/sync/jobs/:uuid", controllers.HandleGetSyncJob)
	v1.Get("/sync/jobs/:uuid/logs", controllers.HandleGetSyncJobLogs)
	v1.Get("/sync/events/:hotelID", controllers.HandleSyncEventStream)
}

func NewApiRouter() *ApiRouter {
	return &ApiRouter{}
}
