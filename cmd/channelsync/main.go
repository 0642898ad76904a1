package main

import (
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/basicauth"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/monitor"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/hotelhub/channelsync/app/controllers"
	"github.com/hotelhub/channelsync/app/repository"
	"github.com/hotelhub/channelsync/internal/pkg/cache"
	"github.com/hotelhub/channelsync/internal/pkg/channels"
	"github.com/hotelhub/channelsync/internal/pkg/database"
	"github.com/hotelhub/channelsync/internal/pkg/env"
	"github.com/hotelhub/channelsync/internal/pkg/quote"
	"github.com/hotelhub/channelsync/internal/pkg/router"
	"github.com/hotelhub/channelsync/internal/pkg/scheduler"
	syncer "github.com/hotelhub/channelsync/internal/pkg/sync"
)

func main() {
	app, sched := NewApplication()
	sched.Start()

	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
		<-quit
		sched.Stop()
		_ = app.Shutdown()
	}()

	err := app.Listen(fmt.Sprintf("%s:%s", env.GetEnv("APP_HOST", "localhost"), env.GetEnv("APP_PORT", "4000")))
	log.Fatal(err)
}

func NewApplication() (*fiber.App, *scheduler.Scheduler) {
	env.SetupEnvFile()
	database.SetupDatabase()
	cache.SetupCache()

	db := database.GetDB()
	repository.InitializeFactory(db)

	registry := channels.NewRegistry()
	quoter := quote.NewQuoter(repository.GetGlobalRepositories().Rate)
	sched := scheduler.New(db, registry, syncer.NewImporter(db), syncer.NewExporter(db, quoter))
	controllers.InitializeSyncController(sched)

	app := fiber.New(fiber.Config{
		AppName: "channelsync",
	})
	app.Use(recover.New(), logger.New())

	// fiber metrics
	app.Get("/metrics", basicauth.New(basicauth.Config{
		Users: map[string]string{
			env.GetEnv("METRICS_USER", "admin"): env.GetEnv("METRICS_PASSWORD", "admin"),
		},
	}), monitor.New())

	// ROUTER
	router.InstallRouter(app)

	return app, sched
}
