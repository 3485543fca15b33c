package main

import (
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/monitor"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"bizdir/app/repository"
	"bizdir/internal/pkg/cache"
	"bizdir/internal/pkg/database"
	"bizdir/internal/pkg/env"
	"bizdir/internal/pkg/jobqueue"
	"bizdir/internal/pkg/router"
)

func main() {
	app := NewApplication()

	// Stop background workers cleanly on SIGINT/SIGTERM.
	go func() {
		sig := make(chan os.Signal, 1)
		signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
		<-sig
		jobqueue.GetManager().Stop()
		_ = app.Shutdown()
	}()

	err := app.Listen(fmt.Sprintf("%s:%s", env.GetEnv("APP_HOST", "localhost"), env.GetEnv("APP_PORT", "4000")))
	log.Fatal(err)
}

func NewApplication() *fiber.App {
	env.SetupEnvFile()
	database.SetupDatabase()
	cache.SetupCache()

	// Repositories are shared singletons over the GORM handle.
	repository.InitializeFactory(database.GetDB())

	// Background workers: email delivery, counter flushing, plan expiry.
	jobqueue.GetManager().Start()

	app := fiber.New(fiber.Config{
		AppName: "bizdir",
	})

	// recovery and logging
	app.Use(recover.New(), logger.New())

	// fiber metrics
	app.Get("/metrics", monitor.New())

	// ROUTER
	router.InstallRouter(app)

	return app
}
