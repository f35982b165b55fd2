package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/monitor"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/shopspring/decimal"

	"github.com/OlehKovalenko/CoachPilot/app/controllers"
	"github.com/OlehKovalenko/CoachPilot/app/repository"
	"github.com/OlehKovalenko/CoachPilot/internal/pkg/cache"
	"github.com/OlehKovalenko/CoachPilot/internal/pkg/credits"
	"github.com/OlehKovalenko/CoachPilot/internal/pkg/database"
	"github.com/OlehKovalenko/CoachPilot/internal/pkg/env"
	"github.com/OlehKovalenko/CoachPilot/internal/pkg/jobqueue"
	"github.com/OlehKovalenko/CoachPilot/internal/pkg/liqpay"
	metrics "github.com/OlehKovalenko/CoachPilot/internal/pkg/metrics/counter"
	"github.com/OlehKovalenko/CoachPilot/internal/pkg/notify"
	"github.com/OlehKovalenko/CoachPilot/internal/pkg/payments"
	"github.com/OlehKovalenko/CoachPilot/internal/pkg/profiles"
	"github.com/OlehKovalenko/CoachPilot/internal/pkg/router"
)

func main() {
	app := NewApplication()

	manager := jobqueue.GetManager()
	manager.Start()

	// Graceful shutdown: stop accepting requests, then drain the job queue.
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		log.Info("Shutdown signal received")
		_ = app.Shutdown()
	}()

	addr := fmt.Sprintf("%s:%s", env.GetEnv("APP_HOST", "localhost"), env.GetEnv("APP_PORT", "4000"))
	if err := app.Listen(addr); err != nil {
		log.Errorf("Server stopped: %v", err)
	}

	manager.Stop()
}

func NewApplication() *fiber.App {
	env.SetupEnvFile()
	database.SetupDatabase()
	cache.SetupCache()
	repository.InitializeFactory(database.GetDB())

	factory := repository.GetGlobalFactory()
	profileStore := profiles.NewStore(factory.GetProfileRepository(), cache.GetClient())

	rate, err := decimal.NewFromString(env.GetEnv("CREDIT_RATE", "10"))
	if err != nil || rate.LessThanOrEqual(decimal.Zero) {
		log.Warnf("Invalid CREDIT_RATE, falling back to 10")
		rate = decimal.NewFromInt(10)
	}
	converter := credits.NewConverter(credits.DefaultCatalog(), rate)

	notifier := notify.NewQueueNotifier(jobqueue.GetManager().GetQueue())
	strategies := payments.NewStrategies(profileStore, converter, factory.GetSubscriptionRepository(), notifier, metrics.Recorder{})
	processor := payments.NewProcessor(factory.GetPaymentRepository(), profileStore, strategies)

	gateway := liqpay.NewClientFromEnv()
	controllers.InitializePaymentController(processor, gateway)

	app := fiber.New(fiber.Config{
		AppName: "CoachPilot",
	})
	app.Use(recover.New(), logger.New())
	app.Get("/metrics", monitor.New())

	router.InstallRouter(app)

	return app
}
