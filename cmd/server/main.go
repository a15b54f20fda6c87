package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"

	"go-event-registration/config"
	"go-event-registration/internal/cache"
	"go-event-registration/internal/clock"
	"go-event-registration/internal/database"
	"go-event-registration/internal/handler"
	"go-event-registration/internal/queue"
	"go-event-registration/internal/repository"
	"go-event-registration/internal/schedule"
	"go-event-registration/internal/service"
	"go-event-registration/internal/worker"
	"go-event-registration/pkg/logger"
)

func main() {
	cfg := config.LoadConfig()

	pool, err := database.InitDatabase(&cfg.Database)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer pool.Close()

	rdb, err := database.InitRedis(&cfg.Redis)
	if err != nil {
		log.Fatalf("Failed to initialize redis: %v", err)
	}
	defer rdb.Close()

	defer logger.L.Sync()

	hostname, err := os.Hostname()
	if err != nil {
		hostname = "server"
	}

	notifications, err := queue.NewRedisStreamNotificationQueue(rdb, hostname, nil)
	if err != nil {
		log.Fatalf("Failed to initialize notification queue: %v", err)
	}

	eventRepo := repository.NewPostgresEventRepository(pool)
	registrationRepo := repository.NewPostgresRegistrationRepository(pool)
	ledger := cache.NewRedisCapacityLedger(rdb)

	engine := schedule.NewEngine(cfg.Policy.DefaultEventDuration, cfg.Policy.AllowTouchingEndpoints)
	clk := clock.System()

	eventService := service.NewEventService(eventRepo, registrationRepo, ledger, notifications, engine, clk)
	registrationService := service.NewRegistrationService(eventRepo, registrationRepo, ledger, notifications, engine, clk)
	checkInService := service.NewCheckInService(eventRepo, registrationRepo, notifications, clk)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	notificationWorker := worker.NewNotificationWorker(notifications, worker.NewLogNotifier())
	go notificationWorker.Start(ctx)

	router := gin.Default()
	router.GET("/ping", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"message": "pong",
		})
	})

	handler.NewEventHandler(eventService, registrationService).RegisterRoutes(router)
	handler.NewRegistrationHandler(registrationService).RegisterRoutes(router)
	handler.NewCheckInHandler(checkInService).RegisterRoutes(router)

	if err := router.Run(":" + cfg.Server.Port); err != nil {
		log.Fatalf("Server exited: %v", err)
	}
}
