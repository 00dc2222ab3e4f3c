package main // Entry point package

import (
	"log" // Logging library

	"github.com/joho/godotenv"    // .env file loader for local development
	"github.com/labstack/echo/v4" // Echo web framework

	"github.com/sevasetu/token-queue/internal/config"
	"github.com/sevasetu/token-queue/internal/database"
	"github.com/sevasetu/token-queue/internal/event"
	"github.com/sevasetu/token-queue/internal/handler"
	"github.com/sevasetu/token-queue/internal/queue"
	"github.com/sevasetu/token-queue/internal/repository"
	"github.com/sevasetu/token-queue/internal/router"
)

func main() {
	// A missing .env is fine; production sets real environment variables.
	_ = godotenv.Load()
	cfg := config.Load()

	// Pick the token store driver.  MySQL is the production store; the
	// memory driver serves local development without a database.
	var store queue.TokenStore
	switch cfg.StoreDriver {
	case "memory":
		store = repository.NewMemoryTokenRepo()
		log.Println("using in-memory token store")
	default:
		db, err := database.Connect(database.Config{
			User:         cfg.DBUser,
			Pass:         cfg.DBPass,
			Host:         cfg.DBHost,
			Port:         cfg.DBPort,
			Name:         cfg.DBName,
			MaxOpenConns: cfg.DBMaxConns,
		})
		if err != nil {
			log.Fatalf("database connect failed: %v", err)
		}
		store = repository.NewTokenRepo(db)
	}

	// The engine: controller for officer operations, view builder and
	// stats aggregator for the polling clients.
	qh := handler.NewQueueHandler(
		queue.NewController(store),
		queue.NewViewBuilder(store),
		queue.NewStatsAggregator(store),
	)
	in := handler.NewIntakeHandler(store)

	// Redis backs the response cache and rate limiter; nil disables both.
	rdb := config.NewRedisClient()
	if rdb == nil {
		log.Println("redis unavailable; cache and rate limiting disabled")
	}

	// Background consumer mirrors lifecycle events into logs/queue.log.
	go func() {
		if err := event.StartLifecycleConsumer(); err != nil {
			log.Printf("lifecycle consumer stopped: %v", err)
		}
	}()

	e := echo.New()
	router.RegisterRoutes(e)
	router.RegisterQueue(e, qh, cfg.JWTSecret, rdb)
	router.RegisterIntake(e, in, cfg.JWTSecret, rdb)

	addr := ":" + cfg.Port
	log.Printf("listening on %s (env=%s, store=%s)", addr, cfg.Env, cfg.StoreDriver)

	if err := e.Start(addr); err != nil {
		log.Fatal(err)
	}
}
