package main

import (
	"log"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/env-booking/internal/config"
	"github.com/iliyamo/env-booking/internal/database"
	"github.com/iliyamo/env-booking/internal/handler"
	"github.com/iliyamo/env-booking/internal/middleware"
	"github.com/iliyamo/env-booking/internal/queue"
	"github.com/iliyamo/env-booking/internal/repository"
	"github.com/iliyamo/env-booking/internal/router"
	"github.com/iliyamo/env-booking/internal/service"
)

func main() {
	// Load .env if present; real environments set variables directly.
	_ = godotenv.Load()
	cfg := config.Load()

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()

	users := repository.NewUserRepo(db)
	tokens := repository.NewTokenRepo(db)
	reservations := repository.NewReservationRepo(db)
	intents := repository.NewIntentRepo(db)
	conflicts := repository.NewConflictRepo(db)
	bindings := repository.NewBindingRepo(db)

	publisher := service.NewPublisher()

	e := echo.New()

	// Redis-backed rate limiting and response caching. A nil client means
	// Redis is unreachable; both middlewares are skipped and the service
	// degrades to uncached, unthrottled operation.
	if rdb := config.NewRedisClient(); rdb != nil {
		e.Use(middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb))
		e.Use(middleware.NewRedisCache(config.LoadCacheConfig(), rdb))
	} else {
		log.Printf("redis unavailable; rate limiting and caching disabled")
	}

	router.RegisterRoutes(e)
	router.RegisterAuth(e, handler.NewAuthHandler(cfg, users, tokens), cfg.JWTSecret)
	router.RegisterReservations(e, handler.NewReservationHandler(reservations, conflicts, publisher), cfg.JWTSecret)
	router.RegisterRefreshIntents(e, handler.NewRefreshIntentHandler(intents, reservations, conflicts, publisher), cfg.JWTSecret)
	router.RegisterConflicts(e, handler.NewConflictHandler(conflicts, publisher), cfg.JWTSecret)
	router.RegisterBindings(e, handler.NewBindingHandler(bindings), cfg.JWTSecret)

	// Audit trail consumer; reconnects on broker failures.
	go func() {
		if err := queue.StartAuditConsumer(); err != nil {
			log.Printf("audit consumer stopped: %v", err)
		}
	}()

	addr := ":" + cfg.Port
	log.Printf("listening on %s (env=%s)", addr, cfg.Env)
	if err := e.Start(addr); err != nil {
		log.Fatal(err)
	}
}
