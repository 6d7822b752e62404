package main

import (
	"context"
	"log"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"

	"github.com/rcastrillon77/photoloft-booking/internal/config"
	"github.com/rcastrillon77/photoloft-booking/internal/database"
	"github.com/rcastrillon77/photoloft-booking/internal/handler"
	"github.com/rcastrillon77/photoloft-booking/internal/middleware"
	"github.com/rcastrillon77/photoloft-booking/internal/queue"
	"github.com/rcastrillon77/photoloft-booking/internal/repository"
	"github.com/rcastrillon77/photoloft-booking/internal/router"
	"github.com/rcastrillon77/photoloft-booking/internal/service"
)

func main() {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()
	cfg := config.Load()

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()

	listings := repository.NewListingRepo(db)
	events := repository.NewEventRepo(db)
	holds := repository.NewHoldRepo(db)
	rates := repository.NewSpecialRateRepo(db)
	bookings := repository.NewBookingRepo(db)

	avail := service.NewAvailabilityService(listings, events, holds, rates)
	sweeper := service.NewSweeper(holds, avail)
	webhooks := service.NewWebhookClient(cfg.PaymentWebhook, cfg.CancelWebhook)

	// Pick up holds left over from a previous run so their expiries still
	// get swept on time.
	{
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		sweeper.Rearm(ctx)
		cancel()
	}

	rdb := config.NewRedisClient()
	if rdb == nil {
		log.Println("redis unavailable; response cache and rate limiting disabled")
	}

	cacheCfg := config.LoadCacheConfig()
	if rdb != nil {
		// Drop cached availability responses whenever a mutation lands so
		// other visitors stop seeing a just-held slot as free.
		avail.OnInvalidate(func(listingID uint64) {
			go func() {
				ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
				defer cancel()
				if err := middleware.PurgeCached(ctx, rdb, cacheCfg, listingID); err != nil {
					log.Printf("cache purge: %v", err)
				}
			}()
		})
	}

	av := handler.NewAvailabilityHandler(avail)
	hd := handler.NewHoldHandler(listings, holds, rates, avail, sweeper, time.Duration(cfg.HoldTTLMin)*time.Minute)
	bk := handler.NewBookingHandler(listings, holds, events, bookings, rates, avail, sweeper, webhooks)

	e := echo.New()
	e.HideBanner = true
	e.Use(echomw.Recover())
	e.Use(echomw.Logger())

	router.Register(e, av, hd, bk, router.Middlewares{
		Identity:  middleware.Identity(cfg.JWTSecret),
		RateLimit: middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb),
		Cache:     middleware.NewRedisCache(cacheCfg, rdb),
	})

	// Confirmation consumer; reconnects on broker failure, never fatal.
	go func() {
		if err := queue.StartBookingConsumer(); err != nil {
			log.Printf("booking consumer stopped: %v", err)
		}
	}()

	addr := ":" + cfg.Port
	log.Printf("listening on %s (env=%s)", addr, cfg.Env)
	if err := e.Start(addr); err != nil {
		log.Fatal(err)
	}
}
