package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/parking-slot-reservation/internal/config"
	"github.com/iliyamo/parking-slot-reservation/internal/database"
	"github.com/iliyamo/parking-slot-reservation/internal/handler"
	"github.com/iliyamo/parking-slot-reservation/internal/logger"
	"github.com/iliyamo/parking-slot-reservation/internal/metrics"
	"github.com/iliyamo/parking-slot-reservation/internal/middleware"
	"github.com/iliyamo/parking-slot-reservation/internal/payment"
	"github.com/iliyamo/parking-slot-reservation/internal/queue"
	"github.com/iliyamo/parking-slot-reservation/internal/repository"
	"github.com/iliyamo/parking-slot-reservation/internal/router"
	"github.com/iliyamo/parking-slot-reservation/internal/service"
)

func main() {
	cfg := config.Load()
	log := logger.New(cfg.Env, cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.WithError(err).Fatal("open database")
	}
	defer db.Close()

	// Redis is optional: without it there is no listing cache and no rate
	// limiting.
	rdb, err := config.NewRedisClient(ctx)
	if err != nil {
		log.WithError(err).Warn("redis unavailable, cache and rate limiting disabled")
	} else {
		defer rdb.Close()
	}
	cacheCfg := config.LoadCacheConfig()
	var (
		gen         *middleware.ListingGeneration
		invalidator service.ListingInvalidator
	)
	if rdb != nil {
		gen = middleware.NewListingGeneration(rdb, cacheCfg.GenerationKey)
		invalidator = gen
	}

	var m *metrics.Metrics
	if cfg.MetricsEnabled {
		m = metrics.New("parking")
	}

	publisher := queue.NewPublisher(cfg.RabbitURL, log.WithField("component", "publisher"))
	defer publisher.Close()

	slotRepo := repository.NewSlotRepo(db)
	bookingRepo := repository.NewBookingRepo(db)
	txm := database.NewTxManager(db)

	slots := service.NewSlotService(slotRepo, invalidator, m, log.WithField("component", "slots"))
	bookings := service.NewBookingService(txm, bookingRepo, slots, publisher, service.RealClock{}, m,
		log.WithField("component", "bookings"),
		service.BookingOptions{RatePerHour: cfg.RatePerHour, HistoryLimit: cfg.HistoryLimit})
	gateway := payment.NewClient(cfg.PaymentBaseURL, cfg.PaymentKeyID, cfg.PaymentKeySecret, cfg.PaymentTimeout,
		log.WithField("component", "gateway"))
	payments := service.NewPaymentService(bookingRepo, gateway, payment.NewSigner(cfg.PaymentKeySecret), publisher,
		service.RealClock{}, cfg.PaymentCurrency, m, log.WithField("component", "payments"))

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Server.ReadHeaderTimeout = 5 * time.Second
	e.Server.ReadTimeout = 15 * time.Second
	e.Server.WriteTimeout = 30 * time.Second

	router.Register(e, router.Deps{
		JWTSecret:  cfg.JWTSecret,
		DB:         db,
		Auth:       handler.NewAuthHandler(cfg, repository.NewUserRepo(db), repository.NewTokenRepo(db), log),
		Parking:    handler.NewParkingHandler(slots, bookings, log),
		Payment:    handler.NewPaymentHandler(payments, log),
		Redis:      rdb,
		Generation: gen,
		Cache:      cacheCfg,
		RateLimit:  config.LoadRateLimitConfig(),
		Metrics:    m,
		Log:        log,
	})

	addr := ":" + cfg.Port
	go func() {
		log.WithFields(logrus.Fields{"addr": addr, "env": cfg.Env}).Info("listening")
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Fatal("server stopped")
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("graceful shutdown failed")
	}
}
