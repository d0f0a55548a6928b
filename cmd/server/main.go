package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/contrib/instrumentation/github.com/labstack/echo/otelecho"

	"github.com/iliyamo/cinema-ticketing/internal/config"
	"github.com/iliyamo/cinema-ticketing/internal/database"
	"github.com/iliyamo/cinema-ticketing/internal/handler"
	"github.com/iliyamo/cinema-ticketing/internal/logger"
	"github.com/iliyamo/cinema-ticketing/internal/middleware"
	"github.com/iliyamo/cinema-ticketing/internal/queue"
	"github.com/iliyamo/cinema-ticketing/internal/repository"
	"github.com/iliyamo/cinema-ticketing/internal/router"
	"github.com/iliyamo/cinema-ticketing/internal/scheduler"
	"github.com/iliyamo/cinema-ticketing/internal/service"
	"github.com/iliyamo/cinema-ticketing/internal/telemetry"
)

func main() {
	cfg := config.Load()
	log := logger.New(cfg.Log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTelemetry, err := telemetry.Setup(ctx, cfg.Telemetry)
	if err != nil {
		log.WithError(err).Fatal("telemetry setup failed")
	}

	db, err := database.Open(ctx, database.Settings{
		User: cfg.DBUser,
		Pass: cfg.DBPass,
		Host: cfg.DBHost,
		Port: cfg.DBPort,
		Name: cfg.DBName,
		Loc:  cfg.Location,
	})
	if err != nil {
		log.WithError(err).Fatal("database connection failed")
	}
	store := repository.NewStore(db)

	rdb := config.NewRedisClient(ctx)
	if rdb == nil {
		log.Warn("redis unavailable; rate limiting, report cache and job locking disabled")
	}

	var publisher service.EventPublisher = queue.NopPublisher{}
	if cfg.Events.Enabled {
		publisher = queue.NewPublisher(cfg.Events.URL, log)
		audit := logger.New(cfg.Log)
		if f, err := os.OpenFile("events.log", os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644); err == nil {
			audit.SetOutput(f)
			defer f.Close()
		} else {
			log.WithError(err).Warn("event audit log falls back to stdout")
		}
		consumer := queue.NewConsumer(cfg.Events.URL, log, audit)
		go func() {
			if err := consumer.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				log.WithError(err).Error("event consumer stopped")
			}
		}()
	}

	opts := []service.Option{
		service.WithClock(func() time.Time { return time.Now().In(cfg.Location) }),
		service.WithLogger(log),
		service.WithPublisher(publisher),
		service.WithHoldTimeout(cfg.Booking.HoldTimeout),
		service.WithPointValue(cfg.Booking.PointValue),
		service.WithRefundCouponDays(cfg.Booking.RefundCouponValidFor),
		service.WithMembershipTiers(cfg.Membership.YouthAge, cfg.Membership.YouthTier, cfg.Membership.BaseTier),
	}
	bookings := service.NewBookingService(store, opts...)
	pricing := service.NewPricingEngine(store, opts...)
	reaper := service.NewReaper(store, bookings, opts...)
	membership := service.NewMembershipService(store, opts...)

	var locker gocron.Locker
	if rdb != nil {
		locker = scheduler.NewRedisLocker(rdb, "lock:jobs", 30*time.Second)
	}
	jobs, err := scheduler.New(scheduler.Config{
		ReaperInterval: cfg.Booking.ReaperInterval,
		HoldTimeout:    cfg.Booking.HoldTimeout,
		ResetCron:      cfg.Membership.ResetCron,
		Location:       cfg.Location,
		Locker:         locker,
	}, reaper, membership, log)
	if err != nil {
		log.WithError(err).Fatal("scheduler setup failed")
	}
	jobs.Start()

	e := echo.New()
	e.HideBanner = true
	e.Validator = handler.NewRequestValidator()
	e.Use(echomw.Recover())
	e.Use(otelecho.Middleware(cfg.Telemetry.ServiceName))
	e.Use(middleware.RequestLogger(log, http.StatusInternalServerError))

	limiter := middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb, log)
	cache := middleware.NewRedisCache(config.LoadCacheConfig(), rdb, log)

	bh := handler.NewBookingHandler(bookings, pricing, reaper, log)
	acc := handler.NewAccountHandler(service.NewDashboardService(store, opts...), membership, log)
	auth := handler.NewAuthHandler(handler.AuthSettings{
		JWTSecret:    cfg.JWTSecret,
		AccessTTLMin: cfg.AccessTTLMin,
		BcryptCost:   cfg.BcryptCost,
		YouthAge:     cfg.Membership.YouthAge,
		YouthTier:    cfg.Membership.YouthTier,
		BaseTier:     cfg.Membership.BaseTier,
	}, store.Customers, log)

	router.RegisterRoutes(e, db)
	router.RegisterAuth(e, auth, cfg.JWTSecret, limiter)
	router.RegisterCustomer(e, router.CustomerHandlers{
		Bookings: bh,
		Coupons:  handler.NewCouponHandler(service.NewCouponLedger(store, opts...), log),
		Refunds:  handler.NewRefundHandler(service.NewRefundService(store, opts...), log),
		Account:  acc,
	}, cfg.JWTSecret, limiter)
	router.RegisterAdmin(e, bh, acc, handler.NewReportHandler(service.NewReportService(store, opts...), cfg.Location, log), cfg.JWTSecret, cache)

	addr := ":" + cfg.Port
	go func() {
		log.WithFields(logrus.Fields{"addr": addr, "env": cfg.Env}).Info("listening")
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Fatal("http server failed")
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Warn("http shutdown")
	}
	if err := jobs.Shutdown(); err != nil {
		log.WithError(err).Warn("scheduler shutdown")
	}
	if err := shutdownTelemetry(shutdownCtx); err != nil {
		log.WithError(err).Warn("telemetry shutdown")
	}
	if rdb != nil {
		_ = rdb.Close()
	}
	_ = db.Close()
}
