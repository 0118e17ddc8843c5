package main // Entry point package

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"

	"github.com/iliyamo/meeting-room-reservation/internal/cache"
	"github.com/iliyamo/meeting-room-reservation/internal/config"
	"github.com/iliyamo/meeting-room-reservation/internal/database"
	"github.com/iliyamo/meeting-room-reservation/internal/handler"
	"github.com/iliyamo/meeting-room-reservation/internal/logging"
	"github.com/iliyamo/meeting-room-reservation/internal/metrics"
	"github.com/iliyamo/meeting-room-reservation/internal/middleware"
	"github.com/iliyamo/meeting-room-reservation/internal/queue"
	"github.com/iliyamo/meeting-room-reservation/internal/repository"
	"github.com/iliyamo/meeting-room-reservation/internal/router"
	"github.com/iliyamo/meeting-room-reservation/internal/scheduler"
	"github.com/iliyamo/meeting-room-reservation/internal/service"
	"github.com/iliyamo/meeting-room-reservation/internal/service/ports"

	_ "time/tzdata" // APP_TZ must resolve in minimal containers
)

func main() {
	cfg := config.Load() // Load environment config
	log := logging.New(cfg.LogLevel, cfg.LogFormat, os.Stderr)
	slog.SetDefault(log)

	policy, err := config.LoadPolicy(cfg.PolicyPath)
	if err != nil {
		log.Error("load policy", slog.Any("error", err))
		os.Exit(1)
	}
	metrics.Register()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	deps := service.Deps{
		Clock: service.SystemClock{Location: cfg.Location},
		Rules: service.Rules{
			MinDuration:   policy.MinDuration,
			MaxDuration:   policy.MaxDuration,
			MaxPurposeLen: policy.MaxPurposeLength,
			LockCompleted: policy.LockCompleted,
		},
		Logger: log,
	}

	var db *sql.DB
	switch cfg.Storage {
	case config.StorageMySQL:
		db, err = database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
		if err != nil {
			log.Error("connect database", slog.Any("error", err))
			os.Exit(1)
		}
		defer db.Close()
		if err := database.Migrate(db); err != nil {
			log.Error("migrate database", slog.Any("error", err))
			os.Exit(1)
		}
		deps.Store = repository.NewReservationRepo(db, cfg.LockTimeout)
		deps.Rooms = repository.NewRoomRepo(db)
		deps.History = repository.NewHistoryRepo(db)
	case config.StorageMemory:
		mem := repository.NewMemoryStore()
		for _, r := range cfg.SeedRooms {
			mem.PutRoom(r)
		}
		deps.Store, deps.Rooms, deps.History = mem, mem, mem
		log.Warn("using in-memory storage; data is lost on restart", slog.Int("rooms", len(cfg.SeedRooms)))
	}

	// Redis is optional: without it the cache and the rate limiter are off.
	rdb := config.NewRedisClient()
	if rdb == nil {
		log.Warn("redis unavailable; availability cache and rate limiting disabled")
	} else {
		defer rdb.Close()
		if c := cache.NewAvailability(config.LoadCacheConfig(), rdb, log); c != nil {
			deps.Cache = c
		}
	}

	var (
		outbox ports.AuditOutbox
		wg     sync.WaitGroup
	)
	if cfg.AMQPURL != "" {
		pub := queue.NewPublisher(cfg.AMQPURL, cfg.EventsQueue, cfg.AuditQueue, log)
		deps.Events = pub
		outbox = pub

		consumer := queue.NewAuditConsumer(cfg.AMQPURL, cfg.AuditQueue, deps.History, log)
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := consumer.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				log.Error("audit consumer stopped", slog.Any("error", err))
			}
		}()
	} else {
		log.Warn("AMQP_URL not set; lifecycle events and audit outbox disabled")
	}
	deps.Audit = service.NewAuditRecorder(deps.History, outbox, cfg.AuditTimeout, log)

	svc := service.NewReservationService(deps)

	sweeper := scheduler.New(svc, policy.SweepInterval, log)
	wg.Add(1)
	go func() {
		defer wg.Done()
		sweeper.Start(ctx)
	}()

	e := echo.New() // Create Echo instance
	e.HideBanner = true
	e.HidePort = true
	e.Use(echomw.Recover())
	e.Use(echomw.RequestID())
	e.Use(middleware.RequestLogger(log))

	var pinger handler.Pinger
	if db != nil {
		pinger = db
	}
	router.RegisterRoutes(e, pinger) // Register application routes
	router.RegisterReservations(e, handler.NewReservationHandler(svc, log), router.Options{
		JWTSecret:      cfg.JWTSecret,
		ServiceKeyHash: cfg.ServiceKeyHash,
		RateLimit:      middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb, log),
	})

	addr := ":" + cfg.Port // Address string with port
	go func() {
		log.Info("listening", slog.String("addr", addr), slog.String("env", cfg.Env), slog.String("storage", cfg.Storage))
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("http server failed", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Error("http shutdown", slog.Any("error", err))
	}
	wg.Wait()
}
