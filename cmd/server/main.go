package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"

	"interview-scheduler/internal/app"
	"interview-scheduler/internal/booking"
	"interview-scheduler/internal/calendar"
	"interview-scheduler/internal/config"
	"interview-scheduler/internal/db"
	"interview-scheduler/internal/housekeeping"
	"interview-scheduler/internal/server"
	"interview-scheduler/internal/store"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	if err := run(logger); err != nil {
		logger.Error("fatal", "err", err)
		os.Exit(1)
	}
}

func run(logger *slog.Logger) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	kv, closeKV, err := openKV(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("store %s: %w", cfg.StoreDriver, err)
	}
	defer closeKV()
	st := store.New(kv)

	opts := booking.Options{
		Location:        cfg.Location,
		Defaults:        cfg.SlotDefaults,
		WhatsappPattern: cfg.WhatsappPattern,
		CalendarTimeout: cfg.CalendarTimeout,
		InterviewTitle:  cfg.InterviewTitle,
		Logger:          logger,
	}
	cal := calendar.New(calendar.Config{
		ClientID:     cfg.GoogleClientID,
		ClientSecret: cfg.GoogleClientSecret,
		RedirectURL:  cfg.GoogleRedirectURL,
		CalendarID:   cfg.GoogleCalendarID,
	}, st, cfg.Location, logger)
	if cal != nil {
		opts.Calendar = cal
	} else {
		logger.Warn("google calendar not configured, bookings will have no meeting link")
	}
	svc := booking.NewService(st, opts)

	sched := housekeeping.New(st, cfg.Location, cfg.HousekeepingSpec, logger)
	if err := sched.Start(ctx); err != nil {
		return fmt.Errorf("housekeeping: %w", err)
	}
	defer sched.Stop()

	gin.SetMode(gin.ReleaseMode)
	a := &app.App{
		Bookings:    svc,
		Jobs:        st,
		Calendar:    cal,
		AdminSecret: []byte(cfg.AdminSecret),
		Logger:      logger,
	}

	return server.Run(ctx, a.Router(), cfg.Port, logger)
}

// openKV connects the configured backend and returns its close func.
func openKV(ctx context.Context, cfg *config.Config, logger *slog.Logger) (store.KV, func(), error) {
	switch cfg.StoreDriver {
	case config.DriverPostgres:
		pool, err := db.OpenPostgres(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, nil, err
		}
		kv := store.NewPostgresKV(pool)
		if err := kv.EnsureSchema(ctx); err != nil {
			pool.Close()
			return nil, nil, err
		}
		logger.Info("postgres connected")
		return kv, pool.Close, nil
	case config.DriverMemory:
		logger.Warn("using in-memory store, data is lost on restart")
		return store.NewMemoryKV(), func() {}, nil
	default:
		rdb, err := db.OpenRedis(ctx, cfg.RedisURL)
		if err != nil {
			return nil, nil, err
		}
		logger.Info("redis connected")
		return store.NewRedisKV(rdb, cfg.RedisNamespace), func() { rdb.Close() }, nil
	}
}
