package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"sasquatch_backend/internal/nurture/repository"
	nurtureservice "sasquatch_backend/internal/nurture/service"
	"sasquatch_backend/internal/scheduler"
	"sasquatch_backend/internal/sms"
	stationrepo "sasquatch_backend/internal/stationhealth/repository"
	stationservice "sasquatch_backend/internal/stationhealth/service"
	"sasquatch_backend/platform/config"
	"sasquatch_backend/platform/db"
	"sasquatch_backend/platform/logger"

	"github.com/jackc/pgx/v5/pgxpool"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	log := logger.New(cfg.Env)
	log.Info("starting scheduler", "env", cfg.Env)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var pool *pgxpool.Pool
	if err := withRetry(ctx, log, "database connection", 5, 2*time.Second, func() error {
		p, err := db.NewPool(ctx, cfg)
		if err != nil {
			return err
		}
		pool = p
		return nil
	}); err != nil {
		log.Error("failed to connect to database", "error", err)
		panic("failed to connect to database: " + err.Error())
	}
	defer pool.Close()

	smsClient := sms.NewClient(cfg, log)

	nurtureSvc := nurtureservice.New(repository.New(pool), nurtureSender(smsClient), log)
	stationSvc := stationservice.New(stationrepo.New(pool), stationSender(smsClient), log)

	client, err := scheduler.NewClient(cfg)
	if err != nil {
		log.Error("failed to initialize scheduler client", "error", err)
		panic("failed to initialize scheduler client: " + err.Error())
	}
	defer func() { _ = client.Close() }()

	interval := getDurationEnv("JOB_INTERVAL", 24*time.Hour)
	dispatcher := scheduler.NewDispatcher(client, interval, log)
	go dispatcher.Run(ctx)

	worker, err := scheduler.NewWorker(cfg, nurtureSvc, stationSvc, log)
	if err != nil {
		log.Error("failed to initialize scheduler worker", "error", err)
		panic("failed to initialize scheduler worker: " + err.Error())
	}

	worker.Run(ctx)
}

func nurtureSender(c *sms.Client) nurtureservice.SMSSender {
	if c == nil {
		return nil
	}
	return c
}

func stationSender(c *sms.Client) stationservice.SMSSender {
	if c == nil {
		return nil
	}
	return c
}

func getDurationEnv(key string, fallback time.Duration) time.Duration {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil || parsed <= 0 {
		return fallback
	}
	return parsed
}

func withRetry(ctx context.Context, log *logger.Logger, name string, attempts int, baseDelay time.Duration, fn func() error) error {
	if attempts < 1 {
		return fmt.Errorf("%s: invalid retry attempts", name)
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err := fn(); err == nil {
			return nil
		} else {
			lastErr = err
			log.Warn("retryable operation failed", "operation", name, "attempt", attempt, "error", err)
		}

		if attempt < attempts {
			delay := time.Duration(attempt*attempt) * baseDelay
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
		}
	}

	return errors.New(name + ": " + lastErr.Error())
}
