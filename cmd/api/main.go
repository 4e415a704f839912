package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"sasquatch_backend/internal/ai"
	"sasquatch_backend/internal/conversations"
	conversationsservice "sasquatch_backend/internal/conversations/service"
	"sasquatch_backend/internal/cron"
	"sasquatch_backend/internal/email"
	apphttp "sasquatch_backend/internal/http"
	"sasquatch_backend/internal/http/router"
	"sasquatch_backend/internal/leads"
	"sasquatch_backend/internal/notification"
	"sasquatch_backend/internal/nurture/repository"
	nurtureservice "sasquatch_backend/internal/nurture/service"
	"sasquatch_backend/internal/partners"
	"sasquatch_backend/internal/push"
	"sasquatch_backend/internal/sms"
	stationrepo "sasquatch_backend/internal/stationhealth/repository"
	stationservice "sasquatch_backend/internal/stationhealth/service"
	"sasquatch_backend/internal/webhook"
	"sasquatch_backend/migrations"
	"sasquatch_backend/platform/config"
	"sasquatch_backend/platform/db"
	"sasquatch_backend/platform/events"
	"sasquatch_backend/platform/logger"
	"sasquatch_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/sync/errgroup"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	log := logger.New(cfg.Env)
	log.Info("starting server", "env", cfg.Env, "addr", cfg.HTTPAddr)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// ========================================================================
	// Infrastructure Layer
	// ========================================================================

	if err := withRetry(ctx, log, "database migrations", 5, 2*time.Second, func() error {
		return db.RunMigrations(ctx, cfg, migrations.FS)
	}); err != nil {
		log.Error("failed to run database migrations", "error", err)
		panic("failed to run database migrations: " + err.Error())
	}
	log.Info("database migrations complete")

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
	log.Info("database connection established")

	// Event bus for decoupled communication between modules
	eventBus := events.NewInMemoryBus(log)

	// Shared validator instance for dependency injection
	val := validator.New()

	// Collaborator clients; each is nil when its provider is unconfigured
	smsClient := sms.NewClient(cfg, log)
	pushClient := push.NewClient(cfg, log)

	emailSender, err := email.NewSender(cfg)
	if err != nil {
		log.Error("failed to initialize email sender", "error", err)
		panic("failed to initialize email sender: " + err.Error())
	}

	responder, err := ai.NewResponder(ctx, cfg)
	if err != nil {
		log.Error("failed to initialize responder", "error", err)
		panic("failed to initialize responder: " + err.Error())
	}
	if responder == nil {
		log.Warn("GEMINI_API_KEY not configured; inbound messages will be routed to an operator")
	}

	// ========================================================================
	// Domain Modules (Composition Root)
	// ========================================================================

	// Notification module subscribes to domain events (not HTTP-facing)
	notificationModule := notification.NewModule(eventBus, log)
	if smsClient != nil {
		notificationModule.SetAdminSMS(smsClient)
		notificationModule.SetPartnerSMS(smsClient)
	}
	if pushClient != nil {
		notificationModule.SetPush(pushClient)
	}
	if emailSender != nil {
		notificationModule.SetEmail(emailSender)
	}

	leadsModule := leads.NewModule(pool, eventBus, val)
	partnersModule := partners.NewModule(pool, eventBus, val)

	var responderIface conversationsservice.Responder
	if responder != nil {
		responderIface = responder
	}
	var customerSMS conversationsservice.SMSSender
	if smsClient != nil {
		customerSMS = smsClient
	}
	conversationsModule := conversations.NewModule(
		pool,
		responderIface,
		ai.MarkerClassifier{},
		customerSMS,
		leadsModule.Repository(),
		eventBus,
		val,
		log,
	)

	webhookModule := webhook.NewModule(pool, conversationsModule.Service(), leadsModule.Service(), log)

	nurtureSvc := nurtureservice.New(repository.New(pool), nurtureSender(smsClient), log)
	stationSvc := stationservice.New(stationrepo.New(pool), stationSender(smsClient), log)
	cronModule := cron.NewModule(nurtureSvc, stationSvc)

	// ========================================================================
	// HTTP Layer
	// ========================================================================

	app := &apphttp.App{
		Config:   cfg,
		Logger:   log,
		Health:   db.NewPoolAdapter(pool),
		EventBus: eventBus,
		Modules: []apphttp.Module{
			leadsModule,
			partnersModule,
			conversationsModule,
			webhookModule,
			cronModule,
			notificationModule,
		},
	}

	engine := router.New(app)
	srv := &http.Server{Addr: cfg.HTTPAddr, Handler: engine}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("server listening", "addr", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutdown signal received, gracefully shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Error("server error", "error", err)
		panic("server error: " + err.Error())
	}
}

// nurtureSender avoids handing a typed-nil client to the drip service.
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
