package scheduler

import (
	"context"
	"fmt"

	nurtureservice "sasquatch_backend/internal/nurture/service"
	stationservice "sasquatch_backend/internal/stationhealth/service"
	"sasquatch_backend/platform/config"
	"sasquatch_backend/platform/logger"

	"github.com/hibiken/asynq"
)

// NurtureRunner runs one drip pass.
type NurtureRunner interface {
	Run(ctx context.Context) (nurtureservice.RunReport, error)
}

// StationHealthRunner runs one station inactivity pass.
type StationHealthRunner interface {
	Run(ctx context.Context) (stationservice.RunReport, error)
}

// Worker consumes queued job runs. It is the queue-driven counterpart of
// the cron HTTP endpoints; both call the same services, and both are safe
// to run concurrently because every claim lives in the database.
type Worker struct {
	server        *asynq.Server
	mux           *asynq.ServeMux
	nurture       NurtureRunner
	stationHealth StationHealthRunner
	log           *logger.Logger
}

func NewWorker(cfg config.SchedulerConfig, nurture NurtureRunner, stationHealth StationHealthRunner, log *logger.Logger) (*Worker, error) {
	redisURL := cfg.GetRedisURL()
	if redisURL == "" {
		return nil, fmt.Errorf("redis url not configured")
	}

	opt, err := redisClientOpt(redisURL, cfg.GetRedisTLSInsecure())
	if err != nil {
		return nil, err
	}

	queue := cfg.GetAsynqQueueName()
	if queue == "" {
		queue = "default"
	}

	concurrency := cfg.GetAsynqConcurrency()
	if concurrency < 1 {
		concurrency = 2
	}

	server := asynq.NewServer(opt, asynq.Config{
		Concurrency: concurrency,
		Queues: map[string]int{
			queue: 1,
		},
	})

	mux := asynq.NewServeMux()
	w := &Worker{
		server:        server,
		mux:           mux,
		nurture:       nurture,
		stationHealth: stationHealth,
		log:           log,
	}

	mux.HandleFunc(TaskNurtureRun, w.handleNurtureRun)
	mux.HandleFunc(TaskStationHealthRun, w.handleStationHealthRun)

	return w, nil
}

func (w *Worker) Run(ctx context.Context) {
	if w == nil || w.server == nil {
		return
	}

	go func() {
		<-ctx.Done()
		w.server.Shutdown()
	}()

	if err := w.server.Run(w.mux); err != nil {
		w.log.Error("scheduler worker stopped", "error", err)
	}
}

func (w *Worker) handleNurtureRun(ctx context.Context, task *asynq.Task) error {
	payload, err := ParseRunPayload(task)
	if err != nil {
		return err
	}

	report, err := w.nurture.Run(ctx)
	if err != nil {
		return err
	}
	for _, item := range report.Errors {
		w.log.Warn("nurture item failed", "triggered_at", payload.TriggeredAt, "detail", item)
	}
	return nil
}

func (w *Worker) handleStationHealthRun(ctx context.Context, task *asynq.Task) error {
	payload, err := ParseRunPayload(task)
	if err != nil {
		return err
	}

	report, err := w.stationHealth.Run(ctx)
	if err != nil {
		return err
	}
	for _, item := range report.Errors {
		w.log.Warn("station health item failed", "triggered_at", payload.TriggeredAt, "detail", item)
	}
	return nil
}
