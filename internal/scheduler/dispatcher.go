package scheduler

import (
	"context"
	"time"

	"sasquatch_backend/platform/logger"
)

// Dispatcher enqueues the recurring jobs on a fixed interval. Overlap
// with the cron endpoints is harmless: every send is gated by a
// database-side claim.
type Dispatcher struct {
	client   *Client
	interval time.Duration
	log      *logger.Logger
}

// NewDispatcher creates a dispatcher over the enqueue client.
func NewDispatcher(client *Client, interval time.Duration, log *logger.Logger) *Dispatcher {
	if interval <= 0 {
		interval = 24 * time.Hour
	}
	return &Dispatcher{client: client, interval: interval, log: log}
}

// Run enqueues both jobs once at start and then every interval, until the
// context ends.
func (d *Dispatcher) Run(ctx context.Context) {
	if d == nil || d.client == nil {
		return
	}

	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()

	d.enqueue(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
		d.enqueue(ctx)
	}
}

func (d *Dispatcher) enqueue(ctx context.Context) {
	if err := d.client.EnqueueNurtureRun(ctx); err != nil {
		d.log.Warn("enqueue nurture run failed", "error", err)
	}
	if err := d.client.EnqueueStationHealthRun(ctx); err != nil {
		d.log.Warn("enqueue station health run failed", "error", err)
	}
}
