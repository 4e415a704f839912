package scheduler

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/hibiken/asynq"
)

func TestRedisClientOptParsesURL(t *testing.T) {
	srv := miniredis.RunT(t)

	opt, err := redisClientOpt("redis://"+srv.Addr(), false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if opt.Addr != srv.Addr() {
		t.Fatalf("addr = %q, want %q", opt.Addr, srv.Addr())
	}
	if opt.TLSConfig != nil {
		t.Fatal("plain redis url must not configure TLS")
	}
}

func TestRedisClientOptInsecureTLS(t *testing.T) {
	opt, err := redisClientOpt("rediss://example.internal:6380", true)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if opt.TLSConfig == nil || !opt.TLSConfig.InsecureSkipVerify {
		t.Fatal("insecure flag must relax certificate verification")
	}
}

func TestRedisClientOptRejectsGarbage(t *testing.T) {
	if _, err := redisClientOpt("not-a-url", false); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestClientEnqueuesJobRuns(t *testing.T) {
	srv := miniredis.RunT(t)

	client := &Client{
		client: asynq.NewClient(asynq.RedisClientOpt{Addr: srv.Addr()}),
		queue:  "default",
	}
	defer func() {
		_ = client.Close()
	}()

	if err := client.EnqueueNurtureRun(context.Background()); err != nil {
		t.Fatalf("enqueue nurture: %v", err)
	}
	if err := client.EnqueueStationHealthRun(context.Background()); err != nil {
		t.Fatalf("enqueue station health: %v", err)
	}

	inspector := asynq.NewInspector(asynq.RedisClientOpt{Addr: srv.Addr()})
	defer func() {
		_ = inspector.Close()
	}()

	tasks, err := inspector.ListPendingTasks("default")
	if err != nil {
		t.Fatalf("list pending: %v", err)
	}
	if len(tasks) != 2 {
		t.Fatalf("expected 2 pending tasks, got %d", len(tasks))
	}
}
