package queue

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"pnl_dashboard/metrics"
)

func TestQueueProcessesJob(t *testing.T) {
	m := metrics.New()
	q := New(10, 1, time.Second, m)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	q.Start(ctx)

	var processed int32
	done := make(chan error, 1)
	ok := q.Enqueue(Job{
		ID:   "refresh:sales",
		Kind: "refresh",
		Work: func(ctx context.Context) error {
			atomic.AddInt32(&processed, 1)
			return nil
		},
		OnFinish: func(err error) { done <- err },
	})
	if !ok {
		t.Fatalf("expected enqueue to succeed")
	}

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("unexpected job error %v", err)
		}
	case <-time.After(time.Second):
		t.Fatalf("job did not complete")
	}
	if atomic.LoadInt32(&processed) != 1 {
		t.Fatalf("job not processed")
	}
	if snap := m.Snapshot(); snap.QueueCapacity != 10 || snap.WorkerCount != 1 {
		t.Fatalf("queue stats not reported: %+v", snap)
	}
}

func TestQueueRecoversPanics(t *testing.T) {
	q := New(1, 1, time.Second, nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	q.Start(ctx)

	done := make(chan error, 1)
	q.Enqueue(Job{
		ID:       "boom",
		Work:     func(context.Context) error { panic("bad row") },
		OnFinish: func(err error) { done <- err },
	})
	select {
	case err := <-done:
		if err == nil {
			t.Fatal("panic should surface as an error")
		}
	case <-time.After(time.Second):
		t.Fatal("job did not finish")
	}
}

func TestQueueTimeoutAndBounded(t *testing.T) {
	q := New(1, 0, 100*time.Millisecond, nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	q.Start(ctx)

	ok := q.Enqueue(Job{ID: "slow", Kind: "test", Work: func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	}})
	if !ok {
		t.Fatalf("expected first enqueue to succeed")
	}

	if ok := q.Enqueue(Job{ID: "drop", Kind: "test", Work: func(ctx context.Context) error { return nil }}); ok {
		t.Fatalf("expected enqueue to be rejected when queue is full")
	}
	if s := q.Stats(); s.Length != 1 || s.Capacity != 1 {
		t.Fatalf("unexpected stats %+v", s)
	}
}

func TestJobTimeout(t *testing.T) {
	q := New(1, 1, 50*time.Millisecond, nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	q.Start(ctx)

	done := make(chan error, 1)
	q.Enqueue(Job{
		ID: "slow",
		Work: func(ctx context.Context) error {
			<-ctx.Done()
			return ctx.Err()
		},
		OnFinish: func(err error) { done <- err },
	})
	select {
	case err := <-done:
		if !errors.Is(err, context.DeadlineExceeded) {
			t.Fatalf("expected deadline exceeded, got %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("job timeout not enforced")
	}
	if q.Stats().Failed != 1 {
		t.Fatalf("expected one failed job, got %+v", q.Stats())
	}
}

func TestEnqueueWithRetryDropsWhenFull(t *testing.T) {
	q := New(1, 0, time.Second, nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	q.Start(ctx)

	first := q.Enqueue(Job{ID: "first", Kind: "test", Work: func(ctx context.Context) error { <-ctx.Done(); return ctx.Err() }})
	if !first {
		t.Fatalf("expected initial enqueue to succeed")
	}

	enqueued, dropped := q.EnqueueWithRetry(ctx, Job{ID: "retry", Kind: "test", Work: func(ctx context.Context) error { return nil }}, 200*time.Millisecond, 50*time.Millisecond)
	if enqueued {
		t.Fatalf("expected enqueue to fail due to full queue")
	}
	if !dropped {
		t.Fatalf("expected enqueue to be reported as dropped after retries")
	}
}

func TestEnqueueBeforeStartAndAfterStop(t *testing.T) {
	q := New(2, 1, time.Second, nil)
	if q.Enqueue(Job{ID: "early", Work: func(context.Context) error { return nil }}) {
		t.Fatal("enqueue before start must fail")
	}
	q.Start(context.Background())
	if !q.Healthy() {
		t.Fatal("started queue should be healthy")
	}
	stopCtx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	q.Stop(stopCtx)
	if q.Healthy() || q.Enqueue(Job{ID: "late", Work: func(context.Context) error { return nil }}) {
		t.Fatal("stopped queue must reject jobs")
	}
}
