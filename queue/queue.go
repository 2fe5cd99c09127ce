package queue

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"pnl_dashboard/logger"
	"pnl_dashboard/metrics"
)

// Job is one unit of background work, such as re-reading a table into the
// cache.
type Job struct {
	ID       string
	Kind     string
	Work     func(context.Context) error
	OnFinish func(error)
}

// Stats exposes current queue metrics.
type Stats struct {
	Length      int    `json:"length"`
	Capacity    int    `json:"capacity"`
	WorkerCount int    `json:"worker_count"`
	Processed   uint64 `json:"processed"`
	Failed      uint64 `json:"failed"`
}

// Queue is a bounded job queue drained by a fixed worker pool.
type Queue struct {
	jobs        chan Job
	workerCount int
	timeout     time.Duration
	started     bool
	mu          sync.RWMutex
	wg          sync.WaitGroup
	processed   uint64
	failed      uint64
	metrics     *metrics.Metrics
	log         *logger.Entry
}

// New creates a Queue with the given capacity, worker count and per-job
// timeout. m may be nil.
func New(capacity, workerCount int, timeout time.Duration, m *metrics.Metrics) *Queue {
	q := &Queue{
		jobs:        make(chan Job, capacity),
		workerCount: workerCount,
		timeout:     timeout,
		metrics:     m,
		log:         logger.GetLogger().WithComponent("queue"),
	}
	q.report()
	return q
}

// Start launches the worker pool.
func (q *Queue) Start(ctx context.Context) {
	q.mu.Lock()
	if q.started {
		q.mu.Unlock()
		return
	}
	q.started = true
	q.mu.Unlock()
	for i := 0; i < q.workerCount; i++ {
		q.wg.Add(1)
		go q.worker(ctx)
	}
	q.log.WithFields(logger.Fields{"workers": q.workerCount, "capacity": cap(q.jobs)}).Info("queue started")
}

// Enqueue queues a job without blocking. It returns false if the queue is
// full or not started.
func (q *Queue) Enqueue(j Job) bool {
	return q.tryEnqueue(j, true)
}

// EnqueueWithRetry keeps trying for window, every interval. Returns
// (enqueued, droppedFull).
func (q *Queue) EnqueueWithRetry(ctx context.Context, j Job, window time.Duration, interval time.Duration) (bool, bool) {
	deadline := time.Now().Add(window)
	if q.tryEnqueue(j, false) {
		return true, false
	}
	for time.Now().Before(deadline) {
		select {
		case <-ctx.Done():
			return false, false
		case <-time.After(interval):
			if q.tryEnqueue(j, false) {
				return true, false
			}
		}
	}
	q.log.WithFields(logger.Fields{"job": j.ID, "kind": j.Kind}).Warn("job queue full after retries, dropping job")
	return false, true
}

func (q *Queue) tryEnqueue(j Job, logDrop bool) bool {
	q.mu.RLock()
	defer q.mu.RUnlock()
	if !q.started {
		if logDrop {
			q.log.WithField("job", j.ID).Warn("enqueue called before queue started")
		}
		return false
	}
	defer q.report()
	select {
	case q.jobs <- j:
		return true
	default:
		if logDrop {
			q.log.WithFields(logger.Fields{"job": j.ID, "kind": j.Kind}).Warn("job queue full, dropping job")
		}
		return false
	}
}

// Stop stops accepting jobs and waits for workers to drain until ctx is done.
func (q *Queue) Stop(ctx context.Context) {
	q.mu.Lock()
	if !q.started {
		q.mu.Unlock()
		return
	}
	q.started = false
	close(q.jobs)
	q.mu.Unlock()

	done := make(chan struct{})
	go func() {
		q.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
	}
}

func (q *Queue) Stats() Stats {
	return Stats{
		Length:      len(q.jobs),
		Capacity:    cap(q.jobs),
		WorkerCount: q.workerCount,
		Processed:   atomic.LoadUint64(&q.processed),
		Failed:      atomic.LoadUint64(&q.failed),
	}
}

func (q *Queue) report() {
	if q.metrics != nil {
		q.metrics.UpdateQueue(len(q.jobs), cap(q.jobs), q.workerCount)
	}
}

func (q *Queue) worker(ctx context.Context) {
	defer q.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case j, ok := <-q.jobs:
			if !ok {
				return
			}
			q.report()
			q.handleJob(ctx, j)
		}
	}
}

func (q *Queue) handleJob(ctx context.Context, j Job) {
	start := time.Now()
	var err error
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
			q.log.WithField("job", j.ID).Errorf("job panic recovered: %v", r)
		}
		q.finish(j, err, start)
	}()

	jobCtx, cancel := context.WithTimeout(ctx, q.timeout)
	defer cancel()
	err = j.Work(jobCtx)
}

func (q *Queue) finish(j Job, err error, start time.Time) {
	atomic.AddUint64(&q.processed, 1)
	if err != nil {
		atomic.AddUint64(&q.failed, 1)
	}
	if q.metrics != nil {
		q.metrics.RecordJobCompletion(err)
	}
	if j.OnFinish != nil {
		j.OnFinish(err)
	}
	entry := q.log.WithFields(logger.Fields{
		"job":         j.ID,
		"kind":        j.Kind,
		"duration_ms": time.Since(start).Milliseconds(),
	})
	if err != nil {
		entry.WithError(err).Warn("job failed")
		return
	}
	entry.Debug("job done")
}

// Healthy reports whether the queue is accepting jobs.
func (q *Queue) Healthy() bool {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return q.started
}
