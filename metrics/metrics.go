package metrics

import "sync/atomic"

// Metrics captures shared operational stats for table reads, the cache, the
// warming queue and dashboard builds.
type Metrics struct {
	queueLength   int64
	queueCapacity int64
	workerCount   int64

	processedJobs int64
	failedJobs    int64

	cacheHits     int64
	cacheMisses   int64
	tableReads    int64
	tableFailures int64
	tableWrites   int64
	builds        int64
}

// Snapshot provides a consistent view of the current metrics.
type Snapshot struct {
	QueueLength   int   `json:"queue_length"`
	QueueCapacity int   `json:"queue_capacity"`
	WorkerCount   int   `json:"worker_count"`
	ProcessedJobs int64 `json:"processed_jobs"`
	FailedJobs    int64 `json:"failed_jobs"`
	CacheHits     int64 `json:"cache_hits"`
	CacheMisses   int64 `json:"cache_misses"`
	TableReads    int64 `json:"table_reads"`
	TableFailures int64 `json:"table_failures"`
	TableWrites   int64 `json:"table_writes"`
	Builds        int64 `json:"builds"`
}

// New creates a zeroed Metrics instance.
func New() *Metrics {
	return &Metrics{}
}

// UpdateQueue records the current queue stats.
func (m *Metrics) UpdateQueue(length, capacity, workers int) {
	atomic.StoreInt64(&m.queueLength, int64(length))
	atomic.StoreInt64(&m.queueCapacity, int64(capacity))
	atomic.StoreInt64(&m.workerCount, int64(workers))
}

// RecordJobCompletion increments processed/failed counters based on outcome.
func (m *Metrics) RecordJobCompletion(err error) {
	atomic.AddInt64(&m.processedJobs, 1)
	if err != nil {
		atomic.AddInt64(&m.failedJobs, 1)
	}
}

func (m *Metrics) RecordCache(hit bool) {
	if hit {
		atomic.AddInt64(&m.cacheHits, 1)
		return
	}
	atomic.AddInt64(&m.cacheMisses, 1)
}

// RecordTableRead counts a read that reached the backend.
func (m *Metrics) RecordTableRead(err error) {
	atomic.AddInt64(&m.tableReads, 1)
	if err != nil {
		atomic.AddInt64(&m.tableFailures, 1)
	}
}

func (m *Metrics) RecordTableWrite() {
	atomic.AddInt64(&m.tableWrites, 1)
}

func (m *Metrics) RecordBuild() {
	atomic.AddInt64(&m.builds, 1)
}

// Snapshot returns a read-only view of metrics.
func (m *Metrics) Snapshot() Snapshot {
	return Snapshot{
		QueueLength:   int(atomic.LoadInt64(&m.queueLength)),
		QueueCapacity: int(atomic.LoadInt64(&m.queueCapacity)),
		WorkerCount:   int(atomic.LoadInt64(&m.workerCount)),
		ProcessedJobs: atomic.LoadInt64(&m.processedJobs),
		FailedJobs:    atomic.LoadInt64(&m.failedJobs),
		CacheHits:     atomic.LoadInt64(&m.cacheHits),
		CacheMisses:   atomic.LoadInt64(&m.cacheMisses),
		TableReads:    atomic.LoadInt64(&m.tableReads),
		TableFailures: atomic.LoadInt64(&m.tableFailures),
		TableWrites:   atomic.LoadInt64(&m.tableWrites),
		Builds:        atomic.LoadInt64(&m.builds),
	}
}
