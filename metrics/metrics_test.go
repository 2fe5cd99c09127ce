package metrics

import (
	"errors"
	"sync"
	"testing"
)

func TestSnapshotCounters(t *testing.T) {
	m := New()
	m.UpdateQueue(3, 32, 2)
	m.RecordJobCompletion(nil)
	m.RecordJobCompletion(errors.New("boom"))
	m.RecordCache(true)
	m.RecordCache(false)
	m.RecordCache(false)
	m.RecordTableRead(nil)
	m.RecordTableRead(errors.New("sheet missing"))
	m.RecordTableWrite()
	m.RecordBuild()

	s := m.Snapshot()
	if s.QueueLength != 3 || s.QueueCapacity != 32 || s.WorkerCount != 2 {
		t.Fatalf("unexpected queue stats %+v", s)
	}
	if s.ProcessedJobs != 2 || s.FailedJobs != 1 {
		t.Fatalf("unexpected job counters %+v", s)
	}
	if s.CacheHits != 1 || s.CacheMisses != 2 {
		t.Fatalf("unexpected cache counters %+v", s)
	}
	if s.TableReads != 2 || s.TableFailures != 1 || s.TableWrites != 1 || s.Builds != 1 {
		t.Fatalf("unexpected table counters %+v", s)
	}
}

func TestConcurrentRecording(t *testing.T) {
	m := New()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			m.RecordCache(true)
			m.RecordBuild()
		}()
	}
	wg.Wait()
	if s := m.Snapshot(); s.CacheHits != 50 || s.Builds != 50 {
		t.Fatalf("lost updates: %+v", s)
	}
}
