// internal/platform/ui/metrics_test.go
package ui

import (
	"sync"
	"testing"
	"time"

	"proxylens/internal/core/domain"
	"proxylens/internal/testutil"
)

func TestBulkMetrics_Snapshot(t *testing.T) {
	clock := testutil.NewFakeClock(time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC))
	m := newBulkMetrics(4, clock.Now)

	empty := m.Snapshot()
	testutil.AssertEqual(t, empty.Done, 0, "done")
	testutil.AssertEqual(t, empty.Rate, 0.0, "no rate before first record")

	clean := completedRecord(domain.ClassificationClean)
	clean.Elapsed = 4 * time.Second
	failed := &domain.ScanRecord{Err: domain.ErrTimeout, Elapsed: 2 * time.Second}

	m.Record(clean)
	m.Record(failed)
	clock.Advance(10 * time.Second)

	pm := m.Snapshot()
	testutil.AssertEqual(t, pm.Done, 2, "done")
	testutil.AssertEqual(t, pm.Total, 4, "total")
	testutil.AssertEqual(t, pm.Percentage, 50.0, "percentage")
	testutil.AssertEqual(t, pm.Rate, 0.2, "rate")
	testutil.AssertEqual(t, pm.EstimatedTime, 10*time.Second, "eta")
	testutil.AssertEqual(t, pm.AvgSession, 3*time.Second, "average session")
	testutil.AssertEqual(t, pm.Clean, 1, "clean")
	testutil.AssertEqual(t, pm.Errors, 1, "errors")
	testutil.AssertEqual(t, pm.Detected, 0, "detected")
}

func TestBulkMetrics_ConcurrentRecord(t *testing.T) {
	m := NewBulkMetrics(100)

	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			m.Record(completedRecord(domain.ClassificationVPN))
		}()
	}
	wg.Wait()

	pm := m.Snapshot()
	testutil.AssertEqual(t, pm.Done, 100, "done")
	testutil.AssertEqual(t, pm.Detected, 100, "detected")
	testutil.AssertEqual(t, pm.EstimatedTime, time.Duration(0), "nothing left")
}
