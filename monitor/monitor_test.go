package monitor

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/floriandheer/ordermon/config"
	"github.com/floriandheer/ordermon/errors"
	"github.com/floriandheer/ordermon/state"
	"github.com/floriandheer/ordermon/woo"
)

// fakeSource serves canned orders.
type fakeSource struct {
	mu       sync.Mutex
	orders   []woo.Order
	fetchErr error
	fetches  int
	lastOpts woo.FetchOptions
}

func (f *fakeSource) FetchOrders(_ context.Context, opts woo.FetchOptions) ([]woo.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fetches++
	f.lastOpts = opts
	if f.fetchErr != nil {
		return nil, f.fetchErr
	}
	return f.orders, nil
}

func (f *fakeSource) TestConnection(_ context.Context) error { return nil }

// recordingBroadcaster captures activity events.
type recordingBroadcaster struct {
	mu        sync.Mutex
	started   []string
	orders    []OrderResult
	completed chan CycleStats
}

func newRecordingBroadcaster() *recordingBroadcaster {
	return &recordingBroadcaster{completed: make(chan CycleStats, 16)}
}

func (b *recordingBroadcaster) BroadcastCycleStarted(cycleID, trigger string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.started = append(b.started, trigger)
}

func (b *recordingBroadcaster) BroadcastOrderProcessed(_ string, res OrderResult) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.orders = append(b.orders, res)
}

func (b *recordingBroadcaster) BroadcastCycleCompleted(stats CycleStats) {
	b.completed <- stats
}

type monitorFixture struct {
	monitor *Monitor
	source  *fakeSource
	store   *state.FileStore
	events  *recordingBroadcaster
	proc    *processorFixture
}

func newMonitorFixture(t *testing.T, interval time.Duration) *monitorFixture {
	t.Helper()
	proc := newProcessorFixture(t)
	source := &fakeSource{}
	events := newRecordingBroadcaster()

	cfg := config.MonitorConfig{
		PollIntervalSeconds: int(interval / time.Second),
		LookbackHours:       48,
		PageSize:            100,
	}
	if interval < time.Second {
		cfg.PollIntervalSeconds = 1
	}

	m := New(source, proc.processor, proc.store, cfg,
		config.FiltersConfig{Statuses: []string{"processing", "completed"}},
		events, nil)

	return &monitorFixture{monitor: m, source: source, store: proc.store, events: events, proc: proc}
}

func TestRunOnceCountsEveryBucket(t *testing.T) {
	f := newMonitorFixture(t, time.Minute)

	// Order 10 was handled in an earlier run.
	require.NoError(t, f.store.Record(state.ProcessedRecord{
		OrderID: 10, OrderNumber: "1010", ProcessedAt: time.Now(), Outcome: state.OutcomeSuccess,
	}))

	pending := makeOrder(11, "1011", false)
	pending.Status = "pending"

	f.source.orders = []woo.Order{
		makeOrder(10, "1010", false), // already processed
		pending,                      // filtered by status
		makeOrder(12, "1012", true),  // new, succeeds
		makeOrder(13, "1013", false), // new, succeeds without label
	}

	stats := f.monitor.RunOnce(context.Background())

	assert.Equal(t, 4, stats.Fetched)
	assert.Equal(t, 1, stats.AlreadyProcessed)
	assert.Equal(t, 1, stats.Filtered)
	assert.Equal(t, 2, stats.Succeeded)
	assert.Equal(t, 0, stats.PartialFailures)
	assert.Equal(t, 0, stats.Failed)
	assert.Empty(t, stats.Error)
	assert.NotEmpty(t, stats.CycleID)

	// Lookback window was passed to the fetch.
	assert.False(t, f.source.lastOpts.After.IsZero())
	assert.WithinDuration(t, time.Now().Add(-48*time.Hour), f.source.lastOpts.After, time.Minute)
	assert.Equal(t, []string{"processing", "completed"}, f.source.lastOpts.Statuses)
}

func TestRunOnceIsIdempotent(t *testing.T) {
	f := newMonitorFixture(t, time.Minute)
	f.source.orders = []woo.Order{makeOrder(20, "1020", false)}

	first := f.monitor.RunOnce(context.Background())
	assert.Equal(t, 1, first.Succeeded)

	second := f.monitor.RunOnce(context.Background())
	assert.Equal(t, 0, second.Succeeded)
	assert.Equal(t, 1, second.AlreadyProcessed)
}

func TestRunOnceRetriesHardFailures(t *testing.T) {
	f := newMonitorFixture(t, time.Minute)
	f.source.orders = []woo.Order{makeOrder(30, "1030", false)}

	f.proc.renderer.fail = true
	first := f.monitor.RunOnce(context.Background())
	assert.Equal(t, 1, first.Failed)

	f.proc.renderer.fail = false
	second := f.monitor.RunOnce(context.Background())
	assert.Equal(t, 1, second.Succeeded, "failed order must be retried on the next cycle")
}

func TestRunOnceRecordsPartialFailures(t *testing.T) {
	f := newMonitorFixture(t, time.Minute)
	f.proc.labels.downloadFail = true
	f.source.orders = []woo.Order{makeOrder(40, "1040", true)}

	first := f.monitor.RunOnce(context.Background())
	assert.Equal(t, 1, first.PartialFailures)

	// Partial failures are final; no retry.
	second := f.monitor.RunOnce(context.Background())
	assert.Equal(t, 1, second.AlreadyProcessed)
	assert.Equal(t, 0, second.PartialFailures)
}

func TestRunOnceFetchFailure(t *testing.T) {
	f := newMonitorFixture(t, time.Minute)
	f.source.fetchErr = errors.NewTransientError("store unreachable")

	stats := f.monitor.RunOnce(context.Background())
	assert.NotEmpty(t, stats.Error)
	assert.Zero(t, stats.Fetched)
}

func TestFilterChangeAppliesNextCycle(t *testing.T) {
	f := newMonitorFixture(t, time.Minute)
	pending := makeOrder(50, "1050", false)
	pending.Status = "pending"
	f.source.orders = []woo.Order{pending}

	first := f.monitor.RunOnce(context.Background())
	assert.Equal(t, 1, first.Filtered)

	f.monitor.UpdateFilters(config.FiltersConfig{Statuses: []string{"pending"}})

	second := f.monitor.RunOnce(context.Background())
	assert.Equal(t, 0, second.Filtered)
	assert.Equal(t, 1, second.Succeeded)
}

func TestStartStopLifecycle(t *testing.T) {
	f := newMonitorFixture(t, time.Second)
	f.source.orders = []woo.Order{makeOrder(60, "1060", false)}

	require.NoError(t, f.monitor.Start(context.Background()))
	assert.Error(t, f.monitor.Start(context.Background()), "double start must fail")

	// First cycle fires immediately.
	select {
	case stats := <-f.events.completed:
		assert.Equal(t, TriggerSchedule, stats.Trigger)
		assert.Equal(t, 1, stats.Succeeded)
	case <-time.After(5 * time.Second):
		t.Fatal("first cycle never completed")
	}

	snap := f.monitor.Status()
	assert.True(t, snap.Running)
	assert.Equal(t, 1, snap.ProcessedTotal)

	f.monitor.Stop()
	assert.False(t, f.monitor.Status().Running)

	// Stop again is a no-op.
	f.monitor.Stop()
}

func TestTriggerNow(t *testing.T) {
	f := newMonitorFixture(t, time.Hour) // schedule effectively never fires twice
	f.source.orders = nil

	t.Run("fails when not running", func(t *testing.T) {
		assert.Error(t, f.monitor.TriggerNow())
	})

	require.NoError(t, f.monitor.Start(context.Background()))
	defer f.monitor.Stop()

	// Drain the immediate startup cycle.
	select {
	case <-f.events.completed:
	case <-time.After(5 * time.Second):
		t.Fatal("startup cycle never completed")
	}

	t.Run("runs a manual cycle", func(t *testing.T) {
		require.NoError(t, f.monitor.TriggerNow())
		select {
		case stats := <-f.events.completed:
			assert.Equal(t, TriggerManual, stats.Trigger)
		case <-time.After(5 * time.Second):
			t.Fatal("manual cycle never completed")
		}
	})
}

func TestStatusSnapshot(t *testing.T) {
	f := newMonitorFixture(t, time.Minute)

	snap := f.monitor.Status()
	assert.False(t, snap.Running)
	assert.False(t, snap.CycleInProgress)
	assert.Nil(t, snap.LastCycle)

	f.source.orders = []woo.Order{makeOrder(70, "1070", false)}
	f.monitor.RunOnce(context.Background())

	// RunOnce does not touch the scheduler's lastCycle bookkeeping, but the
	// processed total comes from the store either way.
	snap = f.monitor.Status()
	assert.Equal(t, 1, snap.ProcessedTotal)
}

func TestStatusAccumulatesAcrossCycles(t *testing.T) {
	f := newMonitorFixture(t, time.Minute)
	f.source.orders = []woo.Order{makeOrder(80, "1080", false)}

	f.proc.renderer.fail = true
	f.monitor.RunOnce(context.Background())

	f.proc.renderer.fail = false
	f.monitor.RunOnce(context.Background())

	// Third cycle sees the order again but it is already processed.
	f.monitor.RunOnce(context.Background())

	snap := f.monitor.Status()
	assert.Equal(t, 3, snap.OrdersSeen)
	assert.Equal(t, 1, snap.OrdersProcessed)
	assert.Equal(t, 1, snap.OrdersErrored)
}
