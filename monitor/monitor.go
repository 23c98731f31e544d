package monitor

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/floriandheer/ordermon/config"
	"github.com/floriandheer/ordermon/errors"
	"github.com/floriandheer/ordermon/logger"
	"github.com/floriandheer/ordermon/state"
	"github.com/floriandheer/ordermon/woo"
)

// OrderSource is the slice of the store client the monitor drives.
type OrderSource interface {
	FetchOrders(ctx context.Context, opts woo.FetchOptions) ([]woo.Order, error)
	TestConnection(ctx context.Context) error
}

// Broadcaster receives cycle activity for live status surfaces. All methods
// must be non-blocking; the cycle loop calls them inline.
type Broadcaster interface {
	BroadcastCycleStarted(cycleID, trigger string)
	BroadcastOrderProcessed(cycleID string, res OrderResult)
	BroadcastCycleCompleted(stats CycleStats)
}

// Cycle triggers.
const (
	TriggerSchedule = "schedule"
	TriggerManual   = "manual"
)

// CycleStats summarizes one polling cycle.
type CycleStats struct {
	CycleID    string    `json:"cycle_id"`
	Trigger    string    `json:"trigger"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`

	Fetched          int `json:"fetched"`
	AlreadyProcessed int `json:"already_processed"`
	Filtered         int `json:"filtered"`
	Succeeded        int `json:"succeeded"`
	PartialFailures  int `json:"partial_failures"`
	Failed           int `json:"failed"`

	// Error is set when the cycle aborted before processing, such as a
	// fetch that exhausted its retries.
	Error string `json:"error,omitempty"`
}

// Snapshot is the monitor state reported to the CLI and status API.
type Snapshot struct {
	Running         bool        `json:"running"`
	CycleInProgress bool        `json:"cycle_in_progress"`
	NextRunAt       time.Time   `json:"next_run_at,omitempty"`
	LastCycle       *CycleStats `json:"last_cycle,omitempty"`
	ProcessedTotal  int         `json:"processed_total"`

	// Cumulative counters across every cycle this monitor has run.
	OrdersSeen      int `json:"orders_seen"`
	OrdersProcessed int `json:"orders_processed"`
	OrdersErrored   int `json:"orders_errored"`
}

// Monitor owns the periodic polling loop. A cycle fetches the lookback
// window, drops known and filtered orders, and hands the rest to the
// processor one at a time.
type Monitor struct {
	source    OrderSource
	processor *Processor
	store     state.Store

	interval time.Duration
	lookback time.Duration

	broadcaster Broadcaster
	log         *zap.SugaredLogger

	filterMu sync.RWMutex
	filters  *woo.Filters
	statuses []string

	mu              sync.Mutex
	running         bool
	cycleInProgress bool
	nextRunAt       time.Time
	lastCycle       *CycleStats
	ordersSeen      int
	ordersProcessed int
	ordersErrored   int
	cancel          context.CancelFunc
	wg              sync.WaitGroup
	trigger         chan string
}

// New builds a monitor. broadcaster may be nil.
func New(source OrderSource, processor *Processor, store state.Store, cfg config.MonitorConfig, filters config.FiltersConfig, broadcaster Broadcaster, log *zap.SugaredLogger) *Monitor {
	if log == nil {
		log = logger.Logger
	}
	return &Monitor{
		source:      source,
		processor:   processor,
		store:       store,
		interval:    cfg.PollInterval(),
		lookback:    cfg.Lookback(),
		broadcaster: broadcaster,
		log:         log,
		filters:     woo.NewFilters(filters),
		statuses:    filters.Statuses,
		trigger:     make(chan string, 1),
	}
}

// UpdateFilters swaps the order filters, used by config reload. Takes effect
// on the next cycle.
func (m *Monitor) UpdateFilters(cfg config.FiltersConfig) {
	m.filterMu.Lock()
	defer m.filterMu.Unlock()
	m.filters = woo.NewFilters(cfg)
	m.statuses = cfg.Statuses
}

// Start launches the polling loop. The first cycle runs immediately.
func (m *Monitor) Start(ctx context.Context) error {
	m.mu.Lock()
	if m.running {
		m.mu.Unlock()
		return errors.New("monitor already running")
	}

	runCtx, cancel := context.WithCancel(ctx)
	m.cancel = cancel
	m.running = true
	m.mu.Unlock()

	m.wg.Add(1)
	go m.run(runCtx)

	m.log.Infow("Order monitor started",
		"interval", m.interval.String(),
		"lookback", m.lookback.String())
	return nil
}

// Stop halts the loop. A cycle in progress finishes its current order and
// then aborts; Stop blocks until the loop goroutine exits.
func (m *Monitor) Stop() {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return
	}
	cancel := m.cancel
	m.mu.Unlock()

	cancel()
	m.wg.Wait()

	m.mu.Lock()
	m.running = false
	m.cancel = nil
	m.nextRunAt = time.Time{}
	m.mu.Unlock()

	m.log.Infow("Order monitor stopped")
}

// TriggerNow requests an immediate cycle without disturbing the schedule.
// Returns ErrCycleInProgress when one is already running.
func (m *Monitor) TriggerNow() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.running {
		return errors.New("monitor is not running")
	}
	if m.cycleInProgress {
		return errors.ErrCycleInProgress
	}

	select {
	case m.trigger <- TriggerManual:
		return nil
	default:
		// A manual trigger is already queued.
		return errors.ErrCycleInProgress
	}
}

// RunOnce executes a single cycle synchronously, for `ordermon check` style
// one-shot invocations. Independent of Start/Stop.
func (m *Monitor) RunOnce(ctx context.Context) CycleStats {
	return m.runCycle(ctx, TriggerManual)
}

// Status reports the current monitor state.
func (m *Monitor) Status() Snapshot {
	m.mu.Lock()
	snap := Snapshot{
		Running:         m.running,
		CycleInProgress: m.cycleInProgress,
		NextRunAt:       m.nextRunAt,
		LastCycle:       m.lastCycle,
		OrdersSeen:      m.ordersSeen,
		OrdersProcessed: m.ordersProcessed,
		OrdersErrored:   m.ordersErrored,
	}
	m.mu.Unlock()

	if records, err := m.store.Snapshot(); err == nil {
		snap.ProcessedTotal = len(records)
	}
	return snap
}

func (m *Monitor) run(ctx context.Context) {
	defer m.wg.Done()

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	// First cycle fires immediately; the store owner wants new orders on
	// startup, not one interval later.
	m.executeCycle(ctx, TriggerSchedule)

	for {
		m.mu.Lock()
		m.nextRunAt = time.Now().Add(m.interval)
		m.mu.Unlock()

		select {
		case <-ctx.Done():
			return
		case trigger := <-m.trigger:
			m.executeCycle(ctx, trigger)
		case <-ticker.C:
			m.executeCycle(ctx, TriggerSchedule)
		}
	}
}

func (m *Monitor) executeCycle(ctx context.Context, trigger string) {
	if ctx.Err() != nil {
		return
	}

	m.mu.Lock()
	if m.cycleInProgress {
		// A manual run is still going; skip this tick rather than queue.
		m.mu.Unlock()
		m.log.Debugw("Skipping cycle, previous cycle still in progress")
		return
	}
	m.cycleInProgress = true
	m.mu.Unlock()

	stats := m.runCycle(ctx, trigger)

	m.mu.Lock()
	m.cycleInProgress = false
	m.lastCycle = &stats
	m.mu.Unlock()
}

func (m *Monitor) runCycle(ctx context.Context, trigger string) CycleStats {
	cycleID := uuid.NewString()[:8]
	stats := CycleStats{
		CycleID:   cycleID,
		Trigger:   trigger,
		StartedAt: time.Now(),
	}

	if m.broadcaster != nil {
		m.broadcaster.BroadcastCycleStarted(cycleID, trigger)
	}

	m.filterMu.RLock()
	filters := m.filters
	statuses := m.statuses
	m.filterMu.RUnlock()

	m.log.Infow("Cycle started",
		logger.FieldCycleID, cycleID,
		"trigger", trigger)

	orders, err := m.source.FetchOrders(ctx, woo.FetchOptions{
		After:    time.Now().Add(-m.lookback),
		Statuses: statuses,
	})
	if err != nil {
		stats.Error = err.Error()
		stats.FinishedAt = time.Now()
		m.log.Errorw("Cycle aborted, could not fetch orders",
			logger.FieldCycleID, cycleID,
			logger.FieldError, err)
		if m.broadcaster != nil {
			m.broadcaster.BroadcastCycleCompleted(stats)
		}
		return stats
	}
	stats.Fetched = len(orders)

	for _, order := range orders {
		// Stop between orders, never mid-document.
		if ctx.Err() != nil {
			stats.Error = "cycle interrupted"
			break
		}

		known, err := m.store.Contains(order.ID)
		if err != nil {
			stats.Failed++
			m.log.Errorw("State lookup failed, order deferred to next cycle",
				logger.FieldCycleID, cycleID,
				logger.FieldOrderID, order.ID,
				logger.FieldError, err)
			continue
		}
		if known {
			stats.AlreadyProcessed++
			continue
		}

		if !filters.Matches(order) {
			stats.Filtered++
			m.log.Debugw("Order filtered out",
				logger.FieldCycleID, cycleID,
				logger.FieldOrderNumber, order.Number,
				logger.FieldReason, filters.Reason(order))
			continue
		}

		res := m.processor.Process(ctx, order)
		switch res.Outcome {
		case OrderSuccess:
			stats.Succeeded++
		case OrderPartialFailure:
			stats.PartialFailures++
		case OrderFailure:
			stats.Failed++
		}

		if m.broadcaster != nil {
			m.broadcaster.BroadcastOrderProcessed(cycleID, res)
		}
	}

	stats.FinishedAt = time.Now()

	m.mu.Lock()
	m.ordersSeen += stats.Fetched
	m.ordersProcessed += stats.Succeeded + stats.PartialFailures
	m.ordersErrored += stats.Failed
	m.mu.Unlock()

	m.log.Infow("Cycle completed",
		logger.FieldCycleID, cycleID,
		logger.FieldCount, stats.Fetched,
		"new", stats.Succeeded+stats.PartialFailures+stats.Failed,
		"already_processed", stats.AlreadyProcessed,
		"filtered", stats.Filtered,
		"failed", stats.Failed,
		logger.FieldDurationMS, stats.FinishedAt.Sub(stats.StartedAt).Milliseconds())

	if m.broadcaster != nil {
		m.broadcaster.BroadcastCycleCompleted(stats)
	}
	return stats
}
