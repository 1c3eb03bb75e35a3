/*
scheduler.go - Periodic tank monitor

PURPOSE:
  Periodically reconstructs every machine's tank and publishes the current
  level and overall discrepancy as Prometheus gauges. Machines whose
  consumption since the last refill exceeds that refill are logged as
  warnings; they usually mean a missing refill entry.

DESIGN:
  - Runs a background goroutine with configurable check interval
  - Runs one check immediately on start
  - Pings the store first; a failed ping sets fuel_store_up to 0 and skips
    the tank pass

CONFIGURATION:
  - CheckInterval: How often to check (default: 5 minutes)
  - Enabled: Whether the monitor is active (default: true)

USAGE:
  monitor := NewTankMonitor(handler, logger)
  monitor.Start()
  // ... later
  monitor.Stop()

SEE ALSO:
  - metrics.go: Gauges written here
  - fuel/report.go: MachineTankAnalysis
*/
package api

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/warp/fuel-engine/fuel"
)

// TankMonitor refreshes tank gauges in the background.
type TankMonitor struct {
	Handler       *Handler
	CheckInterval time.Duration
	Enabled       bool

	// Timeout bounds one check. Defaults to CheckInterval.
	Timeout time.Duration

	log    zerolog.Logger
	ticker *time.Ticker
	stop   chan struct{}
	wg     sync.WaitGroup
	mu     sync.Mutex
}

// NewTankMonitor creates a monitor with a five minute interval.
func NewTankMonitor(h *Handler, log zerolog.Logger) *TankMonitor {
	return &TankMonitor{
		Handler:       h,
		CheckInterval: 5 * time.Minute,
		Enabled:       true,
		log:           log.With().Str("component", "tank_monitor").Logger(),
	}
}

// Start begins the monitor. Calling Start twice is a no-op.
func (tm *TankMonitor) Start() {
	tm.mu.Lock()
	defer tm.mu.Unlock()

	if !tm.Enabled {
		tm.log.Info().Msg("disabled, not starting")
		return
	}
	if tm.ticker != nil {
		return
	}

	tm.ticker = time.NewTicker(tm.CheckInterval)
	tm.stop = make(chan struct{})
	tm.wg.Add(1)

	go tm.run()

	tm.log.Info().Dur("interval", tm.CheckInterval).Msg("started")
}

// Stop stops the monitor and waits for a running check to finish.
func (tm *TankMonitor) Stop() {
	tm.mu.Lock()
	defer tm.mu.Unlock()

	if tm.ticker != nil {
		tm.ticker.Stop()
		close(tm.stop)
		tm.wg.Wait()
		tm.ticker = nil
		tm.log.Info().Msg("stopped")
	}
}

func (tm *TankMonitor) run() {
	defer tm.wg.Done()

	tm.RunNow()

	for {
		select {
		case <-tm.ticker.C:
			tm.RunNow()
		case <-tm.stop:
			return
		}
	}
}

// RunNow performs one check synchronously and returns how many machines
// were refreshed.
func (tm *TankMonitor) RunNow() int {
	timeout := tm.Timeout
	if timeout <= 0 {
		timeout = tm.CheckInterval
	}
	if timeout <= 0 {
		timeout = time.Minute
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	h := tm.Handler
	if p, ok := h.Store.(pinger); ok {
		if err := p.Ping(ctx); err != nil {
			h.Metrics.SetStoreUp(false)
			tm.log.Warn().Err(err).Msg("store unreachable")
			return 0
		}
	}
	h.Metrics.SetStoreUp(true)

	machines, err := h.Store.ListMachinery(ctx)
	if err != nil {
		tm.log.Error().Err(err).Msg("list machinery")
		return 0
	}

	h.Metrics.ResetTankLevels()
	refreshed := 0
	for _, m := range machines {
		a, err := h.Reporter.MachineTankAnalysis(ctx, m.ID, fuel.DateRange{})
		if err != nil {
			tm.log.Error().Err(err).Int64("machinery_id", int64(m.ID)).Msg("analyze tank")
			continue
		}
		st := a.Status
		h.Metrics.SetTankLevel(int64(m.ID), m.Name, st.CurrentTankLevel.Float64(), a.Statistics.OverallDiscrepancy.Float64())
		if st.ConsumptionSinceLastRefill.GreaterThan(st.LastRefillAmount) {
			tm.log.Warn().
				Int64("machinery_id", int64(m.ID)).
				Str("machinery", m.Name).
				Str("refilled", st.LastRefillAmount.String()).
				Str("consumed", st.ConsumptionSinceLastRefill.String()).
				Msg("consumed more than last refill, refill entry may be missing")
		}
		refreshed++
	}

	tm.log.Debug().Int("machines", refreshed).Msg("tank check complete")
	return refreshed
}

// NextRunTime returns when the next scheduled check will occur.
func (tm *TankMonitor) NextRunTime() time.Time {
	return time.Now().Add(tm.CheckInterval)
}
