// Package housekeeper implements the periodic session-table logger.
//
// The broker holds no persistent state, so the housekeeper is the only
// visibility into the live session table between requests: every sweep it
// snapshots each session's id and flag map under the registry lock and logs
// the result. It never mutates state.
package housekeeper

import (
	"context"
	"sync"
	"time"

	"github.com/hydrosim/exchange/internal/logger"
	"github.com/hydrosim/exchange/pkg/session"
)

// defaultSweepInterval is how often the housekeeper logs the session table.
const defaultSweepInterval = 10 * time.Second

// Config holds configuration for the housekeeper.
type Config struct {
	// SweepInterval is how often the session table is snapshotted and logged.
	// Default: 10s
	SweepInterval time.Duration `mapstructure:"sweep_interval" yaml:"sweep_interval"`
}

// Housekeeper periodically snapshots and logs the session registry.
//
// Lifecycle:
//   - Created via New() with the registry to observe
//   - Started via Start() which spawns the background goroutine
//   - Stopped via Stop() which cancels the context and waits for exit
//
// The sweep acquires the registry lock only for the duration of the snapshot;
// logging happens outside the critical section.
type Housekeeper struct {
	registry      *session.Registry
	sweepInterval time.Duration

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New creates a housekeeper for the given registry.
// The housekeeper does not run until Start() is called.
func New(registry *session.Registry, config *Config) *Housekeeper {
	sweepInterval := defaultSweepInterval
	if config != nil && config.SweepInterval > 0 {
		sweepInterval = config.SweepInterval
	}

	return &Housekeeper{
		registry:      registry,
		sweepInterval: sweepInterval,
	}
}

// Start begins the background goroutine.
//
// The housekeeper runs until Stop() is called or the parent context is
// cancelled. Start should only be called once.
func (h *Housekeeper) Start(ctx context.Context) {
	h.ctx, h.cancel = context.WithCancel(ctx)

	logger.Info("housekeeper started", "sweep_interval", h.sweepInterval.String())

	h.wg.Add(1)
	go h.run()
}

// Stop gracefully stops the housekeeper.
//
// This cancels the context and blocks until the goroutine has exited.
// Safe to call multiple times.
func (h *Housekeeper) Stop() {
	if h.cancel != nil {
		h.cancel()
	}
	h.wg.Wait()
}

// run is the main sweep loop.
func (h *Housekeeper) run() {
	defer h.wg.Done()

	ticker := time.NewTicker(h.sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-h.ctx.Done():
			// Shutdown requested - log one final snapshot
			h.sweep()
			logger.Info("housekeeper stopped")
			return
		case <-ticker.C:
			h.sweep()
		}
	}
}

// sweep logs the current session table.
func (h *Housekeeper) sweep() {
	snapshots := h.registry.SnapshotAll()

	logger.Info("session table", "sessions", len(snapshots))
	for _, snap := range snapshots {
		logger.Info("session state",
			"session_id", snap.ID.String(),
			"status", snap.Status.String(),
			"flags", snap.Flags)
	}
}
