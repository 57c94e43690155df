package db

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

// Monitor owns the process-wide "is the database reachable" flag. It is the
// only writer; request middleware and the health endpoint only read it.
// The flag is set on the startup attempt and updated on every transition
// observed by the ping loop.
type Monitor struct {
	pool     *pgxpool.Pool
	logger   *zap.Logger
	interval time.Duration
	up       atomic.Bool

	// onUp runs once per down-to-up transition (schema re-apply).
	onUp func(ctx context.Context)
}

func NewMonitor(pool *pgxpool.Pool, logger *zap.Logger, interval time.Duration, onUp func(ctx context.Context)) *Monitor {
	if interval <= 0 {
		interval = 5 * time.Second
	}
	return &Monitor{
		pool:     pool,
		logger:   logger,
		interval: interval,
		onUp:     onUp,
	}
}

// Healthy reports whether the last ping succeeded.
func (m *Monitor) Healthy() bool {
	return m.up.Load()
}

// Run pings the database until ctx is cancelled. It performs one immediate
// check so the flag reflects reality before the first tick.
func (m *Monitor) Run(ctx context.Context) {
	m.check(ctx)

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.check(ctx)
		}
	}
}

func (m *Monitor) check(ctx context.Context) {
	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	err := m.pool.Ping(pingCtx)
	wasUp := m.up.Load()

	if err != nil {
		m.up.Store(false)
		if wasUp {
			m.logger.Error("Database became unreachable", zap.Error(err))
		}
		return
	}

	m.up.Store(true)
	if !wasUp {
		m.logger.Info("Database reachable")
		if m.onUp != nil {
			m.onUp(ctx)
		}
	}
}
