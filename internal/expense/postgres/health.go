package postgres

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/frahmantamala/expense-assistant/internal/metrics"
	"github.com/robfig/cron/v3"
)

// HealthChecker reports whether the store should be queried.
type HealthChecker interface {
	Healthy() bool
}

type Pinger interface {
	PingContext(ctx context.Context) error
}

var errNoStore = errors.New("no store configured")

type HealthSnapshot struct {
	Healthy   bool      `json:"healthy"`
	LastError string    `json:"last_error,omitempty"`
	CheckedAt time.Time `json:"checked_at"`
}

// HealthMonitor keeps the store health value current by pinging on a cron schedule.
type HealthMonitor struct {
	pinger  Pinger
	timeout time.Duration
	logger  *slog.Logger

	healthy atomic.Bool
	mu      sync.RWMutex
	lastErr error
	checked time.Time

	scheduler *cron.Cron
}

func NewHealthMonitor(pinger Pinger, timeout time.Duration, logger *slog.Logger) *HealthMonitor {
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &HealthMonitor{pinger: pinger, timeout: timeout, logger: logger}
}

// Check pings the store once and records the outcome.
func (m *HealthMonitor) Check(ctx context.Context) bool {
	err := errNoStore
	if m.pinger != nil {
		pingCtx, cancel := context.WithTimeout(ctx, m.timeout)
		err = m.pinger.PingContext(pingCtx)
		cancel()
	}

	healthy := err == nil
	previous := m.healthy.Swap(healthy)

	m.mu.Lock()
	m.lastErr = err
	m.checked = time.Now()
	m.mu.Unlock()

	metrics.SetStoreHealthy(healthy)
	switch {
	case previous && !healthy:
		m.logger.Warn("expense store became unreachable, serving fixture data for reads", "error", err)
	case !previous && healthy:
		m.logger.Info("expense store is reachable")
	case !healthy:
		m.logger.Debug("expense store still unreachable", "error", err)
	}
	return healthy
}

func (m *HealthMonitor) Healthy() bool {
	return m.healthy.Load()
}

func (m *HealthMonitor) Snapshot() HealthSnapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()
	snap := HealthSnapshot{Healthy: m.healthy.Load(), CheckedAt: m.checked}
	if m.lastErr != nil {
		snap.LastError = m.lastErr.Error()
	}
	return snap
}

// Start re-checks on the given cron spec, e.g. "@every 30s".
func (m *HealthMonitor) Start(spec string) error {
	scheduler := cron.New()
	if _, err := scheduler.AddFunc(spec, func() { m.Check(context.Background()) }); err != nil {
		return err
	}
	m.scheduler = scheduler
	scheduler.Start()
	return nil
}

func (m *HealthMonitor) Stop() {
	if m.scheduler == nil {
		return
	}
	<-m.scheduler.Stop().Done()
}
