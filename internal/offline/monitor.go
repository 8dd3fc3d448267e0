// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package offline

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// DefaultProbeInterval is how often the server is probed while offline.
const DefaultProbeInterval = 15 * time.Second

// Prober checks whether the server is reachable.
type Prober func(ctx context.Context) error

// Monitor tracks whether the server is reachable.
//
// Gateway calls report their transport outcome. While offline, Run probes
// the server periodically. Each offline-to-online transition is signalled
// on Reconnected.
type Monitor struct {
	probe    Prober
	interval time.Duration
	logger   *zap.Logger

	mu     sync.RWMutex
	online bool
	forced bool

	reconnected chan struct{}
}

// NewMonitor creates a monitor that starts online unless forced offline.
func NewMonitor(probe Prober, interval time.Duration, forced bool, logger *zap.Logger) *Monitor {
	if interval <= 0 {
		interval = DefaultProbeInterval
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Monitor{
		probe:       probe,
		interval:    interval,
		logger:      logger.Named("connectivity"),
		online:      true,
		forced:      forced,
		reconnected: make(chan struct{}, 1),
	}
}

// Online reports whether requests should be attempted.
func (m *Monitor) Online() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.online && !m.forced
}

// Forced reports whether offline mode was forced by configuration.
func (m *Monitor) Forced() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.forced
}

// SetForced enables or disables forced offline mode. Leaving forced mode
// counts as a reconnect when the last known state was online.
func (m *Monitor) SetForced(forced bool) {
	m.mu.Lock()
	was := m.forced
	m.forced = forced
	signal := was && !forced && m.online
	m.mu.Unlock()

	if signal {
		m.signal()
	}
}

// ReportSuccess records a completed round trip.
func (m *Monitor) ReportSuccess() {
	m.mu.Lock()
	wasOffline := !m.online
	m.online = true
	forced := m.forced
	m.mu.Unlock()

	if wasOffline {
		m.logger.Info("server reachable again")
		if !forced {
			m.signal()
		}
	}
}

// ReportFailure records a transport failure.
func (m *Monitor) ReportFailure(err error) {
	m.mu.Lock()
	wasOnline := m.online
	m.online = false
	m.mu.Unlock()

	if wasOnline {
		m.logger.Warn("server unreachable", zap.Error(err))
	}
}

// Reconnected delivers a value after each transition back online. Signals
// that are not consumed coalesce into one.
func (m *Monitor) Reconnected() <-chan struct{} {
	return m.reconnected
}

func (m *Monitor) signal() {
	select {
	case m.reconnected <- struct{}{}:
	default:
	}
}

// Run probes the server every interval while offline until ctx is done.
func (m *Monitor) Run(ctx context.Context) {
	if m.probe == nil {
		return
	}
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.mu.RLock()
			skip := m.online || m.forced
			m.mu.RUnlock()
			if skip {
				continue
			}
			m.Probe(ctx)
		}
	}
}

// Probe checks the server once and records the result.
func (m *Monitor) Probe(ctx context.Context) bool {
	if m.probe == nil {
		return m.Online()
	}
	probeCtx, cancel := context.WithTimeout(ctx, m.interval)
	defer cancel()

	if err := m.probe(probeCtx); err != nil {
		m.logger.Debug("probe failed", zap.Error(err))
		m.ReportFailure(err)
		return false
	}
	m.ReportSuccess()
	return true
}
