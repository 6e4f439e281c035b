// Copyright 2025 The go-zeromq Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package sender

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/destiny/pushpull"
)

// Monitor checks receiver liveness by delivering heartbeat messages over
// throwaway PUSH sockets of a private transport context.
type Monitor struct {
	endpoint string
	interval time.Duration
	timeout  time.Duration
	codec    pushpull.Codec
	pid      int

	state   *pushpull.RunState
	log     *pushpull.Logger
	metrics *Metrics

	transport *pushpull.Context
	failures  int
}

// NewMonitor creates a monitor for cfg.Endpoint().
func NewMonitor(cfg *Config, state *pushpull.RunState, log *pushpull.Logger, metrics *Metrics) *Monitor {
	if log == nil {
		log = pushpull.DefaultLogger
	}
	if metrics == nil {
		metrics = NewMetrics(nil, pushpull.MetricsNamespace)
	}
	m := &Monitor{
		endpoint: cfg.Endpoint(),
		interval: cfg.HeartbeatInterval,
		timeout:  cfg.HeartbeatTimeout,
		codec:    cfg.Codec,
		pid:      os.Getpid(),
		state:    state,
		log:      log,
		metrics:  metrics,
	}
	m.transport = pushpull.NewContext(context.Background(),
		pushpull.WithLogger(log),
		pushpull.WithCodec(cfg.Codec),
		pushpull.WithDefaultLinger(0),
	)
	return m
}

// Probe connects a fresh socket and delivers one heartbeat within timeout.
func (m *Monitor) Probe(timeout time.Duration) error {
	start := time.Now()
	m.metrics.Heartbeats.Inc()

	sock, err := m.transport.Connect("monitor", m.endpoint,
		pushpull.WithTimeout(timeout),
		pushpull.WithDialTimeout(timeout),
		pushpull.WithLinger(0),
	)
	if err != nil {
		m.metrics.HeartbeatFailures.Inc()
		return fmt.Errorf("sender: heartbeat connect: %w", err)
	}
	defer sock.Close()

	if err := sock.Send(pushpull.FormatHeartbeat(m.pid)); err != nil {
		m.metrics.HeartbeatFailures.Inc()
		return fmt.Errorf("sender: heartbeat send: %w", err)
	}
	m.metrics.HeartbeatLatency.Observe(time.Since(start).Seconds())
	m.log.Debug("Server connection test successful")
	return nil
}

// Failures returns the current streak of failed heartbeats.
func (m *Monitor) Failures() int { return m.failures }

// Run probes every interval until shutdown. The first failed probe while the
// receiver is believed available marks it down and ends the run. Run always
// terminates the private transport context.
func (m *Monitor) Run() {
	defer m.Close()

	for !m.state.IsShutdown() {
		if err := m.Probe(m.timeout); err != nil {
			m.failures++
			if pushpull.IsTimeout(err) {
				m.log.Warn("Server connection test timed out - server may be unresponsive")
			}
			m.log.Warn("Server check failed (attempt %d): %v", m.failures, err)
			if m.state.Available() {
				m.log.Error("Server appears to be offline - initiating immediate graceful shutdown")
				m.state.MarkPeerDown()
				return
			}
		} else {
			m.failures = 0
			if !m.state.IsShutdown() && m.state.SetAvailable(true) {
				m.log.Info("Server is back online")
			}
		}

		if !m.state.Sleep(m.interval) {
			return
		}
	}
}

// Close terminates the private transport context.
func (m *Monitor) Close() error {
	return m.transport.Term()
}
