// Copyright 2025 The go-zeromq Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package sender

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/destiny/pushpull"
)

const monitorTask = "Monitor"

// Report is the outcome of a client run.
type Report struct {
	Results         []WorkerResult
	Sent            int
	Completed       int
	Stragglers      []string
	Reason          pushpull.Reason
	ServerAvailable bool
	// Err is the first error a client goroutine returned, such as a
	// recovered panic.
	Err error
}

// Client runs the initial probe, the liveness monitor and the worker pool
// under one shutdown protocol.
type Client struct {
	cfg   *Config
	log   *pushpull.Logger
	state *pushpull.RunState

	registry  *pushpull.Registry
	transport *pushpull.Context
	coord     *pushpull.Coordinator
	metrics   *Metrics

	monitor *Monitor
	pool    *Pool
}

// NewClient wires a client. reg may be nil to keep metrics unregistered.
func NewClient(cfg *Config, state *pushpull.RunState, log *pushpull.Logger, reg prometheus.Registerer) *Client {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if log == nil {
		log = pushpull.DefaultLogger
	}
	if state == nil {
		state = pushpull.NewRunState()
	}

	c := &Client{
		cfg:      cfg,
		log:      log,
		state:    state,
		registry: pushpull.NewRegistry(log),
		metrics:  NewMetrics(reg, pushpull.MetricsNamespace),
	}
	c.transport = pushpull.NewContext(context.Background(),
		pushpull.WithLogger(log),
		pushpull.WithCodec(cfg.Codec),
		pushpull.WithRegistry(c.registry),
		pushpull.WithSendTimeout(cfg.ServerTimeout),
		pushpull.WithDefaultLinger(cfg.Linger),
	)
	c.coord = pushpull.NewCoordinator(state, c.transport, c.registry, log)
	c.monitor = NewMonitor(cfg, state, log, c.metrics)
	c.pool = NewPool(cfg, c.transport, state, c.coord, log, c.metrics)
	return c
}

// State returns the run state shared by the client goroutines.
func (c *Client) State() *pushpull.RunState { return c.state }

// Registry returns the socket registry of the worker sockets.
func (c *Client) Registry() *pushpull.Registry { return c.registry }

// Run probes the receiver, starts the monitor and the workers, waits for the
// workers, then shuts everything down. It returns an error when the run ended
// because the receiver was unavailable or setup failed.
func (c *Client) Run() (Report, error) {
	c.logConfiguration()
	c.log.Info("Transport context created")

	if !c.cfg.DisableProbe {
		c.log.Info("Testing initial server connection...")
		if err := c.monitor.Probe(c.cfg.InitialProbeTimeout); err != nil {
			c.log.Warn("Server connection test failed: %v", err)
			c.log.Error("Cannot connect to server initially - server appears to be down")
			c.log.Error("Initiating immediate shutdown - no point in starting workers")
			c.state.MarkPeerDown()
			_ = c.monitor.Close()
			report := c.finish(nil)
			return report, fmt.Errorf("sender: server unavailable at %s: %w", c.cfg.Endpoint(), err)
		}
	}

	if c.cfg.DisableMonitor {
		_ = c.monitor.Close()
	} else {
		c.coord.Go(monitorTask, func() error {
			c.monitor.Run()
			return nil
		})
		c.log.Info("Server monitoring started")
	}

	c.pool.Start()

	c.log.Info("Waiting for all workers to complete...")
	if !c.pool.Wait(c.state.Done()) {
		c.log.Info("Shutdown signaled while workers are running")
	}
	stragglers := c.coord.Join(c.cfg.JoinTimeout, c.pool.Names()...)

	// workers are done: stop the monitor
	c.state.Shutdown(pushpull.ReasonCompleted)
	if !c.cfg.DisableMonitor {
		c.log.Info("Stopping server monitoring...")
		stragglers = append(stragglers, c.coord.Join(c.cfg.JoinTimeout, monitorTask)...)
	}

	switch reason := c.state.Reason(); reason {
	case pushpull.ReasonCompleted:
		c.log.Info("All workers completed normally")
	default:
		c.log.Info("Shutdown initiated due to %s", reason)
	}

	report := c.finish(stragglers)
	switch {
	case report.Err != nil:
		return report, fmt.Errorf("sender: stopped: %s: %w", report.Reason, report.Err)
	case report.Reason.Failed():
		return report, fmt.Errorf("sender: stopped: %s", report.Reason)
	}
	return report, nil
}

func (c *Client) finish(stragglers []string) Report {
	c.log.Info("Starting final cleanup process...")
	if alive := c.coord.Alive(); len(alive) > 0 {
		c.log.Warn("Still waiting for %d goroutines to complete before cleanup", len(alive))
		stragglers = append(stragglers, c.coord.Join(c.cfg.JoinTimeout/2)...)
	}
	var taskErr error
	if len(c.coord.Alive()) == 0 {
		if taskErr = c.coord.Err(); taskErr != nil {
			c.log.Error("Client goroutine failed: %v", taskErr)
		}
	}
	c.coord.Cleanup()

	report := Report{
		Results:         c.pool.Results(),
		Stragglers:      stragglers,
		Reason:          c.state.Reason(),
		ServerAvailable: c.state.Available(),
		Err:             taskErr,
	}
	for _, res := range report.Results {
		report.Sent += res.Sent
		if res.Outcome == OutcomeCompleted {
			report.Completed++
		}
	}

	c.log.Info("Sent %d messages, %d/%d workers completed", report.Sent, report.Completed, len(c.pool.workers))
	if report.ServerAvailable {
		c.log.Info("Cleanup completed successfully. Server was responsive. Goodbye!")
	} else {
		c.log.Info("Cleanup completed. Note: Server was unresponsive during execution. Goodbye!")
	}
	return report
}

func (c *Client) logConfiguration() {
	c.log.Info("============================================================")
	c.log.Info("ZeroMQ PUSH Client Configuration:")
	c.log.Info("  - Endpoint: %s", c.cfg.Endpoint())
	c.log.Info("  - Workers: %d, messages per worker: %d", c.cfg.Workers, c.cfg.MessagesPerWorker)
	c.log.Info("  - Message delay: %v, server timeout: %v", c.cfg.MessageDelay, c.cfg.ServerTimeout)
	c.log.Info("  - Heartbeat interval: %v", c.cfg.HeartbeatInterval)
	if c.cfg.RateLimit > 0 {
		c.log.Info("  - Rate limit: %.1f msg/s (burst %d)", c.cfg.RateLimit, c.cfg.RateBurst)
	}
	c.log.Info("============================================================")
}
