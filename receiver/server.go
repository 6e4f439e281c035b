// Copyright 2025 The go-zeromq Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package receiver

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/destiny/pushpull"
)

// Report is the outcome of a server run.
type Report struct {
	Received   uint64
	Processed  int
	Drained    int
	Remaining  int
	Stragglers []string
	Reason     pushpull.Reason
	// Err is the first error a server goroutine returned.
	Err error
}

// Server runs a receiver and a queue processor under one shutdown protocol.
type Server struct {
	cfg   *Config
	log   *pushpull.Logger
	state *pushpull.RunState

	registry  *pushpull.Registry
	transport *pushpull.Context
	queue     *pushpull.Queue
	coord     *pushpull.Coordinator
	metrics   *Metrics

	receiver  *Receiver
	processor *Processor
}

// NewServer wires a server. reg may be nil to keep metrics unregistered.
func NewServer(cfg *Config, state *pushpull.RunState, log *pushpull.Logger, reg prometheus.Registerer) *Server {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if log == nil {
		log = pushpull.DefaultLogger
	}
	if state == nil {
		state = pushpull.NewRunState()
	}

	s := &Server{
		cfg:      cfg,
		log:      log,
		state:    state,
		registry: pushpull.NewRegistry(log),
		queue:    pushpull.NewQueue(cfg.QueueCapacity),
		metrics:  NewMetrics(reg, pushpull.MetricsNamespace),
	}
	s.transport = pushpull.NewContext(context.Background(),
		pushpull.WithLogger(log),
		pushpull.WithCodec(cfg.Codec),
		pushpull.WithRegistry(s.registry),
		pushpull.WithDefaultLinger(cfg.Linger),
	)
	s.coord = pushpull.NewCoordinator(state, s.transport, s.registry, log)
	s.receiver = NewReceiver(cfg, s.transport, s.queue, state, log, s.metrics)
	s.processor = NewProcessor(cfg, s.queue, state, s.receiver.Done(), log, s.metrics)
	return s
}

// State returns the run state shared by the server goroutines.
func (s *Server) State() *pushpull.RunState { return s.state }

// Receiver returns the receiver worker.
func (s *Server) Receiver() *Receiver { return s.receiver }

// Processor returns the queue processor.
func (s *Server) Processor() *Processor { return s.processor }

// Queue returns the bounded queue.
func (s *Server) Queue() *pushpull.Queue { return s.queue }

// Metrics returns the server metrics.
func (s *Server) Metrics() *Metrics { return s.metrics }

// Registry returns the socket registry.
func (s *Server) Registry() *pushpull.Registry { return s.registry }

// Start launches the receiver and, once it is bound, the processor.
func (s *Server) Start() error {
	s.coord.Go("Receiver", s.receiver.Run)
	s.log.Info("Receiver started on %s", s.cfg.Endpoint())

	<-s.receiver.Ready()
	if err := s.receiver.BindErr(); err != nil {
		return err
	}
	s.processor.port = pushpull.PortOf(s.receiver.Endpoint())

	s.coord.Go("Processor", func() error {
		s.processor.Run()
		return nil
	})
	s.log.Info("Queue processor started")
	return nil
}

// Endpoint returns the resolved listening endpoint.
func (s *Server) Endpoint() string { return s.receiver.Endpoint() }

// Wait blocks until shutdown is requested or ctx is done.
func (s *Server) Wait(ctx context.Context) {
	select {
	case <-s.state.Done():
	case <-ctx.Done():
	}
}

// Shutdown requests shutdown if needed, joins the goroutines, releases every
// socket and the transport context, and reports the run. It is safe to call
// more than once.
func (s *Server) Shutdown() Report {
	s.state.Shutdown(pushpull.ReasonCompleted)

	s.log.Info("Waiting for goroutines to complete...")
	stragglers := s.coord.Join(s.cfg.JoinTimeout)
	if len(stragglers) == 0 {
		s.log.Info("All goroutines completed")
	}

	var taskErr error
	if len(s.coord.Alive()) == 0 {
		if taskErr = s.coord.Err(); taskErr != nil {
			s.log.Error("Server goroutine failed: %v", taskErr)
		}
	}

	s.log.Info("Starting cleanup process...")
	s.coord.Cleanup()

	remaining := s.queue.Len()
	if remaining > 0 {
		s.log.Warn("%d messages remain in queue", remaining)
	} else {
		s.log.Info("Message queue is empty")
	}
	s.log.Info("Server shutdown completed. Goodbye!")

	return Report{
		Received:   s.receiver.Count(),
		Processed:  s.processor.Processed(),
		Drained:    s.processor.Drained(),
		Remaining:  remaining,
		Stragglers: stragglers,
		Reason:     s.state.Reason(),
		Err:        taskErr,
	}
}

// Run starts the server, blocks until shutdown or ctx is done, then shuts
// down.
func (s *Server) Run(ctx context.Context) (Report, error) {
	s.logConfiguration()
	if err := s.Start(); err != nil {
		return s.Shutdown(), err
	}
	s.log.Info("Server is running on TCP port %s. Press Ctrl+C to stop gracefully.", pushpull.PortOf(s.Endpoint()))
	s.Wait(ctx)
	report := s.Shutdown()
	if report.Reason.Failed() {
		return report, fmt.Errorf("receiver: stopped: %s", report.Reason)
	}
	return report, nil
}

func (s *Server) logConfiguration() {
	codec := "utf-8"
	if s.cfg.Codec != nil {
		codec = s.cfg.Codec.Name()
	}
	s.log.Info("============================================================")
	s.log.Info("ZeroMQ PULL Server Configuration:")
	s.log.Info("  - Endpoint: %s", s.cfg.Endpoint())
	s.log.Info("  - Queue capacity: %d", s.cfg.QueueCapacity)
	s.log.Info("  - Encoding: %s", codec)
	s.log.Info("============================================================")
}
