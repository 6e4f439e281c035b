// Copyright 2025 The go-zeromq Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package receiver implements the PULL side of the relay: a receiver that
// binds the endpoint and feeds a bounded queue, and a single queue processor.
package receiver

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/destiny/pushpull"
)

// State is the receiver lifecycle.
type State int32

const (
	StateUnbound State = iota
	StateBound
	StateRunning
	StateDraining
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateUnbound:
		return "unbound"
	case StateBound:
		return "bound"
	case StateRunning:
		return "running"
	case StateDraining:
		return "draining"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// Receiver binds the listening endpoint, pulls messages with a bounded poll
// timeout, sequences them and hands them to the queue.
type Receiver struct {
	endpoint    string
	pollTimeout time.Duration
	putTimeout  time.Duration
	linger      time.Duration

	transport *pushpull.Context
	queue     *pushpull.Queue
	state     *pushpull.RunState
	log       *pushpull.Logger
	metrics   *Metrics

	phase   atomic.Int32
	counter atomic.Uint64

	readyOnce sync.Once
	ready     chan struct{}
	bound     string
	bindErr   error

	done chan struct{}
}

// NewReceiver creates a receiver for cfg.Endpoint().
func NewReceiver(cfg *Config, transport *pushpull.Context, queue *pushpull.Queue, state *pushpull.RunState, log *pushpull.Logger, metrics *Metrics) *Receiver {
	if log == nil {
		log = pushpull.DefaultLogger
	}
	if metrics == nil {
		metrics = NewMetrics(nil, pushpull.MetricsNamespace)
	}
	return &Receiver{
		endpoint:    cfg.Endpoint(),
		pollTimeout: cfg.PollTimeout,
		putTimeout:  cfg.PutTimeout,
		linger:      cfg.Linger,
		transport:   transport,
		queue:       queue,
		state:       state,
		log:         log,
		metrics:     metrics,
		ready:       make(chan struct{}),
		done:        make(chan struct{}),
	}
}

// Ready is closed once the bind attempt finished, successfully or not.
func (r *Receiver) Ready() <-chan struct{} { return r.ready }

// Done is closed when Run returns.
func (r *Receiver) Done() <-chan struct{} { return r.done }

// BindErr returns the bind failure, if any. Valid after Ready.
func (r *Receiver) BindErr() error { return r.bindErr }

// Endpoint returns the resolved listening endpoint. Valid after Ready.
func (r *Receiver) Endpoint() string { return r.bound }

// State returns the lifecycle state.
func (r *Receiver) State() State { return State(r.phase.Load()) }

// Count returns how many messages were received.
func (r *Receiver) Count() uint64 { return r.counter.Load() }

func (r *Receiver) markReady() {
	r.readyOnce.Do(func() { close(r.ready) })
}

// Run binds and pulls until shutdown. A bind failure escalates to a fatal
// shutdown.
func (r *Receiver) Run() error {
	defer close(r.done)

	sock, err := r.transport.Bind("receiver", r.endpoint, pushpull.WithLinger(r.linger))
	if err != nil {
		r.bindErr = fmt.Errorf("receiver: could not bind %s: %w", r.endpoint, err)
		r.phase.Store(int32(StateClosed))
		r.markReady()
		r.log.Error("Failed to bind socket to %s: %v", r.endpoint, err)
		r.state.Shutdown(pushpull.ReasonFatal)
		return r.bindErr
	}

	r.bound = sock.Endpoint()
	port := pushpull.PortOf(r.bound)
	r.phase.Store(int32(StateBound))
	r.markReady()
	r.log.Info("Socket bound to %s | Server listening on TCP port %s", r.bound, port)
	r.log.Info("Socket type: %s, ready to receive messages", sock.Mode())

	r.phase.Store(int32(StateRunning))
	for !r.state.IsShutdown() {
		msg, ok, err := sock.Recv(r.pollTimeout)
		if err != nil {
			if r.state.IsShutdown() {
				break
			}
			if errors.Is(err, pushpull.ErrContextTerminated) || errors.Is(err, pushpull.ErrClosed) {
				r.log.Warn("Receiver socket released by the transport: %v", err)
				break
			}
			r.metrics.ReceiveErrors.Inc()
			r.log.Error("Transport error receiving message: %v", err)
			continue
		}
		if !ok {
			continue
		}
		r.accept(msg, port)
	}

	r.phase.Store(int32(StateDraining))
	r.log.Info("Receiver stopping due to shutdown signal")
	r.log.Info("Closing receiver socket: %s (TCP port %s)", r.bound, port)
	if err := sock.Close(); err != nil {
		r.log.Debug("Receiver socket close: %v", err)
	}
	r.phase.Store(int32(StateClosed))
	r.log.Info("Receiver socket on TCP port %s closed gracefully - processed %d messages", port, r.Count())
	return nil
}

// accept sequences msg and enqueues it. A full queue blocks the receiver
// until room appears or shutdown is requested.
func (r *Receiver) accept(msg, port string) {
	id := r.counter.Add(1)
	r.metrics.MessagesReceived.Inc()
	r.log.Info("[MSG #%03d] ZMQ [%s] -> [Server:*:%s] | %s | %s",
		id, pushpull.AlignedProducer(msg), port, pushpull.AlignedTask(msg), msg)

	for {
		if r.state.IsShutdown() {
			r.metrics.MessagesDropped.Inc()
			r.log.Warn("[MSG #%03d] not queued, shutdown in progress", id)
			return
		}
		err := r.queue.Put(msg, r.putTimeout)
		if err == nil {
			r.metrics.QueueDepth.Set(float64(r.queue.Len()))
			return
		}
		r.metrics.QueueFullRetries.Inc()
		r.log.Debug("Queue full (%d/%d), retrying [MSG #%03d]", r.queue.Len(), r.queue.Cap(), id)
	}
}
