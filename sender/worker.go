// Copyright 2025 The go-zeromq Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package sender implements the PUSH side of the relay: a pool of workers
// that connect to the receiver and send numbered tasks, and a liveness
// monitor that aborts the run as soon as the receiver stops answering.
package sender

import (
	"errors"
	"fmt"
	"os"
	"time"

	"golang.org/x/time/rate"

	"github.com/destiny/pushpull"
)

// Outcome is the reason a worker stopped.
type Outcome string

const (
	OutcomeCompleted         Outcome = "completed"
	OutcomeShutdown          Outcome = "shutdown"
	OutcomeServerUnavailable Outcome = "server_unavailable"
	OutcomeConnectFailed     Outcome = "connect_failed"
	OutcomeServerTimeout     Outcome = "server_timeout"
	OutcomeTransportError    Outcome = "transport_error"
	OutcomeRuntimeExceeded   Outcome = "runtime_exceeded"
	OutcomeContextTerminated Outcome = "context_terminated"
)

// Graceful reports whether the outcome is a normal stop rather than a failure.
func (o Outcome) Graceful() bool {
	switch o {
	case OutcomeCompleted, OutcomeShutdown, OutcomeServerUnavailable, OutcomeContextTerminated:
		return true
	}
	return false
}

// WorkerResult reports how a worker run ended.
type WorkerResult struct {
	Name    string
	Sent    int
	Outcome Outcome
	Err     error
}

// Worker sends MessagesPerWorker task messages over its own PUSH socket.
type Worker struct {
	id   int
	name string
	pid  int

	cfg       *Config
	transport *pushpull.Context
	state     *pushpull.RunState
	limiter   *rate.Limiter
	log       *pushpull.Logger
	metrics   *Metrics
}

// NewWorker creates worker number id (1-based), named "Pusher-<id>".
// limiter may be nil.
func NewWorker(id int, cfg *Config, transport *pushpull.Context, state *pushpull.RunState, limiter *rate.Limiter, log *pushpull.Logger, metrics *Metrics) *Worker {
	if log == nil {
		log = pushpull.DefaultLogger
	}
	if metrics == nil {
		metrics = NewMetrics(nil, pushpull.MetricsNamespace)
	}
	return &Worker{
		id:        id,
		name:      fmt.Sprintf("Pusher-%d", id),
		pid:       os.Getpid(),
		cfg:       cfg,
		transport: transport,
		state:     state,
		limiter:   limiter,
		log:       log,
		metrics:   metrics,
	}
}

// Name returns the worker identity.
func (w *Worker) Name() string { return w.name }

// Run connects, sends the configured tasks and always releases its socket.
func (w *Worker) Run() (res WorkerResult) {
	res.Name = w.name
	start := time.Now()

	w.metrics.ActiveWorkers.Inc()
	defer func() {
		w.metrics.ActiveWorkers.Dec()
		w.metrics.WorkerOutcomes.WithLabelValues(string(res.Outcome)).Inc()
		w.log.Info("%s worker terminated (%s, %d sent)", w.name, res.Outcome, res.Sent)
	}()

	sock, outcome, err := w.connect()
	if sock == nil {
		res.Outcome, res.Err = outcome, err
		return res
	}
	defer w.release(sock)

	if !w.state.Running() {
		w.log.Warn("%s aborting - %s", w.name, w.stopCause())
		res.Outcome = w.stopOutcome()
		return res
	}

	for i := 0; i < w.cfg.MessagesPerWorker; i++ {
		if !w.state.Running() {
			w.log.Info("%s shutdown detected before task %d", w.name, i)
			res.Outcome = w.stopOutcome()
			return res
		}
		if w.cfg.MaxRuntime > 0 && time.Since(start) > w.cfg.MaxRuntime {
			w.log.Warn("%s reached maximum runtime limit (%v) at task %d", w.name, w.cfg.MaxRuntime, i)
			res.Outcome = OutcomeRuntimeExceeded
			return res
		}
		if w.limiter != nil {
			if err := w.limiter.Wait(w.state.Context()); err != nil {
				w.log.Info("%s shutdown detected while rate limited at task %d", w.name, i)
				res.Outcome = w.stopOutcome()
				return res
			}
		}

		outcome, err := w.send(sock, i)
		if err != nil {
			if outcome.Graceful() {
				w.log.Info("%s stopping at task %d - %s", w.name, i, outcome)
			} else {
				w.log.Error("%s stopping at task %d - %s", w.name, i, outcome)
			}
			if !errors.Is(err, errStopped) {
				res.Err = err
			}
			res.Outcome = outcome
			return res
		}
		res.Sent++

		if w.state.IsShutdown() {
			w.log.Info("%s shutdown detected after sending task %d", w.name, i)
			res.Outcome = w.stopOutcome()
			return res
		}
		if !w.state.Sleep(w.cfg.MessageDelay) {
			w.log.Info("%s received shutdown signal during sleep after task %d", w.name, i)
			res.Outcome = w.stopOutcome()
			return res
		}
	}

	w.log.Info("%s completed all %d tasks successfully", w.name, w.cfg.MessagesPerWorker)
	res.Outcome = OutcomeCompleted
	return res
}

// connect opens the PUSH socket, retrying up to ConnectRetryAttempts times.
// Exhausting the attempts marks the receiver down for the whole process.
func (w *Worker) connect() (*pushpull.Socket, Outcome, error) {
	endpoint := w.cfg.Endpoint()
	var err error
	for attempt := 1; attempt <= w.cfg.ConnectRetryAttempts; attempt++ {
		if w.state.IsShutdown() {
			return nil, w.stopOutcome(), nil
		}

		var sock *pushpull.Socket
		sock, err = w.transport.Connect(w.name, endpoint,
			pushpull.WithTimeout(w.cfg.ServerTimeout),
			pushpull.WithDialTimeout(w.cfg.ServerTimeout),
			pushpull.WithLinger(w.cfg.Linger),
		)
		if err == nil {
			w.log.Info("%s connected to server (attempt %d)", w.name, attempt)
			return sock, "", nil
		}
		if errors.Is(err, pushpull.ErrContextTerminated) {
			return nil, OutcomeContextTerminated, err
		}

		w.metrics.ConnectFailures.Inc()
		if attempt < w.cfg.ConnectRetryAttempts {
			w.log.Warn("%s connection attempt %d failed, retrying...", w.name, attempt)
			if !w.state.Sleep(w.cfg.ConnectRetryInterval) {
				return nil, w.stopOutcome(), nil
			}
		}
	}

	w.log.Error("%s failed to connect after %d attempts: %v", w.name, w.cfg.ConnectRetryAttempts, err)
	w.log.Error("%s triggering shutdown due to connection failure", w.name)
	w.state.MarkPeerDown()
	return nil, OutcomeConnectFailed, err
}

// messageSender is the part of a PUSH socket the send loop uses.
type messageSender interface {
	Send(msg string) error
}

// send delivers task n, retrying timeouts. A nil error means the message was
// handed to the transport.
func (w *Worker) send(sock messageSender, n int) (Outcome, error) {
	msg := pushpull.FormatTask(w.name, w.pid, w.id, n)
	failures := 0
	for {
		if !w.state.Running() {
			return w.stopOutcome(), errStopped
		}

		start := time.Now()
		err := sock.Send(msg)
		switch {
		case err == nil:
			w.metrics.MessagesSent.Inc()
			w.log.Info("%s sent: %s (send_time: %.3fs)", w.name, msg, time.Since(start).Seconds())
			return "", nil

		case errors.Is(err, pushpull.ErrContextTerminated), errors.Is(err, pushpull.ErrClosed):
			w.log.Debug("%s socket released during send (task %d)", w.name, n)
			return OutcomeContextTerminated, err

		case pushpull.IsTimeout(err):
			failures++
			w.metrics.SendTimeouts.Inc()
			w.log.Warn("%s - Send timeout for message %d (failure #%d)", w.name, n, failures)
			if failures >= w.cfg.MaxFailures {
				w.log.Error("%s - Server unresponsive after %d failures, triggering shutdown", w.name, failures)
				w.state.MarkPeerDown()
				return OutcomeServerTimeout, err
			}
			if !w.state.Sleep(w.cfg.RetryPause) {
				return w.stopOutcome(), errStopped
			}

		default:
			w.metrics.SendErrors.Inc()
			w.log.Error("%s - Transport error sending message %d: %v", w.name, n, err)
			w.state.MarkPeerDown()
			return OutcomeTransportError, err
		}
	}
}

var errStopped = errors.New("sender: stopped by shutdown")

func (w *Worker) release(sock *pushpull.Socket) {
	sock.SetLinger(0)
	if err := sock.Close(); err != nil {
		w.log.Error("%s - Error during socket cleanup: %v", w.name, err)
		return
	}
	w.log.Debug("%s socket cleanup completed", w.name)
}

func (w *Worker) stopOutcome() Outcome {
	if !w.state.Available() {
		return OutcomeServerUnavailable
	}
	return OutcomeShutdown
}

func (w *Worker) stopCause() string {
	if !w.state.Available() {
		return "server is not available"
	}
	return "shutdown already signaled"
}
