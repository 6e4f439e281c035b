// Copyright 2025 The go-zeromq Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package receiver

import (
	"strconv"
	"sync/atomic"
	"time"

	"github.com/destiny/pushpull"
)

// Stats summarises a processor run.
type Stats struct {
	Processed int
	Drained   int
}

// Processor is the single consumer of the queue.
type Processor struct {
	queue   *pushpull.Queue
	state   *pushpull.RunState
	log     *pushpull.Logger
	metrics *Metrics

	port         string
	getTimeout   time.Duration
	work         time.Duration
	drainWait    time.Duration
	onProcess    func(msg string, drained bool)
	producerDone <-chan struct{}

	processed atomic.Int64
	drained   atomic.Int64
}

// NewProcessor creates the queue processor. producerDone, when non-nil, is
// awaited (up to cfg.DrainWait) before the drain pass so nothing enqueued by
// a late producer is missed.
func NewProcessor(cfg *Config, queue *pushpull.Queue, state *pushpull.RunState, producerDone <-chan struct{}, log *pushpull.Logger, metrics *Metrics) *Processor {
	if log == nil {
		log = pushpull.DefaultLogger
	}
	if metrics == nil {
		metrics = NewMetrics(nil, pushpull.MetricsNamespace)
	}
	return &Processor{
		queue:        queue,
		state:        state,
		log:          log,
		metrics:      metrics,
		port:         strconv.Itoa(cfg.Port),
		getTimeout:   cfg.GetTimeout,
		work:         cfg.WorkDuration,
		drainWait:    cfg.DrainWait,
		onProcess:    cfg.OnProcess,
		producerDone: producerDone,
	}
}

// Processed returns the number of messages processed so far.
func (p *Processor) Processed() int { return int(p.processed.Load()) }

// Drained returns the number of messages logged by the drain pass.
func (p *Processor) Drained() int { return int(p.drained.Load()) }

// Run consumes the queue until shutdown, then drains what is left.
func (p *Processor) Run() Stats {
	var carry []string
	for !p.state.IsShutdown() {
		msg, ok := p.queue.Get(p.getTimeout)
		if !ok {
			continue
		}
		if p.state.IsShutdown() {
			// dequeued while shutting down: it is the oldest item, drain it first
			carry = append(carry, msg)
			break
		}
		p.process(msg)
	}

	if p.producerDone != nil {
		select {
		case <-p.producerDone:
		case <-time.After(p.drainWait):
			p.log.Warn("Receiver still running after %v, draining anyway", p.drainWait)
		}
	}

	remaining := append(carry, p.queue.Drain()...)
	p.metrics.QueueDepth.Set(0)
	for _, msg := range remaining {
		p.log.Info("[CLEANUP] Server:%s | Processing remaining: %s", p.port, msg)
		p.drained.Add(1)
		p.metrics.MessagesDrained.Inc()
		if p.onProcess != nil {
			p.onProcess(msg, true)
		}
	}
	if len(remaining) > 0 {
		p.log.Info("Processed %d remaining messages during shutdown", len(remaining))
	}
	p.log.Info("Queue processor shutting down gracefully")

	return Stats{Processed: p.Processed(), Drained: p.Drained()}
}

func (p *Processor) process(msg string) {
	start := time.Now()
	p.log.Info("[PROC] Server:%s | %s | %s | Processing: %s",
		p.port, pushpull.AlignedProducer(msg), pushpull.AlignedTask(msg), msg)
	if p.work > 0 {
		time.Sleep(p.work)
	}
	p.processed.Add(1)
	p.metrics.MessagesProcessed.Inc()
	p.metrics.ProcessDuration.Observe(time.Since(start).Seconds())
	p.metrics.QueueDepth.Set(float64(p.queue.Len()))
	if p.onProcess != nil {
		p.onProcess(msg, false)
	}
}
