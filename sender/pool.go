// Copyright 2025 The go-zeromq Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package sender

import (
	"sync"
	"sync/atomic"

	"golang.org/x/time/rate"

	"github.com/destiny/pushpull"
)

// Pool runs the sender workers as tracked goroutines of a coordinator.
type Pool struct {
	workers []*Worker
	coord   *pushpull.Coordinator
	log     *pushpull.Logger

	running  atomic.Int32
	finished chan struct{}

	mu      sync.Mutex
	results map[string]WorkerResult
}

// NewPool creates cfg.Workers workers sharing transport and, when
// cfg.RateLimit is set, one aggregate rate limiter.
func NewPool(cfg *Config, transport *pushpull.Context, state *pushpull.RunState, coord *pushpull.Coordinator, log *pushpull.Logger, metrics *Metrics) *Pool {
	if log == nil {
		log = pushpull.DefaultLogger
	}
	var limiter *rate.Limiter
	if cfg.RateLimit > 0 {
		burst := cfg.RateBurst
		if burst <= 0 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), burst)
	}

	p := &Pool{
		coord:    coord,
		log:      log,
		finished: make(chan struct{}),
		results:  make(map[string]WorkerResult, cfg.Workers),
	}
	for i := 1; i <= cfg.Workers; i++ {
		p.workers = append(p.workers, NewWorker(i, cfg, transport, state, limiter, log, metrics))
	}
	return p
}

// Start launches every worker.
func (p *Pool) Start() {
	p.log.Info("Creating %d worker goroutines", len(p.workers))
	p.running.Store(int32(len(p.workers)))
	if len(p.workers) == 0 {
		close(p.finished)
	}
	for _, w := range p.workers {
		w := w
		p.coord.Go(w.Name(), func() error {
			defer func() {
				if p.running.Add(-1) == 0 {
					close(p.finished)
				}
			}()
			res := w.Run()
			p.mu.Lock()
			p.results[res.Name] = res
			p.mu.Unlock()
			return nil
		})
		p.log.Info("Started worker %s", w.Name())
	}
}

// Wait blocks until every started worker returned or stop is closed. It
// reports whether all workers finished. Start must be called first.
func (p *Pool) Wait(stop <-chan struct{}) bool {
	select {
	case <-p.finished:
		return true
	case <-stop:
		return false
	}
}

// Names returns the worker names in start order.
func (p *Pool) Names() []string {
	names := make([]string, len(p.workers))
	for i, w := range p.workers {
		names[i] = w.Name()
	}
	return names
}

// Results returns the results of the workers that finished, in start order.
func (p *Pool) Results() []WorkerResult {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]WorkerResult, 0, len(p.results))
	for _, w := range p.workers {
		if res, ok := p.results[w.Name()]; ok {
			out = append(out, res)
		}
	}
	return out
}
