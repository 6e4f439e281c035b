// Copyright 2025 The go-zeromq Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package pushpull

import (
	"fmt"
	"os"
	"os/signal"
	"runtime/debug"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

// DefaultJoinTimeout bounds the wait for each tracked goroutine at shutdown.
const DefaultJoinTimeout = 2 * time.Second

// NotifyInterrupt turns SIGINT into state.Interrupt. The returned stop
// function detaches the handler and waits for its goroutine to exit.
func NotifyInterrupt(state *RunState, log *Logger) (stop func()) {
	if log == nil {
		log = DefaultLogger
	}
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt)

	quit := make(chan struct{})
	done := make(chan struct{})
	go func() {
		defer close(done)
		select {
		case <-sigCh:
			log.Info("Ctrl+C received! Initiating graceful shutdown...")
			state.Interrupt()
		case <-quit:
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() {
			signal.Stop(sigCh)
			close(quit)
			<-done
		})
	}
}

type task struct {
	name   string
	done   chan struct{}
	joined bool
}

// Coordinator tracks the goroutines of a process and runs the shutdown
// protocol: bounded joins, straggler reporting, then forced cleanup of
// sockets and the shared transport context.
type Coordinator struct {
	state     *RunState
	transport *Context
	registry  *Registry
	log       *Logger

	// CloseGrace is how long owners get to release their sockets during Cleanup.
	CloseGrace time.Duration

	group errgroup.Group

	mu    sync.Mutex
	tasks []*task

	cleanupOnce sync.Once
}

// NewCoordinator creates a coordinator. transport and registry may be nil.
func NewCoordinator(state *RunState, transport *Context, registry *Registry, log *Logger) *Coordinator {
	if log == nil {
		log = DefaultLogger
	}
	return &Coordinator{
		state:      state,
		transport:  transport,
		registry:   registry,
		log:        log,
		CloseGrace: 200 * time.Millisecond,
	}
}

// Go runs fn in a tracked goroutine named name. A panic in fn is logged and
// escalated to a fatal shutdown.
func (c *Coordinator) Go(name string, fn func() error) {
	t := &task{name: name, done: make(chan struct{})}
	c.mu.Lock()
	c.tasks = append(c.tasks, t)
	c.mu.Unlock()

	c.group.Go(func() (err error) {
		defer close(t.done)
		defer func() {
			if r := recover(); r != nil {
				c.log.Error("%s panicked: %v\n%s", name, r, debug.Stack())
				c.state.Shutdown(ReasonFatal)
				err = fmt.Errorf("pushpull: %s panicked: %v", name, r)
			}
		}()
		return fn()
	})
}

// Join waits for the named goroutines (all not yet joined ones when names is
// empty), giving each up to timeout. Goroutines still alive are logged, the
// shutdown flag is set so they observe it at their next poll point, and they
// get a second timeout. It returns the names that never finished.
func (c *Coordinator) Join(timeout time.Duration, names ...string) []string {
	if timeout <= 0 {
		timeout = DefaultJoinTimeout
	}
	targets := c.pick(names)

	var alive []*task
	for _, t := range targets {
		if waitDone(t.done, timeout) {
			c.log.Info("%s terminated gracefully", t.name)
		} else {
			c.log.Warn("%s still alive after %v timeout", t.name, timeout)
			alive = append(alive, t)
		}
	}

	var stragglers []string
	if len(alive) > 0 {
		c.log.Warn("%d goroutines still running. Signaling shutdown and waiting...", len(alive))
		c.state.Shutdown(ReasonCompleted)
		for _, t := range alive {
			if waitDone(t.done, timeout) {
				c.log.Info("%s completed after shutdown signal", t.name)
			} else {
				c.log.Error("%s failed to shutdown gracefully", t.name)
				stragglers = append(stragglers, t.name)
			}
		}
	}

	c.mu.Lock()
	for _, t := range targets {
		t.joined = true
	}
	c.mu.Unlock()
	return stragglers
}

func (c *Coordinator) pick(names []string) []*task {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []*task
	if len(names) == 0 {
		for _, t := range c.tasks {
			if !t.joined {
				out = append(out, t)
			}
		}
		return out
	}
	want := make(map[string]struct{}, len(names))
	for _, n := range names {
		want[n] = struct{}{}
	}
	for _, t := range c.tasks {
		if _, ok := want[t.name]; ok {
			out = append(out, t)
		}
	}
	return out
}

// Err returns the first error returned by a tracked goroutine. It must only
// be called once Join reported no stragglers.
func (c *Coordinator) Err() error {
	return c.group.Wait()
}

// Alive returns the names of tracked goroutines that have not finished.
func (c *Coordinator) Alive() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []string
	for _, t := range c.tasks {
		select {
		case <-t.done:
		default:
			out = append(out, t.name)
		}
	}
	return out
}

// Cleanup force-closes every socket left in the registry, then terminates the
// shared transport context. It is idempotent and never fails.
func (c *Coordinator) Cleanup() {
	c.cleanupOnce.Do(func() {
		c.log.Info("Starting socket cleanup process...")
		if c.registry != nil {
			c.registry.CloseAll(c.CloseGrace)
		}
		if c.transport != nil {
			if err := c.transport.Term(); err != nil {
				c.log.Error("Error terminating transport context: %v", err)
			} else {
				c.log.Info("Transport context terminated")
			}
		} else {
			c.log.Info("No transport context to clean up")
		}
	})
}

func waitDone(done <-chan struct{}, timeout time.Duration) bool {
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case <-done:
		return true
	case <-timer.C:
		return false
	}
}
