// Copyright 2025 The go-zeromq Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package pushpull

import (
	"context"
	"sync"
	"sync/atomic"
	"time"
)

// Reason records why shutdown was requested.
type Reason int32

const (
	ReasonNone      Reason = iota
	ReasonCompleted        // work finished, main path winding down
	ReasonInterrupt        // SIGINT
	ReasonPeerDown         // receiver unreachable or unresponsive
	ReasonFatal            // local setup failure
)

func (r Reason) String() string {
	switch r {
	case ReasonNone:
		return "none"
	case ReasonCompleted:
		return "completed"
	case ReasonInterrupt:
		return "user request"
	case ReasonPeerDown:
		return "server unavailable"
	case ReasonFatal:
		return "fatal error"
	default:
		return "unknown"
	}
}

// Failed reports whether the reason maps to a non-zero exit status.
func (r Reason) Failed() bool {
	return r == ReasonPeerDown || r == ReasonFatal
}

// RunState carries the two process-wide signals: the shutdown flag, which is
// never cleared once set, and the server availability flag.
type RunState struct {
	done   chan struct{}
	once   sync.Once
	reason atomic.Int32

	available atomic.Bool

	ctx    context.Context
	cancel context.CancelFunc
}

// NewRunState returns a running state with the server assumed available.
func NewRunState() *RunState {
	ctx, cancel := context.WithCancel(context.Background())
	s := &RunState{
		done:   make(chan struct{}),
		ctx:    ctx,
		cancel: cancel,
	}
	s.available.Store(true)
	return s
}

// Shutdown sets the shutdown flag. Only the first call records its reason;
// it reports whether this call was the one that set the flag.
func (s *RunState) Shutdown(reason Reason) bool {
	set := false
	s.once.Do(func() {
		s.reason.Store(int32(reason))
		close(s.done)
		s.cancel()
		set = true
	})
	return set
}

// Interrupt handles an operator interrupt: clears availability and shuts down.
func (s *RunState) Interrupt() bool {
	s.available.Store(false)
	return s.Shutdown(ReasonInterrupt)
}

// MarkPeerDown escalates a peer failure to a process-wide shutdown.
func (s *RunState) MarkPeerDown() bool {
	s.available.Store(false)
	return s.Shutdown(ReasonPeerDown)
}

// IsShutdown reports whether shutdown was requested.
func (s *RunState) IsShutdown() bool {
	select {
	case <-s.done:
		return true
	default:
		return false
	}
}

// Done is closed when shutdown is requested.
func (s *RunState) Done() <-chan struct{} { return s.done }

// Context is cancelled when shutdown is requested.
func (s *RunState) Context() context.Context { return s.ctx }

// Reason returns why shutdown was requested, ReasonNone while running.
func (s *RunState) Reason() Reason { return Reason(s.reason.Load()) }

// Available reports the server availability flag.
func (s *RunState) Available() bool { return s.available.Load() }

// SetAvailable sets the availability flag and reports whether it changed.
func (s *RunState) SetAvailable(v bool) bool {
	return s.available.Swap(v) != v
}

// Running reports whether new work may be issued: no shutdown and the
// server available.
func (s *RunState) Running() bool {
	return !s.IsShutdown() && s.Available()
}

// Sleep waits for d unless shutdown is requested first. It returns false when
// the sleep was cut short by shutdown.
func (s *RunState) Sleep(d time.Duration) bool {
	if d <= 0 {
		return !s.IsShutdown()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return !s.IsShutdown()
	case <-s.done:
		return false
	}
}
