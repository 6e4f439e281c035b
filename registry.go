// Copyright 2025 The go-zeromq Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package pushpull

import (
	"sync"
	"time"
)

// Registry tracks open sockets so the shutdown path can close stragglers.
// It never performs I/O on a socket and does not own them.
type Registry struct {
	mu      sync.Mutex
	sockets []*Socket
	log     *Logger
}

// NewRegistry creates an empty registry.
func NewRegistry(log *Logger) *Registry {
	if log == nil {
		log = DefaultLogger
	}
	return &Registry{log: log}
}

func (r *Registry) add(s *Socket) {
	r.mu.Lock()
	r.sockets = append(r.sockets, s)
	r.mu.Unlock()
}

func (r *Registry) remove(s *Socket) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.sockets {
		if r.sockets[i] == s {
			r.sockets = append(r.sockets[:i], r.sockets[i+1:]...)
			return true
		}
	}
	return false
}

// Len returns the number of registered sockets.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sockets)
}

// Names returns the owner names of the registered sockets.
func (r *Registry) Names() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	names := make([]string, 0, len(r.sockets))
	for _, s := range r.sockets {
		names = append(names, s.Name())
	}
	return names
}

// CloseAll closes every registered socket. Each owner is first asked to
// release its socket and given grace to do so; sockets still open after that
// are closed here with zero linger. It returns how many sockets it closed
// itself. Errors are logged, never returned.
func (r *Registry) CloseAll(grace time.Duration) int {
	r.mu.Lock()
	pending := append([]*Socket(nil), r.sockets...)
	r.mu.Unlock()

	r.log.Info("Found %d sockets in active list", len(pending))
	if len(pending) == 0 {
		r.log.Info("All sockets were closed gracefully by their owners")
		return 0
	}

	for _, s := range pending {
		s.requestClose()
	}

	deadline := time.After(grace)
	forced := 0
	for i, s := range pending {
		select {
		case <-s.Done():
			continue
		case <-deadline:
		}
		// deadline already passed: later sockets are checked without waiting
		deadline = closedTimeChan
		select {
		case <-s.Done():
			continue
		default:
		}
		s.SetLinger(0)
		if err := s.Close(); err != nil {
			r.log.Error("Error force closing socket %d/%d (%s): %v", i+1, len(pending), s.Name(), err)
		}
		forced++
		r.log.Debug("Socket %d/%d (%s) force closed", i+1, len(pending), s.Name())
	}
	if forced > 0 {
		r.log.Warn("Force closed %d remaining sockets", forced)
	} else {
		r.log.Info("All sockets released by their owners")
	}
	return forced
}

var closedTimeChan = func() <-chan time.Time {
	c := make(chan time.Time)
	close(c)
	return c
}()
