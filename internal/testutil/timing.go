// Copyright 2025 The go-zeromq Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package testutil

import (
	"bytes"
	"context"
	"strings"
	"sync"
	"testing"
	"time"
)

// MessageTracker records messages seen by a relay stage, in arrival order
type MessageTracker struct {
	mu      sync.RWMutex
	seen    map[string]int
	order   []string
	drained int
	notify  chan struct{}
}

// NewMessageTracker creates a new message tracker
func NewMessageTracker() *MessageTracker {
	return &MessageTracker{
		seen:   make(map[string]int),
		notify: make(chan struct{}, 1),
	}
}

// Record marks msg as seen. The signature matches the processor hook.
func (mt *MessageTracker) Record(msg string, drained bool) {
	mt.mu.Lock()
	mt.seen[msg]++
	mt.order = append(mt.order, msg)
	if drained {
		mt.drained++
	}
	mt.mu.Unlock()

	select {
	case mt.notify <- struct{}{}:
	default:
	}
}

// Count returns the number of recorded messages, duplicates included
func (mt *MessageTracker) Count() int {
	mt.mu.RLock()
	defer mt.mu.RUnlock()
	return len(mt.order)
}

// Drained returns how many messages were recorded by a drain pass
func (mt *MessageTracker) Drained() int {
	mt.mu.RLock()
	defer mt.mu.RUnlock()
	return mt.drained
}

// Order returns a copy of the messages in arrival order
func (mt *MessageTracker) Order() []string {
	mt.mu.RLock()
	defer mt.mu.RUnlock()
	out := make([]string, len(mt.order))
	copy(out, mt.order)
	return out
}

// Duplicates returns the messages recorded more than once
func (mt *MessageTracker) Duplicates() []string {
	mt.mu.RLock()
	defer mt.mu.RUnlock()
	var out []string
	for msg, n := range mt.seen {
		if n > 1 {
			out = append(out, msg)
		}
	}
	return out
}

// WaitForCount waits until at least n messages were recorded
func (mt *MessageTracker) WaitForCount(n int, timeout time.Duration) bool {
	deadline := time.NewTimer(timeout)
	defer deadline.Stop()
	for {
		if mt.Count() >= n {
			return true
		}
		select {
		case <-mt.notify:
		case <-deadline.C:
			return mt.Count() >= n
		}
	}
}

// TestTimeoutContext creates a context with timeout for testing
func TestTimeoutContext(timeout time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), timeout)
}

// WaitWithTimeout waits for a condition with timeout
func WaitWithTimeout(t testing.TB, condition func() bool, timeout time.Duration, checkInterval time.Duration) {
	t.Helper()
	ctx, cancel := TestTimeoutContext(timeout)
	defer cancel()

	ticker := time.NewTicker(checkInterval)
	defer ticker.Stop()

	for {
		if condition() {
			return
		}
		select {
		case <-ctx.Done():
			t.Fatalf("Timeout waiting for condition after %v", timeout)
		case <-ticker.C:
		}
	}
}

// LogBuffer is a goroutine safe writer for capturing log output
type LogBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

// Write implements io.Writer
func (b *LogBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

// String returns everything written so far
func (b *LogBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

// Lines returns the captured lines containing substr
func (b *LogBuffer) Lines(substr string) []string {
	var out []string
	for _, line := range strings.Split(b.String(), "\n") {
		if line != "" && strings.Contains(line, substr) {
			out = append(out, line)
		}
	}
	return out
}

// Count returns how many captured lines contain substr
func (b *LogBuffer) Count(substr string) int {
	return len(b.Lines(substr))
}
