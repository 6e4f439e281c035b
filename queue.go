// Copyright 2025 The go-zeromq Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package pushpull

import (
	"errors"
	"time"
)

// DefaultQueueCapacity is the capacity used when none is configured.
const DefaultQueueCapacity = 100

// ErrQueueFull reports a Put that timed out on a full queue. It is a normal
// polling outcome, not a failure.
var ErrQueueFull = errors.New("pushpull: queue full")

// Queue is a bounded FIFO of pending messages shared by the receiver
// (producer) and the queue processor (single consumer).
type Queue struct {
	items chan string
}

// NewQueue creates a queue holding at most capacity messages.
func NewQueue(capacity int) *Queue {
	if capacity <= 0 {
		capacity = DefaultQueueCapacity
	}
	return &Queue{items: make(chan string, capacity)}
}

// Put enqueues msg, waiting up to timeout for room.
func (q *Queue) Put(msg string, timeout time.Duration) error {
	select {
	case q.items <- msg:
		return nil
	default:
	}
	if timeout <= 0 {
		return ErrQueueFull
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case q.items <- msg:
		return nil
	case <-timer.C:
		return ErrQueueFull
	}
}

// Get dequeues the oldest message, waiting up to timeout.
func (q *Queue) Get(timeout time.Duration) (string, bool) {
	select {
	case msg := <-q.items:
		return msg, true
	default:
	}
	if timeout <= 0 {
		return "", false
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case msg := <-q.items:
		return msg, true
	case <-timer.C:
		return "", false
	}
}

// Len returns the number of queued messages.
func (q *Queue) Len() int { return len(q.items) }

// Cap returns the queue capacity.
func (q *Queue) Cap() int { return cap(q.items) }

// Drain removes and returns every queued message without waiting.
func (q *Queue) Drain() []string {
	var out []string
	for {
		select {
		case msg := <-q.items:
			out = append(out, msg)
		default:
			return out
		}
	}
}
