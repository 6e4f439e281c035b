// Copyright 2025 The go-zeromq Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package receiver

import (
	"fmt"
	"time"

	"github.com/destiny/pushpull"
)

// Config configures the receiving side.
type Config struct {
	Host          string        `yaml:"host"`
	Port          int           `yaml:"port"`
	QueueCapacity int           `yaml:"queue_capacity"`
	PollTimeout   time.Duration `yaml:"poll_timeout"`  // bounded receive window
	PutTimeout    time.Duration `yaml:"put_timeout"`   // enqueue retry window on a full queue
	GetTimeout    time.Duration `yaml:"get_timeout"`   // dequeue poll window
	WorkDuration  time.Duration `yaml:"work_duration"` // simulated processing time
	Linger        time.Duration `yaml:"linger"`
	JoinTimeout   time.Duration `yaml:"join_timeout"`
	DrainWait     time.Duration `yaml:"drain_wait"` // how long the drain pass waits for the receiver to stop

	Codec pushpull.Codec `yaml:"-"`

	// OnProcess, when set, is called for every processed (drained=false) or
	// drained (drained=true) message.
	OnProcess func(msg string, drained bool) `yaml:"-"`
}

// DefaultConfig returns the default receiver configuration.
func DefaultConfig() *Config {
	return &Config{
		Host:          "*",
		Port:          5560,
		QueueCapacity: pushpull.DefaultQueueCapacity,
		PollTimeout:   100 * time.Millisecond,
		PutTimeout:    100 * time.Millisecond,
		GetTimeout:    500 * time.Millisecond,
		WorkDuration:  100 * time.Millisecond,
		Linger:        time.Second,
		JoinTimeout:   3 * time.Second,
		DrainWait:     time.Second,
		Codec:         pushpull.UTF8,
	}
}

// Endpoint returns the bind endpoint.
func (c *Config) Endpoint() string {
	return pushpull.BindEndpoint(c.Host, c.Port)
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	switch {
	case c.Port < 0 || c.Port > 65535:
		return fmt.Errorf("receiver: port %d out of range", c.Port)
	case c.QueueCapacity <= 0:
		return fmt.Errorf("receiver: queue capacity must be positive, got %d", c.QueueCapacity)
	case c.PollTimeout <= 0 || c.GetTimeout <= 0 || c.PutTimeout <= 0:
		return fmt.Errorf("receiver: poll, get and put timeouts must be positive")
	case c.WorkDuration < 0:
		return fmt.Errorf("receiver: work duration must not be negative")
	}
	return nil
}
