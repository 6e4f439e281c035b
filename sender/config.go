// Copyright 2025 The go-zeromq Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package sender

import (
	"errors"
	"fmt"
	"time"

	"github.com/destiny/pushpull"
)

// Config configures the sending side.
type Config struct {
	Host                 string        `yaml:"host"`
	Port                 int           `yaml:"port"`
	Workers              int           `yaml:"workers"`
	MessagesPerWorker    int           `yaml:"messages_per_worker"`
	MessageDelay         time.Duration `yaml:"message_delay"`
	ServerTimeout        time.Duration `yaml:"server_timeout"` // send timeout of worker sockets
	ConnectRetryAttempts int           `yaml:"connect_retry_attempts"`
	ConnectRetryInterval time.Duration `yaml:"connect_retry_interval"`
	MaxFailures          int           `yaml:"max_failures"` // consecutive send timeouts before giving up
	RetryPause           time.Duration `yaml:"retry_pause"`
	MaxRuntime           time.Duration `yaml:"max_runtime"`
	Linger               time.Duration `yaml:"linger"`
	JoinTimeout          time.Duration `yaml:"join_timeout"`

	HeartbeatInterval   time.Duration `yaml:"heartbeat_interval"`
	HeartbeatTimeout    time.Duration `yaml:"heartbeat_timeout"`
	InitialProbeTimeout time.Duration `yaml:"initial_probe_timeout"`
	DisableMonitor      bool          `yaml:"disable_monitor"`
	DisableProbe        bool          `yaml:"disable_probe"`

	// RateLimit caps the aggregate send rate of the pool in messages per
	// second. Zero disables it.
	RateLimit float64 `yaml:"rate_limit"`
	RateBurst int     `yaml:"rate_burst"`

	Codec pushpull.Codec `yaml:"-"`
}

// DefaultConfig returns the default sender configuration.
func DefaultConfig() *Config {
	return &Config{
		Host:                 "localhost",
		Port:                 5560,
		Workers:              20,
		MessagesPerWorker:    10,
		MessageDelay:         500 * time.Millisecond,
		ServerTimeout:        3 * time.Second,
		ConnectRetryAttempts: 2,
		ConnectRetryInterval: time.Second,
		MaxFailures:          2,
		RetryPause:           500 * time.Millisecond,
		MaxRuntime:           30 * time.Second,
		Linger:               100 * time.Millisecond,
		JoinTimeout:          pushpull.DefaultJoinTimeout,
		HeartbeatInterval:    2 * time.Second,
		HeartbeatTimeout:     1500 * time.Millisecond,
		InitialProbeTimeout:  3 * time.Second,
		RateBurst:            1,
		Codec:                pushpull.UTF8,
	}
}

// Endpoint returns the endpoint workers connect to.
func (c *Config) Endpoint() string {
	return pushpull.ConnectEndpoint(c.Host, c.Port)
}

// Validate checks the configuration and reports every problem found.
func (c *Config) Validate() error {
	var errs []error
	if c.Port <= 0 || c.Port > 65535 {
		errs = append(errs, fmt.Errorf("sender: port %d out of range", c.Port))
	}
	if c.Workers <= 0 {
		errs = append(errs, fmt.Errorf("sender: workers must be positive, got %d", c.Workers))
	}
	if c.MessagesPerWorker < 0 {
		errs = append(errs, fmt.Errorf("sender: messages per worker must not be negative"))
	}
	if c.ServerTimeout <= 0 {
		errs = append(errs, fmt.Errorf("sender: server timeout must be positive"))
	}
	if c.ConnectRetryAttempts <= 0 {
		errs = append(errs, fmt.Errorf("sender: connect retry attempts must be positive"))
	}
	if c.MaxFailures <= 0 {
		errs = append(errs, fmt.Errorf("sender: max failures must be positive"))
	}
	if c.HeartbeatInterval <= 0 || c.HeartbeatTimeout <= 0 {
		errs = append(errs, fmt.Errorf("sender: heartbeat interval and timeout must be positive"))
	}
	if c.RateLimit < 0 {
		errs = append(errs, fmt.Errorf("sender: rate limit must not be negative"))
	}
	return errors.Join(errs...)
}
