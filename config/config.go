// Copyright 2025 The go-zeromq Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package config loads the configuration of the relay programs.
//
// Sources are applied in order, later ones overriding earlier ones:
//  1. built-in defaults
//  2. an optional YAML file
//  3. an optional .env file (existing environment variables win)
//  4. PUSHPULL_* environment variables
//
// Command-line flags are applied by the programs on top of the result.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/destiny/pushpull"
	"github.com/destiny/pushpull/receiver"
	"github.com/destiny/pushpull/sender"
)

// EnvPrefix prefixes every environment variable read by Load.
const EnvPrefix = "PUSHPULL_"

// LogConfig configures program logging.
type LogConfig struct {
	Level  string `yaml:"level"`
	File   bool   `yaml:"file"`
	Dir    string `yaml:"dir"`
	Prefix string `yaml:"prefix"`
}

// Config is the configuration of both relay programs.
type Config struct {
	Encoding    string           `yaml:"encoding"`
	MetricsAddr string           `yaml:"metrics_addr"`
	Log         LogConfig        `yaml:"log"`
	Receiver    *receiver.Config `yaml:"receiver"`
	Sender      *sender.Config   `yaml:"sender"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Encoding: "utf-8",
		Log: LogConfig{
			Level: "info",
			File:  true,
			Dir:   "logs",
		},
		Receiver: receiver.DefaultConfig(),
		Sender:   sender.DefaultConfig(),
	}
}

// Options tunes Load.
type Options struct {
	// Path is the YAML file to read. Empty skips it.
	Path string
	// EnvFile is the dotenv file to read. Empty means ".env"; a missing
	// file is not an error.
	EnvFile string
}

// Load builds the configuration from defaults, the YAML file, the .env file
// and the environment, then validates it.
func Load(opts Options) (*Config, error) {
	cfg := Default()

	if opts.Path != "" {
		if err := cfg.readFile(opts.Path); err != nil {
			return nil, err
		}
	}

	envFile := opts.EnvFile
	if envFile == "" {
		envFile = ".env"
	}
	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("config: could not load %s: %w", envFile, err)
	}

	if err := cfg.loadEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) readFile(path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("config: could not read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(raw, c); err != nil {
		return fmt.Errorf("config: could not parse %s: %w", path, err)
	}
	if c.Receiver == nil {
		c.Receiver = receiver.DefaultConfig()
	}
	if c.Sender == nil {
		c.Sender = sender.DefaultConfig()
	}
	return nil
}

func (c *Config) loadEnv() error {
	r, s := c.Receiver, c.Sender
	var errs []error
	check := func(err error) {
		if err != nil {
			errs = append(errs, err)
		}
	}

	check(loadEnvString(&c.Encoding, "ENCODING", c.Encoding))
	check(loadEnvString(&c.MetricsAddr, "METRICS_ADDR", c.MetricsAddr))
	check(loadEnvString(&c.Log.Level, "LOG_LEVEL", c.Log.Level))
	check(loadEnvBool(&c.Log.File, "LOG_FILE", c.Log.File))
	check(loadEnvString(&c.Log.Dir, "LOG_DIR", c.Log.Dir))

	// Receiver
	check(loadEnvString(&r.Host, "RECEIVER_HOST", r.Host))
	check(loadEnvInt(&r.Port, "RECEIVER_PORT", r.Port))
	check(loadEnvInt(&r.QueueCapacity, "QUEUE_CAPACITY", r.QueueCapacity))
	check(loadEnvDuration(&r.WorkDuration, "WORK_DURATION", r.WorkDuration))
	check(loadEnvDuration(&r.JoinTimeout, "RECEIVER_JOIN_TIMEOUT", r.JoinTimeout))

	// Sender
	check(loadEnvString(&s.Host, "SENDER_HOST", s.Host))
	check(loadEnvInt(&s.Port, "SENDER_PORT", s.Port))
	check(loadEnvInt(&s.Workers, "WORKERS", s.Workers))
	check(loadEnvInt(&s.MessagesPerWorker, "MESSAGES_PER_WORKER", s.MessagesPerWorker))
	check(loadEnvDuration(&s.MessageDelay, "MESSAGE_DELAY", s.MessageDelay))
	check(loadEnvDuration(&s.ServerTimeout, "SERVER_TIMEOUT", s.ServerTimeout))
	check(loadEnvInt(&s.ConnectRetryAttempts, "CONNECT_RETRY_ATTEMPTS", s.ConnectRetryAttempts))
	check(loadEnvDuration(&s.HeartbeatInterval, "HEARTBEAT_INTERVAL", s.HeartbeatInterval))
	check(loadEnvDuration(&s.MaxRuntime, "MAX_RUNTIME", s.MaxRuntime))
	check(loadEnvBool(&s.DisableMonitor, "DISABLE_MONITOR", s.DisableMonitor))
	check(loadEnvFloat(&s.RateLimit, "RATE_LIMIT", s.RateLimit))
	check(loadEnvInt(&s.RateBurst, "RATE_BURST", s.RateBurst))

	return errors.Join(errs...)
}

// Validate checks the configuration, reporting every problem found, and
// resolves the encoding into the receiver and sender codecs.
func (c *Config) Validate() error {
	var errs []error

	codec, err := pushpull.CodecByName(c.Encoding)
	if err != nil {
		errs = append(errs, fmt.Errorf("config: %w", err))
	} else {
		c.Receiver.Codec = codec
		c.Sender.Codec = codec
	}
	if _, err := pushpull.ParseLogLevel(c.Log.Level); err != nil {
		errs = append(errs, fmt.Errorf("config: %w", err))
	}
	if err := c.Receiver.Validate(); err != nil {
		errs = append(errs, err)
	}
	if err := c.Sender.Validate(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// LogLevel returns the parsed log level, info when it cannot be parsed.
func (c *Config) LogLevel() pushpull.LogLevel {
	level, _ := pushpull.ParseLogLevel(c.Log.Level)
	return level
}

// RunLogOptions returns the logger options for the program named prefix.
func (c *Config) RunLogOptions(prefix string) pushpull.RunLogOptions {
	if c.Log.Prefix != "" {
		prefix = c.Log.Prefix
	}
	return pushpull.RunLogOptions{
		Level:  c.LogLevel(),
		File:   c.Log.File,
		Dir:    c.Log.Dir,
		Prefix: strings.TrimSpace(prefix),
	}
}
