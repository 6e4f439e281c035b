// Copyright 2025 The go-zeromq Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/destiny/pushpull"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(Options{EnvFile: filepath.Join(t.TempDir(), "missing.env")})
	require.NoError(t, err)

	assert.Equal(t, "utf-8", cfg.Encoding)
	assert.Equal(t, pushpull.UTF8, cfg.Receiver.Codec)
	assert.Equal(t, pushpull.UTF8, cfg.Sender.Codec)
	assert.Equal(t, 5560, cfg.Receiver.Port)
	assert.Equal(t, 20, cfg.Sender.Workers)
	assert.Equal(t, pushpull.LogLevelInfo, cfg.LogLevel())
	assert.Empty(t, cfg.MetricsAddr)
}

func TestLoadYAML(t *testing.T) {
	path := writeFile(t, "relay.yaml", `
encoding: latin-1
metrics_addr: 127.0.0.1:9100
log:
  level: debug
  file: false
receiver:
  port: 6000
  queue_capacity: 10
  work_duration: 250ms
sender:
  workers: 3
  messages_per_worker: 5
  message_delay: 100ms
  rate_limit: 50
`)
	cfg, err := Load(Options{Path: path, EnvFile: filepath.Join(t.TempDir(), "none.env")})
	require.NoError(t, err)

	assert.Equal(t, pushpull.Latin1, cfg.Receiver.Codec)
	assert.Equal(t, pushpull.Latin1, cfg.Sender.Codec)
	assert.Equal(t, "127.0.0.1:9100", cfg.MetricsAddr)
	assert.Equal(t, pushpull.LogLevelDebug, cfg.LogLevel())
	assert.False(t, cfg.Log.File)

	assert.Equal(t, 6000, cfg.Receiver.Port)
	assert.Equal(t, 10, cfg.Receiver.QueueCapacity)
	assert.Equal(t, 250*time.Millisecond, cfg.Receiver.WorkDuration)
	// untouched keys keep their defaults
	assert.Equal(t, "*", cfg.Receiver.Host)
	assert.Equal(t, 500*time.Millisecond, cfg.Receiver.GetTimeout)

	assert.Equal(t, 3, cfg.Sender.Workers)
	assert.Equal(t, 5, cfg.Sender.MessagesPerWorker)
	assert.Equal(t, 100*time.Millisecond, cfg.Sender.MessageDelay)
	assert.Equal(t, 50.0, cfg.Sender.RateLimit)
	assert.Equal(t, 3*time.Second, cfg.Sender.ServerTimeout)
}

func TestLoadEnvOverridesYAML(t *testing.T) {
	path := writeFile(t, "relay.yaml", "sender:\n  workers: 3\n")
	t.Setenv("PUSHPULL_WORKERS", "7")
	t.Setenv("PUSHPULL_MESSAGE_DELAY", "2s")
	t.Setenv("PUSHPULL_DISABLE_MONITOR", "true")
	t.Setenv("PUSHPULL_RECEIVER_PORT", "7100")

	cfg, err := Load(Options{Path: path, EnvFile: filepath.Join(t.TempDir(), "none.env")})
	require.NoError(t, err)
	assert.Equal(t, 7, cfg.Sender.Workers)
	assert.Equal(t, 2*time.Second, cfg.Sender.MessageDelay)
	assert.True(t, cfg.Sender.DisableMonitor)
	assert.Equal(t, 7100, cfg.Receiver.Port)
}

func TestLoadDotEnv(t *testing.T) {
	envFile := writeFile(t, ".env", "PUSHPULL_QUEUE_CAPACITY=42\nPUSHPULL_LOG_LEVEL=warning\n")
	t.Setenv("PUSHPULL_QUEUE_CAPACITY", "")
	t.Setenv("PUSHPULL_LOG_LEVEL", "")
	os.Unsetenv("PUSHPULL_QUEUE_CAPACITY")
	os.Unsetenv("PUSHPULL_LOG_LEVEL")

	cfg, err := Load(Options{EnvFile: envFile})
	require.NoError(t, err)
	assert.Equal(t, 42, cfg.Receiver.QueueCapacity)
	assert.Equal(t, pushpull.LogLevelWarn, cfg.LogLevel())
}

func TestLoadErrors(t *testing.T) {
	noEnv := filepath.Join(t.TempDir(), "none.env")

	_, err := Load(Options{Path: filepath.Join(t.TempDir(), "missing.yaml"), EnvFile: noEnv})
	assert.ErrorContains(t, err, "could not read")

	_, err = Load(Options{Path: writeFile(t, "bad.yaml", "receiver: [1, 2"), EnvFile: noEnv})
	assert.ErrorContains(t, err, "could not parse")

	t.Setenv("PUSHPULL_WORKERS", "many")
	_, err = Load(Options{EnvFile: noEnv})
	assert.ErrorContains(t, err, "invalid integer value for PUSHPULL_WORKERS")
}

func TestValidateCollectsEverything(t *testing.T) {
	cfg := Default()
	cfg.Encoding = "ebcdic"
	cfg.Log.Level = "loud"
	cfg.Receiver.QueueCapacity = 0
	cfg.Sender.Workers = 0

	err := cfg.Validate()
	require.Error(t, err)
	assert.ErrorContains(t, err, "unsupported encoding")
	assert.ErrorContains(t, err, "unknown log level")
	assert.ErrorContains(t, err, "queue capacity must be positive")
	assert.ErrorContains(t, err, "workers must be positive")
}

func TestRunLogOptions(t *testing.T) {
	cfg := Default()
	opts := cfg.RunLogOptions("receiver")
	assert.Equal(t, "receiver", opts.Prefix)
	assert.Equal(t, "logs", opts.Dir)
	assert.True(t, opts.File)

	cfg.Log.Prefix = "relay"
	assert.Equal(t, "relay", cfg.RunLogOptions("receiver").Prefix)
}
