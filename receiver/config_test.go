// Copyright 2025 The go-zeromq Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package receiver

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/destiny/pushpull"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, "tcp://0.0.0.0:5560", cfg.Endpoint())
	assert.Equal(t, 100, cfg.QueueCapacity)
	assert.Equal(t, 100*time.Millisecond, cfg.PollTimeout)
	assert.Equal(t, 500*time.Millisecond, cfg.GetTimeout)
	assert.Equal(t, 100*time.Millisecond, cfg.WorkDuration)
	assert.Equal(t, pushpull.UTF8, cfg.Codec)
	assert.NoError(t, cfg.Validate())
}

func TestConfigValidate(t *testing.T) {
	for name, mutate := range map[string]func(*Config){
		"port":     func(c *Config) { c.Port = 70000 },
		"capacity": func(c *Config) { c.QueueCapacity = 0 },
		"poll":     func(c *Config) { c.PollTimeout = 0 },
		"work":     func(c *Config) { c.WorkDuration = -time.Second },
	} {
		t.Run(name, func(t *testing.T) {
			cfg := DefaultConfig()
			mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}
