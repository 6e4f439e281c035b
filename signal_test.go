// Copyright 2025 The go-zeromq Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

//go:build !windows

package pushpull_test

import (
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/destiny/pushpull"
)

func TestNotifyInterrupt(t *testing.T) {
	state := pushpull.NewRunState()
	stop := pushpull.NotifyInterrupt(state, pushpull.DevNullLogger)
	defer stop()

	require.NoError(t, syscall.Kill(syscall.Getpid(), syscall.SIGINT))

	select {
	case <-state.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("SIGINT did not trigger shutdown")
	}
	assert.Equal(t, pushpull.ReasonInterrupt, state.Reason())
	assert.False(t, state.Available())
}

func TestNotifyInterruptStop(t *testing.T) {
	state := pushpull.NewRunState()
	stop := pushpull.NotifyInterrupt(state, pushpull.DevNullLogger)
	stop()
	stop()
	assert.False(t, state.IsShutdown())
}
