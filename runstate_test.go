// Copyright 2025 The go-zeromq Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package pushpull_test

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/destiny/pushpull"
)

func TestRunStateInitial(t *testing.T) {
	s := pushpull.NewRunState()
	assert.False(t, s.IsShutdown())
	assert.True(t, s.Available())
	assert.True(t, s.Running())
	assert.Equal(t, pushpull.ReasonNone, s.Reason())
	assert.NoError(t, s.Context().Err())
}

func TestRunStateFirstReasonWins(t *testing.T) {
	s := pushpull.NewRunState()

	assert.True(t, s.MarkPeerDown())
	assert.False(t, s.Shutdown(pushpull.ReasonCompleted))
	assert.False(t, s.Interrupt())

	assert.True(t, s.IsShutdown())
	assert.False(t, s.Available())
	assert.Equal(t, pushpull.ReasonPeerDown, s.Reason())
	assert.True(t, s.Reason().Failed())
	assert.Error(t, s.Context().Err())

	select {
	case <-s.Done():
	default:
		t.Fatal("done channel not closed")
	}
}

func TestRunStateInterrupt(t *testing.T) {
	s := pushpull.NewRunState()
	require.True(t, s.Interrupt())
	assert.Equal(t, pushpull.ReasonInterrupt, s.Reason())
	assert.Equal(t, "user request", s.Reason().String())
	assert.False(t, s.Available())
	assert.False(t, s.Reason().Failed())
}

func TestRunStateAvailability(t *testing.T) {
	s := pushpull.NewRunState()
	assert.False(t, s.SetAvailable(true))
	assert.True(t, s.SetAvailable(false))
	assert.False(t, s.Running())
	assert.False(t, s.IsShutdown())
	assert.True(t, s.SetAvailable(true))
	assert.True(t, s.Running())
}

func TestRunStateConcurrentShutdown(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	s := pushpull.NewRunState()
	var (
		wg  sync.WaitGroup
		mu  sync.Mutex
		won int
	)
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if s.Shutdown(pushpull.ReasonCompleted) {
				mu.Lock()
				won++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, won)
}

func TestRunStateSleep(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	s := pushpull.NewRunState()
	start := time.Now()
	assert.True(t, s.Sleep(20*time.Millisecond))
	assert.GreaterOrEqual(t, time.Since(start), 20*time.Millisecond)

	go func() {
		time.Sleep(20 * time.Millisecond)
		s.Interrupt()
	}()
	start = time.Now()
	assert.False(t, s.Sleep(time.Minute))
	assert.Less(t, time.Since(start), time.Second)

	assert.False(t, s.Sleep(0))
}

func TestReasonStrings(t *testing.T) {
	assert.Equal(t, "none", pushpull.ReasonNone.String())
	assert.Equal(t, "completed", pushpull.ReasonCompleted.String())
	assert.Equal(t, "server unavailable", pushpull.ReasonPeerDown.String())
	assert.Equal(t, "fatal error", pushpull.ReasonFatal.String())
	assert.True(t, pushpull.ReasonFatal.Failed())
	assert.False(t, pushpull.ReasonCompleted.Failed())
}
