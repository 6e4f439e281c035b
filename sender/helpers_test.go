// Copyright 2025 The go-zeromq Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package sender

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/destiny/pushpull"
	"github.com/destiny/pushpull/internal/testutil"
)

// sink is a bare PULL listener recording every message it receives.
type sink struct {
	port    int
	sock    *pushpull.Socket
	ctx     *pushpull.Context
	tracker *testutil.MessageTracker
	done    chan struct{}
	started bool
}

func newSink(t *testing.T) *sink {
	t.Helper()
	s := newIdleSink(t)
	s.start()
	return s
}

// newIdleSink binds the listener without reading from it, so the peer
// eventually stops accepting writes.
func newIdleSink(t *testing.T) *sink {
	t.Helper()
	port, err := testutil.GetAvailablePort()
	require.NoError(t, err)

	ctx := pushpull.NewContext(context.Background(), pushpull.WithLogger(pushpull.DevNullLogger))
	sock, err := ctx.Bind("sink", pushpull.BindEndpoint("127.0.0.1", port))
	require.NoError(t, err)

	s := &sink{
		port:    port,
		sock:    sock,
		ctx:     ctx,
		tracker: testutil.NewMessageTracker(),
		done:    make(chan struct{}),
	}
	t.Cleanup(s.stop)
	return s
}

func (s *sink) start() {
	s.started = true
	go s.loop()
}

func (s *sink) loop() {
	defer close(s.done)
	for {
		msg, ok, err := s.sock.Recv(20 * time.Millisecond)
		if errors.Is(err, pushpull.ErrContextTerminated) || errors.Is(err, pushpull.ErrClosed) {
			return
		}
		if ok {
			s.tracker.Record(msg, false)
		}
	}
}

// stop closes the listener: later connections are refused.
func (s *sink) stop() {
	s.ctx.Term()
	if s.started {
		<-s.done
	}
	s.sock.Close()
}

func (s *sink) tasks() []string {
	var out []string
	for _, msg := range s.tracker.Order() {
		if !pushpull.IsHeartbeat(msg) {
			out = append(out, msg)
		}
	}
	return out
}

func testConfig(port int) *Config {
	cfg := DefaultConfig()
	cfg.Host = "127.0.0.1"
	cfg.Port = port
	cfg.Workers = 3
	cfg.MessagesPerWorker = 5
	cfg.MessageDelay = 10 * time.Millisecond
	cfg.ServerTimeout = 500 * time.Millisecond
	cfg.ConnectRetryInterval = 10 * time.Millisecond
	cfg.RetryPause = 10 * time.Millisecond
	cfg.HeartbeatInterval = 50 * time.Millisecond
	cfg.HeartbeatTimeout = 500 * time.Millisecond
	cfg.InitialProbeTimeout = 500 * time.Millisecond
	cfg.JoinTimeout = time.Second
	return cfg
}

func deadPort(t *testing.T) int {
	t.Helper()
	port, err := testutil.GetDeadPort()
	require.NoError(t, err)
	return port
}

func newTransport(t *testing.T, reg *pushpull.Registry) *pushpull.Context {
	t.Helper()
	ctx := pushpull.NewContext(context.Background(),
		pushpull.WithLogger(pushpull.DevNullLogger),
		pushpull.WithRegistry(reg),
	)
	t.Cleanup(func() { ctx.Term() })
	return ctx
}

// scriptedSocket replays errs, one per Send call, then succeeds.
type scriptedSocket struct {
	errs  []error
	calls int
	sent  []string
}

func (s *scriptedSocket) Send(msg string) error {
	s.calls++
	if len(s.errs) > 0 {
		err := s.errs[0]
		s.errs = s.errs[1:]
		if err != nil {
			return err
		}
	}
	s.sent = append(s.sent, msg)
	return nil
}

func timeoutErr() error {
	return fmt.Errorf("pushpull: send to tcp://127.0.0.1:1 after 1s: %w", pushpull.ErrTimeout)
}
