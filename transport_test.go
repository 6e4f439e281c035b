// Copyright 2025 The go-zeromq Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package pushpull_test

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/destiny/pushpull"
	"github.com/destiny/pushpull/internal/testutil"
)

func newPair(t *testing.T, opts ...pushpull.Option) (*pushpull.Context, *pushpull.Socket, *pushpull.Socket) {
	t.Helper()
	endpoint, err := testutil.GetTestEndpoint()
	require.NoError(t, err)

	opts = append([]pushpull.Option{pushpull.WithLogger(pushpull.DevNullLogger)}, opts...)
	ctx := pushpull.NewContext(context.Background(), opts...)
	t.Cleanup(func() { ctx.Term() })

	pull, err := ctx.Bind("pull", endpoint)
	require.NoError(t, err)
	t.Cleanup(func() { pull.Close() })

	push, err := ctx.Connect("push", endpoint, pushpull.WithTimeout(time.Second))
	require.NoError(t, err)
	t.Cleanup(func() { push.Close() })

	return ctx, pull, push
}

func TestSendRecv(t *testing.T) {
	_, pull, push := newPair(t)

	assert.Equal(t, pushpull.ModePull, pull.Mode())
	assert.Equal(t, pushpull.ModePush, push.Mode())
	assert.Equal(t, pushpull.StateOpen, pull.State())
	assert.NotNil(t, pull.Addr())
	assert.Nil(t, push.Addr())

	for i := 0; i < 5; i++ {
		require.NoError(t, push.Send(fmt.Sprintf("msg %d", i)))
	}
	for i := 0; i < 5; i++ {
		msg, ok, err := pull.Recv(2 * time.Second)
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, fmt.Sprintf("msg %d", i), msg)
	}
}

func TestRecvTimeout(t *testing.T) {
	_, pull, _ := newPair(t)

	start := time.Now()
	msg, ok, err := pull.Recv(50 * time.Millisecond)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Empty(t, msg)
	assert.GreaterOrEqual(t, time.Since(start), 50*time.Millisecond)
}

func TestWrongMode(t *testing.T) {
	_, pull, push := newPair(t)

	var terr *pushpull.TransportError
	assert.True(t, errors.As(pull.Send("x"), &terr))
	_, _, err := push.Recv(time.Millisecond)
	assert.True(t, errors.As(err, &terr))
}

func TestLatin1OverTheWire(t *testing.T) {
	_, pull, push := newPair(t, pushpull.WithCodec(pushpull.Latin1))

	require.NoError(t, push.Send("Grüße, café"))
	msg, ok, err := pull.Recv(2 * time.Second)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "Grüße, café", msg)

	assert.Error(t, push.Send("5€"))
}

func TestCloseIsIdempotent(t *testing.T) {
	reg := pushpull.NewRegistry(pushpull.DevNullLogger)
	_, pull, push := newPair(t, pushpull.WithRegistry(reg))
	assert.Equal(t, 2, reg.Len())
	assert.ElementsMatch(t, []string{"pull", "push"}, reg.Names())

	require.NoError(t, push.Close())
	require.NoError(t, push.Close())
	assert.Equal(t, pushpull.StateClosed, push.State())
	assert.Equal(t, 1, reg.Len())

	require.NoError(t, pull.Close())
	assert.Equal(t, 0, reg.Len())

	assert.ErrorIs(t, push.Send("late"), pushpull.ErrClosed)
	_, _, err := pull.Recv(time.Millisecond)
	assert.ErrorIs(t, err, pushpull.ErrClosed)

	select {
	case <-pull.Done():
	default:
		t.Fatal("done channel not closed")
	}
}

func TestTermUnblocksRecv(t *testing.T) {
	ctx, pull, _ := newPair(t)

	errc := make(chan error, 1)
	go func() {
		_, _, err := pull.Recv(time.Minute)
		errc <- err
	}()

	time.Sleep(50 * time.Millisecond)
	require.NoError(t, ctx.Term())
	require.NoError(t, ctx.Term())
	assert.True(t, ctx.Terminated())

	select {
	case err := <-errc:
		assert.ErrorIs(t, err, pushpull.ErrContextTerminated)
	case <-time.After(2 * time.Second):
		t.Fatal("Recv not released by Term")
	}

	_, err := ctx.Bind("late", "tcp://127.0.0.1:0")
	assert.ErrorIs(t, err, pushpull.ErrContextTerminated)
	_, err = ctx.Connect("late", "tcp://127.0.0.1:1")
	assert.ErrorIs(t, err, pushpull.ErrContextTerminated)
}

func TestConnectRefused(t *testing.T) {
	port, err := testutil.GetDeadPort()
	require.NoError(t, err)

	ctx := pushpull.NewContext(context.Background(), pushpull.WithLogger(pushpull.DevNullLogger))
	defer ctx.Term()

	endpoint := pushpull.ConnectEndpoint("127.0.0.1", port)
	start := time.Now()
	_, err = ctx.Connect("push", endpoint, pushpull.WithDialTimeout(500*time.Millisecond))
	require.Error(t, err)
	assert.Less(t, time.Since(start), 2*time.Second)

	var terr *pushpull.TransportError
	require.True(t, errors.As(err, &terr))
	assert.Equal(t, "connect", terr.Op)
	assert.Equal(t, endpoint, terr.Endpoint)
	assert.False(t, pushpull.IsTimeout(err))
}

func TestBindTwiceFails(t *testing.T) {
	endpoint, err := testutil.GetTestEndpoint()
	require.NoError(t, err)

	ctx := pushpull.NewContext(context.Background(), pushpull.WithLogger(pushpull.DevNullLogger))
	defer ctx.Term()

	first, err := ctx.Bind("first", endpoint)
	require.NoError(t, err)
	defer first.Close()

	_, err = ctx.Bind("second", endpoint)
	var terr *pushpull.TransportError
	require.True(t, errors.As(err, &terr))
	assert.Equal(t, "bind", terr.Op)
}

func TestEndpointHelpers(t *testing.T) {
	assert.Equal(t, "tcp://0.0.0.0:5560", pushpull.BindEndpoint("*", 5560))
	assert.Equal(t, "tcp://0.0.0.0:5560", pushpull.BindEndpoint("", 5560))
	assert.Equal(t, "tcp://127.0.0.1:7000", pushpull.BindEndpoint("127.0.0.1", 7000))
	assert.Equal(t, "tcp://localhost:5560", pushpull.ConnectEndpoint("", 5560))
	assert.Equal(t, "tcp://[::1]:5560", pushpull.ConnectEndpoint("::1", 5560))

	assert.Equal(t, "5560", pushpull.PortOf("tcp://0.0.0.0:5560"))
	assert.Equal(t, "unknown", pushpull.PortOf("0.0.0.0:5560"))
	assert.Equal(t, "unknown", pushpull.PortOf("tcp://host:"))
}

func TestTransportErrorUnwrap(t *testing.T) {
	base := errors.New("connection refused")
	err := fmt.Errorf("wrapped: %w", &pushpull.TransportError{Op: "connect", Endpoint: "tcp://x:1", Err: base})
	assert.ErrorIs(t, err, base)
	assert.Contains(t, err.Error(), "connect tcp://x:1")
	assert.True(t, pushpull.IsTimeout(fmt.Errorf("x: %w", pushpull.ErrTimeout)))
}

func TestSendRetryAfterTimeoutDeliversOnce(t *testing.T) {
	endpoint, err := testutil.GetTestEndpoint()
	require.NoError(t, err)

	ctx := pushpull.NewContext(context.Background(), pushpull.WithLogger(pushpull.DevNullLogger))
	t.Cleanup(func() { ctx.Term() })

	pull, err := ctx.Bind("pull", endpoint)
	require.NoError(t, err)
	t.Cleanup(func() { pull.Close() })
	push, err := ctx.Connect("push", endpoint, pushpull.WithTimeout(200*time.Millisecond))
	require.NoError(t, err)
	t.Cleanup(func() { push.Close() })

	// nobody reads the pull side: fill the pipe until a write stalls
	filler := strings.Repeat("x", 1<<20)
	stalled := false
	for i := 0; i < 256 && !stalled; i++ {
		err := push.Send(filler)
		if err != nil {
			require.True(t, pushpull.IsTimeout(err), "unexpected send error: %v", err)
			stalled = true
		}
	}
	require.True(t, stalled, "peer never applied backpressure")

	const marker = "Pusher-1[PID:1/TID:1] - Task 7"
	for i := 0; i < 2; i++ {
		err := push.Send(marker)
		require.Error(t, err)
		assert.True(t, pushpull.IsTimeout(err))
	}

	var markers atomic.Int32
	stop := make(chan struct{})
	drained := make(chan struct{})
	go func() {
		defer close(drained)
		for {
			select {
			case <-stop:
				return
			default:
			}
			msg, ok, err := pull.Recv(50 * time.Millisecond)
			if err != nil {
				return
			}
			if ok && msg == marker {
				markers.Add(1)
			}
		}
	}()
	defer func() {
		close(stop)
		<-drained
	}()

	require.Eventually(t, func() bool { return push.Send(marker) == nil }, 10*time.Second, 10*time.Millisecond)
	require.Eventually(t, func() bool { return markers.Load() >= 1 }, 5*time.Second, 10*time.Millisecond)
	time.Sleep(300 * time.Millisecond)
	assert.Equal(t, int32(1), markers.Load())
}

func TestPeerDisconnectIsNotAnError(t *testing.T) {
	endpoint, err := testutil.GetTestEndpoint()
	require.NoError(t, err)

	ctx := pushpull.NewContext(context.Background(), pushpull.WithLogger(pushpull.DevNullLogger))
	t.Cleanup(func() { ctx.Term() })
	pull, err := ctx.Bind("pull", endpoint)
	require.NoError(t, err)
	t.Cleanup(func() { pull.Close() })

	const n = 5
	for i := 0; i < n; i++ {
		push, err := ctx.Connect(fmt.Sprintf("heartbeat-%d", i), endpoint, pushpull.WithTimeout(time.Second))
		require.NoError(t, err)
		require.NoError(t, push.Send(pushpull.FormatHeartbeat(i)))
		require.NoError(t, push.Close())
	}

	var got []string
	deadline := time.Now().Add(5 * time.Second)
	for len(got) < n && time.Now().Before(deadline) {
		msg, ok, err := pull.Recv(100 * time.Millisecond)
		require.NoError(t, err)
		if ok {
			got = append(got, msg)
		}
	}
	assert.Len(t, got, n)

	_, ok, err := pull.Recv(200 * time.Millisecond)
	assert.NoError(t, err)
	assert.False(t, ok)
}
