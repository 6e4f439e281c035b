// Copyright 2025 The go-zeromq Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package pushpull

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-zeromq/zmq4"
	"github.com/google/uuid"
)

const (
	defaultSendTimeout = 3 * time.Second
	defaultDialTimeout = 3 * time.Second
	defaultLinger      = 100 * time.Millisecond

	// readErrorBackoff keeps the pull reader from spinning on a broken peer.
	readErrorBackoff = 10 * time.Millisecond
)

var (
	// ErrTimeout reports that a send did not complete within the socket timeout.
	ErrTimeout = errors.New("pushpull: operation timed out")

	// ErrClosed reports an operation on a closed socket.
	ErrClosed = errors.New("pushpull: socket closed")

	// ErrContextTerminated reports an operation aborted because the owning
	// transport context was terminated or the socket was asked to close.
	ErrContextTerminated = errors.New("pushpull: context terminated")

	errWrongMode = errors.New("pushpull: operation not supported by socket mode")
)

// TransportError is a hard transport failure (refused connection, broken pipe, ...).
type TransportError struct {
	Op       string
	Endpoint string
	Err      error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("pushpull: %s %s: %v", e.Op, e.Endpoint, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// IsTimeout reports whether err is a send/receive timeout.
func IsTimeout(err error) bool { return errors.Is(err, ErrTimeout) }

// Mode is the direction of a socket.
type Mode int

const (
	ModePull Mode = iota // receive-only, bound listener
	ModePush             // send-only, connected client
)

func (m Mode) String() string {
	switch m {
	case ModePull:
		return "PULL"
	case ModePush:
		return "PUSH"
	default:
		return "UNKNOWN"
	}
}

// SocketState is the lifecycle state of a Socket.
type SocketState int32

const (
	StateOpen SocketState = iota
	StateClosing
	StateClosed
)

func (s SocketState) String() string {
	switch s {
	case StateOpen:
		return "open"
	case StateClosing:
		return "closing"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// Context is the shared transport context. Every socket created from it is
// bound to its life-line: Term cancels them all.
type Context struct {
	ctx    context.Context
	cancel context.CancelFunc

	log         *Logger
	codec       Codec
	registry    *Registry
	timeout     time.Duration
	dialTimeout time.Duration
	linger      time.Duration

	termOnce   sync.Once
	terminated atomic.Bool
}

// NewContext creates a transport context derived from parent.
func NewContext(parent context.Context, opts ...Option) *Context {
	if parent == nil {
		parent = context.Background()
	}
	ctx, cancel := context.WithCancel(parent)
	c := &Context{
		ctx:         ctx,
		cancel:      cancel,
		codec:       UTF8,
		timeout:     defaultSendTimeout,
		dialTimeout: defaultDialTimeout,
		linger:      defaultLinger,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.log == nil {
		c.log = DefaultLogger
	}
	return c
}

// Term terminates the context. Pending transport calls on its sockets return
// ErrContextTerminated. Term is idempotent.
func (c *Context) Term() error {
	c.termOnce.Do(func() {
		c.terminated.Store(true)
		c.cancel()
	})
	return nil
}

// Terminated reports whether Term has been called.
func (c *Context) Terminated() bool { return c.terminated.Load() }

// Registry returns the handle registry sockets of this context register into.
func (c *Context) Registry() *Registry { return c.registry }

// Bind creates a PULL socket listening on endpoint.
func (c *Context) Bind(name, endpoint string, opts ...SocketOption) (*Socket, error) {
	if c.Terminated() {
		return nil, ErrContextTerminated
	}
	s := c.newSocket(name, ModePull, endpoint, opts...)
	s.sck = zmq4.NewPull(s.ctx, s.zmqOptions()...)

	if err := s.sck.Listen(endpoint); err != nil {
		s.abort()
		return nil, &TransportError{Op: "bind", Endpoint: endpoint, Err: err}
	}
	if addr := s.sck.Addr(); addr != nil {
		s.endpoint = "tcp://" + addr.String()
	}

	s.inbox = make(chan inbound)
	s.readerDone = make(chan struct{})
	go s.readLoop()

	c.track(s)
	return s, nil
}

// Connect creates a PUSH socket connected to endpoint. A refused or timed out
// dial is reported as a *TransportError; no dial retry happens here.
func (c *Context) Connect(name, endpoint string, opts ...SocketOption) (*Socket, error) {
	if c.Terminated() {
		return nil, ErrContextTerminated
	}
	s := c.newSocket(name, ModePush, endpoint, opts...)
	s.sck = zmq4.NewPush(s.ctx, s.zmqOptions()...)

	if err := s.sck.Dial(endpoint); err != nil {
		s.abort()
		if c.ctx.Err() != nil {
			return nil, ErrContextTerminated
		}
		return nil, &TransportError{Op: "connect", Endpoint: endpoint, Err: err}
	}

	c.track(s)
	return s, nil
}

func (c *Context) newSocket(name string, mode Mode, endpoint string, opts ...SocketOption) *Socket {
	ctx, cancel := context.WithCancel(c.ctx)
	s := &Socket{
		name:        name,
		mode:        mode,
		endpoint:    endpoint,
		id:          uuid.NewString(),
		ctx:         ctx,
		cancel:      cancel,
		codec:       c.codec,
		log:         c.log,
		timeout:     c.timeout,
		dialTimeout: c.dialTimeout,
		closed:      make(chan struct{}),
	}
	s.linger.Store(int64(c.linger))
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (c *Context) track(s *Socket) {
	if c.registry != nil {
		s.registry = c.registry
		c.registry.add(s)
	}
}

type inbound struct {
	data []byte
	err  error
}

// Socket is a single PUSH or PULL endpoint. A Socket is owned by exactly one
// goroutine; only Close and requestClose may be called from elsewhere.
type Socket struct {
	name     string
	mode     Mode
	endpoint string
	id       string

	sck    zmq4.Socket
	ctx    context.Context
	cancel context.CancelFunc

	codec       Codec
	log         *Logger
	timeout     time.Duration
	dialTimeout time.Duration
	linger      atomic.Int64
	state       atomic.Int32
	pending     sync.WaitGroup
	inflight    *pendingSend

	inbox      chan inbound
	readerDone chan struct{}

	registry  *Registry
	closeOnce sync.Once
	closed    chan struct{}
}

func (s *Socket) zmqOptions() []zmq4.Option {
	return []zmq4.Option{
		zmq4.WithID(zmq4.SocketIdentity(s.id)),
		zmq4.WithTimeout(s.timeout),
		zmq4.WithDialerTimeout(s.dialTimeout),
		zmq4.WithDialerMaxRetries(0),
		zmq4.WithLogger(s.log.StdLogger(LogLevelDebug, "zmq4: ")),
	}
}

// Name returns the name of the owning worker.
func (s *Socket) Name() string { return s.name }

// Mode returns PUSH or PULL.
func (s *Socket) Mode() Mode { return s.mode }

// Endpoint returns the resolved endpoint of the socket.
func (s *Socket) Endpoint() string { return s.endpoint }

// State returns the current lifecycle state.
func (s *Socket) State() SocketState { return SocketState(s.state.Load()) }

// Addr returns the listener address of a bound socket, nil otherwise.
func (s *Socket) Addr() net.Addr {
	if s.sck == nil || s.mode != ModePull {
		return nil
	}
	return s.sck.Addr()
}

// SetLinger sets how long Close waits for in-flight sends.
func (s *Socket) SetLinger(d time.Duration) { s.linger.Store(int64(d)) }

// Linger returns the configured linger duration.
func (s *Socket) Linger() time.Duration { return time.Duration(s.linger.Load()) }

// pendingSend is a write that outlived the Send call that started it.
type pendingSend struct {
	msg    string
	result chan error
}

// Send transmits msg as a single frame. It fails with ErrTimeout when the
// send does not complete within the socket timeout, and with a *TransportError
// on hard failures.
//
// A write that timed out is not abandoned: the next Send first waits for it.
// When that write went through and carried the same text, Send reports
// success without writing a second copy, so retrying a timed out message
// delivers it at most once.
func (s *Socket) Send(msg string) error {
	if s.mode != ModePush {
		return &TransportError{Op: "send", Endpoint: s.endpoint, Err: errWrongMode}
	}
	if s.State() != StateOpen {
		return ErrClosed
	}
	if s.ctx.Err() != nil {
		return ErrContextTerminated
	}

	timer := time.NewTimer(s.timeout)
	defer timer.Stop()

	if p := s.inflight; p != nil {
		select {
		case err := <-p.result:
			s.inflight = nil
			if err == nil && p.msg == msg {
				return nil
			}
		case <-timer.C:
			return fmt.Errorf("pushpull: send to %s after %v: earlier write still pending: %w", s.endpoint, s.timeout, ErrTimeout)
		case <-s.ctx.Done():
			return ErrContextTerminated
		}
	}

	frame, err := s.codec.Encode(msg)
	if err != nil {
		return fmt.Errorf("pushpull: could not encode message: %w", err)
	}

	// The zmq4 write may block past its own deadline when the peer stops
	// reading, so the timeout is enforced here as well.
	result := make(chan error, 1)
	s.pending.Add(1)
	go func() {
		defer s.pending.Done()
		result <- s.sck.Send(zmq4.NewMsg(frame))
	}()

	select {
	case err = <-result:
		if err != nil {
			return s.classify("send", err)
		}
		return nil
	case <-timer.C:
		s.inflight = &pendingSend{msg: msg, result: result}
		return fmt.Errorf("pushpull: send to %s after %v: %w", s.endpoint, s.timeout, ErrTimeout)
	case <-s.ctx.Done():
		return ErrContextTerminated
	}
}

// Recv waits up to timeout for one message. When nothing arrives in the
// window it returns ok=false and a nil error.
func (s *Socket) Recv(timeout time.Duration) (msg string, ok bool, err error) {
	if s.mode != ModePull {
		return "", false, &TransportError{Op: "recv", Endpoint: s.endpoint, Err: errWrongMode}
	}
	if s.State() != StateOpen {
		return "", false, ErrClosed
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case in := <-s.inbox:
		if in.err != nil {
			return "", false, s.classify("recv", in.err)
		}
		msg, err = s.codec.Decode(in.data)
		if err != nil {
			return "", false, fmt.Errorf("pushpull: could not decode message: %w", err)
		}
		return msg, true, nil
	case <-timer.C:
		return "", false, nil
	case <-s.ctx.Done():
		return "", false, ErrContextTerminated
	}
}

// readLoop is the single reader of the zmq4 PULL socket. It hands messages to
// Recv one at a time, so an idle Recv caller applies backpressure.
func (s *Socket) readLoop() {
	defer close(s.readerDone)
	for {
		msg, err := s.sck.Recv()
		if s.ctx.Err() != nil {
			return
		}

		var in inbound
		switch {
		case err != nil && isPeerGone(err):
			s.log.Debug("%s peer disconnected: %v", s.name, err)
			continue
		case err != nil:
			in.err = err
		case len(msg.Frames) == 0:
			continue
		default:
			in.data = msg.Frames[0]
		}

		select {
		case s.inbox <- in:
		case <-s.ctx.Done():
			return
		}

		if err != nil {
			select {
			case <-time.After(readErrorBackoff):
			case <-s.ctx.Done():
				return
			}
		}
	}
}

func (s *Socket) classify(op string, err error) error {
	if s.ctx.Err() != nil {
		return ErrContextTerminated
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, os.ErrDeadlineExceeded) {
		return fmt.Errorf("pushpull: %s %s: %w", op, s.endpoint, ErrTimeout)
	}
	var nerr net.Error
	if errors.As(err, &nerr) && nerr.Timeout() {
		return fmt.Errorf("pushpull: %s %s: %w", op, s.endpoint, ErrTimeout)
	}
	return &TransportError{Op: op, Endpoint: s.endpoint, Err: err}
}

// requestClose asks the owner to stop using the socket: any blocked Send or
// Recv returns ErrContextTerminated. It does not release the socket.
func (s *Socket) requestClose() {
	s.cancel()
}

// Done is closed once the socket is fully closed.
func (s *Socket) Done() <-chan struct{} { return s.closed }

// Close releases the socket. It waits up to the linger duration for in-flight
// sends, then closes the connections. Close is idempotent and safe to call
// from the shutdown path.
func (s *Socket) Close() error {
	var err error
	s.closeOnce.Do(func() {
		s.state.Store(int32(StateClosing))

		if linger := s.Linger(); linger > 0 {
			waitTimeout(&s.pending, linger)
		}

		s.cancel()
		if s.sck != nil {
			if e := s.sck.Close(); e != nil && !isClosedError(e) {
				err = fmt.Errorf("pushpull: could not close %s socket %q: %w", s.mode, s.name, e)
			}
		}
		if s.readerDone != nil {
			select {
			case <-s.readerDone:
			case <-time.After(time.Second):
				s.log.Warn("%s reader did not stop within 1s", s.name)
			}
		}

		s.state.Store(int32(StateClosed))
		if s.registry != nil {
			s.registry.remove(s)
		}
		close(s.closed)
	})
	return err
}

// abort tears down a socket that never became usable.
func (s *Socket) abort() {
	s.cancel()
	if s.sck != nil {
		_ = s.sck.Close()
	}
	s.state.Store(int32(StateClosed))
	s.closeOnce.Do(func() { close(s.closed) })
}

// isPeerGone reports a connection that the remote end closed. The listener
// keeps serving the other peers.
func isPeerGone(err error) bool {
	return errors.Is(err, io.EOF) ||
		errors.Is(err, io.ErrUnexpectedEOF) ||
		errors.Is(err, net.ErrClosed)
}

func isClosedError(err error) bool {
	return errors.Is(err, net.ErrClosed) ||
		errors.Is(err, context.Canceled) ||
		errors.Is(err, zmq4.ErrClosedConn)
}

func waitTimeout(wg *sync.WaitGroup, d time.Duration) bool {
	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return true
	case <-time.After(d):
		return false
	}
}

// BindEndpoint returns the listening endpoint for host and port. The "*" host
// binds all interfaces.
func BindEndpoint(host string, port int) string {
	if host == "" || host == "*" {
		host = "0.0.0.0"
	}
	return fmt.Sprintf("tcp://%s", net.JoinHostPort(host, fmt.Sprint(port)))
}

// ConnectEndpoint returns the endpoint a client dials for host and port.
func ConnectEndpoint(host string, port int) string {
	if host == "" {
		host = "localhost"
	}
	return fmt.Sprintf("tcp://%s", net.JoinHostPort(host, fmt.Sprint(port)))
}

// PortOf extracts the port from an endpoint such as "tcp://0.0.0.0:5560".
func PortOf(endpoint string) string {
	if !strings.Contains(endpoint, "://") {
		return "unknown"
	}
	i := strings.LastIndex(endpoint, ":")
	if i < 0 || i == len(endpoint)-1 {
		return "unknown"
	}
	return endpoint[i+1:]
}
