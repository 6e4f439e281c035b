// Copyright 2025 The go-zeromq Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package pushpull

import (
	"time"
)

// Option configures some aspect of a transport Context.
type Option func(c *Context)

// WithLogger sets the logger used by the context and its sockets.
func WithLogger(log *Logger) Option {
	return func(c *Context) {
		c.log = log
	}
}

// WithCodec sets the wire text encoding of every socket of the context.
// A nil codec keeps UTF-8.
func WithCodec(codec Codec) Option {
	return func(c *Context) {
		if codec != nil {
			c.codec = codec
		}
	}
}

// WithRegistry makes every socket of the context register into reg, so the
// shutdown path can find stragglers.
func WithRegistry(reg *Registry) Option {
	return func(c *Context) {
		c.registry = reg
	}
}

// WithSendTimeout sets the default send timeout of the context sockets.
func WithSendTimeout(timeout time.Duration) Option {
	return func(c *Context) {
		c.timeout = timeout
	}
}

// WithDefaultLinger sets the default linger of the context sockets.
func WithDefaultLinger(linger time.Duration) Option {
	return func(c *Context) {
		c.linger = linger
	}
}

// SocketOption configures a single socket.
type SocketOption func(s *Socket)

// WithTimeout sets the send timeout of a socket.
func WithTimeout(timeout time.Duration) SocketOption {
	return func(s *Socket) {
		s.timeout = timeout
	}
}

// WithDialTimeout sets the maximum amount of time a connect waits for the
// TCP dial and ZMTP handshake.
func WithDialTimeout(timeout time.Duration) SocketOption {
	return func(s *Socket) {
		s.dialTimeout = timeout
	}
}

// WithLinger sets the initial linger of a socket.
func WithLinger(linger time.Duration) SocketOption {
	return func(s *Socket) {
		s.linger.Store(int64(linger))
	}
}

// WithIdentity overrides the random socket identity.
func WithIdentity(id string) SocketOption {
	return func(s *Socket) {
		if id != "" {
			s.id = id
		}
	}
}
