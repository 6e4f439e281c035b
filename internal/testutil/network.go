// Copyright 2025 The go-zeromq Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package testutil provides testing utilities for the relay packages.
package testutil

import (
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"sync/atomic"
)

// test binaries run in parallel: start each process in its own range
var portCounter = int64(20000 + (os.Getpid()%200)*200)

// GetAvailablePort returns an available TCP port for testing
func GetAvailablePort() (int, error) {
	// Try to find an available port starting from a base range
	basePort := atomic.AddInt64(&portCounter, 7)

	for i := 0; i < 100; i++ {
		port := int(basePort) + i
		if port > 65535 {
			port = 20000 + (port % 45535)
		}

		if isPortAvailable(port) {
			return port, nil
		}
	}

	return 0, fmt.Errorf("no available ports found in range")
}

// isPortAvailable checks if a TCP port is available for binding
func isPortAvailable(port int) bool {
	listener, err := net.Listen("tcp", net.JoinHostPort("", strconv.Itoa(port)))
	if err != nil {
		return false
	}
	listener.Close()
	return true
}

// GetTestEndpoint returns a loopback endpoint with an available port
func GetTestEndpoint() (string, error) {
	port, err := GetAvailablePort()
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("tcp://127.0.0.1:%d", port), nil
}

// GetDeadPort returns a port nothing listens on: connections to it are
// refused.
func GetDeadPort() (int, error) {
	return GetAvailablePort()
}

// parseAddress extracts the address from a ZMQ endpoint
func parseAddress(endpoint string) string {
	return strings.TrimPrefix(endpoint, "tcp://")
}

// ParsePort extracts port number from endpoint
func ParsePort(endpoint string) (int, error) {
	_, portStr, err := net.SplitHostPort(parseAddress(endpoint))
	if err != nil {
		return 0, err
	}

	return strconv.Atoi(portStr)
}
