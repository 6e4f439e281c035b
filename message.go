// Copyright 2025 The go-zeromq Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package pushpull

import (
	"fmt"
	"strconv"
	"strings"
)

// Wire grammar:
//
//	task      = producer "[PID:" pid "/TID:" tid "] - Task " n
//	heartbeat = "__HEARTBEAT__[PID:" pid "]"
const (
	HeartbeatMarker = "__HEARTBEAT__"
	UnknownClient   = "Unknown-Client"
	UnknownTask     = "Unknown Task"

	taskSeparator = " - "
	taskMarker    = " - Task "
	producerWidth = 12
)

// FormatTask builds the payload of task n sent by producer.
func FormatTask(producer string, pid, tid, n int) string {
	return fmt.Sprintf("%s[PID:%d/TID:%d] - Task %d", producer, pid, tid, n)
}

// FormatHeartbeat builds the liveness probe payload.
func FormatHeartbeat(pid int) string {
	return fmt.Sprintf("%s[PID:%d]", HeartbeatMarker, pid)
}

// IsHeartbeat reports whether msg is a liveness probe.
func IsHeartbeat(msg string) bool {
	return strings.HasPrefix(msg, HeartbeatMarker)
}

// ProducerOf returns the producer identity carried by msg: the text before
// " - ", the whole message for heartbeats, UnknownClient otherwise.
func ProducerOf(msg string) string {
	if IsHeartbeat(msg) {
		return msg
	}
	if i := strings.Index(msg, taskSeparator); i >= 0 {
		return msg[:i]
	}
	return UnknownClient
}

// ProducerName strips the "[PID:...]" suffix from a producer identity.
func ProducerName(info string) string {
	if i := strings.Index(info, "[PID:"); i >= 0 {
		return info[:i]
	}
	return info
}

// TaskOf returns the task number of a task message.
func TaskOf(msg string) (int, bool) {
	i := strings.Index(msg, taskMarker)
	if i < 0 {
		return 0, false
	}
	n, err := strconv.Atoi(strings.TrimSpace(msg[i+len(taskMarker):]))
	if err != nil {
		return 0, false
	}
	return n, true
}

// AlignedProducer renders the producer of msg left-aligned in a fixed column.
func AlignedProducer(msg string) string {
	return fmt.Sprintf("%-*s", producerWidth, ProducerName(ProducerOf(msg)))
}

// AlignedTask renders the task number of msg as "Task %2d".
func AlignedTask(msg string) string {
	n, ok := TaskOf(msg)
	if !ok {
		return UnknownTask
	}
	return fmt.Sprintf("Task %2d", n)
}
