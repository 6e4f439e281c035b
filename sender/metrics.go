// Copyright 2025 The go-zeromq Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package sender

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the sender side counters.
type Metrics struct {
	MessagesSent      prometheus.Counter
	SendTimeouts      prometheus.Counter
	SendErrors        prometheus.Counter
	ConnectFailures   prometheus.Counter
	ActiveWorkers     prometheus.Gauge
	WorkerOutcomes    *prometheus.CounterVec
	Heartbeats        prometheus.Counter
	HeartbeatFailures prometheus.Counter
	HeartbeatLatency  prometheus.Histogram
}

// NewMetrics creates the sender metrics and registers them with reg.
// A nil reg leaves them unregistered.
func NewMetrics(reg prometheus.Registerer, namespace string) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		MessagesSent: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "sender",
			Name:      "messages_sent_total",
			Help:      "Task messages handed to the transport",
		}),
		SendTimeouts: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "sender",
			Name:      "send_timeouts_total",
			Help:      "Sends that did not complete within the server timeout",
		}),
		SendErrors: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "sender",
			Name:      "send_errors_total",
			Help:      "Hard transport errors while sending",
		}),
		ConnectFailures: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "sender",
			Name:      "connect_failures_total",
			Help:      "Failed connection attempts",
		}),
		ActiveWorkers: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "sender",
			Name:      "active_workers",
			Help:      "Workers currently running",
		}),
		WorkerOutcomes: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "sender",
			Name:      "worker_outcomes_total",
			Help:      "Finished workers by outcome",
		}, []string{"outcome"}),
		Heartbeats: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "monitor",
			Name:      "heartbeats_total",
			Help:      "Liveness probes attempted",
		}),
		HeartbeatFailures: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "monitor",
			Name:      "heartbeat_failures_total",
			Help:      "Liveness probes that failed",
		}),
		HeartbeatLatency: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "monitor",
			Name:      "heartbeat_duration_seconds",
			Help:      "Time to connect and deliver one liveness probe",
			Buckets:   prometheus.ExponentialBuckets(0.001, 4, 7),
		}),
	}
}
