// Copyright 2025 The go-zeromq Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package receiver

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the receiver side counters.
type Metrics struct {
	MessagesReceived  prometheus.Counter
	MessagesDropped   prometheus.Counter
	ReceiveErrors     prometheus.Counter
	QueueFullRetries  prometheus.Counter
	MessagesProcessed prometheus.Counter
	MessagesDrained   prometheus.Counter
	QueueDepth        prometheus.Gauge
	ProcessDuration   prometheus.Histogram
}

// NewMetrics creates the receiver metrics and registers them with reg.
// A nil reg leaves them unregistered.
func NewMetrics(reg prometheus.Registerer, namespace string) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		MessagesReceived: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "receiver",
			Name:      "messages_received_total",
			Help:      "Messages pulled from the transport",
		}),
		MessagesDropped: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "receiver",
			Name:      "messages_dropped_total",
			Help:      "Messages received after shutdown and not enqueued",
		}),
		ReceiveErrors: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "receiver",
			Name:      "receive_errors_total",
			Help:      "Transport errors while receiving",
		}),
		QueueFullRetries: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "receiver",
			Name:      "queue_full_retries_total",
			Help:      "Enqueue attempts that timed out on a full queue",
		}),
		MessagesProcessed: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "processor",
			Name:      "messages_processed_total",
			Help:      "Messages processed by the queue processor",
		}),
		MessagesDrained: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "processor",
			Name:      "messages_drained_total",
			Help:      "Messages logged by the shutdown drain pass",
		}),
		QueueDepth: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "queue",
			Name:      "depth",
			Help:      "Messages waiting in the bounded queue",
		}),
		ProcessDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "processor",
			Name:      "process_duration_seconds",
			Help:      "Time spent processing one message",
			Buckets:   []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}),
	}
}
