// Copyright 2025 The go-zeromq Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Command pull-receiver binds the PULL endpoint, queues every received
// message and processes the queue until Ctrl+C.
package main

import (
	"context"
	"flag"
	"log"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/destiny/pushpull"
	"github.com/destiny/pushpull/config"
	"github.com/destiny/pushpull/receiver"
)

func main() {
	var (
		cfgPath  = flag.String("config", "", "YAML configuration file")
		envFile  = flag.String("env", ".env", "dotenv file")
		host     = flag.String("host", "", "bind host (\"*\" for all interfaces)")
		port     = flag.Int("port", 0, "bind TCP port")
		capacity = flag.Int("queue", 0, "bounded queue capacity")
		encoding = flag.String("encoding", "", "wire encoding: utf-8 or latin-1")
		level    = flag.String("log-level", "", "log level: error, warning, info, debug, trace")
		noFile   = flag.Bool("no-log-file", false, "log to the console only")
		metrics  = flag.String("metrics", "", "serve Prometheus metrics on this address")
	)
	flag.Parse()

	cfg, err := config.Load(config.Options{Path: *cfgPath, EnvFile: *envFile})
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if *host != "" {
		cfg.Receiver.Host = *host
	}
	if *port != 0 {
		cfg.Receiver.Port = *port
	}
	if *capacity != 0 {
		cfg.Receiver.QueueCapacity = *capacity
	}
	if *encoding != "" {
		cfg.Encoding = *encoding
	}
	if *level != "" {
		cfg.Log.Level = *level
	}
	if *noFile {
		cfg.Log.File = false
	}
	if *metrics != "" {
		cfg.MetricsAddr = *metrics
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	os.Exit(run(cfg))
}

func run(cfg *config.Config) int {
	logger, closer, path, err := pushpull.NewRunLogger(cfg.RunLogOptions("receiver"))
	if err != nil {
		log.Printf("Failed to set up logging: %v", err)
		return 1
	}
	defer closer.Close()
	if path != "" {
		logger.Info("Logging to file: %s", path)
	}

	state := pushpull.NewRunState()
	stop := pushpull.NotifyInterrupt(state, logger)
	defer stop()

	var reg prometheus.Registerer
	if cfg.MetricsAddr != "" {
		r := prometheus.NewRegistry()
		r.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
		reg = r
		srv := pushpull.ServeMetrics(cfg.MetricsAddr, r, logger)
		defer srv.Close()
	}

	report, err := receiver.NewServer(cfg.Receiver, state, logger, reg).Run(context.Background())
	logger.Info("Received %d messages, processed %d, drained %d", report.Received, report.Processed, report.Drained)
	if err != nil {
		logger.Error("Receiver stopped: %v", err)
		return 1
	}
	return 0
}
