// Copyright 2025 The go-zeromq Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Command push-sender runs a pool of PUSH workers against the receiver and
// stops everything as soon as the receiver becomes unavailable.
package main

import (
	"flag"
	"log"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/destiny/pushpull"
	"github.com/destiny/pushpull/config"
	"github.com/destiny/pushpull/sender"
)

func main() {
	var (
		cfgPath   = flag.String("config", "", "YAML configuration file")
		envFile   = flag.String("env", ".env", "dotenv file")
		host      = flag.String("host", "", "receiver host")
		port      = flag.Int("port", 0, "receiver TCP port")
		workers   = flag.Int("workers", 0, "number of workers")
		messages  = flag.Int("messages", 0, "messages per worker")
		delay     = flag.Duration("delay", 0, "delay between two messages of a worker")
		rateLimit = flag.Float64("rate", 0, "aggregate send rate limit in messages per second")
		noMonitor = flag.Bool("no-monitor", false, "disable the liveness monitor")
		encoding  = flag.String("encoding", "", "wire encoding: utf-8 or latin-1")
		level     = flag.String("log-level", "", "log level: error, warning, info, debug, trace")
		noFile    = flag.Bool("no-log-file", false, "log to the console only")
		metrics   = flag.String("metrics", "", "serve Prometheus metrics on this address")
	)
	flag.Parse()

	cfg, err := config.Load(config.Options{Path: *cfgPath, EnvFile: *envFile})
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	s := cfg.Sender
	if *host != "" {
		s.Host = *host
	}
	if *port != 0 {
		s.Port = *port
	}
	if *workers != 0 {
		s.Workers = *workers
	}
	if *messages != 0 {
		s.MessagesPerWorker = *messages
	}
	if *delay != 0 {
		s.MessageDelay = *delay
	}
	if *rateLimit != 0 {
		s.RateLimit = *rateLimit
	}
	if *noMonitor {
		s.DisableMonitor = true
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
	logger, closer, path, err := pushpull.NewRunLogger(cfg.RunLogOptions("sender"))
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

	start := time.Now()
	report, err := sender.NewClient(cfg.Sender, state, logger, reg).Run()
	logger.Info("Run took %v", time.Since(start).Round(10*time.Millisecond))
	for _, res := range report.Results {
		logger.Debug("%s: %s, %d sent", res.Name, res.Outcome, res.Sent)
	}
	if err != nil {
		logger.Error("Sender stopped: %v", err)
		return 1
	}
	return 0
}
