/*
 * Copyright (c) 2026 Firefly Software Solutions Inc.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

// Command raftkv-node runs one Raft-replicated key-value node, speaking
// line-delimited JSON over stdin/stdout. Cluster membership and node
// identity arrive at runtime via raft_init; everything else is configured
// up front from environment variables or a config file named by -config.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"raftkv/internal/config"
	"raftkv/internal/logging"
	"raftkv/internal/node"
)

// statusResponse is the JSON body served at /status, the record
// cmd/raftkv-ctl's status subcommand renders as a table.
type statusResponse struct {
	SelfID      string `json:"self_id"`
	Role        string `json:"role"`
	Term        uint64 `json:"term"`
	CommitIndex uint64 `json:"commit_index"`
	LastApplied uint64 `json:"last_applied"`
	LogSize     uint64 `json:"log_size"`
	PeerCount   int    `json:"peer_count"`
}

func statusHandler(orch *node.Orchestrator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		st := orch.Status()
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(statusResponse{
			SelfID:      st.SelfID,
			Role:        st.Role.String(),
			Term:        st.Term,
			CommitIndex: st.CommitIndex,
			LastApplied: st.LastApplied,
			LogSize:     st.LogSize,
			PeerCount:   st.PeerCount,
		})
	}
}

func main() {
	configFile := flag.String("config", "", "path to a config file (TOML/YAML/JSON)")
	flag.Parse()

	mgr := config.Global()
	if *configFile != "" {
		if err := mgr.LoadFromFile(*configFile); err != nil {
			fmt.Fprintln(os.Stderr, "raftkv-node:", err)
			os.Exit(1)
		}
	}
	mgr.LoadFromEnv()
	cfg := mgr.Get()
	if err := cfg.Validate(); err != nil {
		fmt.Fprintln(os.Stderr, "raftkv-node: invalid config:", err)
		os.Exit(1)
	}

	logging.SetGlobalLevel(logging.ParseLevel(cfg.LogLevel))
	logging.SetJSONMode(cfg.LogJSON)
	logger := logging.NewLogger("raftkv-node")
	logger.Info("starting", "config", cfg.String())

	orch := node.New(cfg, os.Stdin, os.Stdout, logger)

	if cfg.MetricsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		mux.Handle("/status", statusHandler(orch))
		metricsServer := &http.Server{Addr: cfg.MetricsAddr, Handler: mux}
		go func() {
			if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logger.Error("metrics server error", "error", err.Error())
			}
		}()
		logger.Info("metrics endpoint listening", "addr", cfg.MetricsAddr)
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = metricsServer.Shutdown(ctx)
		}()
	}

	ctx, cancel := context.WithCancel(context.Background())
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGTERM, syscall.SIGINT)
	go func() {
		<-quit
		logger.Info("shutdown signal received, draining")
		cancel()
	}()

	if err := orch.Run(ctx); err != nil && err != context.Canceled {
		logger.Error("node stopped with error", "error", err.Error())
		os.Exit(1)
	}
	logger.Info("stopped")
}
