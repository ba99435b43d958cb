// Copyright 2025 Blink Labs Software
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package node

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/blinklabs-io/tcr"
	"github.com/blinklabs-io/tcr/internal/config"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"
)

// Run starts the node described by cfg and blocks until SIGINT/SIGTERM
func Run(cfg *config.Config, logger *slog.Logger) error {
	signalCtx, signalCtxStop := signal.NotifyContext(
		context.Background(),
		syscall.SIGINT,
		syscall.SIGTERM,
	)
	defer signalCtxStop()
	return RunContext(signalCtx, cfg, logger, prometheus.DefaultRegisterer, prometheus.DefaultGatherer)
}

// RunContext runs the node and its metrics listener until ctx is canceled or
// either of them fails
func RunContext(
	ctx context.Context,
	cfg *config.Config,
	logger *slog.Logger,
	promRegisterer prometheus.Registerer,
	promGatherer prometheus.Gatherer,
) error {
	logger.Debug(fmt.Sprintf("config: %+v", cfg), "component", "node")
	shutdownTimeout, err := cfg.ShutdownTimeoutDuration()
	if err != nil {
		return err
	}
	genesis, err := config.LoadGenesis(cfg.GenesisFile)
	if err != nil {
		return err
	}
	apiAddr := ""
	if cfg.ApiPort > 0 {
		apiAddr = net.JoinHostPort(cfg.BindAddr, fmt.Sprintf("%d", cfg.ApiPort))
	}
	n, err := tcr.New(
		tcr.NewConfig(
			tcr.WithLogger(logger),
			tcr.WithDatabasePath(cfg.DatabasePath),
			tcr.WithBadgerGc(cfg.BadgerGc),
			tcr.WithBadgerCacheSizes(
				cfg.BadgerBlockCacheSize,
				cfg.BadgerIndexCacheSize,
			),
			tcr.WithGenesis(genesis.Balances),
			tcr.WithApiListenAddress(apiAddr),
			tcr.WithShutdownTimeout(shutdownTimeout),
			tcr.WithPrometheusRegistry(promRegisterer),
			tcr.WithTracing(cfg.Tracing),
			tcr.WithTracingStdout(cfg.TracingStdout),
		),
	)
	if err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := n.Run(gctx); err != nil {
			logger.Error("node error", "component", "node", "error", err)
			return err
		}
		return nil
	})
	if cfg.MetricsPort > 0 {
		metricsAddr := net.JoinHostPort(cfg.BindAddr, fmt.Sprintf("%d", cfg.MetricsPort))
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(promGatherer, promhttp.HandlerOpts{}))
		metricsServer := &http.Server{
			Addr:              metricsAddr,
			Handler:           mux,
			ReadHeaderTimeout: 60 * time.Second,
			WriteTimeout:      30 * time.Second,
			IdleTimeout:       120 * time.Second,
		}
		logger.Info(
			"serving prometheus metrics on "+metricsAddr,
			"component", "node",
		)
		g.Go(func() error {
			if err := metricsServer.ListenAndServe(); err != nil &&
				!errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("failed to start metrics listener: %w", err)
			}
			return nil
		})
		g.Go(func() error {
			<-gctx.Done()
			shutdownCtx, cancel := context.WithTimeout(
				context.Background(),
				shutdownTimeout,
			)
			defer cancel()
			if err := metricsServer.Shutdown(shutdownCtx); err != nil {
				return fmt.Errorf("metrics server shutdown: %w", err)
			}
			return nil
		})
	}

	err = g.Wait()
	// Covers the metrics listener failing first
	if stopErr := n.Stop(); stopErr != nil {
		err = errors.Join(err, stopErr)
	}
	if err != nil {
		logger.Error("shutdown errors occurred", "component", "node", "error", err)
		return err
	}
	logger.Info("shutdown complete", "component", "node")
	return nil
}
