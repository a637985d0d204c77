/*
 * MIT License
 *
 * Copyright (c) 2025 Nicolas JUHEL
 *
 * Permission is hereby granted, free of charge, to any person obtaining a copy
 * of this software and associated documentation files (the "Software"), to deal
 * in the Software without restriction, including without limitation the rights
 * to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
 * copies of the Software, and to permit persons to whom the Software is
 * furnished to do so, subject to the following conditions:
 *
 * The above copyright notice and this permission notice shall be included in all
 * copies or substantial portions of the Software.
 *
 * THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
 * IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
 * FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
 * AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
 * LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
 * OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
 * SOFTWARE.
 *
 *
 */

// Command wdproxy runs the multi-link JSON-RPC reverse-proxy daemon: one
// listener per configured workdir, active + passive health checking of its
// upstreams, and hot-reload of the workdir configuration file.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/nabbar/wdproxy/admin"
	"github.com/nabbar/wdproxy/config"
	"github.com/nabbar/wdproxy/logger"
	"github.com/nabbar/wdproxy/metrics"
	"github.com/nabbar/wdproxy/netmon"
	"github.com/nabbar/wdproxy/port"
)

// version is overridden at build time via -ldflags "-X main.version=...".
var version = "dev"

const (
	eventSubmitTimeout = 2 * time.Second
	shutdownTimeout    = 3 * time.Second
)

func main() {
	var (
		configPath string
		verbose    int
		metricsBnd string
	)

	root := &cobra.Command{
		Use:     "wdproxy",
		Short:   "Multi-link JSON-RPC reverse proxy",
		Long:    "wdproxy fronts one or more upstream JSON-RPC services per configured workdir, load-balancing and failing over on upstream health while exposing Prometheus metrics.",
		Version: version,
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to the workdir configuration file (required)")
	root.PersistentFlags().CountVarP(&verbose, "verbose", "v", "increase log verbosity (-v, -vv, -vvv)")

	run := &cobra.Command{
		Use:   "run",
		Short: "Start the proxy daemon",
		RunE: func(cmd *cobra.Command, args []string) error {
			if configPath == "" {
				return fmt.Errorf("--config is required")
			}
			return runDaemon(cmd.Context(), configPath, metricsBnd, verbose)
		},
	}
	run.Flags().StringVar(&metricsBnd, "metrics-addr", "127.0.0.1:9090", "bind address for the /metrics HTTP endpoint")
	root.AddCommand(run)

	check := &cobra.Command{
		Use:   "check",
		Short: "Validate the configuration file and print the normalized document",
		RunE: func(cmd *cobra.Command, args []string) error {
			if configPath == "" {
				return fmt.Errorf("--config is required")
			}
			_, doc, err := config.NewLoader(configPath, logger.GetDefault())
			if err != nil {
				return err
			}
			buf, err := yaml.Marshal(doc)
			if err != nil {
				return err
			}
			cmd.Print(string(buf))
			return nil
		},
	}
	root.AddCommand(check)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func runDaemon(ctx context.Context, configPath, metricsAddr string, verbose int) error {
	log := logger.New("wdproxy")
	log.SetLevel(verbosityLevel(verbose))

	loader, doc, err := config.NewLoader(configPath, log)
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}

	globals := port.NewGlobals()
	collector := metrics.New()
	monitor := netmon.New(globals, log).WithCollector(collector)
	controller := admin.NewController(globals, monitor, collector, log)

	metricsSrv := &http.Server{Addr: metricsAddr, Handler: collector.Handler()}
	go func() {
		log.Info("metrics endpoint listening", logger.Fields{"addr": metricsAddr})
		if err := metricsSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("metrics endpoint failed", logger.Fields{"error": err})
		}
	}()

	loader.Watch(func(d config.Document, watchErr error) {
		if watchErr != nil {
			log.Warn("configuration reload rejected", logger.Fields{"error": watchErr})
			return
		}
		submitCtx, cancel := context.WithTimeout(ctx, eventSubmitTimeout)
		defer cancel()
		if err := controller.Submit(submitCtx, admin.Event{Kind: admin.KindUpdate, Doc: d}); err != nil {
			log.Warn("configuration reload dropped", logger.Fields{"error": err})
		}
	})

	monitorDone := make(chan error, 1)
	go func() { monitorDone <- monitor.Run(ctx) }()

	controllerDone := make(chan error, 1)
	go func() { controllerDone <- controller.Run(ctx) }()

	initCtx, cancel := context.WithTimeout(ctx, eventSubmitTimeout)
	defer cancel()
	if err := controller.Submit(initCtx, admin.Event{Kind: admin.KindUpdate, Doc: doc}); err != nil {
		return fmt.Errorf("submitting initial configuration: %w", err)
	}

	<-ctx.Done()
	log.Info("shutdown requested", nil)

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()
	_ = metricsSrv.Shutdown(shutdownCtx)

	<-controllerDone
	<-monitorDone
	return nil
}

func verbosityLevel(v int) logger.Level {
	switch {
	case v >= 2:
		return logger.DebugLevel
	case v == 1:
		return logger.InfoLevel
	default:
		return logger.WarnLevel
	}
}
