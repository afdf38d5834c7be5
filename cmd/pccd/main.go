// SPDX-License-Identifier: GPL-3.0
// Copyright 2024 Pete Heist

// Command pccd is the engine's host daemon. It accepts TCP connections,
// drives a pcc.ConnState per connection on a poll loop, and exposes a
// Prometheus metrics endpoint.
package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/heistp/pcc/internal/config"
	"github.com/heistp/pcc/internal/linuxtransport"
	metrics "github.com/heistp/pcc/internal/metrics"
	"github.com/heistp/pcc/internal/pcc"
	"github.com/heistp/pcc/internal/simtransport"
	"github.com/heistp/pcc/internal/telemetry"
)

func main() {
	var (
		configPath = flag.String("config", "", "path to pccd.yaml (optional, defaults merge over built-ins)")
		listenAddr = flag.String("listen", ":7890", "TCP address pccd accepts pacing-managed connections on")
	)
	flag.Parse()

	if err := run(*configPath, *listenAddr); err != nil {
		log.Fatal(err)
	}
}

func run(configPath, listenAddr string) error {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}

	zlog, err := telemetry.New(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return err
	}
	defer zlog.Sync()

	reg := prometheus.DefaultRegisterer
	collector := metrics.NewCollector(reg)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return serveMetrics(gctx, cfg.Metrics.Addr, cfg.Metrics.Path, zlog)
	})

	g.Go(func() error {
		return serveConnections(gctx, listenAddr, cfg, zlog, collector)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		return config.DefaultConfig(), nil
	}
	return config.Load(path)
}

func serveMetrics(ctx context.Context, addr, path string, zlog *zap.Logger) error {
	mux := http.NewServeMux()
	mux.Handle(path, promhttp.Handler())
	srv := &http.Server{Addr: addr, Handler: mux}

	errc := make(chan error, 1)
	go func() {
		zlog.Info("metrics server listening", zap.String("addr", addr), zap.String("path", path))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- err
			return
		}
		errc <- nil
	}()

	select {
	case <-ctx.Done():
		shutCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutCtx)
	case err := <-errc:
		return err
	}
}

func serveConnections(ctx context.Context, addr string, cfg *config.Config, zlog *zap.Logger, collector *metrics.Collector) error {
	lc := net.ListenConfig{}
	ln, err := lc.Listen(ctx, "tcp", addr)
	if err != nil {
		return err
	}
	go func() {
		<-ctx.Done()
		ln.Close()
	}()

	zlog.Info("accepting pacing-managed connections", zap.String("addr", addr), zap.String("transport", cfg.Transport.Kind))

	hooks := pcc.NewHooks()
	g, gctx := errgroup.WithContext(ctx)
	for {
		conn, err := ln.Accept()
		if err != nil {
			select {
			case <-ctx.Done():
				return g.Wait()
			default:
				return err
			}
		}
		g.Go(func() error {
			return handleConn(gctx, conn, cfg, hooks, zlog, collector)
		})
	}
}

func handleConn(ctx context.Context, conn net.Conn, cfg *config.Config, hooks pcc.Hooks, zlog *zap.Logger, collector *metrics.Collector) error {
	defer conn.Close()

	tr, closer, err := newTransport(conn, cfg)
	if err != nil {
		zlog.Warn("falling back to sim transport", zap.Error(err))
		tr, closer = simtransport.New(time.Now(), 1460, 50*time.Millisecond), func() {}
	}
	defer closer()

	cs := pcc.NewConnState(cfg.Engine.ToEngine(), telemetry.NewEngineLogger(zlog))
	hooks.Init(tr)

	ticker := time.NewTicker(cfg.Transport.PollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			hooks.Release(cs)
			return nil
		case <-ticker.C:
			hooks.SSThreshQuery(cs, tr)
			hooks.PktsAcked(cs, tr, pcc.AckSample{
				SndUna: tr.SndUna(),
				SACK:   tr.SACKBlocks(),
				RTT:    tr.SRTT(),
			})
			collector.Observe(cs.Controller())
		}
	}
}

func newTransport(conn net.Conn, cfg *config.Config) (pcc.Transport, func(), error) {
	if cfg.Transport.Kind != "linux" {
		return nil, nil, errors.New("non-linux transport kind requested")
	}
	tcpConn, ok := conn.(*net.TCPConn)
	if !ok {
		return nil, nil, errors.New("accepted connection is not a *net.TCPConn")
	}
	f, err := tcpConn.File()
	if err != nil {
		return nil, nil, err
	}
	tr, err := linuxtransport.New(int(f.Fd()))
	if err != nil {
		f.Close()
		return nil, nil, err
	}
	return tr, func() { f.Close() }, nil
}
