// Package main implements the bandstand server, which keeps the band
// collection in memory, persists every change to the database and answers
// client requests over TCP.
//
// Architecture:
//
//	┌─────────────────────────────────────────┐
//	│                Server                   │
//	├─────────────────────────────────────────┤
//	│  TCP (gob):                             │
//	│    one request/response per connection  │
//	│  HTTP (optional, METRICS_ADDR):         │
//	│    /metrics      - Prometheus           │
//	│    /health       - Database health      │
//	│  Console (stdin):                       │
//	│    save, s       - Reload collection    │
//	├─────────────────────────────────────────┤
//	│  Components:                            │
//	│    Dispatcher    - Command registry     │
//	│    Store         - In-memory bands      │
//	│    Gateway       - Postgres or SQLite   │
//	│    HealthMonitor - Database ping        │
//	└─────────────────────────────────────────┘
//
// Configuration is read from the YAML file named by BANDSTAND_CONFIG and
// the environment:
//   - BANDSTAND_LISTEN: listen address (default "localhost:1782")
//   - BANDSTAND_DB_DRIVER: "postgres" (default) or "sqlite"
//   - BANDSTAND_DB_URL: database URL or SQLite file (required)
//   - BANDSTAND_DB_USER, BANDSTAND_DB_PASSWORD: required for postgres
//   - BANDSTAND_WORKERS: concurrent command executions (default 3)
//   - BANDSTAND_SCRIPT_DIR: base of relative script paths
//   - BANDSTAND_METRICS_ADDR: HTTP address for /metrics and /health
//   - BANDSTAND_REQUIRE_AUTH: verify credentials on every request (default true)
//
// Example usage:
//
//	BANDSTAND_DB_DRIVER=sqlite \
//	BANDSTAND_DB_URL=/var/lib/bandstand/bands.db \
//	BANDSTAND_METRICS_ADDR=:9182 \
//	./server
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/dreamware/bandstand/internal/collection"
	"github.com/dreamware/bandstand/internal/command"
	"github.com/dreamware/bandstand/internal/config"
	"github.com/dreamware/bandstand/internal/gateway"
	"github.com/dreamware/bandstand/internal/server"
)

// logFatal is a variable to allow mocking log.Fatal in tests.
var logFatal = log.Fatalf

const (
	connectAttempts = 10
	connectDelay    = 400 * time.Millisecond
)

func main() {
	cfg, err := config.LoadServer(os.Getenv)
	if err != nil {
		logFatal("config: %v", err)
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-stop
		cancel()
	}()

	if err := run(ctx, cfg, os.Stdin, nil); err != nil {
		logFatal("server: %v", err)
		return
	}
	log.Println("server stopped")
}

// run wires the components described by cfg and serves until ctx is
// cancelled. ready, when set, receives the bound TCP address once the
// server accepts connections.
func run(ctx context.Context, cfg config.Server, console io.Reader, ready func(net.Addr)) error {
	gw, err := connect(ctx, cfg.DB, connectAttempts, connectDelay)
	if err != nil {
		return err
	}
	defer gw.Close()


	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	metrics := server.NewMetrics(reg)

	env := &command.Env{Store: collection.New(), Gateway: gw, ScriptDir: cfg.ScriptDir}
	n, err := env.Reload(ctx)
	if err != nil {
		return fmt.Errorf("load collection: %w", err)
	}
	log.Printf("loaded %d bands", n)
	dispatcher := command.NewDispatcher(env, command.Options{RequireAuth: cfg.RequireAuth})

	srv := server.New(server.Config{
		Addr:          cfg.Listen,
		Workers:       cfg.Workers,
		ReadTimeout:   cfg.ReadTimeout,
		ShutdownGrace: cfg.ShutdownGrace,
		Console:       console,
		Metrics:       metrics,
	}, dispatcher, env)
	if err := srv.Listen(); err != nil {
		return err
	}

	monitor := server.NewHealthMonitor(gw.Ping, cfg.DBCheckInterval, nil)
	monitor.SetOnChange(func(healthy bool) {
		if healthy {
			metrics.DBUp.Set(1)
		} else {
			metrics.DBUp.Set(0)
		}
	})
	go monitor.Start(ctx)
	defer monitor.Stop()

	if cfg.MetricsAddr != "" {
		httpSrv := &http.Server{
			Addr:              cfg.MetricsAddr,
			Handler:           server.NewHTTPHandler(reg, monitor),
			ReadHeaderTimeout: 5 * time.Second,
		}
		go func() {
			log.Printf("metrics listening on %s", cfg.MetricsAddr)
			if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Printf("metrics listen: %v", err)
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := httpSrv.Shutdown(shutdownCtx); err != nil {
				log.Printf("metrics shutdown error: %v", err)
			}
		}()
	}

	if ready != nil {
		ready(srv.Addr())
	}
	return srv.Serve(ctx)
}

// connect opens the gateway, retrying while the database is still coming
// up.
func connect(ctx context.Context, cfg config.DB, attempts int, delay time.Duration) (*gateway.SQL, error) {
	var lastErr error
	for i := 1; i <= attempts; i++ {
		gw, err := gateway.Open(ctx, gateway.Config{
			Driver:   cfg.Driver,
			URL:      cfg.URL,
			User:     cfg.User,
			Password: cfg.Password,
		})
		if err == nil {
			return gw, nil
		}
		lastErr = err
		log.Printf("database not ready (attempt %d/%d): %v", i, attempts, err)
		if i == attempts {
			break
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(delay):
		}
	}
	return nil, fmt.Errorf("database unavailable after %d attempts: %w", attempts, lastErr)
}
