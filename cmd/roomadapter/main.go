// Command roomadapter boots a standalone node of the room-broadcast
// adapter: it opens a Redis connection, builds the fleet-wide manager,
// registers a demo namespace, and serves Prometheus metrics until
// interrupted. It has no transport layer of its own — it exists to
// exercise the adapter against a real Redis instance and a real fleet
// of peer nodes.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"syscall"

	goredis "github.com/redis/go-redis/v9"
	_ "go.uber.org/automaxprocs"

	"github.com/nickguo/socket.io-redis/adapter"
	"github.com/nickguo/socket.io-redis/bus"
	"github.com/nickguo/socket.io-redis/metrics"
	"github.com/nickguo/socket.io-redis/pkg/log"
	"github.com/nickguo/socket.io-redis/redisadapter"
)

var mainLog = log.NewLog("socket.io-redis:main")

func main() {
	mainLog.Info("GOMAXPROCS: %d (via automaxprocs)", runtime.GOMAXPROCS(0))

	cfg, err := loadConfig()
	if err != nil {
		mainLog.Fatal("failed to load configuration: %v", err)
	}

	client := goredis.NewClient(&goredis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	defer client.Close()

	registry := metrics.NewRegistry()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	mgr, err := redisadapter.NewManager(ctx, bus.NewRedisBus(client), &redisadapter.Options{
		Key:            cfg.ChannelKey,
		RequestTimeout: cfg.RequestTimeout,
		Metrics:        registry,
	})
	if err != nil {
		mainLog.Fatal("failed to start adapter manager: %v", err)
	}
	mainLog.Info("adapter node %s ready on prefix %q", mgr.UID(), cfg.ChannelKey)

	local := adapter.NewLocal()
	if _, err := mgr.NewNamespace("/", local); err != nil {
		mainLog.Fatal("failed to register default namespace: %v", err)
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", registry.Handler())
	metricsServer := &http.Server{Addr: cfg.MetricsAddr, Handler: mux}

	go func() {
		mainLog.Info("serving metrics on %s", cfg.MetricsAddr)
		if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			mainLog.Error("metrics server stopped: %v", err)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	mainLog.Info("shutting down")
	metricsServer.Close()
}
