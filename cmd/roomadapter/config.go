package main

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"

	"github.com/nickguo/socket.io-redis/pkg/log"
)

var cfgLog = log.NewLog("socket.io-redis:config")

// config holds the bootstrap binary's environment-driven settings:
// how to reach Redis, which channel prefix to fan out under, how long
// a clients() query waits per expected peer, and where to serve
// Prometheus metrics.
type config struct {
	RedisAddr     string `env:"REDIS_ADDR" envDefault:"localhost:6379"`
	RedisPassword string `env:"REDIS_PASSWORD" envDefault:""`
	RedisDB       int    `env:"REDIS_DB" envDefault:"0"`

	ChannelKey     string        `env:"ADAPTER_KEY" envDefault:"socket.io"`
	RequestTimeout time.Duration `env:"ADAPTER_REQUEST_TIMEOUT" envDefault:"50ms"`

	MetricsAddr string `env:"METRICS_ADDR" envDefault:":9090"`
}

// loadConfig reads .env (if present) then the process environment,
// applying the defaults above for anything unset.
func loadConfig() (*config, error) {
	if err := godotenv.Load(); err != nil {
		cfgLog.Debug("no .env file found, using process environment only: %v", err)
	}

	cfg := &config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	return cfg, nil
}
