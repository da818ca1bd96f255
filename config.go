package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// configPathEnvVar overrides the config file location.
const configPathEnvVar = "NOTIR_CONFIG"

var defaultConfigPaths = []string{
	"notir.yaml",
	"notir.yml",
	"/etc/notir/notir.yaml",
}

type config struct {
	// Port is the HTTP bind port.
	Port int `koanf:"port"`

	// SendQueue bounds each session's outbound queue. A subscriber
	// that lets it fill is dropped.
	SendQueue int `koanf:"send_queue"`

	// PingInterval is the heartbeat cadence. Peers have twice this
	// long to answer before the read deadline trips.
	PingInterval time.Duration `koanf:"ping_interval"`

	// ReplyTimeout caps a ping-pong publisher's wait for the
	// subscriber's reply.
	ReplyTimeout time.Duration `koanf:"reply_timeout"`

	// StopTimeout and KillTimeout govern graceful shutdown.
	StopTimeout time.Duration `koanf:"stop_timeout"`
	KillTimeout time.Duration `koanf:"kill_timeout"`

	// MetricsTick is the duration between metrics reports.
	MetricsTick time.Duration `koanf:"metrics_tick"`
}

func defaultConfig() config {
	return config{
		Port:         5800,
		SendQueue:    16,
		PingInterval: pingPeriod,
		ReplyTimeout: 5 * time.Second,
		StopTimeout:  10 * time.Second,
		KillTimeout:  1 * time.Second,
		MetricsTick:  60 * time.Second,
	}
}

// loadConfig layers struct defaults, an optional YAML file, and
// NOTIR_* environment variables, in rising priority.
func loadConfig() (config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return config{}, fmt.Errorf("load defaults: %w", err)
	}

	if path := findConfigFile(); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return config{}, fmt.Errorf("load config file %s: %w", path, err)
		}
	}

	envProvider := env.Provider("NOTIR_", ".", func(s string) string {
		return strings.ToLower(strings.TrimPrefix(s, "NOTIR_"))
	})
	if err := k.Load(envProvider, nil); err != nil {
		return config{}, fmt.Errorf("load environment: %w", err)
	}

	var cfg config
	if err := k.Unmarshal("", &cfg); err != nil {
		return config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return config{}, err
	}
	return cfg, nil
}

func findConfigFile() string {
	if envPath := os.Getenv(configPathEnvVar); envPath != "" {
		return envPath
	}
	for _, path := range defaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

func (c config) validate() error {
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("port %d out of range", c.Port)
	}
	if c.SendQueue < 1 {
		return fmt.Errorf("send_queue must be positive, got %d", c.SendQueue)
	}
	if c.PingInterval <= 0 {
		return fmt.Errorf("ping_interval must be positive, got %s", c.PingInterval)
	}
	if c.ReplyTimeout <= 0 {
		return fmt.Errorf("reply_timeout must be positive, got %s", c.ReplyTimeout)
	}
	return nil
}
