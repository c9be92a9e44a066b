// Package config provides runtime configuration for the service,
// loaded from an optional yaml file with environment overrides.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	HTTPAddr               string `yaml:"http_addr"`
	ShutdownTimeoutSeconds int    `yaml:"shutdown_timeout_seconds"`
	Debug                  bool   `yaml:"debug"`

	MySQLDSN string      `yaml:"mysql_dsn"`
	Redis    RedisConfig `yaml:"redis"`
	Audit    AuditConfig `yaml:"audit"`
}

type RedisConfig struct {
	Addr     string `yaml:"addr"`
	PoolSize int    `yaml:"pool_size"`
}

type AuditConfig struct {
	Workers        int    `yaml:"workers"`
	QueueSize      int    `yaml:"queue_size"`
	PublishEnabled bool   `yaml:"publish_enabled"`
	Stream         string `yaml:"stream"`
}

func Default() Config {
	return Config{
		HTTPAddr:               ":8080",
		ShutdownTimeoutSeconds: 15,
		MySQLDSN:               "root:root@tcp(localhost:3306)/prices?parseTime=true",
		Redis: RedisConfig{
			Addr:     "localhost:6379",
			PoolSize: 100,
		},
		Audit: AuditConfig{
			Workers:        4,
			QueueSize:      1024,
			PublishEnabled: true,
			Stream:         "price-events",
		},
	}
}

// Load reads the yaml file at path (skipped when path is empty) on top
// of the defaults, then applies environment overrides.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config: %w", err)
		}
	}

	applyEnv(&cfg)
	return cfg, nil
}

func (c Config) ShutdownTimeout() time.Duration {
	return time.Duration(c.ShutdownTimeoutSeconds) * time.Second
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("HTTP_ADDR"); v != "" {
		cfg.HTTPAddr = v
	}
	if v := os.Getenv("MYSQL_DSN"); v != "" {
		cfg.MySQLDSN = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		cfg.Redis.Addr = v
	}
	if v := os.Getenv("EVENT_STREAM"); v != "" {
		cfg.Audit.Stream = v
	}
	if v := os.Getenv("PUBLISH_ENABLED"); v != "" {
		cfg.Audit.PublishEnabled = v == "1" || v == "true"
	}
	if v := os.Getenv("AUDIT_WORKERS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.Audit.Workers = n
		}
	}
	if v := os.Getenv("AUDIT_QUEUE_SIZE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.Audit.QueueSize = n
		}
	}
	if v := os.Getenv("DEBUG"); v != "" {
		cfg.Debug = v == "1" || v == "true"
	}
}
