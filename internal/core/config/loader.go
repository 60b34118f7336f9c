package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v2"
)

// Load reads configuration from a YAML file.
func Load(path string) (*AppConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg AppConfig
	// Expand environment variables in the YAML content
	expandedData := os.ExpandEnv(string(data))
	if err := yaml.Unmarshal([]byte(expandedData), &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	applyDefaults(&cfg)
	return &cfg, nil
}

func applyDefaults(cfg *AppConfig) {
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.HealthPort == 0 {
		cfg.Server.HealthPort = 8081
	}
	if cfg.Dispatch.RetryLimit == 0 {
		cfg.Dispatch.RetryLimit = 3
	}
	if cfg.Dispatch.RetryUnit == 0 {
		cfg.Dispatch.RetryUnit = time.Second
	}
	if cfg.Dispatch.AttemptTimeout == 0 {
		cfg.Dispatch.AttemptTimeout = 2 * time.Minute
	}
	if cfg.Dispatch.NetworkAcquireTimeout == 0 {
		cfg.Dispatch.NetworkAcquireTimeout = 30 * time.Second
	}
	if cfg.Dispatch.TransportTimeout == 0 {
		cfg.Dispatch.TransportTimeout = 60 * time.Second
	}
	if cfg.Dispatch.QueueSize == 0 {
		cfg.Dispatch.QueueSize = 64
	}
	if cfg.Handoff.OfferTimeout == 0 {
		cfg.Handoff.OfferTimeout = 2 * time.Second
	}
	if cfg.Handoff.PendingTTL == 0 {
		cfg.Handoff.PendingTTL = 24 * time.Hour
	}
	if cfg.Delivery.Timeout == 0 {
		cfg.Delivery.Timeout = 10 * time.Second
	}
}
