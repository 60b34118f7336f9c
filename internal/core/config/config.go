package config

import (
	"time"

	"github.com/openmms/mmsd/internal/infra/apn"
	redisclient "github.com/openmms/mmsd/internal/infra/redis"
	"github.com/openmms/mmsd/internal/infra/storage/postgres"
)

// AppConfig represents the top-level configuration.
type AppConfig struct {
	Server   ServerConfig       `yaml:"server"`
	Logging  LoggingConfig      `yaml:"logging"`
	Redis    redisclient.Config `yaml:"redis"`
	Database postgres.Config    `yaml:"database"`
	Dispatch DispatchConfig     `yaml:"dispatch"`
	APN      APNConfig          `yaml:"apn"`
	Handoff  HandoffConfig      `yaml:"handoff"`
	Delivery DeliveryConfig     `yaml:"delivery"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port       int `yaml:"port"`        // ingress API
	HealthPort int `yaml:"health_port"` // health + metrics
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error
}

// DispatchConfig tunes the retry/fallback core.
type DispatchConfig struct {
	RetryLimit            int           `yaml:"retry_limit"`
	RetryUnit             time.Duration `yaml:"retry_unit"`
	AttemptTimeout        time.Duration `yaml:"attempt_timeout"`
	NetworkAcquireTimeout time.Duration `yaml:"network_acquire_timeout"`
	NetworkLinger         time.Duration `yaml:"network_linger"`
	TransportTimeout      time.Duration `yaml:"transport_timeout"`
	UserAgent             string        `yaml:"user_agent"`
	QueueSize             int           `yaml:"queue_size"`
	AutoPersist           bool          `yaml:"auto_persist"`
}

// APNEntry is one statically configured access point.
type APNEntry struct {
	SubscriptionID string `yaml:"subscription_id"` // empty = fallback for all
	MMSC           string `yaml:"mmsc"`
	ProxyHost      string `yaml:"proxy_host"`
	ProxyPort      int    `yaml:"proxy_port"`
}

// APNConfig holds the static access-point settings used when the database
// has no row for a subscription.
type APNConfig struct {
	Static []APNEntry `yaml:"static"`
}

// StaticStore builds the apn.Store backed by this configuration.
func (c APNConfig) StaticStore() *apn.StaticStore {
	bySub := make(map[string]apn.Settings)
	var fallback *apn.Settings
	for _, e := range c.Static {
		s := apn.Settings{MMSC: e.MMSC, ProxyHost: e.ProxyHost, ProxyPort: e.ProxyPort}
		if e.SubscriptionID == "" {
			f := s
			fallback = &f
			continue
		}
		bySub[e.SubscriptionID] = s
	}
	return apn.NewStaticStore(bySub, fallback)
}

// HandoffConfig configures the carrier agent bridge.
type HandoffConfig struct {
	Enabled      bool          `yaml:"enabled"`
	OfferTimeout time.Duration `yaml:"offer_timeout"`
	PendingTTL   time.Duration `yaml:"pending_ttl"`
}

// DeliveryConfig configures webhook callbacks to callers.
type DeliveryConfig struct {
	Timeout time.Duration `yaml:"timeout"`
}
