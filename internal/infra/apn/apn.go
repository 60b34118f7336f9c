// Package apn loads the carrier access-point settings a dispatch needs:
// the MMSC endpoint and the optional HTTP proxy in front of it.
package apn

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"
)

// Override keys accepted in a request's configuration override map.
const (
	OverrideMMSC      = "mmsc"
	OverrideProxyHost = "proxy_host"
	OverrideProxyPort = "proxy_port"
)

// Settings holds the transport configuration for one subscription.
type Settings struct {
	MMSC      string
	ProxyHost string
	ProxyPort int
}

// ProxySet reports whether requests must go through the carrier proxy.
func (s Settings) ProxySet() bool { return s.ProxyHost != "" }

// ErrNotFound is returned by a Store when a subscription has no settings.
var ErrNotFound = errors.New("apn settings not found")

// Store supplies base settings per subscription.
type Store interface {
	Get(ctx context.Context, subscriptionID string) (Settings, error)
}

// SettingsError reports that usable APN settings could not be produced.
// It is terminal: a request with broken APN configuration is never retried.
type SettingsError struct {
	SubscriptionID string
	Cause          error
}

func (e *SettingsError) Error() string {
	return fmt.Sprintf("apn settings for subscription %q: %v", e.SubscriptionID, e.Cause)
}

func (e *SettingsError) Unwrap() error { return e.Cause }

// Provider resolves settings by consulting stores in order (database first,
// static config fallback) and applying per-request overrides.
type Provider struct {
	stores []Store
}

// NewProvider creates a Provider over the given stores. Earlier stores win.
func NewProvider(stores ...Store) *Provider {
	return &Provider{stores: stores}
}

// Load returns the merged settings for a subscription, or a *SettingsError.
func (p *Provider) Load(ctx context.Context, subscriptionID string, overrides map[string]string) (Settings, error) {
	var (
		base  Settings
		found bool
	)
	for _, st := range p.stores {
		s, err := st.Get(ctx, subscriptionID)
		if errors.Is(err, ErrNotFound) {
			continue
		}
		if err != nil {
			return Settings{}, &SettingsError{SubscriptionID: subscriptionID, Cause: err}
		}
		base = s
		found = true
		break
	}
	if !found {
		return Settings{}, &SettingsError{SubscriptionID: subscriptionID, Cause: ErrNotFound}
	}

	if v, ok := overrides[OverrideMMSC]; ok {
		base.MMSC = v
	}
	if v, ok := overrides[OverrideProxyHost]; ok {
		base.ProxyHost = v
	}
	if v, ok := overrides[OverrideProxyPort]; ok {
		port, err := strconv.Atoi(v)
		if err != nil {
			return Settings{}, &SettingsError{
				SubscriptionID: subscriptionID,
				Cause:          fmt.Errorf("invalid proxy port %q: %w", v, err),
			}
		}
		base.ProxyPort = port
	}

	if err := validate(base); err != nil {
		return Settings{}, &SettingsError{SubscriptionID: subscriptionID, Cause: err}
	}
	return base, nil
}

func validate(s Settings) error {
	if s.MMSC == "" {
		return errors.New("empty MMSC URL")
	}
	u, err := url.Parse(s.MMSC)
	if err != nil {
		return fmt.Errorf("invalid MMSC URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("unsupported MMSC scheme %q", u.Scheme)
	}
	if u.Host == "" {
		return errors.New("MMSC URL has no host")
	}
	if s.ProxySet() && (s.ProxyPort <= 0 || s.ProxyPort > 65535) {
		return fmt.Errorf("invalid proxy port %d", s.ProxyPort)
	}
	return nil
}

// StaticStore serves settings from configuration.
type StaticStore struct {
	bySub    map[string]Settings
	fallback *Settings
}

// NewStaticStore creates a StaticStore. fallback may be nil.
func NewStaticStore(bySub map[string]Settings, fallback *Settings) *StaticStore {
	return &StaticStore{bySub: bySub, fallback: fallback}
}

func (s *StaticStore) Get(_ context.Context, subscriptionID string) (Settings, error) {
	if v, ok := s.bySub[subscriptionID]; ok {
		return v, nil
	}
	if s.fallback != nil {
		return *s.fallback, nil
	}
	return Settings{}, ErrNotFound
}
