// Package executor owns one request's lifecycle from dispatch to terminal
// result: the retry loop, candidate-address fallback, backoff, and error
// classification.
package executor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/openmms/mmsd/internal/core/domain"
	"github.com/openmms/mmsd/internal/dispatch/metrics"
	"github.com/openmms/mmsd/internal/dispatch/netlease"
	"github.com/openmms/mmsd/internal/dispatch/resolver"
	"github.com/openmms/mmsd/internal/dispatch/transport"
	"github.com/openmms/mmsd/internal/infra/apn"
)

// LeaseManager is the network-acquisition collaborator.
type LeaseManager interface {
	Acquire(ctx context.Context) error
	Release()
	Network() netlease.Network
}

// APNSource loads the transport configuration for a subscription.
type APNSource interface {
	Load(ctx context.Context, subscriptionID string, overrides map[string]string) (apn.Settings, error)
}

// Reporter receives the terminal result, exactly once per request.
type Reporter interface {
	Report(ctx context.Context, req *domain.Request, res domain.RequestResult)
}

// Config tunes the retry loop.
type Config struct {
	// RetryLimit is the total number of attempts, including the first.
	RetryLimit int

	// RetryUnit scales the backoff: the delay before the second attempt is
	// two units and doubles after every retryable failure.
	RetryUnit time.Duration

	// AttemptTimeout bounds one full attempt (lease + resolve + transport).
	// Zero means no per-attempt bound.
	AttemptTimeout time.Duration
}

// DefaultConfig matches the carrier-recommended dispatch behavior.
var DefaultConfig = Config{
	RetryLimit:     3,
	RetryUnit:      time.Second,
	AttemptTimeout: 2 * time.Minute,
}

// Executor drives the retry/fallback state machine for requests.
type Executor struct {
	cfg      Config
	leases   LeaseManager
	apn      APNSource
	client   transport.Client
	reporter Reporter

	// sleep is swapped out in tests to observe the backoff schedule.
	sleep func(ctx context.Context, d time.Duration)
}

// New creates an Executor.
func New(cfg Config, leases LeaseManager, apnSource APNSource, client transport.Client, reporter Reporter) *Executor {
	if cfg.RetryLimit <= 0 {
		cfg.RetryLimit = DefaultConfig.RetryLimit
	}
	if cfg.RetryUnit <= 0 {
		cfg.RetryUnit = DefaultConfig.RetryUnit
	}
	return &Executor{
		cfg:      cfg,
		leases:   leases,
		apn:      apnSource,
		client:   client,
		reporter: reporter,
		sleep:    sleepCtx,
	}
}

func sleepCtx(ctx context.Context, d time.Duration) {
	select {
	case <-ctx.Done():
		// Interrupted sleep is non-fatal: proceed to the next attempt.
	case <-time.After(d):
	}
}

// Run executes the request to a terminal result and hands it to the
// reporter. It never returns an error past its own boundary.
func (e *Executor) Run(ctx context.Context, req *domain.Request) domain.RequestResult {
	res := e.execute(ctx, req)
	e.reporter.Report(ctx, req, res)
	return res
}

func (e *Executor) execute(ctx context.Context, req *domain.Request) domain.RequestResult {
	var (
		code  domain.ResultCode
		resp  []byte
		delay = 2 * e.cfg.RetryUnit
	)

	for attempt := 0; attempt < e.cfg.RetryLimit; attempt++ {
		start := time.Now()
		payload, err := e.attempt(ctx, req)
		metrics.AttemptDuration.WithLabelValues(string(req.Kind)).Observe(time.Since(start).Seconds())

		if err == nil {
			metrics.AttemptsTotal.WithLabelValues(string(req.Kind), "ok").Inc()
			return domain.RequestResult{Code: domain.ResultOK, Response: payload}
		}

		var terminal bool
		code, terminal = classify(err)
		metrics.AttemptsTotal.WithLabelValues(string(req.Kind), string(code)).Inc()
		slog.Error("dispatch attempt failed",
			"transaction_id", req.TransactionID,
			"kind", req.Kind,
			"attempt", attempt+1,
			"code", code,
			"terminal", terminal,
			"error", err)

		if terminal {
			return domain.RequestResult{Code: code}
		}
		if attempt == e.cfg.RetryLimit-1 {
			break
		}

		e.sleep(ctx, delay)
		delay <<= 1
	}

	// Retry budget exhausted: the last classified retryable code stands.
	return domain.RequestResult{Code: code, Response: resp}
}

// attempt runs one full attempt: lease the network, load APN settings,
// resolve candidates, and fall back across them in order.
func (e *Executor) attempt(ctx context.Context, req *domain.Request) ([]byte, error) {
	if e.cfg.AttemptTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.cfg.AttemptTimeout)
		defer cancel()
	}

	if err := e.leases.Acquire(ctx); err != nil {
		return nil, err
	}
	defer e.leases.Release()

	settings, err := e.apn.Load(ctx, req.SubscriptionID, req.Overrides)
	if err != nil {
		return nil, err
	}

	dst, method, err := destination(req, settings)
	if err != nil {
		return nil, err
	}

	host := dst.Hostname()
	if settings.ProxySet() {
		host = settings.ProxyHost
	}

	network := e.leases.Network()
	var mask resolver.FamilyMask
	if network != nil {
		mask = resolver.MaskOf(network.Addrs())
	}

	candidates, err := resolver.Resolve(ctx, network, host, mask)
	if err != nil {
		return nil, err
	}
	slog.Debug("resolved candidates",
		"transaction_id", req.TransactionID, "host", host, "families", mask, "count", len(candidates))

	var lastErr error
	for _, cand := range candidates {
		payload, err := e.client.Do(ctx, transport.Exchange{
			URL:       dst.String(),
			Method:    method,
			Body:      req.Payload,
			Candidate: cand,
			UseProxy:  settings.ProxySet(),
			ProxyHost: settings.ProxyHost,
			ProxyPort: settings.ProxyPort,
			Network:   network,
		})
		if err == nil {
			// First successful candidate wins.
			return payload, nil
		}

		var trErr *transport.Error
		if !errors.As(err, &trErr) {
			// Non-address-specific fatal condition.
			return nil, err
		}
		lastErr = err
		slog.Warn("candidate failed, trying next",
			"transaction_id", req.TransactionID, "candidate", cand, "error", err)
	}
	return nil, lastErr
}

// destination derives the URL and HTTP method for the operation kind.
func destination(req *domain.Request, settings apn.Settings) (*url.URL, string, error) {
	switch req.Kind {
	case domain.KindSend:
		u, err := url.Parse(settings.MMSC)
		if err != nil {
			return nil, "", fmt.Errorf("parse MMSC URL: %w", err)
		}
		return u, http.MethodPost, nil
	case domain.KindDownload:
		u, err := url.Parse(req.ContentURL)
		if err != nil {
			return nil, "", fmt.Errorf("parse content URL: %w", err)
		}
		if u.Host == "" {
			return nil, "", fmt.Errorf("download request %s has no content URL", req.TransactionID)
		}
		return u, http.MethodGet, nil
	default:
		return nil, "", fmt.Errorf("unknown operation kind %q", req.Kind)
	}
}

// classify maps an attempt failure to its result code and whether it ends
// the request immediately. Only APN/configuration failures and unexpected
// faults short-circuit; everything else is absorbed into the retry budget.
func classify(err error) (domain.ResultCode, bool) {
	var (
		apnErr *apn.SettingsError
		acqErr *netlease.AcquireError
		resErr *resolver.ResolutionError
		trErr  *transport.Error
	)
	switch {
	case errors.As(err, &apnErr):
		return domain.ResultInvalidAPN, true
	case errors.As(err, &acqErr):
		return domain.ResultUnableToConnect, false
	case errors.As(err, &resErr), errors.As(err, &trErr):
		return domain.ResultHTTPFailure, false
	default:
		return domain.ResultUnspecified, true
	}
}
