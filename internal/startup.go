package internal

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/gdbrns/go-waha-admin/internal/ajax"
	"github.com/gdbrns/go-waha-admin/pkg/env"
	"github.com/gdbrns/go-waha-admin/pkg/log"
	"github.com/gdbrns/go-waha-admin/pkg/settings"
	"github.com/gdbrns/go-waha-admin/pkg/waha"
)

// errAutoStart marks a start call that WAHA answered with a failure.
var errAutoStart = errors.New("auto-start failed")

// reconcile starts the session when auto-start is enabled and WAHA reports
// it disconnected. It returns the observed status and whether a start was
// sent. Nothing is sent to WAHA while auto-start is off.
func reconcile(ctx context.Context, deps Deps) (waha.SessionStatus, bool, error) {
	client, err := deps.Client(ctx)
	if err != nil {
		return waha.SessionStatus{}, false, err
	}
	cfg := client.Config()
	if !cfg.AutoStart {
		return waha.SessionStatus{}, false, nil
	}

	status, res := client.CheckStatus(ctx)
	switch status.UIState {
	case waha.StateError:
		return status, false, res.Err
	case waha.StateDisconnected:
	default:
		return status, false, nil
	}

	res = client.Call(ctx, waha.OpStart, ajax.StartBody(cfg), nil)
	if !res.Success {
		if res.Err != nil {
			return status, false, res.Err
		}
		return status, false, errAutoStart
	}
	deps.Debug.Info("Auto-start: session %s started", cfg.Session())
	return status, true, nil
}

// reconcileWithRetry runs reconcile up to attempts times, backing off
// exponentially between transport failures. A zero maxElapsed leaves the
// total time bounded by ctx only.
func reconcileWithRetry(ctx context.Context, deps Deps, attempts int, baseBackoff, maxBackoff, maxElapsed time.Duration) (bool, error) {
	if attempts < 1 {
		attempts = 1
	}
	if baseBackoff <= 0 {
		baseBackoff = 2 * time.Second
	}
	if maxBackoff <= 0 {
		maxBackoff = 30 * time.Second
	}

	expo := backoff.NewExponentialBackOff()
	expo.InitialInterval = baseBackoff
	expo.MaxInterval = maxBackoff
	expo.MaxElapsedTime = maxElapsed
	policy := backoff.WithContext(backoff.WithMaxRetries(expo, uint64(attempts-1)), ctx)

	var started bool
	err := backoff.RetryNotify(func() error {
		var err error
		_, started, err = reconcile(ctx, deps)
		if err != nil && !waha.IsTransport(err) {
			return backoff.Permanent(err)
		}
		return err
	}, policy, func(err error, wait time.Duration) {
		log.Print(nil).WithField("retry_in", wait.String()).Warn("Auto-start reconcile failed: " + err.Error())
	})
	if err != nil {
		return false, err
	}
	return started, nil
}

// Startup seeds the default settings and, when auto-start is enabled,
// starts a disconnected session.
func Startup(ctx context.Context, deps Deps) {
	log.Print(nil).Info("Running Startup Tasks")

	if err := settings.Seed(ctx, deps.Settings); err != nil {
		log.Print(nil).Error("Failed to seed settings: " + err.Error())
		return
	}

	retries := env.GetEnvIntOrDefault("WAHA_STARTUP_RETRIES", 3, 1)
	baseBackoff := env.GetEnvDurationOrDefault("WAHA_STARTUP_BACKOFF_BASE", 2*time.Second)
	maxBackoff := env.GetEnvDurationOrDefault("WAHA_STARTUP_BACKOFF_MAX", 30*time.Second)
	maxElapsed := env.GetEnvDurationOrDefault("WAHA_STARTUP_MAX_ELAPSED", 2*time.Minute)

	started, err := reconcileWithRetry(ctx, deps, retries, baseBackoff, maxBackoff, maxElapsed)
	if err != nil {
		deps.Debug.Warn("Auto-start on startup failed: %s", err.Error())
		return
	}
	log.Print(nil).WithField("started", started).WithField("retries", retries).Info("Startup auto-start pass complete")
}
