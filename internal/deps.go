package internal

import (
	"context"
	"time"

	"github.com/gdbrns/go-waha-admin/internal/qr"
	"github.com/gdbrns/go-waha-admin/pkg/auth"
	"github.com/gdbrns/go-waha-admin/pkg/env"
	"github.com/gdbrns/go-waha-admin/pkg/log"
	"github.com/gdbrns/go-waha-admin/pkg/settings"
	"github.com/gdbrns/go-waha-admin/pkg/waha"
)

// Deps is everything the routes, startup tasks and routines share. It is
// built once in main and passed down explicitly.
type Deps struct {
	Settings     settings.Store
	Transport    *waha.Transport
	QR           *qr.Coordinator
	Debug        *log.DebugFile
	Auth         auth.Config
	Nonces       *auth.Nonces
	RestartDelay time.Duration
}

// Client loads the current settings and binds them to the shared transport.
func (d Deps) Client(ctx context.Context) (*waha.Client, error) {
	cfg, err := settings.LoadConfig(ctx, d.Settings)
	if err != nil {
		return nil, err
	}
	return waha.NewClient(cfg, d.Transport), nil
}

// OpenSettings opens the store selected by SETTINGS_DATASTORE_TYPE and
// SETTINGS_DATASTORE_URI.
func OpenSettings() (settings.Store, error) {
	driver := env.GetEnvStringOrDefault("SETTINGS_DATASTORE_TYPE", "sqlite")
	dsn := env.GetEnvStringOrDefault("SETTINGS_DATASTORE_URI", "data/settings.db")
	return settings.Open(driver, dsn)
}

func DebugFileFromEnv() *log.DebugFile {
	return log.NewDebugFile(env.GetEnvStringOrDefault("DEBUG_LOG_PATH", "data/wa-debug.log"))
}

func TransportFromEnv() *waha.Transport {
	return waha.NewTransport(waha.TransportOptions{
		APIKey:         env.GetEnvStringOrDefault("WAHA_API_KEY", ""),
		Timeout:        env.GetEnvDurationOrDefault("WAHA_TIMEOUT", waha.DefaultTimeout),
		ConnectTimeout: env.GetEnvDurationOrDefault("WAHA_CONNECT_TIMEOUT", waha.DefaultConnectTimeout),
		InsecureTLS:    env.GetEnvBoolOrDefault("WAHA_TLS_INSECURE", false),
		Logger:         log.Print(nil).WithField("component", "waha"),
	})
}

// QROptionsFromEnv reads QR_MAX_ATTEMPTS and QR_RETRY_BACKOFF. State
// transitions are written to debug when it is not nil.
func QROptionsFromEnv(debug *log.DebugFile) qr.Options {
	return qr.Options{
		MaxAttempts: env.GetEnvIntOrDefault("QR_MAX_ATTEMPTS", qr.DefaultMaxAttempts, 1),
		Backoff:     env.GetEnvDurationOrDefault("QR_RETRY_BACKOFF", qr.DefaultBackoff),
		OnChange:    qrTransitionLogger(debug),
	}
}

// qrTransitionLogger logs state changes only, not countdown ticks. It runs
// under the coordinator lock, so the last state needs no guard.
func qrTransitionLogger(debug *log.DebugFile) func(qr.Snapshot) {
	if debug == nil {
		return nil
	}
	var last qr.State
	return func(snap qr.Snapshot) {
		if snap.State == last {
			return
		}
		last = snap.State
		switch snap.State {
		case qr.StateError:
			debug.Warn("QR request %d failed after %d attempts: %s", snap.Generation, snap.Attempts, snap.Error)
		case qr.StateDisplayed:
			debug.Info("QR request %d displayed, expires in %ds", snap.Generation, snap.RemainingSeconds)
		default:
			debug.Info("QR request %d is %s", snap.Generation, snap.State)
		}
	}
}
