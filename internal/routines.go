package internal

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"golang.org/x/time/rate"

	"github.com/gdbrns/go-waha-admin/pkg/env"
	"github.com/gdbrns/go-waha-admin/pkg/log"
	"github.com/gdbrns/go-waha-admin/pkg/waha"
)

const (
	defaultStatusCronSpec  = "*/30 * * * * *"
	defaultCleanupCronSpec = "0 0 3 * * *"
	debugLogKeepLines      = 1000
)

func Routines(c *cron.Cron, deps Deps) {
	log.Print(nil).Info("Running Routine Tasks")

	if env.GetEnvBoolOrDefault("WAHA_ENABLE_STATUS_CRON", true) {
		spec := env.GetEnvStringOrDefault("STATUS_POLL_CRON_SPEC", defaultStatusCronSpec)
		_, err := c.AddFunc(spec, statusRoutine(deps))
		if err != nil {
			log.Print(nil).WithField("error", err.Error()).Error("Failed to add session status cron job")
		} else {
			log.Print(nil).WithField("spec", spec).Info("Session status cron enabled")
		}
	} else {
		log.Print(nil).Info("Session status cron disabled; auto-start only runs on startup")
	}

	if env.GetEnvBoolOrDefault("WAHA_ENABLE_LOG_CLEANUP_CRON", true) {
		spec := env.GetEnvStringOrDefault("LOG_CLEANUP_CRON_SPEC", defaultCleanupCronSpec)
		_, err := c.AddFunc(spec, func() {
			if err := deps.Debug.Trim(debugLogKeepLines); err != nil {
				log.Print(nil).WithField("path", deps.Debug.Path()).Error("Debug log cleanup failed: " + err.Error())
			}
		})
		if err != nil {
			log.Print(nil).WithField("error", err.Error()).Error("Failed to add debug log cleanup cron job")
		}
	}

	c.Start()
}

// statusRoutine reconciles the session with the auto-start setting. Failures
// are logged at most once every five minutes while WAHA stays unreachable.
func statusRoutine(deps Deps) func() {
	failures := &rate.Sometimes{Interval: 5 * time.Minute}
	var last waha.UIState

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		status, started, err := reconcile(ctx, deps)
		if err != nil {
			failures.Do(func() {
				deps.Debug.Warn("Session status routine failed: %s", err.Error())
			})
			return
		}
		if status.UIState != "" && status.UIState != last {
			log.Print(nil).WithField("status", status.UIState).WithField("raw", status.RawState).Info("Session status changed")
			last = status.UIState
		}
		if started {
			log.Print(nil).Info("Session restarted by auto-start routine")
		}
	}
}
