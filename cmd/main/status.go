package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/gdbrns/go-waha-admin/internal"
	"github.com/gdbrns/go-waha-admin/internal/session"
	"github.com/gdbrns/go-waha-admin/pkg/settings"
	"github.com/gdbrns/go-waha-admin/pkg/waha"
)

var errSessionError = errors.New("session status check failed")

func newStatusCommand() *cobra.Command {
	var watch bool
	var asJSON bool
	var interval time.Duration

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show the WAHA session status",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := internal.OpenSettings()
			if err != nil {
				return err
			}
			defer store.Close()

			checker := statusChecker(store, internal.TransportFromEnv())
			show := func(status waha.SessionStatus) {
				printStatus(cmd.OutOrStdout(), status, asJSON)
			}

			if !watch {
				status, _ := checker.CheckStatus(cmd.Context())
				show(status)
				if status.UIState == waha.StateError {
					return errSessionError
				}
				return nil
			}

			monitor := session.NewMonitor(interval, show)
			monitor.Start(cmd.Context(), checker)
			<-cmd.Context().Done()
			monitor.Stop()
			return nil
		},
	}

	cmd.Flags().BoolVarP(&watch, "watch", "w", false, "keep polling until interrupted")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print each status as a JSON object")
	cmd.Flags().DurationVar(&interval, "interval", session.DefaultInterval, "poll interval in watch mode")
	return cmd
}

// statusChecker reloads the settings before every check so a watch picks up
// changes saved from the admin pages.
func statusChecker(store settings.Store, transport *waha.Transport) session.CheckerFunc {
	deps := internal.Deps{Settings: store, Transport: transport}
	return func(ctx context.Context) (waha.SessionStatus, *waha.Result) {
		client, err := deps.Client(ctx)
		if err != nil {
			return waha.SessionStatus{UIState: waha.StateError, Message: err.Error()}, nil
		}
		return client.CheckStatus(ctx)
	}
}

func printStatus(w io.Writer, status waha.SessionStatus, asJSON bool) {
	if asJSON {
		_ = json.NewEncoder(w).Encode(status)
		return
	}
	raw := status.RawState
	if raw == "" {
		raw = "-"
	}
	fmt.Fprintf(w, "%s  %-12s %-14s %s\n", time.Now().Format(time.TimeOnly), status.UIState, raw, status.Message)
}
