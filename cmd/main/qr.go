package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/mdp/qrterminal/v3"
	"github.com/spf13/cobra"
	"github.com/vincent-petithory/dataurl"

	"github.com/gdbrns/go-waha-admin/internal"
	"github.com/gdbrns/go-waha-admin/internal/qr"
	"github.com/gdbrns/go-waha-admin/internal/session"
	"github.com/gdbrns/go-waha-admin/pkg/waha"
)

var errQRExpired = errors.New("QR code expired before the session connected")

func newQRCommand() *cobra.Command {
	var out string
	var interval time.Duration

	cmd := &cobra.Command{
		Use:   "qr",
		Short: "Fetch a pairing QR code and wait for the session to connect",
		Long: `Fetch a pairing QR code from WAHA. Text payloads are drawn in the terminal;
image payloads need --out. The command waits until the session connects, the
code expires or it is interrupted.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := internal.OpenSettings()
			if err != nil {
				return err
			}
			defer store.Close()

			debug := internal.DebugFileFromEnv()
			deps := internal.Deps{Settings: store, Transport: internal.TransportFromEnv()}
			client, err := deps.Client(cmd.Context())
			if err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			coordinator := qr.New(internal.QROptionsFromEnv(debug))
			defer coordinator.Cancel()

			snap := coordinator.Request(cmd.Context(), client)
			if snap.State != qr.StateDisplayed {
				return fmt.Errorf("could not get QR code: %s", snap.Error)
			}
			if err := showChallenge(w, *snap.Challenge, out); err != nil {
				return err
			}

			connected := make(chan struct{}, 1)
			monitor := session.NewMonitor(interval, func(status waha.SessionStatus) {
				if status.UIState == waha.StateConnected {
					select {
					case connected <- struct{}{}:
					default:
					}
				}
			})
			monitor.Start(cmd.Context(), client)
			defer monitor.Stop()

			ticker := time.NewTicker(time.Second)
			defer ticker.Stop()
			for {
				select {
				case <-connected:
					fmt.Fprintln(w, "Session connected.")
					return nil
				case <-cmd.Context().Done():
					return cmd.Context().Err()
				case <-ticker.C:
					if coordinator.Snapshot().State != qr.StateExpired {
						continue
					}
					// One last look in case the scan landed between polls.
					if status, ok := monitor.Refresh(cmd.Context(), client); ok && status.UIState == waha.StateConnected {
						fmt.Fprintln(w, "Session connected.")
						return nil
					}
					if last, ok := monitor.Last(); ok {
						return fmt.Errorf("%w (last status: %s)", errQRExpired, last.UIState)
					}
					return errQRExpired
				}
			}
		},
	}

	cmd.Flags().StringVarP(&out, "out", "o", "", "write the QR code as an image file")
	cmd.Flags().DurationVar(&interval, "interval", 5*time.Second, "status poll interval while waiting")
	return cmd
}

// showChallenge prints the challenge the best way the terminal allows: text
// payloads as a drawn QR code, image payloads through --out and anything
// unrecognized as the raw payload.
func showChallenge(w io.Writer, challenge waha.QRChallenge, out string) error {
	switch challenge.Format {
	case waha.FormatText:
		qrterminal.GenerateHalfBlock(challenge.Payload, qrterminal.L, w)
	case waha.FormatUnknown:
		fmt.Fprintln(w, "Unrecognized QR payload:")
		fmt.Fprintln(w, challenge.Payload)
	}

	switch {
	case out != "" && challenge.Format != waha.FormatUnknown:
		if err := writeQRImage(out, challenge); err != nil {
			return err
		}
		fmt.Fprintf(w, "QR image written to %s\n", out)
	case challenge.Format == waha.FormatImage:
		fmt.Fprintln(w, "The QR code is an image; run again with --out to save it.")
	}
	fmt.Fprintf(w, "Scan with WhatsApp within %d seconds.\n", challenge.ExpiresInSeconds)
	return nil
}

func writeQRImage(path string, challenge waha.QRChallenge) error {
	src := waha.ImageSrc(challenge)
	if src == "" {
		return fmt.Errorf("QR payload of format %s cannot be saved as an image", challenge.Format)
	}
	du, err := dataurl.DecodeString(src)
	if err != nil {
		return fmt.Errorf("invalid QR image: %w", err)
	}
	return os.WriteFile(path, du.Data, 0o644)
}
