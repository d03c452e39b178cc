package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/gdbrns/go-waha-admin/pkg/env"
	"github.com/gdbrns/go-waha-admin/pkg/log"
)

var version = "dev"

func newRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "waha-admin",
		Short: "Admin panel for a WAHA WhatsApp HTTP API server",
		Long: `waha-admin serves a web admin panel for one WAHA session: connection
settings, session lifecycle, QR pairing, chats, contacts and a debug log.

The subcommands other than serve work against the same settings store and
are meant for setup scripts and headless hosts.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			log.SetLevel(env.GetEnvStringOrDefault("LOG_LEVEL", "info"))
		},
	}

	rootCmd.AddCommand(newServeCommand())
	rootCmd.AddCommand(newActivateCommand())
	rootCmd.AddCommand(newDeactivateCommand())
	rootCmd.AddCommand(newStatusCommand())
	rootCmd.AddCommand(newQRCommand())

	return rootCmd
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCommand().ExecuteContext(ctx); err != nil {
		log.Print(nil).Error(err.Error())
		stop()
		os.Exit(1)
	}
}
