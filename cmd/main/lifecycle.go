package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/gdbrns/go-waha-admin/internal"
	"github.com/gdbrns/go-waha-admin/pkg/settings"
)

func newActivateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "activate",
		Short: "Seed default settings without overwriting existing values",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := internal.OpenSettings()
			if err != nil {
				return err
			}
			defer store.Close()

			if err := settings.Seed(cmd.Context(), store); err != nil {
				return fmt.Errorf("failed to seed settings: %w", err)
			}
			internal.DebugFileFromEnv().Info("Settings activated")

			all, err := store.All(cmd.Context())
			if err != nil {
				return err
			}
			for _, key := range settings.Keys {
				fmt.Fprintf(cmd.OutOrStdout(), "%-16s %q\n", key, all[key])
			}
			return nil
		},
	}
}

func newDeactivateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "deactivate",
		Short: "Remove the debug log file",
		Long:  "Remove the debug log file. Stored settings are kept.",
		RunE: func(cmd *cobra.Command, args []string) error {
			debug := internal.DebugFileFromEnv()
			if err := debug.Remove(); err != nil {
				return fmt.Errorf("failed to remove %s: %w", debug.Path(), err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed %s\n", debug.Path())
			return nil
		},
	}
}
