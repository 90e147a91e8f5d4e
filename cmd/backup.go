package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"mqtt-panel/config"
	"mqtt-panel/internal/di"
	"mqtt-panel/models"

	"github.com/spf13/cobra"
)

var importMode string

var exportCmd = &cobra.Command{
	Use:   "export <file>",
	Short: "Write the stored dashboard configuration to a backup file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		container, err := offlineContainer()
		if err != nil {
			return err
		}
		defer container.Cleanup()

		ctx, cancel := interrupted()
		defer cancel()
		backup, err := container.Backup.Export(ctx)
		if err != nil {
			return err
		}
		data, err := json.MarshalIndent(backup, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to encode backup: %w", err)
		}
		if err := os.WriteFile(args[0], data, 0o644); err != nil {
			return fmt.Errorf("failed to write %s: %w", args[0], err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "exported %d connections to %s\n", len(backup.Connections), args[0])
		return nil
	},
}

var importCmd = &cobra.Command{
	Use:   "import <file>",
	Short: "Apply a backup file to the stored dashboard configuration",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := os.ReadFile(args[0])
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", args[0], err)
		}
		var backup models.Backup
		if err := json.Unmarshal(data, &backup); err != nil {
			return fmt.Errorf("failed to decode %s: %w", args[0], err)
		}

		container, err := offlineContainer()
		if err != nil {
			return err
		}
		defer container.Cleanup()

		ctx, cancel := interrupted()
		defer cancel()
		result, err := container.Backup.Import(ctx, &backup, models.ImportMode(importMode))
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "imported (%s): %d connections, %d switches, %d buttons, %d uri launchers, %d skipped\n",
			result.Mode, result.Connections, result.Switches, result.ButtonPanels, result.UriLaunchers, result.Skipped)
		return nil
	},
}

func init() {
	importCmd.Flags().StringVar(&importMode, "mode", string(models.ImportMerge), "merge or replace")
}

// offlineContainer loads the registries without opening broker sessions.
func offlineContainer() (*di.Container, error) {
	cfg, err := config.Load(configFile)
	if err != nil {
		return nil, err
	}
	ctx, cancel := interrupted()
	defer cancel()
	container, err := di.NewContainer(ctx, cfg)
	if err != nil {
		return nil, err
	}
	if err := container.Manager.Load(ctx); err != nil {
		container.Cleanup()
		return nil, err
	}
	container.Backup.DisableAutoConnect()
	return container, nil
}
