package cli

import (
	"fmt"

	"github.com/apk-analysis/apk-fingerprint-go/internal/repository"
	"github.com/spf13/cobra"
)

func newMigrateCmd(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the scan history tables",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := loadConfig(cmd, root, true)
			if err != nil {
				return err
			}

			// InitDB 内部执行 AutoMigrate
			db, err := repository.InitDB(&cfg.Database, logger)
			if err != nil {
				return fmt.Errorf("failed to migrate: %w", err)
			}
			if sqlDB, err := db.DB(); err == nil {
				sqlDB.Close()
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Migration completed (%s)\n", cfg.Database.Type)
			return nil
		},
	}
}
