package main

import (
	"github.com/agriconnectke/marketplace-service/internal/pkg/database"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newMigrateCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations",
		RunE: func(cmd *cobra.Command, _ []string) error {
			db, err := openDatabase(c.cfg)
			if err != nil {
				return err
			}
			defer db.Close()

			applied, err := database.Migrate(cmd.Context(), db)
			if err != nil {
				return err
			}
			if len(applied) == 0 {
				c.log.Info("No migrations to apply")
				return nil
			}
			c.log.Info("Migrations applied", zap.Strings("versions", applied))
			return nil
		},
	}
}
