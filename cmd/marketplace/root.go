package main

import (
	"github.com/agriconnectke/marketplace-service/config"
	"github.com/agriconnectke/marketplace-service/internal/pkg/logger"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

type cli struct {
	cfg *config.Config
	log logger.ZapLogger
}

func newRootCmd() *cobra.Command {
	c := &cli{}
	root := &cobra.Command{
		Use:          "marketplace",
		Short:        "Agricultural marketplace API",
		SilenceUsage: true,
		PersistentPreRun: func(*cobra.Command, []string) {
			_ = godotenv.Load()
			c.cfg = config.LoadEnv()
			c.log = newLogger(c.cfg)
		},
		PersistentPostRun: func(*cobra.Command, []string) {
			_ = c.log.Sync()
		},
	}
	root.AddCommand(
		newServeCmd(c),
		newMigrateCmd(c),
		newCreateSuperuserCmd(c),
		newSeedCmd(c),
	)
	return root
}

func newLogger(cfg *config.Config) logger.ZapLogger {
	logConfig := &logger.ZapLoggerConfig{
		Encoding:          "json",
		Level:             cfg.Logger.Level,
		DisableCaller:     cfg.Logger.DisableCaller,
		DisableStacktrace: cfg.Logger.DisableStacktrace,
	}
	if cfg.Server.AppEnv == "development" {
		logConfig.IsDevelopment = true
		logConfig.Encoding = "console"
		logConfig.Level = "debug"
	} else if cfg.Logger.Encoding != "" {
		logConfig.Encoding = cfg.Logger.Encoding
	}
	return logger.NewZapLogger(logConfig)
}
