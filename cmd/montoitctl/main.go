package main

import (
	"context"
	"fmt"
	"os"

	"montoit/internal/app"
	"montoit/internal/config"
	"montoit/internal/logger"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var configFile string

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:           "montoitctl",
	Short:         "Mon Toit operator tools",
	Long:          "Operator commands for Mon Toit: applicant scoring, MFA compliance audits and on-demand maintenance jobs.",
	SilenceUsage:  true,
	SilenceErrors: true,
}

// withContainer loads the configuration, connects the backing services and runs fn
func withContainer(ctx context.Context, fn func(*app.Container) error) error {
	cfg, err := config.Load(configFile)
	if err != nil {
		return err
	}
	log, err := logger.Build(cfg.App.Env, cfg.App.LogLevel, cfg.App.LogFormat, "montoitctl")
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	container, err := app.NewContainer(ctx, cfg, log.WithOptions(zap.IncreaseLevel(zap.WarnLevel)))
	if err != nil {
		return err
	}
	defer container.Close()
	return fn(container)
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "montoit.toml", "Path to config file")

	rootCmd.AddCommand(scoreCmd)
	rootCmd.AddCommand(mfaAuditCmd)
	rootCmd.AddCommand(runJobCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
