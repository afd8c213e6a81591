package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"montoit/internal/app"
	"montoit/internal/config"
	"montoit/internal/jobs/background"
	"montoit/internal/logger"
	"montoit/internal/middleware"

	"go.uber.org/zap"
)

const version = "1.0.0"

// @title           Mon Toit API
// @version         1.0
// @description     Rental marketplace for Côte d'Ivoire.
// @BasePath        /v1

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

func main() {
	configPath := flag.String("config", "montoit.toml", "path to the TOML configuration file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.Build(cfg.App.Env, cfg.App.LogLevel, cfg.App.LogFormat, "montoit-api")
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	if err := run(cfg, log); err != nil {
		log.Fatal("Server stopped with error", zap.Error(err))
	}
}

func run(cfg *config.Config, log *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.Auth.GeneratedSecret {
		log.Warn("JWT_SECRET not set, using a generated secret; tokens will not survive a restart")
	}
	if cfg.Payments.WebhookSecret == "" {
		log.Warn("PAYMENT_WEBHOOK_SECRET not set, every mobile money webhook will be rejected")
	}

	container, err := app.NewContainer(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer container.Close()
	container.EnsureBuckets(ctx)

	authMW, err := middleware.NewAuthMiddleware(container.Services.Auth, container.Repos.Users, cfg.Backend.JWKSURL, log.Named("auth"))
	if err != nil {
		return err
	}
	defer authMW.Close()

	scheduler, err := background.NewJobScheduler(container.Services.MaintenanceTasks(container.Repos, log), log.Named("scheduler"))
	if err != nil {
		return err
	}
	scheduler.Start()
	container.Jobs = scheduler
	defer func() {
		if err := scheduler.Stop(); err != nil {
			log.Warn("Scheduler shutdown failed", zap.Error(err))
		}
	}()

	app.Version = version
	e := app.NewEcho(log)
	app.RegisterRoutes(e, container, authMW)

	addr := fmt.Sprintf(":%d", cfg.App.Port)
	serverErr := make(chan error, 1)
	go func() {
		log.Info("Mon Toit server starting", zap.String("version", version), zap.String("addr", addr), zap.String("env", cfg.App.Env))
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	select {
	case err := <-serverErr:
		return err
	case <-ctx.Done():
	}

	log.Info("Shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return e.Shutdown(shutdownCtx)
}
