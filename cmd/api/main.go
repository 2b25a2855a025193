package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/spf13/pflag"

	"github.com/melih/lighthouse-bridge/internal/adapters/builder"
	"github.com/melih/lighthouse-bridge/internal/adapters/docker"
	"github.com/melih/lighthouse-bridge/internal/adapters/http"
	"github.com/melih/lighthouse-bridge/internal/adapters/local"
	"github.com/melih/lighthouse-bridge/internal/adapters/wsl"
	"github.com/melih/lighthouse-bridge/internal/config"
	"github.com/melih/lighthouse-bridge/internal/core/domain"
	"github.com/melih/lighthouse-bridge/internal/core/ports"
	"github.com/melih/lighthouse-bridge/internal/core/services"
)

func main() {
	var (
		configPath string
		listen     string
	)
	pflag.StringVar(&configPath, "config", "", "path to config file (default $"+config.EnvVar+")")
	pflag.StringVar(&listen, "listen", "", "override the configured listen address")
	pflag.Parse()

	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if listen != "" {
		cfg.Listen = listen
	}
	logger := newLogger(cfg)
	slog.SetDefault(logger)

	// 1. Register backends
	svc := services.NewEnvironmentService(logger)
	svc.Register(domain.BackendLocal, local.Constructor(logger))

	if cfg.WSL.Enabled {
		policy, err := wsl.ParseWorkdirPolicy(cfg.WSL.WorkdirPolicy)
		if err != nil {
			log.Fatalf("Invalid wsl config: %v", err)
		}
		dist := wsl.NewDistribution(cfg.WSL.Distribution, cfg.WSL.Executable, cfg.WSL.MountRoot)
		svc.Register(domain.BackendWSL, wsl.Constructor(dist, wsl.WithLogger(logger), wsl.WithWorkdirPolicy(policy)))
	}

	if cfg.Docker.Enabled {
		var imageBuilder ports.ImageBuilder
		if cfg.Docker.Build {
			b, err := builder.NewBuilderAdapter(logger)
			if err != nil {
				log.Fatalf("Failed to initialize builder: %v", err)
			}
			imageBuilder = b
		}
		dockerAdapter, err := docker.NewAdapter(imageBuilder, docker.Options{
			Image:      cfg.Docker.Image,
			TargetRoot: cfg.Docker.TargetRoot,
			Logger:     logger,
		})
		if err != nil {
			log.Fatalf("Failed to initialize Docker adapter: %v", err)
		}
		svc.Register(domain.BackendDocker, dockerAdapter.Constructor())
	}

	// 2. HTTP surface
	app := fiber.New(fiber.Config{DisableStartupMessage: true})
	http.NewEnvironmentHandler(svc).Routes(app.Group("/api/v1"))

	// 3. Shut environments down with the server
	go func() {
		sig := make(chan os.Signal, 1)
		signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
		<-sig
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := svc.ShutdownAll(ctx); err != nil {
			logger.Warn("environment shutdown failed", "error", err)
		}
		if err := app.ShutdownWithContext(ctx); err != nil {
			logger.Warn("server shutdown failed", "error", err)
		}
	}()

	logger.Info("server starting", "listen", cfg.Listen, "backends", svc.Kinds())
	if err := app.Listen(cfg.Listen); err != nil {
		log.Fatalf("Server failed to start: %v", err)
	}
}

func newLogger(cfg *config.Config) *slog.Logger {
	level, _ := cfg.Level()
	opts := &slog.HandlerOptions{Level: level}
	if cfg.LogFormat == "json" {
		return slog.New(slog.NewJSONHandler(os.Stderr, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stderr, opts))
}
