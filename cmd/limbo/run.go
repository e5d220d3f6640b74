package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/limbomc/limbo/internal/config"
	"github.com/limbomc/limbo/internal/data"
	"github.com/limbomc/limbo/internal/handler"
	"github.com/limbomc/limbo/internal/metrics"
	gonet "github.com/limbomc/limbo/internal/net"
	"github.com/limbomc/limbo/internal/net/packet"
	"github.com/limbomc/limbo/internal/player"
	"github.com/limbomc/limbo/internal/scripting"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/sync/errgroup"
)

func run(ctx context.Context, configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	log, err := newLogger(cfg.Logging)
	if err != nil {
		return fmt.Errorf("create logger: %w", err)
	}
	defer log.Sync() //nolint:errcheck

	if cfg.Logging.Format == "console" {
		printBanner(cfg)
	}
	if cfg.Created {
		log.Info("Configuration file not found, wrote defaults", zap.String("path", configPath))
	}
	if !cfg.Forwarding.Enabled {
		log.Warn("Running in offline mode: player identities are not verified and anyone can join with any username")
	}

	registry, err := data.LoadRegistryData()
	if err != nil {
		return err
	}

	var scripts *scripting.Engine
	if cfg.Scripting.Path != "" {
		scripts, err = scripting.Load(cfg.Scripting.Path, log)
		if err != nil {
			return err
		}
		defer scripts.Close()
	}

	players := player.NewRegistry()
	promRegistry := metrics.NewRegistry()
	deps := &handler.Deps{
		Config:   cfg,
		Players:  players,
		Registry: registry,
		Metrics:  metrics.New(promRegistry, players.Count),
		Scripts:  scripts,
	}

	srv, err := gonet.NewServer(cfg.Network.BindAddress, cfg.Network.ReadTimeout, cfg.Server.HidePlayerIPs, log)
	if err != nil {
		return err
	}

	var metricsSrv *metrics.Server
	if cfg.Metrics.BindAddress != "" {
		metricsSrv, err = metrics.Listen(cfg.Metrics.BindAddress, promRegistry, log)
		if err != nil {
			srv.Close()
			return err
		}
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return srv.Serve(ctx, handler.NewConnectionHandler(deps))
	})
	if metricsSrv != nil {
		g.Go(func() error {
			return metricsSrv.Run(ctx)
		})
	}

	log.Info("Server listening",
		zap.Stringer("addr", srv.Addr()),
		zap.Int("protocol", packet.ProtocolVersion),
		zap.String("version", cfg.Server.Version),
		zap.Bool("forwarding", cfg.Forwarding.Enabled))

	err = g.Wait()
	log.Info("Shutting down", zap.Int("players_online", players.Count()))
	return err
}

func newLogger(cfg config.LoggingConfig) (*zap.Logger, error) {
	var level zapcore.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		level = zapcore.InfoLevel
	}

	var zapCfg zap.Config
	if cfg.Format == "json" {
		zapCfg = zap.NewProductionConfig()
	} else {
		zapCfg = zap.NewDevelopmentConfig()
		zapCfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		zapCfg.EncoderConfig.EncodeTime = zapcore.TimeEncoderOfLayout("15:04:05")
		zapCfg.EncoderConfig.ConsoleSeparator = "  "
		zapCfg.DisableCaller = true
		zapCfg.DisableStacktrace = true
	}
	zapCfg.Level = zap.NewAtomicLevelAt(level)

	return zapCfg.Build()
}

func printBanner(cfg *config.Config) {
	fmt.Println()
	fmt.Println("\033[36;1m  ┌───────────────────────────────────────────┐\033[0m")
	fmt.Printf("\033[36;1m  │\033[0m   limbo %-33s \033[36;1m│\033[0m\n", version)
	fmt.Printf("\033[36;1m  │\033[0m   Minecraft %-29s \033[36;1m│\033[0m\n", cfg.Server.Version)
	fmt.Println("\033[36;1m  └───────────────────────────────────────────┘\033[0m")
	fmt.Println()
}
