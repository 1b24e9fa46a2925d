// Package main provides taskauctiond - the task-auction escrow daemon.
package main

import (
	"flag"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/klingon-exchange/taskauction/internal/auction"
	"github.com/klingon-exchange/taskauction/internal/clock"
	"github.com/klingon-exchange/taskauction/internal/config"
	"github.com/klingon-exchange/taskauction/internal/rpc"
	"github.com/klingon-exchange/taskauction/internal/storage"
	"github.com/klingon-exchange/taskauction/pkg/logging"
)

var (
	version = "0.1.0-dev"
	commit  = "unknown"
)

func main() {
	var (
		dataDir     = flag.String("data-dir", "~/.taskauction", "Data directory")
		configFile  = flag.String("config", "", "Config file path; config.yaml in this path's directory is loaded (default: <data-dir>/config.yaml)")
		apiAddr     = flag.String("api", "", "JSON-RPC API address, overrides config")
		logLevel    = flag.String("log-level", "", "Log level (debug, info, warn, error), overrides config")
		showVersion = flag.Bool("version", false, "Show version and exit")
	)
	flag.Parse()

	log := logging.New(&logging.Config{
		Level:      "info",
		TimeFormat: time.TimeOnly,
	})
	logging.SetDefault(log)

	if *showVersion {
		log.Infof("taskauctiond %s (commit: %s)", version, commit)
		os.Exit(0)
	}

	var cfg *config.Config
	var err error
	if *configFile != "" {
		cfg, err = config.LoadConfig(filepath.Dir(*configFile))
	} else {
		cfg, err = config.LoadConfig(*dataDir)
	}
	if err != nil {
		log.Fatal("Failed to load config", "error", err)
	}

	if *apiAddr != "" {
		cfg.RPC.ListenAddr = *apiAddr
	}
	if *logLevel != "" {
		cfg.Logging.Level = *logLevel
	}

	log = logging.New(&logging.Config{
		Level:      cfg.Logging.Level,
		TimeFormat: time.TimeOnly,
	})
	logging.SetDefault(log)

	log.Info("Config loaded", "path", config.ConfigPath(cfg.Storage.DataDir))

	store, err := storage.New(&storage.Config{DataDir: cfg.Storage.DataDir})
	if err != nil {
		log.Fatal("Failed to initialize storage", "error", err)
	}
	defer store.Close()
	log.Info("Storage initialized", "path", cfg.Storage.DataDir)

	var clk clock.Clock
	switch cfg.Clock.Mode {
	case "ticking":
		period := cfg.Clock.Period
		if period <= 0 {
			period = 10 * time.Second
		}
		ticking := clock.NewTicking(cfg.Clock.Start, period)
		ticking.Start()
		defer ticking.Stop()
		clk = ticking
		log.Info("Clock started", "mode", "ticking", "period", period, "start", cfg.Clock.Start)
	default:
		clk = clock.NewManual(cfg.Clock.Start)
		log.Info("Clock started", "mode", "manual", "start", cfg.Clock.Start)
	}

	engineCfg := auction.Config{
		MinBounty:   cfg.Engine.MinBounty,
		MinDeposit:  cfg.Engine.MinDeposit,
		MaxDataSize: cfg.Engine.MaxDataSize,
	}
	engine := auction.New(store, store, clk, engineCfg)
	log.Info("Escrow engine initialized", "min_bounty", engineCfg.MinBounty, "min_deposit", engineCfg.MinDeposit)

	engine.OnEvent(func(ev auction.Event) {
		log.Info("auction event", "kind", ev.Kind, "owner", ev.AuctionKey.Owner, "nonce", ev.AuctionKey.Nonce)
	})

	rpcServer := rpc.NewServer(engine, store, clk)
	if err := rpcServer.Start(cfg.RPC.ListenAddr); err != nil {
		log.Fatal("Failed to start RPC server", "error", err)
	}

	printBanner(log, cfg)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	<-sigCh
	log.Info("Shutting down...")

	if err := rpcServer.Stop(); err != nil {
		log.Error("Error stopping RPC server", "error", err)
	}

	log.Info("Goodbye!")
}

func printBanner(log *logging.Logger, cfg *config.Config) {
	log.Info("")
	log.Info("=================================================")
	log.Info("  Task-Auction Escrow Daemon")
	log.Infof("  Version: %s", version)
	log.Info("=================================================")
	log.Info("")
	log.Infof("  API: http://%s", cfg.RPC.ListenAddr)
	log.Infof("  WS:  ws://%s%s", cfg.RPC.ListenAddr, cfg.RPC.WSPath)
	log.Info("")
	log.Infof("  Min bounty: %d | Min deposit: %d | Clock: %s", cfg.Engine.MinBounty, cfg.Engine.MinDeposit, cfg.Clock.Mode)
	log.Infof("  Data dir: %s", cfg.Storage.DataDir)
	log.Info("")
	log.Info("=================================================")
	log.Info("")
}
