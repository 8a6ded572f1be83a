package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/hydrosim/exchange/internal/logger"
	"github.com/hydrosim/exchange/pkg/api"
	"github.com/hydrosim/exchange/pkg/config"
	"github.com/hydrosim/exchange/pkg/metrics"
	"github.com/hydrosim/exchange/pkg/session"
	"github.com/hydrosim/exchange/pkg/session/housekeeper"

	// Import prometheus metrics to register init() functions
	_ "github.com/hydrosim/exchange/pkg/metrics/prometheus"
)

// Build-time variables injected via ldflags
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

const usage = `exchanged - Data exchange broker for coupled simulation models

Usage:
  exchanged <command> [flags]

Commands:
  init     Initialize a sample configuration file
  start    Start the exchange broker
  version  Show version information

Flags:
  --config string    Path to config file (default: $XDG_CONFIG_HOME/exchange/config.yaml)
  --force            Force overwrite existing config file (init command only)

Examples:
  # Initialize config file
  exchanged init

  # Start the broker with default config location
  exchanged start

  # Start the broker with custom config
  exchanged start --config /etc/exchange/config.yaml

  # Use environment variables to override config
  EXCHANGE_LOGGING_LEVEL=DEBUG exchanged start

Environment Variables:
  All configuration options can be overridden using environment variables.
  Format: EXCHANGE_<SECTION>_<KEY> (use underscores for nested keys)

  Examples:
    EXCHANGE_LOGGING_LEVEL=DEBUG
    EXCHANGE_SERVER_PORT=9000
    EXCHANGE_METRICS_ENABLED=true
`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(1)
	}

	command := os.Args[1]

	switch command {
	case "init":
		runInit()
	case "start":
		runStart()
	case "help", "--help", "-h":
		fmt.Print(usage)
		os.Exit(0)
	case "version", "--version", "-v":
		fmt.Printf("exchanged %s (commit: %s, built: %s)\n", version, commit, date)
		os.Exit(0)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", command)
		fmt.Fprint(os.Stderr, usage)
		os.Exit(1)
	}
}

// runInit handles the init subcommand
func runInit() {
	initFlags := flag.NewFlagSet("init", flag.ExitOnError)
	configFile := initFlags.String("config", "", "Path to config file (default: $XDG_CONFIG_HOME/exchange/config.yaml)")
	force := initFlags.Bool("force", false, "Force overwrite existing config file")

	if err := initFlags.Parse(os.Args[2:]); err != nil {
		log.Fatalf("Failed to parse flags: %v", err)
	}

	var configPath string
	var err error

	if *configFile != "" {
		err = config.InitConfigToPath(*configFile, *force)
		configPath = *configFile
	} else {
		configPath, err = config.InitConfig(*force)
	}

	if err != nil {
		log.Fatalf("Failed to initialize config: %v", err)
	}

	fmt.Printf("Configuration file created at: %s\n", configPath)
	fmt.Println("\nNext steps:")
	fmt.Println("  1. Edit the configuration file to customize your setup")
	fmt.Println("  2. Start the broker with: exchanged start")
	fmt.Printf("  3. Or specify custom config: exchanged start --config %s\n", configPath)
}

// runStart handles the start subcommand
func runStart() {
	startFlags := flag.NewFlagSet("start", flag.ExitOnError)
	configFile := startFlags.String("config", "", "Path to config file (default: $XDG_CONFIG_HOME/exchange/config.yaml)")

	if err := startFlags.Parse(os.Args[2:]); err != nil {
		log.Fatalf("Failed to parse flags: %v", err)
	}

	// Load configuration; a missing config file falls back to defaults so the
	// broker can run with zero setup.
	cfg, err := config.Load(*configFile)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	loggerCfg := logger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: cfg.Logging.Output,
	}
	if err := logger.Init(loggerCfg); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	logger.Info("exchange broker starting", "version", version)
	logger.Info("configuration loaded", "source", getConfigSource(*configFile))
	logger.Info("log level", "level", cfg.Logging.Level, "format", cfg.Logging.Format)

	// Initialize metrics FIRST so collectors constructed later register with
	// the live registry.
	var exchangeMetrics metrics.ExchangeMetrics
	var metricsServer *metrics.Server
	if cfg.Metrics.Enabled {
		metrics.InitRegistry()
		exchangeMetrics = metrics.NewExchangeMetrics()
		metricsServer = metrics.NewServer(cfg.Metrics.Port)
		logger.Info("metrics enabled", "port", cfg.Metrics.Port)
	} else {
		logger.Info("metrics collection disabled")
	}

	registry := session.NewRegistry()

	hk := housekeeper.New(registry, &cfg.Housekeeper)
	hk.Start(ctx)
	defer hk.Stop()

	apiServer := api.NewServer(cfg.Server, registry, exchangeMetrics)
	apiServer.SetShutdownTimeout(cfg.ShutdownTimeout)

	serverDone := make(chan error, 1)
	go func() {
		serverDone <- apiServer.Start(ctx)
	}()

	if metricsServer != nil {
		go func() {
			if err := metricsServer.Start(ctx); err != nil {
				logger.Error("metrics server error", "error", err)
			}
		}()
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	logger.Info("broker is running. Press Ctrl+C to stop.")

	select {
	case <-sigChan:
		signal.Stop(sigChan)
		logger.Info("shutdown signal received, initiating graceful shutdown")
		cancel()

		if err := <-serverDone; err != nil {
			logger.Error("server shutdown error", "error", err)
			os.Exit(1)
		}
		logger.Info("broker stopped gracefully")

	case err := <-serverDone:
		signal.Stop(sigChan)
		if err != nil {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
		logger.Info("broker stopped")
	}
}

// getConfigSource returns a description of where the config was loaded from
func getConfigSource(configFile string) string {
	if configFile != "" {
		return configFile
	}
	if config.DefaultConfigExists() {
		return config.GetDefaultConfigPath()
	}
	return "defaults"
}
