package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/vigil/internal/app"
	"github.com/ternarybob/vigil/internal/common"
	"github.com/ternarybob/vigil/internal/server"
)

// configPaths is a custom flag type that allows multiple -config flags
type configPaths []string

func (c *configPaths) String() string {
	return fmt.Sprintf("%v", *c)
}

func (c *configPaths) Set(value string) error {
	*c = append(*c, value)
	return nil
}

var (
	// Command-line flags
	configFiles  configPaths // Multiple -config flags supported
	serverPort   = flag.Int("port", 0, "Server port (overrides config)")
	serverPortP  = flag.Int("p", 0, "Server port (shorthand, overrides config)")
	serverHost   = flag.String("host", "", "Server host (overrides config)")
	headful      = flag.Bool("headful", false, "Run the browser with a visible window (overrides config)")
	showVersion  = flag.Bool("version", false, "Print version information")
	showVersionV = flag.Bool("v", false, "Print version information (shorthand)")

	// Global state
	config *common.Config
	logger arbor.ILogger
)

func init() {
	flag.Var(&configFiles, "config", "Configuration file path (can be specified multiple times, later files override earlier ones)")
	flag.Var(&configFiles, "c", "Configuration file path (shorthand)")
}

func main() {
	flag.Parse()

	if *showVersion || *showVersionV {
		fmt.Printf("Vigil version %s\n", common.GetVersion())
		os.Exit(0)
	}

	// Merge port flags (shorthand takes precedence)
	finalPort := *serverPort
	if *serverPortP != 0 {
		finalPort = *serverPortP
	}

	// Startup sequence (REQUIRED ORDER):
	// 1. Load config (defaults -> file1 -> file2 -> ... -> env)
	// 2. Apply CLI overrides (highest priority)
	// 3. Initialize logger
	// 4. Print banner
	var err error

	// Auto-discover config file if not specified
	if len(configFiles) == 0 {
		if _, err := os.Stat("vigil.toml"); err == nil {
			configFiles = append(configFiles, "vigil.toml")
		} else if _, err := os.Stat("deployments/local/vigil.toml"); err == nil {
			configFiles = append(configFiles, "deployments/local/vigil.toml")
		}
	}

	config, err = common.LoadFromFiles(configFiles...)
	if err != nil {
		tempLogger := arbor.NewLogger()
		tempLogger.Fatal().Err(err).Msg("Failed to load configuration")
		os.Exit(1)
	}

	common.ApplyFlagOverrides(config, finalPort, *serverHost)
	if *headful {
		config.Browser.Headless = false
	}

	logger = common.InitLogger(config)

	common.PrintBanner(common.GetVersion())

	logger.Info().
		Strs("config_files", []string(configFiles)).
		Int("port", config.Server.Port).
		Str("host", config.Server.Host).
		Str("log_level", config.Logging.Level).
		Bool("headless", config.Browser.Headless).
		Msg("Application configuration loaded")

	application, err := app.New(config, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to initialize application")
	}
	defer application.Close()

	srv := server.New(application)

	go func() {
		defer func() {
			if r := recover(); r != nil {
				logger.Fatal().Str("panic", fmt.Sprintf("%v", r)).Msg("Server goroutine panicked")
			}
		}()

		if err := srv.Start(); err != nil {
			logger.Fatal().Err(err).Msg("Server failed to start")
		}
	}()

	// Give goroutine a moment to start
	time.Sleep(100 * time.Millisecond)

	logger.Info().
		Str("url", fmt.Sprintf("http://%s:%d", config.Server.Host, config.Server.Port)).
		Msg("Server ready - Press Ctrl+C to stop")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan
	logger.Info().Msg("Interrupt signal received")

	logger.Info().Msg("Shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error().Err(err).Msg("Server shutdown failed")
	}

	logger.Info().Msg("Server stopped")
}
