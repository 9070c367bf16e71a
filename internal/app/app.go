package app

import (
	"errors"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/vk/sweepgridgo/internal/config"
)

// Config holds the command-line options an App instance needs to run.
type Config struct {
	ConfigPath string

	LogFormat string
	// LogLevel, when set, overrides execution_settings.log_level.
	LogLevel string
	// Seed fixes the random source; zero means time-seeded.
	Seed int64
	// DryRun forces the dry-run engine regardless of configuration.
	DryRun bool
	// EngineAddr overrides the configured engine address.
	EngineAddr string
	// SolveTimeout overrides the configured per-job solve timeout.
	SolveTimeout time.Duration
}

// NewConfig validates command-line options.
func NewConfig(cfg Config) (*Config, error) {
	if cfg.ConfigPath == "" {
		return nil, errors.New("a configuration file path is required")
	}
	return &cfg, nil
}

// App encapsulates the application's dependencies, configuration, and lifecycle.
type App struct {
	outW   io.Writer
	logger *slog.Logger
	cli    *Config
	cfg    *config.Config
}

// NewApp loads and validates the sweep configuration and returns a fully
// initialized App with its own isolated logger. A malformed configuration
// is fatal and surfaces here, before any combination work begins.
func NewApp(outW io.Writer, cliCfg *Config) (*App, error) {
	cfg, err := config.Load(cliCfg.ConfigPath)
	if err != nil {
		return nil, err
	}

	level := cfg.Execution.LogLevel
	if cliCfg.LogLevel != "" {
		level = cliCfg.LogLevel
	}
	logger := newLogger(level, cliCfg.LogFormat, outW)
	logger.Debug("Configuration loaded.", "path", cliCfg.ConfigPath, "parameters", len(cfg.Parameters))

	if cliCfg.EngineAddr != "" {
		cfg.Engine.Address = cliCfg.EngineAddr
	}
	if addr := os.Getenv("ENGINE_ADDR"); addr != "" && cfg.Engine.Address == "" {
		cfg.Engine.Address = addr
	}

	return &App{outW: outW, logger: logger, cli: cliCfg, cfg: cfg}, nil
}

// SweepConfig returns the loaded sweep configuration. Primarily for testing.
func (a *App) SweepConfig() *config.Config {
	return a.cfg
}
