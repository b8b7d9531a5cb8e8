package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/rpgvault/ingest/internal/app"
	"github.com/rpgvault/ingest/internal/config"
	"github.com/rpgvault/ingest/internal/home"
	"github.com/rpgvault/ingest/internal/ingesterr"
)

var (
	cfgFile   string
	homeDir   string
	logLevel  string
	serverURL string
)

var rootCmd = &cobra.Command{
	Use:   "rpgvault",
	Short: "TTRPG PDF ingestion pipeline: identify, extract, and persist source books",
	Long: `rpgvault ingests tabletop RPG source books and novels from PDF into a
searchable vector store and document store.

The pipeline:
  - Identifies the game system, edition, and book from the first pages
  - Extracts page text with OCR fallback and OCR-artifact cleanup
  - Categorizes pages and checks for duplicate ISBNs
  - Persists the result as whole-document or per-page sections`,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ./config.yaml or ~/.rpgvault/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&homeDir, "home", "", "rpgvault home directory (default: ~/.rpgvault)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level: debug, info, warn, error (default: info, env: RPGVAULT_LOG_LEVEL)")
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", "http://127.0.0.1:8080", "rpgvault server URL, used by `api` subcommands")
}

// parseLogLevel converts a string log level to slog.Level.
func parseLogLevel(level string) (slog.Level, error) {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug, nil
	case "info", "":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("invalid log level %q: must be debug, info, warn, or error", level)
	}
}

func newLogger() *slog.Logger {
	level := logLevel
	if level == "" {
		level = os.Getenv("RPGVAULT_LOG_LEVEL")
	}
	parsed, err := parseLogLevel(level)
	if err != nil {
		fmt.Fprintf(os.Stderr, "warning: %v, using info\n", err)
		parsed = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: parsed}))
}

// loadConfig resolves the home directory and loads (or bootstraps)
// config.yaml, the first half of every subcommand's setup.
func loadConfig() (*config.Manager, *home.Dir, *slog.Logger, error) {
	logger := newLogger()

	h, err := home.New(homeDir)
	if err != nil {
		return nil, nil, logger, err
	}
	if err := h.EnsureExists(); err != nil {
		return nil, nil, logger, err
	}

	configFile := cfgFile
	if configFile == "" {
		if _, err := os.Stat("config.yaml"); err == nil {
			configFile = "config.yaml"
		} else {
			configFile = filepath.Join(h.Path(), "config.yaml")
		}
	}
	if _, err := os.Stat(configFile); os.IsNotExist(err) {
		logger.Info("creating default config", "path", configFile)
		if err := config.WriteDefault(configFile); err != nil {
			logger.Warn("failed to write default config", "error", err)
		}
	}

	cfgMgr, err := config.NewManager(configFile)
	if err != nil {
		return nil, h, logger, fmt.Errorf("load config: %w", err)
	}
	cfgMgr.WatchConfig()
	return cfgMgr, h, logger, nil
}

// loadApp is the single construction path shared by extract, batch, and
// status: load config, then wire an *app.App from it. serve builds its
// own App (see serve.go) so it can first bring up an optional dev-mode
// document store container.
func loadApp() (*app.App, *slog.Logger, error) {
	cfgMgr, h, logger, err := loadConfig()
	if err != nil {
		return nil, logger, err
	}
	a, err := app.Build(cfgMgr.Get(), h)
	if err != nil {
		return nil, logger, err
	}
	return a, logger, nil
}

// exitCodeFor maps a command's terminal error to the CLI exit codes.
func exitCodeFor(err error) int {
	if err == nil {
		return 0
	}
	kind := ingesterr.KindOf(err)
	if kind == "" {
		return 1
	}
	return kind.ExitCode()
}
