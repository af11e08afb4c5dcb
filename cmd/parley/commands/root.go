package commands

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/haivivi/parley/cmd/parley/internal/config"
)

var (
	// Global flags
	verbose     bool
	contextName string

	// Global configuration (loaded at init time)
	globalConfig *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "parley",
	Short: "Realtime voice assistant in the terminal",
	Long: `parley - talk to a realtime voice model from the terminal.

Configuration is stored in the OS config directory (or $PARLEY_CONFIG_DIR):
  macOS:   ~/Library/Application Support/parley/
  Linux:   ~/.config/parley/
  Windows: %AppData%/parley/

Examples:
  # Create a context and configure the realtime service
  parley config add-context home
  parley config use-context home
  parley config set home realtime voice verse

  # Start talking
  parley run

  # Or pick a context explicitly
  parley -c office run`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().StringVarP(&contextName, "context", "c", "", "context to use (default: current context)")
}

// configLoadErr stores the error from config.Load() for deferred reporting.
var configLoadErr error

func initConfig() {
	globalConfig, configLoadErr = nil, nil
	cfg, err := config.Load()
	if err != nil {
		// Commands that need config get the error from GetConfig; others
		// such as 'parley version' still work.
		configLoadErr = err
		return
	}
	globalConfig = cfg
}

// GetConfig returns the global configuration.
func GetConfig() (*config.Config, error) {
	if globalConfig == nil {
		if configLoadErr != nil {
			return nil, fmt.Errorf("config not available: %w", configLoadErr)
		}
		cfg, err := config.Load()
		if err != nil {
			return nil, fmt.Errorf("config not available: %w", err)
		}
		globalConfig = cfg
	}
	return globalConfig, nil
}

// loadRealtime resolves the selected context and reads its realtime
// settings.
func loadRealtime() (*config.Realtime, error) {
	cfg, err := GetConfig()
	if err != nil {
		return nil, err
	}
	dir, err := cfg.ResolveContext(contextName)
	if err != nil {
		return nil, err
	}
	return config.LoadRealtime(dir)
}

// IsVerbose returns whether verbose mode is enabled.
func IsVerbose() bool {
	return verbose
}

// newLogger returns a text logger writing to w at debug level in verbose
// mode.
func newLogger(w io.Writer) *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

func stderrLogger() *slog.Logger {
	return newLogger(os.Stderr)
}
