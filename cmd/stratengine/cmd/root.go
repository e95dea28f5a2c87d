package cmd

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/rustyeddy/stratengine/config"
)

var rootCmd = &cobra.Command{
	Use:   "stratengine",
	Short: "A strategy lifecycle and execution engine",
	Long: `Stratengine manages trading strategies through their full lifecycle:
definition, admission-checked order placement, position monitoring,
and exit, against either a live polling engine or a bar-replay
backtest.

It provides tools for:
  - Defining trailing-stop, bracket, scale-out, and grid strategies
  - Running the live polling engine with safety limits
  - Backtesting strategies against historical OHLC bars
  - Inspecting the order store, trade ledger, and audit trail`,
}

var (
	cfgPath string
	dataDir string
)

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", "", "config file (JSON or YAML)")
	rootCmd.PersistentFlags().StringVar(&dataDir, "data-dir", "./data", "directory holding stores, ledgers, and lock file")
}

// loadConfig resolves the effective configuration: the --config file
// when given, otherwise defaults rooted at --data-dir.
func loadConfig() (*config.Config, error) {
	if cfgPath != "" {
		return config.Load(cfgPath)
	}
	return config.Default(dataDir), nil
}

func newLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, nil))
}
