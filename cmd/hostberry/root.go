package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/blockberries/blockberry/logging"
	"github.com/spf13/cobra"

	"github.com/blockberries/hostberry/config"
)

var (
	// Version information (set at build time)
	Version   = "dev"
	GitCommit = "unknown"

	// Global flags
	cfgFile     string
	flagHost    string
	flagPort    uint16
	flagGRPC    uint16
	flagReadBuf int
	verbose     bool
	quiet       bool
)

var rootCmd = &cobra.Command{
	Use:   "hostberry",
	Short: "Hostberry IBC host application",
	Long: `Hostberry is a modular application-layer state machine for the
blockberry stack. It hosts bank, transfer and IBC modules atop a versioned,
Merkle-proven store and serves the IBC query services relayers depend on.`,
	Version: fmt.Sprintf("%s (commit: %s)", Version, GitCommit),
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "config.toml", "config file path")
	rootCmd.PersistentFlags().StringVar(&flagHost, "host", "127.0.0.1", "listen address")
	rootCmd.PersistentFlags().Uint16Var(&flagPort, "port", 26658, "consensus-facing application port")
	rootCmd.PersistentFlags().Uint16Var(&flagGRPC, "grpc-port", 9093, "query gRPC port")
	rootCmd.PersistentFlags().IntVar(&flagReadBuf, "read-buf-size", 1048576, "read buffer size in bytes")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug output")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "log errors only")

	rootCmd.AddCommand(startCmd)
	rootCmd.AddCommand(txCmd)
}

// loadConfig loads the config file and applies flag overrides.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, err
	}
	if cmd.Flags().Changed("host") {
		cfg.Server.Host = flagHost
	}
	if cmd.Flags().Changed("port") {
		cfg.Server.Port = flagPort
	}
	if cmd.Flags().Changed("grpc-port") {
		cfg.Server.GRPCPort = flagGRPC
	}
	if cmd.Flags().Changed("read-buf-size") {
		cfg.Server.ReadBufSize = flagReadBuf
	}
	return cfg, nil
}

// createLogger builds the logger from config and verbosity flags.
func createLogger(cfg config.LoggingConfig) *logging.Logger {
	level := slog.LevelInfo
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}
	if verbose {
		level = slog.LevelDebug
	}
	if quiet {
		level = slog.LevelError
	}

	var w io.Writer = os.Stderr
	if cfg.Format == "json" {
		return logging.NewJSONLogger(w, level)
	}
	return logging.NewTextLogger(w, level)
}
