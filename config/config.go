// Package config defines the hostberry daemon configuration, loaded from a
// TOML file and overridable by command-line flags.
package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
)

// Config is the full daemon configuration.
type Config struct {
	Node       NodeConfig       `toml:"node"`
	Server     ServerConfig     `toml:"server"`
	StateStore StateStoreConfig `toml:"statestore"`
	Metrics    MetricsConfig    `toml:"metrics"`
	Logging    LoggingConfig    `toml:"logging"`
}

// NodeConfig identifies the chain this application serves.
type NodeConfig struct {
	// ChainID is the unique identifier for the blockchain network.
	ChainID string `toml:"chain_id"`

	// RevisionNumber is the chain's IBC revision number.
	RevisionNumber uint64 `toml:"revision_number"`
}

// ServerConfig carries the listen surface.
type ServerConfig struct {
	// Host is the address both servers bind to.
	Host string `toml:"host"`

	// Port is the consensus-facing application port.
	Port uint16 `toml:"port"`

	// GRPCPort is the query gRPC port relayers connect to.
	GRPCPort uint16 `toml:"grpc_port"`

	// ReadBufSize bounds inbound message size in bytes.
	ReadBufSize int `toml:"read_buf_size"`
}

// StateStoreConfig configures the versioned store.
type StateStoreConfig struct {
	// Backend selects "memory" or "leveldb".
	Backend string `toml:"backend"`

	// Path is the data directory for persistent backends.
	Path string `toml:"path"`

	// CacheSize is the number of tree nodes cached in memory.
	CacheSize int `toml:"cache_size"`

	// RetainVersions keeps the latest N revisions; 0 keeps everything.
	RetainVersions uint64 `toml:"retain_versions"`
}

// MetricsConfig configures the Prometheus endpoint.
type MetricsConfig struct {
	// Enabled turns metric collection on.
	Enabled bool `toml:"enabled"`

	// ListenAddr serves /metrics when enabled.
	ListenAddr string `toml:"listen_addr"`
}

// LoggingConfig configures the structured logger.
type LoggingConfig struct {
	// Level is one of debug, info, warn, error.
	Level string `toml:"level"`

	// Format is "text" or "json".
	Format string `toml:"format"`
}

// DefaultConfig returns the defaults the CLI flags document.
func DefaultConfig() *Config {
	return &Config{
		Node: NodeConfig{
			ChainID:        "hostberry-0",
			RevisionNumber: 0,
		},
		Server: ServerConfig{
			Host:        "127.0.0.1",
			Port:        26658,
			GRPCPort:    9093,
			ReadBufSize: 1048576,
		},
		StateStore: StateStoreConfig{
			Backend:   "memory",
			CacheSize: 10000,
		},
		Metrics: MetricsConfig{
			Enabled:    false,
			ListenAddr: "127.0.0.1:9094",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load reads a TOML config file over the defaults. A missing file yields
// the defaults.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, nil
	}
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return cfg, nil
	}
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the configuration's internal consistency.
func (c *Config) Validate() error {
	if c.Node.ChainID == "" {
		return errors.New("node.chain_id must not be empty")
	}
	switch c.StateStore.Backend {
	case "memory", "leveldb":
	default:
		return fmt.Errorf("statestore.backend %q is not supported", c.StateStore.Backend)
	}
	if c.StateStore.Backend == "leveldb" && c.StateStore.Path == "" {
		return errors.New("statestore.path is required for the leveldb backend")
	}
	if c.Server.ReadBufSize <= 0 {
		return errors.New("server.read_buf_size must be positive")
	}
	switch c.Logging.Format {
	case "text", "json":
	default:
		return fmt.Errorf("logging.format %q is not supported", c.Logging.Format)
	}
	return nil
}
