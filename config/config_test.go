package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())
	require.Equal(t, "127.0.0.1", cfg.Server.Host)
	require.Equal(t, uint16(26658), cfg.Server.Port)
	require.Equal(t, uint16(9093), cfg.Server.GRPCPort)
	require.Equal(t, 1048576, cfg.Server.ReadBufSize)
	require.Equal(t, "memory", cfg.StateStore.Backend)
}

func TestLoad_MissingFileYieldsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.toml"))
	require.NoError(t, err)
	require.Equal(t, DefaultConfig(), cfg)
}

func TestLoad_OverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
[node]
chain_id = "hostberry-7"

[server]
port = 36658

[statestore]
backend = "leveldb"
path = "/tmp/hostberry-data"
retain_versions = 100
`), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "hostberry-7", cfg.Node.ChainID)
	require.Equal(t, uint16(36658), cfg.Server.Port)
	require.Equal(t, uint16(9093), cfg.Server.GRPCPort)
	require.Equal(t, "leveldb", cfg.StateStore.Backend)
	require.Equal(t, uint64(100), cfg.StateStore.RetainVersions)
}

func TestValidate_Rejections(t *testing.T) {
	cfg := DefaultConfig()
	cfg.StateStore.Backend = "rocksdb"
	require.Error(t, cfg.Validate())

	cfg = DefaultConfig()
	cfg.StateStore.Backend = "leveldb"
	require.Error(t, cfg.Validate())

	cfg = DefaultConfig()
	cfg.Server.ReadBufSize = 0
	require.Error(t, cfg.Validate())

	cfg = DefaultConfig()
	cfg.Node.ChainID = ""
	require.Error(t, cfg.Validate())
}
