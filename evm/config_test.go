package evm

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestDefaultToolchainConfig(t *testing.T) {
	cfg, err := LoadToolchainConfig("")
	require.NoError(t, err)
	require.Equal(t, "0.8.19", cfg.Compiler.Version)
	require.True(t, cfg.Compiler.Optimizer)
	require.Equal(t, 200, cfg.Compiler.Runs)

	polygon, err := cfg.Network("polygon")
	require.NoError(t, err)
	require.Equal(t, "https://polygon-rpc.com", polygon.URL)
	require.Equal(t, uint64(30_000_000_000), polygon.GasPriceWei().Uint64())
	require.Equal(t, 60*time.Second, polygon.Timeout)
	require.Equal(t, "polygon", polygon.Name)

	mumbai, err := cfg.Network("mumbai")
	require.NoError(t, err)
	require.Equal(t, "https://rpc-mumbai.maticvigil.com", mumbai.URL)
	require.Equal(t, uint64(30_000_000_000), mumbai.GasPrice)

	_, err = cfg.Network("goerli")
	require.Error(t, err)
}

func TestLoadToolchainConfigMerge(t *testing.T) {
	t.Setenv("TEST_ALIEN_RPC", "https://rpc.example.org")
	t.Setenv("TEST_ALIEN_KEY", "secret")
	path := filepath.Join(t.TempDir(), "alien.toml")
	const content = `
[compiler]
runs = 1000

[networks.polygon]
url = "${TEST_ALIEN_RPC}"
gas_price = 0

[networks.local]
url = "http://127.0.0.1:8545"
chain_id = 31337

[api_keys]
polygon = "${TEST_ALIEN_KEY}"
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	cfg, err := LoadToolchainConfig(path)
	require.NoError(t, err)
	require.Equal(t, 1000, cfg.Compiler.Runs)
	require.True(t, cfg.Compiler.Optimizer)
	require.Equal(t, "0.8.19", cfg.Compiler.Version)

	polygon, err := cfg.Network("polygon")
	require.NoError(t, err)
	require.Equal(t, "https://rpc.example.org", polygon.URL)
	require.Nil(t, polygon.GasPriceWei())
	require.Equal(t, int64(137), polygon.ChainID)
	require.Equal(t, "https://polygonscan.com", polygon.ExplorerURL)

	local, err := cfg.Network("local")
	require.NoError(t, err)
	require.Equal(t, int64(31337), local.ChainID)
	require.Equal(t, "local", local.Name)

	require.Equal(t, "secret", cfg.ApiKey("polygon"))
	require.Equal(t, "", cfg.ApiKey("mumbai"))
}

func TestLoadToolchainConfigMissing(t *testing.T) {
	_, err := LoadToolchainConfig(filepath.Join(t.TempDir(), "missing.toml"))
	require.Error(t, err)
}
