package evm

import (
	"fmt"
	"math/big"
	"os"
	"sort"
	"time"

	"github.com/BurntSushi/toml"
)

type CompilerSettings struct {
	// Solidity version used to build the artifacts.
	Version string `toml:"version"`

	// Full version string expected by the explorer verification API.
	LongVersion string `toml:"long_version"`

	Optimizer bool `toml:"optimizer"`
	Runs      int  `toml:"runs"`
}

type NetworkConfig struct {
	Name string `toml:"-"`

	// JSON-RPC endpoint.
	URL string `toml:"url"`

	ChainID int64 `toml:"chain_id"`

	// Fixed gas price in wei. Zero means asking the node for a suggestion.
	GasPrice uint64 `toml:"gas_price"`

	// RPC request timeout.
	Timeout time.Duration `toml:"timeout"`

	// Block explorer web UI and API roots.
	ExplorerURL string `toml:"explorer_url"`
	ExplorerAPI string `toml:"explorer_api"`

	// Name of the native currency.
	Currency string `toml:"currency"`
}

func (n NetworkConfig) GasPriceWei() *big.Int {
	if n.GasPrice == 0 {
		return nil
	}
	return new(big.Int).SetUint64(n.GasPrice)
}

type ToolchainConfig struct {
	Compiler CompilerSettings         `toml:"compiler"`
	Networks map[string]NetworkConfig `toml:"networks"`

	// Explorer API keys per network, "${VAR}" references are expanded.
	ApiKeys map[string]string `toml:"api_keys"`
}

const gwei = 1_000_000_000

func NewPolygonConfig() NetworkConfig {
	return NetworkConfig{
		Name:        "polygon",
		URL:         "https://polygon-rpc.com",
		ChainID:     137,
		GasPrice:    30 * gwei,
		Timeout:     60 * time.Second,
		ExplorerURL: "https://polygonscan.com",
		ExplorerAPI: "https://api.polygonscan.com/api",
		Currency:    "MATIC",
	}
}

func NewMumbaiConfig() NetworkConfig {
	return NetworkConfig{
		Name:        "mumbai",
		URL:         "https://rpc-mumbai.maticvigil.com",
		ChainID:     80001,
		GasPrice:    30 * gwei,
		Timeout:     20 * time.Second,
		ExplorerURL: "https://mumbai.polygonscan.com",
		ExplorerAPI: "https://api-testnet.polygonscan.com/api",
		Currency:    "MATIC",
	}
}

func DefaultToolchainConfig() ToolchainConfig {
	return ToolchainConfig{
		Compiler: CompilerSettings{
			Version:     "0.8.19",
			LongVersion: "v0.8.19+commit.7dd6d404",
			Optimizer:   true,
			Runs:        200,
		},
		Networks: map[string]NetworkConfig{
			"polygon": NewPolygonConfig(),
			"mumbai":  NewMumbaiConfig(),
		},
		ApiKeys: map[string]string{
			"polygon": "${POLYGONSCAN_API_KEY}",
		},
	}
}

// LoadToolchainConfig reads a TOML file on top of the defaults. Networks
// present in the file replace the preset fields they set. An empty path
// returns the defaults.
func LoadToolchainConfig(path string) (ToolchainConfig, error) {
	cfg := DefaultToolchainConfig()
	if path != "" {
		var fileCfg ToolchainConfig
		md, err := toml.DecodeFile(path, &fileCfg)
		if err != nil {
			return ToolchainConfig{}, fmt.Errorf("decode %s: %w", path, err)
		}
		if md.IsDefined("compiler") {
			mergeCompiler(&cfg.Compiler, fileCfg.Compiler, md)
		}
		for name, n := range fileCfg.Networks {
			base, ok := cfg.Networks[name]
			if !ok {
				base = NetworkConfig{}
			}
			cfg.Networks[name] = mergeNetwork(base, n, md, name)
		}
		for name, key := range fileCfg.ApiKeys {
			cfg.ApiKeys[name] = key
		}
	}
	for name, n := range cfg.Networks {
		n.Name = name
		n.URL = os.ExpandEnv(n.URL)
		cfg.Networks[name] = n
	}
	for name, key := range cfg.ApiKeys {
		cfg.ApiKeys[name] = os.ExpandEnv(key)
	}
	return cfg, nil
}

func mergeCompiler(dst *CompilerSettings, src CompilerSettings, md toml.MetaData) {
	if md.IsDefined("compiler", "version") {
		dst.Version = src.Version
	}
	if md.IsDefined("compiler", "long_version") {
		dst.LongVersion = src.LongVersion
	}
	if md.IsDefined("compiler", "optimizer") {
		dst.Optimizer = src.Optimizer
	}
	if md.IsDefined("compiler", "runs") {
		dst.Runs = src.Runs
	}
}

func mergeNetwork(dst, src NetworkConfig, md toml.MetaData, name string) NetworkConfig {
	defined := func(key string) bool {
		return md.IsDefined("networks", name, key)
	}
	if defined("url") {
		dst.URL = src.URL
	}
	if defined("chain_id") {
		dst.ChainID = src.ChainID
	}
	if defined("gas_price") {
		dst.GasPrice = src.GasPrice
	}
	if defined("timeout") {
		dst.Timeout = src.Timeout
	}
	if defined("explorer_url") {
		dst.ExplorerURL = src.ExplorerURL
	}
	if defined("explorer_api") {
		dst.ExplorerAPI = src.ExplorerAPI
	}
	if defined("currency") {
		dst.Currency = src.Currency
	}
	return dst
}

func (c ToolchainConfig) Network(name string) (NetworkConfig, error) {
	n, ok := c.Networks[name]
	if !ok {
		names := make([]string, 0, len(c.Networks))
		for k := range c.Networks {
			names = append(names, k)
		}
		sort.Strings(names)
		return NetworkConfig{}, fmt.Errorf("unknown network %q, known: %v", name, names)
	}
	if n.URL == "" {
		return NetworkConfig{}, fmt.Errorf("network %q has no url", name)
	}
	return n, nil
}

func (c ToolchainConfig) ApiKey(network string) string {
	return c.ApiKeys[network]
}
