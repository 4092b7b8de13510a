package app

import (
	"errors"
	"testing"
	"time"

	goflags "github.com/jessevdk/go-flags"
	"github.com/stretchr/testify/require"

	"github.com/RomanDevelop/alien-manager/evm"
)

func TestConfigDefaults(t *testing.T) {
	var c Config
	_, err := goflags.NewParser(&c, goflags.Default).ParseArgs(nil)
	require.NoError(t, err)
	require.Equal(t, "polygon", c.Network)
	require.Equal(t, "history.csv", c.HistoryFile)
	require.Equal(t, defaultArtifactPath, c.ArtifactPath)
	require.Equal(t, 20*24*time.Hour, c.ExtendDuration)

	settings := SettingsFromConfig(c, evm.DefaultToolchainConfig().Compiler)
	require.Equal(t, uint64(2_000_000), settings.FromBlocks)
	require.Equal(t, uint64(1000), settings.LogWindow)
	require.Equal(t, uint64(50000), settings.ExplorerStep)
	require.Equal(t, 20, settings.TopN)
	require.Equal(t, 10*time.Minute, settings.StatusInterval)
	require.Equal(t, "v0.8.19+commit.7dd6d404", settings.Verify.CompilerVersion)
	require.True(t, settings.Verify.Optimizer)
	require.Equal(t, 200, settings.Verify.Runs)
}

func TestConfigEnv(t *testing.T) {
	t.Setenv("PRESALE_START_BLOCK", "55000000")
	t.Setenv("WINDOW_SIZE", "500")
	t.Setenv("TOP_N", "5")
	t.Setenv("NETWORK", "mumbai")

	var c Config
	_, err := goflags.NewParser(&c, goflags.Default).ParseArgs(nil)
	require.NoError(t, err)
	require.Equal(t, "mumbai", c.Network)

	settings := SettingsFromConfig(c, evm.CompilerSettings{Runs: 1000})
	require.Equal(t, uint64(55_000_000), settings.PresaleStartBlock)
	require.Equal(t, uint64(500), settings.LogWindow)
	require.Equal(t, 5, settings.TopN)
	require.Equal(t, 1000, settings.Verify.Runs)
	require.False(t, settings.Verify.Optimizer)
}

func TestParseAddress(t *testing.T) {
	addr, err := parseAddress("presale address", "")
	require.NoError(t, err)
	require.Equal(t, "0x0000000000000000000000000000000000000000", addr.Hex())

	addr, err = parseAddress("presale address", "0xa8e302849DdF86769C026d9A2405e1cdA01ED992")
	require.NoError(t, err)
	require.Equal(t, "0xa8e302849DdF86769C026d9A2405e1cdA01ED992", addr.Hex())

	_, err = parseAddress("presale address", "0x1234")
	require.ErrorContains(t, err, "invalid presale address")
}

type closeFunc func() error

func (f closeFunc) Close() error { return f() }

func TestClosers(t *testing.T) {
	var order []int
	errFirst := errors.New("first")
	cs := closers{
		closeFunc(func() error { order = append(order, 1); return errors.New("last") }),
		closeFunc(func() error { order = append(order, 2); return errFirst }),
		closeFunc(func() error { order = append(order, 3); return nil }),
	}
	require.ErrorIs(t, cs.Close(), errFirst)
	require.Equal(t, []int{3, 2, 1}, order)
}
