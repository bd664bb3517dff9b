package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stackpay/stackpay/types"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Server.ListenAddr)
	assert.Equal(t, "info", cfg.Server.LogLevel)
	assert.Equal(t, types.USDCSepolia, cfg.Ethereum.USDCAddress)
	assert.Equal(t, types.XReserveSepolia, cfg.Ethereum.XReserveAddress)
	assert.Equal(t, types.StacksRemoteDomain, cfg.Ethereum.RemoteDomain)
	assert.Equal(t, types.USDCDecimals, cfg.Ethereum.TokenDecimals)
	assert.Equal(t, "1", cfg.Links.MinDeposit)
	assert.Equal(t, 15*time.Second, cfg.Progress.PollInterval)
	assert.Empty(t, cfg.Database.Driver)
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("STACKPAY_SERVER_LISTEN_ADDR", ":9090")
	t.Setenv("STACKPAY_DATABASE_DRIVER", "sqlite")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.Server.ListenAddr)
	assert.Equal(t, "sqlite", cfg.Database.Driver)
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	contents := []byte("server:\n  listen_addr: \":7070\"\nlinks:\n  min_deposit: \"2\"\n")
	require.NoError(t, os.WriteFile(path, contents, 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, ":7070", cfg.Server.ListenAddr)
	assert.Equal(t, "2", cfg.Links.MinDeposit)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load("/nonexistent/config.yaml")
	require.Error(t, err)
}
