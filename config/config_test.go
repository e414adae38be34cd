package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0:8080", cfg.HTTP.Addr())
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "monad-testnet", cfg.Chain.Network)
	assert.Equal(t, time.Minute, cfg.Chain.ReceiptTimeout)
	assert.Equal(t, "input-order", cfg.Split.TieBreak)
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("PAYSPLIT_HTTP_PORT", "9090")
	t.Setenv("PAYSPLIT_LOG_LEVEL", "debug")
	t.Setenv("PAYSPLIT_CHAIN_REGISTRY", "0x5FbDB2315678afecb367f032d93F642f64180aa3")
	t.Setenv("PAYSPLIT_EXTRACTOR_API_KEY", "gsk-test")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.HTTP.Port)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "0x5FbDB2315678afecb367f032d93F642f64180aa3", cfg.Chain.Registry)
	assert.Equal(t, "gsk-test", cfg.Extractor.APIKey)
}

func TestLedgerConfigResolvesNetwork(t *testing.T) {
	chain := ChainConfig{
		Network:    "monad-testnet",
		Registry:   "0x5FbDB2315678afecb367f032d93F642f64180aa3",
		PrivateKey: "ac0974bec39a17e36ba4a6b4d238ff944bacb478cbed5efcae784d7bf4f2ff80",
	}

	cfg, err := chain.LedgerConfig()
	require.NoError(t, err)
	assert.Equal(t, "https://testnet-rpc.monad.xyz", cfg.RPCURL)
	assert.Equal(t, int64(10143), cfg.ChainID)
	assert.Equal(t, "USDC", cfg.TokenSymbol)
	assert.NotEmpty(t, cfg.Token)
}

func TestLedgerConfigValidation(t *testing.T) {
	_, err := ChainConfig{Network: "no-such-chain", Registry: "0x1", PrivateKey: "ab"}.LedgerConfig()
	assert.Error(t, err)

	_, err = ChainConfig{Network: "monad-testnet", PrivateKey: "ab"}.LedgerConfig()
	assert.Error(t, err)

	_, err = ChainConfig{Network: "monad-testnet", Registry: "0x5FbDB2315678afecb367f032d93F642f64180aa3"}.LedgerConfig()
	assert.Error(t, err)
}
