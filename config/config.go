// Package config loads service configuration from environment variables
// and an optional config file, environment taking priority.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/paysplit/paysplit/internal/logger"
	"github.com/paysplit/paysplit/ledger/evm"
)

// Config groups the service configuration.
type Config struct {
	HTTP      HTTPConfig
	Log       logger.Config
	Chain     ChainConfig
	Extractor ExtractorConfig
	Split     SplitConfig
}

// HTTPConfig configures the API listener.
type HTTPConfig struct {
	Host string
	Port int
}

// Addr returns the listen address (host:port).
func (c HTTPConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// ChainConfig configures the EVM ledger. Network selects a known chain
// from evm.NetworkConfigs; explicit fields override its entries.
type ChainConfig struct {
	Network        string
	RPCURL         string
	ChainID        int64
	Registry       string
	Token          string
	TokenSymbol    string
	PrivateKey     string
	ReceiptTimeout time.Duration
}

// LedgerConfig resolves the chain settings into an evm client config.
func (c ChainConfig) LedgerConfig() (evm.Config, error) {
	cfg := evm.Config{
		RPCURL:         c.RPCURL,
		ChainID:        c.ChainID,
		Registry:       c.Registry,
		Token:          c.Token,
		TokenSymbol:    c.TokenSymbol,
		PrivateKey:     c.PrivateKey,
		ReceiptTimeout: c.ReceiptTimeout,
	}
	if c.Network != "" {
		network, ok := evm.NetworkConfigs[c.Network]
		if !ok {
			return evm.Config{}, fmt.Errorf("unknown network %q", c.Network)
		}
		if cfg.RPCURL == "" {
			cfg.RPCURL = network.RPCURL
		}
		if cfg.ChainID == 0 {
			cfg.ChainID = network.ChainID.Int64()
		}
		if cfg.Token == "" {
			cfg.Token = network.DefaultAsset.Address
		}
		if cfg.TokenSymbol == "" {
			cfg.TokenSymbol = network.DefaultAsset.Symbol
		}
	}
	if cfg.Registry == "" {
		return evm.Config{}, fmt.Errorf("chain registry address is required")
	}
	if cfg.PrivateKey == "" {
		return evm.Config{}, fmt.Errorf("chain private key is required")
	}
	return cfg, nil
}

// ExtractorConfig configures the free-text extraction client.
type ExtractorConfig struct {
	APIKey      string
	BaseURL     string
	Model       string
	Temperature float32
}

// SplitConfig configures split resolution.
type SplitConfig struct {
	// Tolerance is the accepted deviation of a percentage sum from 100.
	Tolerance float64
	// TieBreak is "input-order" or "largest-share".
	TieBreak string
}

// Load reads configuration from PAYSPLIT_-prefixed environment variables
// and an optional paysplit.yaml in the working directory or /etc/paysplit.
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName("paysplit")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("/etc/paysplit")
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	v.SetEnvPrefix("PAYSPLIT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	cfg := &Config{
		HTTP: HTTPConfig{
			Host: v.GetString("http.host"),
			Port: v.GetInt("http.port"),
		},
		Log: logger.Config{
			Level:  v.GetString("log.level"),
			Format: v.GetString("log.format"),
		},
		Chain: ChainConfig{
			Network:        v.GetString("chain.network"),
			RPCURL:         v.GetString("chain.rpc_url"),
			ChainID:        v.GetInt64("chain.chain_id"),
			Registry:       v.GetString("chain.registry"),
			Token:          v.GetString("chain.token"),
			TokenSymbol:    v.GetString("chain.token_symbol"),
			PrivateKey:     v.GetString("chain.private_key"),
			ReceiptTimeout: v.GetDuration("chain.receipt_timeout"),
		},
		Extractor: ExtractorConfig{
			APIKey:      v.GetString("extractor.api_key"),
			BaseURL:     v.GetString("extractor.base_url"),
			Model:       v.GetString("extractor.model"),
			Temperature: float32(v.GetFloat64("extractor.temperature")),
		},
		Split: SplitConfig{
			Tolerance: v.GetFloat64("split.tolerance"),
			TieBreak:  v.GetString("split.tie_break"),
		},
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("http.host", "0.0.0.0")
	v.SetDefault("http.port", 8080)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")
	v.SetDefault("chain.network", "monad-testnet")
	v.SetDefault("chain.receipt_timeout", time.Minute)
	v.SetDefault("split.tie_break", "input-order")
}
