package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	ProviderRelay    = "relay"
	ProviderOneClick = "oneclick"
)

// Config holds the application configuration
type Config struct {
	Provider string         `mapstructure:"provider"`
	Relay    RelayConfig    `mapstructure:"relay"`
	OneClick OneClickConfig `mapstructure:"oneclick"`
	Safety   SafetyConfig   `mapstructure:"safety"`
	Solana   SolanaConfig   `mapstructure:"solana"`
	EVM      EVMConfig      `mapstructure:"evm"`
	Audit    AuditConfig    `mapstructure:"audit"`
	Server   ServerConfig   `mapstructure:"server"`
	Log      LogConfig      `mapstructure:"log"`
	Proof    ProofConfig    `mapstructure:"proof"`
}

// RelayConfig configures the Relay provider
type RelayConfig struct {
	BaseURL        string        `mapstructure:"base_url"`
	APIKey         string        `mapstructure:"api_key"`
	OriginDecimals int32         `mapstructure:"origin_decimals"`
	Timeout        time.Duration `mapstructure:"timeout"`
	RequestsPerSec float64       `mapstructure:"requests_per_sec"`
}

// OneClickConfig configures the NEAR Intents 1Click provider
type OneClickConfig struct {
	JWTToken string `mapstructure:"jwt_token"`
	BaseURL  string `mapstructure:"base_url"`
	// DepositCost is the sponsor's cost per deposit in origin token units
	DepositCost float64 `mapstructure:"deposit_cost"`
}

// SafetyConfig configures fee derivation and the safety gate
type SafetyConfig struct {
	SafetyMargin         float64       `mapstructure:"safety_margin"`
	MaxSlippageTolerance float64       `mapstructure:"max_slippage_tolerance"`
	MinUserFee           float64       `mapstructure:"min_user_fee"`
	QuoteTimeout         time.Duration `mapstructure:"quote_timeout"`
	ExecuteTimeout       time.Duration `mapstructure:"execute_timeout"`
}

// SolanaConfig holds Solana executor configuration
type SolanaConfig struct {
	RPCUrl             string        `mapstructure:"rpc_url"`
	PrivateKey         string        `mapstructure:"private_key"` // Base58 encoded
	Commitment         string        `mapstructure:"commitment"`  // finalized, confirmed or processed
	SkipPreflight      bool          `mapstructure:"skip_preflight"`
	RetrySkipPreflight bool          `mapstructure:"retry_skip_preflight"`
	DustThreshold      float64       `mapstructure:"dust_threshold"`
	ConfirmTimeout     time.Duration `mapstructure:"confirm_timeout"` // 0 disables confirmation
}

// EVMConfig holds EVM executor configuration keyed by network name
type EVMConfig struct {
	Networks map[string]EVMNetwork `mapstructure:"networks"`
}

// EVMNetwork holds the configuration of one EVM network
type EVMNetwork struct {
	RPCUrl     string  `mapstructure:"rpc_url"`
	PrivateKey string  `mapstructure:"private_key"` // Hex encoded, with or without 0x
	ChainID    int64   `mapstructure:"chain_id"`
	GasLimit   *uint64 `mapstructure:"gas_limit"` // Optional, estimated when unset
	GasPrice   *int64  `mapstructure:"gas_price"` // Optional max fee in wei, suggested when unset
}

// NetworkByChainID returns the configured network for a chain id
func (c EVMConfig) NetworkByChainID(chainID int64) (string, EVMNetwork, bool) {
	for name, network := range c.Networks {
		if network.ChainID == chainID {
			return name, network, true
		}
	}
	return "", EVMNetwork{}, false
}

// AuditConfig configures the audit log. An empty File uses
// ~/.relay-swap-audit.jsonl.
type AuditConfig struct {
	File string `mapstructure:"file"`
}

// ServerConfig configures the HTTP facade
type ServerConfig struct {
	Host            string  `mapstructure:"host"`
	Port            int     `mapstructure:"port"`
	RateLimitPerSec float64 `mapstructure:"rate_limit_per_sec"`
	RateLimitBurst  int     `mapstructure:"rate_limit_burst"`
}

// LogConfig configures logging
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"` // json or console
}

// ProofConfig holds the inputs of the proof command
type ProofConfig struct {
	UserSolanaAddress string  `mapstructure:"user_solana_address"`
	UserAddress       string  `mapstructure:"user_address"`
	DestinationChain  string  `mapstructure:"destination_chain"`
	Amount            float64 `mapstructure:"amount"`
	FromToken         string  `mapstructure:"from_token"`
	DestinationToken  string  `mapstructure:"destination_token"`
	OutputFile        string  `mapstructure:"output_file"`
}

// proofEnv binds keys to the unprefixed variables the proof flow reads
var proofEnv = map[string]string{
	"proof.user_solana_address": "USER_SOLANA_ADDRESS",
	"proof.user_address":        "USER_ADDRESS",
	"proof.destination_chain":   "DESTINATION_CHAIN",
	"proof.amount":              "AMOUNT",
	"proof.from_token":          "FROM_TOKEN",
	"proof.destination_token":   "DESTINATION_TOKEN",
	"solana.rpc_url":            "SOLANA_RPC_URL",
	"solana.private_key":        "SOLANA_PRIVATE_KEY",
	"relay.api_key":             "RELAY_API_KEY",
}

var globalConfig *Config

// Load reads configuration from environment variables and config file
func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigName(".relay-swap")
	v.SetConfigType("yaml")
	v.AddConfigPath("$HOME")
	v.AddConfigPath(".")

	setDefaults(v)

	// Read from environment variables
	v.SetEnvPrefix("RELAY_SWAP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for key, env := range proofEnv {
		if err := v.BindEnv(key, env); err != nil {
			return nil, fmt.Errorf("failed to bind %s: %w", env, err)
		}
	}

	// Config file is optional
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	globalConfig = &cfg
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("provider", ProviderRelay)

	v.SetDefault("relay.base_url", "https://api.relay.link")
	v.SetDefault("relay.api_key", "")
	v.SetDefault("relay.origin_decimals", 18)
	v.SetDefault("relay.timeout", 30*time.Second)
	v.SetDefault("relay.requests_per_sec", 10)

	v.SetDefault("oneclick.jwt_token", "")
	v.SetDefault("oneclick.base_url", "https://1click.chaindefuser.com")
	v.SetDefault("oneclick.deposit_cost", 0)

	v.SetDefault("safety.safety_margin", 0.1)
	v.SetDefault("safety.max_slippage_tolerance", 0.5)
	v.SetDefault("safety.min_user_fee", 0)
	v.SetDefault("safety.quote_timeout", 30*time.Second)
	v.SetDefault("safety.execute_timeout", 2*time.Minute)

	v.SetDefault("solana.rpc_url", "https://api.mainnet-beta.solana.com")
	v.SetDefault("solana.private_key", "")
	v.SetDefault("solana.commitment", "confirmed")
	v.SetDefault("solana.skip_preflight", false)
	v.SetDefault("solana.retry_skip_preflight", true)
	v.SetDefault("solana.dust_threshold", 1)
	v.SetDefault("solana.confirm_timeout", 0)

	v.SetDefault("audit.file", "")

	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.rate_limit_per_sec", 5)
	v.SetDefault("server.rate_limit_burst", 10)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")

	v.SetDefault("proof.user_solana_address", "")
	v.SetDefault("proof.user_address", "")
	v.SetDefault("proof.destination_chain", "8453")
	v.SetDefault("proof.amount", 1)
	v.SetDefault("proof.from_token", "")
	v.SetDefault("proof.destination_token", "")
	v.SetDefault("proof.output_file", "proof-solana-to-base.json")
}

// Validate checks value ranges and provider requirements
func (c *Config) Validate() error {
	switch c.Provider {
	case ProviderRelay:
	case ProviderOneClick:
		if c.OneClick.JWTToken == "" {
			return fmt.Errorf("JWT token not found. Please set RELAY_SWAP_ONECLICK_JWT_TOKEN or add oneclick.jwt_token to .relay-swap.yaml")
		}
	default:
		return fmt.Errorf("unknown provider %q (expected %s or %s)", c.Provider, ProviderRelay, ProviderOneClick)
	}

	if c.Safety.SafetyMargin < 0 {
		return fmt.Errorf("safety.safety_margin must be non-negative, got %v", c.Safety.SafetyMargin)
	}
	if c.Safety.MaxSlippageTolerance < 0 || c.Safety.MaxSlippageTolerance > 1 {
		return fmt.Errorf("safety.max_slippage_tolerance must be within [0, 1], got %v", c.Safety.MaxSlippageTolerance)
	}
	if c.Safety.MinUserFee < 0 {
		return fmt.Errorf("safety.min_user_fee must be non-negative, got %v", c.Safety.MinUserFee)
	}
	if c.OneClick.DepositCost < 0 {
		return fmt.Errorf("oneclick.deposit_cost must be non-negative, got %v", c.OneClick.DepositCost)
	}
	if c.Relay.OriginDecimals < 0 || c.Relay.OriginDecimals > 36 {
		return fmt.Errorf("relay.origin_decimals out of range: %d", c.Relay.OriginDecimals)
	}

	switch c.Log.Format {
	case "json", "console":
	default:
		return fmt.Errorf("log.format must be json or console, got %q", c.Log.Format)
	}

	for name, network := range c.EVM.Networks {
		if network.ChainID <= 0 {
			return fmt.Errorf("evm.networks.%s.chain_id must be set", name)
		}
	}
	return nil
}

// Get returns the global configuration
func Get() *Config {
	if globalConfig == nil {
		cfg, err := Load()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error loading configuration: %v\n", err)
			os.Exit(1)
		}
		return cfg
	}
	return globalConfig
}

// Set updates the global configuration
func Set(cfg *Config) {
	globalConfig = cfg
}
